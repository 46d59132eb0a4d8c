package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"acmeramp/internal/settlement"
)

type OnRampHandler struct {
	svc *settlement.OnRampService
}

func NewOnRampHandler(svc *settlement.OnRampService) *OnRampHandler {
	return &OnRampHandler{svc: svc}
}

// Initiate starts a token purchase: creates the pending settlement record
// and a payment intent, and returns the client secret for the card flow.
func (h *OnRampHandler) Initiate(c *gin.Context) {
	var req struct {
		UserAddress    string `json:"user_address" binding:"required"`
		AmountUsdCents int64  `json:"amount_usd_cents" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.svc.Initiate(c.Request.Context(), req.UserAddress, req.AmountUsdCents)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"transaction_id":    res.TransactionID,
		"payment_intent_id": res.PaymentIntentID,
		"client_secret":     res.ClientSecret,
		"amount_usd":        settlement.FormatUsd(res.AmountUsdCents),
		"amount_token":      res.AmountToken,
	})
}

// Confirm settles a paid intent. Safe to call repeatedly; replays return the
// cached result and racing calls observe "already processing".
func (h *OnRampHandler) Confirm(c *gin.Context) {
	var req struct {
		PaymentIntentID string `json:"payment_intent_id" binding:"required"`
		UserAddress     string `json:"user_address" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.svc.Confirm(c.Request.Context(), req.PaymentIntentID, req.UserAddress)
	if err != nil {
		respondError(c, err)
		return
	}
	if res.AlreadyProcessing {
		c.JSON(http.StatusOK, gin.H{
			"success":            true,
			"status":             res.Status,
			"already_processing": true,
			"message":            "transaction is being processed",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"status":            res.Status,
		"mint_tx_hash":      res.MintTxHash,
		"amount_minted":     res.AmountToken,
		"already_processed": res.AlreadyProcessed,
	})
}
