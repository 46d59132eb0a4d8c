package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"acmeramp/internal/settlement"
)

type OffRampHandler struct {
	svc *settlement.OffRampService
}

func NewOffRampHandler(svc *settlement.OffRampService) *OffRampHandler {
	return &OffRampHandler{svc: svc}
}

// Initiate validates a withdrawal and returns the treasury address the user
// must transfer tokens to. No record is created until the transfer is signed.
func (h *OffRampHandler) Initiate(c *gin.Context) {
	var req struct {
		UserAddress string `json:"user_address" binding:"required"`
		AmountToken string `json:"amount_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.svc.Initiate(c.Request.Context(), req.UserAddress, req.AmountToken)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"treasury_address": res.TreasuryAddress,
		"amount_token":     res.AmountToken,
		"amount_usd":       settlement.FormatUsd(res.AmountUsdCents),
	})
}

// Confirm settles a signed transfer: verify, burn, then payout. Idempotent
// by the transfer tx hash.
func (h *OffRampHandler) Confirm(c *gin.Context) {
	var req struct {
		UserAddress    string `json:"user_address" binding:"required"`
		AmountToken    string `json:"amount_token" binding:"required"`
		TransferTxHash string `json:"transfer_tx_hash" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.svc.Confirm(c.Request.Context(), req.UserAddress, req.AmountToken, req.TransferTxHash)
	if err != nil {
		respondError(c, err)
		return
	}
	if res.AlreadyProcessing {
		c.JSON(http.StatusOK, gin.H{
			"success":            true,
			"status":             res.Status,
			"already_processing": true,
			"message":            "withdrawal is being processed",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":             true,
		"status":              res.Status,
		"burn_tx_hash":        res.BurnTxHash,
		"payout_status":       res.PayoutStatus,
		"payout_id":           res.PayoutID,
		"needs_account_setup": res.NeedsAccountSetup,
		"already_processed":   res.AlreadyProcessed,
	})
}
