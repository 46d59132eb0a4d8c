package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"acmeramp/internal/repository"
	"acmeramp/internal/settlement"
)

const maxPageSize = 100

type TransactionHandler struct {
	repo *repository.TransactionRepository
}

func NewTransactionHandler(repo *repository.TransactionRepository) *TransactionHandler {
	return &TransactionHandler{repo: repo}
}

// List returns an address's settlement records, newest first.
func (h *TransactionHandler) List(c *gin.Context) {
	userAddress := settlement.NormalizeAddress(c.Query("user_address"))
	if userAddress == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_address required"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 {
		limit = 20
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	txs, total, err := h.repo.ListByUserAddress(userAddress, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list transactions"})
		return
	}
	items := make([]gin.H, 0, len(txs))
	for _, t := range txs {
		items = append(items, gin.H{
			"id":            t.ID,
			"kind":          t.Kind,
			"status":        t.Status,
			"user_address":  t.UserAddress,
			"amount_usd":    settlement.FormatUsd(t.AmountUsdCents),
			"amount_token":  t.AmountToken,
			"mint_tx_hash":  t.MintTxHash,
			"burn_tx_hash":  t.BurnTxHash,
			"payout_status": t.PayoutStatus,
			"created_at":    t.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"transactions": items,
		"total":        total,
		"limit":        limit,
		"offset":       offset,
	})
}
