package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"acmeramp/pkg/chain"
)

type HealthHandler struct {
	db    *gorm.DB
	chain chain.Client
}

func NewHealthHandler(db *gorm.DB, chainClient chain.Client) *HealthHandler {
	return &HealthHandler{db: db, chain: chainClient}
}

// Health reports store and chain reachability plus the treasury balance.
func (h *HealthHandler) Health(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.Ping()
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": "database unreachable"})
		return
	}
	balance, err := h.chain.TreasuryBalance(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": "chain unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":           "ok",
		"treasury_address": h.chain.TreasuryAddress(),
		"treasury_balance": balance.String(),
	})
}
