package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"acmeramp/config"
	"acmeramp/internal/settlement"
)

type ConnectHandler struct {
	svc *settlement.ConnectService
	cfg *config.Config
}

func NewConnectHandler(svc *settlement.ConnectService, cfg *config.Config) *ConnectHandler {
	return &ConnectHandler{svc: svc, cfg: cfg}
}

// Onboard creates (or resumes) payout-account onboarding and returns the
// provider's hosted onboarding link.
func (h *ConnectHandler) Onboard(c *gin.Context) {
	var req struct {
		UserAddress string `json:"user_address" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	base := h.cfg.Server.BaseURL
	res, err := h.svc.Onboard(c.Request.Context(), req.UserAddress,
		base+"/api/v1/connect/return?user_address="+req.UserAddress,
		base+"/api/v1/connect/refresh?user_address="+req.UserAddress,
	)
	if err != nil {
		respondError(c, err)
		return
	}
	if res.OnboardingComplete {
		c.JSON(http.StatusOK, gin.H{
			"account_id":          res.AccountID,
			"onboarding_complete": true,
			"message":             "account already set up",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"account_id":     res.AccountID,
		"onboarding_url": res.OnboardingURL,
	})
}

func (h *ConnectHandler) Status(c *gin.Context) {
	userAddress := c.Query("user_address")
	if userAddress == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_address required"})
		return
	}
	res, err := h.svc.Status(c.Request.Context(), userAddress)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"has_account":         res.HasAccount,
		"account_id":          res.AccountID,
		"onboarding_complete": res.OnboardingComplete,
		"payouts_enabled":     res.PayoutsEnabled,
	})
}

// Return is where the provider sends the user after onboarding; it refreshes
// the cached status so payouts can start immediately.
func (h *ConnectHandler) Return(c *gin.Context) {
	userAddress := c.Query("user_address")
	if userAddress == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_address required"})
		return
	}
	res, err := h.svc.Status(c.Request.Context(), userAddress)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"onboarding_complete": res.OnboardingComplete,
		"payouts_enabled":     res.PayoutsEnabled,
		"message":             "onboarding status refreshed",
	})
}

// Refresh re-issues an onboarding link when the previous one expired.
func (h *ConnectHandler) Refresh(c *gin.Context) {
	userAddress := c.Query("user_address")
	if userAddress == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_address required"})
		return
	}
	base := h.cfg.Server.BaseURL
	res, err := h.svc.Onboard(c.Request.Context(), userAddress,
		base+"/api/v1/connect/return?user_address="+userAddress,
		base+"/api/v1/connect/refresh?user_address="+userAddress,
	)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"account_id":     res.AccountID,
		"onboarding_url": res.OnboardingURL,
	})
}
