package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"acmeramp/config"
	"acmeramp/internal/settlement"
	"acmeramp/pkg/logger"
	"acmeramp/pkg/payment"
)

// WebhookHandler is the asynchronous settlement entry point. It reaches the
// same state machine as the client confirm call, so whichever arrives first
// performs the mint and the other observes "already processed/processing".
type WebhookHandler struct {
	onramp *settlement.OnRampService
	cfg    *config.Config
}

func NewWebhookHandler(onramp *settlement.OnRampService, cfg *config.Config) *WebhookHandler {
	return &WebhookHandler{onramp: onramp, cfg: cfg}
}

func (h *WebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	event, err := payment.ConstructEvent(body, c.GetHeader("Stripe-Signature"), h.cfg.Stripe.WebhookSecret)
	if err != nil {
		logger.WithError(err).Warn("webhook signature rejected")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	log := logger.WithFields(map[string]interface{}{
		"event_id":   event.ID,
		"event_type": event.Type,
		"intent_id":  event.Object.ID,
	})

	switch event.Type {
	case "payment_intent.succeeded":
		res, err := h.onramp.ProcessSucceededIntent(c.Request.Context(), event.Object.ID)
		if err != nil {
			switch settlement.CodeOf(err) {
			case settlement.CodeNotFound:
				// Ack; retries will never find a record for this intent.
				log.Warn("no transaction for payment intent")
				c.JSON(http.StatusOK, gin.H{"received": true, "warning": "transaction not found"})
			case settlement.CodeDownstreamUnavailable:
				// Transient, a provider retry may succeed next time.
				log.WithError(err).Error("webhook processing deferred")
				c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
			default:
				// Durably recorded as failed; retrying cannot change it.
				log.WithError(err).Error("webhook settlement failed")
				c.JSON(http.StatusOK, gin.H{"received": true, "status": "failed"})
			}
			return
		}
		status := "minted"
		if res.AlreadyProcessed {
			status = "already_processed"
		} else if res.AlreadyProcessing {
			status = "already_processing"
		}
		log.WithField("status", status).Info("webhook handled")
		c.JSON(http.StatusOK, gin.H{"received": true, "status": status, "tx_hash": res.MintTxHash})

	case "payment_intent.payment_failed":
		reason := ""
		if event.Object.LastPaymentError != nil {
			reason = event.Object.LastPaymentError.Message
		}
		if err := h.onramp.ProcessFailedIntent(event.Object.ID, reason); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
			return
		}
		log.Info("payment failure recorded")
		c.JSON(http.StatusOK, gin.H{"received": true})

	default:
		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}
