package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"acmeramp/internal/settlement"
)

// respondError maps settlement error codes to HTTP statuses. Value-action
// failures keep their specific message so callers can show the right support
// guidance instead of a generic failure.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch settlement.CodeOf(err) {
	case settlement.CodeInvalidInput:
		status = http.StatusBadRequest
	case settlement.CodeNotFound:
		status = http.StatusNotFound
	case settlement.CodeAddressMismatch:
		status = http.StatusForbidden
	case settlement.CodeVerificationFailed:
		status = http.StatusBadRequest
	case settlement.CodeValueActionFailed:
		status = http.StatusInternalServerError
	case settlement.CodeDownstreamUnavailable:
		status = http.StatusBadGateway
	}
	msg := err.Error()
	if se, ok := err.(*settlement.Error); ok {
		msg = se.Message
	}
	c.JSON(status, gin.H{"error": msg})
}
