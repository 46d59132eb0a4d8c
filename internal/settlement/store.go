package settlement

import (
	"acmeramp/internal/models"
)

// TransactionStore is the durable record store the flows run against.
// ClaimPending is the atomic test-and-set that guards the value-moving step;
// it is the only shared mutable resource and the only permitted mint/burn
// gate.
type TransactionStore interface {
	Create(t *models.Transaction) error
	GetByID(id string) (*models.Transaction, error)
	GetByPaymentIntentID(ref string) (*models.Transaction, error)
	GetByTransferTxHash(hash string) (*models.Transaction, error)
	UpdateFields(id string, fields map[string]interface{}) error
	// UpdateIfStatus applies fields only while the stored status still equals
	// expected, returning the affected row count (0 or 1).
	UpdateIfStatus(id, expected string, fields map[string]interface{}) (int64, error)
	// ClaimPending is UpdateIfStatus(id, pending, {status: processing}).
	ClaimPending(id string) (int64, error)
	ListByUserAddress(addr string, limit, offset int) ([]models.Transaction, int64, error)
}

type AccountStore interface {
	GetByUserAddress(addr string) (*models.ConnectedAccount, error)
	Create(a *models.ConnectedAccount) error
	UpdateStatus(addr string, onboardingComplete, chargesEnabled, payoutsEnabled bool) error
}
