package payment

import (
	"context"
)

// IntentRequest describes an on-ramp charge. Metadata ties the provider's
// payment intent back to our settlement record.
type IntentRequest struct {
	AmountUsdCents int64
	UserAddress    string
	TransactionID  string
}

type Intent struct {
	ID           string
	ClientSecret string
}

type Verification struct {
	Verified       bool
	AmountUsdCents int64
	Metadata       map[string]string
}

type AccountStatus struct {
	ChargesEnabled   bool
	PayoutsEnabled   bool
	DetailsSubmitted bool
}

// Provider is the payment-provider capability the settlement core consumes.
// Implementations are injected; the core never owns a global client.
type Provider interface {
	CreatePaymentIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	VerifyPaymentIntent(ctx context.Context, intentID string) (*Verification, error)
	CreateConnectedAccount(ctx context.Context, userAddress string) (string, error)
	CreateAccountLink(ctx context.Context, accountID, returnURL, refreshURL string) (string, error)
	GetAccountStatus(ctx context.Context, accountID string) (*AccountStatus, error)
	CreateTransfer(ctx context.Context, amountUsdCents int64, destinationAccountID string, metadata map[string]string) (string, error)
}
