package payment

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// StubProvider is a no-op provider for development. Every intent it creates
// verifies as succeeded and every account has payouts enabled.
type StubProvider struct {
	mu      sync.Mutex
	intents map[string]int64
}

func NewStubProvider() *StubProvider {
	return &StubProvider{intents: make(map[string]int64)}
}

func (s *StubProvider) CreatePaymentIntent(ctx context.Context, r IntentRequest) (*Intent, error) {
	id := fmt.Sprintf("pi_stub_%d", time.Now().UnixNano())
	s.mu.Lock()
	s.intents[id] = r.AmountUsdCents
	s.mu.Unlock()
	return &Intent{ID: id, ClientSecret: id + "_secret"}, nil
}

func (s *StubProvider) VerifyPaymentIntent(ctx context.Context, intentID string) (*Verification, error) {
	s.mu.Lock()
	amount, ok := s.intents[intentID]
	s.mu.Unlock()
	if !ok {
		return &Verification{Verified: false}, nil
	}
	return &Verification{Verified: true, AmountUsdCents: amount}, nil
}

func (s *StubProvider) CreateConnectedAccount(ctx context.Context, userAddress string) (string, error) {
	return fmt.Sprintf("acct_stub_%d", time.Now().UnixNano()), nil
}

func (s *StubProvider) CreateAccountLink(ctx context.Context, accountID, returnURL, refreshURL string) (string, error) {
	return "https://example.com/onboarding/" + accountID, nil
}

func (s *StubProvider) GetAccountStatus(ctx context.Context, accountID string) (*AccountStatus, error) {
	return &AccountStatus{ChargesEnabled: true, PayoutsEnabled: true, DetailsSubmitted: true}, nil
}

func (s *StubProvider) CreateTransfer(ctx context.Context, amountUsdCents int64, destinationAccountID string, metadata map[string]string) (string, error) {
	return fmt.Sprintf("tr_stub_%d", time.Now().UnixNano()), nil
}
