package settlement

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"acmeramp/internal/domain"
	"acmeramp/internal/models"
	"acmeramp/pkg/payment"
)

// memStore implements TransactionStore with the same compare-and-swap
// semantics as the gorm repository, so races can be driven deterministically.
type memStore struct {
	mu   sync.Mutex
	byID map[string]*models.Transaction
}

func newMemStore() *memStore {
	return &memStore{byID: make(map[string]*models.Transaction)}
}

func (s *memStore) Create(t *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.PayoutStatus == "" {
		t.PayoutStatus = domain.PayoutNotApplicable
	}
	for _, other := range s.byID {
		if t.PaymentIntentID != nil && other.PaymentIntentID != nil && *t.PaymentIntentID == *other.PaymentIntentID {
			return fmt.Errorf("duplicate payment_intent_id")
		}
		if t.TransferTxHash != nil && other.TransferTxHash != nil && *t.TransferTxHash == *other.TransferTxHash {
			return fmt.Errorf("duplicate transfer_tx_hash")
		}
	}
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	cp := *t
	s.byID[t.ID] = &cp
	return nil
}

func (s *memStore) GetByID(id string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *memStore) GetByPaymentIntentID(ref string) (*models.Transaction, error) {
	return s.find(func(t *models.Transaction) bool {
		return t.PaymentIntentID != nil && *t.PaymentIntentID == ref
	})
}

func (s *memStore) GetByTransferTxHash(hash string) (*models.Transaction, error) {
	return s.find(func(t *models.Transaction) bool {
		return t.TransferTxHash != nil && *t.TransferTxHash == hash
	})
}

func (s *memStore) find(match func(*models.Transaction) bool) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.byID {
		if match(t) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *memStore) UpdateFields(id string, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	applyFields(t, fields)
	return nil
}

func (s *memStore) UpdateIfStatus(id, expected string, fields map[string]interface{}) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[id]
	if !ok || t.Status != expected {
		return 0, nil
	}
	applyFields(t, fields)
	return 1, nil
}

func (s *memStore) ClaimPending(id string) (int64, error) {
	return s.UpdateIfStatus(id, domain.TxStatusPending, map[string]interface{}{
		"status": domain.TxStatusProcessing,
	})
}

func (s *memStore) ListByUserAddress(addr string, limit, offset int) ([]models.Transaction, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var txs []models.Transaction
	for _, t := range s.byID {
		if t.UserAddress == addr {
			txs = append(txs, *t)
		}
	}
	sort.Slice(txs, func(i, j int) bool { return txs[i].CreatedAt.After(txs[j].CreatedAt) })
	total := int64(len(txs))
	if offset > len(txs) {
		offset = len(txs)
	}
	end := offset + limit
	if end > len(txs) {
		end = len(txs)
	}
	return txs[offset:end], total, nil
}

func applyFields(t *models.Transaction, fields map[string]interface{}) {
	for k, v := range fields {
		switch k {
		case "status":
			t.Status = v.(string)
		case "error_message":
			t.ErrorMessage = v.(string)
		case "payment_intent_id":
			s := v.(string)
			t.PaymentIntentID = &s
		case "mint_tx_hash":
			s := v.(string)
			t.MintTxHash = &s
		case "burn_tx_hash":
			s := v.(string)
			t.BurnTxHash = &s
		case "payout_status":
			t.PayoutStatus = v.(string)
		case "payout_id":
			s := v.(string)
			t.PayoutID = &s
		}
	}
	t.UpdatedAt = time.Now()
}

// memAccounts implements AccountStore.
type memAccounts struct {
	mu     sync.Mutex
	byAddr map[string]*models.ConnectedAccount
}

func newMemAccounts() *memAccounts {
	return &memAccounts{byAddr: make(map[string]*models.ConnectedAccount)}
}

func (s *memAccounts) GetByUserAddress(addr string) (*models.ConnectedAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byAddr[addr]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *memAccounts) Create(a *models.ConnectedAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.byAddr[a.UserAddress] = &cp
	return nil
}

func (s *memAccounts) UpdateStatus(addr string, onboardingComplete, chargesEnabled, payoutsEnabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byAddr[addr]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	a.OnboardingComplete = onboardingComplete
	a.ChargesEnabled = chargesEnabled
	a.PayoutsEnabled = payoutsEnabled
	return nil
}

// fakeProvider counts calls and returns scripted outcomes.
type fakeProvider struct {
	mu sync.Mutex

	intentErr error
	intentSeq int

	verified  bool
	verifyErr error

	transferErr   error
	transferCalls int
	lastTransfer  int64

	statusResult payment.AccountStatus
}

func (p *fakeProvider) CreatePaymentIntent(ctx context.Context, r payment.IntentRequest) (*payment.Intent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.intentErr != nil {
		return nil, p.intentErr
	}
	p.intentSeq++
	id := fmt.Sprintf("pi_test_%d", p.intentSeq)
	return &payment.Intent{ID: id, ClientSecret: id + "_secret"}, nil
}

func (p *fakeProvider) VerifyPaymentIntent(ctx context.Context, intentID string) (*payment.Verification, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.verifyErr != nil {
		return nil, p.verifyErr
	}
	return &payment.Verification{Verified: p.verified}, nil
}

func (p *fakeProvider) CreateConnectedAccount(ctx context.Context, userAddress string) (string, error) {
	return "acct_test_1", nil
}

func (p *fakeProvider) CreateAccountLink(ctx context.Context, accountID, returnURL, refreshURL string) (string, error) {
	return "https://onboarding.test/" + accountID, nil
}

func (p *fakeProvider) GetAccountStatus(ctx context.Context, accountID string) (*payment.AccountStatus, error) {
	st := p.statusResult
	return &st, nil
}

func (p *fakeProvider) CreateTransfer(ctx context.Context, amountUsdCents int64, destinationAccountID string, metadata map[string]string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transferCalls++
	p.lastTransfer = amountUsdCents
	if p.transferErr != nil {
		return "", p.transferErr
	}
	return "tr_test_1", nil
}

// fakeChain counts value-moving calls and returns scripted outcomes.
type fakeChain struct {
	mu sync.Mutex

	mintCalls  int
	mintErr    error
	lastMinted *big.Int
	lastMintTo string

	burnCalls  int
	burnErr    error
	lastBurned *big.Int

	verifyResult bool
	verifyErr    error

	treasury string
}

func (c *fakeChain) Mint(ctx context.Context, toAddress string, amount *big.Int, memo string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mintCalls++
	c.lastMinted = new(big.Int).Set(amount)
	c.lastMintTo = toAddress
	if c.mintErr != nil {
		return "", c.mintErr
	}
	return fmt.Sprintf("0xmint%d", c.mintCalls), nil
}

func (c *fakeChain) Burn(ctx context.Context, amount *big.Int, memo string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.burnCalls++
	c.lastBurned = new(big.Int).Set(amount)
	if c.burnErr != nil {
		return "", c.burnErr
	}
	return fmt.Sprintf("0xburn%d", c.burnCalls), nil
}

func (c *fakeChain) VerifyTransferToTreasury(ctx context.Context, txHash string, expected *big.Int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.verifyErr != nil {
		return false, c.verifyErr
	}
	return c.verifyResult, nil
}

func (c *fakeChain) TreasuryBalance(ctx context.Context) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (c *fakeChain) TreasuryAddress() string {
	if c.treasury == "" {
		return "0x00000000000000000000000000000000deadbeef"
	}
	return c.treasury
}

var errBoom = errors.New("boom")
