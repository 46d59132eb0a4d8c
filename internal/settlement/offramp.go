package settlement

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"acmeramp/internal/domain"
	"acmeramp/internal/models"
	"acmeramp/pkg/chain"
	"acmeramp/pkg/logger"
	"acmeramp/pkg/payment"
)

// OffRampService settles inbound token transfers into burns and fiat
// payouts. No record exists until the user has signed the transfer; the
// transfer tx hash is the idempotency key, and its unique index plus the
// claim protocol arbitrate concurrent confirms.
type OffRampService struct {
	store    TransactionStore
	accounts AccountStore
	provider payment.Provider
	chain    chain.Client
	minCents int64
}

func NewOffRampService(store TransactionStore, accounts AccountStore, provider payment.Provider, chainClient chain.Client, minCents int64) *OffRampService {
	return &OffRampService{
		store:    store,
		accounts: accounts,
		provider: provider,
		chain:    chainClient,
		minCents: minCents,
	}
}

type OffRampInitiateResult struct {
	TreasuryAddress string
	AmountToken     string
	AmountUsdCents  int64
}

type OffRampConfirmResult struct {
	TransactionID     string
	Status            string
	BurnTxHash        string
	PayoutStatus      string
	PayoutID          string
	NeedsAccountSetup bool
	AlreadyProcessed  bool
	AlreadyProcessing bool
}

// Initiate validates the withdrawal and tells the caller where to send the
// tokens. Deliberately no durable record yet: abandoned flows would otherwise
// litter the store with orphaned pending rows.
func (s *OffRampService) Initiate(ctx context.Context, userAddress, amountToken string) (*OffRampInitiateResult, error) {
	addr := NormalizeAddress(userAddress)
	if addr == "" {
		return nil, E(CodeInvalidInput, "invalid user address")
	}
	amount, err := ParseTokenAmount(amountToken)
	if err != nil || amount.Sign() <= 0 {
		return nil, E(CodeInvalidInput, "amount must be a positive integer of token minor units")
	}
	cents := TokenToCents(amount)
	if cents < s.minCents {
		return nil, E(CodeInvalidInput, "minimum withdrawal is $"+FormatUsd(s.minCents))
	}
	return &OffRampInitiateResult{
		TreasuryAddress: s.chain.TreasuryAddress(),
		AmountToken:     amount.String(),
		AmountUsdCents:  cents,
	}, nil
}

// Confirm settles a signed transfer, idempotent by its tx hash. Verification
// gates the burn; the burn gates the payout; the burn alone defines
// completion.
func (s *OffRampService) Confirm(ctx context.Context, userAddress, amountToken, transferTxHash string) (*OffRampConfirmResult, error) {
	addr := NormalizeAddress(userAddress)
	if addr == "" {
		return nil, E(CodeInvalidInput, "invalid user address")
	}
	if transferTxHash == "" {
		return nil, E(CodeInvalidInput, "invalid transfer transaction hash")
	}
	amount, err := ParseTokenAmount(amountToken)
	if err != nil || amount.Sign() <= 0 {
		return nil, E(CodeInvalidInput, "amount must be a positive integer of token minor units")
	}
	cents := TokenToCents(amount)
	if cents < s.minCents {
		return nil, E(CodeInvalidInput, "minimum withdrawal is $"+FormatUsd(s.minCents))
	}

	t, claimed, err := s.findOrClaim(addr, amount.String(), cents, transferTxHash)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return offRampReplay(t)
	}

	// The record is authoritative from here on. A retry after a released
	// claim may carry a different request amount; what gets verified,
	// burned, and paid out is what the record says was transferred.
	amount, err = ParseTokenAmount(t.AmountToken)
	if err != nil {
		return nil, Wrap(CodeInvalidInput, "corrupt token amount on record", err)
	}
	cents = t.AmountUsdCents

	verified, err := s.chain.VerifyTransferToTreasury(ctx, transferTxHash, amount)
	if err != nil {
		// Transient chain trouble: release the claim so a retry can re-verify.
		_, _ = s.store.UpdateIfStatus(t.ID, domain.TxStatusProcessing, map[string]interface{}{
			"status": domain.TxStatusPending,
		})
		return nil, Wrap(CodeDownstreamUnavailable, "transfer verification unavailable", err)
	}
	if !verified {
		_ = s.store.UpdateFields(t.ID, map[string]interface{}{
			"status":        domain.TxStatusFailed,
			"error_message": "transfer verification failed",
		})
		return nil, E(CodeVerificationFailed, "transfer verification failed")
	}

	burnTxHash, err := s.chain.Burn(ctx, amount, "offramp:"+t.ID)
	if err != nil {
		if errors.Is(err, chain.ErrOutcomeUnknown) {
			logger.WithFields(map[string]interface{}{
				"transaction_id": t.ID,
				"tx_hash":        burnTxHash,
			}).Warn("burn outcome unknown, leaving record processing")
			return nil, Wrap(CodeDownstreamUnavailable, "burn not confirmed, settlement left in progress", err)
		}
		// Tokens stay in treasury unburned; flagged for manual reconciliation.
		_ = s.store.UpdateFields(t.ID, map[string]interface{}{
			"status":        domain.TxStatusFailed,
			"error_message": "burn failed: " + err.Error(),
		})
		logger.WithFields(map[string]interface{}{
			"transaction_id": t.ID,
			"user_address":   addr,
		}).Error("burn failed after verified transfer, manual reconciliation required")
		return nil, Wrap(CodeValueActionFailed, "transfer received but token burn failed, contact support", err)
	}

	payoutStatus, payoutID := s.requestPayout(ctx, t, cents, burnTxHash)

	fields := map[string]interface{}{
		"status":        domain.TxStatusCompleted,
		"burn_tx_hash":  burnTxHash,
		"payout_status": payoutStatus,
	}
	if payoutID != "" {
		fields["payout_id"] = payoutID
	}
	if err := s.store.UpdateFields(t.ID, fields); err != nil {
		return nil, Wrap(CodeDownstreamUnavailable, "could not finalize record", err)
	}

	logger.WithFields(map[string]interface{}{
		"transaction_id": t.ID,
		"user_address":   addr,
		"burn_tx_hash":   burnTxHash,
		"payout_status":  payoutStatus,
	}).Info("offramp completed")

	return &OffRampConfirmResult{
		TransactionID:     t.ID,
		Status:            domain.TxStatusCompleted,
		BurnTxHash:        burnTxHash,
		PayoutStatus:      payoutStatus,
		PayoutID:          payoutID,
		NeedsAccountSetup: payoutStatus == domain.PayoutPendingAccountSetup,
	}, nil
}

// findOrClaim resolves the record for a transfer hash and tries to win the
// exclusive right to settle it. claimed=false means the caller must report
// the record's current state instead of acting.
func (s *OffRampService) findOrClaim(addr, amountToken string, cents int64, transferTxHash string) (*models.Transaction, bool, error) {
	t, err := s.store.GetByTransferTxHash(transferTxHash)
	if err == nil {
		if t.Status == domain.TxStatusPending {
			// A previous attempt released its claim; take it over.
			n, err := s.store.ClaimPending(t.ID)
			if err != nil {
				return nil, false, Wrap(CodeDownstreamUnavailable, "claim failed", err)
			}
			if n == 1 {
				return t, true, nil
			}
			if t, err = s.store.GetByTransferTxHash(transferTxHash); err != nil {
				return nil, false, Wrap(CodeDownstreamUnavailable, "record lookup failed", err)
			}
		}
		return t, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, Wrap(CodeDownstreamUnavailable, "record lookup failed", err)
	}

	hash := transferTxHash
	t = &models.Transaction{
		Kind:           domain.TxKindOffRamp,
		Status:         domain.TxStatusProcessing, // creation is the claim
		UserAddress:    addr,
		AmountUsdCents: cents,
		AmountToken:    amountToken,
		TransferTxHash: &hash,
		PayoutStatus:   domain.PayoutPending,
	}
	if err := s.store.Create(t); err != nil {
		// Unique index on the hash: a concurrent confirm got here first.
		existing, lookupErr := s.store.GetByTransferTxHash(transferTxHash)
		if lookupErr == nil {
			return existing, false, nil
		}
		return nil, false, Wrap(CodeDownstreamUnavailable, "could not create transaction record", err)
	}
	return t, true, nil
}

// requestPayout issues the fiat transfer after a successful burn. Payout
// failure never rolls the burn back; it is recorded and retried out of band.
func (s *OffRampService) requestPayout(ctx context.Context, t *models.Transaction, cents int64, burnTxHash string) (string, string) {
	account, err := s.accounts.GetByUserAddress(t.UserAddress)
	if err != nil || account == nil || !account.PayoutsEnabled {
		return domain.PayoutPendingAccountSetup, ""
	}
	payoutID, err := s.provider.CreateTransfer(ctx, cents, account.ProviderAccountID, map[string]string{
		"userAddress":   t.UserAddress,
		"transactionId": t.ID,
		"burnTxHash":    burnTxHash,
	})
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"transaction_id": t.ID,
			"user_address":   t.UserAddress,
		}).WithError(err).Error("payout transfer failed, burn stands")
		return domain.PayoutFailed, ""
	}
	return domain.PayoutPaid, payoutID
}

func offRampReplay(t *models.Transaction) (*OffRampConfirmResult, error) {
	if t.Status == domain.TxStatusCompleted && t.BurnTxHash != nil {
		payoutID := ""
		if t.PayoutID != nil {
			payoutID = *t.PayoutID
		}
		return &OffRampConfirmResult{
			TransactionID:     t.ID,
			Status:            t.Status,
			BurnTxHash:        *t.BurnTxHash,
			PayoutStatus:      t.PayoutStatus,
			PayoutID:          payoutID,
			NeedsAccountSetup: t.PayoutStatus == domain.PayoutPendingAccountSetup,
			AlreadyProcessed:  true,
		}, nil
	}
	if t.Status == domain.TxStatusProcessing {
		return &OffRampConfirmResult{
			TransactionID:     t.ID,
			Status:            t.Status,
			AlreadyProcessing: true,
		}, nil
	}
	// Failed record: surface the recorded reason; retrying with the same
	// hash cannot change the verdict.
	return nil, E(CodeVerificationFailed, t.ErrorMessage)
}
