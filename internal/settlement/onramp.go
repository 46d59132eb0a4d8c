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

// OnRampService settles card payments into minted tokens. Both the client
// confirm call and the provider webhook funnel into the same state machine;
// the store's atomic claim decides which of them performs the mint.
type OnRampService struct {
	store    TransactionStore
	provider payment.Provider
	chain    chain.Client
	minCents int64
	maxCents int64
}

func NewOnRampService(store TransactionStore, provider payment.Provider, chainClient chain.Client, minCents, maxCents int64) *OnRampService {
	return &OnRampService{
		store:    store,
		provider: provider,
		chain:    chainClient,
		minCents: minCents,
		maxCents: maxCents,
	}
}

type OnRampInitiateResult struct {
	TransactionID   string
	PaymentIntentID string
	ClientSecret    string
	AmountUsdCents  int64
	AmountToken     string
}

type OnRampConfirmResult struct {
	TransactionID     string
	Status            string
	MintTxHash        string
	AmountToken       string
	AlreadyProcessed  bool
	AlreadyProcessing bool
}

// Initiate validates the purchase, creates the pending record, and opens a
// payment intent tagged with the record id. The client secret goes back to
// the caller to complete the card payment.
func (s *OnRampService) Initiate(ctx context.Context, userAddress string, amountUsdCents int64) (*OnRampInitiateResult, error) {
	addr := NormalizeAddress(userAddress)
	if addr == "" {
		return nil, E(CodeInvalidInput, "invalid user address")
	}
	if amountUsdCents < s.minCents {
		return nil, E(CodeInvalidInput, "minimum amount is $"+FormatUsd(s.minCents))
	}
	if amountUsdCents > s.maxCents {
		return nil, E(CodeInvalidInput, "maximum amount is $"+FormatUsd(s.maxCents))
	}

	amountToken := CentsToToken(amountUsdCents)
	t := &models.Transaction{
		Kind:           domain.TxKindOnRamp,
		Status:         domain.TxStatusPending,
		UserAddress:    addr,
		AmountUsdCents: amountUsdCents,
		AmountToken:    amountToken.String(),
	}
	if err := s.store.Create(t); err != nil {
		return nil, Wrap(CodeDownstreamUnavailable, "could not create transaction record", err)
	}

	intent, err := s.provider.CreatePaymentIntent(ctx, payment.IntentRequest{
		AmountUsdCents: amountUsdCents,
		UserAddress:    addr,
		TransactionID:  t.ID,
	})
	if err != nil {
		_ = s.store.UpdateFields(t.ID, map[string]interface{}{
			"status":        domain.TxStatusFailed,
			"error_message": "payment intent creation failed: " + err.Error(),
		})
		return nil, Wrap(CodeDownstreamUnavailable, "payment provider unavailable", err)
	}
	if err := s.store.UpdateFields(t.ID, map[string]interface{}{
		"payment_intent_id": intent.ID,
	}); err != nil {
		return nil, Wrap(CodeDownstreamUnavailable, "could not attach payment reference", err)
	}

	logger.WithFields(map[string]interface{}{
		"transaction_id": t.ID,
		"user_address":   addr,
		"amount_usd":     FormatUsd(amountUsdCents),
	}).Info("onramp initiated")

	return &OnRampInitiateResult{
		TransactionID:   t.ID,
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		AmountUsdCents:  amountUsdCents,
		AmountToken:     amountToken.String(),
	}, nil
}

// Confirm is the synchronous settlement entry point, idempotent by payment
// intent id. The caller may invoke it any number of times (client redirect
// plus webhook); at most one invocation ever mints.
func (s *OnRampService) Confirm(ctx context.Context, paymentIntentID, userAddress string) (*OnRampConfirmResult, error) {
	addr := NormalizeAddress(userAddress)
	if addr == "" {
		return nil, E(CodeInvalidInput, "invalid user address")
	}

	t, err := s.store.GetByPaymentIntentID(paymentIntentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, E(CodeNotFound, "transaction not found")
		}
		return nil, Wrap(CodeDownstreamUnavailable, "record lookup failed", err)
	}

	if res := replayResult(t); res != nil {
		return res, nil
	}
	if addr != t.UserAddress {
		return nil, E(CodeAddressMismatch, "user address mismatch")
	}

	verification, err := s.provider.VerifyPaymentIntent(ctx, paymentIntentID)
	if err != nil {
		// Record untouched; the caller can retry once the provider is back.
		return nil, Wrap(CodeDownstreamUnavailable, "payment verification unavailable", err)
	}
	if !verification.Verified {
		_ = s.store.UpdateFields(t.ID, map[string]interface{}{
			"status":        domain.TxStatusFailed,
			"error_message": "payment not verified",
		})
		return nil, E(CodeVerificationFailed, "payment not verified")
	}

	return s.settle(ctx, t)
}

// ProcessSucceededIntent drives the same state machine from a
// payment_intent.succeeded webhook event. The event signature has already
// been verified, so no provider re-verification is needed.
func (s *OnRampService) ProcessSucceededIntent(ctx context.Context, paymentIntentID string) (*OnRampConfirmResult, error) {
	t, err := s.store.GetByPaymentIntentID(paymentIntentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, E(CodeNotFound, "transaction not found")
		}
		return nil, Wrap(CodeDownstreamUnavailable, "record lookup failed", err)
	}
	if res := replayResult(t); res != nil {
		return res, nil
	}
	return s.settle(ctx, t)
}

// ProcessFailedIntent records a provider-reported payment failure. Only a
// still-pending record is touched; terminal records keep their state.
func (s *OnRampService) ProcessFailedIntent(paymentIntentID, reason string) error {
	t, err := s.store.GetByPaymentIntentID(paymentIntentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return Wrap(CodeDownstreamUnavailable, "record lookup failed", err)
	}
	if reason == "" {
		reason = "payment failed"
	}
	_, err = s.store.UpdateIfStatus(t.ID, domain.TxStatusPending, map[string]interface{}{
		"status":        domain.TxStatusFailed,
		"error_message": reason,
	})
	return err
}

// settle claims the record and mints. Exactly one caller per record gets
// past the claim.
func (s *OnRampService) settle(ctx context.Context, t *models.Transaction) (*OnRampConfirmResult, error) {
	claimed, err := s.store.ClaimPending(t.ID)
	if err != nil {
		return nil, Wrap(CodeDownstreamUnavailable, "claim failed", err)
	}
	if claimed == 0 {
		// A concurrent caller won the race; report its outcome instead.
		current, err := s.store.GetByID(t.ID)
		if err != nil {
			return nil, Wrap(CodeDownstreamUnavailable, "record lookup failed", err)
		}
		if res := replayResult(current); res != nil {
			return res, nil
		}
		if current.Status == domain.TxStatusFailed {
			return nil, E(CodeVerificationFailed, current.ErrorMessage)
		}
		return &OnRampConfirmResult{
			TransactionID:     current.ID,
			Status:            current.Status,
			AlreadyProcessing: true,
		}, nil
	}

	amount, err := ParseTokenAmount(t.AmountToken)
	if err != nil {
		return nil, Wrap(CodeInvalidInput, "corrupt token amount on record", err)
	}
	mintTxHash, err := s.chain.Mint(ctx, t.UserAddress, amount, "onramp:"+t.ID)
	if err != nil {
		if errors.Is(err, chain.ErrOutcomeUnknown) {
			// The mint may still land; leave the record processing so a later
			// pass can reconcile instead of double-minting.
			logger.WithFields(map[string]interface{}{
				"transaction_id": t.ID,
				"tx_hash":        mintTxHash,
			}).Warn("mint outcome unknown, leaving record processing")
			return nil, Wrap(CodeDownstreamUnavailable, "mint not confirmed, settlement left in progress", err)
		}
		_ = s.store.UpdateFields(t.ID, map[string]interface{}{
			"status":        domain.TxStatusFailed,
			"error_message": "mint failed: " + err.Error(),
		})
		logger.WithFields(map[string]interface{}{
			"transaction_id": t.ID,
			"user_address":   t.UserAddress,
		}).Error("mint failed after verified payment, manual reconciliation required")
		return nil, Wrap(CodeValueActionFailed, "payment received but token mint failed, contact support", err)
	}

	if err := s.store.UpdateFields(t.ID, map[string]interface{}{
		"status":       domain.TxStatusCompleted,
		"mint_tx_hash": mintTxHash,
	}); err != nil {
		return nil, Wrap(CodeDownstreamUnavailable, "could not finalize record", err)
	}

	logger.WithFields(map[string]interface{}{
		"transaction_id": t.ID,
		"user_address":   t.UserAddress,
		"mint_tx_hash":   mintTxHash,
		"amount_token":   t.AmountToken,
	}).Info("onramp completed")

	return &OnRampConfirmResult{
		TransactionID: t.ID,
		Status:        domain.TxStatusCompleted,
		MintTxHash:    mintTxHash,
		AmountToken:   t.AmountToken,
	}, nil
}

// replayResult short-circuits records already settled or in flight.
func replayResult(t *models.Transaction) *OnRampConfirmResult {
	if t.Status == domain.TxStatusCompleted && t.MintTxHash != nil {
		return &OnRampConfirmResult{
			TransactionID:    t.ID,
			Status:           t.Status,
			MintTxHash:       *t.MintTxHash,
			AmountToken:      t.AmountToken,
			AlreadyProcessed: true,
		}
	}
	if t.Status == domain.TxStatusProcessing {
		return &OnRampConfirmResult{
			TransactionID:     t.ID,
			Status:            t.Status,
			AlreadyProcessing: true,
		}
	}
	return nil
}
