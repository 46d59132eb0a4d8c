package settlement

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acmeramp/internal/domain"
)

const userAddr = "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"

func newOnRampFixture() (*OnRampService, *memStore, *fakeProvider, *fakeChain) {
	store := newMemStore()
	provider := &fakeProvider{verified: true}
	ch := &fakeChain{verifyResult: true}
	svc := NewOnRampService(store, provider, ch, 100, 1000000)
	return svc, store, provider, ch
}

func TestOnRampInitiateValidation(t *testing.T) {
	svc, _, _, _ := newOnRampFixture()
	ctx := context.Background()

	tests := []struct {
		name   string
		addr   string
		cents  int64
		wantOK bool
	}{
		{"valid", userAddr, 5000, true},
		{"minimum accepted", userAddr, 100, true},
		{"maximum accepted", userAddr, 1000000, true},
		{"below minimum", userAddr, 99, false},
		{"above maximum", userAddr, 1000001, false},
		{"bad address", "not-an-address", 5000, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Initiate(ctx, tt.addr, tt.cents)
			if tt.wantOK {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Equal(t, CodeInvalidInput, CodeOf(err))
			}
		})
	}
}

func TestOnRampHappyPath(t *testing.T) {
	svc, store, _, ch := newOnRampFixture()
	ctx := context.Background()

	// $50.00 buys exactly 50000000 minor units.
	init, err := svc.Initiate(ctx, userAddr, 5000)
	require.NoError(t, err)
	assert.Equal(t, "50000000", init.AmountToken)
	assert.NotEmpty(t, init.ClientSecret)

	res, err := svc.Confirm(ctx, init.PaymentIntentID, userAddr)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusCompleted, res.Status)
	assert.Equal(t, "50000000", res.AmountToken)
	assert.NotEmpty(t, res.MintTxHash)
	assert.False(t, res.AlreadyProcessed)

	assert.Equal(t, 1, ch.mintCalls)
	assert.Equal(t, "50000000", ch.lastMinted.String())
	assert.Equal(t, NormalizeAddress(userAddr), ch.lastMintTo)

	stored, err := store.GetByID(init.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusCompleted, stored.Status)
	require.NotNil(t, stored.MintTxHash)
}

func TestOnRampConfirmReplayAfterCompletion(t *testing.T) {
	svc, _, _, ch := newOnRampFixture()
	ctx := context.Background()

	init, err := svc.Initiate(ctx, userAddr, 5000)
	require.NoError(t, err)
	first, err := svc.Confirm(ctx, init.PaymentIntentID, userAddr)
	require.NoError(t, err)

	second, err := svc.Confirm(ctx, init.PaymentIntentID, userAddr)
	require.NoError(t, err)
	assert.True(t, second.AlreadyProcessed)
	assert.Equal(t, first.MintTxHash, second.MintTxHash)
	assert.Equal(t, 1, ch.mintCalls)
}

func TestOnRampConcurrentConfirm(t *testing.T) {
	svc, _, _, ch := newOnRampFixture()
	ctx := context.Background()

	init, err := svc.Initiate(ctx, userAddr, 5000)
	require.NoError(t, err)

	const callers = 8
	results := make([]*OnRampConfirmResult, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Confirm(ctx, init.PaymentIntentID, userAddr)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, ch.mintCalls, "exactly one caller may mint")
	winners := 0
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		if !results[i].AlreadyProcessed && !results[i].AlreadyProcessing {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
}

func TestOnRampWebhookVsConfirmRace(t *testing.T) {
	svc, _, _, ch := newOnRampFixture()
	ctx := context.Background()

	init, err := svc.Initiate(ctx, userAddr, 2500)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var confirmRes, webhookRes *OnRampConfirmResult
	var confirmErr, webhookErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		confirmRes, confirmErr = svc.Confirm(ctx, init.PaymentIntentID, userAddr)
	}()
	go func() {
		defer wg.Done()
		webhookRes, webhookErr = svc.ProcessSucceededIntent(ctx, init.PaymentIntentID)
	}()
	wg.Wait()

	require.NoError(t, confirmErr)
	require.NoError(t, webhookErr)
	assert.Equal(t, 1, ch.mintCalls)
	confReplay := confirmRes.AlreadyProcessed || confirmRes.AlreadyProcessing
	hookReplay := webhookRes.AlreadyProcessed || webhookRes.AlreadyProcessing
	assert.True(t, confReplay != hookReplay, "exactly one side settles, the other observes a replay")
}

func TestOnRampAddressMismatch(t *testing.T) {
	svc, _, _, ch := newOnRampFixture()
	ctx := context.Background()

	init, err := svc.Initiate(ctx, userAddr, 5000)
	require.NoError(t, err)

	_, err = svc.Confirm(ctx, init.PaymentIntentID, "0x1111111111111111111111111111111111111111")
	require.Error(t, err)
	assert.Equal(t, CodeAddressMismatch, CodeOf(err))
	assert.Equal(t, 0, ch.mintCalls)

	// A malformed address is bad input, not another wallet's claim.
	_, err = svc.Confirm(ctx, init.PaymentIntentID, "not-an-address")
	require.Error(t, err)
	assert.Equal(t, CodeInvalidInput, CodeOf(err))
	assert.Equal(t, 0, ch.mintCalls)
}

func TestOnRampConfirmUnknownIntent(t *testing.T) {
	svc, _, _, _ := newOnRampFixture()
	_, err := svc.Confirm(context.Background(), "pi_missing", userAddr)
	require.Error(t, err)
	assert.Equal(t, CodeNotFound, CodeOf(err))
}

func TestOnRampVerificationFailure(t *testing.T) {
	svc, store, provider, ch := newOnRampFixture()
	provider.verified = false
	ctx := context.Background()

	init, err := svc.Initiate(ctx, userAddr, 5000)
	require.NoError(t, err)

	_, err = svc.Confirm(ctx, init.PaymentIntentID, userAddr)
	require.Error(t, err)
	assert.Equal(t, CodeVerificationFailed, CodeOf(err))
	assert.Equal(t, 0, ch.mintCalls)

	stored, err := store.GetByID(init.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusFailed, stored.Status)
	assert.Nil(t, stored.MintTxHash)

	// Retrying is safe: the record is failed, nothing can claim it.
	provider.verified = true
	_, err = svc.Confirm(ctx, init.PaymentIntentID, userAddr)
	require.Error(t, err)
	assert.Equal(t, 0, ch.mintCalls)
}

func TestOnRampMintFailureFlagsReconciliation(t *testing.T) {
	svc, store, _, ch := newOnRampFixture()
	ch.mintErr = errBoom
	ctx := context.Background()

	init, err := svc.Initiate(ctx, userAddr, 5000)
	require.NoError(t, err)

	_, err = svc.Confirm(ctx, init.PaymentIntentID, userAddr)
	require.Error(t, err)
	assert.Equal(t, CodeValueActionFailed, CodeOf(err))
	assert.Equal(t, 1, ch.mintCalls)

	stored, err := store.GetByID(init.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusFailed, stored.Status)
	assert.Contains(t, stored.ErrorMessage, "mint failed")
	assert.Nil(t, stored.MintTxHash)
}

func TestOnRampProviderDownLeavesRecordPending(t *testing.T) {
	svc, store, provider, _ := newOnRampFixture()
	ctx := context.Background()

	init, err := svc.Initiate(ctx, userAddr, 5000)
	require.NoError(t, err)

	provider.verifyErr = errBoom
	_, err = svc.Confirm(ctx, init.PaymentIntentID, userAddr)
	require.Error(t, err)
	assert.Equal(t, CodeDownstreamUnavailable, CodeOf(err))

	stored, err := store.GetByID(init.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusPending, stored.Status, "record keeps prior state on transient outage")

	// Once the provider is back, the same confirm settles normally.
	provider.verifyErr = nil
	res, err := svc.Confirm(ctx, init.PaymentIntentID, userAddr)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusCompleted, res.Status)
}

func TestOnRampWebhookFailureEvent(t *testing.T) {
	svc, store, _, _ := newOnRampFixture()
	ctx := context.Background()

	init, err := svc.Initiate(ctx, userAddr, 5000)
	require.NoError(t, err)

	require.NoError(t, svc.ProcessFailedIntent(init.PaymentIntentID, "card declined"))
	stored, err := store.GetByID(init.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusFailed, stored.Status)
	assert.Equal(t, "card declined", stored.ErrorMessage)
}

func TestOnRampFailedEventDoesNotClobberCompleted(t *testing.T) {
	svc, store, _, _ := newOnRampFixture()
	ctx := context.Background()

	init, err := svc.Initiate(ctx, userAddr, 5000)
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, init.PaymentIntentID, userAddr)
	require.NoError(t, err)

	// A late failure event for an already settled intent is ignored.
	require.NoError(t, svc.ProcessFailedIntent(init.PaymentIntentID, "stale event"))
	stored, err := store.GetByID(init.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusCompleted, stored.Status)
}
