package settlement

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"acmeramp/internal/models"
	"acmeramp/pkg/logger"
	"acmeramp/pkg/payment"
)

// ConnectService manages the lazily-created payout accounts off-ramp users
// need before fiat can be transferred to them.
type ConnectService struct {
	accounts AccountStore
	provider payment.Provider
}

func NewConnectService(accounts AccountStore, provider payment.Provider) *ConnectService {
	return &ConnectService{accounts: accounts, provider: provider}
}

type OnboardResult struct {
	AccountID          string
	OnboardingURL      string
	OnboardingComplete bool
}

type AccountStatusResult struct {
	HasAccount         bool
	AccountID          string
	OnboardingComplete bool
	PayoutsEnabled     bool
}

// Onboard creates the provider account on first need and hands back an
// onboarding link until the provider reports onboarding complete.
func (s *ConnectService) Onboard(ctx context.Context, userAddress, returnURL, refreshURL string) (*OnboardResult, error) {
	addr := NormalizeAddress(userAddress)
	if addr == "" {
		return nil, E(CodeInvalidInput, "invalid user address")
	}

	account, err := s.accounts.GetByUserAddress(addr)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, Wrap(CodeDownstreamUnavailable, "account lookup failed", err)
	}

	if account != nil && account.OnboardingComplete {
		return &OnboardResult{AccountID: account.ProviderAccountID, OnboardingComplete: true}, nil
	}

	if account == nil {
		accountID, err := s.provider.CreateConnectedAccount(ctx, addr)
		if err != nil {
			return nil, Wrap(CodeDownstreamUnavailable, "could not create payout account", err)
		}
		account = &models.ConnectedAccount{
			UserAddress:       addr,
			ProviderAccountID: accountID,
		}
		if err := s.accounts.Create(account); err != nil {
			return nil, Wrap(CodeDownstreamUnavailable, "could not save payout account", err)
		}
		logger.WithFields(map[string]interface{}{
			"user_address": addr,
			"account_id":   accountID,
		}).Info("created payout account")
	}

	url, err := s.provider.CreateAccountLink(ctx, account.ProviderAccountID, returnURL, refreshURL)
	if err != nil {
		return nil, Wrap(CodeDownstreamUnavailable, "could not create onboarding link", err)
	}
	return &OnboardResult{AccountID: account.ProviderAccountID, OnboardingURL: url}, nil
}

// Status reports payout readiness. A fully-onboarded account is answered
// from the store; otherwise the provider is asked and the store refreshed.
func (s *ConnectService) Status(ctx context.Context, userAddress string) (*AccountStatusResult, error) {
	addr := NormalizeAddress(userAddress)
	if addr == "" {
		return nil, E(CodeInvalidInput, "invalid user address")
	}

	account, err := s.accounts.GetByUserAddress(addr)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &AccountStatusResult{}, nil
		}
		return nil, Wrap(CodeDownstreamUnavailable, "account lookup failed", err)
	}

	if account.OnboardingComplete && account.PayoutsEnabled {
		return &AccountStatusResult{
			HasAccount:         true,
			AccountID:          account.ProviderAccountID,
			OnboardingComplete: true,
			PayoutsEnabled:     true,
		}, nil
	}

	status, err := s.provider.GetAccountStatus(ctx, account.ProviderAccountID)
	if err != nil {
		return nil, Wrap(CodeDownstreamUnavailable, "account status unavailable", err)
	}
	if err := s.accounts.UpdateStatus(addr, status.DetailsSubmitted, status.ChargesEnabled, status.PayoutsEnabled); err != nil {
		return nil, Wrap(CodeDownstreamUnavailable, "could not refresh account status", err)
	}
	return &AccountStatusResult{
		HasAccount:         true,
		AccountID:          account.ProviderAccountID,
		OnboardingComplete: status.DetailsSubmitted,
		PayoutsEnabled:     status.PayoutsEnabled,
	}, nil
}
