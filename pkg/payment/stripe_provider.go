package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"acmeramp/pkg/logger"
)

// StripeProvider talks to the Stripe REST API. Requests are form-encoded and
// authenticated with the secret key as a bearer token.
type StripeProvider struct {
	BaseURL   string
	SecretKey string
	client    *http.Client
}

func NewStripeProvider(baseURL, secretKey string) *StripeProvider {
	if baseURL == "" {
		baseURL = "https://api.stripe.com"
	}
	return &StripeProvider{
		BaseURL:   baseURL,
		SecretKey: secretKey,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

type stripeError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (p *StripeProvider) do(ctx context.Context, method, path string, form url.Values, out interface{}) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, p.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+p.SecretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		var se stripeError
		if json.Unmarshal(respBody, &se) == nil && se.Error.Message != "" {
			return fmt.Errorf("stripe %s %s: %s", method, path, se.Error.Message)
		}
		return fmt.Errorf("stripe %s %s: status %d", method, path, resp.StatusCode)
	}
	return json.Unmarshal(respBody, out)
}

type stripeIntent struct {
	ID           string            `json:"id"`
	ClientSecret string            `json:"client_secret"`
	Status       string            `json:"status"`
	Amount       int64             `json:"amount"`
	Metadata     map[string]string `json:"metadata"`
}

func (p *StripeProvider) CreatePaymentIntent(ctx context.Context, r IntentRequest) (*Intent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(r.AmountUsdCents, 10))
	form.Set("currency", "usd")
	form.Set("automatic_payment_methods[enabled]", "true")
	form.Set("metadata[userAddress]", r.UserAddress)
	form.Set("metadata[transactionId]", r.TransactionID)

	var out stripeIntent
	if err := p.do(ctx, http.MethodPost, "/v1/payment_intents", form, &out); err != nil {
		return nil, err
	}
	if out.ClientSecret == "" {
		return nil, fmt.Errorf("stripe: payment intent %s has no client secret", out.ID)
	}
	logger.WithFields(map[string]interface{}{
		"intent_id":      out.ID,
		"amount_cents":   r.AmountUsdCents,
		"transaction_id": r.TransactionID,
	}).Info("created payment intent")
	return &Intent{ID: out.ID, ClientSecret: out.ClientSecret}, nil
}

func (p *StripeProvider) VerifyPaymentIntent(ctx context.Context, intentID string) (*Verification, error) {
	var out stripeIntent
	if err := p.do(ctx, http.MethodGet, "/v1/payment_intents/"+intentID, nil, &out); err != nil {
		return nil, err
	}
	return &Verification{
		Verified:       out.Status == "succeeded",
		AmountUsdCents: out.Amount,
		Metadata:       out.Metadata,
	}, nil
}

type stripeAccount struct {
	ID               string `json:"id"`
	ChargesEnabled   bool   `json:"charges_enabled"`
	PayoutsEnabled   bool   `json:"payouts_enabled"`
	DetailsSubmitted bool   `json:"details_submitted"`
}

func (p *StripeProvider) CreateConnectedAccount(ctx context.Context, userAddress string) (string, error) {
	form := url.Values{}
	form.Set("type", "express")
	form.Set("capabilities[transfers][requested]", "true")
	form.Set("metadata[userAddress]", userAddress)

	var out stripeAccount
	if err := p.do(ctx, http.MethodPost, "/v1/accounts", form, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (p *StripeProvider) CreateAccountLink(ctx context.Context, accountID, returnURL, refreshURL string) (string, error) {
	form := url.Values{}
	form.Set("account", accountID)
	form.Set("return_url", returnURL)
	form.Set("refresh_url", refreshURL)
	form.Set("type", "account_onboarding")

	var out struct {
		URL string `json:"url"`
	}
	if err := p.do(ctx, http.MethodPost, "/v1/account_links", form, &out); err != nil {
		return "", err
	}
	return out.URL, nil
}

func (p *StripeProvider) GetAccountStatus(ctx context.Context, accountID string) (*AccountStatus, error) {
	var out stripeAccount
	if err := p.do(ctx, http.MethodGet, "/v1/accounts/"+accountID, nil, &out); err != nil {
		return nil, err
	}
	return &AccountStatus{
		ChargesEnabled:   out.ChargesEnabled,
		PayoutsEnabled:   out.PayoutsEnabled,
		DetailsSubmitted: out.DetailsSubmitted,
	}, nil
}

func (p *StripeProvider) CreateTransfer(ctx context.Context, amountUsdCents int64, destinationAccountID string, metadata map[string]string) (string, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amountUsdCents, 10))
	form.Set("currency", "usd")
	form.Set("destination", destinationAccountID)
	for k, v := range metadata {
		form.Set("metadata["+k+"]", v)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := p.do(ctx, http.MethodPost, "/v1/transfers", form, &out); err != nil {
		return "", err
	}
	logger.WithFields(map[string]interface{}{
		"transfer_id":  out.ID,
		"amount_cents": amountUsdCents,
		"destination":  destinationAccountID,
	}).Info("created payout transfer")
	return out.ID, nil
}
