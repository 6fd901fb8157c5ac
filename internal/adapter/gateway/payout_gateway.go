package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"klover-backend/internal/core/domain"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ProviderConfig holds the endpoint and credentials of one payout provider.
type ProviderConfig struct {
	BaseURL string
	APIKey  string
}

// PayoutClient implements ports.PayoutGateway against HTTP payout providers.
// Each currency maps to its own provider endpoint: BRL goes out as PIX,
// TON as an on-chain transfer.
type PayoutClient struct {
	providers  map[domain.Currency]ProviderConfig
	httpClient HTTPClient
	log        zerolog.Logger
}

// NewPayoutClient creates a payout gateway over the given providers.
func NewPayoutClient(providers map[domain.Currency]ProviderConfig, httpClient HTTPClient, log zerolog.Logger) *PayoutClient {
	return &PayoutClient{
		providers:  providers,
		httpClient: httpClient,
		log:        log,
	}
}

// payoutRequest is the JSON body sent to the provider. IdempotencyKey is the
// withdrawal id; the provider must treat a repeated key as the same payout.
type payoutRequest struct {
	IdempotencyKey string `json:"idempotency_key"`
	Destination    string `json:"destination"`
	Amount         string `json:"amount"`
	Currency       string `json:"currency"`
}

// payoutResponse is the provider's answer.
type payoutResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	Message       string `json:"message"`
}

// Pay sends the payout and blocks until the provider answers or ctx expires.
func (c *PayoutClient) Pay(ctx context.Context, idempotencyKey, destination string, amount decimal.Decimal, currency domain.Currency) (string, error) {
	provider, ok := c.providers[currency]
	if !ok {
		return "", fmt.Errorf("no payout provider configured for %s", currency)
	}

	body, err := json.Marshal(payoutRequest{
		IdempotencyKey: idempotencyKey,
		Destination:    destination,
		Amount:         amount.String(),
		Currency:       string(currency),
	})
	if err != nil {
		return "", fmt.Errorf("marshal payout request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, provider.BaseURL+"/payouts", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build payout request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+provider.APIKey)
	req.Header.Set("Idempotency-Key", idempotencyKey)

	c.log.Info().
		Str("idempotency_key", idempotencyKey).
		Str("currency", string(currency)).
		Str("amount", amount.String()).
		Msg("payout: sending to provider")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("payout provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read payout response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Warn().
			Int("status", resp.StatusCode).
			Str("body", string(respBody)).
			Msg("payout: provider rejected request")
		return "", fmt.Errorf("payout provider returned status %d", resp.StatusCode)
	}

	var parsed payoutResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decode payout response: %w", err)
	}
	if parsed.TransactionID == "" {
		return "", fmt.Errorf("payout provider returned no transaction id")
	}

	c.log.Info().
		Str("provider_tx_id", parsed.TransactionID).
		Str("status", parsed.Status).
		Msg("payout: provider accepted")

	return parsed.TransactionID, nil
}
