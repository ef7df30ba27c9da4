package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	apperrors "github.com/tillpoint/ticketpay/pkg/errors"
	"github.com/tillpoint/ticketpay/pkg/httpclient"
)

// HTTPProvider fetches rates from a remote exchange-rate service through a
// circuit-breaker protected client.
type HTTPProvider struct {
	client  *httpclient.CircuitBreakerClient
	baseURL string
	logger  *slog.Logger
}

// NewHTTPProvider creates a provider backed by the given rate service URL.
func NewHTTPProvider(client *httpclient.CircuitBreakerClient, baseURL string, logger *slog.Logger) *HTTPProvider {
	return &HTTPProvider{
		client:  client,
		baseURL: baseURL,
		logger:  logger,
	}
}

type rateResponse struct {
	Base   string          `json:"base"`
	Target string          `json:"target"`
	Rate   decimal.Decimal `json:"rate"`
}

// Rate fetches the base-to-target exchange rate. A non-positive rate from the
// remote is rejected rather than passed downstream.
func (p *HTTPProvider) Rate(ctx context.Context, base, target string) (decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/rates?base=%s&target=%s",
		p.baseURL, url.QueryEscape(base), url.QueryEscape(target))

	resp, err := p.client.Get(ctx, endpoint)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetch rate %s/%s: %w", base, target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return decimal.Zero, apperrors.NotFound("exchange rate", base+"/"+target)
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("rate service returned status %d", resp.StatusCode)
	}

	var body rateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("decode rate response: %w", err)
	}

	if !body.Rate.IsPositive() {
		return decimal.Zero, apperrors.InvalidInput(fmt.Sprintf("rate service returned non-positive rate %s for %s/%s", body.Rate, base, target))
	}

	p.logger.DebugContext(ctx, "fetched exchange rate",
		slog.String("base", base),
		slog.String("target", target),
		slog.String("rate", body.Rate.String()),
	)

	return body.Rate, nil
}
