// Package coingecko fetches spot prices from the CoinGecko simple/price API.
package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"log/slog"

	"github.com/kmwangi/ethpesa/core/logger"
)

// DefaultBaseURL is the public CoinGecko API root.
const DefaultBaseURL = "https://api.coingecko.com/api/v3"

const defaultTimeout = 15 * time.Second

// ErrRateUnavailable is returned when the response has no usable rate for the
// requested asset/fiat pair, including a zero rate.
var ErrRateUnavailable = errors.New("coingecko: rate unavailable")

// Client queries the simple/price endpoint.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// New builds a client. Empty baseURL selects the public API; nil httpc falls
// back to a client with a default timeout.
func New(baseURL string, httpc *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpc == nil {
		httpc = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpc: httpc}
}

// SimplePrice returns how many fiat units one asset unit costs, e.g.
// SimplePrice(ctx, "ethereum", "kes") -> KES per ETH.
func (c *Client) SimplePrice(ctx context.Context, asset, fiat string) (decimal.Decimal, error) {
	q := url.Values{}
	q.Set("ids", asset)
	q.Set("vs_currencies", fiat)
	endpoint := c.baseURL + "/simple/price?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("coingecko: build request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("coingecko: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("coingecko: unexpected status %d: %w", resp.StatusCode, ErrRateUnavailable)
	}

	var prices map[string]map[string]decimal.Decimal
	if err := json.NewDecoder(resp.Body).Decode(&prices); err != nil {
		return decimal.Zero, fmt.Errorf("coingecko: decode response: %w", err)
	}

	rate, ok := prices[asset][fiat]
	if !ok || rate.IsZero() {
		return decimal.Zero, ErrRateUnavailable
	}

	logger.RATES.Debug("rate fetched",
		slog.String("event", "rates.fetch"),
		slog.String("status", "ok"),
		slog.String("rate", rate.String()),
		slog.Duration("duration", logger.Took(start)),
	)
	return rate, nil
}
