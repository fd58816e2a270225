// Package lipia is a minimal client for the Lipia STK push API. One request
// initiates a mobile-money collection; the response carries an opaque
// reference used for reconciliation. The client performs no retries: a failed
// initiation is reported to the caller and the user resubmits the flow.
package lipia

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"log/slog"

	"github.com/kmwangi/ethpesa/core/logger"
)

const defaultTimeout = 30 * time.Second

// StatusError reports a non-2xx response from the provider. Message carries
// the provider-supplied error text when the body had one.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("lipia: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("lipia: status %d", e.StatusCode)
}

// Client issues STK push requests against a single endpoint.
type Client struct {
	url   string
	key   string
	httpc *http.Client
}

// New builds a client for the given endpoint and bearer credential.
// A nil httpc falls back to a client with a default timeout.
func New(url, key string, httpc *http.Client) *Client {
	if httpc == nil {
		httpc = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{url: strings.TrimRight(url, "/"), key: key, httpc: httpc}
}

type stkRequest struct {
	Phone  string  `json:"phone"`
	Amount float64 `json:"amount"`
}

// The provider spells the field "refference" on the wire.
type stkResponse struct {
	Message string `json:"message"`
	Data    struct {
		Reference string `json:"refference"`
	} `json:"data"`
}

// RequestSTK initiates a collection for the given phone and KES amount and
// returns the provider reference. Transport failures, non-2xx statuses, and
// malformed bodies are reported as distinct errors.
func (c *Client) RequestSTK(ctx context.Context, phone string, amount decimal.Decimal) (string, error) {
	body, err := json.Marshal(stkRequest{Phone: phone, Amount: amount.InexactFloat64()})
	if err != nil {
		return "", fmt.Errorf("lipia: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("lipia: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.key)

	start := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("lipia: request failed: %w", err)
	}
	defer resp.Body.Close()

	var decoded stkResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&decoded)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.PAY.Warn("stk push rejected",
			slog.String("event", "payment.stk"),
			slog.String("status", "fail"),
			slog.Int("http_code", resp.StatusCode),
			slog.Duration("duration", logger.Took(start)),
		)
		return "", &StatusError{StatusCode: resp.StatusCode, Message: decoded.Message}
	}
	if decodeErr != nil {
		return "", fmt.Errorf("lipia: decode response: %w", decodeErr)
	}
	if decoded.Data.Reference == "" {
		return "", fmt.Errorf("lipia: response missing payment reference")
	}

	logger.PAY.Info("stk push accepted",
		slog.String("event", "payment.stk"),
		slog.String("status", "ok"),
		slog.String("reference", decoded.Data.Reference),
		slog.Duration("duration", logger.Took(start)),
	)
	return decoded.Data.Reference, nil
}
