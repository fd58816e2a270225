package walletd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"log/slog"

	"github.com/kmwangi/ethpesa/core/logger"
)

// Fixed KES per ETH rate used by the mock endpoints, matching the prototype.
var mockRate = decimal.NewFromInt(450000)

type depositRequest struct {
	PhoneNumber   string `json:"phoneNumber"`
	Amount        string `json:"amount"`
	WalletAddress string `json:"walletAddress"`
}

type airtimeRequest struct {
	Network       string `json:"network"`
	PhoneNumber   string `json:"phoneNumber"`
	Amount        string `json:"amount"`
	WalletAddress string `json:"walletAddress"`
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Component("walletd").Warn("response encode failed",
			slog.String("event", "walletd.encode"),
			slog.String("err", err.Error()),
		)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// mockID returns a short opaque identifier like the prototype's random ids.
func mockID(n int) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	if n > len(id) {
		n = len(id)
	}
	return id[:n]
}

func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, err
	}
	if amount.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("amount must be positive")
	}
	return amount, nil
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.PhoneNumber == "" || req.Amount == "" || req.WalletAddress == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount")
		return
	}

	paymentCode := strings.ToUpper(mockID(8))
	ethAmount := amount.Div(mockRate)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"paymentCode": paymentCode,
		"ethAmount":   ethAmount.StringFixed(6),
		"kesAmount":   req.Amount,
		"message":     "Payment code generated successfully",
	})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.PhoneNumber == "" || req.Amount == "" || req.WalletAddress == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount")
		return
	}

	time.Sleep(s.opts.WithdrawDelay)

	withdrawalID := mockID(9)
	kesAmount := amount.Mul(mockRate)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"withdrawalId": withdrawalID,
		"kesAmount":    kesAmount.String(),
		"message":      fmt.Sprintf("Withdrawal of KES %s initiated to %s", kesAmount.String(), req.PhoneNumber),
	})
}

func (s *Server) handleAirtime(w http.ResponseWriter, r *http.Request) {
	var req airtimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Network == "" || req.PhoneNumber == "" || req.Amount == "" || req.WalletAddress == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}
	if _, err := parseAmount(req.Amount); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount")
		return
	}

	time.Sleep(s.opts.AirtimeDelay)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"transactionId": mockID(9),
		"network":       req.Network,
		"amount":        req.Amount,
		"phoneNumber":   req.PhoneNumber,
		"message":       fmt.Sprintf("Airtime of KES %s sent to %s on %s", req.Amount, req.PhoneNumber, req.Network),
	})
}
