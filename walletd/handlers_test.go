package walletd

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmwangi/ethpesa/core/logger"
)

func TestMain(m *testing.M) {
	_ = logger.InitLogger(nil)
	os.Exit(m.Run())
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewServer(Options{}).Router())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp.StatusCode, decoded
}

func TestDepositGeneratesPaymentCode(t *testing.T) {
	srv := newTestServer(t)

	code, body := postJSON(t, srv.URL+"/api/deposit", map[string]string{
		"phoneNumber":   "0712345678",
		"amount":        "450",
		"walletAddress": "0xabc",
	})
	require.Equal(t, http.StatusOK, code)

	assert.Equal(t, true, body["success"])
	assert.Equal(t, "0.001000", body["ethAmount"])
	assert.Equal(t, "450", body["kesAmount"])

	paymentCode, _ := body["paymentCode"].(string)
	assert.Len(t, paymentCode, 8)
	assert.Equal(t, strings.ToUpper(paymentCode), paymentCode)
}

func TestDepositRejectsMissingFields(t *testing.T) {
	srv := newTestServer(t)

	code, body := postJSON(t, srv.URL+"/api/deposit", map[string]string{
		"phoneNumber": "0712345678",
		"amount":      "450",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Missing required fields", body["error"])
}

func TestDepositRejectsBadAmount(t *testing.T) {
	srv := newTestServer(t)

	for _, amount := range []string{"abc", "0", "-5"} {
		code, body := postJSON(t, srv.URL+"/api/deposit", map[string]string{
			"phoneNumber":   "0712345678",
			"amount":        amount,
			"walletAddress": "0xabc",
		})
		assert.Equal(t, http.StatusBadRequest, code, "amount %q", amount)
		assert.Equal(t, "Invalid amount", body["error"], "amount %q", amount)
	}
}

func TestWithdrawConvertsToKES(t *testing.T) {
	srv := newTestServer(t)

	code, body := postJSON(t, srv.URL+"/api/withdraw", map[string]string{
		"phoneNumber":   "0712345678",
		"amount":        "0.002",
		"walletAddress": "0xabc",
	})
	require.Equal(t, http.StatusOK, code)

	assert.Equal(t, true, body["success"])
	assert.Equal(t, "900", body["kesAmount"])

	withdrawalID, _ := body["withdrawalId"].(string)
	assert.Len(t, withdrawalID, 9)
}

func TestAirtimePurchase(t *testing.T) {
	srv := newTestServer(t)

	code, body := postJSON(t, srv.URL+"/api/airtime", map[string]string{
		"network":       "Safaricom",
		"phoneNumber":   "0712345678",
		"amount":        "100",
		"walletAddress": "0xabc",
	})
	require.Equal(t, http.StatusOK, code)

	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Safaricom", body["network"])
	assert.Contains(t, body["message"], "Airtime of KES 100")
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsCountRequests(t *testing.T) {
	srv := newTestServer(t)

	_, _ = postJSON(t, srv.URL+"/api/deposit", map[string]string{
		"phoneNumber":   "0712345678",
		"amount":        "450",
		"walletAddress": "0xabc",
	})

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(raw), `walletd_requests_total{code="200",route="deposit"} 1`)
}
