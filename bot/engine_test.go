package bot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmwangi/ethpesa/core/logger"
	"github.com/kmwangi/ethpesa/core/telegram/state"
	"github.com/kmwangi/ethpesa/deposit"
	"github.com/kmwangi/ethpesa/payments/lipia"
	"github.com/kmwangi/ethpesa/rates/coingecko"
	"github.com/kmwangi/ethpesa/wallet"
)

func TestMain(m *testing.M) {
	_ = logger.InitLogger(nil)
	os.Exit(m.Run())
}

// fixture wires a real settlement service against httptest providers and an
// in-memory store, with counters on both providers.
type fixture struct {
	engine       *Engine
	sessions     state.Manager
	store        *wallet.MemoryStore
	paymentCalls *atomic.Int64
	rateCalls    *atomic.Int64
	replies      []string
}

type providerBehaviour struct {
	paymentStatus int
	paymentBody   string
	rateStatus    int
	rateBody      string
}

func newFixture(t *testing.T, b providerBehaviour) *fixture {
	t.Helper()

	f := &fixture{
		sessions:     state.NewMemoryManager(),
		store:        wallet.NewMemoryStore(),
		paymentCalls: &atomic.Int64{},
		rateCalls:    &atomic.Int64{},
	}

	paymentSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.paymentCalls.Add(1)
		w.WriteHeader(b.paymentStatus)
		_, _ = w.Write([]byte(b.paymentBody))
	}))
	t.Cleanup(paymentSrv.Close)

	rateSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.rateCalls.Add(1)
		w.WriteHeader(b.rateStatus)
		_, _ = w.Write([]byte(b.rateBody))
	}))
	t.Cleanup(rateSrv.Close)

	payments := lipia.New(paymentSrv.URL, "test-key", paymentSrv.Client())
	rates := coingecko.New(rateSrv.URL, rateSrv.Client())
	svc := deposit.NewService(payments, rates, f.store, "ethereum", "kes")

	f.engine = NewEngine(f.sessions, svc, f.store)
	return f
}

func (f *fixture) send(t *testing.T, userID int64, text string) {
	t.Helper()
	err := f.engine.HandleText(context.Background(), userID, text, func(msg string, _ ...interface{}) error {
		f.replies = append(f.replies, msg)
		return nil
	})
	require.NoError(t, err)
}

func (f *fixture) lastReply(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, f.replies)
	return f.replies[len(f.replies)-1]
}

func happyProviders() providerBehaviour {
	return providerBehaviour{
		paymentStatus: http.StatusOK,
		paymentBody:   `{"data":{"refference":"REF123"}}`,
		rateStatus:    http.StatusOK,
		rateBody:      `{"ethereum":{"kes":200000}}`,
	}
}

func TestDepositFlowSettles(t *testing.T) {
	f := newFixture(t, happyProviders())
	const userID = int64(42)

	f.send(t, userID, "3")
	assert.Equal(t, msgDepositPhonePrompt, f.lastReply(t))
	assert.Equal(t, StateDepositPhone, f.sessions.GetState(userID))

	f.send(t, userID, "0712345678")
	assert.Equal(t, msgDepositAmountPrompt, f.lastReply(t))
	assert.Equal(t, StateDepositAmount, f.sessions.GetState(userID))

	f.send(t, userID, "100")
	assert.Contains(t, f.lastReply(t), "KES 100")
	assert.Contains(t, f.lastReply(t), "0712345678")
	assert.Contains(t, f.lastReply(t), "REF123")

	acc, err := f.store.FindByTelegramID(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "0712345678", acc.Phone)
	assert.True(t, acc.Balance.Equal(decimal.RequireFromString("0.0005")),
		"balance = %s, want 0.0005", acc.Balance)

	txs, err := f.store.Transactions(context.Background(), userID, 10)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, wallet.KindDeposit, txs[0].Kind)
	assert.Equal(t, "REF123", txs[0].Reference)
	assert.True(t, txs[0].Amount.Equal(decimal.RequireFromString("0.0005")))

	assert.Equal(t, state.StateIdle, f.sessions.GetState(userID))
	assert.False(t, f.sessions.InProgress(userID))
	assert.EqualValues(t, 1, f.paymentCalls.Load())
	assert.EqualValues(t, 1, f.rateCalls.Load())
}

func TestDepositFlowRateUnavailable(t *testing.T) {
	b := happyProviders()
	b.rateStatus = http.StatusInternalServerError
	b.rateBody = `{}`
	f := newFixture(t, b)
	const userID = int64(7)

	f.send(t, userID, "3")
	f.send(t, userID, "0712345678")
	f.send(t, userID, "100")

	assert.Equal(t, msgRateUnavailable, f.lastReply(t))

	// The mobile-money charge was initiated before pricing failed.
	assert.EqualValues(t, 1, f.paymentCalls.Load())

	_, err := f.store.FindByTelegramID(context.Background(), userID)
	assert.ErrorIs(t, err, wallet.ErrNotFound)
	assert.Equal(t, state.StateIdle, f.sessions.GetState(userID))
}

func TestDepositFlowProviderRejects(t *testing.T) {
	b := happyProviders()
	b.paymentStatus = http.StatusBadRequest
	b.paymentBody = `{"message":"Insufficient funds"}`
	f := newFixture(t, b)
	const userID = int64(7)

	f.send(t, userID, "3")
	f.send(t, userID, "0712345678")
	f.send(t, userID, "100")

	assert.Contains(t, f.lastReply(t), "Insufficient funds")

	// The rate provider is never consulted when initiation fails.
	assert.EqualValues(t, 0, f.rateCalls.Load())

	_, err := f.store.FindByTelegramID(context.Background(), userID)
	assert.ErrorIs(t, err, wallet.ErrNotFound)
	assert.Equal(t, state.StateIdle, f.sessions.GetState(userID))
}

func TestInvalidPhoneKeepsState(t *testing.T) {
	f := newFixture(t, happyProviders())
	const userID = int64(9)

	f.send(t, userID, "3")
	for i := 0; i < 3; i++ {
		f.send(t, userID, "254712345678")
		assert.Equal(t, msgInvalidPhone, f.lastReply(t))
		assert.Equal(t, StateDepositPhone, f.sessions.GetState(userID))
	}
	_, ok := f.sessions.GetTemp(userID, tempPhoneKey)
	assert.False(t, ok, "rejected input must not store partial state")
	assert.EqualValues(t, 0, f.paymentCalls.Load())
}

func TestInvalidAmountKeepsState(t *testing.T) {
	f := newFixture(t, happyProviders())
	const userID = int64(9)

	f.send(t, userID, "3")
	f.send(t, userID, "0712345678")
	for _, input := range []string{"abc", "0", "-5"} {
		f.send(t, userID, input)
		assert.Equal(t, msgInvalidAmount, f.lastReply(t))
		assert.Equal(t, StateDepositAmount, f.sessions.GetState(userID))
	}

	assert.EqualValues(t, 0, f.paymentCalls.Load())
	_, err := f.store.FindByTelegramID(context.Background(), userID)
	assert.ErrorIs(t, err, wallet.ErrNotFound)
}

func TestMenuStaticOptions(t *testing.T) {
	f := newFixture(t, happyProviders())
	const userID = int64(1)

	for input, want := range map[string]string{
		"1": msgSendInfo,
		"2": msgWithdrawInfo,
		"4": msgAirtimeInfo,
		"5": msgSavingsInfo,
	} {
		f.send(t, userID, input)
		assert.Equal(t, want, f.lastReply(t))
		assert.Equal(t, state.StateIdle, f.sessions.GetState(userID))
	}
}

func TestMenuInvalidOption(t *testing.T) {
	f := newFixture(t, happyProviders())
	const userID = int64(1)

	f.send(t, userID, "hello")
	require.GreaterOrEqual(t, len(f.replies), 2)
	assert.Equal(t, msgInvalidOption, f.replies[len(f.replies)-2])
	assert.Equal(t, MenuText, f.lastReply(t))
	assert.Equal(t, state.StateIdle, f.sessions.GetState(userID))
}

func TestAccountViewWithoutAccount(t *testing.T) {
	f := newFixture(t, happyProviders())
	f.send(t, 5, "6")
	assert.Equal(t, msgNoAccount, f.lastReply(t))
}

func TestAccountViewAfterDeposit(t *testing.T) {
	f := newFixture(t, happyProviders())
	const userID = int64(5)

	f.send(t, userID, "3")
	f.send(t, userID, "0712345678")
	f.send(t, userID, "100")

	f.send(t, userID, "6")
	reply := f.lastReply(t)
	assert.Contains(t, reply, "0712345678")
	assert.Contains(t, reply, "0.0005")
	assert.Contains(t, reply, "REF123")
}

func TestDepositFlowSendsWirePayload(t *testing.T) {
	var gotAuth string
	var gotBody map[string]interface{}

	paymentSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"data":{"refference":"REF9"}}`))
	}))
	defer paymentSrv.Close()
	rateSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ethereum":{"kes":200000}}`))
	}))
	defer rateSrv.Close()

	store := wallet.NewMemoryStore()
	svc := deposit.NewService(
		lipia.New(paymentSrv.URL, "secret-key", paymentSrv.Client()),
		coingecko.New(rateSrv.URL, rateSrv.Client()),
		store, "ethereum", "kes",
	)
	engine := NewEngine(state.NewMemoryManager(), svc, store)

	send := func(text string) {
		err := engine.HandleText(context.Background(), 3, text, func(string, ...interface{}) error { return nil })
		require.NoError(t, err)
	}
	send("3")
	send("0712345678")
	send("250")

	assert.Equal(t, "Bearer secret-key", gotAuth)
	assert.Equal(t, "0712345678", gotBody["phone"])
	assert.EqualValues(t, 250, gotBody["amount"])
}
