package deposit

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmwangi/ethpesa/core/logger"
	"github.com/kmwangi/ethpesa/payments/lipia"
	"github.com/kmwangi/ethpesa/wallet"
)

func TestMain(m *testing.M) {
	_ = logger.InitLogger(nil)
	os.Exit(m.Run())
}

type stubPayments struct {
	mu        sync.Mutex
	calls     int
	reference string
	err       error
}

func (s *stubPayments) RequestSTK(_ context.Context, _ string, _ decimal.Decimal) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	return s.reference, nil
}

type stubRates struct {
	mu    sync.Mutex
	calls int
	rate  decimal.Decimal
	err   error
}

func (s *stubRates) SimplePrice(_ context.Context, _, _ string) (decimal.Decimal, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.err != nil {
		return decimal.Zero, s.err
	}
	return s.rate, nil
}

type failingStore struct {
	wallet.Store
	err error
}

func (f *failingStore) CreditDeposit(_ context.Context, _ wallet.Deposit) (*wallet.Account, error) {
	return nil, f.err
}

func TestSettleHappyPath(t *testing.T) {
	payments := &stubPayments{reference: "REF-77"}
	rates := &stubRates{rate: decimal.NewFromInt(200000)}
	store := wallet.NewMemoryStore()

	svc := NewService(payments, rates, store, "ethereum", "kes")
	receipt, err := svc.Settle(context.Background(), 42, "0712345678", decimal.NewFromInt(100))
	require.NoError(t, err)

	assert.Equal(t, "REF-77", receipt.Reference)
	assert.Equal(t, "0712345678", receipt.Phone)
	assert.True(t, receipt.AmountETH.Equal(decimal.RequireFromString("0.0005")), "eth = %s", receipt.AmountETH)
	assert.True(t, receipt.Rate.Equal(decimal.NewFromInt(200000)))

	acc, err := store.FindByTelegramID(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, acc.Balance.Equal(receipt.AmountETH))
}

func TestSettleProviderFailureChargesNothing(t *testing.T) {
	payments := &stubPayments{err: &lipia.StatusError{StatusCode: 400, Message: "Insufficient funds"}}
	rates := &stubRates{rate: decimal.NewFromInt(200000)}
	store := wallet.NewMemoryStore()

	svc := NewService(payments, rates, store, "ethereum", "kes")
	_, err := svc.Settle(context.Background(), 42, "0712345678", decimal.NewFromInt(100))

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, "Insufficient funds", provErr.Message)

	// Pricing must never run when the collection was rejected.
	assert.Equal(t, 0, rates.calls)
	_, err = store.FindByTelegramID(context.Background(), 42)
	assert.ErrorIs(t, err, wallet.ErrNotFound)
}

func TestSettlePricingFailureAfterCharge(t *testing.T) {
	payments := &stubPayments{reference: "REF-88"}
	rates := &stubRates{err: errors.New("upstream down")}
	store := wallet.NewMemoryStore()

	svc := NewService(payments, rates, store, "ethereum", "kes")
	_, err := svc.Settle(context.Background(), 42, "0712345678", decimal.NewFromInt(100))

	var priceErr *PricingError
	require.ErrorAs(t, err, &priceErr)
	assert.Equal(t, "REF-88", priceErr.Reference)
	assert.Equal(t, 1, payments.calls)

	_, err = store.FindByTelegramID(context.Background(), 42)
	assert.ErrorIs(t, err, wallet.ErrNotFound)
}

func TestSettlePersistenceFailureAfterCharge(t *testing.T) {
	payments := &stubPayments{reference: "REF-99"}
	rates := &stubRates{rate: decimal.NewFromInt(200000)}
	store := &failingStore{err: errors.New("db gone")}

	svc := NewService(payments, rates, store, "ethereum", "kes")
	_, err := svc.Settle(context.Background(), 42, "0712345678", decimal.NewFromInt(100))

	var persErr *PersistenceError
	require.ErrorAs(t, err, &persErr)
	assert.Equal(t, "REF-99", persErr.Reference)
	assert.ErrorContains(t, err, "db gone")
}

func TestSettleConcurrentSameAccount(t *testing.T) {
	payments := &stubPayments{reference: "REF-CONC"}
	rates := &stubRates{rate: decimal.NewFromInt(200000)}
	store := wallet.NewMemoryStore()
	svc := NewService(payments, rates, store, "ethereum", "kes")

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Settle(context.Background(), 42, "0712345678", decimal.NewFromInt(100))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	acc, err := store.FindByTelegramID(context.Background(), 42)
	require.NoError(t, err)

	want := decimal.RequireFromString("0.0005").Mul(decimal.NewFromInt(workers))
	assert.True(t, acc.Balance.Equal(want), "balance = %s, want %s", acc.Balance, want)

	txs, err := store.Transactions(context.Background(), 42, workers)
	require.NoError(t, err)
	assert.Len(t, txs, workers)
}
