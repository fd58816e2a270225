package wallet

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreCreditCreatesAccount(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.FindByTelegramID(ctx, 1)
	require.ErrorIs(t, err, ErrNotFound)

	acc, err := s.CreditDeposit(ctx, Deposit{
		TelegramID: 1,
		Phone:      "0712345678",
		Amount:     decimal.RequireFromString("0.0005"),
		Reference:  "REF1",
	})
	require.NoError(t, err)
	assert.Equal(t, "0712345678", acc.Phone)
	assert.True(t, acc.Balance.Equal(decimal.RequireFromString("0.0005")))

	txs, err := s.Transactions(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, KindDeposit, txs[0].Kind)
	assert.Equal(t, "REF1", txs[0].Reference)
}

func TestMemoryStoreBalanceMatchesLedger(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	amounts := []string{"0.0005", "0.001", "0.25"}
	for i, a := range amounts {
		_, err := s.CreditDeposit(ctx, Deposit{
			TelegramID: 7,
			Phone:      "0712345678",
			Amount:     decimal.RequireFromString(a),
			Reference:  "REF",
		})
		require.NoError(t, err, "deposit %d", i)
	}

	acc, err := s.FindByTelegramID(ctx, 7)
	require.NoError(t, err)

	txs, err := s.Transactions(ctx, 7, 0)
	require.NoError(t, err)
	require.Len(t, txs, len(amounts))

	sum := decimal.Zero
	for _, tx := range txs {
		sum = sum.Add(tx.Amount)
	}
	assert.True(t, acc.Balance.Equal(sum), "balance %s != ledger sum %s", acc.Balance, sum)
}

func TestMemoryStoreConcurrentCreditsAllLand(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	amount := decimal.RequireFromString("0.0005")

	const workers = 16
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := s.CreditDeposit(ctx, Deposit{
				TelegramID: 3,
				Phone:      "0712345678",
				Amount:     amount,
				Reference:  "REF",
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	acc, err := s.FindByTelegramID(ctx, 3)
	require.NoError(t, err)
	want := amount.Mul(decimal.NewFromInt(workers))
	assert.True(t, acc.Balance.Equal(want), "balance %s != %s; a concurrent credit was lost", acc.Balance, want)

	txs, err := s.Transactions(ctx, 3, 0)
	require.NoError(t, err)
	assert.Len(t, txs, workers)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.CreditDeposit(ctx, Deposit{TelegramID: 1, Phone: "0712345678", Amount: decimal.NewFromInt(1)})
	require.NoError(t, err)

	acc, err := s.FindByTelegramID(ctx, 1)
	require.NoError(t, err)
	acc.Phone = "mutated"
	acc.Balance = decimal.NewFromInt(999)

	fresh, err := s.FindByTelegramID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "0712345678", fresh.Phone)
	assert.True(t, fresh.Balance.Equal(decimal.NewFromInt(1)))
}
