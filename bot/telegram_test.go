package bot

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmwangi/ethpesa/core/telegram/state"
	"github.com/kmwangi/ethpesa/wallet"
)

func TestAccountMarkupCarriesLimit(t *testing.T) {
	markup := AccountMarkup(5)
	require.Len(t, markup.InlineKeyboard, 1)
	require.Len(t, markup.InlineKeyboard[0], 1)

	btn := markup.InlineKeyboard[0][0]
	assert.Equal(t, CallbackAccountRefresh, btn.Unique)
	assert.Equal(t, "5", btn.Data)
}

func TestAccountInfoHonorsLimit(t *testing.T) {
	store := wallet.NewMemoryStore()
	for i := 0; i < 5; i++ {
		_, err := store.CreditDeposit(context.Background(), wallet.Deposit{
			TelegramID: 42,
			Phone:      "0712345678",
			Amount:     decimal.RequireFromString("0.0005"),
			Reference:  "REF",
		})
		require.NoError(t, err)
	}

	e := NewEngine(state.NewMemoryManager(), nil, store)

	info, err := e.AccountInfo(context.Background(), 42, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(info, "•"))

	// Non-positive limit falls back to the default view size.
	info, err = e.AccountInfo(context.Background(), 42, 0)
	require.NoError(t, err)
	assert.Equal(t, defaultRecentTx, strings.Count(info, "•"))
}
