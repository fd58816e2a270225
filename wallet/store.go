package wallet

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by lookups for identities without an account.
var ErrNotFound = errors.New("wallet: account not found")

// Deposit describes one settled collection to credit.
type Deposit struct {
	TelegramID int64
	Phone      string
	// Amount is the crypto amount credited, already converted from fiat.
	Amount    decimal.Decimal
	Reference string
}

// Store is the keyed account store. CreditDeposit must apply the upsert,
// the ledger append, and the balance increment as a single atomic operation;
// concurrent settlements for the same identity must both land.
type Store interface {
	FindByTelegramID(ctx context.Context, telegramID int64) (*Account, error)
	Transactions(ctx context.Context, telegramID int64, limit int) ([]Transaction, error)
	CreditDeposit(ctx context.Context, dep Deposit) (*Account, error)
}
