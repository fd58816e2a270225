// Package wallet holds the account/transaction model and the keyed account
// store used by the deposit settlement flow.
package wallet

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind classifies a ledger entry.
type TransactionKind string

const (
	// KindDeposit marks a crypto credit settled from a mobile-money collection.
	KindDeposit TransactionKind = "deposit"
	// KindWithdrawal marks a crypto debit paid out to mobile money.
	KindWithdrawal TransactionKind = "withdrawal"
)

// Account is the flat per-chat-identity balance record. Phone holds the last
// validated mobile-money number and stays empty until the first settlement.
type Account struct {
	TelegramID int64           `db:"telegram_id"`
	Phone      string          `db:"phone"`
	Balance    decimal.Decimal `db:"balance"`
	CreatedAt  time.Time       `db:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at"`
}

// Transaction is an immutable ledger entry owned by its account.
type Transaction struct {
	ID         int64           `db:"id"`
	TelegramID int64           `db:"telegram_id"`
	Kind       TransactionKind `db:"kind"`
	Amount     decimal.Decimal `db:"amount"`
	Reference  string          `db:"reference"`
	OccurredAt time.Time       `db:"occurred_at"`
}
