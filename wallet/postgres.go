package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"log/slog"

	"github.com/kmwangi/ethpesa/core/logger"
)

// PostgresStore implements Store on top of sqlx/Postgres.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

var _ Store = (*PostgresStore)(nil)

const creditAccountQuery = `
INSERT INTO accounts (telegram_id, phone, balance)
VALUES ($1, $2, $3)
ON CONFLICT (telegram_id) DO UPDATE
SET phone      = EXCLUDED.phone,
    balance    = accounts.balance + EXCLUDED.balance,
    updated_at = now()
RETURNING telegram_id, phone, balance, created_at, updated_at`

const appendTransactionQuery = `
INSERT INTO account_transactions (telegram_id, kind, amount, reference)
VALUES ($1, $2, $3, $4)`

// FindByTelegramID returns the account for a chat identity or ErrNotFound.
func (s *PostgresStore) FindByTelegramID(ctx context.Context, telegramID int64) (*Account, error) {
	var acc Account
	err := s.db.GetContext(ctx, &acc,
		`SELECT telegram_id, phone, balance, created_at, updated_at FROM accounts WHERE telegram_id = $1`,
		telegramID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	return &acc, nil
}

// Transactions returns the newest ledger entries for an identity.
func (s *PostgresStore) Transactions(ctx context.Context, telegramID int64, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 10
	}
	var txs []Transaction
	err := s.db.SelectContext(ctx, &txs,
		`SELECT id, telegram_id, kind, amount, reference, occurred_at
		 FROM account_transactions
		 WHERE telegram_id = $1
		 ORDER BY occurred_at DESC, id DESC
		 LIMIT $2`,
		telegramID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// CreditDeposit upserts the account, increments the balance, and appends the
// ledger entry in one database transaction. The increment is expressed in SQL
// so concurrent settlements for the same identity never lose an update.
func (s *PostgresStore) CreditDeposit(ctx context.Context, dep Deposit) (*Account, error) {
	start := time.Now()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin credit tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var acc Account
	if err := tx.GetContext(ctx, &acc, creditAccountQuery, dep.TelegramID, dep.Phone, dep.Amount); err != nil {
		return nil, fmt.Errorf("upsert account: %w", err)
	}
	if _, err := tx.ExecContext(ctx, appendTransactionQuery, dep.TelegramID, KindDeposit, dep.Amount, dep.Reference); err != nil {
		return nil, fmt.Errorf("append transaction: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit credit tx: %w", err)
	}

	logger.SVCAccounts.Info("deposit credited",
		slog.String("event", "account.credit"),
		slog.Int64("user_id", dep.TelegramID),
		slog.String("amount_eth", dep.Amount.String()),
		slog.String("reference", dep.Reference),
		slog.Duration("duration", logger.Took(start)),
	)
	return &acc, nil
}
