// Package bot implements the conversational core of the wallet: the menu
// dispatch, the two-step deposit dialog, and the glue that exposes them as
// Telegram handlers. The engine itself is transport-agnostic so the whole
// flow can be driven in tests without a live bot.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kmwangi/ethpesa/core/telegram/format"
	"github.com/kmwangi/ethpesa/core/telegram/state"
	"github.com/kmwangi/ethpesa/deposit"
	"github.com/kmwangi/ethpesa/wallet"
)

// Deposit dialog states. Idle is the zero state from the state package.
const (
	StateDepositPhone  state.State = "deposit_phone"
	StateDepositAmount state.State = "deposit_amount"
)

const tempPhoneKey = "deposit_phone"

// defaultRecentTx is how many ledger entries the account view shows.
const defaultRecentTx = 3

// Settler runs the settlement flow for one validated phone/amount pair.
type Settler interface {
	Settle(ctx context.Context, telegramID int64, phone string, amountKES decimal.Decimal) (*deposit.Receipt, error)
}

// ReplyFunc delivers one outbound message. Extras are transport hints such as
// *tele.ReplyMarkup; transports that cannot render them ignore them.
type ReplyFunc func(text string, extras ...interface{}) error

// Engine maps free-text input plus per-identity session state to replies,
// state transitions, and settlement dispatches.
type Engine struct {
	sessions state.Manager
	deposits Settler
	accounts wallet.Store
}

// NewEngine wires the session store, the settlement service, and the account
// store for the read-only account view.
func NewEngine(sessions state.Manager, deposits Settler, accounts wallet.Store) *Engine {
	return &Engine{sessions: sessions, deposits: deposits, accounts: accounts}
}

// HandleText routes one inbound message for the given identity.
func (e *Engine) HandleText(ctx context.Context, userID int64, text string, reply ReplyFunc) error {
	switch e.sessions.GetState(userID) {
	case StateDepositPhone:
		return e.handleDepositPhone(userID, text, reply)
	case StateDepositAmount:
		return e.handleDepositAmount(ctx, userID, text, reply)
	default:
		return e.handleMenu(ctx, userID, text, reply)
	}
}

func (e *Engine) handleMenu(ctx context.Context, userID int64, text string, reply ReplyFunc) error {
	switch strings.TrimSpace(text) {
	case "1":
		return reply(msgSendInfo)
	case "2":
		return reply(msgWithdrawInfo)
	case "3":
		e.sessions.ClearTemp(userID, tempPhoneKey)
		e.sessions.SetState(userID, StateDepositPhone)
		return reply(msgDepositPhonePrompt)
	case "4":
		return reply(msgAirtimeInfo)
	case "5":
		return reply(msgSavingsInfo)
	case "6":
		info, err := e.AccountInfo(ctx, userID, defaultRecentTx)
		if err != nil {
			return err
		}
		return reply(info, AccountMarkup(defaultRecentTx))
	default:
		if err := reply(msgInvalidOption); err != nil {
			return err
		}
		return reply(MenuText, MenuKeyboard())
	}
}

func (e *Engine) handleDepositPhone(userID int64, text string, reply ReplyFunc) error {
	phone, ok := NormalizePhone(text)
	if !ok {
		// Input discarded, state unchanged.
		return reply(msgInvalidPhone)
	}
	e.sessions.SetTemp(userID, tempPhoneKey, phone)
	e.sessions.SetState(userID, StateDepositAmount)
	return reply(msgDepositAmountPrompt)
}

func (e *Engine) handleDepositAmount(ctx context.Context, userID int64, text string, reply ReplyFunc) error {
	phoneVal, ok := e.sessions.GetTemp(userID, tempPhoneKey)
	phone, _ := phoneVal.(string)
	if !ok || phone == "" {
		// Session invariant broken (phone must be set in this state); restart.
		e.sessions.Clear(userID)
		return reply(MenuText, MenuKeyboard())
	}

	amount, ok := ParseAmount(text)
	if !ok {
		return reply(msgInvalidAmount)
	}

	receipt, err := e.deposits.Settle(ctx, userID, phone, amount)

	// The session is consumed by the settlement attempt, success or not.
	e.sessions.Clear(userID)

	if err != nil {
		return reply(settlementFailureMessage(err))
	}
	return reply(fmt.Sprintf(msgDepositSuccessFmt, receipt.AmountKES.String(), receipt.Phone, receipt.Reference))
}

// AccountInfo renders the account view for option 6: phone, balance, and the
// most recent deposits. Markdown-formatted. A non-positive limit falls back
// to the default view size.
func (e *Engine) AccountInfo(ctx context.Context, userID int64, limit int) (string, error) {
	if limit <= 0 {
		limit = defaultRecentTx
	}

	acc, err := e.accounts.FindByTelegramID(ctx, userID)
	if errors.Is(err, wallet.ErrNotFound) {
		return msgNoAccount, nil
	}
	if err != nil {
		return "", fmt.Errorf("account lookup: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "👤 *Account Info*\nPhone: %s\nBalance: %s ETH", acc.Phone, acc.Balance.String())

	txs, err := e.accounts.Transactions(ctx, userID, limit)
	if err == nil && len(txs) > 0 {
		b.WriteString("\n\nRecent transactions:")
		for _, tx := range txs {
			ref := tx.Reference
			if escaped, err := format.EscapeMarkdown(ref, format.MarkdownV1, ""); err == nil {
				ref = escaped
			}
			fmt.Fprintf(&b, "\n• %s %s ETH (%s)", tx.Kind, tx.Amount.String(), ref)
		}
	}
	return b.String(), nil
}

func settlementFailureMessage(err error) string {
	var providerErr *deposit.ProviderError
	if errors.As(err, &providerErr) {
		if providerErr.Message != "" {
			return msgProviderFailed + providerErr.Message
		}
		return msgProviderFailed + msgProviderFallback
	}

	var pricingErr *deposit.PricingError
	if errors.As(err, &pricingErr) {
		return msgRateUnavailable
	}

	var persistErr *deposit.PersistenceError
	if errors.As(err, &persistErr) {
		return fmt.Sprintf(msgCreditFailedFmt, persistErr.Reference)
	}

	return msgProviderFailed + msgProviderFallback
}
