// Package deposit orchestrates the settlement flow: initiate a mobile-money
// collection, price the fiat amount in crypto, and atomically credit the
// account. Any step failure aborts the flow and leaves account state
// unchanged; the collection itself cannot be rolled back once initiated.
package deposit

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"log/slog"

	"github.com/kmwangi/ethpesa/core/logger"
	"github.com/kmwangi/ethpesa/payments/lipia"
	"github.com/kmwangi/ethpesa/wallet"
)

// PaymentInitiator starts a mobile-money collection and returns the provider
// reference.
type PaymentInitiator interface {
	RequestSTK(ctx context.Context, phone string, amount decimal.Decimal) (string, error)
}

// RateSource prices one asset unit in fiat.
type RateSource interface {
	SimplePrice(ctx context.Context, asset, fiat string) (decimal.Decimal, error)
}

// Receipt summarizes a fully settled deposit.
type Receipt struct {
	Phone     string
	AmountKES decimal.Decimal
	AmountETH decimal.Decimal
	Rate      decimal.Decimal
	Reference string
}

// Service wires the two providers and the account store.
type Service struct {
	payments PaymentInitiator
	rates    RateSource
	accounts wallet.Store
	asset    string
	fiat     string
}

// NewService builds a settlement service pricing asset against fiat.
func NewService(payments PaymentInitiator, rates RateSource, accounts wallet.Store, asset, fiat string) *Service {
	return &Service{payments: payments, rates: rates, accounts: accounts, asset: asset, fiat: fiat}
}

// Settle converts one validated (phone, fiat amount) pair into a credited
// balance. Failures are typed per step: ProviderError before any charge,
// PricingError and PersistenceError after the charge was initiated — the
// latter two log the reference so the charged-but-uncredited collection can
// be reconciled manually.
func (s *Service) Settle(ctx context.Context, telegramID int64, phone string, amountKES decimal.Decimal) (*Receipt, error) {
	start := time.Now()

	reference, err := s.payments.RequestSTK(ctx, phone, amountKES)
	if err != nil {
		var statusErr *lipia.StatusError
		msg := ""
		if errors.As(err, &statusErr) {
			msg = statusErr.Message
		}
		logger.SVCDeposits.Warn("settlement aborted",
			slog.String("event", "deposit.settle"),
			slog.String("status", "fail"),
			slog.String("cause", "provider"),
			slog.Int64("user_id", telegramID),
			slog.String("err", err.Error()),
		)
		return nil, &ProviderError{Message: msg, Err: err}
	}

	rate, err := s.rates.SimplePrice(ctx, s.asset, s.fiat)
	if err != nil {
		s.logUncredited(telegramID, phone, amountKES, reference, "pricing", err)
		return nil, &PricingError{Reference: reference, Err: err}
	}

	amountETH := amountKES.Div(rate)

	acc, err := s.accounts.CreditDeposit(ctx, wallet.Deposit{
		TelegramID: telegramID,
		Phone:      phone,
		Amount:     amountETH,
		Reference:  reference,
	})
	if err != nil {
		s.logUncredited(telegramID, phone, amountKES, reference, "persistence", err)
		return nil, &PersistenceError{Reference: reference, Err: err}
	}

	logger.SVCDeposits.Info("settlement complete",
		slog.String("event", "deposit.settle"),
		slog.String("status", "ok"),
		slog.Int64("user_id", telegramID),
		slog.String("amount_kes", amountKES.String()),
		slog.String("amount_eth", amountETH.String()),
		slog.String("rate", rate.String()),
		slog.String("reference", reference),
		slog.String("balance", acc.Balance.String()),
		slog.Duration("duration", logger.Took(start)),
	)

	return &Receipt{
		Phone:     phone,
		AmountKES: amountKES,
		AmountETH: amountETH,
		Rate:      rate,
		Reference: reference,
	}, nil
}

// logUncredited records a collection that was initiated but never credited.
// There is no compensating transaction; support reconciles from this line.
func (s *Service) logUncredited(telegramID int64, phone string, amountKES decimal.Decimal, reference, cause string, err error) {
	logger.SVCDeposits.Error("charge initiated but not credited",
		slog.String("event", "deposit.uncredited"),
		slog.String("cause", cause),
		slog.Int64("user_id", telegramID),
		slog.String("phone", phone),
		slog.String("amount_kes", amountKES.String()),
		slog.String("reference", reference),
		slog.String("err", err.Error()),
	)
}
