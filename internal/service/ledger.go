package service

import (
	"context"
	"fmt"
	"time"

	"klover-backend/internal/core/domain"
	"klover-backend/internal/core/ports"
	"klover-backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Ledger is the trusted primitive every balance mutation goes through. Within
// one database transaction it updates the account snapshot and appends the
// ledger row as a single unit; it never calls external systems.
type Ledger struct {
	txRepo ports.TransactionRepository
	log    zerolog.Logger
}

// NewLedger creates a Ledger.
func NewLedger(txRepo ports.TransactionRepository, log zerolog.Logger) *Ledger {
	return &Ledger{txRepo: txRepo, log: log}
}

// Credit adds amount to the account's currency bucket and appends a COMMITTED
// ledger entry. Amount must be positive.
func (l *Ledger) Credit(ctx context.Context, dbTx pgx.Tx, acct *domain.Account,
	currency domain.Currency, amount decimal.Decimal, kind domain.TransactionKind, details string,
) (*domain.Transaction, error) {
	if !amount.IsPositive() {
		return nil, apperror.InternalError(fmt.Errorf("ledger credit of non-positive amount %s", amount))
	}

	acct.SetBalance(currency, acct.Balance(currency).Add(amount))

	now := time.Now().UTC()
	txn := &domain.Transaction{
		ID:          uuid.New(),
		AccountID:   acct.ID,
		Kind:        kind,
		Currency:    currency,
		Amount:      amount,
		Status:      domain.StatusCommitted,
		Details:     details,
		CreatedAt:   now,
		ProcessedAt: &now,
	}
	if err := l.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("append credit entry: %w", err))
	}

	l.log.Debug().
		Str("account_id", acct.ID).
		Str("kind", string(kind)).
		Str("amount", amount.String()).
		Str("currency", string(currency)).
		Msg("ledger credit")

	return txn, nil
}

// Note appends a zero-amount COMMITTED entry without touching any balance.
// Rewards that move no currency, like an ad watch paying out in XP and spins,
// still leave an auditable row this way.
func (l *Ledger) Note(ctx context.Context, dbTx pgx.Tx, acct *domain.Account,
	currency domain.Currency, kind domain.TransactionKind, details string,
) (*domain.Transaction, error) {
	now := time.Now().UTC()
	txn := &domain.Transaction{
		ID:          uuid.New(),
		AccountID:   acct.ID,
		Kind:        kind,
		Currency:    currency,
		Amount:      decimal.Zero,
		Status:      domain.StatusCommitted,
		Details:     details,
		CreatedAt:   now,
		ProcessedAt: &now,
	}
	if err := l.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("append note entry: %w", err))
	}

	l.log.Debug().
		Str("account_id", acct.ID).
		Str("kind", string(kind)).
		Msg("ledger note")

	return txn, nil
}

// Debit removes amount from the account's currency bucket and appends a
// COMMITTED entry with a negative amount. It is rejected with
// InsufficientFunds before any state changes; a committed debit can never
// drive a balance negative.
func (l *Ledger) Debit(ctx context.Context, dbTx pgx.Tx, acct *domain.Account,
	currency domain.Currency, amount decimal.Decimal, kind domain.TransactionKind, details string,
) (*domain.Transaction, error) {
	txn, err := l.debit(ctx, dbTx, acct, currency, amount, kind, details, domain.StatusCommitted, "", "")
	if err != nil {
		return nil, err
	}

	l.log.Debug().
		Str("account_id", acct.ID).
		Str("kind", string(kind)).
		Str("amount", amount.String()).
		Str("currency", string(currency)).
		Msg("ledger debit")

	return txn, nil
}

// Reserve debits the amount like Debit but appends the entry as PENDING, for
// operations with an external step still ahead of them (withdrawal). The
// balance leaves the account immediately so a second reservation cannot
// double-spend the same funds.
func (l *Ledger) Reserve(ctx context.Context, dbTx pgx.Tx, acct *domain.Account,
	currency domain.Currency, amount decimal.Decimal, method domain.WithdrawalMethod, destination string,
) (*domain.Transaction, error) {
	txn, err := l.debit(ctx, dbTx, acct, currency, amount, domain.KindWithdrawal,
		"withdrawal reservation", domain.StatusPending, method, destination)
	if err != nil {
		return nil, err
	}

	l.log.Info().
		Str("account_id", acct.ID).
		Str("tx_id", txn.ID.String()).
		Str("amount", amount.String()).
		Str("currency", string(currency)).
		Msg("withdrawal reserved")

	return txn, nil
}

func (l *Ledger) debit(ctx context.Context, dbTx pgx.Tx, acct *domain.Account,
	currency domain.Currency, amount decimal.Decimal, kind domain.TransactionKind,
	details string, status domain.TransactionStatus,
	method domain.WithdrawalMethod, destination string,
) (*domain.Transaction, error) {
	if !amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}

	balance := acct.Balance(currency)
	if balance.LessThan(amount) {
		return nil, apperror.ErrInsufficientFunds(string(currency))
	}
	acct.SetBalance(currency, balance.Sub(amount))

	now := time.Now().UTC()
	txn := &domain.Transaction{
		ID:          uuid.New(),
		AccountID:   acct.ID,
		Kind:        kind,
		Currency:    currency,
		Amount:      amount.Neg(),
		Status:      status,
		Details:     details,
		Method:      method,
		Destination: destination,
		CreatedAt:   now,
	}
	if status == domain.StatusCommitted {
		txn.ProcessedAt = &now
	}
	if err := l.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("append debit entry: %w", err))
	}
	return txn, nil
}
