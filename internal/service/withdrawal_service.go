package service

import (
	"context"
	"fmt"
	"time"

	"klover-backend/internal/core/domain"
	"klover-backend/internal/core/ports"
	"klover-backend/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// WithdrawalPolicy maps each payout method to its currency and minimum.
type WithdrawalPolicy struct {
	Currencies map[domain.WithdrawalMethod]domain.Currency
	Minimums   map[domain.WithdrawalMethod]decimal.Decimal
}

// WithdrawalServiceImpl implements ports.WithdrawalService.
//
// A withdrawal runs in two database transactions around the gateway call:
// the first reserves the funds (PENDING debit), the second settles. Payout
// success marks the row COMMITTED; failure appends a WITHDRAWAL_REFUND credit
// and marks the original FAILED. A crash between the two leaves a PENDING row
// that ResumePending settles later, so funds are never silently lost.
type WithdrawalServiceImpl struct {
	accountRepo ports.AccountRepository
	txRepo      ports.TransactionRepository
	transactor  ports.DBTransactor
	gateway     ports.PayoutGateway
	ledger      *Ledger
	policy      WithdrawalPolicy
	log         zerolog.Logger
}

// NewWithdrawalService creates a new WithdrawalServiceImpl.
func NewWithdrawalService(
	accountRepo ports.AccountRepository,
	txRepo ports.TransactionRepository,
	transactor ports.DBTransactor,
	gateway ports.PayoutGateway,
	ledger *Ledger,
	policy WithdrawalPolicy,
	log zerolog.Logger,
) *WithdrawalServiceImpl {
	return &WithdrawalServiceImpl{
		accountRepo: accountRepo,
		txRepo:      txRepo,
		transactor:  transactor,
		gateway:     gateway,
		ledger:      ledger,
		policy:      policy,
		log:         log,
	}
}

// Withdraw reserves the amount, pays it out through the gateway and settles
// the ledger row. The returned transaction reflects the final state:
// COMMITTED on success, FAILED (with the balance refunded) on gateway
// failure.
func (s *WithdrawalServiceImpl) Withdraw(ctx context.Context, req ports.WithdrawRequest) (*domain.Transaction, error) {
	currency, ok := s.policy.Currencies[req.Method]
	if !ok {
		return nil, apperror.ErrUnsupportedMethod(string(req.Method))
	}
	if !req.Amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	if minimum, ok := s.policy.Minimums[req.Method]; ok && req.Amount.LessThan(minimum) {
		return nil, apperror.ErrBelowMinimumWithdrawal(string(req.Method), minimum.String())
	}

	pending, err := s.reserve(ctx, req, currency)
	if err != nil {
		return nil, err
	}

	if err := s.settle(ctx, pending); err != nil {
		return pending, err
	}
	return pending, nil
}

// reserve debits the amount as a PENDING withdrawal in its own transaction.
// Once this commits, the funds are held and a concurrent request cannot
// double-spend them.
func (s *WithdrawalServiceImpl) reserve(ctx context.Context, req ports.WithdrawRequest, currency domain.Currency) (*domain.Transaction, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	acct, err := s.accountRepo.GetByIDForUpdate(ctx, dbTx, req.AccountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock account: %w", err))
	}
	if acct == nil {
		return nil, apperror.ErrAccountNotFound()
	}

	pending, err := s.ledger.Reserve(ctx, dbTx, acct, currency, req.Amount, req.Method, req.Destination)
	if err != nil {
		return nil, err
	}
	if err := s.accountRepo.Save(ctx, dbTx, acct); err != nil {
		return nil, err
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return pending, nil
}

// settle attempts the payout for a PENDING withdrawal and records the final
// state. It mutates pending in place.
func (s *WithdrawalServiceImpl) settle(ctx context.Context, pending *domain.Transaction) error {
	amount := pending.Amount.Neg()

	// The withdrawal id doubles as the idempotency key so a sweep re-attempt
	// after a crash cannot trigger a second payout at the provider.
	providerTxID, payErr := s.gateway.Pay(ctx, pending.ID.String(), pending.Destination, amount, pending.Currency)
	if payErr == nil {
		return s.markPaid(ctx, pending, providerTxID)
	}
	return s.refund(ctx, pending, payErr)
}

func (s *WithdrawalServiceImpl) markPaid(ctx context.Context, pending *domain.Transaction, providerTxID string) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	details := fmt.Sprintf("provider_tx_id=%s", providerTxID)
	if err := s.txRepo.UpdateStatus(ctx, dbTx, pending.ID, domain.StatusCommitted, details); err != nil {
		return apperror.InternalError(fmt.Errorf("mark withdrawal committed: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	pending.Status = domain.StatusCommitted
	pending.Details = details
	now := time.Now().UTC()
	pending.ProcessedAt = &now

	s.log.Info().
		Str("tx_id", pending.ID.String()).
		Str("account_id", pending.AccountID).
		Str("provider_tx_id", providerTxID).
		Msg("withdrawal paid")
	return nil
}

// refund compensates a failed payout: the held amount is credited back as
// WITHDRAWAL_REFUND and the original row is marked FAILED, both in one
// transaction. If this itself fails the row stays PENDING for the
// reconciliation sweep.
func (s *WithdrawalServiceImpl) refund(ctx context.Context, pending *domain.Transaction, payErr error) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	acct, err := s.accountRepo.GetByIDForUpdate(ctx, dbTx, pending.AccountID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("lock account: %w", err))
	}
	if acct == nil {
		return apperror.ErrAccountNotFound()
	}

	amount := pending.Amount.Neg()
	if _, err := s.ledger.Credit(ctx, dbTx, acct, pending.Currency, amount,
		domain.KindWithdrawalRefund, fmt.Sprintf("refund for failed withdrawal %s", pending.ID)); err != nil {
		return err
	}
	if err := s.txRepo.UpdateStatus(ctx, dbTx, pending.ID, domain.StatusFailed, payErr.Error()); err != nil {
		return apperror.InternalError(fmt.Errorf("mark withdrawal failed: %w", err))
	}
	if err := s.accountRepo.Save(ctx, dbTx, acct); err != nil {
		return err
	}
	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	pending.Status = domain.StatusFailed

	s.log.Warn().
		Err(payErr).
		Str("tx_id", pending.ID.String()).
		Str("account_id", pending.AccountID).
		Str("amount", amount.String()).
		Msg("withdrawal failed, balance refunded")

	return apperror.ErrPayoutFailed(payErr)
}

// ResumePending re-drives withdrawals left PENDING longer than olderThan,
// usually after a crash between reservation and settlement. Each row gets one
// more payout attempt and is then committed or refunded. Rows that fail to
// settle are left for the next sweep.
func (s *WithdrawalServiceImpl) ResumePending(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	stale, err := s.txRepo.ListPendingWithdrawals(ctx, cutoff)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("list pending withdrawals: %w", err))
	}

	settled := 0
	for i := range stale {
		pending := stale[i]
		err := s.settle(ctx, &pending)
		if err == nil || pending.Status == domain.StatusFailed {
			settled++
			continue
		}
		s.log.Error().
			Err(err).
			Str("tx_id", pending.ID.String()).
			Msg("pending withdrawal could not be settled")
	}

	if len(stale) > 0 {
		s.log.Info().
			Int("found", len(stale)).
			Int("settled", settled).
			Msg("pending withdrawal sweep finished")
	}
	return settled, nil
}
