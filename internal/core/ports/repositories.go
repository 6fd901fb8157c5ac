package ports

import (
	"context"
	"time"

	"klover-backend/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// AccountRepository defines persistence operations for accounts.
// Methods accepting pgx.Tx run inside transaction blocks; GetByIDForUpdate
// takes the per-account row lock that makes every engine operation a critical
// section for that account.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id string) (*domain.Account, error)
	// Save persists the account snapshot and bumps its version. A stale
	// version returns apperror.ErrStoreConflict.
	Save(ctx context.Context, tx pgx.Tx, account *domain.Account) error
	// ListTopByXP returns accounts ordered by level desc, xp desc.
	ListTopByXP(ctx context.Context, limit int) ([]domain.Account, error)
}

// TransactionRepository defines persistence for ledger entries.
type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, transaction *domain.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	ListByAccount(ctx context.Context, accountID string, limit int) ([]domain.Transaction, error)
	// UpdateStatus transitions a PENDING entry and stamps processed_at.
	// Details is appended to the existing details column when non-empty.
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.TransactionStatus, details string) error
	// ListPendingWithdrawals returns PENDING withdrawal rows created before
	// the cutoff, for the reconciliation sweep.
	ListPendingWithdrawals(ctx context.Context, olderThan time.Time) ([]domain.Transaction, error)
	// SumCommittedByCurrency returns the signed sum of COMMITTED amounts for
	// one account and currency (conservation checks, display totals).
	SumCommittedByCurrency(ctx context.Context, accountID string, currency domain.Currency) (decimal.Decimal, error)
	// SummarizeCommitted groups the account's COMMITTED entries by kind and
	// currency, restricted to rows created at or after since when non-nil.
	SummarizeCommitted(ctx context.Context, accountID string, since *time.Time) ([]KindSummary, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
