package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"klover-backend/internal/core/domain"
	"klover-backend/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// TransactionRepo implements ports.TransactionRepository. Ledger rows are
// append-only; the only mutation ever allowed is settling a PENDING
// withdrawal. Payout destinations are encrypted at rest: enc runs on the
// destination column both ways, so callers only ever see plaintext.
type TransactionRepo struct {
	pool Pool
	enc  ports.EncryptionService
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool, enc ports.EncryptionService) *TransactionRepo {
	return &TransactionRepo{pool: pool, enc: enc}
}

const transactionColumns = `id, account_id, kind, currency, amount, status,
	details, method, destination, created_at, processed_at`

// Create appends a ledger row within a database transaction. The domain
// object is left untouched; only the stored destination is ciphertext.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	destination := t.Destination
	if destination != "" {
		sealed, err := r.enc.Encrypt(destination)
		if err != nil {
			return fmt.Errorf("encrypt destination: %w", err)
		}
		destination = sealed
	}

	query := `INSERT INTO transactions (id, account_id, kind, currency, amount, status,
		details, method, destination, created_at, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.AccountID, t.Kind, t.Currency, t.Amount, t.Status,
		t.Details, t.Method, destination, t.CreatedAt, t.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByID fetches a ledger row by UUID.
func (r *TransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE id = $1`, transactionColumns)
	return r.scanTransaction(r.pool.QueryRow(ctx, query, id))
}

// ListByAccount returns the account's most recent entries.
func (r *TransactionRepo) ListByAccount(ctx context.Context, accountID string, limit int) ([]domain.Transaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE account_id = $1
		ORDER BY created_at DESC LIMIT $2`, transactionColumns)

	rows, err := r.pool.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		t, err := r.scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, *t)
	}
	return txns, rows.Err()
}

// UpdateStatus settles a PENDING row, stamping processed_at and appending
// extra details when given. Settling a row twice affects nothing and is
// reported as an error.
func (r *TransactionRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.TransactionStatus, details string) error {
	query := `UPDATE transactions SET status = $1, processed_at = $2,
		details = CASE WHEN $3 = '' THEN details
		               WHEN details = '' THEN $3
		               ELSE details || ' | ' || $3 END
		WHERE id = $4 AND status = 'PENDING'`

	tag, err := tx.Exec(ctx, query, status, time.Now().UTC(), details, id)
	if err != nil {
		return fmt.Errorf("update transaction status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("pending transaction not found: %s", id)
	}
	return nil
}

// ListPendingWithdrawals returns PENDING withdrawals created before the
// cutoff, oldest first, for the reconciliation sweep.
func (r *TransactionRepo) ListPendingWithdrawals(ctx context.Context, olderThan time.Time) ([]domain.Transaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM transactions
		WHERE kind = 'WITHDRAWAL' AND status = 'PENDING' AND created_at < $1
		ORDER BY created_at ASC`, transactionColumns)

	rows, err := r.pool.Query(ctx, query, olderThan)
	if err != nil {
		return nil, fmt.Errorf("list pending withdrawals: %w", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		t, err := r.scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, *t)
	}
	return txns, rows.Err()
}

// SumCommittedByCurrency returns the signed sum of COMMITTED entries for one
// account and currency.
func (r *TransactionRepo) SumCommittedByCurrency(ctx context.Context, accountID string, currency domain.Currency) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM transactions
		WHERE account_id = $1 AND currency = $2 AND status = 'COMMITTED'`

	var sum decimal.Decimal
	if err := r.pool.QueryRow(ctx, query, accountID, currency).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("sum committed transactions: %w", err)
	}
	return sum, nil
}

// SummarizeCommitted groups COMMITTED entries by kind and currency. A nil
// since means all time.
func (r *TransactionRepo) SummarizeCommitted(ctx context.Context, accountID string, since *time.Time) ([]ports.KindSummary, error) {
	query := `SELECT kind, currency, COUNT(*), COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE account_id = $1 AND status = 'COMMITTED'
		  AND ($2::timestamptz IS NULL OR created_at >= $2)
		GROUP BY kind, currency
		ORDER BY kind, currency`

	rows, err := r.pool.Query(ctx, query, accountID, since)
	if err != nil {
		return nil, fmt.Errorf("summarize transactions: %w", err)
	}
	defer rows.Close()

	var out []ports.KindSummary
	for rows.Next() {
		var s ports.KindSummary
		if err := rows.Scan(&s.Kind, &s.Currency, &s.Count, &s.Total); err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *TransactionRepo) scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	err := row.Scan(
		&t.ID, &t.AccountID, &t.Kind, &t.Currency, &t.Amount, &t.Status,
		&t.Details, &t.Method, &t.Destination, &t.CreatedAt, &t.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}

	if t.Destination != "" {
		plain, err := r.enc.Decrypt(t.Destination)
		if err != nil {
			return nil, fmt.Errorf("decrypt destination for %s: %w", t.ID, err)
		}
		t.Destination = plain
	}
	return &t, nil
}
