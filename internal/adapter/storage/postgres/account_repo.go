package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"klover-backend/internal/core/domain"
	"klover-backend/pkg/apperror"

	"github.com/jackc/pgx/v5"
)

// AccountRepo implements ports.AccountRepository. The aggregate's nested
// state (balances, inventory, missions) is stored as JSONB; balances are
// decimal strings inside the document so no float ever touches them.
type AccountRepo struct {
	pool Pool
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(pool Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

const accountColumns = `id, username, photo_url, balances, xp, level, spins,
	inventory, missions, referred_by, referral_earnings, status, version, joined_at`

// Create inserts a new account.
func (r *AccountRepo) Create(ctx context.Context, a *domain.Account) error {
	balances, inventory, missions, err := marshalAccountDocs(a)
	if err != nil {
		return err
	}

	query := `INSERT INTO accounts (id, username, photo_url, balances, xp, level, spins,
		inventory, missions, referred_by, referral_earnings, status, version, joined_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err = r.pool.Exec(ctx, query,
		a.ID, a.Username, a.PhotoURL, balances, a.XP, a.Level, a.Spins,
		inventory, missions, a.ReferredBy, a.ReferralEarnings, a.Status,
		a.Version, a.JoinedAt, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// GetByID fetches an account without locking.
func (r *AccountRepo) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM accounts WHERE id = $1`, accountColumns)
	return scanAccount(r.pool.QueryRow(ctx, query, id))
}

// GetByIDForUpdate fetches an account with a pessimistic row lock. This MUST
// be called within a transaction; the lock is the per-account critical
// section every mutating operation relies on.
func (r *AccountRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id string) (*domain.Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM accounts WHERE id = $1 FOR UPDATE`, accountColumns)
	return scanAccount(tx.QueryRow(ctx, query, id))
}

// Save persists the account snapshot, guarded by the version column. A stale
// version means a concurrent writer got there first.
func (r *AccountRepo) Save(ctx context.Context, tx pgx.Tx, a *domain.Account) error {
	balances, inventory, missions, err := marshalAccountDocs(a)
	if err != nil {
		return err
	}

	query := `UPDATE accounts SET username = $1, photo_url = $2, balances = $3, xp = $4,
		level = $5, spins = $6, inventory = $7, missions = $8, referred_by = $9,
		referral_earnings = $10, status = $11, version = version + 1, updated_at = $12
		WHERE id = $13 AND version = $14`

	tag, err := tx.Exec(ctx, query,
		a.Username, a.PhotoURL, balances, a.XP, a.Level, a.Spins,
		inventory, missions, a.ReferredBy, a.ReferralEarnings, a.Status,
		time.Now().UTC(), a.ID, a.Version,
	)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.ErrStoreConflict()
	}
	a.Version++
	return nil
}

// ListTopByXP returns accounts ordered by level then XP, for the ranking
// fallback path.
func (r *AccountRepo) ListTopByXP(ctx context.Context, limit int) ([]domain.Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM accounts WHERE status = 'ACTIVE'
		ORDER BY level DESC, xp DESC LIMIT $1`, accountColumns)

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list top accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

func marshalAccountDocs(a *domain.Account) (balances, inventory, missions []byte, err error) {
	if balances, err = json.Marshal(a.Balances); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal balances: %w", err)
	}
	if inventory, err = json.Marshal(a.Inventory); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal inventory: %w", err)
	}
	if missions, err = json.Marshal(a.Missions); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal missions: %w", err)
	}
	return balances, inventory, missions, nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		a         domain.Account
		balances  []byte
		inventory []byte
		missions  []byte
	)
	err := row.Scan(
		&a.ID, &a.Username, &a.PhotoURL, &balances, &a.XP, &a.Level, &a.Spins,
		&inventory, &missions, &a.ReferredBy, &a.ReferralEarnings, &a.Status,
		&a.Version, &a.JoinedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}

	if err := json.Unmarshal(balances, &a.Balances); err != nil {
		return nil, fmt.Errorf("unmarshal balances: %w", err)
	}
	if err := json.Unmarshal(inventory, &a.Inventory); err != nil {
		return nil, fmt.Errorf("unmarshal inventory: %w", err)
	}
	if err := json.Unmarshal(missions, &a.Missions); err != nil {
		return nil, fmt.Errorf("unmarshal missions: %w", err)
	}
	return &a, nil
}
