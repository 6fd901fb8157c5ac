package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"klover-backend/internal/core/domain"
	"klover-backend/internal/core/ports"
	"klover-backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// --- In-Memory Transactor ---

// memTx is a fake pgx.Tx. The embedded interface is never touched: services
// only pass the tx through to repositories and call Commit/Rollback.
type memTx struct {
	pgx.Tx
	once    sync.Once
	release func()
}

func (t *memTx) Commit(ctx context.Context) error {
	t.once.Do(t.release)
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	t.once.Do(t.release)
	return nil
}

// inMemoryTransactor serializes transactions with one mutex, standing in for
// the per-account row locks the real store takes.
type inMemoryTransactor struct {
	mu sync.Mutex
}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	t.mu.Lock()
	return &memTx{release: t.mu.Unlock}, nil
}

// --- In-Memory Account Repo ---

type inMemoryAccountRepo struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account
}

func newInMemoryAccountRepo() *inMemoryAccountRepo {
	return &inMemoryAccountRepo{accounts: make(map[string]*domain.Account)}
}

func (r *inMemoryAccountRepo) Create(ctx context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[account.ID]; ok {
		return fmt.Errorf("account already exists: %s", account.ID)
	}
	r.accounts[account.ID] = account.Clone()
	return nil
}

func (r *inMemoryAccountRepo) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, nil
	}
	return a.Clone(), nil
}

func (r *inMemoryAccountRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id string) (*domain.Account, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemoryAccountRepo) Save(ctx context.Context, tx pgx.Tx, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.accounts[account.ID]
	if !ok {
		return apperror.ErrAccountNotFound()
	}
	if stored.Version != account.Version {
		return apperror.ErrStoreConflict()
	}
	saved := account.Clone()
	saved.Version = account.Version + 1
	r.accounts[account.ID] = saved
	account.Version++
	return nil
}

func (r *inMemoryAccountRepo) ListTopByXP(ctx context.Context, limit int) ([]domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Account
	for _, a := range r.accounts {
		if a.Status != domain.AccountStatusActive {
			continue
		}
		out = append(out, *a.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level > out[j].Level
		}
		return out[i].XP > out[j].XP
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- In-Memory Transaction Repo ---

type inMemoryTransactionRepo struct {
	mu      sync.RWMutex
	entries []*domain.Transaction
	byID    map[uuid.UUID]*domain.Transaction
}

func newInMemoryTransactionRepo() *inMemoryTransactionRepo {
	return &inMemoryTransactionRepo{byID: make(map[uuid.UUID]*domain.Transaction)}
}

func (r *inMemoryTransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.entries = append(r.entries, &cp)
	r.byID[cp.ID] = &cp
	return nil
}

func (r *inMemoryTransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (r *inMemoryTransactionRepo) ListByAccount(ctx context.Context, accountID string, limit int) ([]domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Transaction
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if r.entries[i].AccountID == accountID {
			out = append(out, *r.entries[i])
		}
	}
	return out, nil
}

func (r *inMemoryTransactionRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.TransactionStatus, details string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[id]
	if !ok || t.Status != domain.StatusPending {
		return fmt.Errorf("pending transaction not found: %s", id)
	}
	t.Status = status
	now := time.Now().UTC()
	t.ProcessedAt = &now
	if details != "" {
		if t.Details == "" {
			t.Details = details
		} else {
			t.Details += " | " + details
		}
	}
	return nil
}

func (r *inMemoryTransactionRepo) ListPendingWithdrawals(ctx context.Context, olderThan time.Time) ([]domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Transaction
	for _, t := range r.entries {
		if t.Kind == domain.KindWithdrawal && t.Status == domain.StatusPending && t.CreatedAt.Before(olderThan) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *inMemoryTransactionRepo) SumCommittedByCurrency(ctx context.Context, accountID string, currency domain.Currency) (decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sum := decimal.Zero
	for _, t := range r.entries {
		if t.AccountID == accountID && t.Currency == currency && t.Status == domain.StatusCommitted {
			sum = sum.Add(t.Amount)
		}
	}
	return sum, nil
}

func (r *inMemoryTransactionRepo) SummarizeCommitted(ctx context.Context, accountID string, since *time.Time) ([]ports.KindSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type key struct {
		kind     domain.TransactionKind
		currency domain.Currency
	}
	grouped := make(map[key]*ports.KindSummary)
	var order []key

	for _, t := range r.entries {
		if t.AccountID != accountID || t.Status != domain.StatusCommitted {
			continue
		}
		if since != nil && t.CreatedAt.Before(*since) {
			continue
		}
		k := key{t.Kind, t.Currency}
		s, ok := grouped[k]
		if !ok {
			s = &ports.KindSummary{Kind: t.Kind, Currency: t.Currency, Total: decimal.Zero}
			grouped[k] = s
			order = append(order, k)
		}
		s.Count++
		s.Total = s.Total.Add(t.Amount)
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].kind != order[j].kind {
			return order[i].kind < order[j].kind
		}
		return order[i].currency < order[j].currency
	})

	out := make([]ports.KindSummary, 0, len(order))
	for _, k := range order {
		out = append(out, *grouped[k])
	}
	return out, nil
}

// --- Fake Payout Gateway ---

// fakePayoutGateway implements ports.PayoutGateway. Set failWith to make
// every payout fail. Idempotency keys are recorded per call.
type fakePayoutGateway struct {
	mu       sync.Mutex
	failWith error
	keys     []string
	calls    atomic.Int64
}

func (g *fakePayoutGateway) setFailure(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failWith = err
}

func (g *fakePayoutGateway) seenKeys() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.keys...)
}

func (g *fakePayoutGateway) Pay(ctx context.Context, idempotencyKey, destination string, amount decimal.Decimal, currency domain.Currency) (string, error) {
	n := g.calls.Add(1)
	g.mu.Lock()
	g.keys = append(g.keys, idempotencyKey)
	err := g.failWith
	g.mu.Unlock()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("prov-%d", n), nil
}
