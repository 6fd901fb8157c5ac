package ports

import (
	"context"
	"time"

	"klover-backend/internal/core/domain"

	"github.com/shopspring/decimal"
)

// PayoutGateway is the external payout provider (PIX, TON). Pay blocks until
// the provider answers or the configured timeout fires; a timeout is a
// failure, never left ambiguous. idempotencyKey identifies the withdrawal
// across retries so the provider pays at most once per key.
type PayoutGateway interface {
	Pay(ctx context.Context, idempotencyKey, destination string, amount decimal.Decimal, currency domain.Currency) (providerTxID string, err error)
}

// TokenService handles JWT session token operations.
type TokenService interface {
	Generate(accountID string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	AccountID string
}

// EncryptionService encrypts payout destinations (PIX keys, TON addresses)
// before they reach the database.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertextHex string) (string, error)
}

// AdLimiter enforces the per-account daily ad reward cap.
type AdLimiter interface {
	// Take consumes one ad-watch slot. Returns the count used today and
	// whether the watch is within the cap.
	Take(ctx context.Context, accountID string, cap int) (int, bool, error)
	// Release returns a previously taken slot, for when the reward could
	// not be granted after all.
	Release(ctx context.Context, accountID string) error
}

// Leaderboard maintains the XP ranking (best-effort, rebuilt from the
// account store if lost).
type Leaderboard interface {
	SetScore(ctx context.Context, accountID string, xp int64) error
	Top(ctx context.Context, n int64) ([]LeaderboardEntry, error)
}

// LeaderboardEntry is one ranked row.
type LeaderboardEntry struct {
	AccountID string
	XP        int64
}

// --- Service Ports (Business Logic) ---

// RewardService owns every internal balance mutation: ad rewards, chests,
// roulette, missions, shop purchases and ledger reads.
type RewardService interface {
	CreditAdReward(ctx context.Context, accountID string) (*AdRewardResult, error)
	OpenChest(ctx context.Context, accountID, chestID string) (*RewardOutcome, error)
	SpinRoulette(ctx context.Context, accountID string) (*SpinOutcome, error)
	ClaimMission(ctx context.Context, accountID, missionID string) (*RewardOutcome, error)
	PurchaseChest(ctx context.Context, accountID string, rarity domain.ChestRarity) (*domain.Account, error)
	GetLedger(ctx context.Context, accountID string, limit int) ([]domain.Transaction, error)
}

// AdRewardResult is the outcome of one completed ad watch.
type AdRewardResult struct {
	Account     *domain.Account
	Chest       *domain.Chest
	XPGranted   int64
	SpinGranted bool
	LeveledUp   bool
	NewLevel    int
}

// RewardOutcome is the outcome of opening a chest or claiming a mission.
type RewardOutcome struct {
	Account      *domain.Account
	Transactions []domain.Transaction
	Chest        *domain.Chest // granted chest, if any
}

// SpinOutcome is the outcome of one roulette draw.
type SpinOutcome struct {
	Account      *domain.Account
	Prize        domain.RewardEntry
	Amount       decimal.Decimal // zero for non-cash prizes
	Transactions []domain.Transaction
}

// WithdrawalService runs the REQUESTED -> RESERVED -> PAID/REFUNDED machine.
type WithdrawalService interface {
	Withdraw(ctx context.Context, req WithdrawRequest) (*domain.Transaction, error)
	// ResumePending re-drives withdrawals stuck in PENDING past the cutoff.
	// Returns how many rows were settled.
	ResumePending(ctx context.Context, olderThan time.Duration) (int, error)
}

// WithdrawRequest holds validated input for a withdrawal.
type WithdrawRequest struct {
	AccountID   string
	Method      domain.WithdrawalMethod
	Amount      decimal.Decimal
	Destination string
}

// AuthService verifies Telegram Mini App init data and issues sessions.
type AuthService interface {
	LoginWithTelegram(ctx context.Context, initData string, referralCode *string) (*LoginResult, error)
}

// LoginResult is the session handed back after a successful login.
type LoginResult struct {
	Account *domain.Account
	Token   string
	Expiry  time.Time
}

// RankingService exposes the XP leaderboard.
type RankingService interface {
	Top(ctx context.Context, n int) ([]RankEntry, error)
}

// ReportingService aggregates committed ledger activity for display.
type ReportingService interface {
	// EarningsSummary groups the account's COMMITTED entries by kind and
	// currency. Period is one of day, week, month or all (the default).
	EarningsSummary(ctx context.Context, accountID, period string) (*EarningsSummary, error)
}

// KindSummary is one aggregated ledger row.
type KindSummary struct {
	Kind     domain.TransactionKind `json:"kind"`
	Currency domain.Currency        `json:"currency"`
	Count    int64                  `json:"count"`
	Total    decimal.Decimal        `json:"total"`
}

// EarningsSummary is the aggregated view of an account's ledger.
type EarningsSummary struct {
	Period string
	Rows   []KindSummary
}

// RankEntry is one hydrated leaderboard row.
type RankEntry struct {
	Rank     int    `json:"rank"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	PhotoURL string `json:"photo_url,omitempty"`
	Level    int    `json:"level"`
	XP       int64  `json:"xp"`
}
