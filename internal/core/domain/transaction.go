package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionKind represents the operation that produced a ledger entry.
type TransactionKind string

const (
	KindAdReward           TransactionKind = "AD_REWARD"
	KindChestReward        TransactionKind = "CHEST_REWARD"
	KindMissionReward      TransactionKind = "MISSION_REWARD"
	KindRouletteReward     TransactionKind = "ROULETTE_REWARD"
	KindReferralCommission TransactionKind = "REFERRAL_COMMISSION"
	KindShopPurchase       TransactionKind = "SHOP_PURCHASE"
	KindWithdrawal         TransactionKind = "WITHDRAWAL"
	KindWithdrawalRefund   TransactionKind = "WITHDRAWAL_REFUND"
)

// TransactionStatus is the lifecycle state of a ledger entry. Purely internal
// operations are created COMMITTED; only withdrawals pass through PENDING.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "PENDING"
	StatusCommitted TransactionStatus = "COMMITTED"
	StatusFailed    TransactionStatus = "FAILED"
)

// WithdrawalMethod selects the payout rail for a withdrawal.
type WithdrawalMethod string

const (
	MethodPIX WithdrawalMethod = "PIX"
	MethodTON WithdrawalMethod = "TON"
)

// Transaction is an append-only ledger entry. Amount is signed: positive is a
// credit, negative a debit. Rows are immutable once COMMITTED or FAILED.
type Transaction struct {
	ID        uuid.UUID         `json:"id"`
	AccountID string            `json:"account_id"`
	Kind      TransactionKind   `json:"kind"`
	Currency  Currency          `json:"currency"`
	Amount    decimal.Decimal   `json:"amount"`
	Status    TransactionStatus `json:"status"`
	Details   string            `json:"details,omitempty"`

	// Withdrawal-only fields.
	Method      WithdrawalMethod `json:"method,omitempty"`
	Destination string           `json:"destination,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

// IsTerminal returns true once the entry may no longer transition.
func (t *Transaction) IsTerminal() bool {
	return t.Status == StatusCommitted || t.Status == StatusFailed
}

// IsCredit returns true when the entry added funds.
func (t *Transaction) IsCredit() bool {
	return t.Amount.IsPositive()
}
