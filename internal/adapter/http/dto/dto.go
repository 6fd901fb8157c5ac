package dto

import (
	"time"

	"klover-backend/internal/core/domain"
	"klover-backend/internal/core/ports"
)

// LoginRequest is the request body for Telegram Mini App login.
type LoginRequest struct {
	InitData     string  `json:"init_data" binding:"required"`
	ReferralCode *string `json:"referral_code,omitempty" binding:"omitempty,safe_id"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token   string          `json:"token"`
	Expiry  int64           `json:"expiry"` // Unix timestamp
	Account AccountResponse `json:"account"`
}

// OpenChestRequest is the request body for opening an inventory chest.
type OpenChestRequest struct {
	ChestID string `json:"chest_id" binding:"required,safe_id"`
}

// PurchaseChestRequest is the request body for buying a chest with points.
type PurchaseChestRequest struct {
	Rarity string `json:"rarity" binding:"required,chest_rarity"`
}

// WithdrawRequest is the request body for requesting a payout.
type WithdrawRequest struct {
	Method      string `json:"method" binding:"required,oneof=PIX TON"`
	Amount      string `json:"amount" binding:"required,positive_decimal"`
	Destination string `json:"destination" binding:"required,min=3,max=200"`
}

// ChestResponse is one inventory chest.
type ChestResponse struct {
	ID         string `json:"id"`
	Rarity     string `json:"rarity"`
	AcquiredAt string `json:"acquired_at"`
}

// MissionStateResponse is the account's progress on one mission.
type MissionStateResponse struct {
	Progress int  `json:"progress"`
	Claimed  bool `json:"claimed"`
}

// AccountResponse is the public view of an account.
type AccountResponse struct {
	ID               string                          `json:"id"`
	Username         string                          `json:"username"`
	PhotoURL         string                          `json:"photo_url,omitempty"`
	Balances         map[string]string               `json:"balances"`
	XP               int64                           `json:"xp"`
	Level            int                             `json:"level"`
	Spins            int                             `json:"spins"`
	Inventory        []ChestResponse                 `json:"inventory"`
	Missions         map[string]MissionStateResponse `json:"missions"`
	ReferralEarnings string                          `json:"referral_earnings"`
	JoinedAt         string                          `json:"joined_at"`
}

// TransactionResponse is one ledger entry.
type TransactionResponse struct {
	ID          string  `json:"id"`
	Kind        string  `json:"kind"`
	Currency    string  `json:"currency"`
	Amount      string  `json:"amount"`
	Status      string  `json:"status"`
	Details     string  `json:"details,omitempty"`
	Method      string  `json:"method,omitempty"`
	Destination string  `json:"destination,omitempty"`
	CreatedAt   string  `json:"created_at"`
	ProcessedAt *string `json:"processed_at,omitempty"`
}

// AdRewardResponse is the outcome of one completed ad watch.
type AdRewardResponse struct {
	XPGranted   int64           `json:"xp_granted"`
	SpinGranted bool            `json:"spin_granted"`
	Chest       *ChestResponse  `json:"chest,omitempty"`
	LeveledUp   bool            `json:"leveled_up"`
	NewLevel    int             `json:"new_level,omitempty"`
	Account     AccountResponse `json:"account"`
}

// RewardResponse is the outcome of a chest opening or mission claim.
type RewardResponse struct {
	Account      AccountResponse       `json:"account"`
	Transactions []TransactionResponse `json:"transactions"`
	Chest        *ChestResponse        `json:"chest,omitempty"`
}

// SpinResponse is the outcome of one roulette draw.
type SpinResponse struct {
	Prize        string                `json:"prize"`
	Amount       string                `json:"amount,omitempty"`
	Account      AccountResponse       `json:"account"`
	Transactions []TransactionResponse `json:"transactions"`
}

// LedgerResponse wraps the transaction history.
type LedgerResponse struct {
	Items []TransactionResponse `json:"items"`
}

// SummaryRowResponse is one aggregated ledger row.
type SummaryRowResponse struct {
	Kind     string `json:"kind"`
	Currency string `json:"currency"`
	Count    int64  `json:"count"`
	Total    string `json:"total"`
}

// SummaryResponse wraps the earnings summary.
type SummaryResponse struct {
	Period string               `json:"period"`
	Rows   []SummaryRowResponse `json:"rows"`
}

// RankingResponse wraps the leaderboard rows.
type RankingResponse struct {
	Entries []ports.RankEntry `json:"entries"`
}

// FromAccount maps a domain account to its API view.
func FromAccount(a *domain.Account) AccountResponse {
	balances := make(map[string]string, len(a.Balances))
	for cur, amount := range a.Balances {
		balances[string(cur)] = amount.String()
	}

	inventory := make([]ChestResponse, 0, len(a.Inventory))
	for _, c := range a.Inventory {
		inventory = append(inventory, FromChest(c))
	}

	missions := make(map[string]MissionStateResponse, len(a.Missions))
	for id, st := range a.Missions {
		missions[id] = MissionStateResponse{Progress: st.Progress, Claimed: st.Claimed}
	}

	return AccountResponse{
		ID:               a.ID,
		Username:         a.Username,
		PhotoURL:         a.PhotoURL,
		Balances:         balances,
		XP:               a.XP,
		Level:            a.Level,
		Spins:            a.Spins,
		Inventory:        inventory,
		Missions:         missions,
		ReferralEarnings: a.ReferralEarnings.String(),
		JoinedAt:         a.JoinedAt.UTC().Format(time.RFC3339),
	}
}

// FromChest maps a domain chest to its API view.
func FromChest(c domain.Chest) ChestResponse {
	return ChestResponse{
		ID:         c.ID,
		Rarity:     string(c.Rarity),
		AcquiredAt: c.AcquiredAt.UTC().Format(time.RFC3339),
	}
}

// FromTransaction maps a ledger entry to its API view.
func FromTransaction(t domain.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:          t.ID.String(),
		Kind:        string(t.Kind),
		Currency:    string(t.Currency),
		Amount:      t.Amount.String(),
		Status:      string(t.Status),
		Details:     t.Details,
		Method:      string(t.Method),
		Destination: t.Destination,
		CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339),
	}
	if t.ProcessedAt != nil {
		s := t.ProcessedAt.UTC().Format(time.RFC3339)
		resp.ProcessedAt = &s
	}
	return resp
}

// FromTransactions maps a slice of ledger entries.
func FromTransactions(txs []domain.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, FromTransaction(t))
	}
	return out
}

// FromSummary maps an earnings summary to its API view.
func FromSummary(s *ports.EarningsSummary) SummaryResponse {
	rows := make([]SummaryRowResponse, 0, len(s.Rows))
	for _, r := range s.Rows {
		rows = append(rows, SummaryRowResponse{
			Kind:     string(r.Kind),
			Currency: string(r.Currency),
			Count:    r.Count,
			Total:    r.Total.String(),
		})
	}
	return SummaryResponse{Period: s.Period, Rows: rows}
}
