package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PayoutKind says what a reward table entry pays when drawn.
type PayoutKind string

const (
	PayoutCash  PayoutKind = "CASH"
	PayoutSpins PayoutKind = "SPINS"
	PayoutChest PayoutKind = "CHEST"
)

// RewardPayout is the prize attached to a table entry. For CASH the amount is
// drawn uniformly from [Min, Max] (Min == Max for a fixed prize).
type RewardPayout struct {
	Kind     PayoutKind      `json:"kind"`
	Currency Currency        `json:"currency,omitempty"`
	Min      decimal.Decimal `json:"min,omitempty"`
	Max      decimal.Decimal `json:"max,omitempty"`
	Spins    int             `json:"spins,omitempty"`
	Rarity   ChestRarity     `json:"rarity,omitempty"`
}

// RewardEntry is one outcome in a weighted table. Weight is relative
// probability mass, not a percentage.
type RewardEntry struct {
	ID     string       `json:"id"`
	Label  string       `json:"label"`
	Weight int64        `json:"weight"`
	Payout RewardPayout `json:"payout"`
}

// RewardTable is a fixed set of weighted outcomes (chest rarities, roulette
// prizes). It must stay static during a draw.
type RewardTable struct {
	Name    string        `json:"name"`
	Entries []RewardEntry `json:"entries"`
}

// TotalWeight sums the entry weights.
func (t RewardTable) TotalWeight() int64 {
	var total int64
	for _, e := range t.Entries {
		total += e.Weight
	}
	return total
}

// Find returns the entry with the given id.
func (t RewardTable) Find(id string) (RewardEntry, bool) {
	for _, e := range t.Entries {
		if e.ID == id {
			return e, true
		}
	}
	return RewardEntry{}, false
}

// Validate checks the table is drawable. A malformed table is a configuration
// error and must abort startup, never surface at request time.
func (t RewardTable) Validate() error {
	if len(t.Entries) == 0 {
		return fmt.Errorf("reward table %q has no entries", t.Name)
	}
	for _, e := range t.Entries {
		if e.Weight <= 0 {
			return fmt.Errorf("reward table %q entry %q has non-positive weight %d", t.Name, e.ID, e.Weight)
		}
		if e.Payout.Kind == PayoutCash {
			if e.Payout.Min.IsNegative() || e.Payout.Max.LessThan(e.Payout.Min) {
				return fmt.Errorf("reward table %q entry %q has invalid cash range [%s, %s]",
					t.Name, e.ID, e.Payout.Min, e.Payout.Max)
			}
			if e.Payout.Currency == "" {
				return fmt.Errorf("reward table %q entry %q has no currency", t.Name, e.ID)
			}
		}
	}
	if t.TotalWeight() <= 0 {
		return fmt.Errorf("reward table %q has non-positive total weight", t.Name)
	}
	return nil
}
