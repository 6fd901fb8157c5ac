package service

import (
	"math/rand/v2"
	"sync"

	"klover-backend/internal/core/domain"

	"github.com/shopspring/decimal"
)

// Selector draws entries from weighted reward tables. One instance is shared
// by every feature that needs a weighted draw (chest drops, chest payouts,
// roulette) so the selection logic exists exactly once.
type Selector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector creates a Selector with a randomly seeded generator.
func NewSelector() *Selector {
	return &Selector{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewSeededSelector creates a Selector with a fixed seed, for deterministic tests.
func NewSeededSelector(seed uint64) *Selector {
	return &Selector{rng: rand.New(rand.NewPCG(seed, seed))}
}

// Pick draws one entry proportionally to weight. The table must have been
// validated at startup; Pick panics on an empty table because that is a
// configuration error that cannot be reached through config.Load.
func (s *Selector) Pick(table domain.RewardTable) domain.RewardEntry {
	if len(table.Entries) == 0 {
		panic("selector: draw from empty reward table")
	}
	s.mu.Lock()
	r := s.rng.Int64N(table.TotalWeight())
	s.mu.Unlock()
	return pickAt(table, r)
}

// pickAt walks the table accumulating weight and returns the first entry whose
// cumulative weight exceeds r. Out-of-range r falls back to the last entry so
// the result is always deterministic.
func pickAt(table domain.RewardTable, r int64) domain.RewardEntry {
	var cum int64
	for _, e := range table.Entries {
		cum += e.Weight
		if r < cum {
			return e
		}
	}
	return table.Entries[len(table.Entries)-1]
}

// DrawAmount draws the cash amount for a payout uniformly from [Min, Max] at
// two decimal places, independently of the entry draw.
func (s *Selector) DrawAmount(p domain.RewardPayout) decimal.Decimal {
	span := p.Max.Sub(p.Min)
	if !span.IsPositive() {
		return p.Min
	}
	steps := span.Shift(2).IntPart() // number of cents in the range
	s.mu.Lock()
	n := s.rng.Int64N(steps + 1)
	s.mu.Unlock()
	return p.Min.Add(decimal.New(n, -2))
}
