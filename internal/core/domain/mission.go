package domain

import "github.com/shopspring/decimal"

// MissionCadence groups missions by reset period.
type MissionCadence string

const (
	CadenceDaily  MissionCadence = "DAILY"
	CadenceWeekly MissionCadence = "WEEKLY"
)

// MissionRewardKind says what claiming a mission grants.
type MissionRewardKind string

const (
	MissionRewardXP    MissionRewardKind = "XP"
	MissionRewardChest MissionRewardKind = "CHEST"
	MissionRewardCash  MissionRewardKind = "CASH"
)

// MissionReward is the prize granted once, on claim.
type MissionReward struct {
	Kind     MissionRewardKind `json:"kind"`
	XP       int64             `json:"xp,omitempty"`
	Rarity   ChestRarity       `json:"rarity,omitempty"`
	Currency Currency          `json:"currency,omitempty"`
	Amount   decimal.Decimal   `json:"amount,omitempty"`
}

// Mission is a counter-based goal (e.g. "watch N ads"). Progress is tracked
// per account in MissionState; the definition itself is static configuration.
type Mission struct {
	ID      string         `json:"id"`
	Title   string         `json:"title"`
	Cadence MissionCadence `json:"cadence"`
	Goal    int            `json:"goal"`
	Reward  MissionReward  `json:"reward"`
}

// MissionCatalog is the configured mission set.
type MissionCatalog []Mission

// Find returns the mission definition with the given id.
func (c MissionCatalog) Find(id string) (Mission, bool) {
	for _, m := range c {
		if m.ID == id {
			return m, true
		}
	}
	return Mission{}, false
}
