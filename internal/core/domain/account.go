package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Currency is a balance bucket code.
type Currency string

const (
	CurrencyBRL Currency = "BRL" // primary fiat
	CurrencyTON Currency = "TON" // token
	CurrencyPTS Currency = "PTS" // shop points
)

// AccountStatus represents the moderation state of an account.
type AccountStatus string

const (
	AccountStatusActive AccountStatus = "ACTIVE"
	AccountStatusBanned AccountStatus = "BANNED"
)

// ChestRarity is the tier of a reward container.
type ChestRarity string

const (
	RarityCommon      ChestRarity = "COMMON"
	RarityRare        ChestRarity = "RARE"
	RarityEpic        ChestRarity = "EPIC"
	RarityLegendary   ChestRarity = "LEGENDARY"
	RarityDivine      ChestRarity = "DIVINE"
	RarityUltraDivine ChestRarity = "ULTRA_DIVINE"
)

// Chest is a consumable inventory item. Opening it removes it from the
// inventory and credits a randomly sized reward based on its rarity.
type Chest struct {
	ID         string      `json:"id"`
	Rarity     ChestRarity `json:"rarity"`
	AcquiredAt time.Time   `json:"acquired_at"`
}

// MissionState tracks one account's progress on a mission. Claimed is
// terminal: it is set exactly once and never reset.
type MissionState struct {
	Progress int  `json:"progress"`
	Claimed  bool `json:"claimed"`
}

// Account is the aggregate owned and mutated exclusively by the engine.
// The storage layer only persists and retrieves snapshots of it.
type Account struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	PhotoURL string `json:"photo_url,omitempty"`

	// Balances maps currency to a non-negative amount. Every mutation goes
	// through the ledger so a committed operation can never drive one negative.
	Balances map[Currency]decimal.Decimal `json:"balances"`

	XP    int64 `json:"xp"`
	Level int   `json:"level"`
	Spins int   `json:"spins"`

	Inventory []Chest                  `json:"inventory"`
	Missions  map[string]*MissionState `json:"missions"`

	// ReferredBy is an id-only back reference, never an ownership link.
	ReferredBy       *string         `json:"referred_by,omitempty"`
	ReferralEarnings decimal.Decimal `json:"referral_earnings"` // display only

	Status   AccountStatus `json:"status"`
	Version  int64         `json:"-"` // optimistic concurrency token
	JoinedAt time.Time     `json:"joined_at"`
}

// NewAccount creates an active level-1 account with empty balances.
func NewAccount(id, username string, now time.Time) *Account {
	return &Account{
		ID:               id,
		Username:         username,
		Balances:         make(map[Currency]decimal.Decimal),
		Level:            1,
		Inventory:        []Chest{},
		Missions:         make(map[string]*MissionState),
		ReferralEarnings: decimal.Zero,
		Status:           AccountStatusActive,
		JoinedAt:         now,
	}
}

// Balance returns the balance for a currency, zero when the bucket is absent.
func (a *Account) Balance(c Currency) decimal.Decimal {
	if b, ok := a.Balances[c]; ok {
		return b
	}
	return decimal.Zero
}

// SetBalance replaces a currency bucket. Only the ledger calls this.
func (a *Account) SetBalance(c Currency, amount decimal.Decimal) {
	if a.Balances == nil {
		a.Balances = make(map[Currency]decimal.Decimal)
	}
	a.Balances[c] = amount
}

// TakeChest removes a chest from the inventory by id, returning it.
func (a *Account) TakeChest(chestID string) (Chest, bool) {
	for i, c := range a.Inventory {
		if c.ID == chestID {
			a.Inventory = append(a.Inventory[:i], a.Inventory[i+1:]...)
			return c, true
		}
	}
	return Chest{}, false
}

// AddChest appends a chest to the inventory.
func (a *Account) AddChest(c Chest) {
	a.Inventory = append(a.Inventory, c)
}

// MissionState returns the progress record for a mission, creating it lazily.
func (a *Account) MissionStateFor(missionID string) *MissionState {
	if a.Missions == nil {
		a.Missions = make(map[string]*MissionState)
	}
	st, ok := a.Missions[missionID]
	if !ok {
		st = &MissionState{}
		a.Missions[missionID] = st
	}
	return st
}

// Clone returns a deep copy of the account. Used by in-memory stores so the
// engine never aliases persisted state.
func (a *Account) Clone() *Account {
	cp := *a
	cp.Balances = make(map[Currency]decimal.Decimal, len(a.Balances))
	for k, v := range a.Balances {
		cp.Balances[k] = v
	}
	cp.Inventory = append([]Chest(nil), a.Inventory...)
	cp.Missions = make(map[string]*MissionState, len(a.Missions))
	for k, v := range a.Missions {
		st := *v
		cp.Missions[k] = &st
	}
	if a.ReferredBy != nil {
		ref := *a.ReferredBy
		cp.ReferredBy = &ref
	}
	return &cp
}
