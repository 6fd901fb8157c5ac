package config

import (
	"fmt"
	"strings"
	"time"

	"klover-backend/internal/core/domain"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Rewards    RewardsConfig    `mapstructure:"rewards"`
	Withdrawal WithdrawalConfig `mapstructure:"withdrawal"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	// EncryptionKey is the AES-256 key (64 hex chars) for payout
	// destinations at rest.
	EncryptionKey string `mapstructure:"encryption_key"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	InitDataMaxAge time.Duration `mapstructure:"init_data_max_age"`
}

// ChestTierConfig defines one chest rarity: its drop weight on an ad watch,
// the cash range it pays when opened, and its shop price (empty = not sold).
type ChestTierConfig struct {
	Rarity   string `mapstructure:"rarity"`
	Weight   int64  `mapstructure:"weight"`
	MinBRL   string `mapstructure:"min_brl"`
	MaxBRL   string `mapstructure:"max_brl"`
	PricePTS string `mapstructure:"price_pts"`
}

// RouletteEntryConfig defines one weighted roulette prize.
type RouletteEntryConfig struct {
	ID     string `mapstructure:"id"`
	Label  string `mapstructure:"label"`
	Weight int64  `mapstructure:"weight"`
	Kind   string `mapstructure:"kind"` // CASH, SPINS, CHEST
	Min    string `mapstructure:"min"`
	Max    string `mapstructure:"max"`
	Spins  int    `mapstructure:"spins"`
	Rarity string `mapstructure:"rarity"`
}

// MissionConfig defines one claimable mission.
type MissionConfig struct {
	ID         string `mapstructure:"id"`
	Title      string `mapstructure:"title"`
	Cadence    string `mapstructure:"cadence"` // DAILY, WEEKLY
	Goal       int    `mapstructure:"goal"`
	RewardKind string `mapstructure:"reward_kind"` // XP, CHEST, CASH
	XP         int64  `mapstructure:"xp"`
	Rarity     string `mapstructure:"rarity"`
	Amount     string `mapstructure:"amount"`
}

type RewardsConfig struct {
	AdXP          int64                 `mapstructure:"ad_xp"`
	DailyAdCap    int                   `mapstructure:"daily_ad_cap"`
	ReferralRate  string                `mapstructure:"referral_rate"`
	LevelBaseXP   int64                 `mapstructure:"level_base_xp"`
	LevelGrowth   float64               `mapstructure:"level_growth"`
	LevelBonusBRL string                `mapstructure:"level_bonus_brl"`
	Chests        []ChestTierConfig     `mapstructure:"chests"`
	Roulette      []RouletteEntryConfig `mapstructure:"roulette"`
	Missions      []MissionConfig       `mapstructure:"missions"`
}

// PayoutProviderConfig holds one payout provider's endpoint and credentials.
type PayoutProviderConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

type WithdrawalConfig struct {
	// Minimums maps method (PIX, TON) to the minimum withdrawal amount.
	Minimums map[string]string `mapstructure:"minimums"`
	// Providers maps currency (BRL, TON) to its payout provider.
	Providers       map[string]PayoutProviderConfig `mapstructure:"providers"`
	PayoutTimeout   time.Duration                   `mapstructure:"payout_timeout"`
	ResumeInterval  time.Duration                   `mapstructure:"resume_interval"`
	ResumeOlderThan time.Duration                   `mapstructure:"resume_older_than"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// methodCurrencies maps withdrawal methods to their payout currency.
var methodCurrencies = map[domain.WithdrawalMethod]domain.Currency{
	domain.MethodPIX: domain.CurrencyBRL,
	domain.MethodTON: domain.CurrencyTON,
}

// MethodCurrency returns the currency a withdrawal method pays out in.
func MethodCurrency(method domain.WithdrawalMethod) (domain.Currency, bool) {
	cur, ok := methodCurrencies[method]
	return cur, ok
}

// DropTable builds the chest rarity table drawn on every ad watch.
func (r RewardsConfig) DropTable() (domain.RewardTable, error) {
	table := domain.RewardTable{Name: "chest_drop"}
	for _, tier := range r.Chests {
		table.Entries = append(table.Entries, domain.RewardEntry{
			ID:     strings.ToLower(tier.Rarity),
			Label:  tier.Rarity + " chest",
			Weight: tier.Weight,
			Payout: domain.RewardPayout{
				Kind:   domain.PayoutChest,
				Rarity: domain.ChestRarity(tier.Rarity),
			},
		})
	}
	if err := table.Validate(); err != nil {
		return domain.RewardTable{}, err
	}
	return table, nil
}

// ChestPayouts builds the cash range each rarity pays when opened.
func (r RewardsConfig) ChestPayouts() (map[domain.ChestRarity]domain.RewardPayout, error) {
	payouts := make(map[domain.ChestRarity]domain.RewardPayout, len(r.Chests))
	for _, tier := range r.Chests {
		min, err := decimal.NewFromString(tier.MinBRL)
		if err != nil {
			return nil, fmt.Errorf("chest tier %s: invalid min_brl %q: %w", tier.Rarity, tier.MinBRL, err)
		}
		max, err := decimal.NewFromString(tier.MaxBRL)
		if err != nil {
			return nil, fmt.Errorf("chest tier %s: invalid max_brl %q: %w", tier.Rarity, tier.MaxBRL, err)
		}
		if max.LessThan(min) || min.IsNegative() {
			return nil, fmt.Errorf("chest tier %s: invalid payout range [%s, %s]", tier.Rarity, min, max)
		}
		payouts[domain.ChestRarity(tier.Rarity)] = domain.RewardPayout{
			Kind:     domain.PayoutCash,
			Currency: domain.CurrencyBRL,
			Min:      min,
			Max:      max,
		}
	}
	return payouts, nil
}

// ChestPrices builds the shop price per rarity. Tiers without a price are
// not purchasable.
func (r RewardsConfig) ChestPrices() (map[domain.ChestRarity]decimal.Decimal, error) {
	prices := make(map[domain.ChestRarity]decimal.Decimal)
	for _, tier := range r.Chests {
		if tier.PricePTS == "" {
			continue
		}
		price, err := decimal.NewFromString(tier.PricePTS)
		if err != nil {
			return nil, fmt.Errorf("chest tier %s: invalid price_pts %q: %w", tier.Rarity, tier.PricePTS, err)
		}
		if !price.IsPositive() {
			return nil, fmt.Errorf("chest tier %s: price must be positive, got %s", tier.Rarity, price)
		}
		prices[domain.ChestRarity(tier.Rarity)] = price
	}
	return prices, nil
}

// RouletteTable builds the weighted roulette prize table.
func (r RewardsConfig) RouletteTable() (domain.RewardTable, error) {
	table := domain.RewardTable{Name: "roulette"}
	for _, e := range r.Roulette {
		payout := domain.RewardPayout{Kind: domain.PayoutKind(e.Kind)}
		switch payout.Kind {
		case domain.PayoutCash:
			min, err := decimal.NewFromString(e.Min)
			if err != nil {
				return domain.RewardTable{}, fmt.Errorf("roulette entry %s: invalid min %q: %w", e.ID, e.Min, err)
			}
			max, err := decimal.NewFromString(e.Max)
			if err != nil {
				return domain.RewardTable{}, fmt.Errorf("roulette entry %s: invalid max %q: %w", e.ID, e.Max, err)
			}
			payout.Currency = domain.CurrencyBRL
			payout.Min = min
			payout.Max = max
		case domain.PayoutSpins:
			payout.Spins = e.Spins
		case domain.PayoutChest:
			payout.Rarity = domain.ChestRarity(e.Rarity)
		default:
			return domain.RewardTable{}, fmt.Errorf("roulette entry %s: unknown kind %q", e.ID, e.Kind)
		}
		table.Entries = append(table.Entries, domain.RewardEntry{
			ID:     e.ID,
			Label:  e.Label,
			Weight: e.Weight,
			Payout: payout,
		})
	}
	if err := table.Validate(); err != nil {
		return domain.RewardTable{}, err
	}
	return table, nil
}

// MissionCatalog builds the configured mission set.
func (r RewardsConfig) MissionCatalog() (domain.MissionCatalog, error) {
	catalog := make(domain.MissionCatalog, 0, len(r.Missions))
	for _, m := range r.Missions {
		if m.Goal <= 0 {
			return nil, fmt.Errorf("mission %s: goal must be positive, got %d", m.ID, m.Goal)
		}
		reward := domain.MissionReward{Kind: domain.MissionRewardKind(m.RewardKind)}
		switch reward.Kind {
		case domain.MissionRewardXP:
			if m.XP <= 0 {
				return nil, fmt.Errorf("mission %s: xp reward must be positive", m.ID)
			}
			reward.XP = m.XP
		case domain.MissionRewardChest:
			reward.Rarity = domain.ChestRarity(m.Rarity)
		case domain.MissionRewardCash:
			amount, err := decimal.NewFromString(m.Amount)
			if err != nil {
				return nil, fmt.Errorf("mission %s: invalid amount %q: %w", m.ID, m.Amount, err)
			}
			reward.Currency = domain.CurrencyBRL
			reward.Amount = amount
		default:
			return nil, fmt.Errorf("mission %s: unknown reward kind %q", m.ID, m.RewardKind)
		}
		catalog = append(catalog, domain.Mission{
			ID:      m.ID,
			Title:   m.Title,
			Cadence: domain.MissionCadence(m.Cadence),
			Goal:    m.Goal,
			Reward:  reward,
		})
	}
	return catalog, nil
}

// ReferralRateDecimal parses the configured commission fraction.
func (r RewardsConfig) ReferralRateDecimal() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(r.ReferralRate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid referral_rate %q: %w", r.ReferralRate, err)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("referral_rate must be in [0, 1), got %s", rate)
	}
	return rate, nil
}

// LevelBonusDecimal parses the per-level bonus amount.
func (r RewardsConfig) LevelBonusDecimal() (decimal.Decimal, error) {
	bonus, err := decimal.NewFromString(r.LevelBonusBRL)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid level_bonus_brl %q: %w", r.LevelBonusBRL, err)
	}
	return bonus, nil
}

// ParsedMinimums parses the per-method withdrawal minimums and rejects
// methods with no known payout currency.
func (w WithdrawalConfig) ParsedMinimums() (map[domain.WithdrawalMethod]decimal.Decimal, error) {
	minimums := make(map[domain.WithdrawalMethod]decimal.Decimal, len(w.Minimums))
	for rawMethod, rawMin := range w.Minimums {
		method := domain.WithdrawalMethod(strings.ToUpper(rawMethod))
		if _, ok := methodCurrencies[method]; !ok {
			return nil, fmt.Errorf("withdrawal minimums: unknown method %q", rawMethod)
		}
		min, err := decimal.NewFromString(rawMin)
		if err != nil {
			return nil, fmt.Errorf("withdrawal minimum for %s: invalid amount %q: %w", method, rawMin, err)
		}
		if !min.IsPositive() {
			return nil, fmt.Errorf("withdrawal minimum for %s must be positive, got %s", method, min)
		}
		minimums[method] = min
	}
	return minimums, nil
}

// Validate parses every derived value once so a malformed configuration
// aborts startup instead of surfacing at request time.
func (c *Config) Validate() error {
	if _, err := c.Rewards.DropTable(); err != nil {
		return err
	}
	if _, err := c.Rewards.ChestPayouts(); err != nil {
		return err
	}
	if _, err := c.Rewards.ChestPrices(); err != nil {
		return err
	}
	if _, err := c.Rewards.RouletteTable(); err != nil {
		return err
	}
	if _, err := c.Rewards.MissionCatalog(); err != nil {
		return err
	}
	if _, err := c.Rewards.ReferralRateDecimal(); err != nil {
		return err
	}
	if _, err := c.Rewards.LevelBonusDecimal(); err != nil {
		return err
	}
	if _, err := c.Withdrawal.ParsedMinimums(); err != nil {
		return err
	}
	if n := len(c.Database.EncryptionKey); n != 64 {
		return fmt.Errorf("database.encryption_key must be 64 hex characters, got %d", n)
	}
	if c.Rewards.AdXP <= 0 {
		return fmt.Errorf("rewards.ad_xp must be positive, got %d", c.Rewards.AdXP)
	}
	if c.Rewards.DailyAdCap <= 0 {
		return fmt.Errorf("rewards.daily_ad_cap must be positive, got %d", c.Rewards.DailyAdCap)
	}
	if c.Rewards.LevelGrowth <= 1 {
		return fmt.Errorf("rewards.level_growth must be > 1, got %v", c.Rewards.LevelGrowth)
	}
	return nil
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: KLV.
// Nested keys use underscore: KLV_DATABASE_HOST, KLV_JWT_SECRET, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: KLV_DATABASE_HOST -> database.host
	v.SetEnvPrefix("KLV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required — env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "klover")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	// dev-only key, override in production
	v.SetDefault("database.encryption_key", "0000000000000000000000000000000000000000000000000000000000000000")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "klover-backend")

	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.init_data_max_age", "24h")

	v.SetDefault("rewards.ad_xp", 10)
	v.SetDefault("rewards.daily_ad_cap", 30)
	v.SetDefault("rewards.referral_rate", "0.15")
	v.SetDefault("rewards.level_base_xp", 100)
	v.SetDefault("rewards.level_growth", 1.15)
	v.SetDefault("rewards.level_bonus_brl", "0.01")
	v.SetDefault("rewards.chests", defaultChestTiers())
	v.SetDefault("rewards.roulette", defaultRouletteEntries())
	v.SetDefault("rewards.missions", defaultMissions())

	v.SetDefault("withdrawal.minimums", map[string]string{
		"PIX": "5.00",
		"TON": "1.0",
	})
	v.SetDefault("withdrawal.payout_timeout", "30s")
	v.SetDefault("withdrawal.resume_interval", "5m")
	v.SetDefault("withdrawal.resume_older_than", "10m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

func defaultChestTiers() []map[string]interface{} {
	return []map[string]interface{}{
		{"rarity": "COMMON", "weight": 650, "min_brl": "0.01", "max_brl": "0.05", "price_pts": "100"},
		{"rarity": "RARE", "weight": 250, "min_brl": "0.05", "max_brl": "0.15", "price_pts": "250"},
		{"rarity": "EPIC", "weight": 70, "min_brl": "0.20", "max_brl": "0.50", "price_pts": "600"},
		{"rarity": "LEGENDARY", "weight": 20, "min_brl": "0.50", "max_brl": "2.00", "price_pts": "1500"},
		{"rarity": "DIVINE", "weight": 9, "min_brl": "2.50", "max_brl": "10.00", "price_pts": "4000"},
		{"rarity": "ULTRA_DIVINE", "weight": 1, "min_brl": "10.00", "max_brl": "50.00", "price_pts": ""},
	}
}

func defaultRouletteEntries() []map[string]interface{} {
	return []map[string]interface{}{
		{"id": "cash_tiny", "label": "R$ 0.01", "weight": 400, "kind": "CASH", "min": "0.01", "max": "0.01"},
		{"id": "cash_small", "label": "R$ 0.05", "weight": 300, "kind": "CASH", "min": "0.05", "max": "0.05"},
		{"id": "cash_medium", "label": "R$ 0.25", "weight": 150, "kind": "CASH", "min": "0.25", "max": "0.25"},
		{"id": "cash_large", "label": "R$ 1.00", "weight": 50, "kind": "CASH", "min": "1.00", "max": "1.00"},
		{"id": "extra_spin", "label": "Extra spin", "weight": 80, "kind": "SPINS", "spins": 1},
		{"id": "rare_chest", "label": "Rare chest", "weight": 19, "kind": "CHEST", "rarity": "RARE"},
		{"id": "epic_chest", "label": "Epic chest", "weight": 1, "kind": "CHEST", "rarity": "EPIC"},
	}
}

func defaultMissions() []map[string]interface{} {
	return []map[string]interface{}{
		{"id": "daily_watch_5", "title": "Watch 5 ads", "cadence": "DAILY", "goal": 5, "reward_kind": "XP", "xp": 25},
		{"id": "daily_watch_10", "title": "Watch 10 ads", "cadence": "DAILY", "goal": 10, "reward_kind": "CHEST", "rarity": "RARE"},
		{"id": "weekly_watch_50", "title": "Watch 50 ads", "cadence": "WEEKLY", "goal": 50, "reward_kind": "CASH", "amount": "0.50"},
	}
}
