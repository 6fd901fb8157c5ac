package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"klover-backend/internal/core/domain"
	"klover-backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// LevelCurve is the fixed, deterministic XP curve.
type LevelCurve struct {
	BaseXP int64   // XP required to reach level 2
	Growth float64 // multiplier per level
}

// ThresholdXP returns the total XP an account needs to hold the given level.
// Level 1 is free; level n (n >= 2) requires floor(base * growth^(n-2)).
func (c LevelCurve) ThresholdXP(level int) int64 {
	if level <= 1 {
		return 0
	}
	return int64(math.Floor(float64(c.BaseXP) * math.Pow(c.Growth, float64(level-2))))
}

// LevelUpResult reports what AddXP did.
type LevelUpResult struct {
	NewLevel     int
	LevelsGained int
	BonusGranted decimal.Decimal
}

// Progression owns XP, leveling and mission progress. Level and XP only ever
// increase.
type Progression struct {
	ledger        *Ledger
	curve         LevelCurve
	bonusPerLevel decimal.Decimal // BRL credited per level gained, scaled by the new level
	log           zerolog.Logger
}

// NewProgression creates a Progression tracker.
func NewProgression(ledger *Ledger, curve LevelCurve, bonusPerLevel decimal.Decimal, log zerolog.Logger) *Progression {
	return &Progression{ledger: ledger, curve: curve, bonusPerLevel: bonusPerLevel, log: log}
}

// AddXP increments the account's XP and applies every level-up the new total
// unlocks, supporting multi-level jumps in one call. Each level gained credits
// a fixed bonus (bonusPerLevel * newLevel) through the ledger as a
// MISSION_REWARD attributed to the level-up.
func (p *Progression) AddXP(ctx context.Context, dbTx pgx.Tx, acct *domain.Account, amount int64) (LevelUpResult, error) {
	if amount < 0 {
		return LevelUpResult{}, apperror.InternalError(fmt.Errorf("negative xp grant %d", amount))
	}
	acct.XP += amount

	result := LevelUpResult{NewLevel: acct.Level, BonusGranted: decimal.Zero}
	for acct.XP >= p.curve.ThresholdXP(acct.Level+1) {
		acct.Level++
		result.LevelsGained++
		result.NewLevel = acct.Level

		if p.bonusPerLevel.IsPositive() {
			bonus := p.bonusPerLevel.Mul(decimal.NewFromInt(int64(acct.Level)))
			if _, err := p.ledger.Credit(ctx, dbTx, acct, domain.CurrencyBRL, bonus,
				domain.KindMissionReward, fmt.Sprintf("level-up bonus (level %d)", acct.Level)); err != nil {
				return LevelUpResult{}, err
			}
			result.BonusGranted = result.BonusGranted.Add(bonus)
		}
	}

	if result.LevelsGained > 0 {
		p.log.Info().
			Str("account_id", acct.ID).
			Int("new_level", acct.Level).
			Int("levels_gained", result.LevelsGained).
			Msg("account leveled up")
	}
	return result, nil
}

// IncrementMission advances a mission counter, clamped at the goal. The
// terminal claimed flag is untouched; only ClaimMission flips it.
func (p *Progression) IncrementMission(acct *domain.Account, mission domain.Mission, delta int) {
	st := acct.MissionStateFor(mission.ID)
	st.Progress += delta
	if st.Progress > mission.Goal {
		st.Progress = mission.Goal
	}
}

// ClaimMission grants the mission reward once progress has reached the goal.
// The claimed flag is terminal; a second claim fails with AlreadyClaimed and
// grants nothing.
func (p *Progression) ClaimMission(ctx context.Context, dbTx pgx.Tx, acct *domain.Account, mission domain.Mission) (*domain.Chest, []domain.Transaction, error) {
	st := acct.MissionStateFor(mission.ID)
	if st.Claimed {
		return nil, nil, apperror.ErrMissionAlreadyClaimed()
	}
	if st.Progress < mission.Goal {
		return nil, nil, apperror.ErrMissionNotComplete()
	}

	var txns []domain.Transaction
	var grantedChest *domain.Chest

	switch mission.Reward.Kind {
	case domain.MissionRewardXP:
		if _, err := p.AddXP(ctx, dbTx, acct, mission.Reward.XP); err != nil {
			return nil, nil, err
		}
	case domain.MissionRewardCash:
		txn, err := p.ledger.Credit(ctx, dbTx, acct, mission.Reward.Currency, mission.Reward.Amount,
			domain.KindMissionReward, fmt.Sprintf("mission %s reward", mission.ID))
		if err != nil {
			return nil, nil, err
		}
		txns = append(txns, *txn)
	case domain.MissionRewardChest:
		chest := domain.Chest{
			ID:         uuid.NewString(),
			Rarity:     mission.Reward.Rarity,
			AcquiredAt: time.Now().UTC(),
		}
		acct.AddChest(chest)
		grantedChest = &chest
	default:
		return nil, nil, apperror.InternalError(fmt.Errorf("mission %s has unknown reward kind %q", mission.ID, mission.Reward.Kind))
	}

	st.Claimed = true

	p.log.Info().
		Str("account_id", acct.ID).
		Str("mission_id", mission.ID).
		Str("reward_kind", string(mission.Reward.Kind)).
		Msg("mission claimed")

	return grantedChest, txns, nil
}
