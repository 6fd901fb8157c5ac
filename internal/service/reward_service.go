package service

import (
	"context"
	"fmt"
	"time"

	"klover-backend/internal/core/domain"
	"klover-backend/internal/core/ports"
	"klover-backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// RewardParams is the static reward configuration, validated at startup.
type RewardParams struct {
	AdRewardXP int64 // XP per completed ad watch
	DailyAdCap int   // ad watches per account per day

	// ChestDropTable decides which rarity drops on an ad watch (PayoutChest
	// entries). ChestPayouts holds the cash range each rarity pays on open.
	ChestDropTable domain.RewardTable
	ChestPayouts   map[domain.ChestRarity]domain.RewardPayout

	RouletteTable domain.RewardTable

	// Missions all count ad watches; progress advances once per watch.
	Missions domain.MissionCatalog

	// ChestPricesPTS is the shop price per rarity, in points.
	ChestPricesPTS map[domain.ChestRarity]decimal.Decimal
}

// RewardServiceImpl implements ports.RewardService. Every operation locks the
// account row for the duration of its read-modify-write; operations touching
// a second account (referral commission) lock both rows in ascending id
// order.
type RewardServiceImpl struct {
	accountRepo ports.AccountRepository
	txRepo      ports.TransactionRepository
	transactor  ports.DBTransactor
	adLimiter   ports.AdLimiter
	leaderboard ports.Leaderboard
	selector    *Selector
	ledger      *Ledger
	progression *Progression
	referral    *Referral
	params      RewardParams
	log         zerolog.Logger
}

// NewRewardService creates a new RewardServiceImpl.
func NewRewardService(
	accountRepo ports.AccountRepository,
	txRepo ports.TransactionRepository,
	transactor ports.DBTransactor,
	adLimiter ports.AdLimiter,
	leaderboard ports.Leaderboard,
	selector *Selector,
	ledger *Ledger,
	progression *Progression,
	referral *Referral,
	params RewardParams,
	log zerolog.Logger,
) *RewardServiceImpl {
	return &RewardServiceImpl{
		accountRepo: accountRepo,
		txRepo:      txRepo,
		transactor:  transactor,
		adLimiter:   adLimiter,
		leaderboard: leaderboard,
		selector:    selector,
		ledger:      ledger,
		progression: progression,
		referral:    referral,
		params:      params,
		log:         log,
	}
}

// CreditAdReward grants the reward for one completed ad watch: XP, one
// roulette spin, a chest drawn from the rarity table, and mission progress.
// The daily cap is consumed before any state changes.
func (s *RewardServiceImpl) CreditAdReward(ctx context.Context, accountID string) (*ports.AdRewardResult, error) {
	count, within, err := s.adLimiter.Take(ctx, accountID, s.params.DailyAdCap)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("ad limiter: %w", err))
	}
	if !within {
		return nil, apperror.ErrDailyAdLimitReached()
	}

	// give the slot back if the grant fails past this point, so a store
	// error does not burn part of the daily cap
	granted := false
	defer func() {
		if granted {
			return
		}
		if err := s.adLimiter.Release(ctx, accountID); err != nil {
			s.log.Warn().Err(err).Str("account_id", accountID).Msg("ad slot release failed")
		}
	}()

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	acct, err := s.accountRepo.GetByIDForUpdate(ctx, dbTx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock account: %w", err))
	}
	if acct == nil {
		return nil, apperror.ErrAccountNotFound()
	}

	entry := s.selector.Pick(s.params.ChestDropTable)
	chest := domain.Chest{
		ID:         uuid.NewString(),
		Rarity:     entry.Payout.Rarity,
		AcquiredAt: time.Now().UTC(),
	}
	acct.AddChest(chest)
	acct.Spins++

	for _, mission := range s.params.Missions {
		s.progression.IncrementMission(acct, mission, 1)
	}

	levelRes, err := s.progression.AddXP(ctx, dbTx, acct, s.params.AdRewardXP)
	if err != nil {
		return nil, err
	}

	// nothing monetary moves, but the watch still gets its ledger row
	if _, err := s.ledger.Note(ctx, dbTx, acct, domain.CurrencyPTS, domain.KindAdReward,
		fmt.Sprintf("ad watch %d/%d: +%d xp, +1 spin, %s chest", count, s.params.DailyAdCap, s.params.AdRewardXP, chest.Rarity)); err != nil {
		return nil, err
	}

	if err := s.accountRepo.Save(ctx, dbTx, acct); err != nil {
		return nil, err
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	granted = true

	s.updateLeaderboard(ctx, acct)

	s.log.Info().
		Str("account_id", acct.ID).
		Int("ads_today", count).
		Str("chest_rarity", string(chest.Rarity)).
		Int64("xp_granted", s.params.AdRewardXP).
		Msg("ad reward credited")

	return &ports.AdRewardResult{
		Account:     acct,
		Chest:       &chest,
		XPGranted:   s.params.AdRewardXP,
		SpinGranted: true,
		LeveledUp:   levelRes.LevelsGained > 0,
		NewLevel:    levelRes.NewLevel,
	}, nil
}

// OpenChest consumes an inventory chest and credits a cash reward drawn from
// the rarity's configured range. The referrer, when present, earns a
// commission in the same transaction.
func (s *RewardServiceImpl) OpenChest(ctx context.Context, accountID, chestID string) (*ports.RewardOutcome, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	acct, referrer, err := s.lockAccountAndReferrer(ctx, dbTx, accountID)
	if err != nil {
		return nil, err
	}

	chest, ok := acct.TakeChest(chestID)
	if !ok {
		return nil, apperror.ErrChestNotFound()
	}

	payout, ok := s.params.ChestPayouts[chest.Rarity]
	if !ok {
		return nil, apperror.InternalError(fmt.Errorf("no payout configured for rarity %s", chest.Rarity))
	}
	amount := s.selector.DrawAmount(payout)

	var txns []domain.Transaction
	creditTxn, err := s.ledger.Credit(ctx, dbTx, acct, payout.Currency, amount,
		domain.KindChestReward, fmt.Sprintf("opened %s chest", chest.Rarity))
	if err != nil {
		return nil, err
	}
	txns = append(txns, *creditTxn)

	commTxn, err := s.referral.Apply(ctx, dbTx, acct, referrer, payout.Currency, amount)
	if err != nil {
		return nil, err
	}
	if commTxn != nil {
		txns = append(txns, *commTxn)
	}

	if err := s.saveAccounts(ctx, dbTx, acct, referrerIfCredited(referrer, commTxn)); err != nil {
		return nil, err
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("account_id", acct.ID).
		Str("chest_id", chest.ID).
		Str("rarity", string(chest.Rarity)).
		Str("amount", amount.String()).
		Msg("chest opened")

	return &ports.RewardOutcome{Account: acct, Transactions: txns}, nil
}

// SpinRoulette consumes one spin credit and applies the drawn prize: cash,
// extra spins, or a chest.
func (s *RewardServiceImpl) SpinRoulette(ctx context.Context, accountID string) (*ports.SpinOutcome, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	acct, referrer, err := s.lockAccountAndReferrer(ctx, dbTx, accountID)
	if err != nil {
		return nil, err
	}

	if acct.Spins <= 0 {
		return nil, apperror.ErrNoSpinsLeft()
	}
	acct.Spins--

	entry := s.selector.Pick(s.params.RouletteTable)

	outcome := &ports.SpinOutcome{Prize: entry, Amount: decimal.Zero}
	switch entry.Payout.Kind {
	case domain.PayoutCash:
		amount := s.selector.DrawAmount(entry.Payout)
		creditTxn, err := s.ledger.Credit(ctx, dbTx, acct, entry.Payout.Currency, amount,
			domain.KindRouletteReward, fmt.Sprintf("roulette prize %s", entry.Label))
		if err != nil {
			return nil, err
		}
		outcome.Amount = amount
		outcome.Transactions = append(outcome.Transactions, *creditTxn)

		commTxn, err := s.referral.Apply(ctx, dbTx, acct, referrer, entry.Payout.Currency, amount)
		if err != nil {
			return nil, err
		}
		if commTxn != nil {
			outcome.Transactions = append(outcome.Transactions, *commTxn)
		}
		referrer = referrerIfCredited(referrer, commTxn)
	case domain.PayoutSpins:
		acct.Spins += entry.Payout.Spins
		referrer = nil
	case domain.PayoutChest:
		acct.AddChest(domain.Chest{
			ID:         uuid.NewString(),
			Rarity:     entry.Payout.Rarity,
			AcquiredAt: time.Now().UTC(),
		})
		referrer = nil
	default:
		return nil, apperror.InternalError(fmt.Errorf("roulette entry %s has unknown payout kind %q", entry.ID, entry.Payout.Kind))
	}

	if err := s.saveAccounts(ctx, dbTx, acct, referrer); err != nil {
		return nil, err
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("account_id", acct.ID).
		Str("prize", entry.ID).
		Str("amount", outcome.Amount.String()).
		Msg("roulette spin")

	outcome.Account = acct
	return outcome, nil
}

// ClaimMission grants a completed mission's reward exactly once.
func (s *RewardServiceImpl) ClaimMission(ctx context.Context, accountID, missionID string) (*ports.RewardOutcome, error) {
	mission, ok := s.params.Missions.Find(missionID)
	if !ok {
		return nil, apperror.ErrMissionNotFound()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	acct, referrer, err := s.lockAccountAndReferrer(ctx, dbTx, accountID)
	if err != nil {
		return nil, err
	}

	chest, txns, err := s.progression.ClaimMission(ctx, dbTx, acct, mission)
	if err != nil {
		return nil, err
	}

	if mission.Reward.Kind == domain.MissionRewardCash {
		commTxn, err := s.referral.Apply(ctx, dbTx, acct, referrer, mission.Reward.Currency, mission.Reward.Amount)
		if err != nil {
			return nil, err
		}
		if commTxn != nil {
			txns = append(txns, *commTxn)
		}
		referrer = referrerIfCredited(referrer, commTxn)
	} else {
		referrer = nil
	}

	if err := s.saveAccounts(ctx, dbTx, acct, referrer); err != nil {
		return nil, err
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	if mission.Reward.Kind == domain.MissionRewardXP {
		s.updateLeaderboard(ctx, acct)
	}

	return &ports.RewardOutcome{Account: acct, Transactions: txns, Chest: chest}, nil
}

// PurchaseChest buys a chest of the given rarity with points.
func (s *RewardServiceImpl) PurchaseChest(ctx context.Context, accountID string, rarity domain.ChestRarity) (*domain.Account, error) {
	price, ok := s.params.ChestPricesPTS[rarity]
	if !ok {
		return nil, apperror.ErrItemNotFound()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	acct, err := s.accountRepo.GetByIDForUpdate(ctx, dbTx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock account: %w", err))
	}
	if acct == nil {
		return nil, apperror.ErrAccountNotFound()
	}

	if _, err := s.ledger.Debit(ctx, dbTx, acct, domain.CurrencyPTS, price,
		domain.KindShopPurchase, fmt.Sprintf("%s chest purchase", rarity)); err != nil {
		return nil, err
	}
	acct.AddChest(domain.Chest{
		ID:         uuid.NewString(),
		Rarity:     rarity,
		AcquiredAt: time.Now().UTC(),
	})

	if err := s.accountRepo.Save(ctx, dbTx, acct); err != nil {
		return nil, err
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("account_id", acct.ID).
		Str("rarity", string(rarity)).
		Str("price_pts", price.String()).
		Msg("chest purchased")

	return acct, nil
}

// GetLedger returns the account's most recent ledger entries.
func (s *RewardServiceImpl) GetLedger(ctx context.Context, accountID string, limit int) ([]domain.Transaction, error) {
	txns, err := s.txRepo.ListByAccount(ctx, accountID, limit)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list ledger: %w", err))
	}
	return txns, nil
}

// lockAccountAndReferrer locks the account row and, when the account was
// referred, the referrer's row too. ReferredBy is immutable after signup, so
// it is read without a lock first and both rows are then locked in ascending
// id order to keep lock acquisition deadlock-free. A referrer id that no
// longer resolves is logged and returned as nil: commissions are best effort
// and never fail the earner's reward.
func (s *RewardServiceImpl) lockAccountAndReferrer(ctx context.Context, dbTx pgx.Tx, accountID string) (*domain.Account, *domain.Account, error) {
	peek, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("get account: %w", err))
	}
	if peek == nil {
		return nil, nil, apperror.ErrAccountNotFound()
	}

	if peek.ReferredBy == nil || *peek.ReferredBy == accountID {
		acct, err := s.accountRepo.GetByIDForUpdate(ctx, dbTx, accountID)
		if err != nil {
			return nil, nil, apperror.InternalError(fmt.Errorf("lock account: %w", err))
		}
		if acct == nil {
			return nil, nil, apperror.ErrAccountNotFound()
		}
		return acct, nil, nil
	}

	referrerID := *peek.ReferredBy
	first, second := accountID, referrerID
	if referrerID < accountID {
		first, second = referrerID, accountID
	}

	var acct, referrer *domain.Account
	for _, id := range []string{first, second} {
		row, err := s.accountRepo.GetByIDForUpdate(ctx, dbTx, id)
		if err != nil {
			return nil, nil, apperror.InternalError(fmt.Errorf("lock account %s: %w", id, err))
		}
		switch id {
		case accountID:
			if row == nil {
				return nil, nil, apperror.ErrAccountNotFound()
			}
			acct = row
		default:
			if row == nil {
				s.log.Warn().
					Str("account_id", accountID).
					Str("referrer_id", referrerID).
					Msg("referrer not found, skipping commission")
				continue
			}
			referrer = row
		}
	}
	return acct, referrer, nil
}

func (s *RewardServiceImpl) saveAccounts(ctx context.Context, dbTx pgx.Tx, acct, referrer *domain.Account) error {
	if err := s.accountRepo.Save(ctx, dbTx, acct); err != nil {
		return err
	}
	if referrer != nil {
		if err := s.accountRepo.Save(ctx, dbTx, referrer); err != nil {
			return err
		}
	}
	return nil
}

// updateLeaderboard pushes the account's XP to the ranking, best effort.
func (s *RewardServiceImpl) updateLeaderboard(ctx context.Context, acct *domain.Account) {
	if err := s.leaderboard.SetScore(ctx, acct.ID, acct.XP); err != nil {
		s.log.Warn().Err(err).Str("account_id", acct.ID).Msg("leaderboard update failed")
	}
}

// referrerIfCredited returns the referrer only when a commission row was
// actually appended, so saveAccounts does not persist an untouched row.
func referrerIfCredited(referrer *domain.Account, commission *domain.Transaction) *domain.Account {
	if commission == nil {
		return nil
	}
	return referrer
}
