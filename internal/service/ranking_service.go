package service

import (
	"context"
	"fmt"

	"klover-backend/internal/core/ports"
	"klover-backend/pkg/apperror"

	"github.com/rs/zerolog"
)

// RankingServiceImpl implements ports.RankingService. The ranking lives in a
// Redis sorted set; rows are hydrated from the account store. When the set is
// unavailable or empty the store itself is the fallback ordering.
type RankingServiceImpl struct {
	accountRepo ports.AccountRepository
	leaderboard ports.Leaderboard
	log         zerolog.Logger
}

// NewRankingService creates a new RankingServiceImpl.
func NewRankingService(accountRepo ports.AccountRepository, leaderboard ports.Leaderboard, log zerolog.Logger) *RankingServiceImpl {
	return &RankingServiceImpl{accountRepo: accountRepo, leaderboard: leaderboard, log: log}
}

// Top returns the n highest-XP accounts.
func (s *RankingServiceImpl) Top(ctx context.Context, n int) ([]ports.RankEntry, error) {
	if n <= 0 {
		n = 10
	}

	entries, err := s.leaderboard.Top(ctx, int64(n))
	if err != nil || len(entries) == 0 {
		if err != nil {
			s.log.Warn().Err(err).Msg("leaderboard unavailable, falling back to store")
		}
		return s.topFromStore(ctx, n)
	}

	ranking := make([]ports.RankEntry, 0, len(entries))
	for i, entry := range entries {
		acct, err := s.accountRepo.GetByID(ctx, entry.AccountID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("hydrate rank %d: %w", i+1, err))
		}
		if acct == nil {
			// stale leaderboard member
			continue
		}
		ranking = append(ranking, ports.RankEntry{
			Rank:     len(ranking) + 1,
			UserID:   acct.ID,
			Username: acct.Username,
			PhotoURL: acct.PhotoURL,
			Level:    acct.Level,
			XP:       acct.XP,
		})
	}
	return ranking, nil
}

func (s *RankingServiceImpl) topFromStore(ctx context.Context, n int) ([]ports.RankEntry, error) {
	accounts, err := s.accountRepo.ListTopByXP(ctx, n)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list top accounts: %w", err))
	}

	ranking := make([]ports.RankEntry, 0, len(accounts))
	for i, acct := range accounts {
		ranking = append(ranking, ports.RankEntry{
			Rank:     i + 1,
			UserID:   acct.ID,
			Username: acct.Username,
			PhotoURL: acct.PhotoURL,
			Level:    acct.Level,
			XP:       acct.XP,
		})
	}
	return ranking, nil
}
