package service

import (
	"context"
	"fmt"
	"time"

	"klover-backend/internal/core/ports"
	"klover-backend/pkg/apperror"

	"github.com/rs/zerolog"
)

// reportingService implements ports.ReportingService.
type reportingService struct {
	txRepo ports.TransactionRepository
	log    zerolog.Logger
}

// NewReportingService creates a new reporting service.
func NewReportingService(txRepo ports.TransactionRepository, log zerolog.Logger) ports.ReportingService {
	return &reportingService{txRepo: txRepo, log: log}
}

// EarningsSummary returns the account's committed ledger activity grouped by
// kind and currency, optionally restricted to a recent period.
func (s *reportingService) EarningsSummary(ctx context.Context, accountID, period string) (*ports.EarningsSummary, error) {
	var since *time.Time

	switch period {
	case "day":
		t := time.Now().UTC().AddDate(0, 0, -1)
		since = &t
	case "week":
		t := time.Now().UTC().AddDate(0, 0, -7)
		since = &t
	case "month":
		t := time.Now().UTC().AddDate(0, -1, 0)
		since = &t
	case "all", "":
		period = "all"
	default:
		return nil, apperror.Validation("invalid period: must be day, week, month, or all")
	}

	rows, err := s.txRepo.SummarizeCommitted(ctx, accountID, since)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("summarize ledger: %w", err))
	}

	return &ports.EarningsSummary{Period: period, Rows: rows}, nil
}
