package service

import (
	"context"
	"fmt"

	"klover-backend/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Referral pays a flat commission on ad-reward cash earned by a referred
// account. Commissions are best effort: a failure to pay the referrer never
// blocks the earner's own reward.
type Referral struct {
	ledger *Ledger
	rate   decimal.Decimal
	log    zerolog.Logger
}

// NewReferral creates the commission calculator. rate is a fraction of every
// ad-reward credit (0.15 means 15%).
func NewReferral(ledger *Ledger, rate decimal.Decimal, log zerolog.Logger) *Referral {
	return &Referral{ledger: ledger, rate: rate, log: log}
}

// Rate returns the configured commission fraction.
func (r *Referral) Rate() decimal.Decimal {
	return r.rate
}

// Apply credits the referrer with rate * earned in the same currency. The
// referrer account must already be locked inside the same transaction as the
// earner. A nil referrer is a no-op.
func (r *Referral) Apply(ctx context.Context, dbTx pgx.Tx, earner *domain.Account, referrer *domain.Account, currency domain.Currency, earned decimal.Decimal) (*domain.Transaction, error) {
	if referrer == nil || !r.rate.IsPositive() || !earned.IsPositive() {
		return nil, nil
	}

	commission := earned.Mul(r.rate).Round(8)
	if !commission.IsPositive() {
		return nil, nil
	}

	txn, err := r.ledger.Credit(ctx, dbTx, referrer, currency, commission,
		domain.KindReferralCommission, fmt.Sprintf("referral commission from %s", earner.ID))
	if err != nil {
		return nil, err
	}
	referrer.ReferralEarnings = referrer.ReferralEarnings.Add(commission)

	r.log.Debug().
		Str("earner_id", earner.ID).
		Str("referrer_id", referrer.ID).
		Str("commission", commission.String()).
		Msg("referral commission credited")

	return txn, nil
}
