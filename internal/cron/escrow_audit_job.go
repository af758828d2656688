package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/widyatama/jasaku-backend/internal/ledger"
	"github.com/widyatama/jasaku-backend/pkg/enums"
	"github.com/widyatama/jasaku-backend/pkg/logger"
)

const (
	defaultRefundStaleDays    = 14
	defaultPendingPayoutStale = 7 * 24 * time.Hour
)

type balanceAuditor interface {
	ListDriftedBalances(ctx context.Context) ([]ledger.BalanceDrift, error)
}

type escrowAuditor interface {
	CountByStatusOlderThan(ctx context.Context, status enums.EscrowStatus, cutoff time.Time) (int64, error)
}

type withdrawalAuditor interface {
	CountPendingOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// EscrowAuditJobParams configure the money reconciliation sweep.
type EscrowAuditJobParams struct {
	Logger          *logger.Logger
	Ledger          balanceAuditor
	Escrows         escrowAuditor
	Withdrawals     withdrawalAuditor
	RefundStaleDays int
	PendingAge      time.Duration
}

// NewEscrowAuditJob builds the cron job that reconciles freelancer
// balances against their ledger entries and flags escrows parked in
// refund_pending and withdrawals parked in pending past their staleness
// windows. The job never repairs anything; drift is an operator problem,
// not something to paper over.
func NewEscrowAuditJob(params EscrowAuditJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Escrows == nil {
		return nil, fmt.Errorf("escrow repository required")
	}
	if params.Withdrawals == nil {
		return nil, fmt.Errorf("withdrawals repository required")
	}
	staleDays := params.RefundStaleDays
	if staleDays <= 0 {
		staleDays = defaultRefundStaleDays
	}
	pendingAge := params.PendingAge
	if pendingAge <= 0 {
		pendingAge = defaultPendingPayoutStale
	}
	return &escrowAuditJob{
		logg:        params.Logger,
		ledger:      params.Ledger,
		escrows:     params.Escrows,
		withdrawals: params.Withdrawals,
		staleDays:   staleDays,
		pendingAge:  pendingAge,
		now:         time.Now,
	}, nil
}

type escrowAuditJob struct {
	logg        *logger.Logger
	ledger      balanceAuditor
	escrows     escrowAuditor
	withdrawals withdrawalAuditor
	staleDays   int
	pendingAge  time.Duration
	now         func() time.Time
}

func (j *escrowAuditJob) Name() string { return "escrow-audit" }

func (j *escrowAuditJob) Run(ctx context.Context) error {
	drifts, err := j.ledger.ListDriftedBalances(ctx)
	if err != nil {
		return fmt.Errorf("escrow audit: balance drift query: %w", err)
	}
	for _, drift := range drifts {
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"freelancer_id":   drift.FreelancerID,
			"available_cents": drift.AvailableCents,
			"entry_sum_cents": drift.EntrySumCents,
		})
		j.logg.Warn(logCtx, "freelancer balance does not match ledger entries")
	}

	cutoff := j.now().UTC().Add(-time.Duration(j.staleDays) * 24 * time.Hour)
	stale, err := j.escrows.CountByStatusOlderThan(ctx, enums.EscrowStatusRefundPending, cutoff)
	if err != nil {
		return fmt.Errorf("escrow audit: stale refund query: %w", err)
	}
	if stale > 0 {
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"cutoff":       cutoff,
			"stale_count":  stale,
			"stale_status": enums.EscrowStatusRefundPending,
		})
		j.logg.Warn(logCtx, "escrows parked in refund_pending past staleness window")
	}

	payoutCutoff := j.now().UTC().Add(-j.pendingAge)
	stalePayouts, err := j.withdrawals.CountPendingOlderThan(ctx, payoutCutoff)
	if err != nil {
		return fmt.Errorf("escrow audit: stale withdrawal query: %w", err)
	}
	if stalePayouts > 0 {
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"cutoff":      payoutCutoff,
			"stale_count": stalePayouts,
		})
		j.logg.Warn(logCtx, "withdrawals pending past staleness window")
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"drifted_balances":      len(drifts),
		"stale_refund_escrows":  stale,
		"stale_withdrawals":     stalePayouts,
		"refund_staleness_days": j.staleDays,
	})
	j.logg.Info(logCtx, "escrow audit complete")
	return nil
}
