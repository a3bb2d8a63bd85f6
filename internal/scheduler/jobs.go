package scheduler

import (
	"context"
	"errors"

	paymentdomain "github.com/blizzgame/marketplace/internal/payment/domain"
	"go.uber.org/zap"
)

// StalePaymentsJob re-runs the notification path for transactions the
// provider left unsettled past the configured age. The provider's verified
// status decides the outcome, exactly as for a real callback.
func (s *Scheduler) StalePaymentsJob(ctx context.Context) error {
	ctx, run, owner := s.ensureJobRun(ctx, JobStalePayments, s.cfg.BatchSize)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}

	cutoff := s.clock.Now().Add(-s.cfg.StalePaymentAfter)
	txs, err := s.paymentRepo.ListUnsettled(ctx, s.db, cutoff, s.cfg.BatchSize)
	if err != nil {
		return err
	}

	var jobErr error
	for _, tx := range txs {
		if ctx.Err() != nil {
			return errors.Join(jobErr, ctx.Err())
		}
		res, err := s.paymentSvc.HandleNotification(ctx, tx.ProviderTransactionID)
		switch {
		case errors.Is(err, paymentdomain.ErrNotificationInFlight):
			continue
		case err != nil:
			run.IncError()
			jobErr = errors.Join(jobErr, err)
			s.logger(ctx).Warn("stale payment check failed",
				zap.String("transaction_id", tx.ProviderTransactionID),
				zap.Error(err),
			)
			continue
		}
		run.AddProcessed(1)
		s.logger(ctx).Debug("stale payment checked",
			zap.String("transaction_id", tx.ProviderTransactionID),
			zap.String("outcome", res.Outcome),
		)
	}

	return jobErr
}

// ReputationRecomputeJob re-scores every seller once per tier table version.
func (s *Scheduler) ReputationRecomputeJob(ctx context.Context) error {
	if s.tiers == nil {
		return nil
	}
	fingerprint := s.tiers.Get().Fingerprint()
	if fingerprint == s.scoredTiers {
		return nil
	}

	ctx, run, owner := s.ensureJobRun(ctx, JobReputationRecompute, 0)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}

	changed, err := s.reputationSvc.RecomputeAll(ctx)
	if err != nil {
		return err
	}
	run.AddProcessed(changed)
	s.scoredTiers = fingerprint
	return nil
}
