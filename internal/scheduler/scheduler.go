package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/blizzgame/marketplace/internal/clock"
	"github.com/blizzgame/marketplace/internal/config"
	obsmetrics "github.com/blizzgame/marketplace/internal/observability/metrics"
	paymentdomain "github.com/blizzgame/marketplace/internal/payment/domain"
	reputationdomain "github.com/blizzgame/marketplace/internal/reputation/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	JobStalePayments       = "stale_payments"
	JobReputationRecompute = "reputation_recompute"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	PaymentRepo   paymentdomain.Repository
	PaymentSvc    paymentdomain.Service
	ReputationSvc reputationdomain.Service
	Tiers         *config.ReputationConfigHolder `optional:"true"`
	JobMetrics    *obsmetrics.JobMetrics         `optional:"true"`
	Config        Config                         `optional:"true"`
}

// Scheduler runs the periodic reconciliation jobs: re-checking payments the
// provider never notified about and re-scoring sellers after the tier table
// changes.
type Scheduler struct {
	db            *gorm.DB
	log           *zap.Logger
	cfg           Config
	genID         *snowflake.Node
	clock         clock.Clock
	paymentRepo   paymentdomain.Repository
	paymentSvc    paymentdomain.Service
	reputationSvc reputationdomain.Service
	tiers         *config.ReputationConfigHolder
	metrics       *obsmetrics.JobMetrics

	// last tier table fingerprint scored against; owned by RunOnce's goroutine.
	scoredTiers string
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.GenID == nil || p.Clock == nil || p.PaymentRepo == nil || p.PaymentSvc == nil || p.ReputationSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:            p.DB,
		log:           p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:           p.Config.withDefaults(),
		genID:         p.GenID,
		clock:         p.Clock,
		paymentRepo:   p.PaymentRepo,
		paymentSvc:    p.PaymentSvc,
		reputationSvc: p.ReputationSvc,
		tiers:         p.Tiers,
		metrics:       p.JobMetrics,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	batchSize int,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run, owner := s.ensureJobRun(ctx, name, batchSize)
	if owner {
		s.logJobStart(ctx, run)
	}
	s.metrics.IncRun(name)

	err := fn(ctx)
	s.metrics.ObserveDuration(name, time.Since(start))
	s.metrics.AddProcessed(name, run.processedCount)
	if owner {
		if err != nil && run.errorCount == 0 {
			run.IncError()
		}
		s.logJobFinish(ctx, run)
	}
	if err == nil {
		return nil
	}

	s.metrics.IncError(name, err)
	// A deadline only cuts the batch short; the next tick resumes it.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.metrics.IncTimeout(name)
		s.logger(ctx).Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{JobStalePayments, func(ctx context.Context) error {
			return s.runJob(ctx, JobStalePayments, s.cfg.BatchSize, s.cfg.PaymentCheckTimeout, s.StalePaymentsJob)
		}},
		{JobReputationRecompute, func(ctx context.Context) error {
			return s.runJob(ctx, JobReputationRecompute, 0, 10*time.Minute, s.ReputationRecomputeJob)
		}},
	}

	for _, job := range jobs {
		if s.isJobEnabled(job.Name) {
			err = errors.Join(err, job.Run(parent))
		}
	}

	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}
