package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/blizzgame/marketplace/internal/clock"
	"github.com/blizzgame/marketplace/internal/config"
	"github.com/blizzgame/marketplace/internal/events"
	"github.com/blizzgame/marketplace/internal/observability/logger"
	"github.com/blizzgame/marketplace/internal/observability/metrics"
	"github.com/blizzgame/marketplace/internal/reputation/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      domain.Repository
	Tiers     *config.ReputationConfigHolder
	Clock     clock.Clock      `optional:"true"`
	Publisher events.Publisher `optional:"true"`
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      domain.Repository
	tiers     *config.ReputationConfigHolder
	clock     clock.Clock
	publisher events.Publisher
	metrics   *metrics.Metrics
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("reputation.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		tiers:     p.Tiers,
		clock:     clk,
		publisher: p.Publisher,
		metrics:   p.Metrics,
	}
}

func (s *Service) RecordOutcome(ctx context.Context, req domain.RecordOutcomeRequest) (*domain.Reputation, error) {
	if req.SellerID <= 0 {
		return nil, domain.ErrInvalidSeller
	}
	txID := strings.TrimSpace(req.TransactionID)
	if txID == "" {
		return nil, domain.ErrInvalidTransaction
	}
	outcome := domain.Outcome(strings.ToLower(strings.TrimSpace(string(req.Outcome))))
	if !outcome.Valid() {
		return nil, domain.ErrInvalidOutcome
	}

	tiers := s.tierTable()
	var stats *domain.SellerStats
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.clock.Now()
		inserted, err := s.repo.InsertRating(ctx, tx, &domain.SellerRating{
			ID:            s.genID.Generate().Int64(),
			SellerID:      req.SellerID,
			TransactionID: txID,
			Outcome:       outcome,
			Notes:         strings.TrimSpace(req.Notes),
			CreatedAt:     now,
		})
		if err != nil {
			return err
		}
		if !inserted {
			return domain.ErrOutcomeAlreadyRecorded
		}

		stats, err = s.repo.LockStats(ctx, tx, req.SellerID)
		if err != nil {
			return err
		}
		stats.Apply(outcome)
		applyScore(stats, tiers)
		stats.UpdatedAt = now
		return s.repo.SaveStats(ctx, tx, stats)
	})
	if err != nil {
		return nil, err
	}

	logger.WithContext(ctx, s.log).Info("seller outcome recorded",
		zap.Int64("seller_id", req.SellerID),
		zap.String("transaction_id", txID),
		zap.String("outcome", string(outcome)),
		zap.String("badge", string(stats.Badge)),
	)
	s.afterUpdate(ctx, stats)
	return toReputation(stats, domain.DefaultLanguage), nil
}

func (s *Service) Recompute(ctx context.Context, sellerID int64) (*domain.Reputation, error) {
	if sellerID <= 0 {
		return nil, domain.ErrInvalidSeller
	}
	tiers := s.tierTable()

	var (
		stats   *domain.SellerStats
		changed bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		stats, err = s.repo.LockStats(ctx, tx, sellerID)
		if err != nil {
			return err
		}
		prevScore, prevBadge := stats.Score, stats.Badge
		applyScore(stats, tiers)
		changed = !prevScore.Equal(stats.Score) || prevBadge != stats.Badge
		if !changed {
			return nil
		}
		stats.UpdatedAt = s.clock.Now()
		return s.repo.SaveStats(ctx, tx, stats)
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.afterUpdate(ctx, stats)
	}
	return toReputation(stats, domain.DefaultLanguage), nil
}

// RecomputeAll refreshes every stored seller, typically after the tier table
// was reloaded. It returns how many sellers were processed.
func (s *Service) RecomputeAll(ctx context.Context) (int, error) {
	ids, err := s.repo.ListSellerIDs(ctx, s.db)
	if err != nil {
		return 0, err
	}
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if _, err := s.Recompute(ctx, id); err != nil {
			return i, err
		}
	}
	return len(ids), nil
}

func (s *Service) GetSellerReputation(ctx context.Context, sellerID int64, lang string) (*domain.Reputation, error) {
	if sellerID <= 0 {
		return nil, domain.ErrInvalidSeller
	}
	stats, err := s.repo.FindStats(ctx, s.db, sellerID)
	if err != nil {
		return nil, err
	}
	if stats == nil {
		stats = &domain.SellerStats{SellerID: sellerID, Badge: s.tierTable().Lowest().Level}
	}
	return toReputation(stats, lang), nil
}

func (s *Service) Badges(_ context.Context, lang string) []domain.Badge {
	return domain.Badges(lang)
}

// tierTable converts the live config into a table, keeping the defaults if
// the holder ever carries something unusable.
func (s *Service) tierTable() domain.TierTable {
	if s.tiers == nil {
		return domain.DefaultTierTable()
	}
	cfg := s.tiers.Get()
	rows := make([]domain.BadgeTier, 0, len(cfg.Tiers))
	for _, t := range cfg.Tiers {
		rows = append(rows, domain.BadgeTier{
			Level:    domain.BadgeLevel(strings.ToLower(strings.TrimSpace(t.Level))),
			MinScore: t.MinScore,
			Factor:   t.Factor,
		})
	}
	table, err := domain.NewTierTable(rows)
	if err != nil {
		s.log.Warn("invalid tier table, using defaults", zap.Error(err))
		return domain.DefaultTierTable()
	}
	return table
}

func (s *Service) afterUpdate(ctx context.Context, stats *domain.SellerStats) {
	s.metrics.RecordReputationUpdate(ctx, string(stats.Badge))
	events.Emit(ctx, s.publisher, events.TypeSellerReputationUpdated, strconv.FormatInt(stats.SellerID, 10), map[string]any{
		"seller_id": strconv.FormatInt(stats.SellerID, 10),
		"score":     stats.Score.StringFixed(2),
		"badge":     stats.Badge,
		"total":     stats.Total,
	})
}

func applyScore(stats *domain.SellerStats, tiers domain.TierTable) {
	score := domain.ComputeSellerScore(stats.Successful, stats.Total, tiers)
	stats.Score = decimal.NewFromFloat(score.Final).Round(2)
	stats.Badge = score.Badge.Level
}

func toReputation(stats *domain.SellerStats, lang string) *domain.Reputation {
	score, _ := stats.Score.Float64()
	return &domain.Reputation{
		SellerID:   strconv.FormatInt(stats.SellerID, 10),
		Total:      stats.Total,
		Successful: stats.Successful,
		Failed:     stats.Failed,
		Disputed:   stats.Disputed,
		Fraudulent: stats.Fraudulent,
		Score:      score,
		Badge:      domain.BadgeFor(stats.Badge, lang),
		UpdatedAt:  stats.UpdatedAt,
	}
}
