package domain

import (
	"errors"
	"fmt"
	"math"
)

type BadgeLevel string

const (
	BadgeBronze  BadgeLevel = "bronze"
	BadgeSilver  BadgeLevel = "silver"
	BadgeGold    BadgeLevel = "gold"
	BadgeDiamond BadgeLevel = "diamond"
)

// FullConfidenceVolume is the transaction count at which the low-volume
// penalty disappears.
const FullConfidenceVolume = 10

// BadgeTier is one scoring row: a threshold and the factor applied to
// scores that first land in it.
type BadgeTier struct {
	Level    BadgeLevel
	MinScore float64
	Factor   float64
}

// TierTable is ordered by strictly increasing MinScore.
type TierTable []BadgeTier

var ErrInvalidTierTable = errors.New("invalid_tier_table")

func DefaultTierTable() TierTable {
	return TierTable{
		{Level: BadgeBronze, MinScore: 0, Factor: 1.0},
		{Level: BadgeSilver, MinScore: 60, Factor: 0.6},
		{Level: BadgeGold, MinScore: 70, Factor: 0.7},
		{Level: BadgeDiamond, MinScore: 80, Factor: 0.84},
	}
}

func NewTierTable(tiers []BadgeTier) (TierTable, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidTierTable)
	}
	for i, tier := range tiers {
		if tier.Level == "" {
			return nil, fmt.Errorf("%w: tier %d has no level", ErrInvalidTierTable, i)
		}
		if tier.Factor <= 0 || tier.Factor > 1 {
			return nil, fmt.Errorf("%w: tier %s factor %v", ErrInvalidTierTable, tier.Level, tier.Factor)
		}
		if i > 0 && tier.MinScore <= tiers[i-1].MinScore {
			return nil, fmt.Errorf("%w: tier %s threshold not increasing", ErrInvalidTierTable, tier.Level)
		}
	}
	out := make(TierTable, len(tiers))
	copy(out, tiers)
	return out, nil
}

// Lowest returns the entry tier; an empty table yields a neutral bronze.
func (t TierTable) Lowest() BadgeTier {
	if len(t) == 0 {
		return BadgeTier{Level: BadgeBronze, Factor: 1}
	}
	return t[0]
}

// Lookup returns the last tier whose MinScore does not exceed score, or the
// lowest tier when score is negative, NaN or below every threshold.
func (t TierTable) Lookup(score float64) BadgeTier {
	current := t.Lowest()
	if math.IsNaN(score) || score < 0 {
		return current
	}
	for _, tier := range t {
		if tier.MinScore <= score {
			current = tier
		}
	}
	return current
}

// Score keeps every intermediate value of the computation.
type Score struct {
	Base           float64
	Confidence     float64
	VolumeAdjusted float64
	Potential      BadgeTier
	Final          float64
	Badge          BadgeTier
}

// ComputeSellerScore turns a seller's history into a 0..100 score and badge.
//
// The volume adjusted score picks a potential tier whose factor is applied to
// it; the badge is then looked up again on the penalised value, so a seller
// can land below the tier the raw ratio suggested. Inputs outside
// 0 <= successful <= total with total > 0 score zero in the lowest tier.
func ComputeSellerScore(successful, total int, tiers TierTable) Score {
	if total <= 0 || successful < 0 || successful > total {
		lowest := tiers.Lowest()
		return Score{Potential: lowest, Badge: lowest}
	}

	base := float64(successful) / float64(total) * 100
	confidence := math.Min(float64(total)/FullConfidenceVolume, 1.0)
	volumeAdjusted := base * confidence

	potential := tiers.Lookup(volumeAdjusted)
	final := volumeAdjusted * potential.Factor

	return Score{
		Base:           base,
		Confidence:     confidence,
		VolumeAdjusted: volumeAdjusted,
		Potential:      potential,
		Final:          final,
		Badge:          tiers.Lookup(final),
	}
}
