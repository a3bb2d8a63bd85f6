package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeSellerScoreScenarios(t *testing.T) {
	tiers := DefaultTierTable()

	cases := []struct {
		name       string
		successful int
		total      int
		final      float64
		potential  BadgeLevel
		badge      BadgeLevel
	}{
		{name: "single sale is dampened", successful: 1, total: 1, final: 10, potential: BadgeBronze, badge: BadgeBronze},
		{name: "diamond potential falls to silver", successful: 8, total: 10, final: 67.2, potential: BadgeDiamond, badge: BadgeSilver},
		{name: "high volume keeps diamond", successful: 96, total: 100, final: 80.64, potential: BadgeDiamond, badge: BadgeDiamond},
		{name: "all failed", successful: 0, total: 20, final: 0, potential: BadgeBronze, badge: BadgeBronze},
		{name: "gold potential", successful: 75, total: 100, final: 52.5, potential: BadgeGold, badge: BadgeBronze},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeSellerScore(tc.successful, tc.total, tiers)
			assert.InDelta(t, tc.final, got.Final, 1e-9)
			assert.Equal(t, tc.potential, got.Potential.Level)
			assert.Equal(t, tc.badge, got.Badge.Level)
		})
	}
}

func TestComputeSellerScoreInvalidInputs(t *testing.T) {
	tiers := DefaultTierTable()
	for _, in := range [][2]int{{0, 0}, {-1, 5}, {6, 5}, {3, -2}} {
		got := ComputeSellerScore(in[0], in[1], tiers)
		assert.Zero(t, got.Final, "inputs %v", in)
		assert.Equal(t, BadgeBronze, got.Badge.Level, "inputs %v", in)
	}
}

func TestComputeSellerScoreStaysInRange(t *testing.T) {
	tiers := DefaultTierTable()
	for total := 1; total <= 60; total++ {
		for successful := 0; successful <= total; successful++ {
			got := ComputeSellerScore(successful, total, tiers)
			require.GreaterOrEqual(t, got.Final, 0.0)
			require.LessOrEqual(t, got.Final, 100.0)
			require.LessOrEqual(t, got.Final, got.VolumeAdjusted+1e-9)
			require.Equal(t, tiers.Lookup(got.Final).Level, got.Badge.Level)
		}
	}
}

func TestConfidenceDampensLowVolume(t *testing.T) {
	tiers := DefaultTierTable()
	for total := 1; total < FullConfidenceVolume; total++ {
		got := ComputeSellerScore(total, total, tiers)
		assert.InDelta(t, float64(total)/FullConfidenceVolume, got.Confidence, 1e-9)
		assert.Less(t, got.VolumeAdjusted, got.Base)
	}
	got := ComputeSellerScore(50, 50, tiers)
	assert.Equal(t, 1.0, got.Confidence)
	assert.Equal(t, got.Base, got.VolumeAdjusted)
}

func TestVolumeAdjustedIsMonotonicInSuccesses(t *testing.T) {
	tiers := DefaultTierTable()
	for total := 1; total <= 40; total++ {
		prev := -1.0
		for successful := 0; successful <= total; successful++ {
			got := ComputeSellerScore(successful, total, tiers)
			assert.Greater(t, got.VolumeAdjusted, prev)
			prev = got.VolumeAdjusted
		}
	}
}

func TestComputeSellerScoreIsDeterministic(t *testing.T) {
	tiers := DefaultTierTable()
	first := ComputeSellerScore(37, 41, tiers)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, ComputeSellerScore(37, 41, tiers))
	}
}

func TestTierLookup(t *testing.T) {
	tiers := DefaultTierTable()

	assert.Equal(t, BadgeBronze, tiers.Lookup(0).Level)
	assert.Equal(t, BadgeBronze, tiers.Lookup(59.99).Level)
	assert.Equal(t, BadgeSilver, tiers.Lookup(60).Level)
	assert.Equal(t, BadgeGold, tiers.Lookup(70).Level)
	assert.Equal(t, BadgeDiamond, tiers.Lookup(80).Level)
	assert.Equal(t, BadgeDiamond, tiers.Lookup(100).Level)
	assert.Equal(t, BadgeBronze, tiers.Lookup(-5).Level)
	assert.Equal(t, BadgeBronze, tiers.Lookup(math.NaN()).Level)

	var empty TierTable
	assert.Equal(t, BadgeBronze, empty.Lookup(90).Level)
	assert.Equal(t, 1.0, empty.Lowest().Factor)
}

func TestNewTierTableValidation(t *testing.T) {
	_, err := NewTierTable(nil)
	assert.ErrorIs(t, err, ErrInvalidTierTable)

	_, err = NewTierTable([]BadgeTier{{Level: BadgeBronze, MinScore: 0, Factor: 0}})
	assert.ErrorIs(t, err, ErrInvalidTierTable)

	_, err = NewTierTable([]BadgeTier{
		{Level: BadgeBronze, MinScore: 0, Factor: 1},
		{Level: BadgeSilver, MinScore: 0, Factor: 0.5},
	})
	assert.ErrorIs(t, err, ErrInvalidTierTable)

	_, err = NewTierTable([]BadgeTier{{MinScore: 0, Factor: 1}})
	assert.ErrorIs(t, err, ErrInvalidTierTable)

	table, err := NewTierTable([]BadgeTier{
		{Level: BadgeBronze, MinScore: 0, Factor: 1},
		{Level: BadgeDiamond, MinScore: 80, Factor: 0.9},
	})
	require.NoError(t, err)
	got := ComputeSellerScore(96, 100, table)
	assert.InDelta(t, 86.4, got.Final, 1e-9)
	assert.Equal(t, BadgeDiamond, got.Badge.Level)
}
