package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// TierConfig is one row of the seller badge table.
type TierConfig struct {
	Level    string  `mapstructure:"level" yaml:"level"`
	MinScore float64 `mapstructure:"minScore" yaml:"minScore"`
	Factor   float64 `mapstructure:"factor" yaml:"factor"`
}

type ReputationConfig struct {
	Tiers []TierConfig `mapstructure:"tiers" yaml:"tiers"`
}

// Fingerprint identifies the tier table so callers can tell when it changed.
func (c ReputationConfig) Fingerprint() string {
	var b strings.Builder
	for _, t := range c.Tiers {
		fmt.Fprintf(&b, "%s:%g:%g;", strings.TrimSpace(t.Level), t.MinScore, t.Factor)
	}
	return b.String()
}

func DefaultReputationConfig() ReputationConfig {
	return ReputationConfig{
		Tiers: []TierConfig{
			{Level: "bronze", MinScore: 0, Factor: 1.0},
			{Level: "silver", MinScore: 60, Factor: 0.6},
			{Level: "gold", MinScore: 70, Factor: 0.7},
			{Level: "diamond", MinScore: 80, Factor: 0.84},
		},
	}
}

type ReputationConfigHolder struct {
	current atomic.Value // holds ReputationConfig
}

// NewReputationConfigHolder loads reputation.yml from the standard locations
// and keeps it reloaded while the process runs.
func NewReputationConfigHolder() (*ReputationConfigHolder, error) {
	return NewReputationConfigHolderAt(
		"/var/lib/blizz/config", // Volume-mounted config
		"/etc/blizz",
		".",
	)
}

func NewReputationConfigHolderAt(paths ...string) (*ReputationConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("reputation")
	v.SetConfigType("yml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("BLIZZ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	found := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		found = false
		v.SetDefault("reputation.tiers", DefaultReputationConfig().Tiers)
	}

	var cfg ReputationConfig
	if err := v.UnmarshalKey("reputation", &cfg); err != nil {
		return nil, err
	}
	if err := ValidateReputationConfig(cfg); err != nil {
		return nil, err
	}

	holder := &ReputationConfigHolder{}
	holder.current.Store(cfg)

	if !found {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated ReputationConfig
		if err := v.UnmarshalKey("reputation", &updated); err != nil {
			zap.L().Warn("reputation config reload failed", zap.Error(err))
			return
		}
		if err := ValidateReputationConfig(updated); err != nil {
			zap.L().Warn("invalid reputation config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		zap.L().Info("reputation config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

// NewStaticReputationConfigHolder returns a holder that never reloads.
func NewStaticReputationConfigHolder(cfg ReputationConfig) (*ReputationConfigHolder, error) {
	if err := ValidateReputationConfig(cfg); err != nil {
		return nil, err
	}
	holder := &ReputationConfigHolder{}
	holder.current.Store(cfg)
	return holder, nil
}

func (h *ReputationConfigHolder) Get() ReputationConfig {
	return h.current.Load().(ReputationConfig)
}

// ValidateReputationConfig enforces a non-empty table with strictly
// increasing thresholds and factors in (0, 1].
func ValidateReputationConfig(cfg ReputationConfig) error {
	if len(cfg.Tiers) == 0 {
		return errors.New("reputation.tiers cannot be empty")
	}
	seen := make(map[string]struct{}, len(cfg.Tiers))
	for i, tier := range cfg.Tiers {
		level := strings.TrimSpace(tier.Level)
		if level == "" {
			return fmt.Errorf("reputation.tiers[%d].level is required", i)
		}
		if _, ok := seen[level]; ok {
			return fmt.Errorf("reputation.tiers[%d].level %q is duplicated", i, level)
		}
		seen[level] = struct{}{}
		if math.IsNaN(tier.MinScore) || tier.MinScore < 0 || tier.MinScore > 100 {
			return fmt.Errorf("reputation.tiers[%d].minScore must be within [0,100]", i)
		}
		if math.IsNaN(tier.Factor) || tier.Factor <= 0 || tier.Factor > 1 {
			return fmt.Errorf("reputation.tiers[%d].factor must be within (0,1]", i)
		}
		if i > 0 && tier.MinScore <= cfg.Tiers[i-1].MinScore {
			return fmt.Errorf("reputation.tiers[%d].minScore must be greater than the previous tier", i)
		}
	}
	return nil
}
