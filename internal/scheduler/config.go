package scheduler

import (
	"time"

	"github.com/blizzgame/marketplace/internal/config"
)

// Config controls scheduler intervals and batch sizes.
type Config struct {
	RunInterval         time.Duration
	BatchSize           int
	StalePaymentAfter   time.Duration
	PaymentCheckTimeout time.Duration
	EnabledJobs         []string
}

func DefaultConfig() Config {
	return Config{
		RunInterval:         time.Minute,
		BatchSize:           50,
		StalePaymentAfter:   15 * time.Minute,
		PaymentCheckTimeout: 2 * time.Minute,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval:       cfg.Scheduler.Interval,
		BatchSize:         cfg.Scheduler.BatchSize,
		StalePaymentAfter: cfg.Scheduler.StalePaymentAt,
		EnabledJobs:       cfg.Scheduler.EnabledJobs,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.StalePaymentAfter <= 0 {
		c.StalePaymentAfter = defaults.StalePaymentAfter
	}
	if c.PaymentCheckTimeout <= 0 {
		c.PaymentCheckTimeout = defaults.PaymentCheckTimeout
	}
	return c
}
