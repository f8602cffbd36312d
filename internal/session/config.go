package session

import (
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/venue-grouper/internal/cost"
)

// Mode is a bundled performance preset.
type Mode string

const (
	ModeBudget   Mode = "budget"
	ModeBalanced Mode = "balanced"
	ModePremium  Mode = "premium"
)

// Config holds the per-session knobs.
type Config struct {
	// BudgetLimitUSD caps external API spend for the session. Zero means no
	// paid calls at all; negative is a configuration error.
	BudgetLimitUSD float64

	// MaxPaidLocations is the top-K cutoff: only the K highest-priority
	// search locations are eligible for the paid path.
	MaxPaidLocations int

	// Tier selects the field mask for every paid call in the session.
	Tier cost.Tier

	// CoarsenDecimals controls dedupe and cache-key coordinate rounding.
	// Two decimals puts points in roughly 1.1 km buckets.
	CoarsenDecimals int

	// CacheTTL overrides the in-memory cache TTL for entries written by this
	// session. Zero uses the cache default.
	CacheTTL time.Duration

	// PersistTTL overrides the persistent cache tier TTL. Zero uses the
	// store default.
	PersistTTL time.Duration
}

// DefaultConfig returns the balanced-mode defaults.
func DefaultConfig() Config {
	return Config{
		BudgetLimitUSD:   0.25,
		MaxPaidLocations: 5,
		Tier:             cost.TierMinimal,
		CoarsenDecimals:  2,
	}
}

// PresetConfig returns the bundled configuration for a performance mode.
func PresetConfig(mode Mode) (Config, error) {
	switch mode {
	case ModeBudget:
		return Config{
			BudgetLimitUSD:   0.05,
			MaxPaidLocations: 3,
			Tier:             cost.TierMinimal,
			CoarsenDecimals:  2,
		}, nil
	case ModeBalanced:
		return DefaultConfig(), nil
	case ModePremium:
		return Config{
			BudgetLimitUSD:   1.00,
			MaxPaidLocations: 10,
			Tier:             cost.TierEnhanced,
			CoarsenDecimals:  2,
		}, nil
	default:
		return Config{}, eris.Errorf("session: unknown mode %q", mode)
	}
}

func (c Config) withDefaults() Config {
	if c.MaxPaidLocations <= 0 {
		c.MaxPaidLocations = 5
	}
	if c.Tier == "" {
		c.Tier = cost.TierMinimal
	}
	if c.CoarsenDecimals <= 0 {
		c.CoarsenDecimals = 2
	}
	return c
}
