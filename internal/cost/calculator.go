// Package cost computes estimated API spend per field-mask tier.
package cost

// Tier selects how many response fields a place-search call requests, which
// determines its per-call price.
type Tier string

const (
	TierMinimal  Tier = "minimal"
	TierStandard Tier = "standard"
	TierEnhanced Tier = "enhanced"
)

// Rates holds per-tier pricing in USD per call.
type Rates struct {
	Minimal  float64 `yaml:"minimal" mapstructure:"minimal"`
	Standard float64 `yaml:"standard" mapstructure:"standard"`
	Enhanced float64 `yaml:"enhanced" mapstructure:"enhanced"`
}

// DefaultRates returns the default place-search pricing.
func DefaultRates() Rates {
	return Rates{
		Minimal:  0.004,
		Standard: 0.006,
		Enhanced: 0.010,
	}
}

// Calculator estimates spend for place-search calls.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// PerCall returns the estimated cost of a single call at the given tier.
// Unknown tiers price as enhanced so estimates never undershoot.
func (c *Calculator) PerCall(tier Tier) float64 {
	switch tier {
	case TierMinimal:
		return c.rates.Minimal
	case TierStandard:
		return c.rates.Standard
	case TierEnhanced:
		return c.rates.Enhanced
	default:
		return c.rates.Enhanced
	}
}

// Batch returns the estimated cost of n calls at the given tier.
func (c *Calculator) Batch(tier Tier, n int) float64 {
	if n <= 0 {
		return 0
	}
	return float64(n) * c.PerCall(tier)
}
