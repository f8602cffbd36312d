package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPerCall(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(DefaultRates())

	tests := []struct {
		name string
		tier Tier
		want float64
	}{
		{"minimal", TierMinimal, 0.004},
		{"standard", TierStandard, 0.006},
		{"enhanced", TierEnhanced, 0.010},
		{"unknown prices as enhanced", Tier("bogus"), 0.010},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, calc.PerCall(tt.tier), 1e-9)
		})
	}
}

func TestBatch(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(DefaultRates())

	assert.InDelta(t, 0.012, calc.Batch(TierMinimal, 3), 1e-9)
	assert.InDelta(t, 0.030, calc.Batch(TierEnhanced, 3), 1e-9)
	assert.Zero(t, calc.Batch(TierStandard, 0))
	assert.Zero(t, calc.Batch(TierStandard, -2))
}
