package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/venue-grouper/internal/cost"
)

func TestPresetConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mode         Mode
		limit        float64
		maxLocations int
		tier         cost.Tier
	}{
		{ModeBudget, 0.05, 3, cost.TierMinimal},
		{ModeBalanced, 0.25, 5, cost.TierMinimal},
		{ModePremium, 1.00, 10, cost.TierEnhanced},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			t.Parallel()
			cfg, err := PresetConfig(tt.mode)
			require.NoError(t, err)
			assert.InDelta(t, tt.limit, cfg.BudgetLimitUSD, 1e-9)
			assert.Equal(t, tt.maxLocations, cfg.MaxPaidLocations)
			assert.Equal(t, tt.tier, cfg.Tier)
		})
	}
}

func TestPresetConfig_Unknown(t *testing.T) {
	t.Parallel()

	_, err := PresetConfig(Mode("turbo"))
	assert.Error(t, err)
}

func TestConfigWithDefaults(t *testing.T) {
	t.Parallel()

	cfg := Config{}.withDefaults()
	assert.Equal(t, 5, cfg.MaxPaidLocations)
	assert.Equal(t, cost.TierMinimal, cfg.Tier)
	assert.Equal(t, 2, cfg.CoarsenDecimals)
}
