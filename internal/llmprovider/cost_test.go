package llmprovider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateCost(t *testing.T) {
	pricing := Pricing{InputPerMillion: 3, OutputPerMillion: 15}
	usage := Usage{InputTokens: 1_000_000, OutputTokens: 500_000}
	assert.Equal(t, 3.0+7.5, CalculateCost(pricing, usage))
}

func TestCostTracker_AccumulatesPerModel(t *testing.T) {
	tracker := NewCostTracker()
	pricing := Pricing{InputPerMillion: 1, OutputPerMillion: 2}

	total := tracker.Add("model-a", pricing, Usage{InputTokens: 1_000_000})
	assert.Equal(t, 1.0, total)

	total = tracker.Add("model-a", pricing, Usage{OutputTokens: 1_000_000})
	assert.Equal(t, 3.0, total)

	breakdown := tracker.ModelBreakdown()
	assert.Equal(t, 1_000_000, breakdown["model-a"].InputTokens)
	assert.Equal(t, 1_000_000, breakdown["model-a"].OutputTokens)
	assert.Equal(t, 3.0, breakdown["model-a"].CostUSD)
	assert.Equal(t, 3.0, tracker.TotalCost())
}
