package llmprovider

import "sync"

// Pricing holds per-model token costs in USD per million tokens.
type Pricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// CalculateCost computes the USD cost of one response's usage under pricing.
func CalculateCost(pricing Pricing, usage Usage) float64 {
	cost := float64(usage.InputTokens) * pricing.InputPerMillion / 1_000_000
	cost += float64(usage.OutputTokens) * pricing.OutputPerMillion / 1_000_000
	return cost
}

// ModelUsageAccum accumulates token usage and cost for one model.
type ModelUsageAccum struct {
	InputTokens  int
	OutputTokens int
	CostUSD      float64
}

// CostTracker accumulates cost across requests, grouped by model.
// Safe for concurrent use, since concurrent dispatch within a DAG level
// means several goroutines may record usage at once (spec.md §5).
type CostTracker struct {
	mu         sync.Mutex
	totalCost  float64
	modelUsage map[string]*ModelUsageAccum
}

// NewCostTracker returns an empty tracker.
func NewCostTracker() *CostTracker {
	return &CostTracker{modelUsage: make(map[string]*ModelUsageAccum)}
}

// Add records usage for model under pricing and returns the cumulative
// total cost across every call made so far.
func (t *CostTracker) Add(model string, pricing Pricing, usage Usage) float64 {
	cost := CalculateCost(pricing, usage)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.totalCost += cost

	accum, ok := t.modelUsage[model]
	if !ok {
		accum = &ModelUsageAccum{}
		t.modelUsage[model] = accum
	}
	accum.InputTokens += usage.InputTokens
	accum.OutputTokens += usage.OutputTokens
	accum.CostUSD += cost

	return t.totalCost
}

// TotalCost returns the cumulative cost across all recorded calls.
func (t *CostTracker) TotalCost() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totalCost
}

// ModelBreakdown returns a snapshot of per-model accumulated usage.
func (t *CostTracker) ModelBreakdown() map[string]ModelUsageAccum {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]ModelUsageAccum, len(t.modelUsage))
	for k, v := range t.modelUsage {
		out[k] = *v
	}
	return out
}
