// Package costreport aggregates generation-record spend for the cost
// CLI command, per spec.md §7: total and per-model token/cost rollups,
// either for the most recent run or across every record on disk.
package costreport

import (
	"sort"

	"github.com/clintonboys/lit/internal/record"
)

// ModelTotals accumulates tokens and spend for one model across the
// records being summarized.
type ModelTotals struct {
	Model       string
	TokensIn    int
	TokensOut   int
	CostUSD     float64
	PromptCount int
}

// Summary is the aggregated view over one or more generation records.
type Summary struct {
	RunCount     int
	PromptCount  int
	CacheHits    int
	TotalCostUSD float64
	ByModel      []ModelTotals
}

// Latest summarizes only the most recent record under dir.
func Latest(dir string) (*Summary, error) {
	rec, err := record.Latest(dir)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return &Summary{}, nil
	}
	return summarize([]*record.Record{rec}), nil
}

// All summarizes every readable record under dir, per spec.md §7's
// "cost --breakdown" across the full history. Malformed records are
// already filtered out by record.List and reported as warnings there;
// costreport.All returns List's warnings to the caller alongside the
// summary.
func All(dir string) (*Summary, []string, error) {
	records, _, warnings, err := record.List(dir)
	if err != nil {
		return nil, nil, err
	}
	return summarize(records), warnings, nil
}

func summarize(records []*record.Record) *Summary {
	s := &Summary{RunCount: len(records)}
	byModel := make(map[string]*ModelTotals)

	for _, rec := range records {
		s.TotalCostUSD += rec.TotalCostUSD
		for _, p := range rec.Prompts {
			s.PromptCount++
			if p.CacheHit {
				s.CacheHits++
				continue
			}
			model := p.Model
			if model == "" {
				model = "unknown"
			}
			acc, ok := byModel[model]
			if !ok {
				acc = &ModelTotals{Model: model}
				byModel[model] = acc
			}
			acc.TokensIn += p.TokensIn
			acc.TokensOut += p.TokensOut
			acc.CostUSD += p.CostUSD
			acc.PromptCount++
		}
	}

	for _, acc := range byModel {
		s.ByModel = append(s.ByModel, *acc)
	}
	sort.Slice(s.ByModel, func(i, j int) bool { return s.ByModel[i].Model < s.ByModel[j].Model })

	return s
}
