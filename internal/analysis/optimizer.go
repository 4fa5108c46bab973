package analysis

import (
	"math"
	"strings"

	"github.com/joelkehle/trendscout/internal/trends"
)

// Queries carrying these substrings are surfaced to the problem-extraction
// stage ahead of everything else.
var problemIndicators = []string{"problem", "issue", "error", "fix", "how to", "tutorial", "help"}

// Optimizer reduces an enriched dataset to the bounded extract each stage
// actually needs. Generative calls never see the full dataset.
type Optimizer struct {
	// MaxItemsPerSection caps the largest list any one section may carry.
	MaxItemsPerSection int
}

func NewOptimizer() *Optimizer {
	return &Optimizer{MaxItemsPerSection: 10}
}

// OptimizeFor returns the stage-shaped extract. Stages without a dedicated
// policy get the generic top/rising slices.
func (o *Optimizer) OptimizeFor(stage Stage, ds trends.TrendDataset, ec trends.EnrichedContext) map[string]any {
	switch stage {
	case StageProblems:
		return o.forProblemExtraction(ds)
	case StageMarketMaturity:
		return o.forMarketMaturity(ds, ec)
	case StageFeatureGeneration:
		return o.forFeatureGeneration(ec)
	default:
		return o.generic(ds)
	}
}

func (o *Optimizer) forProblemExtraction(ds trends.TrendDataset) map[string]any {
	var indicators []string
	for _, q := range ds.AllQueries() {
		lower := strings.ToLower(q)
		for _, ind := range problemIndicators {
			if strings.Contains(lower, ind) {
				indicators = append(indicators, q)
				break
			}
		}
	}
	return map[string]any{
		"problem_indicators": capStrings(indicators, o.cap(10)),
		"rising_problems":    capQueries(ds.RisingSearches.Rising, o.cap(5)),
		"context_queries":    capQueries(ds.RelatedQueries.Top, o.cap(3)),
	}
}

func (o *Optimizer) forMarketMaturity(ds trends.TrendDataset, ec trends.EnrichedContext) map[string]any {
	out := map[string]any{}
	if points := sampleInterest(ds.InterestOverTime, o.cap(12)); len(points) > 0 {
		out["interest_trend"] = points
	}
	keyStats := map[string]any{
		"trend_direction": "unknown",
		"volatility":      0.0,
		"avg_interest":    0.0,
	}
	if ec.Interest != nil {
		keyStats["trend_direction"] = ec.Interest.TrendDirection
		keyStats["volatility"] = round(ec.Interest.Volatility, 2)
		keyStats["avg_interest"] = round(ec.Interest.Mean, 1)
	}
	out["key_stats"] = keyStats
	return out
}

func (o *Optimizer) forFeatureGeneration(ec trends.EnrichedContext) map[string]any {
	out := map[string]any{
		"emerging_trends": map[string]any{
			"trending_topics":    capStrings(ec.Patterns["trending"].Matches, o.cap(5)),
			"technical_interest": capStrings(ec.Patterns["technical"].Matches, o.cap(5)),
		},
		"user_problems": map[string]any{
			"pain_points":      ec.Problems.Indicators["pain_points"],
			"solution_seeking": ec.Problems.Indicators["solution_seeking"],
			"problem_density":  round(ec.Problems.ProblemDensity, 2),
		},
		"feature_themes": capStrings(ec.ClusterThemes, o.cap(3)),
	}
	return out
}

func (o *Optimizer) generic(ds trends.TrendDataset) map[string]any {
	return map[string]any{
		"top_queries":     capQueries(ds.RelatedQueries.Top, o.cap(5)),
		"rising_queries":  capQueries(ds.RelatedQueries.Rising, o.cap(5)),
		"rising_searches": capQueries(ds.RisingSearches.Rising, o.cap(5)),
	}
}

// cap keeps each policy's own ceiling but never exceeds the configured
// section maximum.
func (o *Optimizer) cap(n int) int {
	if o.MaxItemsPerSection > 0 && o.MaxItemsPerSection < n {
		return o.MaxItemsPerSection
	}
	return n
}

// sampleInterest picks up to n evenly spaced points, always starting from
// the first.
func sampleInterest(points []trends.TrendPoint, n int) []trends.TrendPoint {
	if len(points) == 0 || n <= 0 {
		return nil
	}
	if len(points) <= n {
		return append([]trends.TrendPoint(nil), points...)
	}
	step := len(points) / n
	sampled := make([]trends.TrendPoint, 0, n)
	for i := 0; i < len(points) && len(sampled) < n; i += step {
		sampled = append(sampled, points[i])
	}
	return sampled
}

func capQueries(in []trends.ScoredQuery, n int) []trends.ScoredQuery {
	if len(in) > n {
		in = in[:n]
	}
	return append([]trends.ScoredQuery{}, in...)
}

func capStrings(in []string, n int) []string {
	if len(in) > n {
		in = in[:n]
	}
	return append([]string{}, in...)
}

func round(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
