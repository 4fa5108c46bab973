package analysis

import (
	"time"

	"github.com/joelkehle/trendscout/internal/trends"
)

// ContextBuilder turns a raw dataset into the bounded stage context: clean,
// enrich, optimize, then attach quality and summary layers. Builds are pure
// apart from the timestamp, which comes from the injected clock.
type ContextBuilder struct {
	optimizer *Optimizer
	now       func() time.Time
}

func NewContextBuilder(optimizer *Optimizer) *ContextBuilder {
	if optimizer == nil {
		optimizer = NewOptimizer()
	}
	return &ContextBuilder{optimizer: optimizer, now: time.Now}
}

// WithClock replaces the timestamp source. Tests use a fixed clock to assert
// build-twice equality.
func (b *ContextBuilder) WithClock(now func() time.Time) *ContextBuilder {
	b.now = now
	return b
}

// Build produces the context for one stage along with the enriched dataset
// for reuse by later stages.
func (b *ContextBuilder) Build(ds trends.TrendDataset, stage Stage) (StageContext, Enriched) {
	cleaned := trends.Clean(ds)
	enriched := trends.Enrich(cleaned)
	return StageContext{
		Keyword:         ds.Keyword,
		Timestamp:       b.now(),
		DataQuality:     AssessDataQuality(ds),
		OptimizedData:   b.optimizer.OptimizeFor(stage, cleaned, enriched),
		SummaryInsights: BuildSummaryInsights(enriched),
	}, Enriched{Dataset: cleaned, Context: enriched}
}

// AssessDataQuality reports which of the three dataset sections arrived and
// a completeness ratio over them. Assessed on the raw dataset, before
// cleaning drops anything.
func AssessDataQuality(ds trends.TrendDataset) DataQuality {
	q := DataQuality{
		HasInterestData:   len(ds.InterestOverTime) > 0,
		HasRelatedQueries: len(ds.RelatedQueries.Top) > 0,
		HasRisingSearches: len(ds.RisingSearches.Rising) > 0,
	}
	present := 0
	for _, ok := range []bool{q.HasInterestData, q.HasRelatedQueries, q.HasRisingSearches} {
		if ok {
			present++
		}
	}
	q.DataCompleteness = float64(present) / 3.0
	return q
}

// BuildSummaryInsights reduces the enriched layer to the coarse flags the
// prompts and the final result both carry. Volatility over 15 counts as
// high; mean interest over 50 counts as high.
func BuildSummaryInsights(ec trends.EnrichedContext) SummaryInsights {
	var out SummaryInsights
	if ec.Interest != nil {
		out.MarketTrend = &MarketTrendInsight{
			Direction:     ec.Interest.TrendDirection,
			Volatility:    highLow(ec.Interest.Volatility > 15),
			InterestLevel: highLow(ec.Interest.Mean > 50),
		}
	}
	out.ProblemLandscape = &ProblemLandscape{
		HasPainPoints:   ec.Problems.Indicators["pain_points"] > 0,
		SolutionSeeking: ec.Problems.Indicators["solution_seeking"] > 0,
		ProblemDensity:  ec.Problems.ProblemDensity,
	}
	out.TrendCharacteristics = &TrendCharacteristics{
		IsSeasonal:  ec.Patterns["seasonal"].Count > 0,
		IsTrending:  ec.Patterns["trending"].Count > 0,
		IsTechnical: ec.Patterns["technical"].Count > 0,
	}
	return out
}

func highLow(high bool) string {
	if high {
		return "high"
	}
	return "low"
}
