package analysis

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/joelkehle/trendscout/internal/trends"
)

// ProgressEvent is one checkpoint of a running analysis. Percent values are
// fixed per step and non-decreasing within a run.
type ProgressEvent struct {
	Step    string
	Percent int
	Message string
	Extra   map[string]any
}

type ProgressFn func(ProgressEvent)

// Pipeline orchestrates the staged analysis: fetch, then the generative
// stages in dependency order, then compile. Stage failures degrade to the
// stage's fallback; only a fetch failure or a missing fallback fails a run.
type Pipeline struct {
	fetcher     trends.Fetcher
	runner      StageRunner
	builder     *ContextBuilder
	competitors CompetitorFetcher
	cache       *gocache.Cache
	tracer      trace.Tracer
	clock       func() time.Time
}

func NewPipeline(fetcher trends.Fetcher, runner StageRunner) (*Pipeline, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if runner == nil {
		return nil, fmt.Errorf("stage runner is required")
	}
	if err := VerifyFallbacks(CoreStages); err != nil {
		return nil, err
	}
	return &Pipeline{
		fetcher: fetcher,
		runner:  runner,
		builder: NewContextBuilder(nil),
		cache:   gocache.New(gocache.NoExpiration, 10*time.Minute),
		tracer:  otel.Tracer("trendscout/analysis"),
		clock:   time.Now,
	}, nil
}

// WithCompetitorFetcher enables the competitor and enhancement stages.
func (p *Pipeline) WithCompetitorFetcher(f CompetitorFetcher) (*Pipeline, error) {
	if err := VerifyFallbacks(CompetitorStages); err != nil {
		return nil, err
	}
	p.competitors = f
	return p, nil
}

// WithCacheTTL bounds how long compiled results are served from memory.
func (p *Pipeline) WithCacheTTL(ttl time.Duration) *Pipeline {
	p.cache = gocache.New(ttl, 10*time.Minute)
	return p
}

func (p *Pipeline) WithContextBuilder(b *ContextBuilder) *Pipeline {
	p.builder = b
	return p
}

func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.clock = now
	return p
}

// Run executes an analysis without progress reporting.
func (p *Pipeline) Run(ctx context.Context, keyword string, comparison bool) (AnalysisResult, error) {
	return p.RunWithProgress(ctx, keyword, comparison, nil)
}

// RunWithProgress is the single stage sequence behind every front end. A nil
// progress function is valid.
func (p *Pipeline) RunWithProgress(ctx context.Context, keyword string, comparison bool, progress ProgressFn) (AnalysisResult, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return AnalysisResult{}, fmt.Errorf("keyword is required")
	}

	cacheKey := fmt.Sprintf("%s|%t", keyword, comparison)
	if cached, ok := p.cache.Get(cacheKey); ok {
		log.Printf("analysis cache_hit keyword=%q comparison=%t", keyword, comparison)
		return cached.(AnalysisResult), nil
	}

	ctx, span := p.tracer.Start(ctx, "analysis.run")
	defer span.End()

	res := AnalysisResult{
		Keyword:  keyword,
		Attempts: map[Stage]StageMetrics{},
	}

	emit(progress, ProgressEvent{Step: "start", Percent: 0, Message: "Starting analysis...", Extra: map[string]any{"keyword": keyword}})
	emit(progress, ProgressEvent{Step: "fetching_trends", Percent: 10, Message: "Fetching Google Trends data..."})

	ds, err := p.fetchDataset(ctx, keyword, comparison)
	if err != nil {
		return res, fmt.Errorf("fetch trends data: %w", err)
	}
	emit(progress, ProgressEvent{Step: "trends_fetched", Percent: 20, Message: "Trends data fetched successfully"})

	emit(progress, ProgressEvent{Step: "extracting_problems", Percent: 30, Message: "Extracting user problems..."})
	problemsCtx, enriched := p.builder.Build(ds, StageProblems)
	problems, err := invokeStage(ctx, p, &res, StageProblems, func(ctx context.Context) (ProblemsOutput, StageMetrics, error) {
		return p.runner.RunProblems(ctx, problemsCtx)
	})
	if err != nil {
		return res, err
	}
	emit(progress, ProgressEvent{
		Step: "problems_extracted", Percent: 40,
		Message: fmt.Sprintf("Problems extracted: %d problems identified", len(problems.Problems)),
		Extra:   map[string]any{"problems_count": len(problems.Problems)},
	})

	emit(progress, ProgressEvent{Step: "analyzing_market", Percent: 50, Message: "Analyzing market maturity..."})
	maturityCtx, _ := p.builder.Build(ds, StageMarketMaturity)
	maturity, err := invokeStage(ctx, p, &res, StageMarketMaturity, func(ctx context.Context) (MarketMaturity, StageMetrics, error) {
		return p.runner.RunMarketMaturity(ctx, maturityCtx)
	})
	if err != nil {
		return res, err
	}
	emit(progress, ProgressEvent{
		Step: "market_analyzed", Percent: 60,
		Message: fmt.Sprintf("Market maturity analyzed: %s stage", maturity.Stage),
		Extra:   map[string]any{"market_stage": maturity.Stage},
	})

	emit(progress, ProgressEvent{Step: "extracting_goals", Percent: 70, Message: "Extracting solution goals..."})
	goals, err := invokeStage(ctx, p, &res, StageGoals, func(ctx context.Context) (GoalsOutput, StageMetrics, error) {
		return p.runner.RunGoals(ctx, problems)
	})
	if err != nil {
		return res, err
	}
	emit(progress, ProgressEvent{
		Step: "goals_extracted", Percent: 80,
		Message: fmt.Sprintf("Goals extracted: %d goals defined", len(goals.Goals)),
		Extra:   map[string]any{"goals_count": len(goals.Goals)},
	})

	emit(progress, ProgressEvent{Step: "suggesting_categories", Percent: 85, Message: "Suggesting SaaS solution categories..."})
	categories, err := invokeStage(ctx, p, &res, StageFeatureCategories, func(ctx context.Context) (CategoriesOutput, StageMetrics, error) {
		return p.runner.RunFeatureCategories(ctx, goals, maturity)
	})
	if err != nil {
		return res, err
	}

	emit(progress, ProgressEvent{Step: "generating_features", Percent: 90, Message: "Generating innovative SaaS features..."})
	featuresCtx, _ := p.builder.Build(ds, StageFeatureGeneration)
	features, err := invokeStage(ctx, p, &res, StageFeatureGeneration, func(ctx context.Context) (FeaturesOutput, StageMetrics, error) {
		return p.runner.RunFeatureGeneration(ctx, featuresCtx, categories, goals)
	})
	if err != nil {
		return res, err
	}
	emit(progress, ProgressEvent{
		Step: "features_generated", Percent: 95,
		Message: fmt.Sprintf("Features generated: %d features created", len(features.Features)),
		Extra:   map[string]any{"features_count": len(features.Features)},
	})

	res.IdentifiedProblems = problems
	res.MarketMaturity = maturity
	res.SolutionGoals = goals
	res.SaaSOpportunities = categories
	res.InnovativeFeatures = features

	if p.competitors != nil {
		emit(progress, ProgressEvent{Step: "analyzing_competitors", Percent: 97, Message: "Analyzing competitors..."})
		competitorsOut, err := invokeStage(ctx, p, &res, StageCompetitors, func(ctx context.Context) (CompetitorsOutput, StageMetrics, error) {
			listings, ferr := p.competitors.FetchListings(ctx, keyword)
			if ferr != nil {
				return CompetitorsOutput{}, StageMetrics{}, ferr
			}
			return p.runner.RunCompetitors(ctx, keyword, listings, features)
		})
		if err != nil {
			return res, err
		}
		res.CompetitorAnalysis = &competitorsOut

		emit(progress, ProgressEvent{Step: "enhancing_features", Percent: 98, Message: "Enhancing features based on competitor analysis..."})
		enhanced, err := invokeStage(ctx, p, &res, StageFeatureEnhancement, func(ctx context.Context) (EnhancementOutput, StageMetrics, error) {
			return p.runner.RunFeatureEnhancement(ctx, keyword, competitorsOut, features)
		})
		if err != nil {
			return res, err
		}
		res.EnhancedFeatures = &enhanced
	}

	p.compile(&res, ds, enriched)
	p.cache.Set(cacheKey, res, gocache.DefaultExpiration)
	log.Printf("analysis run_complete keyword=%q degraded_stages=%d", keyword, len(res.DegradedStages))
	return res, nil
}

func (p *Pipeline) fetchDataset(ctx context.Context, keyword string, comparison bool) (trends.TrendDataset, error) {
	ctx, span := p.tracer.Start(ctx, "analysis.fetch_trends")
	defer span.End()
	return p.fetcher.Fetch(ctx, keyword, comparison)
}

// compile attaches the enriched-insight layer and metadata to the stage
// outputs.
func (p *Pipeline) compile(res *AnalysisResult, ds trends.TrendDataset, enriched Enriched) {
	res.AnalysisTimestamp = p.clock()
	res.TrendsMetadata = ds.Metadata
	if res.TrendsMetadata == nil {
		res.TrendsMetadata = map[string]any{}
	}
	res.DataQuality = AssessDataQuality(ds)
	res.SummaryInsights = BuildSummaryInsights(enriched.Context)
}

// invokeStage wraps one stage in a span, records its metrics, and absorbs a
// failure into the stage's fallback. A stage without a fallback fails the
// run.
func invokeStage[T any](ctx context.Context, p *Pipeline, res *AnalysisResult, stage Stage, run func(context.Context) (T, StageMetrics, error)) (T, error) {
	ctx, span := p.tracer.Start(ctx, string(stage))
	defer span.End()

	out, m, err := run(ctx)
	res.Attempts[stage] = m
	if err == nil {
		return out, nil
	}

	log.Printf("analysis stage_degraded stage=%s attempts=%d err=%q", stage, m.Attempts, err.Error())
	fb, fbErr := fallbackAs[T](stage)
	if fbErr != nil {
		return out, &StageError{Stage: stage, Err: fbErr}
	}
	res.DegradedStages = append(res.DegradedStages, stage)
	return fb, nil
}

func emit(progress ProgressFn, ev ProgressEvent) {
	if progress != nil {
		progress(ev)
	}
}
