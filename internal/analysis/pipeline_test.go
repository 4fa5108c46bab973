package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/joelkehle/trendscout/internal/trends"
)

type fakeFetcher struct {
	ds    trends.TrendDataset
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(_ context.Context, keyword string, comparison bool) (trends.TrendDataset, error) {
	f.calls++
	if f.err != nil {
		return trends.TrendDataset{}, f.err
	}
	ds := f.ds
	ds.Keyword = keyword
	ds.ComparisonEnabled = comparison
	return ds, nil
}

type fakeCompetitorFetcher struct {
	listings []CompetitorListing
	err      error
}

func (f *fakeCompetitorFetcher) FetchListings(context.Context, string) ([]CompetitorListing, error) {
	return f.listings, f.err
}

func sampleDataset() trends.TrendDataset {
	return trends.TrendDataset{
		Keyword: "crm sync",
		InterestOverTime: []trends.TrendPoint{
			{Date: "2025-01-01", Interest: 40},
			{Date: "2025-02-01", Interest: 55},
			{Date: "2025-03-01", Interest: 60},
		},
		RelatedQueries: trends.QueryLists{
			Top:    []trends.ScoredQuery{{Query: "crm sync error", Value: 80}, {Query: "best crm sync", Value: 60}},
			Rising: []trends.ScoredQuery{{Query: "how to fix crm sync", Value: 120}},
		},
		RisingSearches: trends.QueryLists{
			Rising: []trends.ScoredQuery{{Query: "crm sync tool", Value: 90}},
		},
		Metadata: map[string]any{"timeframe": "today 12-m"},
	}
}

func corePipeline(t *testing.T, q *queueCaller) (*Pipeline, *fakeFetcher) {
	t.Helper()
	fetcher := &fakeFetcher{ds: sampleDataset()}
	p, err := NewPipeline(fetcher, testRunner(q))
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	return p, fetcher
}

func coreResponses() []string {
	return []string{validProblemsJSON, validMaturityJSON, validGoalsJSON, validCategoriesJSON, validFeaturesJSON}
}

func TestPipelineFullRun(t *testing.T) {
	q := &queueCaller{responses: coreResponses()}
	p, _ := corePipeline(t, q)

	var events []ProgressEvent
	res, err := p.RunWithProgress(context.Background(), "crm sync", false, func(ev ProgressEvent) { events = append(events, ev) })
	if err != nil {
		t.Fatalf("RunWithProgress: %v", err)
	}

	if res.Keyword != "crm sync" {
		t.Fatalf("keyword = %q", res.Keyword)
	}
	if len(res.IdentifiedProblems.Problems) != 1 || res.MarketMaturity.Stage != "mid" {
		t.Fatalf("stage outputs not compiled: %+v", res)
	}
	if len(res.DegradedStages) != 0 {
		t.Fatalf("unexpected degraded stages: %v", res.DegradedStages)
	}
	if res.TrendsMetadata["timeframe"] != "today 12-m" {
		t.Fatalf("metadata not propagated: %v", res.TrendsMetadata)
	}
	if res.SummaryInsights.ProblemLandscape == nil || !res.SummaryInsights.ProblemLandscape.SolutionSeeking {
		t.Fatalf("summary insights missing: %+v", res.SummaryInsights)
	}
	if res.DataQuality.DataCompleteness != 1.0 {
		t.Fatalf("completeness = %v, want 1", res.DataQuality.DataCompleteness)
	}

	wantPercents := []int{0, 10, 20, 30, 40, 50, 60, 70, 80, 85, 90, 95}
	if len(events) != len(wantPercents) {
		t.Fatalf("got %d events, want %d", len(events), len(wantPercents))
	}
	for i, ev := range events {
		if ev.Percent != wantPercents[i] {
			t.Fatalf("event %d percent = %d, want %d (step %s)", i, ev.Percent, wantPercents[i], ev.Step)
		}
		if i > 0 && ev.Percent < events[i-1].Percent {
			t.Fatalf("progress decreased at %d", i)
		}
	}
	if events[3].Step != "extracting_problems" || events[11].Step != "features_generated" {
		t.Fatalf("unexpected steps: %s, %s", events[3].Step, events[11].Step)
	}
}

func TestPipelineFetchFailureFailsRun(t *testing.T) {
	q := &queueCaller{}
	fetcher := &fakeFetcher{err: errors.New("trends api unreachable")}
	p, err := NewPipeline(fetcher, testRunner(q))
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	if _, err := p.Run(context.Background(), "crm sync", false); err == nil {
		t.Fatal("expected fetch failure to fail the run")
	}
	if len(q.prompts) != 0 {
		t.Fatalf("stages ran after fetch failure: %d prompts", len(q.prompts))
	}
}

func TestPipelineEmptyKeyword(t *testing.T) {
	q := &queueCaller{}
	p, fetcher := corePipeline(t, q)
	if _, err := p.Run(context.Background(), "   ", false); err == nil {
		t.Fatal("expected error for empty keyword")
	}
	if fetcher.calls != 0 {
		t.Fatal("fetch ran for empty keyword")
	}
}

func TestPipelineStageFallback(t *testing.T) {
	// Maturity returns an invalid stage value on every attempt: the executor
	// burns all 3 attempts, then the pipeline degrades to the fixed fallback.
	bad := `{"stage":"unknown","confidence":0.9,"reasoning":"x","trend_direction":"stable"}`
	q := &queueCaller{responses: []string{
		validProblemsJSON,
		bad, bad, bad,
		validGoalsJSON, validCategoriesJSON, validFeaturesJSON,
	}}
	p, _ := corePipeline(t, q)

	res, err := p.Run(context.Background(), "crm sync", false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := MarketMaturity{Stage: "mid", Confidence: 0.5, Reasoning: "Unable to complete analysis due to API error", TrendDirection: "stable"}
	if res.MarketMaturity != want {
		t.Fatalf("fallback maturity = %+v, want %+v", res.MarketMaturity, want)
	}
	if m := res.Attempts[StageMarketMaturity]; m.Attempts != 3 {
		t.Fatalf("maturity attempts = %d, want 3", m.Attempts)
	}
	if len(res.DegradedStages) != 1 || res.DegradedStages[0] != StageMarketMaturity {
		t.Fatalf("degraded = %v", res.DegradedStages)
	}
	// Later stages still ran on the fallback value.
	if len(res.SolutionGoals.Goals) != 1 {
		t.Fatalf("goals missing after degrade: %+v", res.SolutionGoals)
	}
}

func TestPipelineCacheHit(t *testing.T) {
	q := &queueCaller{responses: coreResponses()}
	p, fetcher := corePipeline(t, q)

	first, err := p.Run(context.Background(), "crm sync", false)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := p.Run(context.Background(), "crm sync", false)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if fetcher.calls != 1 {
		t.Fatalf("fetch calls = %d, want 1", fetcher.calls)
	}
	if first.AnalysisTimestamp != second.AnalysisTimestamp {
		t.Fatal("cache returned a different result")
	}

	// Different comparison flag is a different cache key.
	q.responses = coreResponses()
	if _, err := p.Run(context.Background(), "crm sync", true); err != nil {
		t.Fatalf("comparison run: %v", err)
	}
	if fetcher.calls != 2 {
		t.Fatalf("fetch calls = %d, want 2", fetcher.calls)
	}
}

func TestPipelineCompetitorStages(t *testing.T) {
	t.Run("enabled", func(t *testing.T) {
		q := &queueCaller{responses: append(coreResponses(), validCompetitorJSON, validEnhanceJSON)}
		p, _ := corePipeline(t, q)
		if _, err := p.WithCompetitorFetcher(&fakeCompetitorFetcher{listings: []CompetitorListing{{Title: "AcmeSync"}}}); err != nil {
			t.Fatalf("WithCompetitorFetcher: %v", err)
		}

		var percents []int
		res, err := p.RunWithProgress(context.Background(), "crm sync", false, func(ev ProgressEvent) { percents = append(percents, ev.Percent) })
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if res.CompetitorAnalysis == nil || res.EnhancedFeatures == nil {
			t.Fatal("competitor outputs missing")
		}
		if res.CompetitorAnalysis.Competitors[0].Name != "AcmeSync" {
			t.Fatalf("competitors = %+v", res.CompetitorAnalysis)
		}
		saw97, saw98 := false, false
		for _, pc := range percents {
			saw97 = saw97 || pc == 97
			saw98 = saw98 || pc == 98
		}
		if !saw97 || !saw98 {
			t.Fatalf("missing competitor checkpoints in %v", percents)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		q := &queueCaller{responses: coreResponses()}
		p, _ := corePipeline(t, q)
		res, err := p.Run(context.Background(), "crm sync", false)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if res.CompetitorAnalysis != nil || res.EnhancedFeatures != nil {
			t.Fatal("competitor stages ran without a fetcher")
		}
	})

	t.Run("scrape failure degrades", func(t *testing.T) {
		q := &queueCaller{responses: append(coreResponses(), validEnhanceJSON)}
		p, _ := corePipeline(t, q)
		if _, err := p.WithCompetitorFetcher(&fakeCompetitorFetcher{err: errors.New("no chrome")}); err != nil {
			t.Fatalf("WithCompetitorFetcher: %v", err)
		}
		res, err := p.Run(context.Background(), "crm sync", false)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if res.CompetitorAnalysis == nil || res.CompetitorAnalysis.PositioningNote == "" {
			t.Fatal("expected competitor fallback")
		}
		found := false
		for _, s := range res.DegradedStages {
			if s == StageCompetitors {
				found = true
			}
		}
		if !found {
			t.Fatalf("degraded = %v, want competitor stage", res.DegradedStages)
		}
	})
}

func TestPipelineReportRendering(t *testing.T) {
	q := &queueCaller{responses: coreResponses()}
	p, _ := corePipeline(t, q)
	p.WithClock(func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) })

	res, err := p.Run(context.Background(), "crm sync", false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	md := BuildMarkdown(res)
	for _, want := range []string{"# SaaS Opportunity Analysis: crm sync", "## Market Maturity", "Conflict Timeline", "2025-06-01"} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q", want)
		}
	}
	html, err := RenderHTML(res)
	if err != nil {
		t.Fatalf("RenderHTML: %v", err)
	}
	if !strings.Contains(html, "<h1") || !strings.Contains(html, "<table>") {
		t.Fatalf("html missing structure: %.120s", html)
	}
}
