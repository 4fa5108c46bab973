package trends

import (
	"math"
	"reflect"
	"testing"
)

func datasetWithQueries(queries ...string) TrendDataset {
	var list []ScoredQuery
	for i, q := range queries {
		list = append(list, ScoredQuery{Query: q, Value: 100 - i})
	}
	return TrendDataset{Keyword: "test", RelatedQueries: QueryLists{Top: list}}
}

func TestEnrichProblemIndicators(t *testing.T) {
	ds := datasetWithQueries(
		"crm sync error",
		"how to fix crm sync",
		"crm vs spreadsheet",
		"crm not working",
		"crm pricing",
	)
	ec := Enrich(ds)

	want := map[string]int{
		// "how to fix" hits both "how to" and "fix".
		"pain_points":      1,
		"solution_seeking": 2,
		"comparison":       1,
		"negative":         1,
	}
	for k, v := range want {
		if ec.Problems.Indicators[k] != v {
			t.Fatalf("indicator %s = %d, want %d (all: %v)", k, ec.Problems.Indicators[k], v, ec.Problems.Indicators)
		}
	}
	if ec.Problems.TotalQueries != 5 {
		t.Fatalf("total queries = %d, want 5", ec.Problems.TotalQueries)
	}
	if got, want := ec.Problems.ProblemDensity, 5.0/5.0; math.Abs(got-want) > 1e-9 {
		t.Fatalf("density = %v, want %v", got, want)
	}
}

func TestEnrichEmptyDataset(t *testing.T) {
	ec := Enrich(TrendDataset{Keyword: "empty"})
	if ec.Problems.TotalQueries != 0 {
		t.Fatalf("total queries = %d, want 0", ec.Problems.TotalQueries)
	}
	if ec.Problems.ProblemDensity != 0 {
		t.Fatalf("density = %v, want 0", ec.Problems.ProblemDensity)
	}
	if ec.Interest != nil {
		t.Fatalf("interest stats should be nil for empty series")
	}
	if len(ec.Clusters) != 0 || len(ec.ClusterThemes) != 0 {
		t.Fatalf("unexpected clusters: %v", ec.Clusters)
	}
}

func TestEnrichSingleInterestPoint(t *testing.T) {
	ec := Enrich(TrendDataset{
		Keyword:          "x",
		InterestOverTime: []TrendPoint{{Date: "2025-01-01", Interest: 42}},
	})
	if ec.Interest == nil {
		t.Fatal("interest stats missing")
	}
	if ec.Interest.TrendDirection != "insufficient_data" {
		t.Fatalf("direction = %q, want insufficient_data", ec.Interest.TrendDirection)
	}
	if ec.Interest.Volatility != 0 {
		t.Fatalf("volatility = %v, want 0 for one point", ec.Interest.Volatility)
	}
	if ec.Problems.ProblemDensity != 0 || len(ec.ClusterThemes) != 0 {
		t.Fatalf("derived signals from no queries: %+v", ec)
	}
}

func TestEnrichTrendPatterns(t *testing.T) {
	ds := datasetWithQueries(
		"new crm 2024",
		"crm api integration",
		"christmas crm deals",
		"crm pricing",
	)
	ec := Enrich(ds)
	if got := ec.Patterns["trending"].Count; got != 1 {
		t.Fatalf("trending count = %d, want 1", got)
	}
	if got := ec.Patterns["technical"].Count; got != 1 {
		t.Fatalf("technical count = %d, want 1", got)
	}
	if got := ec.Patterns["seasonal"].Matches; !reflect.DeepEqual(got, []string{"christmas crm deals"}) {
		t.Fatalf("seasonal matches = %v", got)
	}
}

func TestInterestStats(t *testing.T) {
	points := []TrendPoint{
		{Date: "1", Interest: 10},
		{Date: "2", Interest: 20},
		{Date: "3", Interest: 40},
		{Date: "4", Interest: 50},
	}
	ec := Enrich(TrendDataset{InterestOverTime: points})
	s := ec.Interest
	if s == nil {
		t.Fatal("interest stats missing")
	}
	if s.Mean != 30 {
		t.Fatalf("mean = %v, want 30", s.Mean)
	}
	if s.Median != 30 {
		t.Fatalf("median = %v, want 30", s.Median)
	}
	if s.Max != 50 || s.Min != 10 {
		t.Fatalf("max/min = %d/%d, want 50/10", s.Max, s.Min)
	}
	// Second-half mean 45 vs first-half 15: rising.
	if s.TrendDirection != "rising" {
		t.Fatalf("direction = %q, want rising", s.TrendDirection)
	}
	if s.Volatility <= 0 {
		t.Fatalf("volatility = %v, want > 0", s.Volatility)
	}
}

func TestTrendDirection(t *testing.T) {
	cases := []struct {
		name   string
		values []int
		want   string
	}{
		{"single point", []int{50}, "insufficient_data"},
		{"empty", nil, "insufficient_data"},
		{"rising", []int{10, 10, 30, 30}, "rising"},
		{"declining", []int{30, 30, 10, 10}, "declining"},
		{"stable within band", []int{50, 50, 52, 53}, "stable"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := trendDirection(tc.values); got != tc.want {
				t.Fatalf("trendDirection(%v) = %q, want %q", tc.values, got, tc.want)
			}
		})
	}
}

func TestClusterQueries(t *testing.T) {
	ds := datasetWithQueries(
		"crm pricing",
		"crm reviews",
		"crm pricing comparison",
		"invoice tool",
	)
	ec := Enrich(ds)

	if len(ec.ClusterThemes) == 0 || ec.ClusterThemes[0] != "crm" {
		t.Fatalf("themes = %v, want crm first", ec.ClusterThemes)
	}
	if got := ec.Clusters["crm"]; len(got) != 3 {
		t.Fatalf("crm cluster = %v, want 3 members", got)
	}
	if got := ec.Clusters["pricing"]; len(got) != 2 {
		t.Fatalf("pricing cluster = %v, want 2 members", got)
	}
	// A token seen in only one query never clusters.
	if _, ok := ec.Clusters["invoice"]; ok {
		t.Fatal("invoice should not cluster")
	}
}

func TestEnrichDeterministicThemeOrder(t *testing.T) {
	ds := datasetWithQueries("a tool", "a tool kit", "b tool", "b gear")
	first := Enrich(ds).ClusterThemes
	for i := 0; i < 20; i++ {
		if got := Enrich(ds).ClusterThemes; !reflect.DeepEqual(got, first) {
			t.Fatalf("theme order unstable: %v vs %v", got, first)
		}
	}
}
