package trends

import (
	"math"
	"sort"
	"strings"
)

// Fixed indicator vocabularies. English-only on purpose: the upstream trend
// source is queried without a locale and these mirror its query language.
var problemKeywords = map[string][]string{
	"pain_points":      {"problem", "issue", "error", "bug", "fail", "broken", "difficult", "hard", "complex"},
	"solution_seeking": {"how to", "how do i", "solution", "fix", "repair", "resolve", "tutorial", "guide"},
	"comparison":       {"vs", "versus", "alternative", "better", "best", "compare", "difference"},
	"negative":         {"not working", "doesn't work", "bad", "terrible", "awful", "hate", "dislike"},
}

var trendPatterns = map[string][]string{
	"seasonal":  {"christmas", "holiday", "summer", "winter", "spring", "fall"},
	"trending":  {"new", "latest", "2024", "2023", "trending", "viral"},
	"technical": {"api", "integration", "automation", "ai", "machine learning", "cloud"},
}

// ProblemAnalysis counts how many queries touch each problem vocabulary.
type ProblemAnalysis struct {
	Indicators     map[string]int `json:"problem_indicators"`
	TotalQueries   int            `json:"total_queries_analyzed"`
	ProblemDensity float64        `json:"problem_density"`
}

// PatternMatch lists the queries that matched one trend vocabulary.
type PatternMatch struct {
	Matches []string `json:"matches"`
	Count   int      `json:"count"`
}

// InterestStats summarizes the interest-over-time series.
type InterestStats struct {
	Mean           float64 `json:"mean"`
	Median         float64 `json:"median"`
	Max            int     `json:"max"`
	Min            int     `json:"min"`
	TrendDirection string  `json:"trend_direction"`
	Volatility     float64 `json:"volatility"`
}

// QueryValueStats aggregates the scores across every query list.
type QueryValueStats struct {
	MeanValue    float64 `json:"mean_value"`
	MaxValue     int     `json:"max_value"`
	TotalQueries int     `json:"total_queries"`
}

// EnrichedContext is the derived layer the generative stages consume
// alongside the cleaned dataset.
type EnrichedContext struct {
	Problems      ProblemAnalysis         `json:"problem_analysis"`
	Patterns      map[string]PatternMatch `json:"trend_patterns"`
	Interest      *InterestStats          `json:"interest_stats,omitempty"`
	QueryValues   *QueryValueStats        `json:"query_value_stats,omitempty"`
	Clusters      map[string][]string     `json:"keyword_clusters"`
	ClusterThemes []string                `json:"cluster_themes"`
}

// Enrich derives problem indicators, trend patterns, statistics, and keyword
// clusters from a dataset. Call it on Clean output; it tolerates raw input
// but the indicator matching assumes lowercased queries.
func Enrich(ds TrendDataset) EnrichedContext {
	queries := ds.AllQueries()

	ec := EnrichedContext{
		Problems: analyzeProblems(queries),
		Patterns: analyzePatterns(queries),
	}
	ec.Interest = interestStats(ds.InterestOverTime)
	ec.QueryValues = queryValueStats(ds)
	ec.Clusters, ec.ClusterThemes = clusterQueries(queries)
	return ec
}

func analyzeProblems(queries []string) ProblemAnalysis {
	scores := make(map[string]int, len(problemKeywords))
	total := 0
	for category, keywords := range problemKeywords {
		score := 0
		for _, q := range queries {
			lower := strings.ToLower(q)
			for _, kw := range keywords {
				if strings.Contains(lower, kw) {
					score++
				}
			}
		}
		scores[category] = score
		total += score
	}
	denom := len(queries)
	if denom == 0 {
		denom = 1
	}
	return ProblemAnalysis{
		Indicators:     scores,
		TotalQueries:   len(queries),
		ProblemDensity: float64(total) / float64(denom),
	}
}

func analyzePatterns(queries []string) map[string]PatternMatch {
	out := make(map[string]PatternMatch, len(trendPatterns))
	for pattern, keywords := range trendPatterns {
		m := PatternMatch{Matches: []string{}}
		for _, q := range queries {
			lower := strings.ToLower(q)
			for _, kw := range keywords {
				if strings.Contains(lower, kw) {
					m.Matches = append(m.Matches, q)
					break
				}
			}
		}
		m.Count = len(m.Matches)
		out[pattern] = m
	}
	return out
}

func interestStats(points []TrendPoint) *InterestStats {
	if len(points) == 0 {
		return nil
	}
	values := make([]int, len(points))
	for i, p := range points {
		values[i] = p.Interest
	}
	s := &InterestStats{
		Mean:           meanInt(values),
		Median:         medianInt(values),
		Max:            values[0],
		Min:            values[0],
		TrendDirection: trendDirection(values),
	}
	for _, v := range values {
		if v > s.Max {
			s.Max = v
		}
		if v < s.Min {
			s.Min = v
		}
	}
	if len(values) > 1 {
		s.Volatility = stdevInt(values)
	}
	return s
}

func queryValueStats(ds TrendDataset) *QueryValueStats {
	var values []int
	for _, l := range [][]ScoredQuery{ds.RelatedQueries.Top, ds.RelatedQueries.Rising, ds.RisingSearches.Top, ds.RisingSearches.Rising} {
		for _, q := range l {
			values = append(values, q.Value)
		}
	}
	if len(values) == 0 {
		return nil
	}
	max := values[0]
	for _, v := range values {
		if v > max {
			max = v
		}
	}
	return &QueryValueStats{MeanValue: meanInt(values), MaxValue: max, TotalQueries: len(values)}
}

// trendDirection compares the means of the first and second halves of the
// series with a ±10% band around stable.
func trendDirection(values []int) string {
	if len(values) < 2 {
		return "insufficient_data"
	}
	mid := len(values) / 2
	firstAvg := meanInt(values[:mid])
	secondAvg := meanInt(values[mid:])
	switch {
	case secondAvg > firstAvg*1.1:
		return "rising"
	case secondAvg < firstAvg*0.9:
		return "declining"
	default:
		return "stable"
	}
}

// clusterQueries groups queries by shared tokens: the 10 most frequent
// tokens appearing more than once become candidate themes, and a theme
// survives if more than one query contains it (capped at 5 queries each).
// Themes come back in frequency order, ties by first appearance.
func clusterQueries(queries []string) (map[string][]string, []string) {
	counts := map[string]int{}
	firstSeen := map[string]int{}
	order := 0
	for _, q := range queries {
		for _, w := range strings.Fields(strings.ToLower(q)) {
			if _, ok := counts[w]; !ok {
				firstSeen[w] = order
				order++
			}
			counts[w]++
		}
	}

	words := make([]string, 0, len(counts))
	for w, c := range counts {
		if c > 1 {
			words = append(words, w)
		}
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return firstSeen[words[i]] < firstSeen[words[j]]
	})
	if len(words) > 10 {
		words = words[:10]
	}

	clusters := map[string][]string{}
	var themes []string
	for _, w := range words {
		var members []string
		for _, q := range queries {
			if strings.Contains(strings.ToLower(q), w) {
				members = append(members, q)
				if len(members) == 5 {
					break
				}
			}
		}
		if len(members) > 1 {
			clusters[w] = members
			themes = append(themes, w)
		}
	}
	return clusters, themes
}

func meanInt(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	return float64(sum) / float64(len(values))
}

func medianInt(values []int) float64 {
	sorted := append([]int(nil), values...)
	sort.Ints(sorted)
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return float64(sorted[n/2])
	}
	return float64(sorted[n/2-1]+sorted[n/2]) / 2
}

// stdevInt is the sample standard deviation.
func stdevInt(values []int) float64 {
	m := meanInt(values)
	var ss float64
	for _, v := range values {
		d := float64(v) - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)-1))
}
