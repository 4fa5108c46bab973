package trends

import (
	"regexp"
	"sort"
	"strings"
)

var queryPunct = regexp.MustCompile(`[^\w\s\-\.]`)

// Clean normalizes a raw dataset in place on a copy: query text is
// lowercased, stripped of punctuation other than hyphen and dot, and
// whitespace-collapsed; queries of 2 characters or fewer are dropped; each
// list is sorted descending by value and capped at 10; interest values are
// clamped to [0,100] and points without a date are dropped. Clean never
// fails; garbage in means a smaller dataset out.
func Clean(ds TrendDataset) TrendDataset {
	out := ds
	out.RelatedQueries = QueryLists{
		Top:    cleanQueries(ds.RelatedQueries.Top, "top"),
		Rising: cleanQueries(ds.RelatedQueries.Rising, "rising"),
	}
	out.RisingSearches = QueryLists{
		Top:    cleanQueries(ds.RisingSearches.Top, "top"),
		Rising: cleanQueries(ds.RisingSearches.Rising, "rising"),
	}
	out.InterestOverTime = cleanInterest(ds.InterestOverTime)
	return out
}

func cleanQueries(in []ScoredQuery, category string) []ScoredQuery {
	cleaned := make([]ScoredQuery, 0, len(in))
	for _, q := range in {
		text := CleanQueryText(q.Query)
		if len(text) <= 2 {
			continue
		}
		cleaned = append(cleaned, ScoredQuery{Query: text, Value: q.Value, Category: category})
	}
	sort.SliceStable(cleaned, func(i, j int) bool { return cleaned[i].Value > cleaned[j].Value })
	if len(cleaned) > 10 {
		cleaned = cleaned[:10]
	}
	return cleaned
}

// CleanQueryText lowercases, strips punctuation except - and ., and
// collapses runs of whitespace to single spaces.
func CleanQueryText(text string) string {
	if text == "" {
		return ""
	}
	cleaned := queryPunct.ReplaceAllString(strings.ToLower(text), "")
	return strings.Join(strings.Fields(cleaned), " ")
}

func cleanInterest(in []TrendPoint) []TrendPoint {
	cleaned := make([]TrendPoint, 0, len(in))
	for _, p := range in {
		if p.Date == "" {
			continue
		}
		v := p.Interest
		if v < 0 {
			v = 0
		}
		if v > 100 {
			v = 100
		}
		cleaned = append(cleaned, TrendPoint{Date: p.Date, Interest: v})
	}
	return cleaned
}
