package trends

import (
	"encoding/json"
	"strconv"
	"strings"
)

// TrendPoint is one sample of search interest for the analyzed keyword.
// Interest is normalized by the trend source to 0-100.
type TrendPoint struct {
	Date     string `json:"date"`
	Interest int    `json:"interest"`
}

// ScoredQuery is a related query or rising topic with its relative score.
type ScoredQuery struct {
	Query    string `json:"query"`
	Value    int    `json:"value"`
	Category string `json:"category,omitempty"`
}

// QueryLists groups the "top" and "rising" variants the trend source
// returns for both related queries and rising searches.
type QueryLists struct {
	Top    []ScoredQuery `json:"top"`
	Rising []ScoredQuery `json:"rising"`
}

// TrendDataset is the semi-structured record returned by the trend source
// for one keyword. Fields may be missing or malformed upstream; decoding is
// lenient and Clean normalizes whatever arrives.
type TrendDataset struct {
	Keyword           string         `json:"keyword"`
	ComparisonEnabled bool           `json:"comparison_enabled"`
	InterestOverTime  []TrendPoint   `json:"interest_over_time"`
	RelatedQueries    QueryLists     `json:"related_queries"`
	RisingSearches    QueryLists     `json:"rising_searches"`
	Metadata          map[string]any `json:"metadata"`
}

// AllQueries pools every query string from related queries and rising
// searches, in a fixed order (related top, related rising, rising top,
// rising rising).
func (d TrendDataset) AllQueries() []string {
	lists := [][]ScoredQuery{
		d.RelatedQueries.Top,
		d.RelatedQueries.Rising,
		d.RisingSearches.Top,
		d.RisingSearches.Rising,
	}
	var out []string
	for _, l := range lists {
		for _, q := range l {
			out = append(out, q.Query)
		}
	}
	return out
}

// UnmarshalJSON tolerates the inconsistent shapes the trend source emits:
// the query text may arrive under "query" or "title", and the value may be
// a number, a numeric string, a percentage string, or "Breakout".
func (q *ScoredQuery) UnmarshalJSON(data []byte) error {
	var raw struct {
		Query    string          `json:"query"`
		Title    string          `json:"title"`
		Value    json.RawMessage `json:"value"`
		Category string          `json:"category"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		// A bare string query with no score is still usable.
		var s string
		if err2 := json.Unmarshal(data, &s); err2 == nil {
			*q = ScoredQuery{Query: s}
			return nil
		}
		return err
	}
	text := raw.Query
	if text == "" {
		text = raw.Title
	}
	*q = ScoredQuery{Query: text, Value: coerceValue(raw.Value), Category: raw.Category}
	return nil
}

// UnmarshalJSON accepts interest as a number or a numeric string and treats
// anything else as zero. Clamping happens in Clean.
func (p *TrendPoint) UnmarshalJSON(data []byte) error {
	var raw struct {
		Date     string          `json:"date"`
		Interest json.RawMessage `json:"interest"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = TrendPoint{Date: raw.Date, Interest: coerceValue(raw.Interest)}
	return nil
}

func coerceValue(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return int(n)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0
	}
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "breakout") {
		// Breakout entries have no percentage; rank them above everything.
		return 10000
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "+"), "%")
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return v
}
