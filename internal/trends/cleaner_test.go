package trends

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestCleanQueryText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases", "CRM Software", "crm software"},
		{"strips punctuation", "what's the best crm?!", "whats the best crm"},
		{"keeps hyphen and dot", "self-hosted crm v2.0", "self-hosted crm v2.0"},
		{"collapses whitespace", "  crm \t software  ", "crm software"},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CleanQueryText(tc.in); got != tc.want {
				t.Fatalf("CleanQueryText(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestCleanQueries(t *testing.T) {
	ds := TrendDataset{
		Keyword: "crm",
		RelatedQueries: QueryLists{
			Top: []ScoredQuery{
				{Query: "ok", Value: 90},
				{Query: "CRM Pricing!!", Value: 40},
				{Query: "best crm", Value: 80},
				{Query: "a", Value: 100},
			},
		},
	}
	got := Clean(ds).RelatedQueries.Top
	want := []ScoredQuery{
		{Query: "best crm", Value: 80, Category: "top"},
		{Query: "crm pricing", Value: 40, Category: "top"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("cleaned queries = %+v, want %+v", got, want)
	}
}

func TestCleanCapsAtTen(t *testing.T) {
	var in []ScoredQuery
	for i := 0; i < 15; i++ {
		in = append(in, ScoredQuery{Query: "crm query", Value: i})
	}
	ds := TrendDataset{RisingSearches: QueryLists{Rising: in}}
	got := Clean(ds).RisingSearches.Rising
	if len(got) != 10 {
		t.Fatalf("len = %d, want 10", len(got))
	}
	if got[0].Value != 14 || got[9].Value != 5 {
		t.Fatalf("not sorted descending: first=%d last=%d", got[0].Value, got[9].Value)
	}
}

func TestCleanInterest(t *testing.T) {
	ds := TrendDataset{
		InterestOverTime: []TrendPoint{
			{Date: "2025-01-01", Interest: 150},
			{Date: "2025-02-01", Interest: -5},
			{Date: "", Interest: 60},
			{Date: "2025-03-01", Interest: 42},
		},
	}
	got := Clean(ds).InterestOverTime
	want := []TrendPoint{
		{Date: "2025-01-01", Interest: 100},
		{Date: "2025-02-01", Interest: 0},
		{Date: "2025-03-01", Interest: 42},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("cleaned interest = %+v, want %+v", got, want)
	}
}

func TestScoredQueryDecodeTolerance(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want ScoredQuery
	}{
		{"plain", `{"query":"crm tools","value":75}`, ScoredQuery{Query: "crm tools", Value: 75}},
		{"title fallback", `{"title":"crm tools","value":75}`, ScoredQuery{Query: "crm tools", Value: 75}},
		{"string value", `{"query":"crm","value":"80"}`, ScoredQuery{Query: "crm", Value: 80}},
		{"percent value", `{"query":"crm","value":"+120%"}`, ScoredQuery{Query: "crm", Value: 120}},
		{"breakout", `{"query":"crm","value":"Breakout"}`, ScoredQuery{Query: "crm", Value: 10000}},
		{"bare string", `"crm tools"`, ScoredQuery{Query: "crm tools"}},
		{"garbage value", `{"query":"crm","value":{"x":1}}`, ScoredQuery{Query: "crm"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got ScoredQuery
			if err := json.Unmarshal([]byte(tc.raw), &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestCleanIsIdempotent(t *testing.T) {
	ds := TrendDataset{
		Keyword: "note apps",
		RelatedQueries: QueryLists{
			Top: []ScoredQuery{{Query: "Best Note App!!", Value: 50}, {Query: "note app sync error", Value: 30}},
		},
		InterestOverTime: []TrendPoint{{Date: "2025-01-01", Interest: 120}},
	}
	once := Clean(ds)
	twice := Clean(once)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("Clean not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}
