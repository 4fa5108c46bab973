package trends

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Fetcher obtains the raw trend dataset for a keyword. The pipeline depends
// on this interface; tests substitute a canned implementation.
type Fetcher interface {
	Fetch(ctx context.Context, keyword string, comparison bool) (TrendDataset, error)
}

// HTTPFetcher calls the trends collector service.
type HTTPFetcher struct {
	baseURL string
	http    *http.Client
}

func NewHTTPFetcher(baseURL string) *HTTPFetcher {
	return &HTTPFetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithTimeout replaces the default 30s request timeout.
func (f *HTTPFetcher) WithTimeout(d time.Duration) *HTTPFetcher {
	if d > 0 {
		f.http.Timeout = d
	}
	return f
}

// Fetch performs GET {base}/analyze/{keyword}?cmp=. Any transport failure or
// non-2xx status is an error; a well-formed response with missing fields is
// not (the decoder zero-fills and Clean handles the rest).
func (f *HTTPFetcher) Fetch(ctx context.Context, keyword string, comparison bool) (TrendDataset, error) {
	q := url.Values{}
	q.Set("cmp", fmt.Sprintf("%t", comparison))
	endpoint := f.baseURL + "/analyze/" + url.PathEscape(keyword) + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return TrendDataset{}, fmt.Errorf("build trends request: %w", err)
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return TrendDataset{}, fmt.Errorf("trends api unreachable: %w", err)
	}
	defer resp.Body.Close()
	blob, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return TrendDataset{}, fmt.Errorf("trends api status=%d body=%s", resp.StatusCode, string(blob))
	}

	var ds TrendDataset
	if err := json.Unmarshal(blob, &ds); err != nil {
		return TrendDataset{}, fmt.Errorf("decode trends response: %w", err)
	}
	if ds.Keyword == "" {
		ds.Keyword = keyword
	}
	ds.ComparisonEnabled = ds.ComparisonEnabled || comparison
	return ds, nil
}
