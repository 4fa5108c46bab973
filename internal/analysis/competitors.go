package analysis

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// CompetitorListing is one scraped search result for "<keyword> alternatives".
type CompetitorListing struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// CompetitorFetcher supplies raw competitor listings. The pipeline runs its
// competitor stages only when a fetcher is configured.
type CompetitorFetcher interface {
	FetchListings(ctx context.Context, keyword string) ([]CompetitorListing, error)
}

// ChromiumFetcher scrapes a search results page with headless Chrome.
type ChromiumFetcher struct {
	execPath   string
	timeout    time.Duration
	maxResults int
}

func NewChromiumFetcher(execPath string) *ChromiumFetcher {
	return &ChromiumFetcher{
		execPath:   execPath,
		timeout:    45 * time.Second,
		maxResults: 8,
	}
}

const listingExtractJS = `
Array.from(document.querySelectorAll('div.result, article')).slice(0, %d).map(el => {
  const a = el.querySelector('a.result__a, h2 a, a[href]');
  const s = el.querySelector('.result__snippet, p');
  return {
    title: a ? a.textContent.trim() : '',
    snippet: s ? s.textContent.trim() : '',
    url: a ? a.href : ''
  };
}).filter(r => r.title !== '')
`

func (f *ChromiumFetcher) FetchListings(ctx context.Context, keyword string) ([]CompetitorListing, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	if f.execPath != "" {
		opts = append(opts, chromedp.ExecPath(f.execPath))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()
	runCtx, cancelRun := context.WithTimeout(browserCtx, f.timeout)
	defer cancelRun()

	query := url.QueryEscape(keyword + " alternatives")
	target := "https://duckduckgo.com/html/?q=" + query

	started := time.Now()
	var listings []CompetitorListing
	err := chromedp.Run(runCtx,
		network.Enable(),
		chromedp.Navigate(target),
		chromedp.WaitReady("body"),
		chromedp.Evaluate(fmt.Sprintf(listingExtractJS, f.maxResults), &listings),
	)
	if err != nil {
		return nil, fmt.Errorf("competitor scrape failed: %w", err)
	}
	log.Printf("analysis competitor_scrape keyword=%q results=%d elapsed_ms=%d", keyword, len(listings), time.Since(started).Milliseconds())

	out := listings[:0]
	for _, l := range listings {
		if strings.TrimSpace(l.Title) == "" {
			continue
		}
		out = append(out, l)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("competitor scrape returned no usable listings")
	}
	return out, nil
}
