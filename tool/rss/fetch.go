package rss

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/taskmesh/logging"
)

// Defaults for FetcherOptions.
const (
	DefaultWorkers      = 5
	DefaultPerFeedLimit = 10
	DefaultSummaryRunes = 200
	DefaultTimeout      = 30 * time.Second
)

// Article is a single feed entry reduced to what the pipeline needs.
type Article struct {
	Title     string `json:"title"`
	Link      string `json:"link"`
	Source    string `json:"source"`
	Published string `json:"published,omitempty"`
	Summary   string `json:"summary"`
}

// FetcherOptions configure a Fetcher.
type FetcherOptions struct {
	Workers      int
	PerFeedLimit int
	SummaryRunes int
	HTTPClient   *http.Client
	Logger       logging.Logger
}

// Fetcher downloads feeds concurrently with a bounded worker pool.
type Fetcher struct {
	opts FetcherOptions
}

// NewFetcher creates a Fetcher.
func NewFetcher(optFns ...func(o *FetcherOptions)) *Fetcher {
	opts := FetcherOptions{
		Workers:      DefaultWorkers,
		PerFeedLimit: DefaultPerFeedLimit,
		SummaryRunes: DefaultSummaryRunes,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.PerFeedLimit <= 0 {
		opts.PerFeedLimit = DefaultPerFeedLimit
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	return &Fetcher{opts: opts}
}

// FetchAll downloads every feed and returns the articles grouped in feed
// order. A failing feed is logged and contributes no articles.
func (f *Fetcher) FetchAll(ctx context.Context, feeds []Feed) []Article {
	perFeed := make([][]Article, len(feeds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.opts.Workers)
	for i, feed := range feeds {
		g.Go(func() error {
			items, err := f.fetchFeed(gctx, feed)
			if err != nil {
				f.opts.Logger.Warn("rss.feed.failed", "feed", feed.Title, "url", feed.URL, "error", err.Error())
				return nil
			}
			f.opts.Logger.Info("rss.feed.fetched", "feed", feed.Title, "articles", len(items))
			perFeed[i] = items
			return nil
		})
	}
	_ = g.Wait()

	var out []Article
	for _, items := range perFeed {
		out = append(out, items...)
	}
	return out
}

func (f *Fetcher) fetchFeed(ctx context.Context, feed Feed) ([]Article, error) {
	parser := gofeed.NewParser()
	parser.Client = f.opts.HTTPClient

	parsed, err := parser.ParseURLWithContext(feed.URL, ctx)
	if err != nil {
		return nil, err
	}

	source := parsed.Title
	if source == "" {
		source = feed.Title
	}

	items := parsed.Items
	if len(items) > f.opts.PerFeedLimit {
		items = items[:f.opts.PerFeedLimit]
	}

	out := make([]Article, 0, len(items))
	for _, item := range items {
		out = append(out, Article{
			Title:     strings.TrimSpace(item.Title),
			Link:      item.Link,
			Source:    source,
			Published: item.Published,
			Summary:   truncateRunes(plainText(item.Description), f.opts.SummaryRunes),
		})
	}
	return out, nil
}

// plainText strips markup from an HTML fragment and collapses whitespace.
func plainText(fragment string) string {
	if fragment == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
