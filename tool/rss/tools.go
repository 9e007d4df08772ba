package rss

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/tool"
)

// Tool names.
const (
	FetchName     = "rss_fetch"
	FilterName    = "rss_filter"
	SummarizeName = "rss_summarize"
	ReportName    = "rss_report"
)

// Argument defaults.
const (
	DefaultMaxItems    = 20
	DefaultMaxFeeds    = 10
	DefaultMaxArticles = 5
)

// Options configure the tool set.
type Options struct {
	// OPMLPath is the subscription list read by rss_fetch.
	OPMLPath string
	Fetcher  *Fetcher
	// MaxItems and MaxFeeds apply when the model omits the arguments.
	MaxItems int
	MaxFeeds int
	// Now stamps generated reports.
	Now    func() time.Time
	Logger logging.Logger
}

// FetchArgs are the arguments of rss_fetch.
type FetchArgs struct {
	MaxItems int `json:"max_items,omitempty" jsonschema:"description=Maximum number of articles to return (default 20)"`
	MaxFeeds int `json:"max_feeds,omitempty" jsonschema:"description=Maximum number of feeds to read (default 10)"`
}

// FilterArgs are the arguments of rss_filter.
type FilterArgs struct {
	Articles string `json:"articles" jsonschema:"description=Article list as JSON"`
}

// SummarizeArgs are the arguments of rss_summarize.
type SummarizeArgs struct {
	Articles    string `json:"articles" jsonschema:"description=Article list as JSON"`
	MaxArticles int    `json:"max_articles,omitempty" jsonschema:"description=Maximum number of articles to keep (default 5)"`
}

// ReportArgs are the arguments of rss_report.
type ReportArgs struct {
	Summaries  string `json:"summaries" jsonschema:"description=Summary list as JSON with title/link/source/summary"`
	OutputPath string `json:"output_path,omitempty" jsonschema:"description=Optional file path the report is written to"`
}

// SummaryItem is an rss_summarize output entry and an rss_report input entry.
type SummaryItem struct {
	Title           string `json:"title"`
	Link            string `json:"link"`
	Source          string `json:"source"`
	Summary         string `json:"summary,omitempty"`
	OriginalSummary string `json:"original_summary,omitempty"`
}

// Tools returns rss_fetch, rss_filter, rss_summarize and rss_report.
func Tools(optFns ...func(o *Options)) []tool.Tool {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts = opts.withDefaults()

	return []tool.Tool{
		NewFetchTool(opts),
		NewFilterTool(opts.Logger),
		NewSummarizeTool(opts.Logger),
		NewReportTool(opts.Now, opts.Logger),
	}
}

func (o Options) withDefaults() Options {
	o.Logger = logging.OrNoOp(o.Logger)
	if o.Fetcher == nil {
		o.Fetcher = NewFetcher(func(f *FetcherOptions) { f.Logger = o.Logger })
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.MaxItems <= 0 {
		o.MaxItems = DefaultMaxItems
	}
	if o.MaxFeeds <= 0 {
		o.MaxFeeds = DefaultMaxFeeds
	}
	return o
}

func terminal(logger logging.Logger) func(o *tool.FunctionOptions) {
	return func(o *tool.FunctionOptions) {
		o.Terminal = true
		o.Logger = logger
	}
}

// NewFetchTool returns rss_fetch reading the subscriptions at opts.OPMLPath
// with opts.Fetcher.
func NewFetchTool(opts Options) tool.Tool {
	opts = opts.withDefaults()
	return tool.NewFunctionToolFromStruct(
		FetchName,
		"Fetch the latest articles from the subscribed RSS feeds. Returns a JSON article list.",
		FetchArgs{},
		func(ctx context.Context, raw map[string]any) (string, error) {
			args := FetchArgs{}
			if err := tool.DecodeArgs(raw, &args); err != nil {
				return "", err
			}
			if args.MaxItems <= 0 {
				args.MaxItems = opts.MaxItems
			}
			if args.MaxFeeds <= 0 {
				args.MaxFeeds = opts.MaxFeeds
			}

			feeds, err := LoadOPML(opts.OPMLPath)
			if err != nil {
				return "", err
			}
			if len(feeds) > args.MaxFeeds {
				feeds = feeds[:args.MaxFeeds]
			}

			articles := opts.Fetcher.FetchAll(ctx, feeds)
			if len(articles) > args.MaxItems {
				articles = articles[:args.MaxItems]
			}
			if articles == nil {
				articles = []Article{}
			}
			return toJSON(articles)
		},
		terminal(opts.Logger),
	)
}

// NewFilterTool returns rss_filter. It hands the article list back unchanged
// so the calling agent judges relevance itself.
func NewFilterTool(logger logging.Logger) tool.Tool {
	logger = logging.OrNoOp(logger)
	return tool.NewFunctionToolFromStruct(
		FilterName,
		"Return the article list for relevance filtering. Judge relevance yourself from the output.",
		FilterArgs{},
		func(_ context.Context, raw map[string]any) (string, error) {
			return tool.StringArg(raw, "articles"), nil
		},
		terminal(logger),
	)
}

// NewSummarizeTool returns rss_summarize. It keeps the first max_articles
// articles and exposes their feed summary as original_summary.
func NewSummarizeTool(logger logging.Logger) tool.Tool {
	logger = logging.OrNoOp(logger)
	return tool.NewFunctionToolFromStruct(
		SummarizeName,
		"Prepare up to max_articles articles for summarization. Returns JSON with title, link, source and original_summary.",
		SummarizeArgs{},
		func(_ context.Context, raw map[string]any) (string, error) {
			args := SummarizeArgs{}
			if err := tool.DecodeArgs(raw, &args); err != nil {
				return "", err
			}
			if args.MaxArticles <= 0 {
				args.MaxArticles = DefaultMaxArticles
			}

			var articles []Article
			if err := json.Unmarshal([]byte(args.Articles), &articles); err != nil {
				return "", fmt.Errorf("decode articles: %w", err)
			}
			if len(articles) > args.MaxArticles {
				articles = articles[:args.MaxArticles]
			}

			out := make([]SummaryItem, len(articles))
			for i, a := range articles {
				out[i] = SummaryItem{Title: a.Title, Link: a.Link, Source: a.Source, OriginalSummary: a.Summary}
			}
			return toJSON(out)
		},
		terminal(logger),
	)
}

// NewReportTool returns rss_report, rendering a markdown briefing dated with now().
func NewReportTool(now func() time.Time, logger logging.Logger) tool.Tool {
	logger = logging.OrNoOp(logger)
	if now == nil {
		now = time.Now
	}
	return tool.NewFunctionToolFromStruct(
		ReportName,
		"Render the daily news briefing in markdown from a JSON summary list. Optionally writes it to output_path.",
		ReportArgs{},
		func(_ context.Context, raw map[string]any) (string, error) {
			args := ReportArgs{}
			if err := tool.DecodeArgs(raw, &args); err != nil {
				return "", err
			}

			var items []SummaryItem
			if err := json.Unmarshal([]byte(args.Summaries), &items); err != nil {
				return "", fmt.Errorf("decode summaries: %w", err)
			}

			report := RenderReport(items, now())
			if args.OutputPath == "" {
				return report, nil
			}

			if err := os.MkdirAll(filepath.Dir(args.OutputPath), 0o755); err != nil {
				return "", fmt.Errorf("create report directory: %w", err)
			}
			if err := os.WriteFile(args.OutputPath, []byte(report), 0o644); err != nil {
				return "", fmt.Errorf("write report: %w", err)
			}
			logger.Info("rss.report.saved", "path", args.OutputPath, "items", len(items))
			return fmt.Sprintf("Report saved to: %s\n\n%s", args.OutputPath, report), nil
		},
		terminal(logger),
	)
}

// RenderReport formats summaries as the daily markdown briefing.
func RenderReport(items []SummaryItem, date time.Time) string {
	var b strings.Builder
	b.WriteString("# Daily News Briefing\n\n")
	fmt.Fprintf(&b, "**Date**: %s\n\n---\n\n", date.Format("2006-01-02"))

	for i, item := range items {
		summary := item.Summary
		if summary == "" {
			summary = item.OriginalSummary
		}
		fmt.Fprintf(&b, "### %d. %s\n\n", i+1, item.Title)
		fmt.Fprintf(&b, "**Source**: %s\n\n", item.Source)
		fmt.Fprintf(&b, "%s\n\n", summary)
		fmt.Fprintf(&b, "[Read more](%s)\n\n---\n\n", item.Link)
	}

	b.WriteString("*Generated automatically by the taskmesh news agents.*\n")
	return b.String()
}

func toJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	return string(data), nil
}
