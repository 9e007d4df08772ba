package rss

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/tool"
)

func rssFeed(title string, n int) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<?xml version="1.0"?><rss version="2.0"><channel><title>%s</title>`, title)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `<item><title>%s post %d</title><link>https://example.com/%d</link>`+
			`<description>&lt;p&gt;Hello &lt;b&gt;world&lt;/b&gt; %d&lt;/p&gt;</description></item>`, title, i, i, i)
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}

func newFeedServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/a.xml":
			_, _ = w.Write([]byte(rssFeed("Alpha", 12)))
		case "/b.xml":
			_, _ = w.Write([]byte(rssFeed("Beta", 2)))
		default:
			http.Error(w, "gone", http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeOPML(t *testing.T, base string) string {
	t.Helper()
	opml := fmt.Sprintf(`<?xml version="1.0"?>
<opml version="2.0">
  <head><title>subs</title></head>
  <body>
    <outline text="Blogs">
      <outline text="Alpha Blog" xmlUrl="%[1]s/a.xml"/>
      <outline title="Broken" xmlUrl="%[1]s/missing.xml"/>
    </outline>
    <outline text="Beta Blog" title="Beta" xmlUrl="%[1]s/b.xml"/>
  </body>
</opml>`, base)
	path := filepath.Join(t.TempDir(), "feeds.opml")
	require.NoError(t, os.WriteFile(path, []byte(opml), 0o644))
	return path
}

func TestParseOPML(t *testing.T) {
	feeds, err := ParseOPML(strings.NewReader(`<opml><body>
		<outline text="folder"><outline text="A" xmlUrl="http://a"/></outline>
		<outline xmlUrl="http://b"/>
		<outline text="no url"/>
	</body></opml>`))
	require.NoError(t, err)
	assert.Equal(t, []Feed{{Title: "A", URL: "http://a"}, {Title: "Unknown", URL: "http://b"}}, feeds)

	_, err = ParseOPML(strings.NewReader("<opml"))
	assert.Error(t, err)
}

func TestFetcher_FetchAll(t *testing.T) {
	srv := newFeedServer(t)
	f := NewFetcher(func(o *FetcherOptions) { o.Workers = 2 })

	articles := f.FetchAll(context.Background(), []Feed{
		{Title: "Alpha Blog", URL: srv.URL + "/a.xml"},
		{Title: "Broken", URL: srv.URL + "/missing.xml"},
		{Title: "Beta", URL: srv.URL + "/b.xml"},
	})

	require.Len(t, articles, DefaultPerFeedLimit+2)
	assert.Equal(t, "Alpha", articles[0].Source)
	assert.Equal(t, "Alpha post 0", articles[0].Title)
	assert.Equal(t, "https://example.com/0", articles[0].Link)
	assert.Equal(t, "Hello world 0", articles[0].Summary)
	assert.Equal(t, "Beta", articles[DefaultPerFeedLimit].Source)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "héll", truncateRunes("héllo", 4))
	assert.Equal(t, "héllo", truncateRunes("héllo", 10))
	assert.Equal(t, "", plainText(""))
	assert.Equal(t, "a b", plainText("<div>a\n\n <i>b</i></div>"))
}

func findTool(t *testing.T, tools []tool.Tool, name string) tool.Tool {
	t.Helper()
	for _, tl := range tools {
		if tl.Name() == name {
			return tl
		}
	}
	t.Fatalf("tool %s not found", name)
	return nil
}

func TestFetchTool(t *testing.T) {
	srv := newFeedServer(t)
	tools := Tools(func(o *Options) { o.OPMLPath = writeOPML(t, srv.URL) })

	res, err := findTool(t, tools, FetchName).Execute(context.Background(), map[string]any{"max_items": float64(5)})
	require.NoError(t, err)
	assert.True(t, res.Terminal)

	var articles []Article
	require.NoError(t, json.Unmarshal([]byte(res.Output), &articles))
	assert.Len(t, articles, 5)

	res, err = findTool(t, tools, FetchName).Execute(context.Background(), map[string]any{"max_feeds": float64(2)})
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(res.Output), &articles))
	assert.Len(t, articles, DefaultPerFeedLimit)
	for _, a := range articles {
		assert.Equal(t, "Alpha", a.Source)
	}
}

func TestFetchTool_MissingOPML(t *testing.T) {
	tools := Tools(func(o *Options) { o.OPMLPath = filepath.Join(t.TempDir(), "none.opml") })
	_, err := findTool(t, tools, FetchName).Execute(context.Background(), map[string]any{})
	var toolErr *tool.ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, tool.CodeExecution, toolErr.Code)
}

func TestFilterTool_Passthrough(t *testing.T) {
	tools := Tools()
	res, err := findTool(t, tools, FilterName).Execute(context.Background(), map[string]any{"articles": `[{"title":"x"}]`})
	require.NoError(t, err)
	assert.True(t, res.Terminal)
	assert.Equal(t, `[{"title":"x"}]`, res.Output)
}

func TestSummarizeTool(t *testing.T) {
	articles := make([]Article, 7)
	for i := range articles {
		articles[i] = Article{Title: fmt.Sprintf("t%d", i), Link: "l", Source: "s", Summary: "sum"}
	}
	raw, err := json.Marshal(articles)
	require.NoError(t, err)

	st := findTool(t, Tools(), SummarizeName)
	res, err := st.Execute(context.Background(), map[string]any{"articles": string(raw)})
	require.NoError(t, err)
	assert.True(t, res.Terminal)

	var items []SummaryItem
	require.NoError(t, json.Unmarshal([]byte(res.Output), &items))
	require.Len(t, items, DefaultMaxArticles)
	assert.Equal(t, "t0", items[0].Title)
	assert.Equal(t, "sum", items[0].OriginalSummary)
	assert.Contains(t, res.Output, `"original_summary"`)

	res, err = st.Execute(context.Background(), map[string]any{"articles": string(raw), "max_articles": float64(2)})
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(res.Output), &items))
	assert.Len(t, items, 2)

	_, err = st.Execute(context.Background(), map[string]any{"articles": "not json"})
	assert.Error(t, err)
}

func TestReportTool(t *testing.T) {
	day := time.Date(2025, 3, 14, 8, 0, 0, 0, time.UTC)
	rt := findTool(t, Tools(func(o *Options) { o.Now = func() time.Time { return day } }), ReportName)

	summaries := `[{"title":"Agents","link":"https://x","source":"Blog","summary":"Short take"},` +
		`{"title":"Go","link":"https://y","source":"Dev","original_summary":"Fallback"}]`

	res, err := rt.Execute(context.Background(), map[string]any{"summaries": summaries})
	require.NoError(t, err)
	assert.True(t, res.Terminal)
	assert.Contains(t, res.Output, "**Date**: 2025-03-14")
	assert.Contains(t, res.Output, "### 1. Agents\n\n**Source**: Blog\n\nShort take\n\n[Read more](https://x)")
	assert.Contains(t, res.Output, "### 2. Go")
	assert.Contains(t, res.Output, "Fallback")

	out := filepath.Join(t.TempDir(), "reports", "today.md")
	res, err = rt.Execute(context.Background(), map[string]any{"summaries": summaries, "output_path": out})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(res.Output, "Report saved to: "+out+"\n\n"))

	written, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, strings.TrimPrefix(res.Output, "Report saved to: "+out+"\n\n"), string(written))
}
