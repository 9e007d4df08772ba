// Package rss provides the news pipeline tools: rss_fetch reads an OPML
// subscription list and pulls the latest entries of every feed concurrently,
// rss_filter hands the article list back to the model for relevance
// judgement, rss_summarize trims the list for summarization and rss_report
// renders the final markdown briefing.
//
// Every tool in this package produces a terminal result: each pipeline stage
// is run by its own agent and the tool output is that agent's answer.
package rss
