package core

// SearchResult represents a retrieved item with a relevance score and arbitrary metadata.
type SearchResult struct {
	ID       string
	Content  string
	Source   string
	Score    float64
	Metadata map[string]any
}
