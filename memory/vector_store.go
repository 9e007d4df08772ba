package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/logging"
)

// ErrNoEmbedder is returned when a VectorStore is built without an Embedder.
var ErrNoEmbedder = errors.New("memory: embedder is required")

// Document is an indexed text fragment.
type Document struct {
	ID      string    `json:"id"`
	Content string    `json:"content"`
	Source  string    `json:"source"`
	Vector  []float64 `json:"vector"`
}

// Options configure a VectorStore.
type Options struct {
	// Path enables JSON persistence when set.
	Path   string
	Logger logging.Logger
}

// VectorStore is an in-process cosine similarity index. Safe for concurrent use.
type VectorStore struct {
	mu       sync.RWMutex
	docs     []Document
	embedder Embedder
	path     string
	logger   logging.Logger
}

// NewVectorStore creates a store and, when a path is configured, loads any
// previously persisted documents. An unreadable file starts an empty index.
func NewVectorStore(embedder Embedder, optFns ...func(o *Options)) (*VectorStore, error) {
	if embedder == nil {
		return nil, ErrNoEmbedder
	}
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	s := &VectorStore{
		embedder: embedder,
		path:     opts.Path,
		logger:   logging.OrNoOp(opts.Logger),
	}
	if s.path != "" {
		if err := s.load(); err != nil {
			s.logger.Warn("memory.load.failed", "path", s.path, "error", err.Error())
			s.docs = nil
		}
	}
	return s, nil
}

// Len returns the number of indexed documents.
func (s *VectorStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Add embeds and appends docs to the index. Documents without a source get
// "doc_<i>" where i is their position in the batch. It returns the number of
// documents indexed.
func (s *VectorStore) Add(ctx context.Context, docs []Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed documents: %w", err)
	}
	if len(vectors) != len(docs) {
		return 0, fmt.Errorf("embed documents: expected %d vectors, got %d", len(docs), len(vectors))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := slices.Clone(s.docs)
	for i, d := range docs {
		if d.Source == "" {
			d.Source = fmt.Sprintf("doc_%d", i)
		}
		if d.ID == "" {
			d.ID = fmt.Sprintf("mem_%d", len(next))
		}
		d.Vector = vectors[i]
		next = append(next, d)
	}
	if err := s.commitLocked(next); err != nil {
		return 0, err
	}
	s.logger.Debug("memory.indexed", "count", len(docs), "total", len(s.docs))
	return len(docs), nil
}

// Search returns the k documents most similar to query, best first. k is
// clamped to the number of indexed documents.
func (s *VectorStore) Search(ctx context.Context, query string, k int) ([]core.SearchResult, error) {
	s.mu.RLock()
	empty := len(s.docs) == 0
	s.mu.RUnlock()
	if empty || k <= 0 {
		return []core.SearchResult{}, nil
	}

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed query: expected 1 vector, got %d", len(vectors))
	}
	qv := vectors[0]

	s.mu.RLock()
	results := make([]core.SearchResult, 0, len(s.docs))
	for _, d := range s.docs {
		results = append(results, core.SearchResult{
			ID:      d.ID,
			Content: d.Content,
			Source:  d.Source,
			Score:   CosineSimilarity(qv, d.Vector),
		})
	}
	s.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// Reset drops every document (and the persisted file contents).
func (s *VectorStore) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitLocked(nil)
}

func (s *VectorStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, &s.docs)
}

// commitLocked persists docs and swaps them in once the write succeeded.
// The caller must hold the write lock.
func (s *VectorStore) commitLocked(docs []Document) error {
	if err := s.save(docs); err != nil {
		return err
	}
	s.docs = docs
	return nil
}

func (s *VectorStore) save(docs []Document) error {
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}
	if docs == nil {
		docs = []Document{}
	}
	data, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return nil
}
