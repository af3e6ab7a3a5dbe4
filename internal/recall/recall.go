// Package recall provides the semantic recall service: free-text notes are
// embedded once on insert, queries are embedded and ranked by cosine
// similarity. The orchestrator treats the results as opaque context
// snippets for prompt injection.
package recall

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/thomasgenty15-afk/Sophia-sub002/internal/logging"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/types"
)

// Embedder generates embedding vectors for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// entry is one remembered snippet with its vector.
type entry struct {
	content string
	vector  []float32
}

// Engine is an embedding-backed recall service over an in-memory corpus.
type Engine struct {
	mu       sync.RWMutex
	embedder Embedder
	entries  []entry
	minScore float64
}

// NewEngine creates a recall engine around an embedder.
func NewEngine(embedder Embedder) *Engine {
	return &Engine{
		embedder: embedder,
		minScore: 0.5,
	}
}

// Remember embeds and stores a snippet for later recall.
func (e *Engine) Remember(ctx context.Context, content string) error {
	if content == "" {
		return nil
	}
	vec, err := e.embedder.Embed(ctx, content)
	if err != nil {
		return fmt.Errorf("failed to embed snippet: %w", err)
	}
	e.mu.Lock()
	e.entries = append(e.entries, entry{content: content, vector: vec})
	e.mu.Unlock()
	return nil
}

// RememberBatch embeds and stores several snippets at once.
func (e *Engine) RememberBatch(ctx context.Context, contents []string) error {
	if len(contents) == 0 {
		return nil
	}
	vecs, err := e.embedder.EmbedBatch(ctx, contents)
	if err != nil {
		return fmt.Errorf("failed to embed batch: %w", err)
	}
	if len(vecs) != len(contents) {
		return fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(contents))
	}
	e.mu.Lock()
	for i, c := range contents {
		e.entries = append(e.entries, entry{content: c, vector: vecs[i]})
	}
	e.mu.Unlock()
	return nil
}

// Recall returns the topK snippets ranked by cosine similarity to the
// query. Results below the similarity floor are dropped.
func (e *Engine) Recall(ctx context.Context, query string, topK int) ([]types.Snippet, error) {
	timer := logging.StartTimer(logging.CategoryRecall, "Recall")
	defer timer.Stop()

	if topK <= 0 {
		topK = 5
	}

	qvec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	e.mu.RLock()
	scored := make([]types.Snippet, 0, len(e.entries))
	for _, ent := range e.entries {
		score := cosineSimilarity(qvec, ent.vector)
		if score < e.minScore {
			continue
		}
		scored = append(scored, types.Snippet{Content: ent.content, Score: score})
	}
	e.mu.RUnlock()

	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > topK {
		scored = scored[:topK]
	}

	logging.Get(logging.CategoryRecall).Debug("recall query matched %d snippets", len(scored))
	return scored, nil
}

// cosineSimilarity computes the cosine of the angle between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Noop is a RecallService that returns nothing; used when recall is
// disabled in config.
type Noop struct{}

// Recall always returns an empty result.
func (Noop) Recall(ctx context.Context, query string, topK int) ([]types.Snippet, error) {
	return nil, nil
}
