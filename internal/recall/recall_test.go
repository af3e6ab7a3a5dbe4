package recall

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The GenAI-backed embedder must satisfy the same contract the engine
// consumes.
var _ Embedder = (*GenAIEmbedder)(nil)

func TestNewGenAIEmbedder_RequiresKey(t *testing.T) {
	_, err := NewGenAIEmbedder(context.Background(), "", "gemini-embedding-001")
	require.Error(t, err)
}

// fakeEmbedder maps known strings to fixed vectors.
type fakeEmbedder struct {
	vectors map[string][]float32
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func TestEngine_RecallRanksBySimilarity(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"sommeil":          {1, 0, 0},
		"dort mal":         {0.9, 0.1, 0},
		"aime le sport":    {0, 1, 0},
		"question sommeil": {1, 0.05, 0},
	}}
	eng := NewEngine(emb)
	ctx := context.Background()

	require.NoError(t, eng.RememberBatch(ctx, []string{"sommeil", "dort mal", "aime le sport"}))

	got, err := eng.Recall(ctx, "question sommeil", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "sommeil", got[0].Content)
	assert.Equal(t, "dort mal", got[1].Content)
	assert.Greater(t, got[0].Score, got[1].Score)
}

func TestEngine_RecallDropsLowScores(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"orthogonal": {0, 1, 0},
		"query":      {1, 0, 0},
	}}
	eng := NewEngine(emb)
	ctx := context.Background()

	require.NoError(t, eng.Remember(ctx, "orthogonal"))

	got, err := eng.Recall(ctx, "query", 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, cosineSimilarity([]float32{1}, []float32{1, 2}), "mismatched dims")
}
