package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diirlab/xrlia/internal/core"
)

type stubEmbedder struct {
	vectors [][]float32
	err     error
	got     []string
}

func (s *stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	s.got = texts
	return s.vectors, s.err
}

type stubIndex struct {
	docs      []core.Document
	err       error
	gotVector []float32
	gotK      int
}

func (s *stubIndex) Query(ctx context.Context, vector []float32, k int) ([]core.Document, error) {
	s.gotVector = vector
	s.gotK = k
	return s.docs, s.err
}

func TestStore_EmbedsQueryThenQueriesIndex(t *testing.T) {
	embedder := &stubEmbedder{vectors: [][]float32{{0.1, 0.2}}}
	index := &stubIndex{docs: []core.Document{{ID: "c1", Content: "chunk"}}}
	store := NewStore(embedder, index)

	docs, err := store.SimilaritySearch(context.Background(), "ETT placement", 3)
	require.NoError(t, err)

	assert.Equal(t, []string{"ETT placement"}, embedder.got)
	assert.Equal(t, []float32{0.1, 0.2}, index.gotVector)
	assert.Equal(t, 3, index.gotK)
	assert.Equal(t, index.docs, docs)
}

func TestStore_EmbeddingFailureIsRetrievalUnavailable(t *testing.T) {
	embedder := &stubEmbedder{err: errors.New("quota exceeded")}
	store := NewStore(embedder, &stubIndex{})

	_, err := store.SimilaritySearch(context.Background(), "anything", 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrRetrievalUnavailable))
}

func TestStore_IndexFailureIsRetrievalUnavailable(t *testing.T) {
	embedder := &stubEmbedder{vectors: [][]float32{{0.5}}}
	index := &stubIndex{err: errors.New("index down")}
	store := NewStore(embedder, index)

	_, err := store.SimilaritySearch(context.Background(), "anything", 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrRetrievalUnavailable))
}
