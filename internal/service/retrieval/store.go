package retrieval

import (
	"context"
	"fmt"

	"github.com/diirlab/xrlia/internal/core"
	"github.com/diirlab/xrlia/pkg/log"
)

// Store vectorizes a query and delegates the nearest-neighbour lookup
// to the external index. Every call re-embeds and re-queries; results
// are never cached.
type Store struct {
	embedder core.Embedder
	index    core.VectorIndex
}

func NewStore(embedder core.Embedder, index core.VectorIndex) *Store {
	return &Store{
		embedder: embedder,
		index:    index,
	}
}

func (s *Store) SimilaritySearch(ctx context.Context, query string, k int) ([]core.Document, error) {
	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", core.ErrRetrievalUnavailable, err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: expected 1 query vector, got %d", core.ErrRetrievalUnavailable, len(vectors))
	}

	docs, err := s.index.Query(ctx, vectors[0], k)
	if err != nil {
		return nil, fmt.Errorf("%w: index query: %v", core.ErrRetrievalUnavailable, err)
	}

	log.FromCtx(ctx).Debug().Str("query", query).Int("k", k).Int("hits", len(docs)).Msg("similarity search")
	return docs, nil
}
