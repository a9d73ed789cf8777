package core

import "context"

type ChatProvider interface {
	Chat(ctx context.Context, history []Message, tools []Tool) (Message, error)
	Stream(ctx context.Context, history []Message) (<-chan StreamChunk, error)
}

// Embedder turns texts into dense vectors, one per input, order-preserving.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorIndex is the external similarity index holding the reference guides.
type VectorIndex interface {
	Query(ctx context.Context, vector []float32, k int) ([]Document, error)
}
