package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/diirlab/xrlia/internal/core"
)

const ToolName = "retrieve"

// Searcher is what the tool needs from the vector store adapter.
type Searcher interface {
	SimilaritySearch(ctx context.Context, query string, k int) ([]core.Document, error)
}

// Result carries both the model-visible serialized context and the raw
// documents as a structured artifact for non-model consumers (citation
// display and tests).
type Result struct {
	Serialized string
	Documents  []core.Document
}

// Tool is the single capability declared to the chat model. The model,
// not application code, decides when to invoke it.
type Tool struct {
	store Searcher
	topK  int
	delay time.Duration
}

func NewTool(store Searcher, topK int, delay time.Duration) *Tool {
	if topK <= 0 {
		topK = 3
	}
	return &Tool{
		store: store,
		topK:  topK,
		delay: delay,
	}
}

// Definition is the function declaration sent alongside the chat call.
func (t *Tool) Definition() core.Tool {
	return core.Tool{
		Type: "function",
		Function: core.Function{
			Name:        ToolName,
			Description: "Retrieve reference-guide passages related to a query about lines and tubes on chest X-rays.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"query": {
						"type": "string",
						"description": "The search query."
					}
				},
				"required": ["query"]
			}`),
		},
	}
}

// Execute parses model-emitted arguments and runs the retrieval.
func (t *Tool) Execute(ctx context.Context, arguments string) (Result, error) {
	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return Result{}, fmt.Errorf("%w: bad tool arguments %q: %v", core.ErrRetrievalUnavailable, arguments, err)
	}
	return t.Retrieve(ctx, args.Query)
}

func (t *Tool) Retrieve(ctx context.Context, query string) (Result, error) {
	// Extra rate shaping on top of the embedding pause.
	if t.delay > 0 {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-time.After(t.delay):
		}
	}

	docs, err := t.store.SimilaritySearch(ctx, query, t.topK)
	if err != nil {
		return Result{}, err
	}

	blocks := make([]string, len(docs))
	for i, doc := range docs {
		blocks[i] = fmt.Sprintf("Source: %s\nContent: %s", formatMetadata(doc.Metadata), doc.Content)
	}

	return Result{
		Serialized: strings.Join(blocks, "\n\n"),
		Documents:  docs,
	}, nil
}

// formatMetadata renders attribution deterministically, sorted by key.
func formatMetadata(meta map[string]string) string {
	if len(meta) == 0 {
		return "unknown"
	}
	keys := make([]string, 0, len(meta))
	for key := range meta {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, key := range keys {
		parts[i] = fmt.Sprintf("%s=%s", key, meta[key])
	}
	return strings.Join(parts, " ")
}
