// Package pinecone is a minimal data-plane client for the Pinecone query
// API. The service only reads from the index; document ingestion is an
// offline job outside this repository.
package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/diirlab/xrlia/internal/config"
	"github.com/diirlab/xrlia/internal/core"
	"github.com/diirlab/xrlia/pkg/log"
	"github.com/diirlab/xrlia/pkg/retry"
)

type Client struct {
	client     *http.Client
	host       string
	apiKey     string
	namespace  string
	contentKey string
	retrier    *retry.Retrier
}

func NewClient(cfg *config.VectorConfig) *Client {
	return &Client{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		host:       strings.TrimSuffix(cfg.IndexHost, "/"),
		apiKey:     cfg.APIKey,
		namespace:  cfg.Namespace,
		contentKey: cfg.ContentKey,
		retrier:    retry.NewDefaultRetrier(),
	}
}

type queryRequest struct {
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	Namespace       string    `json:"namespace,omitempty"`
	IncludeMetadata bool      `json:"includeMetadata"`
}

type queryResponse struct {
	Matches []struct {
		ID       string         `json:"id"`
		Score    float32        `json:"score"`
		Metadata map[string]any `json:"metadata"`
	} `json:"matches"`
}

// Query returns up to k nearest neighbours, most similar first. Reads
// are idempotent, so transient server errors are retried.
func (c *Client) Query(ctx context.Context, vector []float32, k int) ([]core.Document, error) {
	payload := queryRequest{
		Vector:          vector,
		TopK:            k,
		Namespace:       c.namespace,
		IncludeMetadata: true,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	var result queryResponse
	err = c.retrier.Do(ctx, func() error {
		return c.doQuery(ctx, data, &result)
	})
	if err != nil {
		return nil, err
	}

	docs := make([]core.Document, 0, len(result.Matches))
	for _, match := range result.Matches {
		doc := core.Document{
			ID:       match.ID,
			Score:    match.Score,
			Metadata: stringifyMetadata(match.Metadata),
		}
		if content, ok := match.Metadata[c.contentKey].(string); ok {
			doc.Content = content
			delete(doc.Metadata, c.contentKey)
		}
		docs = append(docs, doc)
	}

	log.FromCtx(ctx).Debug().Int("matches", len(docs)).Msg("vector index query")
	return docs, nil
}

func (c *Client) doQuery(ctx context.Context, body []byte, result *queryResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/query", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		statusErr := fmt.Errorf("http %d: %s", resp.StatusCode, string(data))
		// Only server-side failures are transient; auth and request
		// errors will not heal on a retry.
		if resp.StatusCode >= 500 {
			return statusErr
		}
		return retry.Permanent(statusErr)
	}

	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

// stringifyMetadata flattens Pinecone metadata values (strings, numbers,
// bools) for source attribution.
func stringifyMetadata(meta map[string]any) map[string]string {
	if len(meta) == 0 {
		return nil
	}
	out := make(map[string]string, len(meta))
	for key, value := range meta {
		switch v := value.(type) {
		case string:
			out[key] = v
		case float64:
			out[key] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			out[key] = strconv.FormatBool(v)
		default:
			data, _ := json.Marshal(v)
			out[key] = string(data)
		}
	}
	return out
}
