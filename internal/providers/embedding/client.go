// Package embedding wraps the Mistral embeddings endpoint. Requests are
// batched to the provider maximum and spaced by a fixed pause to stay
// under the embedding quota. There is no retry: a failed batch fails the
// whole call and no partial result is returned.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/diirlab/xrlia/internal/config"
	"github.com/diirlab/xrlia/pkg/log"
)

type Client struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	model      string
	batchSize  int
	batchPause time.Duration
}

func NewClient(cfg *config.EmbeddingConfig) *Client {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 128
	}
	return &Client{
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		batchSize:  batchSize,
		batchPause: cfg.BatchPause,
	}
}

// Embed returns one vector per input text, in input order, regardless of
// how the inputs were split across batches.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch at %d: %w", start, err)
		}
		vectors = append(vectors, batch...)

		if err := c.pause(ctx); err != nil {
			return nil, err
		}
	}

	log.FromCtx(ctx).Debug().Int("texts", len(texts)).Int("vectors", len(vectors)).Msg("embedded texts")
	return vectors, nil
}

func (c *Client) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	payload := map[string]any{
		"model": c.model,
		"input": batch,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/embeddings", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if len(result.Data) != len(batch) {
		return nil, fmt.Errorf("got %d embeddings for %d inputs", len(result.Data), len(batch))
	}

	vectors := make([][]float32, len(result.Data))
	for i, item := range result.Data {
		vectors[i] = item.Embedding
	}
	return vectors, nil
}

// pause is the rate-shaping delay after each batch request.
func (c *Client) pause(ctx context.Context) error {
	if c.batchPause <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.batchPause):
		return nil
	}
}
