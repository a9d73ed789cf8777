package llm

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/diirlab/xrlia/internal/config"
	"github.com/diirlab/xrlia/internal/core"
	"github.com/diirlab/xrlia/pkg/log"
)

// Mistral speaks the chat-completions wire protocol against the Mistral
// API. Both the tool-deciding call and the final grounded generation go
// through here; the caller is responsible for rate limiting.
type Mistral struct {
	baseClient
	temperature float64
}

func NewMistral(cfg *config.LLMConfig) *Mistral {
	return &Mistral{
		baseClient:  newBaseClient(cfg.BaseURL, cfg.APIKey, cfg.Model),
		temperature: cfg.Temperature,
	}
}

func (m *Mistral) Chat(ctx context.Context, history []core.Message, tools []core.Tool) (core.Message, error) {
	payload := map[string]any{
		"model":       m.model,
		"messages":    wireMessages(history),
		"temperature": m.temperature,
	}
	if len(tools) > 0 {
		payload["tools"] = tools
	}

	resp, err := m.doRequest(ctx, http.MethodPost, "/v1/chat/completions", payload)
	if err != nil {
		return core.Message{}, fmt.Errorf("%w: %v", core.ErrModelInvocation, err)
	}
	defer resp.Body.Close()

	return parseChatResponse(resp)
}

// Stream issues a streaming completion and forwards delta fragments on
// the returned channel. The channel is closed after the final chunk; a
// transport failure mid-stream is delivered as a chunk with Err set.
func (m *Mistral) Stream(ctx context.Context, history []core.Message) (<-chan core.StreamChunk, error) {
	payload := map[string]any{
		"model":       m.model,
		"messages":    wireMessages(history),
		"temperature": m.temperature,
		"stream":      true,
	}

	resp, err := m.doRequest(ctx, http.MethodPost, "/v1/chat/completions", payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrModelInvocation, err)
	}
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("%w: http %d: %s", core.ErrModelInvocation, resp.StatusCode, string(data))
	}

	out := make(chan core.StreamChunk)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				return
			}

			var event struct {
				Choices []struct {
					Delta struct {
						Content string `json:"content"`
					} `json:"delta"`
				} `json:"choices"`
			}
			if err := json.Unmarshal([]byte(data), &event); err != nil {
				log.FromCtx(ctx).Warn().Err(err).Msg("skipping malformed stream event")
				continue
			}
			if len(event.Choices) == 0 || event.Choices[0].Delta.Content == "" {
				continue
			}

			select {
			case out <- core.StreamChunk{Content: event.Choices[0].Delta.Content}:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			select {
			case out <- core.StreamChunk{Err: fmt.Errorf("%w: stream read: %v", core.ErrModelInvocation, err)}:
			case <-ctx.Done():
			}
		}
	}()

	return out, nil
}

func parseChatResponse(resp *http.Response) (core.Message, error) {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.Message{}, fmt.Errorf("%w: read body: %v", core.ErrModelInvocation, err)
	}

	if resp.StatusCode != http.StatusOK {
		return core.Message{}, fmt.Errorf("%w: http %d: %s", core.ErrModelInvocation, resp.StatusCode, string(data))
	}

	var result struct {
		Choices []struct {
			Message core.Message `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return core.Message{}, fmt.Errorf("%w: decode: %v", core.ErrModelInvocation, err)
	}
	if len(result.Choices) == 0 {
		return core.Message{}, fmt.Errorf("%w: empty choices: %s", core.ErrModelInvocation, string(data))
	}
	return result.Choices[0].Message, nil
}

// wireMessages strips the local checkpoint ID before sending; the
// provider rejects unknown fields on some models.
func wireMessages(history []core.Message) []core.Message {
	msgs := make([]core.Message, len(history))
	for i, m := range history {
		m.ID = ""
		msgs[i] = m
	}
	return msgs
}
