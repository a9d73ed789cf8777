package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diirlab/xrlia/internal/config"
	"github.com/diirlab/xrlia/internal/core"
)

func newTestMistral(baseURL string) *Mistral {
	return NewMistral(&config.LLMConfig{
		APIKey:      "test-key",
		BaseURL:     baseURL,
		Model:       "ministral-8b-latest",
		Temperature: 0.63,
	})
}

func TestMistral_ChatParsesToolCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{
			"choices": [{
				"message": {
					"role": "assistant",
					"content": "",
					"tool_calls": [{
						"id": "call_1",
						"type": "function",
						"function": {"name": "retrieve", "arguments": "{\"query\":\"ETT placement\"}"}
					}]
				}
			}]
		}`)
	}))
	defer srv.Close()

	msg, err := newTestMistral(srv.URL).Chat(context.Background(), []core.Message{
		{Role: core.RoleUser, Content: "What confirms ETT placement?"},
	}, []core.Tool{{Type: "function", Function: core.Function{Name: "retrieve"}}})
	require.NoError(t, err)

	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, "retrieve", msg.ToolCalls[0].Function.Name)
	assert.Equal(t, "call_1", msg.ToolCalls[0].ID)
}

func TestMistral_ChatErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"unauthorized"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestMistral(srv.URL).Chat(context.Background(), []core.Message{
		{Role: core.RoleUser, Content: "hi"},
	}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrModelInvocation))
}

func TestMistral_StreamDeliversDeltas(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"The \"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"carina\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	stream, err := newTestMistral(srv.URL).Stream(context.Background(), []core.Message{
		{Role: core.RoleUser, Content: "hi"},
	})
	require.NoError(t, err)

	var got string
	for chunk := range stream {
		require.NoError(t, chunk.Err)
		got += chunk.Content
	}
	assert.Equal(t, "The carina", got)
}

func TestMistral_StreamErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestMistral(srv.URL).Stream(context.Background(), []core.Message{
		{Role: core.RoleUser, Content: "hi"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrModelInvocation))
}
