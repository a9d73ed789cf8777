package pinecone

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diirlab/xrlia/internal/config"
)

func TestQuery_ParsesMatches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/query", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("Api-Key"))

		var payload struct {
			TopK            int    `json:"topK"`
			Namespace       string `json:"namespace"`
			IncludeMetadata bool   `json:"includeMetadata"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, 3, payload.TopK)
		assert.Equal(t, "lntguides", payload.Namespace)
		assert.True(t, payload.IncludeMetadata)

		fmt.Fprint(w, `{"matches":[
			{"id":"c1","score":0.91,"metadata":{"text":"The ETT tip should sit 3-5 cm above the carina.","source":"ett-guide.txt","page":2}},
			{"id":"c2","score":0.85,"metadata":{"text":"On CXR the carina projects over T4-T5.","source":"anatomy.txt"}}
		]}`)
	}))
	defer srv.Close()

	client := NewClient(&config.VectorConfig{
		APIKey:     "secret",
		IndexHost:  srv.URL,
		Namespace:  "lntguides",
		ContentKey: "text",
	})

	docs, err := client.Query(context.Background(), []float32{0.1, 0.2}, 3)
	require.NoError(t, err)

	require.Len(t, docs, 2)
	assert.Equal(t, "The ETT tip should sit 3-5 cm above the carina.", docs[0].Content)
	assert.Equal(t, "ett-guide.txt", docs[0].Metadata["source"])
	assert.Equal(t, "2", docs[0].Metadata["page"])
	assert.NotContains(t, docs[0].Metadata, "text", "content key stripped from metadata")
	assert.InDelta(t, 0.91, docs[0].Score, 1e-6)
	assert.Equal(t, "c2", docs[1].ID)
}

func TestQuery_RetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "upstream hiccup", http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"matches":[]}`)
	}))
	defer srv.Close()

	client := NewClient(&config.VectorConfig{
		APIKey:     "secret",
		IndexHost:  srv.URL,
		ContentKey: "text",
	})

	docs, err := client.Query(context.Background(), []float32{0.5}, 3)
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Equal(t, int32(2), calls.Load())
}

func TestQuery_DoesNotRetryClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(&config.VectorConfig{
		APIKey:     "wrong",
		IndexHost:  srv.URL,
		ContentKey: "text",
	})

	_, err := client.Query(context.Background(), []float32{0.5}, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http 401")
	assert.Equal(t, int32(1), calls.Load(), "auth failures must fail fast, not back off")
}
