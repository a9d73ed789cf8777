package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/diirlab/xrlia/internal/core"
)

type ssePayload struct {
	ThreadID string `json:"thread_id,omitempty"`
	Content  string `json:"content,omitempty"`
	Error    string `json:"error,omitempty"`
}

// writeSSEStream drains a turn's chunk stream onto the response as
// server-sent events: a "thread" event first, "message" per chunk,
// then "done" or "error".
func writeSSEStream(c *gin.Context, threadID string, stream <-chan core.StreamChunk, delay time.Duration) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	flusher, _ := c.Writer.(http.Flusher)
	writeEvent(c, flusher, "thread", ssePayload{ThreadID: threadID})

	for chunk := range stream {
		if chunk.Err != nil {
			writeEvent(c, flusher, "error", ssePayload{Error: chunk.Err.Error()})
			return
		}
		writeEvent(c, flusher, "message", ssePayload{Content: chunk.Content})
		if delay > 0 {
			time.Sleep(delay)
		}
	}

	writeEvent(c, flusher, "done", ssePayload{})
}

func writeEvent(c *gin.Context, flusher http.Flusher, event string, payload ssePayload) {
	data, _ := json.Marshal(payload)
	fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, data)
	if flusher != nil {
		flusher.Flush()
	}
}
