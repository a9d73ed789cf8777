// Package memory holds thread checkpoints in process memory. It is the
// ephemeral counterpart of the sqlite store: same contract, no
// persistence across restarts.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/diirlab/xrlia/internal/core"
)

type ThreadsRepo struct {
	mu      sync.RWMutex
	threads map[string][]core.Message
}

func NewThreadsRepo() *ThreadsRepo {
	return &ThreadsRepo{
		threads: make(map[string][]core.Message),
	}
}

func (r *ThreadsRepo) AddMessages(ctx context.Context, threadID string, msgs []core.Message) ([]core.Message, error) {
	if len(msgs) == 0 {
		return nil, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := make([]core.Message, len(msgs))
	for i, msg := range msgs {
		if msg.ID == "" {
			msg.ID = uuid.NewString()
		}
		stored[i] = msg
	}
	r.threads[threadID] = append(r.threads[threadID], stored...)
	return stored, nil
}

func (r *ThreadsRepo) GetMessages(ctx context.Context, threadID string) ([]core.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	msgs := r.threads[threadID]
	out := make([]core.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (r *ThreadsRepo) RemoveMessages(ctx context.Context, threadID string, messageIDs []string) error {
	if len(messageIDs) == 0 {
		return nil
	}

	drop := make(map[string]struct{}, len(messageIDs))
	for _, id := range messageIDs {
		drop[id] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.threads[threadID][:0]
	for _, msg := range r.threads[threadID] {
		if _, ok := drop[msg.ID]; !ok {
			kept = append(kept, msg)
		}
	}
	r.threads[threadID] = kept
	return nil
}
