package core

import "context"

// ThreadRepository checkpoints a thread's ordered message sequence.
// Each thread ID is an isolated namespace; append order is the read order.
type ThreadRepository interface {
	GetMessages(ctx context.Context, threadID string) ([]Message, error)
	AddMessages(ctx context.Context, threadID string, msgs []Message) ([]Message, error)
	RemoveMessages(ctx context.Context, threadID string, messageIDs []string) error
}
