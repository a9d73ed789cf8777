package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diirlab/xrlia/internal/core"
)

func TestThreadsRepo_AppendAndGet(t *testing.T) {
	repo := NewThreadsRepo()
	ctx := context.Background()

	stored, err := repo.AddMessages(ctx, "th1", []core.Message{
		{Role: core.RoleSystem, Content: "seed"},
		{Role: core.RoleUser, Content: "hello"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, stored[0].ID)
	assert.NotEqual(t, stored[0].ID, stored[1].ID)

	got, err := repo.GetMessages(ctx, "th1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "seed", got[0].Content)
	assert.Equal(t, "hello", got[1].Content)
}

func TestThreadsRepo_GetReturnsCopy(t *testing.T) {
	repo := NewThreadsRepo()
	ctx := context.Background()

	_, err := repo.AddMessages(ctx, "th1", []core.Message{{Role: core.RoleUser, Content: "original"}})
	require.NoError(t, err)

	got, _ := repo.GetMessages(ctx, "th1")
	got[0].Content = "mutated"

	again, _ := repo.GetMessages(ctx, "th1")
	assert.Equal(t, "original", again[0].Content)
}

func TestThreadsRepo_RemoveAllButSeed(t *testing.T) {
	repo := NewThreadsRepo()
	ctx := context.Background()

	msgs, err := repo.AddMessages(ctx, "th1", []core.Message{
		{Role: core.RoleSystem, Content: "seed"},
		{Role: core.RoleUser, Content: "q"},
		{Role: core.RoleAssistant, Content: "a"},
	})
	require.NoError(t, err)

	require.NoError(t, repo.RemoveMessages(ctx, "th1", []string{msgs[1].ID, msgs[2].ID}))

	got, err := repo.GetMessages(ctx, "th1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "seed", got[0].Content)

	// idempotent
	require.NoError(t, repo.RemoveMessages(ctx, "th1", []string{msgs[1].ID, msgs[2].ID}))
	got, _ = repo.GetMessages(ctx, "th1")
	require.Len(t, got, 1)
}

func TestThreadsRepo_UnknownThreadIsEmpty(t *testing.T) {
	repo := NewThreadsRepo()

	got, err := repo.GetMessages(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, got)
}
