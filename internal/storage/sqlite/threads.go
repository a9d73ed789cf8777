package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/diirlab/xrlia/internal/core"
	"github.com/diirlab/xrlia/pkg/log"
)

// ThreadsRepo checkpoints conversation threads. Each thread is an
// ordered message sequence; seq numbers are assigned at append time and
// never reused, so removal keeps the remaining order stable.
type ThreadsRepo struct {
	db *sql.DB
}

func NewThreadsRepo(db *sql.DB) *ThreadsRepo {
	return &ThreadsRepo{db: db}
}

func (r *ThreadsRepo) AddMessages(ctx context.Context, threadID string, msgs []core.Message) ([]core.Message, error) {
	if len(msgs) == 0 {
		return nil, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var nextSeq int64
	row := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM messages WHERE thread_id = ?`, threadID)
	if err := row.Scan(&nextSeq); err != nil {
		return nil, fmt.Errorf("failed to read thread cursor: %w", err)
	}

	stored := make([]core.Message, len(msgs))
	for i, msg := range msgs {
		if msg.ID == "" {
			msg.ID = uuid.NewString()
		}

		toolCallsJSON, err := json.Marshal(msg.ToolCalls)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal tool calls: %w", err)
		}
		// Empty slice marshals to "null"; store as empty string.
		tcStr := string(toolCallsJSON)
		if tcStr == "null" {
			tcStr = ""
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO messages (id, thread_id, seq, role, content, tool_calls, tool_call_id) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			msg.ID, threadID, nextSeq+int64(i), msg.Role, msg.Content, tcStr, msg.ToolCallID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert message: %w", err)
		}
		stored[i] = msg
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return stored, nil
}

func (r *ThreadsRepo) GetMessages(ctx context.Context, threadID string) ([]core.Message, error) {
	query := `SELECT id, role, content, tool_calls, tool_call_id FROM messages WHERE thread_id = ? ORDER BY seq ASC`

	rows, err := r.db.QueryContext(ctx, query, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []core.Message
	for rows.Next() {
		var msg core.Message
		var content, toolCallsStr, toolCallID sql.NullString

		if err := rows.Scan(&msg.ID, &msg.Role, &content, &toolCallsStr, &toolCallID); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}

		msg.Content = content.String
		msg.ToolCallID = toolCallID.String

		if toolCallsStr.Valid && toolCallsStr.String != "" && toolCallsStr.String != "null" {
			if err := json.Unmarshal([]byte(toolCallsStr.String), &msg.ToolCalls); err != nil {
				return nil, fmt.Errorf("failed to unmarshal tool calls: %w", err)
			}
		}

		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	log.FromCtx(ctx).Debug().Str("thread", threadID).Int("count", len(messages)).Msg("loaded thread messages")
	return messages, nil
}

func (r *ThreadsRepo) RemoveMessages(ctx context.Context, threadID string, messageIDs []string) error {
	if len(messageIDs) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(messageIDs))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(messageIDs)+1)
	args = append(args, threadID)
	for _, id := range messageIDs {
		args = append(args, id)
	}

	query := fmt.Sprintf(`DELETE FROM messages WHERE thread_id = ? AND id IN (%s)`, placeholders)
	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to remove messages: %w", err)
	}
	return nil
}
