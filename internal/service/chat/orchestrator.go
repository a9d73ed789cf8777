// Package chat runs the conversational evaluation pipeline: per user
// turn the model either answers directly or requests retrieval, the
// retrieval tool is executed, and a grounded answer is generated and
// streamed back. Thread state is checkpointed after every step.
package chat

import (
	"context"
	"fmt"

	"github.com/diirlab/xrlia/internal/core"
	"github.com/diirlab/xrlia/internal/service/retrieval"
	"github.com/diirlab/xrlia/pkg/log"
)

// Greeting is what the presentation layer shows after a cleared
// conversation.
const Greeting = "Hi, I'm Dr. XRLiA. You can submit your answers for this case to me and I'll evaluate them!\nFeel free to ask me questions related to lines and tubes on CXRs as well."

const defaultSystemPrompt = "You are Dr. XRLiA, a radiology tutor evaluating medical students in a " +
	"case simulation about lines and tubes on chest X-rays. When a student submits staged answers, " +
	"compare each answer against the provided correct answer and give constructive, specific feedback. " +
	"Use the retrieve tool to look up reference-guide passages before evaluating or answering factual questions."

// Limiter gates every chat model invocation. Callers wait; they are
// never rejected.
type Limiter interface {
	Wait(ctx context.Context) error
}

type Config struct {
	// SystemPrompt seeds new threads. Empty means the built-in directive.
	SystemPrompt string
	// ContextBudget caps the retrieved context folded into the grounding
	// message, in tokens.
	ContextBudget int
}

type Orchestrator struct {
	provider      core.ChatProvider
	repo          core.ThreadRepository
	tool          *retrieval.Tool
	limiter       Limiter
	locks         threadLocks
	systemPrompt  string
	contextBudget int
}

func NewOrchestrator(provider core.ChatProvider, repo core.ThreadRepository, tool *retrieval.Tool, limiter Limiter, cfg Config) *Orchestrator {
	systemPrompt := cfg.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}
	contextBudget := cfg.ContextBudget
	if contextBudget <= 0 {
		contextBudget = 3000
	}
	return &Orchestrator{
		provider:      provider,
		repo:          repo,
		tool:          tool,
		limiter:       limiter,
		systemPrompt:  systemPrompt,
		contextBudget: contextBudget,
	}
}

// Run executes one full turn for the thread and streams the answer.
// The channel is closed when the turn is done; a failure is delivered
// as a chunk with Err set and no assistant message is committed for it.
// Turns on the same thread serialize; turns on different threads run
// concurrently.
func (o *Orchestrator) Run(ctx context.Context, threadID, prompt string) (<-chan core.StreamChunk, error) {
	unlock := o.locks.lock(threadID)

	history, err := o.ensureSeeded(ctx, threadID)
	if err != nil {
		unlock()
		return nil, err
	}

	userMsg := core.Message{Role: core.RoleUser, Content: prompt}
	stored, err := o.repo.AddMessages(ctx, threadID, []core.Message{userMsg})
	if err != nil {
		unlock()
		return nil, fmt.Errorf("%w: save user message: %v", core.ErrCheckpoint, err)
	}
	history = append(history, stored...)

	out := make(chan core.StreamChunk)
	go func() {
		defer unlock()
		defer close(out)
		o.runTurn(ctx, threadID, history, out)
	}()
	return out, nil
}

func (o *Orchestrator) runTurn(ctx context.Context, threadID string, history []core.Message, out chan<- core.StreamChunk) {
	logger := log.FromCtx(ctx)

	// Decide: the model either answers directly or requests retrieval.
	if err := o.limiter.Wait(ctx); err != nil {
		emit(ctx, out, core.StreamChunk{Err: err})
		return
	}
	decision, err := o.provider.Chat(ctx, history, []core.Tool{o.tool.Definition()})
	if err != nil {
		emit(ctx, out, core.StreamChunk{Err: err})
		return
	}

	if len(decision.ToolCalls) == 0 {
		// Direct answer, no retrieval needed.
		if _, err := o.repo.AddMessages(ctx, threadID, []core.Message{decision}); err != nil {
			emit(ctx, out, core.StreamChunk{Err: fmt.Errorf("%w: save assistant message: %v", core.ErrCheckpoint, err)})
			return
		}
		emit(ctx, out, core.StreamChunk{Content: decision.Content})
		return
	}

	// Retrieve: execute the requested tool calls and record results.
	stored, err := o.repo.AddMessages(ctx, threadID, []core.Message{decision})
	if err != nil {
		emit(ctx, out, core.StreamChunk{Err: fmt.Errorf("%w: save tool request: %v", core.ErrCheckpoint, err)})
		return
	}
	history = append(history, stored...)

	toolMsgs := o.executeToolCalls(ctx, decision.ToolCalls)
	stored, err = o.repo.AddMessages(ctx, threadID, toolMsgs)
	if err != nil {
		emit(ctx, out, core.StreamChunk{Err: fmt.Errorf("%w: save tool results: %v", core.ErrCheckpoint, err)})
		return
	}
	history = append(history, stored...)

	// Generate: grounded answer from the retrieved context, streamed.
	prompt := buildGenerationPrompt(history, o.contextBudget)

	if err := o.limiter.Wait(ctx); err != nil {
		emit(ctx, out, core.StreamChunk{Err: err})
		return
	}
	stream, err := o.provider.Stream(ctx, prompt)
	if err != nil {
		emit(ctx, out, core.StreamChunk{Err: err})
		return
	}

	var answer string
	for chunk := range stream {
		if chunk.Err != nil {
			// No partial assistant message is committed.
			emit(ctx, out, chunk)
			return
		}
		answer += chunk.Content
		if !emit(ctx, out, chunk) {
			return
		}
	}

	final := core.Message{Role: core.RoleAssistant, Content: answer}
	if _, err := o.repo.AddMessages(ctx, threadID, []core.Message{final}); err != nil {
		logger.Error().Err(err).Str("thread", threadID).Msg("failed to save assistant message")
	}
}

// executeToolCalls runs each requested invocation. A retrieval failure
// degrades the turn instead of aborting it: the tool message tells the
// model the context is unavailable and generation proceeds from history.
func (o *Orchestrator) executeToolCalls(ctx context.Context, toolCalls []core.ToolCall) []core.Message {
	logger := log.FromCtx(ctx)

	msgs := make([]core.Message, 0, len(toolCalls))
	for _, tc := range toolCalls {
		logger.Info().Str("tool", tc.Function.Name).Msg("executing tool call")

		var content string
		if tc.Function.Name != retrieval.ToolName {
			content = fmt.Sprintf("Unknown tool %q.", tc.Function.Name)
		} else if result, err := o.tool.Execute(ctx, tc.Function.Arguments); err != nil {
			logger.Error().Err(err).Msg("retrieval failed, degrading to history-only answer")
			content = "Reference context is unavailable for this turn. Answer from the conversation " +
				"so far and state explicitly that the reference guides could not be consulted."
		} else {
			content = result.Serialized
		}

		msgs = append(msgs, core.Message{
			Role:       core.RoleTool,
			Content:    content,
			ToolCallID: tc.ID,
		})
	}
	return msgs
}

// Clear removes every message except the thread's seed system directive
// and returns the greeting to show. Clearing an already-clear thread is
// a no-op.
func (o *Orchestrator) Clear(ctx context.Context, threadID string) (string, error) {
	unlock := o.locks.lock(threadID)
	defer unlock()

	history, err := o.repo.GetMessages(ctx, threadID)
	if err != nil {
		return "", fmt.Errorf("%w: load thread: %v", core.ErrCheckpoint, err)
	}
	if len(history) <= 1 {
		return Greeting, nil
	}

	ids := make([]string, 0, len(history)-1)
	for _, msg := range history[1:] {
		ids = append(ids, msg.ID)
	}
	if err := o.repo.RemoveMessages(ctx, threadID, ids); err != nil {
		return "", fmt.Errorf("%w: clear thread: %v", core.ErrCheckpoint, err)
	}

	log.FromCtx(ctx).Info().Str("thread", threadID).Int("removed", len(ids)).Msg("conversation cleared")
	return Greeting, nil
}

// History returns the thread's full checkpointed message sequence.
func (o *Orchestrator) History(ctx context.Context, threadID string) ([]core.Message, error) {
	return o.repo.GetMessages(ctx, threadID)
}

// ensureSeeded installs the system directive on first use of a thread.
func (o *Orchestrator) ensureSeeded(ctx context.Context, threadID string) ([]core.Message, error) {
	history, err := o.repo.GetMessages(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("%w: load thread: %v", core.ErrCheckpoint, err)
	}
	if len(history) > 0 {
		return history, nil
	}

	seed := core.Message{Role: core.RoleSystem, Content: o.systemPrompt}
	stored, err := o.repo.AddMessages(ctx, threadID, []core.Message{seed})
	if err != nil {
		return nil, fmt.Errorf("%w: seed thread: %v", core.ErrCheckpoint, err)
	}
	return stored, nil
}

func emit(ctx context.Context, out chan<- core.StreamChunk, chunk core.StreamChunk) bool {
	select {
	case out <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}
