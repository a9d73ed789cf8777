package chat

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"github.com/diirlab/xrlia/internal/core"
)

const groundingInstruction = "Use the following pieces of retrieved context only to answer " +
	"the question. If you don't know the answer or the answer cannot be inferred from the context, " +
	"say that you don't know."

var (
	tk     *tiktoken.Tiktoken
	tkOnce sync.Once
)

// buildGenerationPrompt assembles the grounded prompt for the final
// generation step: a system message folding in the latest retrieval
// results, followed by the visible conversation only.
func buildGenerationPrompt(history []core.Message, contextBudget int) []core.Message {
	docsContent := trailingToolContent(history)
	grounding := core.Message{
		Role:    core.RoleSystem,
		Content: groundingInstruction + "\n\nCONTEXT:\n" + truncateToTokens(docsContent, contextBudget),
	}

	prompt := make([]core.Message, 0, len(history)+1)
	prompt = append(prompt, grounding)
	prompt = append(prompt, visibleMessages(history)...)
	return prompt
}

// trailingToolContent collects the consecutive run of tool messages at
// the end of history, in chronological order. Walking backward until
// the first non-tool message isolates exactly the results of the
// retrieval step that just ran, even when older tool results exist
// deeper in the thread.
func trailingToolContent(history []core.Message) string {
	var reversed []string
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role != core.RoleTool {
			break
		}
		reversed = append(reversed, history[i].Content)
	}

	contents := make([]string, len(reversed))
	for i, content := range reversed {
		contents[len(reversed)-1-i] = content
	}
	return strings.Join(contents, "\n\n")
}

// visibleMessages filters history down to the dialogue the model should
// see during generation: user and system turns plus assistant answers.
// Tool-requesting assistant turns and raw tool results are excluded;
// their content already lives in the grounding message.
func visibleMessages(history []core.Message) []core.Message {
	var visible []core.Message
	for _, msg := range history {
		switch msg.Role {
		case core.RoleUser, core.RoleSystem:
			visible = append(visible, msg)
		case core.RoleAssistant:
			if len(msg.ToolCalls) == 0 {
				visible = append(visible, msg)
			}
		}
	}
	return visible
}

// truncateToTokens caps text at maxTokens. A token is at least one
// rune, so short text skips the tokenizer entirely.
func truncateToTokens(text string, maxTokens int) string {
	if utf8.RuneCountInString(text) <= maxTokens {
		return text
	}

	enc := getTokenizer()
	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return enc.Decode(tokens[:maxTokens])
}

func getTokenizer() *tiktoken.Tiktoken {
	tkOnce.Do(func() {
		var err error
		tk, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			panic("failed to load tiktoken: " + err.Error())
		}
	})
	return tk
}
