package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/diirlab/xrlia/internal/core"
	"github.com/diirlab/xrlia/internal/service/cases"
)

// ConversationBackend is the capability a case page needs from the
// evaluation pipeline: submit a prompt, get a token stream.
type ConversationBackend interface {
	Run(ctx context.Context, threadID, prompt string) (<-chan core.StreamChunk, error)
	Clear(ctx context.Context, threadID string) (string, error)
	History(ctx context.Context, threadID string) ([]core.Message, error)
}

type Handler struct {
	backend     ConversationBackend
	loader      *cases.Loader
	streamDelay time.Duration
}

func NewHandler(backend ConversationBackend, loader *cases.Loader, streamDelay time.Duration) *Handler {
	return &Handler{
		backend:     backend,
		loader:      loader,
		streamDelay: streamDelay,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/cases", h.ListCases)
	r.GET("/cases/:num", h.GetCase)
	r.POST("/cases/:num/chat", h.Chat)
	r.POST("/cases/:num/stages/:stage/submit", h.SubmitStage)
	r.POST("/threads/:id/clear", h.ClearThread)
	r.GET("/threads/:id/messages", h.ThreadMessages)
}

// caseView is the student-facing projection of a case: expected answers
// stay server-side, they only ever reach the model.
type caseView struct {
	CaseNum   int                 `json:"case_num"`
	CaseDesc  string              `json:"case_desc"`
	MaxStage  int                 `json:"max_stage"`
	Questions map[string][]string `json:"questions"`
}

func newCaseView(c *cases.Case) caseView {
	questions := make(map[string][]string, len(c.Questions))
	for stage, qas := range c.Questions {
		texts := make([]string, len(qas))
		for i, qa := range qas {
			texts[i] = qa.Question
		}
		questions[stage] = texts
	}
	return caseView{
		CaseNum:   c.CaseNum,
		CaseDesc:  c.CaseDesc,
		MaxStage:  c.MaxStage,
		Questions: questions,
	}
}

func (h *Handler) ListCases(c *gin.Context) {
	all := h.loader.List()
	views := make([]caseView, len(all))
	for i, item := range all {
		views[i] = newCaseView(item)
	}
	c.JSON(http.StatusOK, views)
}

func (h *Handler) GetCase(c *gin.Context) {
	current, ok := h.caseFromParam(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newCaseView(current))
}

type chatRequest struct {
	ThreadID string `json:"thread_id"`
	Prompt   string `json:"prompt" binding:"required"`
}

// Chat runs one free-form conversation turn and streams the reply.
func (h *Handler) Chat(c *gin.Context) {
	if _, ok := h.caseFromParam(c); !ok {
		return
	}

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.streamTurn(c, req.ThreadID, req.Prompt)
}

type stageRequest struct {
	ThreadID string   `json:"thread_id"`
	Answers  []string `json:"answers"`
}

// SubmitStage turns a stage answer sheet into an evaluation prompt and
// streams the tutor's assessment.
func (h *Handler) SubmitStage(c *gin.Context) {
	current, ok := h.caseFromParam(c)
	if !ok {
		return
	}

	stage, err := strconv.Atoi(c.Param("stage"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid stage"})
		return
	}

	var req stageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	prompt, err := cases.StagePrompt(current, stage, req.Answers)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.streamTurn(c, req.ThreadID, prompt)
}

func (h *Handler) ClearThread(c *gin.Context) {
	greeting, err := h.backend.Clear(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"greeting": greeting})
}

type messageView struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ThreadMessages returns the visible dialogue for rendering the chat
// window: tool plumbing and the seed directive are omitted.
func (h *Handler) ThreadMessages(c *gin.Context) {
	history, err := h.backend.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	views := make([]messageView, 0, len(history))
	for _, msg := range history {
		if msg.Role == core.RoleUser || (msg.Role == core.RoleAssistant && len(msg.ToolCalls) == 0) {
			views = append(views, messageView{Role: msg.Role, Content: msg.Content})
		}
	}
	c.JSON(http.StatusOK, views)
}

func (h *Handler) caseFromParam(c *gin.Context) (*cases.Case, bool) {
	num, err := strconv.Atoi(c.Param("num"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid case number"})
		return nil, false
	}

	current, err := h.loader.Get(num)
	if err != nil {
		if errors.Is(err, core.ErrCaseNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return nil, false
	}
	return current, true
}

func (h *Handler) streamTurn(c *gin.Context, threadID, prompt string) {
	// A fresh thread id starts a new conversation; the client keeps it
	// for follow-up turns.
	if threadID == "" {
		threadID = uuid.NewString()
	}

	stream, err := h.backend.Run(c.Request.Context(), threadID, prompt)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, core.ErrCheckpoint) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	writeSSEStream(c, threadID, stream, h.streamDelay)
}
