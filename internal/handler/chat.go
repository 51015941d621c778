package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"realty/internal/model"
	"realty/internal/service"
	"realty/pkg/log"

	"github.com/gin-gonic/gin"
)

// Conversation is the assistant surface the chat endpoints use
type Conversation interface {
	Ask(ctx context.Context, sessionID, text string) (string, error)
	AskStream(ctx context.Context, sessionID, text string, callback service.AskEventCallback) (string, error)
	Reset(ctx context.Context, sessionID string) error
	History(ctx context.Context, sessionID string) ([]model.Turn, error)
	Classify(ctx context.Context, text string) model.Intent
	Retrieve(ctx context.Context, intent model.Intent, text string) (string, error)
}

// ChatHandler handles conversation-related HTTP requests
type ChatHandler struct {
	assistant Conversation
}

// NewChatHandler creates a new chat handler
func NewChatHandler(assistant Conversation) *ChatHandler {
	return &ChatHandler{assistant: assistant}
}

func sessionOrDefault(id string) string {
	if id = strings.TrimSpace(id); id == "" {
		return service.DefaultSessionID
	}
	return id
}

// errorStatus maps assistant errors to HTTP status codes
func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrAIDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, service.ErrGenerationFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Chat handles POST /api/v1/chat
func (h *ChatHandler) Chat(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	start := time.Now()
	sessionID := sessionOrDefault(req.SessionID)
	answer, err := h.assistant.Ask(c.Request.Context(), sessionID, req.Message)
	if err != nil {
		log.Error("Chat failed", err)
		c.JSON(errorStatus(err), gin.H{"error": "Chat failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, model.ChatResponse{
		SessionID: sessionID,
		Answer:    answer,
		Took:      time.Since(start).Milliseconds(),
	})
}

// ChatStream handles POST /api/v1/chat/stream - SSE streaming answer.
// Events: start, intent, thinking (reasoning providers only), content, then done or error.
func (h *ChatHandler) ChatStream(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	// Set SSE headers
	c.Header("Content-Type", "text/event-stream; charset=utf-8")
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Streaming not supported"})
		return
	}

	start := time.Now()
	sessionID := sessionOrDefault(req.SessionID)
	sendSSE(c, "start", map[string]any{"session_id": sessionID, "message": req.Message})
	flusher.Flush()

	answer, err := h.assistant.AskStream(c.Request.Context(), sessionID, req.Message, func(event string, data any) error {
		sendSSE(c, event, data)
		flusher.Flush()
		return nil
	})
	if err != nil {
		log.Error("Streaming chat failed", err)
		sendSSE(c, "error", map[string]any{"error": err.Error()})
		flusher.Flush()
		return
	}

	sendSSE(c, "done", model.ChatResponse{
		SessionID: sessionID,
		Answer:    answer,
		Took:      time.Since(start).Milliseconds(),
	})
	flusher.Flush()
}

// sendSSE sends a Server-Sent Event
func sendSSE(c *gin.Context, event string, data any) {
	if data == nil {
		fmt.Fprintf(c.Writer, "event: %s\ndata: {}\n\n", event)
		return
	}
	jsonData, err := json.Marshal(data)
	if err != nil {
		fmt.Fprintf(c.Writer, "event: error\ndata: {\"error\": \"JSON marshal failed\"}\n\n")
		return
	}
	fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, string(jsonData))
}

// Reset handles POST /api/v1/chat/reset
func (h *ChatHandler) Reset(c *gin.Context) {
	var req model.ResetRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}
	}

	sessionID := sessionOrDefault(req.SessionID)
	if err := h.assistant.Reset(c.Request.Context(), sessionID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset session: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": sessionID, "reset": true})
}

// History handles GET /api/v1/chat/:session/history
func (h *ChatHandler) History(c *gin.Context) {
	sessionID := sessionOrDefault(c.Param("session"))
	turns, err := h.assistant.History(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load history: " + err.Error()})
		return
	}
	if turns == nil {
		turns = []model.Turn{}
	}
	c.JSON(http.StatusOK, model.HistoryResponse{SessionID: sessionID, Turns: turns})
}

// Classify handles POST /api/v1/intent
func (h *ChatHandler) Classify(c *gin.Context) {
	var req model.IntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.assistant.Classify(c.Request.Context(), req.Message))
}

// Retrieve handles POST /api/v1/retrieve
func (h *ChatHandler) Retrieve(c *gin.Context) {
	var req model.IntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	ctx := c.Request.Context()
	intent := h.assistant.Classify(ctx, req.Message)
	data, err := h.assistant.Retrieve(ctx, intent, req.Message)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Retrieval failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, model.RetrieveResponse{Intent: intent, Context: data})
}
