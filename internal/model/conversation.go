package model

// Role tags a conversation turn
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// DefaultMaxTurns bounds every conversation history
const DefaultMaxTurns = 20

// Turn is one message of a conversation
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// TrimHistory keeps the most recent max turns in their original order
func TrimHistory(turns []Turn, max int) []Turn {
	if max <= 0 || len(turns) <= max {
		return turns
	}
	trimmed := make([]Turn, max)
	copy(trimmed, turns[len(turns)-max:])
	return trimmed
}

// ChatRequest is the body of POST /api/v1/chat and /api/v1/chat/stream
type ChatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message" binding:"required"`
}

// ChatResponse is the answer to a chat request
type ChatResponse struct {
	SessionID string `json:"session_id"`
	Answer    string `json:"answer"`
	Took      int64  `json:"took_ms"`
}

// ResetRequest is the body of POST /api/v1/chat/reset
type ResetRequest struct {
	SessionID string `json:"session_id,omitempty"`
}

// IntentRequest is the body of POST /api/v1/intent
type IntentRequest struct {
	Message string `json:"message" binding:"required"`
}

// RetrieveResponse shows the intent and context block a question would be answered from
type RetrieveResponse struct {
	Intent  Intent `json:"intent"`
	Context string `json:"context"`
}

// HistoryResponse lists the stored turns of a session
type HistoryResponse struct {
	SessionID string `json:"session_id"`
	Turns     []Turn `json:"turns"`
}
