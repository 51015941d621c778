package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"

	"realty/internal/model"
	"realty/internal/repository"
	"realty/pkg/log"
)

// SystemInstruction is sent with every generation call
const SystemInstruction = `You are a Prague real estate expert assistant.

RULES:
- Use ONLY data provided between --- markers. Never invent prices.
- Always cite specific numbers from the data.
- For "best districts": give top 3 with brief reasoning.
- For investment: always show payback period.
- Reply in the SAME language as the user.
- If no data: say you don't have this info.
- Max 200 words.`

// DefaultSessionID is used when a caller does not name a session
const DefaultSessionID = "default"

// ErrGenerationFailed marks a failed answer generation call
var ErrGenerationFailed = errors.New("generation failed")

// ContextRetriever builds the data block for a classified question
type ContextRetriever interface {
	Retrieve(ctx context.Context, intent model.Intent, query string) (string, error)
}

// AskEventCallback receives progress events of a streamed answer
type AskEventCallback func(event string, data any) error

// sessionLockStripes bounds the number of session mutexes regardless of how many ids are seen
const sessionLockStripes = 64

// Assistant answers questions per conversation session
type Assistant struct {
	classifier *IntentClassifier
	retriever  ContextRetriever
	generator  StreamingGenerator
	history    repository.HistoryStore
	maxTurns   int

	locks [sessionLockStripes]sync.Mutex
}

// NewAssistant creates an assistant; maxTurns <= 0 uses model.DefaultMaxTurns
func NewAssistant(classifier *IntentClassifier, retriever ContextRetriever, generator StreamingGenerator, history repository.HistoryStore, maxTurns int) *Assistant {
	if maxTurns <= 0 {
		maxTurns = model.DefaultMaxTurns
	}
	return &Assistant{
		classifier: classifier,
		retriever:  retriever,
		generator:  generator,
		history:    history,
		maxTurns:   maxTurns,
	}
}

// BuildPrompt wraps retrieved data in --- markers after the user text
func BuildPrompt(text, data string) string {
	if data == "" {
		return text
	}
	return fmt.Sprintf("%s\n\n---\n%s\n---", text, data)
}

func sessionKey(id string) string {
	if id = strings.TrimSpace(id); id == "" {
		return DefaultSessionID
	}
	return id
}

// lock serializes calls within one session. Sessions sharing a stripe also
// serialize with each other.
func (a *Assistant) lock(id string) func() {
	h := fnv.New32a()
	h.Write([]byte(id))
	l := &a.locks[h.Sum32()%sessionLockStripes]
	l.Lock()
	return l.Unlock
}

// Classify returns the intent of a question, degrading to general on failure
func (a *Assistant) Classify(ctx context.Context, text string) model.Intent {
	return a.classifier.Classify(ctx, text)
}

// Retrieve returns the context block the assistant would attach for an intent
func (a *Assistant) Retrieve(ctx context.Context, intent model.Intent, text string) (string, error) {
	return a.retriever.Retrieve(ctx, intent, text)
}

// prepare classifies and retrieves, returning the turn history to generate from
func (a *Assistant) prepare(ctx context.Context, id, text string, callback AskEventCallback) ([]model.Turn, error) {
	intent := a.classifier.Classify(ctx, text)
	log.Infow("Routing question", "session", id, "intent", intent.Type)
	if callback != nil {
		if err := callback("intent", intent); err != nil {
			return nil, err
		}
	}

	data, err := a.retriever.Retrieve(ctx, intent, text)
	if err != nil {
		return nil, err
	}

	turns, err := a.history.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return append(turns, model.Turn{Role: model.RoleUser, Text: BuildPrompt(text, data)}), nil
}

// commit appends the reply and persists the bounded history
func (a *Assistant) commit(ctx context.Context, id string, turns []model.Turn, reply string) error {
	turns = append(turns, model.Turn{Role: model.RoleModel, Text: reply})
	if err := a.history.Save(ctx, id, model.TrimHistory(turns, a.maxTurns)); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	return nil
}

// Ask answers one question in a session. Retrieval and generation errors are
// returned and leave the session history unchanged.
func (a *Assistant) Ask(ctx context.Context, sessionID, text string) (string, error) {
	id := sessionKey(sessionID)
	defer a.lock(id)()

	turns, err := a.prepare(ctx, id, text, nil)
	if err != nil {
		return "", err
	}

	reply, err := a.generator.Generate(ctx, SystemInstruction, turns)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	if err := a.commit(ctx, id, turns, reply); err != nil {
		return "", err
	}
	return reply, nil
}

// AskStream is Ask delivering the classified intent and each reply fragment
// through callback as "intent" and "content" events. Providers that stream their
// reasoning add "thinking" events. A nil callback drops the events.
func (a *Assistant) AskStream(ctx context.Context, sessionID, text string, callback AskEventCallback) (string, error) {
	if callback == nil {
		callback = func(string, any) error { return nil }
	}
	id := sessionKey(sessionID)
	defer a.lock(id)()

	turns, err := a.prepare(ctx, id, text, callback)
	if err != nil {
		return "", err
	}

	reply, err := a.generator.GenerateStream(ctx, SystemInstruction, turns, func(thinking, content string) error {
		if thinking != "" {
			return callback("thinking", map[string]any{"content": thinking})
		}
		return callback("content", map[string]any{"content": content})
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	if err := a.commit(ctx, id, turns, reply); err != nil {
		return "", err
	}
	return reply, nil
}

// Reset clears a session's history
func (a *Assistant) Reset(ctx context.Context, sessionID string) error {
	id := sessionKey(sessionID)
	defer a.lock(id)()
	return a.history.Clear(ctx, id)
}

// History returns a copy of a session's turns
func (a *Assistant) History(ctx context.Context, sessionID string) ([]model.Turn, error) {
	return a.history.Load(ctx, sessionKey(sessionID))
}

// Sessions lists sessions with stored history
func (a *Assistant) Sessions(ctx context.Context) ([]string, error) {
	return a.history.Sessions(ctx)
}

// Session returns a handle bound to one session id
func (a *Assistant) Session(id string) *Session {
	return &Session{id: sessionKey(id), assistant: a}
}

// Session is a conversation bound to a fixed id
type Session struct {
	id        string
	assistant *Assistant
}

func (s *Session) ID() string { return s.id }

func (s *Session) Ask(ctx context.Context, text string) (string, error) {
	return s.assistant.Ask(ctx, s.id, text)
}

func (s *Session) Reset(ctx context.Context) error {
	return s.assistant.Reset(ctx, s.id)
}

func (s *Session) History(ctx context.Context) ([]model.Turn, error) {
	return s.assistant.History(ctx, s.id)
}
