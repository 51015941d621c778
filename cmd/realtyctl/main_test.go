package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"realty/internal/model"
	"realty/internal/repository"
	"realty/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func localEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", ":memory:")
	t.Setenv("VECTOR_BACKEND", "memory")
	t.Setenv("SESSION_BACKEND", "memory")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("CONFIG_FILE", "")
}

func TestCommands(t *testing.T) {
	app := newCLI(strings.NewReader(""), &bytes.Buffer{})

	var names []string
	for _, cmd := range app.Commands {
		names = append(names, cmd.Name)
	}
	assert.Equal(t, []string{"build-index", "ask", "classify", "retrieve", "stats"}, names)

	ask := app.Command("ask")
	require.NotNil(t, ask)
	var session *cli.StringFlag
	for _, flag := range ask.Flags {
		if f, ok := flag.(*cli.StringFlag); ok && f.Name == "session" {
			session = f
		}
	}
	require.NotNil(t, session)
	assert.Equal(t, service.DefaultSessionID, session.Value)
}

func TestClassifyRequiresQuestion(t *testing.T) {
	localEnv(t)
	err := newCLI(strings.NewReader(""), &bytes.Buffer{}).Run([]string{"realtyctl", "classify"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "question is required")
}

func TestClassifyWithoutProvider(t *testing.T) {
	localEnv(t)
	out := &bytes.Buffer{}

	err := newCLI(strings.NewReader(""), out).Run([]string{"realtyctl", "classify", "cheap", "flat", "in", "Praha", "8"})
	require.NoError(t, err)

	var intent model.Intent
	require.NoError(t, json.Unmarshal(out.Bytes(), &intent))
	assert.Equal(t, model.GeneralIntent(), intent)
}

type echoRetriever struct{}

func (echoRetriever) Retrieve(ctx context.Context, intent model.Intent, query string) (string, error) {
	return "LISTINGS:\n• " + query, nil
}

type echoGenerator struct{}

func (echoGenerator) Generate(ctx context.Context, system string, turns []model.Turn) (string, error) {
	if system == "" {
		return `{"type": "general"}`, nil
	}
	return "answer " + turns[len(turns)-1].Text[:3], nil
}

func (g echoGenerator) GenerateStream(ctx context.Context, system string, turns []model.Turn, onDelta service.StreamDelta) (string, error) {
	return g.Generate(ctx, system, turns)
}

func TestChatLoop(t *testing.T) {
	history := repository.NewMemoryHistoryStore(20)
	assistant := service.NewAssistant(service.NewIntentClassifier(echoGenerator{}), echoRetriever{}, echoGenerator{}, history, 20)
	session := assistant.Session("cli")

	in := strings.NewReader("one\n\ntwo\nreset\nthree\nexit\nfour\n")
	out := &bytes.Buffer{}
	require.NoError(t, chatLoop(context.Background(), in, out, session))

	assert.Contains(t, out.String(), "answer one")
	assert.Contains(t, out.String(), "answer two")
	assert.Contains(t, out.String(), "Conversation cleared.")
	assert.NotContains(t, out.String(), "answer fou")

	turns, err := session.History(context.Background())
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.True(t, strings.HasPrefix(turns[0].Text, "three\n\n---\n"))
}
