package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"realty/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntentPrompt(t *testing.T) {
	prompt := IntentPrompt("cheap flat in Praha 8")

	assert.Contains(t, prompt, `Query: "cheap flat in Praha 8"`)
	assert.Contains(t, prompt, `"type": "<rent|sell|student|investment|family|compare|geo|stats|districts|general>"`)
	assert.Contains(t, prompt, `"radius_km": <1.5 or null>`)
	assert.True(t, strings.HasPrefix(prompt, "Classify this real estate query. Return ONLY valid JSON."))
}

func TestParseIntent(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  model.Intent
	}{
		{
			name:  "type only",
			reply: `{"type": "stats"}`,
			want:  model.Intent{Type: model.IntentStats},
		},
		{
			name:  "rent with filters",
			reply: `{"type":"rent","district":"prague 8","max_price":15000,"disposition":"2 + KK"}`,
			want: model.Intent{
				Type:        model.IntentRent,
				District:    strPtr("Praha 8"),
				MaxPrice:    floatPtr(15000),
				Disposition: strPtr("2+kk"),
			},
		},
		{
			name:  "fenced json with nulls",
			reply: "```json\n{\"type\": \"compare\", \"district\": \"Praha 1\", \"district2\": \"Praha 8\", \"max_price\": null, \"disposition\": \"null\"}\n```",
			want: model.Intent{
				Type:      model.IntentCompare,
				District:  strPtr("Praha 1"),
				District2: strPtr("Praha 8"),
			},
		},
		{
			name:  "uppercase type",
			reply: `{"type": "Investment"}`,
			want:  model.Intent{Type: model.IntentInvestment},
		},
		{
			name:  "geo coordinates",
			reply: `{"type": "geo", "lat": 50.08, "lon": 14.43, "radius_km": 1.5}`,
			want: model.Intent{
				Type:     model.IntentGeo,
				Lat:      floatPtr(50.08),
				Lon:      floatPtr(14.43),
				RadiusKm: floatPtr(1.5),
			},
		},
		{
			name:  "non-positive price dropped",
			reply: `{"type": "sell", "max_price": 0}`,
			want:  model.Intent{Type: model.IntentSell},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIntent(tt.reply)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseIntent_Invalid(t *testing.T) {
	replies := map[string]string{
		"empty":           "",
		"prose":           "I think this is a rent question",
		"prose after":     `{"type": "rent"} hope that helps`,
		"missing type":    `{"district": "Praha 8"}`,
		"unknown type":    `{"type": "mortgage"}`,
		"wrong type kind": `{"type": 3}`,
		"truncated":       `{"type": "rent"`,
	}

	for name, reply := range replies {
		t.Run(name, func(t *testing.T) {
			_, err := ParseIntent(reply)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidIntent))
		})
	}
}

func TestIntentClassifier_Classify(t *testing.T) {
	ctx := context.Background()

	t.Run("valid reply", func(t *testing.T) {
		gen := &fakeGenerator{Reply: `{"type": "student"}`}
		intent := NewIntentClassifier(gen).Classify(ctx, "where should a student live?")

		assert.Equal(t, model.IntentStudent, intent.Type)
		require.Len(t, gen.lastTurns(), 1)
		assert.Equal(t, model.RoleUser, gen.lastTurns()[0].Role)
		assert.Contains(t, gen.lastTurns()[0].Text, "where should a student live?")
	})

	malformed := []string{"not json", `{"type": "villa"}`, "", "[]"}
	for _, reply := range malformed {
		t.Run("malformed "+reply, func(t *testing.T) {
			gen := &fakeGenerator{Reply: reply}
			intent := NewIntentClassifier(gen).Classify(ctx, "anything")
			assert.Equal(t, model.GeneralIntent(), intent)
		})
	}

	t.Run("transport failure", func(t *testing.T) {
		gen := &fakeGenerator{Err: errBoom}
		intent := NewIntentClassifier(gen).Classify(ctx, "anything")
		assert.Equal(t, model.GeneralIntent(), intent)
	})

	t.Run("no generator", func(t *testing.T) {
		intent := NewIntentClassifier(nil).Classify(ctx, "anything")
		assert.Equal(t, model.GeneralIntent(), intent)

		_, err := NewIntentClassifier(nil).ClassifyStrict(ctx, "anything")
		assert.ErrorIs(t, err, ErrAIDisabled)
	})
}

func TestIntentClassifier_ClassifyStrict(t *testing.T) {
	gen := &fakeGenerator{Err: errBoom}
	_, err := NewIntentClassifier(gen).ClassifyStrict(context.Background(), "q")
	assert.ErrorIs(t, err, errBoom)

	gen = &fakeGenerator{Reply: `{"type": "nope"}`}
	_, err = NewIntentClassifier(gen).ClassifyStrict(context.Background(), "q")
	assert.ErrorIs(t, err, ErrInvalidIntent)
}
