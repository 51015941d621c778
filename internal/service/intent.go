package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"realty/internal/model"
	"realty/internal/utils"
	"realty/pkg/log"
)

// ErrInvalidIntent wraps every reason a model reply could not become an Intent
var ErrInvalidIntent = errors.New("invalid intent")

const intentPromptTemplate = `Classify this real estate query. Return ONLY valid JSON.

Query: "%s"

{
  "type": "<%s>",
  "district": "<Praha 8 or null>",
  "district2": "<Praha 1 or null>",
  "max_price": <20000 or null>,
  "disposition": "<2+kk or null>",
  "lat": <50.08 or null>,
  "lon": <14.43 or null>,
  "radius_km": <1.5 or null>
}`

// IntentPrompt renders the classification prompt for a query
func IntentPrompt(query string) string {
	types := make([]string, len(model.IntentTypes))
	for i, t := range model.IntentTypes {
		types[i] = string(t)
	}
	return fmt.Sprintf(intentPromptTemplate, query, strings.Join(types, "|"))
}

// rawIntent is the wire schema of the classifier reply. Only type is required.
type rawIntent struct {
	Type        *string  `json:"type"`
	District    *string  `json:"district"`
	District2   *string  `json:"district2"`
	MaxPrice    *float64 `json:"max_price"`
	Disposition *string  `json:"disposition"`
	Lat         *float64 `json:"lat"`
	Lon         *float64 `json:"lon"`
	RadiusKm    *float64 `json:"radius_km"`
}

// IntentClassifier turns free text into an Intent with a single model call
type IntentClassifier struct {
	generator Generator
}

// NewIntentClassifier creates a classifier; a nil generator always yields the general intent
func NewIntentClassifier(generator Generator) *IntentClassifier {
	return &IntentClassifier{generator: generator}
}

// Classify never fails: any transport, decode or validation error degrades to the
// general intent with no filters.
func (c *IntentClassifier) Classify(ctx context.Context, query string) model.Intent {
	intent, err := c.ClassifyStrict(ctx, query)
	if err != nil {
		log.Warnw("Intent classification failed, falling back to general", "error", err)
		return model.GeneralIntent()
	}
	return intent
}

// ClassifyStrict is Classify without the fallback
func (c *IntentClassifier) ClassifyStrict(ctx context.Context, query string) (model.Intent, error) {
	if c.generator == nil {
		return model.Intent{}, ErrAIDisabled
	}

	reply, err := c.generator.Generate(ctx, "", []model.Turn{{Role: model.RoleUser, Text: IntentPrompt(query)}})
	if err != nil {
		return model.Intent{}, fmt.Errorf("intent model call failed: %w", err)
	}

	intent, err := ParseIntent(reply)
	if err != nil {
		return model.Intent{}, err
	}
	log.Debugf("Classified %q as %s", query, intent.Type)
	return intent, nil
}

// ParseIntent decodes and validates a classifier reply
func ParseIntent(reply string) (model.Intent, error) {
	var raw rawIntent
	if err := utils.DecodeModelJSON(reply, &raw); err != nil {
		return model.Intent{}, fmt.Errorf("%w: %v", ErrInvalidIntent, err)
	}

	if raw.Type == nil {
		return model.Intent{}, fmt.Errorf("%w: missing type", ErrInvalidIntent)
	}
	intentType := model.IntentType(strings.ToLower(strings.TrimSpace(*raw.Type)))
	if !intentType.Valid() {
		return model.Intent{}, fmt.Errorf("%w: unknown type %q", ErrInvalidIntent, *raw.Type)
	}

	return model.Intent{
		Type:        intentType,
		District:    optionalText(raw.District, utils.NormalizeDistrict),
		District2:   optionalText(raw.District2, utils.NormalizeDistrict),
		MaxPrice:    optionalPositive(raw.MaxPrice),
		Disposition: optionalText(raw.Disposition, utils.NormalizeDisposition),
		Lat:         raw.Lat,
		Lon:         raw.Lon,
		RadiusKm:    optionalPositive(raw.RadiusKm),
	}, nil
}

// optionalText drops empty values and the literal "null" that models echo from the template
func optionalText(value *string, normalize func(string) string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" || strings.EqualFold(v, "null") || strings.EqualFold(v, "none") {
		return nil
	}
	v = normalize(v)
	return &v
}

func optionalPositive(value *float64) *float64 {
	if value == nil || *value <= 0 {
		return nil
	}
	return value
}
