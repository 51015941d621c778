package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrEmptyOutput is returned when the model produced nothing but whitespace or fences
	ErrEmptyOutput = errors.New("empty model output")
	// ErrMalformedJSON wraps every decode failure of model output
	ErrMalformedJSON = errors.New("malformed model JSON")
)

// fencePattern matches ``` and ```json markers anywhere in the output
var fencePattern = regexp.MustCompile("```(?:json|JSON)?")

// StripCodeFences removes markdown code-fence markers a model may wrap JSON in
// and trims the remaining text. The content between fences is kept verbatim.
func StripCodeFences(input string) string {
	s := strings.TrimPrefix(input, "\ufeff")
	s = fencePattern.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// DecodeModelJSON strips code fences from raw model output and decodes the rest
// into target. Unlike a best-effort parser it never guesses: surrounding prose,
// trailing data or a type mismatch is an error wrapping ErrMalformedJSON.
func DecodeModelJSON(raw string, target interface{}) error {
	body := StripCodeFences(raw)
	if body == "" {
		return ErrEmptyOutput
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	if err := dec.Decode(target); err != nil {
		return fmt.Errorf("%w: %v (output: %s)", ErrMalformedJSON, err, truncateString(body, 100))
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON value (output: %s)", ErrMalformedJSON, truncateString(body, 100))
	}
	return nil
}

// truncateString truncates a string to maxLen characters
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
