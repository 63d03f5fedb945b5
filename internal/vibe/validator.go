package vibe

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/desertthunder/moodlist/internal/shared"
	"github.com/kaptinlin/jsonschema"
)

// fenceRe matches the first fenced code block wrapping a JSON object or array.
var fenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\}|\\[.*?\\])\\s*```")

// Validator checks raw generator output against a compiled JSON schema.
//
// Validation is a pure function of its input: no side effects, no state beyond
// the compiled schema.
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles the given schema document.
func NewValidator(schemaJSON []byte) (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile(schemaJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// NewVibeExtractionValidator returns a Validator for vibe extraction output.
func NewVibeExtractionValidator() (*Validator, error) {
	return NewValidator(vibeExtractionSchemaJSON)
}

// NewPlaylistValidator returns a Validator for playlist output.
func NewPlaylistValidator() (*Validator, error) {
	return NewValidator(playlistSchemaJSON)
}

// Verify validates a raw response string and returns the candidate JSON bytes on
// success. A single fenced code block wrapping the payload is stripped first.
//
// Failures are typed: a parse failure wraps [shared.ErrInvalidFormat], a schema
// failure wraps [shared.ErrSchemaViolation], so callers and logs can tell
// generator misbehavior apart from prompt/schema mismatch.
func (v *Validator) Verify(raw string) ([]byte, error) {
	candidate := strings.TrimSpace(raw)
	if m := fenceRe.FindStringSubmatch(candidate); m != nil {
		candidate = m[1]
	}

	var parsed any
	if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
		return nil, fmt.Errorf("%w: not valid JSON", shared.ErrInvalidFormat)
	}

	result := v.schema.Validate(parsed)
	if !result.IsValid() {
		return nil, fmt.Errorf("%w: %s", shared.ErrSchemaViolation, formatReasons(result))
	}

	return []byte(candidate), nil
}

// formatReasons flattens evaluation errors into a stable, readable reason string.
func formatReasons(result *jsonschema.EvaluationResult) string {
	if len(result.Errors) == 0 {
		return "schema validation failed"
	}
	keys := make([]string, 0, len(result.Errors))
	for k := range result.Errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, result.Errors[k].Error()))
	}
	return strings.Join(parts, "; ")
}
