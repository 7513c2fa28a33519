// Package parsing turns raw model output into validated resume records.
package parsing

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/jonathan/resume-builder/internal/schemas"
	"github.com/jonathan/resume-builder/internal/types"
)

// codeFence matches a Markdown fence marker with an optional language tag.
var codeFence = regexp.MustCompile("```[A-Za-z0-9_+-]*")

// StripCodeFences removes every code fence marker, wherever it occurs, and trims
// surrounding whitespace. Models often wrap JSON in ```json ... ``` even when told not to.
func StripCodeFences(text string) string {
	return strings.TrimSpace(codeFence.ReplaceAllString(text, ""))
}

// DecodeResume strips code fences from raw, validates the remainder against the
// resume schema and decodes it. Unknown fields are ignored.
func DecodeResume(raw string) (*types.ResumeRecord, error) {
	cleaned := StripCodeFences(raw)
	if cleaned == "" {
		return nil, &DecodeError{Raw: raw, Message: "model returned no content"}
	}

	if err := schemas.ValidateResume(cleaned); err != nil {
		var docErr *schemas.DocumentError
		if errors.As(err, &docErr) {
			return nil, &DecodeError{Raw: raw, Message: "response is not valid JSON", Cause: err}
		}
		return nil, &DecodeError{Raw: raw, Message: "response does not match the resume schema", Cause: err}
	}

	var record types.ResumeRecord
	if err := json.Unmarshal([]byte(cleaned), &record); err != nil {
		return nil, &DecodeError{Raw: raw, Message: "failed to parse JSON response", Cause: err}
	}

	return &record, nil
}
