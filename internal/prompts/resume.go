package prompts

import (
	"encoding/json"
	"fmt"

	"github.com/jonathan/resume-builder/internal/types"
)

const resumePromptFile = "resume.json"

// BuildExtractionPrompt returns the prompt asking the model to turn raw resume text
// into a JSON resume record.
func BuildExtractionPrompt(text string) string {
	template := MustGet(resumePromptFile, "extract-resume")
	return Format(template, map[string]string{
		"SchemaDescription": SchemaDescription(),
		"ResumeText":        text,
	})
}

// BuildTailoringPrompt returns the prompt asking the model to rewrite record toward jobDescription.
// The record is embedded as compact JSON.
func BuildTailoringPrompt(record *types.ResumeRecord, jobDescription string) (string, error) {
	if record == nil {
		return "", fmt.Errorf("resume record is required")
	}

	resumeJSON, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("failed to serialize resume: %w", err)
	}

	template := MustGet(resumePromptFile, "tailor-resume")
	return Format(template, map[string]string{
		"JobDescription": jobDescription,
		"ResumeJSON":     string(resumeJSON),
	}), nil
}

// BuildRepairPrompt asks the model to correct output that failed to decode.
func BuildRepairPrompt(raw string, decodeErr error) string {
	reason := "unknown error"
	if decodeErr != nil {
		reason = decodeErr.Error()
	}

	template := MustGet(resumePromptFile, "repair-resume")
	return Format(template, map[string]string{
		"DecodeError":       reason,
		"RawOutput":         raw,
		"SchemaDescription": SchemaDescription(),
	})
}
