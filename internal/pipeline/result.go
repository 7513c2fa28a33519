package pipeline

import "github.com/jonathan/resume-builder/internal/types"

// Result is the success-or-failure value handed to callers outside Go, such as HTTP clients.
type Result struct {
	Success bool                `json:"success"`
	Data    *types.ResumeRecord `json:"data,omitempty"`
	Error   string              `json:"error,omitempty"`
	Kind    Kind                `json:"kind,omitempty"`
}

// NewResult builds a Result from the outcome of a Service operation.
func NewResult(record *types.ResumeRecord, err error) Result {
	if err != nil {
		pipelineErr := classify("", err)
		return Result{Success: false, Error: pipelineErr.Reason, Kind: pipelineErr.Kind}
	}
	return Result{Success: true, Data: record}
}
