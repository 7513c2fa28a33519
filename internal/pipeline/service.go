// Package pipeline composes text extraction, prompting, the resilient model call
// and decoding into the parse and tailor operations.
package pipeline

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/resume-builder/internal/parsing"
	"github.com/jonathan/resume-builder/internal/prompts"
	"github.com/jonathan/resume-builder/internal/types"
)

// Operation names used in errors, logs and progress events
const (
	OpParse  = "parse resume"
	OpTailor = "tailor resume"
)

// Progress steps
const (
	StepExtract = "extract"
	StepCall    = "call"
	StepDecode  = "decode"
	StepRepair  = "repair"
	StepDone    = "done"
)

// TextExtractor turns document bytes into plain text.
type TextExtractor interface {
	ExtractText(ctx context.Context, data []byte) (string, error)
}

// Completer sends a prompt to the model and returns its raw text.
type Completer interface {
	Call(ctx context.Context, prompt string) (string, error)
}

// ProgressEvent represents a progress update during an operation
type ProgressEvent struct {
	Op      string `json:"op"`
	Step    string `json:"step"`
	Message string `json:"message"`
}

// ProgressCallback is called synchronously for each step. It must be safe for
// concurrent use when ParseResumes is used.
type ProgressCallback func(event ProgressEvent)

// Service runs the parse and tailor operations. It holds no per-call state.
type Service struct {
	extractor      TextExtractor
	caller         Completer
	repairAttempts int
	logger         logrus.FieldLogger
	onProgress     ProgressCallback
}

// Option configures a Service
type Option func(*Service)

// WithDecodeRepair allows up to n extra model calls asking the model to fix output
// that failed to decode. The default is 0: decode failures are returned as-is.
func WithDecodeRepair(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.repairAttempts = n
		}
	}
}

// WithLogger sets the logger for operation events.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithProgress registers a progress callback.
func WithProgress(fn ProgressCallback) Option {
	return func(s *Service) { s.onProgress = fn }
}

// New creates a Service from its collaborators.
func New(extractor TextExtractor, caller Completer, opts ...Option) *Service {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	s := &Service{
		extractor: extractor,
		caller:    caller,
		logger:    discard,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ParseResume extracts the text of a PDF resume and asks the model to structure it.
// Every failure is a *Error.
func (s *Service) ParseResume(ctx context.Context, data []byte) (*types.ResumeRecord, error) {
	start := time.Now()
	log := s.logger.WithFields(logrus.Fields{"op": OpParse, "bytes": len(data)})
	log.Info("starting operation")

	if len(data) == 0 {
		return nil, s.fail(log, OpParse, start, &ValidationError{Field: "document", Message: "document data is required"})
	}

	s.emit(OpParse, StepExtract, "Extracting text from document")
	text, err := s.extractor.ExtractText(ctx, data)
	if err != nil {
		return nil, s.fail(log, OpParse, start, err)
	}
	log.WithField("chars", len(text)).Debug("extracted text")

	record, err := s.complete(ctx, log, OpParse, prompts.BuildExtractionPrompt(text))
	if err != nil {
		return nil, s.fail(log, OpParse, start, err)
	}

	s.succeed(log, OpParse, start, record)
	return record, nil
}

// TailorResume asks the model to rewrite record toward jobDescription and returns
// the new record. record is not modified and is assumed to be schema-conformant.
//
// The prompt forbids inventing employers or degrees, but that rule is not enforced
// here: whatever well-formed record the model returns is passed through.
func (s *Service) TailorResume(ctx context.Context, record *types.ResumeRecord, jobDescription string) (*types.ResumeRecord, error) {
	start := time.Now()
	log := s.logger.WithFields(logrus.Fields{"op": OpTailor, "job_description_chars": len(jobDescription)})
	log.Info("starting operation")

	if record == nil {
		return nil, s.fail(log, OpTailor, start, &ValidationError{Field: "resume", Message: "resume record is required"})
	}
	if strings.TrimSpace(jobDescription) == "" {
		return nil, s.fail(log, OpTailor, start, &ValidationError{Field: "jobDescription", Message: "job description must not be empty"})
	}

	prompt, err := prompts.BuildTailoringPrompt(record.Clone(), jobDescription)
	if err != nil {
		return nil, s.fail(log, OpTailor, start, err)
	}

	tailored, err := s.complete(ctx, log, OpTailor, prompt)
	if err != nil {
		return nil, s.fail(log, OpTailor, start, err)
	}

	s.succeed(log, OpTailor, start, tailored)
	return tailored, nil
}

// complete calls the model and decodes its answer, re-prompting for repairs when enabled.
func (s *Service) complete(ctx context.Context, log logrus.FieldLogger, op, prompt string) (*types.ResumeRecord, error) {
	s.emit(op, StepCall, "Calling model")
	raw, err := s.caller.Call(ctx, prompt)
	if err != nil {
		return nil, err
	}

	s.emit(op, StepDecode, "Decoding model response")
	record, err := parsing.DecodeResume(raw)

	for attempt := 1; err != nil && attempt <= s.repairAttempts; attempt++ {
		var decodeErr *parsing.DecodeError
		if !errors.As(err, &decodeErr) {
			break
		}

		log.WithError(err).WithField("repair_attempt", attempt).Warn("model response did not decode, asking for a repair")
		s.emit(op, StepRepair, "Asking model to repair its response")

		repaired, callErr := s.caller.Call(ctx, prompts.BuildRepairPrompt(decodeErr.Raw, decodeErr.Cause))
		if callErr != nil {
			return nil, callErr
		}
		record, err = parsing.DecodeResume(repaired)
	}

	return record, err
}

func (s *Service) fail(log logrus.FieldLogger, op string, start time.Time, err error) error {
	pipelineErr := classify(op, err)
	log.WithFields(logrus.Fields{
		"kind":     pipelineErr.Kind,
		"duration": time.Since(start),
	}).WithError(err).Error("operation failed")

	if pipelineErr.Kind == KindDecode {
		log.WithField("raw", pipelineErr.Diagnostic()).Debug("undecodable model response")
	}
	return pipelineErr
}

func (s *Service) succeed(log logrus.FieldLogger, op string, start time.Time, record *types.ResumeRecord) {
	log.WithFields(logrus.Fields{
		"duration":    time.Since(start),
		"experiences": len(record.Experience),
		"bullets":     record.CountBullets(),
	}).Info("operation succeeded")
	s.emit(op, StepDone, "Done")
}

func (s *Service) emit(op, step, message string) {
	if s.onProgress != nil {
		s.onProgress(ProgressEvent{Op: op, Step: step, Message: message})
	}
}
