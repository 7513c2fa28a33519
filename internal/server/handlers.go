package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/resume-builder/internal/pipeline"
	"github.com/jonathan/resume-builder/internal/schemas"
	"github.com/jonathan/resume-builder/internal/types"
)

// maxTailorBodyBytes caps the JSON body of a tailor request.
const maxTailorBodyBytes = 1 << 20

// TailorRequest represents the request body for /resume/tailor
type TailorRequest struct {
	Resume         json.RawMessage `json:"resume" validate:"required"`
	JobDescription string          `json:"jobDescription,omitempty" validate:"required_without=JobURL"`
	JobURL         string          `json:"jobUrl,omitempty" validate:"omitempty,http_url"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report JSON field names in errors
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// handleParse turns an uploaded PDF into a structured resume
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.jsonResponse(w, r, http.StatusRequestEntityTooLarge,
				failure(pipeline.KindValidation, fmt.Sprintf("file exceeds the %d byte limit", s.maxUploadBytes)))
			return
		}
		s.resultResponse(w, r, failure(pipeline.KindValidation, "expected multipart/form-data with a 'file' field"))
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	file, _, err := r.FormFile("file")
	if err != nil {
		s.resultResponse(w, r, failure(pipeline.KindValidation, "missing 'file' field"))
		return
	}
	defer file.Close() //nolint:errcheck

	data, err := io.ReadAll(file)
	if err != nil {
		s.resultResponse(w, r, failure(pipeline.KindValidation, "failed to read uploaded file"))
		return
	}

	s.run(w, r, func(ctx context.Context, svc *pipeline.Service) (*types.ResumeRecord, error) {
		return svc.ParseResume(ctx, data)
	})
}

// handleTailor rewrites a resume toward a job description given inline or by URL
func (s *Server) handleTailor(w http.ResponseWriter, r *http.Request) {
	var req TailorRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxTailorBodyBytes)).Decode(&req); err != nil {
		s.resultResponse(w, r, failure(pipeline.KindValidation, "Invalid request body: "+err.Error()))
		return
	}
	if err := validate.Struct(req); err != nil {
		s.resultResponse(w, r, failure(pipeline.KindValidation, extractValidationErrors(err)))
		return
	}
	if err := schemas.ValidateResume(string(req.Resume)); err != nil {
		s.resultResponse(w, r, failure(pipeline.KindValidation, "resume does not match the resume schema: "+err.Error()))
		return
	}

	var record types.ResumeRecord
	if err := json.Unmarshal(req.Resume, &record); err != nil {
		s.resultResponse(w, r, failure(pipeline.KindValidation, "Invalid resume: "+err.Error()))
		return
	}

	jobDescription := req.JobDescription
	if strings.TrimSpace(jobDescription) == "" && req.JobURL != "" {
		text, err := s.fetchJob(r.Context(), req.JobURL)
		if err != nil {
			s.requestLogger(r).WithError(err).WithField("job_url", req.JobURL).Warn("failed to fetch job posting")
			s.resultResponse(w, r, failure(KindJobFetch, "unable to fetch job description: "+err.Error()))
			return
		}
		jobDescription = text
	}

	s.run(w, r, func(ctx context.Context, svc *pipeline.Service) (*types.ResumeRecord, error) {
		return svc.TailorResume(ctx, &record, jobDescription)
	})
}

// run executes op on a request-scoped service, streaming progress when the client asked for SSE.
func (s *Server) run(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, svc *pipeline.Service) (*types.ResumeRecord, error)) {
	opts := make([]pipeline.Option, 0, len(s.serviceOptions)+2)
	opts = append(opts, s.serviceOptions...)
	opts = append(opts, pipeline.WithLogger(s.requestLogger(r)))

	if wantsStream(r) {
		if sse, err := NewSSEWriter(w); err == nil {
			opts = append(opts, pipeline.WithProgress(sse.WriteProgress))
			record, err := op(r.Context(), pipeline.New(s.extractor, s.caller, opts...))
			sse.WriteResult(pipeline.NewResult(record, err))
			return
		}
	}

	record, err := op(r.Context(), pipeline.New(s.extractor, s.caller, opts...))
	s.resultResponse(w, r, pipeline.NewResult(record, err))
}

// extractValidationErrors extracts validation error messages from validator errors.
func extractValidationErrors(err error) string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		// Return first validation error for simplicity
		ve := validationErrors[0]
		return fmt.Sprintf("validation error: %s - %s", ve.Field(), ve.Tag())
	}
	return "validation error: invalid request"
}
