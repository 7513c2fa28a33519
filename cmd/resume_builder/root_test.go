package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-builder/internal/config"
	"github.com/jonathan/resume-builder/internal/ingestion"
	"github.com/jonathan/resume-builder/internal/llm"
	"github.com/jonathan/resume-builder/internal/pipeline"
	"github.com/jonathan/resume-builder/internal/server"
	"github.com/jonathan/resume-builder/internal/types"
)

const janeDoeJSON = `{"profile":{"name":"Jane Doe","email":"jane@x.com","phone":"","location":""},"summary":"Engineer","experience":[],"education":[{"school":"MIT","degree":"BSc","graduationDate":"2016"}],"skills":[{"category":"Languages","items":["Go"]}]}`

// MockLLMClient implements llm.Client for testing
type MockLLMClient struct {
	GenerateContentFunc func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)

	mu      sync.Mutex
	prompts []string
	closed  bool
}

func (m *MockLLMClient) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
	if m.GenerateContentFunc != nil {
		return m.GenerateContentFunc(ctx, prompt, tier)
	}
	return janeDoeJSON, nil
}

func (m *MockLLMClient) GetModel(_ llm.ModelTier) string { return "mock-model" }

func (m *MockLLMClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MockLLMClient) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// contentExtractor treats the file bytes as the document text; "scanned" files have none.
type contentExtractor struct{}

func (contentExtractor) ExtractText(_ context.Context, data []byte) (string, error) {
	if strings.HasPrefix(string(data), "scanned") {
		return "", &ingestion.ExtractionError{Message: "unable to extract text from this document"}
	}
	return string(data), nil
}

type testApp struct {
	*app
	client    *MockLLMClient
	out       *bytes.Buffer
	errOut    *bytes.Buffer
	modelSeen string
}

func newTestApp(t *testing.T, client *MockLLMClient) *testApp {
	t.Helper()
	t.Setenv(config.EnvAPIKey, "")
	t.Setenv(config.EnvModel, "")

	ta := &testApp{client: client, out: &bytes.Buffer{}, errOut: &bytes.Buffer{}}
	ta.app = &app{
		stdout: ta.out,
		stderr: ta.errOut,
		newClient: func(_ context.Context, cfg *llm.Config, apiKey string) (llm.Client, error) {
			if apiKey == "" {
				return nil, errors.New("no key")
			}
			ta.modelSeen = cfg.GetModel(llm.TierStandard)
			return client, nil
		},
		extractor: contentExtractor{},
		sleep:     func(_ context.Context, _ time.Duration) error { return nil },
		startServer: func(*server.Server) error {
			return errors.New("unexpected server start")
		},
	}
	return ta
}

func (ta *testApp) execute(args ...string) error {
	cmd := newRootCmd(ta.app)
	cmd.SetArgs(args)
	return cmd.Execute()
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParse_SingleFile(t *testing.T) {
	ta := newTestApp(t, &MockLLMClient{})
	path := writeFile(t, t.TempDir(), "jane.pdf", "Jane Doe jane@x.com")

	err := ta.execute("parse", path, "--api-key", "test-key")
	require.NoError(t, err)

	var record types.ResumeRecord
	require.NoError(t, json.Unmarshal(ta.out.Bytes(), &record))
	assert.Equal(t, "Jane Doe", record.Profile.Name)
	assert.Equal(t, "MIT", record.Education[0].School)

	require.Equal(t, 1, ta.client.calls())
	assert.Contains(t, ta.client.prompts[0], "Jane Doe jane@x.com")
	assert.True(t, ta.client.closed)
}

func TestParse_OutFileAndVerbose(t *testing.T) {
	ta := newTestApp(t, &MockLLMClient{})
	dir := t.TempDir()
	path := writeFile(t, dir, "jane.pdf", "Jane Doe")
	out := filepath.Join(dir, "jane.json")

	err := ta.execute("parse", path, "--api-key", "test-key", "--out", out, "--verbose")
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"name": "Jane Doe"`)
	assert.Empty(t, ta.out.String())
	assert.Contains(t, ta.errOut.String(), "jane.pdf")
}

func TestParse_MultipleFiles(t *testing.T) {
	ta := newTestApp(t, &MockLLMClient{})
	dir := t.TempDir()
	good := writeFile(t, dir, "good.pdf", "Jane Doe")
	bad := writeFile(t, dir, "bad.pdf", "scanned image")

	err := ta.execute("parse", good, bad, "--api-key", "test-key", "--concurrency", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 resumes failed to parse")

	var results map[string]pipeline.Result
	require.NoError(t, json.Unmarshal(ta.out.Bytes(), &results))
	require.Len(t, results, 2)

	assert.True(t, results["good.pdf"].Success)
	assert.Equal(t, "Jane Doe", results["good.pdf"].Data.Profile.Name)

	assert.False(t, results["bad.pdf"].Success)
	assert.Equal(t, pipeline.KindExtraction, results["bad.pdf"].Kind)
	assert.Equal(t, 1, ta.client.calls())
}

func TestParse_CallExhausted(t *testing.T) {
	client := &MockLLMClient{
		GenerateContentFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			return "", errors.New("model unavailable")
		},
	}
	ta := newTestApp(t, client)
	path := writeFile(t, t.TempDir(), "jane.pdf", "Jane Doe")

	err := ta.execute("parse", path, "--api-key", "test-key", "--max-attempts", "2", "--verbose")

	var pipelineErr *pipeline.Error
	require.ErrorAs(t, err, &pipelineErr)
	assert.Equal(t, pipeline.KindCallExhausted, pipelineErr.Kind)
	assert.Equal(t, 2, client.calls())
	assert.Contains(t, ta.errOut.String(), "model unavailable")
	assert.Empty(t, ta.out.String())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    func(t *testing.T, dir string) []string
		wantErr string
	}{
		{
			name:    "no files",
			args:    func(*testing.T, string) []string { return []string{"parse", "--api-key", "k"} },
			wantErr: "requires at least 1 arg",
		},
		{
			name:    "missing file",
			args:    func(_ *testing.T, dir string) []string { return []string{"parse", filepath.Join(dir, "nope.pdf"), "--api-key", "k"} },
			wantErr: "failed to read resume file",
		},
		{
			name: "missing api key",
			args: func(t *testing.T, dir string) []string {
				return []string{"parse", writeFile(t, dir, "a.pdf", "text")}
			},
			wantErr: "API key is required",
		},
		{
			name: "bad log format",
			args: func(t *testing.T, dir string) []string {
				return []string{"parse", writeFile(t, dir, "a.pdf", "text"), "--api-key", "k", "--log-format", "xml"}
			},
			wantErr: "log_format",
		},
		{
			name: "duplicate names",
			args: func(t *testing.T, dir string) []string {
				sub := filepath.Join(dir, "sub")
				require.NoError(t, os.MkdirAll(sub, 0755))
				return []string{"parse", writeFile(t, dir, "a.pdf", "x"), writeFile(t, sub, "a.pdf", "y"), "--api-key", "k"}
			},
			wantErr: "must be unique",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &MockLLMClient{}
			ta := newTestApp(t, client)

			err := ta.execute(tt.args(t, t.TempDir())...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Zero(t, client.calls())
		})
	}
}

func TestTailor_FromJobFile(t *testing.T) {
	client := &MockLLMClient{
		GenerateContentFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			return strings.Replace(janeDoeJSON, `"summary":"Engineer"`, `"summary":"Go backend engineer"`, 1), nil
		},
	}
	ta := newTestApp(t, client)
	dir := t.TempDir()
	resume := writeFile(t, dir, "resume.json", janeDoeJSON)
	job := writeFile(t, dir, "job.txt", "Senior Go Engineer\n\nBuild distributed systems in Go.")
	out := filepath.Join(dir, "tailored.json")

	err := ta.execute("tailor", "--resume", resume, "--job", job, "--out", out, "--api-key", "test-key", "-v")
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var tailored types.ResumeRecord
	require.NoError(t, json.Unmarshal(data, &tailored))
	assert.Equal(t, "Go backend engineer", tailored.Summary)

	require.Equal(t, 1, client.calls())
	assert.Contains(t, client.prompts[0], "Build distributed systems in Go.")
	assert.Contains(t, client.prompts[0], "Jane Doe")
	assert.Contains(t, ta.errOut.String(), "TAILORING CHANGES")
}

func TestTailor_FromJobURL(t *testing.T) {
	posting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><main><h1>Platform Engineer</h1><p>Kubernetes and Go required.</p></main></body></html>`))
	}))
	defer posting.Close()

	client := &MockLLMClient{}
	ta := newTestApp(t, client)
	resume := writeFile(t, t.TempDir(), "resume.json", janeDoeJSON)

	err := ta.execute("tailor", "--resume", resume, "--job-url", posting.URL, "--api-key", "test-key")
	require.NoError(t, err)

	require.Equal(t, 1, client.calls())
	assert.Contains(t, client.prompts[0], "Kubernetes and Go required.")
	assert.Contains(t, ta.out.String(), `"name": "Jane Doe"`)
}

func TestTailor_WritesJobMetadata(t *testing.T) {
	posting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><main><p>Kubernetes and Go required.</p></main></body></html>`))
	}))
	defer posting.Close()

	dir := t.TempDir()
	job := writeFile(t, dir, "job.txt", "Senior Go Engineer")

	tests := []struct {
		name       string
		source     []string
		wantSource string
		wantURL    string
		wantPath   string
	}{
		{name: "job file", source: []string{"--job", job}, wantSource: ingestion.SourceFile, wantPath: job},
		{name: "job url", source: []string{"--job-url", posting.URL}, wantSource: ingestion.SourceURL, wantURL: posting.URL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ta := newTestApp(t, &MockLLMClient{})
			resume := writeFile(t, t.TempDir(), "resume.json", janeDoeJSON)
			metaPath := filepath.Join(t.TempDir(), "job.meta.json")

			args := append([]string{"tailor", "--resume", resume, "--job-meta", metaPath, "--api-key", "test-key"}, tt.source...)
			require.NoError(t, ta.execute(args...))

			data, err := os.ReadFile(metaPath)
			require.NoError(t, err)
			var meta ingestion.Metadata
			require.NoError(t, json.Unmarshal(data, &meta))
			assert.Equal(t, tt.wantSource, meta.Source)
			assert.Equal(t, tt.wantURL, meta.URL)
			assert.Equal(t, tt.wantPath, meta.Path)
			assert.Len(t, meta.Hash, 64)
			assert.Positive(t, meta.Chars)
		})
	}
}

func TestTailor_Errors(t *testing.T) {
	tests := []struct {
		name    string
		resume  string
		args    []string
		wantErr string
	}{
		{
			name:    "no job source",
			resume:  janeDoeJSON,
			wantErr: "at least one of the flags in the group",
		},
		{
			name:    "both job sources",
			resume:  janeDoeJSON,
			args:    []string{"--job", "job.txt", "--job-url", "https://example.com/job"},
			wantErr: "none of the others can be",
		},
		{
			name:    "resume missing required field",
			resume:  `{"profile":{"name":"Jane"},"summary":"","experience":[],"education":[],"skills":[]}`,
			args:    []string{"--job-url", "https://example.com/job"},
			wantErr: "resume does not match the resume schema",
		},
		{
			name:    "resume not json",
			resume:  "name: Jane",
			args:    []string{"--job-url", "https://example.com/job"},
			wantErr: "resume does not match the resume schema",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &MockLLMClient{}
			ta := newTestApp(t, client)
			resume := writeFile(t, t.TempDir(), "resume.json", tt.resume)

			args := append([]string{"tailor", "--resume", resume, "--api-key", "k"}, tt.args...)
			err := ta.execute(args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Zero(t, client.calls())
		})
	}
}

func TestServe_BuildsServerFromConfig(t *testing.T) {
	ta := newTestApp(t, &MockLLMClient{})

	var started bool
	ta.startServer = func(srv *server.Server) error {
		started = true
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"ok"`)
		return nil
	}

	err := ta.execute("serve", "--api-key", "test-key", "--port", "9091")
	require.NoError(t, err)
	assert.True(t, started)
	assert.True(t, ta.client.closed)
}

func TestResolveConfig_Precedence(t *testing.T) {
	ta := newTestApp(t, &MockLLMClient{})
	t.Setenv(config.EnvModel, "env-model")
	t.Setenv(config.EnvAPIKey, "env-key")

	cfgPath := writeFile(t, t.TempDir(), "config.json",
		`{"model":"file-model","max_attempts":3,"initial_delay":"10ms","repair_attempts":1}`)

	ta.opts = globalOptions{configPath: cfgPath, maxAttempts: 2, verbose: true}
	cfg, err := ta.resolveConfig()
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.APIKey)
	assert.Equal(t, "file-model", cfg.Model)
	assert.Equal(t, 2, cfg.MaxAttempts)
	assert.Equal(t, config.Duration(10*time.Millisecond), cfg.InitialDelay)
	assert.Equal(t, config.Duration(llm.DefaultAttemptTimeout), cfg.AttemptTimeout)
	assert.Equal(t, 1, cfg.RepairAttempts)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestResolveConfig_Defaults(t *testing.T) {
	ta := newTestApp(t, &MockLLMClient{})

	cfg, err := ta.resolveConfig()
	require.NoError(t, err)

	policy := cfg.RetryPolicy()
	assert.Equal(t, 5, policy.MaxAttempts)
	assert.Equal(t, 2*time.Second, policy.InitialDelay)
	assert.Equal(t, 30*time.Second, policy.AttemptTimeout)
	assert.Equal(t, 0, cfg.RepairAttempts)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestModelFlagReachesClient(t *testing.T) {
	ta := newTestApp(t, &MockLLMClient{})
	path := writeFile(t, t.TempDir(), "jane.pdf", "Jane Doe")

	require.NoError(t, ta.execute("parse", path, "--api-key", "k", "--model", "gemini-test"))
	assert.Equal(t, "gemini-test", ta.modelSeen)
}
