package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-builder/internal/ingestion"
	"github.com/jonathan/resume-builder/internal/llm"
	"github.com/jonathan/resume-builder/internal/types"
)

// byteExtractor returns the document bytes as text and tracks concurrency.
type byteExtractor struct {
	active  int32
	maxSeen int32
}

func (b *byteExtractor) ExtractText(_ context.Context, data []byte) (string, error) {
	n := atomic.AddInt32(&b.active, 1)
	defer atomic.AddInt32(&b.active, -1)
	for {
		seen := atomic.LoadInt32(&b.maxSeen)
		if n <= seen || atomic.CompareAndSwapInt32(&b.maxSeen, seen, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	if string(data) == "scanned" {
		return "", &ingestion.ExtractionError{Message: "unable to extract text from this document; it might be image-only or protected"}
	}
	return string(data), nil
}

func TestParseResumes(t *testing.T) {
	extractor := &byteExtractor{}
	completer := &fakeCompleter{responses: []string{janeDoeResponse}}
	service := New(extractor, completer)

	docs := map[string][]byte{
		"a.pdf":       []byte("resume a"),
		"b.pdf":       []byte("resume b"),
		"scanned.pdf": []byte("scanned"),
		"empty.pdf":   nil,
	}

	results := service.ParseResumes(context.Background(), docs, 1)
	require.Len(t, results, 4)

	for _, name := range []string{"a.pdf", "b.pdf"} {
		assert.True(t, results[name].Success, name)
		require.NotNil(t, results[name].Data, name)
		assert.Equal(t, "Jane Doe", results[name].Data.Profile.Name)
	}

	assert.False(t, results["scanned.pdf"].Success)
	assert.Equal(t, KindExtraction, results["scanned.pdf"].Kind)
	assert.False(t, results["empty.pdf"].Success)
	assert.Equal(t, KindValidation, results["empty.pdf"].Kind)

	assert.Equal(t, int32(1), atomic.LoadInt32(&extractor.maxSeen))
	assert.Equal(t, 2, completer.calls())
}

func TestParseResumes_Empty(t *testing.T) {
	service := New(&byteExtractor{}, &fakeCompleter{responses: []string{janeDoeResponse}})

	results := service.ParseResumes(context.Background(), nil, 0)
	assert.Empty(t, results)
}

func TestNewResult(t *testing.T) {
	record := &types.ResumeRecord{Profile: types.Profile{Name: "Jane Doe"}}

	tests := []struct {
		name        string
		record      *types.ResumeRecord
		err         error
		wantSuccess bool
		wantKind    Kind
		wantError   string
	}{
		{
			name:        "success",
			record:      record,
			wantSuccess: true,
		},
		{
			name:      "call exhausted",
			err:       &llm.CallExhaustedError{Attempts: 5, Last: errors.New("503")},
			wantKind:  KindCallExhausted,
			wantError: "the AI service did not respond successfully after 5 attempt(s)",
		},
		{
			name:      "unclassified",
			err:       errors.New("boom"),
			wantKind:  KindInternal,
			wantError: "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewResult(tt.record, tt.err)

			assert.Equal(t, tt.wantSuccess, result.Success)
			assert.Equal(t, tt.wantKind, result.Kind)
			assert.Equal(t, tt.wantError, result.Error)
			if tt.wantSuccess {
				assert.Same(t, tt.record, result.Data)
			} else {
				assert.Nil(t, result.Data)
			}
		})
	}
}

func TestResult_JSON(t *testing.T) {
	failed, err := json.Marshal(NewResult(nil, &ValidationError{Field: "document", Message: "document data is required"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":"invalid document: document data is required","kind":"validation"}`, string(failed))

	ok, err := json.Marshal(NewResult(&types.ResumeRecord{}, nil))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(ok, &decoded))
	assert.Equal(t, true, decoded["success"])
	assert.Contains(t, decoded, "data")
	assert.NotContains(t, decoded, "error")
}
