package ingestion

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/sirupsen/logrus"
)

// PageSource decodes a document into per-page text fragments, in page and reading order.
type PageSource interface {
	Pages(data []byte) ([][]string, error)
}

// PDFSource implements PageSource with github.com/ledongthuc/pdf.
//
// The library reads text with the fonts embedded in the document and has no
// rendering path, so no host shims or font options are needed here. Malformed
// input can make it panic; those panics are returned as errors.
type PDFSource struct{}

// Pages returns one fragment per text row for every non-empty page.
func (PDFSource) Pages(data []byte) (pages [][]string, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("pdf decoder panicked: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	numPages := reader.NumPage()
	pages = make([][]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		rows, err := page.GetTextByRow()
		if err != nil {
			return nil, fmt.Errorf("failed to read text of page %d: %w", i, err)
		}

		fragments := make([]string, 0, len(rows))
		for _, row := range rows {
			var sb strings.Builder
			for _, text := range row.Content {
				sb.WriteString(text.S)
			}
			fragments = append(fragments, sb.String())
		}
		pages = append(pages, fragments)
	}

	return pages, nil
}

// ExtractionError is returned when a document yields no usable text.
// Extraction is deterministic, so callers should not retry it.
type ExtractionError struct {
	Message string
	Cause   error
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("extraction failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("extraction failed: %s", e.Message)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// Extractor turns raw document bytes into plain text.
type Extractor struct {
	source PageSource
	logger logrus.FieldLogger
}

// ExtractorOption configures an Extractor
type ExtractorOption func(*Extractor)

// WithPageSource replaces the PDF decoder.
func WithPageSource(source PageSource) ExtractorOption {
	return func(e *Extractor) {
		if source != nil {
			e.source = source
		}
	}
}

// WithExtractorLogger sets the logger used for extraction events.
func WithExtractorLogger(logger logrus.FieldLogger) ExtractorOption {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExtractor creates an Extractor backed by PDFSource unless overridden.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	e := &Extractor{
		source: PDFSource{},
		logger: discard,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractText returns the visible text of every page in order. Fragments within a
// page are joined by single spaces and pages by a newline. Documents without any
// non-whitespace text fail with *ExtractionError.
func (e *Extractor) ExtractText(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", &ExtractionError{Message: "no document data"}
	}

	pages, err := e.source.Pages(data)
	if err != nil {
		return "", &ExtractionError{Message: "unable to read document", Cause: err}
	}

	pageTexts := make([]string, 0, len(pages))
	for _, fragments := range pages {
		pageTexts = append(pageTexts, strings.Join(fragments, " "))
	}
	text := strings.Join(pageTexts, "\n")

	e.logger.WithFields(logrus.Fields{
		"pages": len(pages),
		"chars": len(text),
	}).Debug("extracted document text")

	if strings.TrimSpace(text) == "" {
		return "", &ExtractionError{Message: "unable to extract text from this document; it might be image-only or protected"}
	}

	return text, nil
}
