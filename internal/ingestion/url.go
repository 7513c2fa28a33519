package ingestion

import (
	"context"
	"errors"
	"io"

	"github.com/jonathan/resume-builder/internal/fetch"
	"github.com/sirupsen/logrus"
)

var (
	// ErrHTTPRequestFailed is returned when the posting could not be downloaded
	ErrHTTPRequestFailed = errors.New("HTTP request failed")
	// ErrContentExtractionFailed is returned when no text could be extracted from the page
	ErrContentExtractionFailed = errors.New("content extraction failed")
)

// URLOptions configures IngestFromURL.
type URLOptions struct {
	// UseBrowser renders the page with headless Chrome when the plain fetch yields too little text.
	UseBrowser bool
	Fetch      *fetch.Options
	Browser    fetch.BrowserOptions
	Logger     logrus.FieldLogger
}

// IngestFromURL downloads a job posting and returns its cleaned text.
// Platform-specific selectors are used when the host is a known job board.
func IngestFromURL(ctx context.Context, urlStr string, opts URLOptions) (string, *Metadata, error) {
	log := opts.Logger
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}

	platform := fetch.DetectPlatform(urlStr)
	log = log.WithFields(logrus.Fields{"url": urlStr, "platform": platform})

	result, err := fetch.URL(ctx, urlStr, opts.Fetch)
	if err != nil {
		return "", nil, errors.Join(ErrHTTPRequestFailed, err)
	}
	log.WithField("bytes", len(result.HTML)).Debug("fetched job posting")

	contentSelectors := fetch.PlatformContentSelectors(platform)
	noiseSelectors := fetch.PlatformNoiseSelectors(platform)

	text, err := fetch.ExtractMainText(result.HTML, contentSelectors, noiseSelectors...)
	if err != nil {
		return "", nil, errors.Join(ErrContentExtractionFailed, err)
	}

	usedBrowser := false
	if opts.UseBrowser && fetch.ShouldUseBrowser(text) {
		log.WithField("chars", len(text)).Info("posting text too short, rendering with browser")

		browserOpts := opts.Browser
		if browserOpts.Logger == nil {
			browserOpts.Logger = log
		}
		html, browserErr := fetch.WithBrowser(ctx, urlStr, browserOpts)
		if browserErr != nil {
			log.WithError(browserErr).Warn("browser rendering failed, keeping HTTP content")
		} else if rendered, extractErr := fetch.ExtractMainText(html, contentSelectors, noiseSelectors...); extractErr != nil {
			log.WithError(extractErr).Warn("browser content extraction failed, keeping HTTP content")
		} else {
			text = rendered
			usedBrowser = true
		}
	}

	cleaned := CleanText(text)
	if cleaned == "" {
		return "", nil, ErrContentExtractionFailed
	}

	metadata := NewMetadata(SourceURL, cleaned)
	metadata.URL = urlStr
	metadata.Platform = string(platform)
	metadata.Browser = usedBrowser

	log.WithField("chars", len(cleaned)).Debug("ingested job posting")

	return cleaned, metadata, nil
}
