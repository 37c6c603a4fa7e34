// Package analysis implements the code-analysis pipeline: take what the user
// sent (text, photo, document), turn it into text, get advice from the
// analyzer and remember the exchange.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/mentor-hub/code-mentor-bot/internal/domain/history"
	"github.com/mentor-hub/code-mentor-bot/internal/domain/shared"
	"github.com/mentor-hub/code-mentor-bot/internal/domain/tutor"
	"github.com/mentor-hub/code-mentor-bot/internal/infrastructure/cache"
	"github.com/mentor-hub/code-mentor-bot/internal/infrastructure/fetch"
	"github.com/mentor-hub/code-mentor-bot/pkg/textutil"
)

// snippetLimit caps what a media exchange contributes to history. The full
// extraction can be tens of kilobytes; history only needs a reminder.
const snippetLimit = 200

// Analyzer produces advice for a piece of code or an error message. It never
// fails: degraded backends answer with inline text.
type Analyzer interface {
	Analyze(ctx context.Context, text string) string
}

// TextExtractor pulls text out of an image file.
type TextExtractor interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

// Fetcher stages remote media on local disk.
type Fetcher interface {
	Fetch(ctx context.Context, fileID string, maxBytes int64) (*fetch.Handle, error)
}

// DefaultAllowedMIME is the document allow-list: source code, markup and the
// office formats students actually send.
var DefaultAllowedMIME = []string{
	"text/plain", "text/markdown", "text/x-python", "text/x-c", "text/x-c++",
	"text/x-java", "text/x-go", "text/x-php", "text/x-ruby", "text/x-shellscript",
	"text/x-sql", "text/x-typescript", "text/css", "text/html",
	"application/json", "application/javascript", "application/xml",
	"application/x-yaml", "application/yaml",
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.oasis.opendocument.text",
}

// Config holds pipeline limits.
type Config struct {
	// MaxTextChars caps inbound text before analysis.
	MaxTextChars int

	// MaxPhotoBytes and MaxDocumentBytes cap media downloads.
	MaxPhotoBytes    int64
	MaxDocumentBytes int64

	// AllowedMIME is the document MIME allow-list. Empty means
	// DefaultAllowedMIME.
	AllowedMIME []string
}

// DefaultConfig returns the production pipeline limits.
func DefaultConfig() Config {
	return Config{
		MaxTextChars:     50000,
		MaxPhotoBytes:    256 * 1024 * 1024,
		MaxDocumentBytes: 256 * 1024 * 1024,
	}
}

// Result is one finished analysis exchange.
type Result struct {
	// Advice is the analyzer's answer, ready to send.
	Advice string

	// Extracted is the text the analyzer saw (after sanitation).
	Extracted string
}

// MIMERejectedError reports a document type outside the allow-list.
type MIMERejectedError struct {
	MIME   string
	SizeMB float64
}

func (e *MIMERejectedError) Error() string {
	return fmt.Sprintf("mime type %q not allowed", e.MIME)
}

func (e *MIMERejectedError) Unwrap() error { return shared.ErrForbidden }

// ErrNothingExtracted is returned when media produced no usable text.
var ErrNothingExtracted = errors.New("no text extracted")

// ErrEmptyDocument is returned when a document had no readable content.
var ErrEmptyDocument = errors.New("document empty or unreadable")

// Pipeline wires fetching, caching, extraction and analysis together.
type Pipeline struct {
	config    Config
	fetcher   Fetcher
	cache     *cache.ResultCache
	extractor TextExtractor
	analyzer  Analyzer
	history   *history.Ring
	logger    *slog.Logger

	allowedMIME map[string]struct{}
}

// NewPipeline creates a pipeline.
func NewPipeline(config Config, fetcher Fetcher, resultCache *cache.ResultCache, extractor TextExtractor, analyzer Analyzer, ring *history.Ring, logger *slog.Logger) *Pipeline {
	if config.MaxTextChars <= 0 {
		config.MaxTextChars = DefaultConfig().MaxTextChars
	}
	if logger == nil {
		logger = slog.Default()
	}

	allowed := config.AllowedMIME
	if len(allowed) == 0 {
		allowed = DefaultAllowedMIME
	}
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, m := range allowed {
		allowedSet[textutil.NormalizeMIME(m)] = struct{}{}
	}

	return &Pipeline{
		config:      config,
		fetcher:     fetcher,
		cache:       resultCache,
		extractor:   extractor,
		analyzer:    analyzer,
		history:     ring,
		logger:      logger,
		allowedMIME: allowedSet,
	}
}

// AnalyzeText runs the pipeline over a plain text message. Empty input after
// sanitation returns ErrNothingExtracted.
func (p *Pipeline) AnalyzeText(ctx context.Context, user tutor.UserID, text string) (*Result, error) {
	text = textutil.Sanitize(text, p.config.MaxTextChars)
	if text == "" {
		return nil, ErrNothingExtracted
	}

	advice := p.analyzer.Analyze(ctx, text)
	p.history.Append(user, "texto", text)

	return &Result{Advice: advice, Extracted: text}, nil
}

// AnalyzePhoto downloads the photo, OCRs it (through the cache) and analyzes
// the recognized text.
func (p *Pipeline) AnalyzePhoto(ctx context.Context, user tutor.UserID, fileID string) (*Result, error) {
	handle, err := p.fetcher.Fetch(ctx, fileID, p.config.MaxPhotoBytes)
	if err != nil {
		return nil, err
	}
	defer handle.Cleanup()

	extracted, err := p.extractCached(ctx, handle.Path)
	if err != nil {
		return nil, err
	}

	extracted = textutil.Sanitize(extracted, p.config.MaxTextChars)
	if strings.TrimSpace(extracted) == "" {
		return nil, ErrNothingExtracted
	}

	advice := p.analyzer.Analyze(ctx, extracted)
	p.history.Append(user, "foto", textutil.Truncate(extracted, snippetLimit))

	return &Result{Advice: advice, Extracted: extracted}, nil
}

// AnalyzeDocument validates the MIME type, downloads the document and
// analyzes its textual content.
func (p *Pipeline) AnalyzeDocument(ctx context.Context, user tutor.UserID, fileID, mimeType string, declaredSize int64) (*Result, error) {
	mime := textutil.NormalizeMIME(mimeType)
	if _, ok := p.allowedMIME[mime]; !ok {
		return nil, &MIMERejectedError{MIME: mime, SizeMB: textutil.Megabytes(declaredSize)}
	}

	handle, err := p.fetcher.Fetch(ctx, fileID, p.config.MaxDocumentBytes)
	if err != nil {
		return nil, err
	}
	defer handle.Cleanup()

	data, err := os.ReadFile(handle.Path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	content := textutil.Sanitize(string(data), p.config.MaxTextChars)
	if content == "" {
		return nil, ErrEmptyDocument
	}

	advice := p.analyzer.Analyze(ctx, content)
	p.history.Append(user, "documento", textutil.Truncate(content, snippetLimit))

	return &Result{Advice: advice, Extracted: content}, nil
}

// AllowedMIMEList renders the allow-list for user-facing rejections.
func (p *Pipeline) AllowedMIMEList() string {
	list := make([]string, 0, len(p.allowedMIME))
	for m := range p.allowedMIME {
		list = append(list, m)
	}
	sort.Strings(list)
	return strings.Join(list, ", ")
}

// extractCached runs OCR through the content-hash cache: identical images
// never pay for extraction twice, failures included.
func (p *Pipeline) extractCached(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read media: %w", err)
	}

	key := cache.ContentHash(data)
	return p.cache.GetOrCompute(ctx, key, func(ctx context.Context) (string, error) {
		return p.extractor.ExtractText(ctx, path)
	}), nil
}
