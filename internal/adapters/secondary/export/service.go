package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/fredcamaral/slidekit/internal/domain/entities"
	"github.com/fredcamaral/slidekit/internal/domain/ports"
)

// ExportOptions contains configuration for one export call
type ExportOptions struct {
	Format     entities.ExportFormat `json:"format"`
	OutputPath string                `json:"output_path"`
	Title      string                `json:"title,omitempty"`
	Author     string                `json:"author,omitempty"`
	PixelRatio float64               `json:"pixel_ratio,omitempty"`
}

// ExportResult contains the results of an export operation
type ExportResult struct {
	Success     bool      `json:"success"`
	OperationID string    `json:"operation_id"`
	Format      string    `json:"format"`
	OutputPath  string    `json:"output_path,omitempty"`
	FileSize    int64     `json:"file_size,omitempty"`
	Duration    string    `json:"duration"`
	PageCount   int       `json:"page_count,omitempty"`
	Renderer    string    `json:"renderer,omitempty"`
	Error       string    `json:"error,omitempty"`
	FailedSlide int       `json:"failed_slide,omitempty"`
	Warnings    []string  `json:"warnings,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// ExportErrorType categorizes different types of export errors
type ExportErrorType string

const (
	ErrorTypeValidation    ExportErrorType = "validation"
	ErrorTypeRenderer      ExportErrorType = "renderer"
	ErrorTypeBrowser       ExportErrorType = "browser"
	ErrorTypeFilesystem    ExportErrorType = "filesystem"
	ErrorTypeTimeout       ExportErrorType = "timeout"
	ErrorTypeConfiguration ExportErrorType = "configuration"
)

// ExportError provides detailed error information with categorization
type ExportError struct {
	Type      ExportErrorType `json:"type"`
	Message   string          `json:"message"`
	Details   string          `json:"details,omitempty"`
	Code      string          `json:"code,omitempty"`
	Slide     int             `json:"slide,omitempty"` // 1-based, 0 when not slide specific
	Retryable bool            `json:"retryable"`
	Cause     error           `json:"-"`
}

func (e *ExportError) Error() string {
	msg := fmt.Sprintf("%s error: %s", e.Type, e.Message)
	if e.Slide > 0 {
		msg = fmt.Sprintf("%s error: slide %d: %s", e.Type, e.Slide, e.Message)
	}
	if e.Details != "" {
		msg += " - " + e.Details
	}
	return msg
}

func (e *ExportError) Unwrap() error {
	return e.Cause
}

// RetryConfig defines retry behavior for a slide render
type RetryConfig struct {
	MaxRetries      int               `json:"max_retries"`
	InitialDelay    time.Duration     `json:"initial_delay"`
	MaxDelay        time.Duration     `json:"max_delay"`
	BackoffFactor   float64           `json:"backoff_factor"`
	RetryableErrors []ExportErrorType `json:"retryable_errors"`
}

// DefaultRetryConfig retries browser hiccups and timeouts twice
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    2,
		InitialDelay:  500 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		RetryableErrors: []ExportErrorType{
			ErrorTypeBrowser,
			ErrorTypeTimeout,
		},
	}
}

// Config tunes the rasterizing pipeline
type Config struct {
	// SlideTimeout bounds one slide's load and capture
	SlideTimeout time.Duration
	// PixelRatio is the default capture scale
	PixelRatio float64
	// ContentSelector picks the element captured on each page
	ContentSelector string
	Retry           RetryConfig
}

// ConfigFromEntities maps the export section of the application config
func ConfigFromEntities(c entities.ExportConfig) Config {
	return Config{
		SlideTimeout:    c.GetTimeout(),
		PixelRatio:      c.GetPixelRatio(),
		ContentSelector: c.GetContentElement(),
		Retry:           DefaultRetryConfig(),
	}
}

// verifier is implemented by writers that can check a written deck
type verifier interface {
	Verify(path string, pages int) error
}

// Service rasterizes slides on off-screen pages and assembles decks.
// Every page it opens is closed before the slide's render returns.
type Service struct {
	pages   ports.PageFactory
	writers map[entities.ExportFormat]ports.DeckWriter
	cfg     Config
	clock   ports.TimeProvider
	open    atomic.Int64
	logger  *slog.Logger
}

// NewService creates an export service with the PDF and PPTX writers registered
func NewService(pages ports.PageFactory, cfg Config, clock ports.TimeProvider, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = ports.NewRealTimeProvider()
	}
	if cfg.SlideTimeout <= 0 {
		cfg.SlideTimeout = 30 * time.Second
	}
	if cfg.PixelRatio <= 0 {
		cfg.PixelRatio = 2
	}
	if cfg.ContentSelector == "" {
		cfg.ContentSelector = "body"
	}

	s := &Service{
		pages:   pages,
		writers: make(map[entities.ExportFormat]ports.DeckWriter),
		cfg:     cfg,
		clock:   clock,
		logger:  logger.With("service", "export"),
	}
	s.RegisterWriter(NewPDFWriter())
	s.RegisterWriter(NewPPTXWriter())
	return s
}

// RegisterWriter registers a deck writer for its format
func (s *Service) RegisterWriter(w ports.DeckWriter) {
	s.writers[w.Format()] = w
}

// SupportedFormats returns the registered deck formats
func (s *Service) SupportedFormats() []entities.ExportFormat {
	formats := make([]entities.ExportFormat, 0, len(s.writers))
	for format := range s.writers {
		formats = append(formats, format)
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })
	return formats
}

// OpenPages returns how many off-screen pages are currently attached
func (s *Service) OpenPages() int64 {
	return s.open.Load()
}

// Export rasterizes every slide and writes the deck. On failure the
// returned result has Success false and the same error is returned.
func (s *Service) Export(ctx context.Context, presentation *entities.Presentation, options *ExportOptions) (*ExportResult, error) {
	start := s.clock.Now()
	result := &ExportResult{OperationID: uuid.NewString(), Renderer: s.pages.Name()}
	if options != nil {
		result.Format = string(options.Format)
	}
	logger := s.logger.With("operation", result.OperationID)

	fail := func(err error) (*ExportResult, error) {
		exportErr := s.categorizeError(err)
		result.Success = false
		result.Error = exportErr.Error()
		result.FailedSlide = exportErr.Slide
		result.Duration = s.clock.Since(start).String()
		result.GeneratedAt = s.clock.Now()
		logger.Error("export failed", "error", exportErr, "slide", exportErr.Slide)
		return result, exportErr
	}

	if err := s.validateOptions(presentation, options); err != nil {
		return fail(err)
	}

	writer, exists := s.writers[options.Format]
	if !exists {
		return fail(&ExportError{
			Type:    ErrorTypeConfiguration,
			Message: "unsupported export format",
			Details: string(options.Format),
			Code:    "UNSUPPORTED_FORMAT",
		})
	}

	ratio := options.PixelRatio
	if ratio <= 0 {
		ratio = s.cfg.PixelRatio
	}

	logger.Info("export started", "format", options.Format, "slides", len(presentation.Slides), "renderer", s.pages.Name())

	images := make([][]byte, 0, len(presentation.Slides))
	for i, slide := range presentation.Slides {
		img, warnings, err := s.renderWithRetry(ctx, slide, i+1, ratio)
		result.Warnings = append(result.Warnings, warnings...)
		if err != nil {
			return fail(err)
		}
		images = append(images, img)
	}

	meta := ports.DeckMeta{Title: options.Title, Author: options.Author}
	if meta.Title == "" {
		meta.Title = presentation.Title
	}
	if meta.Author == "" {
		meta.Author = presentation.Author
	}

	size, err := s.writeDeck(ctx, writer, options.OutputPath, meta, images)
	if err != nil {
		return fail(err)
	}

	if v, ok := writer.(verifier); ok {
		if err := v.Verify(options.OutputPath, len(images)); err != nil {
			return fail(&ExportError{
				Type:    ErrorTypeRenderer,
				Message: "written deck failed verification",
				Code:    "VERIFY_FAILED",
				Cause:   err,
			})
		}
	}

	result.Success = true
	result.OutputPath = options.OutputPath
	result.FileSize = size
	result.PageCount = len(images)
	result.Duration = s.clock.Since(start).String()
	result.GeneratedAt = s.clock.Now()

	logger.Info("export finished", "output", options.OutputPath, "bytes", size, "duration", result.Duration)
	return result, nil
}

// Rasterize renders slides to PNGs without writing a deck
func (s *Service) Rasterize(ctx context.Context, slides []entities.Slide, pixelRatio float64) ([][]byte, error) {
	if pixelRatio <= 0 {
		pixelRatio = s.cfg.PixelRatio
	}
	images := make([][]byte, 0, len(slides))
	for i, slide := range slides {
		img, _, err := s.renderWithRetry(ctx, slide, i+1, pixelRatio)
		if err != nil {
			return nil, s.categorizeError(err)
		}
		images = append(images, img)
	}
	return images, nil
}

func (s *Service) renderWithRetry(ctx context.Context, slide entities.Slide, number int, ratio float64) ([]byte, []string, error) {
	var warnings []string
	var lastErr error

	for attempt := 0; attempt <= s.cfg.Retry.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-s.clock.After(s.calculateBackoffDelay(attempt)):
			case <-ctx.Done():
				return nil, warnings, &ExportError{
					Type:    ErrorTypeTimeout,
					Message: "export cancelled during retry",
					Code:    "CANCELLED",
					Slide:   number,
					Cause:   ctx.Err(),
				}
			}
		}

		img, err := s.renderSlide(ctx, slide, ratio)
		if err == nil {
			return img, warnings, nil
		}

		exportErr := s.categorizeError(err)
		exportErr.Slide = number
		lastErr = exportErr

		if !s.isRetryableError(exportErr) || ctx.Err() != nil {
			break
		}
		warnings = append(warnings, fmt.Sprintf("slide %d attempt %d failed: %s (retrying)", number, attempt+1, exportErr.Message))
	}

	return nil, warnings, lastErr
}

// renderSlide loads one slide on a fresh page and captures it. The page is
// closed on every path, including cancellation and capture failure.
func (s *Service) renderSlide(ctx context.Context, slide entities.Slide, ratio float64) (img []byte, err error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.SlideTimeout)
	defer cancel()

	page, err := s.pages.NewPage(ctx, entities.Size{Width: entities.ReferenceWidth, Height: entities.ReferenceHeight}, ratio)
	if err != nil {
		return nil, &ExportError{
			Type:      ErrorTypeBrowser,
			Message:   "failed to open off-screen page",
			Code:      "PAGE_OPEN_FAILED",
			Retryable: true,
			Cause:     err,
		}
	}
	s.open.Add(1)
	defer s.closePage(ctx, page, slide.Index)

	if err := page.Load(ctx, slide.HTMLContent); err != nil {
		return nil, fmt.Errorf("loading slide document: %w", err)
	}

	img, err = page.Capture(ctx, s.cfg.ContentSelector)
	if err != nil {
		return nil, fmt.Errorf("capturing %s: %w", s.cfg.ContentSelector, err)
	}
	if len(img) == 0 {
		return nil, errors.New("capture returned an empty image")
	}
	return img, nil
}

// closePage detaches page on a context that outlives the render, so a
// timed out or cancelled slide still closes its tab. A page that fails to
// close stays counted in OpenPages.
func (s *Service) closePage(renderCtx context.Context, page ports.OffscreenPage, index int) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(renderCtx), pageCloseTimeout)
	defer cancel()

	if err := page.Close(ctx); err != nil {
		s.logger.Warn("off-screen page left open", "slide", index+1, "error", err)
		return
	}
	s.open.Add(-1)
}

// writeDeck writes next to the destination and renames into place so a
// failed export never leaves a truncated deck behind
func (s *Service) writeDeck(ctx context.Context, writer ports.DeckWriter, outputPath string, meta ports.DeckMeta, images [][]byte) (int64, error) {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return 0, &ExportError{
			Type:    ErrorTypeFilesystem,
			Message: "failed to create output directory",
			Details: dir,
			Code:    "MKDIR_FAILED",
			Cause:   err,
		}
	}

	tmp, err := os.CreateTemp(dir, ".slidekit-export-*")
	if err != nil {
		return 0, &ExportError{Type: ErrorTypeFilesystem, Message: "failed to create temporary file", Details: dir, Code: "TEMP_FAILED", Cause: err}
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := writer.Write(ctx, tmp, meta, images); err != nil {
		_ = tmp.Close()
		return 0, &ExportError{Type: ErrorTypeRenderer, Message: "failed to write deck", Details: string(writer.Format()), Code: "WRITE_FAILED", Cause: err}
	}
	if err := tmp.Close(); err != nil {
		return 0, &ExportError{Type: ErrorTypeFilesystem, Message: "failed to flush deck", Code: "CLOSE_FAILED", Cause: err}
	}
	if err := os.Rename(tmp.Name(), outputPath); err != nil {
		return 0, &ExportError{Type: ErrorTypeFilesystem, Message: "failed to move deck into place", Details: outputPath, Code: "RENAME_FAILED", Cause: err}
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return 0, &ExportError{Type: ErrorTypeFilesystem, Message: "failed to stat deck", Details: outputPath, Cause: err}
	}
	return info.Size(), nil
}

func (s *Service) validateOptions(presentation *entities.Presentation, options *ExportOptions) error {
	if options == nil {
		return &ExportError{Type: ErrorTypeValidation, Message: "export options cannot be nil", Code: "NULL_OPTIONS"}
	}
	if options.Format == "" {
		return &ExportError{Type: ErrorTypeValidation, Message: "export format is required", Code: "MISSING_FORMAT"}
	}
	if options.OutputPath == "" {
		return &ExportError{Type: ErrorTypeValidation, Message: "output path is required", Code: "MISSING_OUTPUT_PATH"}
	}
	if err := validateFilePath(options.OutputPath); err != nil {
		return &ExportError{Type: ErrorTypeValidation, Message: "invalid output path", Details: err.Error(), Code: "INVALID_OUTPUT_PATH"}
	}
	if options.PixelRatio < 0 || options.PixelRatio > 4 {
		return &ExportError{Type: ErrorTypeValidation, Message: "invalid pixel ratio", Details: fmt.Sprintf("%g (must be between 0 and 4)", options.PixelRatio), Code: "INVALID_PIXEL_RATIO"}
	}
	if presentation == nil || len(presentation.Slides) == 0 {
		return &ExportError{Type: ErrorTypeValidation, Message: "presentation has no slides", Code: "EMPTY_PRESENTATION"}
	}
	return nil
}

func (s *Service) calculateBackoffDelay(attempt int) time.Duration {
	delay := float64(s.cfg.Retry.InitialDelay) * math.Pow(s.cfg.Retry.BackoffFactor, float64(attempt-1))
	if s.cfg.Retry.MaxDelay > 0 && delay > float64(s.cfg.Retry.MaxDelay) {
		delay = float64(s.cfg.Retry.MaxDelay)
	}
	return time.Duration(delay)
}

func (s *Service) isRetryableError(err error) bool {
	var exportErr *ExportError
	if errors.As(err, &exportErr) {
		for _, retryableType := range s.cfg.Retry.RetryableErrors {
			if exportErr.Type == retryableType {
				return exportErr.Retryable
			}
		}
	}
	return false
}

// categorizeError maps any error onto an ExportError
func (s *Service) categorizeError(err error) *ExportError {
	var exportErr *ExportError
	if errors.As(err, &exportErr) {
		return exportErr
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &ExportError{Type: ErrorTypeTimeout, Message: "slide render timed out", Code: "TIMEOUT", Retryable: true, Cause: err}
	case errors.Is(err, context.Canceled):
		return &ExportError{Type: ErrorTypeTimeout, Message: "export cancelled", Code: "CANCELLED", Cause: err}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "browser") || strings.Contains(msg, "chrome") || strings.Contains(msg, "websocket"):
		return &ExportError{Type: ErrorTypeBrowser, Message: "browser operation failed", Details: err.Error(), Code: "BROWSER_ERROR", Retryable: true, Cause: err}
	case strings.Contains(msg, "permission denied") || strings.Contains(msg, "no such file"):
		return &ExportError{Type: ErrorTypeFilesystem, Message: "file system error", Details: err.Error(), Code: "FS_ERROR", Cause: err}
	default:
		return &ExportError{Type: ErrorTypeRenderer, Message: "slide rasterization failed", Details: err.Error(), Code: "RENDER_ERROR", Cause: err}
	}
}

// validateFilePath rejects paths that climb out of their directory
func validateFilePath(path string) error {
	if path == "" {
		return errors.New("path cannot be empty")
	}
	if strings.Contains(path, "..") {
		return errors.New("path contains directory traversal sequences")
	}
	if strings.ContainsRune(path, 0) {
		return errors.New("path contains null bytes")
	}
	return nil
}
