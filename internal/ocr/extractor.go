package ocr

import (
	"context"
	"fmt"
	"image/jpeg"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/edgard/scribebot/internal/config"
)

const jpegQuality = 90

// Extractor turns downloaded files into text. OCR failures are reported in the
// returned text as "Error: <err>" rather than as Go errors, so callers can
// carry on with whatever they got.
type Extractor struct {
	engine  Engine
	open    Opener
	scratch *Scratch
	sem     *semaphore.Weighted
	log     *slog.Logger
}

// NewExtractor builds a Tesseract/MuPDF extractor from configuration.
func NewExtractor(cfg config.OCRConfig, log *slog.Logger) (*Extractor, error) {
	scratch, err := NewScratch(cfg.ScratchDir)
	if err != nil {
		return nil, err
	}
	return NewExtractorWith(NewTesseractEngine(cfg.Languages, cfg.TessdataPrefix), OpenPDF, scratch, cfg.Concurrency(), log), nil
}

// NewExtractorWith builds an extractor from explicit parts. maxConcurrent
// bounds how many OCR calls run at once.
func NewExtractorWith(engine Engine, open Opener, scratch *Scratch, maxConcurrent int, log *slog.Logger) *Extractor {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Extractor{
		engine:  engine,
		open:    open,
		scratch: scratch,
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		log:     log.With("component", "ocr"),
	}
}

// Scratch returns the directory downloads should be written to.
func (e *Extractor) Scratch() *Scratch { return e.scratch }

// IsPDF reports whether filename has a .pdf extension, in any case.
func IsPDF(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}

// ExtractDocument extracts text from a downloaded document, rendering it page
// by page when filename names a PDF and treating it as an image otherwise.
func (e *Extractor) ExtractDocument(ctx context.Context, path, filename string) string {
	if IsPDF(filename) {
		return e.ExtractPDF(ctx, path)
	}
	return e.ExtractImage(ctx, path)
}

// ExtractImage runs OCR on a single image file.
func (e *Extractor) ExtractImage(ctx context.Context, path string) string {
	text, err := e.recognize(ctx, path)
	if err != nil {
		e.log.WarnContext(ctx, "OCR failed", "path", path, "error", err)
		return errorText(err)
	}
	return text
}

// ExtractPDF renders each page to a temporary JPEG, runs OCR on it and deletes
// it before moving on. Page texts are joined with a blank line in page order.
func (e *Extractor) ExtractPDF(ctx context.Context, path string) string {
	doc, err := e.open(path)
	if err != nil {
		e.log.WarnContext(ctx, "Failed to open PDF", "path", path, "error", err)
		return errorText(err)
	}
	defer func() {
		if err := doc.Close(); err != nil {
			e.log.WarnContext(ctx, "Failed to close PDF", "path", path, "error", err)
		}
	}()

	pages := doc.NumPage()
	e.log.DebugContext(ctx, "Extracting PDF", "path", path, "pages", pages)

	texts := make([]string, 0, pages)
	for n := range pages {
		if ctx.Err() != nil {
			texts = append(texts, errorText(ctx.Err()))
			break
		}
		texts = append(texts, e.extractPage(ctx, doc, n))
	}

	return strings.TrimSpace(strings.Join(texts, "\n\n"))
}

func (e *Extractor) extractPage(ctx context.Context, doc Document, n int) string {
	img, err := doc.RenderPage(n)
	if err != nil {
		e.log.WarnContext(ctx, "Failed to render PDF page", "page", n+1, "error", err)
		return errorText(err)
	}

	pagePath := e.scratch.Path(fmt.Sprintf("page-%s-%d.jpg", uuid.NewString(), n+1))
	f, err := os.Create(pagePath)
	if err != nil {
		return errorText(fmt.Errorf("failed to create page image: %w", err))
	}
	defer func() {
		if err := os.Remove(pagePath); err != nil {
			e.log.WarnContext(ctx, "Failed to remove page image", "path", pagePath, "error", err)
		}
	}()

	encErr := jpeg.Encode(f, img, &jpeg.Options{Quality: jpegQuality})
	if closeErr := f.Close(); encErr == nil {
		encErr = closeErr
	}
	if encErr != nil {
		return errorText(fmt.Errorf("failed to write page image: %w", encErr))
	}

	return e.ExtractImage(ctx, pagePath)
}

func (e *Extractor) recognize(ctx context.Context, path string) (string, error) {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer e.sem.Release(1)

	return e.engine.Recognize(ctx, path)
}

func errorText(err error) string {
	return "Error: " + err.Error()
}
