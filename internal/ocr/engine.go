// Package ocr extracts text from images and PDF documents with Tesseract.
// PDF pages are rendered to temporary JPEG files first; every temporary file
// is removed before the extraction call returns.
package ocr

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/otiai10/gosseract/v2"
)

// Engine recognizes the text in an image file.
type Engine interface {
	Recognize(ctx context.Context, imagePath string) (string, error)
}

// Document is an opened multi-page document that can render its pages.
type Document interface {
	NumPage() int
	RenderPage(n int) (image.Image, error)
	Close() error
}

// Opener opens a document for page rendering.
type Opener func(path string) (Document, error)

// TesseractEngine runs Tesseract through gosseract. A client is created per
// call because gosseract clients are not safe for concurrent use.
type TesseractEngine struct {
	languages      []string
	tessdataPrefix string
}

// NewTesseractEngine returns an engine for the given languages (e.g. "eng").
func NewTesseractEngine(languages []string, tessdataPrefix string) *TesseractEngine {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &TesseractEngine{languages: languages, tessdataPrefix: tessdataPrefix}
}

// Recognize returns the text Tesseract finds in the image at imagePath.
func (t *TesseractEngine) Recognize(ctx context.Context, imagePath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if t.tessdataPrefix != "" {
		if err := client.SetTessdataPrefix(t.tessdataPrefix); err != nil {
			return "", fmt.Errorf("failed to set tessdata prefix: %w", err)
		}
	}
	if err := client.SetLanguage(t.languages...); err != nil {
		return "", fmt.Errorf("failed to set OCR languages: %w", err)
	}
	if err := client.SetImage(imagePath); err != nil {
		return "", fmt.Errorf("failed to load image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract failed: %w", err)
	}
	return strings.TrimSpace(text), nil
}

type fitzDocument struct {
	doc *fitz.Document
}

// OpenPDF opens a PDF with MuPDF (go-fitz).
//
//nolint:ireturn // Opener contract
func OpenPDF(path string) (Document, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	return &fitzDocument{doc: doc}, nil
}

func (d *fitzDocument) NumPage() int { return d.doc.NumPage() }

//nolint:ireturn
func (d *fitzDocument) RenderPage(n int) (image.Image, error) {
	img, err := d.doc.Image(n)
	if err != nil {
		return nil, fmt.Errorf("failed to render page %d: %w", n+1, err)
	}
	return img, nil
}

func (d *fitzDocument) Close() error { return d.doc.Close() }
