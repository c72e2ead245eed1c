package document

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/document-sorter/internal/core/domain"
	"github.com/kirillkom/document-sorter/internal/core/ports"
)

const (
	MethodPDFText  = "pdf_text"
	MethodPDFOCR   = "pdf_ocr"
	MethodImageOCR = "image_ocr"
)

type Options struct {
	// PDFOCRFallback sends PDFs without a text layer to the OCR backend.
	PDFOCRFallback   bool
	ImageMaxWidth    int
	ImageJPEGQuality int
}

// Extractor produces best-effort text for PDFs and images.
type Extractor struct {
	ocr    ports.OCRBackend
	opts   Options
	logger *slog.Logger
}

func NewExtractor(ocr ports.OCRBackend, opts Options, logger *slog.Logger) *Extractor {
	if opts.ImageJPEGQuality <= 0 || opts.ImageJPEGQuality > 100 {
		opts.ImageJPEGQuality = 85
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{ocr: ocr, opts: opts, logger: logger}
}

func (e *Extractor) Extract(ctx context.Context, data []byte, kind domain.FileKind, ext string) (domain.Extraction, error) {
	started := time.Now()

	var (
		extraction domain.Extraction
		err        error
	)
	switch kind {
	case domain.KindPDF:
		extraction, err = e.extractPDF(ctx, data)
	case domain.KindImage:
		extraction, err = e.extractImage(ctx, data, ext)
	default:
		err = domain.WrapError(domain.ErrUnsupportedInput, "extract text", fmt.Errorf("kind %q", kind))
	}

	extraction.Kind = kind
	extraction.Duration = time.Since(started)
	if err != nil {
		extraction.Status = domain.ExtractionFailed
		extraction.Error = err.Error()
		return extraction, err
	}
	extraction.Status = domain.ExtractionOK
	return extraction, nil
}

func (e *Extractor) extractPDF(ctx context.Context, data []byte) (domain.Extraction, error) {
	text, pages, err := readPDFText(data)
	extraction := domain.Extraction{Method: MethodPDFText, Pages: pages}
	if err != nil {
		return extraction, domain.WrapError(domain.ErrInvalidInput, "read pdf", err)
	}
	if text != "" {
		extraction.Text = text
		return extraction, nil
	}

	if !e.opts.PDFOCRFallback || e.ocr == nil {
		extraction.Warnings = append(extraction.Warnings, "pdf has no text layer")
		return extraction, nil
	}

	scanned, scanErr := hasImageStreams(data)
	if scanErr != nil {
		extraction.Warnings = append(extraction.Warnings, "image detection failed: "+scanErr.Error())
	} else if !scanned {
		extraction.Warnings = append(extraction.Warnings, "pdf has no text layer and no images")
		return extraction, nil
	}

	extraction.Method = MethodPDFOCR
	ocrText, err := e.ocr.DetectDocumentText(ctx, data, "application/pdf")
	if err != nil {
		// The text layer read succeeded, so a failed fallback only means no text.
		e.logger.Warn("pdf_ocr_fallback_failed", "error", err.Error())
		extraction.Warnings = append(extraction.Warnings, "ocr fallback failed: "+err.Error())
		return extraction, nil
	}
	extraction.Text = strings.TrimSpace(ocrText)
	return extraction, nil
}

func (e *Extractor) extractImage(ctx context.Context, data []byte, ext string) (domain.Extraction, error) {
	extraction := domain.Extraction{Method: MethodImageOCR}
	if e.ocr == nil {
		return extraction, domain.WrapError(domain.ErrBackendUnavailable, "image ocr", errors.New("ocr backend is not configured"))
	}

	payload, mimeType := data, domain.ImageMimeType(ext)
	prepared, resized, err := prepareImage(data, e.opts.ImageMaxWidth, e.opts.ImageJPEGQuality)
	switch {
	case errors.Is(err, errImageTooLarge):
		return extraction, domain.WrapError(domain.ErrInvalidInput, "image ocr", err)
	case err != nil:
		extraction.Warnings = append(extraction.Warnings, "image preprocessing skipped: "+err.Error())
	case resized:
		payload, mimeType = prepared, "image/jpeg"
	}

	text, err := e.ocr.DetectDocumentText(ctx, payload, mimeType)
	if err != nil {
		if domain.IsKind(err, domain.ErrRecognition) {
			extraction.Warnings = append(extraction.Warnings, err.Error())
			return extraction, nil
		}
		return extraction, fmt.Errorf("image ocr: %w", err)
	}
	extraction.Text = strings.TrimSpace(text)
	return extraction, nil
}
