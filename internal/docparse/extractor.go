package docparse

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sofintel/sof-extractor/constants"
	"github.com/sofintel/sof-extractor/internal/common"
	"github.com/sofintel/sof-extractor/internal/entity"
)

// OCR is the fallback used when a document has no usable text layer.
type OCR interface {
	RecognizePDF(ctx context.Context, data []byte) (text string, pages int, err error)
	RecognizeImage(ctx context.Context, data []byte, ext string) (string, error)
}

type Config struct {
	// MinCharsPerPage: a PDF averaging fewer extracted characters per page
	// than this is treated as scanned and sent to OCR.
	MinCharsPerPage int
	// MinTextLength: final text shorter than this is marked low-confidence.
	MinTextLength int
}

// Extractor picks a text-extraction strategy per document format and reports
// how the text was obtained. It never errors on poor content; the validator
// decides disposition of low-confidence text.
type Extractor struct {
	cfg    Config
	ocr    OCR
	logger *slog.Logger
}

func NewExtractor(cfg Config, ocr OCR, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MinCharsPerPage <= 0 {
		cfg.MinCharsPerPage = 50
	}
	if cfg.MinTextLength <= 0 {
		cfg.MinTextLength = 10
	}
	return &Extractor{cfg: cfg, ocr: ocr, logger: logger}
}

// Extract produces plain text plus a quality signal for the given document.
func (e *Extractor) Extract(ctx context.Context, data []byte, declaredFormat string) (entity.ExtractionResult, error) {
	start := time.Now()
	format := constants.MapExtToFormat(declaredFormat)

	var res entity.ExtractionResult
	var err error
	switch format {
	case constants.PDF:
		res, err = e.extractPDF(ctx, data)
	case constants.DOCX:
		res, err = e.extractDOCX(data)
	case constants.IMAGE:
		res, err = e.extractImage(ctx, data, constants.NormalizeExt(declaredFormat))
	default:
		return entity.ExtractionResult{}, fmt.Errorf("%w: %q", common.ErrUnsupportedFormat, declaredFormat)
	}
	if err != nil {
		return entity.ExtractionResult{}, err
	}

	if len(strings.TrimSpace(res.Text)) < e.cfg.MinTextLength {
		res.Quality = entity.QualityLowConfidence
	}
	e.logger.Info("docparse.extract.ok",
		"format", format,
		"quality", res.Quality,
		"pages", res.Pages,
		"text_len", len(res.Text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (e *Extractor) extractPDF(ctx context.Context, data []byte) (entity.ExtractionResult, error) {
	text, pages, err := pdfText(data)
	if err != nil {
		e.logger.Warn("docparse.pdf.native_failed", "error", err)
		text, pages = "", 0
	}

	charsPerPage := 0
	if pages > 0 {
		charsPerPage = len(text) / pages
	}
	if charsPerPage >= e.cfg.MinCharsPerPage {
		return entity.ExtractionResult{Text: text, Quality: entity.QualityNative, Pages: pages}, nil
	}

	// Likely scanned or image-only: rasterize and OCR the whole document.
	e.logger.Info("docparse.pdf.ocr_fallback", "pages", pages, "chars_per_page", charsPerPage)
	ocrText, ocrPages, err := e.ocr.RecognizePDF(ctx, data)
	if err != nil {
		// No usable text layer and no OCR either. Hand whatever the text
		// layer gave us onward; the validator decides disposition.
		e.logger.Warn("docparse.pdf.ocr_failed", "error", err)
		return entity.ExtractionResult{Text: text, Quality: entity.QualityLowConfidence, Pages: pages}, nil
	}
	return entity.ExtractionResult{Text: ocrText, Quality: entity.QualityOCR, Pages: ocrPages}, nil
}

func (e *Extractor) extractDOCX(data []byte) (entity.ExtractionResult, error) {
	text, err := docxText(data)
	if err != nil {
		return entity.ExtractionResult{}, fmt.Errorf("docx extract: %w", err)
	}
	return entity.ExtractionResult{Text: text, Quality: entity.QualityNative, Pages: 1}, nil
}

func (e *Extractor) extractImage(ctx context.Context, data []byte, ext string) (entity.ExtractionResult, error) {
	text, err := e.ocr.RecognizeImage(ctx, data, ext)
	if err != nil {
		return entity.ExtractionResult{}, fmt.Errorf("image ocr: %w", err)
	}
	return entity.ExtractionResult{Text: text, Quality: entity.QualityOCR, Pages: 1}, nil
}
