// Package pipeline sequences document processing: text extraction, then
// deterministic validation, then model-backed event extraction.
package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/sofintel/sof-extractor/constants"
	"github.com/sofintel/sof-extractor/internal/entity"
)

// TextExtractor produces document text and a quality signal from raw bytes.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, declaredExt string) (entity.ExtractionResult, error)
}

// Validator inspects extracted text before any model call. A non-nil warning
// stops the pipeline without treating the job as failed.
type Validator interface {
	Validate(text string) *entity.ValidationWarning
}

// EventExtractor turns document text into structured events.
type EventExtractor interface {
	ExtractEvents(ctx context.Context, text string) ([]entity.Event, error)
}

type Processor struct {
	extractor TextExtractor
	validator Validator
	events    EventExtractor
	logger    *slog.Logger
}

func NewProcessor(extractor TextExtractor, validator Validator, events EventExtractor, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{extractor: extractor, validator: validator, events: events, logger: logger}
}

// Process runs the full pipeline for one document. Exactly one of the three
// outcomes holds: events (possibly empty) with nil warning, a validation
// warning with no events, or an error.
func (p *Processor) Process(ctx context.Context, data []byte, filename string) ([]entity.Event, *entity.ValidationWarning, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(filename))

	res, err := p.extractor.Extract(ctx, data, ext)
	if err != nil {
		return nil, nil, err
	}
	p.logger.Info("pipeline.extracted",
		"quality", res.Quality,
		"pages", res.Pages,
		"chars", len(res.Text),
	)

	if warning := p.validator.Validate(res.Text); warning != nil {
		p.logger.Info("pipeline.validation_warning", "description", warning.Description)
		return nil, warning, nil
	}

	events, err := p.events.ExtractEvents(ctx, res.Text)
	if err != nil {
		return nil, nil, err
	}

	p.logger.Info("pipeline.done",
		"events", len(events),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return events, nil, nil
}
