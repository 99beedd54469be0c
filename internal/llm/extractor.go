package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/sofintel/sof-extractor/internal/common"
	"github.com/sofintel/sof-extractor/internal/entity"
)

// EventExtractor turns free document text into structured maritime events by
// fanning chunks out to the AI service and merging the parsed responses.
type EventExtractor struct {
	completer Completer
	cfg       Config
	logger    *slog.Logger
}

func NewEventExtractor(completer Completer, cfg Config, logger *slog.Logger) *EventExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxChunkLen <= 0 {
		cfg.MaxChunkLen = 12000
	}
	if cfg.ChunkOverlap <= 0 {
		cfg.ChunkOverlap = 500
	}
	return &EventExtractor{completer: completer, cfg: cfg, logger: logger}
}

// ExtractEvents sends the text (chunked with overlap when long) to the
// service. A chunk that fails transport or parsing after one retry
// contributes zero events; if every chunk fails the whole extraction fails
// with common.ErrExtractionService.
func (x *EventExtractor) ExtractEvents(ctx context.Context, text string) ([]entity.Event, error) {
	start := time.Now()
	chunks := splitChunks(text, x.cfg.MaxChunkLen, x.cfg.ChunkOverlap)
	schema := BuildEventArraySchema()

	var events []entity.Event
	failed := 0
	for i, chunk := range chunks {
		chunkEvents, err := x.extractChunk(ctx, schema, chunk)
		if err != nil {
			x.logger.Warn("llm.extract.chunk_failed", "chunk", i, "chunks", len(chunks), "error", err)
			failed++
			continue
		}
		events = append(events, chunkEvents...)
	}
	if failed == len(chunks) {
		x.logger.Error("llm.extract.all_chunks_failed", "chunks", len(chunks))
		return nil, common.ErrExtractionService
	}

	events = linkPairedEvents(events)
	events = dedupeEvents(events)

	x.logger.Info("llm.extract.ok",
		"chunks", len(chunks),
		"chunks_failed", failed,
		"events", len(events),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return events, nil
}

// extractChunk performs one service call with a single retry, then parses,
// validates, and normalizes the response.
func (x *EventExtractor) extractChunk(ctx context.Context, schema map[string]any, chunk string) ([]entity.Event, error) {
	prompt := BuildExtractionPrompt(chunk)

	content, err := x.completer.Complete(ctx, prompt)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		x.logger.Warn("llm.extract.retrying", "error", err)
		if content, err = x.completer.Complete(ctx, prompt); err != nil {
			return nil, fmt.Errorf("completion failed after retry: %w", err)
		}
	}

	raw, err := ExtractJSONArray(content)
	if err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if err := ValidateJSONAgainstSchema(schema, raw); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	var rawEvents []rawEvent
	if err := json.Unmarshal(raw, &rawEvents); err != nil {
		return nil, fmt.Errorf("unmarshal events: %w", err)
	}

	events := make([]entity.Event, 0, len(rawEvents))
	dropped := 0
	for _, re := range rawEvents {
		ev, ok := normalizeEvent(re)
		if !ok {
			dropped++
			continue
		}
		events = append(events, ev)
	}
	if dropped > 0 {
		x.logger.Debug("llm.extract.events_dropped", "dropped", dropped, "kept", len(events))
	}
	return events, nil
}
