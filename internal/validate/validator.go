package validate

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/sofintel/sof-extractor/internal/entity"
)

// Config carries the plausibility thresholds. They are heuristic knobs, not
// load-bearing logic; tests assert the behavioral contract only.
type Config struct {
	MinTextLength int
	Keywords      []string
}

// defaultKeywords is the maritime vocabulary checked against incoming text.
var defaultKeywords = []string{
	"vessel", "ship", "maritime", "nautical", "port", "harbor", "harbour",
	"berth", "anchorage", "anchor", "mooring", "pilot", "tug", "cargo",
	"arrival", "departure", "loading", "discharge", "berthing", "unberthing",
	"terminal", "wharf", "laytime", "statement of facts", "sof", "crew",
	"captain", "marine",
}

var (
	// calendar dates in common layouts: 2024-08-22, 22/08/2024, 22-Aug-2024, Aug 22
	reDateToken = regexp.MustCompile(`(?i)\b(\d{4}-\d{2}-\d{2}|\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4}|\d{1,2}[ -](jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*([ -]\d{2,4})?|(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]* \d{1,2})\b`)
	// clock times: 08:00, 1430 hrs, 08:00:30
	reTimeToken = regexp.MustCompile(`(?i)\b(\d{1,2}:\d{2}(:\d{2})?|\d{4}\s*(hrs|hours|lt|utc))\b`)
)

// Validator is the deterministic gate that keeps unsuitable documents away
// from the AI extraction service. It never calls that service itself.
type Validator struct {
	cfg    Config
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MinTextLength <= 0 {
		cfg.MinTextLength = 10
	}
	if len(cfg.Keywords) == 0 {
		cfg.Keywords = defaultKeywords
	}
	return &Validator{cfg: cfg, logger: logger}
}

// Validate returns nil when the text plausibly is a Statement of Facts, or a
// warning explaining which signal is missing.
func (v *Validator) Validate(text string) *entity.ValidationWarning {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < v.cfg.MinTextLength {
		v.logger.Info("validate.rejected", "reason", "too_short", "text_len", len(trimmed))
		return &entity.ValidationWarning{
			Description: "No readable text was found in the document.",
			Suggestion:  "Upload a text-based PDF or DOCX, or a clearer scan of the Statement of Facts.",
		}
	}

	lower := strings.ToLower(trimmed)
	keywordHits := 0
	for _, kw := range v.cfg.Keywords {
		if strings.Contains(lower, kw) {
			keywordHits++
		}
	}
	if keywordHits == 0 {
		v.logger.Info("validate.rejected", "reason", "no_maritime_vocabulary", "text_len", len(trimmed))
		return &entity.ValidationWarning{
			Description: "The document does not contain maritime vocabulary (vessel, port, berth, pilot, anchorage, ...).",
			Suggestion:  "Upload a proper Statement of Facts or maritime operational report.",
		}
	}

	if !reDateToken.MatchString(trimmed) && !reTimeToken.MatchString(trimmed) {
		v.logger.Info("validate.rejected", "reason", "no_timestamps", "keyword_hits", keywordHits)
		return &entity.ValidationWarning{
			Description: "No timestamps detected: the document has no date-like or time-like entries.",
			Suggestion:  "Upload a document containing maritime events with proper timestamps.",
		}
	}

	v.logger.Debug("validate.ok", "keyword_hits", keywordHits, "text_len", len(trimmed))
	return nil
}
