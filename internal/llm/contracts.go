package llm

import "context"

// Completer is the narrow contract against the AI text-understanding service.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Config controls chunking and retry behavior of the event extractor.
type Config struct {
	// MaxChunkLen is the largest document slice (in characters) sent in a
	// single service call. Longer documents are split into overlapping
	// windows so events straddling a boundary are still seen whole.
	MaxChunkLen  int
	ChunkOverlap int
}

// rawEvent is the wire shape the service is instructed to emit per event.
type rawEvent struct {
	Event       string `json:"event"`
	Start       string `json:"start,omitempty"`
	End         string `json:"end,omitempty"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
}
