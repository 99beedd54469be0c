package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sofintel/sof-extractor/internal/common"
)

// stubCompleter replays canned responses and records the prompts it saw.
type stubCompleter struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (s *stubCompleter) Complete(_ context.Context, prompt string) (string, error) {
	i := s.calls
	s.calls++
	s.prompts = append(s.prompts, prompt)
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	var resp string
	if i < len(s.responses) {
		resp = s.responses[i]
	}
	return resp, err
}

func TestExtractEventsSingleChunk(t *testing.T) {
	stub := &stubCompleter{responses: []string{
		`[{"event":"Arrived","start":"2024-08-22 06:00","location":"Port of Rotterdam"},
		  {"event":"NOR Tendered","start":"2024-08-22 06:30"}]`,
	}}
	x := NewEventExtractor(stub, Config{}, nil)

	events, err := x.ExtractEvents(context.Background(), "vessel arrived 2024-08-22 06:00")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Arrival", events[0].Event)
	assert.Equal(t, "Port of Rotterdam", events[0].Location)
	require.NotNil(t, events[1].Start)
	assert.Equal(t, "2024-08-22T06:30:00Z", events[1].Start.Format(time.RFC3339))
}

func TestExtractEventsRetriesOnceThenSucceeds(t *testing.T) {
	stub := &stubCompleter{
		errs:      []error{errors.New("temporary"), nil},
		responses: []string{"", `[{"event":"Departure","start":"2024-08-24 04:00"}]`},
	}
	x := NewEventExtractor(stub, Config{}, nil)

	events, err := x.ExtractEvents(context.Background(), "sailed 2024-08-24")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 2, stub.calls)
}

func TestExtractEventsAllChunksFailed(t *testing.T) {
	stub := &stubCompleter{
		errs: []error{errors.New("boom"), errors.New("boom"), errors.New("boom"), errors.New("boom")},
	}
	x := NewEventExtractor(stub, Config{}, nil)

	_, err := x.ExtractEvents(context.Background(), "vessel arrived 06:00")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrExtractionService)
}

func TestExtractEventsPartialChunkFailureIsAbsorbed(t *testing.T) {
	var doc strings.Builder
	for i := 0; i < 60; i++ {
		doc.WriteString("2024-08-22 06:00 arrival at pilot station with remarks padding text\n")
	}
	stub := &stubCompleter{
		responses: []string{
			`[{"event":"Arrival","start":"2024-08-22 06:00"}]`,
			`this response has no array in it`,
			`[{"event":"Departure","start":"2024-08-24 04:00"}]`,
		},
	}
	x := NewEventExtractor(stub, Config{MaxChunkLen: 2000, ChunkOverlap: 200}, nil)

	events, err := x.ExtractEvents(context.Background(), doc.String())
	require.NoError(t, err)
	require.Len(t, events, 2)
}

func TestExtractEventsDedupesAcrossChunks(t *testing.T) {
	var doc strings.Builder
	for i := 0; i < 60; i++ {
		doc.WriteString("2024-08-22 06:00 arrival at pilot station with remarks padding text\n")
	}
	same := `[{"event":"Arrival","start":"2024-08-22 06:00"}]`
	stub := &stubCompleter{responses: []string{same, same, same}}
	x := NewEventExtractor(stub, Config{MaxChunkLen: 2000, ChunkOverlap: 200}, nil)

	events, err := x.ExtractEvents(context.Background(), doc.String())
	require.NoError(t, err)
	assert.Len(t, events, 1, "overlap duplicates must collapse")
}

func TestExtractEventsRejectsResponseFailingSchema(t *testing.T) {
	// elements missing the required "event" property fail validation, and with
	// one chunk that means the extraction fails
	bad := `[{"start":"2024-08-22 06:00"}]`
	stub := &stubCompleter{responses: []string{bad, bad}}
	x := NewEventExtractor(stub, Config{}, nil)

	_, err := x.ExtractEvents(context.Background(), "vessel arrived 06:00")
	assert.ErrorIs(t, err, common.ErrExtractionService)
}

func TestExtractEventsPromptCarriesDocumentText(t *testing.T) {
	stub := &stubCompleter{responses: []string{`[]`}}
	x := NewEventExtractor(stub, Config{}, nil)

	_, err := x.ExtractEvents(context.Background(), "MV EXAMPLE arrived 2024-08-22 06:00")
	require.NoError(t, err)
	require.Len(t, stub.prompts, 1)
	assert.Contains(t, stub.prompts[0], "MV EXAMPLE arrived")
}
