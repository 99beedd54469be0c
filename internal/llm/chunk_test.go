package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitChunksShortTextIsSingleChunk(t *testing.T) {
	chunks := splitChunks("short document", 1000, 100)
	require.Len(t, chunks, 1)
	assert.Equal(t, "short document", chunks[0])
}

func TestSplitChunksCoverEntireText(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 200; i++ {
		b.WriteString("2024-08-22 06:00 event line with some detail text\n")
	}
	text := b.String()

	chunks := splitChunks(text, 1000, 100)
	require.Greater(t, len(chunks), 1)

	for i, c := range chunks {
		assert.LessOrEqual(t, len(c), 1000, "chunk %d", i)
	}
	// last chunk reaches the end of the document
	assert.True(t, strings.HasSuffix(text, chunks[len(chunks)-1]))
}

func TestSplitChunksOverlap(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 100; i++ {
		b.WriteString("line of tabular statement content goes here padding\n")
	}
	chunks := splitChunks(b.String(), 1000, 200)
	require.Greater(t, len(chunks), 1)

	// the tail of each chunk reappears at the head of the next
	for i := 0; i < len(chunks)-1; i++ {
		tail := chunks[i][len(chunks[i])-50:]
		assert.Contains(t, chunks[i+1], tail, "chunks %d and %d", i, i+1)
	}
}

func TestSplitChunksPreferLineBoundaries(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 100; i++ {
		b.WriteString("event row follows a fixed width so cuts land mid line\n")
	}
	const line = "event row follows a fixed width so cuts land mid line"
	chunks := splitChunks(b.String(), 1000, 100)
	require.Greater(t, len(chunks), 1)

	// every non-final chunk ends with a whole row, never a truncated one
	for i, c := range chunks[:len(chunks)-1] {
		lastLine := c[strings.LastIndexByte(c, '\n')+1:]
		assert.Equal(t, line, lastLine, "chunk %d should end on a line boundary", i)
	}
}
