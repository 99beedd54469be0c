package llm

import "strings"

// splitChunks cuts text into windows of at most maxLen characters with
// overlap characters shared between consecutive windows. Cuts prefer line
// boundaries so a tabular event row is never split mid-line; the overlap means
// chunk boundaries need not align with events.
func splitChunks(text string, maxLen, overlap int) []string {
	if maxLen <= 0 || len(text) <= maxLen {
		return []string{text}
	}
	if overlap < 0 || overlap >= maxLen {
		overlap = maxLen / 10
	}

	var chunks []string
	pos := 0
	for pos < len(text) {
		end := pos + maxLen
		if end >= len(text) {
			chunks = append(chunks, text[pos:])
			break
		}
		// back up to the last newline inside the window, if reasonably close
		cut := end
		if nl := strings.LastIndexByte(text[pos:end], '\n'); nl > maxLen/2 {
			cut = pos + nl
		}
		chunks = append(chunks, text[pos:cut])

		next := cut - overlap
		if next <= pos {
			next = cut
		}
		pos = next
	}
	return chunks
}
