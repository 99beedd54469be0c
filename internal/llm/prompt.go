package llm

import "strings"

// BuildExtractionPrompt composes the fixed instruction template for one
// document chunk. The template declares the maritime domain, the exact output
// schema, and demands a machine-parseable JSON array with no surrounding prose.
func BuildExtractionPrompt(chunk string) string {
	var b strings.Builder
	b.WriteString("Extract port and vessel operational events from the maritime Statement of Facts text below.\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("1. Extract ONLY events actually present in the text; never invent data.\n")
	b.WriteString("2. Look for tabular logs (Date | Time | Event), narrative entries, and remarks.\n")
	b.WriteString("3. Convert dates to YYYY-MM-DD and times to HH:MM; combine them as \"YYYY-MM-DD HH:MM\".\n")
	b.WriteString("4. If only a date is known, use \"YYYY-MM-DD\". Omit unknown fields entirely.\n")
	b.WriteString("5. Typical events: Arrival, Departure, NOR Tendered, Pilot On Board, Berthing, ")
	b.WriteString("Anchoring, Loading Commenced, Loading Completed, Discharge Commenced, Discharge Completed, Shifting.\n\n")
	b.WriteString("Output format, a JSON array with one object per event:\n")
	b.WriteString(`[{"event": "Loading Commenced", "start": "2024-08-22 08:00", "end": "2024-08-22 17:30", "location": "Berth 4", "description": "exact source line"}]`)
	b.WriteString("\n\nReturn ONLY the JSON array, no other text.\n\n")
	b.WriteString("Document text:\n```\n")
	b.WriteString(chunk)
	b.WriteString("\n```\n")
	return b.String()
}
