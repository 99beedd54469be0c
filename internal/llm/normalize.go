package llm

import (
	"strings"
	"time"

	"github.com/sofintel/sof-extractor/internal/entity"
)

// timeLayouts is the ladder tried against loose date/time strings, most
// specific first.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02-Jan-2006 15:04",
	"02-Jan-2006",
	"2-Jan-2006 15:04",
	"2-Jan-2006",
	"02/01/2006 15:04",
	"02/01/2006",
	"02.01.2006 15:04",
	"02.01.2006",
	"Jan 2, 2006 15:04",
	"Jan 2, 2006",
	"2 January 2006 15:04",
	"2 January 2006",
}

// parseLooseTime coerces a loose date/time string to a UTC timestamp.
// Returns nil for placeholders and unparseable input.
func parseLooseTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if isPlaceholder(s) {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// canonicalLabels maps common phrasings to canonical event-type labels.
var canonicalLabels = map[string]string{
	"arrival":             "Arrival",
	"arrived":             "Arrival",
	"vessel arrived":      "Arrival",
	"eosp":                "Arrival",
	"departure":           "Departure",
	"departed":            "Departure",
	"sailed":              "Departure",
	"vessel sailed":       "Departure",
	"cosp":                "Departure",
	"nor tendered":        "NOR Tendered",
	"notice of readiness": "NOR Tendered",
	"nor accepted":        "NOR Accepted",
	"pilot on board":      "Pilot On Board",
	"pilot boarded":       "Pilot On Board",
	"pilot onboard":       "Pilot On Board",
	"anchored":            "Anchoring",
	"anchoring":           "Anchoring",
	"dropped anchor":      "Anchoring",
	"berthing":            "Berthing",
	"berthed":             "Berthing",
	"all fast":            "Berthing",
	"unberthing":          "Unberthing",
	"unberthed":           "Unberthing",
	"commenced loading":   "Loading Commenced",
	"loading commenced":   "Loading Commenced",
	"completed loading":   "Loading Completed",
	"loading completed":   "Loading Completed",
	"commenced discharge": "Discharge Commenced",
	"discharge commenced": "Discharge Commenced",
	"completed discharge": "Discharge Completed",
	"discharge completed": "Discharge Completed",
	"shifting":            "Shifting",
	"shifted":             "Shifting",
}

// canonicalEventLabel normalizes an event name: known synonyms map to their
// canonical label, anything else is title-cased as-is.
func canonicalEventLabel(name string) string {
	trimmed := strings.Join(strings.Fields(name), " ")
	if c, ok := canonicalLabels[strings.ToLower(trimmed)]; ok {
		return c
	}
	return titleCase(trimmed)
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		// keep short connectives lowercase, except at the start
		if i > 0 && (w == "of" || w == "at" || w == "on" || w == "to" || w == "in") {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// normalizeEvent converts a raw wire event into the domain shape. Returns
// false when the event must be dropped: empty name, start after end
// (deliberately dropped, never swapped, to avoid fabricating ordering), or no
// anchor and nothing informative.
func normalizeEvent(re rawEvent) (entity.Event, bool) {
	name := strings.TrimSpace(re.Event)
	if name == "" || isPlaceholder(name) {
		return entity.Event{}, false
	}

	ev := entity.Event{
		Event: canonicalEventLabel(name),
		Start: parseLooseTime(re.Start),
		End:   parseLooseTime(re.End),
	}
	if !isPlaceholder(re.Location) {
		ev.Location = strings.TrimSpace(re.Location)
	}
	if !isPlaceholder(re.Description) {
		ev.Description = strings.TrimSpace(re.Description)
	}

	if ev.Start != nil && ev.End != nil && ev.Start.After(*ev.End) {
		return entity.Event{}, false
	}
	if !ev.Anchored() && ev.Location == "" && ev.Description == "" {
		return entity.Event{}, false
	}
	return ev, true
}

// dedupeEvents removes duplicates that overlapping chunks produce. Key is the
// canonical name plus start timestamp; the first occurrence wins.
func dedupeEvents(events []entity.Event) []entity.Event {
	seen := make(map[string]struct{}, len(events))
	out := events[:0]
	for _, ev := range events {
		key := strings.ToLower(ev.Event) + "|"
		if ev.Start != nil {
			key += ev.Start.Format(time.RFC3339)
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, ev)
	}
	return out
}

// linkPairedEvents folds a "... Commenced" event with no end time into a
// spanning event when a matching "... Completed" follows. The completed row
// is consumed.
func linkPairedEvents(events []entity.Event) []entity.Event {
	consumed := make(map[int]bool, len(events))
	out := make([]entity.Event, 0, len(events))

	for i, ev := range events {
		if consumed[i] {
			continue
		}
		lower := strings.ToLower(ev.Event)
		if ev.End == nil && strings.HasSuffix(lower, "commenced") {
			subject := strings.TrimSuffix(lower, "commenced")
			for j := i + 1; j < len(events); j++ {
				if consumed[j] {
					continue
				}
				otherLower := strings.ToLower(events[j].Event)
				if strings.HasSuffix(otherLower, "completed") &&
					strings.TrimSuffix(otherLower, "completed") == subject {
					end := events[j].Start
					if end == nil {
						end = events[j].End
					}
					if end != nil && (ev.Start == nil || !ev.Start.After(*end)) {
						ev.End = end
						consumed[j] = true
					}
					break
				}
			}
		}
		out = append(out, ev)
	}
	return out
}
