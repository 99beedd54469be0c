package entity

import "time"

// Event is a single dated/located occurrence extracted from a document.
type Event struct {
	Event       string     `json:"event"`
	Start       *time.Time `json:"start,omitempty"`
	End         *time.Time `json:"end,omitempty"`
	Location    string     `json:"location,omitempty"`
	Description string     `json:"description,omitempty"`
	Severity    string     `json:"severity,omitempty"`
}

// Anchored reports whether the event carries at least one timestamp.
func (e Event) Anchored() bool {
	return e.Start != nil || e.End != nil
}
