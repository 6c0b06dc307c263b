package model

import (
	"slices"
	"time"
)

// Event is a single booking taken from one VEVENT block of the feed.
//
// Invariants established by the parser: Start is before End and Rooms is
// non-empty. Rooms keeps discovery order but is treated as a set.
type Event struct {
	Start time.Time
	End   time.Time
	Rooms []string
}

// Covers reports whether the hour slot starting at h falls inside the
// half-open interval [Start, End).
func (e Event) Covers(h time.Time) bool {
	return !h.Before(e.Start) && h.Before(e.End)
}

// HasRoom reports whether id is one of the event's rooms.
func (e Event) HasRoom(id string) bool {
	return slices.Contains(e.Rooms, id)
}
