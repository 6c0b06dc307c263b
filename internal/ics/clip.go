package ics

import (
	"time"

	"roomvac/internal/model"
)

// ClipToWindow keeps events whose [Start, End) interval intersects
// [begin, end). Events outside the window can never cover an hour slot, so
// dropping them early does not change the grid.
func ClipToWindow(events []model.Event, begin, end time.Time) []model.Event {
	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if timeRangesOverlap(ev.Start, ev.End, begin, end) {
			out = append(out, ev)
		}
	}
	return out
}

func timeRangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
