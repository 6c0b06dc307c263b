// Package grid derives the hourly room vacancy matrix from parsed events.
package grid

import (
	"errors"
	"time"
)

// Window returns the scan window [today at startHour, today at endHour) in
// now's location. endHour 24 means midnight at the start of tomorrow.
func Window(now time.Time, startHour, endHour int) (time.Time, time.Time, error) {
	if startHour < 0 || endHour > 24 || startHour >= endHour {
		return time.Time{}, time.Time{}, errors.New("grid: window hours must satisfy 0 <= start < end <= 24")
	}
	y, m, d := now.Date()
	loc := now.Location()
	begin := time.Date(y, m, d, startHour, 0, 0, 0, loc)
	end := time.Date(y, m, d, endHour, 0, 0, 0, loc)
	return begin, end, nil
}

// HoursBetween returns the hour slots in [begin, end), stepping exactly one
// hour from begin.
func HoursBetween(begin, end time.Time) []time.Time {
	hours := make([]time.Time, 0)
	for h := begin; h.Before(end); h = h.Add(time.Hour) {
		hours = append(hours, h)
	}
	return hours
}

// HourKey is the canonical lookup key of an hour slot. Instants that are
// equal on the UTC clock share a key regardless of their Location.
func HourKey(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
