// Package render formats a vacancy matrix as a fixed-width text table.
package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"roomvac/internal/grid"
)

const (
	hourLabel = "Hour"
	vacant    = "  V"
	occupied  = "   "
)

// Table renders the header line and one line per room. Column order follows
// hours and row order follows rooms. Clock hours are shown in loc, or in each
// slot's own location when loc is nil.
//
//	Hour    :   7  8  9
//	4A32    :   V     V
//	4A32-01 :   V  V  V
func Table(hours []time.Time, rooms []string, m grid.Matrix, loc *time.Location) string {
	var b strings.Builder
	// strings.Builder writes never fail.
	_ = WriteTable(&b, hours, rooms, m, loc)
	return b.String()
}

// WriteTable writes the table produced by Table to w.
func WriteTable(w io.Writer, hours []time.Time, rooms []string, m grid.Matrix, loc *time.Location) error {
	width := labelWidth(rooms)

	var line strings.Builder
	line.WriteString(pad(hourLabel, width))
	line.WriteString(": ")
	for _, h := range hours {
		if loc != nil {
			h = h.In(loc)
		}
		fmt.Fprintf(&line, "%3d", h.Hour())
	}
	line.WriteByte('\n')
	if _, err := io.WriteString(w, line.String()); err != nil {
		return err
	}

	for r, room := range rooms {
		line.Reset()
		line.WriteString(pad(room, width))
		line.WriteString(": ")
		for c := range hours {
			if m.Vacant(r, c) {
				line.WriteString(vacant)
			} else {
				line.WriteString(occupied)
			}
		}
		line.WriteByte('\n')
		if _, err := io.WriteString(w, line.String()); err != nil {
			return err
		}
	}
	return nil
}

// labelWidth is one more than the longest room id.
func labelWidth(rooms []string) int {
	n := 0
	for _, r := range rooms {
		n = max(n, len(r))
	}
	return n + 1
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
