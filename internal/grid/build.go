package grid

import (
	"time"

	"roomvac/internal/model"
)

// Matrix holds vacancy per (room row, hour column); true means vacant.
type Matrix [][]bool

// Rows returns the number of rooms.
func (m Matrix) Rows() int { return len(m) }

// Cols returns the number of hour slots.
func (m Matrix) Cols() int {
	if len(m) == 0 {
		return 0
	}
	return len(m[0])
}

// Vacant reports the cell at (room, hour).
func (m Matrix) Vacant(room, hour int) bool { return m[room][hour] }

// Build returns the |rooms| x |hours| vacancy matrix. A cell is false when
// some event lists the room and its [Start, End) interval contains the slot
// start; rooms not in the tracked list are ignored.
func Build(rooms []string, hours []time.Time, events []model.Event) Matrix {
	return BuildIndexed(NewIndex(rooms, hours), events)
}

// BuildIndexed is Build with a prebuilt Index.
func BuildIndexed(idx Index, events []model.Event) Matrix {
	rooms, hours := idx.Rooms(), idx.Hours()

	m := make(Matrix, len(rooms))
	for i := range m {
		row := make([]bool, len(hours))
		for j := range row {
			row[j] = true
		}
		m[i] = row
	}

	for _, h := range hours {
		col, ok := idx.HourPos(h)
		if !ok {
			continue
		}
		for _, ev := range events {
			if !ev.Covers(h) {
				continue
			}
			for _, r := range ev.Rooms {
				for _, row := range idx.RoomRows(r) {
					m[row][col] = false
				}
			}
		}
	}
	return m
}

// Run is a maximal stretch of consecutive vacant hour slots for one room,
// covering [Start, End).
type Run struct {
	Start time.Time
	End   time.Time
}

// VacantRuns returns, for every room row, its vacant runs in axis order.
// A run ends at the start of the next occupied slot, or one hour after the
// last slot of the axis.
func VacantRuns(m Matrix, idx Index) [][]Run {
	hours := idx.Hours()
	out := make([][]Run, m.Rows())
	for r := range m {
		runs := make([]Run, 0)
		open := -1
		for c := 0; c <= len(hours); c++ {
			vacant := c < len(hours) && m[r][c]
			switch {
			case vacant && open < 0:
				open = c
			case !vacant && open >= 0:
				end := hours[len(hours)-1].Add(time.Hour)
				if c < len(hours) {
					end = hours[c]
				}
				runs = append(runs, Run{Start: hours[open], End: end})
				open = -1
			}
		}
		out[r] = runs
	}
	return out
}
