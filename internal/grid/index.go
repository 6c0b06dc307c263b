package grid

import "time"

// Index maps between dense matrix positions and rooms / hour slots. It is
// built once per run and handed to the components that need it.
type Index struct {
	rooms     []string
	hours     []time.Time
	roomToPos map[string][]int
	hourToPos map[string]int
}

// NewIndex builds lookup tables for rooms and hours. A repeated room id keeps
// every row it appears on; a repeated hour key resolves to its first column.
func NewIndex(rooms []string, hours []time.Time) Index {
	idx := Index{
		rooms:     rooms,
		hours:     hours,
		roomToPos: make(map[string][]int, len(rooms)),
		hourToPos: make(map[string]int, len(hours)),
	}
	for i, r := range rooms {
		idx.roomToPos[r] = append(idx.roomToPos[r], i)
	}
	for i, h := range hours {
		k := HourKey(h)
		if _, dup := idx.hourToPos[k]; !dup {
			idx.hourToPos[k] = i
		}
	}
	return idx
}

// RoomPos returns the first row of room id, if tracked.
func (x Index) RoomPos(id string) (int, bool) {
	rows := x.roomToPos[id]
	if len(rows) == 0 {
		return 0, false
	}
	return rows[0], true
}

// RoomRows returns every row holding room id, in order.
func (x Index) RoomRows(id string) []int {
	return x.roomToPos[id]
}

// HourPos returns the column of hour slot h, if on the axis.
func (x Index) HourPos(h time.Time) (int, bool) {
	i, ok := x.hourToPos[HourKey(h)]
	return i, ok
}

// Room returns the room id at row i.
func (x Index) Room(i int) string { return x.rooms[i] }

// Hour returns the hour slot at column i.
func (x Index) Hour(i int) time.Time { return x.hours[i] }

func (x Index) Rooms() []string { return x.rooms }
func (x Index) Hours() []time.Time { return x.hours }
