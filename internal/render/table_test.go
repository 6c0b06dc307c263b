package render

import (
	"errors"
	"strings"
	"testing"
	"time"

	"roomvac/internal/grid"
)

func hoursFrom(h, n int, loc *time.Location) []time.Time {
	start := time.Date(2025, 3, 10, h, 0, 0, 0, loc)
	return grid.HoursBetween(start, start.Add(time.Duration(n)*time.Hour))
}

func TestTable(t *testing.T) {
	t.Parallel()

	hours := hoursFrom(9, 3, time.UTC)
	rooms := []string{"4A32", "4A32-01"}
	m := grid.Matrix{
		{true, false, true},
		{false, false, true},
	}

	got := Table(hours, rooms, m, nil)
	want := "" +
		"Hour    :   9 10 11\n" +
		"4A32    :   V     V\n" +
		"4A32-01 :         V\n"
	if got != want {
		t.Fatalf("table mismatch\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestTableColumnsLineUp(t *testing.T) {
	t.Parallel()

	hours := hoursFrom(7, 17, time.UTC)
	rooms := []string{"2C20", "4A32-01", "1A11"}
	m := grid.Build(rooms, hours, nil)

	lines := strings.Split(strings.TrimSuffix(Table(hours, rooms, m, nil), "\n"), "\n")
	if len(lines) != 1+len(rooms) {
		t.Fatalf("got %d lines", len(lines))
	}
	// Label + one field per hour in the header.
	if n := len(strings.Fields(lines[0])) - 1; n != 1+len(hours) {
		t.Fatalf("header has %d columns besides the colon", n)
	}
	for _, l := range lines {
		if len(l) != len(lines[0]) {
			t.Fatalf("line %q has width %d, header has %d", l, len(l), len(lines[0]))
		}
	}
	// Vacant everywhere: each room line has label + one V per hour.
	for _, l := range lines[1:] {
		if n := len(strings.Fields(l)) - 1; n != 1+len(hours) {
			t.Fatalf("room line %q has %d columns", l, n)
		}
	}
}

func TestTableUsesDisplayLocation(t *testing.T) {
	t.Parallel()

	hours := hoursFrom(6, 2, time.UTC)
	loc := time.FixedZone("CET", 3600)
	got := Table(hours, nil, nil, loc)
	if got != "Hour:   7  8\n" {
		t.Fatalf("got %q", got)
	}
}

func TestTableEmptyInputs(t *testing.T) {
	t.Parallel()

	if got := Table(nil, nil, nil, nil); got != "Hour: \n" {
		t.Fatalf("empty: got %q", got)
	}
	rooms := []string{"4A32"}
	got := Table(nil, rooms, grid.Build(rooms, nil, nil), nil)
	if got != "Hour : \n4A32 : \n" {
		t.Fatalf("no hours: got %q", got)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestWriteTablePropagatesWriteError(t *testing.T) {
	t.Parallel()

	err := WriteTable(failingWriter{}, hoursFrom(7, 1, time.UTC), []string{"4A32"}, grid.Matrix{{true}}, nil)
	if err == nil {
		t.Fatal("expected write error")
	}
}
