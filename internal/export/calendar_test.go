package export

import (
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"

	"roomvac/internal/grid"
	"roomvac/internal/ics"
	"roomvac/internal/model"
	"roomvac/internal/report"
)

func sampleReport() report.Report {
	begin := time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC)
	hours := grid.HoursBetween(begin, begin.Add(5*time.Hour))
	rooms := []string{"4A32", "3B11"}
	idx := grid.NewIndex(rooms, hours)
	m := grid.BuildIndexed(idx, []model.Event{
		{Start: begin.Add(time.Hour), End: begin.Add(3 * time.Hour), Rooms: []string{"4A32"}},
		{Start: begin, End: begin.Add(5 * time.Hour), Rooms: []string{"3B11"}},
	})
	return report.Report{
		Rooms:       rooms,
		Hours:       hours,
		Index:       idx,
		Matrix:      m,
		Location:    time.UTC,
		RangeStart:  begin,
		RangeEnd:    begin.Add(5 * time.Hour),
		GeneratedAt: begin.Add(30 * time.Minute),
	}
}

func TestCalendar(t *testing.T) {
	t.Parallel()

	out := Calendar(sampleReport())

	cal, err := ical.ParseCalendar(strings.NewReader(out))
	if err != nil {
		t.Fatalf("ParseCalendar: %v", err)
	}
	events := cal.Events()
	// 4A32 is vacant 07-08 and 10-12; 3B11 is never vacant.
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}

	start, err := events[1].GetStartAt()
	if err != nil {
		t.Fatalf("GetStartAt: %v", err)
	}
	end, err := events[1].GetEndAt()
	if err != nil {
		t.Fatalf("GetEndAt: %v", err)
	}
	if !start.Equal(time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)) || !end.Equal(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("second run = %v..%v", start, end)
	}
	if loc := events[1].GetProperty(ical.ComponentPropertyLocation); loc == nil || loc.Value != "4A32" {
		t.Fatalf("location = %+v", loc)
	}
}

func TestCalendarRoundTripsThroughParser(t *testing.T) {
	t.Parallel()

	out := Calendar(sampleReport())
	events := ics.ParseFeed(ics.Source{ID: "export"}, []byte(out), time.UTC)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	for _, ev := range events {
		if len(ev.Rooms) != 1 || ev.Rooms[0] != "4A32" {
			t.Fatalf("rooms = %v", ev.Rooms)
		}
	}
}

func TestEventUIDIsStable(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC)
	a := EventUID("4A32", at)
	b := EventUID("4A32", at.In(time.FixedZone("CET", 3600)))
	if a != b {
		t.Fatalf("UID depends on location: %s vs %s", a, b)
	}
	if a == EventUID("4A33", at) || a == EventUID("4A32", at.Add(time.Hour)) {
		t.Fatal("UID collision")
	}
	if !strings.HasSuffix(a, "@roomvac") {
		t.Fatalf("uid = %s", a)
	}
}
