// Package export publishes vacancy as an iCalendar feed: one event per
// contiguous vacant stretch of a room.
package export

import (
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"roomvac/internal/grid"
	"roomvac/internal/report"
)

const productID = "-//roomvac//vacancy//EN"

// uidNamespace scopes the name-based UIDs of exported events.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:roomvac:vacancy"))

// Calendar serializes the vacant runs of r. UIDs are derived from room and
// start time, so re-exporting the same report yields identical UIDs.
func Calendar(r report.Report) string {
	cal := ical.NewCalendar()
	cal.SetProductId(productID)
	cal.SetMethod(ical.MethodPublish)
	cal.SetName("Vacant rooms")
	if r.Location != nil && r.Location != time.Local {
		cal.SetTimezoneId(r.Location.String())
	}

	runs := grid.VacantRuns(r.Matrix, r.Index)
	for i, room := range r.Rooms {
		for _, run := range runs[i] {
			ev := cal.AddEvent(EventUID(room, run.Start))
			ev.SetDtStampTime(r.GeneratedAt.UTC())
			ev.SetStartAt(run.Start.UTC())
			ev.SetEndAt(run.End.UTC())
			ev.SetSummary(room + " vacant")
			ev.SetLocation(room)
			ev.SetProperty(ical.ComponentPropertyTransp, "TRANSPARENT")
		}
	}
	return cal.Serialize()
}

// EventUID returns the stable UID of a vacant run.
func EventUID(room string, start time.Time) string {
	name := room + "|" + start.UTC().Format(time.RFC3339)
	return uuid.NewSHA1(uidNamespace, []byte(name)).String() + "@roomvac"
}
