package ics

import (
	"errors"
	"fmt"
	"iter"
	"regexp"
	"strings"
	"time"

	appLog "roomvac/internal/log"
	"roomvac/internal/model"
)

const (
	beginEvent = "BEGIN:VEVENT"
	endEvent   = "END:VEVENT"

	propStart    = "DTSTART"
	propEnd      = "DTEND"
	propLocation = "LOCATION"
)

// Discard reasons. ParseBlock wraps exactly one of these.
var (
	ErrNoRooms       = errors.New("no room ids in location")
	ErrMissingStart  = errors.New("missing DTSTART")
	ErrInvalidStart  = errors.New("invalid DTSTART")
	ErrMissingEnd    = errors.New("missing DTEND")
	ErrInvalidEnd    = errors.New("invalid DTEND")
	ErrEmptyInterval = errors.New("DTEND not after DTSTART")
)

// RoomPattern matches room ids such as "4A32" or "4A32-01".
var RoomPattern = regexp.MustCompile(`\d[A-Z]\d\d(?:-\d\d)?`)

// ParseFeed parses a whole feed body into events, in feed order. Blocks that
// cannot produce an event are logged and skipped; parsing never fails.
func ParseFeed(src Source, body []byte, loc *time.Location) []model.Event {
	var stats DiscardStats
	events := make([]model.Event, 0)
	for ev := range scan(body, loc, &stats) {
		events = append(events, ev)
	}
	stats.log(src, len(events))
	return events
}

// Events returns a lazy one-pass sequence over the feed's valid events.
// Discarded blocks are logged as they are encountered.
func Events(body []byte, loc *time.Location) iter.Seq[model.Event] {
	return scan(body, loc, &DiscardStats{})
}

func scan(body []byte, loc *time.Location, stats *DiscardStats) iter.Seq[model.Event] {
	return func(yield func(model.Event) bool) {
		for block := range blocks(body) {
			ev, err := ParseBlock(block.lines, loc)
			if err != nil {
				stats.add(err)
				appLog.Info("ics event discarded", "reason", reasonOf(err), "line", block.line, "detail", err.Error())
				continue
			}
			if !yield(ev) {
				return
			}
		}
	}
}

// block is one VEVENT span: the lines strictly between the markers and the
// 1-based line number of its BEGIN marker.
type block struct {
	lines []string
	line  int
}

// Blocks returns every non-overlapping BEGIN:VEVENT..END:VEVENT span of the
// body, markers excluded. A span runs from a BEGIN to the first END after
// it, so a nested BEGIN:VEVENT is kept as block content. A trailing block
// without END:VEVENT is dropped.
func Blocks(body []byte) [][]string {
	out := make([][]string, 0)
	for b := range blocks(body) {
		out = append(out, b.lines)
	}
	return out
}

func blocks(body []byte) iter.Seq[block] {
	return func(yield func(block) bool) {
		var (
			cur    []string
			open   bool
			openAt int
		)
		for i, line := range strings.Split(string(body), "\n") {
			line = strings.TrimSuffix(line, "\r")
			switch {
			case line == beginEvent && !open:
				cur, open, openAt = nil, true, i+1
			case line == endEvent && open:
				if !yield(block{lines: cur, line: openAt}) {
					return
				}
				cur, open = nil, false
			case open:
				cur = append(cur, line)
			}
		}
		if open {
			appLog.Info("ics event discarded", "reason", "unterminated", "line", openAt)
		}
	}
}

// ParseBlock turns the content lines of one VEVENT into an Event. Floating
// date-times are interpreted in loc (time.Local when nil).
func ParseBlock(lines []string, loc *time.Location) (model.Event, error) {
	var (
		startRaw, endRaw string
		hasStart, hasEnd bool
		location         strings.Builder
	)

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		switch {
		case strings.HasPrefix(line, propStart):
			startRaw, hasStart = strings.TrimSpace(propValue(line)), true
		case strings.HasPrefix(line, propEnd):
			endRaw, hasEnd = strings.TrimSpace(propValue(line)), true
		case strings.HasPrefix(line, propLocation):
			// The last LOCATION in a block wins.
			location.Reset()
			location.WriteString(propValue(line))
			// RFC 5545 folding: continuation lines start with one space or tab.
			for i+1 < len(lines) && isFolded(lines[i+1]) {
				i++
				location.WriteString(lines[i][1:])
			}
		}
	}

	rooms := RoomIDs(location.String())
	if len(rooms) == 0 {
		return model.Event{}, fmt.Errorf("%w: %q", ErrNoRooms, location.String())
	}
	if !hasStart {
		return model.Event{}, ErrMissingStart
	}
	start, err := ParseDate(startRaw, loc)
	if err != nil {
		return model.Event{}, fmt.Errorf("%w: %w", ErrInvalidStart, err)
	}
	if !hasEnd {
		return model.Event{}, ErrMissingEnd
	}
	end, err := ParseDate(endRaw, loc)
	if err != nil {
		return model.Event{}, fmt.Errorf("%w: %w", ErrInvalidEnd, err)
	}
	if !start.Before(end) {
		return model.Event{}, fmt.Errorf("%w: %s >= %s", ErrEmptyInterval, startRaw, endRaw)
	}

	return model.Event{Start: start, End: end, Rooms: rooms}, nil
}

// RoomIDs extracts every room id in s, in order, without duplicates.
func RoomIDs(s string) []string {
	matches := RoomPattern.FindAllString(s, -1)
	out := make([]string, 0, len(matches))
	seen := make(map[string]bool, len(matches))
	for _, m := range matches {
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

// propValue strips the property name and parameters, i.e. everything up to
// and including the first colon.
func propValue(line string) string {
	_, v, ok := strings.Cut(line, ":")
	if !ok {
		return ""
	}
	return v
}

func isFolded(line string) bool {
	return len(line) > 0 && (line[0] == ' ' || line[0] == '\t')
}

// ParseDate decodes a fixed-width YYYYMMDDTHHMMSS[Z] token. Without the
// trailing zone marker the value is read in loc (time.Local when nil);
// with it, in UTC.
func ParseDate(token string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	if len(token) != 15 && len(token) != 16 {
		return time.Time{}, fmt.Errorf("date %q: want 15 or 16 characters, got %d", token, len(token))
	}
	if token[8] != 'T' {
		return time.Time{}, fmt.Errorf("date %q: missing T separator", token)
	}
	if len(token) == 16 {
		switch token[15] {
		case 'Z', 'z':
			loc = time.UTC
		default:
			return time.Time{}, fmt.Errorf("date %q: unknown zone marker %q", token, token[15])
		}
	}

	var fields [6]int
	offsets := [6][2]int{{0, 4}, {4, 6}, {6, 8}, {9, 11}, {11, 13}, {13, 15}}
	for i, off := range offsets {
		n, ok := digits(token[off[0]:off[1]])
		if !ok {
			return time.Time{}, fmt.Errorf("date %q: non-digit in %q", token, token[off[0]:off[1]])
		}
		fields[i] = n
	}
	year, month, day, hour, minute, second := fields[0], fields[1], fields[2], fields[3], fields[4], fields[5]

	if month < 1 || month > 12 || day < 1 || hour > 23 || minute > 59 || second > 59 {
		return time.Time{}, fmt.Errorf("date %q: field out of range", token)
	}
	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, loc)
	// time.Date normalises overflow (Feb 30 -> Mar 2); reject instead.
	if t.Day() != day || t.Month() != time.Month(month) {
		return time.Time{}, fmt.Errorf("date %q: day out of range", token)
	}
	return t, nil
}

func digits(s string) (int, bool) {
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// DiscardStats counts discarded blocks per reason for a single parse.
type DiscardStats struct {
	NoRooms       int
	MissingStart  int
	InvalidStart  int
	MissingEnd    int
	InvalidEnd    int
	EmptyInterval int
}

func (s *DiscardStats) add(err error) {
	switch {
	case errors.Is(err, ErrNoRooms):
		s.NoRooms++
	case errors.Is(err, ErrMissingStart):
		s.MissingStart++
	case errors.Is(err, ErrInvalidStart):
		s.InvalidStart++
	case errors.Is(err, ErrMissingEnd):
		s.MissingEnd++
	case errors.Is(err, ErrInvalidEnd):
		s.InvalidEnd++
	case errors.Is(err, ErrEmptyInterval):
		s.EmptyInterval++
	}
}

// Total returns the number of discarded blocks.
func (s DiscardStats) Total() int {
	return s.NoRooms + s.MissingStart + s.InvalidStart + s.MissingEnd + s.InvalidEnd + s.EmptyInterval
}

func (s DiscardStats) log(src Source, kept int) {
	appLog.Info("ics parse completed", "id", src.ID, "url", redactURL(src.URL), "event_count", kept, "discarded", s.Total())
	if s.Total() > 0 {
		appLog.Debug("ics discard breakdown",
			"no_rooms", s.NoRooms,
			"missing_start", s.MissingStart,
			"invalid_start", s.InvalidStart,
			"missing_end", s.MissingEnd,
			"invalid_end", s.InvalidEnd,
			"empty_interval", s.EmptyInterval,
		)
	}
}

func reasonOf(err error) string {
	switch {
	case errors.Is(err, ErrNoRooms):
		return "no_rooms"
	case errors.Is(err, ErrMissingStart):
		return "missing_start"
	case errors.Is(err, ErrInvalidStart):
		return "invalid_start"
	case errors.Is(err, ErrMissingEnd):
		return "missing_end"
	case errors.Is(err, ErrInvalidEnd):
		return "invalid_end"
	case errors.Is(err, ErrEmptyInterval):
		return "empty_interval"
	default:
		return "unknown"
	}
}
