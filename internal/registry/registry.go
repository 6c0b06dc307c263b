// Package registry reads the room registry: a delimited text file with a
// header row listing every room and its usage policy.
package registry

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	appLog "roomvac/internal/log"
)

const (
	DefaultIDColumn     = "Room Id"
	DefaultPolicyColumn = "Usage Policy"
	DefaultPolicy       = "unsure"
)

// Options selects the columns to read and the policy value that marks a
// room as tracked. Zero fields take the defaults above.
type Options struct {
	IDColumn     string
	PolicyColumn string
	Policy       string
	// Comma is the field delimiter; 0 means ','.
	Comma rune
}

func (o Options) withDefaults() Options {
	if o.IDColumn == "" {
		o.IDColumn = DefaultIDColumn
	}
	if o.PolicyColumn == "" {
		o.PolicyColumn = DefaultPolicyColumn
	}
	if o.Policy == "" {
		o.Policy = DefaultPolicy
	}
	if o.Comma == 0 {
		o.Comma = ','
	}
	return o
}

// Load reads the registry at path and returns the tracked room ids in file
// order.
func Load(path string, opts Options) ([]string, error) {
	if path == "" {
		return nil, errors.New("registry path is empty")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}
	defer f.Close()

	rooms, err := Read(f, opts)
	if err != nil {
		return nil, fmt.Errorf("registry %s: %w", path, err)
	}
	appLog.Info("registry loaded", "path", path, "tracked_rooms", len(rooms), "policy", opts.withDefaults().Policy)
	return rooms, nil
}

// Read parses a registry from r. Rows whose policy column equals the
// configured policy are returned in order; duplicate ids are kept once.
func Read(r io.Reader, opts Options) ([]string, error) {
	opts = opts.withDefaults()

	// Spreadsheet exports often carry a UTF-8 or UTF-16 byte order mark.
	dec := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	cr := csv.NewReader(dec)
	cr.Comma = opts.Comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idCol, policyCol := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case opts.IDColumn:
			idCol = i
		case opts.PolicyColumn:
			policyCol = i
		}
	}
	if idCol < 0 {
		return nil, fmt.Errorf("missing column %q", opts.IDColumn)
	}
	if policyCol < 0 {
		return nil, fmt.Errorf("missing column %q", opts.PolicyColumn)
	}

	rooms := make([]string, 0)
	seen := make(map[string]bool)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		line, _ := cr.FieldPos(0)

		if len(rec) <= max(idCol, policyCol) {
			appLog.Debug("registry row skipped: too few fields", "line", line, "fields", len(rec))
			continue
		}
		if strings.TrimSpace(rec[policyCol]) != opts.Policy {
			continue
		}
		id := strings.TrimSpace(rec[idCol])
		if id == "" {
			appLog.Debug("registry row skipped: empty room id", "line", line)
			continue
		}
		if seen[id] {
			appLog.Debug("registry row skipped: duplicate room id", "line", line, "room", id)
			continue
		}
		seen[id] = true
		rooms = append(rooms, id)
	}
	return rooms, nil
}
