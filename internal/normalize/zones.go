package normalize

import (
	"errors"
	"fmt"
	"strings"
	"time"

	_ "time/tzdata" // embedded zone rules
)

// ErrZoneNotFound is returned by a ZoneResolver for unknown identifiers
var ErrZoneNotFound = errors.New("time zone not found")

// ZoneResolver resolves an IANA-style identifier to its zone rules
type ZoneResolver interface {
	Resolve(id string) (*time.Location, error)
}

// SystemZones resolves identifiers against the Go time zone database
type SystemZones struct{}

// Resolve implements ZoneResolver
func (SystemZones) Resolve(id string) (*time.Location, error) {
	// LoadLocation accepts "" and "UTC"/"Local"; only named zones count here
	if id == "" || id == "Local" {
		return nil, fmt.Errorf("%w: %q", ErrZoneNotFound, id)
	}
	loc, err := time.LoadLocation(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrZoneNotFound, id, err)
	}
	return loc, nil
}

// StaticZones is a fixed zone table, mostly for tests
type StaticZones map[string]*time.Location

// Resolve implements ZoneResolver
func (z StaticZones) Resolve(id string) (*time.Location, error) {
	if loc, ok := z[id]; ok && loc != nil {
		return loc, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrZoneNotFound, id)
}

// ExtractZoneID pulls the candidate identifier out of an upstream timezone
// label such as "(GMT-08:00) America/Los_Angeles". The text after the last
// space wins when it contains a '/'; otherwise the whole trimmed label is used
// when it contains one.
func ExtractZoneID(label string) (string, bool) {
	trimmed := strings.TrimSpace(label)
	if trimmed == "" {
		return "", false
	}
	if i := strings.LastIndex(trimmed, " "); i >= 0 {
		if tail := trimmed[i+1:]; strings.Contains(tail, "/") {
			return tail, true
		}
	}
	if strings.Contains(trimmed, "/") {
		return trimmed, true
	}
	return "", false
}
