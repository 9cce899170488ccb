// Package timezone converts between absolute instants and local civil time
// for IANA zone names. All functions are pure; the zone database is the one
// compiled into the Go runtime (plus the host tzdata, if present).
package timezone

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidTimeZone = errors.New("unrecognized time zone")

const displayLayout = "Mon 02 Jan 2006, 03:04 PM"

// Validate reports whether name resolves to a known IANA zone.
func Validate(name string) error {
	_, err := load(name)
	return err
}

// ToLocal converts an absolute instant to the wall-clock time observed in
// the named zone at that instant, DST rules included.
func ToLocal(t time.Time, zone string) (time.Time, error) {
	loc, err := load(zone)
	if err != nil {
		return time.Time{}, err
	}
	return t.In(loc), nil
}

// ToAbsolute reinterprets the wall-clock reading of local as a civil time in
// the named zone and returns the corresponding instant. During a DST fold,
// where one civil time maps to two instants, the result is the single
// deterministic mapping chosen by time.Date for that zone.
func ToAbsolute(local time.Time, zone string) (time.Time, error) {
	loc, err := load(zone)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(
		local.Year(), local.Month(), local.Day(),
		local.Hour(), local.Minute(), local.Second(), local.Nanosecond(),
		loc,
	), nil
}

// FormatLocal renders an instant in the named zone for display, e.g.
// "Wed 10 Jan 2024, 09:00 AM".
func FormatLocal(t time.Time, zone string) (string, error) {
	local, err := ToLocal(t, zone)
	if err != nil {
		return "", err
	}
	return local.Format(displayLayout), nil
}

func load(name string) (*time.Location, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty zone name", ErrInvalidTimeZone)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimeZone, name)
	}
	return loc, nil
}
