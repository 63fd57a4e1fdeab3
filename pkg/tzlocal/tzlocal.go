// Package tzlocal converts absolute instants into a timezone's local
// wall clock. ALL times in the codebase are carried in UTC; conversion
// to local time happens here, for display and window membership only.
//
// Zone resolution goes through Go's tzdata, so DST and historical
// offset rules apply. Resolved locations are cached; an identifier the
// zone database cannot resolve is a hard error, never a silent
// fallback, since a wrong offset would corrupt viability scoring
// without any visible symptom.
package tzlocal

import (
	"errors"
	"fmt"
	"time"

	"github.com/maypok86/otter/v2"
)

// ErrUnknownTimezone indicates an identifier the zone database cannot
// resolve. Use errors.Is to detect it through wrapping.
var ErrUnknownTimezone = errors.New("unknown timezone")

// locations caches resolved *time.Location by IANA identifier.
// time.LoadLocation re-reads tzdata on every call, and the grid
// localizes the same handful of zones 24 times per render.
var locations = otter.Must(&otter.Options[string, *time.Location]{
	MaximumSize:     1_000,
	InitialCapacity: 64,
})

func location(tzID string) (*time.Location, error) {
	// LoadLocation maps "" to UTC; here an empty identifier is always a
	// caller bug and must not score as UTC.
	if tzID == "" {
		return nil, fmt.Errorf("%w: empty identifier", ErrUnknownTimezone)
	}
	if loc, ok := locations.GetIfPresent(tzID); ok {
		return loc, nil
	}
	loc, err := time.LoadLocation(tzID)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTimezone, tzID)
	}
	locations.Set(tzID, loc)
	return loc, nil
}

// Localize converts an instant to the given zone's wall clock. The
// returned time represents the same instant; only its location (and
// therefore Hour, Weekday, etc.) changes.
func Localize(t time.Time, tzID string) (time.Time, error) {
	loc, err := location(tzID)
	if err != nil {
		return time.Time{}, err
	}
	return t.In(loc), nil
}

// Now returns the current time on the given zone's wall clock.
func Now(tzID string) (time.Time, error) {
	return Localize(time.Now(), tzID)
}
