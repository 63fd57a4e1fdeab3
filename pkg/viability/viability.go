// Package viability implements the meeting-viability computation: given
// an instant and a set of timezones with preferred working hours, it
// scores how viable that instant is as a meeting time. Everything here
// is a pure function over its inputs so the math can be tested without
// any session or HTTP machinery.
package viability

import (
	"time"

	"github.com/erikdrouhard/tzconverter/pkg/tzlocal"
)

// Tier classifies a viability score into the three UI buckets.
type Tier string

const (
	// TierFull means every zone is inside its preferred hours.
	TierFull Tier = "full"
	// TierPartial means at least half of the zones are.
	TierPartial Tier = "partial"
	// TierLow means fewer than half are, or there are no zones at all.
	TierLow Tier = "low"
)

// Zone is one participant timezone with its preferred-hours window.
// Start and End are local hours in 0..23; End < Start means the window
// wraps past midnight (e.g. 22-6).
type Zone struct {
	TZ    string
	Start int
	End   int
}

// Result is a scored instant.
type Result struct {
	Score float64
	Tier  Tier
}

// ZoneDetail is the drill-down row for one zone at one instant.
type ZoneDetail struct {
	Zone     Zone
	Local    time.Time
	InWindow bool
}

// InWindow reports whether a local hour falls inside a preferred-hours
// window. The window is half-open: [start, end). When end < start it
// wraps past midnight, so 23 is inside a 22-6 window. start == end is
// the empty window and matches nothing.
func InWindow(hour, start, end int) bool {
	if end < start {
		return hour >= start || hour < end
	}
	return start <= hour && hour < end
}

// Score evaluates one instant against every zone and returns the
// fraction of zones whose local hour is inside their window, classified
// into a tier. No zones is a defined degenerate case: (0, low).
//
// An unresolvable timezone aborts the whole computation; a partial
// score over the zones that did resolve would silently misreport
// viability.
func Score(t time.Time, zones []Zone) (Result, error) {
	if len(zones) == 0 {
		return Result{Score: 0, Tier: TierLow}, nil
	}

	matches := 0
	for _, z := range zones {
		local, err := tzlocal.Localize(t, z.TZ)
		if err != nil {
			return Result{}, err
		}
		if InWindow(local.Hour(), z.Start, z.End) {
			matches++
		}
	}

	score := float64(matches) / float64(len(zones))
	return Result{Score: score, Tier: tierFor(score)}, nil
}

// tierFor maps a score to its tier. The 0.5 boundary belongs to
// partial; it is a visible color threshold in the UI.
func tierFor(score float64) Tier {
	switch {
	case score == 1.0:
		return TierFull
	case score >= 0.5:
		return TierPartial
	default:
		return TierLow
	}
}

// Detail localizes one instant into every zone and reports the
// per-zone membership, preserving input order. This is the drill-down
// behind clicking a slot in the grid.
func Detail(t time.Time, zones []Zone) ([]ZoneDetail, error) {
	details := make([]ZoneDetail, 0, len(zones))
	for _, z := range zones {
		local, err := tzlocal.Localize(t, z.TZ)
		if err != nil {
			return nil, err
		}
		details = append(details, ZoneDetail{
			Zone:     z,
			Local:    local,
			InWindow: InWindow(local.Hour(), z.Start, z.End),
		})
	}
	return details, nil
}

// Slots returns the 24 hourly instants of the UTC calendar day
// containing ref: hour 0 through 23, minutes and seconds zero,
// strictly increasing. Pure with respect to ref.
func Slots(ref time.Time) [24]time.Time {
	day := ref.UTC()
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)

	var slots [24]time.Time
	for h := range slots {
		slots[h] = midnight.Add(time.Duration(h) * time.Hour)
	}
	return slots
}
