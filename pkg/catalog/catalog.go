// Package catalog provides the curated list of selectable timezones.
// The list is hand-maintained: every entry pairs an IANA zone identifier
// with the label shown in the UI. Identifiers are not validated against
// the zone database here; resolution failures surface in pkg/tzlocal.
package catalog

// Entry pairs an IANA timezone identifier with its display label.
type Entry struct {
	ID    string
	Label string
}

// entries is ordered for presentation: Americas west to east, then
// Europe, Africa, Asia, and Oceania.
var entries = []Entry{
	{"America/New_York", "New York (EST/EDT)"},
	{"America/Chicago", "Chicago (CST/CDT)"},
	{"America/Denver", "Denver (MST/MDT)"},
	{"America/Los_Angeles", "Los Angeles (PST/PDT)"},
	{"America/Phoenix", "Phoenix (MST)"},
	{"America/Anchorage", "Anchorage (AKST/AKDT)"},
	{"Pacific/Honolulu", "Honolulu (HST)"},
	{"America/Toronto", "Toronto (EST/EDT)"},
	{"America/Vancouver", "Vancouver (PST/PDT)"},
	{"America/Mexico_City", "Mexico City (CST/CDT)"},
	{"America/Sao_Paulo", "São Paulo (BRT)"},
	{"America/Buenos_Aires", "Buenos Aires (ART)"},
	{"America/Santiago", "Santiago (CLT)"},
	{"Europe/London", "London (GMT/BST)"},
	{"Europe/Paris", "Paris (CET/CEST)"},
	{"Europe/Berlin", "Berlin (CET/CEST)"},
	{"Europe/Rome", "Rome (CET/CEST)"},
	{"Europe/Madrid", "Madrid (CET/CEST)"},
	{"Europe/Amsterdam", "Amsterdam (CET/CEST)"},
	{"Europe/Brussels", "Brussels (CET/CEST)"},
	{"Europe/Vienna", "Vienna (CET/CEST)"},
	{"Europe/Stockholm", "Stockholm (CET/CEST)"},
	{"Europe/Warsaw", "Warsaw (CET/CEST)"},
	{"Europe/Moscow", "Moscow (MSK)"},
	{"Europe/Istanbul", "Istanbul (TRT)"},
	{"Europe/Athens", "Athens (EET/EEST)"},
	{"Africa/Cairo", "Cairo (EET)"},
	{"Africa/Johannesburg", "Johannesburg (SAST)"},
	{"Africa/Lagos", "Lagos (WAT)"},
	{"Africa/Nairobi", "Nairobi (EAT)"},
	{"Asia/Dubai", "Dubai (GST)"},
	{"Asia/Karachi", "Karachi (PKT)"},
	{"Asia/Kolkata", "Mumbai/Delhi (IST)"},
	{"Asia/Bangkok", "Bangkok (ICT)"},
	{"Asia/Singapore", "Singapore (SGT)"},
	{"Asia/Hong_Kong", "Hong Kong (HKT)"},
	{"Asia/Shanghai", "Shanghai (CST)"},
	{"Asia/Tokyo", "Tokyo (JST)"},
	{"Asia/Seoul", "Seoul (KST)"},
	{"Asia/Taipei", "Taipei (CST)"},
	{"Asia/Jakarta", "Jakarta (WIB)"},
	{"Asia/Manila", "Manila (PST)"},
	{"Australia/Perth", "Perth (AWST)"},
	{"Australia/Adelaide", "Adelaide (ACST/ACDT)"},
	{"Australia/Brisbane", "Brisbane (AEST)"},
	{"Australia/Sydney", "Sydney (AEST/AEDT)"},
	{"Australia/Melbourne", "Melbourne (AEST/AEDT)"},
	{"Pacific/Auckland", "Auckland (NZST/NZDT)"},
	{"Pacific/Fiji", "Fiji (FJT)"},
}

// List returns the catalog in presentation order. The returned slice is
// a copy; callers may reorder it freely.
func List() []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// Lookup returns the display label for a timezone identifier. Unknown
// identifiers fall open to the identifier itself so a stale or custom
// zone still renders as something readable.
func Lookup(id string) string {
	for _, e := range entries {
		if e.ID == id {
			return e.Label
		}
	}
	return id
}
