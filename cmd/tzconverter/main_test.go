package main

import (
	"testing"

	"github.com/erikdrouhard/tzconverter/pkg/session"
	"github.com/erikdrouhard/tzconverter/pkg/viability"
)

func TestPopulateStore(t *testing.T) {
	tests := []struct {
		name  string
		specs string
		want  []viability.Zone
	}{
		{
			name:  "bare ids get the default window",
			specs: "UTC,Asia/Tokyo",
			want: []viability.Zone{
				{TZ: "UTC", Start: 9, End: 17},
				{TZ: "Asia/Tokyo", Start: 9, End: 17},
			},
		},
		{
			name:  "explicit windows",
			specs: "America/New_York=8-16,Europe/London=22-6",
			want: []viability.Zone{
				{TZ: "America/New_York", Start: 8, End: 16},
				{TZ: "Europe/London", Start: 22, End: 6},
			},
		},
		{
			name:  "mixed, with stray whitespace and empty items",
			specs: " UTC , Asia/Tokyo=10-18 ,,",
			want: []viability.Zone{
				{TZ: "UTC", Start: 9, End: 17},
				{TZ: "Asia/Tokyo", Start: 10, End: 18},
			},
		},
		{
			name:  "duplicates collapse",
			specs: "UTC,UTC",
			want:  []viability.Zone{{TZ: "UTC", Start: 9, End: 17}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := session.NewStore()
			if err := populateStore(store, tt.specs); err != nil {
				t.Fatalf("populateStore() error = %v", err)
			}

			got := store.Zones()
			if len(got) != len(tt.want) {
				t.Fatalf("got %d zones, want %d: %+v", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("zone[%d] = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestPopulateStoreErrors(t *testing.T) {
	specs := []string{
		"UTC=9",       // missing end
		"UTC=9-25",    // end out of range
		"UTC=-1-17",   // start out of range
		"UTC=nine-17", // not a number
	}

	for _, spec := range specs {
		t.Run(spec, func(t *testing.T) {
			if err := populateStore(session.NewStore(), spec); err == nil {
				t.Errorf("populateStore(%q) accepted an invalid spec", spec)
			}
		})
	}
}

func TestParseHour(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"0", 0, false},
		{"23", 23, false},
		{" 9 ", 9, false},
		{"24", 0, true},
		{"-1", 0, true},
		{"noon", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := parseHour(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseHour(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("parseHour(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestHourLabelCLI(t *testing.T) {
	tests := []struct {
		hour int
		want string
	}{
		{0, "12AM"},
		{5, "5AM"},
		{12, "12PM"},
		{18, "6PM"},
	}
	for _, tt := range tests {
		if got := hourLabel(tt.hour); got != tt.want {
			t.Errorf("hourLabel(%d) = %q, want %q", tt.hour, got, tt.want)
		}
	}
}
