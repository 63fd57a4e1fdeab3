// Package main implements the tzconverter CLI: the meeting-viability
// grid rendered in a terminal instead of a browser.
//
// Zones come from -timezones, or from the timezones list in
// ~/.config/tzconverter.yaml when the flag is absent. Each zone may
// carry its own preferred-hours window:
//
//	tzconverter -timezones "America/New_York=9-17,Asia/Tokyo=10-18"
//	tzconverter -date 2024-06-01 -detail 16
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/viper"

	"github.com/erikdrouhard/tzconverter/pkg/session"
	"github.com/erikdrouhard/tzconverter/pkg/viability"
)

var (
	timezones  = flag.String("timezones", "", "Comma-separated IANA timezones, each optionally id=start-end (or set TZCONVERTER_TIMEZONES)")
	date       = flag.String("date", "", "Reference UTC date as YYYY-MM-DD (default today)")
	detailHour = flag.Int("detail", -1, "Print the per-timezone detail for one UTC hour (0-23)")
	noColor    = flag.Bool("no-color", false, "Disable colored output (or set NO_COLOR)")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	version    = flag.Bool("version", false, "Show version")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Println("tzconverter v1.2.0")
		return
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if *noColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}

	specs := *timezones
	if specs == "" {
		specs = os.Getenv("TZCONVERTER_TIMEZONES")
	}
	if specs == "" {
		specs = strings.Join(configTimezones(logger), ",")
	}
	if specs == "" {
		fmt.Fprintln(os.Stderr, "No timezones given. Use -timezones, TZCONVERTER_TIMEZONES, or a config file.")
		flag.PrintDefaults()
		os.Exit(2)
	}

	store := session.NewStore()
	if err := populateStore(store, specs); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(2)
	}

	ref := time.Now().UTC()
	if *date != "" {
		parsed, err := time.Parse(time.DateOnly, *date)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid -date %q, want YYYY-MM-DD\n", *date)
			os.Exit(2)
		}
		ref = parsed
	}

	if *detailHour >= 0 {
		if *detailHour > 23 {
			fmt.Fprintln(os.Stderr, "Error: -detail must be 0-23")
			os.Exit(2)
		}
		if err := printDetail(store, ref, *detailHour); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
		return
	}

	if err := printGrid(store, ref); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// configTimezones reads the persisted zone list from
// ~/.config/tzconverter.yaml. A missing or unreadable config is not an
// error; the CLI just has no defaults then.
func configTimezones(logger *slog.Logger) []string {
	home, err := os.UserHomeDir()
	if err != nil {
		logger.Debug("No home directory", "error", err)
		return nil
	}

	v := viper.New()
	v.SetConfigName("tzconverter")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(home, ".config"))
	if err := v.ReadInConfig(); err != nil {
		logger.Debug("No config file", "error", err)
		return nil
	}

	zones := v.GetStringSlice("timezones")
	logger.Debug("Loaded timezones from config", "file", v.ConfigFileUsed(), "count", len(zones))
	return zones
}

// populateStore parses zone specs ("id" or "id=start-end") into the
// store. Windows default to 9-17, exactly like the web UI.
func populateStore(store *session.Store, specs string) error {
	for _, spec := range strings.Split(specs, ",") {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}

		tzID := spec
		start, end := session.DefaultStart, session.DefaultEnd
		if id, window, ok := strings.Cut(spec, "="); ok {
			startStr, endStr, ok := strings.Cut(window, "-")
			if !ok {
				return fmt.Errorf("invalid window in %q, want id=start-end", spec)
			}
			var err error
			if start, err = parseHour(startStr); err != nil {
				return fmt.Errorf("invalid window in %q: %w", spec, err)
			}
			if end, err = parseHour(endStr); err != nil {
				return fmt.Errorf("invalid window in %q: %w", spec, err)
			}
			tzID = id
		}

		store.Add(tzID)
		for _, e := range store.List() {
			if e.TZ == tzID {
				store.UpdateHours(e.ID, start, end)
				break
			}
		}
	}
	return nil
}

func parseHour(s string) (int, error) {
	h, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("hour %q out of range 0-23", s)
	}
	return h, nil
}

func tierColor(tier viability.Tier) *color.Color {
	switch tier {
	case viability.TierFull:
		return color.New(color.FgGreen)
	case viability.TierPartial:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

// printGrid renders the 24-slot viability grid, one UTC hour per line
// with a bar scaled to the fraction of zones inside their window.
func printGrid(store *session.Store, ref time.Time) error {
	zones := store.Zones()

	fmt.Printf("Meeting viability for %s (UTC day, %d timezones)\n",
		ref.Format("Monday, January 2, 2006"), len(zones))
	fmt.Println(strings.Repeat("─", 50))

	for _, t := range viability.Slots(ref) {
		result, err := viability.Score(t, zones)
		if err != nil {
			return err
		}

		bar := strings.Repeat("█", int(result.Score*20))
		if bar == "" {
			bar = "·"
		}
		label := fmt.Sprintf("%5s", hourLabel(t.Hour()))
		line := fmt.Sprintf("%s %-20s %3d%%", label, bar, int(result.Score*100))
		if _, err := tierColor(result.Tier).Println(line); err != nil {
			return err
		}
	}

	fmt.Println(strings.Repeat("─", 50))
	fmt.Println("green: everyone available  yellow: 50%+  red: below 50%")
	return nil
}

// printDetail renders the drill-down table for one UTC hour: each
// zone's local wall clock and whether it falls in preferred hours.
func printDetail(store *session.Store, ref time.Time, hour int) error {
	slots := viability.Slots(ref)
	details, err := viability.Detail(slots[hour], store.Zones())
	if err != nil {
		return err
	}
	entries := store.List()

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Details for %s UTC on %s", hourLabel(hour), ref.Format("Jan 2, 2006"))
	t.AppendHeader(table.Row{"Timezone", "Local Time", "Window", "Status"})

	for i, d := range details {
		status := "outside preferred hours"
		if d.InWindow {
			status = "in preferred hours"
		}
		t.AppendRow(table.Row{
			entries[i].Label,
			d.Local.Format("3:04 PM Mon, Jan 2"),
			fmt.Sprintf("%d:00-%d:00", d.Zone.Start, d.Zone.End),
			status,
		})
	}

	t.Render()
	return nil
}

func hourLabel(hour int) string {
	h := hour % 12
	if h == 0 {
		h = 12
	}
	suffix := "AM"
	if hour >= 12 {
		suffix = "PM"
	}
	return fmt.Sprintf("%d%s", h, suffix)
}
