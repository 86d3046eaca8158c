package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"coursecal/internal/ics"
	"coursecal/internal/schedule"
)

var eventsFlags struct {
	sourceFlags
	days int
	from string
}

// now is replaced in tests.
var now = time.Now

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List the class meetings the generated calendar produces",
	Long: `Generates the term's calendar in memory, expands its weekly rules and
prints every meeting between --from and --from + --days.`,
	Example: "  coursecal events -i schedule.xlsx -t term1 --from 2024/09/09 --days 7",
	Args:    cobra.NoArgs,
	RunE:    runEvents,
}

func init() {
	eventsFlags.register(eventsCmd)
	eventsCmd.Flags().IntVar(&eventsFlags.days, "days", 7, "number of days to list")
	eventsCmd.Flags().StringVar(&eventsFlags.from, "from", "", "first day to list, YYYY/MM/DD (default today)")
	rootCmd.AddCommand(eventsCmd)
}

func runEvents(cmd *cobra.Command, _ []string) error {
	if err := eventsFlags.apply(cfg); err != nil {
		return err
	}
	if eventsFlags.days <= 0 {
		return fmt.Errorf("--days must be positive, got %d", eventsFlags.days)
	}
	loc, err := loadLocation(cfg)
	if err != nil {
		return err
	}

	start, err := rangeStart(eventsFlags.from, loc)
	if err != nil {
		return err
	}
	end := start.AddDate(0, 0, eventsFlags.days)

	res, err := buildArtifacts(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}
	parsed, err := ics.ParseICS(ics.Source{ID: res.Window.Term, Path: cfg.Workbook.Source}, res.ICS)
	if err != nil {
		return err
	}
	expanded, err := ics.ExpandOccurrences(parsed, ics.ExpandConfig{
		DisplayLocation: loc,
		RangeStart:      start,
		// Exclusive end: stop just before midnight of the following day.
		RangeEnd: end.Add(-time.Second),
	})
	if err != nil {
		return err
	}

	if len(expanded.Occurrences) == 0 {
		cmd.Printf("No meetings between %s and %s.\n", start.Format(schedule.DateLayout), end.AddDate(0, 0, -1).Format(schedule.DateLayout))
		return nil
	}
	for _, occ := range expanded.Occurrences {
		line := fmt.Sprintf("%s %s %s-%s  %s",
			occ.Start.Format("Mon"),
			occ.Start.Format(schedule.DateLayout),
			occ.Start.Format("15:04"),
			occ.End.Format("15:04"),
			occ.Summary,
		)
		if occ.Location != "" {
			line += "  @ " + occ.Location
		}
		cmd.Println(line)
	}
	return nil
}

func rangeStart(from string, loc *time.Location) (time.Time, error) {
	if from == "" {
		t := now().In(loc)
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), nil
	}
	d, err := schedule.ParseDate(from)
	if err != nil {
		return time.Time{}, fmt.Errorf("--from: %w", err)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc), nil
}
