package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/noah-isme/timetable-sa-api/internal/timetable"
)

type costOptions struct {
	DataDir          string
	ResultFile       string
	Variant          string
	LowPreferenceDay string
	LateHourPrefixes []string
	JSON             bool
}

func (o *costOptions) AddFlags(fs *pflag.FlagSet) {
	defaults := timetable.DefaultPreferences()
	fs.StringVar(&o.DataDir, "data", "", "Dataset directory to score against instead of the one saved with the result")
	fs.StringVar(&o.ResultFile, "result", "", "Result JSON written by run")
	fs.StringVar(&o.Variant, "variant", "", "Run to score from a comparison result (defaults to the winner)")
	fs.StringVar(&o.LowPreferenceDay, "low-preference-day", defaults.LowPreferenceDay, "Day penalised as undesirable")
	fs.StringSliceVar(&o.LateHourPrefixes, "late-hours", defaults.LateHourPrefixes, "Hour prefixes penalised as undesirable")
	fs.BoolVar(&o.JSON, "json", false, "Print the breakdown as JSON")
}

func newCostCommand(global *globalOptions) *cobra.Command {
	opts := &costOptions{}
	cmd := &cobra.Command{
		Use:   "cost",
		Short: "Re-score a saved result and print its penalty breakdown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.ResultFile == "" {
				return fmt.Errorf("--result is required")
			}
			return runCost(cmd, global, opts)
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

func runCost(cmd *cobra.Command, global *globalOptions, opts *costOptions) error {
	file, err := readResultFile(opts.ResultFile)
	if err != nil {
		return err
	}
	record, err := file.pick(opts.Variant)
	if err != nil {
		return err
	}
	if opts.DataDir != "" {
		if record, err = withDataset(global, record, opts.DataDir); err != nil {
			return err
		}
	}
	if record.Request == nil {
		return fmt.Errorf("result file holds no problem; pass --data")
	}
	if record.Result == nil {
		return fmt.Errorf("run %s has no result", record.Run.ID)
	}

	req := record.Request
	catalog, err := timetable.NewCatalog(req.Courses, req.Timeslots, req.Rooms, req.Students, timetable.Preferences{
		LowPreferenceDay: opts.LowPreferenceDay,
		LateHourPrefixes: opts.LateHourPrefixes,
	})
	if err != nil {
		return err
	}
	solution := record.Result.Solution
	if len(solution) != len(req.Courses) {
		return fmt.Errorf("solution places %d courses but the dataset has %d", len(solution), len(req.Courses))
	}
	breakdown := timetable.NewEvaluator(catalog).Breakdown(solution)

	if opts.JSON {
		body, err := json.MarshalIndent(breakdown, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n", body)
		return err
	}
	return printBreakdown(cmd.OutOrStdout(), breakdown, record.Result.Cost)
}

func printBreakdown(out io.Writer, b timetable.CostBreakdown, saved float64) error {
	hard := color.New(color.FgRed, color.Bold)
	rows := []struct {
		name   string
		value  float64
		isHard bool
	}{
		{"room collisions", b.RoomCollisions, true},
		{"instructor clashes", b.InstructorClashes, true},
		{"timeslot clashes", b.TimeslotClashes, true},
		{"capacity overflows", b.CapacityOverflows, true},
		{"section timeslots", b.SectionTimeslots, true},
		{"section instructors", b.SectionInstructors, true},
		{"undesirable slots", b.UndesirableSlots, false},
		{"student overload", b.StudentOverload, false},
		{"student adjacency", b.StudentAdjacency, false},
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "TERM\t%12s\n", "PENALTY")
	for _, row := range rows {
		value := fmt.Sprintf("%12.2f", row.value)
		if row.isHard && row.value > 0 {
			value = hard.Sprint(value)
		}
		fmt.Fprintf(w, "%s\t%s\n", row.name, value)
	}
	fmt.Fprintf(w, "hard\t%12.2f\n", b.Hard)
	fmt.Fprintf(w, "soft\t%12.2f\n", b.Soft)
	fmt.Fprintf(w, "total\t%12.2f\n", b.Total)
	if saved != b.Total {
		fmt.Fprintf(w, "saved\t%12.2f\n", saved)
	}
	return w.Flush()
}
