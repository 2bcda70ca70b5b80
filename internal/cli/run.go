package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-sa-api/internal/dto"
	"github.com/noah-isme/timetable-sa-api/internal/models"
	"github.com/noah-isme/timetable-sa-api/internal/service"
	"github.com/noah-isme/timetable-sa-api/internal/timetable"
)

const variantBoth = "both"

type runOptions struct {
	DataDir          string
	Variant          string
	MaxIterations    int
	InitialTemp      float64
	CoolingRate      float64
	Seed             int64
	Timeout          time.Duration
	LowPreferenceDay string
	LateHourPrefixes []string
	Out              string
}

func (o *runOptions) AddFlags(fs *pflag.FlagSet) {
	defaults := timetable.DefaultPreferences()
	fs.StringVar(&o.DataDir, "data", "", "Dataset directory holding the CSV tables")
	fs.StringVar(&o.Variant, "variant", string(models.SearchVariantHybrid), "Search variant: traditional, hybrid or both")
	fs.IntVar(&o.MaxIterations, "iterations", 10000, "Maximum annealing iterations")
	fs.Float64Var(&o.InitialTemp, "initial-temp", 1000, "Initial temperature")
	fs.Float64Var(&o.CoolingRate, "cooling-rate", 0.995, "Geometric cooling rate in (0,1)")
	fs.Int64Var(&o.Seed, "seed", 0, "Random seed; a time-based seed is used when unset")
	fs.DurationVar(&o.Timeout, "timeout", 0, "Abort a search after this long (0 disables)")
	fs.StringVar(&o.LowPreferenceDay, "low-preference-day", defaults.LowPreferenceDay, "Day penalised as undesirable")
	fs.StringSliceVar(&o.LateHourPrefixes, "late-hours", defaults.LateHourPrefixes, "Hour prefixes penalised as undesirable")
	fs.StringVarP(&o.Out, "out", "o", "", "Write the result JSON here instead of stdout")
}

func (o *runOptions) Validate() error {
	if o.DataDir == "" {
		return fmt.Errorf("--data is required")
	}
	o.Variant = strings.ToLower(strings.TrimSpace(o.Variant))
	if o.Variant != variantBoth && !models.SearchVariant(o.Variant).Valid() {
		return fmt.Errorf("--variant must be traditional, hybrid or both, got %q", o.Variant)
	}
	return nil
}

func newRunCommand(global *globalOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Search a timetable for a CSV dataset",
		Example: `  timetable-cli run --data ./session --variant both --seed 7 -o result.json
  timetable-cli run --data ./session --iterations 500 --cooling-rate 0.97`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.Validate(); err != nil {
				return err
			}
			return runSearch(cmd, global, opts)
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

func runSearch(cmd *cobra.Command, global *globalOptions, opts *runOptions) error {
	log, err := global.logger()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	loader, err := global.loader()
	if err != nil {
		return err
	}
	ds, err := loader.LoadDir(opts.DataDir)
	if err != nil {
		return err
	}

	params := &dto.SearchParams{
		MaxIterations: opts.MaxIterations,
		InitialTemp:   opts.InitialTemp,
		CoolingRate:   opts.CoolingRate,
	}
	if cmd.Flags().Changed("seed") {
		seed := opts.Seed
		params.Seed = &seed
	}
	req := problemFromDataset(ds, params)

	store := service.NewRunStore(nil, time.Hour)
	svc := service.NewTimetableService(store, nil, nil, nil, log, service.TimetableConfig{
		Timeout: opts.Timeout,
		Preferences: timetable.Preferences{
			LowPreferenceDay: opts.LowPreferenceDay,
			LateHourPrefixes: opts.LateHourPrefixes,
		},
	})

	ctx := cmd.Context()
	out := &resultFile{}
	if opts.Variant == variantBoth {
		cmp, err := svc.Compare(ctx, req)
		if err != nil {
			return err
		}
		if out.Traditional, err = store.Get(ctx, cmp.Traditional.RunID); err != nil {
			return err
		}
		if out.Hybrid, err = store.Get(ctx, cmp.Hybrid.RunID); err != nil {
			return err
		}
		out.Winner, out.CostDelta = cmp.Winner, cmp.CostDelta
		log.Info("comparison finished",
			zap.Float64("traditional_cost", cmp.Traditional.Cost),
			zap.Float64("hybrid_cost", cmp.Hybrid.Cost),
			zap.String("winner", string(cmp.Winner)),
		)
	} else {
		resp, err := svc.Run(ctx, models.SearchVariant(opts.Variant), req)
		if err != nil {
			return err
		}
		if out.RunRecord, err = store.Get(ctx, resp.RunID); err != nil {
			return err
		}
	}

	body, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return writeOutput(cmd, opts.Out, append(body, '\n'))
}
