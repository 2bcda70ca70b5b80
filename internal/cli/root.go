// Package cli implements the timetable-cli commands: offline searches over
// CSV datasets, exports of saved results and cost breakdowns.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-sa-api/internal/dto"
	"github.com/noah-isme/timetable-sa-api/internal/models"
	"github.com/noah-isme/timetable-sa-api/internal/service"
	"github.com/noah-isme/timetable-sa-api/pkg/config"
	"github.com/noah-isme/timetable-sa-api/pkg/dataset"
	"github.com/noah-isme/timetable-sa-api/pkg/logger"
)

type globalOptions struct {
	LogLevel  string
	LogFormat string
	Comma     string
}

func (o *globalOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.LogLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	fs.StringVar(&o.LogFormat, "log-format", "console", "Log encoding (console or json)")
	fs.StringVar(&o.Comma, "comma", ",", "Field delimiter of the CSV tables")
}

func (o *globalOptions) logger() (*zap.Logger, error) {
	return logger.New(&config.Config{
		Env: config.EnvDevelopment,
		Log: config.LogConfig{Level: o.LogLevel, Format: o.LogFormat},
	})
}

func (o *globalOptions) loader() (*dataset.Loader, error) {
	runes := []rune(o.Comma)
	if len(runes) != 1 {
		return nil, fmt.Errorf("--comma must be a single character, got %q", o.Comma)
	}
	return &dataset.Loader{Comma: runes[0]}, nil
}

// NewRootCommand builds the timetable-cli command tree. Results are written
// to out unless a command is given --out.
func NewRootCommand(out io.Writer) *cobra.Command {
	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:   "timetable-cli",
		Short: "Exam timetabling by simulated annealing over CSV datasets",
		Long: `timetable-cli runs the traditional and hybrid annealing searches on a
dataset directory holding Modules.csv, Timeslots.csv, Classrooms.csv and,
optionally, Instructors.csv and Students.csv.

Saved results can be exported as student schedules or timetables and
re-scored against the same or an updated dataset.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)
	opts.AddFlags(cmd.PersistentFlags())

	cmd.AddCommand(
		newRunCommand(opts),
		newExportCommand(opts),
		newCostCommand(opts),
	)
	return cmd
}

// resultFile is what run writes: a single run record, or two of them with
// the comparison outcome when both variants ran.
type resultFile struct {
	*service.RunRecord
	Traditional *service.RunRecord   `json:"traditional,omitempty"`
	Hybrid      *service.RunRecord   `json:"hybrid,omitempty"`
	Winner      models.SearchVariant `json:"winner,omitempty"`
	CostDelta   float64              `json:"costDelta,omitempty"`
}

// pick returns the record for variant. An empty variant selects the winner
// of a comparison file.
func (f *resultFile) pick(variant string) (*service.RunRecord, error) {
	if f.Traditional == nil && f.Hybrid == nil {
		if f.RunRecord == nil || f.Result == nil {
			return nil, fmt.Errorf("result file holds no finished run")
		}
		if variant != "" && models.SearchVariant(variant) != f.Result.Variant {
			return nil, fmt.Errorf("result file holds a %s run, not %s", f.Result.Variant, variant)
		}
		return f.RunRecord, nil
	}
	if variant == "" {
		variant = string(f.Winner)
	}
	switch models.SearchVariant(variant) {
	case models.SearchVariantTraditional:
		if f.Traditional != nil {
			return f.Traditional, nil
		}
	case models.SearchVariantHybrid:
		if f.Hybrid != nil {
			return f.Hybrid, nil
		}
	default:
		return nil, fmt.Errorf("unknown variant %q", variant)
	}
	return nil, fmt.Errorf("result file has no %s run", variant)
}

func readResultFile(path string) (*resultFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f resultFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return &f, nil
}

// problemFromDataset turns loaded tables into a search request. Missing
// optional tables become empty lists.
func problemFromDataset(ds *dataset.Dataset, params *dto.SearchParams) dto.SearchRequest {
	req := dto.SearchRequest{
		Courses:     ds.Courses,
		Timeslots:   ds.Timeslots,
		Rooms:       ds.Rooms,
		Instructors: ds.Instructors,
		Students:    ds.Students,
		Params:      params,
	}
	if req.Courses == nil {
		req.Courses = []models.Course{}
	}
	if req.Timeslots == nil {
		req.Timeslots = []models.Timeslot{}
	}
	if req.Rooms == nil {
		req.Rooms = []models.Room{}
	}
	if req.Instructors == nil {
		req.Instructors = []models.Instructor{}
	}
	if req.Students == nil {
		req.Students = []models.Student{}
	}
	return req
}

// writeOutput sends body to path, or to the command's output when path is
// empty.
func writeOutput(cmd *cobra.Command, path string, body []byte) error {
	if path == "" {
		_, err := cmd.OutOrStdout().Write(body)
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, body, 0o644)
}
