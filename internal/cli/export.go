package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/noah-isme/timetable-sa-api/internal/dto"
	"github.com/noah-isme/timetable-sa-api/internal/service"
)

type exportOptions struct {
	DataDir    string
	ResultFile string
	Variant    string
	Query      dto.ExportQuery
	Out        string
	OutDir     string
}

func (o *exportOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.DataDir, "data", "", "Dataset directory to resolve names from instead of the one saved with the result")
	fs.StringVar(&o.ResultFile, "result", "", "Result JSON written by run")
	fs.StringVar(&o.Variant, "variant", "", "Run to export from a comparison result (defaults to the winner)")
	fs.StringVar(&o.Query.Format, "format", "csv", "Output format: csv or pdf")
	fs.StringVar(&o.Query.View, "view", service.ExportViewStudent, "Export view: student or timetable")
	fs.StringVar(&o.Query.Specialty, "specialty", "", "Restrict the timetable view to one specialty")
	fs.StringVarP(&o.Out, "out", "o", "", "Write the export to this file instead of stdout")
	fs.StringVar(&o.OutDir, "out-dir", "", "Write the export into this directory under its generated name")
}

func (o *exportOptions) Validate() error {
	if o.ResultFile == "" {
		return fmt.Errorf("--result is required")
	}
	if o.Out != "" && o.OutDir != "" {
		return fmt.Errorf("--out and --out-dir are mutually exclusive")
	}
	return nil
}

func newExportCommand(global *globalOptions) *cobra.Command {
	opts := &exportOptions{}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render a saved result as a student schedule or timetable",
		Example: `  timetable-cli export --result result.json --view student --format pdf --out-dir ./exports
  timetable-cli export --result result.json --view timetable --specialty CS`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.Validate(); err != nil {
				return err
			}
			return runExport(cmd, global, opts)
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

func runExport(cmd *cobra.Command, global *globalOptions, opts *exportOptions) error {
	log, err := global.logger()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

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

	exporter := service.NewExportService(nil, nil, service.ExportConfig{}, log, nil, nil)
	rendered, err := exporter.RenderRecord(record, opts.Query)
	if err != nil {
		return err
	}

	path := opts.Out
	if opts.OutDir != "" {
		path = filepath.Join(opts.OutDir, rendered.Filename)
	}
	if err := writeOutput(cmd, path, rendered.Body); err != nil {
		return err
	}
	if path != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), path)
	}
	return nil
}

// withDataset swaps the saved problem for the tables in dir, keeping the
// saved parameters.
func withDataset(global *globalOptions, record *service.RunRecord, dir string) (*service.RunRecord, error) {
	loader, err := global.loader()
	if err != nil {
		return nil, err
	}
	ds, err := loader.LoadDir(dir)
	if err != nil {
		return nil, err
	}
	var params *dto.SearchParams
	if record.Request != nil {
		params = record.Request.Params
	}
	req := problemFromDataset(ds, params)
	out := *record
	out.Request = &req
	return &out, nil
}
