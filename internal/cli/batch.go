package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/canari/internal/app"
	"github.com/ppiankov/canari/internal/catalog"
	"github.com/ppiankov/canari/internal/draft"
	"github.com/ppiankov/canari/internal/export"
	"github.com/ppiankov/canari/internal/model"
	"github.com/ppiankov/canari/internal/records"
	"github.com/ppiankov/canari/internal/wizard"
	"github.com/ppiankov/canari/internal/worker"
)

var (
	inputFile string
	outFile   string
	asJSON    bool
	filter    records.Filter

	editSample int
	editField  string
	editValue  string

	importList        string
	importConcurrency int
)

// batchFile is the YAML form of one inspection batch. Samples are listed in
// slot order; an empty entry ({}) leaves its slot blank.
type batchFile struct {
	CreatedBy   string           `yaml:"createdBy"`
	Variety     string           `yaml:"variety"`
	Subvariety  string           `yaml:"subvariety"`
	BlockNumber string           `yaml:"blockNumber"`
	Samples     []map[string]any `yaml:"samples"`
}

func (b batchFile) metadata() model.BatchMetadata {
	return model.BatchMetadata{
		Submitter:   b.CreatedBy,
		Category:    b.Variety,
		SubCategory: b.Subvariety,
		Block:       b.BlockNumber,
	}
}

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Submit, list, correct and export inspection batches",
}

var batchSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a batch from a YAML file",
	Long: `Submit enters a batch through the same steps as the form: metadata first,
then one step per attribute, then review and submit.

Example file:
  createdBy: Ana
  variety: Gala
  blockNumber: B12
  samples:
    - {isExposed: true, weight: 151.5, pressure1: 7.2, pressure2: 7.0, brix: 12.4}
    - {}
    - {row: R3, weight: 140}

Example:
  canari batch submit -f batch.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var in batchFile
		if err := readYAML(inputFile, &in); err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			id, err := submitBatch(ctx, a, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Batch %s created\n", id)
			return nil
		})
	},
}

var batchImportCmd = &cobra.Command{
	Use:   "import [file...]",
	Short: "Submit many batch files concurrently",
	Long: `Import submits each YAML batch file through its own form. A failing file
does not stop the others; every file is reported.

Example:
  canari batch import monday/*.yaml
  canari batch import --list batches.txt --concurrency 8`,
	RunE: func(cmd *cobra.Command, args []string) error {
		files := args
		if importList != "" {
			listed, err := worker.ReadList(importList)
			if err != nil {
				return err
			}
			files = append(files, listed...)
		}
		if len(files) == 0 {
			return fmt.Errorf("no batch files given")
		}

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			tasks := make([]worker.Task[string], len(files))
			for i, path := range files {
				tasks[i] = func(ctx context.Context) (string, error) {
					return submitFile(ctx, a, path)
				}
			}
			outcomes := worker.RunAll(ctx, worker.NewPool(importConcurrency), tasks)

			failed := 0
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FILE\tBATCH\tERROR")
			for _, o := range outcomes {
				msg := ""
				if o.Err != nil {
					failed++
					msg = o.Err.Error()
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", files[o.Index], o.Value, msg)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d batch files failed", failed, len(files))
			}
			return nil
		})
	},
}

var batchListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored batches",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			batches, err := a.Records().ListBatches(ctx, filter)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), batches)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tBLOCK\tCREATED BY\tVARIETY\tSUBVARIETY\tSAMPLES")
			for _, b := range batches {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
					b.ID, b.CreatedAt.Format("2006-01-02 15:04"), b.Block, b.Submitter, b.Category, b.SubCategory, len(b.Samples))
			}
			return tw.Flush()
		})
	},
}

var batchShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one batch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			b, err := a.Records().GetBatch(ctx, args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), b)
		})
	},
}

var batchEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Correct one field of one sample",
	Long: `Edit reads a stored batch, changes one field of one sample and writes the
samples back.

Example:
  canari batch edit 3f2a... --sample 4 --field brix --value 13.1`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			b, err := a.Records().EditSample(ctx, args[0], editSample, editField, editValue)
			if err != nil {
				return err
			}
			s, _ := b.Sample(editSample)
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Batch %s sample %d updated\n", b.ID, s.SampleNumber)
			return nil
		})
	},
}

var batchExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export batches to an XLSX spreadsheet",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			batches, err := a.Records().ListBatches(ctx, filter)
			if err != nil {
				return err
			}
			return writeFile(outFile, func(w io.Writer) error { return export.WriteBatches(w, batches) })
		})
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)
	batchCmd.AddCommand(batchSubmitCmd, batchImportCmd, batchListCmd, batchShowCmd, batchEditCmd, batchExportCmd)

	batchSubmitCmd.Flags().StringVarP(&inputFile, "file", "f", "", "batch YAML file")
	_ = batchSubmitCmd.MarkFlagRequired("file")

	batchImportCmd.Flags().StringVar(&importList, "list", "", "file listing batch YAML paths, one per line")
	batchImportCmd.Flags().IntVar(&importConcurrency, "concurrency", 4, "batches submitted at once")

	for _, c := range []*cobra.Command{batchListCmd, batchExportCmd} {
		addFilterFlags(c)
	}
	batchListCmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	batchExportCmd.Flags().StringVar(&outFile, "out", "batches.xlsx", "output spreadsheet path")

	batchEditCmd.Flags().IntVar(&editSample, "sample", 0, "sample number (1-based)")
	batchEditCmd.Flags().StringVar(&editField, "field", "", "sample field key, e.g. weight or brix")
	batchEditCmd.Flags().StringVar(&editValue, "value", "", "new value (blank clears a numeric field)")
	_ = batchEditCmd.MarkFlagRequired("sample")
	_ = batchEditCmd.MarkFlagRequired("field")
}

func addFilterFlags(c *cobra.Command) {
	c.Flags().StringVar(&filter.Block, "block", "", "filter by block number (substring)")
	c.Flags().StringVar(&filter.Submitter, "submitter", "", "filter by submitter name (substring)")
	c.Flags().StringVar(&filter.Variety, "variety", "", "filter by variety (substring)")
	c.Flags().StringVar(&filter.Subvariety, "subvariety", "", "filter by subvariety (substring)")
}

func submitBatch(ctx context.Context, a *app.App, in batchFile) (string, error) {
	m, err := a.NewWizard()
	if err != nil {
		return "", err
	}
	if err := fillWizard(m, in); err != nil {
		return "", err
	}
	return m.Submit(ctx, a.Records())
}

func submitFile(ctx context.Context, a *app.App, path string) (string, error) {
	var in batchFile
	if err := readYAML(path, &in); err != nil {
		return "", err
	}
	return submitBatch(ctx, a, in)
}

// fillWizard walks the wizard through every step, entering the file's values
// on the step that owns them, and leaves it on review
func fillWizard(m *wizard.Machine, in batchFile) error {
	cat := m.Catalog()
	_, items := m.Draft()
	if len(in.Samples) > len(items) {
		return fmt.Errorf("%d samples given, the form holds %d", len(in.Samples), len(items))
	}

	known := make(map[string]bool)
	for _, key := range cat.StorageKeys() {
		known[key] = true
	}
	for i, sample := range in.Samples {
		for key := range sample {
			if !known[key] {
				return fmt.Errorf("sample %d: %w", i+1, model.NewValidationError(model.ErrUnknownField, key))
			}
		}
	}

	meta := in.metadata()
	for _, f := range model.MetadataFields {
		if err := m.SetMetadata(f, meta.Get(f)); err != nil {
			return err
		}
	}
	if _, err := m.Next(); err != nil {
		return fmt.Errorf("metadata: %w", err)
	}

	for _, e := range cat.Entries() {
		for _, key := range e.StorageKeys() {
			for i, sample := range in.Samples {
				v, ok := sample[key]
				if !ok {
					continue
				}
				if err := enter(m, cat, i, key, v); err != nil {
					return fmt.Errorf("sample %d %s: %w", i+1, key, err)
				}
			}
		}
		if _, err := m.Next(); err != nil {
			return err
		}
	}
	return nil
}

func enter(m *wizard.Machine, cat *catalog.Catalog, index int, key string, v any) error {
	f, _ := cat.Lookup(key)
	if f.Kind == catalog.Boolean {
		b, ok := v.(bool)
		if !ok {
			return model.NewValidationError(model.ErrInvalidValue, key)
		}
		return m.Update(index, draft.SetFlag{Key: key, Value: b})
	}
	return m.Update(index, draft.SetSingle{Key: key, Value: scalar(v)})
}

// scalar renders a decoded YAML scalar as form input text
func scalar(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func readYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()
	if err := write(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", path)
	return nil
}
