package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ppiankov/canari/internal/app"
	"github.com/ppiankov/canari/internal/export"
	"github.com/ppiankov/canari/internal/model"
	"github.com/ppiankov/canari/internal/queue"
)

// countsCmd represents the counts command
var countsCmd = &cobra.Command{
	Use:   "counts",
	Short: "Submit, list and export per-tree fruit counts",
}

var countsSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Queue counts from a YAML file and send them together",
	Long: `Submit validates every count in the file, queues them and sends the queue
in one write. Nothing is sent if any count is invalid.

Example file:
  - {createdBy: Ana, variety: Gala, blockNumber: B12, row: "4", tree: "17",
     canopyType: "High / Alto", totalFruit: 132, vigor: "Normal / Normal"}

Example:
  canari counts submit -f counts.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var in []model.Count
		if err := readYAML(inputFile, &in); err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			q, err := queueAll(a.NewQueue(), in)
			if err != nil {
				return err
			}
			ids, err := q.Submit(ctx, a.Records())
			if err != nil {
				return fmt.Errorf("%d of %d counts stored, %d not sent: %w", len(ids), len(in), q.Len(), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %d counts created\n", len(ids))
			return nil
		})
	},
}

var countsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			counts, err := a.Records().ListCounts(ctx, filter)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), counts)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tBLOCK\tROW\tTREE\tVARIETY\tCANOPY\tFRUIT\tVIGOR\tCREATED BY")
			for _, c := range counts {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
					c.ID, c.BlockNumber, c.Row, c.Tree, c.Variety, c.CanopyType, c.TotalFruit, c.Vigor, c.CreatedBy)
			}
			return tw.Flush()
		})
	},
}

var countsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export counts to an XLSX spreadsheet",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			counts, err := a.Records().ListCounts(ctx, filter)
			if err != nil {
				return err
			}
			return writeFile(outFile, func(w io.Writer) error { return export.WriteCounts(w, counts) })
		})
	},
}

func init() {
	rootCmd.AddCommand(countsCmd)
	countsCmd.AddCommand(countsSubmitCmd, countsListCmd, countsExportCmd)

	countsSubmitCmd.Flags().StringVarP(&inputFile, "file", "f", "", "counts YAML file")
	_ = countsSubmitCmd.MarkFlagRequired("file")

	addFilterFlags(countsListCmd)
	addFilterFlags(countsExportCmd)
	countsListCmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	countsExportCmd.Flags().StringVar(&outFile, "out", "counts.xlsx", "output spreadsheet path")
}

// queueAll enqueues every count, reporting all invalid entries at once
func queueAll(q *queue.Queue, counts []model.Count) (*queue.Queue, error) {
	var errs []error
	for i, c := range counts {
		if _, err := q.Enqueue(c); err != nil {
			errs = append(errs, fmt.Errorf("count %d: %w", i+1, err))
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "Queued %d counts\n", q.Len())
	}
	return q, nil
}
