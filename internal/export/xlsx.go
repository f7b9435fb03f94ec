// Package export writes stored records as spreadsheets
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ppiankov/canari/internal/model"
)

const (
	SamplesSheet = "Samples"
	CountsSheet  = "Counts"

	// ContentType is the media type of the generated workbooks
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var sampleHeadings = []any{
	"Batch", "Created", "Created By", "Variety", "Subvariety", "Block",
	"Sample", "Exposed", "Internal", "Split", "Row", "Weight (g)",
	"Color %", "Background Color %", "Pressure 1", "Pressure 2", "Brix", "Starch",
}

var countHeadings = []any{
	"Count", "Created", "Created By", "Variety", "Subvariety", "Block",
	"Row", "Tree", "Canopy", "Total Fruit", "Vigor",
}

// WriteBatches writes one row per sample, repeating the batch metadata on each row
func WriteBatches(w io.Writer, batches []model.Batch) error {
	var rows [][]any
	for _, b := range batches {
		for _, s := range b.Samples {
			rows = append(rows, []any{
				b.ID, timestamp(b.CreatedAt), b.Submitter, b.Category, b.SubCategory, b.Block,
				s.SampleNumber, s.IsExposed, s.IsInternal, s.IsSplit, s.Row, cell(s.Weight),
				cell(s.ColorPercentage), cell(s.BackgroundColorPercentage),
				cell(s.Pressure1), cell(s.Pressure2), cell(s.Brix), cell(s.Starch),
			})
		}
	}
	return write(w, SamplesSheet, sampleHeadings, rows)
}

// WriteCounts writes one row per count
func WriteCounts(w io.Writer, counts []model.CountRecord) error {
	rows := make([][]any, len(counts))
	for i, c := range counts {
		rows[i] = []any{
			c.ID, timestamp(c.CreatedAt), c.CreatedBy, c.Variety, c.Subvariety, c.BlockNumber,
			c.Row, c.Tree, c.CanopyType, c.TotalFruit, c.Vigor,
		}
	}
	return write(w, CountsSheet, countHeadings, rows)
}

func write(w io.Writer, sheet string, headings []any, rows [][]any) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, "A1", &headings); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
	}
	if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}

	_, err := f.WriteTo(w)
	return err
}

// cell renders blanks as empty cells and readings as numbers
func cell(m model.Measure) any {
	if !m.Valid {
		return nil
	}
	return m.Value.InexactFloat64()
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
