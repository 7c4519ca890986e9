// Package xlsx writes evaluation rows to a local workbook. It mirrors the
// Google Sheets writer (same row layout, same highlight rules) for runs
// without a configured spreadsheet.
package xlsx

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/nwrslept/CallAnalyzer/internal/report"
	"github.com/nwrslept/CallAnalyzer/internal/types"
)

type Writer struct {
	path      string
	sheetName string
	log       *logrus.Entry
	now       func() time.Time
}

func New(path, sheetName string, log *logrus.Entry) *Writer {
	return &Writer{
		path:      path,
		sheetName: sheetName,
		log:       log.WithField("component", "xlsx"),
		now:       time.Now,
	}
}

// Append opens (or creates) the workbook, ensures the styled header, writes
// the row and applies the conditional highlighting, then saves.
func (w *Writer) Append(ctx context.Context, fileName string, a types.Analysis) error {
	f, created, err := w.open()
	if err != nil {
		return err
	}
	defer f.Close()

	if err := w.ensureHeaders(f); err != nil {
		return err
	}

	rows, err := f.GetRows(w.sheetName)
	if err != nil {
		return fmt.Errorf("xlsx read rows: %w", err)
	}
	rowIndex := len(rows) + 1

	row := report.Row(fileName, a, w.now())
	cell := fmt.Sprintf("A%d", rowIndex)
	if err := f.SetSheetRow(w.sheetName, cell, &row); err != nil {
		return fmt.Errorf("xlsx write row: %w", err)
	}

	if err := w.highlightCell(f, rowIndex, report.ScoreColumn, report.LowScore(int(a.ManagerScore))); err != nil {
		w.log.WithField("error", err.Error()).Warn("score cell highlight failed")
	}
	if err := w.highlightCell(f, rowIndex, report.CommentColumn, a.IsCriticalFail); err != nil {
		w.log.WithField("error", err.Error()).Warn("comment cell highlight failed")
	}

	if created {
		return f.SaveAs(w.path)
	}
	return f.Save()
}

func (w *Writer) open() (*excelize.File, bool, error) {
	if _, err := os.Stat(w.path); err == nil {
		f, err := excelize.OpenFile(w.path)
		if err != nil {
			return nil, false, fmt.Errorf("xlsx open: %w", err)
		}
		return f, false, nil
	}

	f := excelize.NewFile()
	idx, err := f.NewSheet(w.sheetName)
	if err != nil {
		return nil, false, fmt.Errorf("xlsx create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if w.sheetName != "Sheet1" {
		_ = f.DeleteSheet("Sheet1")
	}
	return f, true, nil
}

func (w *Writer) ensureHeaders(f *excelize.File) error {
	first, err := f.GetCellValue(w.sheetName, "A1")
	if err != nil {
		return fmt.Errorf("xlsx header check: %w", err)
	}
	if first != "" {
		return nil
	}

	if err := f.SetSheetRow(w.sheetName, "A1", &report.Headers); err != nil {
		return fmt.Errorf("xlsx header write: %w", err)
	}

	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"CCCCCC"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("xlsx header style: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(report.NumColumns, 1)
	if err := f.SetCellStyle(w.sheetName, "A1", last, style); err != nil {
		return fmt.Errorf("xlsx header style: %w", err)
	}
	return nil
}

func (w *Writer) highlightCell(f *excelize.File, rowIndex, colIndex int, red bool) error {
	// colIndex is 0-based like the sheets writer; excelize is 1-based.
	cell, err := excelize.CoordinatesToCellName(colIndex+1, rowIndex)
	if err != nil {
		return err
	}

	st := &excelize.Style{}
	if red {
		st.Font = &excelize.Font{Bold: true, Color: "FF0000"}
		st.Fill = excelize.Fill{Type: "pattern", Color: []string{"FFCCCC"}, Pattern: 1}
	}
	style, err := f.NewStyle(st)
	if err != nil {
		return err
	}
	return f.SetCellStyle(w.sheetName, cell, cell, style)
}
