// Package sheets appends evaluation rows to a Google Sheet and applies the
// conditional red highlighting for low scores and critical failures.
package sheets

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/nwrslept/CallAnalyzer/internal/report"
	"github.com/nwrslept/CallAnalyzer/internal/types"
)

var (
	redFill   = &gsheets.Color{Red: 1.0, Green: 0.8, Blue: 0.8}
	redText   = &gsheets.Color{Red: 1.0}
	whiteFill = &gsheets.Color{Red: 1.0, Green: 1.0, Blue: 1.0}
	grayFill  = &gsheets.Color{Red: 0.8, Green: 0.8, Blue: 0.8}
)

type Writer struct {
	srv           *gsheets.Service
	spreadsheetID string
	sheetName     string
	log           *logrus.Entry

	sheetID      int64
	headersReady bool
	now          func() time.Time
}

// New authorizes against the Sheets API with a service account credentials file.
func New(ctx context.Context, credentialsFile, spreadsheetID, sheetName string, log *logrus.Entry) (*Writer, error) {
	srv, err := gsheets.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(gsheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("sheets auth failed: %w", err)
	}
	return &Writer{
		srv:           srv,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		log:           log.WithField("component", "sheets"),
		sheetID:       -1,
		now:           time.Now,
	}, nil
}

// Append writes one evaluation row and highlights the score and comment
// cells when they cross the failure thresholds. An error here means the row
// may not exist; the caller must not mark the file processed.
func (w *Writer) Append(ctx context.Context, fileName string, a types.Analysis) error {
	if err := w.ensureHeaders(ctx); err != nil {
		return err
	}

	row := report.Row(fileName, a, w.now())
	vr := &gsheets.ValueRange{Values: [][]interface{}{row}}

	var res *gsheets.AppendValuesResponse
	op := func() error {
		var err error
		res, err = w.srv.Spreadsheets.Values.
			Append(w.spreadsheetID, w.sheetName+"!A1", vr).
			ValueInputOption("USER_ENTERED").
			Context(ctx).
			Do()
		return err
	}
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second
	if err := backoff.Retry(op, bo); err != nil {
		return fmt.Errorf("sheets append failed: %w", err)
	}

	// The append response tells us which physical row we landed on; the
	// styling below has to target exactly that row.
	rowIndex, err := rowFromUpdatedRange(res.Updates.UpdatedRange)
	if err != nil {
		w.log.WithField("range", res.Updates.UpdatedRange).
			Warn("could not locate appended row, skipping highlight")
		return nil
	}

	if err := w.highlightCell(ctx, rowIndex, report.ScoreColumn, report.LowScore(int(a.ManagerScore))); err != nil {
		w.log.WithField("error", err.Error()).Warn("score cell highlight failed")
	}
	if err := w.highlightCell(ctx, rowIndex, report.CommentColumn, a.IsCriticalFail); err != nil {
		w.log.WithField("error", err.Error()).Warn("comment cell highlight failed")
	}
	return nil
}

// ensureHeaders writes the header row once when the target sheet is empty.
func (w *Writer) ensureHeaders(ctx context.Context) error {
	if w.headersReady {
		return nil
	}

	got, err := w.srv.Spreadsheets.Values.
		Get(w.spreadsheetID, w.sheetName+"!A1").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("sheets header check failed: %w", err)
	}
	if len(got.Values) > 0 {
		w.headersReady = true
		return nil
	}

	header := make([]interface{}, len(report.Headers))
	for i, h := range report.Headers {
		header[i] = h
	}
	_, err = w.srv.Spreadsheets.Values.
		Update(w.spreadsheetID, w.sheetName+"!A1", &gsheets.ValueRange{
			Values: [][]interface{}{header},
		}).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("sheets header write failed: %w", err)
	}

	sheetID, err := w.resolveSheetID(ctx)
	if err != nil {
		return err
	}
	req := &gsheets.Request{
		RepeatCell: &gsheets.RepeatCellRequest{
			Range: &gsheets.GridRange{
				SheetId:        sheetID,
				EndRowIndex:    1,
				EndColumnIndex: report.NumColumns,
			},
			Cell: &gsheets.CellData{
				UserEnteredFormat: &gsheets.CellFormat{
					BackgroundColor: grayFill,
					TextFormat:      &gsheets.TextFormat{Bold: true},
				},
			},
			Fields: "userEnteredFormat(backgroundColor,textFormat)",
		},
	}
	if err := w.batchUpdate(ctx, req); err != nil {
		return fmt.Errorf("sheets header format failed: %w", err)
	}

	w.headersReady = true
	return nil
}

// highlightCell paints one cell red (light-red fill, bold red text) or
// resets it to white with default text.
func (w *Writer) highlightCell(ctx context.Context, rowIndex int64, colIndex int64, red bool) error {
	sheetID, err := w.resolveSheetID(ctx)
	if err != nil {
		return err
	}

	format := &gsheets.CellFormat{BackgroundColor: whiteFill}
	if red {
		format = &gsheets.CellFormat{
			BackgroundColor: redFill,
			TextFormat:      &gsheets.TextFormat{ForegroundColor: redText, Bold: true},
		}
	}

	req := &gsheets.Request{
		RepeatCell: &gsheets.RepeatCellRequest{
			Range: &gsheets.GridRange{
				SheetId:          sheetID,
				StartRowIndex:    rowIndex - 1,
				EndRowIndex:      rowIndex,
				StartColumnIndex: colIndex,
				EndColumnIndex:   colIndex + 1,
			},
			Cell:   &gsheets.CellData{UserEnteredFormat: format},
			Fields: "userEnteredFormat(backgroundColor,textFormat)",
		},
	}
	return w.batchUpdate(ctx, req)
}

func (w *Writer) batchUpdate(ctx context.Context, reqs ...*gsheets.Request) error {
	_, err := w.srv.Spreadsheets.
		BatchUpdate(w.spreadsheetID, &gsheets.BatchUpdateSpreadsheetRequest{Requests: reqs}).
		Context(ctx).
		Do()
	return err
}

// resolveSheetID maps the tab name to its numeric sheetId, cached after the
// first lookup. Formatting requests only accept the numeric id.
func (w *Writer) resolveSheetID(ctx context.Context) (int64, error) {
	if w.sheetID >= 0 {
		return w.sheetID, nil
	}
	ss, err := w.srv.Spreadsheets.Get(w.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("sheets metadata fetch failed: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == w.sheetName {
			w.sheetID = sh.Properties.SheetId
			return w.sheetID, nil
		}
	}
	w.sheetID = 0
	return 0, nil
}

// rowFromUpdatedRange parses the assigned row number out of an append
// response range like "Test_Run!A42:Q42".
func rowFromUpdatedRange(updatedRange string) (int64, error) {
	parts := strings.SplitN(updatedRange, "!", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("unexpected range %q", updatedRange)
	}
	cell := strings.SplitN(parts[1], ":", 2)[0]
	digits := strings.TrimLeftFunc(cell, func(r rune) bool {
		return r >= 'A' && r <= 'Z'
	})
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("unexpected range %q", updatedRange)
	}
	return n, nil
}
