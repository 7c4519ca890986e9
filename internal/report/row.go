// Package report defines the fixed 17-column evaluation row shared by the
// Google Sheets writer and the local workbook writer, plus the highlight
// rules derived from score and critical-fail flag.
package report

import (
	"time"

	"github.com/nwrslept/CallAnalyzer/internal/types"
)

// Column layout (0-based):
//
//	0 date, 1 file name, 2 phone, 3 branch, 4 manager (placeholders),
//	5-11 KPI flags, 12 service type, 13 result, 14 score, 15 comment,
//	16 transcript.
const (
	NumColumns    = 17
	ScoreColumn   = 14
	CommentColumn = 15

	// MaxTranscript bounds the transcript cell.
	MaxTranscript = 1000

	dateLayout = "02.01.2006"
)

// Headers is the fixed header row.
var Headers = []string{
	"Date", "File Name", "Phone", "Branch", "Manager",
	"Greeting (1/0)", "Body Asked (1/0)", "Year Asked (1/0)",
	"Mileage Asked (1/0)", "Upsell Offer (1/0)", "Car History (1/0)",
	"Closing (1/0)", "Service Type", "Result",
	"Score (1-10)", "Comment", "Transcript",
}

// Row maps one analysis into the sheet row. Placeholder columns (phone,
// branch, manager) are not populated by this pipeline and stay "-".
func Row(fileName string, a types.Analysis, now time.Time) []interface{} {
	row := make([]interface{}, NumColumns)
	for i := range row {
		row[i] = "-"
	}

	row[0] = now.Format(dateLayout)
	row[1] = fileName

	for i, f := range a.KPIFlags() {
		row[5+i] = f.Int()
	}

	row[12] = a.ServiceType
	row[13] = a.Result
	row[14] = int(a.ManagerScore)
	row[15] = a.CriticalComment
	row[16] = TruncateTranscript(a.Transcription)

	return row
}

// LowScore decides the red highlight on the score cell. Boundary: 6 is red,
// 7 is not.
func LowScore(score int) bool {
	return score <= 6
}

// TruncateTranscript bounds the transcript to MaxTranscript characters.
// Truncation is by runes so a multibyte transcript never ends mid-character.
func TruncateTranscript(s string) string {
	r := []rune(s)
	if len(r) <= MaxTranscript {
		return s
	}
	return string(r[:MaxTranscript])
}
