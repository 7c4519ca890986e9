package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// DriveFile identifies one recording in the source folder.
type DriveFile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ErrorSentinel is the category/verdict value used when the AI could not be parsed.
const ErrorSentinel = "Error"

// Analysis is the normalized result of scoring one call recording.
// Every field has a usable zero value: AI output is untrusted and
// missing keys must default instead of crashing downstream.
type Analysis struct {
	Transcription   string `json:"transcription"`
	ServiceType     string `json:"service_type"`
	ManagerScore    Score  `json:"manager_score"`
	Result          string `json:"result"`
	IsCriticalFail  bool   `json:"is_critical_fail"`
	CriticalComment string `json:"critical_comment"`

	KPIGreeting Flag `json:"kpi_greeting"`
	KPIBody     Flag `json:"kpi_body"`
	KPIYear     Flag `json:"kpi_year"`
	KPIMileage  Flag `json:"kpi_mileage"`
	KPIUpsell   Flag `json:"kpi_upsell"`
	KPIHistory  Flag `json:"kpi_history"`
	KPIClosing  Flag `json:"kpi_closing"`
}

// KPIFlags returns the checklist indicators in sheet column order.
func (a Analysis) KPIFlags() []Flag {
	return []Flag{
		a.KPIGreeting, a.KPIBody, a.KPIYear, a.KPIMileage,
		a.KPIUpsell, a.KPIHistory, a.KPIClosing,
	}
}

// ErrorAnalysis builds the designated error result that flows through the
// normal write path when the AI could not produce a usable answer.
func ErrorAnalysis(msg string) Analysis {
	return Analysis{
		Transcription:   fmt.Sprintf("Error: %s", msg),
		ServiceType:     ErrorSentinel,
		ManagerScore:    0,
		Result:          ErrorSentinel,
		IsCriticalFail:  true,
		CriticalComment: "System Error",
	}
}

// Flag is one KPI checklist indicator. The model is asked for 0/1 but in
// practice returns 0, 1, true, false or the same values quoted, so decoding
// is lenient.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	switch strings.ToLower(s) {
	case "", "0", "false", "null":
		*f = false
	default:
		*f = true
	}
	return nil
}

func (f Flag) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Int())
}

// Int renders the flag the way the sheet expects it.
func (f Flag) Int() int {
	if f {
		return 1
	}
	return 0
}

// Score is the 1-10 manager score, 0 reserved for the error sentinel.
// Decoded leniently: the model sometimes returns "8" or 8.0 instead of 8.
type Score int

func (s *Score) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	if raw == "" || raw == "null" {
		*s = 0
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*s = 0
		return nil
	}
	*s = Score(int(f))
	return nil
}

func (s Score) MarshalJSON() ([]byte, error) {
	return json.Marshal(int(s))
}
