package analyzer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nwrslept/CallAnalyzer/internal/gemini"
	"github.com/nwrslept/CallAnalyzer/internal/logger"
	"github.com/nwrslept/CallAnalyzer/internal/types"
)

// fakeAI scripts the generate answers; each call pops the next one.
type fakeAI struct {
	uploadErr error
	answers   []answer
	calls     int
}

type answer struct {
	text string
	err  error
}

func (f *fakeAI) UploadFile(data []byte, mimeType string) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return "files/fake", nil
}

func (f *fakeAI) GenerateContent(model, fileURI, mimeType, prompt string) (string, error) {
	if f.calls >= len(f.answers) {
		return "", fmt.Errorf("unexpected generate call %d", f.calls+1)
	}
	a := f.answers[f.calls]
	f.calls++
	return a.text, a.err
}

func newTestAnalyzer(t *testing.T, ai *fakeAI) (*Analyzer, *[]time.Duration) {
	t.Helper()
	a := New(ai, "gemini-2.0-flash", []string{"diagnostics", "other"}, logger.New().Entry)
	var slept []time.Duration
	a.sleep = func(d time.Duration) { slept = append(slept, d) }
	return a, &slept
}

func writeAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "call.mp3")
	require.NoError(t, os.WriteFile(path, []byte("fake audio"), 0644))
	return path
}

func TestAnalyzeCallHappyPath(t *testing.T) {
	ai := &fakeAI{answers: []answer{{text: validObject}}}
	a, slept := newTestAnalyzer(t, ai)

	res, err := a.AnalyzeCall(writeAudio(t))
	require.NoError(t, err)
	assert.Equal(t, types.Score(7), res.ManagerScore)
	assert.Equal(t, 1, ai.calls)
	assert.Empty(t, *slept)
}

func TestAnalyzeCallRetryBudget(t *testing.T) {
	// two malformed answers, then a valid one: third attempt wins
	ai := &fakeAI{answers: []answer{
		{text: "not json"},
		{text: "{broken"},
		{text: validObject},
	}}
	a, _ := newTestAnalyzer(t, ai)

	res, err := a.AnalyzeCall(writeAudio(t))
	require.NoError(t, err)
	assert.Equal(t, "booked", res.Result)
	assert.Equal(t, 3, ai.calls)
}

func TestAnalyzeCallExhaustedRetriesReturnsErrorResult(t *testing.T) {
	ai := &fakeAI{answers: []answer{
		{text: "bad"}, {text: "bad"}, {text: "bad"},
	}}
	a, _ := newTestAnalyzer(t, ai)

	res, err := a.AnalyzeCall(writeAudio(t))
	require.NoError(t, err, "exhausted retries must not be a hard failure")
	assert.Equal(t, types.ErrorSentinel, res.ServiceType)
	assert.True(t, res.IsCriticalFail)
	assert.Equal(t, types.Score(0), res.ManagerScore)
	assert.Equal(t, 3, ai.calls)
}

func TestAnalyzeCallQuotaBackoff(t *testing.T) {
	ai := &fakeAI{answers: []answer{
		{err: fmt.Errorf("generate: %w", gemini.ErrRateLimited)},
		{text: validObject},
	}}
	a, slept := newTestAnalyzer(t, ai)

	res, err := a.AnalyzeCall(writeAudio(t))
	require.NoError(t, err)
	assert.Equal(t, "booked", res.Result)
	require.Len(t, *slept, 1)
	assert.Equal(t, quotaBackoff, (*slept)[0])
	assert.LessOrEqual(t, ai.calls, maxTotalAttempts)
}

func TestAnalyzeCallQuotaStormIsCapped(t *testing.T) {
	var answers []answer
	for i := 0; i < maxTotalAttempts+5; i++ {
		answers = append(answers, answer{err: gemini.ErrRateLimited})
	}
	ai := &fakeAI{answers: answers}
	a, slept := newTestAnalyzer(t, ai)

	res, err := a.AnalyzeCall(writeAudio(t))
	require.NoError(t, err)
	assert.Equal(t, types.ErrorSentinel, res.Result)
	assert.Equal(t, maxTotalAttempts, ai.calls)
	assert.Len(t, *slept, maxTotalAttempts)
}

func TestAnalyzeCallHardErrorPropagates(t *testing.T) {
	ai := &fakeAI{answers: []answer{{err: errors.New("invalid api key")}}}
	a, _ := newTestAnalyzer(t, ai)

	_, err := a.AnalyzeCall(writeAudio(t))
	assert.Error(t, err)
	assert.Equal(t, 1, ai.calls)
}

func TestAnalyzeCallUploadFailure(t *testing.T) {
	ai := &fakeAI{uploadErr: errors.New("network down")}
	a, _ := newTestAnalyzer(t, ai)

	_, err := a.AnalyzeCall(writeAudio(t))
	assert.Error(t, err)
}

func TestAnalyzeCallUnreadableFile(t *testing.T) {
	ai := &fakeAI{}
	a, _ := newTestAnalyzer(t, ai)

	_, err := a.AnalyzeCall(filepath.Join(t.TempDir(), "missing.mp3"))
	assert.Error(t, err)
}

func TestBuildPromptContainsContract(t *testing.T) {
	a, _ := newTestAnalyzer(t, &fakeAI{})
	p := a.buildPrompt()

	assert.Contains(t, p, "diagnostics, other")
	for _, key := range []string{
		"transcription", "service_type", "manager_score", "result",
		"is_critical_fail", "critical_comment",
		"kpi_greeting", "kpi_body", "kpi_year", "kpi_mileage",
		"kpi_upsell", "kpi_history", "kpi_closing",
	} {
		assert.Contains(t, p, key)
	}
}

func TestMimeForFile(t *testing.T) {
	assert.Equal(t, "audio/wav", mimeForFile("call.WAV"))
	assert.Equal(t, "audio/mp3", mimeForFile("call.mp3"))
	assert.Equal(t, "audio/mp3", mimeForFile("call"))
}
