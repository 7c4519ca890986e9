// Package analyzer turns one downloaded recording into a normalized
// Analysis: upload, prompt, defensive parsing and the retry/backoff policy.
package analyzer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nwrslept/CallAnalyzer/internal/gemini"
	"github.com/nwrslept/CallAnalyzer/internal/types"
)

const (
	// maxParseAttempts bounds retries of a malformed answer.
	maxParseAttempts = 3
	// maxTotalAttempts caps all generate calls for one file, including
	// rate-limit retries, so quota storms cannot loop forever.
	maxTotalAttempts = 6
	// quotaBackoff is how long to sit out a 429 before trying again.
	quotaBackoff = 40 * time.Second
)

// AIClient is the capability the analyzer needs from the AI service.
type AIClient interface {
	UploadFile(data []byte, mimeType string) (string, error)
	GenerateContent(model, fileURI, mimeType, prompt string) (string, error)
}

type Analyzer struct {
	client   AIClient
	model    string
	services []string
	log      *logrus.Entry

	// sleep is swapped out in tests so the quota backoff is observable
	// without waiting.
	sleep func(time.Duration)
}

func New(client AIClient, model string, services []string, log *logrus.Entry) *Analyzer {
	return &Analyzer{
		client:   client,
		model:    model,
		services: services,
		log:      log.WithField("component", "analyzer"),
		sleep:    time.Sleep,
	}
}

// AnalyzeCall uploads the audio and asks the model for a scored evaluation.
// It returns an error only when it could not even attempt the analysis
// (unreadable file, failed upload, a non-retryable API error). When the model
// answers but never produces parseable JSON within the retry budget, the
// designated error Analysis is returned instead so a row still documents the
// failure.
func (a *Analyzer) AnalyzeCall(audioPath string) (types.Analysis, error) {
	data, err := os.ReadFile(audioPath)
	if err != nil {
		return types.Analysis{}, fmt.Errorf("read audio: %w", err)
	}
	mime := mimeForFile(audioPath)

	log := a.log.WithField("audio", filepath.Base(audioPath))
	log.Debug("uploading audio")

	fileURI, err := a.client.UploadFile(data, mime)
	if err != nil {
		return types.Analysis{}, fmt.Errorf("upload audio: %w", err)
	}

	prompt := a.buildPrompt()

	parseFails := 0
	for attempt := 1; attempt <= maxTotalAttempts && parseFails < maxParseAttempts; attempt++ {
		raw, err := a.client.GenerateContent(a.model, fileURI, mime, prompt)
		if err != nil {
			if errors.Is(err, gemini.ErrRateLimited) {
				log.WithField("attempt", attempt).
					Warnf("api quota exhausted, waiting %s", quotaBackoff)
				a.sleep(quotaBackoff)
				continue
			}
			return types.Analysis{}, fmt.Errorf("generate: %w", err)
		}

		res, err := parseAnalysis(raw)
		if err != nil {
			parseFails++
			log.WithField("attempt", attempt).WithField("error", err.Error()).
				Warn("unparseable model answer, retrying")
			continue
		}
		return res, nil
	}

	log.Error("giving up after retry budget, writing error result")
	return types.ErrorAnalysis("could not analyze the file after all attempts"), nil
}

func (a *Analyzer) buildPrompt() string {
	return fmt.Sprintf(`You are a QA reviewer for a car service call center. Analyze the attached phone call.

1. Transcribe the call verbatim.
2. Service type: EXACTLY ONE of [%s].
3. KPI checklist (1 = yes, 0 = no):
   - Did the manager greet the client?
   - Did they ask for the car BODY type?
   - Did they ask for the YEAR?
   - Did they ask for the MILEAGE?
   - Did they offer a diagnostic (upsell)?
   - Did they check the car history?
   - Did they close the call properly?
4. Overall manager score (1-10).
5. Result: one of booked / undecided / declined.
6. Critical service errors, if any, with a short explanation.

Output format: pure JSON object, no markdown.
Keys: transcription, service_type, manager_score, result, is_critical_fail, critical_comment, kpi_greeting, kpi_body, kpi_year, kpi_mileage, kpi_upsell, kpi_history, kpi_closing.`,
		strings.Join(a.services, ", "))
}

func mimeForFile(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		return "audio/wav"
	}
	return "audio/mp3"
}
