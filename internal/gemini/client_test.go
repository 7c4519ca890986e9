package gemini_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nwrslept/CallAnalyzer/internal/gemini"
)

func TestUploadFile(t *testing.T) {
	var gotMime string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		gotMime = r.Header.Get("Content-Type")
		json.NewEncoder(w).Encode(map[string]any{
			"file": map[string]any{"name": "files/abc", "uri": "https://files/abc"},
		})
	}))
	defer srv.Close()

	c := gemini.New("key", gemini.WithBaseURL(srv.URL))
	uri, err := c.UploadFile([]byte("audio-bytes"), "audio/mp3")
	require.NoError(t, err)
	assert.Equal(t, "https://files/abc", uri)
	assert.Equal(t, "audio/mp3", gotMime)
}

func TestUploadFileMissingURI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := gemini.New("key", gemini.WithBaseURL(srv.URL))
	_, err := c.UploadFile([]byte("x"), "audio/mp3")
	assert.Error(t, err)
}

func TestGenerateContent(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{
					"parts": []any{map[string]any{"text": `{"ok":1}`}},
				},
			}},
		})
	}))
	defer srv.Close()

	c := gemini.New("key", gemini.WithBaseURL(srv.URL))
	text, err := c.GenerateContent("gemini-2.0-flash", "https://files/abc", "audio/mp3", "analyze this")
	require.NoError(t, err)
	assert.Equal(t, `{"ok":1}`, text)

	// the structured-output hint must always be sent
	gc, ok := gotBody["generationConfig"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "application/json", gc["response_mime_type"])
}

func TestGenerateContentEmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	c := gemini.New("key", gemini.WithBaseURL(srv.URL))
	_, err := c.GenerateContent("m", "u", "audio/mp3", "p")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, gemini.ErrRateLimited))
}

func TestRateLimitDetection(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   bool
	}{
		{"http 429", http.StatusTooManyRequests, `{"error":"slow down"}`, true},
		{"quota keyword", http.StatusBadRequest, `{"error":"Quota exceeded for requests"}`, true},
		{"resource exhausted", http.StatusServiceUnavailable, `{"error":{"status":"RESOURCE_EXHAUSTED"}}`, true},
		{"plain server error", http.StatusInternalServerError, `{"error":"boom"}`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := gemini.New("key", gemini.WithBaseURL(srv.URL))
			_, err := c.GenerateContent("m", "u", "audio/mp3", "p")
			require.Error(t, err)
			assert.Equal(t, tc.want, errors.Is(err, gemini.ErrRateLimited))
		})
	}
}
