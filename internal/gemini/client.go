// Package gemini is a small typed client for the Gemini REST API: media
// upload plus generateContent with a JSON response hint. It is owned by the
// analyzer and constructed explicitly, never reached through a global.
package gemini

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// ErrRateLimited marks a 429/quota answer from the API. The analyzer treats
// it as transient capacity and backs off instead of burning a parse retry.
var ErrRateLimited = errors.New("gemini: rate limited")

type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// Option mutates a Client during construction.
type Option func(*Client)

// WithBaseURL points the client at a different host (tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the default timeouted client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 120 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type uploadResponse struct {
	File struct {
		Name     string `json:"name"`
		URI      string `json:"uri"`
		MimeType string `json:"mimeType"`
	} `json:"file"`
}

// UploadFile pushes raw audio bytes to the Files API and returns the file URI
// to reference from a generate call.
func (c *Client) UploadFile(data []byte, mimeType string) (string, error) {
	endpoint := fmt.Sprintf("%s/upload/v1beta/files?uploadType=media&key=%s",
		c.baseURL, url.QueryEscape(c.apiKey))

	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mimeType)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini upload failed: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if err := apiError(resp.StatusCode, body); err != nil {
		return "", fmt.Errorf("gemini upload: %w", err)
	}

	var out uploadResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("gemini upload: decode response: %w body=%s", err, string(body))
	}
	if out.File.URI == "" {
		return "", fmt.Errorf("gemini upload: no file uri in response: %s", string(body))
	}
	return out.File.URI, nil
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text     string    `json:"text,omitempty"`
	FileData *fileData `json:"file_data,omitempty"`
}

type fileData struct {
	FileURI  string `json:"file_uri"`
	MimeType string `json:"mime_type"`
}

type generationConfig struct {
	ResponseMimeType string `json:"response_mime_type,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// GenerateContent sends the uploaded file plus the prompt and returns the raw
// text of the first candidate. The response format hint asks for JSON, but
// callers must still treat the text as untrusted.
func (c *Client) GenerateContent(model, fileURI, mimeType, prompt string) (string, error) {
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.baseURL, url.PathEscape(model), url.QueryEscape(c.apiKey))

	reqBody := generateRequest{
		Contents: []content{{
			Parts: []part{
				{FileData: &fileData{FileURI: fileURI, MimeType: mimeType}},
				{Text: prompt},
			},
		}},
		GenerationConfig: &generationConfig{ResponseMimeType: "application/json"},
	}
	data, _ := json.Marshal(reqBody)

	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini generate failed: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if err := apiError(resp.StatusCode, body); err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	var out generateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("gemini generate: decode response: %w body=%s", err, string(body))
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini generate: empty candidates: %s", string(body))
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}

// apiError classifies a non-2xx answer. 429 and quota language map to
// ErrRateLimited so the caller can distinguish capacity from real failures.
func apiError(status int, body []byte) error {
	if status < 300 {
		return nil
	}
	lower := strings.ToLower(string(body))
	if status == http.StatusTooManyRequests ||
		strings.Contains(lower, "quota") ||
		strings.Contains(lower, "resource_exhausted") {
		return fmt.Errorf("%w: status=%d body=%s", ErrRateLimited, status, string(body))
	}
	return fmt.Errorf("status=%d body=%s", status, string(body))
}
