package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-resty/resty/v2"
)

const defaultGeminiURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiBackend calls the Gemini generateContent REST endpoint.
type GeminiBackend struct {
	client *resty.Client
	model  string
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// text joins the parts of the first candidate.
func (r geminiResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// NewGemini creates a Gemini backend.
func NewGemini(baseURL, apiKey, modelName string) *GeminiBackend {
	if baseURL == "" {
		baseURL = defaultGeminiURL
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("x-goog-api-key", apiKey)
	return &GeminiBackend{client: client, model: modelName}
}

// Name implements Backend.
func (b *GeminiBackend) Name() string { return "gemini" }

// Generate posts the prompt as a single user turn.
func (b *GeminiBackend) Generate(ctx context.Context, prompt string) (string, error) {
	body := geminiRequest{Contents: []geminiContent{
		{Role: "user", Parts: []geminiPart{{Text: prompt}}},
	}}

	resp, err := b.client.R().
		SetContext(ctx).
		SetBody(body).
		Post("/models/" + b.model + ":generateContent")
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	if resp.IsError() {
		return "", &StatusError{Backend: b.Name(), Code: resp.StatusCode(), Body: truncate(resp.String(), 200)}
	}

	var out geminiResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", fmt.Errorf("parse gemini response: %w", err)
	}
	raw := out.text()
	slog.Debug("LLM response", "backend", b.Name(), "raw", raw)
	if strings.TrimSpace(raw) == "" {
		return "", ErrEmptyResponse
	}
	return raw, nil
}

// truncate keeps at most n runes of s.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
