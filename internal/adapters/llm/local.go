// Package llm provides text generation adapters.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"doctalk/internal/domain/entities"
)

// LocalAdapter implements ports.Generator against a local generation
// endpoint (Ollama, TGI and similar servers). Different backends name the
// answer field differently; the adapter tries each known shape in priority
// order and fails with ErrMalformedGeneratorResponse when none is present.
type LocalAdapter struct {
	baseURL string
	path    string
	model   string
	client  *http.Client
}

// NewLocalAdapter creates a local generator adapter.
func NewLocalAdapter(baseURL, path, model string, timeout time.Duration) *LocalAdapter {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if path == "" {
		path = "/api/generate"
	}
	if model == "" {
		model = "llama3.2"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &LocalAdapter{
		baseURL: baseURL,
		path:    path,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

type localGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// localGenerateResponse covers the response-shape conventions of the
// supported backends: a plain generated-text field, a list of reply
// strings, or a list of text fragments.
type localGenerateResponse struct {
	GeneratedText string   `json:"generated_text"`
	Response      string   `json:"response"`
	Replies       []string `json:"replies"`
	Text          []string `json:"text"`
}

// Generate produces an answer for the prompt.
func (a *LocalAdapter) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(localGenerateRequest{Model: a.model, Prompt: prompt, Stream: false})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+a.path, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling generator: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("generator returned status %d", resp.StatusCode)
	}

	var genResp localGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	return extractAnswer(genResp)
}

// extractAnswer picks the first usable string from the known fields, in
// priority order.
func extractAnswer(resp localGenerateResponse) (string, error) {
	switch {
	case resp.GeneratedText != "":
		return resp.GeneratedText, nil
	case resp.Response != "":
		return resp.Response, nil
	case len(resp.Replies) > 0 && resp.Replies[0] != "":
		return resp.Replies[0], nil
	case len(resp.Text) > 0 && resp.Text[0] != "":
		return resp.Text[0], nil
	default:
		return "", entities.ErrMalformedGeneratorResponse
	}
}
