package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"civicconnect/internal/config"
	"civicconnect/pkg/logger"
)

// ErrNotConfigured means no API key is set.
var ErrNotConfigured = errors.New("assistant not configured")

const systemPrompt = "You are a helpful Civic AI Assistant for the 'Civic Connect' platform. " +
	"Your goal is to help citizens with civic issues, platform navigation, or friendly conversation. " +
	"Be concise and polite."

// Client calls the Gemini generateContent REST endpoint.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

func NewClient(cfg config.AssistantConfig) *Client {
	return &Client{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// buildContents lays out history followed by the prompt. Without history the prompt
// carries the assistant persona inline.
func buildContents(prompt string, history []Turn) []content {
	if len(history) == 0 {
		return []content{{
			Role:  string(RoleUser),
			Parts: []part{{Text: systemPrompt + "\n\nUser: " + prompt}},
		}}
	}

	out := make([]content, 0, len(history)+1)
	for _, t := range history {
		out = append(out, content{Role: string(t.Role), Parts: []part{{Text: t.Text}}})
	}
	return append(out, content{Role: string(RoleUser), Parts: []part{{Text: prompt}}})
}

// Chat sends prompt with prior history and returns the model's reply.
func (c *Client) Chat(ctx context.Context, prompt string, history []Turn) (string, error) {
	if !c.Enabled() {
		return "", ErrNotConfigured
	}

	body, err := json.Marshal(generateRequest{Contents: buildContents(prompt, history)})
	if err != nil {
		return "", fmt.Errorf("assistant: encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimRight(c.baseURL, "/"), url.PathEscape(c.model), url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("assistant: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("assistant: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("assistant: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("assistant: decode json: %w", err)
	}
	logger.LogPerformance("assistant generateContent", time.Since(start), map[string]interface{}{"model": c.model})

	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("assistant: empty response")
	}

	var sb strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}
