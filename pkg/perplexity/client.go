// Package perplexity is a client for the Perplexity chat completions
// API, used to verify factual claims in transcripts.
package perplexity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/scribeworks/vidscribe/internal/config"
	"github.com/scribeworks/vidscribe/internal/domain"
)

// Client issues fact-check requests against the Perplexity API.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewClient creates a new Perplexity client.
func NewClient(cfg config.PerplexityConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Result is the structured outcome of a fact check.
type Result struct {
	Analysis  string   `json:"analysis"`
	Citations []string `json:"citations,omitempty"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Citations []string `json:"citations"`
	Error     *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

var systemPrompts = map[string]string{
	"ru": "Ты проверяешь факты. Проанализируй утверждения в тексте, отметь каждое как подтверждённое, спорное или ложное, и кратко объясни почему, со ссылками на источники.",
	"en": "You are a fact checker. Analyze the claims in the text, mark each as confirmed, disputed or false, and briefly explain why, citing sources.",
}

// VerifyFacts checks the factual claims of a transcript and returns the
// provider's analysis together with its citations.
func (c *Client) VerifyFacts(ctx context.Context, transcript, apiKey, language string) (*Result, error) {
	system, ok := systemPrompts[language]
	if !ok {
		system = systemPrompts["en"]
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: transcript},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrFactCheckFailed, resp.StatusCode, string(respBody))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrFactCheckFailed, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty response", domain.ErrFactCheckFailed)
	}

	return &Result{
		Analysis:  parsed.Choices[0].Message.Content,
		Citations: parsed.Citations,
	}, nil
}
