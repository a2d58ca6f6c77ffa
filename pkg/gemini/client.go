// Package gemini is a hand-rolled client for the Google Generative
// Language REST API: audio transcription, prompt expansion, image
// generation and Veo long-running video generation.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/scribeworks/vidscribe/internal/config"
	"github.com/scribeworks/vidscribe/internal/domain"
)

// Client issues requests against the Generative Language API. API keys
// are supplied per call because they belong to the caller, not the server.
type Client struct {
	baseURL    string
	model      string
	textModel  string
	imageModel string
	videoModel string
	httpClient *http.Client
}

// NewClient creates a new Gemini API client.
func NewClient(cfg config.GeminiConfig) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		textModel:  cfg.TextModel,
		imageModel: cfg.ImageModel,
		videoModel: cfg.VideoModel,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// generateContent request/response shapes (REST API).

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"` // base64
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// TranscribeRequest describes one transcription call.
type TranscribeRequest struct {
	AudioPath string
	APIKey    string
	Model     string // defaults to the configured model
	Language  string // "ru", "en" or "auto"
}

// TranscribeResult carries the transcript and its summary.
type TranscribeResult struct {
	Transcript string
	Summary    string
}

var transcribePrompts = map[string]string{
	"ru":   "Транскрибируй это аудио на русском языке. Сохрани все детали и нюансы. Выдай только текст транскрибации, без комментариев.",
	"en":   "Transcribe this audio in English. Keep all details and nuances. Output only the transcript text, no commentary.",
	"auto": "Transcribe this audio in its original language. Keep all details. Output only the transcript text, no commentary.",
}

var summaryPrompts = map[string]string{
	"ru":   "На основе этой транскрибации создай краткое саммари на русском языке (3-5 предложений, основные тезисы):\n\n",
	"en":   "Based on this transcript, write a short summary in English (3-5 sentences covering the main points):\n\n",
	"auto": "Based on this transcript, write a short summary in its original language (3-5 sentences covering the main points):\n\n",
}

// Transcribe sends the audio inline to the model and asks for a
// transcript, then a summary of that transcript in a second call.
func (c *Client) Transcribe(ctx context.Context, req TranscribeRequest) (*TranscribeResult, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	audio, err := os.ReadFile(req.AudioPath)
	if err != nil {
		return nil, fmt.Errorf("read audio file: %w", err)
	}

	prompt, ok := transcribePrompts[req.Language]
	if !ok {
		prompt = transcribePrompts["auto"]
	}

	transcript, err := c.generate(ctx, model, req.APIKey, generateRequest{
		Contents: []content{{
			Parts: []part{
				{InlineData: &inlineData{
					MimeType: "audio/mp3",
					Data:     base64.StdEncoding.EncodeToString(audio),
				}},
				{Text: prompt},
			},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("transcription: %w", err)
	}
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil, fmt.Errorf("transcription: empty response")
	}

	summaryPrompt, ok := summaryPrompts[req.Language]
	if !ok {
		summaryPrompt = summaryPrompts["auto"]
	}

	summary, err := c.generate(ctx, model, req.APIKey, generateRequest{
		Contents: []content{{
			Parts: []part{{Text: summaryPrompt + transcript}},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}

	return &TranscribeResult{
		Transcript: transcript,
		Summary:    strings.TrimSpace(summary),
	}, nil
}

const expandPromptTemplate = `You are an expert at creating prompts for image generation.
Based on this description, create a detailed English prompt for generating a professional infographic:

DESCRIPTION:
%s

Create a detailed prompt that describes:
1. Visual style (colors, layout, typography)
2. Specific elements to include
3. Composition and arrangement
4. Professional quality indicators

Output ONLY the image generation prompt, nothing else. Make it detailed but under 200 words.`

// ExpandPrompt turns a short user description into a detailed image
// generation prompt using the fast text model.
func (c *Client) ExpandPrompt(ctx context.Context, description, apiKey string) (string, error) {
	text, err := c.generate(ctx, c.textModel, apiKey, generateRequest{
		Contents: []content{{
			Parts: []part{{Text: fmt.Sprintf(expandPromptTemplate, description)}},
		}},
	})
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", domain.ErrPromptExpansionFailed
	}
	return text, nil
}

// GeneratedImage is one image returned by the image model.
type GeneratedImage struct {
	Data     []byte
	MimeType string
}

// GenerateImage asks the image model to render the prompt. Overload and
// quota responses are mapped to their sentinel errors so callers can
// decide whether to retry.
func (c *Client) GenerateImage(ctx context.Context, prompt, apiKey string) (*GeneratedImage, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{
			Parts: []part{{Text: prompt}},
		}},
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"IMAGE", "TEXT"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	respBody, err := c.post(ctx, c.modelURL(c.imageModel, "generateContent", apiKey), body)
	if err != nil {
		return nil, err
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	for _, cand := range parsed.Candidates {
		for _, p := range cand.Content.Parts {
			if p.InlineData == nil {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("decode image data: %w", err)
			}
			mime := p.InlineData.MimeType
			if mime == "" {
				mime = "image/png"
			}
			return &GeneratedImage{Data: data, MimeType: mime}, nil
		}
	}

	return nil, domain.ErrGenerationEmpty
}

// generate performs one generateContent call and returns the first text part.
func (c *Client) generate(ctx context.Context, model, apiKey string, req generateRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	respBody, err := c.post(ctx, c.modelURL(model, "generateContent", apiKey), body)
	if err != nil {
		return "", err
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	for _, cand := range parsed.Candidates {
		for _, p := range cand.Content.Parts {
			if p.Text != "" {
				return p.Text, nil
			}
		}
	}

	return "", nil
}

func (c *Client) modelURL(model, method, apiKey string) string {
	return fmt.Sprintf("%s/models/%s:%s?key=%s", c.baseURL, model, method, url.QueryEscape(apiKey))
}

// post sends a JSON body and classifies provider status codes.
func (c *Client) post(ctx context.Context, endpoint string, body []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

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
		return nil, classifyStatus(resp.StatusCode, respBody)
	}

	return respBody, nil
}

// classifyStatus maps provider status codes to sentinel errors.
func classifyStatus(status int, body []byte) error {
	switch status {
	case http.StatusServiceUnavailable:
		return domain.ErrModelOverloaded
	case http.StatusTooManyRequests:
		return domain.ErrQuotaExceeded
	}

	var parsed apiError
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return fmt.Errorf("API error (status %d): %s", status, parsed.Error.Message)
	}
	return fmt.Errorf("API error (status %d): %s", status, string(body))
}

// defaultTimeout guards artifact fetches, which use a separate budget
// from generation calls.
const fetchTimeout = 60 * time.Second
