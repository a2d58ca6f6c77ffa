package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// VideoRequest describes one Veo video generation submission.
type VideoRequest struct {
	Prompt      string
	ImageBytes  []byte // optional seed frame for image-to-video
	ImageMime   string
	Model       string // defaults to the configured video model
	AspectRatio string // "16:9" or "9:16"
	APIKey      string
}

// Operation is the provider-side handle of a long-running generation job.
type Operation struct {
	Name     string          `json:"name"`
	Done     bool            `json:"done"`
	Error    *OperationError `json:"error,omitempty"`
	Response *VideoResult    `json:"response,omitempty"`
}

// OperationError is the error field of a finished operation.
type OperationError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("operation error %d: %s", e.Code, e.Message)
}

// VideoResult is the response payload of a finished video operation.
type VideoResult struct {
	GenerateVideoResponse VideoResponsePayload `json:"generateVideoResponse"`
}

// VideoResponsePayload carries the generated samples and safety filter
// counters of a Veo operation.
type VideoResponsePayload struct {
	GeneratedSamples        []GeneratedSample `json:"generatedSamples"`
	RAIMediaFilteredCount   int               `json:"raiMediaFilteredCount"`
	RAIMediaFilteredReasons []string          `json:"raiMediaFilteredReasons"`
}

// GeneratedSample is one generated video artifact.
type GeneratedSample struct {
	Video VideoFile `json:"video"`
}

// VideoFile points at a downloadable artifact.
type VideoFile struct {
	URI string `json:"uri"`
}

// VideoURIs returns the URIs of the generated artifacts.
func (r *VideoResult) VideoURIs() []string {
	var uris []string
	for _, s := range r.GenerateVideoResponse.GeneratedSamples {
		if s.Video.URI != "" {
			uris = append(uris, s.Video.URI)
		}
	}
	return uris
}

// FilteredReasons returns safety filter reasons, or nil when nothing was filtered.
func (r *VideoResult) FilteredReasons() []string {
	if r.GenerateVideoResponse.RAIMediaFilteredCount == 0 {
		return nil
	}
	return r.GenerateVideoResponse.RAIMediaFilteredReasons
}

type videoInstance struct {
	Prompt string      `json:"prompt,omitempty"`
	Image  *videoImage `json:"image,omitempty"`
}

type videoImage struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType"`
}

type videoParameters struct {
	AspectRatio      string `json:"aspectRatio,omitempty"`
	NumberOfVideos   int    `json:"sampleCount,omitempty"`
	PersonGeneration string `json:"personGeneration,omitempty"`
}

type submitVideoRequest struct {
	Instances  []videoInstance `json:"instances"`
	Parameters videoParameters `json:"parameters"`
}

// SubmitVideo starts a Veo generation job and returns its operation
// handle. Overload (503) and quota (429) responses are mapped to the
// sentinel errors so the caller can retry or abort.
func (c *Client) SubmitVideo(ctx context.Context, req VideoRequest) (*Operation, error) {
	model := req.Model
	if model == "" {
		model = c.videoModel
	}

	instance := videoInstance{Prompt: req.Prompt}
	if len(req.ImageBytes) > 0 {
		mime := req.ImageMime
		if mime == "" {
			mime = "image/jpeg"
		}
		instance.Image = &videoImage{
			BytesBase64Encoded: base64.StdEncoding.EncodeToString(req.ImageBytes),
			MimeType:           mime,
		}
	}

	body, err := json.Marshal(submitVideoRequest{
		Instances: []videoInstance{instance},
		Parameters: videoParameters{
			AspectRatio:      req.AspectRatio,
			NumberOfVideos:   1,
			PersonGeneration: "allow_adult",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	respBody, err := c.post(ctx, c.modelURL(model, "predictLongRunning", req.APIKey), body)
	if err != nil {
		return nil, err
	}

	var op Operation
	if err := json.Unmarshal(respBody, &op); err != nil {
		return nil, fmt.Errorf("unmarshal operation: %w", err)
	}
	if op.Name == "" {
		return nil, fmt.Errorf("submit returned no operation name")
	}

	return &op, nil
}

// GetOperation refreshes the state of a long-running operation.
func (c *Client) GetOperation(ctx context.Context, name, apiKey string) (*Operation, error) {
	endpoint := fmt.Sprintf("%s/%s?key=%s", c.baseURL, strings.TrimPrefix(name, "/"), url.QueryEscape(apiKey))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

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

	var op Operation
	if err := json.Unmarshal(respBody, &op); err != nil {
		return nil, fmt.Errorf("unmarshal operation: %w", err)
	}

	return &op, nil
}

// FetchVideo downloads a generated artifact via its authenticated URI.
func (c *Client) FetchVideo(ctx context.Context, uri, apiKey string) ([]byte, error) {
	sep := "?"
	if strings.Contains(uri, "?") {
		sep = "&"
	}
	authenticated := uri + sep + "key=" + url.QueryEscape(apiKey)

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, authenticated, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch video: unexpected status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
