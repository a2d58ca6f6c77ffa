package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/scribeworks/vidscribe/internal/config"
	"github.com/scribeworks/vidscribe/internal/domain"
)

func newTestClient(baseURL string) *Client {
	return NewClient(config.GeminiConfig{
		BaseURL:    baseURL,
		Model:      "gemini-2.5-flash",
		TextModel:  "gemini-2.0-flash",
		ImageModel: "gemini-2.5-flash-image",
		VideoModel: "veo-3.0-fast-generate-001",
		Timeout:    5 * time.Second,
	})
}

func textBody(text string) string {
	return `{"candidates":[{"content":{"parts":[{"text":` + strconv.Quote(text) + `}]}}]}`
}

func writeAudioFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "a.mp3")
	if err := os.WriteFile(path, []byte("fake-audio"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return path
}

func TestTranscribe(t *testing.T) {
	calls := 0
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		paths = append(paths, r.URL.Path)

		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		switch calls {
		case 1:
			// First call carries the inline audio
			if req.Contents[0].Parts[0].InlineData == nil {
				t.Error("first call should carry inline audio data")
			}
			w.Write([]byte(textBody("the transcript")))
		case 2:
			// Second call summarizes the transcript text
			if !strings.Contains(req.Contents[0].Parts[0].Text, "the transcript") {
				t.Error("summary prompt should contain the transcript")
			}
			w.Write([]byte(textBody("the summary")))
		}
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	result, err := c.Transcribe(context.Background(), TranscribeRequest{
		AudioPath: writeAudioFile(t),
		APIKey:    "test-key",
		Language:  "en",
	})
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}

	if result.Transcript != "the transcript" {
		t.Errorf("Transcript = %q", result.Transcript)
	}
	if result.Summary != "the summary" {
		t.Errorf("Summary = %q", result.Summary)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if !strings.Contains(paths[0], "models/gemini-2.5-flash:generateContent") {
		t.Errorf("path = %q, want default model", paths[0])
	}
}

func TestTranscribe_ModelOverride(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if path == "" {
			path = r.URL.Path
		}
		w.Write([]byte(textBody("text")))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.Transcribe(context.Background(), TranscribeRequest{
		AudioPath: writeAudioFile(t),
		APIKey:    "test-key",
		Model:     "gemini-custom",
	})
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if !strings.Contains(path, "models/gemini-custom:") {
		t.Errorf("path = %q, want overridden model", path)
	}
}

func TestTranscribe_EmptyTranscript(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(textBody("   ")))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.Transcribe(context.Background(), TranscribeRequest{
		AudioPath: writeAudioFile(t),
		APIKey:    "test-key",
	})
	if err == nil || !strings.Contains(err.Error(), "empty response") {
		t.Errorf("err = %v, want empty response error", err)
	}
}

func TestTranscribe_MissingAudioFile(t *testing.T) {
	c := newTestClient("http://unused.invalid")

	_, err := c.Transcribe(context.Background(), TranscribeRequest{
		AudioPath: "/no/such/file.mp3",
		APIKey:    "test-key",
	})
	if err == nil {
		t.Fatal("expected error for missing audio file")
	}
}

func TestExpandPrompt(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path

		var req generateRequest
		json.NewDecoder(r.Body).Decode(&req)
		if !strings.Contains(req.Contents[0].Parts[0].Text, "quarterly sales") {
			t.Error("expansion prompt should contain the description")
		}

		w.Write([]byte(textBody("A clean modern infographic...")))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	prompt, err := c.ExpandPrompt(context.Background(), "quarterly sales", "test-key")
	if err != nil {
		t.Fatalf("ExpandPrompt failed: %v", err)
	}
	if prompt != "A clean modern infographic..." {
		t.Errorf("prompt = %q", prompt)
	}
	if !strings.Contains(path, "models/gemini-2.0-flash:") {
		t.Errorf("path = %q, want text model", path)
	}
}

func TestExpandPrompt_Empty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.ExpandPrompt(context.Background(), "desc", "test-key")
	if !errors.Is(err, domain.ErrPromptExpansionFailed) {
		t.Errorf("err = %v, want ErrPromptExpansionFailed", err)
	}
}

func TestGenerateImage(t *testing.T) {
	imageBytes := []byte{0x89, 0x50, 0x4E, 0x47}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "models/gemini-2.5-flash-image:") {
			t.Errorf("path = %q, want image model", r.URL.Path)
		}

		body := `{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"image/png","data":"` +
			base64.StdEncoding.EncodeToString(imageBytes) + `"}}]}}]}`
		w.Write([]byte(body))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	img, err := c.GenerateImage(context.Background(), "a chart", "test-key")
	if err != nil {
		t.Fatalf("GenerateImage failed: %v", err)
	}
	if img.MimeType != "image/png" {
		t.Errorf("MimeType = %q", img.MimeType)
	}
	if len(img.Data) != len(imageBytes) {
		t.Errorf("Data = %d bytes, want %d", len(img.Data), len(imageBytes))
	}
}

func TestGenerateImage_NoInlineData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(textBody("sorry, text only")))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.GenerateImage(context.Background(), "a chart", "test-key")
	if !errors.Is(err, domain.ErrGenerationEmpty) {
		t.Errorf("err = %v, want ErrGenerationEmpty", err)
	}
}

func TestGenerateImage_Overloaded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.GenerateImage(context.Background(), "a chart", "test-key")
	if !errors.Is(err, domain.ErrModelOverloaded) {
		t.Errorf("err = %v, want ErrModelOverloaded", err)
	}
}

func TestGenerateImage_Quota(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.GenerateImage(context.Background(), "a chart", "test-key")
	if !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Errorf("err = %v, want ErrQuotaExceeded", err)
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"overloaded", http.StatusServiceUnavailable, "", domain.ErrModelOverloaded},
		{"quota", http.StatusTooManyRequests, "", domain.ErrQuotaExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyStatus(tt.status, []byte(tt.body))
			if !errors.Is(err, tt.want) {
				t.Errorf("classifyStatus(%d) = %v, want %v", tt.status, err, tt.want)
			}
		})
	}
}

func TestClassifyStatus_APIErrorMessage(t *testing.T) {
	body := `{"error":{"code":400,"message":"invalid argument","status":"INVALID_ARGUMENT"}}`
	err := classifyStatus(http.StatusBadRequest, []byte(body))
	if err == nil || !strings.Contains(err.Error(), "invalid argument") {
		t.Errorf("err = %v, want parsed API message", err)
	}
}
