// Package sheets appends pipeline results to a Google Sheet through the
// Sheets v4 values API. The integration is optional; the client reports
// itself unavailable when not configured.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/scribeworks/vidscribe/internal/config"
)

// Client appends rows to a configured spreadsheet.
type Client struct {
	baseURL       string
	spreadsheetID string
	sheetName     string
	accessToken   string
	httpClient    *http.Client
}

// NewClient creates a new Sheets client.
func NewClient(cfg config.SheetsConfig) *Client {
	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     cfg.SheetName,
		accessToken:   cfg.AccessToken,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Available reports whether the export integration is configured.
func (c *Client) Available() bool {
	return c.spreadsheetID != "" && c.accessToken != ""
}

// Row is one exported pipeline result.
type Row struct {
	VideoURL   string
	Transcript string
	Summary    string
	Language   string
}

type appendRequest struct {
	Values [][]string `json:"values"`
}

// AppendResult appends one result row to the configured sheet.
func (c *Client) AppendResult(ctx context.Context, row Row) error {
	if !c.Available() {
		return fmt.Errorf("sheets export is not configured")
	}

	endpoint := fmt.Sprintf("%s/spreadsheets/%s/values/%s:append?valueInputOption=USER_ENTERED",
		c.baseURL, url.PathEscape(c.spreadsheetID), url.PathEscape(c.sheetName))

	body, err := json.Marshal(appendRequest{
		Values: [][]string{{
			time.Now().UTC().Format(time.RFC3339),
			row.VideoURL,
			row.Language,
			row.Transcript,
			row.Summary,
		}},
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("append failed (status %d): %s", resp.StatusCode, string(respBody))
	}

	return nil
}
