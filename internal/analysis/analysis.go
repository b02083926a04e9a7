// Package analysis calls the Roboflow-backed trash detection service. The
// score is advisory context for verifiers, never a substitute for the peer
// verification quorum.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

type Result struct {
	Score    int  `json:"score"`
	IsTrashy bool `json:"is_trashy"`
	IsClean  bool `json:"is_clean"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns nil when baseURL is empty; callers treat a nil client as
// "analysis disabled".
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		return nil
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// Analyze uploads one photo to the /analyze endpoint and returns its trash
// score. Transient failures surface as errors; the caller decides whether
// the score is required.
func (c *Client) Analyze(ctx context.Context, filename string, image io.Reader) (*Result, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return nil, fmt.Errorf("build multipart: %w", err)
	}
	if _, err := io.Copy(part, image); err != nil {
		return nil, fmt.Errorf("copy image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analysis request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("analysis service returned %d: %s", resp.StatusCode, string(b))
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode analysis response: %w", err)
	}
	return &result, nil
}
