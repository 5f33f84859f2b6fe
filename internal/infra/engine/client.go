package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/bryanwahyu/jailbreak-firewall/internal/domain/scoring"
)

const (
	DefaultTimeout = 10 * time.Second

	// maxResponseBytes caps how much of an engine reply is read.
	maxResponseBytes = 1 << 20
)

// Client calls the scoring engine's POST /analyze endpoint.
type Client struct {
	http       *http.Client
	analyzeURL string
	healthURL  string
}

// NewClient builds a client for analyzeURL. A nil httpClient gets a fresh one with
// the given timeout (DefaultTimeout when zero).
func NewClient(analyzeURL string, timeout time.Duration, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(analyzeURL)
	if err != nil {
		return nil, fmt.Errorf("parse engine url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("engine url must be http or https, got %q", analyzeURL)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	health := *u
	health.Path = "/health"
	health.RawQuery = ""
	return &Client{http: httpClient, analyzeURL: u.String(), healthURL: health.String()}, nil
}

func (c *Client) Endpoint() string { return c.analyzeURL }

// Score sends one request; every transport or decoding failure is reported as
// scoring.ErrUnavailable.
func (c *Client) Score(ctx context.Context, prompt string) (scoring.Result, error) {
	payload, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return scoring.Result{}, fmt.Errorf("%w: encode request: %v", scoring.ErrUnavailable, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.analyzeURL, bytes.NewReader(payload))
	if err != nil {
		return scoring.Result{}, fmt.Errorf("%w: build request: %v", scoring.ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return scoring.Result{}, fmt.Errorf("%w: %v", scoring.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return scoring.Result{}, fmt.Errorf("%w: read response: %v", scoring.ErrUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Debug().Int("status", resp.StatusCode).Bytes("body", truncate(body, 256)).Msg("engine returned non-2xx")
		return scoring.Result{}, fmt.Errorf("%w: engine returned status %d", scoring.ErrUnavailable, resp.StatusCode)
	}
	return scoring.Parse(body)
}

// Ping checks the engine's GET /health endpoint, which reports {"status":"UP"}
// once its model is loaded.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.healthURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("engine health returned status %d", resp.StatusCode)
	}
	var h struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&h); err != nil {
		return fmt.Errorf("decode engine health: %w", err)
	}
	if h.Status != "" && h.Status != "UP" {
		return fmt.Errorf("engine status %s", h.Status)
	}
	return nil
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
