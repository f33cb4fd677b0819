package decoder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// #region types

// TokenScore is one native top-K candidate from the decoder.
type TokenScore struct {
	Token string  `json:"token"`
	Logit float64 `json:"logit"`
}

// StepRequest asks the decoder sidecar for one decoding step. ChosenToken
// feeds back the previous step's emission decision so the sidecar can extend
// its context with what was actually surfaced.
type StepRequest struct {
	SessionID   string `json:"session_id"`
	Prompt      string `json:"prompt,omitempty"`
	ChosenToken string `json:"chosen_token,omitempty"`
	TopK        int    `json:"top_k"`
}

// StepResult is the sidecar's per-step output: native top-K with logits, the
// recent context tokens (most-recent-last) for intent building, and the
// entropy of the full distribution when the sidecar computes it. Probs is the
// optional probability distribution over the top-K, used as an entropy
// fallback when the sidecar sends no explicit value.
type StepResult struct {
	Context []string     `json:"context"`
	TopK    []TokenScore `json:"top_k"`
	Probs   []float64    `json:"probs,omitempty"`
	Entropy *float64     `json:"entropy,omitempty"`
	Done    bool         `json:"done"`
}

// #endregion types

// #region client

// Client talks to the decoder sidecar over HTTP/JSON.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the sidecar at addr (scheme optional).
func NewClient(addr string, timeout time.Duration) *Client {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(addr, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// #endregion client

// #region step

// Step requests the next decoding step for a session.
func (c *Client) Step(ctx context.Context, req StepRequest) (StepResult, error) {
	var res StepResult
	if err := c.post(ctx, "/v1/step", req, &res); err != nil {
		return StepResult{}, fmt.Errorf("step: %w", err)
	}
	return res, nil
}

// Reset clears the sidecar's context for a session.
func (c *Client) Reset(ctx context.Context, sessionID string) error {
	if err := c.post(ctx, "/v1/reset", map[string]string{"session_id": sessionID}, nil); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	return nil
}

// #endregion step

// #region http

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// #endregion http
