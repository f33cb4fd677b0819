package gloss

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Package gloss hands emitted non-default tokens to the external
// glossing/translation lookup. The pipeline never computes glosses itself;
// lookups are best-effort and their failure only gets logged.

// #region types

// Entry is one gloss returned by the lookup service.
type Entry struct {
	Token string `json:"token"`
	Vocab string `json:"vocab"`
	Gloss string `json:"gloss"`
}

// Config holds gloss lookup parameters.
type Config struct {
	Endpoint string
	Timeout  time.Duration
	Enabled  bool
}

// DefaultConfig reads gloss configuration from env vars: GLOSS_ENDPOINT,
// GLOSS_TIMEOUT. An empty endpoint disables lookups.
func DefaultConfig() Config {
	cfg := Config{
		Timeout: 5 * time.Second,
	}
	if v := os.Getenv("GLOSS_ENDPOINT"); v != "" {
		cfg.Endpoint = v
		cfg.Enabled = true
	}
	if v := os.Getenv("GLOSS_TIMEOUT"); v != "" {
		if sec, err := strconv.Atoi(v); err == nil && sec > 0 {
			cfg.Timeout = time.Duration(sec) * time.Second
		}
	}
	return cfg
}

// #endregion types

// #region client

// Client issues gloss requests over HTTP/JSON.
type Client struct {
	config Config
	http   *http.Client
}

// NewClient creates a gloss client. A disabled config yields a client whose
// Lookup is a no-op.
func NewClient(config Config) *Client {
	return &Client{
		config: config,
		http:   &http.Client{Timeout: config.Timeout},
	}
}

// Lookup requests a gloss for one emitted token. Returns nil for a disabled
// client; errors are the caller's to log, never to act on.
func (c *Client) Lookup(ctx context.Context, token, vocab string) (*Entry, error) {
	if !c.config.Enabled {
		return nil, nil
	}
	body, _ := json.Marshal(map[string]string{"token": token, "vocab": vocab})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(c.config.Endpoint, "/")+"/v1/gloss", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gloss lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("gloss lookup: status %d: %s", resp.StatusCode, string(b))
	}

	var e Entry
	if err := json.NewDecoder(resp.Body).Decode(&e); err != nil {
		return nil, fmt.Errorf("gloss decode: %w", err)
	}
	return &e, nil
}

// LookupAsync fires a lookup in the background and logs the outcome. Used on
// the decode path, where gloss latency must never stall a step.
func (c *Client) LookupAsync(token, vocab string) {
	if !c.config.Enabled {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.config.Timeout)
		defer cancel()
		e, err := c.Lookup(ctx, token, vocab)
		if err != nil {
			log.Printf("[GLOSS] lookup failed for %q (%s): %v", token, vocab, err)
			return
		}
		if e != nil && e.Gloss != "" {
			log.Printf("[GLOSS] %q (%s) -> %s", token, vocab, e.Gloss)
		}
	}()
}

// #endregion client
