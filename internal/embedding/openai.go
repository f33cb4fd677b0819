package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// #region openai-provider

type openAIProvider struct {
	apiKey  string
	baseURL string
	model   string
	dims    int
	http    *http.Client
}

func newOpenAIFromEnv() Provider {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return nil
	}
	base := os.Getenv("OPENAI_BASE_URL")
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	model := os.Getenv("OPENAI_EMBEDDINGS_MODEL")
	if model == "" {
		model = "text-embedding-3-small"
	}
	dims := envDims("EMBEDDINGS_DIMENSIONS", 1536)
	return &openAIProvider{
		apiKey:  key,
		baseURL: strings.TrimRight(base, "/"),
		model:   model,
		dims:    dims,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *openAIProvider) Name() string    { return "openai" }
func (p *openAIProvider) Dimensions() int { return p.dims }

func (p *openAIProvider) Embed(ctx context.Context, inputs []string) ([]Vector, error) {
	if len(inputs) == 0 {
		return []Vector{}, nil
	}
	body, _ := json.Marshal(map[string]any{
		"model":      p.model,
		"input":      inputs,
		"dimensions": p.dims,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai embed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("openai embed: status %d: %s", resp.StatusCode, string(b))
	}

	var out struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("openai embed decode: %w", err)
	}
	if len(out.Data) != len(inputs) {
		return nil, fmt.Errorf("openai embed: got %d embeddings for %d inputs", len(out.Data), len(inputs))
	}

	vecs := make([]Vector, len(inputs))
	for _, d := range out.Data {
		if d.Index < 0 || d.Index >= len(vecs) {
			return nil, fmt.Errorf("openai embed: index %d out of range", d.Index)
		}
		vecs[d.Index] = Vector(d.Embedding)
	}
	return vecs, nil
}

// #endregion openai-provider
