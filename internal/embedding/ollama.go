package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"time"
)

// #region ollama-provider

type ollamaProvider struct {
	host  string
	model string
	dims  int
	http  *http.Client
}

func newOllamaFromEnv() Provider {
	host := os.Getenv("OLLAMA_HOST")
	if host == "" {
		return nil
	}
	model := os.Getenv("OLLAMA_EMBEDDINGS_MODEL")
	if model == "" {
		model = "nomic-embed-text"
	}
	dims := envDims("EMBEDDINGS_DIMENSIONS", 768)
	return &ollamaProvider{
		host:  host,
		model: model,
		dims:  dims,
		http:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *ollamaProvider) Name() string    { return "ollama" }
func (p *ollamaProvider) Dimensions() int { return p.dims }

func (p *ollamaProvider) Embed(ctx context.Context, inputs []string) ([]Vector, error) {
	if len(inputs) == 0 {
		return []Vector{}, nil
	}
	base, err := url.Parse(p.host)
	if err != nil {
		return nil, fmt.Errorf("parse ollama host: %w", err)
	}
	embedURL := *base
	embedURL.Path = path.Join(embedURL.Path, "/api/embed")

	body, _ := json.Marshal(map[string]any{"model": p.model, "input": inputs})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, embedURL.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("ollama embed: status %d: %s", resp.StatusCode, string(b))
	}

	var out struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("ollama embed decode: %w", err)
	}
	if len(out.Embeddings) != len(inputs) {
		return nil, fmt.Errorf("ollama embed: got %d embeddings for %d inputs", len(out.Embeddings), len(inputs))
	}

	vecs := make([]Vector, len(out.Embeddings))
	for i, e := range out.Embeddings {
		vecs[i] = Vector(e)
	}
	return vecs, nil
}

// #endregion ollama-provider
