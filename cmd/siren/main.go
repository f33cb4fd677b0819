package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/sirenlabs/siren/go-pipeline/internal/candidate"
	"github.com/sirenlabs/siren/go-pipeline/internal/config"
	"github.com/sirenlabs/siren/go-pipeline/internal/decoder"
	"github.com/sirenlabs/siren/go-pipeline/internal/embedding"
	"github.com/sirenlabs/siren/go-pipeline/internal/gloss"
	"github.com/sirenlabs/siren/go-pipeline/internal/memory"
	"github.com/sirenlabs/siren/go-pipeline/internal/metrics"
	"github.com/sirenlabs/siren/go-pipeline/internal/pipeline"
	"github.com/sirenlabs/siren/go-pipeline/internal/vocab"
)

// #region main
func main() {
	cfg, err := config.Load(envOr("SIREN_CONFIG", ""))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	metrics.InitFromEnv()

	// Resonance memory
	store, err := memory.NewStore(cfg.Memory.Path)
	if err != nil {
		log.Fatalf("failed to open memory store: %v", err)
	}
	defer store.Close()
	recorder := memory.NewRecorder(store, cfg.Memory.Buffer)
	defer recorder.Close()

	// Auxiliary vocabulary index (optional)
	var searcher *vocab.Index
	if cfg.Vocab.Path != "" {
		searcher, err = vocab.OpenIndex(cfg.Vocab.Path)
		if err != nil {
			log.Printf("[MAIN] vocab index unavailable, native-only mode: %v", err)
			searcher = nil
		} else {
			log.Printf("[MAIN] vocab index loaded: %d entries", searcher.Len())
		}
	}

	embedder := embedding.NewFromEnv()
	if embedder == nil {
		log.Println("[MAIN] no embeddings provider configured, native-only mode")
	}

	// Decoder sidecar
	dec := decoder.NewClient(cfg.Decoder.Addr, cfg.DecoderTimeout())

	pipe := pipeline.New(
		embedderOrNil(embedder),
		searcherOrNil(searcher),
		cfg.PipelineOptions(),
		recorder,
		store,
		cfg.ToleranceConfig(),
		gloss.NewClient(gloss.DefaultConfig()),
	)
	mgr := pipeline.NewManager(pipe)

	session := mgr.Session("")
	fmt.Println("SIREN pipeline ready.")
	fmt.Printf("  Memory: %s | Decoder: %s | Session: %s\n", cfg.Memory.Path, cfg.Decoder.Addr, session.ID)
	fmt.Println("Type a prompt (or 'quit' to exit):")

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		prompt := strings.TrimSpace(scanner.Text())
		if prompt == "" {
			continue
		}
		if prompt == "quit" || prompt == "exit" {
			break
		}

		runPrompt(dec, pipe, session, cfg.Decoder.TopK, prompt)
	}
}

// #endregion main

// #region generation

// runPrompt decodes one prompt to completion, one sidecar step at a time,
// feeding each emission decision back as the chosen token.
func runPrompt(dec *decoder.Client, pipe *pipeline.Pipeline, session *pipeline.Session, topK int, prompt string) {
	chosen := ""
	var emitted []string

	for step := 0; ; step++ {
		req := decoder.StepRequest{
			SessionID:   session.ID,
			ChosenToken: chosen,
			TopK:        topK,
		}
		if step == 0 {
			req.Prompt = prompt
			req.ChosenToken = ""
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		res, err := dec.Step(ctx, req)
		cancel()
		if err != nil {
			log.Printf("decoder error: %v", err)
			return
		}
		if res.Done {
			break
		}

		in := pipeline.StepInput{
			ContextTokens: res.Context,
			Probs:         res.Probs,
			TimestampUnix: time.Now().Unix(),
		}
		for _, t := range res.TopK {
			in.Native = append(in.Native, pipeline.NativeToken{Token: t.Token, Logit: t.Logit})
		}
		if res.Entropy != nil {
			in.Entropy = *res.Entropy
			in.HasEntropy = true
		}

		out := pipe.Step(context.Background(), session, in)
		chosen = out.Token
		emitted = append(emitted, out.Token)

		if out.Action != memory.ActionEmitDefault {
			fmt.Printf("[step %d] %s token=%q vocab=%s resonance=%.4f entropy=%.4f\n",
				out.StepIndex, out.Action, out.Token, out.Vocab, out.Resonance, out.Entropy.Entropy)
		}
	}

	fmt.Printf("\n%s\n\n", strings.Join(emitted, " "))
}

// #endregion generation

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// embedderOrNil avoids a non-nil interface wrapping a nil provider.
func embedderOrNil(p embedding.Provider) pipeline.Embedder {
	if p == nil {
		return nil
	}
	return p
}

// searcherOrNil avoids a non-nil interface wrapping a nil index.
func searcherOrNil(ix *vocab.Index) candidate.Searcher {
	if ix == nil {
		return nil
	}
	return ix
}

// #endregion helpers
