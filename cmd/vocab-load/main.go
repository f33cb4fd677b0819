package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/sirenlabs/siren/go-pipeline/internal/embedding"
	"github.com/sirenlabs/siren/go-pipeline/internal/vocab"
)

// #region main
func main() {
	dbPath := flag.String("db", envOr("SIREN_VOCAB_DB", "siren_vocab.db"), "path to vocabulary db")
	vocabName := flag.String("vocab", "", "vocabulary label for all loaded tokens (e.g. grc, mya)")
	input := flag.String("input", "", "token file: one token per line, or JSON lines {\"token\":...,\"vocab\":...}")
	batchSize := flag.Int("batch", 64, "embedding batch size")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "usage: vocab-load --input tokens.txt --vocab grc [--db siren_vocab.db] [--batch N]")
		os.Exit(2)
	}

	provider := embedding.NewFromEnv()
	if provider == nil {
		log.Fatal("no embeddings provider configured (set EMBEDDINGS_PROVIDER)")
	}

	fmt.Println("=== Vocabulary Load Tool ===")
	fmt.Printf("  DB: %s | Provider: %s (%d dims)\n", *dbPath, provider.Name(), provider.Dimensions())

	tokens, err := readTokens(*input, *vocabName)
	if err != nil {
		log.Fatalf("read input: %v", err)
	}
	if len(tokens) == 0 {
		fmt.Println("No tokens to load. Done.")
		return
	}
	fmt.Printf("  Tokens: %d\n", len(tokens))

	store, err := vocab.NewStore(*dbPath)
	if err != nil {
		log.Fatalf("failed to open vocab store: %v", err)
	}
	defer store.Close()

	loaded := 0
	for start := 0; start < len(tokens); start += *batchSize {
		end := start + *batchSize
		if end > len(tokens) {
			end = len(tokens)
		}
		batch := tokens[start:end]

		texts := make([]string, len(batch))
		for i, t := range batch {
			texts[i] = t.Token
		}

		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		embs, err := provider.Embed(ctx, texts)
		cancel()
		if err != nil {
			log.Fatalf("embed batch %d-%d: %v", start, end, err)
		}
		if len(embs) != len(batch) {
			log.Fatalf("embed batch %d-%d: got %d embeddings for %d tokens", start, end, len(embs), len(batch))
		}

		entries := make([]vocab.Entry, len(batch))
		for i, t := range batch {
			entries[i] = vocab.Entry{Token: t.Token, Vocab: t.Vocab, Embedding: embs[i]}
		}
		if err := store.Add(entries); err != nil {
			log.Fatalf("store batch %d-%d: %v", start, end, err)
		}

		loaded += len(batch)
		fmt.Printf("  [%d/%d] loaded\n", loaded, len(tokens))
	}

	count, err := store.Count()
	if err != nil {
		log.Fatalf("count: %v", err)
	}
	fmt.Printf("\n=== Load Complete ===\n")
	fmt.Printf("  Loaded this run: %d\n", loaded)
	fmt.Printf("  Total in store:  %d\n", count)
}

// #endregion main

// #region input

type inputToken struct {
	Token string `json:"token"`
	Vocab string `json:"vocab"`
}

// readTokens parses plain or JSON-lines input. Plain lines require a
// --vocab label; JSON lines may carry their own.
func readTokens(path, defaultVocab string) ([]inputToken, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var tokens []inputToken
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var t inputToken
		if strings.HasPrefix(line, "{") {
			if err := json.Unmarshal([]byte(line), &t); err != nil {
				return nil, fmt.Errorf("parse JSON line %q: %w", line, err)
			}
		} else {
			t = inputToken{Token: line}
		}
		if t.Vocab == "" {
			t.Vocab = defaultVocab
		}
		if t.Token == "" || t.Vocab == "" {
			return nil, fmt.Errorf("line %q: token and vocab are both required", line)
		}

		key := t.Vocab + "\x00" + t.Token
		if seen[key] {
			continue
		}
		seen[key] = true
		tokens = append(tokens, t)
	}
	return tokens, scanner.Err()
}

// #endregion input

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
