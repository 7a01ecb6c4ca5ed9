// Package embedding defines the embedding service the engine consumes
// and HTTP-backed providers for it. Embedding is always optional: every
// caller has a documented lexical fallback when Embed fails.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"time"
)

// Vector is a fixed-length float32 embedding vector.
type Vector = []float32

// Embedder maps a string to a fixed-length numeric vector.
type Embedder interface {
	Embed(ctx context.Context, text string) (Vector, error)
	Model() string
}

// Cosine computes cosine similarity between two vectors.
// Mismatched or zero-length vectors score 0.
func Cosine(a, b Vector) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// --- Ollama provider ---

// Ollama embeds text through a local Ollama instance.
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllama creates an Ollama-backed embedder. The base URL comes from
// OLLAMA_HOST, defaulting to localhost.
func NewOllama(mdl string) *Ollama {
	baseURL := os.Getenv("OLLAMA_HOST")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &Ollama{
		baseURL: baseURL,
		model:   mdl,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (e *Ollama) Embed(ctx context.Context, input string) (Vector, error) {
	body, _ := json.Marshal(struct {
		Model  string `json:"model"`
		Prompt string `json:"prompt"`
	}{e.model, input})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama error %d: %s", resp.StatusCode, string(b))
	}

	var result struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	if len(result.Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding returned")
	}
	return result.Embedding, nil
}

func (e *Ollama) Model() string { return e.model }

// --- OpenAI-compatible provider ---

// OpenAI embeds text through any OpenAI-compatible embeddings endpoint.
type OpenAI struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewOpenAI creates an embedder for an OpenAI-compatible API.
func NewOpenAI(baseURL, apiKey, mdl string) *OpenAI {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if mdl == "" {
		mdl = "text-embedding-3-small"
	}
	return &OpenAI{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   mdl,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (e *OpenAI) Embed(ctx context.Context, input string) (Vector, error) {
	body, _ := json.Marshal(struct {
		Input string `json:"input"`
		Model string `json:"model"`
	}{input, e.model})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("openai error %d: %s", resp.StatusCode, string(b))
	}

	var result struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	if len(result.Data) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return result.Data[0].Embedding, nil
}

func (e *OpenAI) Model() string { return e.model }

// NewFromEnv creates an embedder from environment variables.
// ENGRAM_EMBED_PROVIDER: "ollama" | "openai" | "" (disabled)
// ENGRAM_EMBED_MODEL: model name
// ENGRAM_EMBED_URL: base URL override (openai provider)
// OPENAI_API_KEY: for openai provider
//
// A nil return means embeddings are disabled and search runs lexically.
func NewFromEnv() Embedder {
	mdl := os.Getenv("ENGRAM_EMBED_MODEL")
	switch os.Getenv("ENGRAM_EMBED_PROVIDER") {
	case "ollama":
		if mdl == "" {
			mdl = "nomic-embed-text"
		}
		return NewOllama(mdl)
	case "openai":
		return NewOpenAI(os.Getenv("ENGRAM_EMBED_URL"), os.Getenv("OPENAI_API_KEY"), mdl)
	default:
		return nil
	}
}
