package evaluator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/valpere/autodoceval/internal/decode"
	"github.com/valpere/autodoceval/internal/postprocess"
)

// OllamaConfig configures an Ollama-backed evaluator. All state is explicit;
// nothing is read from the environment here.
type OllamaConfig struct {
	Model    string
	BaseURL  string
	Scale    decode.Scale
	Decoder  decode.Decoder
	MemoryID string
	Memory   Memory
}

// Ollama evaluates documents with a local Ollama model.
type Ollama struct {
	cfg    OllamaConfig
	client *http.Client
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	System string `json:"system,omitempty"`
	Stream bool   `json:"stream"`
	Format string `json:"format,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
}

// NewOllama creates an evaluator backed by a local Ollama model.
func NewOllama(cfg OllamaConfig) *Ollama {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Decoder == nil {
		cfg.Decoder = &decode.TextDecoder{Scale: cfg.Scale}
	}
	return &Ollama{
		cfg:    cfg,
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

func (e *Ollama) Evaluate(ctx context.Context, doc string) (*Evaluation, error) {
	recalled := recall(ctx, e.cfg.Memory, e.cfg.MemoryID)
	prompt := buildPrompt(doc, e.cfg.Scale, e.cfg.Decoder, recalled)

	reqBody := ollamaRequest{
		Model:  e.cfg.Model,
		Prompt: prompt,
		System: systemPrompt,
		Stream: false,
	}
	if e.cfg.Decoder.JSONFormat() {
		reqBody.Format = "json"
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal evaluation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/api/generate", e.cfg.BaseURL), bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create evaluation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("evaluation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("evaluator returned status %d", resp.StatusCode)
	}

	var ollamaResp ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return nil, fmt.Errorf("failed to decode evaluation response: %w", err)
	}

	result, err := e.cfg.Decoder.Decode(postprocess.Clean(ollamaResp.Response))
	if err != nil {
		return nil, fmt.Errorf("evaluator response: %w", err)
	}

	if e.cfg.Memory != nil && e.cfg.MemoryID != "" {
		// Memory writes are best-effort; a full store must not fail the run.
		_ = e.cfg.Memory.Record(ctx, e.cfg.MemoryID, memoryEntry(doc, result.Score, result.Feedback, e.cfg.Scale))
	}

	return &Evaluation{Score: result.Score, Feedback: result.Feedback}, nil
}
