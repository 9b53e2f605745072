package improver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/valpere/autodoceval/internal/postprocess"
	"github.com/valpere/autodoceval/internal/validator"
)

// OllamaConfig configures an Ollama-backed improver.
type OllamaConfig struct {
	Model    string
	BaseURL  string
	MemoryID string
	Memory   Memory
}

// Ollama rewrites documents with a local Ollama model.
type Ollama struct {
	cfg    OllamaConfig
	client *http.Client
	check  *validator.Validator
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	System string `json:"system,omitempty"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Response string `json:"response"`
}

// NewOllama creates an improver backed by a local Ollama model.
func NewOllama(cfg OllamaConfig) *Ollama {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	return &Ollama{
		cfg:    cfg,
		client: &http.Client{Timeout: 120 * time.Second},
		check:  validator.New(0, 0),
	}
}

func (i *Ollama) Improve(ctx context.Context, doc, feedback string) (string, error) {
	recalled := recall(ctx, i.cfg.Memory, i.cfg.MemoryID)
	prompt := buildPrompt(doc, feedback, recalled)

	reqBody := ollamaRequest{
		Model:  i.cfg.Model,
		Prompt: prompt,
		System: systemPrompt,
		Stream: false,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal improvement request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/api/generate", i.cfg.BaseURL), bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create improvement request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := i.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("improvement request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("improver returned status %d", resp.StatusCode)
	}

	var ollamaResp ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return "", fmt.Errorf("failed to decode improvement response: %w", err)
	}

	improved := postprocess.Clean(ollamaResp.Response)
	if err := i.check.Check(doc, improved); err != nil {
		return "", fmt.Errorf("improver response: %w", err)
	}

	if i.cfg.Memory != nil && i.cfg.MemoryID != "" {
		// Memory writes are best-effort; a full store must not fail the run.
		_ = i.cfg.Memory.Record(ctx, i.cfg.MemoryID, memoryEntry(doc, improved, feedback))
	}

	return improved, nil
}
