package improver

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/valpere/autodoceval/internal/postprocess"
	"github.com/valpere/autodoceval/internal/validator"
)

// OpenAIConfig configures an improver backed by the OpenAI chat completions
// API or any compatible endpoint (set BaseURL for OpenRouter and the like).
type OpenAIConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	MemoryID string
	Memory   Memory
}

// OpenAI rewrites documents through the official openai-go SDK.
type OpenAI struct {
	cfg   OpenAIConfig
	opts  []option.RequestOption
	check *validator.Validator
}

// NewOpenAI creates an improver for an OpenAI-compatible chat endpoint.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key missing")
	}
	if cfg.Model == "" {
		return nil, errors.New("openai model is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAI{cfg: cfg, opts: opts, check: validator.New(0, 0)}, nil
}

func (i *OpenAI) Improve(ctx context.Context, doc, feedback string) (string, error) {
	recalled := recall(ctx, i.cfg.Memory, i.cfg.MemoryID)
	prompt := buildPrompt(doc, feedback, recalled)

	client := openai.NewClient(i.opts...)
	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(i.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("improvement request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("improver returned empty choices")
	}

	improved := postprocess.Clean(resp.Choices[0].Message.Content)
	if err := i.check.Check(doc, improved); err != nil {
		return "", fmt.Errorf("improver response: %w", err)
	}

	if i.cfg.Memory != nil && i.cfg.MemoryID != "" {
		_ = i.cfg.Memory.Record(ctx, i.cfg.MemoryID, memoryEntry(doc, improved, feedback))
	}

	return improved, nil
}
