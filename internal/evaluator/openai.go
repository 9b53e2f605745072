package evaluator

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/valpere/autodoceval/internal/decode"
	"github.com/valpere/autodoceval/internal/postprocess"
)

// OpenAIConfig configures an evaluator backed by the OpenAI chat completions
// API or any compatible endpoint (set BaseURL for OpenRouter and the like).
type OpenAIConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	Scale    decode.Scale
	Decoder  decode.Decoder
	MemoryID string
	Memory   Memory
}

// OpenAI evaluates documents through the official openai-go SDK.
type OpenAI struct {
	cfg  OpenAIConfig
	opts []option.RequestOption
}

// NewOpenAI creates an evaluator for an OpenAI-compatible chat endpoint.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key missing")
	}
	if cfg.Model == "" {
		return nil, errors.New("openai model is required")
	}
	if cfg.Decoder == nil {
		cfg.Decoder = &decode.TextDecoder{Scale: cfg.Scale}
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAI{cfg: cfg, opts: opts}, nil
}

func (e *OpenAI) Evaluate(ctx context.Context, doc string) (*Evaluation, error) {
	recalled := recall(ctx, e.cfg.Memory, e.cfg.MemoryID)
	prompt := buildPrompt(doc, e.cfg.Scale, e.cfg.Decoder, recalled)

	client := openai.NewClient(e.opts...)
	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(e.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("evaluation request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("evaluator returned empty choices")
	}

	result, err := e.cfg.Decoder.Decode(postprocess.Clean(resp.Choices[0].Message.Content))
	if err != nil {
		return nil, fmt.Errorf("evaluator response: %w", err)
	}

	if e.cfg.Memory != nil && e.cfg.MemoryID != "" {
		_ = e.cfg.Memory.Record(ctx, e.cfg.MemoryID, memoryEntry(doc, result.Score, result.Feedback, e.cfg.Scale))
	}

	return &Evaluation{Score: result.Score, Feedback: result.Feedback}, nil
}
