// Package evaluator scores a document for clarity and produces improvement
// feedback using an LLM backend.
package evaluator

import (
	"context"
	"fmt"
	"strings"

	"github.com/valpere/autodoceval/internal/decode"
	"github.com/valpere/autodoceval/internal/document"
)

// Evaluation is the outcome of one evaluation call.
type Evaluation struct {
	Score    float64
	Feedback string
}

// Evaluator scores a document and explains what to improve.
type Evaluator interface {
	Evaluate(ctx context.Context, doc string) (*Evaluation, error)
}

// Memory stores and recalls prior evaluation entries for a session, so the
// model can keep its feedback consistent across iterations of the same
// document. Implementations are optional; a nil Memory disables the feature.
type Memory interface {
	Recall(ctx context.Context, memoryID string, limit int) ([]string, error)
	Record(ctx context.Context, memoryID, entry string) error
}

const (
	// recallLimit bounds how many prior entries are folded into the prompt.
	recallLimit = 5
	// previewChars bounds document and feedback snippets stored in memory.
	previewChars  = 100
	feedbackChars = 200
	// maxPromptDocChars bounds the document payload embedded in an
	// evaluation prompt. A score on a long prefix is still a score; the
	// improver always receives the complete document.
	maxPromptDocChars = 24000
)

const systemPrompt = "You are an expert technical writer with years of experience evaluating documentation quality."

// buildPrompt assembles the evaluation prompt: optional memory preamble,
// task description, document, and the decoder's response-format section.
func buildPrompt(doc string, scale decode.Scale, dec decode.Decoder, recalled []string) string {
	var sb strings.Builder

	if len(recalled) > 0 {
		sb.WriteString("You have evaluated earlier versions of this document. Previous evaluations:\n")
		for _, entry := range recalled {
			sb.WriteString("- ")
			sb.WriteString(entry)
			sb.WriteString("\n")
		}
		sb.WriteString("Maintain consistency with your earlier feedback and acknowledge progress where the document has improved.\n\n")
	}

	sb.WriteString("Evaluate the following document for clarity, completeness, and coherence.\n")
	fmt.Fprintf(&sb, "Score it on a scale from %s where %v is perfect.\n", scale.Range(), scale.Max())
	sb.WriteString("Provide specific, actionable feedback for improvement.\n\n")
	fmt.Fprintf(&sb, "Document:\n%s\n\n", document.Bound(doc, maxPromptDocChars))
	sb.WriteString(dec.Instructions())

	return sb.String()
}

// memoryEntry summarizes one evaluation for session memory.
func memoryEntry(doc string, score float64, feedback string, scale decode.Scale) string {
	return fmt.Sprintf("Document: %s | Score: %s | Feedback: %s",
		document.Preview(doc, previewChars),
		scale.Format(score),
		document.Preview(feedback, feedbackChars))
}

// recall fetches prior entries for the session; a missing or failing memory
// store degrades to no context rather than failing the evaluation.
func recall(ctx context.Context, mem Memory, memoryID string) []string {
	if mem == nil || memoryID == "" {
		return nil
	}
	entries, err := mem.Recall(ctx, memoryID, recallLimit)
	if err != nil {
		return nil
	}
	return entries
}
