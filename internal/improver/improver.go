// Package improver rewrites a document according to evaluator feedback using
// an LLM backend.
package improver

import (
	"context"
	"fmt"
	"strings"

	"github.com/valpere/autodoceval/internal/document"
)

// Improver produces a revised document from the current text and feedback.
type Improver interface {
	Improve(ctx context.Context, doc, feedback string) (string, error)
}

// Memory stores and recalls prior improvement entries for a session. A nil
// Memory disables the feature.
type Memory interface {
	Recall(ctx context.Context, memoryID string, limit int) ([]string, error)
	Record(ctx context.Context, memoryID, entry string) error
}

const (
	recallLimit   = 5
	previewChars  = 100
	feedbackChars = 200
)

const systemPrompt = "You are a senior technical writer who specializes in improving documentation."

func buildPrompt(doc, feedback string, recalled []string) string {
	var sb strings.Builder

	if len(recalled) > 0 {
		sb.WriteString("You have improved earlier versions of this document. Previous improvements:\n")
		for _, entry := range recalled {
			sb.WriteString("- ")
			sb.WriteString(entry)
			sb.WriteString("\n")
		}
		sb.WriteString("Keep the style and terminology consistent with those improvements and address recurring issues.\n\n")
	}

	sb.WriteString("Improve the following document based on the provided feedback.\n")
	sb.WriteString("Make the document more clear, complete, and coherent.\n\n")
	fmt.Fprintf(&sb, "Original Document:\n%s\n\n", doc)
	fmt.Fprintf(&sb, "Feedback:\n%s\n\n", feedback)
	sb.WriteString("Provide only the improved document as your response, without any additional commentary.")

	return sb.String()
}

func memoryEntry(original, improved, feedback string) string {
	return fmt.Sprintf("Original: %s | Improved: %s | Based on feedback: %s",
		document.Preview(original, previewChars),
		document.Preview(improved, previewChars),
		document.Preview(feedback, feedbackChars))
}

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
