// Package decode parses evaluator responses into a score and feedback.
//
// Two wire formats are supported: a plain-text "Score:/Feedback:" layout and a
// strict JSON object. The score scale (0–1 fraction or 0–100 percent) is fixed
// per deployment and declared in configuration; decoders validate against it
// but never convert between scales.
package decode

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Scale identifies the score convention used by a deployment.
type Scale string

const (
	ScaleFraction Scale = "fraction" // scores in [0.0, 1.0]
	ScalePercent  Scale = "percent"  // scores in [0, 100]
)

// ErrMalformed reports an evaluator response that does not match the expected
// score/feedback shape. Parse failures are fatal; there is no fallback score.
var ErrMalformed = errors.New("malformed evaluator response")

// ParseScale validates a configured scale name.
func ParseScale(s string) (Scale, error) {
	switch Scale(s) {
	case ScaleFraction, ScalePercent:
		return Scale(s), nil
	case "":
		return ScaleFraction, nil
	}
	return "", fmt.Errorf("unknown score scale %q (want fraction or percent)", s)
}

// Max returns the top of the scale.
func (s Scale) Max() float64 {
	if s == ScalePercent {
		return 100
	}
	return 1.0
}

// DefaultTarget returns the default target score for the scale.
func (s Scale) DefaultTarget() float64 {
	if s == ScalePercent {
		return 70
	}
	return 0.7
}

// Format renders a score for display, as a percentage in both scales.
func (s Scale) Format(v float64) string {
	if s == ScalePercent {
		return fmt.Sprintf("%.1f%%", v)
	}
	return fmt.Sprintf("%.1f%%", v*100)
}

// Range describes the scale bounds in prompt wording, e.g. "0.0 to 1.0".
func (s Scale) Range() string {
	if s == ScalePercent {
		return "0 to 100"
	}
	return "0.0 to 1.0"
}

// Result is a decoded evaluation.
type Result struct {
	Score    float64
	Feedback string
}

// Decoder turns a raw model response into a Result.
type Decoder interface {
	Decode(raw string) (*Result, error)
	// Instructions returns the response-format section appended to the
	// evaluation prompt.
	Instructions() string
	// JSONFormat reports whether the backend should be asked for JSON output.
	JSONFormat() bool
}

// New returns the decoder registered under name ("text" or "json").
func New(name string, scale Scale) (Decoder, error) {
	switch name {
	case "", "text":
		return &TextDecoder{Scale: scale}, nil
	case "json":
		return &JSONDecoder{Scale: scale}, nil
	}
	return nil, fmt.Errorf("unknown decoder %q (want text or json)", name)
}

// TextDecoder parses the line-oriented format:
//
//	Score: <number>
//	Feedback: <text, may continue on following lines>
type TextDecoder struct {
	Scale Scale
}

func (d *TextDecoder) Decode(raw string) (*Result, error) {
	var (
		score     float64
		haveScore bool
		feedback  []string
	)

	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "Score:"):
			v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(trimmed, "Score:")), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: bad score line %q", ErrMalformed, trimmed)
			}
			score = v
			haveScore = true
		case strings.HasPrefix(trimmed, "Feedback:"):
			feedback = append(feedback, strings.TrimSpace(strings.TrimPrefix(trimmed, "Feedback:")))
		default:
			// Continuation lines belong to the feedback once it has started.
			if len(feedback) > 0 {
				feedback = append(feedback, trimmed)
			}
		}
	}

	if !haveScore {
		return nil, fmt.Errorf("%w: no Score line", ErrMalformed)
	}
	return finish(d.Scale, score, strings.TrimSpace(strings.Join(feedback, "\n")))
}

func (d *TextDecoder) Instructions() string {
	return fmt.Sprintf("Your response must be in this format:\nScore: <score between %s>\nFeedback: <detailed feedback>", d.Scale.Range())
}

func (d *TextDecoder) JSONFormat() bool { return false }

// JSONDecoder parses a strict JSON object {"score": <number>, "feedback": "..."}.
type JSONDecoder struct {
	Scale Scale
}

func (d *JSONDecoder) Decode(raw string) (*Result, error) {
	raw = stripFences(strings.TrimSpace(raw))

	// Score is a pointer so an absent key is distinguishable from an
	// explicit zero; a response without a score is malformed, not a zero.
	var parsed struct {
		Score    *float64 `json:"score"`
		Feedback string   `json:"feedback"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if parsed.Score == nil {
		return nil, fmt.Errorf("%w: no score field", ErrMalformed)
	}
	return finish(d.Scale, *parsed.Score, strings.TrimSpace(parsed.Feedback))
}

func (d *JSONDecoder) Instructions() string {
	return fmt.Sprintf("Respond ONLY in JSON:\n{\n  \"score\": <score between %s>,\n  \"feedback\": \"<detailed feedback>\"\n}", d.Scale.Range())
}

func (d *JSONDecoder) JSONFormat() bool { return true }

func finish(scale Scale, score float64, feedback string) (*Result, error) {
	if score < 0 || score > scale.Max() {
		return nil, fmt.Errorf("%w: score %v outside %s scale", ErrMalformed, score, scale)
	}
	if feedback == "" && score < scale.Max() {
		return nil, fmt.Errorf("%w: missing feedback for non-perfect score", ErrMalformed)
	}
	return &Result{Score: score, Feedback: feedback}, nil
}

// stripFences removes a wrapping markdown code fence, a common LLM artifact
// around JSON responses.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
