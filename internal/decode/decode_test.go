package decode

import (
	"errors"
	"testing"
)

func TestParseScale(t *testing.T) {
	tests := []struct {
		input   string
		want    Scale
		wantErr bool
	}{
		{"fraction", ScaleFraction, false},
		{"percent", ScalePercent, false},
		{"", ScaleFraction, false},
		{"decimal", "", true},
	}

	for _, tt := range tests {
		got, err := ParseScale(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseScale(%q): expected error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseScale(%q): unexpected error: %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("ParseScale(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestScale_Bounds(t *testing.T) {
	if ScaleFraction.Max() != 1.0 {
		t.Errorf("fraction max = %v", ScaleFraction.Max())
	}
	if ScalePercent.Max() != 100 {
		t.Errorf("percent max = %v", ScalePercent.Max())
	}
	if ScaleFraction.DefaultTarget() != 0.7 {
		t.Errorf("fraction default target = %v", ScaleFraction.DefaultTarget())
	}
	if ScalePercent.DefaultTarget() != 70 {
		t.Errorf("percent default target = %v", ScalePercent.DefaultTarget())
	}
}

func TestScale_Format(t *testing.T) {
	if got := ScaleFraction.Format(0.725); got != "72.5%" {
		t.Errorf("fraction format = %q", got)
	}
	if got := ScalePercent.Format(72.5); got != "72.5%" {
		t.Errorf("percent format = %q", got)
	}
}

func TestTextDecoder_Decode(t *testing.T) {
	d := &TextDecoder{Scale: ScaleFraction}

	result, err := d.Decode("Score: 0.65\nFeedback: Needs a clearer introduction.\nThe second section repeats itself.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Score != 0.65 {
		t.Errorf("score = %v, want 0.65", result.Score)
	}
	if result.Feedback != "Needs a clearer introduction.\nThe second section repeats itself." {
		t.Errorf("feedback = %q", result.Feedback)
	}
}

func TestTextDecoder_Decode_PerfectScoreNoFeedback(t *testing.T) {
	d := &TextDecoder{Scale: ScaleFraction}

	result, err := d.Decode("Score: 1.0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Score != 1.0 {
		t.Errorf("score = %v", result.Score)
	}
}

func TestTextDecoder_Decode_Malformed(t *testing.T) {
	d := &TextDecoder{Scale: ScaleFraction}

	tests := []struct {
		name string
		raw  string
	}{
		{"no score line", "Feedback: something"},
		{"unparseable score", "Score: excellent\nFeedback: fine"},
		{"score out of range", "Score: 1.5\nFeedback: fine"},
		{"negative score", "Score: -0.1\nFeedback: fine"},
		{"missing feedback", "Score: 0.4"},
		{"empty response", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Decode(tt.raw)
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestTextDecoder_Decode_PercentScale(t *testing.T) {
	d := &TextDecoder{Scale: ScalePercent}

	result, err := d.Decode("Score: 85\nFeedback: Good structure.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Score != 85 {
		t.Errorf("score = %v, want 85", result.Score)
	}

	// 1.5 is valid in percent scale but 150 is not.
	if _, err := d.Decode("Score: 150\nFeedback: x"); !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed for 150 on percent scale, got %v", err)
	}
}

func TestJSONDecoder_Decode(t *testing.T) {
	d := &JSONDecoder{Scale: ScaleFraction}

	result, err := d.Decode(`{"score": 0.8, "feedback": "Tighten the summary."}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Score != 0.8 {
		t.Errorf("score = %v", result.Score)
	}
	if result.Feedback != "Tighten the summary." {
		t.Errorf("feedback = %q", result.Feedback)
	}
}

func TestJSONDecoder_Decode_Fenced(t *testing.T) {
	d := &JSONDecoder{Scale: ScaleFraction}

	raw := "```json\n{\"score\": 0.5, \"feedback\": \"ok\"}\n```"
	result, err := d.Decode(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Score != 0.5 {
		t.Errorf("score = %v", result.Score)
	}
}

func TestJSONDecoder_Decode_Malformed(t *testing.T) {
	d := &JSONDecoder{Scale: ScaleFraction}

	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "Score: 0.5\nFeedback: not json"},
		{"missing score key", `{"feedback": "looks fine overall"}`},
		{"null score", `{"score": null, "feedback": "ok"}`},
		{"score out of range", `{"score": 1.5, "feedback": "ok"}`},
		{"missing feedback", `{"score": 0.4}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Decode(tt.raw)
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestJSONDecoder_Decode_ExplicitZeroScore(t *testing.T) {
	d := &JSONDecoder{Scale: ScaleFraction}

	result, err := d.Decode(`{"score": 0, "feedback": "Start over."}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Score != 0 {
		t.Errorf("score = %v, want 0", result.Score)
	}
}

func TestNew(t *testing.T) {
	if _, err := New("text", ScaleFraction); err != nil {
		t.Errorf("text decoder: %v", err)
	}
	if _, err := New("json", ScaleFraction); err != nil {
		t.Errorf("json decoder: %v", err)
	}
	if _, err := New("", ScaleFraction); err != nil {
		t.Errorf("default decoder: %v", err)
	}
	if _, err := New("yaml", ScaleFraction); err == nil {
		t.Error("expected error for unknown decoder")
	}
}
