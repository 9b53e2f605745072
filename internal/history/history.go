// Package history accumulates per-iteration results of a refinement run and
// derives its summary. The record sequence is append-only and strictly
// ordered: index 0 is always the baseline evaluation of the unmodified
// document and carries no improvement delta.
package history

import (
	"encoding/json"
	"fmt"
)

// Status is the terminal state of a refinement run.
type Status string

const (
	// StatusTargetMetOriginal: the baseline evaluation already met the
	// target; no improvement iteration ran.
	StatusTargetMetOriginal Status = "target_met_original"
	// StatusTargetReached: an improvement iteration met the target.
	StatusTargetReached Status = "target_reached"
	// StatusMaxIterations: the iteration budget ran out below the target.
	StatusMaxIterations Status = "max_iterations_reached"
	// StatusAborted: a collaborator failure ended the run early. Not a
	// terminal loop state; recorded for persisted partial runs.
	StatusAborted Status = "aborted"
)

// Record is one iteration's outcome. Index 0 is the baseline evaluation;
// higher indices are improvement iterations.
type Record struct {
	Index      int      `json:"iteration"`
	Score      float64  `json:"score"`
	Feedback   string   `json:"feedback"`
	Delta      *float64 `json:"improvement_delta"`
	Content    string   `json:"content"`
	OutputPath string   `json:"output_path,omitempty"`
}

// Summary is derived from the record sequence and never stored separately.
type Summary struct {
	InitialScore     float64 `json:"initial_score"`
	FinalScore       float64 `json:"final_score"`
	TotalImprovement float64 `json:"total_improvement"`
	Iterations       int     `json:"iterations_count"`
}

// Recorder holds the ordered record sequence for a single run. It is owned by
// one refinement loop and is not safe for concurrent use.
type Recorder struct {
	records []Record
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

// Append adds the next record. The index must continue the sequence, the
// baseline must carry no delta, and improvement records must carry one.
func (r *Recorder) Append(rec Record) error {
	if rec.Index != len(r.records) {
		return fmt.Errorf("record index %d out of order, want %d", rec.Index, len(r.records))
	}
	if rec.Index == 0 && rec.Delta != nil {
		return fmt.Errorf("baseline record must not carry a delta")
	}
	if rec.Index > 0 && rec.Delta == nil {
		return fmt.Errorf("record %d missing improvement delta", rec.Index)
	}
	r.records = append(r.records, rec)
	return nil
}

// Len returns the number of records, including the baseline.
func (r *Recorder) Len() int {
	return len(r.records)
}

// Records returns a copy of the record sequence.
func (r *Recorder) Records() []Record {
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

// Last returns the most recent record, if any.
func (r *Recorder) Last() (Record, bool) {
	if len(r.records) == 0 {
		return Record{}, false
	}
	return r.records[len(r.records)-1], true
}

// Summary derives the run summary from the current sequence. With only the
// baseline present, final equals initial and the improvement is zero.
func (r *Recorder) Summary() Summary {
	if len(r.records) == 0 {
		return Summary{}
	}
	first := r.records[0]
	last := r.records[len(r.records)-1]
	return Summary{
		InitialScore:     first.Score,
		FinalScore:       last.Score,
		TotalImprovement: last.Score - first.Score,
		Iterations:       len(r.records) - 1,
	}
}

// ExportParams are the run parameters included alongside the record sequence
// in the exported artifact.
type ExportParams struct {
	RunID         string  `json:"run_id"`
	DocPath       string  `json:"document"`
	TargetScore   float64 `json:"target_score"`
	MaxIterations int     `json:"max_iterations"`
	Scale         string  `json:"scale"`
	Status        Status  `json:"status"`
}

type export struct {
	ExportParams
	Summary    Summary  `json:"summary"`
	Iterations []Record `json:"iterations"`
}

// Export serializes run parameters, the derived summary, and the full record
// sequence (content included, so the artifact round-trips every iteration).
func (r *Recorder) Export(p ExportParams) ([]byte, error) {
	data, err := json.MarshalIndent(export{
		ExportParams: p,
		Summary:      r.Summary(),
		Iterations:   r.Records(),
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to export run history: %w", err)
	}
	return data, nil
}
