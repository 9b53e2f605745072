// Package loop drives the evaluate/improve cycle of a refinement run until
// the target score is met or the iteration budget is exhausted.
//
// The loop is strictly sequential: each iteration consumes the full output of
// the previous one. Collaborator calls are treated as opaque blocking
// operations; a failure aborts the run with no retry, leaving whatever the
// recorder already holds.
package loop

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/valpere/autodoceval/internal/evaluator"
	"github.com/valpere/autodoceval/internal/history"
	"github.com/valpere/autodoceval/internal/improver"
)

// ErrEmptyDocument reports a missing or blank input document. It is raised
// before any collaborator call is made.
var ErrEmptyDocument = errors.New("input document is empty")

// DefaultMaxIterations bounds the improvement budget when none is configured.
const DefaultMaxIterations = 3

// Config carries the run parameters and optional hooks.
type Config struct {
	MaxIterations int
	TargetScore   float64

	// OnRevision is called with each improved document before it is
	// evaluated; the returned path is recorded on the iteration record.
	// An error aborts the run. Nil disables it.
	OnRevision func(iteration int, content string) (string, error)

	// OnRecord is called after each record is appended, for progress
	// reporting and incremental persistence. Nil disables it.
	OnRecord func(rec history.Record)
}

// Result is the outcome of a completed run.
type Result struct {
	Status       history.Status
	FinalContent string
	Records      []history.Record
}

// Runner owns one refinement run: the two collaborators, the recorder, and
// the run parameters. It is not safe for concurrent use; refine independent
// documents with separate Runners.
type Runner struct {
	evaluate evaluator.Evaluator
	improve  improver.Improver
	recorder *history.Recorder
	cfg      Config
}

// New creates a Runner. A non-positive MaxIterations falls back to
// DefaultMaxIterations.
func New(e evaluator.Evaluator, i improver.Improver, rec *history.Recorder, cfg Config) *Runner {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	return &Runner{evaluate: e, improve: i, recorder: rec, cfg: cfg}
}

// Run refines doc until the target score is met or the iteration budget is
// exhausted. On collaborator failure the run aborts with no retry; records
// appended before the failure remain in the recorder.
func (r *Runner) Run(ctx context.Context, doc string) (*Result, error) {
	if strings.TrimSpace(doc) == "" {
		return nil, ErrEmptyDocument
	}

	// Baseline evaluation of the unmodified document.
	ev, err := r.evaluate.Evaluate(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("baseline evaluation: %w", err)
	}
	if err := r.append(history.Record{Index: 0, Score: ev.Score, Feedback: ev.Feedback, Content: doc}); err != nil {
		return nil, err
	}

	// Meeting the target exactly counts as met; the improver is never
	// called for a document that already satisfies the bar.
	if ev.Score >= r.cfg.TargetScore {
		return r.result(history.StatusTargetMetOriginal), nil
	}

	current := doc
	feedback := ev.Feedback
	lastScore := ev.Score

	for n := 1; n <= r.cfg.MaxIterations; n++ {
		revised, err := r.improve.Improve(ctx, current, feedback)
		if err != nil {
			return nil, fmt.Errorf("improvement iteration %d: %w", n, err)
		}

		var outputPath string
		if r.cfg.OnRevision != nil {
			outputPath, err = r.cfg.OnRevision(n, revised)
			if err != nil {
				return nil, fmt.Errorf("saving revision %d: %w", n, err)
			}
		}

		ev, err := r.evaluate.Evaluate(ctx, revised)
		if err != nil {
			return nil, fmt.Errorf("evaluation iteration %d: %w", n, err)
		}

		delta := ev.Score - lastScore
		rec := history.Record{
			Index:      n,
			Score:      ev.Score,
			Feedback:   ev.Feedback,
			Delta:      &delta,
			Content:    revised,
			OutputPath: outputPath,
		}
		if err := r.append(rec); err != nil {
			return nil, err
		}

		if ev.Score >= r.cfg.TargetScore {
			return r.result(history.StatusTargetReached), nil
		}

		current = revised
		feedback = ev.Feedback
		lastScore = ev.Score
	}

	return r.result(history.StatusMaxIterations), nil
}

func (r *Runner) append(rec history.Record) error {
	if err := r.recorder.Append(rec); err != nil {
		return fmt.Errorf("recording iteration %d: %w", rec.Index, err)
	}
	if r.cfg.OnRecord != nil {
		r.cfg.OnRecord(rec)
	}
	return nil
}

func (r *Runner) result(status history.Status) *Result {
	records := r.recorder.Records()
	final := records[len(records)-1].Content
	return &Result{
		Status:       status,
		FinalContent: final,
		Records:      records,
	}
}
