/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/valpere/autodoceval/internal"
	"github.com/valpere/autodoceval/internal/artifact"
	"github.com/valpere/autodoceval/internal/decode"
	"github.com/valpere/autodoceval/internal/history"
	"github.com/valpere/autodoceval/internal/loop"
	"github.com/valpere/autodoceval/internal/store"
)

var autoImproveCmd = &cobra.Command{
	Use:   "auto-improve <document>",
	Short: "Iteratively improve a document until it meets the target score",
	Long: `Run the refinement loop on a document: evaluate it, and while the score
is below the target, rewrite it from the feedback and evaluate again.

The loop stops as soon as the target score is reached, or after the
configured number of improvement iterations. Every iteration is recorded
and exported as a tracking file alongside the improved revisions.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := viper.BindPFlags(cmd.Flags()); err != nil {
			return err
		}
		iterations := viper.GetInt("iterations")
		memoryID := viper.GetString("memory-id")

		docPath := args[0]
		content, err := readDocument(docPath)
		if err != nil {
			return err
		}

		ctx := context.Background()

		db, err := openStore()
		if err != nil {
			return err
		}
		if db != nil {
			defer db.Close()
		}

		scale, err := scoreScale()
		if err != nil {
			return err
		}
		target := viper.GetFloat64("target")
		if target < 0 {
			target = scale.DefaultTarget()
		}
		if target > scale.Max() {
			return fmt.Errorf("target %v exceeds the %s scale maximum %v", target, scale, scale.Max())
		}

		baseMemoryID := memoryID
		if baseMemoryID == "" {
			baseMemoryID = fmt.Sprintf("autodoceval_%s_%s", docStem(docPath), uuid.New().String()[:8])
		}
		evaluatorMemoryID := baseMemoryID + "_evaluator"
		improverMemoryID := baseMemoryID + "_improver"

		eval, _, err := buildEvaluator(evalMemory(db), evaluatorMemoryID)
		if err != nil {
			return err
		}
		impr, err := buildImprover(improveMemory(db), improverMemoryID)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "Starting auto-improvement loop for %s\n", docPath)
		fmt.Fprintf(os.Stderr, "Target score: %s, maximum iterations: %d\n", scale.Format(target), iterations)
		fmt.Fprintf(os.Stderr, "Memory IDs: %s, %s\n", evaluatorMemoryID, improverMemoryID)

		saver := artifact.NewSaver(viper.GetString("out-dir"))

		runID := uuid.New().String()
		if db != nil {
			_ = db.SaveRun(ctx, internal.EvalRun{
				ID:            runID,
				DocPath:       docPath,
				RunType:       "auto-improve",
				TargetScore:   target,
				MaxIterations: iterations,
				Scale:         string(scale),
				Status:        "running",
				Timestamp:     time.Now(),
			})
		}

		recorder := history.NewRecorder()
		runner := loop.New(eval, impr, recorder, loop.Config{
			MaxIterations: iterations,
			TargetScore:   target,
			OnRevision: func(iteration int, revised string) (string, error) {
				path := saver.ImprovedPath(docPath, iteration)
				if err := saver.WriteDocument(path, revised); err != nil {
					return "", err
				}
				return path, nil
			},
			OnRecord: func(rec history.Record) {
				reportIteration(rec, scale, iterations)
				if db != nil {
					_ = db.SaveIteration(ctx, runID, rec)
				}
			},
		})

		result, err := runner.Run(ctx, content)
		if err != nil {
			finishRun(ctx, db, runID, history.StatusAborted, recorder)
			return fmt.Errorf("auto-improvement aborted: %w", err)
		}

		summary := recorder.Summary()
		fmt.Fprintf(os.Stderr, "\nTotal improvement: %s\n", scale.Format(summary.TotalImprovement))

		switch result.Status {
		case history.StatusTargetMetOriginal:
			fmt.Fprintf(os.Stderr, "Original document already meets the target score of %s\n", scale.Format(target))
		case history.StatusTargetReached:
			fmt.Fprintf(os.Stderr, "Target score of %s reached\n", scale.Format(target))
		case history.StatusMaxIterations:
			fmt.Fprintf(os.Stderr, "Maximum iterations (%d) reached without achieving the target score\n", iterations)
		}

		finishRun(ctx, db, runID, result.Status, recorder)

		if data, err := recorder.Export(history.ExportParams{
			RunID:         runID,
			DocPath:       docPath,
			TargetScore:   target,
			MaxIterations: iterations,
			Scale:         string(scale),
			Status:        result.Status,
		}); err == nil {
			if path, err := saver.WriteTracking(docPath, data); err == nil {
				fmt.Fprintf(os.Stderr, "Tracking data written to %s\n", path)
			}
		}

		finalPath := docPath
		if last, ok := recorder.Last(); ok && last.OutputPath != "" {
			finalPath = last.OutputPath
		}
		fmt.Printf("Final document: %s (status: %s)\n", finalPath, result.Status)
		return nil
	},
}

// reportIteration prints per-iteration progress in the configured scale.
func reportIteration(rec history.Record, scale decode.Scale, maxIterations int) {
	if rec.Index == 0 {
		fmt.Fprintf(os.Stderr, "Original document score: %s\n", scale.Format(rec.Score))
		return
	}
	fmt.Fprintf(os.Stderr, "\nIteration %d/%d\n", rec.Index, maxIterations)
	fmt.Fprintf(os.Stderr, "Score after iteration %d: %s\n", rec.Index, scale.Format(rec.Score))
	if rec.Delta != nil {
		fmt.Fprintf(os.Stderr, "Improvement: %s from previous version\n", scale.Format(*rec.Delta))
	}
}

// finishRun records the terminal status and scores; best-effort.
func finishRun(ctx context.Context, db *store.Store, runID string, status history.Status, recorder *history.Recorder) {
	if db == nil {
		return
	}
	summary := recorder.Summary()
	_ = db.UpdateRunOutcome(ctx, runID, status, summary.InitialScore, summary.FinalScore)
}

func init() {
	rootCmd.AddCommand(autoImproveCmd)

	autoImproveCmd.Flags().Int("iterations", 3, "Maximum improvement iterations")
	autoImproveCmd.Flags().Float64("target", -1, "Target score in the configured scale (default 0.7 fraction / 70 percent)")
	autoImproveCmd.Flags().String("memory-id", "", "Custom memory ID for persistent context across runs")
}
