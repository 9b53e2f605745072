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
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/valpere/autodoceval/internal"
	"github.com/valpere/autodoceval/internal/artifact"
	"github.com/valpere/autodoceval/internal/document"
	"github.com/valpere/autodoceval/internal/history"
)

var gradeMemoryID string

var gradeCmd = &cobra.Command{
	Use:   "grade <document>",
	Short: "Evaluate document clarity",
	Long: `Evaluate a document for clarity, completeness, and coherence.
Prints the score and actionable feedback, and saves the run artifacts.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
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

		memoryID := gradeMemoryID
		if memoryID == "" {
			memoryID = fmt.Sprintf("autodoceval_grade_%s", docStem(docPath))
		}

		eval, scale, err := buildEvaluator(evalMemory(db), memoryID+"_evaluator")
		if err != nil {
			return err
		}

		ev, err := eval.Evaluate(ctx, content)
		if err != nil {
			return fmt.Errorf("evaluation failed: %w", err)
		}

		fmt.Printf("Clarity score: %s\n", scale.Format(ev.Score))
		fmt.Printf("\nFeedback:\n%s\n", ev.Feedback)

		saver := artifact.NewSaver(viper.GetString("out-dir"))
		if _, err := saver.SaveRunData("evaluate", content,
			fmt.Sprintf("Score: %v\nFeedback: %s", ev.Score, ev.Feedback),
			map[string]any{
				"score":      ev.Score,
				"feedback":   ev.Feedback,
				"memory_id":  memoryID,
				"word_count": document.WordCount(content),
			}); err != nil {
			return err
		}

		if db != nil {
			runID := uuid.New().String()
			_ = db.SaveRun(ctx, internal.EvalRun{
				ID:           runID,
				DocPath:      docPath,
				RunType:      "grade",
				Scale:        string(scale),
				Status:       "completed",
				InitialScore: ev.Score,
				FinalScore:   ev.Score,
				Timestamp:    time.Now(),
			})
			_ = db.SaveIteration(ctx, runID, history.Record{Index: 0, Score: ev.Score, Feedback: ev.Feedback})
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(gradeCmd)

	gradeCmd.Flags().StringVar(&gradeMemoryID, "memory-id", "", "Custom memory ID for persistent evaluation context")
}
