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
	"github.com/valpere/autodoceval/internal/history"
)

var (
	improveMemoryID string
	improveOutput   string
)

var improveCmd = &cobra.Command{
	Use:   "improve <document>",
	Short: "Improve a document once",
	Long: `Evaluate a document to obtain feedback, then rewrite it once based on
that feedback. The improved document is written next to the run artifacts
unless --output is given.`,
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

		memoryID := improveMemoryID
		if memoryID == "" {
			memoryID = fmt.Sprintf("autodoceval_improve_%s", docStem(docPath))
		}

		eval, scale, err := buildEvaluator(evalMemory(db), memoryID+"_evaluator")
		if err != nil {
			return err
		}
		impr, err := buildImprover(improveMemory(db), memoryID+"_improver")
		if err != nil {
			return err
		}

		ev, err := eval.Evaluate(ctx, content)
		if err != nil {
			return fmt.Errorf("evaluation failed: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Current score: %s\n", scale.Format(ev.Score))

		improved, err := impr.Improve(ctx, content, ev.Feedback)
		if err != nil {
			return fmt.Errorf("improvement failed: %w", err)
		}

		saver := artifact.NewSaver(viper.GetString("out-dir"))

		outputPath := improveOutput
		if outputPath == "" {
			outputPath = saver.ImprovedPath(docPath, 1)
		}
		if err := saver.WriteDocument(outputPath, improved); err != nil {
			return err
		}

		if _, err := saver.SaveRunData("improve", content, improved, map[string]any{
			"feedback":       ev.Feedback,
			"previous_score": ev.Score,
			"memory_id":      memoryID,
			"output_path":    outputPath,
		}); err != nil {
			return err
		}

		if db != nil {
			runID := uuid.New().String()
			_ = db.SaveRun(ctx, internal.EvalRun{
				ID:           runID,
				DocPath:      docPath,
				RunType:      "improve",
				Scale:        string(scale),
				Status:       "completed",
				InitialScore: ev.Score,
				FinalScore:   ev.Score,
				Timestamp:    time.Now(),
			})
			_ = db.SaveIteration(ctx, runID, history.Record{Index: 0, Score: ev.Score, Feedback: ev.Feedback})
		}

		fmt.Printf("Improved document written to %s\n", outputPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(improveCmd)

	improveCmd.Flags().StringVar(&improveMemoryID, "memory-id", "", "Custom memory ID for persistent improvement context")
	improveCmd.Flags().StringVarP(&improveOutput, "output", "o", "", "Output path for the improved document")
}
