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
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/valpere/autodoceval/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect the run history",
	Long:  `List, inspect, and clear persisted evaluation and improvement runs.`,
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all recorded runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.New(viper.GetString("db"))
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		runs, err := db.ListRuns(context.Background())
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}

		if len(runs) == 0 {
			fmt.Println("No recorded runs.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tDOCUMENT\tTYPE\tSTATUS\tINITIAL\tFINAL\tCREATED")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%.2f\t%s\n",
				shortID(r.ID), r.DocPath, r.RunType, r.Status,
				r.InitialScore, r.FinalScore,
				r.Timestamp.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the iterations of one run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.New(viper.GetString("db"))
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		ctx := context.Background()
		runID, err := resolveRunID(ctx, db, args[0])
		if err != nil {
			return err
		}

		run, err := db.GetRun(ctx, runID)
		if err != nil {
			return err
		}

		fmt.Printf("Run %s (%s)\n", run.ID, run.RunType)
		fmt.Printf("Document: %s\n", run.DocPath)
		fmt.Printf("Status: %s\n", run.Status)
		if run.RunType == "auto-improve" {
			fmt.Printf("Target: %.2f, max iterations: %d, scale: %s\n", run.TargetScore, run.MaxIterations, run.Scale)
		}

		iterations, err := db.ListIterations(ctx, runID)
		if err != nil {
			return fmt.Errorf("failed to list iterations: %w", err)
		}
		if len(iterations) == 0 {
			fmt.Println("\nNo iterations recorded.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "\nITER\tSCORE\tDELTA\tOUTPUT")
		for _, it := range iterations {
			delta := "-"
			if it.Delta != nil {
				delta = fmt.Sprintf("%+.2f", *it.Delta)
			}
			output := it.OutputPath
			if output == "" {
				output = "-"
			}
			fmt.Fprintf(w, "%d\t%.2f\t%s\t%s\n", it.Index, it.Score, delta, output)
		}
		return w.Flush()
	},
}

var runsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all recorded runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.New(viper.GetString("db"))
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		if err := db.ClearRuns(context.Background()); err != nil {
			return fmt.Errorf("failed to clear runs: %w", err)
		}
		fmt.Println("Run history cleared.")
		return nil
	},
}

// shortID truncates a UUID for listing; full IDs still work with show.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// resolveRunID accepts either a full run ID or the 8-character prefix shown
// by list.
func resolveRunID(ctx context.Context, db *store.Store, id string) (string, error) {
	if len(id) > 8 {
		return id, nil
	}
	runs, err := db.ListRuns(ctx)
	if err != nil {
		return "", err
	}
	for _, r := range runs {
		if shortID(r.ID) == id {
			return r.ID, nil
		}
	}
	return "", fmt.Errorf("run %s not found", id)
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsClearCmd)
}
