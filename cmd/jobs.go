/*
Copyright © 2025 Greg Randall

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
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/greg-randall/ocr-translation/internal/config"
	"github.com/greg-randall/ocr-translation/internal/store"
)

var jobsDBPath string

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect batch run checkpoints",
	Long: `List and inspect batch run checkpoints.

Each batch run with the cache database enabled records a checkpoint; an
interrupted run can be continued with "ocrclean clean --resume <id>".`,
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all batch checkpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.New(jobsDBPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		checkpoints, err := db.ListCheckpoints(context.Background())
		if err != nil {
			return fmt.Errorf("failed to list checkpoints: %w", err)
		}

		if len(checkpoints) == 0 {
			fmt.Println("No batch checkpoints recorded.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tINPUT\tOUTPUT\tPATTERN\tMODEL\tSTATUS\tCREATED")
		for _, cp := range checkpoints {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				cp.ID, cp.InputDir, cp.OutputDir, cp.Pattern, cp.Model,
				cp.Status, cp.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var jobsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show the files completed by a checkpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.New(jobsDBPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		ctx := context.Background()

		cp, err := db.GetCheckpoint(ctx, args[0])
		if err != nil {
			return err
		}
		files, err := db.GetCheckpointFiles(ctx, cp.ID)
		if err != nil {
			return fmt.Errorf("failed to load checkpoint files: %w", err)
		}

		fmt.Printf("Checkpoint: %s\n", cp.ID)
		fmt.Printf("Input:      %s\n", cp.InputDir)
		fmt.Printf("Output:     %s\n", cp.OutputDir)
		fmt.Printf("Pattern:    %s\n", cp.Pattern)
		fmt.Printf("Model:      %s\n", cp.Model)
		fmt.Printf("Status:     %s\n", cp.Status)
		fmt.Printf("Completed:  %d files\n", len(files))

		if len(files) == 0 {
			return nil
		}

		paths := make([]string, 0, len(files))
		for p := range files {
			paths = append(paths, p)
		}
		sort.Strings(paths)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "INPUT\tOUTPUT")
		for _, p := range paths {
			fmt.Fprintf(w, "%s\t%s\n", p, files[p].OutputPath)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(jobsCmd)

	jobsCmd.PersistentFlags().StringVar(&jobsDBPath, "db", config.DefaultDBPath, "Database path")

	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsShowCmd)
}
