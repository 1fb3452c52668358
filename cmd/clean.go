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
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/greg-randall/ocr-translation/internal/batch"
	"github.com/greg-randall/ocr-translation/internal/cleaner"
	"github.com/greg-randall/ocr-translation/internal/config"
	"github.com/greg-randall/ocr-translation/internal/store"
)

var (
	cleanOutput       string
	cleanBatch        bool
	cleanPattern      string
	cleanModel        string
	cleanSystemPrompt string
	cleanUserPrompt   string
	cleanTemperature  float64

	cleanTimeout     time.Duration
	cleanMaxRetries  int
	cleanConcurrency int
	cleanMaxChunk    int
	cleanStrip       bool
	cleanCheckLang   bool

	cleanDBPath  string
	cleanNoCache bool
	cleanResume  string
)

var cleanCmd = &cobra.Command{
	Use:   "clean <input>",
	Short: "Clean an OCR-generated markdown file or directory",
	Long: `Clean OCR-generated markdown using an AI model.

The input may be a single file or a directory. Directories (or --batch) are
processed file by file: one document's failure never aborts the run, and a
summary is printed at the end.

Model identifiers take the form provider:model, e.g.:
  openai:gpt-4o
  anthropic:claude-3-5-sonnet-20240620
  ollama:llama3.2
  openrouter:mistralai/mistral-nemo:free

A checkpoint ID is printed at the start of each batch run when the cache
database is enabled. If the run is interrupted, use --resume with that ID to
skip already-cleaned files.`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		input := args[0]

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		applyConfigDefaults(cmd, cfg)

		modelID, err := cleaner.ParseModelID(cleanModel)
		if err != nil {
			return err
		}

		svc, err := buildService(modelID, cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := svc.IsAvailable(ctx); err != nil {
			return fmt.Errorf("model backend unavailable: %w", err)
		}

		var db *store.Store
		if !cleanNoCache && cleanDBPath != "" {
			db, err = store.New(cleanDBPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: cache disabled: %v\n", err)
				db = nil
			} else {
				defer db.Close()
			}
		}

		runner := batch.New(svc, cleaner.ServiceConfig{Timeout: cleanTimeout}, batch.Config{
			Model:          cleanModel,
			SystemPrompt:   cleanSystemPrompt,
			UserPrompt:     cleanUserPrompt,
			Temperature:    cleanTemperature,
			OutputDir:      cleanOutput,
			Timeout:        cleanTimeout,
			MaxAttempts:    cleanMaxRetries,
			Concurrency:    cleanConcurrency,
			MaxChunkRunes:  cleanMaxChunk,
			StripArtifacts: cleanStrip,
			CheckLanguage:  cleanCheckLang,
		})
		if db != nil {
			runner.UseStore(db)
		}

		info, statErr := os.Stat(input)
		isDir := statErr == nil && info.IsDir()

		if cleanBatch || isDir {
			return runBatch(ctx, runner, db, input)
		}
		return runSingle(ctx, runner, cmd, input)
	},
}

// applyConfigDefaults lets the config file and OCRCLEAN_* env vars supply
// values for flags the user did not set explicitly.
func applyConfigDefaults(cmd *cobra.Command, cfg config.Config) {
	flags := cmd.Flags()
	if !flags.Changed("output") {
		cleanOutput = cfg.OutputDir
	}
	if !flags.Changed("pattern") {
		cleanPattern = cfg.Pattern
	}
	if !flags.Changed("model") {
		cleanModel = cfg.Model
	}
	if !flags.Changed("system-prompt") {
		cleanSystemPrompt = cfg.SystemPrompt
	}
	if !flags.Changed("user-prompt") {
		cleanUserPrompt = cfg.UserPrompt
	}
	if !flags.Changed("temperature") {
		cleanTemperature = cfg.Temperature
	}
	if !flags.Changed("timeout") {
		cleanTimeout = cfg.Timeout
	}
	if !flags.Changed("max-retries") {
		cleanMaxRetries = cfg.MaxRetries
	}
	if !flags.Changed("concurrency") {
		cleanConcurrency = cfg.Concurrency
	}
	if !flags.Changed("max-chunk") {
		cleanMaxChunk = cfg.MaxChunk
	}
	if !flags.Changed("db") {
		cleanDBPath = cfg.DBPath
	}
}

func runSingle(ctx context.Context, runner *batch.Runner, cmd *cobra.Command, input string) error {
	// An explicit --output names the destination file, unless it is an
	// existing directory; otherwise the path is derived from the input's base
	// name under the default output directory.
	outPath := ""
	if cmd.Flags().Changed("output") {
		if fi, err := os.Stat(cleanOutput); err == nil && fi.IsDir() {
			outPath = filepath.Join(cleanOutput, filepath.Base(input))
		} else {
			outPath = cleanOutput
		}
	}

	o := runner.ProcessOne(ctx, input, outPath)
	if !o.Success {
		fmt.Printf("Failed to clean %s: %s\n", input, o.Err)
		return fmt.Errorf("cleaning failed")
	}

	fmt.Printf("Successfully cleaned %s\n", input)
	fmt.Printf("Cleaned markdown saved to %s\n", o.OutputPath)
	return nil
}

func runBatch(ctx context.Context, runner *batch.Runner, db *store.Store, inputDir string) error {
	if db != nil {
		if cleanResume != "" {
			if _, err := db.GetCheckpoint(ctx, cleanResume); err != nil {
				return fmt.Errorf("failed to load checkpoint: %w", err)
			}
			files, err := db.GetCheckpointFiles(ctx, cleanResume)
			if err != nil {
				return fmt.Errorf("failed to load checkpoint files: %w", err)
			}
			runner.Resume(cleanResume, files)
			fmt.Fprintf(os.Stderr, "Resuming checkpoint %s (%d files already done)\n", cleanResume, len(files))
		} else {
			id, err := db.CreateCheckpoint(ctx, inputDir, cleanOutput, cleanPattern, cleanModel)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to create checkpoint: %v\n", err)
			} else {
				runner.Resume(id, nil)
				fmt.Fprintf(os.Stderr, "Checkpoint ID: %s (use --resume %s to resume if interrupted)\n", id, id)
			}
		}
	} else if cleanResume != "" {
		return fmt.Errorf("--resume requires the cache database (remove --no-cache)")
	}

	outcomes, summary := runner.ProcessBatch(ctx, inputDir, cleanOutput, cleanPattern)

	for _, o := range outcomes {
		if o.Success {
			fmt.Printf("Cleaned %s -> %s\n", o.InputPath, o.OutputPath)
		} else {
			fmt.Printf("Failed %s: %s\n", o.InputPath, o.Err)
		}
	}
	fmt.Printf("Processed %d files: %d succeeded, %d failed\n", summary.Total, summary.Succeeded, summary.Failed)

	if db != nil && runner.CheckpointID() != "" && summary.Total > 0 && summary.Failed == 0 {
		_ = db.CompleteCheckpoint(ctx, runner.CheckpointID())
	}

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d files failed", summary.Failed, summary.Total)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(cleanCmd)

	cleanCmd.Flags().StringVarP(&cleanOutput, "output", "o", config.DefaultOutputDir, "Output file or directory")
	cleanCmd.Flags().BoolVarP(&cleanBatch, "batch", "b", false, "Process all matching files in the input directory")
	cleanCmd.Flags().StringVarP(&cleanPattern, "pattern", "p", config.DefaultPattern, "File pattern when using batch mode")
	cleanCmd.Flags().StringVarP(&cleanModel, "model", "m", config.DefaultModel, "AI model to use (provider:model)")
	cleanCmd.Flags().StringVarP(&cleanSystemPrompt, "system-prompt", "s", config.DefaultSystemPrompt, "Custom system prompt for cleaning")
	cleanCmd.Flags().StringVarP(&cleanUserPrompt, "user-prompt", "u", config.DefaultUserPrompt, "Custom user prompt for cleaning")
	cleanCmd.Flags().Float64VarP(&cleanTemperature, "temperature", "t", config.DefaultTemperature, "Temperature for LLM generation (0.0-1.0)")

	cleanCmd.Flags().DurationVar(&cleanTimeout, "timeout", config.DefaultTimeout, "Per-call timeout for the model backend")
	cleanCmd.Flags().IntVar(&cleanMaxRetries, "max-retries", 1, "Total attempts per model call including the first (1 = no retries)")
	cleanCmd.Flags().IntVar(&cleanConcurrency, "concurrency", 1, "Files cleaned in parallel in batch mode")
	cleanCmd.Flags().IntVar(&cleanMaxChunk, "max-chunk", 0, "Split documents larger than this many characters (0 = never split)")
	cleanCmd.Flags().BoolVar(&cleanStrip, "strip-artifacts", false, "Strip LLM artifacts (preambles, quote wrapping) from output")
	cleanCmd.Flags().BoolVar(&cleanCheckLang, "check-language", false, "Warn when the corrected text is in a different language than the source")

	cleanCmd.Flags().StringVar(&cleanDBPath, "db", config.DefaultDBPath, "Database path for correction memory and checkpoints")
	cleanCmd.Flags().BoolVar(&cleanNoCache, "no-cache", false, "Disable the correction memory cache")
	cleanCmd.Flags().StringVar(&cleanResume, "resume", "", "Resume an interrupted batch run by checkpoint ID")
}
