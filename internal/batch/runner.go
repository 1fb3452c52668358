// Package batch orchestrates OCR cleanup over a single document or a
// directory of documents. Each document is read, corrected via one model
// call per chunk, and written to its output path. A document's failure is
// recorded in its outcome, never propagated; only the caller's configuration
// can abort a run.
package batch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/greg-randall/ocr-translation/internal"
	"github.com/greg-randall/ocr-translation/internal/chunker"
	"github.com/greg-randall/ocr-translation/internal/cleaner"
	"github.com/greg-randall/ocr-translation/internal/postprocess"
	"github.com/greg-randall/ocr-translation/internal/store"
	"github.com/greg-randall/ocr-translation/internal/validator"
)

// Outcome is the per-document result record. Success is true only when the
// read, the model call, and the write all succeeded. CleanedText is retained
// on write failure so the write can be retried without another model call.
type Outcome struct {
	InputPath   string `json:"input_path"`
	OutputPath  string `json:"output_path"`
	Success     bool   `json:"success"`
	CleanedText string `json:"cleaned_text,omitempty"`
	Err         string `json:"error,omitempty"`
}

// Summary aggregates outcomes over one batch run.
type Summary struct {
	Total       int
	Succeeded   int
	Failed      int
	FailedPaths []string
}

type Config struct {
	Model        string // provider:model label, used for cache keys and diagnostics
	SystemPrompt string
	UserPrompt   string
	Temperature  float64

	OutputDir      string        // default directory for derived output paths
	Timeout        time.Duration // per model call
	MaxAttempts    int           // total attempts per chunk including the first; 1 = no retries
	Concurrency    int           // documents processed in parallel; 1 = sequential
	MaxChunkRunes  int           // split documents larger than this; 0 = never split
	StripArtifacts bool
	CheckLanguage  bool
}

type Runner struct {
	svc    cleaner.Service
	svcCfg cleaner.ServiceConfig
	cfg    Config

	db           *store.Store
	checkpointID string
	completed    map[string]store.CheckpointFile

	val    *validator.Validator
	stderr io.Writer
}

func New(svc cleaner.Service, svcCfg cleaner.ServiceConfig, cfg Config) *Runner {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "cleaned"
	}

	r := &Runner{
		svc:    svc,
		svcCfg: svcCfg,
		cfg:    cfg,
		stderr: os.Stderr,
	}
	if cfg.CheckLanguage {
		r.val = validator.New()
	}
	return r
}

// UseStore attaches a correction-memory and checkpoint store. All store
// access is best-effort; a store error never fails a document.
func (r *Runner) UseStore(db *store.Store) {
	r.db = db
}

// Resume attaches a checkpoint. Files listed in completed are skipped and
// reported as already-successful outcomes; newly completed files are recorded
// under checkpointID.
func (r *Runner) Resume(checkpointID string, completed map[string]store.CheckpointFile) {
	r.checkpointID = checkpointID
	r.completed = completed
}

func (r *Runner) CheckpointID() string {
	return r.checkpointID
}

// SetStderr redirects progress diagnostics (used by tests).
func (r *Runner) SetStderr(w io.Writer) {
	r.stderr = w
}

// ProcessOne cleans a single document. When outputPath is empty it is derived
// from the input's base name under the configured output directory. All
// failures are captured in the returned Outcome.
func (r *Runner) ProcessOne(ctx context.Context, inputPath, outputPath string) Outcome {
	out := Outcome{InputPath: inputPath, OutputPath: outputPath}

	raw, err := os.ReadFile(inputPath)
	if err != nil {
		out.Err = fmt.Sprintf("read failed: %v", err)
		return out
	}

	if outputPath == "" {
		outputPath = filepath.Join(r.cfg.OutputDir, filepath.Base(inputPath))
		out.OutputPath = outputPath
	}

	fmt.Fprintf(r.stderr, "Cleaning %s using %s...\n", inputPath, r.cfg.Model)

	cleaned, err := r.clean(ctx, inputPath, string(raw))
	if err != nil {
		out.Err = err.Error()
		return out
	}
	out.CleanedText = cleaned

	if r.val != nil {
		if ok, verr := r.val.SameLanguage(string(raw), cleaned); !ok {
			fmt.Fprintf(r.stderr, "Warning: %s: %v\n", inputPath, verr)
		}
	}

	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			out.Err = fmt.Sprintf("failed to create output directory: %v", err)
			return out
		}
	}
	if err := os.WriteFile(outputPath, []byte(cleaned), 0644); err != nil {
		out.Err = fmt.Sprintf("write failed: %v", err)
		return out
	}

	out.Success = true

	if r.db != nil && r.checkpointID != "" {
		_ = r.db.SaveCheckpointFile(ctx, r.checkpointID, inputPath, outputPath, cleaned)
	}
	return out
}

// ProcessBatch cleans every file under inputDir matching pattern. The glob is
// resolved relative to inputDir, so patterns may reach into subdirectories
// ("*/*.md"). Outcomes are returned in enumeration order regardless of
// concurrency, exactly one per matched file.
func (r *Runner) ProcessBatch(ctx context.Context, inputDir, outputDir, pattern string) ([]Outcome, Summary) {
	matches, err := filepath.Glob(filepath.Join(inputDir, pattern))
	if err != nil {
		out := Outcome{InputPath: inputDir, Err: fmt.Sprintf("bad pattern %q: %v", pattern, err)}
		return []Outcome{out}, summarize([]Outcome{out})
	}

	var files []string
	for _, m := range matches {
		if info, statErr := os.Stat(m); statErr == nil && !info.IsDir() {
			files = append(files, m)
		}
	}
	sort.Strings(files)

	if len(files) == 0 {
		fmt.Fprintf(r.stderr, "No files matching %q found in %s\n", pattern, inputDir)
		return nil, Summary{}
	}

	fmt.Fprintf(r.stderr, "Found %d files to clean\n", len(files))

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		outcomes := make([]Outcome, len(files))
		for i, f := range files {
			outcomes[i] = Outcome{InputPath: f, Err: fmt.Sprintf("failed to create output directory: %v", err)}
		}
		return outcomes, summarize(outcomes)
	}

	type job struct {
		idx     int
		in, out string
	}

	outcomes := make([]Outcome, len(files))
	claimed := make(map[string]int, len(files))
	var jobs []job

	for i, f := range files {
		outPath, _ := rerootPath(f, inputDir, outputDir)

		// The base-name fallback can map two same-named files from different
		// directories onto one output; refuse to overwrite the first claimant.
		if prev, dup := claimed[outPath]; dup {
			outcomes[i] = Outcome{
				InputPath:  f,
				OutputPath: outPath,
				Err:        fmt.Sprintf("output path collision with %s", files[prev]),
			}
			continue
		}
		claimed[outPath] = i

		if done, ok := r.completed[f]; ok {
			outcomes[i] = Outcome{
				InputPath:   f,
				OutputPath:  done.OutputPath,
				Success:     true,
				CleanedText: done.CleanedText,
			}
			continue
		}

		jobs = append(jobs, job{idx: i, in: f, out: outPath})
	}

	sem := make(chan struct{}, r.cfg.Concurrency)
	var wg sync.WaitGroup
	for _, j := range jobs {
		wg.Add(1)
		sem <- struct{}{}
		go func(j job) {
			defer wg.Done()
			defer func() { <-sem }()
			outcomes[j.idx] = r.ProcessOne(ctx, j.in, j.out)
		}(j)
	}
	wg.Wait()

	return outcomes, summarize(outcomes)
}

// clean runs the full correction of one document's text: chunk, clean each
// chunk in order, reassemble, and optionally strip model artifacts.
func (r *Runner) clean(ctx context.Context, inputPath, text string) (string, error) {
	chunks := chunker.Split(text, r.cfg.MaxChunkRunes)

	reqID := uuid.New().String()
	if r.db != nil {
		_ = r.db.SaveRequest(ctx, internal.CleanJob{
			ID:        reqID,
			InputPath: inputPath,
			Model:     r.cfg.Model,
			Timestamp: time.Now(),
		})
	}

	cleanedChunks := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		cleaned, err := r.cleanChunk(ctx, reqID, chunk)
		if err != nil {
			return "", err
		}
		cleanedChunks = append(cleanedChunks, cleaned)
	}

	cleaned := chunker.Join(cleanedChunks)
	if r.cfg.StripArtifacts {
		cleaned = postprocess.Clean(cleaned)
	}
	return cleaned, nil
}

// cleanChunk makes the model call for one chunk, going through the correction
// memory first and retrying transient failures up to MaxAttempts.
func (r *Runner) cleanChunk(ctx context.Context, reqID, text string) (string, error) {
	if r.db != nil {
		if cached, found, err := r.db.GetCachedCorrection(ctx, text, r.cfg.Model); err == nil && found {
			return cached, nil
		}
	}

	req := cleaner.CleanRequest{
		Text:         text,
		SystemPrompt: r.cfg.SystemPrompt,
		UserPrompt:   r.cfg.UserPrompt,
		Temperature:  r.cfg.Temperature,
	}

	var lastErr error
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
		res, err := r.svc.Clean(callCtx, r.svcCfg, req)
		cancel()

		if err == nil && res != nil && res.Error == "" {
			if r.db != nil {
				_ = r.db.SaveResult(ctx, reqID, r.svc.Name(), res.CleanedText, int(res.Latency.Milliseconds()), "")
				_ = r.db.SaveCorrection(ctx, text, r.cfg.Model, res.CleanedText)
			}
			return res.CleanedText, nil
		}

		if err == nil {
			err = fmt.Errorf("%s: %s", r.svc.Name(), res.Error)
		}
		lastErr = err
		if r.db != nil {
			_ = r.db.SaveResult(ctx, reqID, r.svc.Name(), "", 0, err.Error())
		}
		if attempt < r.cfg.MaxAttempts {
			fmt.Fprintf(r.stderr, "Attempt %d/%d failed: %v, retrying\n", attempt, r.cfg.MaxAttempts, err)
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}

	return "", fmt.Errorf("model call failed after %d attempt(s): %w", r.cfg.MaxAttempts, lastErr)
}

// rerootPath maps inputPath under inputDir to the corresponding path under
// outputDir, preserving the relative sub-path. Files not actually under
// inputDir fall back to their base name directly under outputDir; the second
// return reports that fallback.
func rerootPath(inputPath, inputDir, outputDir string) (string, bool) {
	rel, err := filepath.Rel(inputDir, inputPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.Join(outputDir, filepath.Base(inputPath)), true
	}
	return filepath.Join(outputDir, rel), false
}

func summarize(outcomes []Outcome) Summary {
	s := Summary{Total: len(outcomes)}
	for _, o := range outcomes {
		if o.Success {
			s.Succeeded++
		} else {
			s.Failed++
			s.FailedPaths = append(s.FailedPaths, o.InputPath)
		}
	}
	return s
}
