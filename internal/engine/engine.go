// Package engine creates batch jobs from a source tree and drives their
// pending jobs through rule lookup, command planning and execution.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harrison/dbfc/internal/command"
	"github.com/harrison/dbfc/internal/config"
	"github.com/harrison/dbfc/internal/fileutil"
	"github.com/harrison/dbfc/internal/fingerprint"
	"github.com/harrison/dbfc/internal/models"
	"github.com/harrison/dbfc/internal/rules"
	"github.com/harrison/dbfc/internal/state"
)

// Options wires the collaborators an Engine uses.
type Options struct {
	Runner   command.Runner // Executes planned commands (default: ExecRunner without timeout)
	Logger   Logger         // Receives progress (default: discard)
	Recorder Recorder       // Optional attempt history
}

// InitRequest describes a batch to create.
type InitRequest struct {
	Name           string
	SourceDir      string
	DestinationDir string
	// Rules snapshotted into the batch. Nil means rules.Defaults().
	Rules rules.Table
	// ExcludeDirs are directory names never scanned, at any depth.
	ExcludeDirs []string
	// ExcludePaths are files or directories left out of the scan, such as
	// the caller's own log and config files. Paths outside the source tree
	// are ignored.
	ExcludePaths []string
	// SkipHidden leaves out directories whose name starts with ".".
	SkipHidden bool
}

// Engine operates on a single batch.
type Engine struct {
	batch    *models.Batch
	runner   command.Runner
	logger   Logger
	recorder Recorder
	skipped  []string
}

// New wraps an already loaded batch.
func New(batch *models.Batch, opts Options) *Engine {
	e := &Engine{
		batch:    batch,
		runner:   opts.Runner,
		logger:   opts.Logger,
		recorder: opts.Recorder,
	}
	if e.runner == nil {
		e.runner = command.NewExecRunner(0)
	}
	if e.logger == nil {
		e.logger = nopLogger{}
	}
	return e
}

// Batch returns the batch the engine operates on.
func (e *Engine) Batch() *models.Batch {
	return e.batch
}

// Skipped lists the entries Init found that are neither directories nor
// regular files. It is empty for an engine returned by Open.
func (e *Engine) Skipped() []string {
	return e.skipped
}

// Open loads the batch called name from dir's control directory.
func Open(dir, name string, opts Options) (*Engine, error) {
	resolved, err := resolveDir(dir)
	if err != nil {
		return nil, fmt.Errorf("directory %q: %w", dir, state.ErrDirNotFound)
	}
	b, err := state.Load(resolved, name)
	if err != nil {
		return nil, err
	}
	return New(b, opts), nil
}

// Init scans the source tree, fingerprints every regular file and persists
// a new batch with one Pending job per file. Any failure here is fatal and
// leaves no state file behind.
func Init(ctx context.Context, req InitRequest, opts Options) (*Engine, error) {
	if err := state.ValidateName(req.Name); err != nil {
		return nil, err
	}
	if req.DestinationDir == "" {
		return nil, errors.New("destination directory is required")
	}

	sourceDir, err := resolveDir(req.SourceDir)
	if err != nil {
		return nil, fmt.Errorf("source directory %q: %w", req.SourceDir, state.ErrDirNotFound)
	}
	destDir, err := filepath.Abs(req.DestinationDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve destination directory: %w", err)
	}
	// The destination may already exist behind a symlink.
	if resolved, err := filepath.EvalSymlinks(destDir); err == nil {
		destDir = resolved
	}
	if destDir == sourceDir {
		return nil, ErrSameDirectory
	}

	exists, err := state.Exists(sourceDir, req.Name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("a batch job with name %s already exists: %w", req.Name, state.ErrAlreadyExists)
	}

	e := New(nil, opts)

	excluded := []string{state.ControlDir(sourceDir), filepath.Join(sourceDir, config.DirName)}
	if isWithin(sourceDir, destDir) {
		e.logger.LogWarn(fmt.Sprintf("destination %s is inside the source tree; it is excluded from the scan", destDir))
		excluded = append(excluded, destDir)
	}
	for _, p := range req.ExcludePaths {
		if p == "" {
			continue
		}
		if resolved := resolvePath(p); isWithin(sourceDir, resolved) {
			e.logger.LogDebug(fmt.Sprintf("excluding %s from the scan", resolved))
			excluded = append(excluded, resolved)
		}
	}

	scan, err := fileutil.ScanDirectory(sourceDir, fileutil.ScanOptions{
		ExcludeDirs:  req.ExcludeDirs,
		ExcludePaths: excluded,
		SkipHidden:   req.SkipHidden,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan source directory: %w", err)
	}
	for _, skipped := range scan.Skipped {
		e.logger.LogDebug(fmt.Sprintf("skipping non-regular file %s", skipped))
	}

	table := req.Rules
	if table == nil {
		table = rules.Defaults()
	}

	batch := &models.Batch{
		Name:           req.Name,
		SourceDir:      sourceDir,
		DestinationDir: destDir,
		Rules:          table.Merge(nil),
		Jobs:           make([]models.Job, 0, len(scan.Files)),
	}

	for _, path := range scan.Files {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("init interrupted: %w", err)
		}
		e.logger.LogDebug(fmt.Sprintf("fingerprinting %s", path))
		sum, err := fingerprint.File(path)
		if err != nil {
			return nil, fmt.Errorf("failed to fingerprint source file: %w", err)
		}
		batch.Jobs = append(batch.Jobs, models.NewJob(path, sum))
	}

	if err := state.Create(batch); err != nil {
		return nil, err
	}
	e.batch = batch
	e.skipped = scan.Skipped
	e.logger.LogInfo(fmt.Sprintf("created batch %s with %d jobs", batch.Name, len(batch.Jobs)))
	return e, nil
}

// Run processes every Pending job in order and saves the batch once at the
// end. Job failures mark the job Error and never stop the run. Cancelling
// ctx stops before the next job; the interrupted job and all later ones stay
// Pending for the next run. The returned error is non-nil only for the run
// lock or the final save; the RunResult is returned in either case once
// processing started.
func (e *Engine) Run(ctx context.Context) (*models.RunResult, error) {
	lock, err := state.AcquireRunLock(e.batch.SourceDir, e.batch.Name)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			e.logger.LogWarn(fmt.Sprintf("failed to release run lock: %v", err))
		}
	}()

	start := time.Now()
	pending := e.batch.Pending()
	result := &models.RunResult{
		RunID:     uuid.New().String(),
		BatchName: e.batch.Name,
		Outcomes:  make([]models.JobOutcome, 0, len(pending)),
	}

	e.logger.LogRunStart(e.batch, len(pending))

	for i, idx := range pending {
		if ctx.Err() != nil {
			result.Interrupted = true
			break
		}

		job := e.batch.Jobs[idx]
		e.logger.LogJobStart(i+1, len(pending), job, e.relPath(job.SourcePath))

		outcome := e.process(ctx, idx)
		if outcome.Err != nil && ctx.Err() != nil && errors.Is(outcome.Err, ctx.Err()) {
			// Interrupted mid-command: leave the job Pending.
			e.logger.LogWarn(fmt.Sprintf("interrupted while processing %s", job.SourcePath))
			result.Interrupted = true
			break
		}

		if outcome.Err != nil {
			if err := e.batch.Jobs[idx].MarkError(); err != nil {
				return nil, err
			}
			result.Failed++
		} else {
			result.Done++
		}
		outcome.Job = e.batch.Jobs[idx]
		result.Attempted++
		result.Outcomes = append(result.Outcomes, outcome)

		e.logger.LogJobResult(outcome)
		e.record(result.RunID, outcome)
	}

	result.Summary = e.batch.Summary()
	result.Remaining = result.Summary.Pending
	result.Duration = time.Since(start)
	e.logger.LogSummary(*result)

	if err := state.Save(e.batch); err != nil {
		return result, err
	}
	return result, nil
}

// process attempts the job at idx. On success the job is marked Done; on
// failure the returned outcome carries a *JobError and the job is left for
// the caller to mark.
func (e *Engine) process(ctx context.Context, idx int) models.JobOutcome {
	start := time.Now()
	job := &e.batch.Jobs[idx]
	outcome := models.JobOutcome{Index: idx}

	fail := func(stage Stage, err error) models.JobOutcome {
		outcome.Err = newJobError(job.SourcePath, stage, err)
		outcome.Duration = time.Since(start)
		return outcome
	}

	rel, err := filepath.Rel(e.batch.SourceDir, job.SourcePath)
	if err != nil || !isRelativeDescendant(rel) {
		return fail(StageResolve, ErrOutsideSourceDir)
	}
	outcome.RelPath = rel

	info, err := os.Lstat(job.SourcePath)
	if err != nil {
		if os.IsNotExist(err) {
			return fail(StageVerify, ErrSourceMissing)
		}
		return fail(StageVerify, err)
	}
	if !info.Mode().IsRegular() {
		return fail(StageVerify, ErrNotRegularFile)
	}

	ext, ok := rules.Extension(job.SourcePath)
	if !ok {
		return fail(StageRule, rules.ErrNoExtension)
	}
	template, err := e.batch.Rules.Lookup(ext)
	if err != nil {
		return fail(StageRule, err)
	}

	destination := filepath.Join(e.batch.DestinationDir, rel)
	cmd, err := command.Plan(template, job.SourcePath, destination)
	if err != nil {
		return fail(StagePlan, err)
	}
	outcome.Argv = cmd.Argv()

	if err := os.MkdirAll(filepath.Dir(destination), 0755); err != nil {
		return fail(StagePrepare, fmt.Errorf("%w: %v", ErrDestinationDir, err))
	}

	e.logger.LogDebug(fmt.Sprintf("running: %s", cmd))
	res, err := e.runner.Run(ctx, cmd)
	if res != nil {
		outcome.ExitCode = res.ExitCode
		outcome.Stdout = res.Stdout
		outcome.Stderr = res.Stderr
		e.logOutput(res)
	}
	if err != nil {
		return fail(StageExecute, err)
	}

	if err := job.MarkDone(destination); err != nil {
		return fail(StageExecute, err)
	}
	outcome.Duration = time.Since(start)
	return outcome
}

func (e *Engine) logOutput(res *command.Result) {
	if s := strings.TrimSpace(res.Stdout); s != "" {
		e.logger.LogDebug("stdout: " + s)
	}
	if s := strings.TrimSpace(res.Stderr); s != "" {
		e.logger.LogDebug("stderr: " + s)
	}
}

func (e *Engine) record(runID string, outcome models.JobOutcome) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.RecordAttempt(runID, e.batch.Name, outcome); err != nil {
		e.logger.LogWarn(fmt.Sprintf("failed to record attempt history: %v", err))
	}
}

func (e *Engine) relPath(path string) string {
	rel, err := filepath.Rel(e.batch.SourceDir, path)
	if err != nil {
		return path
	}
	return rel
}

// resolveDir returns the absolute, symlink-free form of an existing directory.
func resolveDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", resolved)
	}
	return resolved, nil
}

// resolvePath makes p absolute and resolves symlinks in it. A path that does
// not exist yet keeps its base name under the resolved parent.
func resolvePath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	if parent, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
		return filepath.Join(parent, filepath.Base(abs))
	}
	return abs
}

func isRelativeDescendant(rel string) bool {
	if rel == "." || filepath.IsAbs(rel) {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func isWithin(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return isRelativeDescendant(rel)
}
