package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/kbimport/core"
	"github.com/poiesic/kbimport/remote"
	"github.com/poiesic/kbimport/retry"
)

// DefaultConcurrency is the upload worker pool size per knowledge base.
const DefaultConcurrency = 5

// Importer orchestrates an import run: health check, per-base creation, and
// concurrent file uploads through a bounded worker pool. Bases are processed
// strictly one at a time; concurrency exists only within a base.
type Importer struct {
	service     remote.Service
	policy      retry.Policy
	concurrency int
	dryRun      bool
	progress    io.Writer
	logger      *slog.Logger
}

// Option configures an Importer.
type Option func(*Importer) error

// WithConcurrency sets the upload worker pool size per base.
// Default is DefaultConcurrency.
func WithConcurrency(n int) Option {
	return func(i *Importer) error {
		if n < 1 {
			return ErrInvalidConcurrency
		}
		i.concurrency = n
		return nil
	}
}

// WithRetryPolicy sets the retry policy applied to every remote operation.
// The policy's Retryable predicate is forced to transient-only
// classification; permanent rejections never consume extra attempts.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(i *Importer) error {
		if policy.MaxAttempts < 1 {
			return retry.ErrInvalidMaxAttempts
		}
		policy.Retryable = remote.IsTransient
		i.policy = policy
		return nil
	}
}

// WithDryRun makes Run report what would happen without any remote calls.
func WithDryRun(dryRun bool) Option {
	return func(i *Importer) error {
		i.dryRun = dryRun
		return nil
	}
}

// WithProgress enables per-file progress reporting to w (typically
// os.Stderr).
func WithProgress(w io.Writer) Option {
	return func(i *Importer) error {
		i.progress = w
		return nil
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(i *Importer) error {
		if logger == nil {
			logger = slog.Default()
		}
		i.logger = logger
		return nil
	}
}

// New creates an importer that issues its remote operations against service.
func New(service remote.Service, opts ...Option) (*Importer, error) {
	if service == nil {
		return nil, ErrServiceRequired
	}

	policy := retry.DefaultPolicy()
	policy.Retryable = remote.IsTransient

	i := &Importer{
		service:     service,
		policy:      policy,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(i); err != nil {
			return nil, err
		}
	}
	return i, nil
}

// Run executes the plan and returns the summary. Exactly one outcome is
// produced per planned file. A failed health check aborts the whole run
// with ErrServiceUnavailable; past that point partial failure lives in the
// summary, never in the returned error.
func (i *Importer) Run(ctx context.Context, plan *core.ImportPlan) (*core.ImportSummary, error) {
	if err := core.ValidatePlan(plan); err != nil {
		return nil, err
	}

	start := time.Now()
	acc := newAccumulator(plan, i.progress)

	if i.dryRun {
		// Dry runs touch nothing remote, the health check included.
		for _, base := range plan.Bases {
			i.logger.Info("dry run", "base", base.Name, "files", len(base.Files))
			message := fmt.Sprintf("would create %q and upload %d files", base.Name, len(base.Files))
			for _, file := range base.Files {
				acc.record(base.Name, core.Skipped(file, core.SkipDryRun, message))
			}
		}
		return acc.summary(time.Since(start)), nil
	}

	if err := i.policy.Do(ctx, func() error { return i.service.HealthCheck(ctx) }); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}
	i.logger.Debug("health check passed")

	for _, base := range plan.Bases {
		i.runBase(ctx, base, acc)
	}

	return acc.summary(time.Since(start)), nil
}

// runBase creates one knowledge base and uploads its files through a worker
// pool whose lifetime is scoped to the base. Failures here are recorded in
// the accumulator and never abort sibling bases.
func (i *Importer) runBase(ctx context.Context, base core.PlannedBase, acc *accumulator) {
	if ctx.Err() != nil {
		i.skipBase(base, acc, core.SkipCancelled, "run cancelled before base started")
		return
	}

	i.logger.Info("processing knowledge base", "base", base.Name, "files", len(base.Files))

	// An existing base is skipped wholesale rather than written into; the
	// lookup is best-effort and a failed lookup falls through to create.
	existingID, found, err := findExisting(ctx, i.policy, i.service, base.Name)
	if err != nil {
		i.logger.Warn("could not check for existing knowledge base", "base", base.Name, "err", err)
	} else if found {
		i.logger.Warn("knowledge base already exists, skipping", "base", base.Name, "id", existingID)
		acc.setRemoteID(base.Name, existingID)
		i.skipBase(base, acc, core.SkipBaseExists, fmt.Sprintf("knowledge base already exists (id %s)", existingID))
		return
	}

	kbID, err := retry.DoValue(ctx, i.policy, func() (string, error) {
		return i.service.CreateKnowledgeBase(ctx, base.Name)
	})
	if err != nil {
		i.logger.Error("failed to create knowledge base", "base", base.Name, "err", err)
		message := fmt.Sprintf("knowledge base creation failed: %v", err)
		for _, file := range base.Files {
			acc.record(base.Name, core.Failed(file, core.FailureCreation, message))
		}
		return
	}
	acc.setRemoteID(base.Name, kbID)
	i.logger.Debug("created knowledge base", "base", base.Name, "id", kbID)

	pool, err := ants.NewPool(i.concurrency)
	if err != nil {
		// Concurrency is validated at construction; reaching this means the
		// pool itself could not start.
		message := fmt.Sprintf("worker pool unavailable: %v", err)
		for _, file := range base.Files {
			acc.record(base.Name, core.Failed(file, core.FailureUpload, message))
		}
		return
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for _, file := range base.Files {
		if ctx.Err() != nil {
			acc.record(base.Name, core.Skipped(file, core.SkipCancelled, "run cancelled"))
			continue
		}

		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			acc.record(base.Name, i.uploadOne(ctx, kbID, file))
		})
		if submitErr != nil {
			wg.Done()
			acc.record(base.Name, core.Failed(file, core.FailureUpload, fmt.Sprintf("submitting upload: %v", submitErr)))
		}
	}
	wg.Wait()
}

// uploadOne performs the retried upload-then-attach flow for a single file.
func (i *Importer) uploadOne(ctx context.Context, kbID string, file core.FileEntry) core.UploadOutcome {
	if ctx.Err() != nil {
		return core.Skipped(file, core.SkipCancelled, "run cancelled")
	}

	start := time.Now()

	// The file is opened per attempt so a retried upload always streams
	// from the beginning.
	fileID, err := retry.DoValue(ctx, i.policy, func() (string, error) {
		f, openErr := os.Open(file.Path)
		if openErr != nil {
			return "", openErr
		}
		defer f.Close()
		return i.service.UploadFile(ctx, file.Name, f)
	})
	if err != nil {
		if ctx.Err() != nil {
			return core.Skipped(file, core.SkipCancelled, "run cancelled")
		}
		i.logger.Error("upload failed", "file", file.Name, "err", err)
		return core.Failed(file, core.FailureUpload, err.Error())
	}

	err = i.policy.Do(ctx, func() error {
		return i.service.AddFileToKnowledgeBase(ctx, kbID, fileID)
	})
	if err != nil {
		if ctx.Err() != nil {
			return core.Skipped(file, core.SkipCancelled, "run cancelled")
		}
		i.logger.Error("attach failed, remote file orphaned", "file", file.Name, "fileID", fileID, "err", err)
		return core.Orphaned(file, fileID, err.Error())
	}

	elapsed := time.Since(start)
	i.logger.Debug("file imported", "file", file.Name, "fileID", fileID, "elapsed", elapsed)
	return core.Succeeded(file, fileID, elapsed)
}

// skipBase records the same skip outcome for every file of a base.
func (i *Importer) skipBase(base core.PlannedBase, acc *accumulator, reason core.SkipReason, message string) {
	for _, file := range base.Files {
		acc.record(base.Name, core.Skipped(file, reason, message))
	}
}

func findExisting(ctx context.Context, policy retry.Policy, service remote.Service, name string) (string, bool, error) {
	type lookup struct {
		id    string
		found bool
	}
	result, err := retry.DoValue(ctx, policy, func() (lookup, error) {
		id, found, err := service.FindKnowledgeBase(ctx, name)
		return lookup{id: id, found: found}, err
	})
	if err != nil {
		return "", false, err
	}
	return result.id, result.found, nil
}

// accumulator is the only shared mutable state of a run. Outcomes are
// appended under a mutex; the summary is assembled once, after all workers
// have joined.
type accumulator struct {
	mu      sync.Mutex
	order   []string
	bases   map[string]*core.BaseSummary
	tracker *ProgressTracker
}

func newAccumulator(plan *core.ImportPlan, progress io.Writer) *accumulator {
	acc := &accumulator{
		bases: make(map[string]*core.BaseSummary, len(plan.Bases)),
	}
	for _, base := range plan.Bases {
		acc.order = append(acc.order, base.Name)
		acc.bases[base.Name] = &core.BaseSummary{
			Name:  base.Name,
			Total: len(base.Files),
		}
	}
	if progress != nil {
		acc.tracker = NewProgressTracker(progress, plan.TotalFiles(), 1)
		acc.tracker.Start()
	}
	return acc
}

func (a *accumulator) record(baseName string, outcome core.UploadOutcome) {
	a.mu.Lock()
	base := a.bases[baseName]
	base.Outcomes = append(base.Outcomes, outcome)
	switch outcome.Status {
	case core.StatusSucceeded:
		base.Succeeded++
	case core.StatusFailed:
		base.Failed++
	case core.StatusSkipped:
		base.Skipped++
	}
	a.mu.Unlock()

	if a.tracker != nil {
		a.tracker.Increment(1)
	}
}

func (a *accumulator) setRemoteID(baseName, id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.bases[baseName].RemoteID = id
}

func (a *accumulator) summary(elapsed time.Duration) *core.ImportSummary {
	if a.tracker != nil {
		a.tracker.Finish()
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	summary := &core.ImportSummary{Elapsed: elapsed}
	for _, name := range a.order {
		summary.Bases = append(summary.Bases, *a.bases[name])
	}
	return summary
}
