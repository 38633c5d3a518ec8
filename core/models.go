package core

import (
	"strings"
	"time"
)

// FileEntry describes one candidate document discovered by the scanner.
// Entries are immutable once scanned.
type FileEntry struct {
	Path string // Absolute path on the local filesystem
	Name string // Base name, used for display and as the remote filename
	Size int64  // Size in bytes at scan time
	Ext  string // Lowercase extension including the leading dot, "" if none
}

// PlannedBase is one knowledge base to be created remotely, together with the
// files destined for it. Files keep filesystem enumeration order; the order
// is used for deterministic reporting only.
type PlannedBase struct {
	Name  string
	Dir   string // Local directory the base was derived from
	Files []FileEntry
}

// ImportPlan maps knowledge-base names to their candidate files.
// Bases are ordered; the orchestrator processes them one at a time in this
// order and the summary reports them in the same order.
type ImportPlan struct {
	Root  string
	Bases []PlannedBase
}

// TotalFiles returns the number of files across all bases in the plan.
func (p *ImportPlan) TotalFiles() int {
	n := 0
	for _, b := range p.Bases {
		n += len(b.Files)
	}
	return n
}

// OutcomeStatus is the terminal state of a single planned file.
type OutcomeStatus int

const (
	// StatusSucceeded means the file was uploaded and attached to its base.
	StatusSucceeded OutcomeStatus = iota + 1
	// StatusFailed means the file did not make it into its base.
	StatusFailed
	// StatusSkipped means no remote work was attempted for the file.
	StatusSkipped
)

// String returns a human-readable name for the status.
func (s OutcomeStatus) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// FailureKind identifies which step of the per-file flow failed.
type FailureKind int

const (
	// FailureCreation means the base itself could not be created, so the
	// file was never uploaded.
	FailureCreation FailureKind = iota + 1
	// FailureUpload means the file upload failed after retries.
	FailureUpload
	// FailureAttach means the upload succeeded but the file could not be
	// attached to its base. The outcome carries the orphaned remote id.
	FailureAttach
)

// String returns a human-readable name for the failure kind.
func (k FailureKind) String() string {
	switch k {
	case FailureCreation:
		return "creation failed"
	case FailureUpload:
		return "upload failed"
	case FailureAttach:
		return "attach failed"
	default:
		return "unknown failure"
	}
}

// SkipReason explains why a file was skipped rather than attempted.
type SkipReason int

const (
	// SkipDryRun marks files skipped because the run was a dry run.
	SkipDryRun SkipReason = iota + 1
	// SkipCancelled marks files not attempted because the run was cancelled.
	SkipCancelled
	// SkipBaseExists marks files skipped because their knowledge base
	// already exists remotely.
	SkipBaseExists
)

// String returns a human-readable name for the skip reason.
func (r SkipReason) String() string {
	switch r {
	case SkipDryRun:
		return "dry run"
	case SkipCancelled:
		return "cancelled"
	case SkipBaseExists:
		return "base already exists"
	default:
		return "unknown reason"
	}
}

// UploadOutcome is the result of processing one planned file. Exactly one
// outcome is produced per FileEntry in the plan.
type UploadOutcome struct {
	File         FileEntry
	Status       OutcomeStatus
	RemoteFileID string      // Set on success; on attach failure it is the orphaned id
	Failure      FailureKind // Valid when Status is StatusFailed
	Reason       SkipReason  // Valid when Status is StatusSkipped
	Message      string
	Elapsed      time.Duration
}

// Succeeded constructs a successful outcome.
func Succeeded(file FileEntry, remoteFileID string, elapsed time.Duration) UploadOutcome {
	return UploadOutcome{
		File:         file,
		Status:       StatusSucceeded,
		RemoteFileID: remoteFileID,
		Elapsed:      elapsed,
	}
}

// Failed constructs a failed outcome.
func Failed(file FileEntry, kind FailureKind, message string) UploadOutcome {
	return UploadOutcome{
		File:    file,
		Status:  StatusFailed,
		Failure: kind,
		Message: message,
	}
}

// Orphaned constructs an attach-failure outcome that records the uploaded
// remote file id for operator visibility. The file is not re-uploaded.
func Orphaned(file FileEntry, remoteFileID, message string) UploadOutcome {
	o := Failed(file, FailureAttach, message)
	o.RemoteFileID = remoteFileID
	return o
}

// Skipped constructs a skipped outcome.
func Skipped(file FileEntry, reason SkipReason, message string) UploadOutcome {
	return UploadOutcome{
		File:    file,
		Status:  StatusSkipped,
		Reason:  reason,
		Message: message,
	}
}

// BaseSummary aggregates the outcomes of a single knowledge base.
type BaseSummary struct {
	Name      string
	RemoteID  string // Empty if the base was never created
	Outcomes  []UploadOutcome
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
}

// Failures returns the failed outcomes for the base, in plan order.
func (b *BaseSummary) Failures() []UploadOutcome {
	var failures []UploadOutcome
	for _, o := range b.Outcomes {
		if o.Status == StatusFailed {
			failures = append(failures, o)
		}
	}
	return failures
}

// ImportSummary is the final report of a run, one entry per planned base in
// plan order. It is immutable once the run completes.
type ImportSummary struct {
	Bases   []BaseSummary
	Elapsed time.Duration
}

// Totals returns the overall (succeeded, failed, skipped, total) counts.
func (s *ImportSummary) Totals() (succeeded, failed, skipped, total int) {
	for _, b := range s.Bases {
		succeeded += b.Succeeded
		failed += b.Failed
		skipped += b.Skipped
		total += b.Total
	}
	return succeeded, failed, skipped, total
}

// OK reports whether the run should be considered successful: no file
// failed and nothing was left unprocessed by a cancellation. Dry-run skips
// and existing-base skips do not count against success.
func (s *ImportSummary) OK() bool {
	for _, b := range s.Bases {
		for _, o := range b.Outcomes {
			if o.Status == StatusFailed {
				return false
			}
			if o.Status == StatusSkipped && o.Reason == SkipCancelled {
				return false
			}
		}
	}
	return true
}

// Base returns the summary for the named base, or nil if absent.
func (s *ImportSummary) Base(name string) *BaseSummary {
	for i := range s.Bases {
		if s.Bases[i].Name == name {
			return &s.Bases[i]
		}
	}
	return nil
}

// NormalizeExtension lowercases an extension and ensures the leading dot,
// so ".PDF", "pdf" and ".pdf" all compare equal.
func NormalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
