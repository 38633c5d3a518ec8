package importer

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/poiesic/kbimport/core"
)

const rule = "============================================================"

// Preview writes a human-readable listing of what the plan would import.
func Preview(w io.Writer, plan *core.ImportPlan) {
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "PREVIEW - What will be imported:")
	fmt.Fprintln(w, rule)

	for _, base := range plan.Bases {
		fmt.Fprintf(w, "\nKnowledge base: %s\n", base.Name)
		fmt.Fprintf(w, "  Location: %s\n", base.Dir)
		fmt.Fprintf(w, "  Files (%d):\n", len(base.Files))
		for _, file := range base.Files {
			fmt.Fprintf(w, "    - %s (%.1f KB)\n", file.Name, float64(file.Size)/1024)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Total: %d knowledge bases, %d files\n", len(plan.Bases), plan.TotalFiles())
	fmt.Fprintln(w, rule)
}

// WriteSummary writes the final per-base and per-file report.
func WriteSummary(w io.Writer, summary *core.ImportSummary) {
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "SUMMARY")
	fmt.Fprintln(w, rule)

	for _, base := range summary.Bases {
		fmt.Fprintf(w, "%s: %d/%d files imported%s\n", base.Name, base.Succeeded, base.Total, baseNote(&base))
		for _, outcome := range base.Outcomes {
			switch outcome.Status {
			case core.StatusFailed:
				fmt.Fprintf(w, "  FAILED  %s: %s: %s%s\n",
					outcome.File.Name, outcome.Failure, outcome.Message, orphanNote(outcome))
			case core.StatusSkipped:
				if outcome.Reason == core.SkipCancelled {
					fmt.Fprintf(w, "  SKIPPED %s: %s\n", outcome.File.Name, outcome.Message)
				}
			}
		}
	}

	succeeded, failed, skipped, total := summary.Totals()
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Total: %d succeeded, %d failed, %d skipped of %d files in %v\n",
		succeeded, failed, skipped, total, summary.Elapsed.Round(time.Millisecond))

	if summary.OK() {
		fmt.Fprintln(w, "Import completed successfully")
	} else {
		fmt.Fprintln(w, "Import completed with failures")
	}
}

// baseNote annotates a base line with its dominant skip reason, if any.
func baseNote(base *core.BaseSummary) string {
	if base.Skipped == 0 {
		return ""
	}
	reasons := make(map[core.SkipReason]int)
	for _, outcome := range base.Outcomes {
		if outcome.Status == core.StatusSkipped {
			reasons[outcome.Reason]++
		}
	}
	var parts []string
	if n := reasons[core.SkipDryRun]; n > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped (dry run)", n))
	}
	if n := reasons[core.SkipBaseExists]; n > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped (base already exists)", n))
	}
	if n := reasons[core.SkipCancelled]; n > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped (cancelled)", n))
	}
	return " [" + strings.Join(parts, ", ") + "]"
}

// orphanNote surfaces the remote id of a file that was uploaded but never
// attached, so an operator can clean it up or attach it manually.
func orphanNote(outcome core.UploadOutcome) string {
	if outcome.Failure == core.FailureAttach && outcome.RemoteFileID != "" {
		return fmt.Sprintf(" (orphaned remote file %s)", outcome.RemoteFileID)
	}
	return ""
}
