package importer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/kbimport/core"
	"github.com/poiesic/kbimport/remote"
	"github.com/poiesic/kbimport/remote/mock"
	"github.com/poiesic/kbimport/retry"
	"github.com/poiesic/kbimport/scanner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildPlan materializes the given layout on disk and scans it, so upload
// tasks have real files to stream.
func buildPlan(t *testing.T, layout map[string][]string) *core.ImportPlan {
	t.Helper()
	root := t.TempDir()
	for base, files := range layout {
		dir := filepath.Join(root, base)
		require.NoError(t, os.Mkdir(dir, 0o755))
		for _, name := range files {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("content of "+name), 0o644))
		}
	}
	plan, err := scanner.Scan(root, nil)
	require.NoError(t, err)
	return plan
}

func fastPolicy(maxAttempts int) retry.Policy {
	return retry.Policy{MaxAttempts: maxAttempts, BaseDelay: time.Millisecond}
}

func newTestImporter(t *testing.T, svc remote.Service, opts ...Option) *Importer {
	t.Helper()
	opts = append([]Option{WithRetryPolicy(fastPolicy(3))}, opts...)
	imp, err := New(svc, opts...)
	require.NoError(t, err)
	return imp
}

func transientErr(op string) error {
	return &remote.Error{Kind: remote.KindTransient, Op: op, Status: 503, Message: "unavailable"}
}

func TestNew_RequiresService(t *testing.T) {
	_, err := New(nil)
	require.ErrorIs(t, err, ErrServiceRequired)
}

func TestNew_InvalidConcurrency(t *testing.T) {
	_, err := New(mock.NewService(), WithConcurrency(0))
	require.ErrorIs(t, err, ErrInvalidConcurrency)
}

func TestRun_AllSucceed(t *testing.T) {
	plan := buildPlan(t, map[string][]string{
		"a": {"one.txt", "two.txt"},
		"b": {"three.txt", "four.txt"},
	})
	svc := mock.NewService()
	imp := newTestImporter(t, svc)

	summary, err := imp.Run(context.Background(), plan)
	require.NoError(t, err)
	require.Len(t, summary.Bases, 2)

	for _, name := range []string{"a", "b"} {
		base := summary.Base(name)
		require.NotNil(t, base)
		assert.Equal(t, 2, base.Succeeded, "base %s", name)
		assert.Equal(t, 2, base.Total, "base %s", name)
		assert.Empty(t, base.Failures(), "base %s", name)
		assert.NotEmpty(t, base.RemoteID, "base %s", name)
		for _, outcome := range base.Outcomes {
			assert.NotEmpty(t, outcome.RemoteFileID)
		}
	}

	assert.True(t, summary.OK())
	assert.Equal(t, 1, svc.HealthCalls())
	assert.Equal(t, []string{"a", "b"}, svc.CreateCalls())
	assert.Len(t, svc.UploadCalls(), 4)
	assert.Len(t, svc.AddCalls(), 4)
}

func TestRun_OneOutcomePerPlannedFile(t *testing.T) {
	plan := buildPlan(t, map[string][]string{
		"a": {"1.txt", "2.txt", "3.txt"},
		"b": {"4.txt"},
		"c": {"5.txt", "6.txt"},
	})
	svc := mock.NewService()
	// Mixed results: base b fails creation, one upload in c fails.
	svc.CreateFunc = func(ctx context.Context, name string) (string, error) {
		if name == "b" {
			return "", &remote.Error{Kind: remote.KindValidation, Op: "create", Message: "rejected"}
		}
		return "kb-" + name, nil
	}
	svc.UploadFunc = func(ctx context.Context, filename string, content io.Reader) (string, error) {
		if filename == "5.txt" {
			return "", &remote.Error{Kind: remote.KindAuth, Op: "upload", Message: "denied"}
		}
		return "file-" + filename, nil
	}

	summary, err := newTestImporter(t, svc).Run(context.Background(), plan)
	require.NoError(t, err)

	outcomes := 0
	for _, base := range summary.Bases {
		assert.Len(t, base.Outcomes, base.Total, "base %s", base.Name)
		outcomes += len(base.Outcomes)
	}
	assert.Equal(t, plan.TotalFiles(), outcomes, "every planned file yields exactly one outcome")
}

func TestRun_DryRun(t *testing.T) {
	plan := buildPlan(t, map[string][]string{
		"a": {"one.txt", "two.txt"},
		"b": {"three.txt"},
	})
	svc := mock.NewService()
	imp := newTestImporter(t, svc, WithDryRun(true))

	summary, err := imp.Run(context.Background(), plan)
	require.NoError(t, err)

	assert.Equal(t, 0, svc.MutatingCalls(), "dry run must not mutate anything")
	assert.Equal(t, 0, svc.HealthCalls(), "dry run skips the health check too")
	assert.Empty(t, svc.FindCalls())

	succeeded, failed, skipped, total := summary.Totals()
	assert.Equal(t, 0, succeeded)
	assert.Equal(t, 0, failed)
	assert.Equal(t, 3, skipped)
	assert.Equal(t, 3, total)
	assert.True(t, summary.OK(), "a clean dry run is a successful run")

	for _, base := range summary.Bases {
		for _, outcome := range base.Outcomes {
			assert.Equal(t, core.StatusSkipped, outcome.Status)
			assert.Equal(t, core.SkipDryRun, outcome.Reason)
			assert.Contains(t, outcome.Message, "would create")
		}
	}
}

func TestRun_CreationFailureIsolatedPerBase(t *testing.T) {
	plan := buildPlan(t, map[string][]string{
		"a": {"one.txt", "two.txt"},
		"b": {"three.txt", "four.txt"},
	})
	svc := mock.NewService()
	svc.CreateFunc = func(ctx context.Context, name string) (string, error) {
		if name == "b" {
			return "", transientErr("create")
		}
		return "kb-" + name, nil
	}

	summary, err := newTestImporter(t, svc).Run(context.Background(), plan)
	require.NoError(t, err, "per-base failure must not abort the run")

	a := summary.Base("a")
	require.NotNil(t, a)
	assert.Equal(t, 2, a.Succeeded)

	b := summary.Base("b")
	require.NotNil(t, b)
	assert.Equal(t, 0, b.Succeeded)
	assert.Equal(t, 2, b.Failed)
	for _, outcome := range b.Outcomes {
		assert.Equal(t, core.StatusFailed, outcome.Status)
		assert.Equal(t, core.FailureCreation, outcome.Failure)
	}

	for _, filename := range svc.UploadCalls() {
		assert.NotContains(t, []string{"three.txt", "four.txt"}, filename,
			"no upload may be attempted for a base whose creation failed")
	}
	assert.False(t, summary.OK())
}

func TestRun_TransientCreateRetriedThenSucceeds(t *testing.T) {
	plan := buildPlan(t, map[string][]string{"a": {"one.txt"}})
	svc := mock.NewService()
	var attempts atomic.Int32
	svc.CreateFunc = func(ctx context.Context, name string) (string, error) {
		if attempts.Add(1) < 3 {
			return "", transientErr("create")
		}
		return "kb-a", nil
	}

	summary, err := newTestImporter(t, svc).Run(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, int32(3), attempts.Load())
	assert.Equal(t, 1, summary.Base("a").Succeeded)
}

func TestRun_NonRetryableUploadSingleAttempt(t *testing.T) {
	plan := buildPlan(t, map[string][]string{"a": {"one.txt"}})
	svc := mock.NewService()
	svc.UploadFunc = func(ctx context.Context, filename string, content io.Reader) (string, error) {
		return "", &remote.Error{Kind: remote.KindAuth, Op: "upload", Status: 401, Message: "denied"}
	}

	summary, err := newTestImporter(t, svc).Run(context.Background(), plan)
	require.NoError(t, err)
	assert.Len(t, svc.UploadCalls(), 1, "auth rejection must consume exactly one attempt")

	outcome := summary.Base("a").Outcomes[0]
	assert.Equal(t, core.StatusFailed, outcome.Status)
	assert.Equal(t, core.FailureUpload, outcome.Failure)
}

func TestRun_AttachFailureCarriesOrphanedID(t *testing.T) {
	plan := buildPlan(t, map[string][]string{"a": {"one.txt"}})
	svc := mock.NewService()
	svc.UploadFunc = func(ctx context.Context, filename string, content io.Reader) (string, error) {
		return "file-orphan", nil
	}
	svc.AddFunc = func(ctx context.Context, kbID, fileID string) error {
		return &remote.Error{Kind: remote.KindNotFound, Op: "add", Status: 404, Message: "no such base"}
	}

	summary, err := newTestImporter(t, svc).Run(context.Background(), plan)
	require.NoError(t, err)

	assert.Len(t, svc.UploadCalls(), 1, "the file must not be re-uploaded after an attach failure")

	outcome := summary.Base("a").Outcomes[0]
	assert.Equal(t, core.StatusFailed, outcome.Status)
	assert.Equal(t, core.FailureAttach, outcome.Failure)
	assert.Equal(t, "file-orphan", outcome.RemoteFileID, "orphaned remote id must be visible to the operator")
}

func TestRun_HealthCheckFailureAbortsRun(t *testing.T) {
	plan := buildPlan(t, map[string][]string{"a": {"one.txt"}})
	svc := mock.NewService()
	svc.HealthCheckFunc = func(ctx context.Context) error {
		return transientErr("health")
	}

	summary, err := newTestImporter(t, svc).Run(context.Background(), plan)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServiceUnavailable)
	assert.True(t, retry.Exhausted(err), "the health check is retried before giving up")
	assert.Nil(t, summary, "no partial summary on an aborted run")

	assert.Equal(t, 3, svc.HealthCalls())
	assert.Equal(t, 0, svc.MutatingCalls(), "nothing may be mutated when the service is unreachable")
}

func TestRun_ConcurrencyBound(t *testing.T) {
	const (
		fileCount   = 20
		concurrency = 5
	)

	files := make([]string, fileCount)
	for i := range files {
		files[i] = fmt.Sprintf("doc%02d.txt", i)
	}
	plan := buildPlan(t, map[string][]string{"big": files})

	svc := mock.NewService()
	started := make(chan string, fileCount)
	release := make(chan struct{})
	svc.NotifyUploadStarted(started)
	svc.UploadFunc = func(ctx context.Context, filename string, content io.Reader) (string, error) {
		<-release // Hold every upload open until the test has counted them
		return "file-" + filename, nil
	}

	imp := newTestImporter(t, svc, WithConcurrency(concurrency))

	var (
		summary *core.ImportSummary
		runErr  error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		summary, runErr = imp.Run(context.Background(), plan)
	}()

	// The pool must saturate to exactly concurrency uploads and no more.
	for n := 0; n < concurrency; n++ {
		select {
		case <-started:
		case <-time.After(5 * time.Second):
			t.Fatalf("only %d uploads started, want %d", n, concurrency)
		}
	}
	select {
	case name := <-started:
		t.Fatalf("upload %s started while the pool was already full", name)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-done

	require.NoError(t, runErr)
	assert.Equal(t, fileCount, summary.Base("big").Succeeded)
	assert.Equal(t, concurrency, svc.MaxInFlightUploads(), "overlap must reach but never exceed the pool size")
}

func TestRun_BasesAreSequential(t *testing.T) {
	plan := buildPlan(t, map[string][]string{
		"a": {"a1.txt", "a2.txt"},
		"b": {"b1.txt", "b2.txt"},
	})

	svc := mock.NewService()
	svc.UploadFunc = func(ctx context.Context, filename string, content io.Reader) (string, error) {
		time.Sleep(10 * time.Millisecond)
		return "file-" + filename, nil
	}

	imp := newTestImporter(t, svc, WithConcurrency(4))
	_, err := imp.Run(context.Background(), plan)
	require.NoError(t, err)

	// Base pools do not overlap, so every upload for a precedes every
	// upload for b regardless of intra-base ordering.
	uploads := svc.UploadCalls()
	require.Len(t, uploads, 4)
	assert.ElementsMatch(t, []string{"a1.txt", "a2.txt"}, uploads[:2])
	assert.ElementsMatch(t, []string{"b1.txt", "b2.txt"}, uploads[2:])
	assert.Equal(t, []string{"a", "b"}, svc.CreateCalls())
}

func TestRun_CancellationSkipsRemainingWork(t *testing.T) {
	plan := buildPlan(t, map[string][]string{
		"a": {"a1.txt", "a2.txt", "a3.txt", "a4.txt"},
		"b": {"b1.txt", "b2.txt"},
	})

	ctx, cancel := context.WithCancel(context.Background())
	svc := mock.NewService()
	var uploads atomic.Int32
	svc.UploadFunc = func(c context.Context, filename string, content io.Reader) (string, error) {
		if uploads.Add(1) == 1 {
			cancel() // Cancel while the first upload is in flight
		}
		return "file-" + filename, nil
	}

	imp := newTestImporter(t, svc, WithConcurrency(1))
	summary, err := imp.Run(ctx, plan)
	require.NoError(t, err, "cancellation is reported through the summary, not an error")

	outcomes := 0
	cancelled := 0
	for _, base := range summary.Bases {
		outcomes += len(base.Outcomes)
		for _, outcome := range base.Outcomes {
			if outcome.Status == core.StatusSkipped {
				assert.Equal(t, core.SkipCancelled, outcome.Reason)
				cancelled++
			}
		}
	}
	assert.Equal(t, plan.TotalFiles(), outcomes, "cancelled files still get outcomes")
	assert.Greater(t, cancelled, 0, "files after the cancellation point must be skipped")

	b := summary.Base("b")
	require.NotNil(t, b)
	assert.Equal(t, len(b.Outcomes), b.Skipped, "no new base may start after cancellation")
	assert.NotContains(t, svc.CreateCalls(), "b")

	assert.False(t, summary.OK(), "a cancelled run is not a success")
}

func TestRun_ExistingBaseSkipped(t *testing.T) {
	plan := buildPlan(t, map[string][]string{
		"a": {"a1.txt"},
		"b": {"b1.txt", "b2.txt"},
	})
	svc := mock.NewService()
	svc.FindFunc = func(ctx context.Context, name string) (string, bool, error) {
		if name == "b" {
			return "kb-existing", true, nil
		}
		return "", false, nil
	}

	summary, err := newTestImporter(t, svc).Run(context.Background(), plan)
	require.NoError(t, err)

	assert.NotContains(t, svc.CreateCalls(), "b", "an existing base must not be re-created")
	b := summary.Base("b")
	require.NotNil(t, b)
	assert.Equal(t, "kb-existing", b.RemoteID)
	assert.Equal(t, 2, b.Skipped)
	for _, outcome := range b.Outcomes {
		assert.Equal(t, core.SkipBaseExists, outcome.Reason)
	}

	assert.Equal(t, 1, summary.Base("a").Succeeded)
	assert.True(t, summary.OK(), "skipping an existing base is not a failure")
}

func TestRun_LookupErrorFallsThroughToCreate(t *testing.T) {
	plan := buildPlan(t, map[string][]string{"a": {"a1.txt"}})
	svc := mock.NewService()
	svc.FindFunc = func(ctx context.Context, name string) (string, bool, error) {
		return "", false, &remote.Error{Kind: remote.KindAuth, Op: "list", Message: "denied"}
	}

	summary, err := newTestImporter(t, svc).Run(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, svc.CreateCalls(), "a failed lookup must not block creation")
	assert.Equal(t, 1, summary.Base("a").Succeeded)
}

func TestRun_UnreadableFileFails(t *testing.T) {
	plan := buildPlan(t, map[string][]string{"a": {"a1.txt", "a2.txt"}})
	// Remove one file between scan and run.
	require.NoError(t, os.Remove(plan.Bases[0].Files[0].Path))

	svc := mock.NewService()
	summary, err := newTestImporter(t, svc).Run(context.Background(), plan)
	require.NoError(t, err)

	a := summary.Base("a")
	assert.Equal(t, 1, a.Succeeded)
	assert.Equal(t, 1, a.Failed)
	failures := a.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, core.FailureUpload, failures[0].Failure)
}

func TestRun_InvalidPlanRejected(t *testing.T) {
	svc := mock.NewService()
	imp := newTestImporter(t, svc)

	_, err := imp.Run(context.Background(), &core.ImportPlan{
		Bases: []core.PlannedBase{{Name: "", Files: []core.FileEntry{{Path: "/x/y.txt"}}}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidPlan)
	assert.Equal(t, 0, svc.HealthCalls(), "an invalid plan must be rejected before any remote call")
}
