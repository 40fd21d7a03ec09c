package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/coursekit-app/coursekit-backend/internal/snapshots"
	"github.com/coursekit-app/coursekit-backend/pkg/logger"
)

type fakeCapturer struct {
	result snapshots.CaptureResult
	err    error
	calls  int
}

func (f *fakeCapturer) CaptureYesterday(ctx context.Context) (snapshots.CaptureResult, error) {
	f.calls++
	return f.result, f.err
}

func newCaptureJob(t *testing.T, capturer *fakeCapturer) Job {
	t.Helper()
	job, err := NewSnapshotCaptureJob(SnapshotCaptureJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
		Capturer: capturer,
	})
	if err != nil {
		t.Fatalf("NewSnapshotCaptureJob: %v", err)
	}
	return job
}

func TestSnapshotCaptureJobRunsOnce(t *testing.T) {
	capturer := &fakeCapturer{result: snapshots.CaptureResult{Date: "2026-01-15", OK: true}}
	job := newCaptureJob(t, capturer)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if capturer.calls != 1 {
		t.Fatalf("expected one capture, got %d", capturer.calls)
	}
}

func TestSnapshotCaptureJobToleratesDegradedProviders(t *testing.T) {
	capturer := &fakeCapturer{result: snapshots.CaptureResult{
		Date:   "2026-01-15",
		OK:     false,
		Errors: []string{"ads: meta ads credentials not configured"},
	}}
	job := newCaptureJob(t, capturer)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("degraded capture must not fail the job: %v", err)
	}
}

func TestSnapshotCaptureJobSurfacesStoreFailure(t *testing.T) {
	capturer := &fakeCapturer{err: errors.New("connection refused")}
	job := newCaptureJob(t, capturer)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected datastore failure to bubble up")
	}
}

func TestSnapshotCaptureJobRequiresCapturer(t *testing.T) {
	_, err := NewSnapshotCaptureJob(SnapshotCaptureJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test"}),
	})
	if err == nil {
		t.Fatal("expected constructor error")
	}
}
