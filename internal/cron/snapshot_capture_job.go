package cron

import (
	"context"
	"fmt"
	"strings"

	"github.com/coursekit-app/coursekit-backend/internal/snapshots"
	"github.com/coursekit-app/coursekit-backend/pkg/logger"
)

// snapshotCapturer is the engine slice the daily job drives.
type snapshotCapturer interface {
	CaptureYesterday(ctx context.Context) (snapshots.CaptureResult, error)
}

// SnapshotCaptureJobParams configure the daily snapshot job.
type SnapshotCaptureJobParams struct {
	Logger   *logger.Logger
	Capturer snapshotCapturer
}

// NewSnapshotCaptureJob builds the cron job that persists yesterday's
// metrics snapshot.
func NewSnapshotCaptureJob(params SnapshotCaptureJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Capturer == nil {
		return nil, fmt.Errorf("snapshot capturer required")
	}
	return &snapshotCaptureJob{
		logg:     params.Logger,
		capturer: params.Capturer,
	}, nil
}

type snapshotCaptureJob struct {
	logg     *logger.Logger
	capturer snapshotCapturer
}

func (j *snapshotCaptureJob) Name() string { return "snapshot-capture" }

// Run captures yesterday's snapshot. Degraded providers do not fail the
// job; the engine already wrote the row with zeros and recorded the
// reasons. Only a datastore failure bubbles up.
func (j *snapshotCaptureJob) Run(ctx context.Context) error {
	result, err := j.capturer.CaptureYesterday(ctx)
	if err != nil {
		return fmt.Errorf("capture yesterday: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"snapshot_date": result.Date})
	if !result.OK {
		logCtx = j.logg.WithField(logCtx, "degraded_providers", strings.Join(result.Errors, "; "))
		j.logg.Warn(logCtx, "snapshot captured with degraded providers")
		return nil
	}
	j.logg.Info(logCtx, "snapshot captured")
	return nil
}
