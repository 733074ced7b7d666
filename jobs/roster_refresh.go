package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/tallyform/tallyform/internal/directory"
	jobmetrics "github.com/tallyform/tallyform/internal/jobs"
)

// RosterRefreshJob reloads the active-identity snapshot ahead of its
// TTL so submitters rarely hit a cold cache.
type RosterRefreshJob struct {
	Gate    *directory.Gate
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewRosterRefreshJob wires dependencies for the refresh handler.
func NewRosterRefreshJob(gate *directory.Gate, logger *slog.Logger) *RosterRefreshJob {
	return &RosterRefreshJob{Gate: gate, Logger: logger}
}

func (j *RosterRefreshJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

// Handle processes roster refresh tasks.
func (j *RosterRefreshJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil {
		return errors.New("roster refresh: handler not configured")
	}
	tracker := j.metrics().Track(TaskTypeRosterRefresh)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()
	if resultErr = j.Gate.Refresh(ctx); resultErr != nil {
		j.Logger.Warn("roster refresh", slog.Any("error", resultErr))
		return resultErr
	}
	j.Logger.Debug("roster refreshed")
	return nil
}
