package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeReportRender renders the per-submitter PDF summary.
	TaskTypeReportRender = "report:render"
	// TaskTypeRosterRefresh reloads the directory roster cache.
	TaskTypeRosterRefresh = "roster:refresh"
)

// ReportRenderPayload identifies the submission to render.
type ReportRenderPayload struct {
	Period   string `json:"period"`
	Identity string `json:"identity"`
}

// NewReportRenderTask constructs an Asynq task.
func NewReportRenderTask(payload ReportRenderPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeReportRender, data), nil
}

// NewRosterRefreshTask constructs the periodic roster reload task.
func NewRosterRefreshTask() *asynq.Task {
	return asynq.NewTask(TaskTypeRosterRefresh, nil)
}
