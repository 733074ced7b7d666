package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/tallyform/tallyform/internal/jobs"
	"github.com/tallyform/tallyform/internal/ledger"
	"github.com/tallyform/tallyform/internal/shared"
	"github.com/tallyform/tallyform/internal/storage"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// Renderer converts an HTML document into PDF bytes.
type Renderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// ReportRenderJob renders a one-page PDF summary of a submission and
// drops it into the submitter's container next to the attachments.
type ReportRenderJob struct {
	Engine      *ledger.Engine
	Provisioner *storage.Provisioner
	Store       storage.Store
	Renderer    Renderer
	Logger      *slog.Logger
	Metrics     *jobmetrics.Metrics
	clock       func() time.Time
}

// NewReportRenderJob wires dependencies for the render handler.
func NewReportRenderJob(engine *ledger.Engine, provisioner *storage.Provisioner, store storage.Store, renderer Renderer, logger *slog.Logger) *ReportRenderJob {
	return &ReportRenderJob{
		Engine:      engine,
		Provisioner: provisioner,
		Store:       store,
		Renderer:    renderer,
		Logger:      logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (j *ReportRenderJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

// Handle processes report render tasks.
func (j *ReportRenderJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("report render: handler not configured")
	}
	var payload ReportRenderPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	period, err := shared.ParsePeriod(payload.Period)
	if err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskTypeReportRender)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()
	resultErr = j.render(ctx, period, payload.Identity)
	return resultErr
}

func (j *ReportRenderJob) render(ctx context.Context, period shared.Period, identity string) error {
	logger := j.Logger.With(
		slog.String("period", period.String()),
		slog.String("identity", identity))

	row, status, found, err := j.Engine.Row(ctx, period, identity)
	if err != nil {
		return err
	}
	if !found {
		// The row can disappear between enqueue and execution only if
		// the sheet was rebuilt; nothing to render then.
		logger.Warn("report render skipped", slog.String("reason", "row_missing"))
		return nil
	}

	html, err := renderSummaryHTML(period, identity, status, row, j.clock())
	if err != nil {
		return asynq.SkipRetry
	}

	pdf, err := j.Renderer.RenderHTML(ctx, html)
	if err != nil {
		return fmt.Errorf("render summary: %w", err)
	}

	container, err := j.Provisioner.Ensure(ctx, period, identity)
	if err != nil {
		return err
	}
	name := fmt.Sprintf("summary-%s.pdf", period.String())
	ref, err := j.Store.Put(ctx, container, name, bytes.NewReader(pdf))
	if err != nil {
		return fmt.Errorf("store summary: %w", err)
	}
	logger.Info("report rendered", slog.String("ref", ref))
	return nil
}

var summaryTemplate = template.Must(template.New("summary").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
<p>Identity: {{.Identity}} &mdash; Status: {{.Status}}</p>
<table border="1" cellpadding="4" cellspacing="0">
{{range .Rows}}<tr><th align="left">{{.Name}}</th><td>{{.Value}}</td></tr>
{{end}}</table>
<p><small>Generated {{.GeneratedAt}}</small></p>
</body>
</html>
`))

type summaryRow struct {
	Name  string
	Value string
}

func renderSummaryHTML(period shared.Period, identity string, status ledger.Status, row map[string]string, now time.Time) (string, error) {
	rows := make([]summaryRow, 0, len(ledger.Recognized))
	for _, h := range ledger.Recognized {
		rows = append(rows, summaryRow{Name: h.Name, Value: row[h.Name]})
	}
	var buf bytes.Buffer
	err := summaryTemplate.Execute(&buf, map[string]any{
		"Title":       fmt.Sprintf("Submission Summary %s", period.String()),
		"Identity":    identity,
		"Status":      string(status),
		"Rows":        rows,
		"GeneratedAt": now.Format(time.RFC3339),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
