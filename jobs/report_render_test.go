package jobs

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallyform/tallyform/internal/directory"
	"github.com/tallyform/tallyform/internal/ledger"
	"github.com/tallyform/tallyform/internal/shared"
	"github.com/tallyform/tallyform/internal/storage"
)

type allowAll struct{}

func (allowAll) IsActive(ctx context.Context, key string) (bool, error) { return true, nil }

type stubRenderer struct {
	lastHTML string
}

func (r *stubRenderer) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	r.lastHTML = html
	return []byte("%PDF-stub"), nil
}

func TestReportRenderJob_Handle(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	workbook := ledger.NewMemoryWorkbook()
	engine := ledger.NewEngine(allowAll{}, workbook, ledger.NewMemoryBackupStore(),
		ledger.NewLocalLocker(time.Second), "test", logger)

	period, err := shared.ParsePeriod("2025-06")
	require.NoError(t, err)
	_, err = engine.Upsert(context.Background(), period, "a@x.com", "Alice", map[string]string{
		ledger.HeaderRemarks: "june",
	})
	require.NoError(t, err)

	store := storage.NewMemory("submissions")
	renderer := &stubRenderer{}
	job := NewReportRenderJob(engine, storage.NewProvisioner(store, logger), store, renderer, logger)

	task, err := NewReportRenderTask(ReportRenderPayload{Period: "2025-06", Identity: "a@x.com"})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	assert.Contains(t, renderer.lastHTML, "a@x.com")
	assert.Contains(t, renderer.lastHTML, "Submission Summary 2025-06")

	pdf, ok := store.Blob("submissions/2025/06/a", "summary-2025-06.pdf")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(string(pdf), "%PDF"))
}

func TestReportRenderJob_BadPayloadSkipsRetry(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	store := storage.NewMemory("submissions")
	engine := ledger.NewEngine(allowAll{}, ledger.NewMemoryWorkbook(), ledger.NewMemoryBackupStore(),
		ledger.NewLocalLocker(time.Second), "test", logger)
	job := NewReportRenderJob(engine, storage.NewProvisioner(store, logger), store, &stubRenderer{}, logger)

	err := job.Handle(context.Background(), asynq.NewTask(TaskTypeReportRender, []byte("{not json")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	task, err := NewReportRenderTask(ReportRenderPayload{Period: "junk", Identity: "a@x.com"})
	require.NoError(t, err)
	assert.ErrorIs(t, job.Handle(context.Background(), task), asynq.SkipRetry)
}

func TestReportRenderJob_MissingRowIsNoop(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	store := storage.NewMemory("submissions")
	engine := ledger.NewEngine(allowAll{}, ledger.NewMemoryWorkbook(), ledger.NewMemoryBackupStore(),
		ledger.NewLocalLocker(time.Second), "test", logger)
	renderer := &stubRenderer{}
	job := NewReportRenderJob(engine, storage.NewProvisioner(store, logger), store, renderer, logger)

	task, err := NewReportRenderTask(ReportRenderPayload{Period: "2025-06", Identity: "nobody@x.com"})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Empty(t, renderer.lastHTML)
}

type countingRoster struct {
	lists int
}

func (r *countingRoster) List(ctx context.Context) ([]directory.ActiveIdentity, error) {
	r.lists++
	return nil, nil
}
func (r *countingRoster) Add(ctx context.Context, id directory.ActiveIdentity) error { return nil }
func (r *countingRoster) Deactivate(ctx context.Context, key string) error           { return nil }

func TestRosterRefreshJob_Handle(t *testing.T) {
	roster := &countingRoster{}
	gate := directory.NewGate(roster, time.Hour, slog.New(slog.DiscardHandler))
	job := NewRosterRefreshJob(gate, slog.New(slog.DiscardHandler))

	require.NoError(t, job.Handle(context.Background(), NewRosterRefreshTask()))
	assert.Equal(t, 1, roster.lists)
}
