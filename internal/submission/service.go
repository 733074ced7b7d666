package submission

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tallyform/tallyform/internal/directory"
	"github.com/tallyform/tallyform/internal/ledger"
	"github.com/tallyform/tallyform/internal/observability"
	"github.com/tallyform/tallyform/internal/shared"
	"github.com/tallyform/tallyform/internal/storage"
)

// ReportEnqueuer schedules rendering of the per-submitter summary after
// a successful upsert. Nil-safe: wiring may omit it.
type ReportEnqueuer interface {
	EnqueueReportRender(ctx context.Context, period, identity string) error
}

// Service orchestrates one submission: directory gate, container
// provisioning, attachment writes, ledger upsert, report scheduling.
type Service struct {
	gate        *directory.Gate
	provisioner *storage.Provisioner
	store       storage.Store
	engine      *ledger.Engine
	reports     ReportEnqueuer
	metrics     *observability.Metrics
	logger      *slog.Logger
	ioTimeout   time.Duration
}

// NewService wires the orchestrator.
func NewService(
	gate *directory.Gate,
	provisioner *storage.Provisioner,
	store storage.Store,
	engine *ledger.Engine,
	reports ReportEnqueuer,
	metrics *observability.Metrics,
	logger *slog.Logger,
	ioTimeout time.Duration,
) *Service {
	return &Service{
		gate:        gate,
		provisioner: provisioner,
		store:       store,
		engine:      engine,
		reports:     reports,
		metrics:     metrics,
		logger:      logger,
		ioTimeout:   ioTimeout,
	}
}

// Submit runs the full submission path for a validated payload.
func (s *Service) Submit(ctx context.Context, payload SubmissionPayload) (ledger.UpsertResult, error) {
	period, err := shared.ParsePeriod(payload.Period)
	if err != nil {
		return ledger.UpsertResult{}, err
	}

	// Gate first: inactive identities must not provision containers or
	// leave any other trace. One Lookup serves both the gate decision
	// and the display-name fallback off the same roster snapshot.
	entry, active, err := s.gate.Lookup(ctx, payload.Identity)
	if err != nil {
		s.metrics.ObserveUpsert("error")
		return ledger.UpsertResult{}, err
	}
	if !active {
		s.metrics.ObserveUpsert("dropped")
		s.logger.Info("submission dropped",
			slog.String("reason", "identity_inactive"),
			slog.String("identity", payload.Identity),
			slog.String("period", period.String()))
		return ledger.UpsertResult{OK: true, Dropped: true, Identity: payload.Identity, Message: "submission dropped"}, nil
	}

	displayName := payload.DisplayName
	if displayName == "" {
		displayName = entry.DisplayName
	}

	container, err := s.provisioner.Ensure(ctx, period, payload.Identity)
	if err != nil {
		s.metrics.ObserveUpsert("error")
		return ledger.UpsertResult{}, err
	}

	refs := make([]string, 0, len(payload.Attachments))
	for _, att := range payload.Attachments {
		ref, err := s.putAttachment(ctx, container, att)
		if err != nil {
			s.metrics.ObserveUpsert("error")
			return ledger.UpsertResult{}, err
		}
		refs = append(refs, ref)
	}

	fields, err := payload.Fields(refs)
	if err != nil {
		s.metrics.ObserveUpsert("error")
		return ledger.UpsertResult{}, err
	}

	res, err := s.engine.Upsert(ctx, period, payload.Identity, displayName, fields)
	if err != nil {
		if ledger.IsImmutableRecord(err) {
			s.metrics.ObserveUpsert("immutable")
		} else {
			s.metrics.ObserveUpsert("error")
		}
		return res, err
	}

	switch {
	case res.Dropped:
		s.metrics.ObserveUpsert("dropped")
	case res.Created:
		s.metrics.ObserveUpsert("created")
	default:
		s.metrics.ObserveUpsert("overwritten")
	}

	if s.reports != nil && !res.Dropped {
		if err := s.reports.EnqueueReportRender(ctx, period.String(), payload.Identity); err != nil {
			// Rendering is a collaborator concern; the upsert stands.
			s.logger.Warn("enqueue report render",
				slog.String("identity", payload.Identity),
				slog.String("period", period.String()),
				slog.Any("error", err))
		}
	}
	return res, nil
}

// putAttachment writes one blob under a per-call deadline; a slow or
// failed store surfaces as a retryable transient error.
func (s *Service) putAttachment(ctx context.Context, c storage.Container, att Attachment) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.ioTimeout)
	defer cancel()
	ref, err := s.store.Put(ctx, c, att.Name, bytes.NewReader(att.Content))
	if err != nil {
		return "", fmt.Errorf("%w: store attachment %s: %v", shared.ErrTransientIO, att.Name, err)
	}
	return ref, nil
}

// Status returns the current row and status for an identity/period.
func (s *Service) Status(ctx context.Context, period shared.Period, identity string) (map[string]string, ledger.Status, bool, error) {
	return s.engine.Row(ctx, period, identity)
}

// Review applies an approve or reject collaborator transition.
func (s *Service) Review(ctx context.Context, period shared.Period, identity string, target ledger.Status) error {
	return s.engine.SetStatus(ctx, period, identity, target)
}
