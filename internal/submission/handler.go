package submission

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tallyform/tallyform/internal/ledger"
	"github.com/tallyform/tallyform/internal/platform/httpx"
	"github.com/tallyform/tallyform/internal/shared"
)

// Handler exposes the submission API.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds the submission handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers submission routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.submit)
	r.Get("/{period}/{identity}", h.status)
	r.Get("/{period}/{identity}/backups", h.backups)
	r.Post("/{period}/{identity}/approve", h.approve)
	r.Post("/{period}/{identity}/reject", h.reject)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var payload SubmissionPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	res, err := h.service.Submit(r.Context(), payload)
	if err != nil {
		h.logger.Error("submit failed",
			slog.String("identity", payload.Identity),
			slog.String("period", payload.Period),
			slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	status := http.StatusCreated
	if res.Dropped || !res.Created {
		status = http.StatusAccepted
	}
	httpx.JSON(w, status, res)
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	period, identity, ok := h.pathParams(w, r)
	if !ok {
		return
	}
	row, status, found, err := h.service.Status(r.Context(), period, identity)
	if err != nil {
		h.logger.Error("status lookup failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if !found {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no submission for this identity and period")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"identity": identity,
		"period":   period.String(),
		"status":   status,
		"row":      row,
	})
}

func (h *Handler) backups(w http.ResponseWriter, r *http.Request) {
	period, identity, ok := h.pathParams(w, r)
	if !ok {
		return
	}
	recs, err := h.service.engine.Backups(r.Context(), period, identity)
	if err != nil {
		h.logger.Error("list backups failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, recs)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, ledger.StatusApproved)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, ledger.StatusRejected)
}

func (h *Handler) review(w http.ResponseWriter, r *http.Request, target ledger.Status) {
	period, identity, ok := h.pathParams(w, r)
	if !ok {
		return
	}
	if err := h.service.Review(r.Context(), period, identity, target); err != nil {
		h.logger.Error("review failed",
			slog.String("identity", identity),
			slog.String("target", string(target)),
			slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) pathParams(w http.ResponseWriter, r *http.Request) (shared.Period, string, bool) {
	period, err := shared.ParsePeriod(chi.URLParam(r, "period"))
	if err != nil {
		httpx.RespondError(w, err)
		return shared.Period{}, "", false
	}
	identity := chi.URLParam(r, "identity")
	if identity == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "identity required")
		return shared.Period{}, "", false
	}
	return period, identity, true
}
