package directory

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tallyform/tallyform/internal/platform/httpx"
)

// Handler exposes roster administration endpoints. Mutations invalidate
// the gate's cached snapshot.
type Handler struct {
	logger    *slog.Logger
	roster    Roster
	gate      *Gate
	validator *validator.Validate
}

// NewHandler builds the directory handler.
func NewHandler(logger *slog.Logger, roster Roster, gate *Gate) *Handler {
	return &Handler{logger: logger, roster: roster, gate: gate, validator: validator.New()}
}

// MountRoutes registers directory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.add)
	r.Delete("/{key}", h.deactivate)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	active, err := h.gate.ListActive(r.Context())
	if err != nil {
		h.logger.Error("list roster", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]ActiveIdentity, 0, len(active))
	for _, id := range active {
		out = append(out, id)
	}
	httpx.JSON(w, http.StatusOK, out)
}

type addIdentityForm struct {
	Key         string `json:"key" validate:"required,email"`
	DisplayName string `json:"display_name" validate:"max=120"`
}

func (h *Handler) add(w http.ResponseWriter, r *http.Request) {
	var form addIdentityForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	id := ActiveIdentity{Key: form.Key, DisplayName: form.DisplayName, Active: true}
	if err := h.roster.Add(r.Context(), id); err != nil {
		h.logger.Error("add identity", slog.String("key", form.Key), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.gate.Invalidate()
	httpx.JSON(w, http.StatusCreated, id)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := h.roster.Deactivate(r.Context(), key); err != nil {
		h.logger.Error("deactivate identity", slog.String("key", key), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.gate.Invalidate()
	w.WriteHeader(http.StatusNoContent)
}
