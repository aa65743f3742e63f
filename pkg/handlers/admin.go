package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"justanote/pkg/errors"
	"justanote/pkg/middleware"
	"justanote/pkg/services"
	"justanote/pkg/storage"
	"justanote/pkg/types"
)

// AdminHandlers serve the operator dashboard
type AdminHandlers struct {
	admin  *services.AdminService
	logger *zap.Logger
}

// NewAdminHandlers creates the dashboard handlers
func NewAdminHandlers(admin *services.AdminService, logger *zap.Logger) *AdminHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandlers{admin: admin, logger: logger.Named("admin")}
}

// QueueHandler lists admin-delivery notes, optionally filtered by ?status=
func (h *AdminHandlers) QueueHandler(w http.ResponseWriter, r *http.Request) {
	filter, err := storage.ParseStatusFilter(r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, h.logger, errors.ErrInvalidRequest.
			WithCause(err).
			WithUserMessage("Status must be pending or delivered"))
		return
	}
	items, err := h.admin.Queue(r.Context(), filter)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// DeliverHandler marks a note delivered
func (h *AdminHandlers) DeliverHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	note, changed, err := h.admin.MarkDelivered(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if changed {
		if s := middleware.Admin(r.Context()); s != nil {
			h.logger.Info("delivered by admin", zap.String("note_id", id), zap.String("admin", s.Email))
		}
	}
	writeJSON(w, http.StatusOK, types.ConvertToQueueItem(note, h.admin.Link(id)))
}

// DeleteNoteHandler deletes a note by ID
func (h *AdminHandlers) DeleteNoteHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// NotesHandler lists every note
func (h *AdminHandlers) NotesHandler(w http.ResponseWriter, r *http.Request) {
	items, err := h.admin.Notes(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// StatsHandler returns dashboard counters
func (h *AdminHandlers) StatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.admin.Stats(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
