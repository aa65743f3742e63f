package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"justanote/pkg/errors"
	"justanote/pkg/middleware"
	"justanote/pkg/models"
	"justanote/pkg/performance"
	"justanote/pkg/services"
	"justanote/pkg/songs"
)

// SongCatalog resolves popular songs and pasted links
type SongCatalog interface {
	Popular(ctx context.Context) []models.SongRef
	ResolveLink(ctx context.Context, link string) *models.SongRef
}

// APIHandlers serve song lookup and public note views
type APIHandlers struct {
	searcher *songs.Searcher
	catalog  SongCatalog
	views    *services.ViewService
	logger   *zap.Logger
}

// NewAPIHandlers creates a new API handlers instance
func NewAPIHandlers(searcher *songs.Searcher, catalog SongCatalog, views *services.ViewService, logger *zap.Logger) *APIHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandlers{
		searcher: searcher,
		catalog:  catalog,
		views:    views,
		logger:   logger.Named("api"),
	}
}

// SearchSongsHandler searches songs. A search replaced by a newer one from
// the same session answers 204.
func (h *APIHandlers) SearchSongsHandler(w http.ResponseWriter, r *http.Request) {
	results, err := h.searcher.Search(r.Context(), sessionID(r), r.URL.Query().Get("q"))
	if errors.Is(err, performance.ErrSuperseded) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// PopularSongsHandler returns the popular song list
func (h *APIHandlers) PopularSongsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.Popular(r.Context()))
}

var errUnsupportedLink = errors.New(errors.ErrTypeValidation, "SONG_LINK_UNSUPPORTED", "unsupported song link").
	WithContext("field", "url").
	WithUserMessage("Paste a YouTube or Spotify track link")

// ResolveSongHandler turns a pasted YouTube or Spotify link into a song
func (h *APIHandlers) ResolveSongHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	song := h.catalog.ResolveLink(r.Context(), strings.TrimSpace(req.URL))
	if song == nil {
		writeError(w, h.logger, errUnsupportedLink)
		return
	}
	writeJSON(w, http.StatusOK, song)
}

// GetNoteHandler returns the public view of a note and counts the view
func (h *APIHandlers) GetNoteHandler(w http.ResponseWriter, r *http.Request) {
	viewer := middleware.SessionID(r.Context(), middleware.ViewerCookie)
	view, err := h.views.View(r.Context(), chi.URLParam(r, "id"), viewer)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
