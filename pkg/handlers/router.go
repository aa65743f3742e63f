package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"justanote/pkg/middleware"
)

const visitorCookieAge = 30 * 24 * time.Hour

// Router wires every handler group under one chi router
type Router struct {
	Wizard        *WizardHandlers
	API           *APIHandlers
	Auth          *AuthHandlers
	Admin         *AdminHandlers
	AuthManager   middleware.AuthManager
	SecureCookies bool
	Logger        *zap.Logger
}

// Handler builds the HTTP handler
func (rt Router) Handler() http.Handler {
	wizardSession := middleware.Session(middleware.WizardCookie, visitorCookieAge, rt.SecureCookies)
	viewerSession := middleware.Session(middleware.ViewerCookie, visitorCookieAge, rt.SecureCookies)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLogger(rt.Logger))
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.With(wizardSession).Get("/", rt.Wizard.LandingHandler)

	r.Post("/admin/login", rt.Auth.LoginHandler)
	r.Post("/admin/logout", rt.Auth.LogoutHandler)

	r.Route("/api", func(r chi.Router) {
		r.Route("/create", func(r chi.Router) {
			r.Use(wizardSession)
			r.Get("/{step}", rt.Wizard.StepHandler)
			r.Put("/{step}", rt.Wizard.UpdateHandler)
			r.Post("/{step}/next", rt.Wizard.NextHandler)
			r.Post("/song/skip", rt.Wizard.SkipSongHandler)
			r.Post("/photo", rt.Wizard.PhotoHandler)
			r.Post("/submit", rt.Wizard.SubmitHandler)
			r.Post("/reset", rt.Wizard.ResetHandler)
		})

		r.Route("/songs", func(r chi.Router) {
			r.Use(wizardSession)
			r.Get("/search", rt.API.SearchSongsHandler)
			r.Get("/popular", rt.API.PopularSongsHandler)
			r.Post("/resolve", rt.API.ResolveSongHandler)
		})

		r.With(viewerSession).Get("/notes/{id}", rt.API.GetNoteHandler)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin(rt.AuthManager))
			r.Get("/queue", rt.Admin.QueueHandler)
			r.Get("/notes", rt.Admin.NotesHandler)
			r.Get("/stats", rt.Admin.StatsHandler)
			r.Post("/notes/{id}/deliver", rt.Admin.DeliverHandler)
			r.Delete("/notes/{id}", rt.Admin.DeleteNoteHandler)
		})
	})

	return r
}
