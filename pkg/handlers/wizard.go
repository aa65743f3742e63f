package handlers

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"justanote/pkg/errors"
	"justanote/pkg/middleware"
	"justanote/pkg/models"
	"justanote/pkg/services"
	"justanote/pkg/types"
	"justanote/pkg/wizard"
)

// PhotoChecker rejects unusable uploads before they are kept with a session
type PhotoChecker interface {
	Check(data []byte) error
}

// WizardHandlers serve the note creation flow
type WizardHandlers struct {
	seq       *wizard.Sequencer
	photos    PhotoChecker
	maxUpload int64
	baseURL   string
	logger    *zap.Logger
}

// NewWizardHandlers creates the creation flow handlers
func NewWizardHandlers(seq *wizard.Sequencer, photos PhotoChecker, maxUpload int64, baseURL string, logger *zap.Logger) *WizardHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WizardHandlers{
		seq:       seq,
		photos:    photos,
		maxUpload: maxUpload,
		baseURL:   baseURL,
		logger:    logger.Named("wizard"),
	}
}

var errUnknownStep = errors.New(errors.ErrTypeNotFound, "STEP_UNKNOWN", "unknown wizard step").
	WithUserMessage("That page does not exist")

func sessionID(r *http.Request) string {
	return middleware.SessionID(r.Context(), middleware.WizardCookie)
}

func stepParam(r *http.Request) (wizard.Step, error) {
	step, ok := wizard.ParseStep(chi.URLParam(r, "step"))
	if !ok {
		return "", errUnknownStep.WithContext("step", chi.URLParam(r, "step"))
	}
	return step, nil
}

func toWizardView(d wizard.Decision) types.WizardView {
	steps := make([]string, len(wizard.Steps))
	for i, s := range wizard.Steps {
		steps[i] = string(s)
	}
	return types.WizardView{
		Step:            string(d.Step),
		Redirected:      d.Redirected,
		Landing:         d.Landing,
		Draft:           d.State.Draft,
		HasPhoto:        len(d.State.Photo) > 0,
		SubmittedNoteID: d.State.SubmittedNoteID,
		Steps:           steps,
		Vibes:           models.Vibes,
	}
}

// respondDecision redirects when the guard moved the session elsewhere
func (h *WizardHandlers) respondDecision(w http.ResponseWriter, r *http.Request, d wizard.Decision) {
	switch {
	case d.Landing:
		http.Redirect(w, r, "/", http.StatusSeeOther)
	case d.Redirected:
		http.Redirect(w, r, "/api/create/"+string(d.Step), http.StatusSeeOther)
	default:
		writeJSON(w, http.StatusOK, toWizardView(d))
	}
}

// StepHandler shows a step, or redirects to the step the session may see
func (h *WizardHandlers) StepHandler(w http.ResponseWriter, r *http.Request) {
	step, err := stepParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.respondDecision(w, r, h.seq.Enter(sessionID(r), step))
}

type patchRequest struct {
	RecipientName      *string                `json:"recipientName"`
	Vibe               *models.Vibe           `json:"vibe"`
	Song               *models.SongRef        `json:"song"`
	ClearSong          bool                   `json:"clearSong"`
	Message            *string                `json:"message"`
	IsAnonymous        *bool                  `json:"isAnonymous"`
	SenderName         *string                `json:"senderName"`
	DeliveryMethod     *models.DeliveryMethod `json:"deliveryMethod"`
	RecipientInstagram *string                `json:"recipientInstagram"`
	SenderEmail        *string                `json:"senderEmail"`
}

// UpdateHandler applies the step's fields from the request body
func (h *WizardHandlers) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	step, err := stepParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req patchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	d, err := h.seq.Update(sessionID(r), step, wizard.Patch(req))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.respondDecision(w, r, d)
}

// NextHandler moves past a step once its requirements are met
func (h *WizardHandlers) NextHandler(w http.ResponseWriter, r *http.Request) {
	step, err := stepParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	d, err := h.seq.Advance(sessionID(r), step)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.respondDecision(w, r, d)
}

// SkipSongHandler leaves the song step without a song
func (h *WizardHandlers) SkipSongHandler(w http.ResponseWriter, r *http.Request) {
	d, err := h.seq.Skip(sessionID(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.respondDecision(w, r, d)
}

// PhotoHandler keeps an uploaded photo with the session. An empty upload
// removes the current photo.
func (h *WizardHandlers) PhotoHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+1<<20)
	file, _, err := r.FormFile("photo")
	if err != nil && err != http.ErrMissingFile {
		writeError(w, h.logger, errors.ErrInvalidRequest.WithCause(err))
		return
	}

	var data []byte
	if file != nil {
		defer file.Close()
		data, err = io.ReadAll(io.LimitReader(file, h.maxUpload+1))
		if err != nil {
			writeError(w, h.logger, errors.ErrInvalidRequest.WithCause(err))
			return
		}
	}
	if len(data) > 0 && h.photos != nil {
		if err := h.photos.Check(data); err != nil {
			writeError(w, h.logger, err)
			return
		}
	}

	d, err := h.seq.AttachPhoto(sessionID(r), data)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.respondDecision(w, r, d)
}

// SubmitHandler sends the note
func (h *WizardHandlers) SubmitHandler(w http.ResponseWriter, r *http.Request) {
	note, err := h.seq.Submit(r.Context(), sessionID(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, types.SubmitResponse{
		ID:   note.ID,
		Link: services.ShareLink(h.baseURL, note.ID),
	})
}

// ResetHandler abandons the draft or starts a new note
func (h *WizardHandlers) ResetHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.seq.Reset(sessionID(r)); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LandingHandler tells the landing page about the session's sent note
func (h *WizardHandlers) LandingHandler(w http.ResponseWriter, r *http.Request) {
	st := h.seq.State(sessionID(r))
	view := types.LandingView{SubmittedNoteID: st.SubmittedNoteID}
	if st.SubmittedNoteID != "" {
		view.Link = services.ShareLink(h.baseURL, st.SubmittedNoteID)
	}
	writeJSON(w, http.StatusOK, view)
}
