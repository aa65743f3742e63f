// Package wizard sequences the four-step note creation flow.
package wizard

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"justanote/pkg/errors"
	"justanote/pkg/models"
	"justanote/pkg/submission"
)

// Submitter persists a finished draft
type Submitter interface {
	Submit(ctx context.Context, draft models.NoteDraft, photo []byte) (*models.PersistedNote, error)
}

// Decision tells the caller which step to show.
// Redirected is set when the requested step was not reachable; Landing when the
// session already submitted and must leave the flow.
type Decision struct {
	Step       Step
	Redirected bool
	Landing    bool
	State      State
}

// Patch carries field updates. Only the fields owned by the target step apply.
type Patch struct {
	RecipientName      *string
	Vibe               *models.Vibe
	Song               *models.SongRef
	ClearSong          bool
	Message            *string
	IsAnonymous        *bool
	SenderName         *string
	DeliveryMethod     *models.DeliveryMethod
	RecipientInstagram *string
	SenderEmail        *string
}

// Sequencer enforces step order and the terminal submitted state
type Sequencer struct {
	store     SessionStore
	submitter Submitter
	logger    *zap.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewSequencer creates a sequencer over store that hands drafts to submitter
func NewSequencer(store SessionStore, submitter Submitter, logger *zap.Logger) *Sequencer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sequencer{
		store:     store,
		submitter: submitter,
		logger:    logger,
		inFlight:  make(map[string]struct{}),
	}
}

// load must be called with mu held
func (s *Sequencer) load(sessionID string) State {
	if st, ok := s.store.Load(sessionID); ok {
		return st
	}
	return NewState()
}

// guard must be called with mu held
func (s *Sequencer) guard(sessionID string, requested Step) (Decision, bool) {
	st := s.load(sessionID)
	if st.Submitted() {
		return Decision{Landing: true, State: st}, false
	}
	actual := EarliestUnmet(requested, st.Draft)
	if actual != requested {
		s.logger.Debug("wizard guard redirect",
			zap.String("requested", string(requested)),
			zap.String("step", string(actual)))
		return Decision{Step: actual, Redirected: true, State: st}, false
	}
	return Decision{Step: requested, State: st}, true
}

// Enter decides which step to show for a direct request of step
func (s *Sequencer) Enter(sessionID string, step Step) Decision {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, _ := s.guard(sessionID, step)
	return d
}

// Update applies patch to the fields owned by step. A song is checked and
// cleaned before it is kept.
func (s *Sequencer) Update(sessionID string, step Step, patch Patch) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.inFlight[sessionID]; busy {
		return Decision{}, errors.ErrSubmissionInFlight
	}
	d, ok := s.guard(sessionID, step)
	if !ok {
		return d, nil
	}

	if step == StepSong && patch.Song != nil && !patch.ClearSong {
		if vr := submission.ValidateSong(*patch.Song); !vr.IsValid {
			return Decision{}, vr.Err()
		}
		patch.Song = submission.SanitizeSong(*patch.Song)
	}

	st := d.State
	applyPatch(&st.Draft, step, patch)
	s.store.Save(sessionID, st)

	d.State = st
	return d, nil
}

func applyPatch(d *models.NoteDraft, step Step, p Patch) {
	switch step {
	case StepRecipient:
		if p.RecipientName != nil {
			d.RecipientName = *p.RecipientName
		}
		if p.Vibe != nil {
			d.Vibe = *p.Vibe
		}
	case StepSong:
		if p.ClearSong {
			d.Song = nil
		} else if p.Song != nil {
			song := *p.Song
			d.Song = &song
		}
	case StepMessage:
		if p.Message != nil {
			d.Message = *p.Message
		}
	case StepDelivery:
		if p.IsAnonymous != nil {
			d.IsAnonymous = *p.IsAnonymous
		}
		if p.SenderName != nil {
			d.SenderName = *p.SenderName
		}
		method, instagram, email := flattenDelivery(d.Delivery)
		if p.DeliveryMethod != nil {
			method = *p.DeliveryMethod
		}
		if p.RecipientInstagram != nil {
			instagram = *p.RecipientInstagram
		}
		if p.SenderEmail != nil {
			email = *p.SenderEmail
		}
		d.Delivery = models.NewDelivery(method, instagram, email)
	}
}

func flattenDelivery(d models.Delivery) (method models.DeliveryMethod, instagram, email string) {
	switch v := d.(type) {
	case models.SelfDelivery:
		return models.DeliverySelf, "", v.SenderEmail
	case models.AdminDelivery:
		return models.DeliveryAdmin, v.RecipientInstagram, v.SenderEmail
	}
	return "", "", ""
}

// Advance moves past step once its requirements are met. An unreachable step
// yields a redirect decision, unmet requirements a validation error.
func (s *Sequencer) Advance(sessionID string, step Step) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.guard(sessionID, step)
	if !ok {
		return d, nil
	}

	next, hasNext := step.Next()
	if !hasNext {
		return Decision{}, errors.ErrInvalidRequest.
			WithUserMessage("The last step is finished by sending the note")
	}
	if vr := CheckLeaving(step, d.State.Draft); !vr.IsValid {
		return Decision{}, vr.Err()
	}
	return Decision{Step: next, State: d.State}, nil
}

// Skip leaves the optional song step without a song
func (s *Sequencer) Skip(sessionID string) (Decision, error) {
	d, err := s.Update(sessionID, StepSong, Patch{ClearSong: true})
	if err != nil || d.Landing || d.Redirected {
		return d, err
	}
	return s.Advance(sessionID, StepSong)
}

// AttachPhoto keeps a photo with the session for submission. Nil removes it.
func (s *Sequencer) AttachPhoto(sessionID string, photo []byte) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.inFlight[sessionID]; busy {
		return Decision{}, errors.ErrSubmissionInFlight
	}
	d, ok := s.guard(sessionID, StepMessage)
	if !ok {
		return d, nil
	}
	d.State.Photo = photo
	s.store.Save(sessionID, d.State)
	return d, nil
}

// Submit validates the draft and hands it to the submitter. The draft must
// satisfy every step before delivery, as if the user had walked the flow to
// the last step. Only one submission
// per session may be outstanding. On success the draft is cleared and the session
// is marked submitted; on failure the draft is kept for a retry.
func (s *Sequencer) Submit(ctx context.Context, sessionID string) (*models.PersistedNote, error) {
	s.mu.Lock()
	if _, busy := s.inFlight[sessionID]; busy {
		s.mu.Unlock()
		return nil, errors.ErrSubmissionInFlight
	}
	st := s.load(sessionID)
	if st.Submitted() {
		s.mu.Unlock()
		return nil, errors.ErrAlreadySubmitted.WithContext("noteId", st.SubmittedNoteID)
	}
	if unmet := EarliestUnmet(StepDelivery, st.Draft); unmet != StepDelivery {
		s.mu.Unlock()
		return nil, CheckLeaving(unmet, st.Draft).Err()
	}
	if vr := submission.Validate(st.Draft); !vr.IsValid {
		s.mu.Unlock()
		return nil, vr.Err()
	}
	s.inFlight[sessionID] = struct{}{}
	s.mu.Unlock()

	note, err := s.submitter.Submit(ctx, st.Draft, st.Photo)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, sessionID)

	if err != nil {
		if appErr, ok := errors.As(err); ok && appErr.Type == errors.ErrTypeValidation {
			return nil, err
		}
		s.logger.Warn("note submission failed", zap.String("session", sessionID), zap.Error(err))
		return nil, errors.ErrStorageUnavailable.WithCause(err)
	}

	s.store.Save(sessionID, State{Draft: models.NewDraft(), SubmittedNoteID: note.ID})
	s.logger.Info("note submitted", zap.String("note_id", note.ID))
	return note, nil
}

// Reset abandons the session, or starts a new note after a submission
func (s *Sequencer) Reset(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.inFlight[sessionID]; busy {
		return errors.ErrSubmissionInFlight
	}
	s.store.Clear(sessionID)
	return nil
}

// State returns the current state of a session
func (s *Sequencer) State(sessionID string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(sessionID)
}
