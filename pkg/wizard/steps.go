package wizard

import (
	"justanote/pkg/errors"
	"justanote/pkg/models"
	"justanote/pkg/submission"
)

// Step names one page of the creation flow
type Step string

const (
	StepRecipient Step = "recipient"
	StepSong      Step = "song"
	StepMessage   Step = "message"
	StepDelivery  Step = "delivery"
)

// Steps lists the flow in order
var Steps = []Step{StepRecipient, StepSong, StepMessage, StepDelivery}

// ParseStep maps a path segment to a step
func ParseStep(s string) (Step, bool) {
	for _, step := range Steps {
		if string(step) == s {
			return step, true
		}
	}
	return "", false
}

func (s Step) index() int {
	for i, step := range Steps {
		if step == s {
			return i
		}
	}
	return -1
}

// Next returns the step after s
func (s Step) Next() (Step, bool) {
	i := s.index()
	if i < 0 || i+1 >= len(Steps) {
		return "", false
	}
	return Steps[i+1], true
}

// leaving checks the data a step must collect before the flow may move past it.
// Steps without an entry (song, delivery) have no leaving requirement.
var leaving = map[Step]func(models.NoteDraft) *errors.ValidationResult{
	StepRecipient: func(d models.NoteDraft) *errors.ValidationResult {
		vr := errors.NewValidationResult()
		if submission.SanitizeName(d.RecipientName) == "" {
			vr.AddFieldError("recipientName", "RECIPIENT_REQUIRED", "Recipient name is required")
		}
		if !d.Vibe.Valid() {
			vr.AddFieldError("vibe", "VIBE_REQUIRED", "Pick a vibe")
		}
		return vr
	},
	StepMessage: func(d models.NoteDraft) *errors.ValidationResult {
		vr := errors.NewValidationResult()
		if submission.SanitizeMessage(d.Message) == "" {
			vr.AddFieldError("message", "MESSAGE_REQUIRED", "Message is required")
		}
		return vr
	},
}

// CheckLeaving returns the leaving requirements of step for d
func CheckLeaving(step Step, d models.NoteDraft) *errors.ValidationResult {
	if check, ok := leaving[step]; ok {
		return check(d)
	}
	return errors.NewValidationResult()
}

// EarliestUnmet returns the step the user may actually be on when asking for
// requested: the first earlier step whose leaving requirement is not met, or
// requested itself.
func EarliestUnmet(requested Step, d models.NoteDraft) Step {
	for _, step := range Steps {
		if step == requested {
			break
		}
		if !CheckLeaving(step, d).IsValid {
			return step
		}
	}
	return requested
}
