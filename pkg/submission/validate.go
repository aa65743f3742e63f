// Package submission decides whether a note draft may be stored and produces
// the cleaned record that is stored. It performs no I/O.
package submission

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"justanote/pkg/errors"
	"justanote/pkg/models"
)

// Field limits, counted in characters
const (
	// MaxNameLength bounds recipient and sender names
	MaxNameLength = 100
	// MaxMessageLength bounds the note body
	MaxMessageLength = 2000
	// MaxEmailLength bounds the sender email
	MaxEmailLength = 254
	// MaxInstagramLength bounds a handle without its leading @
	MaxInstagramLength = 30
)

var (
	emailPattern     = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	instagramPattern = regexp.MustCompile(`^[a-zA-Z0-9._]{1,30}$`)
)

// Validate checks every rule and reports all violations at once.
// Required fields must still hold text after sanitizing, so input made only
// of stripped characters is rejected here rather than stored empty.
func Validate(d models.NoteDraft) *errors.ValidationResult {
	result := errors.NewValidationResult()

	name := strings.TrimSpace(d.RecipientName)
	switch {
	case SanitizeName(name) == "":
		result.AddFieldError("recipientName", "RECIPIENT_REQUIRED", "Recipient name is required")
	case utf8.RuneCountInString(name) > MaxNameLength:
		result.AddFieldError("recipientName", "RECIPIENT_TOO_LONG", "Recipient name must be at most 100 characters")
	}

	msg := strings.TrimSpace(d.Message)
	switch {
	case SanitizeMessage(msg) == "":
		result.AddFieldError("message", "MESSAGE_REQUIRED", "Message is required")
	case utf8.RuneCountInString(msg) > MaxMessageLength:
		result.AddFieldError("message", "MESSAGE_TOO_LONG", "Message must be at most 2000 characters")
	}

	if !d.IsAnonymous && SanitizeName(d.SenderName) == "" {
		result.AddFieldError("senderName", "SENDER_NAME_REQUIRED", "Your name is required when the note is not anonymous")
	}

	switch v := d.Delivery.(type) {
	case models.SelfDelivery:
		if strings.TrimSpace(v.SenderEmail) != "" {
			validateEmail(result, v.SenderEmail)
		}
	case models.AdminDelivery:
		validateInstagram(result, v.RecipientInstagram)
		if strings.TrimSpace(v.SenderEmail) == "" {
			result.AddFieldError("senderEmail", "EMAIL_REQUIRED", "Your email is required for admin delivery")
		} else {
			validateEmail(result, v.SenderEmail)
		}
	default:
		result.AddFieldError("deliveryMethod", "DELIVERY_METHOD_INVALID", "Delivery method must be self or admin")
	}

	if d.Song != nil {
		result.Merge(ValidateSong(*d.Song))
	}

	return result
}

func validateEmail(result *errors.ValidationResult, email string) {
	email = strings.TrimSpace(email)
	if utf8.RuneCountInString(email) > MaxEmailLength {
		result.AddFieldError("senderEmail", "EMAIL_TOO_LONG", "Email must be at most 254 characters")
		return
	}
	if !emailPattern.MatchString(email) {
		result.AddFieldError("senderEmail", "EMAIL_INVALID", "Please enter a valid email address")
	}
}

func validateInstagram(result *errors.ValidationResult, handle string) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		result.AddFieldError("recipientInstagram", "INSTAGRAM_REQUIRED", "Recipient's Instagram handle is required for admin delivery")
		return
	}
	if !instagramPattern.MatchString(strings.TrimPrefix(handle, "@")) {
		result.AddFieldError("recipientInstagram", "INSTAGRAM_INVALID", "Instagram handle may only contain letters, numbers, periods and underscores (max 30)")
	}
}
