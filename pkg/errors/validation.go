package errors

import (
	"strings"
	"unicode/utf8"

	"justanote/pkg/utils"
)

// ValidationResult holds validation results
type ValidationResult struct {
	IsValid bool
	Errors  []*AppError
}

// NewValidationResult returns an empty, valid result
func NewValidationResult() *ValidationResult {
	return &ValidationResult{IsValid: true}
}

// AddError adds an error to the validation result
func (vr *ValidationResult) AddError(err *AppError) {
	vr.IsValid = false
	vr.Errors = append(vr.Errors, err)
}

// AddFieldError records a rule violation on a named field
func (vr *ValidationResult) AddFieldError(field, code, message string) {
	vr.AddError(New(ErrTypeValidation, code, message).
		WithUserMessage(message).
		WithContext("field", field))
}

// Merge appends every error of other
func (vr *ValidationResult) Merge(other *ValidationResult) {
	for _, err := range other.Errors {
		vr.AddError(err)
	}
}

// GetFirstError returns the first error or nil
func (vr *ValidationResult) GetFirstError() *AppError {
	if len(vr.Errors) > 0 {
		return vr.Errors[0]
	}
	return nil
}

// Messages returns one human-readable message per failed rule
func (vr *ValidationResult) Messages() []string {
	msgs := make([]string, 0, len(vr.Errors))
	for _, err := range vr.Errors {
		msgs = append(msgs, err.GetUserMessage())
	}
	return msgs
}

// Fields returns the names of the fields that failed, in order, without duplicates
func (vr *ValidationResult) Fields() []string {
	var fields []string
	seen := make(map[string]bool)
	for _, err := range vr.Errors {
		f, _ := err.Context["field"].(string)
		if f != "" && !seen[f] {
			seen[f] = true
			fields = append(fields, f)
		}
	}
	return fields
}

// Err folds the result into a single error, or nil when valid
func (vr *ValidationResult) Err() error {
	if vr.IsValid {
		return nil
	}
	msgs := vr.Messages()
	return New(ErrTypeValidation, "VALIDATION_FAILED", "note failed validation").
		WithUserMessage(strings.Join(msgs, ". ")).
		WithContext("errors", msgs).
		WithContext("fields", vr.Fields())
}

// Validator provides validation utilities
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateNoteID validates note ID format
func (v *Validator) ValidateNoteID(id string) *ValidationResult {
	result := NewValidationResult()

	if strings.TrimSpace(id) == "" {
		result.AddFieldError("id", "ID_EMPTY", "Note ID is required")
		return result
	}

	if !utils.IsValidNoteID(id) {
		result.AddFieldError("id", "ID_INVALID", "Invalid note ID format")
	}

	return result
}

// ValidatePassword validates admin password requirements
func (v *Validator) ValidatePassword(password string) *ValidationResult {
	result := NewValidationResult()

	if strings.TrimSpace(password) == "" {
		result.AddFieldError("password", "PASSWORD_EMPTY", "Password cannot be empty")
		return result
	}

	if utf8.RuneCountInString(password) < 8 {
		result.AddFieldError("password", "PASSWORD_TOO_SHORT", "Password must be at least 8 characters long")
	}

	return result
}

// ValidatePasswordMatch validates that passwords match
func (v *Validator) ValidatePasswordMatch(password, confirmPassword string) *ValidationResult {
	result := NewValidationResult()

	if password != confirmPassword {
		result.AddFieldError("password", "PASSWORD_MISMATCH", "Passwords do not match. Please try again")
	}

	return result
}
