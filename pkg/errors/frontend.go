package errors

import "net/http"

// FrontendError represents an error formatted for API clients
type FrontendError struct {
	Type      string         `json:"type"`
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Context   map[string]any `json:"context,omitempty"`
}

// ToFrontendError converts an error to a client-friendly format.
// Internal details of non-AppErrors are never exposed.
func ToFrontendError(err error) *FrontendError {
	if appErr, ok := As(err); ok {
		return &FrontendError{
			Type:      string(appErr.Type),
			Code:      appErr.Code,
			Message:   appErr.GetUserMessage(),
			Retryable: appErr.Retryable,
			Context:   publicContext(appErr),
		}
	}

	return &FrontendError{
		Type:      string(ErrTypeApp),
		Code:      "GENERIC_ERROR",
		Message:   "An unexpected error occurred. Please try again",
		Retryable: true,
	}
}

// only validation details are meant for the client
func publicContext(e *AppError) map[string]any {
	if e.Type != ErrTypeValidation {
		return nil
	}
	return e.Context
}

// HTTPStatus maps an error to a response status
func HTTPStatus(err error) int {
	appErr, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch appErr.Type {
	case ErrTypeValidation:
		if appErr.Code == ErrInvalidRequest.Code {
			return http.StatusBadRequest
		}
		return http.StatusUnprocessableEntity
	case ErrTypeNotFound:
		return http.StatusNotFound
	case ErrTypeAuth:
		return http.StatusUnauthorized
	case ErrTypeConflict:
		return http.StatusConflict
	}
	if appErr.Retryable {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
