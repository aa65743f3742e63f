package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildersDoNotMutatePredefined(t *testing.T) {
	derived := ErrNoteNotFound.WithContext("noteId", "ABCDEFGH")

	assert.Nil(t, ErrNoteNotFound.Context)
	assert.Equal(t, "ABCDEFGH", derived.Context["noteId"])
	assert.True(t, stderrors.Is(derived, ErrNoteNotFound))
}

func TestIsThroughWrapping(t *testing.T) {
	err := fmt.Errorf("load: %w", ErrSubmissionInFlight.WithContext("session", "s1"))

	assert.True(t, stderrors.Is(err, ErrSubmissionInFlight))
	assert.False(t, stderrors.Is(err, ErrNoteNotFound))
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(cause, ErrTypeStorage, "WRITE_FAILED", "write failed")

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "disk full")
}

func TestRetryHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds after transient failures", func(t *testing.T) {
		r := NewRetryHandler(3)
		r.Backoff = time.Millisecond
		calls := 0
		err := r.Execute(ctx, func() error {
			calls++
			if calls < 3 {
				return ErrStorageUnavailable
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops on non-retryable", func(t *testing.T) {
		r := NewRetryHandler(5)
		r.Backoff = time.Millisecond
		calls := 0
		err := r.Execute(ctx, func() error {
			calls++
			return ErrNoteNotFound
		})
		assert.ErrorIs(t, err, ErrNoteNotFound)
		assert.Equal(t, 1, calls)
	})

	t.Run("keeps the last app error after exhausting attempts", func(t *testing.T) {
		r := NewRetryHandler(2)
		r.Backoff = time.Millisecond
		err := r.Execute(ctx, func() error { return ErrStorageUnavailable })
		assert.ErrorIs(t, err, ErrStorageUnavailable)
		appErr, ok := As(err)
		require.True(t, ok)
		assert.True(t, appErr.IsRetryable())
	})

	t.Run("honours cancellation", func(t *testing.T) {
		r := NewRetryHandler(10)
		r.Backoff = time.Hour
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		err := r.Execute(cctx, func() error { return ErrStorageUnavailable })
		appErr, ok := As(err)
		require.True(t, ok)
		assert.Equal(t, "RETRY_CANCELLED", appErr.Code)
	})
}

func TestValidationResult(t *testing.T) {
	vr := NewValidationResult()
	require.NoError(t, vr.Err())

	vr.AddFieldError("message", "MESSAGE_REQUIRED", "Message is required")
	vr.AddFieldError("message", "MESSAGE_TOO_LONG", "Message is too long")
	vr.AddFieldError("recipientName", "RECIPIENT_REQUIRED", "Recipient name is required")

	assert.False(t, vr.IsValid)
	assert.Equal(t, []string{"message", "recipientName"}, vr.Fields())
	assert.Len(t, vr.Messages(), 3)

	err := vr.Err()
	assert.Equal(t, http.StatusUnprocessableEntity, HTTPStatus(err))
	fe := ToFrontendError(err)
	assert.Equal(t, "VALIDATION_FAILED", fe.Code)
	assert.Len(t, fe.Context["errors"], 3)
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ErrNoteNotFound, http.StatusNotFound},
		{ErrInvalidCredentials, http.StatusUnauthorized},
		{ErrSubmissionInFlight, http.StatusConflict},
		{ErrStorageUnavailable, http.StatusServiceUnavailable},
		{ErrInvalidRequest, http.StatusBadRequest},
		{stderrors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatus(tc.err), tc.err.Error())
	}
}

func TestToFrontendErrorHidesInternals(t *testing.T) {
	fe := ToFrontendError(stderrors.New("dsn=root:secret@tcp"))
	assert.Equal(t, "GENERIC_ERROR", fe.Code)
	assert.Nil(t, fe.Context)

	fe = ToFrontendError(ErrNoteNotFound.WithContext("path", "/var/data"))
	assert.Nil(t, fe.Context)
}

func TestValidator(t *testing.T) {
	v := NewValidator()
	assert.True(t, v.ValidateNoteID("AbCd2345").IsValid)
	assert.False(t, v.ValidateNoteID("").IsValid)
	assert.False(t, v.ValidateNoteID("../../etc").IsValid)
	assert.False(t, v.ValidatePassword("short").IsValid)
	assert.True(t, v.ValidatePassword("long enough").IsValid)
	assert.False(t, v.ValidatePasswordMatch("a", "b").IsValid)
}
