package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"justanote/pkg/errors"
)

// Event names a notification the service sends
type Event string

const (
	// EventDelivered tells the sender an admin delivered their note
	EventDelivered Event = "delivered"
	// EventViewed tells the sender their note was opened for the first time
	EventViewed Event = "viewed"
)

// Notifier sends best-effort notifications
type Notifier interface {
	Notify(ctx context.Context, event Event, to string, params map[string]string) bool
}

// Config holds EmailJS credentials and per-event templates
type Config struct {
	Endpoint  string
	ServiceID string
	PublicKey string
	Templates map[Event]string
	Timeout   time.Duration
}

// EmailJS sends notifications through the EmailJS REST API
type EmailJS struct {
	cfg    Config
	http   *http.Client
	retry  *errors.RetryHandler
	logger *zap.Logger
}

// NewEmailJS creates a client. An incomplete config yields a client whose
// Notify is a successful no-op.
func NewEmailJS(cfg Config, logger *zap.Logger) *EmailJS {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://api.emailjs.com/api/v1.0/email/send"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	logger = logger.Named("emailjs")

	retry := errors.NewRetryHandler(3)
	retry.OnRetry = func(attempt int, err error) {
		logger.Warn("email send failed, retrying", zap.Int("attempt", attempt), zap.Error(err))
	}
	return &EmailJS{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		retry:  retry,
		logger: logger,
	}
}

// Configured reports whether emails are actually sent
func (c *EmailJS) Configured() bool {
	return c.cfg.ServiceID != "" && c.cfg.PublicKey != ""
}

type sendRequest struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	TemplateParams map[string]string `json:"template_params"`
}

// Notify sends event to the address to. It reports false only when a
// configured send failed; it never returns an error.
func (c *EmailJS) Notify(ctx context.Context, event Event, to string, params map[string]string) bool {
	template := c.cfg.Templates[event]
	if !c.Configured() || template == "" || to == "" {
		c.logger.Debug("notification skipped", zap.String("event", string(event)))
		return true
	}

	templateParams := map[string]string{"to_email": to}
	for k, v := range params {
		templateParams[k] = v
	}
	body, err := json.Marshal(sendRequest{
		ServiceID:      c.cfg.ServiceID,
		TemplateID:     template,
		UserID:         c.cfg.PublicKey,
		TemplateParams: templateParams,
	})
	if err != nil {
		c.logger.Error("encode email request", zap.Error(err))
		return false
	}

	err = c.retry.Execute(ctx, func() error { return c.send(ctx, body) })
	if err != nil {
		c.logger.Warn("notification failed", zap.String("event", string(event)), zap.Error(err))
		return false
	}
	c.logger.Info("notification sent", zap.String("event", string(event)))
	return true
}

func (c *EmailJS) send(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeCollaborator, "EMAIL_REQUEST_INVALID", "failed to build email request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeCollaborator, "EMAIL_UNREACHABLE", "email service unreachable").
			WithRetryable(true)
	}
	defer resp.Body.Close()
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return errors.New(errors.ErrTypeCollaborator, "EMAIL_SERVICE_ERROR",
			fmt.Sprintf("email service returned %s", resp.Status)).
			WithContext("body", string(detail)).
			WithRetryable(true)
	default:
		return errors.New(errors.ErrTypeCollaborator, "EMAIL_REJECTED",
			fmt.Sprintf("email service returned %s", resp.Status)).
			WithContext("body", string(detail))
	}
}
