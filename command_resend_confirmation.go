package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// ResendConfirmationMessage asks for a fresh confirmation link.
type ResendConfirmationMessage struct {
	Email string `json:"email"`
}

func (e ResendConfirmationMessage) Type() string { return "user.resend_confirmation" }

// ResendConfirmationHandler re-encodes a confirmation token at the account's
// current token version. The outcome is identical whether or not the address
// is registered, so the endpoint cannot be used to probe for accounts.
type ResendConfirmationHandler struct {
	users        Users
	codec        *ConfirmationCodec
	mailer       Mailer
	baseURL      string
	logger       Logger
	activitySink ActivitySink
}

func NewResendConfirmationHandler(users Users, codec *ConfirmationCodec, mailer Mailer, baseURL string) *ResendConfirmationHandler {
	return &ResendConfirmationHandler{
		users:        users,
		codec:        codec,
		mailer:       mailer,
		baseURL:      baseURL,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}
}

func (h *ResendConfirmationHandler) WithLogger(logger Logger) *ResendConfirmationHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *ResendConfirmationHandler) WithActivitySink(sink ActivitySink) *ResendConfirmationHandler {
	h.activitySink = normalizeActivitySink(sink)
	return h
}

func (h *ResendConfirmationHandler) Execute(ctx context.Context, event ResendConfirmationMessage) error {
	email := NormalizeEmail(event.Email)
	if email == "" {
		return ErrMissingEmail
	}

	user, err := h.users.GetByEmail(ctx, email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			// Generic ack; nothing to send.
			return nil
		}
		h.logger.Error("resend confirmation lookup failed", "error", err)
		// Still a generic ack: surfacing the failure would make the
		// response distinguishable.
		return nil
	}

	if user.IsConfirmed() {
		return nil
	}

	if err := sendConfirmationEmail(ctx, h.codec, h.mailer, h.baseURL, user, RoleTag(user.Role)); err != nil {
		h.logger.Error("failed to dispatch confirmation email", "user_id", user.ID, "error", err)
		return nil
	}

	h.record(ctx, ActivityEvent{
		EventType: ActivityEventConfirmationResent,
		Actor:     ActorRef{ID: user.SubjectID(), Type: "user"},
		UserID:    user.ID,
		Metadata:  map[string]any{"email": user.Email},
	})

	return nil
}

func (h *ResendConfirmationHandler) record(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	if err := normalizeActivitySink(h.activitySink).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink record error: %v", err)
	}
}
