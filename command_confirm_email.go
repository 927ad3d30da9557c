package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// ConfirmationStatus is the terminal outcome of a confirmation attempt. The
// non-verified causes map onto the error query parameter of the redirect.
type ConfirmationStatus string

const (
	ConfirmationVerified     ConfirmationStatus = "verified"
	ConfirmationInvalidToken ConfirmationStatus = "token"
	ConfirmationInvalidUser  ConfirmationStatus = "user"
	ConfirmationStale        ConfirmationStatus = "stale"
)

// ConfirmEmailMessage carries the raw token from a clicked link.
type ConfirmEmailMessage struct {
	Token string `json:"token"`
}

func (e ConfirmEmailMessage) Type() string { return "user.confirm_email" }

// ConfirmEmailHandler verifies a confirmation token against the live account
// state and flips the confirmation flag exactly once.
type ConfirmEmailHandler struct {
	users        Users
	codec        *ConfirmationCodec
	logger       Logger
	activitySink ActivitySink
}

func NewConfirmEmailHandler(users Users, codec *ConfirmationCodec) *ConfirmEmailHandler {
	return &ConfirmEmailHandler{
		users:        users,
		codec:        codec,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}
}

func (h *ConfirmEmailHandler) WithLogger(logger Logger) *ConfirmEmailHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *ConfirmEmailHandler) WithActivitySink(sink ActivitySink) *ConfirmEmailHandler {
	h.activitySink = normalizeActivitySink(sink)
	return h
}

// Execute resolves the token to a terminal outcome. The error return is
// reserved for store failures; every token-level rejection is a status, not
// an error, so repeat clicks and replays degrade gracefully.
func (h *ConfirmEmailHandler) Execute(ctx context.Context, event ConfirmEmailMessage) (ConfirmationStatus, error) {
	claims, err := h.codec.Decode(event.Token)
	if err != nil {
		// Cause (signature vs age) already logged by the codec; callers see
		// one collapsed outcome.
		return ConfirmationInvalidToken, nil
	}

	user, err := h.users.GetByID(ctx, claims.UID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			h.logger.Info("confirmation rejected", "cause", "unknown user", "user_id", claims.UID)
			return ConfirmationInvalidUser, nil
		}
		return "", err
	}

	if user.Email != NormalizeEmail(claims.Email) {
		h.logger.Info("confirmation rejected", "cause", "email mismatch", "user_id", user.ID)
		return ConfirmationInvalidUser, nil
	}

	// The version guard is what makes replay and multi-token races safe:
	// once any confirmation succeeds the live version moves past every
	// outstanding token.
	if user.TokenVersion != claims.Version {
		h.logger.Info("confirmation rejected", "cause", "stale version", "user_id", user.ID,
			"token_version", claims.Version, "live_version", user.TokenVersion)
		return ConfirmationStale, nil
	}

	applied, err := h.users.BumpConfirmation(ctx, user.ID, claims.Version)
	if err != nil {
		return "", err
	}

	if applied {
		h.record(ctx, ActivityEvent{
			EventType: ActivityEventEmailConfirmed,
			Actor:     ActorRef{ID: user.SubjectID(), Type: "user"},
			UserID:    user.ID,
			Metadata:  map[string]any{"email": user.Email},
		})
	}

	// A lost race on the conditional update means someone else just
	// confirmed with this same token; from the user's perspective the email
	// is verified either way.
	return ConfirmationVerified, nil
}

func (h *ConfirmEmailHandler) record(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	if err := normalizeActivitySink(h.activitySink).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink record error: %v", err)
	}
}
