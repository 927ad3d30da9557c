package auth_test

import (
	"context"
	"strings"
	"testing"
	"time"

	auth "github.com/goliatone/go-volunteer-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestResendConfirmationSendsTokenAtCurrentVersion(t *testing.T) {
	repo := &MockUsers{}
	mailer := &MockMailer{}
	codec := auth.NewConfirmationCodec([]byte("confirmation-secret"), time.Hour)

	// The account invalidated earlier tokens; the resend must encode the
	// live version so the new link actually works.
	user := &auth.User{
		ID:           4,
		Email:        "volunteer@example.com",
		Role:         auth.RoleMember,
		TokenVersion: 2,
	}

	repo.On("GetByEmail", mock.Anything, "volunteer@example.com").Return(user, nil).Once()

	var sentBody string
	mailer.On("Send", mock.Anything, "volunteer@example.com", "Confirm your account", mock.Anything).
		Run(func(args mock.Arguments) { sentBody = args.String(3) }).
		Return(nil).Once()

	sink := &recordingSink{}
	handler := auth.NewResendConfirmationHandler(repo, codec, mailer, "http://localhost:8080").
		WithActivitySink(sink)

	err := handler.Execute(context.Background(), auth.ResendConfirmationMessage{
		Email: " Volunteer@Example.com ",
	})
	require.NoError(t, err)

	prefix := "http://localhost:8080/auth/confirm/"
	require.Contains(t, sentBody, prefix)

	token := extractToken(t, sentBody, prefix)
	claims, err := codec.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, 2, claims.Version)
	assert.Equal(t, user.ID, claims.UID)

	require.Len(t, sink.events, 1)
	assert.Equal(t, auth.ActivityEventConfirmationResent, sink.events[0].EventType)
	mailer.AssertExpectations(t)
}

func TestResendConfirmationIgnoresUnknownEmail(t *testing.T) {
	repo := &MockUsers{}
	mailer := &MockMailer{}
	codec := auth.NewConfirmationCodec([]byte("confirmation-secret"), time.Hour)

	repo.On("GetByEmail", mock.Anything, "nobody@example.com").
		Return(nil, auth.ErrUserNotFound).Once()

	handler := auth.NewResendConfirmationHandler(repo, codec, mailer, "http://localhost:8080")

	err := handler.Execute(context.Background(), auth.ResendConfirmationMessage{
		Email: "nobody@example.com",
	})
	require.NoError(t, err)
	mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestResendConfirmationIgnoresConfirmedAccount(t *testing.T) {
	repo := &MockUsers{}
	mailer := &MockMailer{}
	codec := auth.NewConfirmationCodec([]byte("confirmation-secret"), time.Hour)

	confirmedAt := time.Now()
	repo.On("GetByEmail", mock.Anything, "volunteer@example.com").
		Return(&auth.User{ID: 4, Email: "volunteer@example.com", ConfirmedAt: &confirmedAt}, nil).Once()

	handler := auth.NewResendConfirmationHandler(repo, codec, mailer, "http://localhost:8080")

	err := handler.Execute(context.Background(), auth.ResendConfirmationMessage{
		Email: "volunteer@example.com",
	})
	require.NoError(t, err)
	mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestResendConfirmationRequiresEmail(t *testing.T) {
	repo := &MockUsers{}
	mailer := &MockMailer{}
	codec := auth.NewConfirmationCodec([]byte("confirmation-secret"), time.Hour)

	handler := auth.NewResendConfirmationHandler(repo, codec, mailer, "http://localhost:8080")

	err := handler.Execute(context.Background(), auth.ResendConfirmationMessage{Email: "   "})
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrMissingEmail)
	repo.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
}

// extractToken pulls the confirmation token out of an email body.
func extractToken(t *testing.T, body, prefix string) string {
	t.Helper()

	idx := strings.Index(body, prefix)
	require.GreaterOrEqual(t, idx, 0)

	rest := body[idx+len(prefix):]
	if end := strings.IndexAny(rest, " \r\n"); end >= 0 {
		return rest[:end]
	}
	return rest
}
