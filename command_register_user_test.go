package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	auth "github.com/goliatone/go-volunteer-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func registerFixture() (*MockUsers, *MockMailer, *auth.ConfirmationCodec) {
	return &MockUsers{}, &MockMailer{}, auth.NewConfirmationCodec([]byte("confirmation-secret"), time.Hour)
}

func TestRegisterUserCreatesMemberAndSendsConfirmation(t *testing.T) {
	repo, mailer, codec := registerFixture()

	created := &auth.User{
		ID:    1,
		Email: "volunteer@example.com",
		Role:  auth.RoleMember,
	}

	repo.On("Create", mock.Anything, mock.MatchedBy(func(u *auth.User) bool {
		return u.Email == "volunteer@example.com" &&
			u.Role == auth.RoleMember &&
			u.PasswordHash != "" &&
			u.PasswordHash != "secret-password"
	})).Return(created, nil).Once()

	var sentBody string
	mailer.On("Send", mock.Anything, "volunteer@example.com", "Confirm your account", mock.Anything).
		Run(func(args mock.Arguments) { sentBody = args.String(3) }).
		Return(nil).Once()

	sink := &recordingSink{}
	handler := auth.NewRegisterUserHandler(repo, codec, mailer, "http://localhost:8080").
		WithActivitySink(sink)

	result, err := handler.Execute(context.Background(), auth.RegisterUserMessage{
		Email:    " Volunteer@Example.COM ",
		Password: "secret-password",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.UserID)
	assert.Equal(t, auth.RoleTagMember, result.Role)
	assert.Contains(t, sentBody, "http://localhost:8080/auth/confirm/")

	require.Len(t, sink.events, 1)
	assert.Equal(t, auth.ActivityEventUserRegistered, sink.events[0].EventType)

	repo.AssertExpectations(t)
	mailer.AssertExpectations(t)
}

func TestRegisterUserStoresAdminRequestsAsPending(t *testing.T) {
	repo, mailer, codec := registerFixture()

	created := &auth.User{ID: 2, Email: "staff@example.com", Role: auth.RoleAdminPending}

	repo.On("Create", mock.Anything, mock.MatchedBy(func(u *auth.User) bool {
		return u.Role == auth.RoleAdminPending
	})).Return(created, nil).Once()
	mailer.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	handler := auth.NewRegisterUserHandler(repo, codec, mailer, "http://localhost:8080")

	result, err := handler.Execute(context.Background(), auth.RegisterUserMessage{
		Email:    "staff@example.com",
		Password: "secret-password",
		Role:     auth.RoleTagAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, auth.RoleTagAdmin, result.Role)
	repo.AssertExpectations(t)
}

func TestRegisterUserRejectsUnknownRoleTag(t *testing.T) {
	repo, mailer, codec := registerFixture()
	handler := auth.NewRegisterUserHandler(repo, codec, mailer, "http://localhost:8080")

	_, err := handler.Execute(context.Background(), auth.RegisterUserMessage{
		Email:    "volunteer@example.com",
		Password: "secret-password",
		Role:     "superuser",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrInvalidRole)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRegisterUserRejectsMissingFields(t *testing.T) {
	repo, mailer, codec := registerFixture()
	handler := auth.NewRegisterUserHandler(repo, codec, mailer, "http://localhost:8080")

	cases := []auth.RegisterUserMessage{
		{Password: "secret-password"},
		{Email: "volunteer@example.com"},
		{Email: "not-an-email", Password: "secret-password"},
	}

	for _, msg := range cases {
		_, err := handler.Execute(context.Background(), msg)
		require.Error(t, err)
	}

	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRegisterUserSurfacesDuplicateEmail(t *testing.T) {
	repo, mailer, codec := registerFixture()

	repo.On("Create", mock.Anything, mock.Anything).
		Return(nil, auth.ErrEmailTaken).Once()

	handler := auth.NewRegisterUserHandler(repo, codec, mailer, "http://localhost:8080")

	_, err := handler.Execute(context.Background(), auth.RegisterUserMessage{
		Email:    "volunteer@example.com",
		Password: "secret-password",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrEmailTaken)
	mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRegisterUserToleratesMailerOutage(t *testing.T) {
	repo, mailer, codec := registerFixture()

	created := &auth.User{ID: 3, Email: "volunteer@example.com", Role: auth.RoleMember}
	repo.On("Create", mock.Anything, mock.Anything).Return(created, nil).Once()
	mailer.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("relay down")).Once()

	handler := auth.NewRegisterUserHandler(repo, codec, mailer, "http://localhost:8080")

	result, err := handler.Execute(context.Background(), auth.RegisterUserMessage{
		Email:    "volunteer@example.com",
		Password: "secret-password",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.UserID)
	mailer.AssertExpectations(t)
}

func TestRegisterUserHonorsCancelledContext(t *testing.T) {
	repo, mailer, codec := registerFixture()
	handler := auth.NewRegisterUserHandler(repo, codec, mailer, "http://localhost:8080")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := handler.Execute(ctx, auth.RegisterUserMessage{
		Email:    "volunteer@example.com",
		Password: "secret-password",
	})
	require.Error(t, err)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}
