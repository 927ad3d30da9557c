package auth_test

import (
	"context"
	"sync"
	"testing"
	"time"

	auth "github.com/goliatone/go-volunteer-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testPassword = "correct-horse-battery"

var (
	testHashOnce sync.Once
	testHash     string
)

// testPasswordHash shares one bcrypt digest across tests; hashing at the
// production cost is too slow to repeat per case.
func testPasswordHash(t *testing.T) string {
	t.Helper()
	testHashOnce.Do(func() {
		hash, err := auth.HashPassword(testPassword)
		if err != nil {
			t.Fatalf("hash fixture: %v", err)
		}
		testHash = hash
	})
	return testHash
}

func confirmedUser(t *testing.T, role auth.UserRole) *auth.User {
	t.Helper()
	confirmedAt := time.Now().Add(-time.Hour)
	return &auth.User{
		ID:           21,
		Email:        "member@example.com",
		PasswordHash: testPasswordHash(t),
		Role:         role,
		ConfirmedAt:  &confirmedAt,
		TokenVersion: 1,
	}
}

func TestLoginSucceedsForConfirmedMember(t *testing.T) {
	repo := &MockUsers{}
	user := confirmedUser(t, auth.RoleMember)

	repo.On("GetByEmail", mock.Anything, "member@example.com").Return(user, nil).Once()

	sink := &recordingSink{}
	svc := auth.NewAuthenticator(repo, auth.NewTokenService([]byte("secret"), 1, "", nil, nil)).
		WithActivitySink(sink)

	result, err := svc.Login(context.Background(), " Member@Example.com ", testPassword)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, "/member", result.Redirect)
	assert.Same(t, user, result.User)

	claims, err := svc.TokenService().Validate(result.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID())
	assert.True(t, claims.Confirmed())

	require.Len(t, sink.events, 1)
	assert.Equal(t, auth.ActivityEventLoginSuccess, sink.events[0].EventType)
	repo.AssertExpectations(t)
}

func TestLoginRedirectsAdminsToAdmin(t *testing.T) {
	repo := &MockUsers{}
	user := confirmedUser(t, auth.RoleAdmin)

	repo.On("GetByEmail", mock.Anything, user.Email).Return(user, nil).Once()

	svc := auth.NewAuthenticator(repo, auth.NewTokenService([]byte("secret"), 1, "", nil, nil))

	result, err := svc.Login(context.Background(), user.Email, testPassword)
	require.NoError(t, err)
	assert.Equal(t, "/admin", result.Redirect)
}

func TestLoginUnknownEmailAndWrongPasswordAreIndistinguishable(t *testing.T) {
	repo := &MockUsers{}
	user := confirmedUser(t, auth.RoleMember)

	repo.On("GetByEmail", mock.Anything, "nobody@example.com").
		Return(nil, auth.ErrUserNotFound).Once()
	repo.On("GetByEmail", mock.Anything, user.Email).Return(user, nil).Once()

	svc := auth.NewAuthenticator(repo, auth.NewTokenService([]byte("secret"), 1, "", nil, nil))

	_, unknownErr := svc.Login(context.Background(), "nobody@example.com", testPassword)
	_, wrongErr := svc.Login(context.Background(), user.Email, "bad-password")

	require.Error(t, unknownErr)
	require.Error(t, wrongErr)
	assert.ErrorIs(t, unknownErr, auth.ErrInvalidLogin)
	assert.ErrorIs(t, wrongErr, auth.ErrInvalidLogin)
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())
}

func TestLoginRejectsUnconfirmedUser(t *testing.T) {
	repo := &MockUsers{}
	user := confirmedUser(t, auth.RoleMember)
	user.ConfirmedAt = nil

	repo.On("GetByEmail", mock.Anything, user.Email).Return(user, nil).Once()

	svc := auth.NewAuthenticator(repo, auth.NewTokenService([]byte("secret"), 1, "", nil, nil))

	_, err := svc.Login(context.Background(), user.Email, testPassword)
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrEmailUnconfirmed)
}

func TestLoginRejectsPendingAdminEvenWhenConfirmed(t *testing.T) {
	repo := &MockUsers{}
	user := confirmedUser(t, auth.RoleAdminPending)

	repo.On("GetByEmail", mock.Anything, user.Email).Return(user, nil).Once()

	svc := auth.NewAuthenticator(repo, auth.NewTokenService([]byte("secret"), 1, "", nil, nil))

	_, err := svc.Login(context.Background(), user.Email, testPassword)
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrAdminPending)
}

func TestLoginRejectsMissingCredentials(t *testing.T) {
	repo := &MockUsers{}
	svc := auth.NewAuthenticator(repo, auth.NewTokenService([]byte("secret"), 1, "", nil, nil))

	_, err := svc.Login(context.Background(), "", "password")
	assert.ErrorIs(t, err, auth.ErrMissingCredentials)

	_, err = svc.Login(context.Background(), "member@example.com", "")
	assert.ErrorIs(t, err, auth.ErrMissingCredentials)

	repo.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
}

func TestLoginEmitsFailureEvents(t *testing.T) {
	repo := &MockUsers{}
	user := confirmedUser(t, auth.RoleMember)
	user.ConfirmedAt = nil

	repo.On("GetByEmail", mock.Anything, user.Email).Return(user, nil).Once()

	sink := &recordingSink{}
	svc := auth.NewAuthenticator(repo, auth.NewTokenService([]byte("secret"), 1, "", nil, nil)).
		WithActivitySink(sink)

	_, err := svc.Login(context.Background(), user.Email, testPassword)
	require.Error(t, err)

	require.Len(t, sink.events, 1)
	assert.Equal(t, auth.ActivityEventLoginFailure, sink.events[0].EventType)
	assert.Equal(t, user.ID, sink.events[0].UserID)
}
