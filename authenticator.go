package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// Auther authenticates credentials and mints access tokens.
type Auther struct {
	users        Users
	tokenService TokenService
	logger       Logger
	activitySink ActivitySink
}

// LoginResult carries the outcome of a successful login.
type LoginResult struct {
	Token    string
	User     *User
	Redirect string
}

// NewAuthenticator returns a new Auther backed by the given credential store
// and token service.
func NewAuthenticator(users Users, tokenService TokenService) *Auther {
	return &Auther{
		users:        users,
		tokenService: tokenService,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// TokenService returns the TokenService instance used by this authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Login authenticates an email/password pair and mints an access token.
// Unknown email and wrong password collapse to the same generic failure so
// responses cannot be used to probe which addresses are registered. The
// confirmation and pending-admin gates are specific: by then the caller has
// already proven password knowledge.
func (s *Auther) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			s.emitLoginFailure(ctx, 0, email, "unknown email")
			return nil, ErrInvalidLogin
		}
		s.logger.Error("Login user lookup error", "error", err)
		return nil, err
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if goerrors.Is(err, ErrMismatchedHashAndPassword) {
			s.emitLoginFailure(ctx, user.ID, email, "password mismatch")
			return nil, ErrInvalidLogin
		}
		s.logger.Error("Login password comparison error", "error", err)
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "password verification failed")
	}

	if !user.IsConfirmed() {
		s.emitLoginFailure(ctx, user.ID, email, "email unconfirmed")
		return nil, ErrEmailUnconfirmed
	}

	if user.Role == RoleAdminPending {
		s.emitLoginFailure(ctx, user.ID, email, "admin approval pending")
		return nil, ErrAdminPending
	}

	token, err := s.tokenService.Generate(user)
	if err != nil {
		s.logger.Error("Login token generation error", "error", err)
		return nil, err
	}

	s.emitAuthEvent(ctx, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		Actor:     ActorRef{ID: user.SubjectID(), Type: "user"},
		UserID:    user.ID,
		Metadata:  map[string]any{"email": email},
	})

	return &LoginResult{
		Token:    token,
		User:     user,
		Redirect: RedirectPath(user.Role),
	}, nil
}

func (s *Auther) emitLoginFailure(ctx context.Context, userID int64, email, reason string) {
	s.logger.Info("login rejected", "email", email, "reason", reason)
	s.emitAuthEvent(ctx, ActivityEvent{
		EventType: ActivityEventLoginFailure,
		Actor:     ActorRef{Type: "unknown"},
		UserID:    userID,
		Metadata: map[string]any{
			"email":  email,
			"reason": reason,
		},
	})
}

func (s *Auther) emitAuthEvent(ctx context.Context, event ActivityEvent) {
	sink := normalizeActivitySink(s.activitySink)

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error: %v", err)
	}
}
