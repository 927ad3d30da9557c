package auth_test

import (
	"context"

	auth "github.com/goliatone/go-volunteer-auth"
	"github.com/stretchr/testify/mock"
)

// MockUsers implements auth.Users
type MockUsers struct {
	mock.Mock
}

func (m *MockUsers) Create(ctx context.Context, record *auth.User) (*auth.User, error) {
	args := m.Called(ctx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

func (m *MockUsers) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

func (m *MockUsers) GetByID(ctx context.Context, id int64) (*auth.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

func (m *MockUsers) BumpConfirmation(ctx context.Context, id int64, expectedVersion int) (bool, error) {
	args := m.Called(ctx, id, expectedVersion)
	return args.Bool(0), args.Error(1)
}

func (m *MockUsers) SetRole(ctx context.Context, id int64, from, to auth.UserRole) (*auth.User, error) {
	args := m.Called(ctx, id, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

func (m *MockUsers) ListPendingAdmins(ctx context.Context) ([]*auth.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*auth.User), args.Error(1)
}

// MockMailer implements auth.Mailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, to, subject, body string) error {
	args := m.Called(ctx, to, subject, body)
	return args.Error(0)
}

// MockTokenService implements auth.TokenService
type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) Generate(user *auth.User) (string, error) {
	args := m.Called(user)
	return args.String(0), args.Error(1)
}

func (m *MockTokenService) Validate(tokenString string) (auth.AuthClaims, error) {
	args := m.Called(tokenString)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(auth.AuthClaims), args.Error(1)
}

// testConfig is a static auth.Config for wiring tests.
type testConfig struct {
	signingKey      string
	confirmationKey string
	tokenExpiration int
	confirmMaxAge   int
	issuer          string
	audience        []string
	baseURL         string
	frontendOrigin  string
}

func newTestConfig() testConfig {
	return testConfig{
		signingKey:      "access-secret",
		confirmationKey: "confirmation-secret",
		tokenExpiration: 2,
		confirmMaxAge:   48,
		issuer:          "volunteer-auth",
		audience:        []string{"volunteer-app"},
		baseURL:         "http://localhost:8080",
		frontendOrigin:  "http://frontend.local",
	}
}

func (c testConfig) GetSigningKey() string             { return c.signingKey }
func (c testConfig) GetConfirmationSigningKey() string { return c.confirmationKey }
func (c testConfig) GetTokenExpiration() int           { return c.tokenExpiration }
func (c testConfig) GetConfirmationTokenMaxAge() int   { return c.confirmMaxAge }
func (c testConfig) GetIssuer() string                 { return c.issuer }
func (c testConfig) GetAudience() []string             { return c.audience }
func (c testConfig) GetBaseURL() string                { return c.baseURL }
func (c testConfig) GetFrontendOrigin() string         { return c.frontendOrigin }

// recordingSink captures activity events for assertions.
type recordingSink struct {
	events []auth.ActivityEvent
}

func (s *recordingSink) Record(ctx context.Context, event auth.ActivityEvent) error {
	s.events = append(s.events, event)
	return nil
}
