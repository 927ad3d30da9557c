package auth

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetConfirmationSigningKey() string
	GetTokenExpiration() int
	GetConfirmationTokenMaxAge() int
	GetIssuer() string
	GetAudience() []string
	GetBaseURL() string
	GetFrontendOrigin() string
}

// Mailer is the outbound notification collaborator. Dispatch failures are
// recovered by the caller; a mail outage must never fail the triggering
// request.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// TokenService mints and validates signed access tokens.
type TokenService interface {
	Generate(user *User) (string, error)
	Validate(tokenString string) (AuthClaims, error)
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
