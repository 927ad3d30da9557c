package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
)

// DefaultContextKey is where the guard stores the resolved user on the
// request context.
const DefaultContextKey = "current_user"

// Guard protects routes with bearer-token authentication and role checks.
// Role checks run against the live store record, not the token claim, so a
// demotion takes effect on the next request even while old tokens are valid.
type Guard struct {
	tokens     TokenService
	users      Users
	logger     Logger
	contextKey string
}

// NewGuard returns a Guard backed by the given token service and credential
// store.
func NewGuard(tokens TokenService, users Users) *Guard {
	return &Guard{
		tokens:     tokens,
		users:      users,
		logger:     defLogger{},
		contextKey: DefaultContextKey,
	}
}

func (g *Guard) WithLogger(logger Logger) *Guard {
	if logger != nil {
		g.logger = logger
	}
	return g
}

// WithContextKey overrides the fiber locals key the resolved user is stored
// under.
func (g *Guard) WithContextKey(key string) *Guard {
	if key != "" {
		g.contextKey = key
	}
	return g
}

// RequireRole returns a middleware that rejects requests without a valid
// bearer token (401) or whose live role is not in the allowed set (403). With
// no roles given, any authenticated user passes.
func (g *Guard) RequireRole(roles ...UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, err := bearerToken(c)
		if err != nil {
			return writeError(c, err)
		}

		claims, err := g.tokens.Validate(tokenString)
		if err != nil {
			g.logger.Info("guard token rejected", "path", c.Path(), "error", err)
			return writeError(c, guardAuthError(err))
		}

		user, err := g.users.GetByID(c.UserContext(), claims.UserID())
		if err != nil {
			if goerrors.IsNotFound(err) {
				// Token outlived the account.
				return writeError(c, ErrUnauthorized)
			}
			return writeError(c, err)
		}

		if len(roles) > 0 && !hasAnyRole(user.Role, roles) {
			g.logger.Info("guard role rejected", "path", c.Path(), "user_id", user.ID, "role", user.Role)
			return writeError(c, ErrForbidden)
		}

		c.Locals(g.contextKey, user)

		return c.Next()
	}
}

// CurrentUser returns the user the guard resolved for this request, or nil
// when the route is unprotected.
func (g *Guard) CurrentUser(c *fiber.Ctx) *User {
	user, ok := c.Locals(g.contextKey).(*User)
	if !ok {
		return nil
	}
	return user
}

func bearerToken(c *fiber.Ctx) (string, error) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return "", ErrUnauthorized
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrUnauthorized
	}

	return strings.TrimSpace(token), nil
}

func guardAuthError(err error) error {
	if IsTokenExpiredError(err) {
		return ErrTokenExpired
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.Category == goerrors.CategoryAuth {
		return richErr
	}

	return ErrUnauthorized
}

func hasAnyRole(role UserRole, allowed []UserRole) bool {
	for _, candidate := range allowed {
		if role == candidate {
			return true
		}
	}
	return false
}
