package auth

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// ErrMissingCredentials is returned when email or password are absent.
var ErrMissingCredentials = errors.New("email and password are required", errors.CategoryValidation).
	WithTextCode("MISSING_CREDENTIALS").
	WithCode(errors.CodeBadRequest)

// ErrMissingEmail is returned when a resend request carries no email.
var ErrMissingEmail = errors.New("email is required", errors.CategoryValidation).
	WithTextCode("MISSING_EMAIL").
	WithCode(errors.CodeBadRequest)

// ErrInvalidRole is returned for unrecognized registration role tags.
var ErrInvalidRole = errors.New("invalid role", errors.CategoryValidation).
	WithTextCode("INVALID_ROLE").
	WithCode(errors.CodeBadRequest)

// ErrEmailTaken is returned when the store rejects a duplicate email.
var ErrEmailTaken = errors.New("email already registered", errors.CategoryConflict).
	WithTextCode("EMAIL_TAKEN").
	WithCode(errors.CodeConflict)

// ErrInvalidLogin covers both unknown email and wrong password. The message
// is deliberately generic to prevent account enumeration.
var ErrInvalidLogin = errors.New("invalid email or password", errors.CategoryAuth).
	WithTextCode("INVALID_LOGIN").
	WithCode(errors.CodeUnauthorized)

// ErrEmailUnconfirmed blocks login until email ownership is proven. Specific
// by design: the caller has already produced the correct password.
var ErrEmailUnconfirmed = errors.New("please confirm your email before logging in", errors.CategoryAuthz).
	WithTextCode("EMAIL_UNCONFIRMED").
	WithCode(errors.CodeForbidden)

// ErrAdminPending blocks login for elevated applicants until approved.
var ErrAdminPending = errors.New("admin access request pending approval", errors.CategoryAuthz).
	WithTextCode("ADMIN_PENDING").
	WithCode(errors.CodeForbidden)

// ErrUnauthorized is the generic 401 for missing or invalid bearer tokens.
var ErrUnauthorized = errors.New("unauthorized", errors.CategoryAuth).
	WithTextCode("UNAUTHORIZED").
	WithCode(errors.CodeUnauthorized)

// ErrForbidden is returned when an authenticated user lacks the role a
// protected route requires.
var ErrForbidden = errors.New("insufficient permissions", errors.CategoryAuthz).
	WithTextCode("FORBIDDEN").
	WithCode(errors.CodeForbidden)

// ErrUserNotFound is returned for unknown account ids.
var ErrUserNotFound = errors.New("user not found", errors.CategoryNotFound).
	WithTextCode("NOT_FOUND").
	WithCode(errors.CodeNotFound)

// ErrTokenExpired indicates a token with a valid signature exceeded its
// maximum age.
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode("TOKEN_EXPIRED").
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed indicates a token that failed signature or structural
// validation.
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode("TOKEN_MALFORMED").
	WithCode(errors.CodeUnauthorized)

// ErrNotAnApplicant rejects approve/deny on accounts that never applied.
var ErrNotAnApplicant = errors.New("user is not an admin applicant", errors.CategoryValidation).
	WithTextCode("INVALID_TRANSITION").
	WithCode(errors.CodeBadRequest)

// ErrAlreadyAdmin rejects approving an account that already holds admin.
var ErrAlreadyAdmin = errors.New("user is already an admin", errors.CategoryValidation).
	WithTextCode("INVALID_TRANSITION").
	WithCode(errors.CodeBadRequest)

// ErrCannotDenyAdmin rejects demoting an existing admin through deny.
var ErrCannotDenyAdmin = errors.New("cannot deny an existing admin", errors.CategoryValidation).
	WithTextCode("INVALID_TRANSITION").
	WithCode(errors.CodeBadRequest)

// ErrRolePrecondition is the store-level conflict when a conditional role
// update observes a different current role than expected.
var ErrRolePrecondition = errors.New("role precondition failed", errors.CategoryConflict).
	WithTextCode("ROLE_CONFLICT").
	WithCode(errors.CodeConflict)

// ErrMismatchedHashAndPassword is the bcrypt mismatch error.
var ErrMismatchedHashAndPassword = errors.New("password does not match", errors.CategoryAuth).
	WithTextCode("PASSWORD_MISMATCH").
	WithCode(errors.CodeUnauthorized)

// ErrNoEmptyString rejects empty passwords before hashing.
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryBadInput).
	WithTextCode("EMPTY_PASSWORD").
	WithCode(errors.CodeBadRequest)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
