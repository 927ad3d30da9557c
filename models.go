package auth

import (
	"strconv"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// UserRole is the user's role
type UserRole = string

const (
	// RoleMember is an ordinary confirmed volunteer
	RoleMember UserRole = "MEMBER"
	// RoleAdminPending is an applicant awaiting staff approval
	RoleAdminPending UserRole = "ADMIN_PENDING"
	// RoleAdmin is an approved administrative member
	RoleAdmin UserRole = "ADMIN"
)

// User is the credential record. It is the sole shared mutable resource of
// the auth core; every multi-step mutation reduces to a single atomic
// conditional write against this table.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            int64      `bun:"id,pk,autoincrement" json:"id,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	Role          UserRole   `bun:"user_role,notnull" json:"role,omitempty"`
	ConfirmedAt   *time.Time `bun:"confirmed_at,nullzero" json:"confirmed_at,omitempty"`
	TokenVersion  int        `bun:"token_version,notnull,default:0" json:"-"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// IsConfirmed reports whether email ownership has been proven.
func (u *User) IsConfirmed() bool {
	return u != nil && u.ConfirmedAt != nil
}

// SubjectID returns the string form of the account id used as JWT subject.
func (u *User) SubjectID() string {
	if u == nil {
		return ""
	}
	return strconv.FormatInt(u.ID, 10)
}

// PublicUser is the serializable view of a User exposed by the HTTP layer.
type PublicUser struct {
	ID             int64      `json:"id"`
	Email          string     `json:"email"`
	Role           UserRole   `json:"role"`
	EmailConfirmed bool       `json:"email_confirmed"`
	ConfirmedAt    *time.Time `json:"email_confirmed_at,omitempty"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

// Public returns the user view safe to hand to clients.
func (u *User) Public() PublicUser {
	if u == nil {
		return PublicUser{}
	}
	return PublicUser{
		ID:             u.ID,
		Email:          u.Email,
		Role:           u.Role,
		EmailConfirmed: u.IsConfirmed(),
		ConfirmedAt:    u.ConfirmedAt,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

// NormalizeEmail lower-cases and trims an email address. All storage and
// comparison happens on the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
