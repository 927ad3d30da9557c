package auth

import (
	"context"
	"database/sql"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// Users is the credential store contract. All mutations are single atomic
// writes so concurrent requests never require in-process locking.
type Users interface {
	Create(ctx context.Context, record *User) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	// BumpConfirmation sets confirmed_at (only if currently null) and
	// increments token_version, conditioned on token_version matching
	// expectedVersion. Reports whether the update applied.
	BumpConfirmation(ctx context.Context, id int64, expectedVersion int) (bool, error)
	// SetRole moves the account role from one value to another as a single
	// conditional update. Fails with ErrUserNotFound for unknown ids and
	// ErrRolePrecondition when the live role no longer matches from.
	SetRole(ctx context.Context, id int64, from, to UserRole) (*User, error)
	ListPendingAdmins(ctx context.Context) ([]*User, error)
}

type users struct {
	db *bun.DB
}

var _ Users = (*users)(nil)

// NewUsersRepository returns a bun-backed credential store.
func NewUsersRepository(db *bun.DB) Users {
	return &users{db: db}
}

func (a *users) Create(ctx context.Context, record *User) (*User, error) {
	prepareUserDefaults(record)

	_, err := a.db.NewInsert().
		Model(record).
		Returning("*").
		Exec(ctx)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken.WithMetadata(map[string]any{
				"email": record.Email,
			})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not create user")
	}

	return record, nil
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	record := &User{}

	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if goerrors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound.WithMetadata(map[string]any{
				"email": NormalizeEmail(email),
			})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user lookup by email failed")
	}

	return record, nil
}

func (a *users) GetByID(ctx context.Context, id int64) (*User, error) {
	record := &User{}

	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if goerrors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound.WithMetadata(map[string]any{
				"id": id,
			})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user lookup by id failed")
	}

	return record, nil
}

func (a *users) BumpConfirmation(ctx context.Context, id int64, expectedVersion int) (bool, error) {
	now := time.Now().UTC()

	// Single conditional update: the version guard makes a replayed or racing
	// confirmation a no-op instead of a double increment.
	res, err := a.db.NewUpdate().
		Model((*User)(nil)).
		Set("confirmed_at = COALESCE(confirmed_at, ?)", now).
		Set("token_version = token_version + 1").
		Set("updated_at = ?", now).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.token_version = ?", expectedVersion).
		Exec(ctx)

	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "confirmation update failed")
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "confirmation update failed")
	}

	return rows > 0, nil
}

func (a *users) SetRole(ctx context.Context, id int64, from, to UserRole) (*User, error) {
	record := &User{}
	now := time.Now().UTC()

	err := a.db.NewUpdate().
		Model(record).
		Set("user_role = ?", to).
		Set("updated_at = ?", now).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.user_role = ?", from).
		Returning("*").
		Scan(ctx)

	if err == nil {
		return record, nil
	}

	if !goerrors.Is(err, sql.ErrNoRows) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "role update failed")
	}

	// No row matched: either the id is unknown or the role moved underneath
	// us. Re-read to tell the two apart.
	if _, lookupErr := a.GetByID(ctx, id); lookupErr != nil {
		return nil, lookupErr
	}

	return nil, ErrRolePrecondition.WithMetadata(map[string]any{
		"id":   id,
		"from": from,
		"to":   to,
	})
}

func (a *users) ListPendingAdmins(ctx context.Context) ([]*User, error) {
	var records []*User

	err := a.db.NewSelect().
		Model(&records).
		Where("?TableAlias.user_role = ?", RoleAdminPending).
		Order("created_at ASC").
		Scan(ctx)

	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "pending admin listing failed")
	}

	return records, nil
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	record.Email = NormalizeEmail(record.Email)

	if record.Role == "" {
		record.Role = RoleMember
	}
}

// isUniqueViolation matches the duplicate-key errors surfaced by the sqlite
// and postgres drivers. Uniqueness is enforced at the store boundary, not by
// a racy existence pre-check.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "constraint failed: users.email")
}
