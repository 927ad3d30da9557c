package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// ActorRef identifies who/what triggered a transition.
type ActorRef struct {
	ID   string
	Type string
}

// RoleStateMachine defines the admin approval workflow over the three role
// states. Transitions are conditional writes; racing approvals cannot both
// win.
type RoleStateMachine interface {
	// Approve moves ADMIN_PENDING to ADMIN. Any other starting state is a
	// rejected no-op with a distinguishable error.
	Approve(ctx context.Context, actor ActorRef, id int64) (*User, error)
	// Deny moves ADMIN_PENDING back to MEMBER. Existing admins cannot be
	// denied through this edge.
	Deny(ctx context.Context, actor ActorRef, id int64) (*User, error)
}

// StateMachineOption customizes state machine construction.
type StateMachineOption func(*roleStateMachine)

// WithStateMachineClock injects a custom clock (useful for tests).
func WithStateMachineClock(clock func() time.Time) StateMachineOption {
	return func(sm *roleStateMachine) {
		if clock != nil {
			sm.now = clock
		}
	}
}

// WithStateMachineActivitySink sets the ActivitySink used to publish role
// change events.
func WithStateMachineActivitySink(sink ActivitySink) StateMachineOption {
	return func(sm *roleStateMachine) {
		sm.activitySink = normalizeActivitySink(sink)
	}
}

// WithStateMachineLogger overrides the logger used for sink failures.
func WithStateMachineLogger(logger Logger) StateMachineOption {
	return func(sm *roleStateMachine) {
		if logger != nil {
			sm.logger = logger
		}
	}
}

// NewRoleStateMachine returns the default implementation backed by the
// provided credential store.
func NewRoleStateMachine(users Users, opts ...StateMachineOption) RoleStateMachine {
	sm := &roleStateMachine{
		users:        users,
		now:          time.Now,
		activitySink: noopActivitySink{},
		logger:       defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sm)
		}
	}

	return sm
}

type roleStateMachine struct {
	users        Users
	now          func() time.Time
	activitySink ActivitySink
	logger       Logger
}

func (sm *roleStateMachine) Approve(ctx context.Context, actor ActorRef, id int64) (*User, error) {
	return sm.transition(ctx, actor, id, RoleAdmin, ErrAlreadyAdmin)
}

func (sm *roleStateMachine) Deny(ctx context.Context, actor ActorRef, id int64) (*User, error) {
	return sm.transition(ctx, actor, id, RoleMember, ErrCannotDenyAdmin)
}

// transition applies the single allowed edge out of ADMIN_PENDING. adminErr
// is the rejection surfaced when the account already holds ADMIN.
func (sm *roleStateMachine) transition(ctx context.Context, actor ActorRef, id int64, target UserRole, adminErr *goerrors.Error) (*User, error) {
	user, err := sm.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch user.Role {
	case RoleAdminPending:
		// fall through to the conditional update below
	case RoleAdmin:
		return nil, adminErr.WithMetadata(map[string]any{"id": id})
	default:
		return nil, ErrNotAnApplicant.WithMetadata(map[string]any{
			"id":   id,
			"role": user.Role,
		})
	}

	updated, err := sm.users.SetRole(ctx, id, RoleAdminPending, target)
	if err != nil {
		// A concurrent approve/deny won the conditional write. Re-read and
		// classify against the state that actually stuck.
		if goerrors.Is(err, ErrRolePrecondition) {
			return nil, sm.classifyLostRace(ctx, id, adminErr)
		}
		return nil, err
	}

	sm.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventUserRoleChanged,
		Actor:     actor,
		UserID:    id,
		FromRole:  RoleAdminPending,
		ToRole:    target,
	})

	return updated, nil
}

func (sm *roleStateMachine) classifyLostRace(ctx context.Context, id int64, adminErr *goerrors.Error) error {
	user, err := sm.users.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if user.Role == RoleAdmin {
		return adminErr.WithMetadata(map[string]any{"id": id})
	}

	return ErrNotAnApplicant.WithMetadata(map[string]any{
		"id":   id,
		"role": user.Role,
	})
}

func (sm *roleStateMachine) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.Actor == (ActorRef{}) {
		event.Actor = ActorRef{Type: "system"}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = sm.now()
	}

	sink := normalizeActivitySink(sm.activitySink)
	if err := sink.Record(ctx, event); err != nil {
		sm.logger.Warn("state machine activity sink error: %v", err)
	}
}
