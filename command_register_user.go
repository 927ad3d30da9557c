package auth

import (
	"context"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
)

// RegisterUserMessage is the registration command payload. Role carries the
// requested role tag, not a stored role: member or admin.
type RegisterUserMessage struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// Validate will run validation rules
func (e RegisterUserMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, is.Email),
		validation.Field(&e.Password, validation.Required),
		validation.Field(&e.Role, validation.Required, validation.In(RoleTagMember, RoleTagAdmin)),
	)
}

// RegistrationResult reports the created account id and the role tag the
// request resolved to.
type RegistrationResult struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
}

// RegisterUserHandler creates the credential record and dispatches the
// confirmation email.
type RegisterUserHandler struct {
	users        Users
	codec        *ConfirmationCodec
	mailer       Mailer
	baseURL      string
	logger       Logger
	activitySink ActivitySink
}

// NewRegisterUserHandler wires the registration workflow. baseURL is the
// externally reachable address used to build confirmation links.
func NewRegisterUserHandler(users Users, codec *ConfirmationCodec, mailer Mailer, baseURL string) *RegisterUserHandler {
	return &RegisterUserHandler{
		users:        users,
		codec:        codec,
		mailer:       mailer,
		baseURL:      baseURL,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}
}

func (h *RegisterUserHandler) WithLogger(logger Logger) *RegisterUserHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RegisterUserHandler) WithActivitySink(sink ActivitySink) *RegisterUserHandler {
	h.activitySink = normalizeActivitySink(sink)
	return h
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) (*RegistrationResult, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) (*RegistrationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	event.Email = NormalizeEmail(event.Email)
	if event.Role == "" {
		event.Role = RoleTagMember
	}

	role, ok := ParseRoleTag(event.Role)
	if !ok {
		return nil, ErrInvalidRole.WithMetadata(map[string]any{"role": event.Role})
	}

	if err := event.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "email and password are required").
			WithTextCode("MISSING_FIELDS").
			WithCode(goerrors.CodeBadRequest)
	}

	hash, err := HashPassword(event.Password)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	user := &User{
		Email:        event.Email,
		PasswordHash: hash,
		Role:         role,
	}

	// Uniqueness is the store's job: a duplicate surfaces as ErrEmailTaken
	// from the unique constraint, never from an existence pre-check.
	if user, err = h.users.Create(ctx, user); err != nil {
		return nil, err
	}

	// Best-effort dispatch. A notification-channel outage must not block
	// account creation.
	if err := sendConfirmationEmail(ctx, h.codec, h.mailer, h.baseURL, user, event.Role); err != nil {
		h.logger.Error("failed to dispatch confirmation email", "user_id", user.ID, "error", err)
	}

	h.record(ctx, ActivityEvent{
		EventType: ActivityEventUserRegistered,
		Actor:     ActorRef{ID: user.SubjectID(), Type: "user"},
		UserID:    user.ID,
		ToRole:    user.Role,
		Metadata:  map[string]any{"email": user.Email},
	})

	return &RegistrationResult{
		UserID: user.ID,
		Role:   event.Role,
	}, nil
}

func (h *RegisterUserHandler) record(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	if err := normalizeActivitySink(h.activitySink).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink record error: %v", err)
	}
}

// sendConfirmationEmail encodes a confirmation token at the account's
// current token version and hands the link to the mail collaborator.
func sendConfirmationEmail(ctx context.Context, codec *ConfirmationCodec, mailer Mailer, baseURL string, user *User, roleTag string) error {
	token, err := codec.Encode(user.ID, user.Email, roleTag, user.TokenVersion)
	if err != nil {
		return err
	}

	confirmURL := fmt.Sprintf("%s/auth/confirm/%s", baseURL, token)
	subject := "Confirm your account"
	body := fmt.Sprintf(
		"Please confirm your email by clicking the link: %s\nIf you did not create an account, you can ignore this email.",
		confirmURL,
	)

	return mailer.Send(ctx, user.Email, subject, body)
}
