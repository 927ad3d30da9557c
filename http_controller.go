package auth

import (
	"context"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
)

// AuthController exposes the account lifecycle over JSON HTTP routes.
type AuthController struct {
	Logger         Logger
	Auther         *Auther
	Register       *RegisterUserHandler
	Confirm        *ConfirmEmailHandler
	Resend         *ResendConfirmationHandler
	StateMachine   RoleStateMachine
	Users          Users
	Guard          *Guard
	FrontendOrigin string
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithAuthenticator(auther *Auther) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

func WithRegisterHandler(handler *RegisterUserHandler) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Register = handler
		return c
	}
}

func WithConfirmHandler(handler *ConfirmEmailHandler) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Confirm = handler
		return c
	}
}

func WithResendHandler(handler *ResendConfirmationHandler) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Resend = handler
		return c
	}
}

func WithStateMachine(machine RoleStateMachine) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.StateMachine = machine
		return c
	}
}

func WithUsers(users Users) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Users = users
		return c
	}
}

func WithGuard(guard *Guard) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Guard = guard
		return c
	}
}

// WithFrontendOrigin sets the origin the confirmation endpoint redirects to.
func WithFrontendOrigin(origin string) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.FrontendOrigin = strings.TrimRight(origin, "/")
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	if c.Register == nil || c.Confirm == nil || c.Resend == nil {
		panic("Missing lifecycle handlers in auth controller...")
	}

	if c.StateMachine == nil {
		panic("Missing RoleStateMachine in auth controller...")
	}

	if c.Users == nil {
		panic("Missing Users store in auth controller...")
	}

	if c.Guard == nil {
		panic("Missing Guard in auth controller...")
	}

	return c
}

// RegisterRoutes mounts the public lifecycle routes and the admin review
// routes on the app.
func RegisterRoutes(app *fiber.App, opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(opts...)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", controller.RegisterPost)
	authGroup.Get("/confirm/:token", controller.ConfirmGet)
	authGroup.Post("/login", controller.LoginPost)
	authGroup.Post("/resend-confirmation", controller.ResendPost)
	authGroup.Get("/me", controller.Guard.RequireRole(), controller.MeGet)

	adminGroup := app.Group("/admin", controller.Guard.RequireRole(RoleAdmin))
	adminGroup.Get("/pending", controller.PendingGet)
	adminGroup.Post("/approve/:id", controller.ApprovePost)
	adminGroup.Post("/deny/:id", controller.DenyPost)

	return controller
}

func (a *AuthController) RegisterPost(c *fiber.Ctx) error {
	payload := new(RegisterUserMessage)
	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("register parse payload", "error", err)
		return writeError(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "Invalid request body").
			WithTextCode("BAD_REQUEST").
			WithCode(goerrors.CodeBadRequest))
	}

	result, err := a.Register.Execute(c.UserContext(), *payload)
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

// ConfirmGet lands the emailed link. Every outcome is a redirect back to the
// frontend login page; the query string tells it what banner to show.
func (a *AuthController) ConfirmGet(c *fiber.Ctx) error {
	status, err := a.Confirm.Execute(c.UserContext(), ConfirmEmailMessage{
		Token: c.Params("token"),
	})
	if err != nil {
		a.Logger.Error("confirmation store error", "error", err)
		return writeError(c, err)
	}

	if status == ConfirmationVerified {
		return c.Redirect(fmt.Sprintf("%s/login?verified=1", a.FrontendOrigin), fiber.StatusFound)
	}

	return c.Redirect(
		fmt.Sprintf("%s/login?verified=0&error=%s", a.FrontendOrigin, status),
		fiber.StatusFound,
	)
}

// LoginPayload is the login request body.
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// LoginResponse is the login success body.
type LoginResponse struct {
	AccessToken string     `json:"access_token"`
	User        PublicUser `json:"user"`
	Redirect    string     `json:"redirect"`
}

func (a *AuthController) LoginPost(c *fiber.Ctx) error {
	payload := new(LoginPayload)
	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("login parse payload", "error", err)
		return writeError(c, ErrMissingCredentials)
	}

	if err := payload.Validate(); err != nil {
		return writeError(c, ErrMissingCredentials)
	}

	result, err := a.Auther.Login(c.UserContext(), payload.Email, payload.Password)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(LoginResponse{
		AccessToken: result.Token,
		User:        result.User.Public(),
		Redirect:    result.Redirect,
	})
}

// ResendPayload is the resend-confirmation request body.
type ResendPayload struct {
	Email string `json:"email"`
}

func (a *AuthController) ResendPost(c *fiber.Ctx) error {
	payload := new(ResendPayload)
	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("resend parse payload", "error", err)
		return writeError(c, ErrMissingEmail)
	}

	if err := a.Resend.Execute(c.UserContext(), ResendConfirmationMessage{Email: payload.Email}); err != nil {
		return writeError(c, err)
	}

	// One body for every reachable outcome.
	return c.JSON(fiber.Map{
		"message": "If the account exists and is unconfirmed, a new confirmation email has been sent.",
	})
}

func (a *AuthController) MeGet(c *fiber.Ctx) error {
	user := a.Guard.CurrentUser(c)
	if user == nil {
		return writeError(c, ErrUnauthorized)
	}

	return c.JSON(fiber.Map{"user": user.Public()})
}

func (a *AuthController) PendingGet(c *fiber.Ctx) error {
	pending, err := a.Users.ListPendingAdmins(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}

	if len(pending) == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "No pending users",
		})
	}

	out := make([]PublicUser, 0, len(pending))
	for _, user := range pending {
		out = append(out, user.Public())
	}

	return c.JSON(fiber.Map{"pending": out})
}

func (a *AuthController) ApprovePost(c *fiber.Ctx) error {
	return a.reviewTransition(c, a.StateMachine.Approve)
}

func (a *AuthController) DenyPost(c *fiber.Ctx) error {
	return a.reviewTransition(c, a.StateMachine.Deny)
}

func (a *AuthController) reviewTransition(c *fiber.Ctx, apply func(ctx context.Context, actor ActorRef, id int64) (*User, error)) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return writeError(c, goerrors.New("Invalid user id", goerrors.CategoryBadInput).
			WithTextCode("BAD_REQUEST").
			WithCode(goerrors.CodeBadRequest))
	}

	actor := ActorRef{Type: "admin"}
	if admin := a.Guard.CurrentUser(c); admin != nil {
		actor.ID = admin.SubjectID()
	}

	user, err := apply(c.UserContext(), actor, int64(id))
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(user.Public())
}

// writeError renders any error as a JSON body with a machine-readable slug.
// Rich errors carry their own status code; everything else is a 500.
func writeError(c *fiber.Ctx, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
			WithTextCode("INTERNAL").
			WithCode(goerrors.CodeInternal)
	}

	status := richErr.Code
	if status == 0 {
		status = fiber.StatusInternalServerError
	}

	return c.Status(status).JSON(fiber.Map{
		"error":   errorSlug(richErr),
		"message": richErr.Message,
	})
}

func errorSlug(err *goerrors.Error) string {
	if err.TextCode != "" {
		return strings.ToLower(err.TextCode)
	}
	return "internal"
}
