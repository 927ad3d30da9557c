package main

import (
	"context"
	"database/sql"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/gofiber/fiber/v2"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	auth "github.com/goliatone/go-volunteer-auth"
)

// Config is sourced from the environment. It satisfies auth.Config so the
// same struct feeds every collaborator.
type Config struct {
	Addr                    string   `env:"ADDR" envDefault:":8080"`
	DatabaseDSN             string   `env:"DATABASE_DSN" envDefault:"file:volunteer.db?cache=shared&_pragma=foreign_keys(1)"`
	SigningKey              string   `env:"JWT_SIGNING_KEY,required"`
	ConfirmationSigningKey  string   `env:"CONFIRMATION_SIGNING_KEY,required"`
	TokenExpiration         int      `env:"TOKEN_EXPIRATION_HOURS" envDefault:"1"`
	ConfirmationTokenMaxAge int      `env:"CONFIRMATION_MAX_AGE_HOURS" envDefault:"24"`
	Issuer                  string   `env:"JWT_ISSUER" envDefault:"volunteer-auth"`
	Audience                []string `env:"JWT_AUDIENCE" envSeparator:"," envDefault:"volunteer-app"`
	BaseURL                 string   `env:"BASE_URL" envDefault:"http://localhost:8080"`
	FrontendOrigin          string   `env:"FRONTEND_ORIGIN" envDefault:"http://localhost:3000"`
	SMTPAddr                string   `env:"SMTP_ADDR"`
	SMTPFrom                string   `env:"SMTP_FROM" envDefault:"no-reply@localhost"`
}

func (c Config) GetSigningKey() string             { return c.SigningKey }
func (c Config) GetConfirmationSigningKey() string { return c.ConfirmationSigningKey }
func (c Config) GetTokenExpiration() int           { return c.TokenExpiration }
func (c Config) GetConfirmationTokenMaxAge() int   { return c.ConfirmationTokenMaxAge }
func (c Config) GetIssuer() string                 { return c.Issuer }
func (c Config) GetAudience() []string             { return c.Audience }
func (c Config) GetBaseURL() string                { return c.BaseURL }
func (c Config) GetFrontendOrigin() string         { return c.FrontendOrigin }

func main() {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())
	defer db.Close()

	ctx := context.Background()
	if err := runMigrations(ctx, db); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	users := auth.NewUsersRepository(db)
	codec := auth.NewConfirmationCodecFromConfig(cfg)
	tokens := auth.NewTokenServiceFromConfig(cfg)

	var mailer auth.Mailer
	if cfg.SMTPAddr != "" {
		mailer = auth.NewSMTPMailer(cfg.SMTPAddr, cfg.SMTPFrom, nil)
	} else {
		mailer = auth.NewConsoleMailer()
	}

	auther := auth.NewAuthenticator(users, tokens)
	guard := auth.NewGuard(tokens, users)

	app := fiber.New(fiber.Config{
		AppName:      "volunteer-auth",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	auth.RegisterRoutes(app,
		auth.WithAuthenticator(auther),
		auth.WithRegisterHandler(auth.NewRegisterUserHandler(users, codec, mailer, cfg.GetBaseURL())),
		auth.WithConfirmHandler(auth.NewConfirmEmailHandler(users, codec)),
		auth.WithResendHandler(auth.NewResendConfirmationHandler(users, codec, mailer, cfg.GetBaseURL())),
		auth.WithStateMachine(auth.NewRoleStateMachine(users)),
		auth.WithUsers(users),
		auth.WithGuard(guard),
		auth.WithFrontendOrigin(cfg.GetFrontendOrigin()),
	)

	go func() {
		if err := app.Listen(cfg.Addr); err != nil {
			log.Fatalf("server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

// runMigrations applies the embedded up migrations in filename order. The
// statements are idempotent so re-running on boot is safe.
func runMigrations(ctx context.Context, db *bun.DB) error {
	migrations := auth.GetMigrationsFS()

	var files []string
	err := fs.WalkDir(migrations, "data/sql/migrations", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".up.sql") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	sort.Strings(files)

	for _, file := range files {
		stmt, err := fs.ReadFile(migrations, file)
		if err != nil {
			return err
		}
		if _, err := db.ExecContext(ctx, string(stmt)); err != nil {
			return err
		}
	}

	return nil
}
