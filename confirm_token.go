package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// ConfirmationClaims is the payload carried by email confirmation tokens.
// Short claim names keep the resulting URL compact.
type ConfirmationClaims struct {
	jwt.RegisteredClaims
	UID     int64  `json:"uid"`
	Email   string `json:"em"`
	RoleTag string `json:"r"`
	Version int    `json:"v"`
}

// ConfirmationCodec encodes and decodes stateless, signed, time-limited
// confirmation tokens. There is no server-side token record: validity is a
// function of signature, age, and the account's live token_version.
type ConfirmationCodec struct {
	signingKey []byte
	maxAge     time.Duration
	issuer     string
	logger     Logger
}

// NewConfirmationCodec creates a codec with its own signing secret, distinct
// from the access-token secret.
func NewConfirmationCodec(signingKey []byte, maxAge time.Duration) *ConfirmationCodec {
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	return &ConfirmationCodec{
		signingKey: signingKey,
		maxAge:     maxAge,
		logger:     defLogger{},
	}
}

// NewConfirmationCodecFromConfig builds the codec from a Config. The max age
// getter is expressed in hours.
func NewConfirmationCodecFromConfig(cfg Config) *ConfirmationCodec {
	return NewConfirmationCodec(
		[]byte(cfg.GetConfirmationSigningKey()),
		time.Duration(cfg.GetConfirmationTokenMaxAge())*time.Hour,
	).WithIssuer(cfg.GetIssuer())
}

func (c *ConfirmationCodec) WithLogger(logger Logger) *ConfirmationCodec {
	if logger != nil {
		c.logger = logger
	}
	return c
}

func (c *ConfirmationCodec) WithIssuer(issuer string) *ConfirmationCodec {
	c.issuer = issuer
	return c
}

// MaxAge returns the configured maximum token lifetime.
func (c *ConfirmationCodec) MaxAge() time.Duration {
	return c.maxAge
}

// Encode signs a confirmation payload for the given account snapshot. The
// token is URL-safe by construction.
func (c *ConfirmationCodec) Encode(userID int64, email, roleTag string, version int) (string, error) {
	now := time.Now()
	claims := &ConfirmationClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    c.issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.maxAge)),
		},
		UID:     userID,
		Email:   NormalizeEmail(email),
		RoleTag: roleTag,
		Version: version,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(c.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign confirmation token")
	}

	return signed, nil
}

// Decode parses and validates a confirmation token. Expired and malformed
// tokens both fail; the causes stay distinguishable in logs but the HTTP
// layer collapses them to a single user-facing outcome to avoid oracle
// leakage.
func (c *ConfirmationCodec) Decode(tokenString string) (*ConfirmationClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ConfirmationClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			c.logger.Error("confirmation codec encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.signingKey, nil
	}, jwt.WithExpirationRequired())

	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			c.logger.Info("confirmation token rejected", "cause", "expired")
			return nil, ErrTokenExpired
		}
		c.logger.Info("confirmation token rejected", "cause", "bad signature or malformed", "error", err)
		return nil, goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode).
			WithCode(goerrors.CodeUnauthorized)
	}

	claims, ok := token.Claims.(*ConfirmationClaims)
	if !ok || !token.Valid {
		c.logger.Error("confirmation codec could not decode claims")
		return nil, ErrTokenMalformed
	}

	return claims, nil
}
