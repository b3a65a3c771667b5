// Package nonce issues and verifies per-action form tokens.
//
// A nonce is an HS256 JWT carrying the action it was minted for. It is
// accepted only for that action and only until it expires.
package nonce

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalid is returned for any token that does not verify.
var ErrInvalid = errors.New("invalid nonce")

// Issuer mints and checks nonces with a shared secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type claims struct {
	jwt.RegisteredClaims
	Action string `json:"act"`
}

// NewIssuer returns an Issuer. now may be nil.
func NewIssuer(secret string, ttl time.Duration, now func() time.Time) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("nonce secret is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("nonce ttl must be positive")
	}
	if now == nil {
		now = time.Now
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: now}, nil
}

// Create returns a nonce valid for action.
func (i *Issuer) Create(action string) (string, error) {
	action = strings.TrimSpace(action)
	if action == "" {
		return "", fmt.Errorf("nonce action is required")
	}
	issued := i.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(i.ttl)),
		},
		Action: action,
	})
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign nonce: %w", err)
	}
	return signed, nil
}

// Verify checks that token was minted by this issuer for action and has not
// expired.
func (i *Issuer) Verify(token, action string) error {
	token = strings.TrimSpace(token)
	if token == "" || action == "" {
		return ErrInvalid
	}

	var parsed claims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if parsed.Action != action {
		return fmt.Errorf("%w: minted for %q", ErrInvalid, parsed.Action)
	}
	return nil
}
