// Package token provides session token issuance and verification.
// Tokens are self-contained HS256-signed JWTs carrying user identity
// and role; the server keeps no session state and revocation is not
// supported.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned for malformed tokens and signature
	// mismatches. Callers must not distinguish the two to clients.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when the token has expired.
	ErrExpiredToken = errors.New("token has expired")
	// ErrEmptyUserID is returned when user_id is empty.
	ErrEmptyUserID = errors.New("user_id cannot be empty")
)

// Claims represents the session token claims.
type Claims struct {
	UserID string `json:"id"`
	Role   string `json:"role"`

	jwt.RegisteredClaims
}

// Config holds configuration for token issuance.
type Config struct {
	Secret   string
	Issuer   string
	Lifetime time.Duration
}

// Service issues and verifies session tokens.
type Service struct {
	config Config
	now    func() time.Time
}

// Option configures the Service.
type Option func(*Service)

// WithClock injects a clock, used by tests to control expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a new token service.
func NewService(config Config, opts ...Option) *Service {
	s := &Service{
		config: config,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue creates a signed session token for the given user and role.
func (s *Service) Issue(userID, role string) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, ErrEmptyUserID
	}

	now := s.now()
	expiresAt := now.Add(s.config.Lifetime)

	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

// Verify validates the token signature and expiry and returns the claims.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	return Verify(tokenString, s.config.Secret, s.now)
}

// Verify validates a token against a secret and returns the claims.
func Verify(tokenString, secret string, now func() time.Time) (*Claims, error) {
	if now == nil {
		now = time.Now
	}

	tok, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithTimeFunc(now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
