// Package auth exchanges the shared admin secret for a bearer token.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/marketsite/api/internal/config"
)

const tokenTTL = 24 * time.Hour

// AdminSubject is the token subject for the single admin identity.
const AdminSubject = "admin"

// ErrInvalidCredentials is returned when the password does not match.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrLoginDisabled is returned when no admin password is configured.
var ErrLoginDisabled = errors.New("admin login disabled")

// Service contains the business logic for admin authentication.
type Service struct {
	cfg *config.Config
	now func() time.Time
}

// NewService creates a new auth Service.
func NewService(cfg *config.Config) *Service {
	return &Service{cfg: cfg, now: time.Now}
}

// Login checks password against the configured admin secret and issues a JWT.
func (s *Service) Login(password string) (string, time.Time, error) {
	if s.cfg.AdminPassword == "" {
		return "", time.Time{}, ErrLoginDisabled
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.AdminPassword)) != 1 {
		return "", time.Time{}, ErrInvalidCredentials
	}

	expiresAt := s.now().Add(tokenTTL)
	token, err := s.issueToken(expiresAt)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("issue token: %w", err)
	}
	return token, expiresAt, nil
}

// issueToken creates a signed JWT for the admin.
func (s *Service) issueToken(expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub":  AdminSubject,
		"role": "admin",
		"iat":  s.now().Unix(),
		"exp":  expiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}
