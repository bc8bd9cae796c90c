package subscriber

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

// ErrInvalidEmail is returned for addresses that do not parse.
var ErrInvalidEmail = errors.New("invalid email address")

type store interface {
	Create(ctx context.Context, email string) (*Subscriber, error)
	List(ctx context.Context) ([]Subscriber, error)
	Delete(ctx context.Context, id string) error
}

// Service contains business logic for newsletter subscriptions.
type Service struct {
	repo store
}

// NewService creates a new subscriber Service.
func NewService(repo store) *Service {
	return &Service{repo: repo}
}

// Subscribe normalizes email and records it. Repeat sign-ups are idempotent.
func (s *Service) Subscribe(ctx context.Context, email string) (*Subscriber, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	sub, err := s.repo.Create(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	return sub, nil
}

// List returns every subscriber.
func (s *Service) List(ctx context.Context) ([]Subscriber, error) {
	return s.repo.List(ctx)
}

// Unsubscribe deletes a subscriber by id.
func (s *Service) Unsubscribe(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func normalizeEmail(email string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil || addr.Name != "" {
		return "", ErrInvalidEmail
	}
	return strings.ToLower(addr.Address), nil
}
