// Package subscriber manages newsletter sign-ups and their persistence.
package subscriber

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Subscriber is one newsletter recipient.
type Subscriber struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// ErrNotFound is returned when a subscriber does not exist.
var ErrNotFound = errors.New("subscriber not found")

// Repository handles all subscriber database operations.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create inserts email, or returns the existing record when it is already subscribed.
func (r *Repository) Create(ctx context.Context, email string) (*Subscriber, error) {
	s := &Subscriber{}
	err := r.db.QueryRow(ctx,
		`INSERT INTO subscribers (email)
		 VALUES ($1)
		 ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		 RETURNING id, email, created_at`,
		email,
	).Scan(&s.ID, &s.Email, &s.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create subscriber: %w", err)
	}
	return s, nil
}

// List returns all subscribers, newest first.
func (r *Repository) List(ctx context.Context) ([]Subscriber, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, email, created_at FROM subscribers ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Subscriber, error) {
		var s Subscriber
		err := row.Scan(&s.ID, &s.Email, &s.CreatedAt)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan subscribers: %w", err)
	}
	return out, nil
}

// Delete removes the subscriber with the given UUID.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM subscribers WHERE id = $1`, id)
	if err != nil {
		if isInvalidText(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete subscriber: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// isInvalidText checks for invalid_text_representation (22P02), raised for malformed UUIDs.
func isInvalidText(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22P02"
}
