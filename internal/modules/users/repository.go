// Package users provides persistence and HTTP access for dashboard users.
package users

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/harborline/harborwatch/internal/domain"
)

const usersColumns = `id, email, name, created_at`

// Repository handles user database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new user repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "users").Logger(),
	}
}

// Create inserts a new user record
func (r *Repository) Create(u domain.User) (domain.User, error) {
	if u.Email == "" {
		return u, fmt.Errorf("failed to create user: email is required")
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}

	_, err := r.db.Exec(
		"INSERT INTO users (id, email, name, created_at) VALUES (?, ?, ?, ?)",
		u.ID,
		strings.ToLower(strings.TrimSpace(u.Email)),
		u.Name,
		u.CreatedAt.Unix(),
	)
	if err != nil {
		return u, fmt.Errorf("failed to create user: %w", err)
	}

	r.log.Info().Str("email", u.Email).Msg("User created")

	return u, nil
}

// GetByID retrieves a user by ID. Returns nil, nil when not found.
func (r *Repository) GetByID(id string) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRow("SELECT "+usersColumns+" FROM users WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return &u, nil
}

// GetAll retrieves every user. The risk engine fans escalation notifications
// out to this full list.
func (r *Repository) GetAll() ([]domain.User, error) {
	rows, err := r.db.Query("SELECT " + usersColumns + " FROM users ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user rows: %w", err)
	}

	return users, nil
}

// Delete removes a user (cascades to their notifications)
func (r *Repository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("user not found: %s", id)
	}

	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row scanner) (domain.User, error) {
	var u domain.User
	var createdAt int64

	if err := row.Scan(&u.ID, &u.Email, &u.Name, &createdAt); err != nil {
		return u, err
	}

	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	return u, nil
}
