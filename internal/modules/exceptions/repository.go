// Package exceptions provides persistence and HTTP access for operational exceptions.
package exceptions

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/harborline/harborwatch/internal/domain"
)

const exceptionsColumns = `id, container_id, category, type, title, description, created_at`

// Repository handles exception database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new exception repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "exceptions").Logger(),
	}
}

// Create inserts a new exception record
func (r *Repository) Create(e domain.Exception) (domain.Exception, error) {
	if e.ContainerID == "" {
		return e, fmt.Errorf("failed to create exception: container id is required")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Category == "" {
		e.Category = domain.CategoryManual
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO exceptions (id, container_id, category, type, title, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		e.ID,
		e.ContainerID,
		string(e.Category),
		string(e.Type),
		e.Title,
		e.Description,
		e.CreatedAt.Unix(),
	)
	if err != nil {
		return e, fmt.Errorf("failed to create exception: %w", err)
	}

	r.log.Debug().
		Str("container_id", e.ContainerID).
		Str("type", string(e.Type)).
		Msg("Exception created")

	return e, nil
}

// DeleteRiskAlerts removes every engine-owned risk-alert exception for a
// container. Manual exceptions are left alone. Used by the engine's
// delete-then-insert dedup so a container carries at most one live risk alert.
func (r *Repository) DeleteRiskAlerts(containerID string) error {
	query := "DELETE FROM exceptions WHERE container_id = ? AND category = ?"

	_, err := r.db.Exec(query, containerID, string(domain.CategoryRiskAlert))
	if err != nil {
		return fmt.Errorf("failed to delete risk alerts: %w", err)
	}

	return nil
}

// GetByID retrieves an exception by ID. Returns nil, nil when not found.
func (r *Repository) GetByID(id string) (*domain.Exception, error) {
	query := "SELECT " + exceptionsColumns + " FROM exceptions WHERE id = ?"

	e, err := scanException(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get exception by id: %w", err)
	}

	return &e, nil
}

// List retrieves all exceptions, newest first
func (r *Repository) List() ([]domain.Exception, error) {
	query := "SELECT " + exceptionsColumns + " FROM exceptions ORDER BY created_at DESC"

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list exceptions: %w", err)
	}
	defer rows.Close()

	return scanExceptions(rows)
}

// ListByContainer retrieves all exceptions for one container, newest first
func (r *Repository) ListByContainer(containerID string) ([]domain.Exception, error) {
	query := "SELECT " + exceptionsColumns + " FROM exceptions WHERE container_id = ? ORDER BY created_at DESC"

	rows, err := r.db.Query(query, containerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list exceptions for container: %w", err)
	}
	defer rows.Close()

	return scanExceptions(rows)
}

// Delete removes a single exception by ID
func (r *Repository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM exceptions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete exception: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("exception not found: %s", id)
	}

	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanException(row scanner) (domain.Exception, error) {
	var e domain.Exception
	var category, exceptionType string
	var createdAt int64

	err := row.Scan(&e.ID, &e.ContainerID, &category, &exceptionType, &e.Title, &e.Description, &createdAt)
	if err != nil {
		return e, err
	}

	e.Category = domain.ExceptionCategory(category)
	e.Type = domain.ExceptionType(exceptionType)
	e.CreatedAt = time.Unix(createdAt, 0).UTC()

	return e, nil
}

func scanExceptions(rows *sql.Rows) ([]domain.Exception, error) {
	exceptions := []domain.Exception{}
	for rows.Next() {
		e, err := scanException(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan exception row: %w", err)
		}
		exceptions = append(exceptions, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate exception rows: %w", err)
	}
	return exceptions, nil
}
