// Package containers provides persistence and HTTP access for tracked containers.
package containers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/harborline/harborwatch/internal/domain"
)

// containersColumns is the list of columns for the containers table.
// Used to avoid SELECT * which can break when the schema changes.
// Column order must match scanContainer().
const containersColumns = `id, container_number, bill_of_lading, carrier, origin, destination, vessel_name, terminal, rail_carrier, status, eta, last_free_day, hold_types, risk_level, risk_reason, created_at, updated_at`

// Repository handles container database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new container repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "containers").Logger(),
	}
}

// Create inserts a new container record. Missing ID and timestamps are
// assigned; risk fields start empty (the engine owns them).
func (r *Repository) Create(c domain.Container) (domain.Container, error) {
	if c.ContainerNumber == "" {
		return c, fmt.Errorf("failed to create container: container number is required")
	}
	if c.Status == "" {
		c.Status = domain.StatusBookingConfirmed
	}
	if !c.Status.IsValid() {
		return c, fmt.Errorf("failed to create container: invalid status %q", c.Status)
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	now := time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = now
	}

	holdTypes, err := marshalHoldTypes(c.HoldTypes)
	if err != nil {
		return c, fmt.Errorf("failed to create container: %w", err)
	}

	query := `
		INSERT INTO containers
		(id, container_number, bill_of_lading, carrier, origin, destination,
		 vessel_name, terminal, rail_carrier, status, eta, last_free_day,
		 hold_types, risk_level, risk_reason, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		c.ID,
		strings.ToUpper(strings.TrimSpace(c.ContainerNumber)),
		nullString(c.BillOfLading),
		nullString(c.Carrier),
		nullString(c.Origin),
		nullString(c.Destination),
		nullString(c.VesselName),
		nullString(c.Terminal),
		nullString(c.RailCarrier),
		string(c.Status),
		nullUnix(c.ETA),
		nullUnix(c.LastFreeDay),
		holdTypes,
		nullString(string(c.RiskLevel)),
		nullString(c.RiskReason),
		c.CreatedAt.Unix(),
		c.UpdatedAt.Unix(),
	)
	if err != nil {
		return c, fmt.Errorf("failed to create container: %w", err)
	}

	r.log.Info().
		Str("container_number", c.ContainerNumber).
		Str("status", string(c.Status)).
		Msg("Container created")

	return c, nil
}

// GetByID retrieves a container by ID. Returns nil, nil when not found.
func (r *Repository) GetByID(id string) (*domain.Container, error) {
	query := "SELECT " + containersColumns + " FROM containers WHERE id = ?"

	c, err := scanContainer(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get container by id: %w", err)
	}

	return &c, nil
}

// GetByNumber retrieves a container by its container number. Returns nil, nil
// when not found.
func (r *Repository) GetByNumber(number string) (*domain.Container, error) {
	query := "SELECT " + containersColumns + " FROM containers WHERE container_number = ?"

	c, err := scanContainer(r.db.QueryRow(query, strings.ToUpper(strings.TrimSpace(number))))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get container by number: %w", err)
	}

	return &c, nil
}

// List retrieves all containers, most recently created first
func (r *Repository) List() ([]domain.Container, error) {
	query := "SELECT " + containersColumns + " FROM containers ORDER BY created_at DESC"

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}
	defer rows.Close()

	return scanContainers(rows)
}

// GetAllActive retrieves every container whose status is in the active
// assessment set. The filter deliberately excludes unloaded, gate-out,
// delivered and delayed containers.
func (r *Repository) GetAllActive() ([]domain.Container, error) {
	placeholders := make([]string, len(domain.ActiveStatuses))
	args := make([]interface{}, len(domain.ActiveStatuses))
	for i, status := range domain.ActiveStatuses {
		placeholders[i] = "?"
		args[i] = string(status)
	}

	query := "SELECT " + containersColumns + " FROM containers WHERE status IN (" +
		strings.Join(placeholders, ", ") + ") ORDER BY container_number"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get active containers: %w", err)
	}
	defer rows.Close()

	return scanContainers(rows)
}

// Update writes the sync-owned and user-editable fields of a container.
// Risk fields are untouched - those belong to UpdateRisk.
func (r *Repository) Update(c domain.Container) error {
	if !c.Status.IsValid() {
		return fmt.Errorf("failed to update container: invalid status %q", c.Status)
	}

	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now()
	}

	holdTypes, err := marshalHoldTypes(c.HoldTypes)
	if err != nil {
		return fmt.Errorf("failed to update container: %w", err)
	}

	query := `
		UPDATE containers
		SET bill_of_lading = ?, carrier = ?, origin = ?, destination = ?,
		    vessel_name = ?, terminal = ?, rail_carrier = ?, status = ?,
		    eta = ?, last_free_day = ?, hold_types = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query,
		nullString(c.BillOfLading),
		nullString(c.Carrier),
		nullString(c.Origin),
		nullString(c.Destination),
		nullString(c.VesselName),
		nullString(c.Terminal),
		nullString(c.RailCarrier),
		string(c.Status),
		nullUnix(c.ETA),
		nullUnix(c.LastFreeDay),
		holdTypes,
		c.UpdatedAt.Unix(),
		c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update container: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("container not found: %s", c.ID)
	}

	return nil
}

// UpdateRisk writes the engine-owned derived fields. It intentionally does
// NOT touch updated_at: that timestamp records the last external tracking
// update and feeds the stale-tracking rule, so an assessment write must not
// refresh it.
func (r *Repository) UpdateRisk(containerID string, level domain.RiskLevel, reason string) error {
	query := "UPDATE containers SET risk_level = ?, risk_reason = ? WHERE id = ?"

	result, err := r.db.Exec(query, nullString(string(level)), nullString(reason), containerID)
	if err != nil {
		return fmt.Errorf("failed to update container risk: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check risk update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("container not found: %s", containerID)
	}

	return nil
}

// CountByRiskLevel returns how many containers sit in each risk bucket.
// Containers never assessed (NULL risk_level) are reported under "unknown".
func (r *Repository) CountByRiskLevel() (map[string]int, error) {
	rows, err := r.db.Query(
		"SELECT COALESCE(risk_level, 'unknown'), COUNT(*) FROM containers GROUP BY risk_level",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count containers by risk level: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var level string
		var count int
		if err := rows.Scan(&level, &count); err != nil {
			return nil, fmt.Errorf("failed to scan risk level count: %w", err)
		}
		counts[level] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate risk level counts: %w", err)
	}

	return counts, nil
}

// Delete removes a container (cascades to its exceptions)
func (r *Repository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM containers WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete container: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("container not found: %s", id)
	}

	return nil
}

// scanner abstracts sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanContainer(row scanner) (domain.Container, error) {
	var c domain.Container
	var billOfLading, carrier, origin, destination sql.NullString
	var vesselName, terminal, railCarrier sql.NullString
	var status string
	var eta, lastFreeDay sql.NullInt64
	var holdTypes string
	var riskLevel, riskReason sql.NullString
	var createdAt, updatedAt int64

	err := row.Scan(
		&c.ID, &c.ContainerNumber, &billOfLading, &carrier, &origin, &destination,
		&vesselName, &terminal, &railCarrier, &status, &eta, &lastFreeDay,
		&holdTypes, &riskLevel, &riskReason, &createdAt, &updatedAt,
	)
	if err != nil {
		return c, err
	}

	c.BillOfLading = billOfLading.String
	c.Carrier = carrier.String
	c.Origin = origin.String
	c.Destination = destination.String
	c.VesselName = vesselName.String
	c.Terminal = terminal.String
	c.RailCarrier = railCarrier.String
	c.Status = domain.ContainerStatus(status)
	c.ETA = timeFromNull(eta)
	c.LastFreeDay = timeFromNull(lastFreeDay)
	c.RiskLevel = domain.RiskLevel(riskLevel.String)
	c.RiskReason = riskReason.String
	c.CreatedAt = time.Unix(createdAt, 0).UTC()
	c.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	c.HoldTypes = []string{}
	if holdTypes != "" {
		if err := json.Unmarshal([]byte(holdTypes), &c.HoldTypes); err != nil {
			return c, fmt.Errorf("failed to parse hold_types for container %s: %w", c.ID, err)
		}
	}

	return c, nil
}

func scanContainers(rows *sql.Rows) ([]domain.Container, error) {
	containers := []domain.Container{}
	for rows.Next() {
		c, err := scanContainer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan container row: %w", err)
		}
		containers = append(containers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate container rows: %w", err)
	}
	return containers, nil
}

func marshalHoldTypes(holdTypes []string) (string, error) {
	if holdTypes == nil {
		holdTypes = []string{}
	}
	data, err := json.Marshal(holdTypes)
	if err != nil {
		return "", fmt.Errorf("failed to encode hold_types: %w", err)
	}
	return string(data), nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullUnix(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Unix()
}

func timeFromNull(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}
