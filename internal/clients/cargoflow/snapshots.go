package cargoflow

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// SnapshotRepository persists the last-seen tracking payload per container in
// the cache database. The sync service compares incoming payloads against the
// stored snapshot and skips containers the provider hasn't actually moved.
// Payloads are stored msgpack-encoded - compact and stable for byte-equality
// comparison.
type SnapshotRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSnapshotRepository creates a snapshot repository on the cache database
func NewSnapshotRepository(db *sql.DB, log zerolog.Logger) *SnapshotRepository {
	return &SnapshotRepository{
		db:  db,
		log: log.With().Str("repo", "api_snapshots").Logger(),
	}
}

// IsUnchanged reports whether the payload is byte-identical to the stored
// snapshot for this key. A missing snapshot counts as changed.
func (r *SnapshotRepository) IsUnchanged(key string, payload *TrackingPayload) (bool, error) {
	encoded, err := msgpack.Marshal(payload)
	if err != nil {
		return false, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	var stored []byte
	err = r.db.QueryRow(
		"SELECT payload FROM api_snapshots WHERE snapshot_key = ?", key,
	).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read snapshot: %w", err)
	}

	return bytes.Equal(stored, encoded), nil
}

// Save stores the payload as the new snapshot for this key
func (r *SnapshotRepository) Save(key string, payload *TrackingPayload) error {
	encoded, err := msgpack.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO api_snapshots (snapshot_key, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(snapshot_key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at
	`, key, encoded, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	return nil
}

// Load decodes the stored snapshot for a key. Returns nil, nil when absent.
func (r *SnapshotRepository) Load(key string) (*TrackingPayload, error) {
	var stored []byte
	err := r.db.QueryRow(
		"SELECT payload FROM api_snapshots WHERE snapshot_key = ?", key,
	).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var payload TrackingPayload
	if err := msgpack.Unmarshal(stored, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	return &payload, nil
}

// Prune removes snapshots not updated since the cutoff, returning how many
// rows were deleted. Keeps the cache database from accumulating snapshots of
// long-delivered containers.
func (r *SnapshotRepository) Prune(olderThan time.Time) (int, error) {
	result, err := r.db.Exec("DELETE FROM api_snapshots WHERE updated_at < ?", olderThan.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check prune result: %w", err)
	}

	return int(affected), nil
}
