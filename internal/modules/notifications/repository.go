// Package notifications provides persistence and HTTP access for user notifications.
package notifications

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/harborline/harborwatch/internal/domain"
)

const notificationsColumns = `id, user_id, type, priority, title, message, entity_type, entity_id, metadata, is_read, read_at, created_at`

// Repository handles notification database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new notification repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "notifications").Logger(),
	}
}

// Create inserts a new notification record
func (r *Repository) Create(n domain.Notification) (domain.Notification, error) {
	if n.UserID == "" {
		return n, fmt.Errorf("failed to create notification: user id is required")
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Priority == "" {
		n.Priority = domain.PriorityNormal
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	metadata, err := marshalMetadata(n.Metadata)
	if err != nil {
		return n, fmt.Errorf("failed to create notification: %w", err)
	}

	query := `
		INSERT INTO notifications
		(id, user_id, type, priority, title, message, entity_type, entity_id, metadata, is_read, read_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		n.ID,
		n.UserID,
		string(n.Type),
		string(n.Priority),
		n.Title,
		n.Message,
		n.EntityType,
		n.EntityID,
		metadata,
		boolToInt(n.IsRead),
		nullUnix(n.ReadAt),
		n.CreatedAt.Unix(),
	)
	if err != nil {
		return n, fmt.Errorf("failed to create notification: %w", err)
	}

	return n, nil
}

// ListForUser retrieves a user's notifications, newest first.
// When unreadOnly is set, read notifications are filtered out.
func (r *Repository) ListForUser(userID string, unreadOnly bool) ([]domain.Notification, error) {
	query := "SELECT " + notificationsColumns + " FROM notifications WHERE user_id = ?"
	if unreadOnly {
		query += " AND is_read = 0"
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	return scanNotifications(rows)
}

// UnreadCount returns the number of unread notifications for a user
func (r *Repository) UnreadCount(userID string) (int, error) {
	var count int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = 0",
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead marks a single notification as read
func (r *Repository) MarkRead(id string) error {
	result, err := r.db.Exec(
		"UPDATE notifications SET is_read = 1, read_at = ? WHERE id = ?",
		time.Now().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check mark-read result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("notification not found: %s", id)
	}

	return nil
}

// MarkAllRead marks every unread notification for a user as read and returns
// how many rows were updated
func (r *Repository) MarkAllRead(userID string) (int, error) {
	result, err := r.db.Exec(
		"UPDATE notifications SET is_read = 1, read_at = ? WHERE user_id = ? AND is_read = 0",
		time.Now().Unix(), userID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark all notifications read: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check mark-all-read result: %w", err)
	}

	return int(affected), nil
}

// DismissRiskForContainer marks every unread engine-emitted notification for a
// container as read, across all users, and returns the number dismissed.
// Called when a container's risk de-escalates: stale alerts stop demanding
// attention. Only the risk notification types are touched so user-facing
// records from other flows survive.
func (r *Repository) DismissRiskForContainer(containerID string, newLevel domain.RiskLevel) (int, error) {
	placeholders := make([]string, len(domain.RiskNotificationTypes))
	args := []interface{}{time.Now().Unix(), domain.EntityTypeContainer, containerID}
	for i, t := range domain.RiskNotificationTypes {
		placeholders[i] = "?"
		args = append(args, string(t))
	}

	query := `
		UPDATE notifications SET is_read = 1, read_at = ?
		WHERE entity_type = ? AND entity_id = ? AND is_read = 0
		AND type IN (` + strings.Join(placeholders, ", ") + `)
	`

	result, err := r.db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to dismiss risk notifications: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check dismiss result: %w", err)
	}

	if affected > 0 {
		r.log.Debug().
			Str("container_id", containerID).
			Str("new_level", string(newLevel)).
			Int64("dismissed", affected).
			Msg("Dismissed risk notifications")
	}

	return int(affected), nil
}

// PurgeRead deletes read notifications older than the cutoff and returns how
// many rows were removed. Unread notifications are never purged regardless of
// age.
func (r *Repository) PurgeRead(olderThan time.Time) (int, error) {
	result, err := r.db.Exec(
		"DELETE FROM notifications WHERE is_read = 1 AND created_at < ?",
		olderThan.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to purge read notifications: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check purge result: %w", err)
	}

	return int(affected), nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanNotification(row scanner) (domain.Notification, error) {
	var n domain.Notification
	var notificationType, priority string
	var metadata string
	var isRead int
	var readAt sql.NullInt64
	var createdAt int64

	err := row.Scan(
		&n.ID, &n.UserID, &notificationType, &priority, &n.Title, &n.Message,
		&n.EntityType, &n.EntityID, &metadata, &isRead, &readAt, &createdAt,
	)
	if err != nil {
		return n, err
	}

	n.Type = domain.NotificationType(notificationType)
	n.Priority = domain.NotificationPriority(priority)
	n.IsRead = isRead != 0
	n.CreatedAt = time.Unix(createdAt, 0).UTC()
	if readAt.Valid {
		t := time.Unix(readAt.Int64, 0).UTC()
		n.ReadAt = &t
	}

	if metadata != "" && metadata != "{}" {
		if err := json.Unmarshal([]byte(metadata), &n.Metadata); err != nil {
			return n, fmt.Errorf("failed to parse metadata for notification %s: %w", n.ID, err)
		}
	}

	return n, nil
}

func scanNotifications(rows *sql.Rows) ([]domain.Notification, error) {
	notifications := []domain.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification row: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notification rows: %w", err)
	}
	return notifications, nil
}

func marshalMetadata(metadata map[string]interface{}) (string, error) {
	if metadata == nil {
		return "{}", nil
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("failed to encode metadata: %w", err)
	}
	return string(data), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullUnix(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Unix()
}
