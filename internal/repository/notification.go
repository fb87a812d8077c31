package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/attarco/checkout/internal/domain/notification"
)

const (
	insertNotificationSQL = `INSERT INTO notifications (admin_id, message)
		VALUES ($1, $2)
		RETURNING id, admin_id, message, is_read, created_at`

	listNotificationsSQL = `SELECT id, admin_id, message, is_read, created_at
		FROM notifications
		WHERE admin_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`

	markAllReadSQL = `UPDATE notifications SET is_read = TRUE
		WHERE admin_id = $1 AND is_read = FALSE`

	markOneReadSQL = `UPDATE notifications SET is_read = TRUE
		WHERE id = $1 AND admin_id = $2`
)

var _ notification.Repository = (*NotificationRepository)(nil)

// NotificationRepository implements notification.Repository on PostgreSQL.
type NotificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository returns a NotificationRepository using the pool.
func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

// Create persists one notification row for the admin.
func (r *NotificationRepository) Create(ctx context.Context, adminID, message string) (*notification.Notification, error) {
	rows, err := r.pool.Query(ctx, insertNotificationSQL, adminID, message)
	if err != nil {
		return nil, errors.Wrapf(err, "create notification for admin %q", adminID)
	}

	n, err := pgx.CollectExactlyOneRow(rows, scanNotification)
	if err != nil {
		return nil, errors.Wrapf(err, "create notification for admin %q", adminID)
	}
	return &n, nil
}

// ListByAdmin returns the admin's most recent notifications, newest first.
func (r *NotificationRepository) ListByAdmin(ctx context.Context, adminID string, limit int) ([]notification.Notification, error) {
	rows, err := r.pool.Query(ctx, listNotificationsSQL, adminID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list notifications")
	}

	out, err := pgx.CollectRows(rows, scanNotification)
	if err != nil {
		return nil, errors.Wrap(err, "scan notifications")
	}
	return out, nil
}

// MarkAllRead marks every unread notification for the admin. Idempotent:
// running it again affects zero rows.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, adminID string) error {
	if _, err := r.pool.Exec(ctx, markAllReadSQL, adminID); err != nil {
		return errors.Wrap(err, "mark notifications read")
	}
	return nil
}

// MarkRead marks one notification, enforcing ownership. A repeat call on an
// already-read row succeeds (the UPDATE still matches it).
func (r *NotificationRepository) MarkRead(ctx context.Context, adminID string, id int64) error {
	tag, err := r.pool.Exec(ctx, markOneReadSQL, id, adminID)
	if err != nil {
		return errors.Wrapf(err, "mark notification %d read", id)
	}
	if tag.RowsAffected() == 0 {
		return notification.ErrNotFound
	}
	return nil
}

func scanNotification(row pgx.CollectableRow) (notification.Notification, error) {
	var n notification.Notification
	err := row.Scan(&n.ID, &n.AdminID, &n.Message, &n.Read, &n.CreatedAt)
	return n, err
}
