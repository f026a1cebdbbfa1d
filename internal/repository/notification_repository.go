package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/health-records-service/internal/domain"
)

// NotificationRepository defines persistence access for notifications.
type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) error
	GetByID(ctx context.Context, id int64) (*domain.Notification, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Notification, error)
	ListUnreadByUser(ctx context.Context, userID int64) ([]domain.Notification, error)
	CountUnread(ctx context.Context, userID int64) (int64, error)
	MarkRead(ctx context.Context, id int64) error
	MarkAllRead(ctx context.Context, userID int64) error
	// DeleteByAppointment removes every notification referencing the
	// appointment and returns the owning user ids of the deleted rows so
	// callers can invalidate their cached unread counts.
	DeleteByAppointment(ctx context.Context, appointmentID int64) ([]int64, error)
}

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository returns a Postgres-backed implementation.
func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{pool: pool}
}

const notificationColumns = `id, user_id, title, message, type, is_read, appointment_id, created_at`

func scanNotification(row pgx.Row, n *domain.Notification) error {
	return row.Scan(
		&n.ID,
		&n.UserID,
		&n.Title,
		&n.Message,
		&n.Type,
		&n.Read,
		&n.AppointmentID,
		&n.CreatedAt,
	)
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	const query = `
        INSERT INTO notifications (user_id, title, message, type, is_read, appointment_id)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at`

	return r.pool.QueryRow(ctx, query,
		n.UserID,
		n.Title,
		n.Message,
		n.Type,
		n.Read,
		n.AppointmentID,
	).Scan(&n.ID, &n.CreatedAt)
}

func (r *notificationRepository) GetByID(ctx context.Context, id int64) (*domain.Notification, error) {
	var n domain.Notification
	if err := scanNotification(r.pool.QueryRow(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id=$1`, id), &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Notification, error) {
	return r.query(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE user_id=$1 ORDER BY created_at DESC`, userID)
}

func (r *notificationRepository) ListUnreadByUser(ctx context.Context, userID int64) ([]domain.Notification, error) {
	return r.query(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE user_id=$1 AND is_read=false ORDER BY created_at DESC`, userID)
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id=$1 AND is_read=false`, userID).Scan(&count)
	return count, err
}

func (r *notificationRepository) MarkRead(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE notifications SET is_read=true WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE notifications SET is_read=true WHERE user_id=$1 AND is_read=false`, userID)
	return err
}

func (r *notificationRepository) DeleteByAppointment(ctx context.Context, appointmentID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `DELETE FROM notifications WHERE appointment_id=$1 RETURNING user_id`, appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	userIDs := []int64{}
	for rows.Next() {
		var userID int64
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		userIDs = append(userIDs, userID)
	}
	return userIDs, rows.Err()
}

func (r *notificationRepository) query(ctx context.Context, sql string, args ...any) ([]domain.Notification, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := []domain.Notification{}
	for rows.Next() {
		var n domain.Notification
		if err := scanNotification(rows, &n); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}
