package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"shopsphere/internal/models"
)

type notificationRepo struct {
	db DBTX
}

func NewNotificationRepository(db DBTX) NotificationRepository {
	return &notificationRepo{db: db}
}

const notificationColumns = `id, user_id, type, title, message, link, is_read, created_at`

func scanNotification(row pgx.Row, n *models.Notification) error {
	return row.Scan(
		&n.ID,
		&n.UserID,
		&n.Type,
		&n.Title,
		&n.Message,
		&n.Link,
		&n.IsRead,
		&n.CreatedAt,
	)
}

func (r *notificationRepo) Create(ctx context.Context, n *models.Notification) error {
	if n.UserID <= 0 {
		return fmt.Errorf("%w: user ID cannot be empty", ErrInvalidInput)
	}
	if strings.TrimSpace(n.Title) == "" {
		return fmt.Errorf("%w: notification title required", ErrInvalidInput)
	}
	if n.Type == "" {
		n.Type = models.NotificationSystem
	}
	if !n.Type.Valid() {
		return fmt.Errorf("%w: invalid notification type '%s'", ErrInvalidInput, n.Type)
	}

	sql := `INSERT INTO notifications (user_id, type, title, message, link)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id, is_read, created_at
	`

	err := r.db.QueryRow(ctx, sql, n.UserID, n.Type, n.Title, n.Message, n.Link).Scan(&n.ID, &n.IsRead, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

func (r *notificationRepo) ListByUser(ctx context.Context, userID int) ([]models.Notification, error) {
	sql := `SELECT ` + notificationColumns + ` FROM notifications
	WHERE user_id = $1
	ORDER BY created_at DESC, id DESC
	`

	rows, err := r.db.Query(ctx, sql, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get notifications of user %d: %w", userID, err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := scanNotification(rows, &n); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to complete row iteration: %w", err)
	}

	return notifications, nil
}

func (r *notificationRepo) UnreadCount(ctx context.Context, userID int) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT is_read`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	return count, nil
}

func (r *notificationRepo) MarkRead(ctx context.Context, userID, id int) (*models.Notification, error) {
	sql := `UPDATE notifications SET is_read = TRUE
	WHERE id = $1 AND user_id = $2
	RETURNING ` + notificationColumns

	var n models.Notification
	if err := scanNotification(r.db.QueryRow(ctx, sql, id, userID), &n); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to mark notification %d read: %w", id, err)
	}

	return &n, nil
}

func (r *notificationRepo) MarkAllRead(ctx context.Context, userID int) (int64, error) {
	result, err := r.db.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND NOT is_read`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}

	return result.RowsAffected(), nil
}

func (r *notificationRepo) Delete(ctx context.Context, userID, id int) error {
	result, err := r.db.Exec(ctx, `DELETE FROM notifications WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete notification %d: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *notificationRepo) Clear(ctx context.Context, userID int) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM notifications WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear notifications of user %d: %w", userID, err)
	}

	return result.RowsAffected(), nil
}
