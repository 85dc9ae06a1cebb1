package repository

import (
	"context"
	"fmt"

	"projectflow/contracts/db"
)

type NotificationRepository struct {
	db DB
}

func NewNotificationRepository(db DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Insert stores n and reports whether a new row was written. A notification
// that already exists is not an error.
func (r *NotificationRepository) Insert(ctx context.Context, n *db.Notification) (bool, error) {
	query := `
		INSERT INTO notifications (id, user_id, project_id, type, milestone_id, message, payload, is_read, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, false, $8)
		ON CONFLICT (id) DO NOTHING
	`
	tag, err := r.db.Exec(ctx, query,
		n.ID, n.UserID, n.ProjectID, n.Type, n.MilestoneID, n.Message, n.Payload, n.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("insert notification %s: %w", n.ID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListByUser returns the newest notifications of a user.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]db.Notification, error) {
	query := `
		SELECT id, user_id, project_id, type, COALESCE(milestone_id, ''), message, payload, is_read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	out := []db.Notification{}
	for rows.Next() {
		var n db.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.ProjectID, &n.Type, &n.MilestoneID, &n.Message, &n.Payload, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead 标记通知为已读，只能标记自己的通知
func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id string) (bool, error) {
	tag, err := r.db.Exec(ctx, `UPDATE notifications SET is_read = true WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("mark notification read: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
