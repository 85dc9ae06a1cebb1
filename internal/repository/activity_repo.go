package repository

import (
	"context"
	"fmt"

	"projectflow/contracts/db"
)

type ActivityRepository struct {
	db DB
}

func NewActivityRepository(db DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Insert(ctx context.Context, a *db.ActivityLog) error {
	query := `
		INSERT INTO project_activity_log (project_id, kind, event_type, milestone_id, payload, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, NOW())
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query, a.ProjectID, a.Kind, a.EventType, a.MilestoneID, a.Payload).
		Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert activity for project %s: %w", a.ProjectID, err)
	}
	return nil
}

// ListByProject returns activity rows in insertion order.
func (r *ActivityRepository) ListByProject(ctx context.Context, projectID string, limit int) ([]db.ActivityLog, error) {
	query := `
		SELECT id, project_id, kind, event_type, COALESCE(milestone_id, ''), payload, created_at
		FROM project_activity_log
		WHERE project_id = $1
		ORDER BY id ASC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	out := []db.ActivityLog{}
	for rows.Next() {
		var a db.ActivityLog
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.Kind, &a.EventType, &a.MilestoneID, &a.Payload, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
