package db

import (
	"encoding/json"
	"time"
)

// ActivityLog 表示 project_activity_log 表的结构
type ActivityLog struct {
	ID          int64           `json:"id"`
	ProjectID   string          `json:"project_id"`
	Kind        string          `json:"kind"`
	EventType   string          `json:"event_type"`
	MilestoneID string          `json:"milestone_id,omitempty"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
}
