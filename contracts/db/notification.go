package db

import (
	"encoding/json"
	"time"
)

// Notification 表示 notifications 表的结构
type Notification struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	ProjectID   string          `json:"project_id"`
	Type        string          `json:"type"`
	MilestoneID string          `json:"milestone_id,omitempty"`
	Message     string          `json:"message"`
	Payload     json.RawMessage `json:"payload"`
	IsRead      bool            `json:"is_read"`
	CreatedAt   time.Time       `json:"created_at"`
}
