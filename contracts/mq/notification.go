package mq

import (
	"time"

	"projectflow/internal/model"
)

// Notification is published on a user's notification topic. Type mirrors the
// type of the project-topic event that triggered it.
type Notification struct {
	ID             string        `json:"id"`
	ProjectID      string        `json:"projectId"`
	Type           string        `json:"type"`
	UserID         string        `json:"userId"`
	From           string        `json:"from"`
	MilestoneID    string        `json:"milestoneId,omitempty"`
	Title          string        `json:"title,omitempty"`
	Amount         *model.Amount `json:"amount,omitempty"`
	ApplicationFee *model.Amount `json:"applicationFee,omitempty"`
	DocumentID     string        `json:"documentId,omitempty"`
	DocumentName   string        `json:"documentName,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
}

func (n Notification) EventType() string { return n.Type }
