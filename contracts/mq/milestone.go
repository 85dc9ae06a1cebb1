package mq

import (
	"time"

	"projectflow/internal/model"
)

const (
	TypeMilestoneProposed        = "milestone_proposed"
	TypeMilestoneAccepted        = "milestone_accepted"
	TypeMilestoneEditRequested   = "milestone_edit_requested"
	TypeMilestoneEditConfirmed   = "milestone_edit_confirmed"
	TypeMilestoneDeleteRequested = "milestone_delete_requested"
	TypeMilestoneDeleteConfirmed = "milestone_delete_confirmed"
	TypeMilestoneDeleted         = "milestone_deleted"
	TypeMilestoneImagesUploaded  = "milestone_images_uploaded"
	TypeMilestoneCompleted       = "milestone_completed"
	TypePaymentRequested         = "payment_requested"
)

// Event is implemented by every payload published on the bus. The concrete
// type is the discriminator; EventType is its wire name.
type Event interface {
	EventType() string
}

type MilestoneProposed struct {
	MilestoneID string           `json:"milestoneId"`
	Milestone   *model.Milestone `json:"milestone"`
}

type MilestoneAccepted struct {
	MilestoneID string                `json:"milestoneId"`
	By          model.Role            `json:"by"`
	Acceptance  model.Acceptance      `json:"acceptance"`
	Status      model.MilestoneStatus `json:"status"`
}

type MilestoneEditRequested struct {
	MilestoneID string               `json:"milestoneId"`
	Changes     model.MilestonePatch `json:"changes"`
}

type MilestoneEditConfirmed struct {
	MilestoneID string `json:"milestoneId"`
	Accepted    bool   `json:"accepted"`
}

type MilestoneDeleteRequested struct {
	MilestoneID string `json:"milestoneId"`
}

type MilestoneDeleteConfirmed struct {
	MilestoneID string `json:"milestoneId"`
	Accepted    bool   `json:"accepted"`
}

// MilestoneDeleted carries only the id; the record no longer exists.
type MilestoneDeleted struct {
	MilestoneID string `json:"milestoneId"`
}

type MilestoneImagesUploaded struct {
	MilestoneID string             `json:"milestoneId"`
	Images      []model.Attachment `json:"images"`
}

type MilestoneCompleted struct {
	MilestoneID string    `json:"milestoneId"`
	CompletedAt time.Time `json:"completedAt"`
}

type PaymentRequested struct {
	MilestoneID    string       `json:"milestoneId"`
	Amount         model.Amount `json:"amount"`
	ApplicationFee model.Amount `json:"applicationFee"`
}

func (MilestoneProposed) EventType() string        { return TypeMilestoneProposed }
func (MilestoneAccepted) EventType() string        { return TypeMilestoneAccepted }
func (MilestoneEditRequested) EventType() string   { return TypeMilestoneEditRequested }
func (MilestoneEditConfirmed) EventType() string   { return TypeMilestoneEditConfirmed }
func (MilestoneDeleteRequested) EventType() string { return TypeMilestoneDeleteRequested }
func (MilestoneDeleteConfirmed) EventType() string { return TypeMilestoneDeleteConfirmed }
func (MilestoneDeleted) EventType() string         { return TypeMilestoneDeleted }
func (MilestoneImagesUploaded) EventType() string  { return TypeMilestoneImagesUploaded }
func (MilestoneCompleted) EventType() string       { return TypeMilestoneCompleted }
func (PaymentRequested) EventType() string         { return TypePaymentRequested }
