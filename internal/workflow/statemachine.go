package workflow

import (
	"time"

	"projectflow/internal/model"
)

// ProposeInput is the caller-supplied content of a new milestone.
type ProposeInput struct {
	Title         string       `json:"title"`
	Description   string       `json:"description"`
	EstimatedDate *time.Time   `json:"estimatedDate,omitempty"`
	Amount        model.Amount `json:"amount"`
}

// ImageUpload describes one progress image attached to a milestone.
type ImageUpload struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type,omitempty"`
}

// The functions below are the milestone state machine. They validate and
// mutate a single milestone and never touch the changelog or the bus.

func newMilestone(id string, proposer model.Role, in ProposeInput, now time.Time) *model.Milestone {
	m := &model.Milestone{
		ID:            id,
		Title:         in.Title,
		Description:   in.Description,
		EstimatedDate: in.EstimatedDate,
		Amount:        in.Amount,
		Status:        model.StatusProposed,
		Attachments:   []model.Attachment{},
		Changelog:     []model.ChangelogEntry{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	setAccepted(&m.Acceptance, proposer)
	return m
}

func setAccepted(a *model.Acceptance, by model.Role) {
	switch by {
	case model.RoleContractor:
		a.ContractorAccepted = true
	case model.RoleHomeowner:
		a.HomeownerAccepted = true
	}
}

func acceptMilestone(m *model.Milestone, by model.Role) error {
	if m.Status == model.StatusCompleted {
		return ErrMilestoneCompleted
	}
	setAccepted(&m.Acceptance, by)
	// an open negotiation stays pending on PendingEdit/PendingDelete
	if m.Acceptance.Both() {
		m.Status = model.StatusActive
	}
	return nil
}

func requestEdit(m *model.Milestone, patch model.MilestonePatch, by string, now time.Time) error {
	if m.Status == model.StatusCompleted {
		return ErrMilestoneCompleted
	}
	if m.HasNegotiation() {
		return ErrNegotiationPending
	}
	m.PendingEdit = &model.PendingEdit{
		MilestonePatch: patch.Clone(),
		RequestedBy:    by,
		RequestedAt:    now,
	}
	m.Status = model.StatusPendingAcceptance
	return nil
}

// confirmEdit resolves the pending edit and returns the patch that was applied
// (empty when rejected).
func confirmEdit(m *model.Milestone, accepted bool) (model.MilestonePatch, error) {
	if m.PendingEdit == nil {
		return model.MilestonePatch{}, ErrNoPendingNegotiation
	}
	patch := m.PendingEdit.MilestonePatch
	m.PendingEdit = nil

	if !accepted {
		restoreStatus(m)
		return model.MilestonePatch{}, nil
	}

	if patch.Title != nil {
		m.Title = *patch.Title
	}
	if patch.Description != nil {
		m.Description = *patch.Description
	}
	if patch.EstimatedDate != nil {
		d := *patch.EstimatedDate
		m.EstimatedDate = &d
	}
	if patch.Amount != nil {
		m.Amount = *patch.Amount
	}
	m.Status = model.StatusActive
	return patch, nil
}

func requestDelete(m *model.Milestone, by string, now time.Time) error {
	if m.Status == model.StatusCompleted {
		return ErrMilestoneCompleted
	}
	if m.HasNegotiation() {
		return ErrNegotiationPending
	}
	m.PendingDelete = &model.PendingDelete{RequestedBy: by, RequestedAt: now}
	m.Status = model.StatusPendingAcceptance
	return nil
}

// rejectDelete clears the pending delete. Accepted deletes remove the
// milestone from the project and are handled by the coordinator.
func rejectDelete(m *model.Milestone) error {
	if m.PendingDelete == nil {
		return ErrNoPendingNegotiation
	}
	m.PendingDelete = nil
	restoreStatus(m)
	return nil
}

// restoreStatus is the status a rejected negotiation returns to.
func restoreStatus(m *model.Milestone) {
	if m.Acceptance.Both() {
		m.Status = model.StatusActive
	} else {
		m.Status = model.StatusProposed
	}
}

func attachImages(m *model.Milestone, images []model.Attachment) {
	m.Attachments = append(m.Attachments, images...)
}

func markComplete(m *model.Milestone, now time.Time) error {
	if m.Status == model.StatusCompleted {
		return ErrMilestoneCompleted
	}
	if m.HasNegotiation() {
		return ErrNegotiationPending
	}
	m.Status = model.StatusCompleted
	completed := now
	m.CompletedAt = &completed
	return nil
}
