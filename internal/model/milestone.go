package model

import "time"

type MilestoneStatus string

const (
	// StatusDraft is never produced by any workflow operation; milestones start as proposed.
	StatusDraft             MilestoneStatus = "draft"
	StatusProposed          MilestoneStatus = "proposed"
	StatusPendingAcceptance MilestoneStatus = "pending_acceptance"
	StatusActive            MilestoneStatus = "active"
	StatusCompleted         MilestoneStatus = "completed"
)

type Acceptance struct {
	ContractorAccepted bool `json:"contractorAccepted"`
	HomeownerAccepted  bool `json:"homeownerAccepted"`
}

// Both reports whether both parties have accepted.
func (a Acceptance) Both() bool {
	return a.ContractorAccepted && a.HomeownerAccepted
}

// MilestonePatch carries the fields of a proposed edit. Nil fields keep the current value.
type MilestonePatch struct {
	Title         *string    `json:"title,omitempty"`
	Description   *string    `json:"description,omitempty"`
	EstimatedDate *time.Time `json:"estimatedDate,omitempty"`
	Amount        *Amount    `json:"amount,omitempty"`
}

type PendingEdit struct {
	MilestonePatch
	RequestedBy string    `json:"requestedBy"`
	RequestedAt time.Time `json:"requestedAt"`
}

type PendingDelete struct {
	RequestedBy string    `json:"requestedBy"`
	RequestedAt time.Time `json:"requestedAt"`
}

type Attachment struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	Type       string    `json:"type,omitempty"`
	UploadedAt time.Time `json:"uploadedAt"`
}

type Milestone struct {
	ID            string           `json:"id"`
	Title         string           `json:"title"`
	Description   string           `json:"description"`
	EstimatedDate *time.Time       `json:"estimatedDate,omitempty"`
	Amount        Amount           `json:"amount"`
	Status        MilestoneStatus  `json:"status"`
	Acceptance    Acceptance       `json:"acceptance"`
	PendingEdit   *PendingEdit     `json:"pendingEdit,omitempty"`
	PendingDelete *PendingDelete   `json:"pendingDelete,omitempty"`
	Attachments   []Attachment     `json:"attachments"`
	Changelog     []ChangelogEntry `json:"changelog"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
	CompletedAt   *time.Time       `json:"completedAt,omitempty"`
}

// HasNegotiation reports whether an edit or delete request is outstanding.
func (m *Milestone) HasNegotiation() bool {
	return m.PendingEdit != nil || m.PendingDelete != nil
}

// Clone returns a deep copy that shares no mutable state with m.
func (m *Milestone) Clone() *Milestone {
	c := *m
	if m.EstimatedDate != nil {
		d := *m.EstimatedDate
		c.EstimatedDate = &d
	}
	if m.CompletedAt != nil {
		d := *m.CompletedAt
		c.CompletedAt = &d
	}
	if m.PendingEdit != nil {
		pe := *m.PendingEdit
		pe.MilestonePatch = m.PendingEdit.MilestonePatch.Clone()
		c.PendingEdit = &pe
	}
	if m.PendingDelete != nil {
		pd := *m.PendingDelete
		c.PendingDelete = &pd
	}
	c.Attachments = append([]Attachment(nil), m.Attachments...)
	c.Changelog = make([]ChangelogEntry, len(m.Changelog))
	for i, e := range m.Changelog {
		c.Changelog[i] = e.Clone()
	}
	return &c
}

func (p MilestonePatch) Clone() MilestonePatch {
	var c MilestonePatch
	if p.Title != nil {
		v := *p.Title
		c.Title = &v
	}
	if p.Description != nil {
		v := *p.Description
		c.Description = &v
	}
	if p.EstimatedDate != nil {
		v := *p.EstimatedDate
		c.EstimatedDate = &v
	}
	if p.Amount != nil {
		v := *p.Amount
		c.Amount = &v
	}
	return c
}
