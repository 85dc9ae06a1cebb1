package model

import "time"

type Role string

const (
	RoleContractor Role = "contractor"
	RoleHomeowner  Role = "homeowner"
)

// Counterparty returns the other side of the contract.
func (r Role) Counterparty() Role {
	if r == RoleContractor {
		return RoleHomeowner
	}
	return RoleContractor
}

func (r Role) Valid() bool {
	return r == RoleContractor || r == RoleHomeowner
}

// Actor identifies the party performing an operation.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

type Message struct {
	ID       string    `json:"id"`
	AuthorID string    `json:"authorId"`
	Role     Role      `json:"role"`
	Body     string    `json:"body"`
	SentAt   time.Time `json:"sentAt"`
}

type Project struct {
	ID           string       `json:"id"`
	ContractorID string       `json:"contractorId"`
	HomeownerID  string       `json:"homeownerId,omitempty"`
	Milestones   []*Milestone `json:"milestones"`
	Documents    []Document   `json:"documents"`
	Messages     []Message    `json:"messages"`
}

// Clone returns a deep copy of the project.
func (p *Project) Clone() *Project {
	c := &Project{
		ID:           p.ID,
		ContractorID: p.ContractorID,
		HomeownerID:  p.HomeownerID,
		Milestones:   make([]*Milestone, len(p.Milestones)),
		Documents:    append([]Document(nil), p.Documents...),
		Messages:     append([]Message(nil), p.Messages...),
	}
	for i, m := range p.Milestones {
		c.Milestones[i] = m.Clone()
	}
	return c
}
