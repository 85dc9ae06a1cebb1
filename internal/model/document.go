package model

import "time"

type Document struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Category            string    `json:"category"`
	Type                string    `json:"type"`
	URL                 string    `json:"url"`
	Size                int64     `json:"size"`
	MilestoneID         string    `json:"milestoneId,omitempty"`
	UploadedAt          time.Time `json:"uploadedAt"`
	SharedWithHomeowner bool      `json:"sharedWithHomeowner"`
	HomeownerViewed     bool      `json:"homeownerViewed"`
}

// DocumentUpload is the caller-supplied part of a document. SharedWithHomeowner
// defaults to true when nil.
type DocumentUpload struct {
	Name                string `json:"name"`
	Category            string `json:"category"`
	Type                string `json:"type"`
	URL                 string `json:"url"`
	Size                int64  `json:"size"`
	MilestoneID         string `json:"milestoneId,omitempty"`
	SharedWithHomeowner *bool  `json:"sharedWithHomeowner,omitempty"`
}
