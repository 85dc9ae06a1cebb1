package mq

import "projectflow/internal/model"

const (
	TypeDocumentUploaded = "document_uploaded"
	TypeDocumentViewed   = "document_viewed"
	TypeMessagePosted    = "message_posted"
)

type DocumentUploaded struct {
	DocumentID  string         `json:"documentId"`
	MilestoneID string         `json:"milestoneId,omitempty"`
	Document    model.Document `json:"document"`
}

type DocumentViewed struct {
	DocumentID string `json:"documentId"`
	ViewedBy   string `json:"viewedBy"`
}

type MessagePosted struct {
	Message model.Message `json:"message"`
}

func (DocumentUploaded) EventType() string { return TypeDocumentUploaded }
func (DocumentViewed) EventType() string   { return TypeDocumentViewed }
func (MessagePosted) EventType() string    { return TypeMessagePosted }
