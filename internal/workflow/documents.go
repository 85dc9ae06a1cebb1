package workflow

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"projectflow/contracts/mq"
	"projectflow/internal/model"
)

// UploadDocument stores a new document at the head of the project's document
// list. A document carrying a milestone id leaves a link_document entry in that
// milestone's changelog; the milestone itself is otherwise untouched.
func (c *Coordinator) UploadDocument(ctx context.Context, actor model.Actor, in model.DocumentUpload) (model.Document, error) {
	var (
		doc      model.Document
		unlinked bool
	)
	err := c.run(ctx, "upload_document", actor, in.MilestoneID, func(tx *opTx) error {
		shared := true
		if in.SharedWithHomeowner != nil {
			shared = *in.SharedWithHomeowner
		}
		doc = model.Document{
			ID:                  c.newID(),
			Name:                in.Name,
			Category:            in.Category,
			Type:                in.Type,
			URL:                 in.URL,
			Size:                in.Size,
			MilestoneID:         in.MilestoneID,
			UploadedAt:          c.now(),
			SharedWithHomeowner: shared,
		}

		docs := make([]model.Document, 0, len(c.project.Documents)+1)
		docs = append(docs, doc)
		c.project.Documents = append(docs, c.project.Documents...)

		if doc.MilestoneID != "" {
			if _, m := c.findMilestone(doc.MilestoneID); m != nil {
				appendEntry(m, c.recorder.Record(actor.ID, model.ActionLinkDocument, map[string]any{
					"documentId": doc.ID,
					"name":       doc.Name,
					"category":   doc.Category,
				}))
			} else {
				unlinked = true
			}
		}

		tx.publish(mq.DocumentsTopic(c.project.ID), mq.DocumentUploaded{
			DocumentID:  doc.ID,
			MilestoneID: doc.MilestoneID,
			Document:    doc,
		})
		// 未共享的文档不通知业主
		if actor.Role == model.RoleContractor && !doc.SharedWithHomeowner {
			return nil
		}
		tx.notify(mq.Notification{
			Type:         mq.TypeDocumentUploaded,
			MilestoneID:  doc.MilestoneID,
			DocumentID:   doc.ID,
			DocumentName: doc.Name,
		})
		return nil
	})
	if err != nil {
		return model.Document{}, err
	}
	if unlinked {
		c.logger.Warn("Document references unknown milestone",
			zap.String("document_id", doc.ID),
			zap.String("milestone_id", doc.MilestoneID))
	}
	return doc, nil
}

// MarkDocumentViewed flags a document as seen by the homeowner. Only the first
// view is published.
func (c *Coordinator) MarkDocumentViewed(ctx context.Context, actor model.Actor, documentID string) error {
	return c.run(ctx, "view_document", actor, "", func(tx *opTx) error {
		if actor.Role != model.RoleHomeowner {
			return ErrNotPermitted
		}
		for i := range c.project.Documents {
			d := &c.project.Documents[i]
			if d.ID != documentID {
				continue
			}
			if d.HomeownerViewed {
				tx.unchanged = true
				return nil
			}
			d.HomeownerViewed = true
			tx.publish(mq.DocumentsTopic(c.project.ID), mq.DocumentViewed{DocumentID: d.ID, ViewedBy: actor.ID})
			return nil
		}
		return ErrDocumentNotFound
	})
}

// PostMessage appends a message to the project conversation.
func (c *Coordinator) PostMessage(ctx context.Context, actor model.Actor, body string) (model.Message, error) {
	var msg model.Message
	err := c.run(ctx, "post_message", actor, "", func(tx *opTx) error {
		body = strings.TrimSpace(body)
		if body == "" {
			return ErrEmptyMessage
		}
		msg = model.Message{
			ID:       c.newID(),
			AuthorID: actor.ID,
			Role:     actor.Role,
			Body:     body,
			SentAt:   c.now(),
		}
		c.project.Messages = append(c.project.Messages, msg)

		tx.publish(mq.MessagesTopic(c.project.ID), mq.MessagePosted{Message: msg})
		tx.notify(mq.Notification{Type: mq.TypeMessagePosted})
		return nil
	})
	if err != nil {
		return model.Message{}, err
	}
	return msg, nil
}
