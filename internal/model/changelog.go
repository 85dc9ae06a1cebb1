package model

import "time"

type ChangelogAction string

const (
	ActionPropose       ChangelogAction = "propose"
	ActionAccept        ChangelogAction = "accept"
	ActionRequestEdit   ChangelogAction = "request_edit"
	ActionConfirmEdit   ChangelogAction = "confirm_edit"
	ActionRequestDelete ChangelogAction = "request_delete"
	ActionConfirmDelete ChangelogAction = "confirm_delete"
	ActionUploadImages  ChangelogAction = "upload_images"
	ActionMarkComplete  ChangelogAction = "mark_complete"
	ActionLinkDocument  ChangelogAction = "link_document"
)

// ChangelogEntry is an immutable audit record attached to a milestone.
type ChangelogEntry struct {
	ID      string          `json:"id"`
	Actor   string          `json:"actor"`
	Action  ChangelogAction `json:"action"`
	Details map[string]any  `json:"details,omitempty"`
	At      time.Time       `json:"at"`
}

func (e ChangelogEntry) Clone() ChangelogEntry {
	if e.Details == nil {
		return e
	}
	d := make(map[string]any, len(e.Details))
	for k, v := range e.Details {
		d[k] = v
	}
	e.Details = d
	return e
}
