package workflow

import (
	"time"

	"github.com/google/uuid"

	"projectflow/internal/model"
)

type Clock func() time.Time

type IDGenerator func() string

func newUUID() string {
	return uuid.NewString()
}

// Recorder builds changelog entries. Apart from the timestamp and the id it is
// a pure function of its arguments.
type Recorder struct {
	now   Clock
	newID IDGenerator
}

func NewRecorder(now Clock, newID IDGenerator) *Recorder {
	if now == nil {
		now = time.Now
	}
	if newID == nil {
		newID = newUUID
	}
	return &Recorder{now: now, newID: newID}
}

func (r *Recorder) Record(actor string, action model.ChangelogAction, details map[string]any) model.ChangelogEntry {
	return model.ChangelogEntry{
		ID:      r.newID(),
		Actor:   actor,
		Action:  action,
		Details: details,
		At:      r.now(),
	}
}

// appendEntry must be the last step of a mutation so details reflect the
// final computed arguments.
func appendEntry(m *model.Milestone, e model.ChangelogEntry) {
	m.Changelog = append(m.Changelog, e)
	m.UpdatedAt = e.At
}
