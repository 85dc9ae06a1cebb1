package outbox

import (
	"context"
	"errors"
	"fmt"
)

var ErrNotReplayable = errors.New("only failed events can be replayed")

// ReplayStore is the part of Repository needed to requeue failed events.
type ReplayStore interface {
	GetFailedEvents(ctx context.Context, limit int) ([]*Event, error)
	GetEventByID(ctx context.Context, eventID int64) (*Event, error)
	ReplayEvent(ctx context.Context, eventID int64) error
}

// ReplayService 把失败的事件重置为 pending，由 Dispatcher 重新发送
type ReplayService struct {
	store ReplayStore
}

func NewReplayService(store ReplayStore) *ReplayService {
	return &ReplayService{store: store}
}

// ReplayFailedEvents requeues up to limit failed events and returns how many
// were reset.
func (s *ReplayService) ReplayFailedEvents(ctx context.Context, limit int) (int, error) {
	events, err := s.store.GetFailedEvents(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to get failed events: %w", err)
	}

	n := 0
	for _, event := range events {
		if err := s.store.ReplayEvent(ctx, event.ID); err != nil {
			return n, fmt.Errorf("replay event %d: %w", event.ID, err)
		}
		n++
	}
	return n, nil
}

// ReplayOne requeues a single failed event.
func (s *ReplayService) ReplayOne(ctx context.Context, eventID int64) error {
	e, err := s.store.GetEventByID(ctx, eventID)
	if err != nil {
		return err
	}
	if e.Status != StatusFailed {
		return fmt.Errorf("%w: event %d is %s", ErrNotReplayable, eventID, e.Status)
	}
	return s.store.ReplayEvent(ctx, eventID)
}
