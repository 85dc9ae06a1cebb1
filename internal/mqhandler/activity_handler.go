package mqhandler

import (
	"context"
	"fmt"
	"hash/fnv"

	"go.uber.org/zap"

	dbcontracts "projectflow/contracts/db"
	mqcontracts "projectflow/contracts/mq"
	"projectflow/pkg/logger"
	"projectflow/pkg/mq"
)

const activityHandlerName = "activity"

type ActivityStore interface {
	Insert(ctx context.Context, a *dbcontracts.ActivityLog) error
}

// ActivityHandler 把项目 topic 上的事件追加到 project_activity_log
type ActivityHandler struct {
	repo   ActivityStore
	retry  retryPolicy
	logger *zap.Logger
}

func NewActivityHandler(repo ActivityStore, retries RetryCounter, logger *zap.Logger) *ActivityHandler {
	return &ActivityHandler{
		repo:   repo,
		retry:  retryPolicy{counter: retries, maxRetries: defaultMaxRetries, logger: logger},
		logger: logger,
	}
}

func (h *ActivityHandler) Handle(ctx context.Context, d mq.Delivery) error {
	log := logger.WithTrace(ctx, h.logger).With(zap.String("routing_key", d.RoutingKey))

	projectID, kind, ok := mqcontracts.ParseProjectRoutingKey(d.RoutingKey)
	if !ok {
		log.Error("Unexpected routing key")
		return mq.DeadLetter(fmt.Errorf("routing key %q is not a project topic", d.RoutingKey))
	}

	evt, err := mqcontracts.Decode(d.Body)
	if err != nil {
		log.Error("Failed to decode project event (non-retryable)", zap.Error(err))
		return mq.DeadLetter(err)
	}

	row := &dbcontracts.ActivityLog{
		ProjectID:   projectID,
		Kind:        kind,
		EventType:   evt.EventType(),
		MilestoneID: mqcontracts.MilestoneIDOf(evt),
		Payload:     d.Body,
	}

	// 项目事件没有 id，用消息体的哈希做重试计数的 key
	id := bodyKey(d.Body)
	if err := h.repo.Insert(ctx, row); err != nil {
		return h.retry.decide(ctx, activityHandlerName, id, err)
	}
	h.retry.succeeded(ctx, activityHandlerName, id)

	log.Debug("Activity recorded",
		zap.String("project_id", projectID),
		zap.String("event_type", row.EventType),
		zap.Int64("activity_id", row.ID),
	)
	return nil
}

func bodyKey(body []byte) string {
	h := fnv.New64a()
	_, _ = h.Write(body)
	return fmt.Sprintf("%x", h.Sum64())
}
