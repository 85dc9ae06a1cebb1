package mqhandler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	dbcontracts "projectflow/contracts/db"
	mqcontracts "projectflow/contracts/mq"
	"projectflow/internal/model"
	"projectflow/pkg/logger"
	"projectflow/pkg/metrics"
	"projectflow/pkg/mq"
)

const notificationHandlerName = "notification"

type NotificationStore interface {
	Insert(ctx context.Context, n *dbcontracts.Notification) (bool, error)
}

// NotificationHandler 把用户通知写入 notifications 站内信箱
type NotificationHandler struct {
	repo    NotificationStore
	deduper Deduper
	retry   retryPolicy
	logger  *zap.Logger
}

func NewNotificationHandler(repo NotificationStore, deduper Deduper, retries RetryCounter, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		repo:    repo,
		deduper: deduper,
		retry:   retryPolicy{counter: retries, maxRetries: defaultMaxRetries, logger: logger},
		logger:  logger,
	}
}

func (h *NotificationHandler) Handle(ctx context.Context, d mq.Delivery) error {
	log := logger.WithTrace(ctx, h.logger)

	n, err := mqcontracts.DecodeNotification(d.Body)
	if err != nil {
		log.Error("Failed to decode notification (non-retryable)",
			zap.String("routing_key", d.RoutingKey),
			zap.Error(err),
		)
		metrics.IncNotificationStored("failed")
		return mq.DeadLetter(err)
	}

	if h.deduper != nil && !h.deduper.AcquireOnce(ctx, notificationHandlerName, n.ID) {
		metrics.IncNotificationStored("duplicate")
		return nil
	}

	row := &dbcontracts.Notification{
		ID:          n.ID,
		UserID:      n.UserID,
		ProjectID:   n.ProjectID,
		Type:        n.Type,
		MilestoneID: n.MilestoneID,
		Message:     Describe(n),
		Payload:     d.Body,
		CreatedAt:   n.CreatedAt,
	}

	inserted, err := h.repo.Insert(ctx, row)
	if err != nil {
		if h.deduper != nil {
			h.deduper.Release(ctx, notificationHandlerName, n.ID)
		}
		metrics.IncNotificationStored("failed")
		return h.retry.decide(ctx, notificationHandlerName, n.ID, err)
	}
	h.retry.succeeded(ctx, notificationHandlerName, n.ID)

	if !inserted {
		metrics.IncNotificationStored("duplicate")
		return nil
	}
	metrics.IncNotificationStored("success")
	log.Info("Notification stored",
		zap.String("notification_id", n.ID),
		zap.String("user_id", n.UserID),
		zap.String("type", n.Type),
	)
	return nil
}

// Describe renders the inbox text of a notification.
func Describe(n mqcontracts.Notification) string {
	switch n.Type {
	case mqcontracts.TypeMilestoneProposed:
		return fmt.Sprintf("New milestone proposed: %s (%s)", n.Title, formatAmount(n.Amount))
	case mqcontracts.TypeMilestoneEditRequested:
		return fmt.Sprintf("Changes requested on milestone %s", n.Title)
	case mqcontracts.TypeMilestoneDeleteRequested:
		return fmt.Sprintf("Deletion requested for milestone %s", n.Title)
	case mqcontracts.TypeMilestoneCompleted:
		return fmt.Sprintf("Milestone completed: %s", n.Title)
	case mqcontracts.TypePaymentRequested:
		return fmt.Sprintf("Payment requested for %s: %s (fee %s)", n.Title, formatAmount(n.Amount), formatAmount(n.ApplicationFee))
	case mqcontracts.TypeDocumentUploaded:
		return fmt.Sprintf("New document shared: %s", n.DocumentName)
	case mqcontracts.TypeMessagePosted:
		return "You have a new message"
	}
	return n.Type
}

func formatAmount(a *model.Amount) string {
	if a == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", a.Float64())
}
