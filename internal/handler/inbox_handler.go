package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"projectflow/contracts/db"
	"projectflow/internal/workflow"
	"projectflow/pkg/logger"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type NotificationReader interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]db.Notification, error)
	MarkRead(ctx context.Context, userID, id string) (bool, error)
}

type ActivityReader interface {
	ListByProject(ctx context.Context, projectID string, limit int) ([]db.ActivityLog, error)
}

// InboxHandler serves the rows the worker persisted: each user's notification
// inbox and each project's activity log.
type InboxHandler struct {
	notifications NotificationReader
	activity      ActivityReader
	registry      *workflow.Registry
	logger        *zap.Logger
}

func NewInboxHandler(notifications NotificationReader, activity ActivityReader, registry *workflow.Registry, logger *zap.Logger) *InboxHandler {
	return &InboxHandler{
		notifications: notifications,
		activity:      activity,
		registry:      registry,
		logger:        logger,
	}
}

// ListNotifications handles GET /notifications?limit=50
func (h *InboxHandler) ListNotifications(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}

	items, err := h.notifications.ListByUser(c.Request.Context(), actor.ID, listLimit(c))
	if err != nil {
		logger.WithTrace(c.Request.Context(), h.logger).Error("Failed to list notifications",
			zap.String("user_id", actor.ID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list notifications"})
		return
	}
	if items == nil {
		items = []db.Notification{}
	}
	c.JSON(http.StatusOK, gin.H{"notifications": items})
}

// MarkNotificationRead handles POST /notifications/:nid/read
func (h *InboxHandler) MarkNotificationRead(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}

	found, err := h.notifications.MarkRead(c.Request.Context(), actor.ID, c.Param("nid"))
	if err != nil {
		logger.WithTrace(c.Request.Context(), h.logger).Error("Failed to mark notification read",
			zap.String("user_id", actor.ID),
			zap.String("notification_id", c.Param("nid")),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update notification"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// ListActivity handles GET /projects/:id/activity?limit=50
func (h *InboxHandler) ListActivity(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	projectID := c.Param("id")
	coord, err := h.registry.Get(projectID)
	if err != nil {
		writeError(c, err)
		return
	}
	if !isParty(coord.Info(), actor) {
		writeError(c, workflow.ErrUnknownActor)
		return
	}

	items, err := h.activity.ListByProject(c.Request.Context(), projectID, listLimit(c))
	if err != nil {
		logger.WithTrace(c.Request.Context(), h.logger).Error("Failed to list activity",
			zap.String("project_id", projectID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list activity"})
		return
	}
	if items == nil {
		items = []db.ActivityLog{}
	}
	c.JSON(http.StatusOK, gin.H{"activity": items})
}

func listLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultListLimit)))
	if err != nil || limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
