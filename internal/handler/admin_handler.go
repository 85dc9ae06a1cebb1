package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"projectflow/pkg/outbox"
)

type Replayer interface {
	ReplayFailedEvents(ctx context.Context, limit int) (int, error)
	ReplayOne(ctx context.Context, eventID int64) error
}

type AdminHandler struct {
	replayService Replayer
	logger        *zap.Logger
}

func NewAdminHandler(replayService Replayer, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		replayService: replayService,
		logger:        logger,
	}
}

// ReplayOutbox 重放失败的 outbox 事件
// POST /admin/outbox/replay?id=123     单个事件
// POST /admin/outbox/replay?limit=100  批量
func (h *AdminHandler) ReplayOutbox(c *gin.Context) {
	if idStr := c.Query("id"); idStr != "" {
		h.replayOne(c, idStr)
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 {
		limit = 100
	}

	n, err := h.replayService.ReplayFailedEvents(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to replay failed events",
			zap.Int("replayed", n),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":    "failed to replay failed events",
			"replayed": n,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "completed",
		"replayed": n,
		"limit":    limit,
	})
}

func (h *AdminHandler) replayOne(c *gin.Context, idStr string) {
	eventID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id parameter"})
		return
	}

	err = h.replayService.ReplayOne(c.Request.Context(), eventID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "replayed", "event_id": eventID})
	case errors.Is(err, outbox.ErrEventNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, outbox.ErrNotReplayable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Failed to replay event",
			zap.Int64("event_id", eventID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to replay event"})
	}
}
