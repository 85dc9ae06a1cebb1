package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"projectflow/internal/handler"
	"projectflow/pkg/otel"
	"projectflow/pkg/rbac"
)

// ReadyCheck reports whether a dependency is usable; used by /readyz.
type ReadyCheck func(ctx context.Context) error

type Handlers struct {
	Projects *handler.ProjectHandler
	// Inbox and Admin are nil when the server runs without a database.
	Inbox *handler.InboxHandler
	Admin *handler.AdminHandler
}

func NewRouter(h Handlers, jwtSecret string, logger *zap.Logger, checks map[string]ReadyCheck) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), TraceMiddleware(), otel.GinMiddleware(), MetricsMiddleware(), AccessLog(logger))

	// Health endpoints (放在最前面)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()

		for name, check := range checks {
			if err := check(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": name + "_not_ready", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Protected
	auth := r.Group("/")
	auth.Use(AuthMiddleware(jwtSecret))
	{
		p := h.Projects
		auth.POST("/projects", RequirePermission(rbac.PermissionOpenProject), p.OpenProject)
		auth.GET("/projects/:id", RequirePermission(rbac.PermissionReadProject), p.GetProject)

		ms := auth.Group("/projects/:id/milestones", RequirePermission(rbac.PermissionWriteMilestone))
		ms.POST("", p.ProposeMilestone)
		ms.POST("/:mid/accept", p.AcceptMilestone)
		ms.POST("/:mid/edit", p.RequestEdit)
		ms.POST("/:mid/edit/confirm", p.ConfirmEdit)
		ms.POST("/:mid/delete", p.RequestDelete)
		ms.POST("/:mid/delete/confirm", p.ConfirmDelete)
		ms.POST("/:mid/images", p.UploadImages)
		ms.POST("/:mid/complete", p.MarkComplete)
		ms.POST("/:mid/payment", p.RequestPayment)

		auth.POST("/projects/:id/documents", RequirePermission(rbac.PermissionWriteDocument), p.UploadDocument)
		auth.POST("/projects/:id/documents/:did/viewed", RequirePermission(rbac.PermissionWriteDocument), p.MarkDocumentViewed)
		auth.POST("/projects/:id/messages", RequirePermission(rbac.PermissionWriteMessage), p.PostMessage)

		if h.Inbox != nil {
			auth.GET("/projects/:id/activity", RequirePermission(rbac.PermissionReadProject), h.Inbox.ListActivity)
			auth.GET("/notifications", RequirePermission(rbac.PermissionReadInbox), h.Inbox.ListNotifications)
			auth.POST("/notifications/:nid/read", RequirePermission(rbac.PermissionReadInbox), h.Inbox.MarkNotificationRead)
		}
		if h.Admin != nil {
			auth.POST("/admin/outbox/replay", RequirePermission(rbac.PermissionReplayOutbox), h.Admin.ReplayOutbox)
		}
	}

	return r
}
