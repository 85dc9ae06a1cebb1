package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"projectflow/internal/model"
	"projectflow/internal/workflow"
	"projectflow/pkg/logger"
)

type proposeRequest struct {
	Title         string       `json:"title" binding:"required"`
	Description   string       `json:"description"`
	EstimatedDate *time.Time   `json:"estimatedDate"`
	Amount        model.Amount `json:"amount"`
}

type confirmRequest struct {
	Accepted *bool `json:"accepted" binding:"required"`
}

type imagesRequest struct {
	Images []workflow.ImageUpload `json:"images" binding:"required,min=1"`
}

type paymentRequest struct {
	ApplicationFee model.Amount `json:"applicationFee"`
}

// ProposeMilestone handles POST /projects/:id/milestones
func (h *ProjectHandler) ProposeMilestone(c *gin.Context) {
	actor, coord, ok := h.partyCoordinator(c)
	if !ok {
		return
	}

	var req proposeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}
	if req.Amount < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must not be negative"})
		return
	}

	m, err := coord.ProposeMilestone(c.Request.Context(), actor, workflow.ProposeInput{
		Title:         req.Title,
		Description:   req.Description,
		EstimatedDate: req.EstimatedDate,
		Amount:        req.Amount,
	})
	if err != nil {
		h.fail(c, "propose", err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

// AcceptMilestone handles POST /projects/:id/milestones/:mid/accept
func (h *ProjectHandler) AcceptMilestone(c *gin.Context) {
	actor, coord, ok := h.partyCoordinator(c)
	if !ok {
		return
	}
	mid := c.Param("mid")
	if err := coord.AcceptMilestone(c.Request.Context(), actor, mid); err != nil {
		h.fail(c, "accept", err)
		return
	}
	respondMilestone(c, coord, mid)
}

// RequestEdit handles POST /projects/:id/milestones/:mid/edit
func (h *ProjectHandler) RequestEdit(c *gin.Context) {
	actor, coord, ok := h.partyCoordinator(c)
	if !ok {
		return
	}

	var patch model.MilestonePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if patch.Title == nil && patch.Description == nil && patch.EstimatedDate == nil && patch.Amount == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "edit changes nothing"})
		return
	}
	if patch.Amount != nil && *patch.Amount < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must not be negative"})
		return
	}

	mid := c.Param("mid")
	if err := coord.RequestEditMilestone(c.Request.Context(), actor, mid, patch); err != nil {
		h.fail(c, "request_edit", err)
		return
	}
	respondMilestone(c, coord, mid)
}

// ConfirmEdit handles POST /projects/:id/milestones/:mid/edit/confirm
func (h *ProjectHandler) ConfirmEdit(c *gin.Context) {
	actor, coord, ok := h.partyCoordinator(c)
	if !ok {
		return
	}
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "accepted is required"})
		return
	}

	mid := c.Param("mid")
	if err := coord.ConfirmEditMilestone(c.Request.Context(), actor, mid, *req.Accepted); err != nil {
		h.fail(c, "confirm_edit", err)
		return
	}
	respondMilestone(c, coord, mid)
}

// RequestDelete handles POST /projects/:id/milestones/:mid/delete
func (h *ProjectHandler) RequestDelete(c *gin.Context) {
	actor, coord, ok := h.partyCoordinator(c)
	if !ok {
		return
	}
	mid := c.Param("mid")
	if err := coord.RequestDeleteMilestone(c.Request.Context(), actor, mid); err != nil {
		h.fail(c, "request_delete", err)
		return
	}
	respondMilestone(c, coord, mid)
}

// ConfirmDelete handles POST /projects/:id/milestones/:mid/delete/confirm
func (h *ProjectHandler) ConfirmDelete(c *gin.Context) {
	actor, coord, ok := h.partyCoordinator(c)
	if !ok {
		return
	}
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "accepted is required"})
		return
	}

	mid := c.Param("mid")
	if err := coord.ConfirmDeleteMilestone(c.Request.Context(), actor, mid, *req.Accepted); err != nil {
		h.fail(c, "confirm_delete", err)
		return
	}
	if *req.Accepted {
		c.JSON(http.StatusOK, gin.H{"id": mid, "deleted": true})
		return
	}
	respondMilestone(c, coord, mid)
}

// UploadImages handles POST /projects/:id/milestones/:mid/images
func (h *ProjectHandler) UploadImages(c *gin.Context) {
	actor, coord, ok := h.partyCoordinator(c)
	if !ok {
		return
	}
	var req imagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "images are required"})
		return
	}
	for _, img := range req.Images {
		if img.URL == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "image url is required"})
			return
		}
	}

	mid := c.Param("mid")
	if err := coord.UploadProgressImages(c.Request.Context(), actor, mid, req.Images); err != nil {
		h.fail(c, "upload_images", err)
		return
	}
	respondMilestone(c, coord, mid)
}

// MarkComplete handles POST /projects/:id/milestones/:mid/complete
func (h *ProjectHandler) MarkComplete(c *gin.Context) {
	actor, coord, ok := h.partyCoordinator(c)
	if !ok {
		return
	}
	mid := c.Param("mid")
	if err := coord.MarkMilestoneComplete(c.Request.Context(), actor, mid); err != nil {
		h.fail(c, "mark_complete", err)
		return
	}
	respondMilestone(c, coord, mid)
}

// RequestPayment handles POST /projects/:id/milestones/:mid/payment
func (h *ProjectHandler) RequestPayment(c *gin.Context) {
	actor, coord, ok := h.partyCoordinator(c)
	if !ok {
		return
	}
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.ApplicationFee < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "applicationFee must not be negative"})
		return
	}

	mid := c.Param("mid")
	if err := coord.RequestPayment(c.Request.Context(), actor, mid, req.ApplicationFee); err != nil {
		h.fail(c, "request_payment", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "payment_requested", "milestoneId": mid})
}

func (h *ProjectHandler) fail(c *gin.Context, op string, err error) {
	if statusFor(err) == http.StatusInternalServerError {
		logger.WithTrace(c.Request.Context(), h.logger).Error("Workflow operation failed",
			zap.String("op", op),
			zap.String("project_id", c.Param("id")),
			zap.String("milestone_id", c.Param("mid")),
			zap.Error(err))
	}
	writeError(c, err)
}
