package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"projectflow/internal/model"
)

// UploadDocument handles POST /projects/:id/documents
func (h *ProjectHandler) UploadDocument(c *gin.Context) {
	actor, coord, ok := h.partyCoordinator(c)
	if !ok {
		return
	}
	var req model.DocumentUpload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	if req.Size < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "size must not be negative"})
		return
	}

	doc, err := coord.UploadDocument(c.Request.Context(), actor, req)
	if err != nil {
		h.fail(c, "upload_document", err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

// MarkDocumentViewed handles POST /projects/:id/documents/:did/viewed
func (h *ProjectHandler) MarkDocumentViewed(c *gin.Context) {
	actor, coord, ok := h.partyCoordinator(c)
	if !ok {
		return
	}
	if err := coord.MarkDocumentViewed(c.Request.Context(), actor, c.Param("did")); err != nil {
		h.fail(c, "view_document", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PostMessage handles POST /projects/:id/messages
func (h *ProjectHandler) PostMessage(c *gin.Context) {
	actor, coord, ok := h.partyCoordinator(c)
	if !ok {
		return
	}
	var req struct {
		Body string `json:"body"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	msg, err := coord.PostMessage(c.Request.Context(), actor, req.Body)
	if err != nil {
		h.fail(c, "post_message", err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}
