package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"projectflow/internal/model"
	"projectflow/internal/workflow"
	"projectflow/pkg/logger"
	"projectflow/pkg/rbac"
)

// ProjectHandler exposes the workflow coordinator operations over HTTP. The
// bearer token's subject and role form the actor of every call.
type ProjectHandler struct {
	registry *workflow.Registry
	logger   *zap.Logger
}

func NewProjectHandler(registry *workflow.Registry, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{registry: registry, logger: logger}
}

// OpenProject handles POST /projects
// contractor 只能以自己的身份开项目；admin 可以代开
func (h *ProjectHandler) OpenProject(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}

	var req workflow.ProjectInfo
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	switch actor.Role {
	case model.RoleContractor:
		if req.ContractorID == "" {
			req.ContractorID = actor.ID
		}
		if req.ContractorID != actor.ID {
			c.JSON(http.StatusForbidden, gin.H{"error": "contractorId does not match token"})
			return
		}
	case model.Role(rbac.RoleAdmin):
		if req.ContractorID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "contractorId is required"})
			return
		}
	default:
		c.JSON(http.StatusForbidden, gin.H{"error": "only a contractor can open a project"})
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	coord, err := h.registry.Open(c.Request.Context(), req)
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		writeError(c, err)
		return
	}

	logger.WithTrace(c.Request.Context(), h.logger).Info("Project opened via API",
		zap.String("project_id", req.ID),
		zap.String("actor_id", actor.ID))
	c.JSON(http.StatusCreated, coord.Snapshot())
}

// GetProject handles GET /projects/:id
func (h *ProjectHandler) GetProject(c *gin.Context) {
	_, coord, ok := h.partyCoordinator(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, coord.Snapshot())
}

// partyCoordinator resolves the actor and the :id project and checks that the
// actor is one of the project's parties.
func (h *ProjectHandler) partyCoordinator(c *gin.Context) (model.Actor, *workflow.Coordinator, bool) {
	actor, ok := getActor(c)
	if !ok {
		return actor, nil, false
	}
	coord, err := h.registry.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return actor, nil, false
	}
	if !isParty(coord.Info(), actor) {
		writeError(c, workflow.ErrUnknownActor)
		return actor, nil, false
	}
	return actor, coord, true
}

// respondMilestone writes the milestone's current state after an operation.
// It may already be gone if another request confirmed its deletion.
func respondMilestone(c *gin.Context, coord *workflow.Coordinator, milestoneID string) {
	m, ok := coord.Milestone(milestoneID)
	if !ok {
		writeError(c, workflow.ErrMilestoneNotFound)
		return
	}
	c.JSON(http.StatusOK, m)
}
