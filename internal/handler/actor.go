package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"projectflow/internal/model"
	"projectflow/internal/workflow"
)

// ActorKey is the gin context key under which the auth middleware stores the
// model.Actor resolved from the bearer token.
const ActorKey = "actor"

func SetActor(c *gin.Context, actor model.Actor) {
	c.Set(ActorKey, actor)
}

// getActor 统一的 actor 读取工具
func getActor(c *gin.Context) (model.Actor, bool) {
	v, ok := c.Get(ActorKey)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return model.Actor{}, false
	}
	actor, ok := v.(model.Actor)
	if !ok || actor.ID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return model.Actor{}, false
	}
	return actor, true
}

func isParty(info workflow.ProjectInfo, actor model.Actor) bool {
	switch actor.Role {
	case model.RoleContractor:
		return actor.ID == info.ContractorID
	case model.RoleHomeowner:
		return info.HomeownerID != "" && actor.ID == info.HomeownerID
	}
	return false
}

// statusFor maps workflow errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, workflow.ErrProjectNotFound),
		errors.Is(err, workflow.ErrMilestoneNotFound),
		errors.Is(err, workflow.ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, workflow.ErrNegotiationPending),
		errors.Is(err, workflow.ErrNoPendingNegotiation),
		errors.Is(err, workflow.ErrMilestoneCompleted),
		errors.Is(err, workflow.ErrProjectConflict):
		return http.StatusConflict
	case errors.Is(err, workflow.ErrUnknownActor),
		errors.Is(err, workflow.ErrNotPermitted):
		return http.StatusForbidden
	case errors.Is(err, workflow.ErrEmptyMessage):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
