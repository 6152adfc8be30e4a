package handlers

import (
	"errors"
	"net/http"
	"time"

	"task-board-api/internal/auth"
	"task-board-api/internal/board"
	"task-board-api/internal/config"
	"task-board-api/internal/gateway"
	"task-board-api/internal/middleware"
	"task-board-api/internal/models"
	"task-board-api/internal/store"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Handler serves the board API.
type Handler struct {
	tasks   store.TaskStore
	dir     *store.Directory
	gateway *gateway.Gateway
	issuer  *auth.TokenIssuer
	columns *board.ColumnSet
	ws      config.WSConfig
}

// New wires a Handler.
func New(tasks store.TaskStore, dir *store.Directory, gw *gateway.Gateway, issuer *auth.TokenIssuer, ws config.WSConfig) *Handler {
	if ws.PingInterval <= 0 {
		ws.PingInterval = 30 * time.Second
	}
	if ws.ReadTimeout <= 0 {
		ws.ReadTimeout = 2 * ws.PingInterval
	}
	return &Handler{
		tasks:   tasks,
		dir:     dir,
		gateway: gw,
		issuer:  issuer,
		columns: board.DefaultColumns(),
		ws:      ws,
	}
}

// Issuer returns the token issuer used by the auth middleware.
func (h *Handler) Issuer() *auth.TokenIssuer {
	return h.issuer
}

func memberID(c *gin.Context) string {
	return c.GetString(middleware.MemberIDKey)
}

func workspaceID(c *gin.Context) string {
	return c.GetString(middleware.WorkspaceIDKey)
}

// project loads :projectId and checks it belongs to the caller's workspace.
// On failure it writes the response and returns false.
func (h *Handler) project(c *gin.Context) (models.Project, bool) {
	p, err := h.dir.Project(c.Request.Context(), c.Param("projectId"))
	if err != nil {
		if errors.Is(err, store.ErrProjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		} else {
			log.WithError(err).Error("project lookup failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch project"})
		}
		return models.Project{}, false
	}
	if p.WorkspaceID != workspaceID(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return models.Project{}, false
	}
	return p, true
}

// memberNames resolves assignee names; a failed lookup degrades to "unknown" names.
func (h *Handler) memberNames(c *gin.Context) board.MemberNames {
	names, err := h.dir.MemberNames(c.Request.Context(), workspaceID(c))
	if err != nil {
		log.WithError(err).Warn("member directory unavailable")
		return board.MemberNames{}
	}
	return names
}

// respondError maps gateway and store errors onto HTTP responses.
func respondError(c *gin.Context, err error) {
	var verr *models.ValidationError
	var perr *models.PersistenceError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "field": verr.Field})
	case errors.Is(err, store.ErrTaskNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
	case errors.As(err, &perr):
		log.WithError(perr.Err).WithFields(log.Fields{"op": perr.Op, "task_id": perr.TaskID}).Error("task store write failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + perr.Op + " task"})
	default:
		log.WithError(err).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}
