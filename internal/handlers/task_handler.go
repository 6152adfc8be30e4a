package handlers

import (
	"net/http"
	"strings"
	"time"

	"task-board-api/internal/board"
	"task-board-api/internal/gateway"
	"task-board-api/internal/models"

	"github.com/gin-gonic/gin"
)

// CreateTaskRequest represents the request payload for creating a task
type CreateTaskRequest struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Status      models.TaskStatus   `json:"status"`
	Priority    models.TaskPriority `json:"priority"`
	Category    models.TaskCategory `json:"category"`
	Progress    int                 `json:"progress"`
	Start       string              `json:"start"`
	End         string              `json:"end"`
	Assignees   []string            `json:"assignees"`
}

// UpdateTaskRequest represents the request payload for updating a task.
// An empty start or end clears the date.
type UpdateTaskRequest struct {
	Title       *string              `json:"title"`
	Description *string              `json:"description"`
	Status      *models.TaskStatus   `json:"status"`
	Priority    *models.TaskPriority `json:"priority"`
	Category    *models.TaskCategory `json:"category"`
	Progress    *int                 `json:"progress"`
	Start       *string              `json:"start"`
	End         *string              `json:"end"`
	Assignees   *[]string            `json:"assignees"`
}

// UpdateTaskStatusRequest is a drag-and-drop move
type UpdateTaskStatusRequest struct {
	Status models.TaskStatus `json:"status" binding:"required"`
}

// UpdateFieldRequest is an inline table cell edit
type UpdateFieldRequest struct {
	Value string `json:"value"`
}

func optionalDate(field, raw string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	t, ok := models.ParseDate(raw)
	if !ok {
		return nil, &models.ValidationError{Field: field, Reason: "unrecognized date"}
	}
	return &t, nil
}

func (r UpdateTaskRequest) patch() (models.TaskPatch, error) {
	p := models.TaskPatch{
		Title:       r.Title,
		Description: r.Description,
		Status:      r.Status,
		Priority:    r.Priority,
		Category:    r.Category,
		Progress:    r.Progress,
	}
	if r.Start != nil {
		t, err := optionalDate("start", *r.Start)
		if err != nil {
			return p, err
		}
		p.Start, p.ClearStart = t, t == nil
	}
	if r.End != nil {
		t, err := optionalDate("end", *r.End)
		if err != nil {
			return p, err
		}
		p.End, p.ClearEnd = t, t == nil
	}
	if r.Assignees != nil {
		ids := models.MemberIDs(*r.Assignees)
		p.Assignees = &ids
	}
	return p, nil
}

// ListTasks handles GET /api/projects/:projectId/tasks
func (h *Handler) ListTasks(c *gin.Context) {
	p, ok := h.project(c)
	if !ok {
		return
	}
	tasks, err := h.tasks.List(c.Request.Context(), p.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tasks"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tasks": tasks,
		"count": len(tasks),
	})
}

// GetTask handles GET /api/projects/:projectId/tasks/:id
func (h *Handler) GetTask(c *gin.Context) {
	p, ok := h.project(c)
	if !ok {
		return
	}
	task, err := h.tasks.Get(c.Request.Context(), p.ID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	names := h.memberNames(c)
	c.JSON(http.StatusOK, board.Card{Task: task, AssigneeNames: names.Resolve(task.Assignees)})
}

// CreateTask handles POST /api/projects/:projectId/tasks
func (h *Handler) CreateTask(c *gin.Context) {
	p, ok := h.project(c)
	if !ok {
		return
	}
	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	start, err := optionalDate("start", req.Start)
	if err != nil {
		respondError(c, err)
		return
	}
	end, err := optionalDate("end", req.End)
	if err != nil {
		respondError(c, err)
		return
	}

	id, err := h.gateway.Create(c.Request.Context(), memberID(c), p.ID, gateway.Draft{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		Category:    req.Category,
		Progress:    req.Progress,
		Start:       start,
		End:         end,
		Assignees:   models.MemberIDs(req.Assignees),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	task, err := h.tasks.Get(c.Request.Context(), p.ID, id)
	if err != nil {
		c.JSON(http.StatusCreated, gin.H{"id": id})
		return
	}
	c.JSON(http.StatusCreated, task)
}

// UpdateTask handles PATCH /api/projects/:projectId/tasks/:id
func (h *Handler) UpdateTask(c *gin.Context) {
	p, ok := h.project(c)
	if !ok {
		return
	}
	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	patch, err := req.patch()
	if err != nil {
		respondError(c, err)
		return
	}
	h.applyPatch(c, p.ID, patch)
}

// UpdateTaskStatus handles PATCH /api/projects/:projectId/tasks/:id/status
func (h *Handler) UpdateTaskStatus(c *gin.Context) {
	p, ok := h.project(c)
	if !ok {
		return
	}
	var req UpdateTaskStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	taskID := c.Param("id")
	if err := h.gateway.Move(c.Request.Context(), memberID(c), p.ID, taskID, req.Status); err != nil {
		respondError(c, err)
		return
	}
	h.respondTask(c, p.ID, taskID)
}

// UpdateTaskField handles PATCH /api/projects/:projectId/tasks/:id/fields/:field
func (h *Handler) UpdateTaskField(c *gin.Context) {
	p, ok := h.project(c)
	if !ok {
		return
	}
	var req UpdateFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	patch, err := h.columns.Edit(board.SortField(c.Param("field")), req.Value)
	if err != nil {
		respondError(c, err)
		return
	}
	h.applyPatch(c, p.ID, patch)
}

func (h *Handler) applyPatch(c *gin.Context, projectID string, patch models.TaskPatch) {
	taskID := c.Param("id")
	if err := h.gateway.UpdateFields(c.Request.Context(), memberID(c), projectID, taskID, patch); err != nil {
		respondError(c, err)
		return
	}
	h.respondTask(c, projectID, taskID)
}

func (h *Handler) respondTask(c *gin.Context, projectID, taskID string) {
	task, err := h.tasks.Get(c.Request.Context(), projectID, taskID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// DeleteTask handles DELETE /api/projects/:projectId/tasks/:id
func (h *Handler) DeleteTask(c *gin.Context) {
	p, ok := h.project(c)
	if !ok {
		return
	}
	taskID := c.Param("id")
	if err := h.gateway.Delete(c.Request.Context(), memberID(c), p.ID, taskID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Task deleted successfully",
		"id":      taskID,
	})
}

// filterFromQuery reads the filter bar state from repeated query params.
func filterFromQuery(c *gin.Context) models.FilterSet {
	f := models.FilterSet{Search: c.Query("search")}
	for _, s := range c.QueryArray("status") {
		f.Statuses = append(f.Statuses, models.TaskStatus(s))
	}
	for _, p := range c.QueryArray("priority") {
		f.Priorities = append(f.Priorities, models.TaskPriority(p))
	}
	for _, cat := range c.QueryArray("category") {
		f.Categories = append(f.Categories, models.TaskCategory(cat))
	}
	f.Assignees = c.QueryArray("assignee")
	return f
}

func sortFromQuery(c *gin.Context) board.SortState {
	field := c.Query("sort")
	if field == "" {
		return board.DefaultSort
	}
	return board.SortState{
		Field:     board.SortField(field),
		Direction: board.Direction(strings.ToLower(c.DefaultQuery("dir", "asc"))),
	}
}

// view runs the board pipeline once over the project's current tasks.
func (h *Handler) view(c *gin.Context, projectID string) (board.View, board.MemberNames, bool) {
	tasks, err := h.tasks.List(c.Request.Context(), projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tasks"})
		return board.View{}, nil, false
	}
	names := h.memberNames(c)
	vc := board.NewViewController()
	vc.SetMembers(names)
	vc.SetFilter(filterFromQuery(c))
	vc.SetSort(sortFromQuery(c))
	v := vc.SetSnapshot(snapshotOf(projectID, tasks))
	return v, names, true
}

// GetBoard handles GET /api/projects/:projectId/board
func (h *Handler) GetBoard(c *gin.Context) {
	p, ok := h.project(c)
	if !ok {
		return
	}
	v, _, ok := h.view(c, p.ID)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, v)
}

// ColumnResponse describes a table column.
type ColumnResponse struct {
	Field    string `json:"field"`
	Label    string `json:"label"`
	Editable bool   `json:"editable"`
}

// GetTable handles GET /api/projects/:projectId/table
func (h *Handler) GetTable(c *gin.Context) {
	p, ok := h.project(c)
	if !ok {
		return
	}
	v, names, ok := h.view(c, p.ID)
	if !ok {
		return
	}
	cols := h.columns.Columns()
	meta := make([]ColumnResponse, 0, len(cols))
	for _, col := range cols {
		meta = append(meta, ColumnResponse{Field: string(col.Field), Label: col.Label, Editable: col.Editable()})
	}
	c.JSON(http.StatusOK, gin.H{
		"columns": meta,
		"rows":    h.columns.Rows(v.Tasks, names),
		"sort":    v.Sort,
		"filter":  v.Filter,
		"total":   v.Total,
	})
}
