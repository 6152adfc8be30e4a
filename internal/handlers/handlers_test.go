package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"task-board-api/internal/auth"
	"task-board-api/internal/board"
	"task-board-api/internal/config"
	"task-board-api/internal/gateway"
	"task-board-api/internal/middleware"
	"task-board-api/internal/models"
	"task-board-api/internal/notify"
	"task-board-api/internal/realtime"
	"task-board-api/internal/store"
	"task-board-api/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	router *gin.Engine
	h      *Handler
	tasks  *store.GormStore
	dir    *store.Directory
	gw     *gateway.Gateway
	alice  models.Member
	token  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	db := testutil.MustDB(t)
	st := store.NewGormStore(db, realtime.NewHub())
	dir := store.NewDirectory(db, time.Minute)
	gw := gateway.New(st, notify.Discard{})
	issuer := auth.NewTokenIssuer(config.AuthConfig{
		JWTSecret: "test-secret",
		Issuer:    "task-board-api",
		Audience:  "task-board-clients",
		TokenTTL:  time.Hour,
	})

	hash, err := auth.HashPassword("secret")
	require.NoError(t, err)
	alice, err := dir.AddMember(ctx, models.Member{ID: "m-alice", WorkspaceID: "w-1", Username: "alice", DisplayName: "Alice", PasswordHash: hash})
	require.NoError(t, err)
	_, err = dir.AddMember(ctx, models.Member{ID: "m-bob", WorkspaceID: "w-1", Username: "bob", PasswordHash: hash})
	require.NoError(t, err)
	_, err = dir.AddMember(ctx, models.Member{ID: "m-carol", WorkspaceID: "w-2", Username: "carol", PasswordHash: hash})
	require.NoError(t, err)
	_, err = dir.AddProject(ctx, models.Project{ID: "p-1", WorkspaceID: "w-1", Name: "Launch"})
	require.NoError(t, err)
	_, err = dir.AddProject(ctx, models.Project{ID: "p-other", WorkspaceID: "w-2", Name: "Elsewhere"})
	require.NoError(t, err)

	token, err := issuer.GenerateToken(alice)
	require.NoError(t, err)

	h := New(st, dir, gw, issuer, config.WSConfig{PingInterval: time.Second, ReadTimeout: 5 * time.Second})

	r := gin.New()
	r.POST("/api/login", h.Login)
	api := r.Group("/api")
	api.Use(middleware.JWTAuthMiddleware(issuer))
	api.GET("/members", h.GetMembers)
	p := api.Group("/projects/:projectId")
	p.GET("/tasks", h.ListTasks)
	p.POST("/tasks", h.CreateTask)
	p.GET("/tasks/:id", h.GetTask)
	p.PATCH("/tasks/:id", h.UpdateTask)
	p.PATCH("/tasks/:id/status", h.UpdateTaskStatus)
	p.PATCH("/tasks/:id/fields/:field", h.UpdateTaskField)
	p.DELETE("/tasks/:id", h.DeleteTask)
	p.GET("/board", h.GetBoard)
	p.GET("/table", h.GetTable)
	p.GET("/ws", h.BoardSocket)

	return &fixture{router: r, h: h, tasks: st, dir: dir, gw: gw, alice: alice, token: token}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (f *fixture) create(t *testing.T, body map[string]any) models.Task {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/projects/p-1/tasks", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.Task](t, w)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	f.token = ""

	w := f.do(t, http.MethodPost, "/api/login", gin.H{"username": "alice", "password": "secret"})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[LoginResponse](t, w)
	require.NotEmpty(t, resp.Token)
	require.Equal(t, "m-alice", resp.MemberID)
	require.Equal(t, "w-1", resp.WorkspaceID)

	w = f.do(t, http.MethodPost, "/api/login", gin.H{"username": "alice", "password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodPost, "/api/login", gin.H{"username": "nobody", "password": "secret"})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodPost, "/api/login", gin.H{"username": "alice"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	f := newFixture(t)
	f.token = ""
	w := f.do(t, http.MethodGet, "/api/projects/p-1/tasks", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetMembers_OnlyCallerWorkspace(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/api/members", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[struct {
		Members []MemberResponse `json:"members"`
		Count   int              `json:"count"`
	}](t, w)
	require.Equal(t, 2, resp.Count)
	names := map[string]string{}
	for _, m := range resp.Members {
		names[m.ID] = m.DisplayName
	}
	require.Equal(t, map[string]string{"m-alice": "Alice", "m-bob": "bob"}, names)
}

func TestCreateTask_Defaults(t *testing.T) {
	f := newFixture(t)
	task := f.create(t, map[string]any{"title": "Write docs", "progress": 150})

	require.Equal(t, "Write docs", task.Title)
	require.Equal(t, models.StatusTodo, task.Status)
	require.Equal(t, models.PriorityMedium, task.Priority)
	require.Equal(t, models.CategoryGeneral, task.Category)
	require.Equal(t, 100, task.Progress)
	require.Equal(t, models.MemberIDs{"m-alice"}, task.Assignees)
	require.Equal(t, "p-1", task.ProjectID)
}

func TestCreateTask_Validation(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/projects/p-1/tasks", gin.H{"title": "   "})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "title", decode[gin.H](t, w)["field"])

	w = f.do(t, http.MethodPost, "/api/projects/p-1/tasks", gin.H{"title": "ok", "start": "someday"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "start", decode[gin.H](t, w)["field"])

	w = f.do(t, http.MethodPost, "/api/projects/p-1/tasks", gin.H{"title": "ok", "priority": "urgent"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	tasks, err := f.tasks.List(context.Background(), "p-1")
	require.NoError(t, err)
	require.Empty(t, tasks)
}

func TestProjectOutsideWorkspaceIsNotFound(t *testing.T) {
	f := newFixture(t)
	for _, path := range []string{
		"/api/projects/p-other/tasks",
		"/api/projects/p-other/board",
		"/api/projects/missing/table",
	} {
		w := f.do(t, http.MethodGet, path, nil)
		require.Equal(t, http.StatusNotFound, w.Code, path)
	}
	w := f.do(t, http.MethodPost, "/api/projects/p-other/tasks", gin.H{"title": "sneaky"})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetTask(t *testing.T) {
	f := newFixture(t)
	task := f.create(t, map[string]any{"title": "Pair", "assignees": []string{"m-alice", "m-gone"}})

	w := f.do(t, http.MethodGet, "/api/projects/p-1/tasks/"+task.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	card := decode[board.Card](t, w)
	require.Equal(t, []string{"Alice", board.UnknownMember}, card.AssigneeNames)

	w = f.do(t, http.MethodGet, "/api/projects/p-1/tasks/missing", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateTask(t *testing.T) {
	f := newFixture(t)
	task := f.create(t, map[string]any{"title": "Draft", "start": "2025-03-01", "end": "2025-03-05"})
	require.NotNil(t, task.End)

	w := f.do(t, http.MethodPatch, "/api/projects/p-1/tasks/"+task.ID, gin.H{"title": "Final", "end": "", "progress": -5})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[models.Task](t, w)
	require.Equal(t, "Final", updated.Title)
	require.Nil(t, updated.End)
	require.NotNil(t, updated.Start)
	require.Equal(t, 0, updated.Progress)

	w = f.do(t, http.MethodPatch, "/api/projects/p-1/tasks/"+task.ID, gin.H{})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPatch, "/api/projects/p-1/tasks/missing", gin.H{"title": "x"})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateTaskStatus(t *testing.T) {
	f := newFixture(t)
	task := f.create(t, map[string]any{"title": "Move me"})

	w := f.do(t, http.MethodPatch, "/api/projects/p-1/tasks/"+task.ID+"/status", gin.H{"status": "doing"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, models.StatusDoing, decode[models.Task](t, w).Status)

	w = f.do(t, http.MethodPatch, "/api/projects/p-1/tasks/"+task.ID+"/status", gin.H{"status": "done"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPatch, "/api/projects/p-1/tasks/"+task.ID+"/status", gin.H{})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateTaskField(t *testing.T) {
	f := newFixture(t)
	task := f.create(t, map[string]any{"title": "Inline"})
	base := "/api/projects/p-1/tasks/" + task.ID + "/fields/"

	w := f.do(t, http.MethodPatch, base+"progress", gin.H{"value": "45%"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, 45, decode[models.Task](t, w).Progress)

	w = f.do(t, http.MethodPatch, base+"assignees", gin.H{"value": "m-bob, m-alice, m-bob"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, models.MemberIDs{"m-bob", "m-alice"}, decode[models.Task](t, w).Assignees)

	w = f.do(t, http.MethodPatch, base+"commentsCount", gin.H{"value": "3"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPatch, base+"colour", gin.H{"value": "red"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPatch, base+"start", gin.H{"value": "not a date"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteTask_Idempotent(t *testing.T) {
	f := newFixture(t)
	task := f.create(t, map[string]any{"title": "Temp"})

	for i := 0; i < 2; i++ {
		w := f.do(t, http.MethodDelete, "/api/projects/p-1/tasks/"+task.ID, nil)
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := f.do(t, http.MethodGet, "/api/projects/p-1/tasks", nil)
	require.Equal(t, 0, int(decode[gin.H](t, w)["count"].(float64)))
}

func TestGetBoard_FilterAndSort(t *testing.T) {
	f := newFixture(t)
	f.create(t, map[string]any{"title": "beta", "status": "doing"})
	f.create(t, map[string]any{"title": "Alpha", "status": "doing", "priority": "high"})
	f.create(t, map[string]any{"title": "gamma"})

	w := f.do(t, http.MethodGet, "/api/projects/p-1/board?status=doing&sort=title&dir=desc", nil)
	require.Equal(t, http.StatusOK, w.Code)
	v := decode[board.View](t, w)

	require.Equal(t, 3, v.Total)
	require.Len(t, v.Tasks, 2)
	require.Equal(t, "beta", v.Tasks[0].Title)
	require.Equal(t, "Alpha", v.Tasks[1].Title)
	require.Len(t, v.Columns, 3)
	require.Equal(t, models.StatusTodo, v.Columns[0].Status)
	require.Empty(t, v.Columns[0].Cards)
	require.Len(t, v.Columns[1].Cards, 2)

	w = f.do(t, http.MethodGet, "/api/projects/p-1/board?priority=high", nil)
	v = decode[board.View](t, w)
	require.Len(t, v.Tasks, 1)
	require.Equal(t, "Alpha", v.Tasks[0].Title)

	w = f.do(t, http.MethodGet, "/api/projects/p-1/board?sort=colour", nil)
	v = decode[board.View](t, w)
	require.Equal(t, board.DefaultSort, v.Sort)
	require.Len(t, v.Tasks, 3)
}

func TestGetTable(t *testing.T) {
	f := newFixture(t)
	task := f.create(t, map[string]any{"title": "Table row", "progress": 30, "assignees": []string{"m-alice", "m-bob"}})

	w := f.do(t, http.MethodGet, "/api/projects/p-1/table", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[struct {
		Columns []ColumnResponse `json:"columns"`
		Rows    []board.Row      `json:"rows"`
	}](t, w)

	require.NotEmpty(t, resp.Columns)
	require.Equal(t, "title", resp.Columns[0].Field)
	require.True(t, resp.Columns[0].Editable)
	require.Len(t, resp.Rows, 1)
	require.Equal(t, task.ID, resp.Rows[0].TaskID)
	require.Equal(t, "30%", resp.Rows[0].Cells["progress"])
	require.Equal(t, "Alice, bob", resp.Rows[0].Cells["assignees"])
}
