package handlers

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"task-board-api/internal/board"
	"task-board-api/internal/gateway"
	"task-board-api/internal/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

type wsMessage struct {
	Type  string     `json:"type"`
	View  board.View `json:"view"`
	Error string     `json:"error"`
}

func dialBoard(t *testing.T, f *fixture, projectID string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(f.router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/projects/" + projectID + "/ws?token=" + f.token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readUntil reads messages until match accepts one.
func readUntil(t *testing.T, conn *websocket.Conn, match func(wsMessage) bool) wsMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var msg wsMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if match(msg) {
			return msg
		}
	}
}

func isView(pred func(board.View) bool) func(wsMessage) bool {
	return func(m wsMessage) bool { return m.Type == "view" && pred(m.View) }
}

func TestBoardSocket_PushesSnapshots(t *testing.T) {
	f := newFixture(t)
	conn := dialBoard(t, f, "p-1")

	first := readUntil(t, conn, func(m wsMessage) bool { return m.Type == "view" })
	require.Equal(t, "p-1", first.View.ProjectID)
	require.Empty(t, first.View.Tasks)

	_, err := f.gw.Create(context.Background(), "m-bob", "p-1", gateway.Draft{Title: "Pushed", Assignees: models.MemberIDs{"m-alice"}})
	require.NoError(t, err)

	msg := readUntil(t, conn, isView(func(v board.View) bool { return len(v.Tasks) == 1 }))
	require.Equal(t, "Pushed", msg.View.Tasks[0].Title)
	require.Equal(t, []string{"Alice"}, msg.View.Tasks[0].AssigneeNames)
	require.Len(t, msg.View.Columns[0].Cards, 1)
}

func TestBoardSocket_FilterAndSortCommands(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, title := range []string{"b", "A", "c"} {
		_, err := f.gw.Create(ctx, "m-alice", "p-1", gateway.Draft{Title: title})
		require.NoError(t, err)
	}
	conn := dialBoard(t, f, "p-1")
	readUntil(t, conn, isView(func(v board.View) bool { return len(v.Tasks) == 3 }))

	require.NoError(t, conn.WriteJSON(clientMessage{Type: cmdSort, Field: board.SortTitle}))
	msg := readUntil(t, conn, isView(func(v board.View) bool { return v.Sort.Field == board.SortTitle }))
	require.Equal(t, board.Asc, msg.View.Sort.Direction)
	require.Equal(t, "A", msg.View.Tasks[0].Title)

	require.NoError(t, conn.WriteJSON(clientMessage{Type: cmdSort, Field: board.SortTitle}))
	msg = readUntil(t, conn, isView(func(v board.View) bool { return v.Sort.Direction == board.Desc }))
	require.Equal(t, "c", msg.View.Tasks[0].Title)

	require.NoError(t, conn.WriteJSON(clientMessage{Type: cmdFilter, Filter: &models.FilterSet{Search: "B"}}))
	msg = readUntil(t, conn, isView(func(v board.View) bool { return v.Filter.Search == "B" }))
	require.Len(t, msg.View.Tasks, 1)
	require.Equal(t, "b", msg.View.Tasks[0].Title)
	require.Equal(t, 3, msg.View.Total)
}

func TestBoardSocket_DragAndDrop(t *testing.T) {
	f := newFixture(t)
	id, err := f.gw.Create(context.Background(), "m-alice", "p-1", gateway.Draft{Title: "Drag me"})
	require.NoError(t, err)

	conn := dialBoard(t, f, "p-1")
	readUntil(t, conn, isView(func(v board.View) bool { return len(v.Tasks) == 1 }))

	require.NoError(t, conn.WriteJSON(clientMessage{Type: cmdDrop, Status: models.StatusDoing}))
	errMsg := readUntil(t, conn, func(m wsMessage) bool { return m.Type == "error" })
	require.Equal(t, board.ErrNotDragging.Error(), errMsg.Error)

	require.NoError(t, conn.WriteJSON(clientMessage{Type: cmdDragStart, TaskID: id}))
	readUntil(t, conn, isView(func(v board.View) bool { return v.Drag == board.DragDragging }))

	require.NoError(t, conn.WriteJSON(clientMessage{Type: cmdDrop, Status: models.StatusDoing}))
	msg := readUntil(t, conn, isView(func(v board.View) bool {
		return v.Drag == board.DragIdle && len(v.Columns[1].Cards) == 1
	}))
	require.Equal(t, id, msg.View.Columns[1].Cards[0].ID)
	require.False(t, msg.View.Columns[1].Cards[0].Pending)

	task, err := f.tasks.Get(context.Background(), "p-1", id)
	require.NoError(t, err)
	require.Equal(t, models.StatusDoing, task.Status)
}

func TestBoardSocket_ScopeChecksWorkspace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.dir.AddProject(ctx, models.Project{ID: "p-2", WorkspaceID: "w-1", Name: "Second"})
	require.NoError(t, err)
	_, err = f.gw.Create(ctx, "m-alice", "p-2", gateway.Draft{Title: "Other board"})
	require.NoError(t, err)

	conn := dialBoard(t, f, "p-1")
	readUntil(t, conn, func(m wsMessage) bool { return m.Type == "view" })

	require.NoError(t, conn.WriteJSON(clientMessage{Type: cmdScope, ProjectID: "p-other"}))
	readUntil(t, conn, func(m wsMessage) bool { return m.Type == "error" })

	require.NoError(t, conn.WriteJSON(clientMessage{Type: cmdScope, ProjectID: "p-2"}))
	msg := readUntil(t, conn, isView(func(v board.View) bool { return v.ProjectID == "p-2" && len(v.Tasks) == 1 }))
	require.Equal(t, "Other board", msg.View.Tasks[0].Title)

	// writes to the old project no longer reach this client
	_, err = f.gw.Create(ctx, "m-alice", "p-1", gateway.Draft{Title: "Stale"})
	require.NoError(t, err)
	_, err = f.gw.Create(ctx, "m-alice", "p-2", gateway.Draft{Title: "Fresh"})
	require.NoError(t, err)
	msg = readUntil(t, conn, isView(func(v board.View) bool { return len(v.Tasks) == 2 }))
	require.Equal(t, "p-2", msg.View.ProjectID)
}

func TestBoardSocket_RejectsForeignProject(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/projects/p-other/ws?token=" + f.token
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.Equal(t, 404, resp.StatusCode)
}
