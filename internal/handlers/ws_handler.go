package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"task-board-api/internal/board"
	"task-board-api/internal/models"
	"task-board-api/internal/realtime"
	"task-board-api/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// CORS is already handled at Gin level; allow upgrade from any origin here
		return true
	},
}

const writeWait = 5 * time.Second

func snapshotOf(projectID string, tasks []models.Task) realtime.Snapshot {
	return realtime.Snapshot{ProjectID: projectID, Tasks: tasks}
}

// Client commands.
const (
	cmdFilter     = "filter"
	cmdSort       = "sort"
	cmdScope      = "scope"
	cmdDragStart  = "dragStart"
	cmdDrop       = "drop"
	cmdDragCancel = "dragCancel"
)

type clientMessage struct {
	Type      string            `json:"type"`
	Filter    *models.FilterSet `json:"filter,omitempty"`
	Field     board.SortField   `json:"field,omitempty"`
	Direction board.Direction   `json:"direction,omitempty"`
	ProjectID string            `json:"projectId,omitempty"`
	TaskID    string            `json:"taskId,omitempty"`
	Status    models.TaskStatus `json:"status,omitempty"`
}

type serverMessage struct {
	Type  string      `json:"type"`
	View  *board.View `json:"view,omitempty"`
	Error string      `json:"error,omitempty"`
}

type moveResult struct {
	taskID string
	err    error
}

// boardSession owns one client's view controller. Every field is touched only
// from the run loop.
type boardSession struct {
	h           *Handler
	conn        *websocket.Conn
	vc          *board.ViewController
	memberID    string
	workspaceID string
	settled     chan moveResult
	logger      *log.Entry
}

// BoardSocket handles GET /api/projects/:projectId/ws
// It requires JWT middleware to have set the member in context.
func (h *Handler) BoardSocket(c *gin.Context) {
	p, ok := h.project(c)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	s := &boardSession{
		h:           h,
		conn:        conn,
		vc:          board.NewViewController(),
		memberID:    memberID(c),
		workspaceID: workspaceID(c),
		settled:     make(chan moveResult, 8),
		logger:      log.WithFields(log.Fields{"member_id": memberID(c), "project_id": p.ID}),
	}
	s.run(c.Request.Context(), p.ID)
}

func (s *boardSession) run(parent context.Context, projectID string) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	defer s.vc.Detach()

	s.refreshMembers(ctx)
	if err := s.vc.Attach(ctx, s.h.tasks, projectID); err != nil {
		s.logger.WithError(err).Error("board subscription failed")
		return
	}

	commands := make(chan clientMessage)
	go s.read(ctx, cancel, commands)

	ping := time.NewTicker(s.h.ws.PingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-s.vc.Updates():
			if !ok {
				return
			}
			s.refreshMembers(ctx)
			s.push(s.vc.SetSnapshot(snap))
		case msg := <-commands:
			s.handle(ctx, msg)
		case res := <-s.settled:
			s.push(s.vc.SettleMove(res.taskID, res.err))
		case <-ping.C:
			if err := s.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// read decodes client commands until the connection fails.
func (s *boardSession) read(ctx context.Context, cancel context.CancelFunc, out chan<- clientMessage) {
	defer cancel()
	s.conn.SetReadLimit(16 * 1024)
	_ = s.conn.SetReadDeadline(time.Now().Add(s.h.ws.ReadTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.h.ws.ReadTimeout))
	})
	for {
		var msg clientMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				s.logger.WithError(err).Debug("board socket read ended")
			}
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(s.h.ws.ReadTimeout))
		select {
		case out <- msg:
		case <-ctx.Done():
			return
		}
	}
}

func (s *boardSession) handle(ctx context.Context, msg clientMessage) {
	switch msg.Type {
	case cmdFilter:
		var f models.FilterSet
		if msg.Filter != nil {
			f = *msg.Filter
		}
		s.push(s.vc.SetFilter(f))
	case cmdSort:
		if msg.Direction != "" {
			s.push(s.vc.SetSort(board.SortState{Field: msg.Field, Direction: msg.Direction}))
		} else {
			s.push(s.vc.ToggleSort(msg.Field))
		}
	case cmdScope:
		s.scope(ctx, msg.ProjectID)
	case cmdDragStart:
		if err := s.vc.BeginDrag(msg.TaskID); err != nil {
			s.fail(err)
			return
		}
		s.push(s.vc.View())
	case cmdDragCancel:
		s.push(s.vc.CancelDrag())
	case cmdDrop:
		intent, ok, err := s.vc.Drop(msg.Status)
		if err != nil {
			s.fail(err)
			s.push(s.vc.View())
			return
		}
		s.push(s.vc.View())
		if ok {
			go s.move(ctx, intent)
		}
	default:
		s.fail(errors.New("unknown command " + msg.Type))
	}
}

// move writes a drop. The write outlives the session; only the result report is dropped.
func (s *boardSession) move(ctx context.Context, intent board.MoveIntent) {
	err := s.h.gateway.Move(context.WithoutCancel(ctx), s.memberID, intent.ProjectID, intent.TaskID, intent.To)
	select {
	case s.settled <- moveResult{taskID: intent.TaskID, err: err}:
	case <-ctx.Done():
		if err != nil {
			log.WithError(err).WithFields(log.Fields{
				"project_id": intent.ProjectID,
				"task_id":    intent.TaskID,
			}).Error("task move failed")
		}
	}
}

func (s *boardSession) scope(ctx context.Context, projectID string) {
	p, err := s.h.dir.Project(ctx, projectID)
	if err != nil || p.WorkspaceID != s.workspaceID {
		s.fail(store.ErrProjectNotFound)
		return
	}
	if err := s.vc.Attach(ctx, s.h.tasks, p.ID); err != nil {
		s.logger.WithError(err).Error("board subscription failed")
		s.fail(err)
		return
	}
	s.logger = s.logger.WithField("project_id", p.ID)
	s.push(s.vc.View())
}

func (s *boardSession) refreshMembers(ctx context.Context) {
	names, err := s.h.dir.MemberNames(ctx, s.workspaceID)
	if err != nil {
		s.logger.WithError(err).Warn("member directory unavailable")
		return
	}
	s.vc.SetMembers(names)
}

func (s *boardSession) push(v board.View) {
	s.write(serverMessage{Type: "view", View: &v})
}

func (s *boardSession) fail(err error) {
	s.write(serverMessage{Type: "error", Error: err.Error()})
}

func (s *boardSession) write(msg serverMessage) {
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(msg); err != nil {
		s.logger.WithError(err).Debug("board socket write failed")
	}
}
