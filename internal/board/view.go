package board

import (
	"context"
	"errors"
	"slices"

	"task-board-api/internal/models"
	"task-board-api/internal/realtime"

	log "github.com/sirupsen/logrus"
)

// UnknownMember is shown for assignee ids missing from the member directory.
const UnknownMember = "unknown"

// MemberNames maps member ids to display names.
type MemberNames map[string]string

// Resolve returns the display name for each id, in order.
func (m MemberNames) Resolve(ids models.MemberIDs) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := m[id]; ok {
			names = append(names, name)
		} else {
			names = append(names, UnknownMember)
		}
	}
	return names
}

// Card is a task as rendered on the board.
type Card struct {
	models.Task
	AssigneeNames []string `json:"assigneeNames"`
	// Pending marks a task whose move is still being written.
	Pending bool `json:"pending"`
}

// Column is one status lane of the board.
type Column struct {
	Status models.TaskStatus `json:"status"`
	Cards  []Card            `json:"cards"`
}

// View is the derived, render-ready state. It is rebuilt, never mutated.
type View struct {
	ProjectID string           `json:"projectId"`
	Version   uint64           `json:"version"`
	Filter    models.FilterSet `json:"filter"`
	Sort      SortState        `json:"sort"`
	Tasks     []Card           `json:"tasks"`
	Columns   []Column         `json:"columns"`
	Total     int              `json:"total"`
	Drag      DragPhase        `json:"drag"`
}

// Derive runs filter, sort and grouping over tasks.
func Derive(tasks []models.Task, f models.FilterSet, s SortState, members MemberNames, pending map[string]struct{}) View {
	ordered := Sort(Filter(tasks, f), s)

	card := func(t models.Task) Card {
		_, isPending := pending[t.ID]
		return Card{Task: t, AssigneeNames: members.Resolve(t.Assignees), Pending: isPending}
	}

	v := View{
		Filter:  f,
		Sort:    s,
		Tasks:   make([]Card, 0, len(ordered)),
		Columns: make([]Column, 0, len(models.Statuses)),
		Total:   len(tasks),
	}
	for _, t := range ordered {
		v.Tasks = append(v.Tasks, card(t))
	}
	buckets := Group(ordered)
	for _, status := range models.Statuses {
		col := Column{Status: status, Cards: make([]Card, 0, len(buckets[status]))}
		for _, t := range buckets[status] {
			col.Cards = append(col.Cards, card(t))
		}
		v.Columns = append(v.Columns, col)
	}
	return v
}

// SnapshotSource opens task subscriptions for a project.
type SnapshotSource interface {
	Subscribe(ctx context.Context, projectID string) (*realtime.Subscription, error)
}

// DragPhase is the pointer side of the drag-and-drop state machine.
type DragPhase string

const (
	DragIdle     DragPhase = "idle"
	DragDragging DragPhase = "dragging"
	DragPending  DragPhase = "pending-write"
)

// MoveIntent is a status change the caller must write to the store.
type MoveIntent struct {
	ProjectID string
	TaskID    string
	From      models.TaskStatus
	To        models.TaskStatus
}

var (
	ErrNotDragging   = errors.New("no drag in progress")
	ErrUnknownTask   = errors.New("task is not on the board")
	ErrMovePending   = errors.New("task move is still being written")
	ErrInvalidColumn = errors.New("drop target is not a board column")
)

// ViewController holds the inputs of one client's board and recomputes its view
// whenever an input changes. It is not safe for concurrent use; a single event
// loop owns each controller.
type ViewController struct {
	projectID string
	version   uint64
	raw       []models.Task
	filter    models.FilterSet
	sort      SortState
	members   MemberNames

	sub *realtime.Subscription

	dragging string
	pending  map[string]struct{}

	view View
}

// NewViewController returns a detached controller with the default sort.
func NewViewController() *ViewController {
	vc := &ViewController{
		sort:    DefaultSort,
		members: MemberNames{},
		pending: make(map[string]struct{}),
	}
	vc.Recompute()
	return vc
}

// Attach subscribes to projectID, cancelling any previous subscription first.
func (vc *ViewController) Attach(ctx context.Context, src SnapshotSource, projectID string) error {
	vc.Detach()
	sub, err := src.Subscribe(ctx, projectID)
	if err != nil {
		return err
	}
	vc.sub = sub
	vc.projectID = projectID
	vc.Recompute()
	return nil
}

// Detach cancels the active subscription and clears project state.
func (vc *ViewController) Detach() {
	if vc.sub != nil {
		vc.sub.Cancel()
		vc.sub = nil
	}
	vc.projectID = ""
	vc.version = 0
	vc.raw = nil
	vc.dragging = ""
	clear(vc.pending)
	vc.Recompute()
}

// Updates returns the active subscription's channel, or nil when detached.
func (vc *ViewController) Updates() <-chan realtime.Snapshot {
	if vc.sub == nil {
		return nil
	}
	return vc.sub.C()
}

// ProjectID returns the attached project.
func (vc *ViewController) ProjectID() string {
	return vc.projectID
}

// SetSnapshot replaces the raw task list. Snapshots for another project are ignored.
func (vc *ViewController) SetSnapshot(snap realtime.Snapshot) View {
	if vc.projectID != "" && snap.ProjectID != vc.projectID {
		return vc.view
	}
	if vc.projectID == "" {
		vc.projectID = snap.ProjectID
	}
	vc.version = snap.Version
	vc.raw = snap.Tasks
	if vc.dragging != "" && !vc.has(vc.dragging) {
		vc.dragging = ""
	}
	return vc.Recompute()
}

// SetFilter replaces the filter set.
func (vc *ViewController) SetFilter(f models.FilterSet) View {
	vc.filter = f
	return vc.Recompute()
}

// SetSort replaces the sort state. Unknown fields fall back to the default sort.
func (vc *ViewController) SetSort(s SortState) View {
	if !ValidSortField(s.Field) {
		s = DefaultSort
	}
	if s.Direction != Desc {
		s.Direction = Asc
	}
	vc.sort = s
	return vc.Recompute()
}

// ToggleSort applies SortState.Toggle for field.
func (vc *ViewController) ToggleSort(field SortField) View {
	return vc.SetSort(vc.sort.Toggle(field))
}

// SetMembers replaces the member directory used for assignee names.
func (vc *ViewController) SetMembers(m MemberNames) View {
	if m == nil {
		m = MemberNames{}
	}
	vc.members = m
	return vc.Recompute()
}

// Recompute derives the current view from the controller's inputs.
func (vc *ViewController) Recompute() View {
	v := Derive(vc.raw, vc.filter, vc.sort, vc.members, vc.pending)
	v.ProjectID = vc.projectID
	v.Version = vc.version
	v.Drag = vc.DragPhase()
	vc.view = v
	return v
}

// View returns the last computed view.
func (vc *ViewController) View() View {
	return vc.view
}

// DragPhase reports the state of the drag-and-drop machine.
func (vc *ViewController) DragPhase() DragPhase {
	switch {
	case vc.dragging != "":
		return DragDragging
	case len(vc.pending) > 0:
		return DragPending
	}
	return DragIdle
}

func (vc *ViewController) find(taskID string) (models.Task, bool) {
	i := slices.IndexFunc(vc.raw, func(t models.Task) bool { return t.ID == taskID })
	if i < 0 {
		return models.Task{}, false
	}
	return vc.raw[i], true
}

func (vc *ViewController) has(taskID string) bool {
	_, ok := vc.find(taskID)
	return ok
}

// BeginDrag picks up taskID.
func (vc *ViewController) BeginDrag(taskID string) error {
	if _, ok := vc.find(taskID); !ok {
		return ErrUnknownTask
	}
	if _, ok := vc.pending[taskID]; ok {
		return ErrMovePending
	}
	vc.dragging = taskID
	vc.Recompute()
	return nil
}

// CancelDrag returns to idle without a write.
func (vc *ViewController) CancelDrag() View {
	vc.dragging = ""
	return vc.Recompute()
}

// Drop releases the dragged task over column to. Dropping on the task's own
// column is a no-op and returns ok=false; otherwise the task becomes pending and
// the returned intent must be written by the caller, who reports back through
// SettleMove.
func (vc *ViewController) Drop(to models.TaskStatus) (MoveIntent, bool, error) {
	if vc.dragging == "" {
		return MoveIntent{}, false, ErrNotDragging
	}
	taskID := vc.dragging
	vc.dragging = ""
	if !to.Valid() {
		vc.Recompute()
		return MoveIntent{}, false, ErrInvalidColumn
	}
	task, ok := vc.find(taskID)
	if !ok {
		vc.Recompute()
		return MoveIntent{}, false, ErrUnknownTask
	}
	if task.Status == to {
		vc.Recompute()
		return MoveIntent{}, false, nil
	}
	vc.pending[taskID] = struct{}{}
	vc.Recompute()
	return MoveIntent{ProjectID: vc.projectID, TaskID: taskID, From: task.Status, To: to}, true, nil
}

// SettleMove clears the pending flag once the write for taskID has finished.
// A failed write is logged; the next snapshot keeps the task where the store has it.
func (vc *ViewController) SettleMove(taskID string, err error) View {
	delete(vc.pending, taskID)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"project_id": vc.projectID,
			"task_id":    taskID,
		}).Error("task move failed")
	}
	return vc.Recompute()
}
