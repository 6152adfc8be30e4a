package gateway

import (
	"context"
	"strings"
	"time"

	"task-board-api/internal/models"
	"task-board-api/internal/notify"
	"task-board-api/internal/store"

	log "github.com/sirupsen/logrus"
)

// Draft is the input of a task creation.
type Draft struct {
	Title       string
	Description string
	Status      models.TaskStatus
	Priority    models.TaskPriority
	Category    models.TaskCategory
	Progress    int
	Start       *time.Time
	End         *time.Time
	Assignees   models.MemberIDs
}

// Gateway turns user actions into task store writes.
type Gateway struct {
	store store.TaskStore
	sink  notify.Sink
	now   func() time.Time
}

// New returns a gateway writing to st and notifying through sink.
func New(st store.TaskStore, sink notify.Sink) *Gateway {
	if sink == nil {
		sink = notify.Discard{}
	}
	return &Gateway{store: st, sink: sink, now: time.Now}
}

func invalid(field, reason string) error {
	return &models.ValidationError{Field: field, Reason: reason}
}

// Create validates d and inserts a new task on behalf of actor.
func (g *Gateway) Create(ctx context.Context, actor, projectID string, d Draft) (string, error) {
	title := strings.TrimSpace(d.Title)
	if title == "" {
		return "", invalid("title", "title is required")
	}
	if projectID == "" {
		return "", invalid("projectId", "project is required")
	}

	status := d.Status
	if status == "" {
		status = models.StatusTodo
	} else if !status.Valid() {
		return "", invalid("status", "unknown status")
	}
	priority := d.Priority
	if priority == "" {
		priority = models.PriorityMedium
	} else if !priority.Valid() {
		return "", invalid("priority", "unknown priority")
	}
	category := d.Category
	if category == "" {
		category = models.CategoryGeneral
	} else if !category.Valid() {
		return "", invalid("category", "unknown category")
	}

	assignees := d.Assignees.Dedupe()
	if len(assignees) == 0 && actor != "" {
		assignees = models.MemberIDs{actor}
	}

	now := g.now()
	task := models.Task{
		ProjectID:   projectID,
		Title:       title,
		Description: d.Description,
		Status:      status,
		Priority:    priority,
		Category:    category,
		Progress:    models.ClampProgress(d.Progress),
		Start:       d.Start,
		End:         d.End,
		Assignees:   assignees,
		CreatedBy:   actor,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	id, err := g.store.Create(ctx, task)
	if err != nil {
		return "", &models.PersistenceError{Op: "create", Err: err}
	}
	task.ID = id

	log.WithFields(log.Fields{"project_id": projectID, "task_id": id, "actor": actor}).Info("task created")
	g.notifyAssigned(ctx, actor, task, assignees)
	return id, nil
}

// fields converts p into the column updates it implies, validating as it goes.
func fields(p models.TaskPatch) (map[string]any, error) {
	upd := make(map[string]any)
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return nil, invalid("title", "title is required")
		}
		upd["title"] = title
	}
	if p.Description != nil {
		upd["description"] = *p.Description
	}
	if p.Status != nil {
		if !p.Status.Valid() {
			return nil, invalid("status", "unknown status")
		}
		upd["status"] = *p.Status
	}
	if p.Priority != nil {
		if !p.Priority.Valid() {
			return nil, invalid("priority", "unknown priority")
		}
		upd["priority"] = *p.Priority
	}
	if p.Category != nil {
		if !p.Category.Valid() {
			return nil, invalid("category", "unknown category")
		}
		upd["category"] = *p.Category
	}
	if p.Progress != nil {
		upd["progress"] = models.ClampProgress(*p.Progress)
	}
	if p.Start != nil {
		upd["start_at"] = *p.Start
	} else if p.ClearStart {
		upd["start_at"] = nil
	}
	if p.End != nil {
		upd["end_at"] = *p.End
	} else if p.ClearEnd {
		upd["end_at"] = nil
	}
	if p.Assignees != nil {
		upd["assignees"] = p.Assignees.Dedupe()
	}
	return upd, nil
}

// UpdateFields writes the fields set in p plus the update time.
func (g *Gateway) UpdateFields(ctx context.Context, actor, projectID, taskID string, p models.TaskPatch) error {
	if p.IsEmpty() {
		return invalid("", "nothing to update")
	}
	upd, err := fields(p)
	if err != nil {
		return err
	}

	// the previous state is only needed to work out who to notify
	var before *models.Task
	if p.Assignees != nil || p.Status != nil {
		if t, err := g.store.Get(ctx, projectID, taskID); err == nil {
			before = &t
		}
	}

	upd["updated_at"] = g.now()
	if err := g.store.UpdateFields(ctx, projectID, taskID, upd); err != nil {
		return &models.PersistenceError{Op: "update", TaskID: taskID, Err: err}
	}

	if before != nil {
		after := *before
		if p.Assignees != nil {
			after.Assignees = p.Assignees.Dedupe()
			var added models.MemberIDs
			for _, id := range after.Assignees {
				if !before.Assignees.Contains(id) {
					added = append(added, id)
				}
			}
			g.notifyAssigned(ctx, actor, after, added)
		}
		if p.Status != nil && *p.Status != before.Status {
			after.Status = *p.Status
			g.notifyMoved(ctx, actor, after)
		}
	}
	return nil
}

// Move changes only the status of a task.
func (g *Gateway) Move(ctx context.Context, actor, projectID, taskID string, to models.TaskStatus) error {
	return g.UpdateFields(ctx, actor, projectID, taskID, models.TaskPatch{Status: &to})
}

// Delete removes a task. Deleting a task that no longer exists succeeds.
func (g *Gateway) Delete(ctx context.Context, actor, projectID, taskID string) error {
	if err := g.store.Delete(ctx, projectID, taskID); err != nil {
		return &models.PersistenceError{Op: "delete", TaskID: taskID, Err: err}
	}
	log.WithFields(log.Fields{"project_id": projectID, "task_id": taskID, "actor": actor}).Info("task deleted")
	return nil
}

func (g *Gateway) notifyAssigned(ctx context.Context, actor string, task models.Task, recipients models.MemberIDs) {
	for _, id := range recipients {
		if id == actor {
			continue
		}
		g.send(ctx, notify.Notification{
			Kind:        notify.TaskAssigned,
			RecipientID: id,
			ActorID:     actor,
			ProjectID:   task.ProjectID,
			TaskID:      task.ID,
			TaskTitle:   task.Title,
			Status:      task.Status,
			At:          g.now(),
		})
	}
}

func (g *Gateway) notifyMoved(ctx context.Context, actor string, task models.Task) {
	for _, id := range task.Assignees {
		if id == actor {
			continue
		}
		g.send(ctx, notify.Notification{
			Kind:        notify.TaskMoved,
			RecipientID: id,
			ActorID:     actor,
			ProjectID:   task.ProjectID,
			TaskID:      task.ID,
			TaskTitle:   task.Title,
			Status:      task.Status,
			At:          g.now(),
		})
	}
}

func (g *Gateway) send(ctx context.Context, n notify.Notification) {
	if err := g.sink.Notify(ctx, n); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"kind":      n.Kind,
			"recipient": n.RecipientID,
			"task_id":   n.TaskID,
		}).Warn("notification not delivered")
	}
}
