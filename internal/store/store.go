package store

import (
	"context"
	"errors"
	"sync"

	"task-board-api/internal/models"
	"task-board-api/internal/realtime"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound    = errors.New("task not found")
	ErrProjectNotFound = errors.New("project not found")
	ErrMemberNotFound  = errors.New("member not found")
)

// TaskStore is the real-time task collection backing a board.
type TaskStore interface {
	Subscribe(ctx context.Context, projectID string) (*realtime.Subscription, error)
	List(ctx context.Context, projectID string) ([]models.Task, error)
	Get(ctx context.Context, projectID, taskID string) (models.Task, error)
	Create(ctx context.Context, task models.Task) (string, error)
	UpdateFields(ctx context.Context, projectID, taskID string, fields map[string]any) error
	Delete(ctx context.Context, projectID, taskID string) error
}

// GormStore persists tasks through gorm and publishes a snapshot after every write.
type GormStore struct {
	db  *gorm.DB
	hub *realtime.Hub

	// serializes list+publish so snapshot versions follow database order
	publishMu sync.Mutex
}

// NewGormStore wires a store to db and hub.
func NewGormStore(db *gorm.DB, hub *realtime.Hub) *GormStore {
	return &GormStore{db: db, hub: hub}
}

var _ TaskStore = (*GormStore)(nil)

// Subscribe registers for snapshots of projectID and queues the current list.
func (s *GormStore) Subscribe(ctx context.Context, projectID string) (*realtime.Subscription, error) {
	sub := s.hub.Subscribe(projectID)
	version := s.hub.Version(projectID)
	tasks, err := s.List(ctx, projectID)
	if err != nil {
		sub.Cancel()
		return nil, err
	}
	sub.Offer(realtime.Snapshot{ProjectID: projectID, Version: version, Tasks: tasks})
	return sub, nil
}

// List returns the project's tasks in creation order.
func (s *GormStore) List(ctx context.Context, projectID string) ([]models.Task, error) {
	var tasks []models.Task
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at asc").Order("id asc").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// Get returns one task of the project.
func (s *GormStore) Get(ctx context.Context, projectID, taskID string) (models.Task, error) {
	var task models.Task
	err := s.db.WithContext(ctx).Where("id = ? AND project_id = ?", taskID, projectID).First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Task{}, ErrTaskNotFound
		}
		return models.Task{}, err
	}
	return task, nil
}

// Create inserts task and returns its id. A blank id is replaced with a new uuid.
func (s *GormStore) Create(ctx context.Context, task models.Task) (string, error) {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.Assignees == nil {
		task.Assignees = models.MemberIDs{}
	}
	if err := s.db.WithContext(ctx).Create(&task).Error; err != nil {
		return "", err
	}
	s.publish(ctx, task.ProjectID)
	return task.ID, nil
}

// UpdateFields writes only the given columns.
func (s *GormStore) UpdateFields(ctx context.Context, projectID, taskID string, fields map[string]any) error {
	result := s.db.WithContext(ctx).Model(&models.Task{}).
		Where("id = ? AND project_id = ?", taskID, projectID).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	s.publish(ctx, projectID)
	return nil
}

// Delete removes the task permanently. Deleting a missing task is not an error.
func (s *GormStore) Delete(ctx context.Context, projectID, taskID string) error {
	result := s.db.WithContext(ctx).
		Where("id = ? AND project_id = ?", taskID, projectID).
		Delete(&models.Task{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		s.publish(ctx, projectID)
	}
	return nil
}

func (s *GormStore) publish(ctx context.Context, projectID string) {
	if s.hub.Subscribers(projectID) == 0 {
		return
	}
	s.publishMu.Lock()
	defer s.publishMu.Unlock()
	tasks, err := s.List(context.WithoutCancel(ctx), projectID)
	if err != nil {
		// the write already landed; subscribers catch up on the next one
		log.WithError(err).WithField("project_id", projectID).Error("snapshot reload failed")
		return
	}
	s.hub.Publish(projectID, tasks)
}
