package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"task-board-api/internal/models"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Kind names a notification type.
type Kind string

const (
	TaskAssigned Kind = "task_assigned"
	TaskMoved    Kind = "task_moved"
)

// Notification tells one member about a change made by someone else.
type Notification struct {
	Kind        Kind              `json:"kind"`
	RecipientID string            `json:"recipientId"`
	ActorID     string            `json:"actorId"`
	ProjectID   string            `json:"projectId"`
	TaskID      string            `json:"taskId"`
	TaskTitle   string            `json:"taskTitle,omitempty"`
	Status      models.TaskStatus `json:"status,omitempty"`
	At          time.Time         `json:"at"`
}

// Sink delivers notifications.
type Sink interface {
	Notify(ctx context.Context, n Notification) error
}

// LogSink writes notifications to the log.
type LogSink struct {
	Logger log.FieldLogger
}

func (s LogSink) Notify(_ context.Context, n Notification) error {
	l := s.Logger
	if l == nil {
		l = log.StandardLogger()
	}
	l.WithFields(log.Fields{
		"kind":       n.Kind,
		"recipient":  n.RecipientID,
		"actor":      n.ActorID,
		"project_id": n.ProjectID,
		"task_id":    n.TaskID,
	}).Info("notification")
	return nil
}

// RedisSink publishes each notification as JSON on "<prefix>:<recipient>".
type RedisSink struct {
	client *redis.Client
	prefix string
}

func NewRedisSink(client *redis.Client, prefix string) *RedisSink {
	if prefix == "" {
		prefix = "notifications"
	}
	return &RedisSink{client: client, prefix: prefix}
}

// Channel returns the pub/sub channel for a member.
func (s *RedisSink) Channel(memberID string) string {
	return fmt.Sprintf("%s:%s", s.prefix, memberID)
}

func (s *RedisSink) Notify(ctx context.Context, n Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, s.Channel(n.RecipientID), data).Err()
}

// Discard drops every notification.
type Discard struct{}

func (Discard) Notify(context.Context, Notification) error { return nil }
