package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// TaskStatus represents the board column a task sits in
type TaskStatus string

const (
	StatusTodo   TaskStatus = "todo"
	StatusDoing  TaskStatus = "doing"
	StatusReview TaskStatus = "review"
)

// Statuses lists the board columns in display order.
var Statuses = []TaskStatus{StatusTodo, StatusDoing, StatusReview}

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusDoing, StatusReview:
		return true
	}
	return false
}

// Normalize returns s, or StatusTodo when s is not a known status.
func (s TaskStatus) Normalize() TaskStatus {
	if s.Valid() {
		return s
	}
	return StatusTodo
}

// TaskPriority represents the priority of a task
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Normalize returns p, or PriorityMedium when p is not a known priority.
func (p TaskPriority) Normalize() TaskPriority {
	if p.Valid() {
		return p
	}
	return PriorityMedium
}

// TaskCategory represents the kind of work a task tracks
type TaskCategory string

const (
	CategoryGeneral     TaskCategory = "General"
	CategoryDesign      TaskCategory = "Design"
	CategoryDevelopment TaskCategory = "Development"
	CategoryResearch    TaskCategory = "Research"
	CategoryMarketing   TaskCategory = "Marketing"
)

func (c TaskCategory) Valid() bool {
	switch c {
	case CategoryGeneral, CategoryDesign, CategoryDevelopment, CategoryResearch, CategoryMarketing:
		return true
	}
	return false
}

// Normalize returns c, or CategoryGeneral when c is not a known category.
func (c TaskCategory) Normalize() TaskCategory {
	if c.Valid() {
		return c
	}
	return CategoryGeneral
}

// ClampProgress bounds a progress value to [0,100].
func ClampProgress(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

// MemberIDs is an order-preserving set of member identifiers, stored as a JSON array column.
type MemberIDs []string

// Dedupe drops blanks and repeated ids, keeping first occurrences.
func (m MemberIDs) Dedupe() MemberIDs {
	out := make(MemberIDs, 0, len(m))
	seen := make(map[string]struct{}, len(m))
	for _, id := range m {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Contains reports whether id is in the set.
func (m MemberIDs) Contains(id string) bool {
	for _, v := range m {
		if v == id {
			return true
		}
	}
	return false
}

// Value implements driver.Valuer.
func (m MemberIDs) Value() (driver.Value, error) {
	if m == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(m))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (m *MemberIDs) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*m = MemberIDs{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("models: cannot scan %T into MemberIDs", src)
	}
	if len(raw) == 0 {
		*m = MemberIDs{}
		return nil
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return err
	}
	*m = ids
	return nil
}

// Task represents a card on a project board
type Task struct {
	ID            string       `json:"id" gorm:"primaryKey"`
	ProjectID     string       `json:"projectId" gorm:"column:project_id;index;not null"`
	Title         string       `json:"title" gorm:"not null"`
	Description   string       `json:"description"`
	Status        TaskStatus   `json:"status" gorm:"not null;default:'todo'"`
	Priority      TaskPriority `json:"priority" gorm:"default:'medium'"`
	Category      TaskCategory `json:"category" gorm:"default:'General'"`
	Progress      int          `json:"progress" gorm:"default:0"`
	Start         *time.Time   `json:"start,omitempty" gorm:"column:start_at"`
	End           *time.Time   `json:"end,omitempty" gorm:"column:end_at"`
	Assignees     MemberIDs    `json:"assignees" gorm:"type:text"`
	CommentsCount int          `json:"commentsCount" gorm:"column:comments_count;default:0"`
	CreatedBy     string       `json:"createdBy" gorm:"column:created_by"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// TableName specifies the table name for Task Model
func (Task) TableName() string {
	return "tasks"
}

// EffectiveProgress returns the stored progress clamped to [0,100].
func (t Task) EffectiveProgress() int {
	return ClampProgress(t.Progress)
}

// DisplayEnd returns End, falling back to Start.
func (t Task) DisplayEnd() *time.Time {
	if t.End != nil {
		return t.End
	}
	return t.Start
}
