package models

import (
	"strings"
	"time"
)

// TaskPatch carries the fields of a field-level edit. Nil fields are left unchanged.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *TaskStatus
	Priority    *TaskPriority
	Category    *TaskCategory
	Progress    *int
	Start       *time.Time
	ClearStart  bool
	End         *time.Time
	ClearEnd    bool
	Assignees   *MemberIDs
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil && p.Priority == nil &&
		p.Category == nil && p.Progress == nil && p.Start == nil && !p.ClearStart &&
		p.End == nil && !p.ClearEnd && p.Assignees == nil
}

// Merge overlays the fields set in other onto p.
func (p TaskPatch) Merge(other TaskPatch) TaskPatch {
	if other.Title != nil {
		p.Title = other.Title
	}
	if other.Description != nil {
		p.Description = other.Description
	}
	if other.Status != nil {
		p.Status = other.Status
	}
	if other.Priority != nil {
		p.Priority = other.Priority
	}
	if other.Category != nil {
		p.Category = other.Category
	}
	if other.Progress != nil {
		p.Progress = other.Progress
	}
	if other.Start != nil || other.ClearStart {
		p.Start, p.ClearStart = other.Start, other.ClearStart
	}
	if other.End != nil || other.ClearEnd {
		p.End, p.ClearEnd = other.End, other.ClearEnd
	}
	if other.Assignees != nil {
		p.Assignees = other.Assignees
	}
	return p
}

// ParseDate accepts the date layouts the board clients send.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04",
		"2006-01-02",  // ISO date
		"2 Jan 2006",  // e.g., 30 Oct 2025
		"02 Jan 2006", // zero-padded day
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
