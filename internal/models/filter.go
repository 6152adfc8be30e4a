package models

import "strings"

// FilterSet holds the board filter bar state. Empty fields place no constraint.
type FilterSet struct {
	Search     string         `json:"search"`
	Statuses   []TaskStatus   `json:"statuses"`
	Priorities []TaskPriority `json:"priorities"`
	Categories []TaskCategory `json:"categories"`
	Assignees  []string       `json:"assignees"`
}

// IsEmpty reports whether no constraint is active.
func (f FilterSet) IsEmpty() bool {
	return strings.TrimSpace(f.Search) == "" && len(f.Statuses) == 0 && len(f.Priorities) == 0 &&
		len(f.Categories) == 0 && len(f.Assignees) == 0
}
