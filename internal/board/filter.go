package board

import (
	"slices"
	"strings"

	"task-board-api/internal/models"
)

// Keep reports whether task passes every active constraint of f.
func Keep(task models.Task, f models.FilterSet) bool {
	if q := strings.TrimSpace(f.Search); q != "" {
		q = strings.ToLower(q)
		if !strings.Contains(strings.ToLower(task.Title), q) &&
			!strings.Contains(strings.ToLower(task.Description), q) {
			return false
		}
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, task.Status.Normalize()) {
		return false
	}
	if len(f.Priorities) > 0 && !slices.Contains(f.Priorities, task.Priority.Normalize()) {
		return false
	}
	if len(f.Categories) > 0 && !slices.Contains(f.Categories, task.Category.Normalize()) {
		return false
	}
	if len(f.Assignees) > 0 && !slices.ContainsFunc(task.Assignees, func(id string) bool {
		return slices.Contains(f.Assignees, id)
	}) {
		return false
	}
	return true
}

// Filter returns the tasks f keeps, in input order.
func Filter(tasks []models.Task, f models.FilterSet) []models.Task {
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if Keep(t, f) {
			out = append(out, t)
		}
	}
	return out
}
