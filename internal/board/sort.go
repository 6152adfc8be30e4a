package board

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"task-board-api/internal/models"
)

// SortField names a scalar task field the table can be ordered by.
type SortField string

const (
	SortTitle         SortField = "title"
	SortDescription   SortField = "description"
	SortStatus        SortField = "status"
	SortPriority      SortField = "priority"
	SortCategory      SortField = "category"
	SortProgress      SortField = "progress"
	SortStart         SortField = "start"
	SortEnd           SortField = "end"
	SortCreatedAt     SortField = "createdAt"
	SortUpdatedAt     SortField = "updatedAt"
	SortCommentsCount SortField = "commentsCount"
	SortID            SortField = "id"
)

// Direction is the sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// SortState is the table's current ordering.
type SortState struct {
	Field     SortField `json:"field"`
	Direction Direction `json:"direction"`
}

// DefaultSort orders by creation time, oldest first.
var DefaultSort = SortState{Field: SortCreatedAt, Direction: Asc}

// Toggle flips direction when field is the current field and otherwise
// switches to field ascending.
func (s SortState) Toggle(field SortField) SortState {
	if s.Field == field {
		if s.Direction == Desc {
			return SortState{Field: field, Direction: Asc}
		}
		return SortState{Field: field, Direction: Desc}
	}
	return SortState{Field: field, Direction: Asc}
}

var epoch = time.Unix(0, 0).UTC()

func timeOrEpoch(t *time.Time) time.Time {
	if t == nil || t.IsZero() {
		return epoch
	}
	return *t
}

func foldCompare(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func compareField(a, b models.Task, field SortField) int {
	switch field {
	case SortTitle:
		return foldCompare(a.Title, b.Title)
	case SortDescription:
		return foldCompare(a.Description, b.Description)
	case SortStatus:
		return foldCompare(string(a.Status.Normalize()), string(b.Status.Normalize()))
	case SortPriority:
		return foldCompare(string(a.Priority.Normalize()), string(b.Priority.Normalize()))
	case SortCategory:
		return foldCompare(string(a.Category.Normalize()), string(b.Category.Normalize()))
	case SortProgress:
		return cmp.Compare(a.EffectiveProgress(), b.EffectiveProgress())
	case SortStart:
		return timeOrEpoch(a.Start).Compare(timeOrEpoch(b.Start))
	case SortEnd:
		return timeOrEpoch(a.End).Compare(timeOrEpoch(b.End))
	case SortCreatedAt:
		return timeOrEpoch(&a.CreatedAt).Compare(timeOrEpoch(&b.CreatedAt))
	case SortUpdatedAt:
		return timeOrEpoch(&a.UpdatedAt).Compare(timeOrEpoch(&b.UpdatedAt))
	case SortCommentsCount:
		return cmp.Compare(a.CommentsCount, b.CommentsCount)
	case SortID:
		return cmp.Compare(a.ID, b.ID)
	}
	return 0
}

// Compare orders a and b by field, returning -1, 0 or 1. Desc inverts the sign.
// Unknown fields compare equal.
func Compare(a, b models.Task, field SortField, dir Direction) int {
	c := compareField(a, b, field)
	switch {
	case c < 0:
		c = -1
	case c > 0:
		c = 1
	}
	if dir == Desc {
		return -c
	}
	return c
}

// Sort returns a stably sorted copy of tasks.
func Sort(tasks []models.Task, s SortState) []models.Task {
	out := slices.Clone(tasks)
	slices.SortStableFunc(out, func(a, b models.Task) int {
		return Compare(a, b, s.Field, s.Direction)
	})
	return out
}

// ValidSortField reports whether f is orderable.
func ValidSortField(f SortField) bool {
	switch f {
	case SortTitle, SortDescription, SortStatus, SortPriority, SortCategory, SortProgress,
		SortStart, SortEnd, SortCreatedAt, SortUpdatedAt, SortCommentsCount, SortID:
		return true
	}
	return false
}
