package board

import (
	"strconv"
	"strings"
	"time"

	"task-board-api/internal/models"
)

// FieldColumn describes how one task field is shown and edited in the table.
// Edit is nil for read-only columns.
type FieldColumn struct {
	Field    SortField
	Label    string
	Render   func(t models.Task, members MemberNames) string
	Edit     func(raw string) (models.TaskPatch, error)
	Validate func(raw string) error
}

// Editable reports whether the column accepts inline edits.
func (c FieldColumn) Editable() bool {
	return c.Edit != nil
}

// ColumnSet is the table's field dispatch table.
type ColumnSet struct {
	order []SortField
	byID  map[SortField]FieldColumn
}

// NewColumnSet builds a dispatch table from cols, keeping their order.
func NewColumnSet(cols ...FieldColumn) *ColumnSet {
	cs := &ColumnSet{byID: make(map[SortField]FieldColumn, len(cols))}
	for _, c := range cols {
		cs.Register(c)
	}
	return cs
}

// Register adds or replaces the column for c.Field. A column with Edit but no
// Validate is validated by running Edit.
func (cs *ColumnSet) Register(c FieldColumn) {
	if c.Edit != nil && c.Validate == nil {
		edit := c.Edit
		c.Validate = func(raw string) error {
			_, err := edit(raw)
			return err
		}
	}
	if _, exists := cs.byID[c.Field]; !exists {
		cs.order = append(cs.order, c.Field)
	}
	cs.byID[c.Field] = c
}

// Lookup returns the column for field.
func (cs *ColumnSet) Lookup(field SortField) (FieldColumn, bool) {
	c, ok := cs.byID[field]
	return c, ok
}

// Columns returns the columns in display order.
func (cs *ColumnSet) Columns() []FieldColumn {
	out := make([]FieldColumn, 0, len(cs.order))
	for _, f := range cs.order {
		out = append(out, cs.byID[f])
	}
	return out
}

// Row is one rendered table row.
type Row struct {
	TaskID  string            `json:"taskId"`
	Cells   map[string]string `json:"cells"`
	Pending bool              `json:"pending"`
}

// Rows renders cards through every column.
func (cs *ColumnSet) Rows(cards []Card, members MemberNames) []Row {
	rows := make([]Row, 0, len(cards))
	for _, card := range cards {
		cells := make(map[string]string, len(cs.order))
		for _, f := range cs.order {
			cells[string(f)] = cs.byID[f].Render(card.Task, members)
		}
		rows = append(rows, Row{TaskID: card.ID, Cells: cells, Pending: card.Pending})
	}
	return rows
}

// Edit parses raw for field into a patch.
func (cs *ColumnSet) Edit(field SortField, raw string) (models.TaskPatch, error) {
	c, ok := cs.byID[field]
	if !ok {
		return models.TaskPatch{}, &models.ValidationError{Field: string(field), Reason: "unknown column"}
	}
	if c.Edit == nil {
		return models.TaskPatch{}, &models.ValidationError{Field: string(field), Reason: "column is read-only"}
	}
	if err := c.Validate(raw); err != nil {
		return models.TaskPatch{}, err
	}
	return c.Edit(raw)
}

const dateLayout = "2006-01-02"

func renderDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func invalid(field SortField, reason string) error {
	return &models.ValidationError{Field: string(field), Reason: reason}
}

func editDate(field SortField, set func(*models.TaskPatch, *time.Time)) func(string) (models.TaskPatch, error) {
	return func(raw string) (models.TaskPatch, error) {
		var p models.TaskPatch
		if strings.TrimSpace(raw) == "" {
			set(&p, nil)
			return p, nil
		}
		t, ok := models.ParseDate(raw)
		if !ok {
			return p, invalid(field, "unrecognized date")
		}
		set(&p, &t)
		return p, nil
	}
}

// DefaultColumns is the board table's column set.
func DefaultColumns() *ColumnSet {
	return NewColumnSet(
		FieldColumn{
			Field:  SortTitle,
			Label:  "Title",
			Render: func(t models.Task, _ MemberNames) string { return t.Title },
			Edit: func(raw string) (models.TaskPatch, error) {
				title := strings.TrimSpace(raw)
				if title == "" {
					return models.TaskPatch{}, invalid(SortTitle, "title is required")
				}
				return models.TaskPatch{Title: &title}, nil
			},
		},
		FieldColumn{
			Field:  SortDescription,
			Label:  "Description",
			Render: func(t models.Task, _ MemberNames) string { return t.Description },
			Edit: func(raw string) (models.TaskPatch, error) {
				return models.TaskPatch{Description: &raw}, nil
			},
		},
		FieldColumn{
			Field:  SortStatus,
			Label:  "Status",
			Render: func(t models.Task, _ MemberNames) string { return string(t.Status.Normalize()) },
			Edit: func(raw string) (models.TaskPatch, error) {
				s := models.TaskStatus(strings.TrimSpace(raw))
				if !s.Valid() {
					return models.TaskPatch{}, invalid(SortStatus, "unknown status")
				}
				return models.TaskPatch{Status: &s}, nil
			},
		},
		FieldColumn{
			Field:  SortPriority,
			Label:  "Priority",
			Render: func(t models.Task, _ MemberNames) string { return string(t.Priority.Normalize()) },
			Edit: func(raw string) (models.TaskPatch, error) {
				p := models.TaskPriority(strings.TrimSpace(raw))
				if !p.Valid() {
					return models.TaskPatch{}, invalid(SortPriority, "unknown priority")
				}
				return models.TaskPatch{Priority: &p}, nil
			},
		},
		FieldColumn{
			Field:  SortCategory,
			Label:  "Category",
			Render: func(t models.Task, _ MemberNames) string { return string(t.Category.Normalize()) },
			Edit: func(raw string) (models.TaskPatch, error) {
				c := models.TaskCategory(strings.TrimSpace(raw))
				if !c.Valid() {
					return models.TaskPatch{}, invalid(SortCategory, "unknown category")
				}
				return models.TaskPatch{Category: &c}, nil
			},
		},
		FieldColumn{
			Field: SortProgress,
			Label: "Progress",
			Render: func(t models.Task, _ MemberNames) string {
				return strconv.Itoa(t.EffectiveProgress()) + "%"
			},
			Edit: func(raw string) (models.TaskPatch, error) {
				n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(raw), "%"))
				if err != nil {
					return models.TaskPatch{}, invalid(SortProgress, "progress must be a whole number")
				}
				n = models.ClampProgress(n)
				return models.TaskPatch{Progress: &n}, nil
			},
		},
		FieldColumn{
			Field:  SortStart,
			Label:  "Start",
			Render: func(t models.Task, _ MemberNames) string { return renderDate(t.Start) },
			Edit: editDate(SortStart, func(p *models.TaskPatch, t *time.Time) {
				p.Start, p.ClearStart = t, t == nil
			}),
		},
		FieldColumn{
			Field:  SortEnd,
			Label:  "End",
			Render: func(t models.Task, _ MemberNames) string { return renderDate(t.DisplayEnd()) },
			Edit: editDate(SortEnd, func(p *models.TaskPatch, t *time.Time) {
				p.End, p.ClearEnd = t, t == nil
			}),
		},
		FieldColumn{
			Field: "assignees",
			Label: "Assignees",
			Render: func(t models.Task, m MemberNames) string {
				return strings.Join(m.Resolve(t.Assignees), ", ")
			},
			Edit: func(raw string) (models.TaskPatch, error) {
				var ids models.MemberIDs
				for _, part := range strings.Split(raw, ",") {
					ids = append(ids, strings.TrimSpace(part))
				}
				ids = ids.Dedupe()
				return models.TaskPatch{Assignees: &ids}, nil
			},
		},
		FieldColumn{
			Field:  SortCommentsCount,
			Label:  "Comments",
			Render: func(t models.Task, _ MemberNames) string { return strconv.Itoa(t.CommentsCount) },
		},
		FieldColumn{
			Field:  SortUpdatedAt,
			Label:  "Updated",
			Render: func(t models.Task, _ MemberNames) string { return renderDate(&t.UpdatedAt) },
		},
	)
}
