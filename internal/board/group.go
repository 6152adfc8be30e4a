package board

import (
	"task-board-api/internal/models"

	log "github.com/sirupsen/logrus"
)

// Buckets maps each board column to its tasks.
type Buckets map[models.TaskStatus][]models.Task

// Group partitions tasks into the fixed status columns, keeping input order.
// Tasks whose stored status is not a board column are left out.
func Group(tasks []models.Task) Buckets {
	b := make(Buckets, len(models.Statuses))
	for _, s := range models.Statuses {
		b[s] = []models.Task{}
	}
	for _, t := range tasks {
		if !t.Status.Valid() {
			log.WithFields(log.Fields{
				"task_id": t.ID,
				"status":  t.Status,
			}).Debug("orphaned task left off the board")
			continue
		}
		b[t.Status] = append(b[t.Status], t)
	}
	return b
}
