package persistence

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/sprintboard/modules/tasks/domain/aggregates/task"
	"github.com/iota-uz/sprintboard/pkg/composables"
	"github.com/iota-uz/sprintboard/pkg/repo"
)

const (
	countTasksQuery         = `SELECT count(*) FROM tasks`
	deleteTaskAssigneeQuery = `DELETE FROM task_assignees`
	deleteTasksQuery        = `DELETE FROM tasks`
)

var (
	taskColumns = []string{
		"id", "project_id", "sprint_id", "demand_id", "title", "priority", "type", "category",
		"estimate_hours", "has_incident", "status", "completed_at", "created_at",
	}
	insertTaskQuery     = repo.Insert("tasks", taskColumns)
	insertAssigneeQuery = repo.Insert("task_assignees", []string{"task_id", "member_id"})
)

type TaskRepository struct{}

func NewTaskRepository() task.Repository {
	return &TaskRepository{}
}

func (r *TaskRepository) Count(ctx context.Context) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := tx.QueryRow(ctx, countTasksQuery).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// ApplyBatch writes the batch in one transaction. Overwrite clears every
// stored task first.
func (r *TaskRepository) ApplyBatch(ctx context.Context, tasks []task.Task, mode task.ImportMode) error {
	if _, err := task.ParseImportMode(string(mode)); err != nil {
		return err
	}
	return composables.InTx(ctx, func(txCtx context.Context) error {
		tx, err := composables.UseTx(txCtx)
		if err != nil {
			return err
		}
		if mode == task.ImportOverwrite {
			if _, err := tx.Exec(txCtx, deleteTaskAssigneeQuery); err != nil {
				return errors.Wrap(err, "clear task assignees")
			}
			if _, err := tx.Exec(txCtx, deleteTasksQuery); err != nil {
				return errors.Wrap(err, "clear tasks")
			}
		}
		if len(tasks) == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		for _, t := range tasks {
			batch.Queue(insertTaskQuery, taskArgs(t)...)
			for _, memberID := range t.Assignees() {
				batch.Queue(insertAssigneeQuery, t.ID(), memberID)
			}
		}
		results := tx.SendBatch(txCtx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return errors.Wrapf(err, "insert task batch (statement %d)", i)
			}
		}
		return results.Close()
	})
}

func taskArgs(t task.Task) []any {
	return []any{
		t.ID(),
		t.ProjectID(),
		t.SprintID(),
		t.DemandID(),
		t.Title(),
		t.Priority(),
		string(t.Type()),
		string(t.Category()),
		t.EstimateHours().String(),
		t.HasIncident(),
		string(t.Status()),
		t.CompletedAt(),
		t.CreatedAt(),
	}
}
