package persistence

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/sprintboard/modules/tasks/domain/entities/project"
	"github.com/iota-uz/sprintboard/modules/tasks/domain/entities/sprint"
	"github.com/iota-uz/sprintboard/pkg/composables"
)

const (
	projectByNameQuery = `SELECT id, name FROM projects WHERE lower(name) = lower($1)`
	sprintByNameQuery  = `SELECT id, name FROM sprints WHERE lower(name) = lower($1)`
)

type ProjectRepository struct{}

func NewProjectRepository() project.Repository {
	return &ProjectRepository{}
}

func (r *ProjectRepository) GetByName(ctx context.Context, name string) (project.Project, error) {
	id, stored, err := lookupByName(ctx, projectByNameQuery, name)
	if errors.Is(err, pgx.ErrNoRows) {
		return project.Project{}, project.ErrNotFound
	}
	if err != nil {
		return project.Project{}, err
	}
	return project.Project{ID: id, Name: stored}, nil
}

type SprintRepository struct{}

func NewSprintRepository() sprint.Repository {
	return &SprintRepository{}
}

func (r *SprintRepository) GetByName(ctx context.Context, name string) (sprint.Sprint, error) {
	id, stored, err := lookupByName(ctx, sprintByNameQuery, name)
	if errors.Is(err, pgx.ErrNoRows) {
		return sprint.Sprint{}, sprint.ErrNotFound
	}
	if err != nil {
		return sprint.Sprint{}, err
	}
	return sprint.Sprint{ID: id, Name: stored}, nil
}

func lookupByName(ctx context.Context, query, name string) (uuid.UUID, string, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return uuid.Nil, "", err
	}
	var (
		id     uuid.UUID
		stored string
	)
	err = tx.QueryRow(ctx, query, name).Scan(&id, &stored)
	return id, stored, err
}
