package project

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

var ErrNotFound = errors.New("project not found")

type Project struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type Repository interface {
	// GetByName matches name case-insensitively and returns ErrNotFound on a miss.
	GetByName(ctx context.Context, name string) (Project, error)
}
