package sprint

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

var ErrNotFound = errors.New("sprint not found")

type Sprint struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type Repository interface {
	// GetByName matches name case-insensitively and returns ErrNotFound on a miss.
	GetByName(ctx context.Context, name string) (Sprint, error)
}
