package member

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("member not found")
	ErrNameTaken = errors.New("member name already taken")
)

// Member is a roster entry. Nickname is optional.
type Member struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Nickname string    `json:"nickname,omitempty"`
}

func New(name, nickname string) Member {
	return Member{
		ID:       uuid.New(),
		Name:     strings.TrimSpace(name),
		Nickname: strings.TrimSpace(nickname),
	}
}

type CreateDTO struct {
	Name     string `json:"name" validate:"required,max=255"`
	Nickname string `json:"nickname" validate:"max=64"`
}

func (d *CreateDTO) Normalize() {
	d.Name = strings.TrimSpace(d.Name)
	d.Nickname = strings.TrimSpace(d.Nickname)
}

type Repository interface {
	// GetAll returns the roster ordered by name.
	GetAll(ctx context.Context) ([]Member, error)
	Create(ctx context.Context, m Member) (Member, error)
}
