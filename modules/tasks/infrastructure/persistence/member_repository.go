package persistence

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/iota-uz/sprintboard/modules/tasks/domain/entities/member"
	"github.com/iota-uz/sprintboard/pkg/composables"
	"github.com/iota-uz/sprintboard/pkg/repo"
)

const (
	selectMembersQuery = `SELECT id, name, coalesce(nickname, '') FROM members`
)

type MemberRepository struct{}

func NewMemberRepository() member.Repository {
	return &MemberRepository{}
}

func (r *MemberRepository) GetAll(ctx context.Context) ([]member.Member, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, repo.Join(selectMembersQuery, "ORDER BY name"))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (member.Member, error) {
		var m member.Member
		err := row.Scan(&m.ID, &m.Name, &m.Nickname)
		return m, err
	})
}

func (r *MemberRepository) Create(ctx context.Context, m member.Member) (member.Member, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return member.Member{}, err
	}
	var nickname *string
	if m.Nickname != "" {
		nickname = &m.Nickname
	}
	if _, err := tx.Exec(
		ctx,
		repo.Insert("members", []string{"id", "name", "nickname"}),
		m.ID, m.Name, nickname,
	); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return member.Member{}, member.ErrNameTaken
		}
		return member.Member{}, errors.Wrap(err, "create member")
	}
	return m, nil
}
