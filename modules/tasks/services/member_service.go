package services

import (
	"context"
	"strings"

	"github.com/go-faster/errors"

	"github.com/iota-uz/sprintboard/modules/tasks/domain/entities/member"
	"github.com/iota-uz/sprintboard/pkg/constants"
	"github.com/iota-uz/sprintboard/pkg/eventbus"
)

type MemberService struct {
	repo      member.Repository
	publisher eventbus.EventBus
}

func NewMemberService(repo member.Repository, publisher eventbus.EventBus) *MemberService {
	return &MemberService{
		repo:      repo,
		publisher: publisher,
	}
}

func (s *MemberService) GetAll(ctx context.Context) ([]member.Member, error) {
	return s.repo.GetAll(ctx)
}

// Create adds a roster entry, typically to resolve an unmatched name during
// reconciliation. Names are unique case-insensitively.
func (s *MemberService) Create(ctx context.Context, dto *member.CreateDTO) (member.Member, error) {
	dto.Normalize()
	if err := constants.Validate.Struct(dto); err != nil {
		return member.Member{}, err
	}

	roster, err := s.repo.GetAll(ctx)
	if err != nil {
		return member.Member{}, err
	}
	for _, m := range roster {
		if strings.EqualFold(m.Name, dto.Name) {
			return member.Member{}, errors.Wrapf(member.ErrNameTaken, "%q", dto.Name)
		}
	}

	created, err := s.repo.Create(ctx, member.New(dto.Name, dto.Nickname))
	if err != nil {
		return member.Member{}, err
	}
	if s.publisher != nil {
		s.publisher.Publish(&MemberCreatedEvent{Result: created})
	}
	return created, nil
}
