package services

import (
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/sprintboard/modules/tasks/domain/aggregates/task"
	"github.com/iota-uz/sprintboard/modules/tasks/domain/entities/member"
)

type ImportCommittedEvent struct {
	SessionID   uuid.UUID
	Filename    string
	Mode        task.ImportMode
	Imported    int
	Skipped     int
	CommittedAt time.Time
}

type MemberCreatedEvent struct {
	Result member.Member
}
