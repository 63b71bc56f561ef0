package task

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Type string

const (
	TypeFrontend  Type = "frontend"
	TypeBackend   Type = "backend"
	TypeFullstack Type = "fullstack"
)

type Category string

const (
	CategoryBug        Category = "bug"
	CategoryFeature    Category = "feature"
	CategoryRefinement Category = "refinement"
)

type Status string

const (
	StatusTodo Status = "todo"
	StatusDone Status = "done"
)

type Option func(t *Task)

func WithID(id uuid.UUID) Option {
	return func(t *Task) { t.id = id }
}

func WithAssignees(ids ...uuid.UUID) Option {
	return func(t *Task) {
		t.assignees = append(t.assignees[:0:0], ids...)
	}
}

func WithEstimate(hours decimal.Decimal) Option {
	return func(t *Task) {
		if hours.IsNegative() {
			hours = decimal.Zero
		}
		t.estimateHours = hours
	}
}

func WithIncident(v bool) Option {
	return func(t *Task) { t.hasIncident = v }
}

// WithDelivered marks the task done at the given moment.
func WithDelivered(at time.Time) Option {
	return func(t *Task) {
		t.status = StatusDone
		completed := at
		t.completedAt = &completed
	}
}

func WithCreatedAt(at time.Time) Option {
	return func(t *Task) { t.createdAt = at }
}

type Task struct {
	id            uuid.UUID
	projectID     uuid.UUID
	sprintID      uuid.UUID
	demandID      string
	title         string
	priority      int
	taskType      Type
	category      Category
	assignees     []uuid.UUID
	estimateHours decimal.Decimal
	hasIncident   bool
	status        Status
	completedAt   *time.Time
	createdAt     time.Time
}

func New(
	projectID, sprintID uuid.UUID,
	demandID, title string,
	priority int,
	taskType Type,
	category Category,
	opts ...Option,
) Task {
	t := Task{
		id:            uuid.New(),
		projectID:     projectID,
		sprintID:      sprintID,
		demandID:      demandID,
		title:         title,
		priority:      priority,
		taskType:      taskType,
		category:      category,
		estimateHours: decimal.Zero,
		status:        StatusTodo,
		createdAt:     time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&t)
	}
	return t
}

func (t Task) ID() uuid.UUID                  { return t.id }
func (t Task) ProjectID() uuid.UUID           { return t.projectID }
func (t Task) SprintID() uuid.UUID            { return t.sprintID }
func (t Task) DemandID() string               { return t.demandID }
func (t Task) Title() string                  { return t.title }
func (t Task) Priority() int                  { return t.priority }
func (t Task) Type() Type                     { return t.taskType }
func (t Task) Category() Category             { return t.category }
func (t Task) EstimateHours() decimal.Decimal { return t.estimateHours }
func (t Task) HasIncident() bool              { return t.hasIncident }
func (t Task) Status() Status                 { return t.status }
func (t Task) CompletedAt() *time.Time        { return t.completedAt }
func (t Task) CreatedAt() time.Time           { return t.createdAt }

func (t Task) Assignees() []uuid.UUID {
	return append([]uuid.UUID(nil), t.assignees...)
}
