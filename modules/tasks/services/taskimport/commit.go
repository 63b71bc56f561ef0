package taskimport

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iota-uz/sprintboard/modules/tasks/domain/aggregates/task"
	"github.com/iota-uz/sprintboard/modules/tasks/domain/entities/member"
	"github.com/iota-uz/sprintboard/modules/tasks/domain/entities/project"
	"github.com/iota-uz/sprintboard/modules/tasks/domain/entities/sprint"
)

var (
	ErrNotImportable    = errors.New("no importable rows")
	ErrNoDefaultProject = errors.New("project not found and no default project configured")
	ErrNoDefaultSprint  = errors.New("sprint not found and no default sprint configured")
)

const DefaultPriority = 3

// Defaults are the fallbacks applied when a row references something the
// stores do not know. Missing projects and sprints are never created.
type Defaults struct {
	ProjectID uuid.UUID
	SprintID  uuid.UUID
	Priority  int
}

type CommitterOption func(c *Committer)

// WithClock overrides the commit timestamp source.
func WithClock(now func() time.Time) CommitterOption {
	return func(c *Committer) { c.now = now }
}

// Committer maps merged drafts to task entities.
type Committer struct {
	projects project.Repository
	sprints  sprint.Repository
	defaults Defaults
	now      func() time.Time
}

func NewCommitter(projects project.Repository, sprints sprint.Repository, defaults Defaults, opts ...CommitterOption) *Committer {
	if defaults.Priority < 0 || defaults.Priority > 5 {
		defaults.Priority = DefaultPriority
	}
	c := &Committer{
		projects: projects,
		sprints:  sprints,
		defaults: defaults,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Build resolves references for every non-ignored row carrying project,
// demand and title. Responsible names are resolved against the live roster;
// names that no longer resolve are dropped silently. Any lookup failure
// aborts the whole batch.
func (c *Committer) Build(
	ctx context.Context,
	merged []MergedTask,
	ignored map[int]struct{},
	roster []member.Member,
) ([]task.Task, error) {
	if !IsImportable(merged, ignored) {
		return nil, ErrNotImportable
	}

	resolver := NewResolver(roster)
	projectIDs := map[string]uuid.UUID{}
	sprintIDs := map[string]uuid.UUID{}
	committedAt := c.now()

	out := make([]task.Task, 0, len(merged))
	for _, m := range merged {
		if _, skip := ignored[m.RowIndex]; skip || !m.HasRequiredFields() {
			continue
		}
		projectID, err := c.projectID(ctx, m.Project, projectIDs)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", m.RowIndex)
		}
		sprintID, err := c.sprintID(ctx, m.Sprint, sprintIDs)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", m.RowIndex)
		}

		priority := c.defaults.Priority
		if m.Priority != nil {
			priority = *m.Priority
		}

		opts := []task.Option{
			task.WithAssignees(assignees(resolver, m.Responsibles)...),
			task.WithEstimate(decimal.NewFromFloat(m.EstimateHours).Round(1)),
			task.WithIncident(m.HasIncident),
			task.WithCreatedAt(committedAt),
		}
		if m.IsDelivered {
			opts = append(opts, task.WithDelivered(committedAt))
		}
		out = append(out, task.New(projectID, sprintID, m.DemandID, m.Title, priority, m.Type, m.Category, opts...))
	}
	return out, nil
}

func (c *Committer) projectID(ctx context.Context, name string, cache map[string]uuid.UUID) (uuid.UUID, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if id, ok := cache[key]; ok {
		return id, nil
	}
	p, err := c.projects.GetByName(ctx, name)
	var id uuid.UUID
	switch {
	case err == nil:
		id = p.ID
	case errors.Is(err, project.ErrNotFound):
		if c.defaults.ProjectID == uuid.Nil {
			return uuid.Nil, errors.Wrapf(ErrNoDefaultProject, "%q", name)
		}
		id = c.defaults.ProjectID
	default:
		return uuid.Nil, errors.Wrap(err, "lookup project")
	}
	cache[key] = id
	return id, nil
}

func (c *Committer) sprintID(ctx context.Context, name string, cache map[string]uuid.UUID) (uuid.UUID, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if id, ok := cache[key]; ok {
		return id, nil
	}
	var id uuid.UUID
	s, err := c.sprints.GetByName(ctx, name)
	switch {
	case err == nil:
		id = s.ID
	case errors.Is(err, sprint.ErrNotFound):
		if c.defaults.SprintID == uuid.Nil {
			return uuid.Nil, errors.Wrapf(ErrNoDefaultSprint, "%q", name)
		}
		id = c.defaults.SprintID
	default:
		return uuid.Nil, errors.Wrap(err, "lookup sprint")
	}
	cache[key] = id
	return id, nil
}

func assignees(r *Resolver, names []string) []uuid.UUID {
	batch := r.ResolveAll(names)
	ids := make([]uuid.UUID, len(batch.Matched))
	for i, m := range batch.Matched {
		ids[i] = m.ID
	}
	return ids
}
