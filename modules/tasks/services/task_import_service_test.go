package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/sprintboard/modules/tasks/domain/aggregates/task"
	"github.com/iota-uz/sprintboard/modules/tasks/domain/entities/member"
	"github.com/iota-uz/sprintboard/modules/tasks/domain/entities/project"
	"github.com/iota-uz/sprintboard/modules/tasks/domain/entities/sprint"
	"github.com/iota-uz/sprintboard/modules/tasks/services/taskimport"
	"github.com/iota-uz/sprintboard/pkg/eventbus"
)

type fakeMembers struct {
	mu      sync.Mutex
	members []member.Member
	err     error
}

func (f *fakeMembers) GetAll(context.Context) ([]member.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]member.Member(nil), f.members...), nil
}

func (f *fakeMembers) Create(_ context.Context, m member.Member) (member.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members = append(f.members, m)
	return m, nil
}

type fakeProjects map[string]project.Project

func (f fakeProjects) GetByName(_ context.Context, name string) (project.Project, error) {
	p, ok := f[strings.ToLower(name)]
	if !ok {
		return project.Project{}, project.ErrNotFound
	}
	return p, nil
}

type fakeSprints map[string]sprint.Sprint

func (f fakeSprints) GetByName(_ context.Context, name string) (sprint.Sprint, error) {
	s, ok := f[strings.ToLower(name)]
	if !ok {
		return sprint.Sprint{}, sprint.ErrNotFound
	}
	return s, nil
}

type fakeTasks struct {
	mu      sync.Mutex
	batches [][]task.Task
	modes   []task.ImportMode
	err     error

	// When set, ApplyBatch signals entered and waits on proceed.
	entered chan struct{}
	proceed chan struct{}
}

func (f *fakeTasks) Count(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, b := range f.batches {
		n += int64(len(b))
	}
	return n, nil
}

func (f *fakeTasks) ApplyBatch(_ context.Context, tasks []task.Task, mode task.ImportMode) error {
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.proceed
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, tasks)
	f.modes = append(f.modes, mode)
	return nil
}

type importFixture struct {
	svc     *TaskImportService
	members *fakeMembers
	tasks   *fakeTasks
	bus     eventbus.EventBus
	clock   time.Time
}

func newImportFixture(t *testing.T) *importFixture {
	t.Helper()
	f := &importFixture{
		members: &fakeMembers{members: []member.Member{
			member.New("Illian Souza", ""),
			member.New("Natan Reis", ""),
		}},
		tasks: &fakeTasks{},
		bus:   eventbus.New(nil),
		clock: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC),
	}
	f.svc = NewTaskImportService(
		f.members,
		fakeProjects{"portal": {ID: uuid.New(), Name: "Portal"}},
		fakeSprints{"sprint 1": {ID: uuid.New(), Name: "Sprint 1"}},
		f.tasks,
		f.bus,
		ImportConfig{
			Defaults:        taskimport.Defaults{Priority: taskimport.DefaultPriority},
			SuggestionLimit: 3,
			MaxUploadSize:   1 << 20,
			SessionTTL:      time.Hour,
		},
	)
	f.svc.now = func() time.Time { return f.clock }
	return f
}

const sprintCSV = "Projeto;Demanda;Prioridade;Título;Responsável;Entregue\n" +
	"Portal;P-1;p0;Login;illian + natan;Sim\n" +
	";;;;;\n" +
	"Portal;P-2;;Signup;bruno;\n"

func TestTaskImportService_ParseAndCommit(t *testing.T) {
	t.Parallel()
	f := newImportFixture(t)
	ctx := context.Background()

	var event *ImportCommittedEvent
	require.NoError(t, f.bus.Subscribe(func(e *ImportCommittedEvent) { event = e }))

	preview, err := f.svc.Parse(ctx, uuid.Nil, "Sprint 1.csv", []byte(sprintCSV))
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, preview.SessionID)
	require.Len(t, preview.Drafts, 2)
	assert.Equal(t, "Sprint 1", preview.Drafts[0].Sprint)
	assert.True(t, preview.Importable)
	assert.Equal(t, taskimport.StatusWarning, preview.Summary.Status)
	require.Len(t, preview.Unmatched, 1)
	assert.Equal(t, "bruno", preview.Unmatched[0].FirstName)

	res, err := f.svc.Commit(ctx, preview.SessionID, task.ImportAppend)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	assert.Zero(t, res.Skipped)

	require.Len(t, f.tasks.batches, 1)
	assert.Equal(t, []task.ImportMode{task.ImportAppend}, f.tasks.modes)
	first := f.tasks.batches[0][0]
	assert.Equal(t, 0, first.Priority())
	assert.Len(t, first.Assignees(), 2)
	assert.Equal(t, task.StatusDone, first.Status())
	second := f.tasks.batches[0][1]
	assert.Equal(t, taskimport.DefaultPriority, second.Priority())
	assert.Empty(t, second.Assignees())

	require.NotNil(t, event)
	assert.Equal(t, preview.SessionID, event.SessionID)
	assert.Equal(t, 2, event.Imported)
	assert.Equal(t, f.clock, event.CommittedAt)

	_, err = f.svc.Merged(preview.SessionID)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestTaskImportService_CommitSkipsIgnoredRows(t *testing.T) {
	t.Parallel()
	f := newImportFixture(t)
	ctx := context.Background()

	preview, err := f.svc.Parse(ctx, uuid.Nil, "Sprint 1.csv", []byte(sprintCSV))
	require.NoError(t, err)

	ignored, err := f.svc.ToggleIgnore(preview.SessionID, 2)
	require.NoError(t, err)
	require.True(t, ignored)
	require.NoError(t, f.svc.EditCell(preview.SessionID, 1, "Título", "Login v2"))

	merged, err := f.svc.Merged(preview.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "Login v2", merged[0].Title)
	assert.True(t, merged[1].Ignored)

	res, err := f.svc.Commit(ctx, preview.SessionID, "OVERWRITE")
	require.NoError(t, err)
	assert.Equal(t, task.ImportOverwrite, res.Mode)
	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, "Login v2", f.tasks.batches[0][0].Title())
}

func TestTaskImportService_RevalidateAfterRosterChange(t *testing.T) {
	t.Parallel()
	f := newImportFixture(t)
	ctx := context.Background()

	preview, err := f.svc.Parse(ctx, uuid.Nil, "Sprint 1.csv", []byte(sprintCSV))
	require.NoError(t, err)
	require.NoError(t, f.svc.EditCell(preview.SessionID, 2, "prioridade", "p1"))
	require.Len(t, preview.Unmatched, 1)

	_, err = f.members.Create(ctx, member.New("Bruno Lima", ""))
	require.NoError(t, err)

	again, err := f.svc.Revalidate(ctx, preview.SessionID)
	require.NoError(t, err)
	assert.Empty(t, again.Unmatched)
	assert.Equal(t, taskimport.StatusSuccess, again.Summary.Status)

	merged, err := f.svc.Merged(preview.SessionID)
	require.NoError(t, err)
	require.NotNil(t, merged[1].Priority)
	assert.Equal(t, 1, *merged[1].Priority)
}

func TestTaskImportService_ReparseResetsOverlay(t *testing.T) {
	t.Parallel()
	f := newImportFixture(t)
	ctx := context.Background()

	preview, err := f.svc.Parse(ctx, uuid.Nil, "Sprint 1.csv", []byte(sprintCSV))
	require.NoError(t, err)
	_, err = f.svc.ToggleIgnore(preview.SessionID, 1)
	require.NoError(t, err)

	again, err := f.svc.Parse(ctx, preview.SessionID, "Sprint 1.csv", []byte(sprintCSV))
	require.NoError(t, err)
	assert.Equal(t, preview.SessionID, again.SessionID)
	assert.Empty(t, again.Ignored)

	_, err = f.svc.Parse(ctx, uuid.New(), "Sprint 1.csv", []byte(sprintCSV))
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestTaskImportService_UnreadableUpload(t *testing.T) {
	t.Parallel()
	f := newImportFixture(t)
	ctx := context.Background()

	preview, err := f.svc.Parse(ctx, uuid.Nil, "plan.png", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))
	require.NoError(t, err)
	assert.Empty(t, preview.Drafts)
	require.Len(t, preview.Findings, 1)
	assert.Equal(t, taskimport.SystemColumn, preview.Findings[0].Column)
	assert.Equal(t, taskimport.StatusError, preview.Summary.Status)
	assert.False(t, preview.Importable)

	again, err := f.svc.Revalidate(ctx, preview.SessionID)
	require.NoError(t, err)
	assert.Equal(t, preview.Findings, again.Findings)

	_, err = f.svc.Commit(ctx, preview.SessionID, task.ImportAppend)
	require.ErrorIs(t, err, taskimport.ErrNotImportable)
	assert.Empty(t, f.tasks.batches)
}

func TestTaskImportService_UploadLimits(t *testing.T) {
	t.Parallel()
	f := newImportFixture(t)
	ctx := context.Background()

	_, err := f.svc.Parse(ctx, uuid.Nil, "empty.csv", nil)
	require.ErrorIs(t, err, ErrEmptyUpload)

	f.svc.config.MaxUploadSize = 8
	_, err = f.svc.Parse(ctx, uuid.Nil, "big.csv", []byte(sprintCSV))
	require.ErrorIs(t, err, ErrFileTooLarge)
}

func TestTaskImportService_CommitFailureKeepsSession(t *testing.T) {
	t.Parallel()
	f := newImportFixture(t)
	ctx := context.Background()
	boom := errors.New("deadlock detected")
	f.tasks.err = boom

	preview, err := f.svc.Parse(ctx, uuid.Nil, "Sprint 1.csv", []byte(sprintCSV))
	require.NoError(t, err)

	_, err = f.svc.Commit(ctx, preview.SessionID, task.ImportAppend)
	require.ErrorIs(t, err, boom)

	_, err = f.svc.Merged(preview.SessionID)
	require.NoError(t, err)

	f.tasks.err = nil
	res, err := f.svc.Commit(ctx, preview.SessionID, task.ImportAppend)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	assert.Len(t, f.tasks.batches, 1)
}

// startBlockedCommit runs Commit in the background and returns once it is
// inside ApplyBatch.
func startBlockedCommit(t *testing.T, f *importFixture, id uuid.UUID) <-chan error {
	t.Helper()
	f.tasks.entered = make(chan struct{})
	f.tasks.proceed = make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Commit(context.Background(), id, task.ImportAppend)
		done <- err
	}()
	<-f.tasks.entered
	return done
}

func TestTaskImportService_ConcurrentCommitAppliesOnce(t *testing.T) {
	t.Parallel()
	f := newImportFixture(t)
	ctx := context.Background()

	preview, err := f.svc.Parse(ctx, uuid.Nil, "Sprint 1.csv", []byte(sprintCSV))
	require.NoError(t, err)

	done := startBlockedCommit(t, f, preview.SessionID)

	_, err = f.svc.Commit(ctx, preview.SessionID, task.ImportAppend)
	require.ErrorIs(t, err, ErrCommitInProgress)

	close(f.tasks.proceed)
	require.NoError(t, <-done)

	assert.Len(t, f.tasks.batches, 1)
	_, err = f.svc.Preview(preview.SessionID)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestTaskImportService_ReuploadDuringCommitSurvives(t *testing.T) {
	t.Parallel()
	f := newImportFixture(t)
	ctx := context.Background()

	preview, err := f.svc.Parse(ctx, uuid.Nil, "Sprint 1.csv", []byte(sprintCSV))
	require.NoError(t, err)

	done := startBlockedCommit(t, f, preview.SessionID)

	reupload := "Projeto;Demanda;Título\nPortal;P-9;Audit log\n"
	_, err = f.svc.Parse(ctx, preview.SessionID, "Sprint 1.csv", []byte(reupload))
	require.NoError(t, err)

	close(f.tasks.proceed)
	require.NoError(t, <-done)

	current, err := f.svc.Preview(preview.SessionID)
	require.NoError(t, err)
	require.Len(t, current.Drafts, 1)
	assert.Equal(t, "Audit log", current.Drafts[0].Title)

	f.tasks.entered = nil
	res, err := f.svc.Commit(ctx, preview.SessionID, task.ImportAppend)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)
	assert.Len(t, f.tasks.batches, 2)
}

func rowFindings(findings []taskimport.Finding, row int) []taskimport.Finding {
	var out []taskimport.Finding
	for _, finding := range findings {
		if finding.Row == row {
			out = append(out, finding)
		}
	}
	return out
}

func TestTaskImportService_IgnoredRowKeepsFindings(t *testing.T) {
	t.Parallel()
	f := newImportFixture(t)
	ctx := context.Background()

	const upload = "Projeto;Demanda;Título;Responsável\n" +
		"Portal;P-1;;illian\n" +
		"Portal;P-2;Signup;natan\n"
	preview, err := f.svc.Parse(ctx, uuid.Nil, "Sprint 1.csv", []byte(upload))
	require.NoError(t, err)
	require.Equal(t, 1, preview.Summary.TasksWithErrors)
	broken := rowFindings(preview.Findings, 1)
	require.NotEmpty(t, broken)
	assert.Equal(t, taskimport.SeverityError, broken[0].Severity)
	assert.True(t, preview.Importable)

	_, err = f.svc.ToggleIgnore(preview.SessionID, 1)
	require.NoError(t, err)
	got, err := f.svc.Preview(preview.SessionID)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, got.Ignored)
	assert.Equal(t, broken, rowFindings(got.Findings, 1))
	assert.Equal(t, 1, got.Summary.TasksWithErrors)
	assert.True(t, got.Importable)

	_, err = f.svc.ToggleIgnore(preview.SessionID, 2)
	require.NoError(t, err)
	got, err = f.svc.Preview(preview.SessionID)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, got.Ignored)
	assert.Equal(t, broken, rowFindings(got.Findings, 1))
	assert.Equal(t, 1, got.Summary.TasksWithErrors)
	assert.False(t, got.Importable)

	_, err = f.svc.ToggleIgnore(preview.SessionID, 1)
	require.NoError(t, err)
	require.NoError(t, f.svc.EditCell(preview.SessionID, 1, "Título", "Login"))
	got, err = f.svc.Preview(preview.SessionID)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, got.Ignored)
	assert.Equal(t, broken, rowFindings(got.Findings, 1))
	assert.Equal(t, 1, got.Summary.TasksWithErrors)
	assert.True(t, got.Importable)

	res, err := f.svc.Commit(ctx, preview.SessionID, task.ImportAppend)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, "Login", f.tasks.batches[0][0].Title())
}

func TestTaskImportService_RejectsBadInput(t *testing.T) {
	t.Parallel()
	f := newImportFixture(t)
	ctx := context.Background()

	preview, err := f.svc.Parse(ctx, uuid.Nil, "Sprint 1.csv", []byte(sprintCSV))
	require.NoError(t, err)

	require.ErrorIs(t, f.svc.EditCell(preview.SessionID, 1, "owner", "x"), taskimport.ErrUnknownField)
	require.ErrorIs(t, f.svc.EditCell(preview.SessionID, 99, "titulo", "x"), taskimport.ErrUnknownRow)
	_, err = f.svc.Commit(ctx, preview.SessionID, "merge")
	require.ErrorIs(t, err, task.ErrInvalidImportMode)
	_, err = f.svc.ToggleIgnore(uuid.New(), 1)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestTaskImportService_RosterFailure(t *testing.T) {
	t.Parallel()
	f := newImportFixture(t)
	f.members.err = errors.New("connection refused")

	_, err := f.svc.Parse(context.Background(), uuid.Nil, "Sprint 1.csv", []byte(sprintCSV))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load roster")
}

func TestTaskImportService_SessionsExpire(t *testing.T) {
	t.Parallel()
	f := newImportFixture(t)
	ctx := context.Background()

	preview, err := f.svc.Parse(ctx, uuid.Nil, "Sprint 1.csv", []byte(sprintCSV))
	require.NoError(t, err)

	f.clock = f.clock.Add(30 * time.Minute)
	_, err = f.svc.Preview(preview.SessionID)
	require.NoError(t, err)

	f.clock = f.clock.Add(61 * time.Minute)
	_, err = f.svc.Preview(preview.SessionID)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestTaskImportService_Discard(t *testing.T) {
	t.Parallel()
	f := newImportFixture(t)

	preview, err := f.svc.Parse(context.Background(), uuid.Nil, "Sprint 1.csv", []byte(sprintCSV))
	require.NoError(t, err)

	f.svc.Discard(preview.SessionID)
	f.svc.Discard(preview.SessionID)
	_, err = f.svc.Preview(preview.SessionID)
	require.ErrorIs(t, err, ErrSessionNotFound)
	assert.Empty(t, f.tasks.batches)
}
