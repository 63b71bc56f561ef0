package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/sprintboard/modules/tasks/domain/aggregates/task"
	"github.com/iota-uz/sprintboard/modules/tasks/domain/entities/member"
	"github.com/iota-uz/sprintboard/modules/tasks/domain/entities/project"
	"github.com/iota-uz/sprintboard/modules/tasks/domain/entities/sprint"
	"github.com/iota-uz/sprintboard/modules/tasks/services"
	"github.com/iota-uz/sprintboard/modules/tasks/services/taskimport"
)

type stubMembers []member.Member

func (s stubMembers) GetAll(context.Context) ([]member.Member, error) { return s, nil }

func (s stubMembers) Create(_ context.Context, m member.Member) (member.Member, error) {
	return m, nil
}

type stubProjects struct{}

func (stubProjects) GetByName(_ context.Context, name string) (project.Project, error) {
	if strings.EqualFold(name, "portal") {
		return project.Project{ID: uuid.New(), Name: "Portal"}, nil
	}
	return project.Project{}, project.ErrNotFound
}

type stubSprints struct{}

func (stubSprints) GetByName(_ context.Context, name string) (sprint.Sprint, error) {
	if strings.EqualFold(name, "sprint 7") {
		return sprint.Sprint{ID: uuid.New(), Name: "Sprint 7"}, nil
	}
	return sprint.Sprint{}, sprint.ErrNotFound
}

type stubTasks struct {
	applied []task.Task
	mode    task.ImportMode
}

func (s *stubTasks) Count(context.Context) (int64, error) { return int64(len(s.applied)), nil }

func (s *stubTasks) ApplyBatch(_ context.Context, tasks []task.Task, mode task.ImportMode) error {
	s.applied = tasks
	s.mode = mode
	return nil
}

func newService(tasks *stubTasks) *services.TaskImportService {
	return services.NewTaskImportService(
		stubMembers{member.New("Illian Souza", "")},
		stubProjects{},
		stubSprints{},
		tasks,
		nil,
		services.ImportConfig{
			Defaults:      taskimport.Defaults{Priority: taskimport.DefaultPriority},
			MaxUploadSize: 1 << 20,
			SessionTTL:    time.Hour,
		},
	)
}

func writeSheet(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Sprint 7.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const sheet = "Projeto,Demanda,Título,Responsável\n" +
	"Portal,D-1,Login,illian\n" +
	"Portal,,Broken,illian\n" +
	"Portal,D-3,Signup,illian\n"

func decodeSummary(t *testing.T, out *bytes.Buffer) runSummary {
	t.Helper()
	var s runSummary
	require.NoError(t, json.Unmarshal(out.Bytes(), &s), out.String())
	return s
}

func TestRunImport_DryRun(t *testing.T) {
	t.Parallel()
	tasks := &stubTasks{}
	var out bytes.Buffer

	err := runImport(context.Background(), newService(tasks), runOptions{
		file: writeSheet(t, sheet),
		mode: task.ImportAppend,
	}, &out)
	require.NoError(t, err)

	s := decodeSummary(t, &out)
	assert.Equal(t, "dry_run", s.Result)
	assert.Equal(t, taskimport.StatusError, s.Status)
	assert.Equal(t, 3, s.Summary.TotalTasks)
	assert.Empty(t, tasks.applied)
}

func TestRunImport_ApplyWithIgnoreAndEdit(t *testing.T) {
	t.Parallel()
	tasks := &stubTasks{}
	var out bytes.Buffer

	err := runImport(context.Background(), newService(tasks), runOptions{
		file:   writeSheet(t, sheet),
		apply:  true,
		strict: true,
		mode:   task.ImportOverwrite,
		ignore: []int{2},
		edits:  []cellEdit{{row: 3, field: "Título", value: "Signup v2"}},
	}, &out)
	require.NoError(t, err, out.String())

	s := decodeSummary(t, &out)
	assert.Equal(t, "applied", s.Result)
	assert.Equal(t, []int{2}, s.Ignored)
	assert.Equal(t, 2, s.Imported)
	assert.Equal(t, 1, s.Skipped)
	require.Len(t, tasks.applied, 2)
	assert.Equal(t, task.ImportOverwrite, tasks.mode)
	assert.Equal(t, "Signup v2", tasks.applied[1].Title())
}

func TestRunImport_StrictRejectsErrors(t *testing.T) {
	t.Parallel()
	tasks := &stubTasks{}
	var out bytes.Buffer

	err := runImport(context.Background(), newService(tasks), runOptions{
		file:   writeSheet(t, sheet),
		apply:  true,
		strict: true,
		mode:   task.ImportAppend,
	}, &out)
	require.Error(t, err)
	assert.Equal(t, exitValidation, exitCode(err))
	assert.Equal(t, "rejected", decodeSummary(t, &out).Result)
	assert.Empty(t, tasks.applied)
}

func TestRunImport_Usage(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer

	err := runImport(context.Background(), newService(&stubTasks{}), runOptions{}, &out)
	assert.Equal(t, exitUsage, exitCode(err))

	err = runImport(context.Background(), newService(&stubTasks{}), runOptions{
		file:   writeSheet(t, sheet),
		ignore: []int{42},
	}, &out)
	assert.Equal(t, exitUsage, exitCode(err))
}

func TestParseIgnore(t *testing.T) {
	t.Parallel()
	rows, err := parseIgnore(" 5,3, ,")
	require.NoError(t, err)
	assert.Equal(t, []int{3, 5}, rows)

	_, err = parseIgnore("0")
	require.Error(t, err)
	_, err = parseIgnore("x")
	require.Error(t, err)
}

func TestParseEdit(t *testing.T) {
	t.Parallel()
	e, err := parseEdit("4:Título=Login = v2")
	require.NoError(t, err)
	assert.Equal(t, cellEdit{row: 4, field: "Título", value: "Login = v2"}, e)

	for _, raw := range []string{"Título=x", "4:=x", "a:Título=x", "4:Título"} {
		_, err := parseEdit(raw)
		assert.Error(t, err, raw)
	}
}

func TestExitCode(t *testing.T) {
	t.Parallel()
	assert.Equal(t, exitOK, exitCode(nil))
	assert.Equal(t, 1, exitCode(assert.AnError))
	assert.Equal(t, exitDB, exitCode(withCode(exitDB, assert.AnError)))
}
