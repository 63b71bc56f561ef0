package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/sprintboard/modules/tasks/domain/aggregates/task"
	"github.com/iota-uz/sprintboard/modules/tasks/domain/entities/member"
	"github.com/iota-uz/sprintboard/modules/tasks/domain/entities/project"
	"github.com/iota-uz/sprintboard/modules/tasks/domain/entities/sprint"
	"github.com/iota-uz/sprintboard/modules/tasks/services/taskimport"
	"github.com/iota-uz/sprintboard/pkg/composables"
	"github.com/iota-uz/sprintboard/pkg/configuration"
	"github.com/iota-uz/sprintboard/pkg/eventbus"
)

var (
	ErrSessionNotFound  = errors.New("import session not found")
	ErrFileTooLarge     = errors.New("uploaded file is too large")
	ErrEmptyUpload      = errors.New("uploaded file is empty")
	ErrCommitInProgress = errors.New("import session is already being committed")
)

type ImportConfig struct {
	Defaults        taskimport.Defaults
	SuggestionLimit int
	MaxUploadSize   int64
	SessionTTL      time.Duration
}

func NewImportConfig(o configuration.ImportOptions) ImportConfig {
	return ImportConfig{
		Defaults: taskimport.Defaults{
			ProjectID: o.DefaultProject(),
			SprintID:  o.DefaultSprint(),
			Priority:  o.DefaultPriority,
		},
		SuggestionLimit: o.SuggestionLimit,
		MaxUploadSize:   o.MaxUploadSize,
		SessionTTL:      o.SessionTTL,
	}
}

// Preview is what the reconciliation screen renders for a session.
type Preview struct {
	SessionID  uuid.UUID `json:"sessionId"`
	Filename   string    `json:"filename"`
	Ignored    []int     `json:"ignoredRows"`
	Importable bool      `json:"importable"`
	taskimport.Result
}

type CommitResult struct {
	SessionID uuid.UUID       `json:"sessionId"`
	Mode      task.ImportMode `json:"mode"`
	Imported  int             `json:"imported"`
	Skipped   int             `json:"skipped"`
}

// importSession is one upload under reconciliation. A re-upload on the same
// session replaces every field.
type importSession struct {
	filename  string
	decodeErr error
	parsed    taskimport.ParseOutput
	report    taskimport.Report
	overlay   *taskimport.Overlay
	touchedAt time.Time

	// committing is guarded by TaskImportService.mu.
	committing bool
}

type TaskImportService struct {
	members   member.Repository
	projects  project.Repository
	sprints   sprint.Repository
	tasks     task.Repository
	publisher eventbus.EventBus
	config    ImportConfig
	now       func() time.Time

	mu       sync.Mutex
	sessions map[uuid.UUID]*importSession
}

func NewTaskImportService(
	members member.Repository,
	projects project.Repository,
	sprints sprint.Repository,
	tasks task.Repository,
	publisher eventbus.EventBus,
	config ImportConfig,
) *TaskImportService {
	return &TaskImportService{
		members:   members,
		projects:  projects,
		sprints:   sprints,
		tasks:     tasks,
		publisher: publisher,
		config:    config,
		now:       func() time.Time { return time.Now().UTC() },
		sessions:  map[uuid.UUID]*importSession{},
	}
}

func (s *TaskImportService) MaxUploadSize() int64 {
	return s.config.MaxUploadSize
}

// Parse decodes data and starts a new parse generation. A zero sessionID
// opens a new session; an existing one is reset. Unreadable files are not an
// error: they come back as a preview with a single Sistema finding.
func (s *TaskImportService) Parse(ctx context.Context, sessionID uuid.UUID, filename string, data []byte) (*Preview, error) {
	if len(data) == 0 {
		return nil, ErrEmptyUpload
	}
	if s.config.MaxUploadSize > 0 && int64(len(data)) > s.config.MaxUploadSize {
		return nil, errors.Wrapf(ErrFileTooLarge, "%d bytes, limit %d", len(data), s.config.MaxUploadSize)
	}
	if sessionID != uuid.Nil {
		if _, err := s.session(sessionID); err != nil {
			return nil, err
		}
	} else {
		sessionID = uuid.New()
	}

	logger := composables.UseLogger(ctx).WithFields(logrus.Fields{
		"session":  sessionID,
		"filename": filename,
	})

	sess := &importSession{filename: filename}
	sheets, err := taskimport.DecodeUpload(data, filename)
	if err != nil {
		logger.WithError(err).Warn("failed to decode upload")
		sess.decodeErr = err
		failure := taskimport.SystemFailure(err)
		sess.report = taskimport.Report{
			Findings:  failure.Findings,
			Unmatched: failure.Unmatched,
			Ambiguous: failure.Ambiguous,
			Summary:   failure.Summary,
		}
		sess.parsed = taskimport.ParseOutput{Drafts: failure.Drafts}
	} else {
		roster, err := s.members.GetAll(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "load roster")
		}
		sess.parsed = taskimport.ParseSheets(sheets)
		sess.report = taskimport.Aggregate(sess.parsed, roster, s.aggregateOptions()...)
	}
	sess.overlay = taskimport.NewOverlay(sess.parsed.Drafts)

	preview := s.store(sessionID, sess)
	recordParse(preview.Result)
	logger.WithFields(logrus.Fields{
		"rows":   preview.Summary.TotalTasks,
		"status": preview.Summary.Status,
	}).Info("spreadsheet parsed")
	return preview, nil
}

// Revalidate re-runs resolution and aggregation against the current roster.
// Overrides and ignores survive.
func (s *TaskImportService) Revalidate(ctx context.Context, sessionID uuid.UUID) (*Preview, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	roster, err := s.members.GetAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load roster")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sess.touchedAt = s.now()
	if sess.decodeErr != nil {
		return s.preview(sessionID, sess), nil
	}
	sess.report = taskimport.Aggregate(sess.parsed, roster, s.aggregateOptions()...)
	return s.preview(sessionID, sess), nil
}

func (s *TaskImportService) Preview(sessionID uuid.UUID) (*Preview, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preview(sessionID, sess), nil
}

func (s *TaskImportService) ToggleIgnore(sessionID uuid.UUID, row int) (bool, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return false, err
	}
	return sess.overlay.ToggleIgnore(row)
}

func (s *TaskImportService) EditCell(sessionID uuid.UUID, row int, field string, value taskimport.Cell) error {
	sess, err := s.session(sessionID)
	if err != nil {
		return err
	}
	f, err := taskimport.ParseField(field)
	if err != nil {
		return err
	}
	return sess.overlay.EditCell(row, f, value)
}

func (s *TaskImportService) Merged(sessionID uuid.UUID) ([]taskimport.MergedTask, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.overlay.Merge(), nil
}

// Commit writes every importable row of the session and discards it. Only
// one commit per session runs at a time. On failure the session is kept so
// the user can fix and retry.
func (s *TaskImportService) Commit(ctx context.Context, sessionID uuid.UUID, mode task.ImportMode) (res *CommitResult, err error) {
	started := time.Now()
	defer func() { recordCommit(string(mode), started, err) }()

	if mode, err = task.ParseImportMode(string(mode)); err != nil {
		return nil, err
	}
	sess, err := s.claim(sessionID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			s.release(sess)
		}
	}()

	roster, err := s.members.GetAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load roster")
	}

	merged := sess.overlay.Merge()
	ignored := sess.overlay.Ignored()
	committer := taskimport.NewCommitter(s.projects, s.sprints, s.config.Defaults, taskimport.WithClock(s.now))
	tasks, err := committer.Build(ctx, merged, ignored, roster)
	if err != nil {
		return nil, err
	}
	if err := s.tasks.ApplyBatch(ctx, tasks, mode); err != nil {
		return nil, errors.Wrap(err, "apply batch")
	}

	res = &CommitResult{
		SessionID: sessionID,
		Mode:      mode,
		Imported:  len(tasks),
		Skipped:   len(merged) - len(tasks),
	}
	s.discardGeneration(sessionID, sess)

	composables.UseLogger(ctx).WithFields(logrus.Fields{
		"session":  sessionID,
		"mode":     mode,
		"imported": res.Imported,
		"skipped":  res.Skipped,
	}).Info("import committed")
	if s.publisher != nil {
		s.publisher.Publish(&ImportCommittedEvent{
			SessionID:   sessionID,
			Filename:    sess.filename,
			Mode:        mode,
			Imported:    res.Imported,
			Skipped:     res.Skipped,
			CommittedAt: s.now(),
		})
	}
	return res, nil
}

// Discard drops the session. Unknown ids are a no-op.
func (s *TaskImportService) Discard(sessionID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	recordSessions(len(s.sessions))
}

// discardGeneration drops sess unless a re-upload has already replaced it.
func (s *TaskImportService) discardGeneration(id uuid.UUID, sess *importSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions[id] == sess {
		delete(s.sessions, id)
	}
	recordSessions(len(s.sessions))
}

func (s *TaskImportService) claim(id uuid.UUID) (*importSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeExpired()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, errors.Wrapf(ErrSessionNotFound, "%s", id)
	}
	if sess.committing {
		return nil, errors.Wrapf(ErrCommitInProgress, "%s", id)
	}
	sess.committing = true
	sess.touchedAt = s.now()
	return sess, nil
}

func (s *TaskImportService) release(sess *importSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.committing = false
}

func (s *TaskImportService) aggregateOptions() []taskimport.Option {
	return []taskimport.Option{taskimport.WithSuggestionLimit(s.config.SuggestionLimit)}
}

func (s *TaskImportService) session(id uuid.UUID) (*importSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeExpired()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, errors.Wrapf(ErrSessionNotFound, "%s", id)
	}
	sess.touchedAt = s.now()
	return sess, nil
}

func (s *TaskImportService) store(id uuid.UUID, sess *importSession) *Preview {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.touchedAt = s.now()
	s.sessions[id] = sess
	s.purgeExpired()
	recordSessions(len(s.sessions))
	return s.preview(id, sess)
}

// purgeExpired must be called with mu held.
func (s *TaskImportService) purgeExpired() {
	if s.config.SessionTTL <= 0 {
		return
	}
	cutoff := s.now().Add(-s.config.SessionTTL)
	for id, sess := range s.sessions {
		if sess.touchedAt.Before(cutoff) {
			delete(s.sessions, id)
		}
	}
}

// preview must be called with mu held.
func (s *TaskImportService) preview(id uuid.UUID, sess *importSession) *Preview {
	ignoredSet := sess.overlay.Ignored()
	ignored := make([]int, 0, len(ignoredSet))
	for row := range ignoredSet {
		ignored = append(ignored, row)
	}
	sort.Ints(ignored)
	return &Preview{
		SessionID:  id,
		Filename:   sess.filename,
		Ignored:    ignored,
		Importable: taskimport.IsImportable(sess.overlay.Merge(), ignoredSet),
		Result:     taskimport.NewResult(sess.parsed, sess.report),
	}
}
