package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iota-uz/sprintboard/modules/tasks/domain/aggregates/task"
	"github.com/iota-uz/sprintboard/modules/tasks/infrastructure/persistence"
	"github.com/iota-uz/sprintboard/modules/tasks/services"
	"github.com/iota-uz/sprintboard/modules/tasks/services/taskimport"
	"github.com/iota-uz/sprintboard/pkg/composables"
	"github.com/iota-uz/sprintboard/pkg/configuration"
)

type runOptions struct {
	file   string
	apply  bool
	strict bool
	mode   task.ImportMode
	ignore []int
	edits  []cellEdit
}

type cellEdit struct {
	row   int
	field string
	value string
}

type runSummary struct {
	File      string               `json:"file"`
	SessionID uuid.UUID            `json:"session_id"`
	Result    string               `json:"result"`
	Status    taskimport.Status    `json:"status"`
	Mode      task.ImportMode      `json:"mode"`
	Summary   taskimport.Summary   `json:"summary"`
	Ignored   []int                `json:"ignored_rows"`
	Unmatched []string             `json:"unmatched_members"`
	Ambiguous []string             `json:"ambiguous_members"`
	Findings  []taskimport.Finding `json:"findings"`
	Imported  int                  `json:"imported"`
	Skipped   int                  `json:"skipped"`
}

func newRunCmd() *cobra.Command {
	var (
		opts   runOptions
		mode   string
		ignore string
		edits  []string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Parse a spreadsheet and optionally commit it",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf := configuration.Use()
			defer conf.Unload()

			pool, err := connectDB(cmd.Context(), conf)
			if err != nil {
				return withCode(exitDB, err)
			}
			defer pool.Close()

			logger := logrus.New()
			logger.SetLevel(conf.LogrusLogLevel())
			ctx := composables.WithPool(cmd.Context(), pool)
			ctx = composables.WithLogger(ctx, logrus.NewEntry(logger).WithField("component", "task-import"))

			memberRepo := persistence.NewMemberRepository()
			svc := services.NewTaskImportService(
				memberRepo,
				persistence.NewProjectRepository(),
				persistence.NewSprintRepository(),
				persistence.NewTaskRepository(),
				nil,
				services.NewImportConfig(conf.Import),
			)
			return runImport(ctx, svc, opts, os.Stdout)
		},
	}

	cmd.Flags().StringVar(&opts.file, "file", "", "Spreadsheet to import: .xlsx, .xls or .csv (required)")
	cmd.Flags().BoolVar(&opts.apply, "apply", false, "Write tasks to the DB (default is dry-run)")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Fail when any row has an error, even if others are importable")
	cmd.Flags().StringVar(&mode, "mode", string(task.ImportAppend), "Commit mode: append or overwrite")
	cmd.Flags().StringVar(&ignore, "ignore", "", "Comma separated row indices to skip, e.g. 3,5")
	cmd.Flags().StringArrayVar(&edits, "set", nil, "Cell override as ROW:FIELD=VALUE, repeatable")
	_ = cmd.MarkFlagRequired("file")

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		m, err := task.ParseImportMode(mode)
		if err != nil {
			return withCode(exitUsage, err)
		}
		opts.mode = m
		if opts.ignore, err = parseIgnore(ignore); err != nil {
			return withCode(exitUsage, err)
		}
		opts.edits = make([]cellEdit, 0, len(edits))
		for _, raw := range edits {
			e, err := parseEdit(raw)
			if err != nil {
				return withCode(exitUsage, err)
			}
			opts.edits = append(opts.edits, e)
		}
		return nil
	}
	return cmd
}

func parseIgnore(raw string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		row, err := strconv.Atoi(part)
		if err != nil || row < 1 {
			return nil, fmt.Errorf("invalid --ignore row %q", part)
		}
		out = append(out, row)
	}
	sort.Ints(out)
	return out, nil
}

func parseEdit(raw string) (cellEdit, error) {
	rowPart, rest, ok := strings.Cut(raw, ":")
	if !ok {
		return cellEdit{}, fmt.Errorf("invalid --set %q: want ROW:FIELD=VALUE", raw)
	}
	field, value, ok := strings.Cut(rest, "=")
	if !ok || strings.TrimSpace(field) == "" {
		return cellEdit{}, fmt.Errorf("invalid --set %q: want ROW:FIELD=VALUE", raw)
	}
	row, err := strconv.Atoi(strings.TrimSpace(rowPart))
	if err != nil || row < 1 {
		return cellEdit{}, fmt.Errorf("invalid --set row %q", rowPart)
	}
	return cellEdit{row: row, field: strings.TrimSpace(field), value: value}, nil
}

func runImport(ctx context.Context, svc *services.TaskImportService, opts runOptions, out io.Writer) error {
	if strings.TrimSpace(opts.file) == "" {
		return withCode(exitUsage, errors.New("--file is required"))
	}
	data, err := os.ReadFile(opts.file)
	if err != nil {
		return withCode(exitUsage, errors.Wrap(err, "read file"))
	}

	preview, err := svc.Parse(ctx, uuid.Nil, filepath.Base(opts.file), data)
	if err != nil {
		return withCode(exitValidation, err)
	}
	for _, row := range opts.ignore {
		if _, err := svc.ToggleIgnore(preview.SessionID, row); err != nil {
			return withCode(exitUsage, errors.Wrapf(err, "--ignore %d", row))
		}
	}
	for _, e := range opts.edits {
		if err := svc.EditCell(preview.SessionID, e.row, e.field, e.value); err != nil {
			return withCode(exitUsage, errors.Wrapf(err, "--set %d:%s", e.row, e.field))
		}
	}
	if preview, err = svc.Preview(preview.SessionID); err != nil {
		return withCode(exitValidation, err)
	}

	summary := newRunSummary(opts, preview)
	if !preview.Importable {
		summary.Result = "rejected"
		if err := writeJSONLine(out, summary); err != nil {
			return err
		}
		return withCode(exitValidation, taskimport.ErrNotImportable)
	}
	if n := rowsWithErrors(preview); opts.strict && n > 0 {
		summary.Result = "rejected"
		if err := writeJSONLine(out, summary); err != nil {
			return err
		}
		return withCode(exitValidation, fmt.Errorf("%d rows have errors", n))
	}
	if !opts.apply {
		return writeJSONLine(out, summary)
	}

	res, err := svc.Commit(ctx, preview.SessionID, opts.mode)
	if err != nil {
		if errors.Is(err, taskimport.ErrNoDefaultProject) || errors.Is(err, taskimport.ErrNoDefaultSprint) {
			return withCode(exitValidation, err)
		}
		return withCode(exitDBWrite, err)
	}
	summary.Result = "applied"
	summary.Imported = res.Imported
	summary.Skipped = res.Skipped
	return writeJSONLine(out, summary)
}

func newRunSummary(opts runOptions, p *services.Preview) runSummary {
	s := runSummary{
		File:      opts.file,
		SessionID: p.SessionID,
		Result:    "dry_run",
		Status:    p.Summary.Status,
		Mode:      opts.mode,
		Summary:   p.Summary,
		Ignored:   p.Ignored,
		Unmatched: make([]string, 0, len(p.Unmatched)),
		Ambiguous: make([]string, 0, len(p.Ambiguous)),
		Findings:  p.Findings,
	}
	for _, u := range p.Unmatched {
		s.Unmatched = append(s.Unmatched, u.FirstName)
	}
	for _, a := range p.Ambiguous {
		s.Ambiguous = append(s.Ambiguous, a.FirstName)
	}
	return s
}

// rowsWithErrors counts rows with at least one error finding, skipping
// ignored rows.
func rowsWithErrors(p *services.Preview) int {
	skip := make(map[int]struct{}, len(p.Ignored))
	for _, row := range p.Ignored {
		skip[row] = struct{}{}
	}
	rows := map[int]struct{}{}
	for _, f := range p.Findings {
		if f.Severity != taskimport.SeverityError {
			continue
		}
		if _, ok := skip[f.Row]; ok {
			continue
		}
		rows[f.Row] = struct{}{}
	}
	return len(rows)
}
