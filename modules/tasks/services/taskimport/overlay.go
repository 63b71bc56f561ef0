package taskimport

import (
	"sort"
	"strings"
	"sync"

	"github.com/go-faster/errors"
)

var (
	ErrUnknownRow   = errors.New("unknown row")
	ErrUnknownField = errors.New("unknown field")
)

var editableFields = map[Field]struct{}{
	FieldProject:      {},
	FieldDemand:       {},
	FieldPriority:     {},
	FieldTitle:        {},
	FieldType:         {},
	FieldCategory:     {},
	FieldResponsibles: {},
	FieldEstimate:     {},
	FieldIncident:     {},
	FieldDelivered:    {},
	FieldSprint:       {},
}

func ParseField(v string) (Field, error) {
	f := Field(Normalize(v))
	if _, ok := editableFields[f]; !ok {
		return "", errors.Wrapf(ErrUnknownField, "%q", v)
	}
	return f, nil
}

// MergedTask is a draft with the user's overrides applied.
type MergedTask struct {
	TaskDraft
	Edited  []Field `json:"edited,omitempty"`
	Ignored bool    `json:"ignored"`
}

// Overlay holds user corrections for one parse generation. Ignores and
// overrides are keyed by RowIndex only; the drafts themselves are never
// modified.
type Overlay struct {
	mu        sync.RWMutex
	drafts    []TaskDraft
	rows      map[int]struct{}
	ignored   map[int]struct{}
	overrides map[int]map[Field]Cell
}

func NewOverlay(drafts []TaskDraft) *Overlay {
	o := &Overlay{}
	o.reset(drafts)
	return o
}

// Reset swaps in a new draft arena and drops every ignore and override.
func (o *Overlay) Reset(drafts []TaskDraft) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reset(drafts)
}

func (o *Overlay) reset(drafts []TaskDraft) {
	o.drafts = make([]TaskDraft, len(drafts))
	o.rows = make(map[int]struct{}, len(drafts))
	for i, d := range drafts {
		o.drafts[i] = d.clone()
		o.rows[d.RowIndex] = struct{}{}
	}
	o.ignored = map[int]struct{}{}
	o.overrides = map[int]map[Field]Cell{}
}

// ToggleIgnore flips the ignore flag of row and returns the new state.
func (o *Overlay) ToggleIgnore(row int) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.rows[row]; !ok {
		return false, errors.Wrapf(ErrUnknownRow, "row %d", row)
	}
	if _, ok := o.ignored[row]; ok {
		delete(o.ignored, row)
		return false, nil
	}
	o.ignored[row] = struct{}{}
	return true, nil
}

// EditCell records value as the override of field on row, keeping the
// overrides of other fields on the same row.
func (o *Overlay) EditCell(row int, field Field, value Cell) error {
	if _, ok := editableFields[field]; !ok {
		return errors.Wrapf(ErrUnknownField, "%q", field)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.rows[row]; !ok {
		return errors.Wrapf(ErrUnknownRow, "row %d", row)
	}
	entry, ok := o.overrides[row]
	if !ok {
		entry = map[Field]Cell{}
		o.overrides[row] = entry
	}
	entry[field] = value
	return nil
}

// Ignored returns a copy of the ignored row set.
func (o *Overlay) Ignored() map[int]struct{} {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make(map[int]struct{}, len(o.ignored))
	for row := range o.ignored {
		out[row] = struct{}{}
	}
	return out
}

// Drafts returns a copy of the original parse.
func (o *Overlay) Drafts() []TaskDraft {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]TaskDraft, len(o.drafts))
	for i, d := range o.drafts {
		out[i] = d.clone()
	}
	return out
}

// Merge projects every draft with its overrides applied. Ignored rows are
// included and flagged; filtering is up to the caller.
func (o *Overlay) Merge() []MergedTask {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]MergedTask, 0, len(o.drafts))
	for _, d := range o.drafts {
		m := MergedTask{TaskDraft: d.clone()}
		_, m.Ignored = o.ignored[d.RowIndex]
		if entry, ok := o.overrides[d.RowIndex]; ok {
			fields := make([]Field, 0, len(entry))
			for f := range entry {
				fields = append(fields, f)
			}
			sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })
			for _, f := range fields {
				applyOverride(&m.TaskDraft, f, entry[f])
			}
			m.Edited = fields
		}
		out = append(out, m)
	}
	return out
}

// applyOverride runs the value through the column's coercion rule. Findings
// from overrides are discarded: validation always reflects the original parse.
func applyOverride(d *TaskDraft, f Field, v Cell) {
	switch f {
	case FieldProject:
		d.Project, _ = requiredText(v, "")
	case FieldDemand:
		d.DemandID, _ = requiredText(v, "")
	case FieldTitle:
		d.Title, _ = requiredText(v, "")
	case FieldSprint:
		d.Sprint, _ = present(v)
	case FieldPriority:
		d.Priority, _ = coercePriority(v)
	case FieldEstimate:
		d.EstimateHours, _ = coerceEstimate(v)
	case FieldType:
		d.Type = coerceType(v)
	case FieldCategory:
		d.Category = coerceCategory(v)
	case FieldIncident:
		d.HasIncident = coerceBool(v)
	case FieldDelivered:
		d.IsDelivered = coerceBool(v)
	case FieldResponsibles:
		d.Responsibles = coerceResponsibles(joinList(v))
	}
}

// joinList accepts either "a + b" or a JSON list of names.
func joinList(v Cell) Cell {
	switch list := v.(type) {
	case []string:
		return strings.Join(list, " + ")
	case []any:
		parts := make([]string, 0, len(list))
		for _, item := range list {
			parts = append(parts, cellText(item))
		}
		return strings.Join(parts, " + ")
	default:
		return v
	}
}

// IsImportable reports whether at least one non-ignored task carries
// project, demand and title. Warnings never block.
func IsImportable(merged []MergedTask, ignored map[int]struct{}) bool {
	for _, m := range merged {
		if _, skip := ignored[m.RowIndex]; skip {
			continue
		}
		if m.HasRequiredFields() {
			return true
		}
	}
	return false
}
