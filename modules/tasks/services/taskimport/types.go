// Package taskimport turns loosely structured spreadsheets into task drafts,
// resolves responsible names against the member roster, keeps user
// corrections in an overlay and maps accepted rows into task entities.
package taskimport

import (
	"github.com/iota-uz/sprintboard/modules/tasks/domain/aggregates/task"
)

// Cell is a raw spreadsheet value: string, float64, int, bool or nil.
type Cell = any

// RawSheet is one spreadsheet tab. Rows[0] is the header row.
type RawSheet struct {
	Name string   `json:"name"`
	Rows [][]Cell `json:"rows"`
}

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// Finding is a validation problem attached to a row. Row 0 is used for
// findings that belong to the whole import.
type Finding struct {
	Row      int      `json:"row"`
	Column   string   `json:"column"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// TaskDraft is one parsed row. Drafts are never mutated after parsing;
// RowIndex is the identity used by findings and the overlay.
type TaskDraft struct {
	RowIndex      int           `json:"rowIndex"`
	Sprint        string        `json:"sprint"`
	Project       string        `json:"project"`
	DemandID      string        `json:"demandId"`
	Priority      *int          `json:"priority"`
	Title         string        `json:"title"`
	Type          task.Type     `json:"type"`
	Category      task.Category `json:"category"`
	Responsibles  []string      `json:"responsibles"`
	EstimateHours float64       `json:"estimateHours"`
	HasIncident   bool          `json:"hasIncident"`
	IsDelivered   bool          `json:"isDelivered"`
}

// HasRequiredFields reports whether project, demand and title are all set.
func (d TaskDraft) HasRequiredFields() bool {
	return d.Project != "" && d.DemandID != "" && d.Title != ""
}

func (d TaskDraft) clone() TaskDraft {
	out := d
	if d.Responsibles != nil {
		out.Responsibles = append(make([]string, 0, len(d.Responsibles)), d.Responsibles...)
	}
	if d.Priority != nil {
		p := *d.Priority
		out.Priority = &p
	}
	return out
}

type UnmatchedMember struct {
	FirstName       string   `json:"firstName"`
	OccurrenceCount int      `json:"occurrenceCount"`
	Rows            []int    `json:"rows"`
	Suggestions     []string `json:"suggestions,omitempty"`
}

type AmbiguousMember struct {
	FirstName  string   `json:"firstName"`
	Rows       []int    `json:"rows"`
	Candidates []string `json:"candidates"`
}

type Summary struct {
	TotalTasks            int    `json:"totalTasks"`
	ValidTasks            int    `json:"validTasks"`
	TasksWithErrors       int    `json:"tasksWithErrors"`
	TasksWithWarnings     int    `json:"tasksWithWarnings"`
	TotalProjects         int    `json:"totalProjects"`
	TotalSprints          int    `json:"totalSprints"`
	UnmatchedMembersCount int    `json:"unmatchedMembersCount"`
	Status                Status `json:"status"`
}
