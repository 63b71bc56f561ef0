package taskimport

import (
	"github.com/iota-uz/sprintboard/modules/tasks/domain/entities/member"
)

// Result is everything the presentation layer needs after a parse.
type Result struct {
	Drafts    []TaskDraft       `json:"drafts"`
	Findings  []Finding         `json:"findings"`
	Unmatched []UnmatchedMember `json:"unmatchedMembers"`
	Ambiguous []AmbiguousMember `json:"ambiguousMembers"`
	Summary   Summary           `json:"summary"`
}

// Parse runs coercion, row parsing, member resolution and aggregation.
func Parse(sheets []RawSheet, roster []member.Member, opts ...Option) Result {
	out := ParseSheets(sheets)
	return NewResult(out, Aggregate(out, roster, opts...))
}

func NewResult(out ParseOutput, report Report) Result {
	return Result{
		Drafts:    out.Drafts,
		Findings:  report.Findings,
		Unmatched: report.Unmatched,
		Ambiguous: report.Ambiguous,
		Summary:   report.Summary,
	}
}

// SystemFailure reports a decode failure as a regular, explorable result:
// no drafts and a single error finding on the Sistema column.
func SystemFailure(err error) Result {
	msg := "failed to read spreadsheet"
	if err != nil {
		msg = err.Error()
	}
	findings := []Finding{{
		Row:      0,
		Column:   SystemColumn,
		Message:  msg,
		Severity: SeverityError,
	}}
	return Result{
		Drafts:    []TaskDraft{},
		Findings:  findings,
		Unmatched: []UnmatchedMember{},
		Ambiguous: []AmbiguousMember{},
		Summary:   Summary{Status: StatusError},
	}
}
