package taskimport

import (
	"fmt"
	"sort"

	"github.com/iota-uz/sprintboard/modules/tasks/domain/entities/member"
)

type Option func(o *options)

type options struct {
	suggestionLimit int
}

// WithSuggestionLimit caps the fuzzy suggestions attached to each unmatched
// name. Zero disables suggestions.
func WithSuggestionLimit(n int) Option {
	return func(o *options) { o.suggestionLimit = n }
}

func newOptions(opts []Option) options {
	o := options{suggestionLimit: 3}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Report is the aggregated validation state of a parse against one roster
// snapshot.
type Report struct {
	Findings  []Finding         `json:"findings"`
	Unmatched []UnmatchedMember `json:"unmatchedMembers"`
	Ambiguous []AmbiguousMember `json:"ambiguousMembers"`
	Summary   Summary           `json:"summary"`
}

// Aggregate combines coercion findings with responsible-name resolution and
// derives row and summary status. It is pure: call it again whenever the
// roster changes.
func Aggregate(out ParseOutput, roster []member.Member, opts ...Option) Report {
	o := newOptions(opts)
	resolver := NewResolver(roster)

	findings := make([]Finding, 0, len(out.Findings))
	findings = append(findings, out.Findings...)

	unmatched := map[string]*UnmatchedMember{}
	var unmatchedOrder []string
	ambiguous := map[string]*AmbiguousMember{}
	var ambiguousOrder []string

	label := columnLabel(FieldResponsibles)
	for _, d := range out.Drafts {
		for _, name := range d.Responsibles {
			res := resolver.Resolve(name)
			key := Normalize(name)
			switch {
			case res.Matched():
				continue
			case res.Ambiguous():
				findings = append(findings, Finding{
					Row:      d.RowIndex,
					Column:   label,
					Message:  fmt.Sprintf("member %q is ambiguous", name),
					Severity: SeverityWarning,
				})
				a, ok := ambiguous[key]
				if !ok {
					a = &AmbiguousMember{FirstName: key, Candidates: memberNames(res.Candidates)}
					ambiguous[key] = a
					ambiguousOrder = append(ambiguousOrder, key)
				}
				a.Rows = appendRow(a.Rows, d.RowIndex)
			default:
				findings = append(findings, Finding{
					Row:      d.RowIndex,
					Column:   label,
					Message:  fmt.Sprintf("member %q not found", name),
					Severity: SeverityWarning,
				})
				u, ok := unmatched[key]
				if !ok {
					u = &UnmatchedMember{FirstName: key, Suggestions: resolver.Suggest(key, o.suggestionLimit)}
					unmatched[key] = u
					unmatchedOrder = append(unmatchedOrder, key)
				}
				u.OccurrenceCount++
				u.Rows = appendRow(u.Rows, d.RowIndex)
			}
		}
	}

	sort.SliceStable(findings, func(i, j int) bool { return findings[i].Row < findings[j].Row })

	report := Report{
		Findings:  findings,
		Unmatched: make([]UnmatchedMember, 0, len(unmatchedOrder)),
		Ambiguous: make([]AmbiguousMember, 0, len(ambiguousOrder)),
	}
	for _, key := range unmatchedOrder {
		report.Unmatched = append(report.Unmatched, *unmatched[key])
	}
	for _, key := range ambiguousOrder {
		report.Ambiguous = append(report.Ambiguous, *ambiguous[key])
	}
	report.Summary = summarize(out, findings, len(report.Unmatched))
	return report
}

type rowState struct {
	errors   int
	warnings int
}

// RowStatus classifies one row: error (blocking), warning (cautionary) or
// success (clean).
func RowStatus(findings []Finding, row int) Status {
	var st rowState
	for _, f := range findings {
		if f.Row != row {
			continue
		}
		st.add(f.Severity)
	}
	return st.status()
}

func (s *rowState) add(sev Severity) {
	switch sev {
	case SeverityError:
		s.errors++
	case SeverityWarning:
		s.warnings++
	}
}

func (s rowState) status() Status {
	switch {
	case s.errors > 0:
		return StatusError
	case s.warnings > 0:
		return StatusWarning
	default:
		return StatusSuccess
	}
}

// OverallStatus applies error > warning > success dominance.
func OverallStatus(findings []Finding) Status {
	var st rowState
	for _, f := range findings {
		st.add(f.Severity)
	}
	return st.status()
}

// FindingsForRow returns the findings owned by row, in report order.
func FindingsForRow(findings []Finding, row int) []Finding {
	var out []Finding
	for _, f := range findings {
		if f.Row == row {
			out = append(out, f)
		}
	}
	return out
}

func summarize(out ParseOutput, findings []Finding, unmatched int) Summary {
	rows := make(map[int]*rowState, len(out.Drafts))
	for _, d := range out.Drafts {
		rows[d.RowIndex] = &rowState{}
	}
	for _, f := range findings {
		if st, ok := rows[f.Row]; ok {
			st.add(f.Severity)
		}
	}

	s := Summary{
		TotalTasks:            len(out.Drafts),
		TotalProjects:         len(out.Projects),
		TotalSprints:          len(out.Sprints),
		UnmatchedMembersCount: unmatched,
		Status:                OverallStatus(findings),
	}
	for _, st := range rows {
		switch st.status() {
		case StatusError:
			s.TasksWithErrors++
		case StatusWarning:
			s.TasksWithWarnings++
		}
	}
	s.ValidTasks = s.TotalTasks - s.TasksWithErrors
	return s
}

func appendRow(rows []int, row int) []int {
	if n := len(rows); n > 0 && rows[n-1] == row {
		return rows
	}
	return append(rows, row)
}

func memberNames(ms []member.Member) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Name
	}
	return out
}
