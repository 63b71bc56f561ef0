package taskimport

import (
	"strings"
)

// ParseOutput is the immutable result of parsing one upload.
type ParseOutput struct {
	Drafts []TaskDraft `json:"drafts"`
	// Findings raised by cell coercion only.
	Findings []Finding `json:"findings"`
	Projects []string  `json:"projects"`
	Sprints  []string  `json:"sprints"`
}

// ParseSheets runs the row parser over every sheet. Row indices are assigned
// across the whole upload, starting at 1, one per non-blank row.
func ParseSheets(sheets []RawSheet) ParseOutput {
	out := ParseOutput{
		Drafts:   []TaskDraft{},
		Findings: []Finding{},
		Projects: []string{},
		Sprints:  []string{},
	}
	seenProjects := make(map[string]struct{})
	seenSprints := make(map[string]struct{})
	rowIndex := 0

	for _, sheet := range sheets {
		if len(sheet.Rows) == 0 {
			continue
		}
		sprintName := strings.TrimSpace(sheet.Name)
		if _, ok := seenSprints[sprintName]; !ok {
			seenSprints[sprintName] = struct{}{}
			out.Sprints = append(out.Sprints, sprintName)
		}

		idx := matchHeader(sheet.Rows[0])
		for _, row := range sheet.Rows[1:] {
			get := func(f Field) Cell {
				i, ok := idx[f]
				if !ok || i >= len(row) {
					return nil
				}
				return row[i]
			}
			if isSpacerRow(get) {
				continue
			}
			rowIndex++
			draft, findings := parseRow(rowIndex, sprintName, get)
			out.Drafts = append(out.Drafts, draft)
			out.Findings = append(out.Findings, findings...)

			if draft.Project != "" {
				if _, ok := seenProjects[draft.Project]; !ok {
					seenProjects[draft.Project] = struct{}{}
					out.Projects = append(out.Projects, draft.Project)
				}
			}
		}
	}
	return out
}

// isSpacerRow reports rows without project, demand and title. They are
// dropped without findings.
func isSpacerRow(get func(Field) Cell) bool {
	for _, f := range []Field{FieldProject, FieldDemand, FieldTitle} {
		if _, ok := present(get(f)); ok {
			return false
		}
	}
	return true
}

func parseRow(rowIndex int, sprintName string, get func(Field) Cell) (TaskDraft, []Finding) {
	var findings []Finding
	report := func(f Field, iss *issue) {
		if iss == nil {
			return
		}
		findings = append(findings, Finding{
			Row:      rowIndex,
			Column:   columnLabel(f),
			Message:  iss.message,
			Severity: iss.severity,
		})
	}

	draft := TaskDraft{
		RowIndex:     rowIndex,
		Sprint:       sprintName,
		Type:         coerceType(get(FieldType)),
		Category:     coerceCategory(get(FieldCategory)),
		Responsibles: coerceResponsibles(get(FieldResponsibles)),
		HasIncident:  coerceBool(get(FieldIncident)),
		IsDelivered:  coerceBool(get(FieldDelivered)),
	}

	var iss *issue
	draft.Project, iss = requiredText(get(FieldProject), columnLabel(FieldProject))
	report(FieldProject, iss)
	draft.DemandID, iss = requiredText(get(FieldDemand), columnLabel(FieldDemand))
	report(FieldDemand, iss)
	draft.Title, iss = requiredText(get(FieldTitle), columnLabel(FieldTitle))
	report(FieldTitle, iss)
	draft.Priority, iss = coercePriority(get(FieldPriority))
	report(FieldPriority, iss)
	draft.EstimateHours, iss = coerceEstimate(get(FieldEstimate))
	report(FieldEstimate, iss)

	return draft, findings
}
