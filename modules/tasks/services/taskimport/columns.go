package taskimport

import "strings"

// Field identifies a TaskDraft field. The values double as the keys accepted
// by Overlay.EditCell.
type Field string

const (
	FieldProject      Field = "projeto"
	FieldDemand       Field = "demanda"
	FieldPriority     Field = "prioridade"
	FieldTitle        Field = "titulo"
	FieldType         Field = "tipo"
	FieldCategory     Field = "categoria"
	FieldResponsibles Field = "responsaveis"
	FieldEstimate     Field = "estimativa"
	FieldIncident     Field = "intercorrencia"
	FieldDelivered    Field = "entregue"
	FieldSprint       Field = "sprint"
)

// SystemColumn labels findings that belong to the import as a whole.
const SystemColumn = "Sistema"

type column struct {
	field Field
	label string
	// aliases are matched as substrings of the normalized header cell.
	aliases []string
}

// columns is the header contract. Keep the aliases stable: spreadsheets in
// the wild rely on them.
var columns = []column{
	{field: FieldProject, label: "Projeto", aliases: []string{"projeto", "project"}},
	{field: FieldDemand, label: "Demanda", aliases: []string{"demanda", "demand"}},
	{field: FieldPriority, label: "Prioridade", aliases: []string{"prioridade", "priority"}},
	{field: FieldTitle, label: "Título", aliases: []string{"titulo", "title"}},
	{field: FieldType, label: "Tipo", aliases: []string{"tipo", "type"}},
	{field: FieldCategory, label: "Categoria", aliases: []string{"categoria", "category"}},
	{field: FieldResponsibles, label: "Responsável", aliases: []string{"responsavel", "responsible"}},
	{field: FieldEstimate, label: "Estimativa", aliases: []string{"estimativa", "estimate", "horas", "hours"}},
	{field: FieldIncident, label: "Intercorrência", aliases: []string{"intercorrencia", "incident"}},
	{field: FieldDelivered, label: "Entregue", aliases: []string{"entregue", "delivered"}},
}

func columnLabel(f Field) string {
	for _, c := range columns {
		if c.field == f {
			return c.label
		}
	}
	return string(f)
}

// matchHeader maps each known field to the first header cell containing one
// of its aliases. A header cell is claimed by at most one field.
func matchHeader(header []Cell) map[Field]int {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = Normalize(cellText(h))
	}

	out := make(map[Field]int, len(columns))
	claimed := make(map[int]struct{}, len(columns))
	for _, col := range columns {
		for i, h := range normalized {
			if h == "" {
				continue
			}
			if _, taken := claimed[i]; taken {
				continue
			}
			if containsAny(h, col.aliases) {
				out[col.field] = i
				claimed[i] = struct{}{}
				break
			}
		}
	}
	return out
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
