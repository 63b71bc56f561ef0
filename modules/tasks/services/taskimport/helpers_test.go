package taskimport

var standardHeader = []Cell{
	"Projeto", "Demanda", "Prioridade", "Título", "Tipo", "Categoria",
	"Responsável", "Estimativa", "Intercorrência", "Entregue",
}

func row(cells ...Cell) []Cell { return cells }

func sheet(name string, rows ...[]Cell) RawSheet {
	return RawSheet{Name: name, Rows: append([][]Cell{standardHeader}, rows...)}
}

func intPtr(v int) *int { return &v }
