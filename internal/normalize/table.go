package normalize

import (
	"sort"
	"time"
)

// Row is one fully typed invoice. Column names keep the Portuguese API
// field names; Year and Month are derived partition keys.
type Row struct {
	ID     int64
	Numero int64
	Serie  int64

	ChaveNotaFiscal string
	ValorNotaFiscal float64

	DataEmissao               *time.Time
	DataTipoEventoMaisRecente *time.Time

	CodigoOrgaoSuperiorDestinatario string
	OrgaoSuperiorDestinatario       string
	CodigoOrgaoDestinatario         string
	OrgaoDestinatario               string
	NomeFornecedor                  string
	CnpjFornecedor                  string
	MunicipioFornecedor             string
	TipoEventoMaisRecente           string

	// Partition keys derived from DataEmissao; nil when the issuance date
	// is missing or unparseable.
	Year  *int32
	Month *int32
}

// Partition identifies one (year, month) output partition.
type Partition struct {
	Year  int32
	Month int32
}

// Table is a batch of normalized rows. It is built once per run and not
// mutated afterwards.
type Table struct {
	rows []Row
}

// NewTable wraps the given rows. The caller hands over ownership of the
// slice.
func NewTable(rows []Row) *Table {
	return &Table{rows: rows}
}

// NumRows returns the number of rows in the table.
func (t *Table) NumRows() int {
	return len(t.rows)
}

// Rows returns the table's rows in insertion order.
func (t *Table) Rows() []Row {
	return t.rows
}

// Partitions returns the sorted distinct set of (year, month) pairs present
// in the table. Rows without partition keys are not represented.
func (t *Table) Partitions() []Partition {
	seen := make(map[Partition]bool)
	var parts []Partition
	for _, r := range t.rows {
		if r.Year == nil || r.Month == nil {
			continue
		}
		p := Partition{Year: *r.Year, Month: *r.Month}
		if !seen[p] {
			seen[p] = true
			parts = append(parts, p)
		}
	}
	sort.Slice(parts, func(i, j int) bool {
		if parts[i].Year != parts[j].Year {
			return parts[i].Year < parts[j].Year
		}
		return parts[i].Month < parts[j].Month
	})
	return parts
}
