package transparencia

import "time"

// Record is one raw invoice object as returned by the notas-fiscais
// endpoint. Field names are the Portuguese names of the API payload
// (dataEmissao, valorNotaFiscal, nomeFornecedor, ...); values keep whatever
// JSON type the API sent and are only coerced downstream.
type Record map[string]any

const (
	issuanceDateField  = "dataEmissao"
	issuanceDateLayout = "02/01/2006"
)

// IssuanceDate returns the record's parsed issuance date. The second return
// is false when the field is missing, not a string, or malformed.
func (r Record) IssuanceDate() (time.Time, bool) {
	raw, ok := r[issuanceDateField].(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(issuanceDateLayout, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
