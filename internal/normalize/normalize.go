// Package normalize converts raw invoice records into the fixed tabular
// schema the loader persists.
package normalize

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gmendonca/nfe-pipeline/internal/transparencia"
)

const (
	issuanceLayout = "02/01/2006"
	eventLayout    = "02/01/2006 15:04:05"
)

// amountPattern matches Brazilian-locale monetary strings: "." only as a
// thousands separator (groups of three), "," as the decimal separator.
// "1.234,56", "1234,56" and "1234" conform; "1234.56" does not.
var amountPattern = regexp.MustCompile(`^-?(\d+|\d{1,3}(\.\d{3})+)(,\d+)?$`)

// Normalize converts raw API records into a typed table, one row per
// record. It is all-or-nothing: any value that cannot be coerced into its
// fixed column type fails the whole batch with an error wrapping the root
// cause. Only the two date columns are lenient; an unparseable date becomes
// a null timestamp (and null partition keys) for that row instead of
// failing the batch. An empty input yields an empty table.
func Normalize(records []transparencia.Record) (*Table, error) {
	rows := make([]Row, 0, len(records))
	for i, rec := range records {
		row, err := normalizeRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("normalize: record %d: %w", i, err)
		}
		rows = append(rows, row)
	}
	return NewTable(rows), nil
}

func normalizeRecord(rec transparencia.Record) (Row, error) {
	var row Row
	var err error

	if row.ID, err = getInt64Field(rec, "id"); err != nil {
		return row, err
	}
	if row.Numero, err = getInt64Field(rec, "numero"); err != nil {
		return row, err
	}
	if row.Serie, err = getInt64Field(rec, "serie"); err != nil {
		return row, err
	}
	if row.ValorNotaFiscal, err = getAmountField(rec, "valorNotaFiscal"); err != nil {
		return row, err
	}

	for _, f := range []struct {
		key  string
		dest *string
	}{
		{"chaveNotaFiscal", &row.ChaveNotaFiscal},
		{"codigoOrgaoSuperiorDestinatario", &row.CodigoOrgaoSuperiorDestinatario},
		{"orgaoSuperiorDestinatario", &row.OrgaoSuperiorDestinatario},
		{"codigoOrgaoDestinatario", &row.CodigoOrgaoDestinatario},
		{"orgaoDestinatario", &row.OrgaoDestinatario},
		{"nomeFornecedor", &row.NomeFornecedor},
		{"cnpjFornecedor", &row.CnpjFornecedor},
		{"municipioFornecedor", &row.MunicipioFornecedor},
		{"tipoEventoMaisRecente", &row.TipoEventoMaisRecente},
	} {
		if *f.dest, err = getStringField(rec, f.key); err != nil {
			return row, err
		}
	}

	row.DataEmissao = getTimestampField(rec, "dataEmissao", issuanceLayout)
	row.DataTipoEventoMaisRecente = getTimestampField(rec, "dataTipoEventoMaisRecente", eventLayout)

	if row.DataEmissao != nil {
		year := int32(row.DataEmissao.Year())
		month := int32(row.DataEmissao.Month())
		row.Year = &year
		row.Month = &month
	}

	return row, nil
}

// getAmountField parses a locale-formatted monetary string ("1.234,56")
// into a float64. A value that is not of that shape fails the coercion.
func getAmountField(rec transparencia.Record, key string) (float64, error) {
	raw, err := getStringField(rec, key)
	if err != nil {
		return 0, err
	}
	raw = strings.TrimSpace(raw)
	if !amountPattern.MatchString(raw) {
		return 0, fmt.Errorf("field %q: malformed amount %q", key, raw)
	}
	cleaned := strings.ReplaceAll(raw, ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("field %q: malformed amount %q: %w", key, raw, err)
	}
	return v, nil
}

// getInt64Field coerces a required integer column. The API is inconsistent
// about numeric types, so both JSON numbers and numeric strings are
// accepted; anything else (including a missing value) fails the coercion.
func getInt64Field(rec transparencia.Record, key string) (int64, error) {
	v, ok := rec[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("missing required field %q", key)
	}
	switch val := v.(type) {
	case float64:
		if val != math.Trunc(val) {
			return 0, fmt.Errorf("field %q has non-integer value %v", key, val)
		}
		return int64(val), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("field %q has non-integer value %q", key, val)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("field %q has type %T, want integer", key, v)
	}
}

// getStringField coerces a text column. Missing or null values become "";
// JSON numbers are stringified (some code fields arrive unquoted).
func getStringField(rec transparencia.Record, key string) (string, error) {
	v, ok := rec[key]
	if !ok || v == nil {
		return "", nil
	}
	switch val := v.(type) {
	case string:
		return val, nil
	case float64:
		if val == math.Trunc(val) {
			return strconv.FormatInt(int64(val), 10), nil
		}
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("field %q has type %T, want string", key, v)
	}
}

// getTimestampField parses a best-effort date column. Missing, non-string
// or malformed values become nil rather than failing the row.
func getTimestampField(rec transparencia.Record, key, layout string) *time.Time {
	raw, ok := rec[key].(string)
	if !ok {
		return nil
	}
	t, err := time.Parse(layout, strings.TrimSpace(raw))
	if err != nil {
		return nil
	}
	return &t
}
