package storage

import (
	"bytes"
	"testing"
	"time"

	"github.com/gmendonca/nfe-pipeline/internal/normalize"
)

func sampleRows() []normalize.Row {
	issued := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	year, month := int32(2024), int32(6)
	return []normalize.Row{
		{
			ID:              1,
			Numero:          100,
			Serie:           1,
			ChaveNotaFiscal: "chave-1",
			ValorNotaFiscal: 1234.56,
			DataEmissao:     &issued,
			NomeFornecedor:  "Fornecedor A",
			Year:            &year,
			Month:           &month,
		},
		{
			// null dates exercise the nullable timestamp columns
			ID:              2,
			Numero:          101,
			Serie:           1,
			ChaveNotaFiscal: "chave-2",
			ValorNotaFiscal: 10,
			NomeFornecedor:  "Fornecedor B",
		},
	}
}

func TestWriteParquet(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := writeParquet(buf, sampleRows()); err != nil {
		t.Fatalf("writeParquet failed: %v", err)
	}

	out := buf.Bytes()
	if len(out) < 8 {
		t.Fatalf("parquet output too small: %d bytes", len(out))
	}
	// Parquet files are framed by the PAR1 magic at both ends.
	if !bytes.HasPrefix(out, []byte("PAR1")) || !bytes.HasSuffix(out, []byte("PAR1")) {
		t.Error("output is not framed by the parquet magic bytes")
	}
}

func TestGroupRows(t *testing.T) {
	rows := sampleRows()
	july := rowFor(2024, 7, 3)
	table := normalize.NewTable(append(rows, july))

	groups := groupRows(table)
	if len(groups) != 3 {
		t.Fatalf("groups = %d, want 3 (june, null, july)", len(groups))
	}

	byDir := make(map[string]int)
	for _, g := range groups {
		byDir[g.dir] = len(g.rows)
	}
	if byDir["year=2024/month=6"] != 1 {
		t.Errorf("june rows = %d, want 1", byDir["year=2024/month=6"])
	}
	if byDir["year=2024/month=7"] != 1 {
		t.Errorf("july rows = %d, want 1", byDir["year=2024/month=7"])
	}
	if byDir[hiveDefaultDir] != 1 {
		t.Errorf("null-partition rows = %d, want 1 under %s", byDir[hiveDefaultDir], hiveDefaultDir)
	}
}

func TestSplitURI(t *testing.T) {
	tests := []struct {
		uri     string
		bucket  string
		prefix  string
		wantErr bool
	}{
		{"gs://bucket/raw/notas_fiscais", "bucket", "raw/notas_fiscais", false},
		{"gs://bucket", "bucket", "", false},
		{"gs://bucket/", "bucket", "", false},
		{"s3://bucket/raw", "", "", true},
		{"bucket/raw", "", "", true},
		{"gs://", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, prefix, err := splitURI(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Fatalf("splitURI(%q) error = %v, wantErr %v", tt.uri, err, tt.wantErr)
			}
			if bucket != tt.bucket || prefix != tt.prefix {
				t.Errorf("splitURI(%q) = %q, %q; want %q, %q", tt.uri, bucket, prefix, tt.bucket, tt.prefix)
			}
		})
	}
}
