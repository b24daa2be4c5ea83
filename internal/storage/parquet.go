package storage

import (
	"fmt"
	"io"
	"time"

	"github.com/apache/arrow/go/v15/arrow"
	"github.com/apache/arrow/go/v15/arrow/array"
	"github.com/apache/arrow/go/v15/arrow/memory"
	"github.com/apache/arrow/go/v15/parquet"
	"github.com/apache/arrow/go/v15/parquet/compress"
	"github.com/apache/arrow/go/v15/parquet/pqarrow"

	"github.com/gmendonca/nfe-pipeline/internal/normalize"
)

// invoiceSchema is the column layout of one partition file. The partition
// keys are not stored in the files; hive-style readers recover them from
// the object path.
var invoiceSchema = arrow.NewSchema([]arrow.Field{
	{Name: "id", Type: arrow.PrimitiveTypes.Int64},
	{Name: "chaveNotaFiscal", Type: arrow.BinaryTypes.String},
	{Name: "numero", Type: arrow.PrimitiveTypes.Int64},
	{Name: "serie", Type: arrow.PrimitiveTypes.Int64},
	{Name: "valorNotaFiscal", Type: arrow.PrimitiveTypes.Float64},
	{Name: "dataEmissao", Type: arrow.FixedWidthTypes.Timestamp_us, Nullable: true},
	{Name: "dataTipoEventoMaisRecente", Type: arrow.FixedWidthTypes.Timestamp_us, Nullable: true},
	{Name: "codigoOrgaoSuperiorDestinatario", Type: arrow.BinaryTypes.String},
	{Name: "orgaoSuperiorDestinatario", Type: arrow.BinaryTypes.String},
	{Name: "codigoOrgaoDestinatario", Type: arrow.BinaryTypes.String},
	{Name: "orgaoDestinatario", Type: arrow.BinaryTypes.String},
	{Name: "nomeFornecedor", Type: arrow.BinaryTypes.String},
	{Name: "cnpjFornecedor", Type: arrow.BinaryTypes.String},
	{Name: "municipioFornecedor", Type: arrow.BinaryTypes.String},
	{Name: "tipoEventoMaisRecente", Type: arrow.BinaryTypes.String},
}, nil)

// writeParquet encodes the rows as one Snappy-compressed parquet file.
func writeParquet(w io.Writer, rows []normalize.Row) error {
	bldr := array.NewRecordBuilder(memory.DefaultAllocator, invoiceSchema)
	defer bldr.Release()

	for _, row := range rows {
		bldr.Field(0).(*array.Int64Builder).Append(row.ID)
		bldr.Field(1).(*array.StringBuilder).Append(row.ChaveNotaFiscal)
		bldr.Field(2).(*array.Int64Builder).Append(row.Numero)
		bldr.Field(3).(*array.Int64Builder).Append(row.Serie)
		bldr.Field(4).(*array.Float64Builder).Append(row.ValorNotaFiscal)
		appendTimestamp(bldr.Field(5).(*array.TimestampBuilder), row.DataEmissao)
		appendTimestamp(bldr.Field(6).(*array.TimestampBuilder), row.DataTipoEventoMaisRecente)
		bldr.Field(7).(*array.StringBuilder).Append(row.CodigoOrgaoSuperiorDestinatario)
		bldr.Field(8).(*array.StringBuilder).Append(row.OrgaoSuperiorDestinatario)
		bldr.Field(9).(*array.StringBuilder).Append(row.CodigoOrgaoDestinatario)
		bldr.Field(10).(*array.StringBuilder).Append(row.OrgaoDestinatario)
		bldr.Field(11).(*array.StringBuilder).Append(row.NomeFornecedor)
		bldr.Field(12).(*array.StringBuilder).Append(row.CnpjFornecedor)
		bldr.Field(13).(*array.StringBuilder).Append(row.MunicipioFornecedor)
		bldr.Field(14).(*array.StringBuilder).Append(row.TipoEventoMaisRecente)
	}

	rec := bldr.NewRecord()
	defer rec.Release()

	tbl := array.NewTableFromRecords(invoiceSchema, []arrow.Record{rec})
	defer tbl.Release()

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	if err := pqarrow.WriteTable(tbl, w, tbl.NumRows(), props, pqarrow.DefaultWriterProps()); err != nil {
		return fmt.Errorf("encode parquet: %w", err)
	}
	return nil
}

func appendTimestamp(b *array.TimestampBuilder, t *time.Time) {
	if t == nil {
		b.AppendNull()
		return
	}
	b.Append(arrow.Timestamp(t.UnixMicro()))
}
