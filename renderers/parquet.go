package renderers

import (
	"fmt"
	"strings"

	"app/models"

	"github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

func init() {
	Register(models.FormatParquet, func() Renderer { return NewParquet() })
}

// Parquet renders the report's table as a snappy-compressed parquet file
// for downstream analytical tooling. Parquet is columnar: titles, metadata
// and free text have no place in it, and only the first table of the
// report is emitted.
type Parquet struct {
	document
}

// NewParquet builds an empty parquet renderer.
func NewParquet() *Parquet {
	return &Parquet{}
}

func (p *Parquet) Extension() string { return "parquet" }
func (p *Parquet) MediaType() string { return "application/vnd.apache.parquet" }

func (p *Parquet) Generate() ([]byte, error) {
	var table *element
	for i := range p.elements {
		if p.elements[i].kind == elemTable {
			table = &p.elements[i]
			break
		}
	}
	if table == nil {
		return nil, &models.RenderError{Msg: "el reporte no contiene ninguna tabla para exportar a parquet"}
	}

	headers, rows := tableMatrix(table.rows, table.headers)
	if len(headers) == 0 {
		return nil, &models.RenderError{Msg: "el reporte no contiene ninguna tabla para exportar a parquet"}
	}

	md := make([]string, len(headers))
	for i, h := range headers {
		md[i] = fmt.Sprintf("name=%s, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN", parquetColumn(h))
	}

	fw, err := buffer.NewBufferFile(nil)
	if err != nil {
		return nil, &models.RenderError{Msg: fmt.Sprintf("no se pudo crear el buffer parquet: %v", err)}
	}
	pw, err := writer.NewCSVWriter(md, fw, 1)
	if err != nil {
		return nil, &models.RenderError{Msg: fmt.Sprintf("no se pudo crear el escritor parquet: %v", err)}
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, row := range rows {
		rec := make([]*string, len(row))
		for i := range row {
			v := row[i]
			rec[i] = &v
		}
		if err := pw.WriteString(rec); err != nil {
			return nil, &models.RenderError{Msg: fmt.Sprintf("no se pudo escribir el parquet: %v", err)}
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, &models.RenderError{Msg: fmt.Sprintf("no se pudo cerrar el parquet: %v", err)}
	}
	return fw.(buffer.BufferFile).Bytes(), nil
}

// parquetColumn lowercases a header and keeps it inside parquet's naming
// rules; the automatic "#" index column becomes "fila".
func parquetColumn(header string) string {
	if header == "#" {
		return "fila"
	}
	var b strings.Builder
	for _, r := range strings.ToLower(header) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "col"
	}
	return b.String()
}
