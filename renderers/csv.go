package renderers

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"app/models"
)

func init() {
	Register(models.FormatCSV, func() Renderer { return NewCSV() })
}

// CSV renders a single UTF-8 sheet with a byte-order mark so spreadsheet
// tools detect the encoding. Titles, metadata and sections are emitted as
// comment rows.
type CSV struct {
	document
}

// NewCSV builds an empty CSV renderer.
func NewCSV() *CSV {
	return &CSV{}
}

func (c *CSV) Extension() string { return "csv" }
func (c *CSV) MediaType() string { return "text/csv" }

func (c *CSV) Generate() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 64*1024))
	buf.WriteString("\xEF\xBB\xBF")
	w := csv.NewWriter(buf)

	for _, e := range c.elements {
		switch e.kind {
		case elemTitle:
			w.Write([]string{fmt.Sprintf("# %s", e.text)})
		case elemMetadata:
			w.Write([]string{fmt.Sprintf("# Organización: %s", e.meta.Organization)})
			w.Write([]string{fmt.Sprintf("# Generado por: %s", e.meta.User)})
			w.Write([]string{fmt.Sprintf("# Fecha: %s", e.meta.Timestamp.Format("02/01/2006 15:04:05"))})
		case elemHeading:
			w.Write([]string{fmt.Sprintf("# %s", e.text)})
		case elemParagraph:
			w.Write([]string{fmt.Sprintf("# %s", e.text)})
		case elemSection:
			w.Write([]string{fmt.Sprintf("# %s: %s", e.text, e.body)})
		case elemTable:
			headers, rows := tableMatrix(e.rows, e.headers)
			if len(headers) == 0 {
				continue
			}
			if err := w.Write(headers); err != nil {
				return nil, &models.RenderError{Msg: fmt.Sprintf("no se pudo escribir el CSV: %v", err)}
			}
			for _, row := range rows {
				if err := w.Write(row); err != nil {
					return nil, &models.RenderError{Msg: fmt.Sprintf("no se pudo escribir el CSV: %v", err)}
				}
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, &models.RenderError{Msg: fmt.Sprintf("no se pudo generar el CSV: %v", err)}
	}
	return buf.Bytes(), nil
}
