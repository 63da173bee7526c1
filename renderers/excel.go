package renderers

import (
	"fmt"

	"app/models"

	"github.com/xuri/excelize/v2"
)

func init() {
	Register(models.FormatSpreadsheet, func() Renderer { return NewSpreadsheet() })
}

// maxColWidth caps auto-fitted column widths.
const maxColWidth = 50

// Spreadsheet renders a multi-sheet XLSX workbook: a "Resumen" sheet with
// the title, metadata and free text, and one sheet per table ("Datos" for
// standard reports, the section heading for analytics).
type Spreadsheet struct {
	document
}

// NewSpreadsheet builds an empty spreadsheet renderer.
func NewSpreadsheet() *Spreadsheet {
	return &Spreadsheet{}
}

func (s *Spreadsheet) Extension() string { return "xlsx" }
func (s *Spreadsheet) MediaType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (s *Spreadsheet) Generate() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const summary = "Resumen"
	f.SetSheetName("Sheet1", summary)

	titleStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 16}})
	labelStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 10}})
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"34495E"}, Pattern: 1},
	})
	stripeStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"F5F7FA"}, Pattern: 1},
	})

	row := 1
	tableIndex := 0
	lastHeading := ""
	for _, e := range s.elements {
		switch e.kind {
		case elemTitle:
			cell, _ := excelize.CoordinatesToCellName(1, row)
			f.SetCellValue(summary, cell, e.text)
			f.SetCellStyle(summary, cell, cell, titleStyle)
			row += 2
		case elemMetadata:
			meta := [][2]string{
				{"Organización", e.meta.Organization},
				{"Generado por", e.meta.User},
				{"Fecha", e.meta.Timestamp.Format("02/01/2006 15:04:05")},
			}
			if e.meta.Role != "" {
				meta = append(meta, [2]string{"Rol", e.meta.Role})
			}
			if e.meta.Email != "" {
				meta = append(meta, [2]string{"Email", e.meta.Email})
			}
			for _, kv := range meta {
				keyCell, _ := excelize.CoordinatesToCellName(1, row)
				valCell, _ := excelize.CoordinatesToCellName(2, row)
				f.SetCellValue(summary, keyCell, kv[0])
				f.SetCellStyle(summary, keyCell, keyCell, labelStyle)
				f.SetCellValue(summary, valCell, kv[1])
				row++
			}
			row++
		case elemHeading:
			lastHeading = e.text
			cell, _ := excelize.CoordinatesToCellName(1, row)
			f.SetCellValue(summary, cell, e.text)
			f.SetCellStyle(summary, cell, cell, labelStyle)
			row++
		case elemParagraph:
			cell, _ := excelize.CoordinatesToCellName(1, row)
			f.SetCellValue(summary, cell, e.text)
			row++
		case elemSection:
			keyCell, _ := excelize.CoordinatesToCellName(1, row)
			valCell, _ := excelize.CoordinatesToCellName(2, row)
			f.SetCellValue(summary, keyCell, e.text)
			f.SetCellStyle(summary, keyCell, keyCell, labelStyle)
			f.SetCellValue(summary, valCell, e.body)
			row++
		case elemTable:
			tableIndex++
			sheet := "Datos"
			if lastHeading != "" {
				sheet = sheetName(lastHeading)
				lastHeading = ""
			} else if tableIndex > 1 {
				sheet = fmt.Sprintf("Datos %d", tableIndex)
			}
			if _, err := f.NewSheet(sheet); err != nil {
				return nil, &models.RenderError{Msg: fmt.Sprintf("no se pudo crear la hoja %q: %v", sheet, err)}
			}
			s.writeTable(f, sheet, e, headerStyle, stripeStyle)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, &models.RenderError{Msg: fmt.Sprintf("no se pudo generar el XLSX: %v", err)}
	}
	return buf.Bytes(), nil
}

func (s *Spreadsheet) writeTable(f *excelize.File, sheet string, e element, headerStyle, stripeStyle int) {
	headers, rows := tableMatrix(e.rows, e.headers)
	widths := make([]int, len(headers))

	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
		widths[col] = len([]rune(h))
	}
	for i, row := range rows {
		for col, value := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			f.SetCellValue(sheet, cell, value)
			if i%2 == 0 {
				f.SetCellStyle(sheet, cell, cell, stripeStyle)
			}
			if n := len([]rune(value)); n > widths[col] {
				widths[col] = n
			}
		}
	}

	// auto-fit column widths up to the cap
	for col, w := range widths {
		width := float64(w) + 2
		if width > maxColWidth {
			width = maxColWidth
		}
		name, _ := excelize.ColumnNumberToName(col + 1)
		f.SetColWidth(sheet, name, name, width)
	}
}

// sheetName trims a heading to Excel's 31-character sheet-name limit.
func sheetName(heading string) string {
	runes := []rune(heading)
	if len(runes) > 31 {
		runes = runes[:31]
	}
	return string(runes)
}
