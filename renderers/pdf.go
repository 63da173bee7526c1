package renderers

import (
	"bytes"
	"fmt"
	"os"

	"app/models"

	"github.com/jung-kurt/gofpdf"
)

func init() {
	Register(models.FormatPDF, func() Renderer { return NewPDF() })
}

// PDF renders a paged A4 document with zebra-striped tables, a colored
// table header, and page numbers in every footer.
type PDF struct {
	document
	logoPath string
}

// NewPDF builds an empty PDF renderer.
func NewPDF() *PDF {
	return &PDF{}
}

// SetLogo points the renderer at an optional logo drawn at the top-left of
// the first page. A missing file is silently skipped.
func (p *PDF) SetLogo(path string) {
	p.logoPath = path
}

func (p *PDF) Extension() string { return "pdf" }
func (p *PDF) MediaType() string { return "application/pdf" }

func (p *PDF) Generate() ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(15, 15, 15)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 10, tr(fmt.Sprintf("Página %d de {nb}", pdf.PageNo())), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	if p.logoPath != "" {
		if _, err := os.Stat(p.logoPath); err == nil {
			pdf.ImageOptions(p.logoPath, 15, 10, 25, 0, false, gofpdf.ImageOptions{}, 0, "")
			pdf.SetY(30)
		}
	}

	for _, e := range p.elements {
		switch e.kind {
		case elemTitle:
			pdf.SetFont("Arial", "B", 18)
			pdf.SetTextColor(33, 37, 41)
			pdf.CellFormat(0, 12, tr(e.text), "", 1, "C", false, 0, "")
			pdf.Ln(2)
		case elemMetadata:
			pdf.SetFont("Arial", "", 9)
			pdf.SetTextColor(90, 90, 90)
			pdf.CellFormat(0, 5, tr(fmt.Sprintf("Organización: %s", e.meta.Organization)), "", 1, "L", false, 0, "")
			user := e.meta.User
			if e.meta.Role != "" {
				user = fmt.Sprintf("%s (%s)", user, e.meta.Role)
			}
			pdf.CellFormat(0, 5, tr(fmt.Sprintf("Generado por: %s", user)), "", 1, "L", false, 0, "")
			if e.meta.Email != "" {
				pdf.CellFormat(0, 5, tr(fmt.Sprintf("Email: %s", e.meta.Email)), "", 1, "L", false, 0, "")
			}
			pdf.CellFormat(0, 5, tr(fmt.Sprintf("Fecha: %s", e.meta.Timestamp.Format("02/01/2006 15:04:05"))), "", 1, "L", false, 0, "")
			pdf.Ln(3)
		case elemHeading:
			pdf.SetFont("Arial", "B", 13)
			pdf.SetTextColor(33, 37, 41)
			pdf.CellFormat(0, 9, tr(e.text), "", 1, "L", false, 0, "")
			pdf.Ln(1)
		case elemParagraph:
			pdf.SetFont("Arial", "", 10)
			pdf.SetTextColor(60, 60, 60)
			pdf.MultiCell(0, 5, tr(e.text), "", "L", false)
			pdf.Ln(2)
		case elemSection:
			pdf.SetFont("Arial", "B", 12)
			pdf.SetTextColor(33, 37, 41)
			pdf.CellFormat(0, 8, tr(e.text), "", 1, "L", false, 0, "")
			pdf.SetFont("Arial", "", 10)
			pdf.SetTextColor(60, 60, 60)
			pdf.MultiCell(0, 5, tr(e.body), "", "L", false)
			pdf.Ln(2)
		case elemTable:
			p.writeTable(pdf, tr, e)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, &models.RenderError{Msg: fmt.Sprintf("no se pudo generar el PDF: %v", err)}
	}
	return buf.Bytes(), nil
}

func (p *PDF) writeTable(pdf *gofpdf.Fpdf, tr func(string) string, e element) {
	headers, rows := tableMatrix(e.rows, e.headers)
	if len(headers) == 0 {
		return
	}

	pageWidth, _ := pdf.GetPageSize()
	usable := pageWidth - 30
	widths := make([]float64, len(headers))
	widths[0] = 10 // index column
	rest := (usable - widths[0]) / float64(len(headers)-1)
	for i := 1; i < len(headers); i++ {
		widths[i] = rest
	}

	// header row
	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(52, 73, 94)
	pdf.SetTextColor(255, 255, 255)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, tr(h), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	pdf.SetTextColor(33, 37, 41)
	for i, row := range rows {
		// zebra stripes
		if i%2 == 0 {
			pdf.SetFillColor(245, 247, 250)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		for j, cell := range row {
			pdf.CellFormat(widths[j], 6, tr(cell), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)
}
