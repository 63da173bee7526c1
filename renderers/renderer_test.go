package renderers

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"app/models"
)

func sampleRows() []models.Row {
	return []models.Row{
		{"producto": "Vestido Floral", "precio": decimal.NewFromInt(45), "cantidad_vendida": 4},
		{"producto": "Jeans Slim", "precio": decimal.NewFromInt(60), "cantidad_vendida": 2},
	}
}

func sampleMeta() Metadata {
	return Metadata{
		Organization: "Tienda de Ropa",
		User:         "María López",
		Timestamp:    time.Date(2025, 7, 15, 10, 0, 0, 0, time.UTC),
	}
}

func TestRegistry_KnownFormats(t *testing.T) {
	for _, key := range []models.ReportFormat{models.FormatPDF, models.FormatSpreadsheet, models.FormatCSV, models.FormatParquet} {
		r, err := New(key)
		assert.NoError(t, err)
		assert.NotNil(t, r)
	}
}

func TestRegistry_UnknownFormat(t *testing.T) {
	_, err := New(models.ReportFormat("docx"))
	assert.Error(t, err)
	_, ok := err.(*models.UnknownFormatError)
	assert.True(t, ok)
}

func TestFormats_Sorted(t *testing.T) {
	formats := Formats()
	assert.Contains(t, formats, models.FormatPDF)
	assert.Contains(t, formats, models.FormatCSV)
	for i := 1; i < len(formats); i++ {
		assert.True(t, formats[i-1] < formats[i])
	}
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "-", FormatValue(nil))
	assert.Equal(t, "Sí", FormatValue(true))
	assert.Equal(t, "No", FormatValue(false))
	assert.Equal(t, "42", FormatValue(42))
	assert.Equal(t, "45.5", FormatValue(decimal.NewFromFloat(45.5)))
	assert.Equal(t, "15/07/2025 10:00:00", FormatValue(time.Date(2025, 7, 15, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, "hola", FormatValue("hola"))
}

func TestFilenamePattern(t *testing.T) {
	c := NewCSV()
	c.AddTitle("Reporte de Ventas")

	name := c.Filename(c.Extension())
	assert.Regexp(t, regexp.MustCompile(`^Reporte_de_Ventas_\d{8}_\d{6}\.csv$`), name)
}

func TestCSV_Output(t *testing.T) {
	c := NewCSV()
	c.AddTitle("Reporte de Ventas")
	c.AddMetadata(sampleMeta())
	c.AddTable(sampleRows(), []string{"producto", "precio", "cantidad_vendida"})
	c.AddParagraph("Total de registros: 2")

	out, err := c.Generate()
	assert.NoError(t, err)

	content := string(out)
	assert.True(t, strings.HasPrefix(content, "\xEF\xBB\xBF"))
	assert.Contains(t, content, "# Reporte de Ventas")
	assert.Contains(t, content, "# Generado por: María López")

	// Comment rows are "# ..." single-cell lines; the header row starts with
	// the automatic "#" index column followed by a comma.
	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(content, "\xEF\xBB\xBF")), "\n")
	var header string
	for _, l := range lines {
		if !strings.HasPrefix(l, "# ") {
			header = l
			break
		}
	}
	assert.Equal(t, "#,producto,precio,cantidad_vendida", header)
	assert.Contains(t, content, "1,Vestido Floral,45,4")
	assert.Contains(t, content, "2,Jeans Slim,60,2")
}

func TestCSV_HeadersDefaultToSortedKeys(t *testing.T) {
	c := NewCSV()
	c.AddTable([]models.Row{{"b": 1, "a": 2}}, nil)

	out, err := c.Generate()
	assert.NoError(t, err)
	content := strings.TrimPrefix(string(out), "\xEF\xBB\xBF")
	assert.True(t, strings.HasPrefix(content, "#,a,b"))
}

func TestPDF_Output(t *testing.T) {
	p := NewPDF()
	p.AddTitle("Reporte de Ventas")
	p.AddMetadata(sampleMeta())
	p.AddTable(sampleRows(), []string{"producto", "precio", "cantidad_vendida"})

	out, err := p.Generate()
	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "%PDF"))
}

func TestSpreadsheet_Output(t *testing.T) {
	s := NewSpreadsheet()
	s.AddTitle("Reporte de Ventas")
	s.AddMetadata(sampleMeta())
	s.AddTable(sampleRows(), []string{"producto", "precio", "cantidad_vendida"})

	out, err := s.Generate()
	assert.NoError(t, err)
	// XLSX files are zip archives
	assert.True(t, strings.HasPrefix(string(out), "PK"))
}

func TestParquet_Output(t *testing.T) {
	p := NewParquet()
	p.AddTitle("Reporte de Ventas")
	p.AddTable(sampleRows(), []string{"producto", "precio", "cantidad_vendida"})

	out, err := p.Generate()
	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "PAR1"))
}

func TestParquet_RequiresTable(t *testing.T) {
	p := NewParquet()
	p.AddTitle("Reporte de Ventas")

	_, err := p.Generate()
	assert.Error(t, err)
	_, ok := err.(*models.RenderError)
	assert.True(t, ok)
}
