package reports

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"app/models"
)

var fixedNow = time.Date(2025, 7, 15, 10, 30, 0, 0, time.UTC)

func TestParse_VentasPorMesDelAnio(t *testing.T) {
	spec, err := parseAt("Generar reporte de ventas del año 2025 agrupado por mes en excel", fixedNow)
	assert.NoError(t, err)
	assert.Equal(t, models.ReportVentas, spec.Kind)
	assert.Equal(t, models.FormatSpreadsheet, spec.Format)
	assert.Equal(t, []models.GroupKey{models.GroupMes}, spec.GroupBy)
	assert.NotNil(t, spec.Period)
	assert.Equal(t, "Año 2025", spec.Period.Label)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), spec.Period.Start)
	assert.Equal(t, time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC), spec.Period.End)
}

func TestParse_DefaultsToPDF(t *testing.T) {
	spec, err := parseAt("reporte de ventas de este mes", fixedNow)
	assert.NoError(t, err)
	assert.Equal(t, models.FormatPDF, spec.Format)
}

func TestParse_UnknownKind(t *testing.T) {
	_, err := parseAt("generar un documento cualquiera en pdf", fixedNow)
	assert.Error(t, err)
	parseErr, ok := err.(*models.PromptParseError)
	assert.True(t, ok)
	assert.Equal(t, models.ParseTagUnknownKind, parseErr.Tag)
}

func TestParse_BadDate(t *testing.T) {
	_, err := parseAt("reporte de ventas del 2025-13-45", fixedNow)
	assert.Error(t, err)
	parseErr, ok := err.(*models.PromptParseError)
	assert.True(t, ok)
	assert.Equal(t, models.ParseTagBadDate, parseErr.Tag)
}

func TestParse_MonthName(t *testing.T) {
	spec, err := parseAt("reporte de ventas de marzo de 2024 en csv", fixedNow)
	assert.NoError(t, err)
	assert.Equal(t, models.FormatCSV, spec.Format)
	assert.Equal(t, "Marzo 2024", spec.Period.Label)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), spec.Period.Start)
	assert.Equal(t, time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC), spec.Period.End)
}

func TestParse_MonthNameWithoutYearUsesCurrent(t *testing.T) {
	spec, err := parseAt("reporte de ventas de enero", fixedNow)
	assert.NoError(t, err)
	assert.Equal(t, "Enero 2025", spec.Period.Label)
}

func TestParse_UltimosNDias(t *testing.T) {
	spec, err := parseAt("reporte de ventas de los últimos 30 días", fixedNow)
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), spec.Period.Start)
	assert.Equal(t, time.Date(2025, 7, 15, 23, 59, 59, 0, time.UTC), spec.Period.End)
}

func TestParse_UltimoMes(t *testing.T) {
	spec, err := parseAt("reporte de pedidos del último mes", fixedNow)
	assert.NoError(t, err)
	assert.Equal(t, "Último mes", spec.Period.Label)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), spec.Period.Start)
	assert.Equal(t, time.Date(2025, 6, 30, 23, 59, 59, 0, time.UTC), spec.Period.End)
}

func TestParse_DateRange(t *testing.T) {
	spec, err := parseAt("reporte de ventas del 01/03/2025 al 31/03/2025", fixedNow)
	assert.NoError(t, err)
	assert.Equal(t, "01/03/2025 - 31/03/2025", spec.Period.Label)
}

func TestParse_StatusFilter(t *testing.T) {
	spec, err := parseAt("reporte de ventas con estado pago recibido", fixedNow)
	assert.NoError(t, err)
	assert.Equal(t, string(models.StatusPagoRecibido), spec.Filters[models.FilterEstado])
}

func TestParse_StatusOnlyForVentas(t *testing.T) {
	spec, err := parseAt("reporte de clientes con estado cancelado", fixedNow)
	assert.NoError(t, err)
	_, hasEstado := spec.Filters[models.FilterEstado]
	assert.False(t, hasEstado)
}

func TestParse_CategoryAndBrand(t *testing.T) {
	spec, err := parseAt("reporte de productos de la categoría vestidos de la marca zara", fixedNow)
	assert.NoError(t, err)
	assert.Equal(t, "Vestidos", spec.Filters[models.FilterCategoria])
	assert.Equal(t, "Zara", spec.Filters[models.FilterMarca])
}

func TestParse_GroupByKeepsWrittenOrder(t *testing.T) {
	spec, err := parseAt("reporte de ventas por mes y por producto", fixedNow)
	assert.NoError(t, err)
	assert.Equal(t, []models.GroupKey{models.GroupMes, models.GroupProducto}, spec.GroupBy)
}

func TestParse_Limit(t *testing.T) {
	spec, err := parseAt("reporte de ventas por producto top 10", fixedNow)
	assert.NoError(t, err)
	assert.Equal(t, 10, spec.Limit)
}

func TestParse_IsDeterministic(t *testing.T) {
	prompt := "reporte de ventas de junio por producto top 5 en excel"
	first, err := parseAt(prompt, fixedNow)
	assert.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := parseAt(prompt, fixedNow)
		assert.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestParse_FormatDoesNotChangeContent(t *testing.T) {
	pdf, err := parseAt("reporte de ventas de junio por producto en pdf", fixedNow)
	assert.NoError(t, err)
	csv, err := parseAt("reporte de ventas de junio por producto en csv", fixedNow)
	assert.NoError(t, err)

	assert.Equal(t, pdf.Kind, csv.Kind)
	assert.Equal(t, pdf.Period, csv.Period)
	assert.Equal(t, pdf.GroupBy, csv.GroupBy)
	assert.Equal(t, pdf.Filters, csv.Filters)
	assert.NotEqual(t, pdf.Format, csv.Format)
}
