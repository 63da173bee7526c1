package reports

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"app/models"
	"app/renderers"
)

func testMetadata() renderers.Metadata {
	return renderers.Metadata{
		Organization: "Tienda de Ropa",
		User:         "María López",
		Timestamp:    time.Date(2025, 7, 15, 10, 0, 0, 0, time.UTC),
	}
}

func TestCoordinator_GenerateCSVFromPrompt(t *testing.T) {
	co := NewCoordinator(seedStore())

	out, err := co.GenerateFromPrompt(context.Background(), "reporte de ventas por producto en csv", "", testMetadata())
	assert.NoError(t, err)
	assert.Equal(t, "text/csv", out.MediaType)
	assert.True(t, strings.HasPrefix(out.Filename, "Reporte_de_Ventas_"))
	assert.True(t, strings.HasSuffix(out.Filename, ".csv"))

	content := string(out.Bytes)
	assert.True(t, strings.HasPrefix(content, "\xEF\xBB\xBF"))
	assert.Contains(t, content, "Vestido Floral")
	assert.Contains(t, content, "cantidad_vendida")
}

func TestCoordinator_FormatOverrideWins(t *testing.T) {
	co := NewCoordinator(seedStore())

	out, err := co.GenerateFromPrompt(context.Background(), "reporte de ventas en pdf", "csv", testMetadata())
	assert.NoError(t, err)
	assert.Equal(t, models.FormatCSV, out.Spec.Format)
	assert.Equal(t, "text/csv", out.MediaType)
}

func TestCoordinator_GeneratePredefined(t *testing.T) {
	co := NewCoordinator(seedStore())

	out, err := co.GeneratePredefined(context.Background(), models.ReportClientes, "excel", nil, testMetadata())
	assert.NoError(t, err)
	assert.Equal(t, models.FormatSpreadsheet, out.Spec.Format)
	assert.True(t, strings.HasSuffix(out.Filename, ".xlsx"))
	assert.NotEmpty(t, out.Bytes)
}

func TestCoordinator_PredefinedUnknownKind(t *testing.T) {
	co := NewCoordinator(seedStore())

	_, err := co.GeneratePredefined(context.Background(), models.ReportKind("facturas"), "pdf", nil, testMetadata())
	assert.Error(t, err)
	_, ok := err.(*models.QueryBuildError)
	assert.True(t, ok)
}

func TestCoordinator_UnknownFormat(t *testing.T) {
	co := NewCoordinator(seedStore())

	_, err := co.GenerateFromPrompt(context.Background(), "reporte de ventas", "dbf", testMetadata())
	assert.Error(t, err)
	_, ok := err.(*models.UnknownFormatError)
	assert.True(t, ok)
}

func TestCoordinator_PreviewCapsRows(t *testing.T) {
	st := seedStore()
	for i := 0; i < 30; i++ {
		st.Orders = append(st.Orders, models.OrderFact{
			OrderID:      fmt.Sprintf("ox%02d", i),
			OrderNumber:  fmt.Sprintf("PED-1%03d", i),
			CustomerRef:  "c1",
			CustomerName: "Ana García",
			Status:       models.StatusEntregado,
			CreatedAt:    time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Hour),
			Total:        decimal.NewFromInt(10),
		})
	}
	co := NewCoordinator(st)

	preview, err := co.PreviewFromPrompt(context.Background(), "reporte de ventas")
	assert.NoError(t, err)
	assert.Len(t, preview.Rows, 20)
	assert.True(t, preview.Truncated)
	assert.Equal(t, 33, preview.TotalRows)
}

func TestCoordinator_PreviewParseErrorPropagates(t *testing.T) {
	co := NewCoordinator(seedStore())

	_, err := co.PreviewFromPrompt(context.Background(), "hazme algo bonito")
	assert.Error(t, err)
	parseErr, ok := err.(*models.PromptParseError)
	assert.True(t, ok)
	assert.Equal(t, models.ParseTagUnknownKind, parseErr.Tag)
}

func TestNormalizeFormat(t *testing.T) {
	assert.Equal(t, models.FormatSpreadsheet, NormalizeFormat("Excel"))
	assert.Equal(t, models.FormatSpreadsheet, NormalizeFormat("xlsx"))
	assert.Equal(t, models.FormatPDF, NormalizeFormat("PDF"))
	assert.Equal(t, models.FormatParquet, NormalizeFormat("parquet"))
}
