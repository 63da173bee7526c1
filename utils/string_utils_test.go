package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeFilename(t *testing.T) {
	assert.Equal(t, "Reporte_de_Ventas", SafeFilename("Reporte de Ventas"))
	assert.Equal(t, "Reporte_Analytics", SafeFilename("Reporte Analytics"))
	assert.Equal(t, "Ao_2025", SafeFilename("Año 2025"))
	assert.Equal(t, "reportefinal", SafeFilename("reporte/final!"))
	assert.Equal(t, "", SafeFilename("¿?¡!"))
}

func TestCreatePagination(t *testing.T) {
	p := CreatePagination(95, 2, 10)
	assert.Equal(t, 95, p.TotalItems)
	assert.Equal(t, 2, p.CurrentPage)
	assert.Equal(t, 10, p.TotalPages)

	defaults := CreatePagination(5, 0, 0)
	assert.Equal(t, 1, defaults.CurrentPage)
	assert.Equal(t, 10, defaults.PageSize)
	assert.Equal(t, 1, defaults.TotalPages)
}
