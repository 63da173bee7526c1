package reports

import "app/models"

// Templates are the built-in report shortcuts offered to the frontend.
// Each carries a ready-to-send prompt so the client never assembles one.
func Templates() []models.ReportTemplate {
	return []models.ReportTemplate{
		{
			ID:            "ventas-mes-actual",
			Name:          "Ventas del mes",
			Description:   "Ventas de este mes agrupadas por producto",
			PromptExample: "Generar reporte de ventas de este mes por producto en pdf",
			Category:      "ventas",
		},
		{
			ID:            "ventas-ultimos-30",
			Name:          "Ventas últimos 30 días",
			Description:   "Detalle de pedidos de los últimos 30 días",
			PromptExample: "Generar reporte de ventas de los últimos 30 días en excel",
			Category:      "ventas",
		},
		{
			ID:            "top-productos",
			Name:          "Productos más vendidos",
			Description:   "Top 10 de productos por unidades vendidas este año",
			PromptExample: "Generar reporte de ventas de este año por producto top 10 en pdf",
			Category:      "ventas",
		},
		{
			ID:            "inventario",
			Name:          "Inventario por categoría",
			Description:   "Catálogo activo agrupado por categoría",
			PromptExample: "Generar reporte de productos por categoria en excel",
			Category:      "productos",
		},
		{
			ID:            "clientes-csv",
			Name:          "Clientes",
			Description:   "Listado de clientes con pedidos y gasto total",
			PromptExample: "Generar reporte de clientes en csv",
			Category:      "clientes",
		},
		{
			ID:            "analytics-general",
			Name:          "Analytics general",
			Description:   "Resumen completo del negocio con comparativa anual",
			PromptExample: "Generar reporte analytics en pdf",
			Category:      "analytics",
		},
	}
}
