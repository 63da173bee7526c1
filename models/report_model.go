package models

import (
	"fmt"
	"time"
)

// ReportKind identifies what a report is about.
type ReportKind string

const (
	ReportVentas    ReportKind = "ventas"
	ReportProductos ReportKind = "productos"
	ReportClientes  ReportKind = "clientes"
	ReportAnalytics ReportKind = "analytics"
)

// ReportFormat is a key into the renderer registry.
type ReportFormat string

const (
	FormatPDF         ReportFormat = "pdf"
	FormatSpreadsheet ReportFormat = "spreadsheet"
	FormatCSV         ReportFormat = "csv"
	FormatParquet     ReportFormat = "parquet"
)

// GroupKey tags a grouping dimension of a report.
type GroupKey string

const (
	GroupProducto  GroupKey = "producto"
	GroupCategoria GroupKey = "categoria"
	GroupCliente   GroupKey = "cliente"
	GroupMes       GroupKey = "mes"
)

// Filter field keys recognized per report kind. The compiler dispatches on
// these tags, never on caller-provided field names.
const (
	FilterEstado    = "estado"
	FilterCategoria = "categoria"
	FilterMarca     = "marca"
)

// ReportPeriod is a closed date range with a human label.
type ReportPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Label string    `json:"label"`
}

// ReportSpec is the structured form of a user's report request.
type ReportSpec struct {
	Kind    ReportKind        `json:"kind"`
	Format  ReportFormat      `json:"format"`
	Period  *ReportPeriod     `json:"period,omitempty"`
	Filters map[string]string `json:"filters"`
	GroupBy []GroupKey        `json:"groupBy"`
	Limit   int               `json:"limit,omitempty"`
}

// Row is one report row. Column order lives in ReportData.Columns because
// map iteration order is not stable.
type Row map[string]interface{}

// ReportSection is one titled block of an analytics report.
type ReportSection struct {
	Title   string   `json:"title"`
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// ReportMetadata describes how a ReportData was produced.
type ReportMetadata struct {
	TotalRecords   int               `json:"totalRecords"`
	PeriodLabel    string            `json:"periodLabel,omitempty"`
	FiltersApplied map[string]string `json:"filtersApplied"`
	GroupBy        []GroupKey        `json:"groupBy"`
	GeneratedAt    time.Time         `json:"generatedAt"`
}

// ReportData is the compiler's output: a flat table for ventas/productos/
// clientes, or a list of sections for analytics. It is immutable between
// compiler and renderer.
type ReportData struct {
	Columns  []string        `json:"columns,omitempty"`
	Rows     []Row           `json:"rows,omitempty"`
	Sections []ReportSection `json:"sections,omitempty"`
	Meta     ReportMetadata  `json:"metadata"`
}

// ReportTemplate is a built-in prompt the frontend can offer as a shortcut.
type ReportTemplate struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	PromptExample string `json:"prompt_example"`
	Category      string `json:"category"`
}

// Parse error tags.
const (
	ParseTagUnknownKind = "unknown_kind"
	ParseTagBadDate     = "bad_date"
)

// PromptParseError signals that a prompt could not be compiled into a
// ReportSpec. Tag is one of the ParseTag constants.
type PromptParseError struct {
	Tag string
	Msg string
}

func (e *PromptParseError) Error() string { return e.Msg }

// NewUnknownKindError builds the parse error for an unrecognized report kind.
func NewUnknownKindError() *PromptParseError {
	return &PromptParseError{
		Tag: ParseTagUnknownKind,
		Msg: "no se pudo identificar el tipo de reporte; incluye ventas, productos, clientes o analytics en el comando",
	}
}

// NewBadDateError builds the parse error for an ill-formed date token.
func NewBadDateError(token string) *PromptParseError {
	return &PromptParseError{
		Tag: ParseTagBadDate,
		Msg: fmt.Sprintf("fecha no válida en el comando: %q", token),
	}
}

// QueryBuildError signals an unsupported grouping, filter or limit for a
// report kind.
type QueryBuildError struct {
	Msg string
}

func (e *QueryBuildError) Error() string { return e.Msg }

// UnknownFormatError signals a format key with no registered renderer. It
// is the caller's mistake, unlike a RenderError.
type UnknownFormatError struct {
	Format ReportFormat
}

func (e *UnknownFormatError) Error() string {
	return fmt.Sprintf("formato de reporte desconocido: %q", e.Format)
}

// RenderError signals that a renderer could not produce its byte stream.
type RenderError struct {
	Msg string
}

func (e *RenderError) Error() string { return e.Msg }
