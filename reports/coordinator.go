package reports

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"app/models"
	"app/renderers"
	"app/store"
)

// previewRowCap bounds how many rows a preview carries back to the client.
const previewRowCap = 20

// Coordinator is the front door of report generation: it parses prompts,
// compiles the data and drives a renderer picked from the format registry.
type Coordinator struct {
	compiler *Compiler
	now      func() time.Time
}

// NewCoordinator builds a coordinator over the given store.
func NewCoordinator(st store.Store) *Coordinator {
	return &Coordinator{compiler: NewCompiler(st), now: time.Now}
}

// Output is one rendered report ready to be sent as a download.
type Output struct {
	Filename  string
	MediaType string
	Bytes     []byte
	Spec      *models.ReportSpec
	Meta      models.ReportMetadata
}

// Preview is the unrendered shape of a report: the first rows plus totals,
// for a client to inspect before asking for the real file.
type Preview struct {
	Spec      *models.ReportSpec     `json:"config"`
	Columns   []string               `json:"columns,omitempty"`
	Rows      []models.Row           `json:"rows,omitempty"`
	Sections  []models.ReportSection `json:"sections,omitempty"`
	Meta      models.ReportMetadata  `json:"metadata"`
	TotalRows int                    `json:"total_rows"`
	Truncated bool                   `json:"truncated"`
}

// titles per report kind.
var reportTitles = map[models.ReportKind]string{
	models.ReportVentas:    "Reporte de Ventas",
	models.ReportProductos: "Reporte de Productos",
	models.ReportClientes:  "Reporte de Clientes",
	models.ReportAnalytics: "Reporte Analytics",
}

// NormalizeFormat maps user-facing format aliases onto registry keys.
func NormalizeFormat(format string) models.ReportFormat {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "excel", "xlsx", "spreadsheet":
		return models.FormatSpreadsheet
	case "csv":
		return models.FormatCSV
	case "parquet":
		return models.FormatParquet
	case "pdf":
		return models.FormatPDF
	default:
		return models.ReportFormat(strings.ToLower(strings.TrimSpace(format)))
	}
}

// GenerateFromPrompt runs the full pipeline for a natural-language prompt.
// A non-empty formatOverride wins over whatever the prompt says.
func (co *Coordinator) GenerateFromPrompt(ctx context.Context, prompt, formatOverride string, meta renderers.Metadata) (*Output, error) {
	spec, err := Parse(prompt)
	if err != nil {
		return nil, err
	}
	if formatOverride != "" {
		spec.Format = NormalizeFormat(formatOverride)
	}
	return co.Generate(ctx, spec, meta)
}

// GeneratePredefined renders one of the fixed report kinds without a
// prompt. Filters go through the compiler's per-kind validation, so an
// unsupported key fails the same way a prompt-derived one would.
func (co *Coordinator) GeneratePredefined(ctx context.Context, kind models.ReportKind, format string, filters map[string]string, meta renderers.Metadata) (*Output, error) {
	if _, ok := reportTitles[kind]; !ok {
		return nil, &models.QueryBuildError{Msg: fmt.Sprintf("tipo de reporte desconocido: %q", kind)}
	}
	if filters == nil {
		filters = map[string]string{}
	}
	spec := &models.ReportSpec{
		Kind:    kind,
		Format:  NormalizeFormat(format),
		Filters: filters,
	}
	if spec.Format == "" {
		spec.Format = models.FormatPDF
	}
	return co.Generate(ctx, spec, meta)
}

// Generate compiles a spec and renders it into bytes.
func (co *Coordinator) Generate(ctx context.Context, spec *models.ReportSpec, meta renderers.Metadata) (*Output, error) {
	data, err := co.compiler.Compile(ctx, spec)
	if err != nil {
		return nil, err
	}

	r, err := renderers.New(spec.Format)
	if err != nil {
		return nil, err
	}
	if meta.Timestamp.IsZero() {
		meta.Timestamp = co.now()
	}

	title := reportTitles[spec.Kind]
	r.AddTitle(title)
	r.AddMetadata(meta)
	if scope := scopeLine(spec); scope != "" {
		r.AddParagraph(scope)
	}

	if spec.Kind == models.ReportAnalytics {
		for _, section := range data.Sections {
			r.AddHeading(section.Title)
			r.AddTable(section.Rows, section.Columns)
		}
	} else {
		r.AddTable(data.Rows, data.Columns)
		r.AddParagraph(fmt.Sprintf("Total de registros: %d", data.Meta.TotalRecords))
	}

	content, err := r.Generate()
	if err != nil {
		return nil, err
	}
	log.Printf("[REPORTS] generated %s report (%s, %d records)", spec.Kind, spec.Format, data.Meta.TotalRecords)

	return &Output{
		Filename:  r.Filename(r.Extension()),
		MediaType: r.MediaType(),
		Bytes:     content,
		Spec:      spec,
		Meta:      data.Meta,
	}, nil
}

// PreviewFromPrompt parses and compiles a prompt but stops short of
// rendering, returning at most previewRowCap rows.
func (co *Coordinator) PreviewFromPrompt(ctx context.Context, prompt string) (*Preview, error) {
	spec, err := Parse(prompt)
	if err != nil {
		return nil, err
	}
	data, err := co.compiler.Compile(ctx, spec)
	if err != nil {
		return nil, err
	}

	p := &Preview{
		Spec:      spec,
		Columns:   data.Columns,
		Sections:  data.Sections,
		Meta:      data.Meta,
		TotalRows: data.Meta.TotalRecords,
	}
	p.Rows = data.Rows
	if len(p.Rows) > previewRowCap {
		p.Rows = p.Rows[:previewRowCap]
		p.Truncated = true
	}
	return p, nil
}

// scopeLine renders the period, filters and grouping of a spec as one
// human-readable line under the report header.
func scopeLine(spec *models.ReportSpec) string {
	parts := make([]string, 0, 3)
	if spec.Period != nil && spec.Period.Label != "" {
		parts = append(parts, fmt.Sprintf("Período: %s", spec.Period.Label))
	}
	if len(spec.Filters) > 0 {
		keys := make([]string, 0, len(spec.Filters))
		for k := range spec.Filters {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, fmt.Sprintf("%s=%s", k, spec.Filters[k]))
		}
		parts = append(parts, fmt.Sprintf("Filtros: %s", strings.Join(pairs, ", ")))
	}
	if len(spec.GroupBy) > 0 {
		groups := make([]string, 0, len(spec.GroupBy))
		for _, g := range spec.GroupBy {
			groups = append(groups, string(g))
		}
		parts = append(parts, fmt.Sprintf("Agrupado por: %s", strings.Join(groups, ", ")))
	}
	return strings.Join(parts, " | ")
}
