package renderers

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"app/models"
	"app/utils"

	"github.com/shopspring/decimal"
)

// Metadata is the header block stamped on every report.
type Metadata struct {
	Organization string
	User         string
	Timestamp    time.Time
	Role         string
	Email        string
}

// Renderer is the capability set every report format implements. Content is
// accumulated through the Add* calls and emitted once by Generate.
type Renderer interface {
	AddTitle(text string)
	AddMetadata(meta Metadata)
	AddHeading(text string)
	AddParagraph(text string)
	AddSection(title, content string)
	AddTable(rows []models.Row, headers []string)
	Generate() ([]byte, error)
	Filename(ext string) string
	Extension() string
	MediaType() string
}

// registry maps format keys to renderer constructors. Formats register
// themselves from init; the coordinator only ever asks by key.
var registry = map[models.ReportFormat]func() Renderer{}

// Register adds a format constructor under a key.
func Register(key models.ReportFormat, ctor func() Renderer) {
	registry[key] = ctor
}

// New returns a fresh renderer for the key, or an UnknownFormatError when
// nothing is registered under it.
func New(key models.ReportFormat) (Renderer, error) {
	ctor, ok := registry[key]
	if !ok {
		return nil, &models.UnknownFormatError{Format: key}
	}
	return ctor(), nil
}

// Formats lists the registered format keys, sorted.
func Formats() []models.ReportFormat {
	keys := make([]models.ReportFormat, 0, len(registry))
	for k := range registry {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

type elemKind int

const (
	elemTitle elemKind = iota
	elemMetadata
	elemHeading
	elemParagraph
	elemSection
	elemTable
)

type element struct {
	kind    elemKind
	text    string
	body    string
	meta    Metadata
	rows    []models.Row
	headers []string
}

// document is the shared base of every renderer: it accumulates elements
// and owns value formatting, header resolution and filename assembly, so
// those rules live in exactly one place.
type document struct {
	title    string
	elements []element
}

func (d *document) AddTitle(text string) {
	d.title = text
	d.elements = append(d.elements, element{kind: elemTitle, text: text})
}

func (d *document) AddMetadata(meta Metadata) {
	d.elements = append(d.elements, element{kind: elemMetadata, meta: meta})
}

func (d *document) AddHeading(text string) {
	d.elements = append(d.elements, element{kind: elemHeading, text: text})
}

func (d *document) AddParagraph(text string) {
	d.elements = append(d.elements, element{kind: elemParagraph, text: text})
}

func (d *document) AddSection(title, content string) {
	d.elements = append(d.elements, element{kind: elemSection, text: title, body: content})
}

func (d *document) AddTable(rows []models.Row, headers []string) {
	d.elements = append(d.elements, element{kind: elemTable, rows: rows, headers: headers})
}

// Filename assembles "<safe_title>_<YYYYmmdd_HHMMSS>.<ext>".
func (d *document) Filename(ext string) string {
	title := d.title
	if title == "" {
		title = "reporte"
	}
	return fmt.Sprintf("%s_%s.%s", utils.SafeFilename(title), time.Now().Format("20060102_150405"), ext)
}

// tableHeaders resolves the header row: explicit headers win; otherwise the
// sorted key set of the first row keeps the output deterministic.
func tableHeaders(rows []models.Row, headers []string) []string {
	if len(headers) > 0 {
		return headers
	}
	if len(rows) == 0 {
		return nil
	}
	keys := make([]string, 0, len(rows[0]))
	for k := range rows[0] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// tableMatrix renders a table to strings, prepending the automatic 1-based
// "#" index column.
func tableMatrix(rows []models.Row, headers []string) ([]string, [][]string) {
	cols := tableHeaders(rows, headers)
	out := make([][]string, 0, len(rows))
	for i, row := range rows {
		line := make([]string, 0, len(cols)+1)
		line = append(line, strconv.Itoa(i+1))
		for _, col := range cols {
			line = append(line, FormatValue(row[col]))
		}
		out = append(out, line)
	}
	return append([]string{"#"}, cols...), out
}

// FormatValue applies the shared cell-formatting rules: null → "-",
// timestamps → DD/MM/YYYY HH:MM:SS, booleans → Sí/No, numbers → canonical
// decimal strings.
func FormatValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "-"
	case time.Time:
		return t.Format("02/01/2006 15:04:05")
	case *time.Time:
		if t == nil {
			return "-"
		}
		return t.Format("02/01/2006 15:04:05")
	case bool:
		if t {
			return "Sí"
		}
		return "No"
	case decimal.Decimal:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case *float64:
		if t == nil {
			return "-"
		}
		return strconv.FormatFloat(*t, 'f', -1, 64)
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
