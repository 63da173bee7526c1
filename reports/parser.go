package reports

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"app/models"
)

// Parse compiles a free-form Spanish command into a ReportSpec. It is a
// pure function of the prompt and the current wall-clock date (used for
// relative periods like "último mes").
//
// Failure modes are a *models.PromptParseError with tag unknown_kind or
// bad_date; everything else defaults rather than fails.
func Parse(prompt string) (*models.ReportSpec, error) {
	return parseAt(prompt, time.Now())
}

// kindKeywords is checked in order; the first keyword found in the prompt
// decides the report kind.
var kindKeywords = []struct {
	kind  models.ReportKind
	words []string
}{
	{models.ReportVentas, []string{"ventas", "venta", "pedidos", "pedido", "órdenes", "ordenes", "orden"}},
	{models.ReportProductos, []string{"productos", "producto", "prendas", "prenda", "inventario", "stock"}},
	{models.ReportClientes, []string{"clientes", "cliente", "usuarios", "usuario"}},
	{models.ReportAnalytics, []string{"analytics", "analíticas", "analiticas", "estadísticas", "estadisticas", "resumen"}},
}

// formatKeywords is scanned in order; the first token found wins. excel and
// xlsx normalize to the spreadsheet renderer.
var formatKeywords = []struct {
	token  string
	format models.ReportFormat
}{
	{"pdf", models.FormatPDF},
	{"excel", models.FormatSpreadsheet},
	{"xlsx", models.FormatSpreadsheet},
	{"csv", models.FormatCSV},
}

// statusTokens maps prompt words to order states, checked in order so the
// two-word synonym wins over its prefix.
var statusTokens = []struct {
	token  string
	status models.OrderStatus
}{
	{"pago recibido", models.StatusPagoRecibido},
	{"pagado", models.StatusPagoRecibido},
	{"pendiente", models.StatusPendiente},
	{"confirmado", models.StatusConfirmado},
	{"preparando", models.StatusPreparando},
	{"enviado", models.StatusEnviado},
	{"entregado", models.StatusEntregado},
	{"cancelado", models.StatusCancelado},
}

var spanishMonths = []string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

var (
	monthRe    = regexp.MustCompile(`(enero|febrero|marzo|abril|mayo|junio|julio|agosto|septiembre|setiembre|octubre|noviembre|diciembre)(?:\s+(?:de\s+|del\s+)?(\d{4}))?`)
	yearRe     = regexp.MustCompile(`a[ñn]o\s+(\d{4})`)
	lastNRe    = regexp.MustCompile(`[úu]ltim[oa]s?\s+(\d+)\s+(d[ií]as?|semanas?|mes(?:es)?)`)
	dateRe     = regexp.MustCompile(`\d{4}[/-]\d{2}[/-]\d{2}|\d{2}[/-]\d{2}[/-]\d{4}`)
	limitRe    = regexp.MustCompile(`(?:top|primer[oa]s)\s+(\d+)`)
	categoryRe = regexp.MustCompile(`categor[ií]a\s+([\p{L}\p{N}]+)`)
	brandRe    = regexp.MustCompile(`marca\s+([\p{L}\p{N}]+)`)
)

func parseAt(prompt string, now time.Time) (*models.ReportSpec, error) {
	text := strings.ToLower(strings.TrimSpace(prompt))

	spec := &models.ReportSpec{
		Format:  models.FormatPDF,
		Filters: map[string]string{},
		GroupBy: []models.GroupKey{},
	}

	// 1. Kind gates everything else.
	kind, ok := detectKind(text)
	if !ok {
		return nil, models.NewUnknownKindError()
	}
	spec.Kind = kind

	// 2. Format (default pdf).
	for _, fk := range formatKeywords {
		if strings.Contains(text, fk.token) {
			spec.Format = fk.format
			break
		}
	}

	// 3. Period: first matching cue wins.
	period, err := extractPeriod(text, now)
	if err != nil {
		return nil, err
	}
	spec.Period = period

	// 4. Filters.
	if spec.Kind == models.ReportVentas {
		for _, st := range statusTokens {
			if strings.Contains(text, st.token) {
				spec.Filters[models.FilterEstado] = string(st.status)
				break
			}
		}
	}
	if m := categoryRe.FindStringSubmatch(text); m != nil {
		spec.Filters[models.FilterCategoria] = capitalize(m[1])
	}
	if m := brandRe.FindStringSubmatch(text); m != nil {
		spec.Filters[models.FilterMarca] = capitalize(m[1])
	}

	// 5. Grouping, in the order the user wrote it.
	spec.GroupBy = extractGroupBy(text)

	// 6. Limit.
	if m := limitRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			spec.Limit = n
		}
	}

	return spec, nil
}

func detectKind(text string) (models.ReportKind, bool) {
	for _, kk := range kindKeywords {
		for _, w := range kk.words {
			if strings.Contains(text, w) {
				return kk.kind, true
			}
		}
	}
	return "", false
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func dayEnd(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}

func monthRange(year int, month time.Month, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return start, dayEnd(start.AddDate(0, 1, -1))
}

func extractPeriod(text string, now time.Time) (*models.ReportPeriod, error) {
	loc := now.Location()

	// a. Named periods.
	switch {
	case strings.Contains(text, "hoy"):
		return &models.ReportPeriod{Start: dayStart(now), End: dayEnd(now), Label: "Hoy"}, nil
	case strings.Contains(text, "ayer"):
		y := now.AddDate(0, 0, -1)
		return &models.ReportPeriod{Start: dayStart(y), End: dayEnd(y), Label: "Ayer"}, nil
	case strings.Contains(text, "esta semana"):
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7 // Sunday closes the week
		}
		start := dayStart(now.AddDate(0, 0, -(weekday - 1)))
		return &models.ReportPeriod{Start: start, End: dayEnd(now), Label: "Esta semana"}, nil
	case strings.Contains(text, "este mes"):
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		return &models.ReportPeriod{Start: start, End: dayEnd(now), Label: "Este mes"}, nil
	case strings.Contains(text, "último mes"), strings.Contains(text, "ultimo mes"), strings.Contains(text, "mes pasado"):
		prev := now.AddDate(0, -1, 0)
		start, end := monthRange(prev.Year(), prev.Month(), loc)
		return &models.ReportPeriod{Start: start, End: end, Label: "Último mes"}, nil
	case strings.Contains(text, "este año"), strings.Contains(text, "este ano"):
		start := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, loc)
		return &models.ReportPeriod{Start: start, End: dayEnd(now), Label: "Este año"}, nil
	}

	// b. Spanish month name, optionally with a four-digit year.
	if m := monthRe.FindStringSubmatch(text); m != nil {
		month := monthNumber(m[1])
		year := now.Year()
		if m[2] != "" {
			year, _ = strconv.Atoi(m[2])
		}
		start, end := monthRange(year, time.Month(month), loc)
		return &models.ReportPeriod{
			Start: start,
			End:   end,
			Label: fmt.Sprintf("%s %d", capitalize(m[1]), year),
		}, nil
	}

	// "año 2025" covers whole-year requests.
	if m := yearRe.FindStringSubmatch(text); m != nil {
		year, _ := strconv.Atoi(m[1])
		start := time.Date(year, 1, 1, 0, 0, 0, 0, loc)
		end := time.Date(year, 12, 31, 23, 59, 59, 0, loc)
		return &models.ReportPeriod{Start: start, End: end, Label: fmt.Sprintf("Año %d", year)}, nil
	}

	// c. "últimos N días/semanas/meses".
	if m := lastNRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		var start time.Time
		unit := m[2]
		switch {
		case strings.HasPrefix(unit, "d"):
			start = now.AddDate(0, 0, -n)
		case strings.HasPrefix(unit, "s"):
			start = now.AddDate(0, 0, -7*n)
		default:
			start = now.AddDate(0, -n, 0)
		}
		return &models.ReportPeriod{
			Start: dayStart(start),
			End:   dayEnd(now),
			Label: fmt.Sprintf("Últimos %s %s", m[1], unit),
		}, nil
	}

	// d. Literal date tokens.
	tokens := dateRe.FindAllString(text, -1)
	if len(tokens) == 0 {
		return nil, nil
	}
	first, err := parseDateToken(tokens[0])
	if err != nil {
		return nil, err
	}
	if len(tokens) >= 2 {
		second, err := parseDateToken(tokens[1])
		if err != nil {
			return nil, err
		}
		// end < start is accepted as-is and simply yields an empty set
		return &models.ReportPeriod{
			Start: dayStart(first),
			End:   dayEnd(second),
			Label: fmt.Sprintf("%s - %s", first.Format("02/01/2006"), second.Format("02/01/2006")),
		}, nil
	}
	return &models.ReportPeriod{
		Start: dayStart(first),
		End:   dayEnd(first),
		Label: first.Format("02/01/2006"),
	}, nil
}

var dateLayouts = []string{"02/01/2006", "02-01-2006", "2006-01-02", "2006/01/02"}

func parseDateToken(token string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, token); err == nil {
			return t, nil
		}
	}
	return time.Time{}, models.NewBadDateError(token)
}

func monthNumber(name string) int {
	if name == "setiembre" {
		return 9
	}
	for i, m := range spanishMonths {
		if m == name {
			return i + 1
		}
	}
	return 0
}

func extractGroupBy(text string) []models.GroupKey {
	type hit struct {
		pos int
		key models.GroupKey
	}
	cues := []struct {
		tokens []string
		key    models.GroupKey
	}{
		{[]string{"por producto"}, models.GroupProducto},
		{[]string{"por categoría", "por categoria"}, models.GroupCategoria},
		{[]string{"por cliente"}, models.GroupCliente},
		{[]string{"por mes"}, models.GroupMes},
	}
	hits := make([]hit, 0, 4)
	for _, cue := range cues {
		for _, token := range cue.tokens {
			if pos := strings.Index(text, token); pos >= 0 {
				hits = append(hits, hit{pos, cue.key})
				break
			}
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	out := make([]models.GroupKey, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.key)
	}
	return out
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
