package output

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/leapstack-labs/leapcrm/pkg/core"
)

// FormatHeader returns a markdown heading.
func FormatHeader(level int, text string) string {
	return strings.Repeat("#", max(level, 1)) + " " + text
}

// FormatKeyValue returns a markdown list item with a bold label.
func FormatKeyValue(key, value string) string {
	return fmt.Sprintf("- **%s:** %s", key, value)
}

// FormatRange describes the rows on screen, e.g. "Showing 41-45 of 45".
func FormatRange(start, end, total int) string {
	if total == 0 || start == 0 {
		return "No results"
	}
	return fmt.Sprintf("Showing %s-%s of %s", FormatInt(start), FormatInt(end), FormatInt(total))
}

var (
	printer   = message.NewPrinter(language.English)
	titleCase = cases.Title(language.English)
)

// FormatInt groups digits: 1234567 -> "1,234,567".
func FormatInt(n int) string {
	return printer.Sprintf("%d", n)
}

// currencySymbols maps ISO codes found in Column.Format to symbols.
var currencySymbols = map[string]string{
	"":    "$",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
}

// Labeler resolves a reference id in a column to its display name.
type Labeler interface {
	Label(columnKey, id string) (string, bool)
}

// FormatCell formats a raw entity value for display according to its column.
// Missing values render as "-". labels may be nil.
func FormatCell(col core.Column, v any, labels Labeler) string {
	if v == nil {
		return "-"
	}
	switch col.Type {
	case core.ColumnNumber:
		f, ok := toFloat(v)
		if !ok {
			return fmt.Sprint(v)
		}
		if f == math.Trunc(f) {
			return printer.Sprintf("%d", int64(f))
		}
		return printer.Sprintf("%.2f", f)
	case core.ColumnCurrency:
		f, ok := toFloat(v)
		if !ok {
			return fmt.Sprint(v)
		}
		sym, ok := currencySymbols[strings.ToUpper(col.Format)]
		if !ok {
			sym = strings.ToUpper(col.Format) + " "
		}
		sign := ""
		if f < 0 {
			sign, f = "-", -f
		}
		return sign + sym + printer.Sprintf("%d", int64(math.Round(f)))
	case core.ColumnPercentage:
		f, ok := toFloat(v)
		if !ok {
			return fmt.Sprint(v)
		}
		return strconv.FormatFloat(f, 'f', -1, 64) + "%"
	case core.ColumnDate:
		return formatDate(v, col.Format)
	case core.ColumnBoolean:
		if b, ok := v.(bool); ok {
			if b {
				return "Yes"
			}
			return "No"
		}
		return fmt.Sprint(v)
	case core.ColumnSelect, core.ColumnStatus:
		s := fmt.Sprint(v)
		if labels != nil {
			if label, ok := labels.Label(col.Key, s); ok {
				return label
			}
		}
		if col.Type == core.ColumnStatus {
			return titleCase.String(strings.ReplaceAll(s, "_", " "))
		}
		return s
	default:
		s := fmt.Sprint(v)
		if s == "" {
			return "-"
		}
		return s
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func formatDate(v any, layout string) string {
	if layout == "" {
		layout = "Jan 2, 2006"
	}
	switch t := v.(type) {
	case time.Time:
		return t.Format(layout)
	case string:
		for _, in := range []string{time.RFC3339Nano, time.RFC3339, core.DateLayout} {
			if parsed, err := time.Parse(in, t); err == nil {
				return parsed.Format(layout)
			}
		}
		return t
	default:
		return fmt.Sprint(v)
	}
}
