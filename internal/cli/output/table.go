package output

import (
	"encoding/csv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/leapstack-labs/leapcrm/pkg/core"
)

// Table is a mode-independent tabular result.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	// Align holds "left", "right" or "center" per column; empty means left.
	Align   []string
	Caption string
}

// Table renders t in the effective mode. JSON callers should encode their
// own data with JSON instead.
func (r *Renderer) Table(t Table) error {
	switch r.EffectiveMode() {
	case ModeCSV:
		return r.tableCSV(t)
	case ModeMarkdown, ModeJSON:
		r.tableMarkdown(t)
		return nil
	default:
		r.tableText(t)
		return nil
	}
}

func (r *Renderer) tableText(t Table) {
	if t.Title != "" {
		r.Println(r.styles.Header1.Render(t.Title))
	}
	if len(t.Rows) == 0 {
		r.Println(r.styles.Muted.Render("(0 rows)"))
		return
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(r.out)
	tw.SetStyle(table.StyleLight)

	header := make(table.Row, len(t.Headers))
	for i, h := range t.Headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	configs := make([]table.ColumnConfig, 0, len(t.Align))
	for i, a := range t.Align {
		if align := textAlign(a); align != text.AlignDefault {
			configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align})
		}
	}
	tw.SetColumnConfigs(configs)

	for _, row := range t.Rows {
		tr := make(table.Row, len(row))
		for i, cell := range row {
			tr[i] = cell
		}
		tw.AppendRow(tr)
	}
	tw.Render()
	if t.Caption != "" {
		r.Println(r.styles.Muted.Render(t.Caption))
	}
}

func textAlign(a string) text.Align {
	switch a {
	case "right":
		return text.AlignRight
	case "center":
		return text.AlignCenter
	default:
		return text.AlignDefault
	}
}

func (r *Renderer) tableMarkdown(t Table) {
	if t.Title != "" {
		r.Println(FormatHeader(2, t.Title))
		r.Println()
	}
	if len(t.Rows) == 0 {
		r.Println("(0 rows)")
		return
	}
	r.Printf("| %s |\n", strings.Join(escapeCells(t.Headers), " | "))
	seps := make([]string, len(t.Headers))
	for i := range seps {
		seps[i] = "---"
		if i < len(t.Align) && t.Align[i] == "right" {
			seps[i] = "---:"
		}
	}
	r.Printf("| %s |\n", strings.Join(seps, " | "))
	for _, row := range t.Rows {
		r.Printf("| %s |\n", strings.Join(escapeCells(row), " | "))
	}
	if t.Caption != "" {
		r.Println()
		r.Println(t.Caption)
	}
}

func escapeCells(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.ReplaceAll(c, "|", `\|`)
	}
	return out
}

func (r *Renderer) tableCSV(t Table) error {
	w := csv.NewWriter(r.out)
	if err := w.Write(t.Headers); err != nil {
		return err
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return err
	}
	return w.Error()
}

// EntityTable builds the table for one page of an entity list.
func EntityTable(title string, cols []core.Column, rows []core.Entity, labels Labeler) Table {
	t := Table{
		Title:   title,
		Headers: make([]string, len(cols)),
		Align:   make([]string, len(cols)),
		Rows:    make([][]string, 0, len(rows)),
	}
	for i, c := range cols {
		t.Headers[i] = c.Label
		t.Align[i] = c.Align
		if t.Align[i] == "" && c.Type.IsNumeric() {
			t.Align[i] = "right"
		}
	}
	for _, e := range rows {
		row := make([]string, len(cols))
		for i, c := range cols {
			row[i] = FormatCell(c, e[c.Key], labels)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Badge renders a status value as a colored badge in text mode.
func (r *Renderer) Badge(value string) string {
	if r.EffectiveMode() != ModeText {
		return value
	}
	return r.styles.statusStyle(strings.ToLower(value)).Render(value)
}
