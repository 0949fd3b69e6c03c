package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapcrm/internal/devserver"
	"github.com/leapstack-labs/leapcrm/pkg/core"
	"github.com/leapstack-labs/leapcrm/pkg/filter"
)

// generateViewDocs writes one page per entity type describing the views the
// development server ships with and how each column filters.
func generateViewDocs(outDir string) error {
	log.Printf("Generating view docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	catalog, err := devserver.Views()
	if err != nil {
		return err
	}

	entityTypes := make([]string, 0, len(catalog))
	for entityType := range catalog {
		entityTypes = append(entityTypes, entityType)
	}
	sort.Strings(entityTypes)

	for _, entityType := range entityTypes {
		if err := generateViewPage(entityType, catalog[entityType], outDir); err != nil {
			return fmt.Errorf("failed to generate page for %s: %w", entityType, err)
		}
		log.Printf("  Generated %s.md", entityType)
	}
	return nil
}

func generateViewPage(entityType string, views []core.ViewConfig, outDir string) error {
	w := NewMarkdownWriter()

	w.Frontmatter(entityType, "Views and filterable columns for "+entityType)
	w.GeneratedMarker()
	w.Header(1, entityType)
	w.CodeBlock("bash", fmt.Sprintf("leapcrm list %s --view %s", entityType, views[0].Name))

	for _, v := range views {
		w.Header(2, fmt.Sprintf("%s (%s)", v.DisplayName, InlineCode(v.Name)))
		if v.DefaultSort != "" {
			order := v.DefaultOrder
			if order == "" {
				order = core.SortAsc
			}
			w.Paragraph(fmt.Sprintf("Sorted by %s %s by default.", InlineCode(v.DefaultSort), order))
		}

		headers := []string{"Column", "Label", "Type", "Sortable", "Filter"}
		var rows [][]string
		for _, col := range v.Columns {
			sortable := "no"
			if col.Sortable {
				sortable = "yes"
			}
			rows = append(rows, []string{
				InlineCode(col.Key),
				col.Label,
				string(col.Type),
				sortable,
				describeFilter(col),
			})
		}
		w.Table(headers, rows)
	}

	filename := filepath.Join(outDir, entityType+".md")
	return os.WriteFile(filename, w.Bytes(), 0600)
}

// describeFilter lists the operators a column accepts in -f key<op>value.
func describeFilter(col core.Column) string {
	if !col.Filterable {
		return "-"
	}
	ctl := filter.Resolve(col)
	ops := make([]string, 0, len(ctl.Operators))
	for _, op := range ctl.Operators {
		ops = append(ops, filter.OperatorLabel(ctl.Kind, op))
	}
	desc := strings.Join(ops, ", ")
	if listType, ok := filter.ReferenceFor(col.Key); ok {
		desc += " (values from " + InlineCode(listType) + ")"
	}
	return desc
}
