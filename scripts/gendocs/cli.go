package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapcrm/internal/cli/config"
	"github.com/leapstack-labs/leapcrm/internal/devserver"
	"github.com/leapstack-labs/leapcrm/pkg/core"
	"github.com/leapstack-labs/leapcrm/pkg/filter"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// generateCLIDocs writes an index page plus one page per command of root.
func generateCLIDocs(root *cobra.Command, outDir string) error {
	log.Printf("Generating CLI docs to %s", outDir)

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

	if err := writePage(outDir, "index", cliIndex(root, entityTypes)); err != nil {
		return err
	}
	for _, cmd := range documented(root) {
		if err := writePage(outDir, cmd.Name(), commandPage(cmd, entityTypes)); err != nil {
			return fmt.Errorf("failed to generate page for %s: %w", cmd.Name(), err)
		}
		log.Printf("  Generated %s.md", cmd.Name())
	}
	return nil
}

func writePage(outDir, name string, w *MarkdownWriter) error {
	return os.WriteFile(filepath.Join(outDir, name+".md"), w.Bytes(), 0600)
}

// documented returns the visible top-level commands in name order.
func documented(root *cobra.Command) []*cobra.Command {
	var cmds []*cobra.Command
	for _, cmd := range root.Commands() {
		if cmd.Hidden || cmd.Name() == "help" || cmd.Name() == "__complete" {
			continue
		}
		cmds = append(cmds, cmd)
	}
	return cmds
}

// takesEntity reports whether cmd's first argument is an entity type.
func takesEntity(cmd *cobra.Command) bool {
	return strings.Contains(cmd.Use, "<entity>")
}

func cliIndex(root *cobra.Command, entityTypes []string) *MarkdownWriter {
	w := NewMarkdownWriter()
	w.Frontmatter("CLI Reference", "Command-line interface reference for LeapCRM")
	w.GeneratedMarker()

	w.Header(1, "CLI Reference")
	w.Paragraph(root.Long)
	w.CodeBlock("bash", "go install github.com/leapstack-labs/leapcrm/cmd/leapcrm@latest")

	w.Header(2, "Commands")
	var rows [][]string
	for _, cmd := range documented(root) {
		link := fmt.Sprintf("[%s](/cli/%s)", InlineCode(cmd.Name()), cmd.Name())
		rows = append(rows, []string{link, cleanDescription(cmd.Short)})
	}
	w.Table([]string{"Command", "Description"}, rows)

	writeEntityTypes(w, entityTypes)

	w.Header(2, "Global Options")
	writeFlagsTable(w, root.PersistentFlags())

	w.Header(2, "Configuration")
	w.Paragraph("Flags override environment variables, which override leapcrm.yaml. Nested keys use a double underscore.")
	w.Table([]string{"Variable", "Key", "Default"}, envRows(config.EnvPrefix, "", reflect.ValueOf(*config.Default())))
	return w
}

func commandPage(cmd *cobra.Command, entityTypes []string) *MarkdownWriter {
	w := NewMarkdownWriter()
	w.Frontmatter(cmd.Name(), cmd.Short)
	w.GeneratedMarker()

	w.Header(1, cmd.Name())
	if cmd.Long != "" {
		w.Paragraph(cmd.Long)
	} else {
		w.Paragraph(cmd.Short)
	}

	w.Header(2, "Usage")
	use := cmd.UseLine()
	if cmd.HasAvailableSubCommands() {
		use = fmt.Sprintf("leapcrm %s <subcommand> [options]", cmd.Name())
	}
	w.CodeBlock("bash", use)

	if cmd.HasAvailableSubCommands() {
		w.Header(2, "Subcommands")
		var rows [][]string
		for _, sub := range cmd.Commands() {
			if sub.IsAvailableCommand() {
				rows = append(rows, []string{InlineCode(sub.Name()), cleanDescription(sub.Short)})
			}
		}
		w.Table([]string{"Subcommand", "Description"}, rows)
	}

	if takesEntity(cmd) {
		writeEntityTypes(w, entityTypes)
	}

	if cmd.HasAvailableLocalFlags() {
		w.Header(2, "Options")
		writeFlagsTable(w, cmd.LocalFlags())
	}

	if cmd.LocalFlags().Lookup("filter") != nil {
		writeFilterSyntax(w)
	}

	if cmd.Example != "" {
		w.Header(2, "Examples")
		w.CodeBlock("bash", dedent(cmd.Example))
	}
	return w
}

// writeEntityTypes links each entity type to its view reference.
func writeEntityTypes(w *MarkdownWriter, entityTypes []string) {
	w.Header(2, "Entity Types")
	links := make([]string, len(entityTypes))
	for i, t := range entityTypes {
		links[i] = fmt.Sprintf("[%s](/views/%s)", InlineCode(t), t)
	}
	w.BulletList(links)
}

// filterKinds are representative columns for each way a column can filter.
var filterKinds = []struct {
	label string
	col   core.Column
}{
	{"text, link", core.Column{Type: core.ColumnText}},
	{"number, currency, percentage", core.Column{Type: core.ColumnNumber}},
	{"date", core.Column{Type: core.ColumnDate}},
	{"boolean", core.Column{Type: core.ColumnBoolean}},
	{"picklist (name, code or id)", core.Column{Key: "industryId", Type: core.ColumnSelect}},
}

// writeFilterSyntax documents -f key<op>value per column kind.
func writeFilterSyntax(w *MarkdownWriter) {
	w.Header(2, "Filter Expressions")
	w.Paragraph("Each --filter takes " + InlineCode("key<op>value") + ". The operators a column accepts depend on its type:")

	var rows [][]string
	for _, k := range filterKinds {
		ctl := filter.Resolve(k.col)
		ops := make([]string, 0, len(ctl.Operators))
		for _, op := range ctl.Operators {
			ops = append(ops, fmt.Sprintf("%s %s", InlineCode(filter.Symbol(op)), filter.OperatorLabel(ctl.Kind, op)))
		}
		rows = append(rows, []string{k.label, strings.Join(ops, ", ")})
	}
	w.Table([]string{"Column type", "Operators"}, rows)
}

// envRows lists one environment variable per leaf of a koanf-tagged struct.
func envRows(prefix, keyPrefix string, v reflect.Value) [][]string {
	var rows [][]string
	t := v.Type()
	for i := range t.NumField() {
		key := t.Field(i).Tag.Get("koanf")
		if key == "" {
			continue
		}
		field := v.Field(i)
		if field.Kind() == reflect.Struct && field.Type().PkgPath() == t.PkgPath() {
			rows = append(rows, envRows(prefix+strings.ToUpper(key)+"__", keyPrefix+key+".", field)...)
			continue
		}
		def := ""
		if !field.IsZero() {
			def = InlineCode(fmt.Sprint(field.Interface()))
		}
		rows = append(rows, []string{InlineCode(prefix + strings.ToUpper(key)), keyPrefix + key, def})
	}
	return rows
}

// writeFlagsTable writes one row per visible flag.
func writeFlagsTable(w *MarkdownWriter, flags *pflag.FlagSet) {
	var rows [][]string
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		name := "--" + f.Name
		if f.Shorthand != "" {
			name = "-" + f.Shorthand + ", " + name
		}
		def := f.DefValue
		if def != "" && def != "[]" && f.Value.Type() != "bool" {
			def = InlineCode(def)
		} else if def == "[]" {
			def = ""
		}
		rows = append(rows, []string{InlineCode(name), f.Value.Type(), def, cleanDescription(f.Usage)})
	})
	w.Table([]string{"Option", "Type", "Default", "Description"}, rows)
}

// dedent strips the indentation shared by every non-blank line.
func dedent(s string) string {
	lines := strings.Split(strings.Trim(s, "\n"), "\n")
	indent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := len(line) - len(strings.TrimLeft(line, " \t"))
		if indent < 0 || n < indent {
			indent = n
		}
	}
	for i, line := range lines {
		if len(line) >= indent && indent > 0 {
			lines[i] = line[indent:]
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
