package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/leapcrm/internal/cli/output"
	"github.com/leapstack-labs/leapcrm/internal/entitylist"
	"github.com/leapstack-labs/leapcrm/pkg/core"
	"github.com/leapstack-labs/leapcrm/pkg/filter"
	"github.com/spf13/cobra"
)

// NewBrowseCommand creates the browse command.
func NewBrowseCommand() *cobra.Command {
	opts := &ListOptions{}

	cmd := &cobra.Command{
		Use:   "browse <entity>",
		Short: "Page through records interactively",
		Long: `Open an interactive prompt over an entity list. Move between pages,
change sorting, filters, search and views without leaving the prompt.

Type help at the prompt for the list of commands.`,
		Example: `  leapcrm browse companies
  leapcrm browse deals --view pipeline --page-size 50`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeEntityTypes,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			if err := cc.requireSession(cmd.Context()); err != nil {
				return err
			}
			if !cmd.Flags().Changed("page-size") {
				opts.PageSize = cc.Cfg.PageSize
			}
			return runBrowse(cmd, cc, strings.ToLower(args[0]), opts)
		},
	}

	cmd.Flags().IntVar(&opts.PageSize, "page-size", core.DefaultPageSize, "Rows per page (max 100)")
	cmd.Flags().StringVar(&opts.Sort, "sort", "", "Initial sort column")
	cmd.Flags().StringVar(&opts.Order, "order", "", "Initial sort order asc|desc (default: the view's default order)")
	cmd.Flags().StringVar(&opts.View, "view", "", "Initial view")
	cmd.Flags().StringVar(&opts.Search, "search", "", "Initial search text")
	cmd.Flags().StringArrayVarP(&opts.Filters, "filter", "f", nil, "Initial column filter key<op>value (repeatable)")

	return cmd
}

func runBrowse(cmd *cobra.Command, cc *CommandContext, entityType string, opts *ListOptions) error {
	ctx := cmd.Context()
	errOut := &lockedWriter{w: cmd.ErrOrStderr()}
	prog := newProgress(errOut, slowRequestDelay)
	defer prog.stop()

	l := newLookups(cc.Client, cc.Cache, cc.Logger)
	l.onNew = prog.loader
	ctrl, err := openList(ctx, cc, entityType, opts, l)
	if err != nil {
		return err
	}
	defer ctrl.Close()
	prog.list(ctrl)

	b := &browser{ctrl: ctrl, lookups: l, r: cc.Renderer, errOut: errOut}

	historyFile := ""
	if cc.Cfg.SessionPath != "" && cc.Cfg.SessionPath != ":memory:" {
		historyFile = filepath.Join(filepath.Dir(cc.Cfg.SessionPath), "browse_history")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          entityType + "> ",
		HistoryFile:     historyFile,
		AutoComplete:    b.completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
		Stdin:           io.NopCloser(cmd.InOrStdin()),
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize prompt: %w", err)
	}
	defer func() { _ = rl.Close() }()

	cc.Renderer.Muted("Type help for commands, quit to exit")
	b.show()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if b.exec(ctx, line) {
			return nil
		}
	}
}

// browser executes prompt commands against a controller.
type browser struct {
	ctrl    *entitylist.Controller
	lookups *lookups
	r       *output.Renderer
	errOut  io.Writer
}

// exec runs one prompt line. It reports true when the user asked to quit.
func (b *browser) exec(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	command, rest := strings.ToLower(fields[0]), strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))
	st := b.ctrl.Snapshot()

	switch command {
	case "quit", "exit", "q":
		return true

	case "help", "?":
		printBrowseHelp(b.r.Writer())
		return false

	case "next", "n":
		if !b.ctrl.GoToPage(ctx, st.Page+1) {
			b.fail("already on the last page")
			return false
		}

	case "prev", "p":
		if !b.ctrl.GoToPage(ctx, st.Page-1) {
			b.fail("already on the first page")
			return false
		}

	case "page":
		n, err := strconv.Atoi(rest)
		if err != nil {
			b.fail("usage: page <number>")
			return false
		}
		if !b.ctrl.GoToPage(ctx, n) {
			b.fail(fmt.Sprintf("page %d is out of range (1..%d)", n, max(st.TotalPages, 1)))
			return false
		}

	case "size":
		n, err := strconv.Atoi(rest)
		if err != nil || n < 1 {
			b.fail(fmt.Sprintf("usage: size <rows> (one of %v, max %d)", core.PageSizes, core.MaxPageSize))
			return false
		}
		b.ctrl.ChangePageSize(ctx, n)

	case "sort":
		view, _ := st.View()
		col, ok := view.Column(rest)
		if !ok || !col.Sortable {
			b.fail(fmt.Sprintf("%q is not a sortable column (see columns)", rest))
			return false
		}
		b.ctrl.ChangeSorting(ctx, rest)

	case "filter", "f":
		form, ok := b.form(st)
		if !ok {
			return false
		}
		if err := applyExpr(ctx, form, rest, b.lookups); err != nil {
			b.fail(err.Error())
			return false
		}
		form.Apply(ctx, b.ctrl)

	case "unfilter":
		form, ok := b.form(st)
		if !ok {
			return false
		}
		form.Clear(rest)
		form.Apply(ctx, b.ctrl)

	case "clear":
		form, ok := b.form(st)
		if !ok {
			return false
		}
		form.Reset(ctx, b.ctrl)

	case "search", "s":
		form, ok := b.form(st)
		if !ok {
			return false
		}
		form.SetSearch(rest)
		form.Apply(ctx, b.ctrl)

	case "filters":
		b.showFilters(st)
		return false

	case "view":
		if !b.ctrl.ChangeView(ctx, rest) {
			b.fail(fmt.Sprintf("unknown view %q (see views)", rest))
			return false
		}
		if view, ok := b.ctrl.Snapshot().View(); ok {
			b.lookups.prepare(ctx, view.Columns)
		}

	case "views":
		for _, v := range st.Views {
			marker := "  "
			if v.Name == st.CurrentView {
				marker = "* "
			}
			b.r.Printf("%s%s (%s)\n", marker, v.Name, v.DisplayName)
		}
		return false

	case "columns":
		b.showColumns(st)
		return false

	case "more", "m":
		if !b.ctrl.LoadMore(ctx) {
			b.fail("no more rows")
			return false
		}

	case "refresh", "r", "retry":
		b.ctrl.Refresh(ctx)

	default:
		b.fail(fmt.Sprintf("unknown command %q (type help for commands)", command))
		return false
	}

	b.show()
	return false
}

// form returns a filter form preloaded with the applied filters.
func (b *browser) form(st entitylist.State) (*filter.Form, bool) {
	view, ok := st.View()
	if !ok {
		b.fail("no view selected")
		return nil, false
	}
	form := filter.NewForm(view)
	form.Load(st.Filters)
	return form, true
}

func (b *browser) show() {
	st := b.ctrl.Snapshot()
	if st.Error != "" {
		b.fail(st.Error + " (type refresh to retry)")
		return
	}
	if err := renderList(b.r, st, b.lookups); err != nil {
		b.fail(err.Error())
	}
}

func (b *browser) showFilters(st entitylist.State) {
	if st.Filters.IsEmpty() {
		b.r.Muted("No filters")
		return
	}
	if st.Filters.Search != "" {
		b.r.KeyValue("search", st.Filters.Search)
	}
	for _, key := range st.Filters.Keys() {
		spec := st.Filters.Columns[key]
		value := spec.String()
		if spec.Kind == core.FilterReference {
			if name, ok := b.lookups.Label(key, spec.Text); ok {
				value = fmt.Sprintf("%s %s", spec.Op, name)
			}
		}
		b.r.KeyValue(key, value)
	}
}

func (b *browser) showColumns(st entitylist.State) {
	view, _ := st.View()
	for _, c := range view.Columns {
		var flags []string
		if c.Sortable {
			flags = append(flags, "sortable")
		}
		if c.Filterable {
			flags = append(flags, "filter: "+string(filter.Resolve(c).Kind))
		}
		marker := "  "
		if c.Key == st.SortBy {
			marker = "↑ "
			if st.SortOrder == core.SortDesc {
				marker = "↓ "
			}
		}
		b.r.Printf("%s%-16s %-14s %s\n", marker, c.Key, c.Type, strings.Join(flags, ", "))
	}
}

func (b *browser) fail(msg string) {
	_, _ = fmt.Fprintf(b.errOut, "Error: %s\n", msg)
}

// completer offers commands plus column keys and view names.
func (b *browser) completer() *readline.PrefixCompleter {
	st := b.ctrl.Snapshot()
	view, _ := st.View()

	var sortable, filterable []readline.PrefixCompleterInterface
	for _, c := range view.Columns {
		if c.Sortable {
			sortable = append(sortable, readline.PcItem(c.Key))
		}
		if c.Filterable {
			filterable = append(filterable, readline.PcItem(c.Key))
		}
	}
	var views []readline.PrefixCompleterInterface
	for _, v := range st.Views {
		views = append(views, readline.PcItem(v.Name))
	}

	return readline.NewPrefixCompleter(
		readline.PcItem("next"),
		readline.PcItem("prev"),
		readline.PcItem("page"),
		readline.PcItem("size"),
		readline.PcItem("sort", sortable...),
		readline.PcItem("filter", filterable...),
		readline.PcItem("unfilter", filterable...),
		readline.PcItem("filters"),
		readline.PcItem("clear"),
		readline.PcItem("search"),
		readline.PcItem("view", views...),
		readline.PcItem("views"),
		readline.PcItem("columns"),
		readline.PcItem("more"),
		readline.PcItem("refresh"),
		readline.PcItem("help"),
		readline.PcItem("quit"),
	)
}

func printBrowseHelp(w io.Writer) {
	help := `
Commands:
  next, prev          Move one page forward or back
  page <n>            Jump to page n
  size <rows>         Change the page size (returns to page 1)
  sort <column>       Sort by column; repeat to flip the order
  filter <expr>       Add a column filter, e.g. filter revenue>=1000000
  unfilter <column>   Remove a column filter
  filters             Show the active filters
  search <text>       Set the global search (empty clears it)
  clear               Remove all filters and the search
  view <name>         Switch view
  views               List views
  columns             List the columns of the current view
  more                Append the next page to the rows shown
  refresh             Reload page 1
  help                Show this help message
  quit                Exit

Filter operators: = != ~ ^= $= > >= < <=
`
	_, _ = fmt.Fprintln(w, help)
}
