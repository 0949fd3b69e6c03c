package commands

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/leapcrm/internal/api"
	"github.com/leapstack-labs/leapcrm/internal/cli/config"
	"github.com/leapstack-labs/leapcrm/internal/cli/output"
	"github.com/leapstack-labs/leapcrm/internal/picklist"
	"github.com/leapstack-labs/leapcrm/pkg/core"
	"github.com/leapstack-labs/leapcrm/pkg/filter"
	"github.com/spf13/cobra"
)

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, session and server views",
		Long: `Check that the client can work against the configured server.

The doctor command reports:
- Which config file and session database are in use
- Whether the stored session is still accepted by the server
- Whether every entity type has views, and whether each view's default sort
  column and lookup-backed columns can be used by list and browse

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # Run the checks
  leapcrm doctor

  # Output as JSON
  leapcrm doctor -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			return runDoctor(cmd.Context(), cc)
		},
	}
	return cmd
}

// Check statuses.
const (
	statusPass = "pass"
	statusWarn = "warn"
	statusFail = "error"
)

// DoctorOutput is the JSON output for the doctor command.
type DoctorOutput struct {
	Summary         DoctorSummary `json:"summary"`
	HealthChecks    []HealthCheck `json:"health_checks"`
	Score           int           `json:"score"`
	Recommendations []string      `json:"recommendations"`
	IssueCount      int           `json:"issue_count"`
}

// DoctorSummary describes the environment the checks ran in.
type DoctorSummary struct {
	APIURL      string `json:"api_url"`
	ConfigFile  string `json:"config_file,omitempty"`
	SessionPath string `json:"session_path"`
	User        string `json:"user,omitempty"`
	Views       int    `json:"views"`
}

// HealthCheck represents a single check result.
type HealthCheck struct {
	RuleID     string   `json:"rule_id"`
	Name       string   `json:"name"`
	Group      string   `json:"group"`
	Status     string   `json:"status"` // "pass", "warn", "error"
	IssueCount int      `json:"issue_count"`
	Details    []string `json:"details,omitempty"`
}

func (h *HealthCheck) issue(status, detail string) {
	h.IssueCount++
	h.Details = append(h.Details, detail)
	if h.Status != statusFail {
		h.Status = status
	}
}

func runDoctor(ctx context.Context, cc *CommandContext) error {
	out := &DoctorOutput{
		Summary: DoctorSummary{
			APIURL:      cc.Cfg.APIURL,
			ConfigFile:  config.GetConfigFileUsed(),
			SessionPath: cc.Cfg.SessionPath,
		},
	}

	cfgCheck := HealthCheck{RuleID: "CF01", Name: "Config file", Group: "config", Status: statusPass}
	if out.Summary.ConfigFile == "" {
		cfgCheck.issue(statusWarn, "no leapcrm.yaml found, using defaults and environment")
	}

	sessionCheck := HealthCheck{RuleID: "SE01", Name: "Signed in", Group: "session", Status: statusPass}
	signedIn := true
	if err := cc.requireSession(ctx); err != nil {
		signedIn = false
		var te *api.TransportError
		if errors.As(err, &te) {
			sessionCheck.issue(statusFail, "server unreachable: "+te.Err.Error())
		} else {
			sessionCheck.issue(statusFail, firstLine(err.Error()))
		}
	} else if u := cc.Session.User(); u != nil {
		out.Summary.User = u.DisplayName()
	}

	out.HealthChecks = append(out.HealthChecks, cfgCheck, sessionCheck)
	out.HealthChecks = append(out.HealthChecks, checkViews(ctx, cc, signedIn, &out.Summary)...)

	sort.SliceStable(out.HealthChecks, func(i, j int) bool {
		if out.HealthChecks[i].Group != out.HealthChecks[j].Group {
			return groupRank(out.HealthChecks[i].Group) < groupRank(out.HealthChecks[j].Group)
		}
		return out.HealthChecks[i].RuleID < out.HealthChecks[j].RuleID
	})
	for _, c := range out.HealthChecks {
		out.IssueCount += c.IssueCount
	}
	out.Score = calculateHealthScore(out.HealthChecks)
	out.Recommendations = generateRecommendations(out.HealthChecks)

	r := cc.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown, output.ModeCSV:
		return renderDoctorMarkdown(r, out)
	default:
		return renderDoctorText(r, out)
	}
}

// checkViews validates the server's views against what list and browse need.
func checkViews(ctx context.Context, cc *CommandContext, signedIn bool, summary *DoctorSummary) []HealthCheck {
	available := HealthCheck{RuleID: "VW01", Name: "Views available", Group: "views", Status: statusPass}
	sorts := HealthCheck{RuleID: "VW02", Name: "Default sort is sortable", Group: "views", Status: statusPass}
	refs := HealthCheck{RuleID: "VW03", Name: "Lookup columns resolve", Group: "views", Status: statusPass}

	if !signedIn {
		for _, c := range []*HealthCheck{&available, &sorts, &refs} {
			c.issue(statusWarn, "skipped: not signed in")
		}
		return []HealthCheck{available, sorts, refs}
	}

	l := newLookups(cc.Client, cc.Cache, cc.Logger)
	checked := make(map[string]bool)
	for _, entityType := range entityTypes {
		views, err := cc.Client.EntityViews(ctx, entityType)
		if err != nil {
			available.issue(statusFail, fmt.Sprintf("%s: %v", entityType, err))
			continue
		}
		if len(views) == 0 {
			available.issue(statusFail, entityType+": no views")
			continue
		}
		summary.Views += len(views)

		for _, v := range views {
			checkDefaultSort(&sorts, entityType, v)
			for _, col := range v.Columns {
				listType, ok := filter.ReferenceFor(col.Key)
				if !ok || checked[listType] {
					continue
				}
				checked[listType] = true
				if !picklist.IsRegistered(listType) {
					refs.issue(statusFail, fmt.Sprintf("%s.%s: lookup list %s is not registered", entityType, col.Key, listType))
					continue
				}
				if _, err := l.loader(ctx, listType); err != nil {
					refs.issue(statusWarn, fmt.Sprintf("%s.%s: %v", entityType, col.Key, err))
				}
			}
		}
	}
	return []HealthCheck{available, sorts, refs}
}

func checkDefaultSort(check *HealthCheck, entityType string, v core.ViewConfig) {
	if v.DefaultSort == "" {
		return
	}
	col, ok := v.Column(v.DefaultSort)
	switch {
	case !ok:
		check.issue(statusWarn, fmt.Sprintf("%s/%s: default sort %q is not a column", entityType, v.Name, v.DefaultSort))
	case !col.Sortable:
		check.issue(statusWarn, fmt.Sprintf("%s/%s: default sort %q is not sortable", entityType, v.Name, v.DefaultSort))
	}
}

func groupRank(group string) int {
	switch group {
	case "config":
		return 0
	case "session":
		return 1
	default:
		return 2
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// calculateHealthScore computes a score from 0-100. Errors cost 25 points
// per issue and warnings 10.
func calculateHealthScore(checks []HealthCheck) int {
	score := 100
	for _, check := range checks {
		switch check.Status {
		case statusFail:
			score -= check.IssueCount * 25
		case statusWarn:
			score -= check.IssueCount * 10
		}
	}
	return max(score, 0)
}

// generateRecommendations creates actionable recommendations based on findings.
func generateRecommendations(checks []HealthCheck) []string {
	var recommendations []string
	for _, check := range checks {
		if check.IssueCount == 0 {
			continue
		}
		if rec := getRecommendation(check.RuleID); rec != "" {
			recommendations = append(recommendations, rec)
		}
	}
	return recommendations
}

// getRecommendation returns a recommendation for a specific check.
func getRecommendation(ruleID string) string {
	switch ruleID {
	case "CF01":
		return "Create leapcrm.yaml to pin api_url and page_size"
	case "SE01":
		return "Run 'leapcrm login', or start a local backend with 'leapcrm serve'"
	case "VW01":
		return "Check that the server defines views for every entity type"
	case "VW02":
		return "Point each view's default sort at a sortable column"
	case "VW03":
		return "Register the lookup list's search name or fix the server's picklist routes"
	default:
		return ""
	}
}

func renderDoctorText(r *output.Renderer, out *DoctorOutput) error {
	styles := r.Styles()

	r.Println("")
	r.Println(styles.Header1.Render("LeapCRM Health Report"))
	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	r.Println("")

	r.Println(styles.Header2.Render("Environment"))
	r.Printf("   API: %s\n", out.Summary.APIURL)
	r.Printf("   Session: %s\n", out.Summary.SessionPath)
	if out.Summary.User != "" {
		r.Printf("   User: %s | Views: %d\n", out.Summary.User, out.Summary.Views)
	}
	r.Println("")

	r.Println(styles.Header2.Render("Checks"))
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.HealthChecks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println(styles.Bold.Render("   " + titleCaser.String(currentGroup)))
			r.Println(styles.Muted.Render("   " + strings.Repeat("-", 40)))
		}

		icon := styles.StatusSuccess.Render("✓")
		switch check.Status {
		case statusWarn:
			icon = styles.Warning.Render("!")
		case statusFail:
			icon = styles.StatusFailed.Render("✗")
		}

		status := fmt.Sprintf("%s %s: %s", icon, check.RuleID, check.Name)
		if check.IssueCount > 0 {
			status += fmt.Sprintf(" (%d issues)", check.IssueCount)
		}
		r.Println("   " + status)

		// Show first 3 details for issues
		for i, detail := range check.Details {
			if i >= 3 {
				r.Println(styles.Muted.Render(fmt.Sprintf("       ... and %d more", len(check.Details)-3)))
				break
			}
			r.Println(styles.Muted.Render("       - " + detail))
		}
	}
	r.Println("")

	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	scoreStyle := styles.Success
	if out.Score < 70 {
		scoreStyle = styles.Warning
	}
	if out.Score < 50 {
		scoreStyle = styles.Error
	}
	r.Printf("   Health Score: %s\n", scoreStyle.Render(fmt.Sprintf("%d/100", out.Score)))
	r.Println("")

	if len(out.Recommendations) > 0 {
		r.Println(styles.Header2.Render("Recommendations"))
		for i, rec := range out.Recommendations {
			r.Printf("   %d. %s\n", i+1, rec)
		}
		r.Println("")
	}

	return nil
}

func renderDoctorMarkdown(r *output.Renderer, out *DoctorOutput) error {
	r.Println("# LeapCRM Health Report")
	r.Println("")

	r.Println("## Environment")
	r.Println("")
	r.Printf("- **API**: %s\n", out.Summary.APIURL)
	if out.Summary.ConfigFile != "" {
		r.Printf("- **Config**: %s\n", out.Summary.ConfigFile)
	}
	r.Printf("- **Session**: %s\n", out.Summary.SessionPath)
	if out.Summary.User != "" {
		r.Printf("- **User**: %s\n", out.Summary.User)
		r.Printf("- **Views**: %d\n", out.Summary.Views)
	}
	r.Println("")

	r.Println("## Checks")
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.HealthChecks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println("### " + titleCaser.String(currentGroup))
			r.Println("")
		}

		r.Printf("- **[%s]** %s: %s", strings.ToUpper(check.Status), check.RuleID, check.Name)
		if check.IssueCount > 0 {
			r.Printf(" (%d issues)", check.IssueCount)
		}
		r.Println("")

		for _, detail := range check.Details {
			r.Printf("  - %s\n", detail)
		}
	}
	r.Println("")

	r.Println("## Health Score")
	r.Println("")
	r.Printf("**%d/100**\n", out.Score)
	r.Println("")

	if len(out.Recommendations) > 0 {
		r.Println("## Recommendations")
		r.Println("")
		for i, rec := range out.Recommendations {
			r.Printf("%d. %s\n", i+1, rec)
		}
		r.Println("")
	}

	return nil
}
