package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapcrm/internal/cli/output"
	"github.com/leapstack-labs/leapcrm/internal/picklist"
	"github.com/leapstack-labs/leapcrm/pkg/core"
	"github.com/spf13/cobra"
)

// NewCreateCommand creates the create command and its subcommands.
func NewCreateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a company or contact",
	}
	cmd.AddCommand(newCreateCompanyCommand())
	cmd.AddCommand(newCreateContactCommand())
	return cmd
}

// CompanyOptions holds the fields of the create company form.
type CompanyOptions struct {
	Name     string
	Website  string
	Domain   string
	Industry string
	Size     string
	Revenue  float64
}

func newCreateCompanyCommand() *cobra.Command {
	opts := &CompanyOptions{}

	cmd := &cobra.Command{
		Use:   "company",
		Short: "Create a company",
		Long: `Create a company. --industry and --size accept the picklist item's name,
code or id.`,
		Example: `  leapcrm create company --name "Acme Labs" --industry Software --size 51-200`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			if err := cc.requireSession(cmd.Context()); err != nil {
				return err
			}
			var revenue *float64
			if cmd.Flags().Changed("revenue") {
				revenue = &opts.Revenue
			}
			return runCreateCompany(cmd.Context(), cc, opts, revenue)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "Company name (required)")
	cmd.Flags().StringVar(&opts.Website, "website", "", "Website URL")
	cmd.Flags().StringVar(&opts.Domain, "domain", "", "Email domain")
	cmd.Flags().StringVar(&opts.Industry, "industry", "", "Industry name or code")
	cmd.Flags().StringVar(&opts.Size, "size", "", "Company size name or code")
	cmd.Flags().Float64Var(&opts.Revenue, "revenue", 0, "Annual revenue")

	return cmd
}

func runCreateCompany(ctx context.Context, cc *CommandContext, opts *CompanyOptions, revenue *float64) error {
	in := core.Company{
		Name:    strings.TrimSpace(opts.Name),
		Website: strings.TrimSpace(opts.Website),
		Domain:  strings.TrimSpace(opts.Domain),
		Revenue: revenue,
	}
	if err := in.Validate(); err != nil {
		return err
	}

	l := newLookups(cc.Client, cc.Cache, cc.Logger)
	var err error
	if opts.Industry != "" {
		if in.IndustryID, err = l.resolve(ctx, picklist.Industries, opts.Industry); err != nil {
			return err
		}
	}
	if opts.Size != "" {
		if in.SizeID, err = l.resolve(ctx, picklist.CompanySizes, opts.Size); err != nil {
			return err
		}
	}

	created, err := cc.Client.CreateCompany(ctx, in)
	if err != nil {
		return fmt.Errorf("failed to create company: %w", err)
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(created)
	}
	r.Success(fmt.Sprintf("Created company %s", created.Name))
	r.KeyValue("ID", created.ID)
	if created.IndustryID != "" {
		r.KeyValue("Industry", labelOr(l, "industryId", created.IndustryID))
	}
	if created.SizeID != "" {
		r.KeyValue("Size", labelOr(l, "sizeId", created.SizeID))
	}
	return nil
}

// ContactOptions holds the fields of the create contact form.
type ContactOptions struct {
	FirstName  string
	LastName   string
	Title      string
	Department string
	Email      string
	Phone      string
	CompanyID  string
	EmailOptIn bool
	SMSOptIn   bool
	CallOptIn  bool
}

func newCreateContactCommand() *cobra.Command {
	opts := &ContactOptions{}

	cmd := &cobra.Command{
		Use:     "contact",
		Short:   "Create a contact",
		Example: `  leapcrm create contact --first-name Ada --last-name Lovelace --email ada@example.com --email-opt-in`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			if err := cc.requireSession(cmd.Context()); err != nil {
				return err
			}
			return runCreateContact(cmd.Context(), cc, opts)
		},
	}

	cmd.Flags().StringVar(&opts.FirstName, "first-name", "", "First name (required)")
	cmd.Flags().StringVar(&opts.LastName, "last-name", "", "Last name (required)")
	cmd.Flags().StringVar(&opts.Title, "title", "", "Job title")
	cmd.Flags().StringVar(&opts.Department, "department", "", "Department")
	cmd.Flags().StringVar(&opts.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&opts.Phone, "phone", "", "Phone number")
	cmd.Flags().StringVar(&opts.CompanyID, "company-id", "", "Company ID")
	cmd.Flags().BoolVar(&opts.EmailOptIn, "email-opt-in", false, "Contact agreed to email")
	cmd.Flags().BoolVar(&opts.SMSOptIn, "sms-opt-in", false, "Contact agreed to SMS")
	cmd.Flags().BoolVar(&opts.CallOptIn, "call-opt-in", false, "Contact agreed to calls")

	return cmd
}

func runCreateContact(ctx context.Context, cc *CommandContext, opts *ContactOptions) error {
	in := core.Contact{
		FirstName:  strings.TrimSpace(opts.FirstName),
		LastName:   strings.TrimSpace(opts.LastName),
		Title:      strings.TrimSpace(opts.Title),
		Department: strings.TrimSpace(opts.Department),
		Email:      strings.TrimSpace(opts.Email),
		Phone:      strings.TrimSpace(opts.Phone),
		CompanyID:  strings.TrimSpace(opts.CompanyID),
		EmailOptIn: opts.EmailOptIn,
		SMSOptIn:   opts.SMSOptIn,
		CallOptIn:  opts.CallOptIn,
	}
	if err := in.Validate(); err != nil {
		return err
	}

	created, err := cc.Client.CreateContact(ctx, in)
	if err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(created)
	}
	r.Success(fmt.Sprintf("Created contact %s %s", created.FirstName, created.LastName))
	r.KeyValue("ID", created.ID)
	return nil
}

func labelOr(l output.Labeler, columnKey, id string) string {
	if name, ok := l.Label(columnKey, id); ok {
		return name
	}
	return id
}
