package devserver

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/leapcrm/internal/picklist"
	"github.com/leapstack-labs/leapcrm/pkg/core"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

//go:embed fixtures.yaml
var fixturesYAML []byte

// seedNamespace derives stable ids for seeded rows.
var seedNamespace = uuid.MustParse("6f1c9a52-7f43-4c55-9f5e-2b1d8a0c4e11")

// seedEpoch is the creation time of the first seeded company.
var seedEpoch = time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)

// lookupLists are the picklists the server stores.
var lookupLists = []string{picklist.Industries, picklist.CompanySizes, picklist.LeadStatuses, picklist.LeadTemperatures}

// DemoUser is the account created by seeding.
type DemoUser struct {
	Email     string `yaml:"email"`
	Password  string `yaml:"password"`
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
}

// Fixtures is the seed data embedded in the binary.
type Fixtures struct {
	DemoUser        DemoUser                       `yaml:"demo_user"`
	Picklists       map[string][]core.PicklistItem `yaml:"picklists"`
	CompanyWords    []string                       `yaml:"company_words"`
	CompanySuffixes []string                       `yaml:"company_suffixes"`
	FirstNames      []string                       `yaml:"first_names"`
	LastNames       []string                       `yaml:"last_names"`
	Titles          []string                       `yaml:"titles"`
	Departments     []string                       `yaml:"departments"`
	LeadSources     []string                       `yaml:"lead_sources"`
	Campaigns       []string                       `yaml:"campaigns"`
}

// LoadFixtures parses the embedded fixtures.
func LoadFixtures() (*Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(fixturesYAML, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures: %w", err)
	}
	for _, list := range lookupLists {
		if len(f.Picklists[list]) == 0 {
			return nil, fmt.Errorf("fixtures: no items for picklist %q", list)
		}
	}
	if len(f.CompanyWords) == 0 || len(f.CompanySuffixes) == 0 || len(f.FirstNames) == 0 || len(f.LastNames) == 0 {
		return nil, fmt.Errorf("fixtures: name lists must not be empty")
	}
	return &f, nil
}

func seedID(kind string, i int) string {
	return uuid.NewSHA1(seedNamespace, fmt.Appendf(nil, "%s-%d", kind, i)).String()
}

// CompanyName returns the i-th seeded company name. Names are unique.
func (f *Fixtures) CompanyName(i int) string {
	words, suffixes := len(f.CompanyWords), len(f.CompanySuffixes)
	name := f.CompanyWords[i%words] + " " + f.CompanySuffixes[(i/words)%suffixes]
	if round := i / (words * suffixes); round > 0 {
		name += fmt.Sprintf(" %d", round+1)
	}
	return name
}

func pick(list []string, i int) string {
	if len(list) == 0 {
		return ""
	}
	return list[i%len(list)]
}

// Seed fills an empty database: lookup lists, the demo user and n companies
// with their contacts, leads and deals. The data is the same on every run.
// A database that already has lookup lists is left untouched.
func (s *Store) Seed(ctx context.Context, f *Fixtures, n int) error {
	var existing int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM picklist_items`).Scan(&existing); err != nil {
		return fmt.Errorf("failed to inspect database: %w", err)
	}
	if existing > 0 {
		return nil
	}

	refs := make(map[string][]string)
	for _, list := range lookupLists {
		for pos, item := range f.Picklists[list] {
			item.ID = seedID(list, pos)
			item.IsActive = true
			if err := s.AddPicklistItem(ctx, list, pos, item); err != nil {
				return err
			}
			refs[list] = append(refs[list], item.ID)
		}
	}

	if f.DemoUser.Email != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(f.DemoUser.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash demo password: %w", err)
		}
		if _, err := s.CreateUser(ctx, core.User{
			Email:     f.DemoUser.Email,
			FirstName: f.DemoUser.FirstName,
			LastName:  f.DemoUser.LastName,
		}, string(hash)); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for i := range n {
		created := formatTime(seedEpoch.Add(time.Duration(i) * 24 * time.Hour))
		companyID := seedID("company", i)
		name := f.CompanyName(i)
		domain := strings.ToLower(strings.ReplaceAll(name, " ", "")) + ".example"

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO companies (`+companyColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			companyID, name, "https://"+domain, domain,
			pick(refs[picklist.Industries], i), pick(refs[picklist.CompanySizes], i),
			float64((i%9+1)*125000), created, created,
		); err != nil {
			return fmt.Errorf("failed to seed company %d: %w", i, err)
		}

		for j := range 2 {
			k := i*2 + j
			first, last := pick(f.FirstNames, k), pick(f.LastNames, k/len(f.FirstNames)+i)
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO contacts (`+contactColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				seedID("contact", k), first, last, pick(f.Titles, k), pick(f.Departments, k),
				strings.ToLower(first+"."+last+"@"+domain), fmt.Sprintf("+1-555-%04d", k),
				companyID, k%2 == 0, k%3 == 0, k%4 == 0, created, created,
			); err != nil {
				return fmt.Errorf("failed to seed contact %d: %w", k, err)
			}
		}

		if i%2 == 0 {
			first, last := pick(f.FirstNames, i+3), pick(f.LastNames, i+5)
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO leads (`+leadColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				seedID("lead", i), first, last, pick(f.Titles, i+1),
				strings.ToLower(first+"@"+domain),
				pick(refs[picklist.LeadStatuses], i), pick(refs[picklist.LeadTemperatures], i),
				pick(f.LeadSources, i), pick(f.Campaigns, i), (i*37)%100,
				companyID, created, created,
			); err != nil {
				return fmt.Errorf("failed to seed lead %d: %w", i, err)
			}
		}

		closeDate := seedEpoch.AddDate(0, 3, i).Format(core.DateLayout)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO deals (`+dealColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			seedID("deal", i), name+" renewal", float64((i%7+1)*15000), "USD",
			float64((i%5+1)*20), core.PipelineStages[i%len(core.PipelineStages)], closeDate,
			companyID, created, created,
		); err != nil {
			return fmt.Errorf("failed to seed deal %d: %w", i, err)
		}
	}

	return tx.Commit()
}
