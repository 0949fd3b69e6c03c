package devserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/leapcrm/pkg/core"
)

type scanner interface {
	Scan(dest ...any) error
}

// queryAll runs query and scans every row with scan.
func queryAll[T any](ctx context.Context, db *sql.DB, scan func(scanner) (*T, error), query string, args ...any) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

func queryOne[T any](ctx context.Context, db *sql.DB, scan func(scanner) (*T, error), query string, args ...any) (*T, error) {
	v, err := scan(db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return v, err
}

// execOne runs a statement that must touch exactly one row.
func (s *Store) execOne(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Companies ---

const companyColumns = `id, name, website, domain, industry_id, size_id, revenue, created_at, updated_at`

func scanCompany(row scanner) (*core.Company, error) {
	var (
		c                core.Company
		industry, size   sql.NullString
		revenue          sql.NullFloat64
		created, updated string
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Website, &c.Domain, &industry, &size, &revenue, &created, &updated); err != nil {
		return nil, err
	}
	c.IndustryID = industry.String
	c.SizeID = size.String
	c.Revenue = floatPtr(revenue)
	c.CreatedAt = parseTime(created)
	c.UpdatedAt = parseTime(updated)
	return &c, nil
}

// Companies lists every company by name.
func (s *Store) Companies(ctx context.Context) ([]core.Company, error) {
	return queryAll(ctx, s.db, scanCompany, `SELECT `+companyColumns+` FROM companies ORDER BY name, id`)
}

// Company returns one company.
func (s *Store) Company(ctx context.Context, id string) (*core.Company, error) {
	return queryOne(ctx, s.db, scanCompany, `SELECT `+companyColumns+` FROM companies WHERE id = ?`, id)
}

// CreateCompany inserts c, assigning an id when it has none.
func (s *Store) CreateCompany(ctx context.Context, c core.Company) (*core.Company, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	ts := s.timestamp()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO companies (`+companyColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Website, c.Domain, nullString(c.IndustryID), nullString(c.SizeID), nullFloat(c.Revenue), ts, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to create company: %w", err)
	}
	return s.Company(ctx, c.ID)
}

// UpdateCompany overwrites every editable field of c.
func (s *Store) UpdateCompany(ctx context.Context, c core.Company) (*core.Company, error) {
	err := s.execOne(ctx,
		`UPDATE companies SET name = ?, website = ?, domain = ?, industry_id = ?, size_id = ?, revenue = ?, updated_at = ? WHERE id = ?`,
		c.Name, c.Website, c.Domain, nullString(c.IndustryID), nullString(c.SizeID), nullFloat(c.Revenue), s.timestamp(), c.ID)
	if err != nil {
		return nil, err
	}
	return s.Company(ctx, c.ID)
}

// DeleteCompany removes a company.
func (s *Store) DeleteCompany(ctx context.Context, id string) error {
	return s.execOne(ctx, `DELETE FROM companies WHERE id = ?`, id)
}

// --- Contacts ---

const contactColumns = `id, first_name, last_name, title, department, email, phone, company_id,
	email_opt_in, sms_opt_in, call_opt_in, created_at, updated_at`

func scanContact(row scanner) (*core.Contact, error) {
	var (
		c                core.Contact
		company          sql.NullString
		created, updated string
	)
	if err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Title, &c.Department, &c.Email, &c.Phone, &company,
		&c.EmailOptIn, &c.SMSOptIn, &c.CallOptIn, &created, &updated); err != nil {
		return nil, err
	}
	c.CompanyID = company.String
	c.CreatedAt = parseTime(created)
	c.UpdatedAt = parseTime(updated)
	return &c, nil
}

// Contacts lists every contact by last name.
func (s *Store) Contacts(ctx context.Context) ([]core.Contact, error) {
	return queryAll(ctx, s.db, scanContact, `SELECT `+contactColumns+` FROM contacts ORDER BY last_name, first_name, id`)
}

// Contact returns one contact.
func (s *Store) Contact(ctx context.Context, id string) (*core.Contact, error) {
	return queryOne(ctx, s.db, scanContact, `SELECT `+contactColumns+` FROM contacts WHERE id = ?`, id)
}

// CreateContact inserts c, assigning an id when it has none.
func (s *Store) CreateContact(ctx context.Context, c core.Contact) (*core.Contact, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	ts := s.timestamp()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO contacts (`+contactColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.FirstName, c.LastName, c.Title, c.Department, c.Email, c.Phone, nullString(c.CompanyID),
		c.EmailOptIn, c.SMSOptIn, c.CallOptIn, ts, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}
	return s.Contact(ctx, c.ID)
}

// UpdateContact overwrites every editable field of c.
func (s *Store) UpdateContact(ctx context.Context, c core.Contact) (*core.Contact, error) {
	err := s.execOne(ctx,
		`UPDATE contacts SET first_name = ?, last_name = ?, title = ?, department = ?, email = ?, phone = ?, company_id = ?,
		 email_opt_in = ?, sms_opt_in = ?, call_opt_in = ?, updated_at = ? WHERE id = ?`,
		c.FirstName, c.LastName, c.Title, c.Department, c.Email, c.Phone, nullString(c.CompanyID),
		c.EmailOptIn, c.SMSOptIn, c.CallOptIn, s.timestamp(), c.ID)
	if err != nil {
		return nil, err
	}
	return s.Contact(ctx, c.ID)
}

// DeleteContact removes a contact.
func (s *Store) DeleteContact(ctx context.Context, id string) error {
	return s.execOne(ctx, `DELETE FROM contacts WHERE id = ?`, id)
}

// --- Leads ---

const leadColumns = `id, first_name, last_name, title, email, status_id, temperature_id, source, campaign, score,
	company_id, created_at, updated_at`

func scanLead(row scanner) (*core.Lead, error) {
	var (
		l                            core.Lead
		status, temperature, company sql.NullString
		created, updated             string
	)
	if err := row.Scan(&l.ID, &l.FirstName, &l.LastName, &l.Title, &l.Email, &status, &temperature,
		&l.Source, &l.Campaign, &l.Score, &company, &created, &updated); err != nil {
		return nil, err
	}
	l.StatusID = status.String
	l.TemperatureID = temperature.String
	l.CompanyID = company.String
	l.CreatedAt = parseTime(created)
	l.UpdatedAt = parseTime(updated)
	return &l, nil
}

// Leads lists every lead, newest first.
func (s *Store) Leads(ctx context.Context) ([]core.Lead, error) {
	return queryAll(ctx, s.db, scanLead, `SELECT `+leadColumns+` FROM leads ORDER BY created_at DESC, id`)
}

// Lead returns one lead.
func (s *Store) Lead(ctx context.Context, id string) (*core.Lead, error) {
	return queryOne(ctx, s.db, scanLead, `SELECT `+leadColumns+` FROM leads WHERE id = ?`, id)
}

// CreateLead inserts l, assigning an id when it has none.
func (s *Store) CreateLead(ctx context.Context, l core.Lead) (*core.Lead, error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	ts := s.timestamp()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO leads (`+leadColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.FirstName, l.LastName, l.Title, l.Email, nullString(l.StatusID), nullString(l.TemperatureID),
		l.Source, l.Campaign, l.Score, nullString(l.CompanyID), ts, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to create lead: %w", err)
	}
	return s.Lead(ctx, l.ID)
}

// UpdateLead overwrites every editable field of l.
func (s *Store) UpdateLead(ctx context.Context, l core.Lead) (*core.Lead, error) {
	err := s.execOne(ctx,
		`UPDATE leads SET first_name = ?, last_name = ?, title = ?, email = ?, status_id = ?, temperature_id = ?,
		 source = ?, campaign = ?, score = ?, company_id = ?, updated_at = ? WHERE id = ?`,
		l.FirstName, l.LastName, l.Title, l.Email, nullString(l.StatusID), nullString(l.TemperatureID),
		l.Source, l.Campaign, l.Score, nullString(l.CompanyID), s.timestamp(), l.ID)
	if err != nil {
		return nil, err
	}
	return s.Lead(ctx, l.ID)
}

// DeleteLead removes a lead.
func (s *Store) DeleteLead(ctx context.Context, id string) error {
	return s.execOne(ctx, `DELETE FROM leads WHERE id = ?`, id)
}

// --- Deals ---

const dealColumns = `id, name, amount, currency, probability, stage, expected_close_date, company_id, created_at, updated_at`

func scanDeal(row scanner) (*core.Deal, error) {
	var (
		d                core.Deal
		amount           sql.NullFloat64
		closeDate        sql.NullString
		company          sql.NullString
		created, updated string
	)
	if err := row.Scan(&d.ID, &d.Name, &amount, &d.Currency, &d.Probability, &d.Stage, &closeDate, &company,
		&created, &updated); err != nil {
		return nil, err
	}
	d.Amount = floatPtr(amount)
	if closeDate.Valid {
		if t, err := parseDate(closeDate.String); err == nil {
			d.ExpectedCloseDate = &t
		}
	}
	d.CompanyID = company.String
	d.CreatedAt = parseTime(created)
	d.UpdatedAt = parseTime(updated)
	return &d, nil
}

// Deals lists every deal by expected close date.
func (s *Store) Deals(ctx context.Context) ([]core.Deal, error) {
	return queryAll(ctx, s.db, scanDeal, `SELECT `+dealColumns+` FROM deals ORDER BY expected_close_date, id`)
}

// Deal returns one deal.
func (s *Store) Deal(ctx context.Context, id string) (*core.Deal, error) {
	return queryOne(ctx, s.db, scanDeal, `SELECT `+dealColumns+` FROM deals WHERE id = ?`, id)
}

// CreateDeal inserts d, assigning an id when it has none.
func (s *Store) CreateDeal(ctx context.Context, d core.Deal) (*core.Deal, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.Currency == "" {
		d.Currency = "USD"
	}
	if d.Stage == "" {
		d.Stage = core.PipelineStages[0]
	}
	ts := s.timestamp()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO deals (`+dealColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Name, nullFloat(d.Amount), d.Currency, d.Probability, d.Stage, nullDate(d.ExpectedCloseDate),
		nullString(d.CompanyID), ts, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to create deal: %w", err)
	}
	return s.Deal(ctx, d.ID)
}

// UpdateDeal overwrites every editable field of d.
func (s *Store) UpdateDeal(ctx context.Context, d core.Deal) (*core.Deal, error) {
	err := s.execOne(ctx,
		`UPDATE deals SET name = ?, amount = ?, currency = ?, probability = ?, stage = ?, expected_close_date = ?,
		 company_id = ?, updated_at = ? WHERE id = ?`,
		d.Name, nullFloat(d.Amount), d.Currency, d.Probability, d.Stage, nullDate(d.ExpectedCloseDate),
		nullString(d.CompanyID), s.timestamp(), d.ID)
	if err != nil {
		return nil, err
	}
	return s.Deal(ctx, d.ID)
}

// DeleteDeal removes a deal.
func (s *Store) DeleteDeal(ctx context.Context, id string) error {
	return s.execOne(ctx, `DELETE FROM deals WHERE id = ?`, id)
}

func nullDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(core.DateLayout), Valid: true}
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(core.DateLayout, s)
}
