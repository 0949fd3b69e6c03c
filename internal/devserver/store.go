package devserver

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/leapcrm/internal/state"
	"github.com/leapstack-labs/leapcrm/pkg/core"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store errors.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// Store is the dev server's SQLite persistence.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// OpenStore opens the database at path (or ":memory:") and migrates it.
func OpenStore(ctx context.Context, path string) (*Store, error) {
	db, err := state.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := state.Migrate(ctx, db, migrations, "migrations"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) timestamp() string {
	return formatTime(s.now())
}

// --- Users ---

// CreateUser inserts a user with an already hashed password.
func (s *Store) CreateUser(ctx context.Context, u core.User, passwordHash string) (*core.User, error) {
	u.ID = uuid.NewString()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.IsActive = true
	ts := s.timestamp()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, first_name, last_name, is_active, created_at, updated_at)
		 SELECT ?, ?, ?, ?, ?, 1, ?, ?
		 WHERE NOT EXISTS (SELECT 1 FROM users WHERE email = ?)`,
		u.ID, u.Email, passwordHash, u.FirstName, u.LastName, ts, ts, u.Email,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	created, err := s.UserByID(ctx, u.ID)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("user %s: %w", u.Email, ErrConflict)
	}
	return created, err
}

const userColumns = `id, email, first_name, last_name, is_active, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }, extra ...any) (*core.User, error) {
	var u core.User
	var created, updated string
	dest := append([]any{&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.IsActive, &created, &updated}, extra...)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.CreatedAt = parseTime(created)
	u.UpdatedAt = parseTime(updated)
	return &u, nil
}

// UserByID returns an active user.
func (s *Store) UserByID(ctx context.Context, id string) (*core.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ? AND is_active = 1`, id)
	return scanUser(row)
}

// UserByEmail returns an active user and its password hash.
func (s *Store) UserByEmail(ctx context.Context, email string) (*core.User, string, error) {
	var hash string
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+`, password_hash FROM users WHERE email = ? AND is_active = 1`,
		strings.ToLower(strings.TrimSpace(email)))
	u, err := scanUser(row, &hash)
	if err != nil {
		return nil, "", err
	}
	return u, hash, nil
}

// --- Picklists ---

// AddPicklistItem appends an item to a lookup list.
func (s *Store) AddPicklistItem(ctx context.Context, list string, position int, item core.PicklistItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO picklist_items (id, list, name, code, description, is_active, position) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		item.ID, list, item.Name, item.Code, item.Description, item.IsActive, position,
	)
	if err != nil {
		return fmt.Errorf("failed to add %s item %q: %w", list, item.Name, err)
	}
	return nil
}

// Picklist returns every active item of a list in display order.
func (s *Store) Picklist(ctx context.Context, list string) ([]core.PicklistItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, code, description, is_active FROM picklist_items
		 WHERE list = ? AND is_active = 1 ORDER BY position, name`, list)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", list, err)
	}
	return scanPicklistItems(rows)
}

// SearchPicklist returns a window of active items whose name or code
// contains query, plus the number of matches.
func (s *Store) SearchPicklist(ctx context.Context, list, query string, limit, offset int) ([]core.PicklistItem, int, error) {
	where := `list = ? AND is_active = 1`
	args := []any{list}
	if q := strings.TrimSpace(query); q != "" {
		where += ` AND (name LIKE ? ESCAPE '\' OR code LIKE ? ESCAPE '\')`
		pattern := "%" + escapeLike(q) + "%"
		args = append(args, pattern, pattern)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM picklist_items WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count %s: %w", list, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, code, description, is_active FROM picklist_items WHERE `+where+
			` ORDER BY position, name LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search %s: %w", list, err)
	}
	items, err := scanPicklistItems(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func scanPicklistItems(rows *sql.Rows) ([]core.PicklistItem, error) {
	defer func() { _ = rows.Close() }()
	items := []core.PicklistItem{}
	for rows.Next() {
		var it core.PicklistItem
		if err := rows.Scan(&it.ID, &it.Name, &it.Code, &it.Description, &it.IsActive); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// --- helpers ---

func formatTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
