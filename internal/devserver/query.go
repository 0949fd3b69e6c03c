package devserver

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/leapstack-labs/leapcrm/pkg/core"
)

// field is one queryable output column of an entity type.
type field struct {
	expr     string
	// sort overrides expr in ORDER BY, e.g. sorting a reference id by the
	// referenced item's name.
	sort     string
	kind     core.FilterKind
	sortable bool
}

func (f field) sortExpr() string {
	if f.sort != "" {
		return f.sort
	}
	return f.expr
}

// entityDef describes how to list one entity type.
type entityDef struct {
	from   string
	fields map[string]field
	// order fixes the output column order of SELECT.
	order  []string
	search []string
}

func countOf(table, fk, owner string) string {
	return fmt.Sprintf("(SELECT COUNT(*) FROM %s WHERE %s.%s = %s.id)", table, table, fk, owner)
}

var entityDefs = map[string]entityDef{
	"companies": {
		from: `companies c
			LEFT JOIN picklist_items ind ON ind.id = c.industry_id
			LEFT JOIN picklist_items sz ON sz.id = c.size_id`,
		fields: map[string]field{
			"id":            {expr: "c.id", kind: core.FilterReference},
			"name":          {expr: "c.name", kind: core.FilterText, sortable: true},
			"website":       {expr: "c.website", kind: core.FilterText},
			"domain":        {expr: "c.domain", kind: core.FilterText, sortable: true},
			"industryId":    {expr: "c.industry_id", sort: "ind.name", kind: core.FilterReference, sortable: true},
			"industry_name": {expr: "ind.name", kind: core.FilterText, sortable: true},
			"sizeId":        {expr: "c.size_id", sort: "sz.position", kind: core.FilterReference, sortable: true},
			"size_name":     {expr: "sz.name", sort: "sz.position", kind: core.FilterText, sortable: true},
			"revenue":       {expr: "c.revenue", kind: core.FilterNumber, sortable: true},
			"contact_count": {expr: countOf("contacts", "company_id", "c"), kind: core.FilterNumber, sortable: true},
			"lead_count":    {expr: countOf("leads", "company_id", "c"), kind: core.FilterNumber, sortable: true},
			"deal_count":    {expr: countOf("deals", "company_id", "c"), kind: core.FilterNumber, sortable: true},
			"created_at":    {expr: "c.created_at", kind: core.FilterDate, sortable: true},
			"updated_at":    {expr: "c.updated_at", kind: core.FilterDate, sortable: true},
		},
		order: []string{"id", "name", "website", "domain", "industryId", "industry_name", "sizeId", "size_name",
			"revenue", "contact_count", "lead_count", "deal_count", "created_at", "updated_at"},
		search: []string{"c.name", "c.domain", "c.website"},
	},
	"contacts": {
		from: `contacts ct
			LEFT JOIN companies co ON co.id = ct.company_id`,
		fields: map[string]field{
			"id":           {expr: "ct.id", kind: core.FilterReference},
			"first_name":   {expr: "ct.first_name", kind: core.FilterText, sortable: true},
			"last_name":    {expr: "ct.last_name", kind: core.FilterText, sortable: true},
			"companyId":    {expr: "ct.company_id", sort: "co.name", kind: core.FilterReference, sortable: true},
			"company_name": {expr: "co.name", kind: core.FilterText, sortable: true},
			"title":        {expr: "ct.title", kind: core.FilterText, sortable: true},
			"department":   {expr: "ct.department", kind: core.FilterText, sortable: true},
			"email":        {expr: "ct.email", kind: core.FilterText},
			"phone":        {expr: "ct.phone", kind: core.FilterText},
			"email_opt_in": {expr: "ct.email_opt_in", kind: core.FilterBool},
			"lead_count":   {expr: "(SELECT COUNT(*) FROM leads WHERE leads.company_id = ct.company_id)", kind: core.FilterNumber, sortable: true},
			"deal_count":   {expr: "(SELECT COUNT(*) FROM deals WHERE deals.company_id = ct.company_id)", kind: core.FilterNumber, sortable: true},
			"created_at":   {expr: "ct.created_at", kind: core.FilterDate, sortable: true},
			"updated_at":   {expr: "ct.updated_at", kind: core.FilterDate, sortable: true},
		},
		order: []string{"id", "first_name", "last_name", "companyId", "company_name", "title", "department",
			"email", "phone", "email_opt_in", "lead_count", "deal_count", "created_at", "updated_at"},
		search: []string{"ct.first_name", "ct.last_name", "ct.email", "co.name"},
	},
	"leads": {
		from: `leads l
			LEFT JOIN companies co ON co.id = l.company_id
			LEFT JOIN picklist_items st ON st.id = l.status_id
			LEFT JOIN picklist_items tp ON tp.id = l.temperature_id`,
		fields: map[string]field{
			"id":               {expr: "l.id", kind: core.FilterReference},
			"first_name":       {expr: "l.first_name", kind: core.FilterText, sortable: true},
			"last_name":        {expr: "l.last_name", kind: core.FilterText, sortable: true},
			"company_name":     {expr: "COALESCE(co.name, 'Unknown Company')", kind: core.FilterText, sortable: true},
			"title":            {expr: "l.title", kind: core.FilterText, sortable: true},
			"score":            {expr: "l.score", kind: core.FilterNumber, sortable: true},
			"source":           {expr: "l.source", kind: core.FilterText, sortable: true},
			"campaign":         {expr: "l.campaign", kind: core.FilterText, sortable: true},
			"email":            {expr: "l.email", kind: core.FilterText},
			"statusId":         {expr: "l.status_id", sort: "st.position", kind: core.FilterReference, sortable: true},
			"status_name":      {expr: "st.name", sort: "st.position", kind: core.FilterText, sortable: true},
			"temperatureId":    {expr: "l.temperature_id", sort: "tp.position", kind: core.FilterReference, sortable: true},
			"temperature_name": {expr: "tp.name", sort: "tp.position", kind: core.FilterText, sortable: true},
			"created_at":       {expr: "l.created_at", kind: core.FilterDate, sortable: true},
			"updated_at":       {expr: "l.updated_at", kind: core.FilterDate, sortable: true},
		},
		order: []string{"id", "first_name", "last_name", "company_name", "title", "score", "source", "campaign",
			"email", "statusId", "status_name", "temperatureId", "temperature_name", "created_at", "updated_at"},
		search: []string{"l.first_name", "l.last_name", "l.email", "co.name"},
	},
	"deals": {
		from: `deals d
			LEFT JOIN companies co ON co.id = d.company_id`,
		fields: map[string]field{
			"id":                  {expr: "d.id", kind: core.FilterReference},
			"name":                {expr: "d.name", kind: core.FilterText, sortable: true},
			"company_name":        {expr: "co.name", kind: core.FilterText, sortable: true},
			"stage_name":          {expr: "d.stage", kind: core.FilterText, sortable: true},
			"amount":              {expr: "d.amount", kind: core.FilterNumber, sortable: true},
			"currency":            {expr: "d.currency", kind: core.FilterText},
			"probability":         {expr: "d.probability", kind: core.FilterNumber, sortable: true},
			"expected_close_date": {expr: "d.expected_close_date", kind: core.FilterDate, sortable: true},
			"created_at":          {expr: "d.created_at", kind: core.FilterDate, sortable: true},
			"updated_at":          {expr: "d.updated_at", kind: core.FilterDate, sortable: true},
		},
		order: []string{"id", "name", "company_name", "stage_name", "amount", "currency", "probability",
			"expected_close_date", "created_at", "updated_at"},
		search: []string{"d.name", "co.name"},
	},
}

// QueryError is a client mistake in an entity query.
type QueryError struct {
	Code    string
	Message string
}

func (e *QueryError) Error() string {
	return e.Message
}

func lookupEntity(entityType string) (entityDef, error) {
	def, ok := entityDefs[strings.ToLower(entityType)]
	if !ok {
		return entityDef{}, &QueryError{Code: "UNSUPPORTED_ENTITY", Message: "unsupported entity type: " + entityType}
	}
	return def, nil
}

// EntityTypes returns the queryable entity types, sorted.
func EntityTypes() []string {
	out := make([]string, 0, len(entityDefs))
	for k := range entityDefs {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// buildEntityQuery translates a request into a COUNT statement and a page
// SELECT statement sharing one argument list.
func buildEntityQuery(def entityDef, req core.EntityQueryRequest) (countSQL, pageSQL string, args []any, err error) {
	var where []string

	if q := strings.TrimSpace(req.Filters.Search); q != "" && len(def.search) > 0 {
		pattern := "%" + escapeLike(q) + "%"
		var ors []string
		for _, expr := range def.search {
			ors = append(ors, expr+` LIKE ? ESCAPE '\'`)
			args = append(args, pattern)
		}
		where = append(where, "("+strings.Join(ors, " OR ")+")")
	}

	for _, key := range req.Filters.Keys() {
		spec := req.Filters.Columns[key]
		if spec.IsEmpty() {
			continue
		}
		f, ok := def.fields[key]
		if !ok {
			return "", "", nil, &QueryError{Code: "INVALID_FILTER", Message: "cannot filter on " + key}
		}
		spec, err = spec.Coerce(f.kind)
		if err != nil {
			return "", "", nil, &QueryError{Code: "INVALID_FILTER", Message: fmt.Sprintf("%s: %v", key, err)}
		}
		if spec.Op == "" {
			spec.Op = core.OpEq
		}
		if err := spec.Validate(); err != nil {
			return "", "", nil, &QueryError{Code: "INVALID_FILTER", Message: fmt.Sprintf("%s: %v", key, err)}
		}
		clause, clauseArgs, err := filterClause(f.expr, spec)
		if err != nil {
			return "", "", nil, &QueryError{Code: "INVALID_FILTER", Message: fmt.Sprintf("%s: %v", key, err)}
		}
		where = append(where, clause)
		args = append(args, clauseArgs...)
	}

	whereSQL := ""
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}

	orderSQL := ""
	if req.SortBy != "" {
		f, ok := def.fields[req.SortBy]
		if !ok || !f.sortable {
			return "", "", nil, &QueryError{Code: "INVALID_SORT", Message: "cannot sort by " + req.SortBy}
		}
		dir := "ASC"
		if req.SortOrder == core.SortDesc {
			dir = "DESC"
		}
		orderSQL = fmt.Sprintf(" ORDER BY %s %s NULLS LAST, %s", f.sortExpr(), dir, def.fields["id"].expr)
	} else {
		orderSQL = " ORDER BY " + def.fields["id"].expr
	}

	cols := make([]string, len(def.order))
	for i, key := range def.order {
		cols[i] = fmt.Sprintf(`%s AS "%s"`, def.fields[key].expr, key)
	}

	countSQL = "SELECT COUNT(*) FROM " + def.from + whereSQL
	pageSQL = "SELECT " + strings.Join(cols, ", ") + " FROM " + def.from + whereSQL + orderSQL + " LIMIT ? OFFSET ?"
	return countSQL, pageSQL, args, nil
}

// filterClause renders one typed filter. Text comparisons ignore case.
func filterClause(expr string, spec core.FilterSpec) (string, []any, error) {
	switch spec.Kind {
	case core.FilterText:
		switch spec.Op {
		case core.OpNeq:
			return fmt.Sprintf("(%s IS NULL OR LOWER(%s) <> LOWER(?))", expr, expr), []any{spec.Text}, nil
		case core.OpContains:
			return expr + ` LIKE ? ESCAPE '\'`, []any{"%" + escapeLike(spec.Text) + "%"}, nil
		case core.OpStarts:
			return expr + ` LIKE ? ESCAPE '\'`, []any{escapeLike(spec.Text) + "%"}, nil
		case core.OpEnds:
			return expr + ` LIKE ? ESCAPE '\'`, []any{"%" + escapeLike(spec.Text)}, nil
		default:
			return fmt.Sprintf("LOWER(%s) = LOWER(?)", expr), []any{spec.Text}, nil
		}
	case core.FilterNumber:
		return fmt.Sprintf("%s %s ?", expr, sqlComparison(spec.Op)), []any{spec.Number}, nil
	case core.FilterDate:
		return fmt.Sprintf("date(%s) %s ?", expr, sqlComparison(spec.Op)), []any{spec.Date.Format(core.DateLayout)}, nil
	case core.FilterBool:
		return expr + " = ?", []any{spec.Bool}, nil
	case core.FilterReference:
		if spec.Op == core.OpNeq {
			return fmt.Sprintf("(%s IS NULL OR %s <> ?)", expr, expr), []any{spec.Text}, nil
		}
		return expr + " = ?", []any{spec.Text}, nil
	default:
		return "", nil, fmt.Errorf("unhandled filter kind %v", spec.Kind)
	}
}

func sqlComparison(op core.Operator) string {
	switch op {
	case core.OpNeq:
		return "<>"
	case core.OpGt:
		return ">"
	case core.OpGte:
		return ">="
	case core.OpLt:
		return "<"
	case core.OpLte:
		return "<="
	default:
		return "="
	}
}

// QueryEntities runs a generic paginated entity query.
func (s *Store) QueryEntities(ctx context.Context, req core.EntityQueryRequest) (*core.EntityQueryResponse, error) {
	def, err := lookupEntity(req.EntityType)
	if err != nil {
		return nil, err
	}
	req.Normalize()

	countSQL, pageSQL, args, err := buildEntityQuery(def, req)
	if err != nil {
		return nil, err
	}

	var total int
	if err := s.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count entities: %w", err)
	}

	offset := (req.Page - 1) * req.PageSize
	rows, err := s.db.QueryContext(ctx, pageSQL, append(args, req.PageSize, offset)...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch entities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var entities []core.Entity
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		e := make(core.Entity, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				e[col] = string(b)
				continue
			}
			e[col] = values[i]
		}
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return core.NewEntityQueryResponse(req, entities, total), nil
}
