package repository

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/miboda/internal/gateway"
	"github.com/iliyamo/miboda/internal/model"
)

// Scope is the caller a table operation runs for.
type Scope struct {
	UserID string
	Admin  bool
}

// TableRepo runs gateway queries against the planner tables. Rows are
// restricted to the caller's user_id except where Table grants admins more.
type TableRepo struct {
	DB  *sql.DB
	now func() time.Time
}

func NewTableRepo(db *sql.DB) *TableRepo { return &TableRepo{DB: db, now: time.Now} }

func lookup(name string) (*Table, error) {
	t, ok := LookupTable(name)
	if !ok {
		return nil, invalid("relation %q does not exist", name)
	}
	return t, nil
}

func quote(name string) string { return "`" + name + "`" }

var sqlOps = map[gateway.Op]string{
	gateway.OpEq:  "=",
	gateway.OpNeq: "<>",
	gateway.OpGt:  ">",
	gateway.OpGte: ">=",
	gateway.OpLt:  "<",
	gateway.OpLte: "<=",
}

// where renders the scope condition followed by the filters, sorted by
// column so equal queries produce equal SQL.
func where(t *Table, s Scope, all bool, filters []gateway.Filter) (string, []any, error) {
	var (
		conds []string
		args  []any
	)
	if !all {
		conds = append(conds, "`user_id` = ?")
		args = append(args, s.UserID)
	}
	sorted := slices.Clone(filters)
	slices.SortStableFunc(sorted, func(a, b gateway.Filter) int { return strings.Compare(a.Column, b.Column) })
	for _, f := range sorted {
		c, ok := t.column(f.Column)
		if !ok {
			return "", nil, invalid("column %s.%s does not exist", t.Name, f.Column)
		}
		op, ok := sqlOps[f.Op]
		if !ok {
			return "", nil, invalid("unknown operator %q", f.Op)
		}
		if f.Value == "null" {
			switch f.Op {
			case gateway.OpEq:
				conds = append(conds, quote(c.name)+" IS NULL")
			case gateway.OpNeq:
				conds = append(conds, quote(c.name)+" IS NOT NULL")
			default:
				return "", nil, invalid("operator %s does not accept null", f.Op)
			}
			continue
		}
		v, err := operand(c, f.Value)
		if err != nil {
			return "", nil, err
		}
		conds = append(conds, quote(c.name)+" "+op+" ?")
		args = append(args, v)
	}
	if len(conds) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

// operand converts a query string filter value to a driver argument.
func operand(c column, v string) (any, error) {
	switch c.kind {
	case kBool:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, invalid("invalid boolean for %s: %q", c.name, v)
		}
		return b, nil
	case kNumber:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, invalid("invalid number for %s: %q", c.name, v)
		}
		return f, nil
	case kInt:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, invalid("invalid integer for %s: %q", c.name, v)
		}
		return n, nil
	case kTime:
		t, err := parseTimestamp(v)
		if err != nil {
			return nil, invalid("invalid timestamp for %s: %q", c.name, v)
		}
		return t, nil
	}
	return v, nil
}

func parseTimestamp(v string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", model.DateLayout} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", v)
}

func projection(t *Table, selectList string) ([]column, error) {
	selectList = strings.TrimSpace(selectList)
	if selectList == "" || selectList == "*" {
		return t.columns, nil
	}
	var out []column
	for _, name := range strings.Split(selectList, ",") {
		name = strings.TrimSpace(name)
		c, ok := t.column(name)
		if !ok {
			return nil, invalid("column %s.%s does not exist", t.Name, name)
		}
		out = append(out, c)
	}
	return out, nil
}

func columnList(cs []column) string {
	names := make([]string, len(cs))
	for i, c := range cs {
		names[i] = quote(c.name)
	}
	return strings.Join(names, ", ")
}

func orderBy(t *Table, orders []gateway.Order) (string, error) {
	if len(orders) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(orders))
	for _, o := range orders {
		if !t.has(o.Column) {
			return "", invalid("column %s.%s does not exist", t.Name, o.Column)
		}
		dir := "DESC"
		if o.Asc {
			dir = "ASC"
		}
		parts = append(parts, quote(o.Column)+" "+dir)
	}
	return " ORDER BY " + strings.Join(parts, ", "), nil
}

// Select returns the matching rows as JSON-ready maps.
func (r *TableRepo) Select(ctx context.Context, s Scope, table string, q gateway.Query) ([]map[string]any, error) {
	t, err := lookup(table)
	if err != nil {
		return nil, err
	}
	proj, err := projection(t, q.Columns)
	if err != nil {
		return nil, err
	}
	cond, args, err := where(t, s, s.Admin && t.AdminAll, q.Filters)
	if err != nil {
		return nil, err
	}
	order, err := orderBy(t, q.Orders)
	if err != nil {
		return nil, err
	}
	stmt := "SELECT " + columnList(proj) + " FROM " + quote(t.Name) + cond + order
	if q.Max > 0 {
		stmt += " LIMIT " + strconv.Itoa(q.Max)
	}
	return r.query(ctx, r.DB, proj, stmt, args...)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (r *TableRepo) query(ctx context.Context, db querier, proj []column, stmt string, args ...any) ([]map[string]any, error) {
	rows, err := db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []map[string]any{}
	dest := make([]any, len(proj))
	ptrs := make([]any, len(proj))
	for i := range dest {
		ptrs[i] = &dest[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		m := make(map[string]any, len(proj))
		for i, c := range proj {
			v, err := fromDB(c, dest[i])
			if err != nil {
				return nil, err
			}
			m[c.name] = v
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// fromDB converts a scanned driver value to its JSON form.
func fromDB(c column, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if b, ok := v.([]byte); ok {
		s := string(b)
		switch c.kind {
		case kNumber:
			return strconv.ParseFloat(s, 64)
		case kInt:
			return strconv.ParseInt(s, 10, 64)
		case kBool:
			return s == "1" || strings.EqualFold(s, "true"), nil
		case kTime:
			if t, err := parseTimestamp(strings.Replace(s, " ", "T", 1)); err == nil {
				return t, nil
			}
		}
		return s, nil
	}
	switch t := v.(type) {
	case time.Time:
		if c.kind == kDate {
			return t.Format(model.DateLayout), nil
		}
		return t.UTC(), nil
	case int64:
		switch c.kind {
		case kBool:
			return t != 0, nil
		case kNumber:
			return float64(t), nil
		}
		return t, nil
	}
	return v, nil
}

// toDB converts a decoded JSON value to a driver argument for column c.
func toDB(c column, v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case bool:
		if c.kind != kBool {
			return nil, invalid("invalid value for %s: %v", c.name, v)
		}
		return t, nil
	case float64:
		switch c.kind {
		case kNumber:
			return t, nil
		case kInt:
			return int64(t), nil
		}
		return nil, invalid("invalid value for %s: %v", c.name, v)
	case string:
		switch c.kind {
		case kText, kDate:
			return t, nil
		case kTime:
			ts, err := parseTimestamp(t)
			if err != nil {
				return nil, invalid("invalid timestamp for %s: %q", c.name, t)
			}
			return ts, nil
		}
		return operand(c, t)
	}
	return nil, invalid("invalid value for %s: %v", c.name, v)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Insert stores rows in one transaction. id and the timestamps are filled
// when absent and user_id is always the caller. When returning is set the
// stored rows are read back in input order.
func (r *TableRepo) Insert(ctx context.Context, s Scope, table string, rows []map[string]any, returning bool) ([]map[string]any, error) {
	t, err := lookup(table)
	if err != nil {
		return nil, err
	}
	if t.NoInsert {
		return nil, ErrForbidden
	}
	if len(rows) == 0 {
		return []map[string]any{}, nil
	}

	type insert struct {
		stmt string
		args []any
	}
	now := r.now().UTC()
	ids := make([]string, 0, len(rows))
	stmts := make([]insert, 0, len(rows))
	for _, in := range rows {
		row := make(map[string]any, len(in)+4)
		for k, v := range in {
			row[k] = v
		}
		if owner, ok := row["user_id"]; ok && owner != s.UserID {
			return nil, ErrForbidden
		}
		row["user_id"] = s.UserID
		if id, _ := row["id"].(string); id == "" {
			row["id"] = uuid.NewString()
		}
		for _, ts := range []string{"created_at", "updated_at", "transaction_date"} {
			if _, set := row[ts]; !set && t.has(ts) {
				row[ts] = now.Format(time.RFC3339Nano)
			}
		}

		keys := sortedKeys(row)
		names := make([]string, len(keys))
		args := make([]any, len(keys))
		for i, k := range keys {
			c, ok := t.column(k)
			if !ok {
				return nil, invalid("column %s.%s does not exist", t.Name, k)
			}
			if t.adminOnly[k] && !s.Admin {
				return nil, ErrForbidden
			}
			if args[i], err = toDB(c, row[k]); err != nil {
				return nil, err
			}
			names[i] = quote(k)
		}
		stmts = append(stmts, insert{
			stmt: "INSERT INTO " + quote(t.Name) + " (" + strings.Join(names, ", ") + ") VALUES (" +
				strings.TrimSuffix(strings.Repeat("?, ", len(keys)), ", ") + ")",
			args: args,
		})
		ids = append(ids, row["id"].(string))
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()
	for _, ins := range stmts {
		if _, err := tx.ExecContext(ctx, ins.stmt, ins.args...); err != nil {
			return nil, translate(err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, translate(err)
	}
	if !returning {
		return nil, nil
	}

	stmt := "SELECT " + columnList(t.columns) + " FROM " + quote(t.Name) +
		" WHERE `user_id` = ? AND `id` IN (" + strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ") + ")"
	args := make([]any, 0, len(ids)+1)
	args = append(args, s.UserID)
	for _, id := range ids {
		args = append(args, id)
	}
	stored, err := r.query(ctx, r.DB, t.columns, stmt, args...)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]map[string]any, len(stored))
	for _, m := range stored {
		byID[m["id"].(string)] = m
	}
	out := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		if m, ok := byID[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

// Update applies patch to the matching rows and returns how many changed.
// A filter is required.
func (r *TableRepo) Update(ctx context.Context, s Scope, table string, q gateway.Query, patch map[string]any) (int64, error) {
	t, err := lookup(table)
	if err != nil {
		return 0, err
	}
	if len(q.Filters) == 0 {
		return 0, invalid("UPDATE requires a WHERE clause")
	}
	if len(patch) == 0 {
		return 0, invalid("empty patch")
	}
	var (
		sets []string
		args []any
	)
	for _, k := range sortedKeys(patch) {
		c, ok := t.column(k)
		if !ok {
			return 0, invalid("column %s.%s does not exist", t.Name, k)
		}
		if immutable[k] {
			return 0, invalid("column %s.%s can not be updated", t.Name, k)
		}
		if t.adminOnly[k] && !s.Admin {
			return 0, ErrForbidden
		}
		v, err := toDB(c, patch[k])
		if err != nil {
			return 0, err
		}
		sets = append(sets, quote(k)+" = ?")
		args = append(args, v)
	}
	if _, set := patch["updated_at"]; !set && t.has("updated_at") {
		sets = append(sets, "`updated_at` = ?")
		args = append(args, r.now().UTC())
	}
	cond, condArgs, err := where(t, s, s.Admin && t.AdminAll, q.Filters)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx, "UPDATE "+quote(t.Name)+" SET "+strings.Join(sets, ", ")+cond, append(args, condArgs...)...)
	if err != nil {
		return 0, translate(err)
	}
	return res.RowsAffected()
}

// Delete removes the caller's matching rows. A filter is required.
func (r *TableRepo) Delete(ctx context.Context, s Scope, table string, q gateway.Query) (int64, error) {
	t, err := lookup(table)
	if err != nil {
		return 0, err
	}
	if t.NoInsert {
		return 0, ErrForbidden
	}
	if len(q.Filters) == 0 {
		return 0, invalid("DELETE requires a WHERE clause")
	}
	cond, args, err := where(t, s, false, q.Filters)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx, "DELETE FROM "+quote(t.Name)+cond, args...)
	if err != nil {
		return 0, translate(err)
	}
	return res.RowsAffected()
}

// Count returns the number of matching rows.
func (r *TableRepo) Count(ctx context.Context, s Scope, table string, q gateway.Query) (int, error) {
	t, err := lookup(table)
	if err != nil {
		return 0, err
	}
	cond, args, err := where(t, s, s.Admin && (t.AdminAll || t.AdminCount), q.Filters)
	if err != nil {
		return 0, err
	}
	var n int
	err = r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quote(t.Name)+cond, args...).Scan(&n)
	return n, err
}
