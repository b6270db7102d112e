package gateway

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Op is a filter comparison operator.
type Op string

const (
	OpEq  Op = "eq"
	OpNeq Op = "neq"
	OpGt  Op = "gt"
	OpGte Op = "gte"
	OpLt  Op = "lt"
	OpLte Op = "lte"
)

var validOps = map[Op]bool{OpEq: true, OpNeq: true, OpGt: true, OpGte: true, OpLt: true, OpLte: true}

// Filter restricts rows to those whose Column compares to Value with Op.
type Filter struct {
	Column string
	Op     Op
	Value  string
}

// Order sorts rows by Column.
type Order struct {
	Column string
	Asc    bool
}

// Query is a table read/write selector. The zero value selects every row.
// Builder methods return a modified copy, so a Query can be shared.
type Query struct {
	Columns string
	Filters []Filter
	Orders  []Order
	Max     int
}

// Q starts an empty query.
func Q() Query { return Query{} }

func (q Query) clone() Query {
	out := Query{Columns: q.Columns, Max: q.Max}
	out.Filters = append([]Filter(nil), q.Filters...)
	out.Orders = append([]Order(nil), q.Orders...)
	return out
}

func (q Query) Select(cols string) Query {
	out := q.clone()
	out.Columns = cols
	return out
}

func (q Query) where(col string, op Op, v any) Query {
	out := q.clone()
	out.Filters = append(out.Filters, Filter{Column: col, Op: op, Value: FormatValue(v)})
	return out
}

func (q Query) Eq(col string, v any) Query  { return q.where(col, OpEq, v) }
func (q Query) Neq(col string, v any) Query { return q.where(col, OpNeq, v) }
func (q Query) Gt(col string, v any) Query  { return q.where(col, OpGt, v) }
func (q Query) Gte(col string, v any) Query { return q.where(col, OpGte, v) }
func (q Query) Lt(col string, v any) Query  { return q.where(col, OpLt, v) }
func (q Query) Lte(col string, v any) Query { return q.where(col, OpLte, v) }

// Order appends a sort key.
func (q Query) Order(col string, asc bool) Query {
	out := q.clone()
	out.Orders = append(out.Orders, Order{Column: col, Asc: asc})
	return out
}

// Limit caps the number of rows returned. n <= 0 removes the cap.
func (q Query) Limit(n int) Query {
	out := q.clone()
	out.Max = n
	return out
}

// FormatValue renders a filter operand the way it travels in a query string.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}

// Encode renders q as PostgREST query parameters:
// select=..., order=a.asc,b.desc, limit=N and col=op.value per filter.
func (q Query) Encode() url.Values {
	v := url.Values{}
	cols := q.Columns
	if cols == "" {
		cols = "*"
	}
	v.Set("select", cols)
	for _, f := range q.Filters {
		v.Add(f.Column, string(f.Op)+"."+f.Value)
	}
	if len(q.Orders) > 0 {
		parts := make([]string, 0, len(q.Orders))
		for _, o := range q.Orders {
			dir := "desc"
			if o.Asc {
				dir = "asc"
			}
			parts = append(parts, o.Column+"."+dir)
		}
		v.Set("order", strings.Join(parts, ","))
	}
	if q.Max > 0 {
		v.Set("limit", strconv.Itoa(q.Max))
	}
	return v
}

// ParseQuery is the inverse of Encode. Unknown operators and malformed sort
// keys are rejected.
func ParseQuery(v url.Values) (Query, error) {
	q := Query{Columns: v.Get("select")}
	for key, vals := range v {
		switch key {
		case "select":
			continue
		case "order":
			for _, part := range strings.Split(vals[0], ",") {
				part = strings.TrimSpace(part)
				if part == "" {
					continue
				}
				col, dir, _ := strings.Cut(part, ".")
				switch dir {
				case "", "asc":
					q.Orders = append(q.Orders, Order{Column: col, Asc: true})
				case "desc":
					q.Orders = append(q.Orders, Order{Column: col})
				default:
					return Query{}, fmt.Errorf("invalid order %q", part)
				}
			}
		case "limit":
			n, err := strconv.Atoi(vals[0])
			if err != nil || n < 0 {
				return Query{}, fmt.Errorf("invalid limit %q", vals[0])
			}
			q.Max = n
		default:
			for _, raw := range vals {
				op, val, ok := strings.Cut(raw, ".")
				if !ok || !validOps[Op(op)] {
					return Query{}, fmt.Errorf("invalid filter %s=%q", key, raw)
				}
				q.Filters = append(q.Filters, Filter{Column: key, Op: Op(op), Value: val})
			}
		}
	}
	return q, nil
}
