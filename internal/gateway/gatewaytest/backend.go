// Package gatewaytest provides an in-memory gateway backend for tests. It
// keeps rows as decoded JSON objects, enforces the unique keys the real
// schema declares and lets tests inject failures and count calls.
package gatewaytest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/miboda/internal/gateway"
	"github.com/iliyamo/miboda/internal/model"
)

// Op names a recorded gateway call.
type Op string

const (
	OpSelect Op = "select"
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	OpCount  Op = "count"
	OpRPC    Op = "rpc"
	OpInvoke Op = "invoke"
	OpSignIn Op = "sign_in"
)

type row = map[string]any

type account struct {
	identity model.Identity
	password string
}

// Backend implements gateway.Auth and gateway.Data in memory. It has no row
// level security: callers are expected to filter by owner.
type Backend struct {
	mu        sync.Mutex
	tables    map[string][]row
	unique    map[string][][]string
	accounts  map[string]*account
	admins    map[string]bool
	rpcs      map[string]func(args map[string]any) (any, error)
	functions map[string]func(body map[string]any) (any, error)
	failures  map[string]error
	before    map[string][]func()
	calls     map[string]int

	session   *gateway.Session
	listeners map[int]func(gateway.AuthEvent)
	nextID    int
	now       func() time.Time
}

// New returns an empty backend with the production unique keys and the two
// role procedures registered.
func New() *Backend {
	b := &Backend{
		tables:    map[string][]row{},
		unique:    map[string][][]string{},
		accounts:  map[string]*account{},
		admins:    map[string]bool{},
		rpcs:      map[string]func(map[string]any) (any, error){},
		functions: map[string]func(map[string]any) (any, error){},
		failures:  map[string]error{},
		before:    map[string][]func(){},
		calls:     map[string]int{},
		listeners: map[int]func(gateway.AuthEvent){},
		now:       time.Now,
	}
	b.Unique(gateway.TableBudgets, "user_id", "category")
	b.Unique(gateway.TableWeddingProfiles, "user_id")
	b.Unique(gateway.TableUserProfiles, "user_id")
	b.rpcs[gateway.RPCIsAdmin] = func(args map[string]any) (any, error) {
		id, _ := args["user_uuid"].(string)
		return b.admins[id], nil
	}
	b.rpcs[gateway.RPCGetUserRole] = func(args map[string]any) (any, error) {
		id, _ := args["user_uuid"].(string)
		if b.admins[id] {
			return model.RoleAdmin, nil
		}
		return model.RoleUser, nil
	}
	return b
}

func key(op Op, name string) string { return string(op) + ":" + name }

// Unique declares a unique key on table.
func (b *Backend) Unique(table string, cols ...string) {
	b.mu.Lock()
	b.unique[table] = append(b.unique[table], cols)
	b.mu.Unlock()
}

// SetClock overrides the timestamp source for created_at/updated_at.
func (b *Backend) SetClock(now func() time.Time) {
	b.mu.Lock()
	b.now = now
	b.mu.Unlock()
}

// FailOn makes every op on name (table, procedure or function) return err
// until ClearFailures.
func (b *Backend) FailOn(op Op, name string, err error) {
	b.mu.Lock()
	b.failures[key(op, name)] = err
	b.mu.Unlock()
}

func (b *Backend) ClearFailures() {
	b.mu.Lock()
	b.failures = map[string]error{}
	b.mu.Unlock()
}

// Before runs fn once, outside the lock, right before the next op on name.
func (b *Backend) Before(op Op, name string, fn func()) {
	b.mu.Lock()
	k := key(op, name)
	b.before[k] = append(b.before[k], fn)
	b.mu.Unlock()
}

// Calls returns how many times op was issued against name.
func (b *Backend) Calls(op Op, name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[key(op, name)]
}

// TotalCalls counts every recorded call.
func (b *Backend) TotalCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		n += c
	}
	return n
}

// ResetCalls zeroes the call counters.
func (b *Backend) ResetCalls() {
	b.mu.Lock()
	b.calls = map[string]int{}
	b.mu.Unlock()
}

// HandleRPC registers or replaces a procedure. fn runs with the backend
// locked and must not call back into it.
func (b *Backend) HandleRPC(name string, fn func(args map[string]any) (any, error)) {
	b.mu.Lock()
	b.rpcs[name] = fn
	b.mu.Unlock()
}

// HandleFunction registers a function reachable through Invoke.
func (b *Backend) HandleFunction(name string, fn func(body map[string]any) (any, error)) {
	b.mu.Lock()
	b.functions[name] = fn
	b.mu.Unlock()
}

// enter records the call, runs pending Before hooks and returns the injected
// failure, if any. It must be called without holding the lock.
func (b *Backend) enter(op Op, name string) error {
	k := key(op, name)
	b.mu.Lock()
	b.calls[k]++
	hooks := b.before[k]
	delete(b.before, k)
	b.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures[k]
}

// Rows returns a copy of every stored row of table.
func (b *Backend) Rows(table string) []map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]map[string]any, 0, len(b.tables[table]))
	for _, r := range b.tables[table] {
		out = append(out, copyRow(r))
	}
	return out
}

// Seed stores rows without checks or call accounting. Each row is encoded to
// JSON first, so typed structs work.
func (b *Backend) Seed(table string, rows ...any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range rows {
		m, err := toRow(r)
		if err != nil {
			panic(err)
		}
		b.fillDefaults(m)
		b.tables[table] = append(b.tables[table], m)
	}
}

// Set overwrites column on every row of table matching q, without call
// accounting. Tests use it to simulate changes made by someone else.
func (b *Backend) Set(table string, q gateway.Query, column string, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range b.tables[table] {
		if matches(r, q.Filters) {
			r[column] = normalize(value)
		}
	}
}

func (b *Backend) fillDefaults(m row) {
	if _, ok := m["id"]; !ok || m["id"] == "" {
		m["id"] = uuid.NewString()
	}
	ts := b.now().UTC().Format(time.RFC3339Nano)
	if _, ok := m["created_at"]; !ok {
		m["created_at"] = ts
	}
	if _, ok := m["updated_at"]; !ok {
		m["updated_at"] = ts
	}
}

func (b *Backend) Select(ctx context.Context, table string, q gateway.Query, out any) error {
	if err := b.enter(OpSelect, table); err != nil {
		return err
	}
	b.mu.Lock()
	rows := b.query(table, q)
	b.mu.Unlock()
	return decode(project(rows, q.Columns), out)
}

func (b *Backend) query(table string, q gateway.Query) []row {
	var rows []row
	for _, r := range b.tables[table] {
		if matches(r, q.Filters) {
			rows = append(rows, copyRow(r))
		}
	}
	if len(q.Orders) > 0 {
		sort.SliceStable(rows, func(i, j int) bool {
			for _, o := range q.Orders {
				c := compare(rows[i][o.Column], rows[j][o.Column])
				if c == 0 {
					continue
				}
				if o.Asc {
					return c < 0
				}
				return c > 0
			}
			return false
		})
	}
	if q.Max > 0 && len(rows) > q.Max {
		rows = rows[:q.Max]
	}
	return rows
}

func (b *Backend) Insert(ctx context.Context, table string, in any, out any) error {
	if err := b.enter(OpInsert, table); err != nil {
		return err
	}
	var batch []row
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	if strings.HasPrefix(strings.TrimSpace(string(raw)), "[") {
		if err := json.Unmarshal(raw, &batch); err != nil {
			return err
		}
	} else {
		m, err := toRow(in)
		if err != nil {
			return err
		}
		batch = []row{m}
	}

	b.mu.Lock()
	for _, m := range batch {
		b.fillDefaults(m)
		if err := b.checkUnique(table, m, nil); err != nil {
			b.mu.Unlock()
			return err
		}
	}
	stored := make([]row, 0, len(batch))
	for _, m := range batch {
		b.tables[table] = append(b.tables[table], m)
		stored = append(stored, copyRow(m))
	}
	b.mu.Unlock()

	if out == nil {
		return nil
	}
	return decode(stored, out)
}

func (b *Backend) checkUnique(table string, m row, skip row) error {
	for _, cols := range b.unique[table] {
		for _, existing := range b.tables[table] {
			if skip != nil && existing["id"] == skip["id"] {
				continue
			}
			same := true
			for _, c := range cols {
				if compare(existing[c], m[c]) != 0 {
					same = false
					break
				}
			}
			if same {
				return &gateway.Error{
					Status:  http.StatusConflict,
					Code:    gateway.CodeUniqueViolation,
					Message: fmt.Sprintf("duplicate key value violates unique constraint \"%s_%s_key\"", table, strings.Join(cols, "_")),
				}
			}
		}
	}
	return nil
}

func (b *Backend) Update(ctx context.Context, table string, q gateway.Query, patch any) error {
	if err := b.enter(OpUpdate, table); err != nil {
		return err
	}
	p, err := toRow(patch)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	ts := b.now().UTC().Format(time.RFC3339Nano)
	for _, r := range b.tables[table] {
		if !matches(r, q.Filters) {
			continue
		}
		next := copyRow(r)
		for k, v := range p {
			next[k] = v
		}
		if err := b.checkUnique(table, next, r); err != nil {
			return err
		}
		for k, v := range p {
			r[k] = v
		}
		r["updated_at"] = ts
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, table string, q gateway.Query) error {
	if err := b.enter(OpDelete, table); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.tables[table][:0]
	for _, r := range b.tables[table] {
		if !matches(r, q.Filters) {
			kept = append(kept, r)
		}
	}
	b.tables[table] = kept
	return nil
}

func (b *Backend) Count(ctx context.Context, table string, q gateway.Query) (int, error) {
	if err := b.enter(OpCount, table); err != nil {
		return 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.query(table, q.Limit(0))), nil
}

func (b *Backend) RPC(ctx context.Context, fn string, args any, out any) error {
	if err := b.enter(OpRPC, fn); err != nil {
		return err
	}
	b.mu.Lock()
	h := b.rpcs[fn]
	b.mu.Unlock()
	if h == nil {
		return &gateway.Error{Status: http.StatusNotFound, Code: "PGRST202", Message: "function " + fn + " not found"}
	}
	m, err := toRow(args)
	if err != nil {
		return err
	}
	b.mu.Lock()
	res, err := h(m)
	b.mu.Unlock()
	if err != nil {
		return err
	}
	return decode(res, out)
}

func (b *Backend) Invoke(ctx context.Context, function string, body any, out any) error {
	if err := b.enter(OpInvoke, function); err != nil {
		return err
	}
	b.mu.Lock()
	h := b.functions[function]
	b.mu.Unlock()
	if h == nil {
		return &gateway.Error{Status: http.StatusNotFound, Message: "function " + function + " not found"}
	}
	m, err := toRow(body)
	if err != nil {
		return err
	}
	res, err := h(m)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return decode(res, out)
}

func toRow(v any) (row, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	m := row{}
	if string(raw) == "null" {
		return m, nil
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func decode(v any, out any) error {
	if out == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if rows, ok := v.([]row); ok && rows == nil {
		raw = []byte("[]")
	}
	return json.Unmarshal(raw, out)
}

func copyRow(r row) row {
	out := make(row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func normalize(v any) any {
	m, err := toRow(map[string]any{"v": v})
	if err != nil {
		return v
	}
	return m["v"]
}

func project(rows []row, cols string) []row {
	cols = strings.TrimSpace(cols)
	if cols == "" || cols == "*" {
		return rows
	}
	names := strings.Split(cols, ",")
	out := make([]row, 0, len(rows))
	for _, r := range rows {
		p := row{}
		for _, n := range names {
			n = strings.TrimSpace(n)
			if v, ok := r[n]; ok {
				p[n] = v
			}
		}
		out = append(out, p)
	}
	return out
}

func matches(r row, filters []gateway.Filter) bool {
	for _, f := range filters {
		c := compare(r[f.Column], f.Value)
		var ok bool
		switch f.Op {
		case gateway.OpEq:
			ok = c == 0
		case gateway.OpNeq:
			ok = c != 0
		case gateway.OpGt:
			ok = c > 0
		case gateway.OpGte:
			ok = c >= 0
		case gateway.OpLt:
			ok = c < 0
		case gateway.OpLte:
			ok = c <= 0
		}
		if !ok {
			return false
		}
	}
	return true
}

// compare orders two stored or filter values. Nulls sort last. Numbers and
// timestamps compare by value, everything else by its string form.
func compare(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			if s, ok := b.(string); ok && s == "null" {
				return 0
			}
			return 1
		default:
			if s, ok := a.(string); ok && s == "null" {
				return 0
			}
			return -1
		}
	}
	as, bs := gateway.FormatValue(a), gateway.FormatValue(b)
	if af, err := strconv.ParseFloat(as, 64); err == nil {
		if bf, err := strconv.ParseFloat(bs, 64); err == nil {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			}
			return 0
		}
	}
	if at, ok := parseTime(as); ok {
		if bt, ok := parseTime(bs); ok {
			return at.Compare(bt)
		}
	}
	return strings.Compare(as, bs)
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, model.DateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
