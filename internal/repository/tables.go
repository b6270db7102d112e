package repository

import "github.com/iliyamo/miboda/internal/gateway"

type kind int

const (
	kText kind = iota
	kNumber
	kInt
	kBool
	kDate // DATE, travels as YYYY-MM-DD
	kTime // DATETIME, travels as RFC 3339
)

type column struct {
	name string
	kind kind
}

// Table describes one planner table exposed under /rest/v1. Every row
// belongs to the user in user_id.
type Table struct {
	Name    string
	columns []column

	// Admins read and update every row rather than only their own.
	AdminAll bool
	// Admins count every row.
	AdminCount bool
	// Clients may not insert; rows are created by the server.
	NoInsert bool
	// Columns only admins may write.
	adminOnly map[string]bool
}

func (t *Table) column(name string) (column, bool) {
	for _, c := range t.columns {
		if c.name == name {
			return c, true
		}
	}
	return column{}, false
}

func (t *Table) has(name string) bool {
	_, ok := t.column(name)
	return ok
}

// immutable columns are set on insert and never patched.
var immutable = map[string]bool{"id": true, "user_id": true, "created_at": true}

func cols(names ...any) []column {
	out := make([]column, 0, len(names)/2)
	for i := 0; i < len(names); i += 2 {
		out = append(out, column{name: names[i].(string), kind: names[i+1].(kind)})
	}
	return out
}

var tables = map[string]*Table{
	gateway.TableUserProfiles: {
		Name: gateway.TableUserProfiles,
		columns: cols("id", kText, "user_id", kText, "email", kText, "full_name", kText,
			"is_active", kBool, "created_at", kTime, "updated_at", kTime),
		AdminAll:   true,
		AdminCount: true,
		NoInsert:   true,
		adminOnly:  map[string]bool{"is_active": true, "email": true},
	},
	gateway.TableWeddingProfiles: {
		Name: gateway.TableWeddingProfiles,
		columns: cols("id", kText, "user_id", kText, "wedding_date", kDate, "total_budget", kNumber,
			"guest_count", kInt, "city", kText, "partner1_name", kText, "partner2_name", kText,
			"photo_url", kText, "created_at", kTime, "updated_at", kTime),
		AdminCount: true,
	},
	gateway.TableBudgets: {
		Name: gateway.TableBudgets,
		columns: cols("id", kText, "user_id", kText, "category", kText, "planned_amount", kNumber,
			"spent_amount", kNumber, "created_at", kTime, "updated_at", kTime),
	},
	gateway.TableTransactions: {
		Name: gateway.TableTransactions,
		columns: cols("id", kText, "user_id", kText, "amount", kNumber, "type", kText, "category", kText,
			"description", kText, "provider_id", kText, "transaction_date", kTime, "created_at", kTime),
	},
	gateway.TableProviders: {
		Name: gateway.TableProviders,
		columns: cols("id", kText, "user_id", kText, "name", kText, "category", kText, "city", kText,
			"price_approx", kNumber, "whatsapp", kText, "instagram", kText, "notes", kText,
			"contacted", kBool, "hired", kBool, "is_custom", kBool, "created_at", kTime, "updated_at", kTime),
	},
	gateway.TableTasks: {
		Name: gateway.TableTasks,
		columns: cols("id", kText, "user_id", kText, "title", kText, "description", kText, "due_date", kDate,
			"completed", kBool, "is_custom", kBool, "months_before", kInt, "created_at", kTime, "updated_at", kTime),
	},
	gateway.TableDaySchedule: {
		Name: gateway.TableDaySchedule,
		columns: cols("id", kText, "user_id", kText, "time", kText, "activity", kText, "notes", kText,
			"completed", kBool, "created_at", kTime),
	},
}

// LookupTable returns the exposed table named name.
func LookupTable(name string) (*Table, bool) {
	t, ok := tables[name]
	return t, ok
}
