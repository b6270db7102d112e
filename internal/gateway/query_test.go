package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	q := Q().Eq("user_id", "u1").Gte("created_at", time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)).
		Order("due_date", true).Order("created_at", false).Limit(3)
	v := q.Encode()

	assert.Equal(t, "*", v.Get("select"))
	assert.Equal(t, "eq.u1", v.Get("user_id"))
	assert.Equal(t, "gte.2026-10-01T00:00:00Z", v.Get("created_at"))
	assert.Equal(t, "due_date.asc,created_at.desc", v.Get("order"))
	assert.Equal(t, "3", v.Get("limit"))
}

func TestParseRoundTrip(t *testing.T) {
	q := Q().Select("id,is_active").Eq("is_active", true).Order("name", true).Limit(10)
	got, err := ParseQuery(q.Encode())
	require.NoError(t, err)
	assert.Equal(t, "id,is_active", got.Columns)
	assert.Equal(t, []Filter{{Column: "is_active", Op: OpEq, Value: "true"}}, got.Filters)
	assert.Equal(t, []Order{{Column: "name", Asc: true}}, got.Orders)
	assert.Equal(t, 10, got.Max)
}

func TestParseRejectsUnknownOperator(t *testing.T) {
	v := Q().Encode()
	v.Set("name", "like.*flor*")
	_, err := ParseQuery(v)
	assert.Error(t, err)
}

func TestBuilderDoesNotAlias(t *testing.T) {
	base := Q().Eq("user_id", "u1")
	a := base.Eq("category", "belleza")
	b := base.Eq("category", "argollas")
	assert.Len(t, base.Filters, 1)
	assert.Equal(t, "belleza", a.Filters[1].Value)
	assert.Equal(t, "argollas", b.Filters[1].Value)
}

func TestErrorClassifiers(t *testing.T) {
	dup := fmt.Errorf("insert budget: %w", &Error{Status: http.StatusConflict, Code: CodeUniqueViolation, Message: "duplicate key"})
	assert.True(t, IsConflict(dup))
	assert.False(t, IsNotFound(dup))
	assert.Equal(t, "duplicate key", Message(dup))

	assert.True(t, IsNotFound(&Error{Status: 406, Code: CodeNoRows}))
	assert.False(t, IsConflict(errors.New("boom")))
	assert.Equal(t, "Invalid login credentials", Message(&AuthError{Status: 400, Message: "Invalid login credentials"}))
}
