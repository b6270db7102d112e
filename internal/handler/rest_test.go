package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/miboda/internal/gateway"
	"github.com/iliyamo/miboda/internal/handler/handlertest"
)

func newRest(st *handlertest.Store) *RestHandler {
	return NewRestHandler(st, st, st, discard)
}

func decodeRows(t *testing.T, raw []byte) []map[string]any {
	t.Helper()
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(raw, &rows))
	return rows
}

func TestPostReturnsRepresentationAndScopesReads(t *testing.T) {
	st := handlertest.New()
	ana := st.AddUser("ana@mail.com", "secreto1", "")
	beto := st.AddUser("beto@mail.com", "secreto1", "")
	h := newRest(st)

	req := call(t, h.Post, http.MethodPost, "/rest/v1/tasks",
		`[{"title":"Reservar iglesia"},{"title":"Elegir fotógrafo"}]`, ana.ID, "table", "tasks")
	require.Equal(t, http.StatusCreated, req.Code)
	assert.Empty(t, req.Body.String(), "return=minimal by default")

	call(t, h.Post, http.MethodPost, "/rest/v1/tasks", `{"title":"Ajeno"}`, beto.ID, "table", "tasks")

	rec := call(t, h.Get, http.MethodGet, "/rest/v1/tasks?select=*", "", ana.ID, "table", "tasks")
	require.Equal(t, http.StatusOK, rec.Code)
	rows := decodeRows(t, rec.Body.Bytes())
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, ana.ID, r["user_id"])
	}
	assert.Equal(t, "0-1/*", rec.Header().Get("Content-Range"))
}

func TestPostRepresentationHeader(t *testing.T) {
	st := handlertest.New()
	ana := st.AddUser("ana@mail.com", "secreto1", "")
	h := newRest(st)

	e := newEchoRequest(t, http.MethodPost, "/rest/v1/budgets", `{"category":"catering","planned_amount":1000}`)
	e.req.Header.Set("Prefer", "return=representation")
	rec := e.run(t, h.Post, ana.ID, "table", "budgets")
	require.Equal(t, http.StatusCreated, rec.Code)
	rows := decodeRows(t, rec.Body.Bytes())
	require.Len(t, rows, 1)
	assert.Equal(t, "catering", rows[0]["category"])
}

func TestHeadCounts(t *testing.T) {
	st := handlertest.New()
	ana := st.AddUser("ana@mail.com", "secreto1", "")
	h := newRest(st)
	call(t, h.Post, http.MethodPost, "/rest/v1/tasks", `[{"title":"a"},{"title":"b"},{"title":"c"}]`, ana.ID, "table", "tasks")

	rec := call(t, h.Head, http.MethodHead, "/rest/v1/tasks", "", ana.ID, "table", "tasks")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*/3", rec.Header().Get("Content-Range"))
}

func TestBadRequests(t *testing.T) {
	st := handlertest.New()
	ana := st.AddUser("ana@mail.com", "secreto1", "")
	h := newRest(st)

	rec := call(t, h.Get, http.MethodGet, "/rest/v1/tasks?title=like.x", "", ana.ID, "table", "tasks")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(t, h.Get, http.MethodGet, "/rest/v1/secrets", "", ana.ID, "table", "secrets")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var ge gateway.Error
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ge))
	assert.Equal(t, "PGRST100", ge.Code)

	rec = call(t, h.Post, http.MethodPost, "/rest/v1/tasks", `"texto"`, ana.ID, "table", "tasks")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(t, h.Post, http.MethodPost, "/rest/v1/user_profiles", `{"email":"x@y.z"}`, ana.ID, "table", "user_profiles")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = call(t, h.Delete, http.MethodDelete, "/rest/v1/tasks", "", ana.ID, "table", "tasks")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "delete needs a filter")
}

func TestAdminSuspensionFollowsUp(t *testing.T) {
	st := handlertest.New()
	admin := st.AddUser("root@miboda.co", "secreto1", "")
	st.SetAdmin(admin.ID)
	ana := st.AddUser("ana@mail.com", "secreto1", "")
	h := newRest(st)

	rec := call(t, h.Patch, http.MethodPatch, "/rest/v1/user_profiles?user_id=eq."+ana.ID,
		`{"is_active":false}`, admin.ID, "table", "user_profiles")
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	assert.Equal(t, []string{ana.ID + "=false"}, st.StatusChanges)

	// the same patch from a non-admin is a plain scoped update with no
	// follow-up
	call(t, h.Patch, http.MethodPatch, "/rest/v1/user_profiles?user_id=eq."+ana.ID,
		`{"full_name":"Ana"}`, ana.ID, "table", "user_profiles")
	assert.Len(t, st.StatusChanges, 1)
}

func TestRPC(t *testing.T) {
	st := handlertest.New()
	admin := st.AddUser("root@miboda.co", "secreto1", "")
	st.SetAdmin(admin.ID)
	ana := st.AddUser("ana@mail.com", "secreto1", "")
	h := newRest(st)

	rec := call(t, h.RPC, http.MethodPost, "/rest/v1/rpc/is_admin", `{"user_uuid":"`+ana.ID+`"}`, ana.ID, "fn", "is_admin")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "false", rec.Body.String())

	rec = call(t, h.RPC, http.MethodPost, "/rest/v1/rpc/get_user_role", `{"user_uuid":"`+ana.ID+`"}`, admin.ID, "fn", "get_user_role")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `"user"`, rec.Body.String())

	rec = call(t, h.RPC, http.MethodPost, "/rest/v1/rpc/get_user_role", `{"user_uuid":"`+admin.ID+`"}`, ana.ID, "fn", "get_user_role")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = call(t, h.RPC, http.MethodPost, "/rest/v1/rpc/drop_all", `{}`, ana.ID, "fn", "drop_all")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateUserFunction(t *testing.T) {
	st := handlertest.New()
	admin := st.AddUser("root@miboda.co", "secreto1", "")
	h := NewFunctionsHandler(st, discard)

	rec := call(t, h.CreateUser, http.MethodPost, "/functions/v1/create-user",
		`{"email":"nueva@mail.com","password":"secreto1","fullName":"Nueva"}`, admin.ID)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res gateway.CreateUserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Success)
	assert.Equal(t, "nueva@mail.com", res.User.Email)

	for name, tc := range map[string]struct {
		body string
		msg  string
	}{
		"duplicate":      {`{"email":"nueva@mail.com","password":"secreto1"}`, "A user with this email address has already been registered"},
		"missing fields": {`{"email":"otra@mail.com"}`, "Email y contraseña requeridos"},
		"short password": {`{"email":"otra@mail.com","password":"123"}`, "Password should be at least 6 characters"},
		"bad body":       {`{"email":`, "Cuerpo de solicitud inválido"},
	} {
		t.Run(name, func(t *testing.T) {
			rec := call(t, h.CreateUser, http.MethodPost, "/functions/v1/create-user", tc.body, admin.ID)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.JSONEq(t, `{"error":"`+tc.msg+`"}`, rec.Body.String())
		})
	}
}
