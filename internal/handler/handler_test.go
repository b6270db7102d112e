package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/miboda/internal/config"
	"github.com/iliyamo/miboda/internal/gateway"
	"github.com/iliyamo/miboda/internal/gateway/supabase"
	"github.com/iliyamo/miboda/internal/handler/handlertest"
	"github.com/iliyamo/miboda/internal/middleware"
	"github.com/iliyamo/miboda/internal/utils"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

var testCfg = config.Config{JWTSecret: "test-secret", AccessTTLMin: 60, RefreshTTLDays: 30}

func newAuth(st *handlertest.Store) *AuthHandler {
	return NewAuthHandler(testCfg, st, st, st, st, discard)
}

type echoRequest struct {
	req *http.Request
}

func newEchoRequest(t *testing.T, method, target, body string) *echoRequest {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	return &echoRequest{req: req}
}

// run calls h with the request. uid, when set, is the authenticated caller;
// params are name/value pairs of path parameters.
func (er *echoRequest) run(t *testing.T, h echo.HandlerFunc, uid string, params ...string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(er.req, rec)
	var names, values []string
	for i := 0; i+1 < len(params); i += 2 {
		names = append(names, params[i])
		values = append(values, params[i+1])
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
	if uid != "" {
		c.Set(middleware.KeyUserID, uid)
	}
	require.NoError(t, h(c))
	return rec
}

func call(t *testing.T, h echo.HandlerFunc, method, target, body, uid string, params ...string) *httptest.ResponseRecorder {
	t.Helper()
	return newEchoRequest(t, method, target, body).run(t, h, uid, params...)
}

func authErr(t *testing.T, rec *httptest.ResponseRecorder) gateway.AuthError {
	t.Helper()
	var ae gateway.AuthError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ae))
	return ae
}

func TestPasswordGrant(t *testing.T) {
	st := handlertest.New()
	u := st.AddUser("laura@mail.com", "secreto1", "Laura Gómez")
	h := newAuth(st)

	rec := call(t, h.Token, http.MethodPost, "/auth/v1/token?grant_type=password",
		`{"email":" Laura@Mail.com ","password":"secreto1"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var tr supabase.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tr))
	assert.Equal(t, "bearer", tr.TokenType)
	assert.Equal(t, 3600, tr.ExpiresIn)
	assert.Equal(t, u.ID, tr.User.ID)
	assert.Equal(t, "Laura Gómez", tr.User.Identity().FullName)
	assert.NotEmpty(t, tr.RefreshToken)

	claims, err := utils.ParseAccessToken(testCfg.JWTSecret, tr.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.Subject)
	assert.Equal(t, 1, st.LiveTokens(u.ID))
}

func TestPasswordGrantRejections(t *testing.T) {
	st := handlertest.New()
	u := st.AddUser("laura@mail.com", "secreto1", "")
	h := newAuth(st)

	for name, tc := range map[string]struct {
		body string
		code string
	}{
		"wrong password": {`{"email":"laura@mail.com","password":"nope"}`, gateway.CodeInvalidCredentials},
		"unknown email":  {`{"email":"nadie@mail.com","password":"secreto1"}`, gateway.CodeInvalidCredentials},
		"missing fields": {`{"email":"laura@mail.com"}`, codeValidation},
	} {
		t.Run(name, func(t *testing.T) {
			rec := call(t, h.Token, http.MethodPost, "/auth/v1/token?grant_type=password", tc.body, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tc.code, authErr(t, rec).Code)
		})
	}

	st.Suspend(u.ID)
	rec := call(t, h.Token, http.MethodPost, "/auth/v1/token?grant_type=password",
		`{"email":"laura@mail.com","password":"secreto1"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	ae := authErr(t, rec)
	assert.Equal(t, gateway.CodeAccountSuspended, ae.Code)
	assert.Equal(t, gateway.MsgAccountSuspended, ae.Message)
}

func TestSuspendedAdminStillSignsIn(t *testing.T) {
	st := handlertest.New()
	u := st.AddUser("root@miboda.co", "secreto1", "")
	st.SetAdmin(u.ID)
	st.Suspend(u.ID)

	rec := call(t, newAuth(st).Token, http.MethodPost, "/auth/v1/token?grant_type=password",
		`{"email":"root@miboda.co","password":"secreto1"}`, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRefreshGrantRotates(t *testing.T) {
	st := handlertest.New()
	u := st.AddUser("laura@mail.com", "secreto1", "")
	h := newAuth(st)

	rec := call(t, h.Token, http.MethodPost, "/auth/v1/token?grant_type=password",
		`{"email":"laura@mail.com","password":"secreto1"}`, "")
	var first supabase.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))

	body := `{"refresh_token":"` + first.RefreshToken + `"}`
	rec = call(t, h.Token, http.MethodPost, "/auth/v1/token?grant_type=refresh_token", body, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var second supabase.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.Equal(t, 1, st.LiveTokens(u.ID))

	rec = call(t, h.Token, http.MethodPost, "/auth/v1/token?grant_type=refresh_token", body, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "a rotated token is spent")
	assert.Equal(t, codeRefreshNotFound, authErr(t, rec).Code)
}

func TestUnsupportedGrant(t *testing.T) {
	rec := call(t, newAuth(handlertest.New()).Token, http.MethodPost, "/auth/v1/token?grant_type=magic", `{}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogoutAndUser(t *testing.T) {
	st := handlertest.New()
	u := st.AddUser("laura@mail.com", "secreto1", "Laura")
	h := newAuth(st)
	call(t, h.Token, http.MethodPost, "/auth/v1/token?grant_type=password",
		`{"email":"laura@mail.com","password":"secreto1"}`, "")

	rec := call(t, h.User, http.MethodGet, "/auth/v1/user", "", u.ID)
	require.Equal(t, http.StatusOK, rec.Code)
	var body supabase.UserBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, u.Email, body.Email)

	rec = call(t, h.Logout, http.MethodPost, "/auth/v1/logout", "", u.ID)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, st.LiveTokens(u.ID))
}
