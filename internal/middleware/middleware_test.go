package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/miboda/internal/config"
	"github.com/iliyamo/miboda/internal/utils"
)

const secret = "test-secret"

func serve(e *echo.Echo, method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func whoami(c echo.Context) error { return c.String(http.StatusOK, UserID(c)) }

func bearer(t *testing.T, userID string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, userID, userID+"@mail.com", "user", 5, time.Now())
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func TestAPIKeyAndJWT(t *testing.T) {
	e := echo.New()
	e.GET("/rest", whoami, APIKey("anon", DataDeny), JWTAuth(secret, DataDeny))

	rec := serve(e, http.MethodGet, "/rest", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(e, http.MethodGet, "/rest", http.Header{"Apikey": {"anon"}, "Authorization": {"Bearer anon"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "the anon key is not a session")
	assert.Contains(t, rec.Body.String(), "PGRST301")

	rec = serve(e, http.MethodGet, "/rest", http.Header{"Apikey": {"anon"}, "Authorization": {bearer(t, "u-1")}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u-1", rec.Body.String())
}

func TestDenyShapes(t *testing.T) {
	e := echo.New()
	e.GET("/auth", whoami, JWTAuth(secret, AuthDeny))
	e.GET("/fn", whoami, JWTAuth(secret, FunctionDeny))

	rec := serve(e, http.MethodGet, "/auth", nil)
	assert.JSONEq(t, `{"error_code":"bad_jwt","msg":"missing bearer token"}`, rec.Body.String())
	rec = serve(e, http.MethodGet, "/fn", nil)
	assert.JSONEq(t, `{"error":"No autorizado"}`, rec.Body.String())
	rec = serve(e, http.MethodGet, "/fn", http.Header{"Authorization": {"Bearer not-a-jwt"}})
	assert.JSONEq(t, `{"error":"Token inválido"}`, rec.Body.String())
}

type roles map[string]bool

func (r roles) IsAdmin(_ context.Context, id string) (bool, error) {
	if id == "broken" {
		return false, errors.New("db down")
	}
	return r[id], nil
}

func TestRequireAdmin(t *testing.T) {
	e := echo.New()
	e.GET("/fn", whoami, JWTAuth(secret, FunctionDeny), RequireAdmin(roles{"root": true}, FunctionDeny))

	for id, want := range map[string]int{"root": http.StatusOK, "ana": http.StatusForbidden, "broken": http.StatusInternalServerError} {
		rec := serve(e, http.MethodGet, "/fn", http.Header{"Authorization": {bearer(t, id)}})
		assert.Equal(t, want, rec.Code, id)
	}
	rec := serve(e, http.MethodGet, "/fn", http.Header{"Authorization": {bearer(t, "ana")}})
	assert.JSONEq(t, `{"error":"No eres administrador"}`, rec.Body.String())
}

func TestRateLimitWithoutRedisPasses(t *testing.T) {
	e := echo.New()
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Minute, TTL: time.Hour}
	e.POST("/token", whoami, RateLimit(cfg, nil, slog.New(slog.NewTextHandler(io.Discard, nil))))
	for range 3 {
		assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/token", nil).Code)
	}
}

func TestRateKeyStrategies(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/auth/v1/token", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.7")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/auth/v1/token")

	cfg := config.RateLimitConfig{Prefix: "miboda:rl"}
	for strategy, want := range map[string]string{
		"ip":       "miboda:rl:ip:10.0.0.7",
		"user":     "miboda:rl:user:anon",
		"route":    "miboda:rl:route:POST /auth/v1/token",
		"ip_route": "miboda:rl:ip:10.0.0.7:route:POST /auth/v1/token",
		"":         "miboda:rl:ip:10.0.0.7:user:anon:route:POST /auth/v1/token",
	} {
		cfg.KeyStrategy = strategy
		assert.Equal(t, want, rateKey(cfg, c), strategy)
	}

	c.Set(KeyUserID, "u-1")
	cfg.KeyStrategy = "ip_user"
	assert.Equal(t, "miboda:rl:ip:10.0.0.7:user:u-1", rateKey(cfg, c))
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	e := echo.New()
	e.Use(RequestLogger(log))
	e.GET("/ok", whoami)
	e.GET("/fail", func(echo.Context) error { return echo.NewHTTPError(http.StatusTeapot) })

	serve(e, http.MethodGet, "/ok", nil)
	rec := serve(e, http.MethodGet, "/fail", nil)
	assert.Equal(t, http.StatusTeapot, rec.Code)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "level=INFO")
	assert.Contains(t, lines[0], "path=/ok")
	assert.Contains(t, lines[1], "level=WARN")
	assert.Contains(t, lines[1], "status=418")
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/metrics", echo.WrapHandler(m.Handler()))
	e.GET("/rest/v1/:table", whoami)

	serve(e, http.MethodGet, "/rest/v1/tasks", nil)
	serve(e, http.MethodGet, "/rest/v1/budgets", nil)

	body := serve(e, http.MethodGet, "/metrics", nil).Body.String()
	assert.Contains(t, body, `miboda_http_requests_total{method="GET",path="/rest/v1/:table",status="200"} 2`)
	assert.Contains(t, body, "miboda_http_inflight_requests 0")
}
