package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/miboda/internal/gateway"
	"github.com/iliyamo/miboda/internal/middleware"
	"github.com/iliyamo/miboda/internal/model"
	"github.com/iliyamo/miboda/internal/repository"
)

// maxBodyBytes caps write bodies.
const maxBodyBytes = 1 << 20

// RestHandler serves the planner tables and procedures.
type RestHandler struct {
	Tables   Tables
	Roles    Roles
	Accounts Accounts
	Log      *slog.Logger
}

func NewRestHandler(t Tables, r Roles, a Accounts, log *slog.Logger) *RestHandler {
	return &RestHandler{Tables: t, Roles: r, Accounts: a, Log: log}
}

func (h *RestHandler) scope(ctx context.Context, c echo.Context) (repository.Scope, error) {
	uid := middleware.UserID(c)
	admin, err := h.Roles.IsAdmin(ctx, uid)
	if err != nil {
		return repository.Scope{}, err
	}
	return repository.Scope{UserID: uid, Admin: admin}, nil
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, &gateway.Error{Code: "PGRST100", Message: msg})
}

func prefers(c echo.Context, token string) bool {
	for _, v := range c.Request().Header.Values("Prefer") {
		for _, p := range strings.Split(v, ",") {
			if strings.TrimSpace(p) == token {
				return true
			}
		}
	}
	return false
}

// decodeBody reads a JSON object, or an array of objects when many is set.
func decodeBody(c echo.Context, many bool) ([]map[string]any, error) {
	raw, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if len(raw) > maxBodyBytes {
		return nil, fmt.Errorf("body exceeds %d bytes", maxBodyBytes)
	}
	raw = []byte(strings.TrimSpace(string(raw)))
	if many && len(raw) > 0 && raw[0] == '[' {
		var rows []map[string]any
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, fmt.Errorf("invalid JSON array: %w", err)
		}
		return rows, nil
	}
	var row map[string]any
	if err := json.Unmarshal(raw, &row); err != nil || row == nil {
		return nil, fmt.Errorf("expected a JSON object")
	}
	return []map[string]any{row}, nil
}

// Get lists rows. Content-Range carries the returned range.
func (h *RestHandler) Get(c echo.Context) error {
	q, err := gateway.ParseQuery(c.QueryParams())
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	s, err := h.scope(ctx, c)
	if err != nil {
		return dataFail(c, h.Log, err)
	}
	rows, err := h.Tables.Select(ctx, s, c.Param("table"), q)
	if err != nil {
		return dataFail(c, h.Log, err)
	}
	rng := "*/*"
	if len(rows) > 0 {
		rng = fmt.Sprintf("0-%d/*", len(rows)-1)
	}
	c.Response().Header().Set("Content-Range", rng)
	return c.JSON(http.StatusOK, rows)
}

// Head counts rows and answers Content-Range: */N.
func (h *RestHandler) Head(c echo.Context) error {
	q, err := gateway.ParseQuery(c.QueryParams())
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	s, err := h.scope(ctx, c)
	if err != nil {
		return dataFail(c, h.Log, err)
	}
	n, err := h.Tables.Count(ctx, s, c.Param("table"), q)
	if err != nil {
		return dataFail(c, h.Log, err)
	}
	c.Response().Header().Set("Content-Range", fmt.Sprintf("*/%d", n))
	return c.NoContent(http.StatusOK)
}

// Post inserts one row or an array of rows. With Prefer:
// return=representation the stored rows are returned.
func (h *RestHandler) Post(c echo.Context) error {
	rows, err := decodeBody(c, true)
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	s, err := h.scope(ctx, c)
	if err != nil {
		return dataFail(c, h.Log, err)
	}
	returning := prefers(c, "return=representation")
	stored, err := h.Tables.Insert(ctx, s, c.Param("table"), rows, returning)
	if err != nil {
		return dataFail(c, h.Log, err)
	}
	if !returning {
		return c.NoContent(http.StatusCreated)
	}
	return c.JSON(http.StatusCreated, stored)
}

// Patch updates the matching rows. Admin changes to user_profiles.is_active
// go through Accounts so the change is announced and suspended users lose
// their refresh tokens.
func (h *RestHandler) Patch(c echo.Context) error {
	q, err := gateway.ParseQuery(c.QueryParams())
	if err != nil {
		return badRequest(c, err.Error())
	}
	rows, err := decodeBody(c, false)
	if err != nil {
		return badRequest(c, err.Error())
	}
	patch := rows[0]
	table := c.Param("table")

	ctx, cancel := withTimeout(c)
	defer cancel()
	s, err := h.scope(ctx, c)
	if err != nil {
		return dataFail(c, h.Log, err)
	}

	active, statusChange := patch["is_active"].(bool)
	statusChange = statusChange && table == gateway.TableUserProfiles && s.Admin
	var targets []map[string]any
	if statusChange && len(q.Filters) > 0 {
		targets, err = h.Tables.Select(ctx, s, table, gateway.Query{Columns: "user_id,email", Filters: q.Filters})
		if err != nil {
			return dataFail(c, h.Log, err)
		}
	}

	if _, err := h.Tables.Update(ctx, s, table, q, patch); err != nil {
		return dataFail(c, h.Log, err)
	}
	for _, t := range targets {
		uid, _ := t["user_id"].(string)
		email, _ := t["email"].(string)
		if err := h.Accounts.SetActive(ctx, s.UserID, uid, email, active); err != nil {
			h.Log.Error("rest: status follow-up failed", "user_id", uid, "err", err)
		}
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete removes the caller's matching rows.
func (h *RestHandler) Delete(c echo.Context) error {
	q, err := gateway.ParseQuery(c.QueryParams())
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	s, err := h.scope(ctx, c)
	if err != nil {
		return dataFail(c, h.Log, err)
	}
	if _, err := h.Tables.Delete(ctx, s, c.Param("table"), q); err != nil {
		return dataFail(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// RPC runs the role procedures. A caller may ask about itself; admins may
// ask about anyone.
func (h *RestHandler) RPC(c echo.Context) error {
	fn := c.Param("fn")
	if fn != gateway.RPCIsAdmin && fn != gateway.RPCGetUserRole {
		return c.JSON(http.StatusNotFound, &gateway.Error{
			Code:    "PGRST202",
			Message: fmt.Sprintf("Could not find the function public.%s", fn),
		})
	}
	var args gateway.UserArgs
	if err := c.Bind(&args); err != nil {
		return badRequest(c, "invalid arguments")
	}
	uid := middleware.UserID(c)
	target := args.UserUUID
	if target == "" {
		target = uid
	}

	ctx, cancel := withTimeout(c)
	defer cancel()
	if target != uid {
		admin, err := h.Roles.IsAdmin(ctx, uid)
		if err != nil {
			return dataFail(c, h.Log, err)
		}
		if !admin {
			return dataFail(c, h.Log, repository.ErrForbidden)
		}
	}
	role, err := h.Roles.Role(ctx, target)
	if err != nil {
		return dataFail(c, h.Log, err)
	}
	if fn == gateway.RPCIsAdmin {
		return c.JSON(http.StatusOK, role == model.RoleAdmin)
	}
	return c.JSON(http.StatusOK, role)
}
