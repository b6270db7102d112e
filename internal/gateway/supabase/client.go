// Package supabase is the HTTP implementation of the gateway: GoTrue-style
// password auth under /auth/v1, PostgREST-style tables and procedures under
// /rest/v1 and functions under /functions/v1. The miboda server speaks the
// same protocol.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/miboda/internal/gateway"
)

const (
	maxResponseBytes  = 8 << 20  // 8 MiB
	maxErrorBodyBytes = 32 << 10 // 32 KiB
)

// Config for New.
type Config struct {
	URL     string
	AnonKey string
	// Storage persists the session between runs. Defaults to memory.
	Storage    Storage
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client implements gateway.Backend over HTTP. It is safe for concurrent use.
type Client struct {
	base    string
	anonKey string
	http    *http.Client
	storage Storage
	log     *slog.Logger
	now     func() time.Time

	mu        sync.Mutex
	session   *gateway.Session
	loaded    bool
	listeners map[int]func(gateway.AuthEvent)
	nextID    int
	refresh   sync.Mutex
}

var _ gateway.Backend = (*Client)(nil)

func New(cfg Config) (*Client, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("supabase: invalid URL %q", cfg.URL)
	}
	if cfg.AnonKey == "" {
		return nil, errors.New("supabase: anon key is required")
	}
	c := &Client{
		base:      strings.TrimRight(cfg.URL, "/"),
		anonKey:   cfg.AnonKey,
		http:      cfg.HTTPClient,
		storage:   cfg.Storage,
		log:       cfg.Logger,
		now:       time.Now,
		listeners: map[int]func(gateway.AuthEvent){},
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 30 * time.Second}
	}
	if c.storage == nil {
		c.storage = &MemoryStorage{}
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	return c, nil
}

// request issues method against path and decodes a 2xx JSON body into out.
// Non-2xx bodies are decoded by decodeErr.
func (c *Client) request(ctx context.Context, method, path string, q url.Values, body any, header http.Header,
	decodeErr func(status int, raw []byte) error) (*http.Response, []byte, error) {
	target := c.base + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return resp, nil, decodeErr(resp.StatusCode, raw)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return resp, nil, fmt.Errorf("read response: %w", err)
	}
	if len(raw) > maxResponseBytes {
		return resp, nil, fmt.Errorf("response exceeds %d bytes", maxResponseBytes)
	}
	return resp, raw, nil
}

// dataError decodes a table, procedure or function error body. Functions
// answer {"error": "..."}; tables answer {code, message, details, hint}.
func dataError(status int, raw []byte) error {
	ge := &gateway.Error{Status: status}
	var body struct {
		gateway.Error
		Err string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		ge.Code, ge.Message, ge.Details, ge.Hint = body.Code, body.Message, body.Details, body.Hint
		if ge.Message == "" {
			ge.Message = body.Err
		}
	}
	if ge.Message == "" {
		ge.Message = strings.TrimSpace(string(raw))
	}
	return ge
}

// authHeader returns the bearer for data calls: the session token when
// signed in, the anon key otherwise.
func (c *Client) authHeader(ctx context.Context) (http.Header, error) {
	sess, err := c.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	token := c.anonKey
	if sess != nil {
		token = sess.AccessToken
	}
	return http.Header{"Authorization": {"Bearer " + token}}, nil
}

func (c *Client) data(ctx context.Context, method, path string, q url.Values, body any, prefer string) (*http.Response, []byte, error) {
	h, err := c.authHeader(ctx)
	if err != nil {
		return nil, nil, err
	}
	if prefer != "" {
		h.Set("Prefer", prefer)
	}
	return c.request(ctx, method, path, q, body, h, dataError)
}

func decodeInto(raw []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) Select(ctx context.Context, table string, q gateway.Query, out any) error {
	_, raw, err := c.data(ctx, http.MethodGet, "/rest/v1/"+table, q.Encode(), nil, "")
	if err != nil {
		return err
	}
	return decodeInto(raw, out)
}

func (c *Client) Insert(ctx context.Context, table string, row any, out any) error {
	prefer := "return=minimal"
	if out != nil {
		prefer = "return=representation"
	}
	_, raw, err := c.data(ctx, http.MethodPost, "/rest/v1/"+table, nil, row, prefer)
	if err != nil {
		return err
	}
	return decodeInto(raw, out)
}

func (c *Client) Update(ctx context.Context, table string, q gateway.Query, patch any) error {
	_, _, err := c.data(ctx, http.MethodPatch, "/rest/v1/"+table, filtersOnly(q), patch, "return=minimal")
	return err
}

func (c *Client) Delete(ctx context.Context, table string, q gateway.Query) error {
	_, _, err := c.data(ctx, http.MethodDelete, "/rest/v1/"+table, filtersOnly(q), nil, "return=minimal")
	return err
}

// Count issues a HEAD request and reads the total from Content-Range.
func (c *Client) Count(ctx context.Context, table string, q gateway.Query) (int, error) {
	resp, _, err := c.data(ctx, http.MethodHead, "/rest/v1/"+table, filtersOnly(q), nil, "count=exact")
	if err != nil {
		return 0, err
	}
	return parseContentRange(resp.Header.Get("Content-Range"))
}

// parseContentRange reads N from "*/N" or "0-9/N".
func parseContentRange(v string) (int, error) {
	_, total, ok := strings.Cut(v, "/")
	if !ok {
		return 0, fmt.Errorf("supabase: malformed Content-Range %q", v)
	}
	n, err := strconv.Atoi(total)
	if err != nil {
		return 0, fmt.Errorf("supabase: malformed Content-Range %q", v)
	}
	return n, nil
}

func (c *Client) RPC(ctx context.Context, fn string, args any, out any) error {
	if args == nil {
		args = map[string]any{}
	}
	_, raw, err := c.data(ctx, http.MethodPost, "/rest/v1/rpc/"+fn, nil, args, "")
	if err != nil {
		return err
	}
	return decodeInto(raw, out)
}

func (c *Client) Invoke(ctx context.Context, function string, body any, out any) error {
	_, raw, err := c.data(ctx, http.MethodPost, "/functions/v1/"+function, nil, body, "")
	if err != nil {
		return err
	}
	return decodeInto(raw, out)
}

// filtersOnly drops select, order and limit, which writes and counts do not
// take.
func filtersOnly(q gateway.Query) url.Values {
	return gateway.Query{Filters: q.Filters}.Encode()
}
