// Package planner holds the data operations behind every planner screen:
// budgets, transactions, tasks, providers, the wedding profile, the day
// schedule and the admin area. Reads go through a shared cache keyed by the
// signed-in identity; writes validate locally, invalidate the affected
// entities and post a notice on failure.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iliyamo/miboda/internal/gateway"
	"github.com/iliyamo/miboda/internal/notice"
	"github.com/iliyamo/miboda/internal/query"
	"github.com/iliyamo/miboda/internal/session"
	"github.com/iliyamo/miboda/internal/validate"
)

// Cache entities.
const (
	EntityBudgets        = "budgets"
	EntityTransactions   = "transactions"
	EntityTasks          = "tasks"
	EntityProviders      = "providers"
	EntityWeddingProfile = "wedding_profile"
	EntitySchedule       = "day_schedule"
	EntityAdminUsers     = "admin.users"
	EntityAdminStats     = "admin.stats"
	entityAdminUser      = "admin.user:"
)

var (
	// ErrDisabled is returned by reads when nobody is signed in. No remote
	// call is made.
	ErrDisabled = errors.New("planner: no signed-in identity")
	// ErrUnauthenticated is returned by writes when nobody is signed in.
	ErrUnauthenticated = errors.New("Usuario no autenticado")
	ErrNotAdmin        = errors.New("No tienes permisos de administrador")
	ErrNoSession       = errors.New("No hay sesión activa")
	// ErrConflict wraps a unique violation that persisted after retrying
	// through the update path.
	ErrConflict = errors.New("planner: concurrent write conflict")
)

// ValidationError is the first failing field of a form.
type ValidationError = validate.FieldError

// IdentitySource exposes the signed-in identity; *session.Store implements it.
type IdentitySource interface {
	Snapshot() session.Snapshot
}

// Client runs planner operations for whoever IdentitySource reports.
type Client struct {
	data     gateway.Data
	ident    IdentitySource
	cache    *query.Cache
	notifier notice.Notifier
	log      *slog.Logger
	now      func() time.Time
}

type Option func(*Client)

// WithCache shares c between clients.
func WithCache(c *query.Cache) Option { return func(cl *Client) { cl.cache = c } }

func WithNotifier(n notice.Notifier) Option { return func(cl *Client) { cl.notifier = n } }

func WithLogger(l *slog.Logger) Option { return func(cl *Client) { cl.log = l } }

// WithClock overrides time.Now for date arithmetic.
func WithClock(now func() time.Time) Option { return func(cl *Client) { cl.now = now } }

func New(data gateway.Data, ident IdentitySource, opts ...Option) *Client {
	c := &Client{
		data:     data,
		ident:    ident,
		notifier: notice.Discard{},
		log:      slog.Default(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	if c.cache == nil {
		c.cache = query.New()
	}
	return c
}

// Forget drops every cached read of userID.
func (c *Client) Forget(userID string) { c.cache.Clear(userID) }

// Cached returns the last successful read of entity for the current
// identity without loading.
func Cached[T any](c *Client, entity string) (T, bool) {
	return query.Peek[T](c.cache, query.Key{Entity: entity, Owner: c.ident.Snapshot().UserID()})
}

// read serves entity for the current identity through the cache.
func read[T any](ctx context.Context, c *Client, entity string, load func(ctx context.Context, owner string) (T, error)) (T, error) {
	owner := c.ident.Snapshot().UserID()
	if owner == "" {
		var zero T
		return zero, ErrDisabled
	}
	return query.Fetch(ctx, c.cache, query.Key{Entity: entity, Owner: owner}, func(ctx context.Context) (T, error) {
		return load(ctx, owner)
	})
}

// caller returns the identity a write acts for.
func (c *Client) caller() (string, error) {
	if id := c.ident.Snapshot().UserID(); id != "" {
		return id, nil
	}
	return "", ErrUnauthenticated
}

func (c *Client) requireAdmin() (string, error) {
	snap := c.ident.Snapshot()
	if snap.Identity == nil {
		return "", ErrUnauthenticated
	}
	if !snap.IsAdmin {
		return "", ErrNotAdmin
	}
	return snap.Identity.ID, nil
}

// fail posts "<prefix>: <message>" and returns err unchanged.
func (c *Client) fail(prefix string, err error) error {
	c.log.Warn("planner: write failed", "op", prefix, "err", err)
	notice.Errorf(c.notifier, "%s: %s", prefix, gateway.Message(err))
	return err
}

func (c *Client) ok(msg string) {
	c.notifier.Notify(notice.Notice{Level: notice.Success, Message: msg})
}

func (c *Client) invalidate(entities ...string) {
	for _, e := range entities {
		c.cache.Invalidate(e)
	}
}

type rowRef struct {
	ID          string  `json:"id"`
	SpentAmount float64 `json:"spent_amount"`
}

// upsert updates the row matching match or inserts a new one. A unique
// violation on insert means another writer created the row first; the
// update path is tried once more before giving up with ErrConflict.
func (c *Client) upsert(ctx context.Context, table string, match gateway.Query, cols string,
	update func(existing rowRef) any, insert func() any) error {
	for attempt := 0; ; attempt++ {
		existing, err := gateway.MaybeSingle[rowRef](ctx, c.data, table, match.Select(cols))
		if err != nil {
			return err
		}
		if existing != nil {
			return c.data.Update(ctx, table, gateway.Q().Eq("id", existing.ID), update(*existing))
		}
		err = c.data.Insert(ctx, table, insert(), nil)
		if err == nil {
			return nil
		}
		if !gateway.IsConflict(err) {
			return err
		}
		if attempt > 0 {
			return fmt.Errorf("%w: %w", ErrConflict, err)
		}
		c.log.Debug("planner: insert raced, retrying as update", "table", table)
	}
}

// optional maps "" to nil so empty form fields are stored as NULL.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
