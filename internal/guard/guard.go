// Package guard decides whether a protected route may render. It follows the
// session store and, for non-admin identities, re-checks the account's
// active flag on a fixed interval so a suspended account loses access
// without a remount.
package guard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/iliyamo/miboda/internal/notice"
	"github.com/iliyamo/miboda/internal/session"
)

// State of the route guard.
type State int

const (
	InitialLoading State = iota
	Unauthenticated
	CheckingStatus
	Authorized
	Suspended
)

func (s State) String() string {
	switch s {
	case InitialLoading:
		return "INITIAL_LOADING"
	case Unauthenticated:
		return "UNAUTHENTICATED"
	case CheckingStatus:
		return "CHECKING_STATUS"
	case Authorized:
		return "AUTHORIZED"
	case Suspended:
		return "SUSPENDED"
	}
	return "UNKNOWN"
}

// Kind is what the protected view should do.
type Kind int

const (
	Placeholder Kind = iota
	Render
	Redirect
)

func (k Kind) String() string {
	switch k {
	case Render:
		return "render"
	case Redirect:
		return "redirect"
	}
	return "placeholder"
}

// Decision is the rendering outcome for the current state. From carries the
// originally requested location on redirects to sign-in.
type Decision struct {
	Kind   Kind
	To     string
	From   string
	Notice *notice.Notice
}

const (
	SignInRoute     = "/auth"
	HomeRoute       = "/"
	DefaultInterval = 30 * time.Second
)

// Session is the part of the session store a guard reads.
type Session interface {
	Snapshot() session.Snapshot
	Subscribe() (<-chan struct{}, func())
	SignOut(ctx context.Context) error
}

// StatusChecker reports whether an account is active.
type StatusChecker interface {
	IsActive(ctx context.Context, userID string) (bool, error)
}

// Guard is one activation scope of a protected route.
type Guard struct {
	sess     Session
	checker  StatusChecker
	notifier notice.Notifier
	interval time.Duration
	signIn   string
	log      *slog.Logger

	mu       sync.Mutex
	state    State
	location string
	userID   string
	checked  bool
	polling  bool
	changes  chan struct{}

	cancel context.CancelFunc
	done   chan struct{}
}

type Option func(*Guard)

// WithInterval overrides the re-check period.
func WithInterval(d time.Duration) Option { return func(g *Guard) { g.interval = d } }

func WithNotifier(n notice.Notifier) Option { return func(g *Guard) { g.notifier = n } }

func WithLogger(l *slog.Logger) Option { return func(g *Guard) { g.log = l } }

// WithSignInRoute overrides the redirect target for signed-out users.
func WithSignInRoute(route string) Option { return func(g *Guard) { g.signIn = route } }

func New(sess Session, checker StatusChecker, opts ...Option) *Guard {
	g := &Guard{
		sess:     sess,
		checker:  checker,
		notifier: notice.Discard{},
		interval: DefaultInterval,
		signIn:   SignInRoute,
		log:      slog.Default(),
		changes:  make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Activate mounts the guard on location. It returns immediately; the guard
// keeps following the session until Deactivate or ctx is done.
func (g *Guard) Activate(ctx context.Context, location string) {
	g.Deactivate()

	ctx, cancel := context.WithCancel(ctx)
	changes, unsubscribe := g.sess.Subscribe()
	done := make(chan struct{})

	g.mu.Lock()
	g.state = InitialLoading
	g.location = location
	g.userID = ""
	g.checked = false
	g.polling = false
	g.cancel = cancel
	g.done = done
	g.mu.Unlock()

	go func() {
		defer close(done)
		defer unsubscribe()
		g.run(ctx, changes)
	}()
}

// Deactivate unmounts the guard and stops the re-check timer. It is safe to
// call on an inactive guard.
func (g *Guard) Deactivate() {
	g.mu.Lock()
	cancel, done := g.cancel, g.done
	g.cancel, g.done = nil, nil
	g.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// State returns the current state.
func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Polling reports whether the re-check timer is running.
func (g *Guard) Polling() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.polling
}

// Changes signals after every state transition. Signals coalesce.
func (g *Guard) Changes() <-chan struct{} { return g.changes }

// Decision maps the current state to a rendering outcome.
func (g *Guard) Decision() Decision {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.decisionLocked()
}

func (g *Guard) decisionLocked() Decision {
	switch g.state {
	case Authorized:
		return Decision{Kind: Render}
	case Unauthenticated:
		return Decision{Kind: Redirect, To: g.signIn, From: g.location}
	case Suspended:
		n := suspensionNotice()
		return Decision{Kind: Redirect, To: g.signIn, From: g.location, Notice: &n}
	}
	return Decision{Kind: Placeholder}
}

// Wait blocks until the guard leaves the placeholder states and returns the
// decision.
func (g *Guard) Wait(ctx context.Context) (Decision, error) {
	for {
		d := g.Decision()
		if d.Kind != Placeholder {
			return d, nil
		}
		select {
		case <-g.changes:
		case <-ctx.Done():
			return Decision{}, ctx.Err()
		}
	}
}

func suspensionNotice() notice.Notice {
	return notice.Notice{Level: notice.Error, Title: session.TitleSuspended, Message: session.MessageSuspended}
}

func (g *Guard) setState(s State) {
	g.mu.Lock()
	changed := g.state != s
	g.state = s
	g.mu.Unlock()
	if changed {
		select {
		case g.changes <- struct{}{}:
		default:
		}
	}
}

func (g *Guard) run(ctx context.Context, changes <-chan struct{}) {
	var ticker *time.Ticker
	var tick <-chan time.Time
	syncTicker := func() {
		g.mu.Lock()
		want := g.polling
		g.mu.Unlock()
		switch {
		case want && ticker == nil:
			ticker = time.NewTicker(g.interval)
			tick = ticker.C
		case !want && ticker != nil:
			ticker.Stop()
			ticker, tick = nil, nil
		}
	}
	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
		g.mu.Lock()
		g.polling = false
		g.mu.Unlock()
	}()

	g.evaluate(ctx)
	syncTicker()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			g.evaluate(ctx)
		case <-tick:
			g.poll(ctx)
		}
		syncTicker()
	}
}

// evaluate applies the transition rules to the latest session snapshot.
func (g *Guard) evaluate(ctx context.Context) {
	snap := g.sess.Snapshot()
	if snap.LoadingInitial {
		g.setState(InitialLoading)
		return
	}

	g.mu.Lock()
	current := g.state
	if snap.Identity == nil {
		g.userID = ""
		g.checked = false
		g.polling = false
		g.mu.Unlock()
		if current != Suspended {
			g.setState(Unauthenticated)
		}
		return
	}
	if snap.Identity.ID != g.userID {
		// A different identity restarts the machine.
		g.userID = snap.Identity.ID
		g.checked = false
		g.polling = false
	}
	checked := g.checked
	g.mu.Unlock()

	if !snap.Resolved {
		g.setState(CheckingStatus)
		return
	}
	if snap.IsAdmin {
		g.mu.Lock()
		g.polling = false
		g.mu.Unlock()
		g.setState(Authorized)
		return
	}
	if checked {
		return
	}
	g.setState(CheckingStatus)
	g.check(ctx, snap.Identity.ID, false)
}

func (g *Guard) poll(ctx context.Context) {
	g.mu.Lock()
	userID, ok := g.userID, g.state == Authorized && g.checked
	g.mu.Unlock()
	if !ok {
		return
	}
	g.check(ctx, userID, true)
}

// check asks the backend whether userID is active. Errors keep the account
// authorized; only an explicit false suspends.
func (g *Guard) check(ctx context.Context, userID string, background bool) {
	active, err := g.checker.IsActive(ctx, userID)
	if ctx.Err() != nil {
		return
	}
	if snap := g.sess.Snapshot(); snap.UserID() != userID {
		return
	}
	if err != nil {
		g.log.Warn("guard: status check failed", "user_id", userID, "background", background, "err", err)
		active = true
	}
	if !active {
		g.suspend(ctx, userID)
		return
	}
	g.mu.Lock()
	g.checked = true
	g.polling = true
	g.mu.Unlock()
	g.setState(Authorized)
}

func (g *Guard) suspend(ctx context.Context, userID string) {
	g.mu.Lock()
	g.polling = false
	g.checked = false
	g.mu.Unlock()
	g.log.Info("guard: account suspended", "user_id", userID)
	if err := g.sess.SignOut(ctx); err != nil {
		g.log.Warn("guard: sign out failed", "user_id", userID, "err", err)
	}
	g.notifier.Notify(suspensionNotice())
	g.setState(Suspended)
}
