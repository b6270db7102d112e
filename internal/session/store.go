// Package session owns the signed-in identity, its token and the two facts
// derived from it: whether the identity is an administrator and its
// user_profiles row.
//
// A Store is built once at the application root, started with Initialize
// and stopped with Dispose. Every auth event updates identity and token
// synchronously; the derived lookups run afterwards in a goroutine keyed by
// a generation counter so a stale lookup never overwrites newer state.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/iliyamo/miboda/internal/gateway"
	"github.com/iliyamo/miboda/internal/model"
	"github.com/iliyamo/miboda/internal/validate"
)

// Snapshot is a copy of the store state.
type Snapshot struct {
	Identity       *model.Identity
	Token          string
	LoadingInitial bool
	IsAdmin        bool
	Profile        *model.UserProfile
	// Resolved is true once the derived lookups for Identity have finished,
	// successfully or not. It is always true when Identity is nil.
	Resolved bool
}

// UserID returns the identity id or "".
func (s Snapshot) UserID() string {
	if s.Identity == nil {
		return ""
	}
	return s.Identity.ID
}

// Store is safe for concurrent use.
type Store struct {
	auth    gateway.Auth
	data    gateway.Data
	log     *slog.Logger
	timeout time.Duration

	mu          sync.Mutex
	snap        Snapshot
	gen         uint64
	cancel      context.CancelFunc
	initialDone bool
	subs        map[int]chan struct{}
	nextSub     int
	unsubscribe func()
	disposed    bool

	base context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup
}

type Option func(*Store)

// WithLogger sets the logger used for fail-open lookups.
func WithLogger(l *slog.Logger) Option { return func(s *Store) { s.log = l } }

// WithLookupTimeout bounds each derived lookup. Default 10s.
func WithLookupTimeout(d time.Duration) Option { return func(s *Store) { s.timeout = d } }

func New(auth gateway.Auth, data gateway.Data, opts ...Option) *Store {
	base, stop := context.WithCancel(context.Background())
	s := &Store{
		auth:    auth,
		data:    data,
		log:     slog.Default(),
		timeout: 10 * time.Second,
		snap:    Snapshot{LoadingInitial: true},
		subs:    map[int]chan struct{}{},
		base:    base,
		stop:    stop,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Initialize subscribes to auth events and then loads the current session.
// An event that fires while the session is being fetched takes precedence
// over the fetched value.
func (s *Store) Initialize(ctx context.Context) error {
	unsub := s.auth.OnAuthStateChange(s.handleEvent)
	s.mu.Lock()
	s.unsubscribe = unsub
	s.mu.Unlock()

	sess, err := s.auth.GetSession(ctx)
	if err != nil {
		s.log.Warn("session: get session failed", "err", err)
		s.mu.Lock()
		if !s.initialDone {
			s.initialDone = true
			s.snap.LoadingInitial = false
			s.snap.Resolved = s.snap.Identity == nil
		}
		s.mu.Unlock()
		s.notify()
		return err
	}

	s.apply(sess, true)
	return nil
}

// Dispose stops listening for auth events, cancels pending lookups and
// closes subscriber channels. The store must not be used afterwards.
func (s *Store) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	unsub := s.unsubscribe
	s.unsubscribe = nil
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	s.stop()
	s.wg.Wait()

	s.mu.Lock()
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
	s.mu.Unlock()
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked()
}

func (s *Store) copyLocked() Snapshot {
	out := s.snap
	if s.snap.Identity != nil {
		id := *s.snap.Identity
		out.Identity = &id
	}
	if s.snap.Profile != nil {
		p := *s.snap.Profile
		out.Profile = &p
	}
	return out
}

// Subscribe returns a channel that receives a value after each state change.
// Notifications coalesce: a slow reader sees at least one value after the
// latest change. cancel releases the subscription.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()
	return ch, func() {
		s.mu.Lock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
		s.mu.Unlock()
	}
}

func (s *Store) notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (s *Store) handleEvent(ev gateway.AuthEvent) {
	s.apply(ev.Session, false)
}

// apply installs sess as the current session. Identity and token change
// synchronously; derived fields are refreshed by a background lookup.
func (s *Store) apply(sess *gateway.Session, fromFetch bool) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	if fromFetch && s.initialDone {
		// An auth event already delivered fresher state.
		s.mu.Unlock()
		return
	}
	s.initialDone = true
	s.snap.LoadingInitial = false

	if sess == nil {
		s.gen++
		if s.cancel != nil {
			s.cancel()
			s.cancel = nil
		}
		s.snap.Identity = nil
		s.snap.Token = ""
		s.snap.IsAdmin = false
		s.snap.Profile = nil
		s.snap.Resolved = true
		s.mu.Unlock()
		s.notify()
		return
	}

	id := sess.User
	same := s.snap.Identity != nil && s.snap.Identity.ID == id.ID
	s.snap.Identity = &id
	s.snap.Token = sess.AccessToken
	if !same {
		s.snap.IsAdmin = false
		s.snap.Profile = nil
		s.snap.Resolved = false
	}
	gen, ctx := s.nextLookupLocked()
	s.mu.Unlock()
	s.notify()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.lookup(ctx, gen, id.ID)
	}()
}

// nextLookupLocked supersedes any running lookup and returns the generation
// and context for a new one.
func (s *Store) nextLookupLocked() (uint64, context.Context) {
	s.gen++
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithTimeout(s.base, s.timeout)
	s.cancel = cancel
	return s.gen, ctx
}

// lookup runs the admin check and profile fetch for userID and publishes the
// result if gen is still current. Both fail open.
func (s *Store) lookup(ctx context.Context, gen uint64, userID string) {
	admin := s.fetchAdmin(ctx, userID)
	profile := s.fetchProfile(ctx, userID)

	s.mu.Lock()
	if s.gen != gen || s.snap.Identity == nil || s.snap.Identity.ID != userID {
		s.mu.Unlock()
		return
	}
	s.snap.IsAdmin = admin
	s.snap.Profile = profile
	s.snap.Resolved = true
	s.mu.Unlock()
	s.notify()
}

func (s *Store) fetchAdmin(ctx context.Context, userID string) bool {
	var admin bool
	if err := s.data.RPC(ctx, gateway.RPCIsAdmin, gateway.UserArgs{UserUUID: userID}, &admin); err != nil {
		s.logLookup(ctx, "session: admin check failed", userID, err)
		return false
	}
	return admin
}

func (s *Store) fetchProfile(ctx context.Context, userID string) *model.UserProfile {
	p, err := gateway.MaybeSingle[model.UserProfile](ctx, s.data, gateway.TableUserProfiles, gateway.Q().Eq("user_id", userID))
	if err != nil {
		s.logLookup(ctx, "session: profile fetch failed", userID, err)
		return nil
	}
	return p
}

func (s *Store) logLookup(ctx context.Context, msg, userID string, err error) {
	if ctx.Err() != nil {
		// superseded or disposed
		s.log.Debug(msg, "user_id", userID, "err", err)
		return
	}
	s.log.Warn(msg, "user_id", userID, "err", err)
}

// Credentials is the sign-in form.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// SignIn validates the form locally, then signs in through the gateway.
// A non-admin whose profile is inactive is signed out again and reported
// as AccountSuspended. Errors are *validate.FieldError or *AuthError.
func (s *Store) SignIn(ctx context.Context, email, password string) error {
	if err := validate.Struct(Credentials{Email: email, Password: password}); err != nil {
		return err
	}
	sess, err := s.auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		return classify(err)
	}
	userID := sess.User.ID
	if s.fetchAdmin(ctx, userID) {
		return nil
	}
	if p := s.fetchProfile(ctx, userID); p != nil && !p.IsActive {
		if err := s.SignOut(ctx); err != nil {
			s.log.Warn("session: sign out of suspended account failed", "err", err)
		}
		return suspended(nil)
	}
	return nil
}

// SignOut clears the derived fields first, then signs out remotely. The
// identity is cleared even when the remote call fails. Until it is, the
// snapshot reads as unresolved so no guard evaluates the departing identity
// as a non-admin.
func (s *Store) SignOut(ctx context.Context) error {
	s.mu.Lock()
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.snap.IsAdmin = false
	s.snap.Profile = nil
	s.snap.Resolved = s.snap.Identity == nil
	s.mu.Unlock()
	s.notify()

	err := s.auth.SignOut(ctx)

	s.mu.Lock()
	present := s.snap.Identity != nil
	s.mu.Unlock()
	if present {
		s.apply(nil, false)
	}
	return err
}

// RefreshAdminStatus re-runs both lookups for the current identity and
// waits for them.
func (s *Store) RefreshAdminStatus(ctx context.Context) {
	s.mu.Lock()
	if s.snap.Identity == nil || s.disposed {
		s.mu.Unlock()
		return
	}
	userID := s.snap.Identity.ID
	gen, lctx := s.nextLookupLocked()
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		s.mu.Lock()
		if s.gen == gen && s.cancel != nil {
			s.cancel()
		}
		s.mu.Unlock()
	})
	defer stop()
	s.lookup(lctx, gen, userID)
}
