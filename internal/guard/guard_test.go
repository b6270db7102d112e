package guard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/miboda/internal/gateway"
	"github.com/iliyamo/miboda/internal/gateway/gatewaytest"
	"github.com/iliyamo/miboda/internal/notice"
	"github.com/iliyamo/miboda/internal/session"
)

const interval = 25 * time.Millisecond

type countingChecker struct {
	inner StatusChecker
	mu    sync.Mutex
	calls map[string]int
	err   error
}

func (c *countingChecker) IsActive(ctx context.Context, userID string) (bool, error) {
	c.mu.Lock()
	if c.calls == nil {
		c.calls = map[string]int{}
	}
	c.calls[userID]++
	err := c.err
	c.mu.Unlock()
	if err != nil {
		return false, err
	}
	return c.inner.IsActive(ctx, userID)
}

func (c *countingChecker) count(userID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[userID]
}

type fixture struct {
	backend *gatewaytest.Backend
	store   *session.Store
	checker *countingChecker
	notices *notice.Recorder
	guard   *Guard
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b := gatewaytest.New()
	st := session.New(b, b)
	f := &fixture{
		backend: b,
		store:   st,
		checker: &countingChecker{inner: ProfileStatus{Data: b}},
		notices: &notice.Recorder{},
	}
	f.guard = New(st, f.checker, WithInterval(interval), WithNotifier(f.notices))
	t.Cleanup(func() {
		f.guard.Deactivate()
		st.Dispose()
	})
	return f
}

func (f *fixture) start(t *testing.T, location string) {
	t.Helper()
	require.NoError(t, f.store.Initialize(context.Background()))
	f.guard.Activate(context.Background(), location)
}

func waitState(t *testing.T, g *Guard, want State) {
	t.Helper()
	require.Eventually(t, func() bool { return g.State() == want }, 2*time.Second, 5*time.Millisecond,
		"guard stuck in %s, want %s", g.State(), want)
}

func TestPlaceholderWhileSessionLoads(t *testing.T) {
	f := newFixture(t)
	f.guard.Activate(context.Background(), "/presupuesto")

	assert.Equal(t, InitialLoading, f.guard.State())
	assert.Equal(t, Placeholder, f.guard.Decision().Kind)

	require.NoError(t, f.store.Initialize(context.Background()))
	waitState(t, f.guard, Unauthenticated)
	d := f.guard.Decision()
	assert.Equal(t, Redirect, d.Kind)
	assert.Equal(t, SignInRoute, d.To)
	assert.Equal(t, "/presupuesto", d.From)
	assert.Nil(t, d.Notice)
}

func TestActiveUserIsAuthorizedAndPolled(t *testing.T) {
	f := newFixture(t)
	id := f.backend.AddUser("novia@miboda.co", "secreto", gatewaytest.UserOptions{})
	f.backend.StartSession(id)
	f.start(t, "/")

	waitState(t, f.guard, Authorized)
	assert.Equal(t, Render, f.guard.Decision().Kind)
	assert.True(t, f.guard.Polling())

	require.Eventually(t, func() bool { return f.checker.count(id.ID) >= 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, Authorized, f.guard.State())
}

func TestAdminIsNeverCheckedOrSuspended(t *testing.T) {
	f := newFixture(t)
	id := f.backend.AddUser("admin@miboda.co", "secreto", gatewaytest.UserOptions{Admin: true, Inactive: true})
	f.backend.StartSession(id)
	f.start(t, "/admin")

	waitState(t, f.guard, Authorized)
	time.Sleep(5 * interval)

	assert.Equal(t, Authorized, f.guard.State())
	assert.Zero(t, f.checker.count(id.ID))
	assert.False(t, f.guard.Polling())
	assert.Empty(t, f.notices.All())
	assert.NotNil(t, f.store.Snapshot().Identity)
}

type slowSignOut struct {
	*gatewaytest.Backend
	delay time.Duration
}

func (s slowSignOut) SignOut(ctx context.Context) error {
	time.Sleep(s.delay)
	return s.Backend.SignOut(ctx)
}

func TestAdminSignOutSkipsStatusCheck(t *testing.T) {
	b := gatewaytest.New()
	st := session.New(slowSignOut{Backend: b, delay: 100 * time.Millisecond}, b)
	checker := &countingChecker{inner: ProfileStatus{Data: b}}
	notices := &notice.Recorder{}
	g := New(st, checker, WithInterval(interval), WithNotifier(notices))
	t.Cleanup(func() {
		g.Deactivate()
		st.Dispose()
	})

	id := b.AddUser("admin@miboda.co", "secreto", gatewaytest.UserOptions{Admin: true, Inactive: true})
	b.StartSession(id)
	require.NoError(t, st.Initialize(context.Background()))
	g.Activate(context.Background(), "/admin")
	waitState(t, g, Authorized)

	var (
		mu   sync.Mutex
		seen []State
	)
	stop := make(chan struct{})
	sampled := make(chan struct{})
	go func() {
		defer close(sampled)
		for {
			select {
			case <-stop:
				return
			case <-time.After(time.Millisecond):
				mu.Lock()
				seen = append(seen, g.State())
				mu.Unlock()
			}
		}
	}()

	require.NoError(t, st.SignOut(context.Background()))
	waitState(t, g, Unauthenticated)
	close(stop)
	<-sampled

	mu.Lock()
	defer mu.Unlock()
	assert.NotContains(t, seen, Suspended)
	assert.Zero(t, checker.count(id.ID))
	assert.Empty(t, notices.All())
}

func TestSuspensionWithinOneInterval(t *testing.T) {
	f := newFixture(t)
	id := f.backend.AddUser("novia@miboda.co", "secreto", gatewaytest.UserOptions{})
	require.NoError(t, f.store.Initialize(context.Background()))
	require.NoError(t, f.store.SignIn(context.Background(), "novia@miboda.co", "secreto"))
	f.guard.Activate(context.Background(), "/tareas")
	waitState(t, f.guard, Authorized)

	f.backend.SetActive(id.ID, false)
	changed := time.Now()
	waitState(t, f.guard, Suspended)
	assert.LessOrEqual(t, time.Since(changed), 2*interval+100*time.Millisecond)

	d := f.guard.Decision()
	assert.Equal(t, Redirect, d.Kind)
	assert.Equal(t, SignInRoute, d.To)
	assert.Equal(t, "/tareas", d.From)
	require.NotNil(t, d.Notice)
	assert.Equal(t, session.TitleSuspended, d.Notice.Title)

	assert.Nil(t, f.store.Snapshot().Identity)
	last, ok := f.notices.Last()
	require.True(t, ok)
	assert.Equal(t, session.MessageSuspended, last.Message)
	assert.False(t, f.guard.Polling())
}

func TestInactiveOnMountIsSuspended(t *testing.T) {
	f := newFixture(t)
	id := f.backend.AddUser("moroso@miboda.co", "secreto", gatewaytest.UserOptions{Inactive: true})
	f.backend.StartSession(id)
	f.start(t, "/")

	waitState(t, f.guard, Suspended)
	assert.Nil(t, f.store.Snapshot().Identity)
	assert.Equal(t, 1, f.checker.count(id.ID))
}

func TestCheckErrorFailsOpen(t *testing.T) {
	f := newFixture(t)
	f.checker.err = errors.New("timeout")
	id := f.backend.AddUser("novia@miboda.co", "secreto", gatewaytest.UserOptions{})
	f.backend.StartSession(id)
	f.start(t, "/")

	waitState(t, f.guard, Authorized)
	time.Sleep(3 * interval)
	assert.Equal(t, Authorized, f.guard.State())
}

func TestDeactivateStopsTimer(t *testing.T) {
	f := newFixture(t)
	id := f.backend.AddUser("novia@miboda.co", "secreto", gatewaytest.UserOptions{})
	f.backend.StartSession(id)
	f.start(t, "/")
	waitState(t, f.guard, Authorized)

	f.guard.Deactivate()
	assert.False(t, f.guard.Polling())
	n := f.checker.count(id.ID)
	f.backend.SetActive(id.ID, false)
	time.Sleep(4 * interval)

	assert.Equal(t, n, f.checker.count(id.ID))
	assert.NotNil(t, f.store.Snapshot().Identity)
}

func TestContextCancelStopsTimer(t *testing.T) {
	f := newFixture(t)
	id := f.backend.AddUser("novia@miboda.co", "secreto", gatewaytest.UserOptions{})
	f.backend.StartSession(id)
	require.NoError(t, f.store.Initialize(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	f.guard.Activate(ctx, "/")
	waitState(t, f.guard, Authorized)
	cancel()

	require.Eventually(t, func() bool { return !f.guard.Polling() }, time.Second, 5*time.Millisecond)
	n := f.checker.count(id.ID)
	time.Sleep(3 * interval)
	assert.Equal(t, n, f.checker.count(id.ID))
}

func TestIdentityChangeResetsMachine(t *testing.T) {
	f := newFixture(t)
	first := f.backend.AddUser("novia@miboda.co", "secreto", gatewaytest.UserOptions{})
	second := f.backend.AddUser("moroso@miboda.co", "secreto", gatewaytest.UserOptions{Inactive: true})
	f.backend.StartSession(first)
	f.start(t, "/")
	waitState(t, f.guard, Authorized)

	f.backend.Emit(gateway.AuthEvent{Kind: gateway.EventSignedIn, Session: &gateway.Session{AccessToken: "t2", User: second}})
	waitState(t, f.guard, Suspended)
	assert.Equal(t, 1, f.checker.count(second.ID))

	n := f.checker.count(first.ID)
	time.Sleep(3 * interval)
	assert.Equal(t, n, f.checker.count(first.ID))
}

func TestSignOutRedirectsWithoutNotice(t *testing.T) {
	f := newFixture(t)
	id := f.backend.AddUser("novia@miboda.co", "secreto", gatewaytest.UserOptions{})
	f.backend.StartSession(id)
	f.start(t, "/proveedores")
	waitState(t, f.guard, Authorized)

	require.NoError(t, f.store.SignOut(context.Background()))
	waitState(t, f.guard, Unauthenticated)
	assert.Nil(t, f.guard.Decision().Notice)
	assert.Empty(t, f.notices.All())
}

func TestWait(t *testing.T) {
	f := newFixture(t)
	id := f.backend.AddUser("novia@miboda.co", "secreto", gatewaytest.UserOptions{})
	f.backend.StartSession(id)
	f.start(t, "/")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	d, err := f.guard.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, Render, d.Kind)
}

func TestAdminGuard(t *testing.T) {
	b := gatewaytest.New()
	st := session.New(b, b)
	defer st.Dispose()
	ag := NewAdmin(st)

	assert.Equal(t, Placeholder, ag.Decide("/admin").Kind)
	require.NoError(t, st.Initialize(context.Background()))
	assert.Equal(t, Decision{Kind: Redirect, To: SignInRoute, From: "/admin"}, ag.Decide("/admin"))

	b.AddUser("novia@miboda.co", "secreto", gatewaytest.UserOptions{})
	require.NoError(t, st.SignIn(context.Background(), "novia@miboda.co", "secreto"))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	d, err := ag.Wait(ctx, "/admin")
	require.NoError(t, err)
	assert.Equal(t, Decision{Kind: Redirect, To: HomeRoute}, d)

	require.NoError(t, st.SignOut(context.Background()))
	b.AddUser("admin@miboda.co", "secreto", gatewaytest.UserOptions{Admin: true})
	require.NoError(t, st.SignIn(context.Background(), "admin@miboda.co", "secreto"))
	d, err = ag.Wait(ctx, "/admin")
	require.NoError(t, err)
	assert.Equal(t, Render, d.Kind)
}
