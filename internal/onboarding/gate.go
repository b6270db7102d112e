// Package onboarding sends identities without a wedding profile to the setup
// wizard and implements that wizard.
package onboarding

import (
	"context"
	"sync"

	"github.com/iliyamo/miboda/internal/guard"
	"github.com/iliyamo/miboda/internal/model"
)

// Route is where identities without a wedding profile are sent.
const Route = "/onboarding"

// State of the onboarding gate.
type State int

const (
	Loading State = iota
	HasProfile
	NoProfile
)

func (s State) String() string {
	switch s {
	case HasProfile:
		return "HAS_PROFILE"
	case NoProfile:
		return "NO_PROFILE"
	}
	return "LOADING"
}

// ProfileSource reads the caller's wedding profile; nil means none exists.
type ProfileSource interface {
	WeddingProfile(ctx context.Context) (*model.WeddingProfile, error)
}

// Gate wraps routes that need a completed onboarding. It reads the profile
// once per Check and does not re-validate in the background.
type Gate struct {
	src   ProfileSource
	route string

	mu    sync.Mutex
	state State
}

func NewGate(src ProfileSource) *Gate {
	return &Gate{src: src, route: Route}
}

func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Check reads the profile and decides. A failed read keeps the gate in
// Loading and returns the error with a placeholder decision.
func (g *Gate) Check(ctx context.Context) (guard.Decision, error) {
	g.set(Loading)
	p, err := g.src.WeddingProfile(ctx)
	if err != nil {
		return guard.Decision{Kind: guard.Placeholder}, err
	}
	if p == nil {
		g.set(NoProfile)
		return guard.Decision{Kind: guard.Redirect, To: g.route}, nil
	}
	g.set(HasProfile)
	return guard.Decision{Kind: guard.Render}, nil
}

func (g *Gate) set(s State) {
	g.mu.Lock()
	g.state = s
	g.mu.Unlock()
}
