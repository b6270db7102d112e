package guard

import "context"

// AdminGuard gates the admin area: signed-out users go to sign-in, signed-in
// non-admins go home. It does not poll.
type AdminGuard struct {
	sess   Session
	signIn string
	home   string
}

func NewAdmin(sess Session) *AdminGuard {
	return &AdminGuard{sess: sess, signIn: SignInRoute, home: HomeRoute}
}

// Decide evaluates the latest session snapshot for location.
func (a *AdminGuard) Decide(location string) Decision {
	snap := a.sess.Snapshot()
	switch {
	case snap.LoadingInitial:
		return Decision{Kind: Placeholder}
	case snap.Identity == nil:
		return Decision{Kind: Redirect, To: a.signIn, From: location}
	case !snap.Resolved:
		return Decision{Kind: Placeholder}
	case !snap.IsAdmin:
		return Decision{Kind: Redirect, To: a.home}
	}
	return Decision{Kind: Render}
}

// Wait blocks until Decide returns something other than a placeholder.
func (a *AdminGuard) Wait(ctx context.Context, location string) (Decision, error) {
	changes, cancel := a.sess.Subscribe()
	defer cancel()
	for {
		d := a.Decide(location)
		if d.Kind != Placeholder {
			return d, nil
		}
		select {
		case _, ok := <-changes:
			if !ok {
				return a.Decide(location), nil
			}
		case <-ctx.Done():
			return Decision{}, ctx.Err()
		}
	}
}
