package session

import "context"

// Verdict is what the HTTP layer should do with a request.
type Verdict int

const (
	// Proceed hands the request on to the access decision engine.
	Proceed Verdict = iota
	// ForceReauth means the credential's session expired; the client is sent
	// to the logout endpoint to re-authenticate.
	ForceReauth
)

// PublicLinks reports whether a link is public. Lookup failures must report false.
type PublicLinks interface {
	IsPublic(ctx context.Context, customLink string) bool
}

// Guard applies the idle-timeout policy. It never validates credentials;
// it only tracks how long an already-presented credential has been idle.
type Guard struct {
	tracker *Tracker
	links   PublicLinks
}

// NewGuard returns a guard that tracks idle time in tracker and consults
// links to let public link reads through untracked.
func NewGuard(tracker *Tracker, links PublicLinks) *Guard {
	return &Guard{tracker: tracker, links: links}
}

// Check evaluates a request. customLink is empty for routes that do not
// read a link, including admin mutations on one. authorization is the raw
// Authorization header, possibly empty. Reads of public links bypass all
// bookkeeping.
func (g *Guard) Check(ctx context.Context, customLink, authorization string) Verdict {
	if customLink != "" && g.links.IsPublic(ctx, customLink) {
		return Proceed
	}
	if authorization == "" {
		return Proceed
	}
	if g.tracker.Touch(authorization) == StateExpired {
		return ForceReauth
	}
	return Proceed
}

// Logout forgets the session for authorization.
func (g *Guard) Logout(authorization string) {
	if authorization != "" {
		g.tracker.Forget(authorization)
	}
}

// Tracker exposes the underlying session map.
func (g *Guard) Tracker() *Tracker {
	return g.tracker
}
