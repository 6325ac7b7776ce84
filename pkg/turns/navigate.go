package turns

import "strings"

// FragmentPrefix is the durable location marker form: "turn-<id>".
const FragmentPrefix = "turn-"

// DefaultResolveAttempts bounds how many data updates the resolver will
// inspect while waiting for a navigation target to appear in the loaded
// sequence before falling back to the bottom of the transcript.
const DefaultResolveAttempts = 20

// PendingStore is the one-shot navigation marker slot: a durable key-value
// cell written before a reload and consumed exactly once afterwards.
type PendingStore interface {
	TakePendingTurn(sessionID string) (turnID string, ok bool)
}

// Resolver translates an external navigation intent (a turn-<id> location
// fragment or a one-shot pending marker) into a ScrollToTurn call, robust to
// the target not yet being loaded from the backend. Malformed markers are
// treated as "no navigation requested", never as errors.
type Resolver struct {
	anchor  *Anchor
	loc     Location
	pending PendingStore

	sessionID    string
	target       string
	fromFragment bool
	lastFragment string
	attempts     int
	maxAttempts  int
	done         bool
}

type ResolverOption func(*Resolver)

// WithResolveAttempts overrides the resolver retry bound.
func WithResolveAttempts(n int) ResolverOption {
	return func(r *Resolver) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// NewResolver creates a resolver bound to one session view.
func NewResolver(anchor *Anchor, loc Location, pending PendingStore, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		anchor:      anchor,
		loc:         loc,
		pending:     pending,
		maxAttempts: DefaultResolveAttempts,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Attach arms the resolver for a session: the one-shot pending marker is
// consumed here (read-once-and-cleared) and wins over the location fragment.
func (r *Resolver) Attach(sessionID string) {
	r.sessionID = sessionID
	r.target = ""
	r.fromFragment = false
	r.lastFragment = ""
	r.attempts = 0
	r.done = false

	if r.pending != nil {
		if id, ok := r.pending.TakePendingTurn(sessionID); ok && id != "" {
			r.target = id
			// The marker wins over whatever fragment is already set; snapshot
			// it so Sync does not mistake it for an external change.
			if r.loc != nil {
				r.lastFragment = r.loc.Fragment()
			}
			return
		}
	}
	r.readFragment()
}

func (r *Resolver) readFragment() {
	if r.loc == nil {
		return
	}
	frag := r.loc.Fragment()
	r.lastFragment = frag
	if id, ok := ParseFragment(frag); ok {
		r.target = id
		r.fromFragment = true
	}
}

// ParseFragment extracts the turn id from a "turn-<id>" fragment.
func ParseFragment(fragment string) (string, bool) {
	id, found := strings.CutPrefix(fragment, FragmentPrefix)
	if !found || id == "" {
		return "", false
	}
	return id, true
}

// Sync is invoked on every change to the loaded sequence, the window, or the
// location fragment (e.g. back/forward navigation). loaded is the full
// loaded id sequence, not just the materialized window.
func (r *Resolver) Sync(loaded []string, ready bool) {
	// External fragment changes re-arm the resolver.
	if r.loc != nil && !r.suppressFragmentEcho() {
		if frag := r.loc.Fragment(); frag != r.lastFragment {
			r.lastFragment = frag
			r.attempts = 0
			r.done = false
			r.fromFragment = false
			r.target = ""
			if id, ok := ParseFragment(frag); ok {
				r.target = id
				r.fromFragment = true
			}
		}
	}

	if r.done || r.target == "" || !ready {
		return
	}

	for _, id := range loaded {
		if id == r.target {
			if r.anchor.Focused() != r.target {
				r.anchor.ScrollToTurn(r.target, BehaviorImmediate)
			}
			r.finish()
			return
		}
	}

	// Target absent: the backend may still be streaming history. Wait for
	// the next update, bounded so a stale deep link cannot retry forever.
	r.attempts++
	if r.attempts >= r.maxAttempts {
		r.anchor.Resume()
		r.finish()
	}
}

// suppressFragmentEcho reports whether the current fragment was written by
// our own ScrollToTurn for the active target, which must not re-arm the
// resolver.
func (r *Resolver) suppressFragmentEcho() bool {
	if r.loc == nil || r.target == "" {
		return false
	}
	return r.loc.Fragment() == FragmentPrefix+r.target
}

func (r *Resolver) finish() {
	r.done = true
	r.target = ""
	r.fromFragment = false
	if r.loc != nil {
		r.lastFragment = r.loc.Fragment()
	}
}
