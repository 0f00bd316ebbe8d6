package session

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomoweb/core"
)

const (
	// DefaultCeiling is the absolute lifetime of a mounted session, whatever its token says.
	DefaultCeiling = time.Hour

	// EntryRoute is the unauthenticated entry point evicted clients are sent to.
	EntryRoute = "/"

	// timer-driven evictions run outside of any request
	evictionTimeout = 5 * time.Second
)

type State int

const (
	// StateUnknown is the state before the first validation pass completes.
	StateUnknown State = iota
	StateAuthenticated
	// StateUnauthenticated is terminal for the current mount: only a new token leaves it.
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	}
	return "unknown"
}

// Reason tells why a session was found invalid or evicted.
type Reason string

const (
	ReasonNoToken   Reason = "token absent"
	ReasonMalformed Reason = "token malformed"
	ReasonExpired   Reason = "token expired"
	ReasonCeiling   Reason = "session ceiling reached"
	ReasonRejected  Reason = "credential rejected"
	ReasonLogout    Reason = "logged out"
)

// Navigator forces the client to `route`.
type Navigator func(route string, reason Reason)

type Option func(*Guard)

func WithClock(clock core.Clock) Option {
	return func(g *Guard) {
		if clock != nil {
			g.clock = clock
		}
	}
}

// WithCeiling sets the absolute session duration. Non-positive durations are ignored.
func WithCeiling(d time.Duration) Option {
	return func(g *Guard) {
		if d > 0 {
			g.ceiling = d
		}
	}
}

// WithExpiryRevalidation makes the guard evict the session when the token's own expiry is reached,
// on top of the checks done on mount and token change.
func WithExpiryRevalidation(enabled bool) Option {
	return func(g *Guard) { g.revalidateOnExpiry = enabled }
}

func WithNavigator(nav Navigator) Option {
	return func(g *Guard) { g.navigate = nav }
}

func WithLogger(logger core.Logger) Option {
	return func(g *Guard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// Guard decides whether the credential persisted in a client's storage is still valid,
// and evicts the session when it is not.
//
// The guard validates on Mount and whenever Observe sees a different token; it never returns
// validation errors: every failure degrades to StateUnauthenticated.
// Independently of the token, Mount schedules a one-shot eviction after the ceiling.
type Guard struct {
	store              core.Storage
	clock              core.Clock
	ceiling            time.Duration
	revalidateOnExpiry bool
	navigate           Navigator
	logger             core.Logger

	mu        sync.Mutex
	state     State
	mounted   bool
	token     string // token seen by the last validation pass
	claims    Claims
	mountedAt time.Time
	gen       uint64 // timers of older generations are no-ops
	timers    []core.Timer
}

func NewGuard(store core.Storage, opts ...Option) *Guard {
	g := &Guard{
		store:   store,
		clock:   core.SystemClock,
		ceiling: DefaultCeiling,
		logger:  nopLogger{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Mount runs a validation pass and schedules the session ceiling.
// Mounting an already mounted guard starts over from StateUnknown.
func (g *Guard) Mount(ctx context.Context) State {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.mounted = true
	token, present := g.readToken(ctx)
	g.pass(ctx, token, present)
	return g.state
}

// Observe re-reads the persisted token and runs a new validation pass if it changed
// since the last one. An unmounted guard is mounted.
func (g *Guard) Observe(ctx context.Context) State {
	g.mu.Lock()
	defer g.mu.Unlock()

	token, present := g.readToken(ctx)
	if !g.mounted || token != g.token {
		g.mounted = true
		g.pass(ctx, token, present)
	}
	return g.state
}

// Unmount cancels the pending timers: a timer firing after Unmount does nothing.
func (g *Guard) Unmount() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.cancelTimers()
	g.mounted = false
}

// Evict clears the persisted credential and sends the client to the entry route.
func (g *Guard) Evict(ctx context.Context, reason Reason) {
	g.mu.Lock()
	g.cancelTimers()
	g.clearCredentials(ctx)
	g.invalidate()
	nav := g.navigate
	g.mu.Unlock()

	g.logger.Info("session evicted", reason)
	if nav != nil {
		nav(EntryRoute, reason)
	}
}

func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func (g *Guard) Authenticated() bool {
	return g.State() == StateAuthenticated
}

// Claims returns the claims of the validated token, if authenticated.
func (g *Guard) Claims() (Claims, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.claims, g.state == StateAuthenticated
}

// ExpiresAt returns the expiry embedded in the validated token (zero if none or not authenticated).
func (g *Guard) ExpiresAt() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.claims.ExpiresAt
}

// MountedAt returns the start of the current validation pass: the ceiling counts from there.
func (g *Guard) MountedAt() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mountedAt
}

func (g *Guard) Mounted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mounted
}

// pass must be called with g.mu held.
func (g *Guard) pass(ctx context.Context, token string, present bool) {
	g.cancelTimers()
	gen := g.gen

	g.state = StateUnknown
	g.token = token
	g.claims = Claims{}
	now := g.clock.Now()
	g.mountedAt = now

	g.validate(ctx, token, present, now)

	g.schedule(gen, g.ceiling, ReasonCeiling)
	if g.state == StateAuthenticated && g.revalidateOnExpiry && !g.claims.ExpiresAt.IsZero() {
		g.schedule(gen, g.claims.ExpiresAt.Sub(now), ReasonExpired)
	}
}

func (g *Guard) validate(ctx context.Context, token string, present bool, now time.Time) {
	if !present {
		g.state = StateUnauthenticated
		g.logger.Debug("session invalid", ReasonNoToken)
		return
	}

	claims, err := DecodeClaims(token)
	if err != nil {
		g.reject(ctx, ReasonMalformed, err)
		return
	}
	if claims.Expired(now) {
		g.reject(ctx, ReasonExpired, nil)
		return
	}
	g.claims = claims
	g.state = StateAuthenticated
}

func (g *Guard) reject(ctx context.Context, reason Reason, cause error) {
	g.clearCredentials(ctx)
	g.token = ""
	g.state = StateUnauthenticated
	if cause != nil {
		g.logger.Info("session invalid", reason, cause)
	} else {
		g.logger.Info("session invalid", reason)
	}
}

func (g *Guard) schedule(gen uint64, d time.Duration, reason Reason) {
	if d < 0 {
		d = 0
	}
	t := g.clock.AfterFunc(d, func() { g.fire(gen, reason) })
	g.timers = append(g.timers, t)
}

func (g *Guard) fire(gen uint64, reason Reason) {
	g.mu.Lock()
	if !g.mounted || gen != g.gen {
		g.mu.Unlock()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), evictionTimeout)
	defer cancel()

	g.cancelTimers()
	if reason == ReasonCeiling {
		if err := g.store.Clear(ctx); err != nil {
			g.logger.Error("clearing session storage", errors.Wrap(err, "ceiling eviction"))
		}
	} else {
		g.clearCredentials(ctx)
	}
	g.invalidate()
	nav := g.navigate
	g.mu.Unlock()

	g.logger.Info("session evicted", reason)
	if nav != nil {
		nav(EntryRoute, reason)
	}
}

// invalidate must be called with g.mu held.
func (g *Guard) invalidate() {
	g.state = StateUnauthenticated
	g.token = ""
	g.claims = Claims{}
}

// cancelTimers must be called with g.mu held.
func (g *Guard) cancelTimers() {
	for _, t := range g.timers {
		t.Stop()
	}
	g.timers = nil
	g.gen++
}

func (g *Guard) readToken(ctx context.Context) (string, bool) {
	token, err := g.store.Get(ctx, core.KeyToken)
	if err != nil {
		if errors.Cause(err) != core.ErrKeyNotFound {
			g.logger.Error("reading session token", errors.Wrap(err, "reading token"))
		}
		return "", false
	}
	return token, token != ""
}

func (g *Guard) clearCredentials(ctx context.Context) {
	if err := g.store.Delete(ctx, core.KeyToken, core.KeyUserID); err != nil {
		g.logger.Error("clearing session credentials", errors.Wrap(err, "deleting token"))
	}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}
