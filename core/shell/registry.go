package shell

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/masomoweb/core"
	"github.com/trezcool/masomoweb/core/session"
)

// Registry keeps the shell of every active client.
type Registry struct {
	backend   core.StorageBackend
	clock     core.Clock
	logger    core.Logger
	guardOpts []session.Option

	mu     sync.Mutex
	shells map[string]*Shell
}

func NewRegistry(backend core.StorageBackend, clock core.Clock, logger core.Logger, guardOpts ...session.Option) *Registry {
	if clock == nil {
		clock = core.SystemClock
	}
	opts := []session.Option{session.WithClock(clock), session.WithLogger(logger)}
	return &Registry{
		backend:   backend,
		clock:     clock,
		logger:    logger,
		guardOpts: append(opts, guardOpts...),
		shells:    make(map[string]*Shell),
	}
}

// Shell returns the mounted shell of `clientID`, creating it on first use.
func (r *Registry) Shell(ctx context.Context, clientID string) *Shell {
	r.mu.Lock()
	s, ok := r.shells[clientID]
	if !ok {
		s = New(clientID, r.backend.Bucket(clientID), r.guardOpts...)
		r.shells[clientID] = s
	}
	r.mu.Unlock()

	s.touch(r.clock.Now())
	s.Mount(ctx)
	return s
}

// Drop unmounts the shell of `clientID` and forgets it. Persisted entries are kept.
func (r *Registry) Drop(clientID string) {
	r.mu.Lock()
	s, ok := r.shells[clientID]
	delete(r.shells, clientID)
	r.mu.Unlock()

	if ok {
		s.Guard.Unmount()
	}
}

// Sweep drops the shells unused for more than `maxIdle` and returns how many were dropped.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	deadline := r.clock.Now().Add(-maxIdle)

	r.mu.Lock()
	var idle []*Shell
	for id, s := range r.shells {
		if s.idleSince().Before(deadline) {
			idle = append(idle, s)
			delete(r.shells, id)
		}
	}
	r.mu.Unlock()

	for _, s := range idle {
		s.Guard.Unmount()
	}
	if len(idle) > 0 && r.logger != nil {
		r.logger.Debug("idle shells dropped", map[string]interface{}{"count": len(idle)})
	}
	return len(idle)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.shells)
}

// Close unmounts every shell.
func (r *Registry) Close() {
	r.mu.Lock()
	shells := r.shells
	r.shells = make(map[string]*Shell)
	r.mu.Unlock()

	for _, s := range shells {
		s.Guard.Unmount()
	}
}
