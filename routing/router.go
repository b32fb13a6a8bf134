package routing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"sync"

	"mesh-rpc/locator"

	"go.uber.org/zap"
)

var (
	ErrUnknownApp = errors.New("routing: unknown application")
	ErrEmptyRing  = errors.New("routing: empty ring")
)

// Source delivers routing table snapshots. *locator.RoutingStream is one.
type Source interface {
	Recv(ctx context.Context) (locator.RoutingTable, error)
}

// Router holds the latest routing table and routes keys with it. Every
// snapshot replaces the previous table as a whole.
type Router struct {
	hash   Hasher
	logger *zap.Logger

	mu      sync.RWMutex
	rings   map[string]*Ring
	updates uint64
}

func NewRouter(hash Hasher, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{hash: hash, logger: logger, rings: make(map[string]*Ring)}
}

// Run applies snapshots from src until it ends. A clean end returns nil; an
// abnormal end returns the source's error (protocol.ErrCancelled for a
// locator stream) and the last table stays in place.
func (r *Router) Run(ctx context.Context, src Source) error {
	for {
		table, err := src.Recv(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		r.Update(table)
	}
}

// Update replaces the whole routing table.
func (r *Router) Update(table locator.RoutingTable) {
	rings := make(map[string]*Ring, len(table))
	for app, entries := range table {
		rings[app] = NewRing(entries, r.hash)
	}

	r.mu.Lock()
	r.rings = rings
	r.updates++
	n := r.updates
	r.mu.Unlock()

	r.logger.Debug("routing table updated", zap.Int("apps", len(rings)), zap.Uint64("update", n))
}

// Route returns the node that serves key within app.
func (r *Router) Route(app, key string) (string, error) {
	r.mu.RLock()
	ring, ok := r.rings[app]
	r.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownApp, app)
	}
	entry, ok := ring.Lookup(key)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrEmptyRing, app)
	}
	return entry.Node, nil
}

// Apps returns the application names of the current table, sorted.
func (r *Router) Apps() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.rings))
}

// Updates returns how many snapshots have been applied.
func (r *Router) Updates() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.updates
}
