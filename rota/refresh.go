package rota

import (
	"context"
	"sync"
)

// =============================================================================
// REFRESH GUARD - Last-request-wins per-key cancellation
// =============================================================================

// RefreshGuard supersedes in-flight work keyed by staff id: beginning a
// refresh for a key cancels the previous context issued for that key.
// Cancellation is cooperative; the superseded work observes it at its
// next suspension point.
type RefreshGuard struct {
	mu      sync.Mutex
	nextGen uint64
	entries map[string]*refreshEntry
}

type refreshEntry struct {
	generation uint64
	cancel     context.CancelFunc
}

func NewRefreshGuard() *RefreshGuard {
	return &RefreshGuard{entries: make(map[string]*refreshEntry)}
}

// Begin returns a context for a new refresh of the given key, cancelling
// any prior refresh for the same key. Callers must invoke the returned
// cancel when done, or the entry leaks.
func (g *RefreshGuard) Begin(parent context.Context, key string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	g.mu.Lock()
	if prev, ok := g.entries[key]; ok {
		prev.cancel()
	}
	g.nextGen++
	generation := g.nextGen
	g.entries[key] = &refreshEntry{generation: generation, cancel: cancel}
	g.mu.Unlock()

	return ctx, func() {
		cancel()
		g.mu.Lock()
		// Clear the slot only if it still belongs to this refresh; a
		// newer Begin may have taken it over.
		if current, ok := g.entries[key]; ok && current.generation == generation {
			delete(g.entries, key)
		}
		g.mu.Unlock()
	}
}
