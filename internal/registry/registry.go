// Package registry hands attribution metadata for a pending large-file
// transfer from the Bot API listener to the MTProto coordinator. It is a pure
// key-value handoff: no ordering between producer and consumer is assumed.
package registry

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// StatusHandle references the editable status message in the Telegram chat.
type StatusHandle struct {
	ChatID    int64
	MessageID int
}

// Context is the metadata attached to one pending transfer, keyed by the
// attachment's file_unique_id.
type Context struct {
	Username     string
	FileType     string
	OriginalName string
	Status       *StatusHandle

	createdAt time.Time
}

// Registry holds at most one live Context per file unique id. A context is
// consumed exactly once, by whichever Take call wins.
type Registry struct {
	logger   *slog.Logger
	ttl      time.Duration
	mu       sync.Mutex
	contexts map[string]Context
	waiters  map[string]chan Context
}

func New(log *slog.Logger, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Registry{
		logger:   log.With(slog.String("component", "registry")),
		ttl:      ttl,
		contexts: make(map[string]Context),
		waiters:  make(map[string]chan Context),
	}
}

// Put inserts or overwrites the context for id. If a consumer is parked in
// TakeWait on the same id, it is handed the context directly.
func (r *Registry) Put(id string, ctx Context) {
	ctx.createdAt = time.Now()

	r.mu.Lock()
	if w, ok := r.waiters[id]; ok {
		delete(r.waiters, id)
		r.mu.Unlock()
		w <- ctx
		return
	}
	r.contexts[id] = ctx
	r.mu.Unlock()
}

// Take atomically removes and returns the context for id.
func (r *Registry) Take(id string) (Context, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ctx, ok := r.contexts[id]
	if ok {
		delete(r.contexts, id)
	}
	return ctx, ok
}

// TakeWait is Take with a bounded wait for the producer. The coordinator may
// observe a mirrored message before the Bot API handler has registered its
// context; rather than polling, the consumer parks on a per-id channel that
// Put completes. Returns false once wait elapses or ctx is cancelled.
func (r *Registry) TakeWait(ctx context.Context, id string, wait time.Duration) (Context, bool) {
	r.mu.Lock()
	if c, ok := r.contexts[id]; ok {
		delete(r.contexts, id)
		r.mu.Unlock()
		return c, true
	}
	// Buffered so a Put racing the timeout never blocks the producer.
	w := make(chan Context, 1)
	r.waiters[id] = w
	r.mu.Unlock()

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case c := <-w:
		return c, true
	case <-timer.C:
	case <-ctx.Done():
	}

	r.mu.Lock()
	delete(r.waiters, id)
	r.mu.Unlock()

	// The producer may have published between the timeout and the delete.
	select {
	case c := <-w:
		return c, true
	default:
		return Context{}, false
	}
}

// Evict drops contexts older than the TTL. It is run on a schedule by the
// composition root; an evicted context means a handoff nobody claimed.
func (r *Registry) Evict() {
	cutoff := time.Now().Add(-r.ttl)

	r.mu.Lock()
	var stale []string
	for id, ctx := range r.contexts {
		if ctx.createdAt.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		delete(r.contexts, id)
	}
	r.mu.Unlock()

	for _, id := range stale {
		r.logger.Warn("evicted unclaimed context", slog.String("file_unique_id", id))
	}
}

// Len reports the number of pending contexts.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.contexts)
}
