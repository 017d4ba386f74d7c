// Package ctxval attaches a mutable bag to a context so that values learned
// deep in a request (user id, role, session) become visible to the code that
// created the context, typically the access log middleware.
package ctxval

import (
	"context"
	"slices"
	"sync"
)

type bagKey struct{}

type bag struct {
	mu     sync.RWMutex
	values map[any]any
	fields []any
}

// Wrap returns ctx carrying a fresh bag. Wrapping twice is a no-op.
func Wrap(ctx context.Context) context.Context {
	if _, ok := from(ctx); ok {
		return ctx
	}
	return context.WithValue(ctx, bagKey{}, &bag{values: make(map[any]any)})
}

// Set stores v under k. It does nothing on an unwrapped context.
func Set[K comparable, V any](ctx context.Context, k K, v V) {
	b, ok := from(ctx)
	if !ok {
		return
	}
	b.mu.Lock()
	b.values[k] = v
	b.mu.Unlock()
}

func Get[K comparable, V any](ctx context.Context, k K) (V, bool) {
	var zero V
	b, ok := from(ctx)
	if !ok {
		return zero, false
	}
	b.mu.RLock()
	raw, found := b.values[k]
	b.mu.RUnlock()
	if !found {
		return zero, false
	}
	v, ok := raw.(V)
	return v, ok
}

// AddFields appends key/value pairs that every context-aware log line will carry.
func AddFields(ctx context.Context, keysAndValues ...any) {
	b, ok := from(ctx)
	if !ok || len(keysAndValues) == 0 {
		return
	}
	b.mu.Lock()
	b.fields = append(b.fields, keysAndValues...)
	b.mu.Unlock()
}

// Fields returns a copy of the accumulated log fields.
func Fields(ctx context.Context) []any {
	b, ok := from(ctx)
	if !ok {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.fields)
}

func from(ctx context.Context) (*bag, bool) {
	if ctx == nil {
		return nil, false
	}
	b, ok := ctx.Value(bagKey{}).(*bag)
	return b, ok
}
