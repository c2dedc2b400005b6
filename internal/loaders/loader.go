// Package loaders batches and caches entity lookups for the lifetime of one request.
//
// Each Loader sits on a dataloader: keys requested within a short window are fetched
// with a single BatchFunc call. graphql-go resolves sibling fields that return thunks
// before forcing any of them, so siblings share a batch.
package loaders

import (
	"context"
	"time"

	"github.com/graph-gophers/dataloader/v7"
)

// batchWait is how long a batch stays open for more keys after the first one
const batchWait = 2 * time.Millisecond

// BatchFunc fetches every key in one round trip. Keys absent from the result map
// resolve to the zero value without error.
type BatchFunc[K comparable, V any] func(ctx context.Context, keys []K) (map[K]V, error)

// Loader deduplicates, batches and caches lookups by key
type Loader[K comparable, V any] struct {
	loader *dataloader.Loader[K, V]
}

// NewLoader wraps fetch with per-key caching and batching
func NewLoader[K comparable, V any](fetch BatchFunc[K, V]) *Loader[K, V] {
	return &Loader[K, V]{
		loader: dataloader.NewBatchedLoader(results(fetch), dataloader.WithWait[K, V](batchWait)),
	}
}

// results adapts a map-returning fetch to the key-ordered results dataloader expects
func results[K comparable, V any](fetch BatchFunc[K, V]) dataloader.BatchFunc[K, V] {
	return func(ctx context.Context, keys []K) []*dataloader.Result[V] {
		out := make([]*dataloader.Result[V], len(keys))
		found, err := fetch(ctx, keys)
		for i, key := range keys {
			if err != nil {
				out[i] = &dataloader.Result[V]{Error: err}
				continue
			}
			out[i] = &dataloader.Result[V]{Data: found[key]}
		}
		return out
	}
}

// Thunk queues key and returns a function that blocks until its batch resolved
func (l *Loader[K, V]) Thunk(ctx context.Context, key K) func() (V, error) {
	return l.loader.Load(ctx, key)
}

// Load resolves a single key
func (l *Loader[K, V]) Load(ctx context.Context, key K) (V, error) {
	return l.Thunk(ctx, key)()
}

// LoadMany resolves keys in one batch. Values and errors are index-aligned with keys.
func (l *Loader[K, V]) LoadMany(ctx context.Context, keys []K) ([]V, []error) {
	thunks := make([]func() (V, error), len(keys))
	for i, key := range keys {
		thunks[i] = l.Thunk(ctx, key)
	}

	values := make([]V, len(keys))
	errs := make([]error, len(keys))
	for i, thunk := range thunks {
		values[i], errs[i] = thunk()
	}
	return values, errs
}

// Prime seeds the cache, for instance with entities a mutation just created.
// Keys already cached keep their value.
func (l *Loader[K, V]) Prime(key K, value V) {
	l.loader.Prime(context.Background(), key, value)
}

// Clear drops key from the cache so the next load refetches it
func (l *Loader[K, V]) Clear(key K) {
	l.loader.Clear(context.Background(), key)
}
