package gate

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachedResolver memoizes another resolver in a size-bounded LRU whose
// entries expire after ttl. Misses and errors go to the inner resolver;
// errors are not cached.
type CachedResolver[U comparable] struct {
	inner ProfileResolver[U]
	cache *expirable.LRU[U, Profile]
}

func NewCachedResolver[U comparable](inner ProfileResolver[U], size int, ttl time.Duration) *CachedResolver[U] {
	if size <= 0 {
		size = 1024
	}
	return &CachedResolver[U]{
		inner: inner,
		cache: expirable.NewLRU[U, Profile](size, nil, ttl),
	}
}

func (r *CachedResolver[U]) Resolve(ctx context.Context, user U) (Profile, error) {
	if p, ok := r.cache.Get(user); ok {
		return p, nil
	}
	p, err := r.inner.Resolve(ctx, user)
	if err != nil {
		return nil, err
	}
	r.cache.Add(user, p)
	return p, nil
}

// Invalidate drops one subject. Call it after the subject's role changes.
func (r *CachedResolver[U]) Invalidate(user U) {
	r.cache.Remove(user)
}

func (r *CachedResolver[U]) InvalidateAll() {
	r.cache.Purge()
}

// Len reports the number of cached entries.
func (r *CachedResolver[U]) Len() int {
	return r.cache.Len()
}
