package httpapi

import (
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// sessions keeps server-side wizards and count queues. Entries expire after
// ttl without use; every lookup extends the lease.
type sessions[T any] struct {
	cache *gocache.Cache
	ttl   time.Duration
}

func newSessions[T any](ttl time.Duration) *sessions[T] {
	cleanup := ttl / 2
	if ttl <= 0 {
		ttl = gocache.NoExpiration
		cleanup = 0
	}
	return &sessions[T]{cache: gocache.New(ttl, cleanup), ttl: ttl}
}

func (s *sessions[T]) add(v T) string {
	id := uuid.NewString()
	s.cache.Set(id, v, s.ttl)
	return id
}

func (s *sessions[T]) get(id string) (T, bool) {
	var zero T
	raw, ok := s.cache.Get(id)
	if !ok {
		return zero, false
	}
	v, ok := raw.(T)
	if !ok {
		return zero, false
	}
	s.cache.Set(id, v, s.ttl)
	return v, true
}

func (s *sessions[T]) remove(id string) bool {
	if _, ok := s.cache.Get(id); !ok {
		return false
	}
	s.cache.Delete(id)
	return true
}
