package adaptor

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Serializer grants exclusive access to one shared Adaptor. Waiters are
// admitted in arrival order and give up when their context ends.
type Serializer struct {
	adaptor Adaptor
	sem     *semaphore.Weighted
	enabled bool
}

// NewSerializer wraps a. When enabled is false, Do calls run concurrently
// and rely on the adaptor's own safety.
func NewSerializer(a Adaptor, enabled bool) *Serializer {
	return &Serializer{
		adaptor: a,
		sem:     semaphore.NewWeighted(1),
		enabled: enabled,
	}
}

// Do runs fn with the adaptor while holding the exclusion
func (s *Serializer) Do(ctx context.Context, fn func(Adaptor) error) error {
	if s.enabled {
		if err := s.sem.Acquire(ctx, 1); err != nil {
			return err
		}
		defer s.sem.Release(1)
	}
	return fn(s.adaptor)
}

// Enabled reports whether calls are serialized
func (s *Serializer) Enabled() bool {
	return s.enabled
}
