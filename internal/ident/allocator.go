package ident

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/prohmpiriya/jelli-fit/internal/domain"
)

const (
	minSuffix = 100000
	maxSuffix = 999999

	// DefaultMaxAttempts bounds the probe loop
	DefaultMaxAttempts = 100
)

// ErrAllocationExhausted is returned when every probed id was taken
var ErrAllocationExhausted = errors.New("identifier allocation exhausted")

// EventLookup probes whether an id is in use. A nil event means free.
type EventLookup interface {
	GetEvent(ctx context.Context, id string) (*domain.Event, error)
}

// Allocator picks event ids of the form "<slug>-<6 digits>"
type Allocator struct {
	names       *NameGenerator
	maxAttempts int
	intN        func(n int) int
	onCollision func(id string)
}

// Option configures an Allocator
type Option func(*Allocator)

// WithMaxAttempts caps the number of probes per allocation
func WithMaxAttempts(n int) Option {
	return func(a *Allocator) {
		if n > 0 {
			a.maxAttempts = n
		}
	}
}

// WithRand overrides the source of random suffixes
func WithRand(intN func(n int) int) Option {
	return func(a *Allocator) {
		a.intN = intN
	}
}

// WithCollisionHook is called with every probed id that was already taken
func WithCollisionHook(fn func(id string)) Option {
	return func(a *Allocator) {
		a.onCollision = fn
	}
}

// NewAllocator creates an Allocator
func NewAllocator(names *NameGenerator, opts ...Option) *Allocator {
	a := &Allocator{
		names:       names,
		maxAttempts: DefaultMaxAttempts,
		intN:        rand.IntN,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// MaxAttempts is the probe cap per allocation
func (a *Allocator) MaxAttempts() int {
	return a.maxAttempts
}

// Budget is the lookup allowance of one allocation. Callers that retry after
// a lost write pass the same Budget back so the retries share the cap.
type Budget struct {
	left int
}

// NewBudget returns a Budget holding MaxAttempts probes
func (a *Allocator) NewBudget() *Budget {
	return &Budget{left: a.maxAttempts}
}

// Remaining is the number of probes left
func (b *Budget) Remaining() int {
	return b.left
}

// Resolve returns the display name to store and the slug to allocate with.
// A blank name is replaced by a generated one. A name whose slug would be
// degenerate keeps its display form but borrows the slug of a generated name.
func (a *Allocator) Resolve(name string) (display, slug string) {
	display = strings.TrimSpace(name)
	if display == "" {
		display = a.names.Generate()
	}

	slug = EncodeName(display)
	for IsDegenerate(slug) {
		slug = EncodeName(a.names.Generate())
	}
	return display, slug
}

// Allocate resolves name and returns an id no probe reported as taken
func (a *Allocator) Allocate(ctx context.Context, store EventLookup, name string) (string, error) {
	_, slug := a.Resolve(name)
	return a.AllocateSlug(ctx, store, slug)
}

// AllocateSlug draws suffixes for slug until store reports the id free. Only
// the suffix is redrawn between attempts. Probe errors are returned as is.
func (a *Allocator) AllocateSlug(ctx context.Context, store EventLookup, slug string) (string, error) {
	return a.AllocateWithin(ctx, store, slug, a.NewBudget())
}

// AllocateWithin is AllocateSlug spending probes from budget
func (a *Allocator) AllocateWithin(ctx context.Context, store EventLookup, slug string, budget *Budget) (string, error) {
	for budget.left > 0 {
		budget.left--
		if err := ctx.Err(); err != nil {
			return "", err
		}

		id := a.candidate(slug)
		existing, err := store.GetEvent(ctx, id)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return id, nil
		}
		if a.onCollision != nil {
			a.onCollision(id)
		}
	}
	return "", fmt.Errorf("%w after %d attempts for slug %q", ErrAllocationExhausted, a.maxAttempts, slug)
}

func (a *Allocator) candidate(slug string) string {
	n := minSuffix + a.intN(maxSuffix-minSuffix+1)
	return fmt.Sprintf("%s-%d", slug, n)
}
