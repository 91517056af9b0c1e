package ident

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/jelli-fit/internal/domain"
)

var idPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*-\d{6}$`)

// scriptedLookup answers probes from a fixed script of taken/free results
type scriptedLookup struct {
	taken  []bool
	err    error
	probes []string
}

func (s *scriptedLookup) GetEvent(_ context.Context, id string) (*domain.Event, error) {
	s.probes = append(s.probes, id)
	if s.err != nil {
		return nil, s.err
	}
	i := len(s.probes) - 1
	if i < len(s.taken) && s.taken[i] {
		return &domain.Event{ID: id}, nil
	}
	return nil, nil
}

// mapLookup reports ids present in the map as taken
type mapLookup map[string]bool

func (m mapLookup) GetEvent(_ context.Context, id string) (*domain.Event, error) {
	if m[id] {
		return &domain.Event{ID: id}, nil
	}
	return nil, nil
}

func sequence(values ...int) func(int) int {
	i := 0
	return func(int) int {
		v := values[i%len(values)]
		i++
		return v
	}
}

func TestAllocate_ProbesUntilFree(t *testing.T) {
	store := &scriptedLookup{taken: []bool{true, true, false}}
	var collisions []string
	a := NewAllocator(MustNameGenerator(),
		WithRand(sequence(0, 1, 899999)),
		WithCollisionHook(func(id string) { collisions = append(collisions, id) }),
	)

	id, err := a.Allocate(context.Background(), store, "Team Lunch")
	require.NoError(t, err)

	assert.Len(t, store.probes, 3)
	assert.Equal(t, []string{"team-lunch-100000", "team-lunch-100001", "team-lunch-999999"}, store.probes)
	assert.Equal(t, "team-lunch-999999", id)
	assert.Equal(t, store.probes[:2], collisions)
	assert.NotContains(t, collisions, id)
}

func TestAllocate_IDPattern(t *testing.T) {
	a := NewAllocator(MustNameGenerator())
	for _, name := range []string{"Team Lunch", "", "!!!", "日本語", "Q3 planning"} {
		id, err := a.Allocate(context.Background(), mapLookup{}, name)
		require.NoError(t, err)
		assert.Regexp(t, idPattern, id, "name %q", name)
		assert.Regexp(t, regexp.MustCompile(`-\d{6}$`), id)
	}
}

func TestAllocate_NeverReturnsTakenID(t *testing.T) {
	taken := mapLookup{}
	a := NewAllocator(MustNameGenerator(), WithRand(sequence(5, 5, 5, 7)))
	taken["standup-100005"] = true

	id, err := a.Allocate(context.Background(), taken, "standup")
	require.NoError(t, err)
	assert.Equal(t, "standup-100007", id)
}

func TestAllocate_Exhausted(t *testing.T) {
	store := &scriptedLookup{taken: []bool{true, true, true, true, true}}
	a := NewAllocator(MustNameGenerator(), WithMaxAttempts(3))

	_, err := a.Allocate(context.Background(), store, "busy")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAllocationExhausted))
	assert.Len(t, store.probes, 3)
}

func TestAllocateWithin_SharedBudget(t *testing.T) {
	store := &scriptedLookup{taken: []bool{false, true, false, true, true}}
	a := NewAllocator(MustNameGenerator(), WithMaxAttempts(4))
	budget := a.NewBudget()

	_, err := a.AllocateWithin(context.Background(), store, "retry", budget)
	require.NoError(t, err)
	assert.Equal(t, 3, budget.Remaining())

	_, err = a.AllocateWithin(context.Background(), store, "retry", budget)
	require.NoError(t, err)
	assert.Equal(t, 1, budget.Remaining())

	_, err = a.AllocateWithin(context.Background(), store, "retry", budget)
	assert.ErrorIs(t, err, ErrAllocationExhausted)
	assert.Zero(t, budget.Remaining())
	assert.Len(t, store.probes, 4)
}

func TestAllocate_ProbeErrorNotRetried(t *testing.T) {
	boom := errors.New("storage down")
	store := &scriptedLookup{err: boom}
	a := NewAllocator(MustNameGenerator())

	_, err := a.Allocate(context.Background(), store, "outage")
	assert.ErrorIs(t, err, boom)
	assert.Len(t, store.probes, 1)
}

func TestAllocate_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := &scriptedLookup{}
	_, err := NewAllocator(MustNameGenerator()).Allocate(ctx, store, "late")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, store.probes)
}

func TestResolve(t *testing.T) {
	a := NewAllocator(MustNameGenerator())

	t.Run("keeps trimmed name", func(t *testing.T) {
		display, slug := a.Resolve("  Team Lunch ")
		assert.Equal(t, "Team Lunch", display)
		assert.Equal(t, "team-lunch", slug)
	})

	t.Run("blank name is generated", func(t *testing.T) {
		display, slug := a.Resolve("   ")
		assert.Regexp(t, generatedNamePattern, display)
		assert.Equal(t, EncodeName(display), slug)
	})

	t.Run("degenerate slug borrows a generated one", func(t *testing.T) {
		display, slug := a.Resolve("???")
		assert.Equal(t, "???", display)
		assert.False(t, IsDegenerate(slug))
	})
}
