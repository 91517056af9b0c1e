package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/jelli-fit/internal/domain"
)

func seedVisited(t *testing.T, f *fixture, id string, visited time.Time, people ...string) {
	t.Helper()
	ctx := context.Background()
	_, err := f.memory.CreateEvent(ctx, &domain.Event{
		ID:        id,
		Name:      id,
		CreatedAt: visited,
		VisitedAt: visited,
		Times:     []string{"0900-1"},
		Timezone:  "UTC",
	})
	require.NoError(t, err)
	for _, name := range people {
		_, err := f.memory.UpdatePerson(ctx, id, &domain.Person{Name: name, CreatedAt: visited})
		require.NoError(t, err)
	}
}

func eventCount(t *testing.T, f *fixture, ids ...string) int {
	t.Helper()
	n := 0
	for _, id := range ids {
		// read through the map without touching VisitedAt
		people, err := f.memory.GetPeople(context.Background(), id)
		require.NoError(t, err)
		if people != nil {
			n++
		}
	}
	return n
}

func TestCleanup_StrictlyBeforeCutoff(t *testing.T) {
	f := newFixture(true)
	cutoff := testNow.Add(-DefaultRetention)
	seedVisited(t, f, "stale-100000", cutoff.Add(-time.Nanosecond), "Alice", "Bob")
	seedVisited(t, f, "older-100001", cutoff.Add(-72*time.Hour), "Carol")
	seedVisited(t, f, "edge-100002", cutoff, "Dave")
	seedVisited(t, f, "fresh-100003", testNow)

	svc := NewCleanupService(f.deps, CleanupConfig{})
	result, err := svc.Cleanup(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, int64(2), result.EventCount)
	assert.Equal(t, int64(3), result.PersonCount)
	assert.Equal(t, 0, eventCount(t, f, "stale-100000", "older-100001"))
	assert.Equal(t, 2, eventCount(t, f, "edge-100002", "fresh-100003"))
	assert.Equal(t, []string{MessageCleanupCompleted}, f.publisher.types())
}

func TestCleanup_CronKey(t *testing.T) {
	tests := []struct {
		name      string
		cronKey   string
		presented string
		allowed   bool
	}{
		{"no key configured, nothing presented", "", "", true},
		{"no key configured, anything presented", "", "whatever", true},
		{"matching key", "s3cret", "s3cret", true},
		{"missing key", "s3cret", "", false},
		{"wrong key", "s3cret", "guess", false},
		{"prefix of key", "s3cret", "s3c", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(true)
			seedVisited(t, f, "stale-100000", testNow.Add(-365*24*time.Hour), "Alice")

			svc := NewCleanupService(f.deps, CleanupConfig{CronKey: tt.cronKey})
			result, err := svc.Cleanup(context.Background(), tt.presented)

			if tt.allowed {
				require.NoError(t, err)
				assert.Equal(t, int64(1), result.EventCount)
				assert.Equal(t, 0, eventCount(t, f, "stale-100000"))
				return
			}
			assert.ErrorIs(t, err, ErrNotAuthorized)
			assert.Nil(t, result)
			assert.Equal(t, 1, eventCount(t, f, "stale-100000"), "nothing is deleted")
			assert.Empty(t, f.publisher.types())
		})
	}
}

func TestCleanup_CustomRetention(t *testing.T) {
	f := newFixture(true)
	seedVisited(t, f, "day-old-100000", testNow.Add(-25*time.Hour))
	seedVisited(t, f, "recent-100001", testNow.Add(-time.Hour))

	svc := NewCleanupService(f.deps, CleanupConfig{Retention: 24 * time.Hour})
	result, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.EventCount)
}

func TestCleanup_AdaptorFailure(t *testing.T) {
	f := newFixture(true)
	f.withAdaptor(&faultyAdaptor{Adaptor: f.memory, deleteErr: errors.New("disk full")})

	svc := NewCleanupService(f.deps, CleanupConfig{})
	_, err := svc.Sweep(context.Background())
	assert.ErrorIs(t, err, ErrAdaptorFailure)
}

func TestGetStats(t *testing.T) {
	f := newFixture(true)
	ctx := context.Background()
	_, err := f.memory.IncrementStatEventCount(ctx)
	require.NoError(t, err)
	_, err = f.memory.IncrementStatPersonCount(ctx)
	require.NoError(t, err)
	_, err = f.memory.IncrementStatPersonCount(ctx)
	require.NoError(t, err)

	stats, err := NewStatsService(f.deps).GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.EventCount)
	assert.Equal(t, int64(2), stats.PersonCount)
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"times": "required", "name": "too long"}}
	assert.Equal(t, "validation failed: name: too long; times: required", err.Error())
}
