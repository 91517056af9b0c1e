package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/jelli-fit/internal/domain"
	"github.com/prohmpiriya/jelli-fit/internal/dto"
)

func seedEvent(t *testing.T, f *fixture, id string) {
	t.Helper()
	_, err := f.memory.CreateEvent(context.Background(), &domain.Event{
		ID:        id,
		Name:      "Seeded",
		CreatedAt: testNow,
		VisitedAt: testNow,
		Times:     []string{"0900-01032026"},
		Timezone:  "UTC",
	})
	require.NoError(t, err)
}

func availability(marks ...string) *dto.UpdatePersonRequest {
	return &dto.UpdatePersonRequest{Availability: marks}
}

func TestUpdatePerson_CreatesThenUpdates(t *testing.T) {
	f := newFixture(true)
	seedEvent(t, f, "lunch-123456")
	svc := NewPersonService(f.deps, testHasher())
	ctx := context.Background()

	created, err := svc.UpdatePerson(ctx, "lunch-123456", "Alice", "", availability("0900-01032026"))
	require.NoError(t, err)
	assert.Equal(t, "Alice", created.Name)
	assert.Equal(t, []string{"0900-01032026"}, created.Availability)
	assert.True(t, created.CreatedAt.Equal(testNow))

	f.clock.Advance(time.Hour)
	updated, err := svc.UpdatePerson(ctx, "lunch-123456", "Alice", "", availability())
	require.NoError(t, err)
	assert.Empty(t, updated.Availability)
	assert.True(t, updated.CreatedAt.Equal(testNow), "creation time is preserved")

	stats, err := f.memory.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.PersonCount, "only the first write creates")
}

func TestUpdatePerson_Password(t *testing.T) {
	f := newFixture(true)
	seedEvent(t, f, "lunch-123456")
	svc := NewPersonService(f.deps, testHasher())
	ctx := context.Background()

	_, err := svc.UpdatePerson(ctx, "lunch-123456", "Bob", "hunter2", availability("0900-01032026"))
	require.NoError(t, err)

	stored, err := f.memory.GetPerson(ctx, "lunch-123456", "Bob")
	require.NoError(t, err)
	require.True(t, stored.HasPassword())
	assert.NotEqual(t, "hunter2", *stored.PasswordHash)

	_, err = svc.UpdatePerson(ctx, "lunch-123456", "Bob", "wrong", availability())
	assert.ErrorIs(t, err, ErrNotAuthorized)

	_, err = svc.UpdatePerson(ctx, "lunch-123456", "Bob", "", availability())
	assert.ErrorIs(t, err, ErrNotAuthorized)

	updated, err := svc.UpdatePerson(ctx, "lunch-123456", "Bob", "hunter2", availability("1000-01032026"))
	require.NoError(t, err)
	assert.Equal(t, []string{"1000-01032026"}, updated.Availability)

	stored, err = f.memory.GetPerson(ctx, "lunch-123456", "Bob")
	require.NoError(t, err)
	assert.True(t, stored.HasPassword(), "hash survives updates")
}

func TestUpdatePerson_UnprotectedIgnoresPassword(t *testing.T) {
	f := newFixture(true)
	seedEvent(t, f, "lunch-123456")
	svc := NewPersonService(f.deps, testHasher())
	ctx := context.Background()

	_, err := svc.UpdatePerson(ctx, "lunch-123456", "Carol", "", availability())
	require.NoError(t, err)

	_, err = svc.UpdatePerson(ctx, "lunch-123456", "Carol", "anything", availability("0900-01032026"))
	assert.NoError(t, err)
}

func TestUpdatePerson_Errors(t *testing.T) {
	f := newFixture(true)
	seedEvent(t, f, "lunch-123456")
	svc := NewPersonService(f.deps, testHasher())
	ctx := context.Background()

	_, err := svc.UpdatePerson(ctx, "missing-123456", "Alice", "", availability())
	assert.ErrorIs(t, err, ErrEventNotFound)

	_, err = svc.UpdatePerson(ctx, "lunch-123456", "Alice", "", availability("not-a-time"))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "availability")

	_, err = svc.UpdatePerson(ctx, "lunch-123456", "   ", "", availability())
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "name")

	_, err = svc.UpdatePerson(ctx, "lunch-123456", "Dave", strings.Repeat("x", 80), availability())
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "password")
}

func TestGetPerson(t *testing.T) {
	f := newFixture(true)
	seedEvent(t, f, "lunch-123456")
	svc := NewPersonService(f.deps, testHasher())
	ctx := context.Background()

	_, err := svc.GetPerson(ctx, "missing-123456", "Alice", "")
	assert.ErrorIs(t, err, ErrEventNotFound)

	_, err = svc.GetPerson(ctx, "lunch-123456", "Alice", "")
	assert.ErrorIs(t, err, ErrPersonNotFound)

	_, err = svc.UpdatePerson(ctx, "lunch-123456", "Alice", "secret", availability("0900-01032026"))
	require.NoError(t, err)

	_, err = svc.GetPerson(ctx, "lunch-123456", "Alice", "nope")
	assert.ErrorIs(t, err, ErrNotAuthorized)

	person, err := svc.GetPerson(ctx, "lunch-123456", "Alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, []string{"0900-01032026"}, person.Availability)

	// names are exact matches
	_, err = svc.GetPerson(ctx, "lunch-123456", "alice", "secret")
	assert.ErrorIs(t, err, ErrPersonNotFound)
}

func TestPersonName_StoredAsGiven(t *testing.T) {
	f := newFixture(true)
	seedEvent(t, f, "lunch-123456")
	svc := NewPersonService(f.deps, testHasher())
	ctx := context.Background()

	_, err := svc.UpdatePerson(ctx, "lunch-123456", "Alice", "", availability("0900-01032026"))
	require.NoError(t, err)

	padded, err := svc.UpdatePerson(ctx, "lunch-123456", " Alice ", "", availability())
	require.NoError(t, err)
	assert.Equal(t, " Alice ", padded.Name)

	alice, err := svc.GetPerson(ctx, "lunch-123456", "Alice", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"0900-01032026"}, alice.Availability, "padded name must not overwrite")

	got, err := svc.GetPerson(ctx, "lunch-123456", " Alice ", "")
	require.NoError(t, err)
	assert.Empty(t, got.Availability)

	people, err := svc.GetPeople(ctx, "lunch-123456")
	require.NoError(t, err)
	assert.Len(t, people, 2)
}

func TestGetPeople(t *testing.T) {
	f := newFixture(true)
	seedEvent(t, f, "lunch-123456")
	svc := NewPersonService(f.deps, testHasher())
	ctx := context.Background()

	_, err := svc.GetPeople(ctx, "missing-123456")
	assert.ErrorIs(t, err, ErrEventNotFound)

	people, err := svc.GetPeople(ctx, "lunch-123456")
	require.NoError(t, err)
	assert.Empty(t, people)

	_, err = svc.UpdatePerson(ctx, "lunch-123456", "Alice", "", availability())
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	_, err = svc.UpdatePerson(ctx, "lunch-123456", "Bob", "", availability())
	require.NoError(t, err)

	people, err = svc.GetPeople(ctx, "lunch-123456")
	require.NoError(t, err)
	require.Len(t, people, 2)
	assert.Equal(t, "Alice", people[0].Name)
	assert.Equal(t, "Bob", people[1].Name)
}

func TestPersonOps_TouchEvent(t *testing.T) {
	f := newFixture(true)
	seedEvent(t, f, "lunch-123456")
	svc := NewPersonService(f.deps, testHasher())

	f.clock.Advance(48 * time.Hour)
	_, err := svc.GetPeople(context.Background(), "lunch-123456")
	require.NoError(t, err)

	result, err := f.memory.DeleteEvents(context.Background(), testNow.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.EventCount)
}

func TestBcryptHasher(t *testing.T) {
	h := testHasher()
	hash, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.True(t, h.Matches(hash, "correct horse"))
	assert.False(t, h.Matches(hash, "battery staple"))
	assert.False(t, h.Matches("not-a-hash", "correct horse"))
}
