package adaptor

import (
	"context"
	"errors"
	"time"

	"github.com/prohmpiriya/jelli-fit/internal/domain"
)

// ErrEventExists is returned by CreateEvent when the id is already stored
var ErrEventExists = errors.New("event already exists")

// Adaptor is the storage contract every backend implements.
//
// Lookups return (nil, nil) when the entity is absent. GetEvent advances the
// event's VisitedAt to the current time on every successful read, which is
// what keeps active events out of the retention sweep.
type Adaptor interface {
	GetStats(ctx context.Context) (*domain.Stats, error)
	IncrementStatEventCount(ctx context.Context) (int64, error)
	IncrementStatPersonCount(ctx context.Context) (int64, error)

	GetEvent(ctx context.Context, id string) (*domain.Event, error)
	// CreateEvent inserts only if the id is free, otherwise ErrEventExists
	CreateEvent(ctx context.Context, event *domain.Event) (*domain.Event, error)

	GetPeople(ctx context.Context, eventID string) ([]*domain.Person, error)
	GetPerson(ctx context.Context, eventID, name string) (*domain.Person, error)
	// UpdatePerson inserts or replaces the person keyed by (eventID, name)
	UpdatePerson(ctx context.Context, eventID string, person *domain.Person) (*domain.Person, error)

	// DeleteEvents removes events with VisitedAt strictly before cutoff and
	// their people
	DeleteEvents(ctx context.Context, before time.Time) (*domain.CleanupResult, error)
}
