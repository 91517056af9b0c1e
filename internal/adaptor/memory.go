package adaptor

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/prohmpiriya/jelli-fit/internal/domain"
)

// MemoryAdaptor is an in-process Adaptor. Data lives as long as the process.
type MemoryAdaptor struct {
	mu     sync.RWMutex
	stats  domain.Stats
	events map[string]*domain.Event
	people map[string]map[string]*domain.Person // eventID -> name -> person
	now    func() time.Time
}

// MemoryOption configures a MemoryAdaptor
type MemoryOption func(*MemoryAdaptor)

// WithClock overrides the time source used to advance VisitedAt
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryAdaptor) {
		m.now = now
	}
}

// NewMemoryAdaptor creates an empty in-memory adaptor
func NewMemoryAdaptor(opts ...MemoryOption) *MemoryAdaptor {
	m := &MemoryAdaptor{
		events: make(map[string]*domain.Event),
		people: make(map[string]map[string]*domain.Person),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetStats returns the counters
func (m *MemoryAdaptor) GetStats(ctx context.Context) (*domain.Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := m.stats
	return &stats, nil
}

// IncrementStatEventCount bumps the event counter
func (m *MemoryAdaptor) IncrementStatEventCount(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats.EventCount++
	return m.stats.EventCount, nil
}

// IncrementStatPersonCount bumps the person counter
func (m *MemoryAdaptor) IncrementStatPersonCount(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats.PersonCount++
	return m.stats.PersonCount, nil
}

// GetEvent returns the event and marks it visited
func (m *MemoryAdaptor) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	event, exists := m.events[id]
	if !exists {
		return nil, nil
	}
	event.VisitedAt = m.now()
	return copyEvent(event), nil
}

// CreateEvent stores a new event
func (m *MemoryAdaptor) CreateEvent(ctx context.Context, event *domain.Event) (*domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.events[event.ID]; exists {
		return nil, ErrEventExists
	}
	m.events[event.ID] = copyEvent(event)
	return copyEvent(event), nil
}

// GetPeople returns the event's people ordered by creation, nil if the event
// is absent
func (m *MemoryAdaptor) GetPeople(ctx context.Context, eventID string) ([]*domain.Person, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, exists := m.events[eventID]; !exists {
		return nil, nil
	}

	people := make([]*domain.Person, 0, len(m.people[eventID]))
	for _, p := range m.people[eventID] {
		people = append(people, copyPerson(p))
	}
	sort.Slice(people, func(i, j int) bool {
		if people[i].CreatedAt.Equal(people[j].CreatedAt) {
			return people[i].Name < people[j].Name
		}
		return people[i].CreatedAt.Before(people[j].CreatedAt)
	})
	return people, nil
}

// GetPerson returns one person by exact name
func (m *MemoryAdaptor) GetPerson(ctx context.Context, eventID, name string) (*domain.Person, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, exists := m.people[eventID][name]
	if !exists {
		return nil, nil
	}
	return copyPerson(p), nil
}

// UpdatePerson upserts a person. The event must exist.
func (m *MemoryAdaptor) UpdatePerson(ctx context.Context, eventID string, person *domain.Person) (*domain.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.events[eventID]; !exists {
		return nil, nil
	}

	byName, ok := m.people[eventID]
	if !ok {
		byName = make(map[string]*domain.Person)
		m.people[eventID] = byName
	}
	byName[person.Name] = copyPerson(person)
	return copyPerson(person), nil
}

// DeleteEvents removes every event last visited before the cutoff
func (m *MemoryAdaptor) DeleteEvents(ctx context.Context, before time.Time) (*domain.CleanupResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := &domain.CleanupResult{}
	for id, event := range m.events {
		if !event.VisitedAt.Before(before) {
			continue
		}
		result.EventCount++
		result.PersonCount += int64(len(m.people[id]))
		delete(m.events, id)
		delete(m.people, id)
	}
	return result, nil
}

func copyEvent(e *domain.Event) *domain.Event {
	copied := *e
	copied.Times = slices.Clone(e.Times)
	return &copied
}

func copyPerson(p *domain.Person) *domain.Person {
	copied := *p
	copied.Availability = slices.Clone(p.Availability)
	if p.PasswordHash != nil {
		hash := *p.PasswordHash
		copied.PasswordHash = &hash
	}
	return &copied
}
