package domain

import "time"

// Event is a proposed set of candidate meeting times
type Event struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	VisitedAt time.Time `json:"visited_at"`
	Times     []string  `json:"times"`
	Timezone  string    `json:"timezone"`
}

// Person is an attendee's availability within one event
type Person struct {
	Name         string    `json:"name"`
	PasswordHash *string   `json:"-"`
	Availability []string  `json:"availability"`
	CreatedAt    time.Time `json:"created_at"`
}

// HasPassword reports whether the person is password protected
func (p *Person) HasPassword() bool {
	return p.PasswordHash != nil && *p.PasswordHash != ""
}

// Stats are the persisted running counters
type Stats struct {
	EventCount  int64 `json:"event_count"`
	PersonCount int64 `json:"person_count"`
}

// CleanupResult is the number of rows removed by one retention sweep
type CleanupResult struct {
	EventCount  int64 `json:"event_count"`
	PersonCount int64 `json:"person_count"`
}
