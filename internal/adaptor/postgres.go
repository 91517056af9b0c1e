package adaptor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/prohmpiriya/jelli-fit/internal/domain"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS stats (
		id           SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
		event_count  BIGINT NOT NULL DEFAULT 0,
		person_count BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		visited_at TIMESTAMPTZ NOT NULL,
		times      TEXT[] NOT NULL,
		timezone   TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_visited_at ON events (visited_at)`,
	`CREATE TABLE IF NOT EXISTS people (
		event_id      TEXT NOT NULL REFERENCES events (id) ON DELETE CASCADE,
		name          TEXT NOT NULL,
		password_hash TEXT,
		availability  TEXT[] NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (event_id, name)
	)`,
}

const eventColumns = `id, name, created_at, visited_at, times, timezone`

const personColumns = `name, password_hash, availability, created_at`

// DB is the part of *database.PostgresDB the adaptor runs its queries on
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) error
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// PostgresAdaptor implements Adaptor using PostgreSQL
type PostgresAdaptor struct {
	db  DB
	now func() time.Time
}

// NewPostgresAdaptor creates a new PostgresAdaptor
func NewPostgresAdaptor(db DB) *PostgresAdaptor {
	return &PostgresAdaptor{db: db, now: time.Now}
}

// Migrate creates the tables if they do not exist
func (r *PostgresAdaptor) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if err := r.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func scanEvent(row pgx.Row) (*domain.Event, error) {
	event := &domain.Event{}
	err := row.Scan(
		&event.ID,
		&event.Name,
		&event.CreatedAt,
		&event.VisitedAt,
		&event.Times,
		&event.Timezone,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return event, nil
}

func scanPerson(row pgx.Row) (*domain.Person, error) {
	person := &domain.Person{}
	err := row.Scan(
		&person.Name,
		&person.PasswordHash,
		&person.Availability,
		&person.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return person, nil
}

// GetStats returns the counters, zero if never incremented
func (r *PostgresAdaptor) GetStats(ctx context.Context) (*domain.Stats, error) {
	stats := &domain.Stats{}
	err := r.db.QueryRow(ctx,
		`SELECT event_count, person_count FROM stats WHERE id = 1`,
	).Scan(&stats.EventCount, &stats.PersonCount)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	return stats, nil
}

// IncrementStatEventCount bumps the event counter
func (r *PostgresAdaptor) IncrementStatEventCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO stats (id, event_count) VALUES (1, 1)
		ON CONFLICT (id) DO UPDATE SET event_count = stats.event_count + 1
		RETURNING event_count
	`).Scan(&count)
	return count, err
}

// IncrementStatPersonCount bumps the person counter
func (r *PostgresAdaptor) IncrementStatPersonCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO stats (id, person_count) VALUES (1, 1)
		ON CONFLICT (id) DO UPDATE SET person_count = stats.person_count + 1
		RETURNING person_count
	`).Scan(&count)
	return count, err
}

// GetEvent returns the event and marks it visited
func (r *PostgresAdaptor) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	query := `UPDATE events SET visited_at = $2 WHERE id = $1 RETURNING ` + eventColumns
	return scanEvent(r.db.QueryRow(ctx, query, id, r.now()))
}

// CreateEvent inserts a new event unless the id is taken
func (r *PostgresAdaptor) CreateEvent(ctx context.Context, event *domain.Event) (*domain.Event, error) {
	query := `
		INSERT INTO events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
		RETURNING ` + eventColumns
	created, err := scanEvent(r.db.QueryRow(ctx, query,
		event.ID,
		event.Name,
		event.CreatedAt,
		event.VisitedAt,
		nonNil(event.Times),
		event.Timezone,
	))
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, ErrEventExists
	}
	return created, nil
}

// GetPeople returns the event's people ordered by creation, nil if the event
// is absent
func (r *PostgresAdaptor) GetPeople(ctx context.Context, eventID string) ([]*domain.Person, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, eventID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+personColumns+` FROM people WHERE event_id = $1 ORDER BY created_at ASC, name ASC`,
		eventID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	people := []*domain.Person{}
	for rows.Next() {
		person := &domain.Person{}
		if err := rows.Scan(
			&person.Name,
			&person.PasswordHash,
			&person.Availability,
			&person.CreatedAt,
		); err != nil {
			return nil, err
		}
		people = append(people, person)
	}
	return people, rows.Err()
}

// GetPerson returns one person by exact name
func (r *PostgresAdaptor) GetPerson(ctx context.Context, eventID, name string) (*domain.Person, error) {
	query := `SELECT ` + personColumns + ` FROM people WHERE event_id = $1 AND name = $2`
	return scanPerson(r.db.QueryRow(ctx, query, eventID, name))
}

// UpdatePerson upserts a person. A nil password hash keeps the stored one.
func (r *PostgresAdaptor) UpdatePerson(ctx context.Context, eventID string, person *domain.Person) (*domain.Person, error) {
	query := `
		INSERT INTO people (event_id, ` + personColumns + `)
		SELECT $1, $2, $3, $4, $5 WHERE EXISTS (SELECT 1 FROM events WHERE id = $1)
		ON CONFLICT (event_id, name) DO UPDATE SET
			availability  = EXCLUDED.availability,
			password_hash = COALESCE(EXCLUDED.password_hash, people.password_hash)
		RETURNING ` + personColumns
	return scanPerson(r.db.QueryRow(ctx, query,
		eventID,
		person.Name,
		person.PasswordHash,
		nonNil(person.Availability),
		person.CreatedAt,
	))
}

// DeleteEvents removes events last visited before the cutoff. People go with
// them through the foreign key cascade.
func (r *PostgresAdaptor) DeleteEvents(ctx context.Context, before time.Time) (*domain.CleanupResult, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	result := &domain.CleanupResult{}
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM people p
		JOIN events e ON e.id = p.event_id
		WHERE e.visited_at < $1
	`, before).Scan(&result.PersonCount)
	if err != nil {
		return nil, err
	}

	tag, err := tx.Exec(ctx, `DELETE FROM events WHERE visited_at < $1`, before)
	if err != nil {
		return nil, err
	}
	result.EventCount = tag.RowsAffected()

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return result, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
