package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/prohmpiriya/jelli-fit/internal/adaptor"
	"github.com/prohmpiriya/jelli-fit/internal/domain"
	"github.com/prohmpiriya/jelli-fit/internal/dto"
	"github.com/prohmpiriya/jelli-fit/pkg/kafka"
	"github.com/prohmpiriya/jelli-fit/pkg/logger"
	"github.com/prohmpiriya/jelli-fit/pkg/telemetry"
)

// EventService creates and reads events
type EventService interface {
	CreateEvent(ctx context.Context, req *dto.CreateEventRequest) (*domain.Event, error)
	GetEvent(ctx context.Context, id string) (*domain.Event, error)
}

// PersonService reads and updates an event's people. An empty password
// means none was presented.
type PersonService interface {
	GetPeople(ctx context.Context, eventID string) ([]*domain.Person, error)
	GetPerson(ctx context.Context, eventID, name, password string) (*domain.Person, error)
	UpdatePerson(ctx context.Context, eventID, name, password string, req *dto.UpdatePersonRequest) (*domain.Person, error)
}

// StatsService reads the running counters
type StatsService interface {
	GetStats(ctx context.Context) (*domain.Stats, error)
}

// CleanupService runs the retention sweep
type CleanupService interface {
	// Cleanup checks the presented cron key, then sweeps
	Cleanup(ctx context.Context, presentedKey string) (*domain.CleanupResult, error)
	// Sweep deletes stale events without a key check, for internal callers
	Sweep(ctx context.Context) (*domain.CleanupResult, error)
}

// Kafka message types
const (
	MessageEventCreated     = "event.created"
	MessageCleanupCompleted = "cleanup.completed"
)

// Deps are the collaborators shared by every service
type Deps struct {
	Serializer *adaptor.Serializer
	Publisher  kafka.Publisher
	Metrics    *telemetry.Metrics
	Logger     *logger.Logger
	Now        func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Publisher == nil {
		d.Publisher = kafka.NopPublisher{}
	}
	if d.Metrics == nil {
		d.Metrics = &telemetry.Metrics{}
	}
	if d.Logger == nil {
		d.Logger = logger.Get()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// publish sends a notification, logging instead of failing the request
func (d Deps) publish(ctx context.Context, msg kafka.Message) {
	if err := d.Publisher.Publish(ctx, msg); err != nil {
		d.Logger.WarnContext(ctx, "failed to publish message",
			zap.String("type", msg.Type),
			zap.String("key", msg.Key),
			zap.Error(err),
		)
	}
}
