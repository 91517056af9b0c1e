package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/prohmpiriya/jelli-fit/internal/adaptor"
	"github.com/prohmpiriya/jelli-fit/internal/domain"
	"github.com/prohmpiriya/jelli-fit/internal/dto"
	"github.com/prohmpiriya/jelli-fit/internal/ident"
	"github.com/prohmpiriya/jelli-fit/pkg/kafka"
	"github.com/prohmpiriya/jelli-fit/pkg/telemetry"
)

// eventService implements the EventService interface
type eventService struct {
	Deps
	allocator *ident.Allocator
}

// NewEventService creates a new EventService
func NewEventService(deps Deps, allocator *ident.Allocator) EventService {
	return &eventService{
		Deps:      deps.withDefaults(),
		allocator: allocator,
	}
}

// EventCreatedMessage is published after an event is stored
type EventCreatedMessage struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"created_at"`
}

// CreateEvent validates the request, allocates an id and stores the event
func (s *eventService) CreateEvent(ctx context.Context, req *dto.CreateEventRequest) (*domain.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.CreateEvent")
	defer span.End()

	if err := validateCreateEvent(req); err != nil {
		return nil, err
	}

	name := ""
	if req.Name != nil {
		name = *req.Name
	}
	display, slug := s.allocator.Resolve(name)

	var created *domain.Event
	err := s.Serializer.Do(ctx, func(a adaptor.Adaptor) error {
		now := s.Now().UTC()

		// A write can still lose the id to a concurrent create when the
		// serializer is disabled; allocate again from the same budget.
		budget := s.allocator.NewBudget()
		for {
			id, err := s.allocator.AllocateWithin(ctx, a, slug, budget)
			if err != nil {
				if errors.Is(err, ident.ErrAllocationExhausted) {
					return err
				}
				return adaptorErr("get_event", err)
			}

			event, err := a.CreateEvent(ctx, &domain.Event{
				ID:        id,
				Name:      display,
				CreatedAt: now,
				VisitedAt: now,
				Times:     req.Times,
				Timezone:  req.Timezone,
			})
			if errors.Is(err, adaptor.ErrEventExists) {
				s.Metrics.AllocationRetry.Inc(ctx)
				continue
			}
			if err != nil {
				return adaptorErr("create_event", err)
			}
			created = event

			if _, err := a.IncrementStatEventCount(ctx); err != nil {
				s.Logger.WarnContext(ctx, "failed to increment event count",
					zap.String("event_id", id),
					zap.Error(err),
				)
			}
			return nil
		}
	})
	if err != nil {
		return nil, err
	}

	s.Metrics.EventsCreated.Inc(ctx)
	s.publish(ctx, kafka.Message{
		Key:  created.ID,
		Type: MessageEventCreated,
		Payload: EventCreatedMessage{
			ID:        created.ID,
			Name:      created.Name,
			CreatedAt: created.CreatedAt.Unix(),
		},
	})

	s.Logger.InfoContext(ctx, "event created", zap.String("event_id", created.ID))
	return created, nil
}

// GetEvent returns the event and marks it visited
func (s *eventService) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.GetEvent")
	defer span.End()
	span.SetAttributes(telemetry.EventIDAttr(id))

	var event *domain.Event
	err := s.Serializer.Do(ctx, func(a adaptor.Adaptor) error {
		var err error
		event, err = a.GetEvent(ctx, id)
		return adaptorErr("get_event", err)
	})
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, ErrEventNotFound
	}
	return event, nil
}
