package service

import (
	"context"
	"errors"
	"slices"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/prohmpiriya/jelli-fit/internal/adaptor"
	"github.com/prohmpiriya/jelli-fit/internal/domain"
	"github.com/prohmpiriya/jelli-fit/internal/dto"
	"github.com/prohmpiriya/jelli-fit/pkg/telemetry"
)

// personService implements the PersonService interface
type personService struct {
	Deps
	hasher PasswordHasher
}

// NewPersonService creates a new PersonService
func NewPersonService(deps Deps, hasher PasswordHasher) PersonService {
	if hasher == nil {
		hasher = NewBcryptHasher(0)
	}
	return &personService{
		Deps:   deps.withDefaults(),
		hasher: hasher,
	}
}

// GetPeople lists everyone who has responded to the event
func (s *personService) GetPeople(ctx context.Context, eventID string) ([]*domain.Person, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.GetPeople")
	defer span.End()
	span.SetAttributes(telemetry.EventIDAttr(eventID))

	var people []*domain.Person
	err := s.Serializer.Do(ctx, func(a adaptor.Adaptor) error {
		event, err := a.GetEvent(ctx, eventID)
		if err != nil {
			return adaptorErr("get_event", err)
		}
		if event == nil {
			return ErrEventNotFound
		}

		people, err = a.GetPeople(ctx, eventID)
		if err != nil {
			return adaptorErr("get_people", err)
		}
		if people == nil {
			// deleted between the two reads
			return ErrEventNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return people, nil
}

// GetPerson returns one person, checking their password if they set one
func (s *personService) GetPerson(ctx context.Context, eventID, name, password string) (*domain.Person, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.GetPerson")
	defer span.End()
	span.SetAttributes(telemetry.EventIDAttr(eventID))

	var person *domain.Person
	err := s.Serializer.Do(ctx, func(a adaptor.Adaptor) error {
		event, err := a.GetEvent(ctx, eventID)
		if err != nil {
			return adaptorErr("get_event", err)
		}
		if event == nil {
			return ErrEventNotFound
		}

		person, err = a.GetPerson(ctx, eventID, name)
		if err != nil {
			return adaptorErr("get_person", err)
		}
		if person == nil {
			return ErrPersonNotFound
		}
		return s.authorize(person, password)
	})
	if err != nil {
		return nil, err
	}
	return person, nil
}

// UpdatePerson replaces a person's availability, creating the person on
// first use. A password presented at creation protects later updates.
func (s *personService) UpdatePerson(ctx context.Context, eventID, name, password string, req *dto.UpdatePersonRequest) (*domain.Person, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.UpdatePerson")
	defer span.End()
	span.SetAttributes(telemetry.EventIDAttr(eventID))

	if err := validateUpdatePerson(name, req); err != nil {
		return nil, err
	}

	availability := slices.Clone(req.Availability)
	if availability == nil {
		availability = []string{}
	}

	var (
		updated *domain.Person
		created bool
	)
	err := s.Serializer.Do(ctx, func(a adaptor.Adaptor) error {
		event, err := a.GetEvent(ctx, eventID)
		if err != nil {
			return adaptorErr("get_event", err)
		}
		if event == nil {
			return ErrEventNotFound
		}

		existing, err := a.GetPerson(ctx, eventID, name)
		if err != nil {
			return adaptorErr("get_person", err)
		}

		person := existing
		if existing != nil {
			if err := s.authorize(existing, password); err != nil {
				return err
			}
			person.Availability = availability
		} else {
			person = &domain.Person{
				Name:         name,
				Availability: availability,
				CreatedAt:    s.Now().UTC(),
			}
			if password != "" {
				hash, err := s.hasher.Hash(password)
				if errors.Is(err, bcrypt.ErrPasswordTooLong) {
					return &ValidationError{Fields: map[string]string{"password": "password is too long"}}
				}
				if err != nil {
					return err
				}
				person.PasswordHash = &hash
			}
		}

		updated, err = a.UpdatePerson(ctx, eventID, person)
		if err != nil {
			return adaptorErr("update_person", err)
		}
		if updated == nil {
			return ErrEventNotFound
		}

		if existing == nil {
			created = true
			if _, err := a.IncrementStatPersonCount(ctx); err != nil {
				s.Logger.WarnContext(ctx, "failed to increment person count",
					zap.String("event_id", eventID),
					zap.Error(err),
				)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if created {
		s.Metrics.PeopleCreated.Inc(ctx, telemetry.EventIDAttr(eventID))
	}
	return updated, nil
}

func (s *personService) authorize(person *domain.Person, password string) error {
	if !person.HasPassword() {
		return nil
	}
	if password == "" || !s.hasher.Matches(*person.PasswordHash, password) {
		return ErrNotAuthorized
	}
	return nil
}
