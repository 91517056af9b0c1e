package service

import (
	"context"
	"crypto/subtle"
	"time"

	"go.uber.org/zap"

	"github.com/prohmpiriya/jelli-fit/internal/adaptor"
	"github.com/prohmpiriya/jelli-fit/internal/domain"
	"github.com/prohmpiriya/jelli-fit/pkg/kafka"
	"github.com/prohmpiriya/jelli-fit/pkg/telemetry"
)

// DefaultRetention is how long an event survives without being visited
const DefaultRetention = 90 * 24 * time.Hour

// CleanupConfig configures the retention sweep
type CleanupConfig struct {
	// CronKey, when set, must be presented to Cleanup
	CronKey   string
	Retention time.Duration
}

// cleanupService implements the CleanupService interface
type cleanupService struct {
	Deps
	config CleanupConfig
}

// NewCleanupService creates a new CleanupService
func NewCleanupService(deps Deps, config CleanupConfig) CleanupService {
	if config.Retention <= 0 {
		config.Retention = DefaultRetention
	}
	return &cleanupService{
		Deps:   deps.withDefaults(),
		config: config,
	}
}

// CleanupCompletedMessage is published after each sweep
type CleanupCompletedMessage struct {
	EventCount  int64 `json:"event_count"`
	PersonCount int64 `json:"person_count"`
	Cutoff      int64 `json:"cutoff"`
}

func (s *cleanupService) Cleanup(ctx context.Context, presentedKey string) (*domain.CleanupResult, error) {
	if s.config.CronKey != "" &&
		subtle.ConstantTimeCompare([]byte(presentedKey), []byte(s.config.CronKey)) != 1 {
		s.Logger.WarnContext(ctx, "cleanup rejected: cron key mismatch",
			zap.Bool("key_presented", presentedKey != ""),
		)
		return nil, ErrNotAuthorized
	}
	return s.Sweep(ctx)
}

func (s *cleanupService) Sweep(ctx context.Context) (*domain.CleanupResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.Cleanup")
	defer span.End()

	cutoff := s.Now().UTC().Add(-s.config.Retention)

	var result *domain.CleanupResult
	err := s.Serializer.Do(ctx, func(a adaptor.Adaptor) error {
		var err error
		result, err = a.DeleteEvents(ctx, cutoff)
		return adaptorErr("delete_events", err)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.InfoContext(ctx, "cleanup completed",
		zap.Int64("events_removed", result.EventCount),
		zap.Int64("people_removed", result.PersonCount),
		zap.Time("cutoff", cutoff),
	)
	s.Metrics.EventsRemoved.Add(ctx, result.EventCount)
	s.Metrics.PeopleRemoved.Add(ctx, result.PersonCount)
	s.publish(ctx, kafka.Message{
		Key:  "cleanup",
		Type: MessageCleanupCompleted,
		Payload: CleanupCompletedMessage{
			EventCount:  result.EventCount,
			PersonCount: result.PersonCount,
			Cutoff:      cutoff.Unix(),
		},
	})
	return result, nil
}
