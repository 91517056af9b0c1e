package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/prohmpiriya/jelli-fit/internal/domain"
	"github.com/prohmpiriya/jelli-fit/pkg/logger"
)

// Sweeper deletes stale events
type Sweeper interface {
	Sweep(ctx context.Context) (*domain.CleanupResult, error)
}

// CleanupWorkerConfig holds configuration for the cleanup worker
type CleanupWorkerConfig struct {
	// Interval between sweeps
	Interval time.Duration
}

// DefaultCleanupWorkerConfig returns default configuration
func DefaultCleanupWorkerConfig() *CleanupWorkerConfig {
	return &CleanupWorkerConfig{
		Interval: time.Hour,
	}
}

// CleanupWorkerStats holds worker statistics
type CleanupWorkerStats struct {
	IsRunning       bool      `json:"is_running"`
	Runs            int64     `json:"runs"`
	Failures        int64     `json:"failures"`
	TotalEvents     int64     `json:"total_events"`
	TotalPeople     int64     `json:"total_people"`
	LastRunTime     time.Time `json:"last_run_time"`
	LastEventCount  int64     `json:"last_event_count"`
	LastPersonCount int64     `json:"last_person_count"`
}

// CleanupWorker periodically runs the retention sweep in-process
type CleanupWorker struct {
	sweeper Sweeper
	config  *CleanupWorkerConfig
	log     *logger.Logger

	mu              sync.RWMutex
	running         bool
	stopCh          chan struct{}
	doneCh          chan struct{}
	runs            int64
	failures        int64
	totalEvents     int64
	totalPeople     int64
	lastRunTime     time.Time
	lastEventCount  int64
	lastPersonCount int64
}

// NewCleanupWorker creates a new cleanup worker. A nil config selects the
// defaults.
func NewCleanupWorker(sweeper Sweeper, log *logger.Logger, config *CleanupWorkerConfig) *CleanupWorker {
	if config == nil {
		config = DefaultCleanupWorkerConfig()
	}
	if config.Interval <= 0 {
		config.Interval = DefaultCleanupWorkerConfig().Interval
	}
	if log == nil {
		log = logger.Get()
	}
	return &CleanupWorker{
		sweeper: sweeper,
		config:  config,
		log:     log,
	}
}

// Start runs the sweep loop until ctx is cancelled or Stop is called.
// Calling Start on a running worker is a no-op.
func (w *CleanupWorker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	w.log.Info("cleanup worker started", zap.Duration("interval", w.config.Interval))

	go func() {
		defer close(doneCh)
		defer func() {
			w.mu.Lock()
			w.running = false
			w.mu.Unlock()
			w.log.Info("cleanup worker stopped")
		}()

		ticker := time.NewTicker(w.config.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-stopCh:
				return
			case <-ticker.C:
				w.RunOnce(ctx)
			}
		}
	}()
}

// Stop signals the loop to exit and waits for it
func (w *CleanupWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	stopCh, doneCh := w.stopCh, w.doneCh
	w.stopCh = nil
	w.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
	}
	<-doneCh
}

// RunOnce performs a single sweep and records its outcome
func (w *CleanupWorker) RunOnce(ctx context.Context) {
	result, err := w.sweeper.Sweep(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.runs++
	w.lastRunTime = time.Now()
	if err != nil {
		w.failures++
		w.log.Error("cleanup sweep failed", zap.Error(err))
		return
	}
	w.totalEvents += result.EventCount
	w.totalPeople += result.PersonCount
	w.lastEventCount = result.EventCount
	w.lastPersonCount = result.PersonCount
}

// GetStats returns worker statistics
func (w *CleanupWorker) GetStats() *CleanupWorkerStats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return &CleanupWorkerStats{
		IsRunning:       w.running,
		Runs:            w.runs,
		Failures:        w.failures,
		TotalEvents:     w.totalEvents,
		TotalPeople:     w.totalPeople,
		LastRunTime:     w.lastRunTime,
		LastEventCount:  w.lastEventCount,
		LastPersonCount: w.lastPersonCount,
	}
}
