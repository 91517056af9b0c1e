package service

import (
	"context"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/prohmpiriya/jelli-fit/internal/adaptor"
	"github.com/prohmpiriya/jelli-fit/internal/domain"
	"github.com/prohmpiriya/jelli-fit/pkg/kafka"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingPublisher keeps every published message
type recordingPublisher struct {
	mu       sync.Mutex
	messages []kafka.Message
}

func (p *recordingPublisher) Publish(_ context.Context, msg kafka.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return nil
}

func (p *recordingPublisher) Close() {}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.messages))
	for _, m := range p.messages {
		out = append(out, m.Type)
	}
	return out
}

// faultyAdaptor wraps an adaptor and injects failures
type faultyAdaptor struct {
	adaptor.Adaptor

	getEventErr     error
	incrementErr    error
	deleteErr       error
	createConflicts int
	createCalls     int
	getEventCalls   int
}

func (f *faultyAdaptor) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	f.getEventCalls++
	if f.getEventErr != nil {
		return nil, f.getEventErr
	}
	return f.Adaptor.GetEvent(ctx, id)
}

func (f *faultyAdaptor) CreateEvent(ctx context.Context, event *domain.Event) (*domain.Event, error) {
	f.createCalls++
	if f.createConflicts > 0 {
		f.createConflicts--
		return nil, adaptor.ErrEventExists
	}
	return f.Adaptor.CreateEvent(ctx, event)
}

func (f *faultyAdaptor) IncrementStatEventCount(ctx context.Context) (int64, error) {
	if f.incrementErr != nil {
		return 0, f.incrementErr
	}
	return f.Adaptor.IncrementStatEventCount(ctx)
}

func (f *faultyAdaptor) IncrementStatPersonCount(ctx context.Context) (int64, error) {
	if f.incrementErr != nil {
		return 0, f.incrementErr
	}
	return f.Adaptor.IncrementStatPersonCount(ctx)
}

func (f *faultyAdaptor) DeleteEvents(ctx context.Context, before time.Time) (*domain.CleanupResult, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	return f.Adaptor.DeleteEvents(ctx, before)
}

type fixture struct {
	clock     *clock
	memory    *adaptor.MemoryAdaptor
	publisher *recordingPublisher
	deps      Deps
}

func newFixture(serialize bool) *fixture {
	c := &clock{now: testNow}
	mem := adaptor.NewMemoryAdaptor(adaptor.WithClock(c.Now))
	pub := &recordingPublisher{}
	return &fixture{
		clock:     c,
		memory:    mem,
		publisher: pub,
		deps: Deps{
			Serializer: adaptor.NewSerializer(mem, serialize),
			Publisher:  pub,
			Now:        c.Now,
		},
	}
}

func (f *fixture) withAdaptor(a adaptor.Adaptor) *fixture {
	f.deps.Serializer = adaptor.NewSerializer(a, true)
	return f
}

func testHasher() PasswordHasher {
	return NewBcryptHasher(bcrypt.MinCost)
}

func strPtr(s string) *string {
	return &s
}
