package testfixtures

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/example/akiya-reservations/internal/application"
	"github.com/example/akiya-reservations/internal/drafts"
	"github.com/example/akiya-reservations/internal/wiring"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks. Visit dates resolve in Clock's zone.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Logger      *logrus.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}, JST),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{}, JST)
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithLogger routes service logs to logger.
func WithLogger(logger *logrus.Logger) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Logger = logger
	}
}

// Stack is a fully wired service set over an in-memory database.
type Stack struct {
	*SQLiteHarness
	Services wiring.Services
	Drafts   *drafts.MemoryStore
}

// NewStack builds every service over a fresh SQLite harness. Session tokens
// come from the generator's "token" sequence.
func (f *ServiceFactory) NewStack(tb testing.TB) *Stack {
	tb.Helper()

	harness := NewSQLiteHarness(tb)
	draftStore := drafts.NewMemoryStore(f.Clock.NowFunc())

	services := wiring.Build(harness.Store, wiring.Options{
		Now:            f.Clock.NowFunc(),
		IDGenerator:    f.IDGenerator.NextFunc(),
		TokenGenerator: func() string { return f.IDGenerator.NextFor("token") },
		SessionTTL:     time.Hour,
		Location:       f.Clock.Location(),
		Drafts:         draftStore,
		DraftTTL:       30 * time.Minute,
		HashPassword:   application.PasswordHasher(HashPassword),
		Logger:         f.Logger,
	})

	return &Stack{SQLiteHarness: harness, Services: services, Drafts: draftStore}
}
