// Package service orchestrates accounts, scoring and notifications behind
// the HTTP API and CLI.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/lifespan/internal/adapters/cache"
	"github.com/okian/lifespan/internal/adapters/cache/memstore"
	eventqueue "github.com/okian/lifespan/internal/adapters/mq/queue"
	workerpool "github.com/okian/lifespan/internal/adapters/mq/worker"
	"github.com/okian/lifespan/internal/adapters/notify"
	"github.com/okian/lifespan/internal/adapters/repository"
	"github.com/okian/lifespan/internal/adapters/repository/memory"
	"github.com/okian/lifespan/internal/adapters/security"
	"github.com/okian/lifespan/internal/domain/dedupe"
	model "github.com/okian/lifespan/internal/domain/model"
	scoring "github.com/okian/lifespan/internal/domain/scoring"
	"github.com/okian/lifespan/internal/domain/types"
	"github.com/okian/lifespan/pkg/logger"
	"github.com/okian/lifespan/pkg/metrics"
)

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Compare returns security.ErrMismatch when password does not match.
	Compare(hash, password string) error
}

// TokenGenerator mints session tokens.
type TokenGenerator interface {
	NewToken() (string, error)
}

// CodeGenerator mints password reset codes.
type CodeGenerator interface {
	NewCode() (string, error)
}

// Service implements the operations exposed by the HTTP API and CLI.
type Service struct {
	mu sync.RWMutex

	store      repository.Store
	sessions   cache.Sessions
	limiter    cache.Limiter
	accounts   cache.Limiter
	resetCodes cache.ResetCodes
	registry   *scoring.Registry
	deduper    dedupe.Deduper
	hasher     PasswordHasher
	tokens     TokenGenerator
	codes      CodeGenerator
	notifier   workerpool.Handler

	eventQueue *eventqueue.InMemoryQueue
	workerPool *workerpool.Pool

	workerCount  int
	queueSize    int
	dedupeSize   int
	sessionTTL   time.Duration
	resetCodeTTL time.Duration

	now   func() time.Time
	newID func() string

	started   bool
	startedAt time.Time

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the account and prediction store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithSessions sets the session store.
func WithSessions(sessions cache.Sessions) Option {
	return func(s *Service) {
		if sessions != nil {
			s.sessions = sessions
		}
	}
}

// WithLimiter sets the login and reset attempt limiter.
func WithLimiter(limiter cache.Limiter) Option {
	return func(s *Service) {
		if limiter != nil {
			s.limiter = limiter
		}
	}
}

// WithAccountLimiter sets the limiter counting login failures per email
// across all clients.
func WithAccountLimiter(limiter cache.Limiter) Option {
	return func(s *Service) {
		if limiter != nil {
			s.accounts = limiter
		}
	}
}

// WithResetCodes sets the reset code store.
func WithResetCodes(codes cache.ResetCodes) Option {
	return func(s *Service) {
		if codes != nil {
			s.resetCodes = codes
		}
	}
}

// WithRegistry sets the rule set registry.
func WithRegistry(registry *scoring.Registry) Option {
	return func(s *Service) {
		if registry != nil {
			s.registry = registry
		}
	}
}

// WithHasher sets the password hasher.
func WithHasher(h PasswordHasher) Option {
	return func(s *Service) {
		if h != nil {
			s.hasher = h
		}
	}
}

// WithTokenGenerator sets the session token source.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(s *Service) {
		if g != nil {
			s.tokens = g
		}
	}
}

// WithCodeGenerator sets the reset code source.
func WithCodeGenerator(g CodeGenerator) Option {
	return func(s *Service) {
		if g != nil {
			s.codes = g
		}
	}
}

// WithNotifier sets the handler the worker pool delivers events to.
func WithNotifier(h workerpool.Handler) Option {
	return func(s *Service) {
		if h != nil {
			s.notifier = h
		}
	}
}

// WithWorkerCount sets the number of notification workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the notification queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many idempotency keys are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithSessionTTL sets how long a login stays valid.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithResetCodeTTL sets how long a reset code stays valid.
func WithResetCodeTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.resetCodeTTL = ttl
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides the id source for users, predictions and events.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. Collaborators not supplied by options fall back
// to in-process implementations.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:  runtime.NumCPU(),
		queueSize:    1024,
		dedupeSize:   10_000,
		sessionTTL:   24 * time.Hour,
		resetCodeTTL: 15 * time.Minute,
		hasher:       security.BcryptHasher{},
		tokens:       security.RandomTokenGenerator{},
		codes:        security.NumericCodeGenerator{},
		now:          time.Now,
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Named("service")
	}
	if s.store == nil {
		s.store = memory.New()
	}
	if s.sessions == nil {
		s.sessions = memstore.NewSessions(memstore.WithClock(s.now))
	}
	if s.limiter == nil {
		s.limiter = memstore.NewLimiter(5, 5*time.Minute, memstore.WithClock(s.now))
	}
	if s.accounts == nil {
		s.accounts = memstore.NewLimiter(20, 5*time.Minute, memstore.WithClock(s.now))
	}
	if s.resetCodes == nil {
		s.resetCodes = memstore.NewResetCodes(memstore.WithClock(s.now))
	}
	if s.registry == nil {
		reg, err := scoring.NewRegistry(scoring.RuleSetStandard)
		if err != nil {
			panic(fmt.Sprintf("built-in rule sets are invalid: %v", err))
		}
		s.registry = reg
	}
	if s.notifier == nil {
		s.notifier = notify.NewDispatcher(notify.LogMailer{Log: s.logger}, nil, s.logger)
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize), dedupe.WithClock(s.now))
	s.eventQueue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	return s
}

// Start launches the notification workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting lifespan service...")
	s.workerPool = workerpool.NewPool(s.workerCount, s.eventQueue, s.notifier, workerpool.WithLogger(s.logger))
	// Workers outlive the start context; Stop ends them.
	s.workerPool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.startedAt = s.now()
	s.logger.Info(ctx, "lifespan service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.String("ruleset", s.registry.ActiveName()),
	)
	return nil
}

// Stop drains pending notifications and closes the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return s.store.Close()
	}

	s.logger.Info(ctx, "stopping lifespan service...")
	var firstErr error
	if err := s.workerPool.Shutdown(ctx); err != nil {
		firstErr = err
	}
	if err := s.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	s.started = false
	s.logger.Info(ctx, "lifespan service stopped")
	return firstErr
}

// Registry returns the rule set registry, for hot reload wiring.
func (s *Service) Registry() *scoring.Registry {
	return s.registry
}

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Stats returns service counters.
func (s *Service) Stats(ctx context.Context) (types.Stats, error) {
	users, err := s.store.CountUsers(ctx)
	if err != nil {
		return types.Stats{}, err
	}
	predictions, err := s.store.CountPredictions(ctx)
	if err != nil {
		return types.Stats{}, err
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	goroutines := runtime.NumGoroutine()
	metrics.UpdateSystemMemoryUsage(mem.Alloc)
	metrics.UpdateSystemGoroutineCount(goroutines)

	stats := types.Stats{
		Users:          users,
		Predictions:    predictions,
		ActiveRuleSet:  s.registry.ActiveName(),
		QueueSize:      s.eventQueue.Len(ctx),
		QueueCapacity:  s.eventQueue.Cap(),
		DedupeEntries:  s.deduper.Size(),
		MemoryBytes:    mem.Alloc,
		GoroutineCount: goroutines,
	}

	s.mu.RLock()
	if s.started {
		stats.Workers = s.workerPool.Size()
		stats.JobsProcessed = s.workerPool.Processed()
		stats.JobsFailed = s.workerPool.Failed()
		stats.UptimeSeconds = s.now().Sub(s.startedAt).Seconds()
	}
	s.mu.RUnlock()
	return stats, nil
}

// notify queues ev for the workers. A full queue drops the notification;
// the operation that raised it has already succeeded.
func (s *Service) notify(ctx context.Context, ev model.Event) { //nolint:gocritic // hugeParam: Event is passed by value through the queue
	ev.ID = s.newID()
	ev.OccurredAt = s.now().UTC()
	if !s.eventQueue.Enqueue(ctx, ev) {
		metrics.RecordErrorByComponent("service", "notification_dropped")
		s.logger.Warn(ctx, "notification dropped",
			logger.String("event_type", string(ev.Type)),
			logger.String("user_id", ev.UserID),
		)
	}
}
