// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/promptarena/verdict/internal/adapters/evaluation"
	"github.com/promptarena/verdict/internal/adapters/repository"
	"github.com/promptarena/verdict/internal/domain/distribution"
	"github.com/promptarena/verdict/internal/domain/gate"
	"github.com/promptarena/verdict/internal/domain/model"
	"github.com/promptarena/verdict/internal/domain/pool"
	"github.com/promptarena/verdict/internal/domain/progress"
	"github.com/promptarena/verdict/internal/fixtures"
	"github.com/promptarena/verdict/pkg/cache"
	"github.com/promptarena/verdict/pkg/logger"
)

// Service implements the API dependencies for the judging workflow.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      *repository.MemoryStore
	reader     *pool.Reader
	builder    *distribution.Builder
	executor   *distribution.Executor
	aggregator *progress.Aggregator
	generation *gate.Gate
	evaluation gate.EvaluationService
	poolCache  *cache.Cache

	// Configuration
	evaluationBaseURL string
	evaluationTimeout time.Duration
	leaseTTL          time.Duration
	poolCacheTTL      time.Duration
	poolCacheSize     int
	poolParallelism   int
	seedFile          string

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// WithStore injects a pre-populated store. Tests and fixture-driven runs
// use this; by default Start creates an empty one.
func WithStore(store *repository.MemoryStore) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithEvaluationService injects the evaluation collaborator directly,
// bypassing the HTTP client. Used by tests.
func WithEvaluationService(svc gate.EvaluationService) Option {
	return func(s *Service) {
		if svc != nil {
			s.evaluation = svc
		}
	}
}

// WithEvaluationEndpoint configures the HTTP evaluation client.
func WithEvaluationEndpoint(baseURL string, timeout time.Duration) Option {
	return func(s *Service) {
		if baseURL != "" {
			s.evaluationBaseURL = baseURL
		}
		if timeout > 0 {
			s.evaluationTimeout = timeout
		}
	}
}

// WithLeaseTTL sets the distribution lease duration.
func WithLeaseTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.leaseTTL = ttl
		}
	}
}

// WithPoolCache shapes the pool response cache.
func WithPoolCache(ttl time.Duration, size int) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.poolCacheTTL = ttl
		}
		if size > 0 {
			s.poolCacheSize = size
		}
	}
}

// WithPoolParallelism bounds concurrent membership queries.
func WithPoolParallelism(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.poolParallelism = n
		}
	}
}

// WithSeedFile loads the YAML fixture at path during Start.
func WithSeedFile(path string) Option {
	return func(s *Service) {
		s.seedFile = path
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		evaluationBaseURL: "http://localhost:9091",
		evaluationTimeout: 30 * time.Second,
		leaseTTL:          30 * time.Second,
		poolCacheTTL:      30 * time.Second,
		poolCacheSize:     64,
		poolParallelism:   4,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger.Info(ctx, "starting judging service...")

	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	if s.seedFile != "" {
		if err := fixtures.Load(ctx, s.seedFile, s.store); err != nil {
			return fmt.Errorf("seed store: %w", err)
		}
	}

	s.reader = pool.NewReader(s.store, s.store,
		pool.WithParallelism(s.poolParallelism),
		pool.WithLogger(s.logger.Named("pool")),
	)
	s.builder = distribution.NewBuilder(s.store)
	s.executor = distribution.NewExecutor(s.store, s.store, s.store,
		distribution.WithLeaseTTL(s.leaseTTL),
		distribution.WithLogger(s.logger.Named("distribution")),
	)
	s.aggregator = progress.NewAggregator(s.store, s.store,
		progress.WithLogger(s.logger.Named("progress")),
	)

	if s.evaluation == nil {
		client, err := evaluation.NewClient(s.evaluationBaseURL,
			evaluation.WithTimeout(s.evaluationTimeout),
			evaluation.WithLogger(s.logger.Named("evaluation")),
		)
		if err != nil {
			return fmt.Errorf("evaluation client: %w", err)
		}
		s.evaluation = client
	}
	s.generation = gate.New(s.store, s.aggregator, s.evaluation,
		gate.WithLogger(s.logger.Named("gate")),
	)
	s.poolCache = cache.New(
		cache.WithTTL(s.poolCacheTTL),
		cache.WithMaxSize(s.poolCacheSize),
	)

	s.started = true
	s.logger.Info(ctx, "judging service started",
		logger.Duration("leaseTTL", s.leaseTTL),
		logger.Duration("poolCacheTTL", s.poolCacheTTL),
		logger.Int("poolParallelism", s.poolParallelism),
	)
	return nil
}

// Stop shuts the service down. The store is in-memory so there is nothing
// to flush; the method exists for lifecycle symmetry.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	s.started = false
	s.logger.Info(context.Background(), "judging service stopped")
}

// Store exposes the backing store for seeding in tests and tools.
func (s *Service) Store() *repository.MemoryStore {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store
}

// GetCompetition returns competition metadata.
func (s *Service) GetCompetition(ctx context.Context, competitionID string) (*model.Competition, error) {
	return s.store.GetCompetition(ctx, competitionID)
}

// SetDistributionConfig persists the operator's topN / maxPerJudge.
func (s *Service) SetDistributionConfig(ctx context.Context, competitionID string, topN, maxPerJudge int) error {
	return s.store.SetDistributionConfig(ctx, competitionID, topN, maxPerJudge)
}

// ReadPool resolves the qualifying pool, serving repeated requests for the
// same competition and cutoff from the TTL cache.
func (s *Service) ReadPool(ctx context.Context, competitionID string, topN int) (pool.Pool, error) {
	key := fmt.Sprintf("%s:%d", competitionID, topN)
	if v, ok := s.poolCache.Get(key); ok {
		return v.(pool.Pool), nil
	}
	p, err := s.reader.ReadPool(ctx, competitionID, topN)
	if err != nil {
		return pool.Pool{}, err
	}
	s.poolCache.Set(key, p)
	return p, nil
}

// CurrentMatrix reconstructs the persisted challenge/judge count matrix.
func (s *Service) CurrentMatrix(ctx context.Context, competitionID string) (distribution.Matrix, error) {
	return s.builder.CurrentMatrix(ctx, competitionID)
}

// Distribute executes a distribution run against the desired matrix.
func (s *Service) Distribute(ctx context.Context, competitionID string, matrix distribution.Matrix, buckets map[string][]string) (distribution.Result, error) {
	return s.executor.Distribute(ctx, competitionID, matrix, buckets)
}

// Progress computes the judge progress report.
func (s *Service) Progress(ctx context.Context, competitionID string) (progress.Report, error) {
	return s.aggregator.ComputeProgress(ctx, competitionID)
}

// RecordReview records one completed review for a judge.
func (s *Service) RecordReview(ctx context.Context, competitionID, judgeID, challengeID string) error {
	return s.aggregator.RecordReview(ctx, competitionID, judgeID, challengeID)
}

// Generate runs the leaderboard-generation gate.
func (s *Service) Generate(ctx context.Context, competitionID string, actor gate.Actor, opts gate.Options) (gate.Outcome, error) {
	return s.generation.Generate(ctx, competitionID, actor, opts)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":         s.started,
		"poolParallelism": s.poolParallelism,
		"leaseTTLSeconds": int(s.leaseTTL / time.Second),
	}
	if s.poolCache != nil {
		stats["poolCacheEntries"] = s.poolCache.Len()
	}
	return stats
}
