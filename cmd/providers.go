package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/lshigami/examflow/config"
	"github.com/lshigami/examflow/internal/catalog"
	"github.com/lshigami/examflow/internal/events"
	"github.com/lshigami/examflow/internal/recording"
	"github.com/lshigami/examflow/internal/repository"
	"github.com/lshigami/examflow/internal/service"
	"github.com/lshigami/examflow/internal/storage"
	"github.com/lshigami/examflow/internal/sweeper"
	"github.com/lshigami/examflow/internal/timer"
)

type Repositories struct {
	fx.Out

	Tests       repository.TestRepository
	Submissions repository.SubmissionRepository
	Units       repository.EvaluationUnitRepository
}

// NewRepositories uses Postgres when a database is configured and process memory otherwise.
func NewRepositories(db *gorm.DB) Repositories {
	if db == nil {
		store := repository.NewMemoryStore()
		return Repositories{
			Tests:       repository.NewMemoryTestRepository(store),
			Submissions: repository.NewMemorySubmissionRepository(store),
			Units:       repository.NewMemoryEvaluationUnitRepository(store),
		}
	}
	return Repositories{
		Tests:       repository.NewTestRepository(db),
		Submissions: repository.NewSubmissionRepository(db),
		Units:       repository.NewEvaluationUnitRepository(db),
	}
}

func NewObjectStore(cfg *config.Config) (storage.ObjectStore, error) {
	if cfg.MinIO.Endpoint == "" {
		log.Warn().Msg("MINIO_ENDPOINT is not set. Recordings are kept in memory.")
		return storage.NewMemoryStore(), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Session.SubmitTimeout)
	defer cancel()
	return storage.NewMinioStore(ctx, cfg.MinIO)
}

// NewRedisClient returns nil when REDIS_ADDR is not set.
func NewRedisClient(lc fx.Lifecycle, cfg *config.Config) (*redis.Client, error) {
	if cfg.Redis.Addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Session.SubmitTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
	}
	log.Info().Str("addr", cfg.Redis.Addr).Msg("Redis connection established")
	lc.Append(fx.Hook{OnStop: func(context.Context) error { return client.Close() }})
	return client, nil
}

func NewDeviceLease(client *redis.Client, cfg *config.Config) recording.Lease {
	if client == nil {
		return recording.NewMemoryLease()
	}
	return recording.NewRedisLease(client, cfg.Redis.LeaseTTL)
}

func NewPushDevice() *recording.PushDevice {
	return recording.NewPushDevice()
}

func NewPublisher(lc fx.Lifecycle, cfg *config.Config) (events.Publisher, error) {
	publisher, err := events.NewEventPublisher(cfg.AMQP.URI, cfg.AMQP.Exchange)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: func(context.Context) error { return publisher.Close() }})
	return publisher, nil
}

// NewEvaluator routes objective parts to the answer key and everything else to the
// configured language model backend.
func NewEvaluator(cfg *config.Config) (service.Evaluator, error) {
	var llm service.Evaluator
	switch strings.ToLower(cfg.Evaluation.Backend) {
	case "openrouter":
		if cfg.OpenRouterApiKey == "" {
			log.Warn().Msg("OPENROUTER_API_KEY is not set. Only answer-key parts can be scored.")
			break
		}
		e, err := service.NewOpenRouterEvaluator(cfg)
		if err != nil {
			return nil, err
		}
		llm = e
	default:
		if cfg.GeminiApiKey == "" {
			log.Warn().Msg("GEMINI_API_KEY is not set. Only answer-key parts can be scored.")
			break
		}
		e, err := service.NewGeminiEvaluator(cfg)
		if err != nil {
			return nil, err
		}
		llm = e
	}
	return service.NewEvaluatorRouter(service.NewKeyEvaluator(), llm, service.DefaultRetryPolicy(cfg.Evaluation.MaxRetries)), nil
}

func NewScoreAggregator(
	submissions repository.SubmissionRepository,
	units repository.EvaluationUnitRepository,
	converter service.ScoreConverterService,
) service.ScoreAggregator {
	return service.NewScoreAggregator(submissions, units, converter, timer.RealClock())
}

func NewEvaluationOrchestrator(
	cfg *config.Config,
	submissions repository.SubmissionRepository,
	units repository.EvaluationUnitRepository,
	evaluator service.Evaluator,
	aggregator service.ScoreAggregator,
	store storage.ObjectStore,
) service.EvaluationOrchestrator {
	return service.NewEvaluationOrchestrator(submissions, units, evaluator, aggregator, store, service.OrchestratorOptions{
		Concurrency: cfg.Evaluation.Concurrency,
		UnitTimeout: cfg.Evaluation.UnitTimeout,
		StaleAfter:  cfg.Evaluation.StaleAfter,
	})
}

func NewEvaluationDispatcher(
	lc fx.Lifecycle,
	cfg *config.Config,
	orchestrator service.EvaluationOrchestrator,
	publisher events.Publisher,
) *service.EvaluationDispatcher {
	// A whole submission gets one unit timeout per round of parallel units, plus slack.
	timeout := cfg.Evaluation.UnitTimeout * 4
	dispatcher := service.NewEvaluationDispatcher(orchestrator, publisher, timeout)
	lc.Append(fx.Hook{OnStop: func(context.Context) error {
		dispatcher.Wait()
		return nil
	}})
	return dispatcher
}

func NewSessionService(
	cfg *config.Config,
	tests repository.TestRepository,
	builder *service.SubmissionBuilder,
	dispatcher *service.EvaluationDispatcher,
	device *recording.PushDevice,
	lease recording.Lease,
) service.SessionService {
	return service.NewSessionService(tests, builder, dispatcher, device, lease, service.SessionServiceOptions{
		SingleActive:  cfg.Session.SingleActive,
		IdleTimeout:   cfg.Session.IdleTimeout,
		SubmitTimeout: cfg.Session.SubmitTimeout,
	})
}

func NewSubmissionService(
	submissions repository.SubmissionRepository,
	dispatcher *service.EvaluationDispatcher,
	store storage.ObjectStore,
) service.SubmissionService {
	return service.NewSubmissionService(submissions, dispatcher, store)
}

// SeedCatalog loads the YAML test catalog and stores tests that do not exist yet.
func SeedCatalog(cfg *config.Config, tests repository.TestRepository) error {
	if cfg.CatalogDir == "" {
		return nil
	}
	loader := catalog.NewLoader()
	if err := loader.LoadFromDir(cfg.CatalogDir); err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	created, err := loader.Seed(tests)
	if err != nil {
		return err
	}
	log.Info().Int("catalog", loader.Count()).Int("created", created).Msg("Catalog seeded")
	return nil
}

// StartBackgroundWorkers runs the idle-session sweeper and the submission consumer.
func StartBackgroundWorkers(
	lc fx.Lifecycle,
	cfg *config.Config,
	sessions service.SessionService,
	dispatcher *service.EvaluationDispatcher,
) error {
	sw := sweeper.New(sessions, cfg.Session.SweepInterval)
	consumer, err := events.NewEventConsumer(cfg.AMQP.URI, cfg.AMQP.Exchange, cfg.AMQP.Queue, cfg.Evaluation.Concurrency, dispatcher.HandleSubmissionCreated)
	if err != nil {
		return err
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			sw.Start(context.Background())
			return consumer.Start()
		},
		OnStop: func(context.Context) error {
			sw.Stop()
			return consumer.Close()
		},
	})
	return nil
}
