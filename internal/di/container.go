package di

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/prohmpiriya/jelli-fit/internal/adaptor"
	"github.com/prohmpiriya/jelli-fit/internal/handler"
	"github.com/prohmpiriya/jelli-fit/internal/ident"
	"github.com/prohmpiriya/jelli-fit/internal/router"
	"github.com/prohmpiriya/jelli-fit/internal/service"
	"github.com/prohmpiriya/jelli-fit/internal/worker"
	"github.com/prohmpiriya/jelli-fit/pkg/config"
	"github.com/prohmpiriya/jelli-fit/pkg/database"
	"github.com/prohmpiriya/jelli-fit/pkg/kafka"
	"github.com/prohmpiriya/jelli-fit/pkg/logger"
	"github.com/prohmpiriya/jelli-fit/pkg/middleware"
	pkgredis "github.com/prohmpiriya/jelli-fit/pkg/redis"
	"github.com/prohmpiriya/jelli-fit/pkg/telemetry"
)

// Container holds all dependencies for the API
type Container struct {
	Config *config.Config
	Logger *logger.Logger

	// Infrastructure
	DB          *database.PostgresDB
	Redis       *pkgredis.Client
	Publisher   kafka.Publisher
	Metrics     *telemetry.Metrics
	RateLimiter *middleware.RedisRateLimiter

	// Storage
	Adaptor    adaptor.Adaptor
	Serializer *adaptor.Serializer
	Allocator  *ident.Allocator

	// Services
	EventService   service.EventService
	PersonService  service.PersonService
	StatsService   service.StatsService
	CleanupService service.CleanupService

	// Handlers
	EventHandler  *handler.EventHandler
	PersonHandler *handler.PersonHandler
	InfoHandler   *handler.InfoHandler
	TaskHandler   *handler.TaskHandler

	// CleanupWorker is nil unless an in-process sweep interval is configured
	CleanupWorker *worker.CleanupWorker
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	Config *config.Config
	Logger *logger.Logger
	// Adaptor, when set, replaces the configured storage driver
	Adaptor adaptor.Adaptor
	// Hasher, when set, replaces bcrypt at the default cost
	Hasher service.PasswordHasher
}

// NewContainer creates a new dependency injection container. Infrastructure
// opened before a failure is closed again.
func NewContainer(ctx context.Context, cfg *ContainerConfig) (*Container, error) {
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}

	c := &Container{
		Config:    cfg.Config,
		Logger:    log,
		Publisher: kafka.NopPublisher{},
	}
	fail := func(err error) (*Container, error) {
		c.Close()
		return nil, err
	}

	if err := c.initStorage(ctx, cfg.Adaptor); err != nil {
		return fail(err)
	}
	if err := c.initRedis(ctx); err != nil {
		return fail(err)
	}
	if err := c.initPublisher(); err != nil {
		return fail(err)
	}

	metrics, err := telemetry.NewMetrics()
	if err != nil {
		log.Warn("failed to register metrics, continuing without them", zap.Error(err))
		metrics = &telemetry.Metrics{}
	}
	c.Metrics = metrics

	// Initialize services
	c.Serializer = adaptor.NewSerializer(c.Adaptor, c.Config.Storage.Serialize)
	c.Allocator = ident.NewAllocator(
		ident.MustNameGenerator(),
		ident.WithMaxAttempts(c.Config.IDMaxAttempts),
		ident.WithCollisionHook(func(id string) {
			c.Metrics.AllocationRetry.Inc(context.Background(), telemetry.EventIDAttr(id))
		}),
	)

	deps := service.Deps{
		Serializer: c.Serializer,
		Publisher:  c.Publisher,
		Metrics:    c.Metrics,
		Logger:     log,
	}

	hasher := cfg.Hasher
	if hasher == nil {
		hasher = service.NewBcryptHasher(0)
	}

	c.EventService = service.NewEventService(deps, c.Allocator)
	c.PersonService = service.NewPersonService(deps, hasher)
	c.StatsService = service.NewStatsService(deps)
	c.CleanupService = service.NewCleanupService(deps, service.CleanupConfig{
		CronKey:   c.Config.CronKey,
		Retention: c.Config.Cleanup.Retention,
	})

	// Initialize handlers
	c.EventHandler = handler.NewEventHandler(c.EventService)
	c.PersonHandler = handler.NewPersonHandler(c.PersonService)
	c.InfoHandler = handler.NewInfoHandler(c.StatsService, c.Config.App.Name, c.Config.App.Version, c.healthChecks())
	c.TaskHandler = handler.NewTaskHandler(c.CleanupService)

	if c.Config.Cleanup.Interval > 0 {
		c.CleanupWorker = worker.NewCleanupWorker(c.CleanupService, log, &worker.CleanupWorkerConfig{
			Interval: c.Config.Cleanup.Interval,
		})
	}

	return c, nil
}

func (c *Container) initStorage(ctx context.Context, override adaptor.Adaptor) error {
	if override != nil {
		c.Adaptor = override
		return nil
	}

	switch c.Config.Storage.Driver {
	case config.StorageDriverMemory:
		c.Adaptor = adaptor.NewMemoryAdaptor()
		c.Logger.Warn("using in-memory storage, data will not survive a restart")
		return nil

	case config.StorageDriverPostgres:
		dbCfg := database.DefaultPostgresConfig()
		dbCfg.Host = c.Config.Database.Host
		dbCfg.Port = c.Config.Database.Port
		dbCfg.User = c.Config.Database.User
		dbCfg.Password = c.Config.Database.Password
		dbCfg.Database = c.Config.Database.DBName
		dbCfg.SSLMode = c.Config.Database.SSLMode
		if c.Config.Database.MaxOpenConns > 0 {
			dbCfg.MaxConns = int32(c.Config.Database.MaxOpenConns)
		}
		if c.Config.Database.MaxIdleConns > 0 {
			dbCfg.MinConns = int32(c.Config.Database.MaxIdleConns)
		}
		if c.Config.Database.ConnMaxLifetime > 0 {
			dbCfg.MaxConnLifetime = c.Config.Database.ConnMaxLifetime
		}
		if c.Config.Database.ConnMaxIdleTime > 0 {
			dbCfg.MaxConnIdleTime = c.Config.Database.ConnMaxIdleTime
		}

		db, err := database.NewPostgres(ctx, dbCfg)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		c.DB = db

		pg := adaptor.NewPostgresAdaptor(db)
		if err := pg.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate postgres schema: %w", err)
		}
		c.Adaptor = pg
		c.Logger.Info("connected to postgres", zap.String("host", dbCfg.Host), zap.String("database", dbCfg.Database))
		return nil

	default:
		return fmt.Errorf("unsupported storage driver: %q", c.Config.Storage.Driver)
	}
}

func (c *Container) initRedis(ctx context.Context) error {
	if !c.Config.RateLimit.UseRedis {
		return nil
	}

	redisCfg := pkgredis.DefaultConfig()
	redisCfg.Host = c.Config.Redis.Host
	redisCfg.Port = c.Config.Redis.Port
	redisCfg.Password = c.Config.Redis.Password
	redisCfg.DB = c.Config.Redis.DB
	if c.Config.Redis.PoolSize > 0 {
		redisCfg.PoolSize = c.Config.Redis.PoolSize
	}
	if c.Config.Redis.MinIdleConns > 0 {
		redisCfg.MinIdleConns = c.Config.Redis.MinIdleConns
	}
	if c.Config.Redis.DialTimeout > 0 {
		redisCfg.DialTimeout = c.Config.Redis.DialTimeout
	}
	if c.Config.Redis.ReadTimeout > 0 {
		redisCfg.ReadTimeout = c.Config.Redis.ReadTimeout
	}
	if c.Config.Redis.WriteTimeout > 0 {
		redisCfg.WriteTimeout = c.Config.Redis.WriteTimeout
	}

	client, err := pkgredis.NewClient(ctx, redisCfg)
	if err != nil {
		return err
	}
	c.Redis = client

	limiter, err := middleware.NewRedisRateLimiter(ctx, c.rateLimitConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize redis rate limiter: %w", err)
	}
	c.RateLimiter = limiter
	return nil
}

func (c *Container) initPublisher() error {
	if !c.Config.Kafka.Enabled {
		return nil
	}

	producerCfg := kafka.DefaultProducerConfig()
	producerCfg.Brokers = c.Config.Kafka.Brokers
	if c.Config.Kafka.ClientID != "" {
		producerCfg.ClientID = c.Config.Kafka.ClientID
	}
	if c.Config.Kafka.Topic != "" {
		producerCfg.Topic = c.Config.Kafka.Topic
	}

	producer, err := kafka.NewProducer(producerCfg)
	if err != nil {
		return err
	}
	c.Publisher = producer
	return nil
}

func (c *Container) healthChecks() map[string]handler.HealthCheck {
	checks := make(map[string]handler.HealthCheck)
	if c.DB != nil {
		checks["postgres"] = c.DB.HealthCheck
	}
	if c.Redis != nil {
		checks["redis"] = c.Redis.HealthCheck
	}
	return checks
}

func (c *Container) rateLimitConfig() middleware.RateLimitConfig {
	rl := middleware.DefaultRateLimitConfig()
	rl.RefillInterval = c.Config.RateLimit.RefillInterval
	rl.BurstSize = c.Config.RateLimit.BurstSize
	rl.UseRedis = c.Config.RateLimit.UseRedis
	rl.RedisClient = c.Redis
	return rl
}

// RouterConfig returns the middleware configuration for the router
func (c *Container) RouterConfig() router.Config {
	return router.Config{
		AllowedOrigin: c.Config.AllowedOrigin(),
		RateLimit:     c.rateLimitConfig(),
		RedisLimiter:  c.RateLimiter,
		Logger:        c.Logger,
	}
}

// Handlers returns the handlers the router dispatches to
func (c *Container) Handlers() router.Handlers {
	return router.Handlers{
		Event:  c.EventHandler,
		Person: c.PersonHandler,
		Info:   c.InfoHandler,
		Task:   c.TaskHandler,
	}
}

// Close releases infrastructure in reverse order of creation
func (c *Container) Close() {
	if c.CleanupWorker != nil {
		c.CleanupWorker.Stop()
	}
	if c.Publisher != nil {
		c.Publisher.Close()
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Logger.Warn("failed to close redis", zap.Error(err))
		}
	}
	if c.DB != nil {
		c.DB.Close()
	}
}
