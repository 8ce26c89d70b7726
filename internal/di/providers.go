package di

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/sandeepkv93/deepscan-backend/internal/app"
	"github.com/sandeepkv93/deepscan-backend/internal/config"
	"github.com/sandeepkv93/deepscan-backend/internal/database"
	"github.com/sandeepkv93/deepscan-backend/internal/detector"
	"github.com/sandeepkv93/deepscan-backend/internal/health"
	"github.com/sandeepkv93/deepscan-backend/internal/http/handler"
	"github.com/sandeepkv93/deepscan-backend/internal/http/middleware"
	"github.com/sandeepkv93/deepscan-backend/internal/http/router"
	"github.com/sandeepkv93/deepscan-backend/internal/observability"
	"github.com/sandeepkv93/deepscan-backend/internal/paymentgateway"
	"github.com/sandeepkv93/deepscan-backend/internal/repository"
	"github.com/sandeepkv93/deepscan-backend/internal/security"
	"github.com/sandeepkv93/deepscan-backend/internal/service"
)

const (
	redisKeyPrefix          = "deepscan"
	paystackTimeout         = 15 * time.Second
	idempotencyCleanupBatch = 500
)

var ConfigSet = wire.NewSet(config.Load)

var ObservabilitySet = wire.NewSet(
	provideObservabilityRuntime,
	provideAppLogger,
)

var RuntimeInfraSet = wire.NewSet(
	provideRuntimeDB,
	provideRedisClient,
	provideMediaStore,
	provideReadinessProbeRunner,
)

var RepositorySet = wire.NewSet(
	repository.NewUserRepository,
	repository.NewVerificationResultRepository,
	repository.NewPaymentRepository,
)

var SecuritySet = wire.NewSet(
	provideIdentityVerifier,
	wire.Bind(new(middleware.IdentityTokenVerifier), new(*security.IdentityVerifier)),
)

var ServiceSet = wire.NewSet(
	provideDetectorClient,
	providePaymentGateway,
	provideCacheStore,
	provideResponseCache,
	provideSettlementGuard,
	service.NewCreditLedger,
	provideBatchScheduler,
	provideScanService,
	providePaymentService,
	provideUserService,
	provideIdempotencyStore,
	wire.Bind(new(service.ScanServiceInterface), new(*service.ScanService)),
	wire.Bind(new(service.PaymentServiceInterface), new(*service.PaymentService)),
	wire.Bind(new(service.UserServiceInterface), new(*service.UserService)),
	wire.Bind(new(middleware.UserResolver), new(*service.UserService)),
)

var HTTPSet = wire.NewSet(
	provideScanHandler,
	handler.NewPaymentHandler,
	handler.NewUserHandler,
	provideGlobalRateLimiter,
	provideScanRateLimiter,
	provideIdempotencyFactory,
	provideRouterDependencies,
	router.NewRouter,
	provideHTTPServer,
)

var AppSet = wire.NewSet(
	provideBackgroundTasks,
	provideApp,
)

func provideObservabilityRuntime(cfg *config.Config) (*observability.Runtime, error) {
	bootstrapLogger := observability.NewBootstrapLogger(cfg)
	return observability.InitRuntime(context.Background(), cfg, bootstrapLogger)
}

func provideAppLogger(cfg *config.Config, runtime *observability.Runtime) *slog.Logger {
	return observability.InitLogger(cfg, runtime.LoggerProvider)
}

func provideRuntimeDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// provideRedisClient returns nil unless some component is configured to use
// redis. Consumers fall back to in-process implementations on nil.
func provideRedisClient(cfg *config.Config, logger *slog.Logger) redis.UniversalClient {
	if !usesRedis(cfg) {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	observability.InstrumentRedisClient(client, logger)
	return client
}

func usesRedis(cfg *config.Config) bool {
	return cfg.CacheBackend == "redis" || cfg.RateLimitRedisEnabled
}

func provideMediaStore(cfg *config.Config) (service.MediaStore, error) {
	if !cfg.MediaStorageEnabled {
		return service.NewNoopMediaStore(), nil
	}
	return service.NewMinIOMediaStore(service.MinIOMediaConfig{
		Endpoint:  cfg.MediaStorageEndpoint,
		AccessKey: cfg.MediaStorageAccessKey,
		SecretKey: cfg.MediaStorageSecretKey,
		Bucket:    cfg.MediaStorageBucket,
		Region:    cfg.MediaStorageRegion,
		UseSSL:    cfg.MediaStorageUseSSL,
	})
}

func provideIdentityVerifier(cfg *config.Config) *security.IdentityVerifier {
	return security.NewIdentityVerifier(cfg.IdentityJWTSecret, cfg.IdentityIssuer, cfg.IdentityAudience)
}

func provideDetectorClient(cfg *config.Config, logger *slog.Logger) detector.Client {
	return detector.NewHTTPClient(detector.Config{
		BaseURL:       cfg.DetectorBaseURL,
		APIKey:        cfg.DetectorAPIKey,
		Timeout:       cfg.DetectorTimeout,
		RatePerMinute: cfg.DetectorRateLimitPerMin,
		Burst:         cfg.DetectorBurst,

		AllowPrivateMediaURLs: cfg.DetectorAllowPrivateURLs,
	}, logger)
}

func providePaymentGateway(cfg *config.Config) paymentgateway.Gateway {
	return paymentgateway.NewPaystackClient(cfg.PaystackBaseURL, cfg.PaystackSecretKey, paystackTimeout)
}

func provideCacheStore(cfg *config.Config, redisClient redis.UniversalClient) service.CacheStore {
	switch {
	case cfg.CacheBackend == "redis" && redisClient != nil:
		return service.NewRedisCacheStore(redisClient, redisKeyPrefix+":cache")
	case cfg.CacheBackend == "none":
		return service.NewNoopCacheStore()
	default:
		return service.NewInMemoryCacheStore()
	}
}

func provideResponseCache(cfg *config.Config, store service.CacheStore, logger *slog.Logger) *service.ResponseCache {
	return service.NewResponseCache(store, service.ResponseCacheConfig{
		ListTTL:    cfg.CacheListTTL,
		ItemTTL:    cfg.CacheItemTTL,
		ProfileTTL: cfg.CacheProfileTTL,
	}, logger)
}

// provideSettlementGuard shares failure counters across replicas when redis
// is available.
func provideSettlementGuard(cfg *config.Config, redisClient redis.UniversalClient) service.SettlementGuard {
	policy := service.SettlementGuardPolicy{
		FreeAttempts: cfg.SettlementFreeAttempts,
		BaseDelay:    cfg.SettlementBaseDelay,
		Multiplier:   2,
		MaxDelay:     cfg.SettlementMaxDelay,
		ResetWindow:  cfg.SettlementResetWindow,
	}
	if redisClient != nil {
		return service.NewRedisSettlementGuard(redisClient, redisKeyPrefix+":settlement", policy)
	}
	return service.NewInMemorySettlementGuard(policy)
}

func provideBatchScheduler(cfg *config.Config, client detector.Client, logger *slog.Logger) *service.BatchScheduler {
	return service.NewBatchScheduler(client, cfg.ScanBatchWorkers, logger)
}

func provideScanService(
	cfg *config.Config,
	scheduler *service.BatchScheduler,
	results repository.VerificationResultRepository,
	ledger *service.CreditLedger,
	media service.MediaStore,
	cache *service.ResponseCache,
	logger *slog.Logger,
) *service.ScanService {
	return service.NewScanService(scheduler, results, ledger, media, cache, cfg.ScanMaxBatchItems, logger)
}

func providePaymentService(
	cfg *config.Config,
	gateway paymentgateway.Gateway,
	payments repository.PaymentRepository,
	users repository.UserRepository,
	cache *service.ResponseCache,
	guard service.SettlementGuard,
	logger *slog.Logger,
) *service.PaymentService {
	return service.NewPaymentService(gateway, payments, users, cache, guard, service.PaymentConfig{
		Currency:      cfg.PaymentCurrency,
		UnitPrice:     cfg.CreditUnitPrice,
		MaxCredits:    cfg.PaymentMaxCredits,
		CallbackURL:   cfg.PaymentCallbackURL,
		WebhookSecret: cfg.PaystackSecretKey,
	}, logger)
}

func provideUserService(cfg *config.Config, users repository.UserRepository, ledger *service.CreditLedger, cache *service.ResponseCache) *service.UserService {
	return service.NewUserService(users, ledger, cache, cfg.TrialCredits)
}

func provideIdempotencyStore(db *gorm.DB) *service.DBIdempotencyStore {
	return service.NewDBIdempotencyStore(db)
}

func provideScanHandler(cfg *config.Config, svc service.ScanServiceInterface) *handler.ScanHandler {
	return handler.NewScanHandler(svc, cfg.ScanMaxUploadBytes)
}

func provideGlobalRateLimiter(cfg *config.Config, redisClient redis.UniversalClient) router.GlobalRateLimiterFunc {
	if cfg.RateLimitRedisEnabled && redisClient != nil {
		redisLimiter := middleware.NewRedisFixedWindowLimiter(redisClient, redisKeyPrefix+":rl:api")
		return middleware.NewDistributedRateLimiter(
			redisLimiter,
			cfg.APIRateLimitPerMin,
			time.Minute,
			failureMode(cfg),
			"api",
		).WithKeyFunc(middleware.IPKeyFunc).Middleware()
	}
	return middleware.NewRateLimiter(cfg.APIRateLimitPerMin, time.Minute).WithKeyFunc(middleware.IPKeyFunc).Middleware()
}

// provideScanRateLimiter runs after identity resolution, so buckets are per
// user rather than per address.
func provideScanRateLimiter(cfg *config.Config, redisClient redis.UniversalClient) router.ScanRateLimiterFunc {
	var limiter middleware.Limiter = middleware.NewLocalFixedWindowLimiter()
	if cfg.RateLimitRedisEnabled && redisClient != nil {
		limiter = middleware.NewRedisFixedWindowLimiter(redisClient, redisKeyPrefix+":rl:scan")
	}
	return middleware.NewDistributedRateLimiter(
		limiter,
		cfg.ScanRateLimitPerMin,
		time.Minute,
		failureMode(cfg),
		"scan",
	).Middleware()
}

func failureMode(cfg *config.Config) middleware.FailureMode {
	if cfg.RateLimitFailClosed {
		return middleware.FailClosed
	}
	return middleware.FailOpen
}

func provideIdempotencyFactory(cfg *config.Config, store *service.DBIdempotencyStore) router.IdempotencyMiddlewareFactory {
	if !cfg.IdempotencyEnabled {
		return nil
	}
	return middleware.NewIdempotencyMiddleware(store, cfg.IdempotencyTTL).Middleware
}

func provideRouterDependencies(
	scanHandler *handler.ScanHandler,
	paymentHandler *handler.PaymentHandler,
	userHandler *handler.UserHandler,
	verifier middleware.IdentityTokenVerifier,
	resolver middleware.UserResolver,
	globalRateLimiter router.GlobalRateLimiterFunc,
	scanRateLimiter router.ScanRateLimiterFunc,
	idempotency router.IdempotencyMiddlewareFactory,
	readiness *health.ProbeRunner,
	cfg *config.Config,
) router.Dependencies {
	return router.Dependencies{
		ScanHandler:       scanHandler,
		PaymentHandler:    paymentHandler,
		UserHandler:       userHandler,
		IdentityVerifier:  verifier,
		UserResolver:      resolver,
		CORSOrigins:       cfg.CORSAllowedOrigins,
		APIRateLimitRPM:   cfg.APIRateLimitPerMin,
		ScanRateLimitRPM:  cfg.ScanRateLimitPerMin,
		ScanUploadLimit:   cfg.ScanMaxUploadBytes,
		GlobalRateLimiter: globalRateLimiter,
		ScanRateLimiter:   scanRateLimiter,
		Idempotency:       idempotency,
		Readiness:         readiness,
		EnableOTelHTTP:    cfg.OTELMetricsEnabled || cfg.OTELTracingEnabled,
	}
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           h,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      scanWriteTimeout(cfg),
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// scanWriteTimeout leaves room for a full batch: items run in waves of
// ScanBatchWorkers, each bounded by the detector timeout.
func scanWriteTimeout(cfg *config.Config) time.Duration {
	workers := cfg.ScanBatchWorkers
	if workers <= 0 {
		workers = service.DefaultBatchWorkers
	}
	waves := (cfg.ScanMaxBatchItems + workers - 1) / workers
	if waves < 1 {
		waves = 1
	}
	timeout := time.Duration(waves)*cfg.DetectorTimeout + 15*time.Second
	if timeout < 30*time.Second {
		timeout = 30 * time.Second
	}
	return timeout
}

func provideReadinessProbeRunner(cfg *config.Config, db *gorm.DB, redisClient redis.UniversalClient, media service.MediaStore) *health.ProbeRunner {
	checkers := []health.Checker{health.NewDBChecker(db)}
	if redisClient != nil {
		checkers = append(checkers, health.NewRedisChecker(redisClient))
	}
	if cfg.MediaStorageEnabled {
		checkers = append(checkers, health.NewStorageChecker(media))
	}
	return health.NewProbeRunner(cfg.ReadinessProbeTimeout, cfg.ServerStartGracePeriod, checkers...)
}

func provideBackgroundTasks(cfg *config.Config, store *service.DBIdempotencyStore, cacheStore service.CacheStore, logger *slog.Logger) []app.BackgroundTask {
	var tasks []app.BackgroundTask
	if cfg.IdempotencyEnabled {
		tasks = append(tasks, func(ctx context.Context) {
			store.RunCleanupLoop(ctx, cfg.IdempotencyCleanupInterval, idempotencyCleanupBatch, logger)
		})
	}
	// redis expires its own keys
	if mem, ok := cacheStore.(*service.InMemoryCacheStore); ok {
		tasks = append(tasks, func(ctx context.Context) {
			mem.RunSweepLoop(ctx, cfg.CacheSweepInterval, logger)
		})
	}
	return tasks
}

func provideApp(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	runtime *observability.Runtime,
	db *gorm.DB,
	redisClient redis.UniversalClient,
	readiness *health.ProbeRunner,
	tasks []app.BackgroundTask,
) *app.App {
	return app.New(cfg, logger, server, runtime, db, redisClient, readiness, tasks)
}
