package main

import (
	"context"
	"fmt"
	"log" // Using standard log for early errors before zap is set up
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/fathima-sithara/newsroom-service/internal/auth"
	"github.com/fathima-sithara/newsroom-service/internal/cache"
	"github.com/fathima-sithara/newsroom-service/internal/config"
	"github.com/fathima-sithara/newsroom-service/internal/database"
	"github.com/fathima-sithara/newsroom-service/internal/discovery"
	"github.com/fathima-sithara/newsroom-service/internal/events"
	"github.com/fathima-sithara/newsroom-service/internal/handlers"
	"github.com/fathima-sithara/newsroom-service/internal/logger"
	"github.com/fathima-sithara/newsroom-service/internal/metrics"
	"github.com/fathima-sithara/newsroom-service/internal/middleware"
	"github.com/fathima-sithara/newsroom-service/internal/models"
	"github.com/fathima-sithara/newsroom-service/internal/repository"
	"github.com/fathima-sithara/newsroom-service/internal/server"
	"github.com/fathima-sithara/newsroom-service/internal/services"
	"github.com/fathima-sithara/newsroom-service/internal/storage"
)

func main() {
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.App.Env, cfg.Log.Level)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() {
		_ = zl.Sync() // Flushes buffer, if any
	}()
	zl.Info("starting service", zap.String("name", cfg.App.Name), zap.String("env", cfg.App.Env), zap.Int("port", cfg.App.Port))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database connections
	db, mongoClient, err := database.ConnectMongo(ctx, cfg.Mongo.URI, cfg.Mongo.Database, time.Duration(cfg.Mongo.ConnectWait)*time.Second, zl)
	if err != nil {
		zl.Fatal("mongo connect failed", zap.Error(err))
	}
	rdb, err := database.ConnectRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, zl)
	if err != nil {
		zl.Fatal("redis connect failed", zap.Error(err))
	}
	rc := cache.New(rdb, cfg.Redis.Prefix)

	var publisher events.Publisher = events.Noop{}
	if cfg.Kafka.Enabled {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, zl)
		zl.Info("kafka publisher configured", zap.Strings("brokers", cfg.Kafka.Brokers))
	} else {
		zl.Warn("kafka disabled, domain events will be dropped")
	}

	store, err := storage.NewS3Store(ctx, storage.Options{
		Region:     cfg.AWS.Region,
		Bucket:     cfg.AWS.Bucket,
		Endpoint:   cfg.AWS.Endpoint,
		PublicRead: cfg.S3.PublicRead,
	}, zl)
	if err != nil {
		zl.Fatal("s3 init failed", zap.Error(err))
	}

	m := metrics.New(nil)

	// Repositories
	collections := map[models.Role]string{
		models.RoleAdmin:  cfg.Mongo.Admins,
		models.RoleAuthor: cfg.Mongo.Authors,
		models.RoleUser:   cfg.Mongo.Users,
	}
	accountRepos := make(map[models.Role]*repository.AccountRepository, len(collections))
	for role, col := range collections {
		accountRepos[role] = repository.NewAccountRepository(db, col, role)
	}
	categoryRepo := repository.NewCategoryRepository(db, cfg.Mongo.Categories)
	newsRepo := repository.NewNewsRepository(db, cfg.Mongo.News)
	mediaRepo := repository.NewMediaRepository(db, cfg.Mongo.Media)

	if err := ensureIndexes(ctx, accountRepos, categoryRepo, newsRepo, mediaRepo); err != nil {
		zl.Fatal("index setup failed", zap.Error(err))
	}

	// Auth
	hasher, err := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	if err != nil {
		zl.Fatal("hasher init failed", zap.Error(err))
	}
	issuer, err := auth.NewTokenIssuer(auth.TokenConfig{
		Issuer:        cfg.App.Name,
		AccessSecret:  cfg.Auth.AccessTokenSecret,
		RefreshSecret: cfg.Auth.RefreshTokenSecret,
		AccessTTL:     cfg.Auth.AccessTokenTTL,
		RefreshTTL:    cfg.Auth.RefreshTokenTTL,
	}, nil)
	if err != nil {
		zl.Fatal("token issuer init failed", zap.Error(err))
	}
	policy := auth.NewLockoutPolicy(cfg.Auth.MaxLoginAttempts, cfg.LockDuration)

	gates := make(map[models.Role]handlers.Authenticator, len(accountRepos))
	var gateList []*auth.Gate
	svcRepos := make(map[models.Role]services.AccountRepo, len(accountRepos))
	for role, repo := range accountRepos {
		g := auth.NewGate(role, repo, hasher, issuer, policy, nil, zl)
		gates[role] = g
		gateList = append(gateList, g)
		svcRepos[role] = repo
	}
	directory := auth.NewDirectory(issuer, gateList...)

	// Services
	accountSvc := services.NewAccountService(svcRepos, hasher, rc, publisher, cfg.Kafka.TopicAccountEvent, cfg.Auth.VerifyCodeTTL, zl)
	categorySvc := services.NewCategoryService(categoryRepo, newsRepo)
	newsSvc := services.NewNewsService(newsRepo, categoryRepo, rc, cfg.NewsCacheTTL, publisher, cfg.Kafka.TopicNewsEvents, m, zl)
	mediaSvc := services.NewMediaService(mediaRepo, store, cfg.PresignTTL, cfg.S3.MaxUploadBytes, m, zl)

	h := handlers.NewHandler(handlers.Deps{
		Gates:      gates,
		Accounts:   accountSvc,
		Categories: categorySvc,
		News:       newsSvc,
		Media:      mediaSvc,
		Cookies:    handlers.CookieOptions{Secure: cfg.App.CookieSecure, Domain: cfg.App.CookieDomain},
		MaxUpload:  cfg.S3.MaxUploadBytes,
		Metrics:    m,
		Logger:     zl,
	})

	ipLimiter := middleware.NewIPRateLimiter(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst, zl)
	loginLimiter := middleware.NewRateLimiter(rc, "login", cfg.RateLimit.LoginPerWindow, cfg.LoginWindow, zl)

	app := server.New(cfg, h, server.Options{
		Authorizer:   directory,
		LoginLimiter: loginLimiter.MiddlewareByKey(middleware.ByIP),
		IPLimiter:    ipLimiter,
		Metrics:      m,
	}, zl)

	var registrar *discovery.Registrar
	if cfg.Consul.Enabled {
		registrar, err = discovery.NewRegistrar(cfg.Consul.Addr, zl)
		if err != nil {
			zl.Fatal("consul client init failed", zap.Error(err))
		}
		if err := registrar.Register(cfg.Consul.ServiceName, cfg.Consul.ServiceAddr); err != nil {
			zl.Error("consul registration failed", zap.Error(err))
		}
	}

	// Start server
	listenErr := make(chan error, 1)
	go func() {
		listenAddr := fmt.Sprintf(":%d", cfg.App.Port)
		zl.Info("server listening", zap.String("addr", listenAddr))
		listenErr <- app.Listen(listenAddr)
	}()

	select {
	case <-ctx.Done():
		zl.Info("shutting down server...")
	case err := <-listenErr:
		zl.Error("server stopped", zap.Error(err))
	}

	shutdown(app, cfg.ShutdownTimeout, zl, registrar, ipLimiter, publisher, rc, func(ctx context.Context) error {
		return mongoClient.Disconnect(ctx)
	})
	zl.Info("graceful shutdown complete")
}

type indexer interface {
	EnsureIndexes(ctx context.Context) error
}

func ensureIndexes(ctx context.Context, accounts map[models.Role]*repository.AccountRepository, rest ...indexer) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	all := make([]indexer, 0, len(accounts)+len(rest))
	for _, r := range accounts {
		all = append(all, r)
	}
	all = append(all, rest...)
	for _, r := range all {
		if err := r.EnsureIndexes(ctx); err != nil {
			return err
		}
	}
	return nil
}

func shutdown(
	app *fiber.App,
	timeout time.Duration,
	zl *zap.Logger,
	registrar *discovery.Registrar,
	limiter *middleware.IPRateLimiter,
	publisher events.Publisher,
	rc *cache.Client,
	disconnectMongo func(context.Context) error,
) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if registrar != nil {
		if err := registrar.Deregister(); err != nil {
			zl.Error("consul deregister error", zap.Error(err))
		}
	}
	if err := app.ShutdownWithContext(ctx); err != nil {
		zl.Error("fiber shutdown error", zap.Error(err))
	}
	limiter.Stop()
	if err := publisher.Close(); err != nil {
		zl.Error("event publisher close error", zap.Error(err))
	}
	if err := rc.Close(); err != nil {
		zl.Error("redis close error", zap.Error(err))
	}
	if err := disconnectMongo(ctx); err != nil {
		zl.Error("mongo disconnect error", zap.Error(err))
	}
}
