package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	cacheadapter "github.com/viralforge/privacy-requests-service/internal/adapters/cache"
	eventadapter "github.com/viralforge/privacy-requests-service/internal/adapters/events"
	httpadapter "github.com/viralforge/privacy-requests-service/internal/adapters/http"
	"github.com/viralforge/privacy-requests-service/internal/adapters/postgres"
	"github.com/viralforge/privacy-requests-service/internal/adapters/security"
	"github.com/viralforge/privacy-requests-service/internal/adapters/sources"
	"github.com/viralforge/privacy-requests-service/internal/application"
	"github.com/viralforge/privacy-requests-service/internal/ports"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	registry   *sources.Registry
	httpServer *http.Server
	grpcServer *grpc.Server
	grpcLis    net.Listener
	outbox     *eventadapter.OutboxWorker
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	logger.Info("bootstrapping privacy requests service", "http_port", cfg.HTTPPort, "grpc_port", cfg.GRPCPort)

	db, err := postgres.Connect(ctx, cfg.DatabaseURL, int32(cfg.MaxDBConns))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}

	if err := postgres.RunMigrations(ctx, db); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	redisClient, err := cacheadapter.Connect(ctx, cfg.RedisURL)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	secret := cfg.ConfirmTokenSecret
	if secret == "" {
		if !cfg.AllowEphemeralSecret {
			_ = sqlDB.Close()
			_ = redisClient.Close()
			return nil, fmt.Errorf("missing CONFIRM_TOKEN_SECRET")
		}
		logger.Warn("using ephemeral confirmation-token secret for local/dev runtime")
		secret = uuid.NewString()
	}
	tokens, err := security.NewConfirmationTokenCodec(secret, cfg.ConfirmTokenTTL)
	if err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init confirmation token codec: %w", err)
	}

	repos := postgres.NewRepositories(db)

	registry := sources.NewRegistry()
	if err := registry.RegisterExporter(sources.NewRequestHistoryExporter(repos.Requests)); err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("register builtin exporter: %w", err)
	}
	if err := registry.RegisterEraser(sources.NewRequestHistoryEraser(repos.Requests)); err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("register builtin eraser: %w", err)
	}

	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			ServiceName:     cfg.ServiceID,
			ConfirmBaseURL:  cfg.ConfirmBaseURL,
			DownloadBaseURL: cfg.DownloadBaseURL,
			DefaultPerPage:  cfg.DefaultPerPage,
			MaxPerPage:      cfg.MaxPerPage,
		},
		Requests: repos.Requests,
		Outbox:   repos.Outbox,
		Registry: registry,
		Progress: cacheadapter.NewRedisJobProgressStore(redisClient, cfg.JobProgressTTL),
		Bundles:  cacheadapter.NewRedisExportBundleStore(redisClient, cfg.ExportBundleTTL),
		Reports:  cacheadapter.NewRedisErasureReportStore(redisClient, cfg.ExportBundleTTL),
		Tokens:   tokens,
	})

	handler := httpadapter.NewHandler(svc)
	router := httpadapter.NewRouter(handler)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("listen gRPC: %w", err)
	}

	publisher := ports.EventPublisher(eventadapter.NewLoggingPublisher(logger))
	var closePublisher func() error
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, pubErr := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, nil)
		if pubErr != nil {
			_ = sqlDB.Close()
			_ = redisClient.Close()
			return nil, fmt.Errorf("init kafka publisher: %w", pubErr)
		}
		publisher = kafkaPublisher
		closePublisher = kafkaPublisher.Close
	}

	outbox := eventadapter.NewOutboxWorker(
		logger,
		repos.Outbox,
		publisher,
		cfg.OutboxPollInterval,
		cfg.OutboxBatchSize,
		cfg.OutboxClaimTTL,
		cfg.OutboxMaxRetries,
	)

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		registry:   registry,
		httpServer: httpServer,
		grpcServer: grpcServer,
		grpcLis:    lis,
		outbox:     outbox,
		cleanupFn: func(ctx context.Context) {
			if closePublisher != nil {
				_ = closePublisher()
			}
			_ = redisClient.Close()
			_ = sqlDB.Close()
		},
	}, nil
}

// Registry exposes the source registry so deployments can attach additional
// exporters and erasers before RunAPI.
func (r *Runtime) Registry() *sources.Registry {
	return r.registry
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		r.logger.Info("grpc server started", "addr", r.grpcLis.Addr().String())
		if err := r.grpcServer.Serve(r.grpcLis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case err := <-errCh:
		r.logger.Error("server failure", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	r.cleanupFn(shutdownCtx)
	return nil
}

func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.logger.Info("outbox worker started")
	err := r.outbox.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.cleanupFn(shutdownCtx)
	return nil
}
