package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/davidbz/chatrelay/internal/cache/memory"
	"github.com/davidbz/chatrelay/internal/cache/redis"
	"github.com/davidbz/chatrelay/internal/config"
	"github.com/davidbz/chatrelay/internal/domain"
	"github.com/davidbz/chatrelay/internal/http"
	"github.com/davidbz/chatrelay/internal/http/middleware"
	"github.com/davidbz/chatrelay/internal/observability"
	"github.com/davidbz/chatrelay/internal/provider/openai"
	"github.com/davidbz/chatrelay/internal/provider/registry"
	"github.com/davidbz/chatrelay/internal/provider/transport"
	"github.com/davidbz/chatrelay/internal/routing"
)

const redisPingTimeout = 2 * time.Second

func main() {
	container := buildContainer()

	err := container.Invoke(func(server *http.Server, serverCfg *config.ServerConfig, logger *zap.Logger) error {
		defer func() { _ = logger.Sync() }()
		return run(server, time.Duration(serverCfg.ShutdownTimeout)*time.Second)
	})
	if err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}
}

// run serves until SIGINT/SIGTERM, then drains in-flight requests.
func run(server *http.Server, shutdownTimeout time.Duration) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	return <-errCh
}

func buildContainer() *dig.Container {
	container := dig.New()

	// Configuration
	if err := container.Provide(config.Load); err != nil {
		log.Fatalf("Failed to provide config: %v", err)
	}
	if err := container.Provide(config.ParseDependenciesConfig); err != nil {
		log.Fatalf("Failed to provide config dependencies: %v", err)
	}
	if err := container.Provide(config.ProviderConfigs); err != nil {
		log.Fatalf("Failed to provide provider configs: %v", err)
	}

	// Observability
	if err := container.Provide(observability.InitLogger); err != nil {
		log.Fatalf("Failed to provide logger: %v", err)
	}
	if err := container.Provide(observability.NewMetrics); err != nil {
		log.Fatalf("Failed to provide metrics: %v", err)
	}
	if err := container.Provide(func(metrics *observability.Metrics) domain.OutcomeRecorder {
		return metrics
	}); err != nil {
		log.Fatalf("Failed to provide outcome recorder: %v", err)
	}

	// Provider Registry
	if err := container.Provide(func() domain.ProviderRegistry {
		return registry.NewRegistry()
	}); err != nil {
		log.Fatalf("Failed to provide registry: %v", err)
	}

	// Outbound HTTP
	if err := container.Provide(func() *transport.Caller {
		return transport.NewCaller()
	}); err != nil {
		log.Fatalf("Failed to provide caller: %v", err)
	}

	// Register configured providers (invoked for side effects)
	if err := container.Invoke(registerProviders); err != nil {
		log.Fatalf("Failed to register providers: %v", err)
	}

	// Domain Services
	if err := container.Provide(func(reg domain.ProviderRegistry) domain.Router {
		return routing.NewRouter(reg)
	}); err != nil {
		log.Fatalf("Failed to provide router: %v", err)
	}
	if err := container.Provide(func() domain.Selector {
		return domain.NewRandomSelector()
	}); err != nil {
		log.Fatalf("Failed to provide selector: %v", err)
	}
	if err := container.Provide(domain.NewChatService); err != nil {
		log.Fatalf("Failed to provide chat service: %v", err)
	}

	// Rate limiting
	if err := container.Provide(newCounter); err != nil {
		log.Fatalf("Failed to provide rate limit counter: %v", err)
	}
	if err := container.Provide(middleware.BuildMiddlewareChain); err != nil {
		log.Fatalf("Failed to provide middleware chain: %v", err)
	}

	// HTTP Layer
	if err := container.Provide(http.NewHandler); err != nil {
		log.Fatalf("Failed to provide HTTP handler: %v", err)
	}
	if err := container.Provide(http.NewServer); err != nil {
		log.Fatalf("Failed to provide HTTP server: %v", err)
	}

	return container
}

// registerProviders registers every provider that has a usable key, in
// preference order. Providers without one are skipped.
func registerProviders(
	reg domain.ProviderRegistry,
	configs []domain.ProviderConfig,
	caller *transport.Caller,
	_ *zap.Logger,
) error {
	ctx := context.Background()
	logger := observability.FromContext(ctx)

	for _, cfg := range configs {
		if !cfg.HasUsableKey() {
			logger.Info("provider not configured, skipping", observability.String("provider", string(cfg.Name)))
			continue
		}

		provider, err := openai.NewProvider(cfg, caller)
		if err != nil {
			return fmt.Errorf("failed to create %s provider: %w", cfg.Name, err)
		}

		if err := reg.Register(ctx, provider); err != nil {
			return fmt.Errorf("failed to register %s provider: %w", cfg.Name, err)
		}

		logger.Info("provider registered",
			observability.String("provider", string(cfg.Name)),
			observability.String("model", cfg.Model))
	}

	return nil
}

// newCounter picks Redis counters when REDIS_ADDR is set and reachable,
// otherwise in-memory counters.
func newCounter(cfg *config.RedisConfig, _ *zap.Logger) middleware.Counter {
	logger := observability.FromContext(context.Background())

	if cfg.Addr == "" {
		return memory.NewCounter()
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	counter, err := redis.NewCounter(client)
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
		err = counter.Ping(ctx)
		cancel()
	}
	if err != nil {
		logger.Warn("redis unavailable, using in-memory rate limit counters",
			observability.String("addr", cfg.Addr),
			observability.Error(err))
		_ = client.Close()
		return memory.NewCounter()
	}

	logger.Info("using redis rate limit counters", observability.String("addr", cfg.Addr))
	return counter
}
