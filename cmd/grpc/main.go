package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fekuna/omnipos-checkout-service/config"
	"github.com/fekuna/omnipos-checkout-service/internal/alert"
	"github.com/fekuna/omnipos-checkout-service/internal/availability"
	"github.com/fekuna/omnipos-checkout-service/internal/checkout"
	"github.com/fekuna/omnipos-checkout-service/internal/event"
	"github.com/fekuna/omnipos-checkout-service/internal/inventory"
	"github.com/fekuna/omnipos-checkout-service/internal/pricing"
	"github.com/fekuna/omnipos-checkout-service/internal/product"
	"github.com/fekuna/omnipos-checkout-service/internal/reconciliation"
	"github.com/fekuna/omnipos-checkout-service/pkg/broker"
	"github.com/fekuna/omnipos-checkout-service/pkg/cache"
	_ "github.com/fekuna/omnipos-checkout-service/pkg/codec"
	"github.com/fekuna/omnipos-checkout-service/pkg/database/postgres"
	"github.com/fekuna/omnipos-checkout-service/pkg/logger"
	"github.com/fekuna/omnipos-checkout-service/pkg/metrics"
	"github.com/fekuna/omnipos-checkout-service/pkg/middleware"
	"github.com/fekuna/omnipos-checkout-service/pkg/ops"

	checkoutH "github.com/fekuna/omnipos-checkout-service/internal/checkout/handler"

	invH "github.com/fekuna/omnipos-checkout-service/internal/inventory/handler"
	invListenerPkg "github.com/fekuna/omnipos-checkout-service/internal/inventory/listener"
	invRepoPkg "github.com/fekuna/omnipos-checkout-service/internal/inventory/repository"
	invUCPkg "github.com/fekuna/omnipos-checkout-service/internal/inventory/usecase"

	prodH "github.com/fekuna/omnipos-checkout-service/internal/product/handler"
	prodRepoPkg "github.com/fekuna/omnipos-checkout-service/internal/product/repository"
	prodUCPkg "github.com/fekuna/omnipos-checkout-service/internal/product/usecase"

	countH "github.com/fekuna/omnipos-checkout-service/internal/reconciliation/handler"
	countRepoPkg "github.com/fekuna/omnipos-checkout-service/internal/reconciliation/repository"
	countUCPkg "github.com/fekuna/omnipos-checkout-service/internal/reconciliation/usecase"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load()
	cfg := config.LoadEnv()

	// 2. Initialize Logger
	logConfig := &logger.ZapLoggerConfig{
		IsDevelopment:     false,
		Encoding:          "json",
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	}

	if cfg.Server.AppEnv == "development" {
		logConfig.IsDevelopment = true
		logConfig.Encoding = "console"
		logConfig.Level = "debug"
	}

	appLogger := logger.NewZapLogger(logConfig)
	defer appLogger.Sync()

	metrics.Register()
	checks := map[string]ops.Check{}

	// 3. Storage
	var (
		prodRepo  product.Repository
		invRepo   inventory.Repository
		countRepo reconciliation.Repository
	)
	if cfg.Inventory.Backend == config.BackendPostgres {
		db := connectPostgres(cfg, appLogger)
		defer db.Close()
		checks["postgres"] = db.PingContext

		prodRepo = prodRepoPkg.NewPGRepository(db)
		invRepo = invRepoPkg.NewPGRepository(db)
		countRepo = countRepoPkg.NewPGRepository(db)
	} else {
		memCatalog := prodRepoPkg.NewMemoryRepository()
		if cfg.Catalog.SeedFile != "" {
			data, err := os.ReadFile(cfg.Catalog.SeedFile)
			if err != nil {
				appLogger.Fatal("Could not read catalog seed", zap.String("file", cfg.Catalog.SeedFile), zap.Error(err))
			}
			n, err := memCatalog.LoadSeed(data)
			if err != nil {
				appLogger.Fatal("Could not load catalog seed", zap.Error(err))
			}
			appLogger.Info("Loaded catalog seed", zap.Int("products", n))
		}
		prodRepo = memCatalog
		invRepo = invRepoPkg.NewMemoryRepository()
		countRepo = countRepoPkg.NewMemoryRepository()
		appLogger.Info("Using in-memory storage")
	}

	// 4. Initialize Redis
	var redisClient *cache.RedisClient
	if cfg.Redis.Enabled || cfg.Inventory.LockBackend == config.LockRedis {
		var err error
		redisClient, err = cache.NewRedisClient(&cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			appLogger.Fatal("Could not connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		checks["redis"] = func(ctx context.Context) error { return redisClient.Client.Ping(ctx).Err() }
		appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))
	}

	var locker inventory.Locker = invUCPkg.NewLocalLocker()
	if cfg.Inventory.LockBackend == config.LockRedis {
		locker = invUCPkg.NewRedisLocker(redisClient, invUCPkg.RedisLockerConfig{
			TTL:        cfg.Inventory.LockTTL,
			Retries:    cfg.Inventory.LockRetries,
			RetryDelay: cfg.Inventory.LockRetryDelay,
		}, appLogger)
	}

	// 5. Initialize Kafka Producer
	var publisher event.Publisher = event.NopPublisher{}
	if cfg.Kafka.Enabled {
		producer := broker.NewProducer(&broker.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.EventsTopic,
		})
		defer producer.Close()
		publisher = event.NewKafkaPublisher(producer, appLogger)
		appLogger.Info("Connected to Kafka Producer", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.EventsTopic))
	}

	taxRate, err := decimal.NewFromString(cfg.Pricing.TaxRate)
	if err != nil {
		appLogger.Fatal("Invalid tax rate", zap.String("tax_rate", cfg.Pricing.TaxRate), zap.Error(err))
	}
	engine, err := pricing.NewEngine(taxRate)
	if err != nil {
		appLogger.Fatal("Invalid pricing configuration", zap.Error(err))
	}

	// 6. Initialize UseCases
	catalogUC := prodUCPkg.NewCatalogUseCase(prodRepo, catalogCache(cfg, redisClient), appLogger)
	invUC := invUCPkg.NewInventoryUseCase(invRepo, locker, catalogUC, appLogger,
		invUCPkg.NewEventObserver(publisher, appLogger),
		alert.NewWatcher(catalogUC, publisher, appLogger),
	)
	resolver := availability.NewResolver(catalogUC, invUC)
	alertSvc := alert.NewService(catalogUC, invUC)
	checkoutSvc := checkout.NewService(invUC, resolver, publisher, appLogger)
	countUC := countUCPkg.NewCountUseCase(countRepo, invUC, catalogUC, publisher, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 6.5 Initialize Listeners
	if cfg.Features.ListenOrders && cfg.Kafka.Enabled {
		kafkaConsumer := broker.NewConsumer(&broker.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.OrdersTopic,
			GroupID: cfg.Kafka.GroupID,
		})
		defer kafkaConsumer.Close()
		appLogger.Info("Connected to Kafka Consumer", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.OrdersTopic))

		invListener := invListenerPkg.NewInventoryListener(kafkaConsumer, invUC, catalogUC, resolver, appLogger)
		go invListener.Start(ctx)
	}

	// 7. Initialize Handlers
	prodHandler := prodH.NewProductHandler(catalogUC, appLogger)
	invHandler := invH.NewInventoryHandler(invUC, catalogUC, resolver, alertSvc, appLogger)
	checkoutHandler := checkoutH.NewCheckoutHandler(checkoutSvc, catalogUC, engine, resolver, appLogger)
	countHandler := countH.NewCountHandler(countUC, appLogger)

	// 8. Start gRPC Server
	port := normalizePort(cfg.Server.GRPCPort)
	lis, err := net.Listen("tcp", port)
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}

	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(middleware.ContextInterceptor()),
	)

	prodH.RegisterCatalogServiceServer(grpcServer, prodHandler)
	invH.RegisterStockServiceServer(grpcServer, invHandler)
	checkoutH.RegisterCheckoutServiceServer(grpcServer, checkoutHandler)
	countH.RegisterCountServiceServer(grpcServer, countHandler)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	reflection.Register(grpcServer)

	appLogger.Info("Starting gRPC server", zap.String("port", port))
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			appLogger.Fatal("failed to serve", zap.Error(err))
		}
	}()

	// 9. Ops HTTP server
	opsServer := &http.Server{
		Addr:              normalizePort(cfg.Server.HTTPPort),
		Handler:           ops.NewRouter(checks),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		appLogger.Info("Starting ops server", zap.String("addr", opsServer.Addr))
		if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("ops server stopped", zap.Error(err))
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	healthServer.Shutdown()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Warn("ops server shutdown", zap.Error(err))
	}
	grpcServer.GracefulStop()
	appLogger.Info("Server stopped")
}

func connectPostgres(cfg *config.Config, appLogger logger.ZapLogger) *sqlx.DB {
	db, err := postgres.NewPostgres(&postgres.Config{
		Host:            cfg.Postgres.Host,
		Port:            cfg.Postgres.Port,
		User:            cfg.Postgres.User,
		Password:        cfg.Postgres.Password,
		DBName:          cfg.Postgres.DBName,
		SSLMode:         cfg.Postgres.SSLMode,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to database", zap.Error(err))
	}
	appLogger.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Postgres.DBName))
	return db
}

// catalogCache returns the client for catalog caching. A client opened only
// for the redis lock backend is not used as a cache.
func catalogCache(cfg *config.Config, client *cache.RedisClient) *cache.RedisClient {
	if !cfg.Redis.Enabled {
		return nil
	}
	return client
}

func normalizePort(port string) string {
	if !strings.HasPrefix(port, ":") {
		return ":" + port
	}
	return port
}
