package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/garyjia/billing-engine/internal/application/service"
	"github.com/garyjia/billing-engine/internal/billing"
	"github.com/garyjia/billing-engine/internal/config"
	"github.com/garyjia/billing-engine/internal/export"
	"github.com/garyjia/billing-engine/internal/infrastructure/messaging/kafka"
	"github.com/garyjia/billing-engine/internal/infrastructure/persistence/repository"
	"github.com/garyjia/billing-engine/internal/infrastructure/worker"
	httpserver "github.com/garyjia/billing-engine/internal/interfaces/http"
	"github.com/garyjia/billing-engine/pkg/database"
	"github.com/garyjia/billing-engine/pkg/utils"
)

func main() {
	_ = gotenv.Load()

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting billing engine",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	// Initialize database
	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Initialize repositories
	seriesRepo := repository.NewSeriesRepository(db.DB, logger)
	invoiceRepo := repository.NewInvoiceRepository(db.DB, logger)
	txManager := repository.NewTxManager(db.DB, logger)

	// Initialize billing engine
	builder := &billing.SeriesBuilder{
		Policy: cfg.BacklogPolicyValue(),
		Clock:  billing.SystemClock,
	}
	settler := billing.NewSettlementEngine(billing.SystemClock)

	// Initialize Kafka producer
	producer := kafka.NewOrderProducer(cfg.Kafka.Brokers, cfg.Kafka.OrderTopic, logger)
	defer producer.Close()

	// Initialize services
	serviceLogger := &zapLoggerAdapter{logger: logger}
	seriesService := service.NewSeriesService(
		seriesRepo, invoiceRepo, txManager, builder, settler, serviceLogger)
	orderingService := service.NewOrderingService(
		seriesRepo, invoiceRepo, producer, txManager, cfg.Billing.OrderingBatch, serviceLogger)
	exporter := export.NewReconciliationExporter(invoiceRepo, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start background workers
	workerManager := worker.NewManager(logger)
	workerManager.Register(worker.NewOrderingWorker(
		orderingService, cfg.Billing.OrderingSchedule, cfg.Billing.OrderingTimeout, logger))
	if err := workerManager.StartAll(ctx); err != nil {
		logger.Fatal("Failed to start workers", zap.Error(err))
	}

	// Start HTTP server
	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, seriesService, orderingService, exporter, serviceLogger)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(ctx)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("Shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil {
			logger.Error("HTTP server failed", zap.Error(err))
		}
	}

	cancel()
	if err := workerManager.StopAll(); err != nil {
		logger.Error("Failed to stop workers", zap.Error(err))
	}
	if err := server.Stop(); err != nil {
		logger.Error("Failed to stop HTTP server", zap.Error(err))
	}

	logger.Info("Server exited")
}

// zapLoggerAdapter adapts zap.Logger to the service and http Logger
// interfaces
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Warn(msg string, keysAndValues ...interface{}) {
	a.logger.Warn(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", keysAndValues[i])
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
