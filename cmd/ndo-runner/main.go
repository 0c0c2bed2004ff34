// ndo-runner — сервис выполнения процедур.
//
// Runner:
//   - Загружает определения из каталога и каталога PostgreSQL
//   - Принимает запуски через HTTP API, cron триггеры и RabbitMQ
//   - Публикует run.finished и архивирует завершённые run
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/ndo/internal/api"
	"github.com/shaiso/ndo/internal/config"
	"github.com/shaiso/ndo/internal/domain"
	"github.com/shaiso/ndo/internal/engine"
	"github.com/shaiso/ndo/internal/metrics"
	"github.com/shaiso/ndo/internal/mq"
	"github.com/shaiso/ndo/internal/procedure"
	"github.com/shaiso/ndo/internal/repo"
	"github.com/shaiso/ndo/internal/runner"
	"github.com/shaiso/ndo/internal/telemetry"
	"github.com/shaiso/ndo/internal/trigger"
)

var startTime = time.Now()

func main() {
	configPath := flag.String("config", os.Getenv("NDO_CONFIG"), "Path to YAML config")
	flag.Parse()

	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting ndo-runner")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	metrics.Init()

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// PostgreSQL (опционально)
	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool, err = repo.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := repo.EnsureSchema(ctx, pool); err != nil {
			logger.Error("failed to apply schema", "error", err)
			os.Exit(1)
		}
		logger.Info("database connected")
	}

	// Определения процедур
	defs, err := loadDefinitions(ctx, cfg, pool, logger)
	if err != nil {
		logger.Error("failed to load procedures", "error", err)
		os.Exit(1)
	}

	registry := engine.NewRegistry()
	compiler := procedure.NewCompiler(nil)
	if err := procedure.Install(registry, compiler, defs...); err != nil {
		logger.Error("failed to compile procedures", "error", err)
		os.Exit(1)
	}
	logger.Info("procedures registered", "count", registry.Count())

	scheduler := engine.New(registry, engine.WithObserver(engine.Observers{
		telemetry.NewLogObserver(logger),
		metrics.NewObserver(),
	}))

	// RabbitMQ (опционально)
	var mqConn *mq.Connection
	runnerCfg := runner.Config{
		Scheduler:   scheduler,
		Logger:      logger,
		HistorySize: cfg.HistorySize,
	}
	if pool != nil {
		runnerCfg.Archive = repo.NewRunRepo(pool)
	}
	if cfg.RabbitMQURL != "" {
		mqConn, err = mq.NewConnection(cfg.RabbitMQURL, logger)
		if err != nil {
			logger.Warn("RabbitMQ not available, running without queue", "error", err)
		} else {
			defer mqConn.Close()
			logger.Info("RabbitMQ connected")

			if err := mq.SetupTopology(ctx, mqConn); err != nil {
				logger.Warn("failed to setup topology", "error", err)
			}
			runnerCfg.Publisher = mq.NewPublisher(mqConn, logger)
		}
	}

	svc := runner.New(runnerCfg)

	if mqConn != nil {
		consumer := mq.NewConsumer(mqConn, logger, mq.ConsumerConfig{
			Queue:   mq.QueueRunsRequested,
			Handler: svc.HandleRunRequested,
		})
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("consumer stopped", "error", err)
			}
		}()
	}

	// Cron триггеры
	triggers := trigger.New(trigger.Config{Starter: svc, Logger: logger})
	for _, t := range cfg.Triggers {
		if _, err := triggers.Add(t); err != nil {
			logger.Error("failed to add trigger", "trigger", t.Name, "error", err)
			os.Exit(1)
		}
	}
	triggers.Start()

	// HTTP API
	handler := api.NewHandler(api.Config{
		Registry:    registry,
		Compiler:    compiler,
		Runs:        svc,
		Logger:      logger,
		Catalog:     catalogOf(pool),
		Definitions: defs,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s active=%d", time.Since(startTime).Round(time.Second), svc.Active())
	})
	mux.Handle("/metrics", promhttp.Handler())
	handler.RegisterRoutes(mux)

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "error", err)
	}
	if err := triggers.Stop(shutdownCtx); err != nil {
		logger.Error("trigger shutdown error", "error", err)
	}
	if err := svc.Shutdown(shutdownCtx); err != nil {
		logger.Error("runner shutdown error", "error", err)
	}

	logger.Info("ndo-runner stopped")
}

// loadDefinitions читает каталог определений и каталог в PostgreSQL.
// Определение из базы заменяет одноимённое из файлов.
func loadDefinitions(ctx context.Context, cfg config.Config, pool *pgxpool.Pool, logger *slog.Logger) ([]*domain.ProcedureDef, error) {
	var defs []*domain.ProcedureDef

	if cfg.DefinitionsDir != "" {
		fromDir, err := procedure.LoadDir(cfg.DefinitionsDir)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			logger.Warn("definitions directory not found", "dir", cfg.DefinitionsDir)
		case err != nil:
			return nil, err
		default:
			defs = fromDir
		}
	}

	if pool == nil {
		return defs, nil
	}

	stored, err := repo.NewProcedureRepo(pool).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stored procedures: %w", err)
	}

	index := make(map[string]int, len(defs))
	for i, def := range defs {
		index[def.Name] = i
	}
	for _, def := range stored {
		if i, ok := index[def.Name]; ok {
			logger.Info("stored definition overrides file", "procedure", def.Name)
			defs[i] = def
			continue
		}
		index[def.Name] = len(defs)
		defs = append(defs, def)
	}
	return defs, nil
}

// catalogOf возвращает каталог только при настроенной базе:
// nil *ProcedureRepo в интерфейсе не равен nil.
func catalogOf(pool *pgxpool.Pool) api.Catalog {
	if pool == nil {
		return nil
	}
	return repo.NewProcedureRepo(pool)
}
