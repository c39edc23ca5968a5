package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"emarknews/api"
	"emarknews/config"
	"emarknews/orchestrator"
	"emarknews/shared/kafka"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, refresh schedule and feedback consumer",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.close(); err != nil {
			logger.Warn("shutdown finished with errors", zap.Error(err))
		}
	}()

	if n := a.orch.WarmFromArchive(ctx); n > 0 {
		logger.Info("warmed categories from archive", zap.Int("count", n))
	}

	sched := orchestrator.NewScheduler(a.orch, logger)
	if err := sched.Start(ctx, cfg.RefreshSchedule); err != nil {
		return err
	}
	defer sched.Stop()
	go sched.RunOnce()

	if cfg.CatalogPath != "" {
		go func() {
			err := config.Watch(ctx, cfg.CatalogPath, logger, func(cat config.Catalog) {
				if err := a.orch.Reconfigure(cat); err != nil {
					logger.Warn("rejected catalog reload", zap.Error(err))
				}
			})
			if err != nil {
				logger.Warn("catalog watcher stopped", zap.Error(err))
			}
		}()
	}

	if len(cfg.KafkaBrokers) > 0 && cfg.FeedbackTopic != "" {
		consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.FeedbackTopic,
			GroupID: cfg.KafkaGroup,
			Handler: kafka.NewFeedbackHandler(a.orch, logger),
			Logger:  logger,
		})
		if err != nil {
			logger.Warn("feedback consumer disabled", zap.Error(err))
		} else {
			defer consumer.Close()
			go func() {
				if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Warn("feedback consumer failed to start", zap.Error(err))
				}
			}()
		}
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           api.NewRouter(a.orch, a.metrics.Registry(), logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting API server", zap.String("addr", srv.Addr), zap.Strings("categories", a.orch.Categories()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
