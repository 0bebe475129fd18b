// Package sweeper собирает приложение свипера грейс-периодов:
// запуск финализации по cron-расписанию с публикацией уведомлений.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/storage-quota-engine/internal/cache"
	"github.com/magabrotheeeer/storage-quota-engine/internal/config"
	"github.com/magabrotheeeer/storage-quota-engine/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/storage-quota-engine/internal/lib/sl"
	sweeperservice "github.com/magabrotheeeer/storage-quota-engine/internal/services/sweeper"
	"github.com/magabrotheeeer/storage-quota-engine/internal/storage/repository"
)

// App представляет приложение свипера.
type App struct {
	sweeperService *sweeperservice.SweeperService
	schedule       string
	conn           *amqp.Connection
	ch             *amqp.Channel
	db             *repository.Storage
	logger         *slog.Logger
}

func waitForDB(db *repository.Storage) error {
	for range 10 {
		err := repository.CheckDatabaseReady(db)
		if err == nil {
			return nil
		}
		time.Sleep(3 * time.Second)
	}
	return fmt.Errorf("database not ready after retries")
}

// New создает новый экземпляр приложения свипера.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		closeResources(nil, conn, logger)
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}

	if err := waitForDB(db); err != nil {
		closeResources(ch, conn, logger)
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("cache not initialized: %w", err)
	}

	sweeperService := sweeperservice.NewSweeperService(db, cacheRedis,
		rabbitmq.NewPublisher(ch), logger, cfg.FreeTierLimitBytes, cfg.SweepWorkers)

	return &App{
		sweeperService: sweeperService,
		schedule:       cfg.SweepSchedule,
		conn:           conn,
		ch:             ch,
		db:             db,
		logger:         logger,
	}, nil
}

func closeResources(ch *amqp.Channel, conn *amqp.Connection, logger *slog.Logger) {
	if ch != nil {
		if err := ch.Close(); err != nil {
			logger.Error("failed to close channel", "error", err)
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close connection", "error", err)
		}
	}
}

func (a *App) sweep(ctx context.Context) {
	report, err := a.sweeperService.ExpireGracePeriods(ctx)
	if err != nil {
		a.logger.Error("sweep run failed", sl.Err(err))
		return
	}
	for _, msg := range report.Errors {
		a.logger.Error("sweep account error", slog.String("detail", msg))
	}
}

// Run запускает свипер: один прогон сразу и далее по cron-расписанию.
func (a *App) Run(ctx context.Context) error {
	a.sweep(ctx)

	c := cron.New()
	if _, err := c.AddFunc(a.schedule, func() { a.sweep(ctx) }); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", a.schedule, err)
	}
	c.Start()

	<-ctx.Done()

	a.logger.Info("shutting down sweeper service")
	<-c.Stop().Done()

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", slog.Any("err", err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", slog.Any("err", err))
	}
	if err := a.db.DB.Close(); err != nil {
		a.logger.Error("failed to close database", slog.Any("err", err))
	}

	return nil
}
