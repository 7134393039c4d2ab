package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	appsvc "crowdfund-api/internal/app"
	"crowdfund-api/internal/config"
	"crowdfund-api/internal/platform/logging"
	mysqlClient "crowdfund-api/internal/platform/mysql"
	rabbitmqClient "crowdfund-api/internal/platform/rabbitmq"
	redisClient "crowdfund-api/internal/platform/redis"
	"crowdfund-api/internal/repository"
	"crowdfund-api/internal/worker"
)

type App struct {
	Config         *config.Config
	Logger         *logrus.Logger
	MySQL          *gorm.DB
	Redis          *redis.Client
	MQConn         *amqp.Connection
	DonationWorker *worker.DonationPersistWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	log := logging.New(cfg.Log.Level, nil)

	app := &App{
		Config:    cfg,
		Logger:    log,
		StartedAt: time.Now(),
	}

	app.MySQL, err = mysqlClient.New(ctx, cfg.MySQLDSN(), log)
	if err != nil {
		return nil, err
	}
	if err := repository.AutoMigrate(app.MySQL); err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	app.Redis, err = redisClient.New(ctx, redisClient.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	app.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.App.Name)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	persister := appsvc.NewDonationService(
		repository.NewDonationRepository(app.MySQL),
		repository.NewCampaignRepository(app.MySQL),
		repository.NewUserRepository(app.MySQL),
		nil,
	)
	app.DonationWorker = worker.NewDonationPersistWorker(app.MQConn, persister, cfg.RabbitMQ.DonationPersistQueue, log)
	if err := app.DonationWorker.Start(ctx); err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("start donation worker failed: %w", err)
	}

	log.WithFields(logrus.Fields{
		"env":   cfg.App.Env,
		"queue": cfg.RabbitMQ.DonationPersistQueue,
	}).Info("dependencies ready")
	return app, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.DonationWorker != nil {
		a.DonationWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
