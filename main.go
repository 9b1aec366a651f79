package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"tradehub/internal/config"
	"tradehub/internal/jobs"
	"tradehub/internal/logger"
	"tradehub/internal/mail"
	"tradehub/internal/repositories"
	"tradehub/internal/server"
	"tradehub/internal/services"
	"tradehub/internal/storage"
	"tradehub/pkg/rabbitmq"
)

const (
	startupTimeout  = 15 * time.Second
	shutdownTimeout = 10 * time.Second

	orderCounterQueue = "tradehub.order_counter"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.Initialize(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	if cfg.UsingDevSecret {
		log.Warn("JWT_SECRET is unset, signing tokens with the development secret", zap.String("env", cfg.Env))
	}

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	// --- Store ---
	store, err := openStore(startCtx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			log.Error("failed to close store", zap.Error(err))
		}
	}()
	log.Info("store ready", zap.String("driver", cfg.StoreDriver))

	if cfg.RedisURL != "" {
		client, err := newRedisClient(startCtx, cfg.RedisURL)
		if err != nil {
			// The catalog still works from the store alone.
			log.Warn("product cache disabled", zap.Error(err))
		} else {
			defer client.Close()
			store.Products = repositories.NewCachedProductRepository(store.Products, client, cfg.CacheTTL)
			log.Info("product cache enabled", zap.Duration("ttl", cfg.CacheTTL))
		}
	}

	if cfg.SeedCatalog {
		if err := seedCatalog(startCtx, store); err != nil {
			log.Warn("failed to seed catalog", zap.Error(err))
		}
	}

	// --- Uploads and mail ---
	images, err := newImageStore(startCtx, cfg)
	if err != nil {
		return err
	}
	templates, err := mail.NewTemplates()
	if err != nil {
		return err
	}
	mailer := newMailSender(cfg, log)

	// --- Events ---
	var publisher services.EventPublisher
	if cfg.RabbitMQURL != "" {
		mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL})
		if err != nil {
			log.Warn("event publishing disabled", zap.Error(err))
		} else {
			defer mq.Close()
			publisher = mq
			counter := services.NewOrderCounter(store.Products)
			if err := mq.Consume(ctx, orderCounterQueue, services.EventOrderCreated, counter.HandleOrderCreated); err != nil {
				log.Error("failed to start order counter consumer", zap.Error(err))
			}
		}
	}

	// --- Background jobs ---
	if !store.ExpiringOTPs {
		scheduler, err := jobs.NewScheduler(store.OTPs, cfg.OTPPurgeInterval)
		if err != nil {
			return err
		}
		scheduler.Start()
		defer shutdownScheduler(scheduler, log)
	}

	app := server.NewApp(server.Deps{
		Config:    cfg,
		Store:     store,
		Images:    images,
		Mailer:    mailer,
		Templates: templates,
		Publisher: publisher,
		Log:       log,
	})

	serverErr := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("addr", cfg.AppPort))
		serverErr <- app.Listen(cfg.AppPort)
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Error("error during fiber shutdown", zap.Error(err))
	}
	log.Info("server gracefully stopped")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (*repositories.Store, error) {
	switch cfg.StoreDriver {
	case "mongo":
		db, err := repositories.ConnectToMongoDB(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		if err := repositories.EnsureIndexes(ctx, db); err != nil {
			_ = db.Client().Disconnect(ctx)
			return nil, err
		}
		return repositories.NewMongoStore(db), nil
	case "postgres", "sqlite":
		db, err := repositories.OpenGORM(cfg.StoreDriver, cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		return repositories.NewGORMStore(db), nil
	case "memory":
		return repositories.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
	}
}

func newRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func newImageStore(ctx context.Context, cfg *config.Config) (storage.ImageStore, error) {
	if cfg.UploadDriver == "s3" {
		return storage.NewS3ImageStore(ctx, cfg.S3Bucket, cfg.S3PublicURL)
	}
	return storage.NewLocalImageStore(cfg.UploadDir, server.UploadsPrefix)
}

// newMailSender delivers over SMTP when a host is configured and otherwise only logs envelopes.
func newMailSender(cfg *config.Config, log *zap.Logger) mail.Sender {
	if !cfg.SMTPEnabled() {
		log.Warn("SMTP_HOST not set, reset emails will be logged instead of sent")
		return mail.NewLogSender(log)
	}
	return mail.NewSMTPSender(mail.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
	})
}

func shutdownScheduler(s gocron.Scheduler, log *zap.Logger) {
	if err := s.Shutdown(); err != nil {
		log.Error("failed to stop scheduler", zap.Error(err))
	}
}
