// Package app assembles the front desk from configuration.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/room4-2/FrontDesk/cache"
	"github.com/room4-2/FrontDesk/config"
	"github.com/room4-2/FrontDesk/dialogue"
	"github.com/room4-2/FrontDesk/domain"
	"github.com/room4-2/FrontDesk/gemini"
	"github.com/room4-2/FrontDesk/hr"
	"github.com/room4-2/FrontDesk/metrics"
	"github.com/room4-2/FrontDesk/notify"
	"github.com/room4-2/FrontDesk/scheduler"
	"github.com/room4-2/FrontDesk/store/memory"
	"github.com/room4-2/FrontDesk/store/sqlstore"
)

// App holds the long-lived collaborators shared by every conversation.
type App struct {
	Store   domain.Store
	Redis   *redis.Client // nil when Redis is unreachable
	Machine *dialogue.Machine
	Metrics *metrics.Metrics
	logger  *zap.Logger
}

// New opens storage, seeds the catalog and builds the dialogue machine.
// Redis, Gemini and Twilio are optional; each is skipped with a log line when
// it is not configured or not reachable.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := metrics.New()

	store, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}
	if err := store.SeedCourses(ctx, domain.SeedCatalog()); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to seed courses: %w", err)
	}

	rdb := ConnectRedis(ctx, cfg, logger)
	var backend cache.Backend
	if rdb != nil {
		backend = cache.NewRedisBackend(rdb)
	}
	courses := cache.NewCourseCache(store, backend, cfg.CourseCacheTTL, logger, m)

	smsCfg := notify.SMSConfig{
		AccountSID:    cfg.TwilioAccountSID,
		AuthToken:     cfg.TwilioAuthToken,
		FromNumber:    cfg.TwilioPhoneNumber,
		CountryPrefix: cfg.SMSCountryPrefix,
		Org:           cfg.OrgName,
		HRContact:     cfg.HRContact,
	}
	var notifier domain.Notifier
	if smsCfg.Enabled() {
		notifier = notify.NewSMS(smsCfg, logger)
	} else {
		logger.Info("Twilio credentials not set, SMS confirmations will only be logged")
		notifier = notify.NewLog(logger)
	}

	sched := scheduler.New(scheduler.Config{
		Anchor:      cfg.AutoscheduleAnchor,
		HorizonDays: cfg.AutoscheduleHorizon,
		Slots:       cfg.AutoscheduleSlots,
	}, store, notifier, logger, m)

	handler := hr.NewHandler(hr.Config{
		Secret:           cfg.HRSecret,
		PriceFloor:       cfg.PriceFloor,
		InteractionLimit: cfg.InteractionLimit,
	}, store, courses, logger, m)

	deps := dialogue.Deps{
		Store:     store,
		Scheduler: sched,
		HR:        handler,
		Courses:   courses,
		Org:       cfg.OrgName,
		HRContact: cfg.HRContact,
		Logger:    logger,
		Metrics:   m,
	}
	if cfg.GeminiAPIKey != "" {
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.OrgName, logger)
		if err != nil {
			logger.Warn("Gemini unavailable, generated replies disabled", zap.Error(err))
		} else {
			deps.Dialogue = client
			deps.Counselor = client
		}
	} else {
		logger.Info("GEMINI_API_KEY not set, generated replies disabled")
	}

	return &App{
		Store:   store,
		Redis:   rdb,
		Machine: dialogue.NewMachine(deps),
		Metrics: m,
		logger:  logger,
	}, nil
}

// OpenStore returns the storage adapter named by cfg.StorageBackend.
func OpenStore(cfg *config.Config) (domain.Store, error) {
	switch cfg.StorageBackend {
	case "memory":
		return memory.NewStore(), nil
	case "sqlite", "":
		store, err := sqlstore.Open(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// ConnectRedis pings the configured Redis and returns nil when it does not answer.
func ConnectRedis(ctx context.Context, cfg *config.Config, logger *zap.Logger) *redis.Client {
	if cfg.RedisURL == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("Redis unavailable, using in-process cache and session tracking",
			zap.String("addr", cfg.RedisURL), zap.Error(err))
		_ = rdb.Close()
		return nil
	}
	return rdb
}

// Close releases storage and the Redis connection.
func (a *App) Close() error {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.logger.Warn("Failed to close Redis", zap.Error(err))
		}
	}
	return a.Store.Close()
}
