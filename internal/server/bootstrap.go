package server

import (
	"context"
	"fmt"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sannu-sannu/sannu-server/internal/cache"
	"github.com/sannu-sannu/sannu-server/internal/config"
	"github.com/sannu-sannu/sannu-server/internal/imagestore"
	"github.com/sannu-sannu/sannu-server/internal/notify"
	"github.com/sannu-sannu/sannu-server/internal/service"
	"github.com/sannu-sannu/sannu-server/internal/storage"
)

// SetupLogging configures the global zerolog logger.
func SetupLogging(cfg config.LogConfig) {
	if cfg.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

// Dependencies holds the collaborators shared by the server processes.
type Dependencies struct {
	Store storage.Store
	NATS  *nats.Conn
	Redis *redis.Client

	Options service.Options
}

// Open connects every configured backend. Redis and NATS failures are
// logged and the process continues without them; a store failure is fatal.
func Open(ctx context.Context, cfg *config.Config, name string) (*Dependencies, error) {
	store, err := OpenStore(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	d := &Dependencies{Store: store}
	d.Options = service.Options{
		Store:         store,
		ImageMaxBytes: cfg.Images.MaxBytes,
	}

	if cfg.Images.Dir != "" {
		images, err := imagestore.NewLocalStore(cfg.Images.Dir, cfg.Images.BaseURL)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("image store: %w", err)
		}
		d.Options.Images = images
		log.Info().Str("dir", cfg.Images.Dir).Msg("Product images enabled")
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Failed to connect to Redis, statistics will not be cached")
			client.Close()
		} else {
			d.Redis = client
			d.Options.Cache = cache.NewRedisStatsCache(client, cfg.Redis.KeyPrefix, cfg.Redis.StatsTTL)
			log.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")
		}
	}

	if cfg.NATS.URL != "" {
		nc, err := ConnectNATS(cfg.NATS, name)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to connect to NATS, continuing without notifications")
		} else {
			d.NATS = nc
			d.Options.Notifier = notify.NewNATSPublisher(nc, cfg.NATS.SubjectPrefix)
			log.Info().Msg("Connected to NATS")
		}
	} else {
		log.Info().Msg("NATS not configured, running in standalone mode")
	}

	return d, nil
}

// Close releases every connection.
func (d *Dependencies) Close() {
	if d.NATS != nil {
		d.NATS.Close()
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Redis client")
		}
	}
	if err := d.Store.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close store")
	}
}

// OpenStore opens the configured storage backend.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig) (storage.Store, error) {
	switch cfg.Driver {
	case "memory":
		log.Warn().Msg("Using in-memory store, data is lost on exit")
		return storage.NewMemoryStore(), nil
	case "postgres":
		store, err := storage.NewPostgresStore(ctx, cfg.DSN, storage.PoolConfig{
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
		log.Info().Msg("Connected to database")
		return store, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// ConnectNATS dials NATS with reconnect handling.
func ConnectNATS(cfg config.NATSConfig, name string) (*nats.Conn, error) {
	log.Info().Str("url", cfg.URL).Msg("Connecting to NATS...")

	return nats.Connect(cfg.URL,
		nats.Name(name),
		nats.UserInfo(cfg.Username, cfg.Password),
		nats.ReconnectWait(cfg.ReconnectInterval),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn().Err(err).Msg("Disconnected from NATS")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Msg("Reconnected to NATS")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			log.Error().Err(err).Str("subject", subject).Msg("NATS error")
		}),
	)
}
