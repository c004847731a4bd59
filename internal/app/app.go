package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/oil_storefront/internal/auth"
	"github.com/fjod/oil_storefront/internal/cache"
	"github.com/fjod/oil_storefront/internal/cart"
	"github.com/fjod/oil_storefront/internal/catalog"
	"github.com/fjod/oil_storefront/internal/checkout"
	"github.com/fjod/oil_storefront/internal/config"
	"github.com/fjod/oil_storefront/internal/dashboard"
	"github.com/fjod/oil_storefront/internal/events"
	"github.com/fjod/oil_storefront/internal/kv"
	"github.com/fjod/oil_storefront/internal/ledger"
	"github.com/fjod/oil_storefront/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// App holds the storefront services wired over one store.
type App struct {
	Catalog   *catalog.Repository
	Carts     *cart.Service
	Ledger    *ledger.Ledger
	Auth      *auth.Session
	Checkout  *checkout.Service
	Dashboard *dashboard.Service

	cfg       *config.Config
	store     kv.Store
	publisher events.Publisher
	closers   []func() error
}

// New connects to the configured backend and builds every service.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{cfg: cfg}

	store, redisClient, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	if cfg.BreakerEnabled && isRemote(cfg.StoreBackend) {
		store = kv.NewBreakerStore(store, kv.DefaultBreakerSettings(string(cfg.StoreBackend)))
	}

	var cartCache cache.CartCache = cache.Noop{}
	if cfg.CartCacheEnabled {
		if redisClient == nil {
			redisClient, err = kv.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
			if err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("cart cache: %w", err)
			}
			a.closers = append(a.closers, redisClient.Close)
		}
		cartCache = cache.NewRedisCache(redisClient, cfg.CartCacheTTL)
		log.Debug().Str("addr", cfg.RedisAddr).Msg("cart cache enabled")
	}

	var publisher events.Publisher = events.LogPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.OrderEventsTopic, cfg.KafkaBrokers...)
		log.Debug().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.OrderEventsTopic).Msg("publishing order events to kafka")
	}

	a.wire(store, cartCache, publisher)
	return a, nil
}

// NewWithStore builds the services over an already open store, with no cart
// cache and log-only events.
func NewWithStore(cfg *config.Config, store kv.Store) *App {
	a := &App{cfg: cfg}
	a.wire(store, cache.Noop{}, events.LogPublisher{})
	return a
}

func (a *App) wire(store kv.Store, cartCache cache.CartCache, publisher events.Publisher) {
	a.store = store
	a.publisher = publisher

	ledgerOpts := []ledger.Option{ledger.WithPublisher(publisher)}
	if a.cfg.StrictStatusTransitions {
		ledgerOpts = append(ledgerOpts, ledger.WithStrictTransitions())
	}

	a.Catalog = catalog.NewRepository(repository.NewProductRepository(store))
	a.Carts = cart.NewService(repository.NewCartRepository(store), cartCache)
	a.Ledger = ledger.New(repository.NewOrderRepository(store), ledgerOpts...)
	a.Auth = auth.NewSession(
		repository.NewCustomerRepository(store),
		repository.NewSessionRepository(store),
		auth.WithLatency(a.cfg.AuthLatency),
	)
	a.Checkout = checkout.NewService(a.Carts, a.Ledger)
	a.Dashboard = dashboard.NewService(a.Catalog, a.Ledger, a.Auth)
}

func (a *App) openStore(ctx context.Context) (kv.Store, *redis.Client, error) {
	cfg := a.cfg
	switch cfg.StoreBackend {
	case config.BackendMemory:
		return kv.NewMemoryStore(), nil, nil

	case config.BackendSQLite:
		s, err := kv.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := s.RunMigrations(); err != nil {
			_ = s.Close()
			return nil, nil, err
		}
		return s, nil, nil

	case config.BackendPostgres:
		s, err := kv.NewPostgresStore(&kv.Credentials{
			Host:     cfg.DbHost,
			Port:     cfg.DbPort,
			User:     cfg.DbUser,
			Password: cfg.DbPas,
			DBName:   cfg.DbName,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := s.RunMigrations(); err != nil {
			_ = s.Close()
			return nil, nil, err
		}
		return s, nil, nil

	case config.BackendRedis:
		client, err := kv.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return kv.NewRedisStore(client, "storefront"), client, nil

	case config.BackendMongo:
		db, err := kv.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, nil, err
		}
		return kv.NewMongoStore(db), nil, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

func isRemote(b config.Backend) bool {
	return b == config.BackendPostgres || b == config.BackendRedis || b == config.BackendMongo
}

// RunCartCleaner consumes order events until ctx is done. It returns at once
// when no Kafka brokers are configured.
func (a *App) RunCartCleaner(ctx context.Context) {
	if len(a.cfg.KafkaBrokers) == 0 {
		log.Warn().Msg("cart cleaner needs KAFKA_BROKERS; nothing to consume")
		return
	}
	cleaner := events.NewCartCleaner(a.Carts, a.cfg.OrderEventsTopic, a.cfg.KafkaBrokers...)
	defer cleaner.Close()
	log.Info().Str("topic", a.cfg.OrderEventsTopic).Msg("cart cleaner started")
	cleaner.Run(ctx)
}

// Close releases the publisher, the store and any extra connections.
func (a *App) Close() error {
	errs := []error{a.publisher.Close(), a.store.Close()}
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
