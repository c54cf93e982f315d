package bootstrap

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"poseidon/internal/adapters/config"
	"poseidon/internal/adapters/custody"
	redisadapter "poseidon/internal/adapters/redis"
	"poseidon/internal/adapters/relay"
	"poseidon/internal/adapters/solanarpc"
	"poseidon/internal/adapters/swaprouter"
	"poseidon/internal/adapters/telegram"
	"poseidon/internal/adapters/venueapi"
	"poseidon/internal/api"
	"poseidon/internal/api/health"
	"poseidon/internal/services/budget"
	"poseidon/internal/services/notify"
	"poseidon/internal/services/oracle"
	"poseidon/internal/services/pipeline"
	"poseidon/internal/services/pools"
	"poseidon/internal/services/positions"
	"poseidon/internal/services/sealer"
	"poseidon/internal/services/submit"
	"poseidon/internal/services/wallet"
	"poseidon/internal/store"
	"poseidon/internal/venues"
	"poseidon/internal/venues/clmm"
	"poseidon/internal/venues/dlmm"
	"poseidon/internal/venues/whirlpool"
	"poseidon/internal/workers"
	"poseidon/pkg/errors"
	"poseidon/pkg/logger"
)

// Container holds all application dependencies in initialization order.
type Container struct {
	Config *config.Config
	Log    *logger.Logger

	Store     *store.Store
	RPC       *solanarpc.Client
	Registry  *venues.Registry
	Pools     *pools.Aggregator
	Oracle    *oracle.Aggregator
	Composer  *pipeline.Composer
	Indexer   *positions.Indexer
	Wallets   *wallet.Service
	Fanout    *notify.Fanout
	Monitor   *workers.Monitor
	Scheduler *workers.Scheduler
	Server    *api.Server
}

// Build wires the full dependency graph. The Redis-backed store degrades to
// the in-memory fallback when the store is unreachable.
func Build(cfg *config.Config, log *logger.Logger) (*Container, error) {
	// Sealer self-test runs before anything touches user capital.
	if err := sealer.SelfTest(); err != nil {
		return nil, errors.Wrap(err, "sealer self-test failed")
	}

	var kv store.KV
	redisClient, err := redisadapter.NewClient(cfg.Redis)
	if err != nil {
		log.Warnw("redis unreachable, using in-memory store fallback", "error", err)
		kv = store.NewMemory()
	} else {
		kv = store.NewRedisKV(redisClient)
	}
	st := store.New(kv)

	rpcClient := solanarpc.NewClient(cfg.Solana)

	registry := venues.NewRegistry(
		dlmm.New(rpcClient),
		whirlpool.New(rpcClient),
		clmm.New(rpcClient),
	)

	poolAgg := pools.NewAggregator(venueapi.All(cfg.Venues), cfg.Venues.CacheTTL, cfg.Venues.MinTVL, cfg.Venues.MaxRisk)
	oracleAgg := oracle.NewAggregator(cfg.Oracle)
	estimator := budget.NewEstimator(rpcClient)

	router := swaprouter.NewClient(cfg.SwapRouter)

	relayClient, err := relay.NewClient(cfg.Relay)
	if err != nil {
		return nil, err
	}

	custodyClient := custody.NewClient(cfg.Custody)
	driver := submit.NewDriver(rpcClient, relayClient, custodyClient)

	seal, err := sealer.New(cfg.Sealer)
	if err != nil {
		return nil, err
	}

	var treasury solana.PublicKey
	if cfg.Treasury.Account != "" {
		treasury, err = solana.PublicKeyFromBase58(cfg.Treasury.Account)
		if err != nil {
			return nil, errors.Wrap(errors.ErrValidation, "bad treasury account")
		}
	}

	composer := pipeline.NewComposer(
		registry, oracleAgg, estimator, router, relayClient, rpcClient, driver, seal,
		treasury, uint64(cfg.Treasury.FeeBps),
	)

	indexer := positions.NewIndexer(registry, poolAgg, cfg.Venues.CacheTTL/2)
	driver.OnExecuted(indexer.Invalidate)

	wallets := wallet.NewService(st, custodyClient, rpcClient)

	chat, err := telegram.NewClient(cfg.Telegram)
	if err != nil {
		return nil, err
	}
	fanout := notify.NewFanout(st, chat)

	monitor := workers.NewMonitor(st, registry, composer, fanout, wallets,
		cfg.Workers.MonitorInterval, cfg.Workers.MonitorEnabled)

	scheduler := workers.NewScheduler()
	scheduler.RegisterWorker(monitor)

	healthHandler := health.New(st, rpcClient, cfg.App.Name, cfg.App.Version)

	server := api.NewServer(
		api.ServerConfig{Port: cfg.HTTP.Port, ServiceName: cfg.App.Name, Version: cfg.App.Version},
		wallets, poolAgg, oracleAgg, composer, indexer, registry, st, monitor, healthHandler,
	)

	return &Container{
		Config:    cfg,
		Log:       log,
		Store:     st,
		RPC:       rpcClient,
		Registry:  registry,
		Pools:     poolAgg,
		Oracle:    oracleAgg,
		Composer:  composer,
		Indexer:   indexer,
		Wallets:   wallets,
		Fanout:    fanout,
		Monitor:   monitor,
		Scheduler: scheduler,
		Server:    server,
	}, nil
}

// Start launches background workers and the HTTP server.
func (c *Container) Start(ctx context.Context) error {
	if err := c.Scheduler.Start(ctx); err != nil {
		return err
	}

	go func() {
		if err := c.Server.Start(); err != nil {
			c.Log.Errorw("http server exited", "error", err)
		}
	}()
	return nil
}

// Stop shuts everything down in reverse order.
func (c *Container) Stop(ctx context.Context) {
	if err := c.Server.Shutdown(ctx); err != nil {
		c.Log.Warnw("http shutdown failed", "error", err)
	}
	if err := c.Scheduler.Stop(); err != nil {
		c.Log.Warnw("scheduler shutdown failed", "error", err)
	}
}
