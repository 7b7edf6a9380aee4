package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	corelock "stockledger/internal/core/lock"
	corenum "stockledger/internal/core/numerator"
	"stockledger/internal/core/tx"
	"stockledger/internal/domain/catalogs/unit"
	"stockledger/internal/domain/catalogs/variant"
	"stockledger/internal/domain/documents/adjustment"
	"stockledger/internal/domain/documents/purchase"
	"stockledger/internal/domain/documents/sale"
	"stockledger/internal/domain/documents/transfer"
	"stockledger/internal/domain/registers/stock"
	"stockledger/internal/domain/transaction"
	"stockledger/internal/infrastructure/cache"
	distlock "stockledger/internal/infrastructure/lock"
	"stockledger/internal/infrastructure/storage/memory"
	"stockledger/internal/infrastructure/storage/postgres"
	"stockledger/internal/infrastructure/storage/postgres/catalog_repo"
	"stockledger/internal/infrastructure/storage/postgres/document_repo"
	"stockledger/internal/infrastructure/storage/postgres/register_repo"
	"stockledger/pkg/config"
	"stockledger/pkg/logger"
	"stockledger/pkg/numerator"
)

// app holds the wired services of one stockctl run.
type app struct {
	cfg *config.Config

	pool  *postgres.Pool      // nil with memory storage
	txm   *postgres.TxManager // nil with memory storage
	redis *redis.Client       // nil without REDIS_ADDR

	units    *unit.Service
	variants *variant.Service
	catalog  variant.Catalog
	stock    *stock.Service

	controller  *transaction.Controller
	sales       *sale.Service
	purchases   *purchase.Service
	adjustments *adjustment.Service
	transfers   *transfer.Service
}

// backend is the storage-specific half of the wiring.
type backend struct {
	unitRepo    unit.Repository
	variantRepo variant.Repository
	stockRepo   stock.Repository
	txRepo      transaction.Repository
	sequences   numerator.Store
	ranges      numerator.Store // reserves Cached ranges outside transactions
	txManager   tx.Manager
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	var b backend
	switch cfg.App.Storage {
	case config.StoragePostgres:
		poolCfg := postgres.DefaultPoolConfig(cfg.DB.URL)
		poolCfg.MaxConns = cfg.DB.MaxConns
		poolCfg.MinConns = cfg.DB.MinConns

		pool, err := postgres.NewPool(ctx, poolCfg)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.pool = pool

		txOpts := postgres.DefaultTxOptions()
		txOpts.StatementTimeout = cfg.DB.StatementTimeout
		a.txm = postgres.NewTxManagerWithOptions(pool, txOpts)

		txm := a.txm
		b = backend{
			unitRepo:    catalog_repo.NewUnitRepo(txm),
			variantRepo: catalog_repo.NewVariantRepo(txm),
			stockRepo:   register_repo.NewStockRepo(txm),
			txRepo:      document_repo.NewTransactionRepo(txm),
			sequences: numerator.NewQuerierStore(func(ctx context.Context) numerator.Querier {
				return txm.GetQuerier(ctx)
			}),
			ranges:    numerator.NewStaticStore(pool),
			txManager: txm,
		}
	default:
		sequences := memory.NewSequenceStore()
		b = backend{
			unitRepo:    memory.NewUnitRepo(),
			variantRepo: memory.NewVariantRepo(),
			stockRepo:   memory.NewStockRepo(),
			txRepo:      memory.NewTransactionRepo(),
			sequences:   sequences,
			ranges:      sequences,
			txManager:   tx.Passthrough{},
		}
	}

	var (
		locker  corelock.Locker = corelock.NewKeyedMutex()
		unitsRO unit.Catalog    = b.unitRepo
	)
	if cfg.Redis.Enabled() {
		client, err := cache.NewRedisClient(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		a.redis = client

		lockCfg := distlock.DefaultConfig()
		lockCfg.TTL = cfg.Lock.TTL
		lockCfg.MaxAttempts = cfg.Lock.RetryCount
		lockCfg.MaxBackoff = cfg.Lock.RetryBackoff
		locker = distlock.NewRedisLocker(client, lockCfg)

		unitsRO = cache.NewUnitCache(client, b.unitRepo, cfg.UnitCache.TTL)
	}

	a.units = unit.NewService(b.unitRepo)
	a.variants = variant.NewService(b.variantRepo, unitsRO)
	a.catalog = b.variantRepo
	a.stock = stock.NewService(b.stockRepo, locker)

	a.controller = transaction.NewController(transaction.Config{
		Repo:      b.txRepo,
		Ledger:    a.stock,
		Units:     unitsRO,
		Variants:  b.variantRepo,
		Numerator: numerator.New(b.sequences, numerator.WithRangeStore(b.ranges)),
		TxManager: b.txManager,
		Locker:    locker,
		Numbering: &corenum.Options{
			Strategy:  corenum.ParseStrategy(cfg.Numbering.Strategy),
			RangeSize: cfg.Numbering.RangeSize,
		},
	})
	a.sales = sale.NewService(a.controller)
	a.purchases = purchase.NewService(a.controller)
	a.adjustments = adjustment.NewService(a.controller)
	a.transfers = transfer.NewService(a.controller)

	return a, nil
}

// readOnly runs fn in a read-only database transaction when one is available.
func (a *app) readOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	if a.txm == nil {
		return fn(ctx)
	}
	return a.txm.ReadOnly(ctx, fn)
}

func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logger.Default().Warnw("close redis", "error", err)
		}
	}
	if a.pool != nil {
		postgres.LogPoolStats(context.Background(), a.pool)
		a.pool.Close()
	}
}
