// Package app wires the services, signal sinks and scheduler loops from
// configuration. cmd, api, cron and graphql all share one App.
package app

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"cmms.GO/config"
	"cmms.GO/core/cache"
	"cmms.GO/core/lease"
	"cmms.GO/core/signal"
	woEntity "cmms.GO/model/entity/workorder"
	"cmms.GO/service/asset"
	"cmms.GO/service/cyclecount"
	"cmms.GO/service/inventory"
	"cmms.GO/service/pm"
	"cmms.GO/service/scheduler"
	"cmms.GO/service/workorder"
)

type App struct {
	DB     *gorm.DB
	Log    *zap.Logger
	Config *config.Config

	// Recent keeps the last signals for the status endpoint.
	Recent *signal.Recorder
	Sink   signal.Sink

	Assets      *asset.Service
	Inventory   *inventory.Service
	WorkOrders  *workorder.Service
	PM          *pm.Service
	CycleCounts *cyclecount.Service
	Schedulers  *scheduler.Registry
	Control     *scheduler.Control
}

// New builds the App. rdb may be nil: signals then go to the log only and
// scheduler leases are process-local.
func New(db *gorm.DB, rdb *redis.Client, log *zap.Logger, cfg *config.Config) *App {
	if cfg == nil {
		cfg = &config.Config{}
	}
	a := &App{DB: db, Log: log, Config: cfg, Recent: signal.NewRecorder(200)}

	sinks := signal.Multi{signal.NewLogSink(log), a.Recent}
	if rdb != nil {
		channel := cfg.SignalChannel
		if channel == "" {
			channel = "cmms:signals"
		}
		sinks = append(sinks, signal.NewRedisSink(rdb, channel, log))
	}
	ttl := cfg.SignalDedupeTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	a.Sink = signal.NewDeduped(sinks, cache.GetInstance(), ttl)

	loc := cfg.Location()
	a.Assets = asset.NewService(db, log)
	a.Inventory = inventory.NewService(db, a.Sink, log, inventory.Options{AllowNegativeStock: cfg.AllowNegativeStock})
	a.WorkOrders = workorder.NewService(db, a.Sink, log, workorder.Options{RequireApproval: cfg.RequireApproval})
	a.PM = pm.NewService(db, a.WorkOrders, a.Sink, log, pm.Options{
		InitialStatus: woEntity.Status(cfg.PMWorkOrderStatus),
		BaselineReset: cfg.MeterBaselineReset,
		Location:      loc,
	})
	a.CycleCounts = cyclecount.NewService(db, a.Inventory, a.Sink, log, cyclecount.Options{Location: loc})

	locker := lease.New(rdb)
	a.Schedulers = scheduler.NewRegistry(
		scheduler.NewLoop(scheduler.NamePM, a.PM.RunDue, locker, log),
		scheduler.NewLoop(scheduler.NameCycleCount, a.CycleCounts.RunDue, locker, log),
	)
	a.Control = scheduler.NewControl(db, a.Schedulers, log)
	return a
}

// Bootstrap loads configuration, connects the database and Redis and builds
// the App. The returned cleanup flushes the logger and closes connections.
func Bootstrap() (*App, func(), error) {
	config.LoadEnv()
	config.LoadAppConfig()
	log, err := config.NewLogger()
	if err != nil {
		return nil, nil, err
	}
	config.InitRedis()
	if config.RedisClient == nil {
		log.Info("redis not configured or not reachable, signals stay local")
	}

	db, err := config.NewDB(log)
	if err != nil {
		log.Sync()
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Sync()
		return nil, nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		log.Sync()
		return nil, nil, err
	}

	a := New(db, config.RedisClient, log, config.AppConfig)
	cleanup := func() {
		sqlDB.Close()
		if config.RedisClient != nil {
			config.RedisClient.Close()
		}
		log.Sync()
	}
	return a, cleanup, nil
}
