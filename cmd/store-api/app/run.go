package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/aq2208/gstore-api/configs"
	"github.com/aq2208/gstore-api/internal/adapter/cache"
	"github.com/aq2208/gstore-api/internal/adapter/http"
	"github.com/aq2208/gstore-api/internal/adapter/http/middleware"
	"github.com/aq2208/gstore-api/internal/adapter/mail"
	"github.com/aq2208/gstore-api/internal/adapter/queue"
	"github.com/aq2208/gstore-api/internal/adapter/repo"
	"github.com/aq2208/gstore-api/internal/adapter/storage"
	"github.com/aq2208/gstore-api/internal/logging"
	"github.com/aq2208/gstore-api/internal/metrics"
	"github.com/aq2208/gstore-api/internal/security"
	"github.com/aq2208/gstore-api/internal/usecase"
)

type App struct {
	Router *gin.Engine

	workers []func(ctx context.Context) error
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

// StartWorkers launches the queue and Kafka consumers. They stop with ctx or
// with Stop, whichever comes first.
func (a *App) StartWorkers(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)
	for _, start := range a.workers {
		if err := start(ctx); err != nil {
			a.cancel()
			return err
		}
	}
	return nil
}

// Stop cancels the workers and blocks until every background goroutine has
// returned, pending notifications included.
func (a *App) Stop() {
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()
}

func InitWithConfig(ctx context.Context, cfg configs.Config) (*App, func(), error) {
	// init logger
	logging.Init(logging.Options{Component: cfg.App.Name, FilePath: cfg.App.LogFile, Level: cfg.App.LogLevel})
	log := logging.New("bootstrap")
	log.Info("store-api: Starting up...")

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*App, func(), error) {
		cleanup()
		return nil, nil, err
	}

	// init database
	db, err := repo.Open(ctx, repo.Options{
		DSN:             cfg.MySQL.DSN,
		MaxOpenConns:    cfg.MySQL.MaxOpenConns,
		MaxIdleConns:    cfg.MySQL.MaxIdleConns,
		ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
		AutoMigrate:     cfg.MySQL.AutoMigrate,
	})
	if err != nil {
		return fail(err)
	}
	closers = append(closers, func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	// init redis (optional)
	var (
		locks       usecase.Locker = cache.NewLocalLocker()
		statusCache usecase.OrderCache
		idem        usecase.IdempotencyStore
	)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, func() { _ = rdb.Close() })
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fail(fmt.Errorf("ping redis: %w", err))
		}
		locks = cache.NewRedisLocker(rdb, cfg.CartLock.TTL, cfg.CartLock.Wait)
		statusCache = cache.NewRedisCache(rdb, cfg.Cache.StatusTTL)
		idem = cache.NewRedisIdempotencyStore(rdb, cfg.Idempotency.TTL)
	} else {
		log.Warn("redis disabled: in-process cart locks, no status cache, no idempotency keys")
	}

	// mail transport
	var sender usecase.Notifier = mail.LogNotifier{}
	if cfg.Mail.Host != "" {
		m, err := mail.NewSMTPMailer(mail.Options{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
		})
		if err != nil {
			return fail(err)
		}
		sender = m
	}
	sender = metrics.NewCountingNotifier(sender, "delivered")

	app := &App{}

	// init rabbitmq (optional): notifications are queued and mailed by the worker
	notifier := sender
	if cfg.Rabbit.URL != "" {
		conn, ch, err := queue.Connect(cfg.Rabbit.URL)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() { _ = conn.Close() })
		notifier = metrics.NewCountingNotifier(queue.NewRabbitProducer(ch), "queued")

		app.workers = append(app.workers, func(ctx context.Context) error {
			return setupQueue(ctx, conn, sender, cfg.Rabbit.Prefetch)
		})
	} else {
		log.Warn("rabbitmq disabled: notifications are mailed in-process")
	}

	// file storage
	files, err := newFileStorage(ctx, cfg)
	if err != nil {
		return fail(err)
	}

	// security
	jwt, err := security.NewJWT(security.JWTOptions{
		Secret:   cfg.Security.JWTSecret,
		Issuer:   cfg.Security.Issuer,
		Audience: cfg.Security.Audience,
		TTL:      cfg.Security.TTL,
	})
	if err != nil {
		return fail(err)
	}

	// repositories + use cases
	orderRepo := repo.NewMySQLOrderRepo(db)
	productRepo := repo.NewMySQLProductRepo(db)
	userRepo := repo.NewMySQLUserRepo(db)
	tx := repo.NewTxManager(db)

	catalog := usecase.NewCatalog(productRepo, files)
	cartUC := usecase.NewCart(orderRepo, productRepo, tx, locks)
	checkoutUC := usecase.NewCheckout(orderRepo, productRepo, tx, locks, idem)
	fulfillmentOpts := []usecase.FulfillmentOption{
		usecase.WithStoreName(cfg.Mail.StoreName),
		usecase.WithNotifyTimeout(cfg.Mail.NotifyTimeout),
		usecase.WithDispatcher(app.goTracked),
	}
	if statusCache != nil {
		fulfillmentOpts = append(fulfillmentOpts, usecase.WithStatusCache(statusCache))
	}
	fulfillmentUC := usecase.NewFulfillment(orderRepo, userRepo, notifier, fulfillmentOpts...)
	ordersUC := usecase.NewOrders(orderRepo, statusCache)
	identity := usecase.NewIdentity(userRepo, security.NewBcryptHasher(cfg.Security.BcryptCost), jwt, cfg.Security.BootstrapAdmins)

	// register kafka-listener (optional)
	if len(cfg.Kafka.Brokers) > 0 {
		app.workers = append(app.workers, func(ctx context.Context) error {
			return setupKafkaListener(ctx, app, cfg, catalog)
		})
	}

	// init handlers + routers + middleware
	h := http.Handlers{
		Orders:   http.NewOrderHandler(cartUC, checkoutUC, fulfillmentUC, ordersUC),
		Products: http.NewProductHandler(catalog),
		Users:    http.NewUserHandler(identity),
	}
	opts := http.RouterOptions{AllowOrigins: cfg.HTTP.AllowOrigins}
	if cfg.Storage.Driver == "local" {
		opts.ImageDir = cfg.Storage.LocalRoot
		opts.ImagePath = cfg.Storage.URLPath
	}
	app.Router = http.NewRouter(h, middleware.NewAuthz(jwt, identity), opts)

	return app, cleanup, nil
}

// goTracked runs fn in a goroutine that Stop accounts for, so pending
// notifications are flushed on shutdown.
func (a *App) goTracked(fn func()) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		fn()
	}()
}

func newFileStorage(ctx context.Context, cfg configs.Config) (usecase.FileStorage, error) {
	if cfg.Storage.Driver == "s3" {
		return storage.NewS3(ctx, storage.S3Options{
			Bucket:    cfg.Storage.S3.Bucket,
			Region:    cfg.Storage.S3.Region,
			Endpoint:  cfg.Storage.S3.Endpoint,
			PublicURL: cfg.Storage.S3.PublicURL,
			Prefix:    cfg.Storage.S3.Prefix,
		})
	}
	return storage.NewLocal(cfg.Storage.LocalRoot, cfg.Storage.BaseURL), nil
}
