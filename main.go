package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"genfity-analytics-service/internal/analytics"
	"genfity-analytics-service/internal/cache"
	"genfity-analytics-service/internal/config"
	"genfity-analytics-service/internal/db"
	httpapi "genfity-analytics-service/internal/http"
	"genfity-analytics-service/internal/http/handlers"
	"genfity-analytics-service/internal/logger"
	"genfity-analytics-service/internal/metrics"
	"genfity-analytics-service/internal/notify"
	"genfity-analytics-service/internal/queue"
	"genfity-analytics-service/internal/services"
	"genfity-analytics-service/internal/storage"
	"genfity-analytics-service/internal/store"
	"genfity-analytics-service/internal/ws"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := logger.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	prom := metrics.New()

	// Optional infrastructure is fatal only in production.
	degrade := func(msg string, err error) {
		if cfg.IsProduction() {
			log.Fatal(msg, zap.Error(err))
		}
		log.Warn(msg+"; continuing without it", zap.Error(err))
	}

	var (
		repo     store.OrderRepository
		resolver queue.MerchantResolver
	)
	switch {
	case cfg.DatabaseURL != "":
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal("database connection failed", zap.Error(err))
		}
		defer pool.Close()
		pg := store.NewPostgres(pool, log)
		repo = pg
		resolver = pg
		log.Info("order repository", zap.String("source", "postgres"))
	case cfg.OrdersJSONPath != "":
		file, err := store.NewJSONFile(cfg.OrdersJSONPath)
		if err != nil {
			log.Fatal("orders file load failed", zap.Error(err))
		}
		repo = file
		log.Info("order repository", zap.String("source", "json"), zap.String("path", cfg.OrdersJSONPath))
	default:
		log.Fatal("no order source configured (DATABASE_URL or ORDERS_JSON_PATH)")
	}

	var resultCache cache.Cache = cache.NewMemory()
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedis(ctx, cfg.RedisURL, log)
		if err != nil {
			degrade("redis connection failed", err)
		} else {
			defer rc.Close()
			resultCache = rc
			log.Info("analytics cache", zap.String("backend", "redis"))
		}
	}

	sinks := make([]notify.Sink, 0, 2)
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := notify.NewKafka(cfg.KafkaBrokers, cfg.KafkaAlertsTopic)
		if err != nil {
			degrade("kafka producer failed", err)
		} else {
			sinks = append(sinks, producer)
			log.Info("alert sink enabled", zap.String("sink", "kafka"), zap.String("topic", cfg.KafkaAlertsTopic))
		}
	}
	if cfg.TelegramBotToken != "" {
		bot, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramAlertChatID)
		if err != nil {
			degrade("telegram bot failed", err)
		} else {
			sinks = append(sinks, bot)
			log.Info("alert sink enabled", zap.String("sink", "telegram"))
		}
	}
	alerts := notify.NewFanout(log, prom, cfg.AlertCooldown, sinks...)
	defer alerts.Close()

	var queueClient *queue.Client
	if cfg.RabbitMQURL != "" {
		qc, err := queue.New(cfg.RabbitMQURL, 10)
		if err != nil {
			degrade("rabbitmq connection failed", err)
		} else if err := queue.EnsureAnalyticsTopology(qc); err != nil {
			_ = qc.Close()
			degrade("rabbitmq topology failed", err)
		} else {
			queueClient = qc
			defer qc.Close()
		}
	} else {
		log.Info("order events consumer disabled (RABBITMQ_URL is empty)")
	}

	engine := analytics.NewEngine(cfg.Tuning, cfg.Location())
	opts := services.Options{
		Repo:     repo,
		Cache:    resultCache,
		Engine:   engine,
		CacheTTL: cfg.AnalyticsCacheTTL,
		Metrics:  prom,
		Logger:   log,
		Alerts:   alerts,
	}
	if queueClient != nil {
		opts.Events = queueClient
	}
	svc := services.NewAnalytics(opts)

	wsServer := ws.New(svc, log, cfg, prom)
	svc.SetLive(wsServer)

	var archive *storage.Archive
	storeCfg := storage.Config{
		Endpoint:        cfg.ObjectStoreEndpoint,
		Region:          cfg.ObjectStoreRegion,
		AccessKeyID:     cfg.ObjectStoreAccessKeyID,
		SecretAccessKey: cfg.ObjectStoreSecretAccessKey,
		Bucket:          cfg.ObjectStoreBucket,
		PublicBaseURL:   cfg.ObjectStorePublicBaseURL,
		StorageClass:    cfg.ObjectStoreStorageClass,
	}
	if storeCfg.Enabled() {
		objects, err := storage.NewObjectStore(ctx, storeCfg)
		if err != nil {
			degrade("object store failed", err)
		} else {
			archive = storage.NewArchive(objects)
			log.Info("snapshot archive enabled", zap.String("bucket", cfg.ObjectStoreBucket))
		}
	}
	snapshots := services.NewSnapshotter(svc, archive, cfg.SnapshotRetention, log)

	if queueClient != nil {
		if cfg.RabbitMQWorkerMode == "daemon" {
			log.Info("order events consumer enabled", zap.String("queue", queue.AnalyticsEventsQueue))
			go func() {
				err := queueClient.ConsumeWithRetry(ctx, queue.AnalyticsEventsQueue, func(ctx context.Context, body []byte) error {
					return queue.ProcessOrderEvent(ctx, resolver, svc, body)
				}, 5, 5*time.Second)
				if err != nil && !errors.Is(err, context.Canceled) {
					log.Error("consumer stopped", zap.Error(err))
				}
			}()
		} else {
			log.Info("order events consumer disabled", zap.String("mode", cfg.RabbitMQWorkerMode))
		}
	}

	h := handlers.New(svc, snapshots, log, cfg)
	apiServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.NewRouter(log, cfg, h, wsServer, prom),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("analytics api ready", zap.String("base", "/api"))
		log.Info("analytics ws ready", zap.String("base", "/ws"))
		log.Info("analytics service listening", zap.String("addr", cfg.HTTPAddr), zap.String("timezone", engine.Location().String()))
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	stopWorkers()
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctxShutdown); err != nil {
		log.Error("http server shutdown failed", zap.Error(err))
	}
}
