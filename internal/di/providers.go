package di

import (
    "context"
    "fmt"
    "net"
    "strconv"
    "time"

    "ElemPulse/internal/domain/repository"
    "ElemPulse/internal/handler/api"
    mid "ElemPulse/internal/middleware"
    internalrepo "ElemPulse/internal/repository"
    icache "ElemPulse/internal/service/cache"
    "ElemPulse/internal/service/stream"
    "ElemPulse/internal/usecase"
    pkgcache "ElemPulse/pkg/cache"
    pkgch "ElemPulse/pkg/clickhouse"
    "ElemPulse/pkg/config"
    pkgkafka "ElemPulse/pkg/kafka"
    applogger "ElemPulse/pkg/logger"
    "ElemPulse/pkg/metrics"
    "ElemPulse/pkg/queue"
    "ElemPulse/pkg/server"

    "github.com/redis/go-redis/v9"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	level := "info"
	if cfg.Environment == "development" {
		level = "debug"
	}
	return applogger.New(&applogger.Config{Level: level, Format: "console", Output: "stdout"})
}

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	// Initialize schema
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS elempulse",
		`CREATE TABLE IF NOT EXISTS elempulse.entity_snapshots (
			ts DateTime,
			entity String,
			dominant String,
			dominant_score Float64,
			dominant_level String,
			readiness Float64,
			caution Float64,
			recovery Float64,
			stability Float64,
			samples UInt32,
			payload String,
			event_id String
		) ENGINE=ReplacingMergeTree ORDER BY (entity, ts, event_id)`,
		`CREATE TABLE IF NOT EXISTS elempulse.consensus_snapshots (
			ts DateTime,
			subject String,
			dominant String,
			dominant_score Float64,
			dominant_level String,
			consensus_ratio Float64,
			confidence_gap Float64,
			cohort UInt32,
			payload String,
			event_id String
		) ENGINE=ReplacingMergeTree ORDER BY (subject, ts, event_id)`,
		`CREATE TABLE IF NOT EXISTS elempulse.entity_snapshots_1h (
			ts DateTime,
			entity String,
			dominant String,
			dominant_score Float64,
			dominant_level String,
			readiness Float64,
			caution Float64,
			recovery Float64,
			stability Float64,
			samples UInt32,
			payload String,
			event_id String
		) ENGINE=ReplacingMergeTree ORDER BY (entity, ts, event_id)`,
		`CREATE MATERIALIZED VIEW IF NOT EXISTS elempulse.entity_snapshots_1h_mv
			TO elempulse.entity_snapshots_1h AS
			SELECT
				toStartOfHour(ts) AS ts,
				entity,
				argMax(dominant, ts) AS dominant,
				avg(dominant_score) AS dominant_score,
				argMax(dominant_level, ts) AS dominant_level,
				avg(readiness) AS readiness,
				avg(caution) AS caution,
				avg(recovery) AS recovery,
				avg(stability) AS stability,
				max(samples) AS samples,
				argMax(payload, ts) AS payload,
				argMax(event_id, ts) AS event_id
			FROM elempulse.entity_snapshots
			GROUP BY toStartOfHour(ts), entity`,
	}); err != nil {
		_ = client.Close() // cannot log here (DI layer no logger); propagate error
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideInsightService creates the scoring engine service.
func ProvideInsightService(cfg *config.Config, m repository.Metrics) (*usecase.InsightService, error) {
	return usecase.NewInsightService(usecase.EngineConfig{
		MaxSamples: cfg.Engine.MaxSamples,
		MaxAge:     cfg.Engine.MaxAge,
	}, m)
}

// ProvideSnapshotStore creates ClickHouse snapshot storage.
func ProvideSnapshotStore(chClient *pkgch.Client, cfg *config.Config) repository.SnapshotStore {
	return internalrepo.NewClickHouseSnapshotStore(
		chClient.DB(),
		cfg.ClickHouse.Database+".entity_snapshots",
		cfg.ClickHouse.Database+".consensus_snapshots",
	)
}

// ProvideTelemetryPublisher creates Kafka publisher repository.
func ProvideTelemetryPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	return internalrepo.NewKafkaTelemetryPublisher(producer, cfg.Kafka.Topic)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaTelemetryHandler registers handler for the telemetry topic.
func ProvideKafkaTelemetryHandler(
	insights *usecase.InsightService,
	store repository.SnapshotStore,
	metrics repository.Metrics,
	cfg *config.Config,
) *usecase.KafkaTelemetryHandler {
	return usecase.NewKafkaTelemetryHandler(cfg.Kafka.Topic, insights, store, metrics)
}

// ProvideKafkaContributionsHandler registers handler for the contributions topic.
func ProvideKafkaContributionsHandler(
	insights *usecase.InsightService,
	metrics repository.Metrics,
	cfg *config.Config,
) *usecase.KafkaContributionsHandler {
	return usecase.NewKafkaContributionsHandler(cfg.Kafka.ContribTopic, insights, metrics)
}

// ProvideTelemetryStream creates the WebSocket telemetry stream.
func ProvideTelemetryStream(cfg *config.Config) repository.TelemetryStream {
	return stream.New(
		cfg.Stream.Token,
		cfg.Stream.WebSocketURL,
		cfg.Stream.Entities,
		cfg.Stream.ReconnectDelay,
		cfg.Stream.PingInterval,
	)
}

// ProvideTelemetryProcessor creates telemetry processor use case.
func ProvideTelemetryProcessor(
	insights *usecase.InsightService,
	pub repository.Publisher,
	store repository.SnapshotStore,
	metrics repository.Metrics,
	cfg *config.Config,
) *usecase.TelemetryProcessor {
	return usecase.NewTelemetryProcessor(
		insights,
		pub,
		store,
		metrics,
		cfg.Backend.Type,
		cfg.Backend.BatchSize,
		cfg.Backend.BatchTimeout,
	)
}

// ProvideTelemetryCollector creates telemetry collector use case.
func ProvideTelemetryCollector(
	stream repository.TelemetryStream,
	processor *usecase.TelemetryProcessor,
	metrics repository.Metrics,
	cfg *config.Config,
) *usecase.TelemetryCollector {
	maxRPS := cfg.Engine.MaxRPS
	if maxRPS <= 0 {
		maxRPS = 50
	}
	bufSize := cfg.Engine.BufferSize
	if bufSize <= 0 {
		bufSize = 2000
	}
	// Middleware pipeline between WebSocket and the processor
	pipe := mid.NewIngestPipeline(processor, metrics,
		mid.WithMaxRPS(maxRPS),
		mid.WithBufferSize(bufSize),
	)
	return usecase.NewTelemetryCollector(stream, processor, metrics, pipe)
}

// ProvideRedisClient creates a shared redis client when caching is enabled.
func ProvideRedisClient(cfg *config.Config) *redis.Client {
	if !cfg.Cache.Redis.Enabled {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
	})
}

// ProvideDeferredQueue creates the redis-backed deferred persistence queue.
// Snapshot writes that fail against ClickHouse are replayed from here.
func ProvideDeferredQueue(
	l *applogger.Logger,
	client *redis.Client,
	store repository.SnapshotStore,
) *queue.RedisQueue {
	if client == nil {
		return nil
	}
	q := queue.NewRedisQueue(l,
		&queue.QueueConfig{Workers: 2, QueueSize: 256, RetryLimit: 5, RetryDelay: 15 * time.Second},
		client,
		queue.ModeProducerConsumer,
		queue.WithKeyPrefix("elempulse:queue"),
	)
	q.RegisterJobs([]queue.Job{
		usecase.NewPersistEntitySnapshotsJob(store, l),
		usecase.NewPersistConsensusSnapshotJob(store, l),
		usecase.NewErrorDigestJob(l),
	})
	// Aggregate repeated error logs and drain them through the queue.
	l.AddCollector(&applogger.CollectionConfig{
		TimeInterval:   30 * time.Second,
		CountThreshold: 100,
		Topic:          usecase.TypeErrorDigest,
		Publisher:      q,
	})
	return q
}

// ProvideSnapshotSync creates the periodic snapshot persistence job.
func ProvideSnapshotSync(
	insights *usecase.InsightService,
	store repository.SnapshotStore,
	deferred *queue.RedisQueue,
	metrics repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.SnapshotSync {
	spec := cfg.Sync.Spec
	if spec == "" {
		spec = "*/5 * * * *"
	}
	var svc queue.QueueService
	if deferred != nil {
		svc = deferred
	}
	return usecase.NewSnapshotSync(insights, store, svc, metrics, l, spec, cfg.Sync.Subject)
}

// ProvideHistoryUseCase creates the snapshot history read use case.
func ProvideHistoryUseCase(chClient *pkgch.Client, l *applogger.Logger, cfg *config.Config) *usecase.HistoryUseCase {
	store := internalrepo.NewCHHistoryStore(chClient)
	store.SetLogger(l)
	uc := usecase.NewHistoryUseCase(store)
	if cfg.Cache.Redis.Enabled {
		host, port := splitHostPort(cfg.Cache.Redis.Addr)
		if rc, err := pkgcache.NewRedisCache(
			pkgcache.WithRedisHost(host),
			pkgcache.WithRedisPort(port),
			pkgcache.WithRedisPassword(cfg.Cache.Redis.Password),
			pkgcache.WithRedisDB(cfg.Cache.Redis.DB),
		); err != nil {
			l.Warn("history cache disabled", applogger.Error(err))
		} else {
			uc.SetCache(rc, cfg.Cache.EntityTTL)
		}
	}
	return uc
}

func splitHostPort(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 6379
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 6379
	}
	return host, port
}

// ProvideHTTPHandler creates the insights HTTP handler with its cache.
func ProvideHTTPHandler(
	l *applogger.Logger,
	processor *usecase.TelemetryProcessor,
	history *usecase.HistoryUseCase,
	cfg *config.Config,
) *api.InsightsEchoHandler {
	overview := usecase.NewOverviewUseCase(processor.Insights())
	h := api.NewInsightsEchoHandler(l, processor, history, overview)
	if cfg.Cache.Redis.Enabled {
		h.SetCache(icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		}))
	} else {
		h.SetCache(icache.NewTTLCache())
	}
	return h
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	collector *usecase.TelemetryCollector,
	consumer *pkgkafka.Consumer,
	th *usecase.KafkaTelemetryHandler,
	ch *usecase.KafkaContributionsHandler,
	chClient *pkgch.Client,
	sync *usecase.SnapshotSync,
	deferred *queue.RedisQueue,
	handler *api.InsightsEchoHandler,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	app := server.New(cfg, l, collector, consumer, chClient, sync, deferred)
	app.RegisterKafkaHandlers(th, ch)
	app.SetHTTPHandler(handler)
	if collector != nil {
		app.Proc = collector.Processor()
	}
	return app
}
