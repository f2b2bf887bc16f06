package di

import (
	"context"
	"fmt"
	"strings"
	"time"

	"TickerPulse/internal/domain/repository"
	"TickerPulse/internal/handler/api"
	internalrepo "TickerPulse/internal/repository"
	"TickerPulse/internal/service/quotefeed"
	"TickerPulse/internal/service/ratelimit"
	"TickerPulse/internal/service/sentiment"
	"TickerPulse/internal/services/aggregator"
	"TickerPulse/internal/services/classifier"
	"TickerPulse/internal/services/window"
	"TickerPulse/internal/usecase"
	"TickerPulse/pkg/cache"
	pkgch "TickerPulse/pkg/clickhouse"
	"TickerPulse/pkg/config"
	xhttp "TickerPulse/pkg/http"
	pkgkafka "TickerPulse/pkg/kafka"
	"TickerPulse/pkg/logger"
	"TickerPulse/pkg/metrics"
	"TickerPulse/pkg/server"
)

const userAgent = "tickerpulse/1.0"

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: cfg.Log.TimeFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(cfg *config.Config) repository.Metrics {
	if !cfg.Metrics.Enabled {
		return metrics.Noop{}
	}
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithAddress(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithPool(10, 5, 0),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideStorage creates the ClickHouse store and its tables.
func ProvideStorage(client *pkgch.Client) (repository.Storage, error) {
	if client == nil {
		return nil, nil
	}
	store := internalrepo.NewClickHouseStore(client)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return store, nil
}

// ProvideKafkaProducer creates a Kafka producer, or nil when disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
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

// ProvidePublisher publishes reports and frames through the producer.
func ProvidePublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topics.Reports, cfg.Kafka.Topics.Frames)
}

// ProvideKafkaConsumer creates a Kafka consumer, or nil when disabled.
func ProvideKafkaConsumer(cfg *config.Config, log *logger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.Use(pkgkafka.TraceHook(), pkgkafka.JSONOnly())
	return consumer, nil
}

// ProvideCache returns Redis fronted by an in-memory L1 when Redis is
// enabled, otherwise a plain memory cache.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(), nil
	}
	redis, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return cache.NewLayeredCache(redis, cache.WithLayeredMemory(1000, 5*time.Second)), nil
}

func ProvideLatestStore(c cache.Service, cfg *config.Config) *internalrepo.CacheLatestStore {
	return internalrepo.NewCacheLatestStore(c, cfg.Redis.TTL)
}

func ProvideSymbolIndex(cfg *config.Config) (*classifier.SymbolIndex, error) {
	return internalrepo.LoadSymbolFile(cfg.Classifier.SymbolsFile)
}

func ProvideClassifier(idx *classifier.SymbolIndex, cfg *config.Config) (*classifier.Classifier, error) {
	return classifier.New(idx, classifier.WithPolicy(classifier.Policy(cfg.Classifier.Policy)))
}

// ProvideIgnoreList loads the persisted ignore list into the classifier.
func ProvideIgnoreList(cfg *config.Config, cls *classifier.Classifier, log *logger.Logger) (*usecase.IgnoreListUseCase, error) {
	uc := usecase.NewIgnoreListUseCase(internalrepo.NewFileIgnoreStore(cfg.Classifier.IgnoreFile), cls, log)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := uc.Load(ctx); err != nil {
		return nil, err
	}
	return uc, nil
}

func ProvideSentiment() repository.Sentiment {
	return sentiment.NewLexicon()
}

// ProvideCommentExpander returns nil when no paging service is configured.
func ProvideCommentExpander(cfg *config.Config) aggregator.CommentExpander {
	if cfg.Report.Expander.URL == "" {
		return nil
	}
	client := xhttp.NewClient(
		xhttp.WithBaseURL(cfg.Report.Expander.URL),
		xhttp.WithTimeout(cfg.Report.Expander.Timeout),
		xhttp.WithUserAgent(userAgent),
	)
	return internalrepo.NewHTTPCommentExpander(client, cfg.Report.Expander.MaxPages)
}

func ProvideAggregator(
	cls *classifier.Classifier,
	expander aggregator.CommentExpander,
	cfg *config.Config,
	log *logger.Logger,
	m repository.Metrics,
) (*aggregator.Aggregator, error) {
	opts := []aggregator.Option{
		aggregator.WithSubmissionThreshold(cfg.Report.SubmissionThreshold),
		aggregator.WithCommentThreshold(cfg.Report.CommentThreshold),
		aggregator.WithBots(cfg.Report.Bots...),
		aggregator.WithLogger(log),
		aggregator.WithMetrics(m),
	}
	if expander != nil {
		opts = append(opts, aggregator.WithExpander(expander))
	}
	return aggregator.New(cls, opts...)
}

func ProvideDocumentBuffer(cfg *config.Config, log *logger.Logger, m repository.Metrics) *internalrepo.DocumentBuffer {
	return internalrepo.NewDocumentBuffer("kafka:"+cfg.Kafka.Topics.Documents, internalrepo.DefaultBufferCapacity,
		internalrepo.WithBufferLogger(log),
		internalrepo.WithBufferMetrics(m))
}

func ProvideReportRunner(
	cfg *config.Config,
	agg *aggregator.Aggregator,
	buf *internalrepo.DocumentBuffer,
	latest *internalrepo.CacheLatestStore,
	pub repository.Publisher,
	storage repository.Storage,
	lock cache.Service,
	log *logger.Logger,
	m repository.Metrics,
) (*usecase.ReportRunner, error) {
	var (
		src  repository.DocumentSource = buf
		name                           = buf.Name()
	)
	if cfg.Report.Source != "" {
		file := internalrepo.NewFileDocumentSource(cfg.Report.Source)
		src, name = file, file.Name()
	}
	return usecase.NewReportRunner(agg, src,
		usecase.ReportSinks{Latest: latest, Publisher: pub, Storage: storage},
		lock,
		usecase.ReportConfig{
			SourceName: name,
			Top:        cfg.Report.Top,
			Workers:    cfg.Report.Workers,
			ShowAll:    cfg.Report.ShowAll,
			Schedule:   cfg.Report.Schedule,
		},
		log.With(logger.String("component", "report")), m)
}

// ProvideCommentStreamer returns nil unless stream mode is enabled.
func ProvideCommentStreamer(cfg *config.Config, cls *classifier.Classifier, sent repository.Sentiment, log *logger.Logger, m repository.Metrics) (*usecase.CommentStreamer, error) {
	if !cfg.Stream.Enabled {
		return nil, nil
	}
	return usecase.NewCommentStreamer(cls, sent, usecase.StreamConfig{
		Words:     cfg.Stream.Words,
		Sentiment: cfg.Stream.Sentiment,
		Permalink: cfg.Stream.Permalink,
	}, log.With(logger.String("component", "stream")), m)
}

func ProvideSnapshotBoard() *internalrepo.SnapshotBoard {
	return internalrepo.NewSnapshotBoard()
}

// ProvideSnapshotCollector returns nil unless the quote feed is enabled.
func ProvideSnapshotCollector(cfg *config.Config, board *internalrepo.SnapshotBoard, log *logger.Logger, m repository.Metrics) *usecase.SnapshotCollector {
	if !cfg.Feed.Enabled {
		return nil
	}
	stream := quotefeed.New(cfg.Feed.URL, cfg.Feed.APIKey, windowSymbols(cfg),
		quotefeed.WithLogger(log.With(logger.String("component", "quotefeed"))),
		quotefeed.WithTiming(cfg.Feed.ReconnectDelay, cfg.Feed.PingInterval),
	)
	return usecase.NewSnapshotCollector(stream, board, log, m)
}

// ProvideLiveWindows builds one live window per configured symbol.
func ProvideLiveWindows(
	cfg *config.Config,
	board *internalrepo.SnapshotBoard,
	latest *internalrepo.CacheLatestStore,
	pub repository.Publisher,
	storage repository.Storage,
	log *logger.Logger,
	m repository.Metrics,
) (*usecase.LiveWindows, error) {
	sinks := usecase.FrameSinks{Latest: latest, Publisher: pub, Storage: storage}
	wcfg := usecase.LiveWindowConfig{Delay: cfg.Window.Delay, FetchTimeout: cfg.Window.FetchTimeout}
	wlog := log.With(logger.String("component", "window"))

	var windows []*usecase.LiveWindow
	for _, sym := range windowSymbols(cfg) {
		opts := []window.Option{window.WithRetentionHours(cfg.Window.RetentionHours)}
		if cfg.Window.Unbounded {
			opts = append(opts, window.WithUnbounded())
		}
		if target, ok := cfg.Window.Targets[sym]; ok {
			opts = append(opts, window.WithTarget(target))
		}
		series, err := window.New(opts...)
		if err != nil {
			return nil, err
		}
		w, err := usecase.NewLiveWindow(sym, series, board, sinks, wcfg, wlog, m)
		if err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}
	return usecase.NewLiveWindows(wlog, windows...), nil
}

// ProvideKafkaHandlers builds the consumer handlers for the enabled modes.
func ProvideKafkaHandlers(
	cfg *config.Config,
	buf *internalrepo.DocumentBuffer,
	streamer *usecase.CommentStreamer,
	board *internalrepo.SnapshotBoard,
	log *logger.Logger,
	m repository.Metrics,
) []pkgkafka.MessageHandler {
	if !cfg.Kafka.Enabled {
		return nil
	}
	var sinks []usecase.DocumentSink
	if cfg.Report.Source == "" {
		sinks = append(sinks, buf)
	}
	if streamer != nil {
		sinks = append(sinks, streamer)
	}

	hlog := log.With(logger.String("component", "kafka_handler"))
	handlers := []pkgkafka.MessageHandler{
		usecase.NewKafkaSnapshotsHandler(cfg.Kafka.Topics.Snapshots, board, hlog, m),
	}
	if len(sinks) > 0 {
		handlers = append(handlers, usecase.NewKafkaDocumentsHandler(cfg.Kafka.Topics.Documents, hlog, m, sinks...))
	}
	return handlers
}

func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Server.RateLimit.RPS, cfg.Server.RateLimit.Burst)
}

// ProvideHTTPHandler registers every API handler.
func ProvideHTTPHandler(
	cfg *config.Config,
	log *logger.Logger,
	cls *classifier.Classifier,
	sent repository.Sentiment,
	limiter *ratelimit.Limiter,
	ignore *usecase.IgnoreListUseCase,
	runner *usecase.ReportRunner,
	windows *usecase.LiveWindows,
	latest *internalrepo.CacheLatestStore,
	storage repository.Storage,
	streamer *usecase.CommentStreamer,
) xhttp.Handler {
	hlog := log.With(logger.String("component", "api"))
	var tally api.RunningTally
	if streamer != nil {
		tally = streamer
	}
	return xhttp.Handlers{
		api.NewReportHandler(hlog, latest, runner),
		api.NewWindowHandler(hlog, latest, latest, windows, storage, windowSymbols(cfg)),
		api.NewClassifyHandler(hlog, cls, sent, limiter.Middleware()),
		api.NewIgnoreHandler(hlog, ignore),
		api.NewStreamHandler(hlog, tally),
	}
}

// ProvideHTTPServer returns nil when the HTTP server is disabled.
func ProvideHTTPServer(
	cfg *config.Config,
	handler xhttp.Handler,
	log *logger.Logger,
	c cache.Service,
	storage repository.Storage,
) *xhttp.Server {
	if !cfg.Server.Enabled {
		return nil
	}
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(log.With(logger.String("component", "http"))),
		xhttp.WithMetricsPath(""),
		xhttp.WithHealthCheck("cache", func(ctx context.Context) error {
			_, err := c.Exists(ctx, "health")
			return err
		}),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetricsPath(cfg.Metrics.Path))
	}
	if storage != nil {
		opts = append(opts, xhttp.WithHealthCheck("clickhouse", storage.Health))
	}
	return xhttp.NewServer(handler, opts...)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	runner *usecase.ReportRunner,
	windows *usecase.LiveWindows,
	collector *usecase.SnapshotCollector,
	consumer *pkgkafka.Consumer,
	handlers []pkgkafka.MessageHandler,
	producer *pkgkafka.Producer,
	pub repository.Publisher,
	storage repository.Storage,
	ch *pkgch.Client,
	c cache.Service,
	limiter *ratelimit.Limiter,
	httpServer *xhttp.Server,
) *server.App {
	return server.New(cfg, log, server.Components{
		Runner:     runner,
		Windows:    windows,
		Collector:  collector,
		Consumer:   consumer,
		Handlers:   handlers,
		Producer:   producer,
		Publisher:  pub,
		Storage:    storage,
		ClickHouse: ch,
		Cache:      c,
		Limiter:    limiter,
		HTTPServer: httpServer,
	})
}

func windowSymbols(cfg *config.Config) []string {
	out := make([]string, 0, len(cfg.Window.Symbols))
	seen := make(map[string]struct{}, len(cfg.Window.Symbols))
	for _, s := range cfg.Window.Symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
