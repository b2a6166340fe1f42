package main

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/caseworks/contactcentre/libs/config"
	"github.com/caseworks/contactcentre/libs/db"
	"github.com/caseworks/contactcentre/libs/httpx"
	"github.com/caseworks/contactcentre/libs/kafkax"
	otelx "github.com/caseworks/contactcentre/libs/otel"
	"github.com/caseworks/contactcentre/libs/retry"
	"github.com/caseworks/contactcentre/libs/runtime"
	"github.com/caseworks/contactcentre/services/case-service/internal/consumer"
	"github.com/caseworks/contactcentre/services/case-service/internal/deadletter"
	"github.com/caseworks/contactcentre/services/case-service/internal/events"
	"github.com/caseworks/contactcentre/services/case-service/internal/filter"
	"github.com/caseworks/contactcentre/services/case-service/internal/ingest"
	"github.com/caseworks/contactcentre/services/case-service/internal/migrate"
	"github.com/caseworks/contactcentre/services/case-service/internal/outbox"
	"github.com/caseworks/contactcentre/services/case-service/internal/publisher"
	"github.com/caseworks/contactcentre/services/case-service/internal/storage"
)

func main() {
	service := config.String("SERVICE_NAME", "case-service")
	port, err := config.Port("PORT", "8088")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		logger.Error("migrations failed", "err", err)
		panic(err)
	}

	brokers := config.String("KAFKA_BROKERS", "")

	caseRepo := storage.NewCaseRepository(pool)
	uacRepo := storage.NewUacRepository(pool)
	refDataRepo := storage.NewRefDataRepository(pool)
	outboxRepo := outbox.NewRepository()

	pub := publisher.New(logger, publisher.Config{
		Brokers: brokers,
		Topic:   config.String("OUTBOUND_TOPIC", "case.outbound-events"),
	})
	defer pub.Close()

	drainer := outbox.NewDrainer(pool, outboxRepo, pub, logger, outbox.DrainerConfig{
		PollEvery: config.Duration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	})
	go drainer.Run(ctx)

	eventFilter := filter.New(refDataRepo, refDataRepo,
		config.StringList("ACCEPTED_SURVEY_TYPES", []string{"social"}), logger)
	handlers := ingest.NewHandlers(caseRepo, uacRepo, refDataRepo, logger)
	pipeline := ingest.NewPipeline(pool, eventFilter, handlers)

	deadLetters := deadletter.NewRouter(logger, deadletter.Config{
		Brokers: brokers,
		Topic:   config.String("DEAD_LETTER_TOPIC", "case.deadletter"),
	})
	defer deadLetters.Close()

	transportBackoff := retry.Policy{
		Initial:    config.Duration("TRANSPORT_BACKOFF_INITIAL", time.Second),
		Multiplier: config.Float("TRANSPORT_BACKOFF_MULTIPLIER", 2),
		Max:        config.Duration("TRANSPORT_BACKOFF_MAX", 30*time.Second),
	}
	handlerBackoff := retry.Policy{
		Initial:    config.Duration("HANDLER_BACKOFF_INITIAL", time.Second),
		Multiplier: config.Float("HANDLER_BACKOFF_MULTIPLIER", 2),
		Max:        config.Duration("HANDLER_BACKOFF_MAX", 10*time.Second),
	}

	groupID := config.String("KAFKA_GROUP_ID", "case-service")
	topics := []struct {
		env       string
		fallback  string
		eventType string
	}{
		{"CASE_UPDATE_TOPIC", "case.case-update", events.TypeCaseUpdate},
		{"UAC_UPDATE_TOPIC", "case.uac-update", events.TypeUacUpdate},
		{"SURVEY_UPDATE_TOPIC", "case.survey-update", events.TypeSurveyUpdate},
		{"COLLEX_UPDATE_TOPIC", "case.collection-exercise-update", events.TypeCollectionExerciseUpdate},
	}
	for _, t := range topics {
		c := consumer.New(logger, deadLetters, consumer.Config{
			Brokers:          brokers,
			GroupID:          groupID,
			Topic:            config.String(t.env, t.fallback),
			EventType:        t.eventType,
			Workers:          config.Int("CONSUMER_WORKERS", 2),
			Prefetch:         config.Int("CONSUMER_PREFETCH", 100),
			MaxAttempts:      config.Int("CONSUMER_MAX_ATTEMPTS", 3),
			TransportBackoff: transportBackoff,
			HandlerBackoff:   handlerBackoff,
		}, pipeline.Process)
		go c.Run(ctx)
	}

	checks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
		{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	}
	middlewares := []httpx.Middleware{
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	}
	rateLimit := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	if redisAddr := config.String("REDIS_ADDR", ""); redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		defer rdb.Close()
		checks = append(checks, runtime.ReadyCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
		limiter := httpx.NewRedisRateLimiter(rdb, rateLimit, time.Minute, service)
		middlewares = append(middlewares, limiter.Middleware(logger, true))
	} else {
		middlewares = append(middlewares, httpx.NewRateLimiter(rateLimit, time.Minute).Middleware())
	}

	mux := runtime.NewBaseMuxWithReady(checks...)
	handler := httpx.Chain(mux, middlewares...)
	handler = otelhttp.NewHandler(handler, service)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "err", err)
	}
	logger.Info("shutdown complete")
}
