// Command iamd runs the IAM read model synchronizer against a NATS JetStream
// event store and exposes Prometheus metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codewandler/iam-go/adapters/nats"
	"github.com/codewandler/iam-go/adapters/postgres"
	promadapter "github.com/codewandler/iam-go/adapters/prometheus"
	"github.com/codewandler/iam-go/core/cache"
	"github.com/codewandler/iam-go/core/es"
	"github.com/codewandler/iam-go/core/iam/apikeys"
	"github.com/codewandler/iam-go/core/iam/manager"
	"github.com/codewandler/iam-go/core/iam/otps"
	"github.com/codewandler/iam-go/core/iam/projection"
	"github.com/codewandler/iam-go/core/iam/readmodel"
	"github.com/codewandler/iam-go/core/iam/roles"
	"github.com/codewandler/iam-go/core/iam/sessions"
	"github.com/codewandler/iam-go/core/iam/users"
	"github.com/codewandler/iam-go/internal/config"
	"github.com/codewandler/iam-go/ports/kv"
)

func main() {
	configPath := flag.String("config", os.Getenv("IAM_CONFIG"), "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("iamd failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := promadapter.NewMetrics(reg)

	connect := nats.ReuseConnection(nats.ConnectURL(cfg.Nats.URL))

	store, err := nats.NewEventStore(ctx, nats.EventStoreConfig{
		Connect:       connect,
		Log:           log,
		SubjectPrefix: cfg.Nats.SubjectPrefix,
		StreamName:    cfg.Nats.StreamName,
		Replicas:      cfg.Nats.Replicas,
	})
	if err != nil {
		return fmt.Errorf("event store: %w", err)
	}
	defer func() { _ = store.Close() }()

	readStore, cpStore, closeReadModel, err := openReadModel(ctx, cfg, connect, log)
	if err != nil {
		return err
	}
	defer closeReadModel()

	env, err := es.NewEnv(
		es.WithCtx(ctx),
		es.WithLog(log),
		es.WithStore(store),
		es.WithMetrics(metrics.ES),
		es.WithAggregates(users.Empty(), roles.Empty(), sessions.Empty(), apikeys.Empty(), otps.Empty()),
	)
	if err != nil {
		return err
	}
	defer env.Shutdown()

	syncer := projection.New(
		readStore,
		projection.WithLog(log),
		projection.WithSignals(projection.MultiSignals{
			projection.LogSignals{Log: log},
			metrics.Projection,
		}),
	)
	consumerOpts := []es.ConsumerOption{es.WithConsumerName(syncer.Name())}
	if cpStore != nil {
		consumerOpts = append(consumerOpts, es.WithCheckpointStore(cpStore))
	}
	consumer := env.NewConsumer(syncer, consumerOpts...)
	if err := consumer.Start(ctx); err != nil {
		return fmt.Errorf("start %s: %w", syncer.Name(), err)
	}
	defer consumer.Stop()

	mgr := manager.New(env.Repository(), manager.WithLog(log))
	defer mgr.Close()

	if cfg.Bootstrap.AdminName != "" {
		if err := bootstrapAdmin(ctx, cfg.Bootstrap, cfg.Tenant, mgr, log); err != nil {
			return fmt.Errorf("bootstrap: %w", err)
		}
	}

	return serve(ctx, cfg, reg, log)
}

// openReadModel picks postgres when a DSN is configured. The in-memory read
// model has no checkpoint so it is rebuilt from the start of the stream.
func openReadModel(ctx context.Context, cfg config.Config, connect nats.Connector, log *slog.Logger) (readmodel.Store, es.CpStore, func(), error) {
	if cfg.Postgres.DSN == "" {
		log.Warn("no postgres dsn configured, keeping read model in memory")
		return readmodel.NewMemoryStore(), nil, func() {}, nil
	}

	pg, err := postgres.Open(ctx, cfg.Postgres.DSN, log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("read model: %w", err)
	}
	kvStore, err := nats.NewKvStore(ctx, nats.KvConfig{Connect: connect, Bucket: cfg.Nats.CheckpointBucket})
	if err != nil {
		_ = pg.Close()
		return nil, nil, nil, fmt.Errorf("checkpoint store: %w", err)
	}

	var (
		store readmodel.Store = pg
		lru   *cache.LRU
	)
	if cfg.Postgres.CacheSize > 0 {
		lru = cache.NewLRU(cache.LRUOpts{Size: cfg.Postgres.CacheSize, TTL: cfg.Postgres.CacheTTL})
		store = readmodel.NewCachedStore(pg, lru)
	}

	closeFn := func() {
		if lru != nil {
			lru.Close()
		}
		kvStore.Close()
		_ = pg.Close()
	}
	return store, kv.NewCpStore(kvStore, projection.DefaultName), closeFn, nil
}

func serve(ctx context.Context, cfg config.Config, reg *prometheus.Registry, log *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("serving metrics", slog.String("addr", cfg.MetricsAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	log.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
