package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"fieldplot/internal/audit"
	"fieldplot/internal/geo"
	"fieldplot/internal/identifier"
	"fieldplot/internal/platform/config"
	"fieldplot/internal/platform/httpserver"
	"fieldplot/internal/platform/logger"
	"fieldplot/internal/platform/middleware"
	"fieldplot/internal/platform/postgres"
	"fieldplot/internal/platform/redis"
	"fieldplot/internal/plot"
	"fieldplot/internal/plot/metrics"
	"fieldplot/internal/plot/service"
	householdstore "fieldplot/internal/plot/store/household"
	plotstore "fieldplot/internal/plot/store/plot"
	plotlogstore "fieldplot/internal/plot/store/plotlog"
	"fieldplot/internal/policy"
)

const auditInboxBuffer = 256

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		plots      service.PlotStore
		logs       service.PlotLogStore
		households service.HouseholdStore
		auditStore audit.Store
	)
	switch cfg.Storage {
	case "postgres":
		db, err := postgres.Open(ctx, cfg.PostgresURL)
		if err != nil {
			log.Error("postgres connect failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		plots = plotstore.NewPostgresStore(db)
		logs = plotlogstore.NewPostgresStore(db)
		households = householdstore.NewPostgresStore(db)
		auditStore = audit.NewPostgresStore(db)
	case "memory":
		plots = plotstore.NewInMemory()
		logs = plotlogstore.NewInMemory()
		households = householdstore.NewInMemory()
		auditStore = audit.NewInMemoryStore()
	default:
		log.Error("unknown storage backend", "storage", cfg.Storage)
		os.Exit(1)
	}

	var allocator service.IdentifierAllocator = identifier.NewInMemory()
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connect failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		allocator = identifier.NewRedis(redisClient.Client)
		log.Info("identifier allocation backed by redis")
	}

	// Domain logic emits audit events through a buffered inbox; the worker
	// drains it into the durable store so request latency never depends on
	// trail persistence.
	auditInbox := audit.NewChannelStore(auditStore, auditInboxBuffer)
	auditWorker := audit.NewWorker(auditStore, auditInbox.Inbox())

	svc := service.New(
		plots,
		logs,
		households,
		allocator,
		geo.NewVerifier(),
		policy.New(cfg.Survey),
		cfg.Survey,
		service.WithLogger(log),
		service.WithAuditPublisher(audit.NewPublisher(auditInbox)),
		service.WithMetrics(metrics.New()),
	)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.DeviceContext(cfg.DeviceID, cfg.DeviceRole))
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middleware.ContentTypeJSON)

	plot.NewHandler(svc, log).Register(router)
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			if err := redisClient.Health(r.Context()); err != nil {
				http.Error(w, `{"error":"redis unavailable"}`, http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})

	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("starting fieldplot server", "addr", cfg.Addr, "storage", cfg.Storage)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		if err := auditWorker.Run(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
