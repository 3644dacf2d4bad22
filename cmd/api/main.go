package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/jwalitptl/clinicstore/config"
	appointmentHandler "github.com/jwalitptl/clinicstore/internal/handler/appointment"
	"github.com/jwalitptl/clinicstore/internal/handler/health"
	medicalHandler "github.com/jwalitptl/clinicstore/internal/handler/medical"
	messageHandler "github.com/jwalitptl/clinicstore/internal/handler/message"
	patientHandler "github.com/jwalitptl/clinicstore/internal/handler/patient"
	"github.com/jwalitptl/clinicstore/internal/handler/prometheus"
	"github.com/jwalitptl/clinicstore/internal/router"
	appointmentService "github.com/jwalitptl/clinicstore/internal/service/appointment"
	medicalService "github.com/jwalitptl/clinicstore/internal/service/medical"
	messageService "github.com/jwalitptl/clinicstore/internal/service/message"
	patientService "github.com/jwalitptl/clinicstore/internal/service/patient"
	"github.com/jwalitptl/clinicstore/internal/store"
	"github.com/jwalitptl/clinicstore/internal/worker"
	"github.com/jwalitptl/clinicstore/pkg/logger"
	"github.com/jwalitptl/clinicstore/pkg/messaging"
	"github.com/jwalitptl/clinicstore/pkg/messaging/redis"
	"github.com/jwalitptl/clinicstore/pkg/metrics"
	"github.com/jwalitptl/clinicstore/pkg/stable"
	"github.com/jwalitptl/clinicstore/pkg/validator"
)

func main() {
	configFile := flag.String("config", "", "Path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level: %v\n", err)
		os.Exit(1)
	}
	log := logger.NewLogger(&logger.Config{
		Level:      level,
		TimeFormat: time.RFC3339,
		JSON:       cfg.Log.JSON,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal(err, "server exited with error")
	}
	log.Info("server exited properly")
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	reg := prom.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(cfg.Monitoring.Namespace, reg)

	st, err := store.Open(cfg.Storage, log, m)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Error(err, "failed to close store")
		}
	}()

	var publisher messaging.Publisher = messaging.NopPublisher{}
	if cfg.Redis.URL != "" {
		broker, err := redis.NewRedisBroker(ctx, cfg.Redis.ToBrokerConfig(), log)
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		defer broker.Close()
		publisher = messaging.NewEventPublisher(broker, cfg.Redis.Channel, log, m)
		log.Info("publishing record events", "channel", cfg.Redis.Channel)
	}

	v := validator.New()

	patientSvc := patientService.NewService(st, v, publisher, log, cfg.Validation)
	appointmentSvc := appointmentService.NewService(st, v, publisher, log)
	messageSvc := messageService.NewService(st, v, publisher, log)
	medicalSvc := medicalService.NewService(st, publisher, log)

	gin.SetMode(gin.ReleaseMode)

	r := router.NewRouter(
		router.ConfigFrom(cfg),
		log,
		m,
		health.NewHandler(map[string]health.ReadinessCheck{"store": st.Ping}),
		prometheus.New(reg),
		patientHandler.NewHandler(patientSvc),
		appointmentHandler.NewHandler(appointmentSvc),
		messageHandler.NewHandler(messageSvc),
		medicalHandler.NewHandler(medicalSvc),
	)
	r.Setup()

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Engine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})

	if st.Durability() == stable.DurabilityAsync {
		flusher := worker.NewFlushWorker(st, cfg.Storage.FlushInterval, log)
		g.Go(func() error { return flusher.Start(gctx) })
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
