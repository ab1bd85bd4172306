package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/fitnesstracker/internal/api"
	"example.com/fitnesstracker/internal/app"
	"example.com/fitnesstracker/internal/auth"
	"example.com/fitnesstracker/internal/config"
	"example.com/fitnesstracker/internal/outbox"
	httptransport "example.com/fitnesstracker/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracker, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialise tracker: %v", err)
	}
	defer tracker.Close()

	applied, err := tracker.Migrate(ctx)
	if err != nil {
		log.Fatalf("%v", err)
	}
	for _, name := range applied {
		log.Printf("applied migration %s", name)
	}

	var dispatcher *outbox.Dispatcher
	if tracker.Pool != nil {
		producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
		defer producer.Close()

		registry := outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL, nil)
		dispatcher = outbox.NewDispatcher(tracker.Pool, producer, registry, cfg.OutboxPollInterval, cfg.OutboxBatchSize)
		go dispatcher.Start(ctx)
	}

	if err := tracker.Scheduler.Start(ctx, cfg.MonthlySchedule); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}

	handler := api.NewHandler(tracker.Users, tracker.Trainings, tracker.Statistics, tracker.Scheduler)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer})
	server := httptransport.NewServer(
		httptransport.DefaultServerConfig(cfg.HTTPAddress),
		httptransport.Chain(mux, httptransport.RequestLogger(log.Default()), authMiddleware.Wrap),
	)

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("fitness-tracker listening on %s", cfg.HTTPAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
	if err := tracker.Scheduler.Stop(shutdownCtx); err != nil {
		log.Printf("scheduler stop: %v", err)
	}
	if dispatcher != nil {
		dispatcher.Wait()
	}
}
