package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ilyakaznacheev/cleanenv"

	"github.com/galleri/photoflow/pkg/photoflow"
	"github.com/galleri/photoflow/pkg/photoflow/config"
)

// EnvConfig is the process environment for the pipeline worker.
type EnvConfig struct {
	Port string `env:"PORT" env-default:"8081"`
}

// worker receives storage notifications and change-feed batches over
// webhooks and drives the pipeline. Delivery is at-least-once: any handler
// error surfaces as a non-2xx status so the sender redrives the event.
type worker struct {
	service photoflow.Service
	logger  *slog.Logger
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	var env EnvConfig
	if err := cleanenv.ReadEnv(&env); err != nil {
		logger.Error("failed to read configuration", "err", err)
		os.Exit(1)
	}

	cfg, err := config.Load(config.WithEnv(""))
	if err != nil {
		logger.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}

	svc, err := cfg.BuildService(logger)
	if err != nil {
		logger.Error("failed to create service", "err", err)
		os.Exit(1)
	}

	w := &worker{service: svc, logger: logger}

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", env.Port),
		Handler: w.routes(),
	}

	go func() {
		logger.Info("resize worker starting", "port", env.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down worker")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("worker forced to shutdown", "err", err)
		os.Exit(1)
	}
}

func (w *worker) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(rw http.ResponseWriter, req *http.Request) {
		rw.WriteHeader(http.StatusOK)
	})

	r.Post("/events/object-created", w.handleObjectCreated)
	r.Post("/events/records-removed", w.handleRecordsRemoved)

	return r
}

// handleObjectCreated runs one resize invocation per created original. A
// failing key fails the delivery so the whole notification is redriven.
func (w *worker) handleObjectCreated(rw http.ResponseWriter, req *http.Request) {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		http.Error(rw, "failed to read body", http.StatusBadRequest)
		return
	}

	keys, err := photoflow.DecodeObjectCreated(body)
	if err != nil {
		if errors.Is(err, photoflow.ErrEmptyEventBatch) {
			rw.WriteHeader(http.StatusOK)
			return
		}
		http.Error(rw, "invalid storage notification", http.StatusBadRequest)
		return
	}

	for _, key := range keys {
		if _, err := w.service.ProcessOriginal(req.Context(), key); err != nil {
			w.logger.Error("resize invocation failed", "key", key, "err", err)
			http.Error(rw, "processing failed", http.StatusInternalServerError)
			return
		}
	}

	rw.WriteHeader(http.StatusOK)
}

// handleRecordsRemoved runs the deletion cascade for a change-feed batch.
// Malformed records are skipped inside the cascade, so the delivery only
// fails on transport-level problems.
func (w *worker) handleRecordsRemoved(rw http.ResponseWriter, req *http.Request) {
	var events []photoflow.FeedEvent
	if err := json.NewDecoder(req.Body).Decode(&events); err != nil {
		http.Error(rw, "invalid feed batch", http.StatusBadRequest)
		return
	}

	if err := w.service.CleanupRemoved(req.Context(), events); err != nil {
		w.logger.Error("cleanup failed", "err", err)
		http.Error(rw, "cleanup failed", http.StatusInternalServerError)
		return
	}

	rw.WriteHeader(http.StatusOK)
}
