package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"tempo-service/internal/availability"
	"tempo-service/internal/config"
	bookingCancel "tempo-service/internal/http-server/handlers/bookings/cancel"
	bookingConfirm "tempo-service/internal/http-server/handlers/bookings/confirm"
	bookingGet "tempo-service/internal/http-server/handlers/bookings/get"
	bookingPreview "tempo-service/internal/http-server/handlers/bookings/preview"
	bookingSubmit "tempo-service/internal/http-server/handlers/bookings/submit"
	exceptionCreate "tempo-service/internal/http-server/handlers/exceptions/create"
	exceptionDelete "tempo-service/internal/http-server/handlers/exceptions/delete"
	exceptionGet "tempo-service/internal/http-server/handlers/exceptions/get"
	ruleCreate "tempo-service/internal/http-server/handlers/rules/create"
	ruleDelete "tempo-service/internal/http-server/handlers/rules/delete"
	ruleGet "tempo-service/internal/http-server/handlers/rules/get"
	ruleUpdate "tempo-service/internal/http-server/handlers/rules/update"
	settingsGet "tempo-service/internal/http-server/handlers/settings/get"
	settingsUpdate "tempo-service/internal/http-server/handlers/settings/update"
	slotsAvailable "tempo-service/internal/http-server/handlers/slots/available"
	"tempo-service/internal/lock"
	svc "tempo-service/internal/service"
	"tempo-service/internal/storage/postgres"
	slogpretty "tempo-service/pkg/handlers/slogPretty"
	"tempo-service/pkg/middleware/mwLogger"
	"tempo-service/pkg/sl"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Idempotency-Key")
		w.Header().Set("Content-Type", "application/json; charset=utf-8")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {

	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info("Starting API", slog.String("env", cfg.Env))
	log.Debug("Debug messages are enabled")

	storage, err := postgres.New(cfg.StoragePath)
	if err != nil {
		log.Error("Failed to init storage", sl.Err(err))
		os.Exit(1)
	}

	locker, err := lock.NewRedisLock(cfg.RedisAddr)
	if err != nil {
		log.Error("Failed to init redis lock", sl.Err(err))
		os.Exit(1)
	}

	engine := availability.NewService(storage, storage, storage, storage, availability.SystemClock{})

	service := svc.NewService(storage, engine, locker)

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(mwLogger.New(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)
	router.Use(CORS)

	// Weekly Availability Rules
	router.Post("/availability_rules", ruleCreate.New(log, service))
	router.Get("/availability_rules/{id}", ruleGet.New(log, service))
	router.Put("/availability_rules/{id}", ruleUpdate.New(log, service))
	router.Delete("/availability_rules/{id}", ruleDelete.New(log, service))

	// Availability Exceptions
	router.Post("/availability_exceptions", exceptionCreate.New(log, service))
	router.Get("/availability_exceptions/{id}", exceptionGet.New(log, service))
	router.Delete("/availability_exceptions/{id}", exceptionDelete.New(log, service))

	// Teacher Settings
	router.Get("/teachers/{teacher_id}/settings", settingsGet.New(log, service))
	router.Put("/teachers/{teacher_id}/settings", settingsUpdate.New(log, service))

	// Slots
	router.Get("/teachers/{teacher_id}/available-slots", slotsAvailable.New(log, service))

	// Bookings
	router.Post("/bookings", bookingSubmit.New(log, service))
	router.Post("/bookings/preview-recurring", bookingPreview.New(log, service))
	router.Get("/bookings/{id}", bookingGet.New(log, service))
	router.Put("/bookings/{id}/cancel", bookingCancel.New(log, service))
	router.Post("/bookings/{id}/confirm", bookingConfirm.New(log, service))

	serv := &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	serverErrCh := make(chan error, 1)

	go func() {
		log.Info("Starting HTTP server", slog.String("addr", cfg.Address))
		if err := serv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		} else {
			serverErrCh <- nil
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case err := <-serverErrCh:
		if err != nil {
			log.Error("HTTP server stopped unexpectedly", sl.Err(err))
		} else {
			log.Info("HTTP server stopped gracefully")
		}
	}

	shutdownTimeout := cfg.HTTPServer.ShutdownTimeout

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	log.Info("Shutting down HTTP server", slog.String("timeout", shutdownTimeout.String()))

	if err := serv.Shutdown(ctx); err != nil {
		log.Error("Server shutdown failed", sl.Err(err))
	} else {
		log.Info("Server shutdown complete")
	}

	if err := storage.Close(); err != nil {
		log.Error("Failed to close storage", sl.Err(err))
	} else {
		log.Info("Storage closed")
	}

	if err := locker.Close(); err != nil {
		log.Error("Failed to close locker", sl.Err(err))
	} else {
		log.Info("Locker closed")
	}

	log.Info("Shutdown finished, server stopped")

}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger
	switch env {
	case envLocal:
		log = setupPrettySlog()
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}
