package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/EmpoweredVote/EV-Dilemmas/internal/config"
	"github.com/EmpoweredVote/EV-Dilemmas/internal/db"
	"github.com/EmpoweredVote/EV-Dilemmas/internal/dilemmas"
	"github.com/EmpoweredVote/EV-Dilemmas/internal/ethics"
	"github.com/EmpoweredVote/EV-Dilemmas/internal/llm"
	"github.com/EmpoweredVote/EV-Dilemmas/internal/logger"
	"github.com/EmpoweredVote/EV-Dilemmas/internal/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "Server is up!")
}

func main() {
	config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	llmCfg, err := llm.LoadFromEnv()
	if err != nil {
		log.Fatal("llm config", zap.Error(err))
	}
	completer, err := llm.NewProvider(llmCfg, log)
	if err != nil {
		log.Fatal("llm provider", zap.Error(err))
	}

	d, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("database", zap.Error(err))
	}
	defer db.Close()
	log.Info("connected to database")

	if err := dilemmas.Init(d); err != nil {
		log.Fatal("schema setup failed", zap.Error(err))
	}

	var store dilemmas.Store = dilemmas.NewGormStore(d)
	if cfg.RedisURL != "" {
		cached, err := dilemmas.OpenCachedStore(store, cfg.RedisURL, cfg.ResponseCacheTTL, log)
		if err != nil {
			log.Fatal("response cache", zap.Error(err))
		}
		defer cached.Close()
		store = cached
	}

	opts := []dilemmas.ServiceOption{dilemmas.WithRetry(llmCfg.Timeout, llmCfg.MaxAttempts, llmCfg.RetryDelay)}
	if cfg.DeterministicPlaceholders {
		opts = append(opts,
			dilemmas.WithResolver(ethics.NewDefaultResolver(ethics.FirstChooser)),
			dilemmas.WithScorer(dilemmas.FixedScorer(dilemmas.MaxLiveScore)))
	}
	svc := dilemmas.NewService(store, completer, log, opts...)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.Get("/healthz", RootHandler)
	r.Handle("/metrics", promhttp.Handler())
	r.Mount("/", dilemmas.SetupRoutes(dilemmas.NewHandler(svc, log), cfg.SecureCookies))

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		// Generation may retry a slow provider several times.
		WriteTimeout: llmCfg.Timeout*time.Duration(llmCfg.MaxAttempts) + 30*time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr), zap.String("llm_provider", completer.Name()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}
