package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/EmpoweredVote/EV-Dilemmas/internal/config"
	"github.com/EmpoweredVote/EV-Dilemmas/internal/db"
	"github.com/EmpoweredVote/EV-Dilemmas/internal/dilemmas"
	"github.com/EmpoweredVote/EV-Dilemmas/internal/ethics"
	"github.com/EmpoweredVote/EV-Dilemmas/internal/llm"
	"github.com/EmpoweredVote/EV-Dilemmas/internal/logger"
	"go.uber.org/zap"
)

const lockKey = "dilemmas:regenerate"

var (
	dilemmaID = flag.String("dilemma", "", "Regenerate only this dilemma (default: all)")
	missing   = flag.Bool("missing", false, "Only generate for dilemmas without a response")
	timeout   = flag.Duration("timeout", 30*time.Minute, "Overall deadline")
)

func main() {
	config.LoadDotEnv()
	flag.Parse()

	log, err := logger.New(logger.Config{Level: os.Getenv("LOG_LEVEL"), Encoding: "console"})
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config", zap.Error(err))
	}
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
	if err := dilemmas.Init(d); err != nil {
		log.Fatal("schema setup failed", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	// One batch at a time across every replica.
	unlock, ok, err := db.TryAdvisoryLock(ctx, d, lockKey)
	if err != nil {
		log.Fatal("advisory lock", zap.Error(err))
	}
	if !ok {
		log.Warn("another regeneration run holds the lock, exiting")
		return
	}
	defer unlock()

	opts := []dilemmas.ServiceOption{dilemmas.WithRetry(llmCfg.Timeout, llmCfg.MaxAttempts, llmCfg.RetryDelay)}
	if cfg.DeterministicPlaceholders {
		opts = append(opts,
			dilemmas.WithResolver(ethics.NewDefaultResolver(ethics.FirstChooser)),
			dilemmas.WithScorer(dilemmas.FixedScorer(dilemmas.MaxLiveScore)))
	}
	// Write through the server's cache so it serves the new rows at once.
	var store dilemmas.Store = dilemmas.NewGormStore(d)
	if cfg.RedisURL != "" {
		cached, err := dilemmas.OpenCachedStore(store, cfg.RedisURL, cfg.ResponseCacheTTL, log)
		if err != nil {
			log.Fatal("response cache", zap.Error(err))
		}
		defer cached.Close()
		store = cached
	}
	svc := dilemmas.NewService(store, completer, log, opts...)

	var ids []string
	if *dilemmaID != "" {
		ids = []string{*dilemmaID}
	} else {
		all, err := svc.ListDilemmas(ctx, "")
		if err != nil {
			log.Fatal("listing dilemmas failed", zap.Error(err))
		}
		for _, dl := range all {
			if *missing && dl.AIResponse != nil {
				continue
			}
			ids = append(ids, dl.ID)
		}
	}

	var generated, fallbacks, failed int
	for _, id := range ids {
		r, err := svc.GetOrCreateResponse(ctx, id, nil, true)
		switch {
		case err != nil:
			failed++
			log.Error("regeneration failed", zap.String("dilemma_id", id), zap.Error(err))
		case r.Fallback:
			fallbacks++
		default:
			generated++
		}
	}

	log.Info("regeneration finished",
		zap.Int("dilemmas", len(ids)),
		zap.Int("generated", generated),
		zap.Int("fallbacks", fallbacks),
		zap.Int("failed", failed))
	if failed > 0 {
		os.Exit(1)
	}
}
