package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/EmpoweredVote/EV-Dilemmas/internal/config"
	"github.com/EmpoweredVote/EV-Dilemmas/internal/db"
	"github.com/EmpoweredVote/EV-Dilemmas/internal/dilemmas"
	"github.com/EmpoweredVote/EV-Dilemmas/internal/logger"
	"github.com/EmpoweredVote/EV-Dilemmas/internal/seeds"
	"go.uber.org/zap"
)

var (
	file    = flag.String("file", "", "YAML seed file (default: embedded dilemmas)")
	dryRun  = flag.Bool("dry-run", false, "Parse + validate only; no DB writes")
	timeout = flag.Duration("timeout", 2*time.Minute, "Overall deadline")
)

func main() {
	config.LoadDotEnv()
	flag.Parse()

	log, err := logger.New(logger.Config{Level: os.Getenv("LOG_LEVEL"), Encoding: "console"})
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ds, err := seeds.Load(*file)
	if err != nil {
		log.Fatal("loading seed file failed", zap.Error(err))
	}
	log.Info("seed file ok", zap.Int("dilemmas", len(ds)))
	if *dryRun {
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config", zap.Error(err))
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

	if err := seeds.SeedAll(ctx, dilemmas.NewGormStore(d), ds, log); err != nil {
		log.Fatal("seeding failed", zap.Error(err))
	}
}
