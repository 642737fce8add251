package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fuelbill/internal/config"
	"fuelbill/internal/contract"
	"fuelbill/internal/listener"
	"fuelbill/internal/logging"
	"fuelbill/internal/pipeline"
	"fuelbill/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)
	must(cfg.Require("WATCH_INBOX_DIR", cfg.WatchInboxDir))

	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	closeLog, err := logging.AttachFile(log, cfg.LogFile)
	must(err)
	defer closeLog()

	rules, err := config.LoadRules(cfg.RulesPath)
	must(err)
	rules = rules.WithEnv(cfg)

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	client := contract.NewClient(rules.API.URL, rules.API.TimeoutDuration(), cfg.LookupRateLimitRPS)
	processor := pipeline.NewProcessingService(db, cfg, rules, client)
	processor.SetLogger(log)

	svc := listener.NewService(db, cfg, processor)
	svc.SetLogger(log)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.WithField("inbox", cfg.WatchInboxDir).WithField("schedule", cfg.WatchSchedule).Info("watching inbox")
	must(svc.Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
