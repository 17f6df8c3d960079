package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"signal-relay/internal/api"
	"signal-relay/internal/engine"
	"signal-relay/internal/events"
	"signal-relay/internal/ledger"
	"signal-relay/internal/report"
	"signal-relay/internal/risk"
	"signal-relay/internal/scanner"
	"signal-relay/internal/telegram"
	"signal-relay/pkg/config"
	"signal-relay/pkg/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[MAIN] config load failed: %v", err)
	}
	log.Printf("[MAIN] starting %s on port %s (ingress=%s)", cfg.BotName, cfg.Port, cfg.IngressMode)

	if cfg.WebhookSecret == "" && cfg.IngressMode == "webhook" {
		log.Println("[MAIN] WARNING: WEBHOOK_SECRET is unset; every alert will be rejected with 500")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Durable state
	if dir := filepath.Dir(cfg.StatePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("[MAIN] state dir: %v", err)
		}
	}
	store := ledger.NewStore(cfg.StatePath)
	doc, err := store.Load()
	if err != nil {
		log.Fatalf("[MAIN] state load failed: %v", err)
	}

	rules, err := risk.LoadRules(cfg.RiskRulesPath)
	if err != nil {
		log.Fatalf("[MAIN] risk rules load failed: %v", err)
	}
	// The env knob wins over the rules file only when explicitly set.
	if os.Getenv("MIN_CONFIDENCE") != "" {
		rules.MinConfidence = cfg.MinConfidence
	}

	// Advisory journal; the JSON document stays the source of truth.
	var database *db.Database
	if cfg.JournalDBPath != "" {
		database, err = db.New(cfg.JournalDBPath)
		if err != nil {
			log.Printf("[MAIN] journal disabled: %v", err)
			database = nil
		} else {
			defer database.Close()
			if err := db.ApplyMigrations(database); err != nil {
				log.Fatalf("[MAIN] journal migrations failed: %v", err)
			}
		}
	}

	notifier, err := telegram.NewNotifier(cfg.TelegramToken, cfg.TelegramChatID, cfg.BotName)
	if err != nil {
		log.Fatalf("[MAIN] telegram init failed: %v", err)
	}
	if !notifier.Configured() {
		log.Println("[MAIN] telegram not configured; notifications disabled")
	}

	bus := events.NewBus()
	eng := engine.New(engine.Options{
		WebhookSecret: cfg.WebhookSecret,
		AllowedAssets: cfg.AllowedAssets,
		Ledger:        ledger.New(doc, cfg.HistoryLimit, rules.BreakerWindow, cfg.DedupeLimit),
		Store:         store,
		Governor:      risk.NewGovernor(rules),
		Bus:           bus,
		Journal:       database,
		Notifier:      notifier,
	})

	reporter := report.New(eng, cfg.BotName, time.Duration(cfg.ReportEveryMin)*time.Minute)
	go reporter.Run(ctx)

	if cfg.IngressMode == "scanner" {
		feed := scanner.NewRESTFeed("", map[string]string{
			"BTCUSD": "BTCUSDT",
			"XAUUSD": "PAXGUSDT",
		})
		scan := scanner.New(eng, feed, scanner.Options{
			Assets:    cfg.AllowedAssets,
			Interval:  time.Duration(cfg.ScanIntervalSec) * time.Second,
			SignalGap: time.Duration(cfg.SignalGapMin) * time.Minute,
		})
		go scan.Run(ctx)
	}

	server := api.NewServer(eng, bus, database, reporter, cfg.BotName, cfg.AdminSecret, cfg.JWTSecret)
	go func() {
		if err := server.Start(":" + cfg.Port); err != nil {
			log.Fatalf("[MAIN] api server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("[MAIN] shutting down")
	cancel()

	// Let in-flight notifications and the reporter wind down.
	time.Sleep(200 * time.Millisecond)
}
