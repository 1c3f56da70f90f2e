package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"signal-trade-bot-go/internal/billing"
	"signal-trade-bot-go/internal/config"
	"signal-trade-bot-go/internal/database"
	"signal-trade-bot-go/internal/ingest"
	"signal-trade-bot-go/internal/ledger"
	"signal-trade-bot-go/internal/logger"
	"signal-trade-bot-go/internal/market"
	"signal-trade-bot-go/internal/notify"
	"signal-trade-bot-go/internal/onchain"
	"signal-trade-bot-go/internal/papertrade"
	sig "signal-trade-bot-go/internal/signal"

	"go.uber.org/zap"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated.")

	// Outbound API clients
	marketClient := market.NewClient(&cfg.Market, logger.ForComponent(log, "market"))
	gatewayClient := onchain.NewGatewayClient(&cfg.Gateway, logger.ForComponent(log, "gateway"))

	// Notifications: always log fills; mirror to a webhook when configured.
	notifier := notify.Multi{notify.NewLogNotifier(logger.ForComponent(log, "notify"))}
	if cfg.Notify.WebhookURL != "" {
		notifier = append(notifier, notify.NewWebhookNotifier(cfg.Notify.WebhookURL, logger.ForComponent(log, "notify")))
	}

	// Persistence stores
	scanStore := ingest.NewGormScanStore(db)
	tradeStore := papertrade.NewGormTradeStore(db)
	userStore := billing.NewGormUserStore(db)
	ledgerStore := ledger.NewGormStore(db)
	walletStore := ledger.NewGormWalletStore(db)

	// Paper-trade engine and its close-check monitor
	engine := papertrade.NewEngine(logger.ForComponent(log, "papertrade"), &cfg.Trading,
		marketClient, tradeStore, notifier)
	monitor := papertrade.NewMonitor(logger.ForComponent(log, "papertrade"), engine,
		time.Duration(cfg.Trading.CheckInterval)*time.Second)

	// Subscription governor and its periodic runner
	governor := billing.NewGovernor(logger.ForComponent(log, "billing"), &cfg.Billing,
		userStore, gatewayClient, gatewayClient)
	billingRunner := billing.NewRunner(logger.ForComponent(log, "billing"), governor,
		time.Duration(cfg.Billing.CheckInterval)*time.Second)

	// Deposit sweep
	accountant := ledger.NewAccountant(logger.ForComponent(log, "ledger"), &cfg.Ledger,
		ledgerStore, walletStore, gatewayClient)
	sweeper := ledger.NewSweeper(logger.ForComponent(log, "ledger"), accountant,
		time.Duration(cfg.Ledger.SweepInterval)*time.Second)

	// Message ingestion
	extractor := sig.NewExtractor(cfg.Signals.EVM, cfg.Signals.Solana)
	pipeline := ingest.NewPipeline(logger.ForComponent(log, "ingest"), extractor,
		scanStore, scanStore, marketClient, marketClient, engine)
	feed := ingest.NewWSSource(logger.ForComponent(log, "ingest"), cfg.Ingest.FeedURL, pipeline)

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	var wg sync.WaitGroup
	for _, run := range []func(context.Context){
		monitor.Run,
		billingRunner.Run,
		sweeper.Run,
		feed.Run,
	} {
		wg.Add(1)
		go func(run func(context.Context)) {
			defer wg.Done()
			run(ctx)
		}(run)
	}
	wg.Wait()

	// Let in-flight enrichment and trade-open work drain before exit.
	pipeline.Wait()

	log.Info("Bot has been shut down.")
}
