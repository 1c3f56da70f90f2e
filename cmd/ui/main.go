package main

import (
	"fmt"
	"net/http"
	"os"

	"signal-trade-bot-go/internal/config"
	"signal-trade-bot-go/internal/database"
	"signal-trade-bot-go/internal/ingest"
	"signal-trade-bot-go/internal/ledger"
	"signal-trade-bot-go/internal/logger"
	"signal-trade-bot-go/internal/market"
	"signal-trade-bot-go/internal/onchain"
	"signal-trade-bot-go/internal/scorer"

	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Connect to the database
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Reputation scoring over the shared scan history
	marketClient := market.NewClient(&cfg.Market, logger.ForComponent(log, "market"))
	reputation := scorer.NewScorer(ingest.NewGormScanStore(db),
		scorer.NewPriceOutcomes(marketClient), logger.ForComponent(log, "scorer"))

	// Withdrawals go through the same accountant the bot uses.
	gatewayClient := onchain.NewGatewayClient(&cfg.Gateway, logger.ForComponent(log, "gateway"))
	accountant := ledger.NewAccountant(logger.ForComponent(log, "ledger"), &cfg.Ledger,
		ledger.NewGormStore(db), ledger.NewGormWalletStore(db), gatewayClient)

	// Setup HTTP server
	mux := http.NewServeMux()

	// Create a handler that has access to the logger and db
	apiHandler := NewAPIHandler(log, db, reputation, accountant, cfg.Trading.InitialBalance)

	// API endpoints
	mux.HandleFunc("/api/trades", apiHandler.TradesHandler)
	mux.HandleFunc("/api/stats", apiHandler.StatsHandler)
	mux.HandleFunc("/api/ledger", apiHandler.LedgerHandler)
	mux.HandleFunc("/api/users", apiHandler.UsersHandler)
	mux.HandleFunc("/api/withdraw", apiHandler.WithdrawHandler)

	// Static file serving for CSS, JS, etc.
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir("web/static"))))

	// HTML template serving
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "web/templates/index.html")
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Info("Starting web server", zap.String("address", addr))

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal("Web server failed", zap.Error(err))
	}
}
