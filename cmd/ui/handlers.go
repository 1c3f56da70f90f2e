package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"signal-trade-bot-go/internal/ledger"
	"signal-trade-bot-go/internal/models"
	"signal-trade-bot-go/internal/scorer"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// APIHandler holds dependencies for the API endpoints.
type APIHandler struct {
	log            *zap.Logger
	db             *gorm.DB
	reputation     *scorer.Scorer
	accountant     *ledger.Accountant
	initialBalance float64
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(log *zap.Logger, db *gorm.DB, reputation *scorer.Scorer, accountant *ledger.Accountant, initialBalance float64) *APIHandler {
	return &APIHandler{log: log, db: db, reputation: reputation, accountant: accountant, initialBalance: initialBalance}
}

// TradesHandler returns all paper trades, newest first.
func (h *APIHandler) TradesHandler(w http.ResponseWriter, r *http.Request) {
	var trades []models.PaperTrade
	if err := h.db.Order("id desc").Find(&trades).Error; err != nil {
		h.log.Error("Failed to get trades from database", zap.Error(err))
		http.Error(w, "Failed to get trades", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(trades)
}

// StatsResponse is the structure for the /api/stats endpoint.
type StatsResponse struct {
	TotalTrades      int64   `json:"total_trades"`
	OpenTrades       int64   `json:"open_trades"`
	ProfitableTrades int64   `json:"profitable_trades"`
	WinRate          float64 `json:"win_rate"`
	TotalPnL         float64 `json:"total_pnl"`
	TotalEquity      float64 `json:"total_equity"`
}

// StatsHandler calculates and returns paper-trading statistics.
// Equity is the starting balance plus realized PnL; open positions are
// carried at cost.
func (h *APIHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	var trades []models.PaperTrade
	if err := h.db.Find(&trades).Error; err != nil {
		h.log.Error("Failed to get trades for statistics", zap.Error(err))
		http.Error(w, "Failed to calculate statistics", http.StatusInternalServerError)
		return
	}

	stats := StatsResponse{}
	var closedTrades int64
	for _, trade := range trades {
		stats.TotalTrades++
		if trade.Status == models.TradeStatusOpen {
			stats.OpenTrades++
			continue
		}
		closedTrades++
		if trade.PnL > 0 {
			stats.ProfitableTrades++
		}
		stats.TotalPnL += trade.PnL
	}
	if closedTrades > 0 {
		stats.WinRate = float64(stats.ProfitableTrades) / float64(closedTrades)
	}
	stats.TotalEquity = h.initialBalance + stats.TotalPnL

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// LedgerBalance is one user's virtual balance as shown on the dashboard.
type LedgerBalance struct {
	UserID      string  `json:"user_id"`
	Balance     float64 `json:"balance"`
	LastUpdated int64   `json:"last_updated"`
}

// LedgerHandler returns every user's internal virtual balance.
func (h *APIHandler) LedgerHandler(w http.ResponseWriter, r *http.Request) {
	var entries []models.LedgerEntry
	if err := h.db.Order("user_id asc").Find(&entries).Error; err != nil {
		h.log.Error("Failed to get ledger entries", zap.Error(err))
		http.Error(w, "Failed to get ledger", http.StatusInternalServerError)
		return
	}

	balances := make([]LedgerBalance, 0, len(entries))
	for _, entry := range entries {
		balances = append(balances, LedgerBalance{
			UserID:      entry.UserID,
			Balance:     entry.Balance,
			LastUpdated: entry.LastUpdated,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(balances)
}

// UserSummary is one user row with their computed reputation.
type UserSummary struct {
	TelegramID         string `json:"telegram_id"`
	Username           string `json:"username"`
	FirstName          string `json:"first_name"`
	SubscriptionStatus string `json:"subscription_status"`
	SubscriptionEnd    int64  `json:"subscription_end"`
	Reputation         int    `json:"reputation"`
}

// UsersHandler returns all known users with their current reputation
// score. Scores hit the market API for outcome prices, so this
// endpoint is slow on large scan histories.
func (h *APIHandler) UsersHandler(w http.ResponseWriter, r *http.Request) {
	var users []models.User
	if err := h.db.Order("id asc").Find(&users).Error; err != nil {
		h.log.Error("Failed to get users", zap.Error(err))
		http.Error(w, "Failed to get users", http.StatusInternalServerError)
		return
	}

	summaries := make([]UserSummary, 0, len(users))
	for _, user := range users {
		summaries = append(summaries, UserSummary{
			TelegramID:         user.TelegramID,
			Username:           user.Username,
			FirstName:          user.FirstName,
			SubscriptionStatus: user.SubscriptionStatus,
			SubscriptionEnd:    user.SubscriptionEnd,
			Reputation:         h.reputation.ScoreUser(r.Context(), user.TelegramID),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summaries)
}

// withdrawRequest is the body of a withdrawal request.
type withdrawRequest struct {
	UserID string  `json:"user_id"`
	Amount float64 `json:"amount"`
}

// withdrawResponse mirrors the accountant's receipt.
type withdrawResponse struct {
	ID            string  `json:"id"`
	UserID        string  `json:"user_id"`
	Amount        float64 `json:"amount"`
	Destination   string  `json:"destination"`
	TxID          string  `json:"tx_id,omitempty"`
	PayoutPending bool    `json:"payout_pending"`
}

// WithdrawHandler debits the user's virtual balance and initiates an
// external payout to their deposit address.
func (h *APIHandler) WithdrawHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req withdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.Amount <= 0 {
		http.Error(w, "user_id and a positive amount are required", http.StatusBadRequest)
		return
	}

	receipt, err := h.accountant.Withdraw(r.Context(), req.UserID, req.Amount)
	if errors.Is(err, ledger.ErrInsufficientFunds) {
		http.Error(w, "Insufficient funds", http.StatusConflict)
		return
	}
	if err != nil {
		h.log.Error("Withdrawal failed",
			zap.String("user_id", req.UserID), zap.Error(err))
		http.Error(w, "Withdrawal failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(withdrawResponse{
		ID:            receipt.ID,
		UserID:        receipt.UserID,
		Amount:        receipt.Amount,
		Destination:   receipt.Destination,
		TxID:          receipt.TxID,
		PayoutPending: receipt.PayoutPending,
	})
}
