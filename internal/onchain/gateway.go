package onchain

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"signal-trade-bot-go/internal/config"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// GatewayClient talks to the custody/payment gateway's REST API. It is
// the narrow implementation of the balance, transfer and payout
// collaborators the billing governor and the ledger accountant use;
// key management and transaction building live behind the gateway.
type GatewayClient struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
}

// NewGatewayClient creates a payment-gateway client.
func NewGatewayClient(cfg *config.Gateway, logger *zap.Logger) *GatewayClient {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Authorization", "Bearer "+cfg.APIKey)

	return &GatewayClient{
		client:  client,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst),
	}
}

// doRequest executes one gateway call with rate limiting and retry on
// transient failures.
func (c *GatewayClient) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		resp, err = req.SetContext(ctx).Execute(method, url)
		if err == nil && !resp.IsError() {
			return resp, nil
		}

		shouldRetry := true
		if resp != nil && resp.RawResponse != nil {
			statusCode := resp.StatusCode()
			// Money movement must not be blindly replayed: only rate
			// limits and server errors on reads are retried here;
			// POSTs carry an idempotency key instead.
			shouldRetry = statusCode == http.StatusTooManyRequests || statusCode >= 500
		}
		if !shouldRetry {
			return nil, fmt.Errorf("gateway request failed with status %s: %s", resp.Status(), resp.String())
		}

		retryAfter := time.Duration(math.Pow(2, float64(i))) * time.Second
		c.logger.Warn("Gateway request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err))

		select {
		case <-time.After(retryAfter):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("gateway request failed after %d attempts: %w", maxRetries, err)
}

type balanceResponse struct {
	Address string `json:"address"`
	AssetID string `json:"asset_id"`
	Amount  string `json:"amount"`
}

// LookupBalance reads the current balance of an address for an asset.
func (c *GatewayClient) LookupBalance(ctx context.Context, address, assetID string) (float64, error) {
	var result balanceResponse

	req := c.client.R().
		SetResult(&result).
		SetPathParam("address", address).
		SetQueryParam("asset_id", assetID)

	_, err := c.doRequest(ctx, "GET", "/v1/balances/{address}", req)
	if err != nil {
		return 0, fmt.Errorf("failed to read balance for %s: %w", address, err)
	}

	amount, err := strconv.ParseFloat(result.Amount, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse balance %q for %s: %w", result.Amount, address, err)
	}
	return amount, nil
}

type transferRequest struct {
	From           string  `json:"from"`
	To             string  `json:"to"`
	AssetID        string  `json:"asset_id"`
	Amount         float64 `json:"amount"`
	IdempotencyKey string  `json:"idempotency_key"`
}

type transferResponse struct {
	TxID string `json:"tx_id"`
}

// Transfer moves funds between two addresses, used for subscription
// collection.
func (c *GatewayClient) Transfer(ctx context.Context, from, to, assetID string, amount float64) (string, error) {
	var result transferResponse

	req := c.client.R().
		SetResult(&result).
		SetBody(transferRequest{
			From:           from,
			To:             to,
			AssetID:        assetID,
			Amount:         amount,
			IdempotencyKey: idempotencyKey(),
		})

	_, err := c.doRequest(ctx, "POST", "/v1/transfers", req)
	if err != nil {
		return "", fmt.Errorf("transfer of %f %s failed: %w", amount, assetID, err)
	}
	return result.TxID, nil
}

type payoutRequest struct {
	Destination    string  `json:"destination"`
	Amount         float64 `json:"amount"`
	IdempotencyKey string  `json:"idempotency_key"`
}

// SendPayout pays out from the pooled trading wallet to a destination
// address, used for ledger withdrawals.
func (c *GatewayClient) SendPayout(ctx context.Context, destination string, amount float64) (string, error) {
	var result transferResponse

	req := c.client.R().
		SetResult(&result).
		SetBody(payoutRequest{
			Destination:    destination,
			Amount:         amount,
			IdempotencyKey: idempotencyKey(),
		})

	_, err := c.doRequest(ctx, "POST", "/v1/payouts", req)
	if err != nil {
		return "", fmt.Errorf("payout of %f to %s failed: %w", amount, destination, err)
	}
	return result.TxID, nil
}
