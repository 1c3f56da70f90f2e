package market

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"time"

	"signal-trade-bot-go/internal/config"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// TokenMetadata is the best-effort enrichment for a contract address.
type TokenMetadata struct {
	MarketCap float64
	Liquidity float64
	PairAge   string
	PriceUSD  float64
}

// ClientInterface defines the market-data lookups the core depends on.
type ClientInterface interface {
	LookupPrice(ctx context.Context, ticker string) (float64, error)
	LookupTokenMetadata(ctx context.Context, address string) (*TokenMetadata, error)
}

// Client is a rate-limited client for a DexScreener-style market-data
// API. It implements ClientInterface.
type Client struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
}

// ensure Client implements the interface
var _ ClientInterface = (*Client)(nil)

// NewClient creates a new market-data API client.
func NewClient(cfg *config.Market, logger *zap.Logger) *Client {
	client := resty.New().SetBaseURL(cfg.BaseURL)
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	return &Client{
		client:  client,
		logger:  logger,
		limiter: limiter,
	}
}

// doRequest handles the actual request execution with rate limiting and retry logic.
func (c *Client) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		// Wait for the rate limiter
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
		resp, err = req.SetContext(ctx).Execute(method, url)

		if err == nil && !resp.IsError() {
			return resp, nil // Success
		}

		// Analyze error and decide whether to retry
		shouldRetry := false
		var retryAfter time.Duration

		if resp != nil && resp.RawResponse != nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests {
				shouldRetry = true
				retryAfterHeader := resp.Header().Get("Retry-After")
				if seconds, err := strconv.Atoi(retryAfterHeader); err == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 { // Server errors
				shouldRetry = true
			}
		} else { // Network or other client-side errors
			shouldRetry = true
		}

		if !shouldRetry {
			return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
		}

		// If we should retry, calculate wait time
		if retryAfter == 0 {
			// Exponential backoff: 1s, 2s, 4s
			retryAfter = time.Duration(math.Pow(2, float64(i))) * time.Second
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}

// tickerPriceResponse is the response for a single ticker price.
type tickerPriceResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// LookupPrice fetches the current reference price for a ticker symbol.
func (c *Client) LookupPrice(ctx context.Context, ticker string) (float64, error) {
	var result tickerPriceResponse

	req := c.client.R().
		SetResult(&result).
		SetPathParam("ticker", ticker).
		SetHeader("Content-Type", "application/json")

	_, err := c.doRequest(ctx, "GET", "/price/{ticker}", req)
	if err != nil {
		return 0, fmt.Errorf("failed to get price for %s: %w", ticker, err)
	}

	price, err := strconv.ParseFloat(result.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse price %q for %s: %w", result.Price, ticker, err)
	}
	if price <= 0 {
		return 0, fmt.Errorf("invalid price %f for %s", price, ticker)
	}

	return price, nil
}

// tokenPair is one trading pair in a token lookup response.
type tokenPair struct {
	FDV       float64 `json:"fdv"`
	MarketCap float64 `json:"marketCap"`
	Liquidity struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
	PriceUSD      string `json:"priceUsd"`
	PairCreatedAt int64  `json:"pairCreatedAt"` // unix millis
}

// tokenResponse is the full response from the token metadata endpoint.
type tokenResponse struct {
	Pairs []tokenPair `json:"pairs"`
}

// LookupTokenMetadata fetches market cap, liquidity and pair age for a
// contract address. The pair with the deepest liquidity wins.
func (c *Client) LookupTokenMetadata(ctx context.Context, address string) (*TokenMetadata, error) {
	var result tokenResponse

	req := c.client.R().
		SetResult(&result).
		SetPathParam("address", address).
		SetHeader("Content-Type", "application/json")

	_, err := c.doRequest(ctx, "GET", "/tokens/{address}", req)
	if err != nil {
		return nil, fmt.Errorf("failed to get token data for %s: %w", address, err)
	}

	if len(result.Pairs) == 0 {
		return nil, fmt.Errorf("no pairs found for %s", address)
	}

	pairs := result.Pairs
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].Liquidity.USD > pairs[j].Liquidity.USD
	})
	best := pairs[0]

	mcap := best.FDV
	if mcap == 0 {
		mcap = best.MarketCap
	}

	price, _ := strconv.ParseFloat(best.PriceUSD, 64)

	return &TokenMetadata{
		MarketCap: mcap,
		Liquidity: best.Liquidity.USD,
		PairAge:   describePairAge(best.PairCreatedAt, time.Now()),
		PriceUSD:  price,
	}, nil
}

// describePairAge renders the pair creation time as a coarse age
// descriptor, "N days" past the first day and "N hours" within it.
func describePairAge(createdAtMillis int64, now time.Time) string {
	if createdAtMillis <= 0 {
		return "Unknown"
	}

	created := time.UnixMilli(createdAtMillis)
	age := now.Sub(created)
	if age < 0 {
		return "Unknown"
	}

	days := int(age.Hours() / 24)
	if days > 0 {
		return fmt.Sprintf("%d days", days)
	}
	return fmt.Sprintf("%d hours", int(age.Hours()))
}
