package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Logger   Logger   `mapstructure:"logger"`
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
	Market   Market   `mapstructure:"market"`
	Gateway  Gateway  `mapstructure:"gateway"`
	Trading  Trading  `mapstructure:"trading"`
	Billing  Billing  `mapstructure:"billing"`
	Ledger   Ledger   `mapstructure:"ledger"`
	Signals  Signals  `mapstructure:"signals"`
	Ingest   Ingest   `mapstructure:"ingest"`
	Notify   Notify   `mapstructure:"notify"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Server holds the configuration for the dashboard web server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Market holds the configuration for the market-data API client.
type Market struct {
	BaseURL        string  `mapstructure:"base_url"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Gateway holds the configuration for the custody/payment gateway client.
type Gateway struct {
	BaseURL        string  `mapstructure:"base_url"`
	APIKey         string  `mapstructure:"api_key"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Trading holds the configuration for the paper-trade engine.
type Trading struct {
	InitialBalance float64 `mapstructure:"initial_balance"`
	TradeNotional  float64 `mapstructure:"trade_notional"`
	ScoreThreshold int     `mapstructure:"score_threshold"`
	TakeProfitPct  float64 `mapstructure:"take_profit_pct"`
	StopLossPct    float64 `mapstructure:"stop_loss_pct"`
	CheckInterval  int     `mapstructure:"check_interval_s"`
}

// Billing holds the configuration for the subscription governor.
type Billing struct {
	SubscriptionCost  float64 `mapstructure:"subscription_cost"`
	PeriodDays        int     `mapstructure:"period_days"`
	CollectionAddress string  `mapstructure:"collection_address"`
	AssetID           string  `mapstructure:"asset_id"`
	CheckInterval     int     `mapstructure:"check_interval_s"`
}

// Ledger holds the configuration for the sweep/withdraw accountant.
type Ledger struct {
	SweepFeeRate  float64 `mapstructure:"sweep_fee_rate"`
	SweepInterval int     `mapstructure:"sweep_interval_s"`
}

// Signals holds the configuration for the signal extractor.
type Signals struct {
	EVM    bool `mapstructure:"evm"`
	Solana bool `mapstructure:"solana"`
}

// Ingest holds the configuration for the message feed source.
type Ingest struct {
	FeedURL string `mapstructure:"feed_url"`
}

// Notify holds the configuration for outbound notifications.
type Notify struct {
	WebhookURL string `mapstructure:"webhook_url"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("market.rate_limit", 5) // requests per second
	viper.SetDefault("market.rate_limit_burst", 2)
	viper.SetDefault("gateway.rate_limit", 10)
	viper.SetDefault("gateway.rate_limit_burst", 5)
	viper.SetDefault("trading.initial_balance", 10000)
	viper.SetDefault("trading.trade_notional", 1000)
	viper.SetDefault("trading.score_threshold", 80)
	viper.SetDefault("trading.take_profit_pct", 20)
	viper.SetDefault("trading.stop_loss_pct", -10)
	viper.SetDefault("trading.check_interval_s", 60)
	viper.SetDefault("billing.subscription_cost", 39)
	viper.SetDefault("billing.period_days", 30)
	viper.SetDefault("billing.asset_id", "USDC")
	viper.SetDefault("billing.check_interval_s", 3600)
	viper.SetDefault("ledger.sweep_fee_rate", 0.01)
	viper.SetDefault("ledger.sweep_interval_s", 900)
	viper.SetDefault("signals.evm", true)
	viper.SetDefault("signals.solana", false)

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
