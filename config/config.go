package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Stripe   StripeConfig
	Chain    ChainConfig
	Limits   LimitsConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	BaseURL      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// StripeConfig holds payment-provider credentials. WebhookSecret signs
// inbound events; an empty value disables signature checks (dev only).
type StripeConfig struct {
	APIBaseURL    string
	SecretKey     string
	WebhookSecret string
}

type ChainConfig struct {
	RPCURL             string
	TokenAddress       string
	TreasuryAddress    string
	TreasuryPrivateKey string
	ReceiptTimeout     time.Duration
}

// LimitsConfig bounds on-ramp purchases and off-ramp withdrawals, in cents.
type LimitsConfig struct {
	MinOnRampCents  int64
	MaxOnRampCents  int64
	MinOffRampCents int64
	RateLimit       int
	RateWindow      time.Duration
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("database.dsn", "acmeramp:acmeramp@tcp(localhost:3306)/acmeramp?charset=utf8mb4&parseTime=True&loc=Local")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("stripe.api_base_url", "https://api.stripe.com")
	v.SetDefault("chain.rpc_url", "http://localhost:8545")
	v.SetDefault("chain.receipt_timeout", "90s")
	v.SetDefault("limits.min_onramp_cents", 100)     // $1
	v.SetDefault("limits.max_onramp_cents", 1000000) // $10,000
	v.SetDefault("limits.min_offramp_cents", 100)    // $1
	v.SetDefault("limits.rate_limit", 100)
	v.SetDefault("limits.rate_window", "1m")

	// Env overrides for secrets so they never live in the config file.
	_ = v.BindEnv("stripe.secret_key", "STRIPE_SECRET_KEY")
	_ = v.BindEnv("stripe.webhook_secret", "STRIPE_WEBHOOK_SECRET")
	_ = v.BindEnv("chain.rpc_url", "CHAIN_RPC_URL")
	_ = v.BindEnv("chain.token_address", "TOKEN_ADDRESS")
	_ = v.BindEnv("chain.treasury_address", "TREASURY_ADDRESS")
	_ = v.BindEnv("chain.treasury_private_key", "TREASURY_PRIVATE_KEY")
	_ = v.BindEnv("database.dsn", "DATABASE_DSN")
	_ = v.BindEnv("server.port", "PORT")

	if err := v.ReadInConfig(); err != nil {
		// The config file is optional; defaults plus env are enough.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	return &Config{
		Server: ServerConfig{
			Port:         v.GetString("server.port"),
			Env:          v.GetString("server.env"),
			BaseURL:      v.GetString("server.base_url"),
			ReadTimeout:  v.GetDuration("server.read_timeout"),
			WriteTimeout: v.GetDuration("server.write_timeout"),
		},
		Database: DatabaseConfig{
			DSN:             v.GetString("database.dsn"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
		},
		Stripe: StripeConfig{
			APIBaseURL:    v.GetString("stripe.api_base_url"),
			SecretKey:     v.GetString("stripe.secret_key"),
			WebhookSecret: v.GetString("stripe.webhook_secret"),
		},
		Chain: ChainConfig{
			RPCURL:             v.GetString("chain.rpc_url"),
			TokenAddress:       v.GetString("chain.token_address"),
			TreasuryAddress:    v.GetString("chain.treasury_address"),
			TreasuryPrivateKey: v.GetString("chain.treasury_private_key"),
			ReceiptTimeout:     v.GetDuration("chain.receipt_timeout"),
		},
		Limits: LimitsConfig{
			MinOnRampCents:  v.GetInt64("limits.min_onramp_cents"),
			MaxOnRampCents:  v.GetInt64("limits.max_onramp_cents"),
			MinOffRampCents: v.GetInt64("limits.min_offramp_cents"),
			RateLimit:       v.GetInt("limits.rate_limit"),
			RateWindow:      v.GetDuration("limits.rate_window"),
		},
	}, nil
}
