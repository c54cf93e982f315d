package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"poseidon/pkg/errors"
)

type Config struct {
	App           AppConfig
	HTTP          HTTPConfig
	Solana        SolanaConfig
	Relay         RelayConfig
	SwapRouter    SwapRouterConfig
	Oracle        OracleConfig
	Venues        VenuesConfig
	Redis         RedisConfig
	Telegram      TelegramConfig
	Custody       CustodyConfig
	Sealer        SealerConfig
	Treasury      TreasuryConfig
	Workers       WorkerConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"poseidon"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Version  string `envconfig:"APP_VERSION" default:"dev"`
}

type HTTPConfig struct {
	Port int `envconfig:"HTTP_PORT" default:"8080"`
}

type SolanaConfig struct {
	RPCURL     string        `envconfig:"SOLANA_RPC_URL" required:"true"`
	Commitment string        `envconfig:"SOLANA_COMMITMENT" default:"confirmed"`
	Timeout    time.Duration `envconfig:"SOLANA_RPC_TIMEOUT" default:"30s"`
}

type RelayConfig struct {
	BlockEngineURL string        `envconfig:"RELAY_BLOCK_ENGINE_URL" default:"https://mainnet.block-engine.jito.wtf"`
	TipAccounts    []string      `envconfig:"RELAY_TIP_ACCOUNTS"`
	PollTimeout    time.Duration `envconfig:"RELAY_POLL_TIMEOUT" default:"60s"`
}

type SwapRouterConfig struct {
	BaseURL string        `envconfig:"SWAP_ROUTER_URL" default:"https://quote-api.jup.ag/v6"`
	Timeout time.Duration `envconfig:"SWAP_ROUTER_TIMEOUT" default:"15s"`
}

type OracleConfig struct {
	PythHermesURL   string        `envconfig:"ORACLE_PYTH_URL" default:"https://hermes.pyth.network"`
	JupiterPriceURL string        `envconfig:"ORACLE_JUPITER_PRICE_URL" default:"https://price.jup.ag/v6"`
	SourceTimeout   time.Duration `envconfig:"ORACLE_SOURCE_TIMEOUT" default:"5s"`
	StaleAfter      time.Duration `envconfig:"ORACLE_STALE_AFTER" default:"30s"`
	CacheTTL        time.Duration `envconfig:"ORACLE_CACHE_TTL" default:"10s"`
	MaxDivergence   float64       `envconfig:"ORACLE_MAX_DIVERGENCE" default:"0.005"`
}

type VenuesConfig struct {
	MeteoraURL string        `envconfig:"VENUE_METEORA_URL" default:"https://dlmm-api.meteora.ag"`
	OrcaURL    string        `envconfig:"VENUE_ORCA_URL" default:"https://api.orca.so"`
	RaydiumURL string        `envconfig:"VENUE_RAYDIUM_URL" default:"https://api-v3.raydium.io"`
	Timeout    time.Duration `envconfig:"VENUE_REST_TIMEOUT" default:"30s"`
	MinTVL     float64       `envconfig:"VENUE_MIN_TVL" default:"50000"`
	MaxRisk    int           `envconfig:"VENUE_MAX_RISK" default:"8"`
	CacheTTL   time.Duration `envconfig:"VENUE_CACHE_TTL" default:"60s"`
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type TelegramConfig struct {
	BotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
}

type CustodyConfig struct {
	SignerURL string        `envconfig:"CUSTODY_SIGNER_URL" required:"true"`
	Timeout   time.Duration `envconfig:"CUSTODY_TIMEOUT" default:"30s"`
}

type SealerConfig struct {
	ClusterPubkey string `envconfig:"SEALER_CLUSTER_PUBKEY"`
	ClusterID     string `envconfig:"SEALER_CLUSTER_ID" default:"mxe-mainnet"`
}

type TreasuryConfig struct {
	Account string `envconfig:"TREASURY_ACCOUNT"`
	FeeBps  int    `envconfig:"TREASURY_FEE_BPS" default:"100"`
}

// WorkerConfig contains intervals for the background monitor
type WorkerConfig struct {
	MonitorInterval time.Duration `envconfig:"WORKER_MONITOR_INTERVAL" default:"5m"`
	MonitorEnabled  bool          `envconfig:"WORKER_MONITOR_ENABLED" default:"true"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"false"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// Load reads configuration from environment variables.
// It first tries to load a .env file (useful for local development).
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	return &cfg, nil
}
