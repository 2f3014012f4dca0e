package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config holds every runtime setting of the service
type Config struct {
	// Chain endpoints
	RPCURL    string `env:"SOLANA_RPC_URL" envDefault:"https://api.mainnet-beta.solana.com"`
	WSURL     string `env:"SOLANA_WS_URL" envDefault:"wss://api.mainnet-beta.solana.com"`
	ProgramID string `env:"RAYDIUM_PROGRAM_ID" envDefault:"675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"`
	RPCRate   int    `env:"SOLANA_RPC_RPS" envDefault:"10"`

	// Providers
	DextoolsAPIKey  string  `env:"DEXTOOLS_API_KEY"`
	DextoolsBaseURL string  `env:"DEXTOOLS_BASE_URL" envDefault:"https://public-api.dextools.io/trial"`
	DextoolsRate    float64 `env:"DEXTOOLS_RPS" envDefault:"1"`
	RugCheckBaseURL string  `env:"RUGCHECK_BASE_URL" envDefault:"https://api.rugcheck.xyz"`
	SolscanAPIKey   string  `env:"SOLSCAN_API_KEY"`
	SolscanBaseURL  string  `env:"SOLSCAN_BASE_URL" envDefault:"https://api.solscan.io"`

	// Reconciliation
	BackfillInterval        time.Duration `env:"METADATA_BACKFILL_INTERVAL" envDefault:"30s"`
	SweepInterval           time.Duration `env:"COMPLETENESS_SWEEP_INTERVAL" envDefault:"5s"`
	MaxMetadataAttempts     int           `env:"MAX_METADATA_ATTEMPTS" envDefault:"5"`
	MetadataRefetchInterval time.Duration `env:"METADATA_REFETCH_INTERVAL" envDefault:"30s"`

	// Discovery worker pool
	Workers   int `env:"DISCOVERY_WORKERS" envDefault:"4"`
	QueueSize int `env:"DISCOVERY_QUEUE_SIZE" envDefault:"256"`

	// HTTP surface
	Port           string   `env:"PORT" envDefault:"8080"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
	RateLimitRPS   float64  `env:"RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst int      `env:"RATE_LIMIT_BURST" envDefault:"20"`

	RabbitMQ RabbitMQConfig `envPrefix:"RABBITMQ_"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// RabbitMQConfig configures the optional snapshot exchange
type RabbitMQConfig struct {
	Host     string `env:"HOST"`
	Port     string `env:"PORT" envDefault:"5672"`
	User     string `env:"USER" envDefault:"guest"`
	Password string `env:"PASSWORD" envDefault:"guest"`
	Exchange string `env:"EXCHANGE" envDefault:"poolwatch.snapshots"`
}

// Enabled reports whether a broker host was configured
func (c RabbitMQConfig) Enabled() bool {
	return c.Host != ""
}

// URL builds the amqp connection string
func (c RabbitMQConfig) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", c.User, c.Password, c.Host, c.Port)
}

// Load reads an optional .env file and parses the environment into a Config
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found, using process environment")
	}
	return Parse()
}

// Parse reads the process environment only
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot run with
func (c *Config) Validate() error {
	if c.RPCURL == "" || c.WSURL == "" {
		return fmt.Errorf("SOLANA_RPC_URL and SOLANA_WS_URL are required")
	}
	if c.MaxMetadataAttempts < 1 {
		return fmt.Errorf("MAX_METADATA_ATTEMPTS must be at least 1, got %d", c.MaxMetadataAttempts)
	}
	if c.BackfillInterval <= 0 || c.SweepInterval <= 0 {
		return fmt.Errorf("job intervals must be positive")
	}
	if c.Workers < 1 {
		return fmt.Errorf("DISCOVERY_WORKERS must be at least 1, got %d", c.Workers)
	}
	if c.QueueSize < 0 {
		return fmt.Errorf("DISCOVERY_QUEUE_SIZE must not be negative")
	}
	return nil
}
