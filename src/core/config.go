package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Port               string        `yaml:"port"`
	LogLevel           string        `yaml:"log_level"`
	BlockInterval      time.Duration `yaml:"block_interval"`
	RateLimitPerMinute int           `yaml:"rate_limit_per_minute"`
	MaxBodySizeBytes   int64         `yaml:"max_body_size_bytes"`
	DataDir            string        `yaml:"data_dir"`
	SnapshotInterval   time.Duration `yaml:"snapshot_interval"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout"`
	ObserverURLs       []string      `yaml:"observer_urls"`
	ContentGatewayURL  string        `yaml:"content_gateway_url"`

	Genesis GenesisConfig `yaml:"genesis"`
}

// GenesisConfig seeds the ledger constants and initial balances
type GenesisConfig struct {
	CouncilMembers     []string              `yaml:"council_members"`
	CouncilAccount     string                `yaml:"council_account"`
	CouncilFeePercent  uint64                `yaml:"council_fee_percent"`
	MaxHoldingBounties int                   `yaml:"max_holding_bounties"`
	OutdatedHeight     uint64                `yaml:"outdated_height"`
	BlocksPerSession   uint64                `yaml:"blocks_per_session"`
	CurrencyRatios     map[CurrencyId]uint64 `yaml:"currency_ratios"`
	Endowments         []Endowment           `yaml:"endowments"`
}

// Default values
const (
	DefaultRateLimitPerMinute = 100
	DefaultMaxBodySizeBytes   = 1 << 20 // 1MB
	DefaultDataDir            = "./data"
	DefaultShutdownTimeout    = 30 * time.Second
	DefaultSnapshotInterval   = 5 * time.Minute

	DefaultCouncilFeePercent  = 5
	DefaultMaxHoldingBounties = 10
	DefaultOutdatedHeight     = 1000
	DefaultBlocksPerSession   = 432000
)

// DefaultCurrencyRatios weights a currency's monetary value when converting
// a fee into mining power.
func DefaultCurrencyRatios() map[CurrencyId]uint64 {
	return map[CurrencyId]uint64{
		CurrencyNative: 1,
		CurrencyUSDT:   1,
		CurrencyAUSD:   1,
		CurrencyDOT:    5,
	}
}

// LoadConfig reads configuration from environment variables with defaults.
// If CONFIG_FILE is set, the YAML file is loaded first and environment
// variables override it.
func LoadConfig() *Config {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		fileCfg, err := LoadConfigFromFile(path)
		if err != nil {
			// Config problems surface before the logger exists
			fmt.Fprintf(os.Stderr, "failed to load config file %s: %v\n", path, err)
			os.Exit(1)
		}
		cfg = fileCfg
	}

	applyEnvOverrides(cfg)
	cfg.normalize()
	return cfg
}

// LoadConfigFromFile loads configuration from a YAML file
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Port:               "8080",
		LogLevel:           "info",
		BlockInterval:      6 * time.Second,
		RateLimitPerMinute: DefaultRateLimitPerMinute,
		MaxBodySizeBytes:   DefaultMaxBodySizeBytes,
		DataDir:            DefaultDataDir,
		SnapshotInterval:   DefaultSnapshotInterval,
		ShutdownTimeout:    DefaultShutdownTimeout,
		Genesis: GenesisConfig{
			CouncilAccount:     "council",
			CouncilFeePercent:  DefaultCouncilFeePercent,
			MaxHoldingBounties: DefaultMaxHoldingBounties,
			OutdatedHeight:     DefaultOutdatedHeight,
			BlocksPerSession:   DefaultBlocksPerSession,
			CurrencyRatios:     DefaultCurrencyRatios(),
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}

	if blockInterval := os.Getenv("BLOCK_INTERVAL"); blockInterval != "" {
		if duration, err := time.ParseDuration(blockInterval); err == nil {
			cfg.BlockInterval = duration
		}
	}

	if rateLimitEnv := os.Getenv("RATE_LIMIT_PER_MINUTE"); rateLimitEnv != "" {
		if rateLimit, err := strconv.Atoi(rateLimitEnv); err == nil && rateLimit > 0 {
			cfg.RateLimitPerMinute = rateLimit
		}
	}

	if maxBodyEnv := os.Getenv("MAX_BODY_SIZE_BYTES"); maxBodyEnv != "" {
		if maxBody, err := strconv.ParseInt(maxBodyEnv, 10, 64); err == nil && maxBody > 0 {
			cfg.MaxBodySizeBytes = maxBody
		}
	}

	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		cfg.DataDir = dataDir
	}

	if shutdownTimeout := os.Getenv("SHUTDOWN_TIMEOUT"); shutdownTimeout != "" {
		if duration, err := time.ParseDuration(shutdownTimeout); err == nil {
			cfg.ShutdownTimeout = duration
		}
	}

	if gateway := os.Getenv("CONTENT_GATEWAY_URL"); gateway != "" {
		cfg.ContentGatewayURL = gateway
	}
}

// normalize backfills zero-valued genesis settings so partial YAML files and
// hand-built test configs always carry workable constants.
func (cfg *Config) normalize() {
	if cfg.Genesis.CouncilFeePercent == 0 || cfg.Genesis.CouncilFeePercent > 100 {
		cfg.Genesis.CouncilFeePercent = DefaultCouncilFeePercent
	}
	if cfg.Genesis.MaxHoldingBounties <= 0 {
		cfg.Genesis.MaxHoldingBounties = DefaultMaxHoldingBounties
	}
	if cfg.Genesis.OutdatedHeight == 0 {
		cfg.Genesis.OutdatedHeight = DefaultOutdatedHeight
	}
	if cfg.Genesis.BlocksPerSession == 0 {
		cfg.Genesis.BlocksPerSession = DefaultBlocksPerSession
	}
	if len(cfg.Genesis.CurrencyRatios) == 0 {
		cfg.Genesis.CurrencyRatios = DefaultCurrencyRatios()
	}
	if cfg.Genesis.CouncilAccount == "" {
		cfg.Genesis.CouncilAccount = "council"
	}
}
