package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
// Every command reads the same Config and uses the fields it needs.
type Config struct {
	RPCURL   string
	Contract string
	ABIFile  string

	FromBlock uint64
	// ToBlock is only meaningful when ToLatest is false.
	ToBlock   uint64
	ToLatest  bool
	ChunkSize uint64

	PollInterval time.Duration
	Once         bool
	Cursor       string
	CursorName   string
	PGDSN        string
	MaxRetries   int
	RetryBackoff time.Duration
	MetricsAddr  string

	Sender  string
	Target  string
	Address string
	ID      string
	Gas     uint64
	Value   string

	LogLevel string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("REGISTRY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("to", LatestBlock)
	v.SetDefault("chunk-size", uint64(5000))
	v.SetDefault("poll-interval", 15*time.Second)
	v.SetDefault("cursor", "./data/cursor.json")
	v.SetDefault("cursor-name", "registry")
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	toBlock, toLatest, err := ParseBlock("to", v.GetString("to"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		RPCURL:       v.GetString("rpc"),
		Contract:     strings.TrimSpace(v.GetString("contract")),
		ABIFile:      v.GetString("abi-file"),
		FromBlock:    v.GetUint64("from"),
		ToBlock:      toBlock,
		ToLatest:     toLatest,
		ChunkSize:    v.GetUint64("chunk-size"),
		PollInterval: v.GetDuration("poll-interval"),
		Once:         v.GetBool("once"),
		Cursor:       v.GetString("cursor"),
		CursorName:   v.GetString("cursor-name"),
		PGDSN:        v.GetString("pg-dsn"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		MetricsAddr:  v.GetString("metrics-addr"),
		Sender:       strings.TrimSpace(v.GetString("sender")),
		Target:       strings.TrimSpace(v.GetString("target")),
		Address:      strings.TrimSpace(v.GetString("address")),
		ID:           strings.TrimSpace(v.GetString("id")),
		Gas:          v.GetUint64("gas"),
		Value:        strings.TrimSpace(v.GetString("value")),
		LogLevel:     v.GetString("log-level"),
	}

	return cfg, nil
}

// Validate checks the settings shared by every command.
func (c Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if c.Contract == "" {
		return fmt.Errorf("contract address is required")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must be >= 0")
	}
	return nil
}
