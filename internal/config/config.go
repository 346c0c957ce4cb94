// Package config holds the values every component is constructed with.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli"
)

// store drivers
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

var routingFormat = regexp.MustCompile(`^[0-9]{9}$`)

// Config is passed by value into each component at construction.
type Config struct {
	LocalRoutingNumber string

	PollInterval time.Duration
	StoreTimeout time.Duration

	CacheMaxSize int
	CacheTTL     time.Duration
	HistoryLimit int // 0 selects the balance-only projection
	DedupTTL     time.Duration

	StoreDriver string
	DatabaseURL string

	KafkaBrokers []string
	KafkaTopic   string

	ListenAddress  string
	TokenPublicKey string // hex encoded ed25519 public key

	LogDirectory string
	LogLevel     string
	LogConsole   bool
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		LocalRoutingNumber: "883745000",
		PollInterval:       100 * time.Millisecond,
		StoreTimeout:       2 * time.Second,
		CacheMaxSize:       1000,
		CacheTTL:           time.Hour,
		HistoryLimit:       100,
		DedupTTL:           time.Hour,
		StoreDriver:        DriverMemory,
		KafkaTopic:         "transaction_completed",
		ListenAddress:      ":8080",
		LogDirectory:       "log",
		LogLevel:           "info",
	}
}

// Validate checks the values that would otherwise fail deep inside a component.
func (c Config) Validate() error {
	if !routingFormat.MatchString(c.LocalRoutingNumber) {
		return fmt.Errorf("config: local routing number %q is not 9 digits", c.LocalRoutingNumber)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("config: poll interval must be positive, got %s", c.PollInterval)
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("config: store timeout must be positive, got %s", c.StoreTimeout)
	}
	if c.CacheMaxSize <= 0 {
		return fmt.Errorf("config: cache max size must be positive, got %d", c.CacheMaxSize)
	}
	if c.CacheTTL <= 0 || c.DedupTTL <= 0 {
		return fmt.Errorf("config: cache and dedup TTL must be positive")
	}
	if c.HistoryLimit < 0 {
		return fmt.Errorf("config: history limit must not be negative, got %d", c.HistoryLimit)
	}
	switch c.StoreDriver {
	case DriverMemory:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: database url is required for the %s driver", DriverPostgres)
		}
	default:
		return fmt.Errorf("config: unknown store driver %q", c.StoreDriver)
	}
	return nil
}

// LoadEnvFile loads a dotenv file into the process environment so the
// flag EnvVar bindings pick it up. A missing default file is not an error.
func LoadEnvFile(file string) error {
	if file == "" {
		err := godotenv.Load()
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}
	return godotenv.Load(file)
}

// Flags returns the command line flags, each bound to an environment variable.
func Flags() []cli.Flag {
	d := Default()
	return []cli.Flag{
		cli.StringFlag{Name: "env-file", Usage: " dotenv `FILE` loaded before flags are read"},
		cli.StringFlag{Name: "routing-number", Value: d.LocalRoutingNumber, EnvVar: "LOCAL_ROUTING_NUM", Usage: " local routing `NUMBER`"},
		cli.DurationFlag{Name: "poll-interval", Value: d.PollInterval, EnvVar: "POLL_INTERVAL", Usage: " ledger poll `INTERVAL`"},
		cli.DurationFlag{Name: "store-timeout", Value: d.StoreTimeout, EnvVar: "STORE_TIMEOUT", Usage: " ledger store call `TIMEOUT`"},
		cli.IntFlag{Name: "cache-size", Value: d.CacheMaxSize, EnvVar: "CACHE_SIZE", Usage: " maximum cached `ACCOUNTS`"},
		cli.DurationFlag{Name: "cache-ttl", Value: d.CacheTTL, EnvVar: "CACHE_TTL", Usage: " maximum age of a cached account `DURATION`"},
		cli.IntFlag{Name: "history-limit", Value: d.HistoryLimit, EnvVar: "HISTORY_LIMIT", Usage: " cached history `LENGTH`, 0 for balance only"},
		cli.DurationFlag{Name: "dedup-ttl", Value: d.DedupTTL, EnvVar: "DEDUP_TTL", Usage: " request key retention `DURATION`"},
		cli.StringFlag{Name: "store", Value: d.StoreDriver, EnvVar: "STORE_DRIVER", Usage: " ledger store `DRIVER` [memory|postgres]"},
		cli.StringFlag{Name: "database-url", EnvVar: "DATABASE_URL", Usage: " postgres `DSN`"},
		cli.StringFlag{Name: "kafka-brokers", EnvVar: "KAFKA_BROKERS", Usage: " comma separated `HOST:PORT` list, empty disables events"},
		cli.StringFlag{Name: "kafka-topic", Value: d.KafkaTopic, EnvVar: "KAFKA_TOPIC", Usage: " event `TOPIC`"},
		cli.StringFlag{Name: "listen", Value: d.ListenAddress, EnvVar: "LISTEN_ADDRESS", Usage: " http `ADDRESS`"},
		cli.StringFlag{Name: "token-public-key", EnvVar: "TOKEN_PUBLIC_KEY", Usage: " hex ed25519 `KEY` verifying bearer tokens"},
		cli.StringFlag{Name: "log-dir", Value: d.LogDirectory, EnvVar: "LOG_DIR", Usage: " log `DIRECTORY`"},
		cli.StringFlag{Name: "log-level", Value: d.LogLevel, EnvVar: "LOG_LEVEL", Usage: " default log `LEVEL`"},
		cli.BoolFlag{Name: "log-console", EnvVar: "LOG_CONSOLE", Usage: " also log to the console"},
	}
}

// FromContext builds a validated Config from parsed flags.
func FromContext(c *cli.Context) (Config, error) {
	cfg := Config{
		LocalRoutingNumber: c.String("routing-number"),
		PollInterval:       c.Duration("poll-interval"),
		StoreTimeout:       c.Duration("store-timeout"),
		CacheMaxSize:       c.Int("cache-size"),
		CacheTTL:           c.Duration("cache-ttl"),
		HistoryLimit:       c.Int("history-limit"),
		DedupTTL:           c.Duration("dedup-ttl"),
		StoreDriver:        c.String("store"),
		DatabaseURL:        c.String("database-url"),
		KafkaBrokers:       splitList(c.String("kafka-brokers")),
		KafkaTopic:         c.String("kafka-topic"),
		ListenAddress:      c.String("listen"),
		TokenPublicKey:     c.String("token-public-key"),
		LogDirectory:       c.String("log-dir"),
		LogLevel:           c.String("log-level"),
		LogConsole:         c.Bool("log-console"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
