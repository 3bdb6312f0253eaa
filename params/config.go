package params

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendPebble = "pebble"
	BackendMemory = "memory"
)

type Ledger struct {
	Backend     string // "pebble" or "memory"
	DBPath      string
	JournalFile string // empty disables the event journal
}

type Log struct {
	File  string
	Level string
}

type API struct {
	Addr            string
	AllowedOrigins  []string
	ReplayCacheSize int
	ChainID         int64
}

type Chain struct {
	// BlockTime is the devnet block interval. Zero freezes the height at
	// StartHeight.
	BlockTime   time.Duration
	StartHeight uint64
}

// Buckets are the default expiry thresholds for the buckets endpoint.
type Buckets struct {
	NearMax   uint64
	MediumMax uint64
}

type Config struct {
	Ledger  Ledger
	Log     Log
	API     API
	Chain   Chain
	Buckets Buckets
}

func Default() Config {
	return Config{
		Ledger: Ledger{
			Backend:     BackendPebble,
			DBPath:      "data/ledger",
			JournalFile: "data/events.jsonl",
		},
		Log: Log{
			File:  "data/node.log",
			Level: "info",
		},
		API: API{
			Addr:            ":8080",
			AllowedOrigins:  []string{"http://localhost:3000", "http://localhost:3001"},
			ReplayCacheSize: 100_000,
			ChainID:         1337,
		},
		Chain: Chain{
			BlockTime:   1 * time.Second,
			StartHeight: 1,
		},
		Buckets: Buckets{
			NearMax:   1_000,
			MediumMax: 10_000,
		},
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) (Config, error) {
	cfg := Default()

	// Try to load .env file (optional - won't fail if not exists)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	cfg.Ledger.Backend = strings.ToLower(getEnv("LEDGER_BACKEND", cfg.Ledger.Backend))
	cfg.Ledger.DBPath = getEnv("LEDGER_DB_PATH", cfg.Ledger.DBPath)
	if v, ok := os.LookupEnv("EVENT_JOURNAL_FILE"); ok {
		cfg.Ledger.JournalFile = v
	}

	cfg.Log.File = getEnv("LOG_FILE", cfg.Log.File)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)

	cfg.API.Addr = getEnv("API_ADDR", cfg.API.Addr)
	if origins := os.Getenv("API_ALLOWED_ORIGINS"); origins != "" {
		cfg.API.AllowedOrigins = splitList(origins)
	}

	var err error
	if cfg.API.ReplayCacheSize, err = getInt("REPLAY_CACHE_SIZE", cfg.API.ReplayCacheSize); err != nil {
		return cfg, err
	}
	if cfg.API.ChainID, err = getInt64("CHAIN_ID", cfg.API.ChainID); err != nil {
		return cfg, err
	}

	blockMs, err := getInt64("BLOCK_TIME_MS", cfg.Chain.BlockTime.Milliseconds())
	if err != nil {
		return cfg, err
	}
	cfg.Chain.BlockTime = time.Duration(blockMs) * time.Millisecond

	if cfg.Chain.StartHeight, err = getUint64("START_HEIGHT", cfg.Chain.StartHeight); err != nil {
		return cfg, err
	}
	if cfg.Buckets.NearMax, err = getUint64("BUCKET_NEAR_MAX", cfg.Buckets.NearMax); err != nil {
		return cfg, err
	}
	if cfg.Buckets.MediumMax, err = getUint64("BUCKET_MEDIUM_MAX", cfg.Buckets.MediumMax); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.Ledger.Backend {
	case BackendPebble:
		if c.Ledger.DBPath == "" {
			return fmt.Errorf("LEDGER_DB_PATH is required for the pebble backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown LEDGER_BACKEND %q", c.Ledger.Backend)
	}
	if c.Chain.BlockTime < 0 {
		return fmt.Errorf("BLOCK_TIME_MS must not be negative")
	}
	if c.Buckets.NearMax > c.Buckets.MediumMax {
		return fmt.Errorf("BUCKET_NEAR_MAX (%d) exceeds BUCKET_MEDIUM_MAX (%d)", c.Buckets.NearMax, c.Buckets.MediumMax)
	}
	if c.API.ReplayCacheSize <= 0 {
		return fmt.Errorf("REPLAY_CACHE_SIZE must be positive")
	}
	return nil
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getInt64(key string, def int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getUint64(key string, def uint64) (uint64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
