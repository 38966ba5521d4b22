package params

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

type Chain struct {
	RPCURL        string
	ChainID       int64
	ExchangeProxy string
}

type Watcher struct {
	// SyncInterval paces the full-set reconciliation sweep.
	SyncInterval time.Duration
	// PollInterval paces the exchange event log poller.
	PollInterval time.Duration
	// ChunkSize bounds one oracle batch call (~200 keeps the RPC request
	// under node limits).
	ChunkSize int
	// EventQueueDepth bounds the queue between the log poller and the
	// engine worker; overflow drops events and counts them.
	EventQueueDepth int
	// CallTimeout bounds each oracle/RPC round trip.
	CallTimeout time.Duration
}

type Store struct {
	Backend string // "sqlite" or "pebble"
	Path    string
}

type API struct {
	ListenAddr     string
	AllowedOrigins []string
}

type Logging struct {
	Level        string
	FilePath     string
	EventLogPath string
}

type Config struct {
	Chain   Chain
	Watcher Watcher
	Store   Store
	API     API
	Logging Logging
}

func Default() Config {
	return Config{
		Chain: Chain{
			RPCURL:  "http://localhost:8545",
			ChainID: 1337,
		},
		Watcher: Watcher{
			SyncInterval:    2 * time.Second,
			PollInterval:    time.Second,
			ChunkSize:       200,
			EventQueueDepth: 1024,
			CallTimeout:     10 * time.Second,
		},
		Store: Store{
			Backend: "sqlite",
			Path:    "data/orders.db",
		},
		API: API{
			ListenAddr:     ":8008",
			AllowedOrigins: []string{"*"},
		},
		Logging: Logging{
			Level:        "info",
			FilePath:     "data/watcher.log",
			EventLogPath: "data/events.csv",
		},
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment
// variables. Priority: ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load() // loads .env from current directory
	}

	if v := os.Getenv("RPC_URL"); v != "" {
		cfg.Chain.RPCURL = v
	}
	if v := os.Getenv("CHAIN_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Chain.ChainID = id
		}
	}
	if v := os.Getenv("EXCHANGE_PROXY"); v != "" {
		cfg.Chain.ExchangeProxy = v
	}

	if ms, ok := envMillis("SYNC_INTERVAL"); ok {
		cfg.Watcher.SyncInterval = ms
	}
	if ms, ok := envMillis("POLLING_INTERVAL"); ok {
		cfg.Watcher.PollInterval = ms
	}
	if v := os.Getenv("CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Watcher.ChunkSize = n
		}
	}
	if v := os.Getenv("EVENT_QUEUE_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Watcher.EventQueueDepth = n
		}
	}
	if ms, ok := envMillis("CALL_TIMEOUT_MS"); ok {
		cfg.Watcher.CallTimeout = ms
	}

	if v := os.Getenv("STORE_BACKEND"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}

	if v := os.Getenv("PORT"); v != "" {
		cfg.API.ListenAddr = ":" + v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.API.ListenAddr = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.Logging.FilePath = v
	}
	if v := os.Getenv("LOG_PATH"); v != "" {
		cfg.Logging.EventLogPath = v
	}

	return cfg
}

func envMillis(key string) (time.Duration, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms <= 0 {
		return 0, false
	}
	return time.Duration(ms) * time.Millisecond, true
}

// Validate catches startup-time misconfiguration. Failures here are fatal;
// the watcher must not start against a half-configured chain.
func (c Config) Validate() error {
	if c.Chain.RPCURL == "" {
		return fmt.Errorf("config: RPC_URL is required")
	}
	if c.Chain.ChainID <= 0 {
		return fmt.Errorf("config: invalid chain id %d", c.Chain.ChainID)
	}
	if !common.IsHexAddress(c.Chain.ExchangeProxy) {
		return fmt.Errorf("config: invalid exchange proxy address %q", c.Chain.ExchangeProxy)
	}
	if c.Watcher.ChunkSize <= 0 {
		return fmt.Errorf("config: chunk size must be positive, got %d", c.Watcher.ChunkSize)
	}
	switch c.Store.Backend {
	case "sqlite", "pebble":
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}
	return nil
}
