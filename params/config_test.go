package params

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	if cfg.Watcher.ChunkSize != 200 {
		t.Errorf("chunk size = %d, want 200", cfg.Watcher.ChunkSize)
	}
	if cfg.Watcher.SyncInterval != 2*time.Second {
		t.Errorf("sync interval = %s, want 2s", cfg.Watcher.SyncInterval)
	}
	if cfg.Store.Backend != "sqlite" {
		t.Errorf("store backend = %s, want sqlite", cfg.Store.Backend)
	}
	if cfg.API.ListenAddr != ":8008" {
		t.Errorf("listen addr = %s, want :8008", cfg.API.ListenAddr)
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("RPC_URL", "http://node:8545")
	t.Setenv("CHAIN_ID", "31337")
	t.Setenv("EXCHANGE_PROXY", "0x5315e44798395d4A952530d131249fE00f554565")
	t.Setenv("SYNC_INTERVAL", "500")
	t.Setenv("CHUNK_SIZE", "50")
	t.Setenv("STORE_BACKEND", "pebble")
	t.Setenv("PORT", "9000")

	cfg := LoadFromEnv("")
	if cfg.Chain.RPCURL != "http://node:8545" {
		t.Errorf("rpc url = %s", cfg.Chain.RPCURL)
	}
	if cfg.Chain.ChainID != 31337 {
		t.Errorf("chain id = %d", cfg.Chain.ChainID)
	}
	if cfg.Watcher.SyncInterval != 500*time.Millisecond {
		t.Errorf("sync interval = %s, want 500ms", cfg.Watcher.SyncInterval)
	}
	if cfg.Watcher.ChunkSize != 50 {
		t.Errorf("chunk size = %d, want 50", cfg.Watcher.ChunkSize)
	}
	if cfg.Store.Backend != "pebble" {
		t.Errorf("store backend = %s, want pebble", cfg.Store.Backend)
	}
	if cfg.API.ListenAddr != ":9000" {
		t.Errorf("listen addr = %s, want :9000", cfg.API.ListenAddr)
	}
}

func TestLoadFromEnvIgnoresGarbageNumbers(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "banana")
	t.Setenv("SYNC_INTERVAL", "-5")

	cfg := LoadFromEnv("")
	if cfg.Watcher.ChunkSize != 200 {
		t.Errorf("chunk size = %d, want default 200", cfg.Watcher.ChunkSize)
	}
	if cfg.Watcher.SyncInterval != 2*time.Second {
		t.Errorf("sync interval = %s, want default 2s", cfg.Watcher.SyncInterval)
	}
}

func TestValidate(t *testing.T) {
	valid := Default()
	valid.Chain.ExchangeProxy = "0x5315e44798395d4A952530d131249fE00f554565"
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := []struct {
		name string
		mut  func(*Config)
	}{
		{"missing rpc url", func(c *Config) { c.Chain.RPCURL = "" }},
		{"zero chain id", func(c *Config) { c.Chain.ChainID = 0 }},
		{"bad exchange address", func(c *Config) { c.Chain.ExchangeProxy = "not-an-address" }},
		{"missing exchange address", func(c *Config) { c.Chain.ExchangeProxy = "" }},
		{"zero chunk size", func(c *Config) { c.Watcher.ChunkSize = 0 }},
		{"unknown backend", func(c *Config) { c.Store.Backend = "leveldb" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mut(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
