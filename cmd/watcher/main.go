package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/uhyunpark/orderwatch/params"
	"github.com/uhyunpark/orderwatch/pkg/api"
	"github.com/uhyunpark/orderwatch/pkg/events"
	"github.com/uhyunpark/orderwatch/pkg/oracle"
	"github.com/uhyunpark/orderwatch/pkg/store"
	"github.com/uhyunpark/orderwatch/pkg/store/gormstore"
	"github.com/uhyunpark/orderwatch/pkg/store/pebblestore"
	"github.com/uhyunpark/orderwatch/pkg/util"
	"github.com/uhyunpark/orderwatch/pkg/watcher"
)

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("")

	logger, err := util.NewLoggerWithFile(cfg.Logging.FilePath, cfg.Logging.Level)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	if err := cfg.Validate(); err != nil {
		sugar.Fatalw("invalid_config", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Chain ----
	client, err := ethclient.DialContext(ctx, cfg.Chain.RPCURL)
	if err != nil {
		sugar.Fatalw("rpc_dial_failed", "url", cfg.Chain.RPCURL, "err", err)
	}
	defer client.Close()

	exchange := common.HexToAddress(cfg.Chain.ExchangeProxy)
	orc, err := oracle.NewExchangeCaller(ctx, client, exchange, cfg.Chain.ChainID, cfg.Watcher.CallTimeout)
	if err != nil {
		sugar.Fatalw("exchange_validation_failed", "exchange", exchange.Hex(), "err", err)
	}
	sugar.Infow("chain_connected", "rpc", cfg.Chain.RPCURL, "exchange", exchange.Hex(), "chain_id", cfg.Chain.ChainID)

	// ---- Store ----
	var st store.OrderStore
	switch cfg.Store.Backend {
	case "pebble":
		st, err = pebblestore.New(cfg.Store.Path)
	default:
		st, err = gormstore.New(cfg.Store.Path)
	}
	if err != nil {
		sugar.Fatalw("store_open_failed", "backend", cfg.Store.Backend, "path", cfg.Store.Path, "err", err)
	}
	defer st.Close()
	sugar.Infow("store_opened", "backend", cfg.Store.Backend, "path", cfg.Store.Path)

	// ---- Reconciliation engine ----
	w := watcher.New(st, orc, cfg.Watcher.ChunkSize, sugar)

	// ---- API server ----
	// Constructed first: NewServer registers the engine's mutation listener,
	// which must happen before any engine goroutine starts.
	server := api.NewServer(w, st, cfg.API.AllowedOrigins, sugar)

	// ---- Event ingestion ----
	adapter := events.NewAdapter(client, w, events.Config{
		Exchange:     exchange,
		PollInterval: cfg.Watcher.PollInterval,
		QueueDepth:   cfg.Watcher.EventQueueDepth,
		CallTimeout:  cfg.Watcher.CallTimeout,
		EventLogPath: cfg.Logging.EventLogPath,
	}, sugar)
	go adapter.Run(ctx)

	// ---- Periodic sync ----
	syncer := watcher.NewSyncer(w, cfg.Watcher.SyncInterval, util.RealClock{}, sugar)
	go syncer.Run(ctx)

	go func() {
		if err := server.Start(cfg.API.ListenAddr); err != nil {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}()

	sugar.Infow("order_watcher_ready",
		"sync_interval", cfg.Watcher.SyncInterval,
		"poll_interval", cfg.Watcher.PollInterval,
		"chunk_size", cfg.Watcher.ChunkSize)

	<-ctx.Done()
	sugar.Info("shutting_down")
}
