// Package events ingests LimitOrderFilled and OrderCancelled logs from the
// exchange proxy and feeds them to the reconciliation engine.
package events

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/uhyunpark/orderwatch/pkg/zeroex"
)

// Engine is the slice of the reconciliation engine the adapter drives.
type Engine interface {
	ApplyFillEvents(ctx context.Context, events []*zeroex.LimitOrderFilledEvent) error
	ApplyCancelEvents(ctx context.Context, hashes []common.Hash) error
}

// LogClient is the slice of ethclient.Client the adapter needs.
type LogClient interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

// Config for the adapter. QueueDepth bounds the task queue between the log
// poller and the engine worker; events past that are dropped with a counter
// (the periodic sync self-heals any gaps).
type Config struct {
	Exchange     common.Address
	PollInterval time.Duration
	QueueDepth   int
	CallTimeout  time.Duration
	EventLogPath string // CSV audit trail of observed events; "" disables
}

type task struct {
	fill   *zeroex.LimitOrderFilledEvent
	cancel *zeroex.OrderCancelledEvent
	block  uint64
	txHash common.Hash
}

// Adapter polls exchange proxy logs and schedules engine updates without
// blocking log delivery. Handler failures are logged, never propagated
// back to the poll loop.
type Adapter struct {
	client LogClient
	engine Engine
	cfg    Config
	log    *zap.SugaredLogger

	queue    chan task
	dropped  atomic.Uint64
	eventLog *os.File
}

func NewAdapter(client LogClient, engine Engine, cfg Config, lg *zap.SugaredLogger) *Adapter {
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = 1024
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 10 * time.Second
	}
	a := &Adapter{
		client: client,
		engine: engine,
		cfg:    cfg,
		log:    lg,
		queue:  make(chan task, cfg.QueueDepth),
	}
	if cfg.EventLogPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.EventLogPath), 0755); err == nil {
			if f, err := os.OpenFile(cfg.EventLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
				a.eventLog = f
			} else {
				lg.Warnw("event_log_open_failed", "path", cfg.EventLogPath, "err", err)
			}
		}
	}
	return a
}

// DroppedEvents reports how many decoded events were discarded because the
// queue was full.
func (a *Adapter) DroppedEvents() uint64 { return a.dropped.Load() }

// Run polls for new logs and works the queue until ctx is done.
func (a *Adapter) Run(ctx context.Context) {
	go a.work(ctx)

	var fromBlock uint64
	first := true
	a.log.Infow("event_adapter_started", "exchange", a.cfg.Exchange.Hex(), "poll_interval", a.cfg.PollInterval)
	ticker := time.NewTicker(a.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if a.eventLog != nil {
				a.eventLog.Close()
			}
			a.log.Info("event_adapter_stopped")
			return
		case <-ticker.C:
		}

		callCtx, cancel := context.WithTimeout(ctx, a.cfg.CallTimeout)
		latest, err := a.client.BlockNumber(callCtx)
		cancel()
		if err != nil {
			a.log.Errorw("block_number_failed", "err", err)
			continue
		}
		if first {
			// Start at the chain head; history is the sync loop's job.
			fromBlock = latest
			first = false
		}
		if latest+1 == fromBlock {
			// Head unchanged since the last poll; nothing new to fetch.
			continue
		}
		if latest < fromBlock {
			// Reorged below our cursor; re-read from the new head.
			fromBlock = latest
		}

		query := ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(fromBlock),
			ToBlock:   new(big.Int).SetUint64(latest),
			Addresses: []common.Address{a.cfg.Exchange},
			Topics:    [][]common.Hash{{zeroex.LimitOrderFilledTopic, zeroex.OrderCancelledTopic}},
		}
		callCtx, cancel = context.WithTimeout(ctx, a.cfg.CallTimeout)
		logs, err := a.client.FilterLogs(callCtx, query)
		cancel()
		if err != nil {
			a.log.Errorw("filter_logs_failed", "from", fromBlock, "to", latest, "err", err)
			continue
		}
		for _, lg := range logs {
			a.ingest(lg)
		}
		fromBlock = latest + 1
	}
}

// ingest decodes one log and enqueues it. A full queue drops the event:
// the next periodic sync re-validates every stored order anyway, so a
// dropped event only widens the staleness window, never corrupts state.
func (a *Adapter) ingest(lg types.Log) {
	var t task
	switch lg.Topics[0] {
	case zeroex.LimitOrderFilledTopic:
		ev, err := zeroex.ParseLimitOrderFilled(lg)
		if err != nil {
			a.log.Errorw("bad_fill_log", "tx", lg.TxHash.Hex(), "err", err)
			return
		}
		t = task{fill: ev, block: lg.BlockNumber, txHash: lg.TxHash}
		a.appendCSV("filledOrder", lg, ev.OrderHash, ev.Maker,
			ev.Taker.Hex(), ev.MakerToken.Hex(), ev.TakerToken.Hex(),
			ev.TakerTokenFilledAmount.String(), ev.MakerTokenFilledAmount.String(),
			ev.TakerTokenFeeFilledAmount.String())
	case zeroex.OrderCancelledTopic:
		ev, err := zeroex.ParseOrderCancelled(lg)
		if err != nil {
			a.log.Errorw("bad_cancel_log", "tx", lg.TxHash.Hex(), "err", err)
			return
		}
		t = task{cancel: ev, block: lg.BlockNumber, txHash: lg.TxHash}
		a.appendCSV("canceledOrder", lg, ev.OrderHash, ev.Maker)
	default:
		return
	}

	select {
	case a.queue <- t:
	default:
		a.dropped.Add(1)
		a.log.Warnw("event_queue_full", "dropped_total", a.dropped.Load(), "tx", lg.TxHash.Hex())
	}
}

func (a *Adapter) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-a.queue:
			callCtx, cancel := context.WithTimeout(ctx, a.cfg.CallTimeout)
			var err error
			switch {
			case t.fill != nil:
				a.log.Debugw("fill_event", "hash", t.fill.OrderHash.Hex(), "block", t.block)
				err = a.engine.ApplyFillEvents(callCtx, []*zeroex.LimitOrderFilledEvent{t.fill})
			case t.cancel != nil:
				a.log.Debugw("cancel_event", "hash", t.cancel.OrderHash.Hex(), "block", t.block)
				err = a.engine.ApplyCancelEvents(callCtx, []common.Hash{t.cancel.OrderHash})
			}
			cancel()
			if err != nil {
				// Swallowed on purpose: one bad event must not stop the
				// worker, and the periodic sync will retry the order.
				a.log.Errorw("event_apply_failed", "tx", t.txHash.Hex(), "err", err)
			}
		}
	}
}

func (a *Adapter) appendCSV(kind string, lg types.Log, orderHash common.Hash, maker common.Address, extra ...string) {
	if a.eventLog == nil {
		return
	}
	row := fmt.Sprintf("%s,%d,%s,%s,%s,%s",
		kind, lg.BlockNumber, time.Now().UTC().Format(time.RFC3339),
		lg.TxHash.Hex(), orderHash.Hex(), maker.Hex())
	for _, col := range extra {
		row += "," + col
	}
	if _, err := a.eventLog.WriteString(row + "\n"); err != nil {
		a.log.Errorw("event_log_write_failed", "err", err)
	}
}
