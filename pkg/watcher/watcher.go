// Package watcher contains the order reconciliation engine: it admits new
// signed orders, reacts to fill/cancel events and periodically re-validates
// the whole stored order set against on-chain state, so the mirror never
// advertises an order the chain would refuse to fill.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/uhyunpark/orderwatch/pkg/oracle"
	"github.com/uhyunpark/orderwatch/pkg/store"
	"github.com/uhyunpark/orderwatch/pkg/zeroex"
)

// DefaultChunkSize bounds one oracle batch. Larger batches risk the RPC
// node rejecting the whole request.
const DefaultChunkSize = 200

// Listener observes store mutations made by the engine. Used to feed the
// websocket order channel; nil is fine.
type Listener func(saved []*store.OrderEntity, removedHashes []string)

// Watcher is the reconciliation engine. It holds no goroutines of its own;
// the admission handler, the event adapter and the sync scheduler call into
// it concurrently and the store's row-level upsert/delete keeps that safe.
type Watcher struct {
	store     store.OrderStore
	oracle    oracle.Oracle
	chunkSize int
	log       *zap.SugaredLogger
	listener  Listener
}

func New(st store.OrderStore, orc oracle.Oracle, chunkSize int, lg *zap.SugaredLogger) *Watcher {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Watcher{store: st, oracle: orc, chunkSize: chunkSize, log: lg}
}

// SetListener registers a mutation observer. Must be called before the
// engine is shared across goroutines.
func (w *Watcher) SetListener(l Listener) { w.listener = l }

// buckets is the outcome of classifying one set of orders. Every input
// order lands in exactly one bucket; entities carry the fresh remaining
// fillable taker amount observed during classification.
type buckets struct {
	valid     []*store.OrderEntity
	invalid   []*store.OrderEntity
	cancelled []*store.OrderEntity
	expired   []*store.OrderEntity
	filled    []*store.OrderEntity
}

func (b *buckets) removals() []string {
	var hashes []string
	for _, group := range [][]*store.OrderEntity{b.invalid, b.cancelled, b.expired, b.filled} {
		for _, ent := range group {
			hashes = append(hashes, ent.Hash)
		}
	}
	return hashes
}

func (b *buckets) merge(other *buckets) {
	b.valid = append(b.valid, other.valid...)
	b.invalid = append(b.invalid, other.invalid...)
	b.cancelled = append(b.cancelled, other.cancelled...)
	b.expired = append(b.expired, other.expired...)
	b.filled = append(b.filled, other.filled...)
}

// classifyChunk queries the oracle once for up to chunkSize orders and
// sorts them into buckets. Signature invalidity dominates everything;
// otherwise the oracle's status is authoritative, except that a FILLABLE
// order with zero actual fillable amount (maker balance or allowance gone)
// is downgraded to invalid.
func (w *Watcher) classifyChunk(ctx context.Context, orders []*zeroex.SignedLimitOrder) (*buckets, error) {
	limitOrders := make([]zeroex.LimitOrder, len(orders))
	signatures := make([]zeroex.Signature, len(orders))
	for i, o := range orders {
		limitOrders[i] = o.LimitOrder
		signatures[i] = o.Signature
	}

	states, err := w.oracle.RelevantStates(ctx, limitOrders, signatures)
	if err != nil {
		return nil, err
	}

	b := &buckets{}
	for i := range orders {
		info := states.Infos[i]
		fillable := states.ActualFillableTakerTokenAmounts[i]
		ent := ToEntity(orders[i], info.OrderHash, fillable)

		if !states.SignatureValid[i] {
			b.invalid = append(b.invalid, ent)
			continue
		}
		switch info.Status {
		case zeroex.StatusExpired:
			b.expired = append(b.expired, ent)
		case zeroex.StatusCancelled:
			// Cancelled orders report a zero fillable amount by protocol
			// convention; no additional amount check.
			b.cancelled = append(b.cancelled, ent)
		case zeroex.StatusFilled:
			b.filled = append(b.filled, ent)
		case zeroex.StatusFillable:
			if fillable.Sign() > 0 {
				b.valid = append(b.valid, ent)
			} else {
				b.invalid = append(b.invalid, ent)
			}
		default:
			if info.Status != zeroex.StatusInvalid {
				w.log.Warnw("unknown_order_status", "hash", info.OrderHash.Hex(), "status", uint8(info.Status))
			}
			b.invalid = append(b.invalid, ent)
		}
	}
	return b, nil
}

// classify runs classifyChunk over the whole input, chunked. Any chunk
// failure aborts: callers that need partial progress drive chunks
// themselves (see SyncFreshOrders).
func (w *Watcher) classify(ctx context.Context, orders []*zeroex.SignedLimitOrder) (*buckets, error) {
	all := &buckets{}
	for chunk := range chunks(orders, w.chunkSize) {
		b, err := w.classifyChunk(ctx, chunk)
		if err != nil {
			return nil, err
		}
		all.merge(b)
	}
	return all, nil
}

// RejectError names the orders that made a submission non-admissible.
type RejectError struct {
	Invalid   []string
	Cancelled []string
	Expired   []string
	Filled    []string
}

func (e *RejectError) Error() string {
	var parts []string
	if len(e.Invalid) > 0 {
		parts = append(parts, fmt.Sprintf("invalid orders [%s]", strings.Join(e.Invalid, ", ")))
	}
	if len(e.Cancelled) > 0 {
		parts = append(parts, fmt.Sprintf("cancelled orders [%s]", strings.Join(e.Cancelled, ", ")))
	}
	if len(e.Expired) > 0 {
		parts = append(parts, fmt.Sprintf("expired orders [%s]", strings.Join(e.Expired, ", ")))
	}
	if len(e.Filled) > 0 {
		parts = append(parts, fmt.Sprintf("fully filled orders [%s]", strings.Join(e.Filled, ", ")))
	}
	return "order submission rejected: " + strings.Join(parts, "; ")
}

// AdmitOrders validates a submitted batch against current on-chain state
// and persists it. Fails closed: one non-fillable order rejects the whole
// batch so the submitter gets unambiguous feedback, and nothing from the
// batch is persisted.
func (w *Watcher) AdmitOrders(ctx context.Context, orders []*zeroex.SignedLimitOrder) error {
	if len(orders) == 0 {
		return nil
	}
	b, err := w.classify(ctx, orders)
	if err != nil {
		w.log.Errorw("admit_classification_failed", "err", err)
		return err
	}

	if len(b.invalid)+len(b.cancelled)+len(b.expired)+len(b.filled) > 0 {
		return &RejectError{
			Invalid:   entityHashes(b.invalid),
			Cancelled: entityHashes(b.cancelled),
			Expired:   entityHashes(b.expired),
			Filled:    entityHashes(b.filled),
		}
	}

	if err := w.store.Save(ctx, b.valid); err != nil {
		return err
	}
	w.log.Infow("orders_admitted", "count", len(b.valid), "hashes", entityHashes(b.valid))
	w.notify(b.valid, nil)
	return nil
}

// ApplyFillEvents re-validates the stored orders named by fill events.
// The engine re-queries the oracle instead of subtracting filled amounts
// locally: local arithmetic cannot observe cancellations, partial-fill
// races or allowance changes. Hashes not in the store are a no-op.
func (w *Watcher) ApplyFillEvents(ctx context.Context, events []*zeroex.LimitOrderFilledEvent) error {
	hashes := make([]string, len(events))
	for i, ev := range events {
		hashes[i] = ev.OrderHash.Hex()
	}
	return w.reconcileByHashes(ctx, hashes)
}

// ApplyCancelEvents re-validates the stored orders named by cancel events.
// Same shape as ApplyFillEvents; the oracle will report them CANCELLED.
func (w *Watcher) ApplyCancelEvents(ctx context.Context, hashes []common.Hash) error {
	hexes := make([]string, len(hashes))
	for i, h := range hashes {
		hexes[i] = h.Hex()
	}
	return w.reconcileByHashes(ctx, hexes)
}

func (w *Watcher) reconcileByHashes(ctx context.Context, hashes []string) error {
	if len(hashes) == 0 {
		return nil
	}
	entities, err := w.store.FindByHashes(ctx, hashes)
	if err != nil {
		return err
	}
	if len(entities) == 0 {
		// Never admitted or already removed. Redelivered events land here.
		return nil
	}
	return w.syncEntities(ctx, entities)
}

// SyncFreshOrders re-validates the entire stored order set in chunks.
// Chunks are independent: a failed chunk is reported but does not roll
// back or block the others, and its orders stay in their last-known state
// until the next cycle.
func (w *Watcher) SyncFreshOrders(ctx context.Context) error {
	entities, err := w.store.FindAll(ctx)
	if err != nil {
		return err
	}
	return w.syncEntities(ctx, entities)
}

func (w *Watcher) syncEntities(ctx context.Context, entities []*store.OrderEntity) error {
	var errs []error
	for chunk := range chunks(entities, w.chunkSize) {
		orders := make([]*zeroex.SignedLimitOrder, 0, len(chunk))
		for _, ent := range chunk {
			order, err := ToSignedOrder(ent)
			if err != nil {
				// A row that cannot decode cannot be re-validated; leave it
				// for operator inspection rather than guessing.
				w.log.Errorw("stored_order_undecodable", "hash", ent.Hash, "err", err)
				continue
			}
			orders = append(orders, order)
		}
		if len(orders) == 0 {
			continue
		}

		b, err := w.classifyChunk(ctx, orders)
		if err != nil {
			w.log.Errorw("sync_chunk_failed", "orders", len(orders), "err", err)
			errs = append(errs, err)
			continue
		}
		if err := w.applyBuckets(ctx, b); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// applyBuckets persists one classification outcome: valid orders are saved
// with their fresh remaining amounts, everything else is deleted.
func (w *Watcher) applyBuckets(ctx context.Context, b *buckets) error {
	if len(b.valid) > 0 {
		if err := w.store.Save(ctx, b.valid); err != nil {
			return err
		}
		w.log.Infow("orders_synced", "count", len(b.valid), "hashes", entityHashes(b.valid))
	}
	removals := b.removals()
	if len(removals) > 0 {
		if err := w.store.DeleteByHashes(ctx, removals); err != nil {
			return err
		}
		w.log.Infow("orders_removed",
			"invalid", entityHashes(b.invalid),
			"cancelled", entityHashes(b.cancelled),
			"expired", entityHashes(b.expired),
			"filled", entityHashes(b.filled))
	}
	w.notify(b.valid, removals)
	return nil
}

func (w *Watcher) notify(saved []*store.OrderEntity, removed []string) {
	if w.listener == nil || (len(saved) == 0 && len(removed) == 0) {
		return
	}
	w.listener(saved, removed)
}

func entityHashes(entities []*store.OrderEntity) []string {
	hashes := make([]string, len(entities))
	for i, ent := range entities {
		hashes[i] = ent.Hash
	}
	return hashes
}

// chunks yields s in slices of at most size elements.
func chunks[T any](s []T, size int) func(yield func([]T) bool) {
	return func(yield func([]T) bool) {
		for start := 0; start < len(s); start += size {
			end := min(start+size, len(s))
			if !yield(s[start:end]) {
				return
			}
		}
	}
}
