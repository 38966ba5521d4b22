// Package oracle exposes on-chain order fillability as a batched query
// against the 0x exchange proxy.
package oracle

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/orderwatch/pkg/zeroex"
)

// OrderInfo is one entry of the relevant-states response.
type OrderInfo struct {
	OrderHash              common.Hash
	Status                 zeroex.OrderStatus
	TakerTokenFilledAmount *big.Int
}

// BatchOrderStates is the typed relevant-states response. All three slices
// are positionally aligned with the queried orders; Validate enforces that
// before anything downstream touches the data.
type BatchOrderStates struct {
	Infos                           []OrderInfo
	ActualFillableTakerTokenAmounts []*big.Int
	SignatureValid                  []bool
}

// Validate checks alignment against the queried order count.
func (b *BatchOrderStates) Validate(n int) error {
	if len(b.Infos) != n || len(b.ActualFillableTakerTokenAmounts) != n || len(b.SignatureValid) != n {
		return &CallError{
			Op: "validate response",
			Err: fmt.Errorf("misaligned response: %d orders, %d infos, %d amounts, %d signature flags",
				n, len(b.Infos), len(b.ActualFillableTakerTokenAmounts), len(b.SignatureValid)),
		}
	}
	for i := range b.Infos {
		if b.Infos[i].TakerTokenFilledAmount == nil || b.ActualFillableTakerTokenAmounts[i] == nil {
			return &CallError{
				Op:  "validate response",
				Err: fmt.Errorf("nil amount at position %d", i),
			}
		}
	}
	return nil
}

// Oracle answers batched fillability queries. One call is one RPC round
// trip; callers must keep batches within the configured chunk size or the
// node may refuse the request outright.
type Oracle interface {
	RelevantStates(ctx context.Context, orders []zeroex.LimitOrder, sigs []zeroex.Signature) (*BatchOrderStates, error)
}

// CallError wraps an oracle RPC failure, timeout or malformed response.
// Recoverable at chunk granularity: the next sync cycle retries the
// affected orders.
type CallError struct {
	Op  string
	Err error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("oracle: %s: %v", e.Op, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }
