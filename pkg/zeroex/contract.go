package zeroex

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Subset of the NativeOrdersFeature ABI the watcher needs: the batched
// relevant-states view and the two order lifecycle events. Event layouts
// match INativeOrdersEvents (no indexed parameters).
const nativeOrdersABIJSON = `[
  {
    "type": "function",
    "name": "batchGetLimitOrderRelevantStates",
    "stateMutability": "view",
    "inputs": [
      {
        "name": "orders",
        "type": "tuple[]",
        "components": [
          {"name": "makerToken", "type": "address"},
          {"name": "takerToken", "type": "address"},
          {"name": "makerAmount", "type": "uint128"},
          {"name": "takerAmount", "type": "uint128"},
          {"name": "takerTokenFeeAmount", "type": "uint128"},
          {"name": "maker", "type": "address"},
          {"name": "taker", "type": "address"},
          {"name": "sender", "type": "address"},
          {"name": "feeRecipient", "type": "address"},
          {"name": "pool", "type": "bytes32"},
          {"name": "expiry", "type": "uint64"},
          {"name": "salt", "type": "uint256"}
        ]
      },
      {
        "name": "signatures",
        "type": "tuple[]",
        "components": [
          {"name": "signatureType", "type": "uint8"},
          {"name": "v", "type": "uint8"},
          {"name": "r", "type": "bytes32"},
          {"name": "s", "type": "bytes32"}
        ]
      }
    ],
    "outputs": [
      {
        "name": "orderInfos",
        "type": "tuple[]",
        "components": [
          {"name": "orderHash", "type": "bytes32"},
          {"name": "status", "type": "uint8"},
          {"name": "takerTokenFilledAmount", "type": "uint128"}
        ]
      },
      {"name": "actualFillableTakerTokenAmounts", "type": "uint128[]"},
      {"name": "isSignatureValids", "type": "bool[]"}
    ]
  },
  {
    "type": "event",
    "name": "LimitOrderFilled",
    "inputs": [
      {"name": "orderHash", "type": "bytes32", "indexed": false},
      {"name": "maker", "type": "address", "indexed": false},
      {"name": "taker", "type": "address", "indexed": false},
      {"name": "feeRecipient", "type": "address", "indexed": false},
      {"name": "makerToken", "type": "address", "indexed": false},
      {"name": "takerToken", "type": "address", "indexed": false},
      {"name": "takerTokenFilledAmount", "type": "uint128", "indexed": false},
      {"name": "makerTokenFilledAmount", "type": "uint128", "indexed": false},
      {"name": "takerTokenFeeFilledAmount", "type": "uint128", "indexed": false},
      {"name": "protocolFeePaid", "type": "uint256", "indexed": false},
      {"name": "pool", "type": "bytes32", "indexed": false}
    ]
  },
  {
    "type": "event",
    "name": "OrderCancelled",
    "inputs": [
      {"name": "orderHash", "type": "bytes32", "indexed": false},
      {"name": "maker", "type": "address", "indexed": false}
    ]
  }
]`

// NativeOrdersABI is the parsed contract ABI.
var NativeOrdersABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(nativeOrdersABIJSON))
	if err != nil {
		panic(fmt.Errorf("parse native orders abi: %w", err))
	}
	return parsed
}()

// Event topic hashes, used to filter exchange proxy logs.
var (
	LimitOrderFilledTopic = NativeOrdersABI.Events["LimitOrderFilled"].ID
	OrderCancelledTopic   = NativeOrdersABI.Events["OrderCancelled"].ID
)

// LimitOrderFilledEvent mirrors the LimitOrderFilled log.
type LimitOrderFilledEvent struct {
	OrderHash                 common.Hash
	Maker                     common.Address
	Taker                     common.Address
	FeeRecipient              common.Address
	MakerToken                common.Address
	TakerToken                common.Address
	TakerTokenFilledAmount    *big.Int
	MakerTokenFilledAmount    *big.Int
	TakerTokenFeeFilledAmount *big.Int
	ProtocolFeePaid           *big.Int
	Pool                      common.Hash
}

// OrderCancelledEvent mirrors the OrderCancelled log.
type OrderCancelledEvent struct {
	OrderHash common.Hash
	Maker     common.Address
}

// ParseLimitOrderFilled decodes a LimitOrderFilled log.
func ParseLimitOrderFilled(lg types.Log) (*LimitOrderFilledEvent, error) {
	if len(lg.Topics) == 0 || lg.Topics[0] != LimitOrderFilledTopic {
		return nil, fmt.Errorf("log is not a LimitOrderFilled event")
	}
	var ev LimitOrderFilledEvent
	if err := NativeOrdersABI.UnpackIntoInterface(&ev, "LimitOrderFilled", lg.Data); err != nil {
		return nil, fmt.Errorf("unpack LimitOrderFilled: %w", err)
	}
	return &ev, nil
}

// ParseOrderCancelled decodes an OrderCancelled log.
func ParseOrderCancelled(lg types.Log) (*OrderCancelledEvent, error) {
	if len(lg.Topics) == 0 || lg.Topics[0] != OrderCancelledTopic {
		return nil, fmt.Errorf("log is not an OrderCancelled event")
	}
	var ev OrderCancelledEvent
	if err := NativeOrdersABI.UnpackIntoInterface(&ev, "OrderCancelled", lg.Data); err != nil {
		return nil, fmt.Errorf("unpack OrderCancelled: %w", err)
	}
	return &ev, nil
}
