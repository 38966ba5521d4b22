package zeroex

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

func TestEventTopicsDistinct(t *testing.T) {
	if LimitOrderFilledTopic == (common.Hash{}) || OrderCancelledTopic == (common.Hash{}) {
		t.Fatal("event topic is zero")
	}
	if LimitOrderFilledTopic == OrderCancelledTopic {
		t.Fatal("event topics collide")
	}
}

func TestParseLimitOrderFilled(t *testing.T) {
	orderHash := common.HexToHash("0xabcdef0000000000000000000000000000000000000000000000000000000001")
	maker := common.HexToAddress("0x6ecbe1db9ef729cbe972c83fb886247691fb6beb")
	taker := common.HexToAddress("0xa258b39954cef5cb142fd567a46cddb31a670124")
	feeRecipient := common.HexToAddress("0x0000000000000000000000000000000000000000")
	makerToken := common.HexToAddress("0x0b1ba0af832d7c05fd64161e0db78e85978e8082")
	takerToken := common.HexToAddress("0x871dd7c2b4b25e1aa18728e9d5f2af4c4e431f5c")
	pool := common.HexToHash("0x17")

	data, err := NativeOrdersABI.Events["LimitOrderFilled"].Inputs.Pack(
		orderHash, maker, taker, feeRecipient, makerToken, takerToken,
		big.NewInt(300), big.NewInt(600), big.NewInt(0), big.NewInt(70000), pool,
	)
	if err != nil {
		t.Fatalf("pack event data: %v", err)
	}

	ev, err := ParseLimitOrderFilled(types.Log{
		Topics: []common.Hash{LimitOrderFilledTopic},
		Data:   data,
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ev.OrderHash != orderHash {
		t.Errorf("order hash = %s, want %s", ev.OrderHash.Hex(), orderHash.Hex())
	}
	if ev.Maker != maker || ev.Taker != taker {
		t.Errorf("parties = %s/%s, want %s/%s", ev.Maker.Hex(), ev.Taker.Hex(), maker.Hex(), taker.Hex())
	}
	if ev.TakerTokenFilledAmount.Cmp(big.NewInt(300)) != 0 {
		t.Errorf("taker filled = %s, want 300", ev.TakerTokenFilledAmount)
	}
	if ev.MakerTokenFilledAmount.Cmp(big.NewInt(600)) != 0 {
		t.Errorf("maker filled = %s, want 600", ev.MakerTokenFilledAmount)
	}
	if ev.Pool != pool {
		t.Errorf("pool = %s, want %s", ev.Pool.Hex(), pool.Hex())
	}
}

func TestParseOrderCancelled(t *testing.T) {
	orderHash := common.HexToHash("0x02")
	maker := common.HexToAddress("0x6ecbe1db9ef729cbe972c83fb886247691fb6beb")

	data, err := NativeOrdersABI.Events["OrderCancelled"].Inputs.Pack(orderHash, maker)
	if err != nil {
		t.Fatalf("pack event data: %v", err)
	}

	ev, err := ParseOrderCancelled(types.Log{
		Topics: []common.Hash{OrderCancelledTopic},
		Data:   data,
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ev.OrderHash != orderHash || ev.Maker != maker {
		t.Errorf("parsed %+v", ev)
	}
}

func TestParseRejectsWrongTopic(t *testing.T) {
	if _, err := ParseLimitOrderFilled(types.Log{Topics: []common.Hash{OrderCancelledTopic}}); err == nil {
		t.Error("LimitOrderFilled parser accepted a cancel log")
	}
	if _, err := ParseOrderCancelled(types.Log{Topics: []common.Hash{LimitOrderFilledTopic}}); err == nil {
		t.Error("OrderCancelled parser accepted a fill log")
	}
	if _, err := ParseLimitOrderFilled(types.Log{}); err == nil {
		t.Error("parser accepted a log with no topics")
	}
}
