package oracle

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/orderwatch/pkg/zeroex"
)

// ChainReader is the slice of ethclient.Client the oracle needs.
type ChainReader interface {
	ChainID(ctx context.Context) (*big.Int, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// abiLimitOrder matches the LibNativeOrder.LimitOrder tuple layout for ABI
// packing. Field names must line up with the ABI component names.
type abiLimitOrder struct {
	MakerToken          common.Address
	TakerToken          common.Address
	MakerAmount         *big.Int
	TakerAmount         *big.Int
	TakerTokenFeeAmount *big.Int
	Maker               common.Address
	Taker               common.Address
	Sender              common.Address
	FeeRecipient        common.Address
	Pool                [32]byte
	Expiry              uint64
	Salt                *big.Int
}

type abiSignature struct {
	SignatureType uint8
	V             uint8
	R             [32]byte
	S             [32]byte
}

type abiOrderInfo struct {
	OrderHash              [32]byte
	Status                 uint8
	TakerTokenFilledAmount *big.Int
}

// ExchangeCaller implements Oracle against a deployed exchange proxy.
type ExchangeCaller struct {
	client      ChainReader
	exchange    common.Address
	callTimeout time.Duration
}

// NewExchangeCaller validates the deployment (chain id matches, code is
// present at the exchange address) and returns a caller. Validation
// failures are fatal configuration errors, not oracle errors.
func NewExchangeCaller(ctx context.Context, client ChainReader, exchange common.Address, chainID int64, callTimeout time.Duration) (*ExchangeCaller, error) {
	gotChainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("query chain id: %w", err)
	}
	if gotChainID.Int64() != chainID {
		return nil, fmt.Errorf("invalid chain id: configured %d, node reports %d", chainID, gotChainID)
	}
	code, err := client.CodeAt(ctx, exchange, nil)
	if err != nil {
		return nil, fmt.Errorf("query exchange code: %w", err)
	}
	if len(code) == 0 {
		return nil, fmt.Errorf("exchange proxy not deployed at %s", exchange.Hex())
	}
	return &ExchangeCaller{client: client, exchange: exchange, callTimeout: callTimeout}, nil
}

// RelevantStates performs one batchGetLimitOrderRelevantStates round trip.
// The caller is responsible for keeping len(orders) within the chunk limit.
func (c *ExchangeCaller) RelevantStates(ctx context.Context, orders []zeroex.LimitOrder, sigs []zeroex.Signature) (*BatchOrderStates, error) {
	if len(orders) != len(sigs) {
		return nil, &CallError{Op: "pack request", Err: fmt.Errorf("%d orders but %d signatures", len(orders), len(sigs))}
	}

	ordersArg := make([]abiLimitOrder, len(orders))
	sigsArg := make([]abiSignature, len(sigs))
	for i := range orders {
		o := &orders[i]
		ordersArg[i] = abiLimitOrder{
			MakerToken:          o.MakerToken,
			TakerToken:          o.TakerToken,
			MakerAmount:         o.MakerAmount,
			TakerAmount:         o.TakerAmount,
			TakerTokenFeeAmount: o.TakerTokenFeeAmount,
			Maker:               o.Maker,
			Taker:               o.Taker,
			Sender:              o.Sender,
			FeeRecipient:        o.FeeRecipient,
			Pool:                o.Pool,
			Expiry:              o.Expiry,
			Salt:                o.Salt,
		}
		sigsArg[i] = abiSignature{
			SignatureType: sigs[i].SignatureType,
			V:             sigs[i].V,
			R:             sigs[i].R,
			S:             sigs[i].S,
		}
	}

	input, err := zeroex.NativeOrdersABI.Pack("batchGetLimitOrderRelevantStates", ordersArg, sigsArg)
	if err != nil {
		return nil, &CallError{Op: "pack request", Err: err}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	ret, err := c.client.CallContract(callCtx, ethereum.CallMsg{To: &c.exchange, Data: input}, nil)
	if err != nil {
		return nil, &CallError{Op: "call batchGetLimitOrderRelevantStates", Err: err}
	}

	out, err := zeroex.NativeOrdersABI.Unpack("batchGetLimitOrderRelevantStates", ret)
	if err != nil {
		return nil, &CallError{Op: "unpack response", Err: err}
	}
	if len(out) != 3 {
		return nil, &CallError{Op: "unpack response", Err: fmt.Errorf("expected 3 outputs, got %d", len(out))}
	}

	rawInfos := *abi.ConvertType(out[0], new([]abiOrderInfo)).(*[]abiOrderInfo)
	amounts := *abi.ConvertType(out[1], new([]*big.Int)).(*[]*big.Int)
	sigValid := *abi.ConvertType(out[2], new([]bool)).(*[]bool)

	states := &BatchOrderStates{
		Infos:                           make([]OrderInfo, len(rawInfos)),
		ActualFillableTakerTokenAmounts: amounts,
		SignatureValid:                  sigValid,
	}
	for i, info := range rawInfos {
		states.Infos[i] = OrderInfo{
			OrderHash:              info.OrderHash,
			Status:                 zeroex.OrderStatus(info.Status),
			TakerTokenFilledAmount: info.TakerTokenFilledAmount,
		}
	}
	if err := states.Validate(len(orders)); err != nil {
		return nil, err
	}
	return states, nil
}

var _ Oracle = (*ExchangeCaller)(nil)
