package oracle

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/orderwatch/pkg/zeroex"
)

var (
	testExchange = common.HexToAddress("0x5315e44798395d4a952530d131249fE00f554565")
	testChainID  = int64(1337)
)

type fakeChainReader struct {
	chainID  *big.Int
	code     []byte
	response []byte
	callErr  error

	lastCall ethereum.CallMsg
}

func (f *fakeChainReader) ChainID(ctx context.Context) (*big.Int, error) {
	return f.chainID, nil
}

func (f *fakeChainReader) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	return f.code, nil
}

func (f *fakeChainReader) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	f.lastCall = call
	if f.callErr != nil {
		return nil, f.callErr
	}
	return f.response, nil
}

func healthyReader() *fakeChainReader {
	return &fakeChainReader{chainID: big.NewInt(testChainID), code: []byte{0x60, 0x80}}
}

// packedResponse builds the raw return data of one
// batchGetLimitOrderRelevantStates call.
func packedResponse(t *testing.T, infos []struct {
	OrderHash              [32]byte
	Status                 uint8
	TakerTokenFilledAmount *big.Int
}, amounts []*big.Int, valid []bool) []byte {
	t.Helper()
	data, err := zeroex.NativeOrdersABI.Methods["batchGetLimitOrderRelevantStates"].Outputs.Pack(infos, amounts, valid)
	if err != nil {
		t.Fatalf("pack response: %v", err)
	}
	return data
}

func testOrderAndSig() (zeroex.LimitOrder, zeroex.Signature) {
	order := zeroex.LimitOrder{
		MakerToken:          common.HexToAddress("0x0b1ba0af832d7c05fd64161e0db78e85978e8082"),
		TakerToken:          common.HexToAddress("0x871dd7c2b4b25e1aa18728e9d5f2af4c4e431f5c"),
		MakerAmount:         big.NewInt(1000),
		TakerAmount:         big.NewInt(500),
		TakerTokenFeeAmount: big.NewInt(0),
		Maker:               common.HexToAddress("0x6ecbe1db9ef729cbe972c83fb886247691fb6beb"),
		Pool:                common.HexToHash("0x17"),
		Expiry:              1740000000,
		Salt:                big.NewInt(99),
		ChainID:             testChainID,
		VerifyingContract:   testExchange,
	}
	sig := zeroex.Signature{
		SignatureType: zeroex.SignatureTypeEIP712,
		V:             27,
		R:             common.HexToHash("0x01"),
		S:             common.HexToHash("0x02"),
	}
	return order, sig
}

func TestNewExchangeCallerRejectsChainIDMismatch(t *testing.T) {
	reader := healthyReader()
	reader.chainID = big.NewInt(1)
	if _, err := NewExchangeCaller(context.Background(), reader, testExchange, testChainID, time.Second); err == nil {
		t.Fatal("expected chain id mismatch error")
	}
}

func TestNewExchangeCallerRejectsUndeployedExchange(t *testing.T) {
	reader := healthyReader()
	reader.code = nil
	if _, err := NewExchangeCaller(context.Background(), reader, testExchange, testChainID, time.Second); err == nil {
		t.Fatal("expected missing code error")
	}
}

func TestRelevantStatesRoundTrip(t *testing.T) {
	order, sig := testOrderAndSig()
	orderHash, err := zeroex.OrderHash(&order)
	if err != nil {
		t.Fatalf("hash order: %v", err)
	}

	reader := healthyReader()
	reader.response = packedResponse(t,
		[]struct {
			OrderHash              [32]byte
			Status                 uint8
			TakerTokenFilledAmount *big.Int
		}{{OrderHash: orderHash, Status: uint8(zeroex.StatusFillable), TakerTokenFilledAmount: big.NewInt(100)}},
		[]*big.Int{big.NewInt(400)},
		[]bool{true},
	)

	caller, err := NewExchangeCaller(context.Background(), reader, testExchange, testChainID, time.Second)
	if err != nil {
		t.Fatalf("NewExchangeCaller: %v", err)
	}
	states, err := caller.RelevantStates(context.Background(), []zeroex.LimitOrder{order}, []zeroex.Signature{sig})
	if err != nil {
		t.Fatalf("RelevantStates: %v", err)
	}

	if *reader.lastCall.To != testExchange {
		t.Errorf("call target = %s, want %s", reader.lastCall.To.Hex(), testExchange.Hex())
	}
	wantSelector := zeroex.NativeOrdersABI.Methods["batchGetLimitOrderRelevantStates"].ID
	if !bytes.Equal(reader.lastCall.Data[:4], wantSelector) {
		t.Errorf("call selector = %x, want %x", reader.lastCall.Data[:4], wantSelector)
	}

	if len(states.Infos) != 1 {
		t.Fatalf("infos = %d, want 1", len(states.Infos))
	}
	info := states.Infos[0]
	if info.OrderHash != orderHash {
		t.Errorf("order hash = %s, want %s", info.OrderHash.Hex(), orderHash.Hex())
	}
	if info.Status != zeroex.StatusFillable {
		t.Errorf("status = %s, want FILLABLE", info.Status)
	}
	if info.TakerTokenFilledAmount.Cmp(big.NewInt(100)) != 0 {
		t.Errorf("filled = %s, want 100", info.TakerTokenFilledAmount)
	}
	if states.ActualFillableTakerTokenAmounts[0].Cmp(big.NewInt(400)) != 0 {
		t.Errorf("fillable = %s, want 400", states.ActualFillableTakerTokenAmounts[0])
	}
	if !states.SignatureValid[0] {
		t.Error("signature reported invalid")
	}
}

func TestRelevantStatesRejectsMisalignedResponse(t *testing.T) {
	order, sig := testOrderAndSig()
	reader := healthyReader()
	// Two infos for one queried order.
	reader.response = packedResponse(t,
		[]struct {
			OrderHash              [32]byte
			Status                 uint8
			TakerTokenFilledAmount *big.Int
		}{
			{Status: uint8(zeroex.StatusFillable), TakerTokenFilledAmount: big.NewInt(0)},
			{Status: uint8(zeroex.StatusFillable), TakerTokenFilledAmount: big.NewInt(0)},
		},
		[]*big.Int{big.NewInt(1), big.NewInt(1)},
		[]bool{true, true},
	)

	caller, err := NewExchangeCaller(context.Background(), reader, testExchange, testChainID, time.Second)
	if err != nil {
		t.Fatalf("NewExchangeCaller: %v", err)
	}
	_, err = caller.RelevantStates(context.Background(), []zeroex.LimitOrder{order}, []zeroex.Signature{sig})
	var callErr *CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("expected CallError, got %v", err)
	}
}

func TestRelevantStatesWrapsRPCFailure(t *testing.T) {
	order, sig := testOrderAndSig()
	reader := healthyReader()
	sentinel := errors.New("connection refused")
	reader.callErr = sentinel

	caller, err := NewExchangeCaller(context.Background(), reader, testExchange, testChainID, time.Second)
	if err != nil {
		t.Fatalf("NewExchangeCaller: %v", err)
	}
	_, err = caller.RelevantStates(context.Background(), []zeroex.LimitOrder{order}, []zeroex.Signature{sig})
	var callErr *CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("expected CallError, got %v", err)
	}
	if !errors.Is(err, sentinel) {
		t.Error("CallError does not unwrap to the RPC error")
	}
}

func TestRelevantStatesRejectsLengthMismatch(t *testing.T) {
	order, _ := testOrderAndSig()
	caller, err := NewExchangeCaller(context.Background(), healthyReader(), testExchange, testChainID, time.Second)
	if err != nil {
		t.Fatalf("NewExchangeCaller: %v", err)
	}
	if _, err := caller.RelevantStates(context.Background(), []zeroex.LimitOrder{order}, nil); err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestBatchOrderStatesValidate(t *testing.T) {
	good := &BatchOrderStates{
		Infos:                           []OrderInfo{{TakerTokenFilledAmount: big.NewInt(0)}},
		ActualFillableTakerTokenAmounts: []*big.Int{big.NewInt(1)},
		SignatureValid:                  []bool{true},
	}
	if err := good.Validate(1); err != nil {
		t.Errorf("Validate(1) = %v", err)
	}
	if err := good.Validate(2); err == nil {
		t.Error("Validate(2) accepted a one-entry response")
	}

	nilAmount := &BatchOrderStates{
		Infos:                           []OrderInfo{{TakerTokenFilledAmount: big.NewInt(0)}},
		ActualFillableTakerTokenAmounts: []*big.Int{nil},
		SignatureValid:                  []bool{true},
	}
	if err := nilAmount.Validate(1); err == nil {
		t.Error("Validate accepted a nil amount")
	}
}
