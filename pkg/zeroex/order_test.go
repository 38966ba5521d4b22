package zeroex

import (
	"encoding/json"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func sampleOrder() *SignedLimitOrder {
	return &SignedLimitOrder{
		LimitOrder: LimitOrder{
			MakerToken:          common.HexToAddress("0x0b1ba0af832d7c05fd64161e0db78e85978e8082"),
			TakerToken:          common.HexToAddress("0x871dd7c2b4b25e1aa18728e9d5f2af4c4e431f5c"),
			MakerAmount:         big.NewInt(100000000000000000),
			TakerAmount:         big.NewInt(42),
			TakerTokenFeeAmount: big.NewInt(0),
			Maker:               common.HexToAddress("0x6ecbe1db9ef729cbe972c83fb886247691fb6beb"),
			Taker:               common.HexToAddress("0x0000000000000000000000000000000000000000"),
			Sender:              common.HexToAddress("0x0000000000000000000000000000000000000000"),
			FeeRecipient:        common.HexToAddress("0xa258b39954cef5cb142fd567a46cddb31a670124"),
			Pool:                common.HexToHash("0x0000000000000000000000000000000000000000000000000000000000000017"),
			Expiry:              1740000000,
			Salt:                big.NewInt(1548619145450),
			ChainID:             1337,
			VerifyingContract:   common.HexToAddress("0x5315e44798395d4a952530d131249fE00f554565"),
		},
		Signature: Signature{
			SignatureType: SignatureTypeEIP712,
			V:             28,
			R:             common.HexToHash("0x01"),
			S:             common.HexToHash("0x02"),
		},
	}
}

func TestSignedOrderJSONRoundTrip(t *testing.T) {
	o := sampleOrder()
	data, err := json.Marshal(o)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var back SignedLimitOrder
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	h1, err := OrderHash(&o.LimitOrder)
	if err != nil {
		t.Fatalf("hash original: %v", err)
	}
	h2, err := OrderHash(&back.LimitOrder)
	if err != nil {
		t.Fatalf("hash round-tripped: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("round trip changed order hash: %s vs %s", h1.Hex(), h2.Hex())
	}
	if back.Signature != o.Signature {
		t.Errorf("signature round trip: got %+v, want %+v", back.Signature, o.Signature)
	}
}

func TestSignedOrderJSONWireShape(t *testing.T) {
	data, err := json.Marshal(sampleOrder())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	// Amounts travel as decimal strings, never JSON numbers.
	for _, want := range []string{`"takerAmount":"42"`, `"makerAmount":"100000000000000000"`, `"expiry":"1740000000"`, `"chainId":1337`} {
		if !strings.Contains(s, want) {
			t.Errorf("wire JSON missing %s: %s", want, s)
		}
	}
}

func TestSignedOrderUnmarshalRejectsBadInput(t *testing.T) {
	good, err := json.Marshal(sampleOrder())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	cases := []struct {
		name  string
		field string
		value string
	}{
		{"bad maker address", "maker", "0xzz"},
		{"non numeric amount", "takerAmount", "forty-two"},
		{"negative amount", "takerAmount", "-1"},
		{"expiry overflow", "expiry", "18446744073709551616"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var wire map[string]any
			if err := json.Unmarshal(good, &wire); err != nil {
				t.Fatalf("decode wire: %v", err)
			}
			wire[tc.field] = tc.value
			mutated, err := json.Marshal(wire)
			if err != nil {
				t.Fatalf("re-encode wire: %v", err)
			}
			var o SignedLimitOrder
			if err := json.Unmarshal(mutated, &o); err == nil {
				t.Error("expected unmarshal error")
			}
		})
	}
}

func TestOrderStatusString(t *testing.T) {
	cases := map[OrderStatus]string{
		StatusInvalid:   "INVALID",
		StatusFillable:  "FILLABLE",
		StatusFilled:    "FILLED",
		StatusCancelled: "CANCELLED",
		StatusExpired:   "EXPIRED",
		OrderStatus(9):  "OrderStatus(9)",
	}
	for status, want := range cases {
		if got := status.String(); got != want {
			t.Errorf("OrderStatus(%d).String() = %s, want %s", uint8(status), got, want)
		}
	}
}
