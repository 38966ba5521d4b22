// Package zeroex holds the 0x v4 native-order protocol types: limit orders,
// signatures, order status and the NativeOrdersFeature ABI surface the
// watcher talks to.
package zeroex

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// OrderStatus is the protocol-level order state reported by the exchange
// proxy. Values mirror LibNativeOrder.OrderStatus on-chain.
type OrderStatus uint8

const (
	StatusInvalid OrderStatus = iota
	StatusFillable
	StatusFilled
	StatusCancelled
	StatusExpired
)

func (s OrderStatus) String() string {
	switch s {
	case StatusInvalid:
		return "INVALID"
	case StatusFillable:
		return "FILLABLE"
	case StatusFilled:
		return "FILLED"
	case StatusCancelled:
		return "CANCELLED"
	case StatusExpired:
		return "EXPIRED"
	default:
		return fmt.Sprintf("OrderStatus(%d)", uint8(s))
	}
}

// Signature type constants from LibSignature.SignatureType.
const (
	SignatureTypeIllegal uint8 = iota
	SignatureTypeInvalid
	SignatureTypeEIP712
	SignatureTypeEthSign
)

// LimitOrder is a 0x v4 limit order. Field order matches the on-chain
// LibNativeOrder.LimitOrder struct; ChainID and VerifyingContract are the
// EIP-712 domain parameters the maker signed under.
type LimitOrder struct {
	MakerToken          common.Address
	TakerToken          common.Address
	MakerAmount         *big.Int // uint128
	TakerAmount         *big.Int // uint128
	TakerTokenFeeAmount *big.Int // uint128
	Maker               common.Address
	Taker               common.Address
	Sender              common.Address
	FeeRecipient        common.Address
	Pool                common.Hash // bytes32
	Expiry              uint64      // unix seconds
	Salt                *big.Int    // uint256

	ChainID           int64
	VerifyingContract common.Address
}

// Signature is a decomposed 65-byte ECDSA signature plus its 0x type tag.
type Signature struct {
	SignatureType uint8       `json:"signatureType"`
	V             uint8       `json:"v"`
	R             common.Hash `json:"r"`
	S             common.Hash `json:"s"`
}

// SignedLimitOrder is what makers submit: the order plus its signature.
type SignedLimitOrder struct {
	LimitOrder
	Signature Signature
}

// orderJSON is the SRA wire shape: camelCase keys, uint128/uint256 fields as
// decimal strings.
type orderJSON struct {
	MakerToken          string    `json:"makerToken"`
	TakerToken          string    `json:"takerToken"`
	MakerAmount         string    `json:"makerAmount"`
	TakerAmount         string    `json:"takerAmount"`
	TakerTokenFeeAmount string    `json:"takerTokenFeeAmount"`
	Maker               string    `json:"maker"`
	Taker               string    `json:"taker"`
	Sender              string    `json:"sender"`
	FeeRecipient        string    `json:"feeRecipient"`
	Pool                string    `json:"pool"`
	Expiry              string    `json:"expiry"`
	Salt                string    `json:"salt"`
	ChainID             int64     `json:"chainId"`
	VerifyingContract   string    `json:"verifyingContract"`
	Signature           Signature `json:"signature"`
}

func (o SignedLimitOrder) MarshalJSON() ([]byte, error) {
	return json.Marshal(orderJSON{
		MakerToken:          o.MakerToken.Hex(),
		TakerToken:          o.TakerToken.Hex(),
		MakerAmount:         bigStr(o.MakerAmount),
		TakerAmount:         bigStr(o.TakerAmount),
		TakerTokenFeeAmount: bigStr(o.TakerTokenFeeAmount),
		Maker:               o.Maker.Hex(),
		Taker:               o.Taker.Hex(),
		Sender:              o.Sender.Hex(),
		FeeRecipient:        o.FeeRecipient.Hex(),
		Pool:                o.Pool.Hex(),
		Expiry:              fmt.Sprintf("%d", o.Expiry),
		Salt:                bigStr(o.Salt),
		ChainID:             o.ChainID,
		VerifyingContract:   o.VerifyingContract.Hex(),
		Signature:           o.Signature,
	})
}

func (o *SignedLimitOrder) UnmarshalJSON(data []byte) error {
	var w orderJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	for name, addr := range map[string]string{
		"makerToken":        w.MakerToken,
		"takerToken":        w.TakerToken,
		"maker":             w.Maker,
		"taker":             w.Taker,
		"sender":            w.Sender,
		"feeRecipient":      w.FeeRecipient,
		"verifyingContract": w.VerifyingContract,
	} {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("order field %s: invalid address %q", name, addr)
		}
	}
	makerAmount, err := parseBig("makerAmount", w.MakerAmount)
	if err != nil {
		return err
	}
	takerAmount, err := parseBig("takerAmount", w.TakerAmount)
	if err != nil {
		return err
	}
	feeAmount, err := parseBig("takerTokenFeeAmount", w.TakerTokenFeeAmount)
	if err != nil {
		return err
	}
	salt, err := parseBig("salt", w.Salt)
	if err != nil {
		return err
	}
	expiry, ok := new(big.Int).SetString(w.Expiry, 10)
	if !ok || !expiry.IsUint64() {
		return fmt.Errorf("order field expiry: invalid value %q", w.Expiry)
	}

	o.MakerToken = common.HexToAddress(w.MakerToken)
	o.TakerToken = common.HexToAddress(w.TakerToken)
	o.MakerAmount = makerAmount
	o.TakerAmount = takerAmount
	o.TakerTokenFeeAmount = feeAmount
	o.Maker = common.HexToAddress(w.Maker)
	o.Taker = common.HexToAddress(w.Taker)
	o.Sender = common.HexToAddress(w.Sender)
	o.FeeRecipient = common.HexToAddress(w.FeeRecipient)
	o.Pool = common.HexToHash(w.Pool)
	o.Expiry = expiry.Uint64()
	o.Salt = salt
	o.ChainID = w.ChainID
	o.VerifyingContract = common.HexToAddress(w.VerifyingContract)
	o.Signature = w.Signature
	return nil
}

func bigStr(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func parseBig(field, s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("order field %s: invalid amount %q", field, s)
	}
	return v, nil
}
