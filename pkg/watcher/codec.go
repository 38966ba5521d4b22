package watcher

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/orderwatch/pkg/store"
	"github.com/uhyunpark/orderwatch/pkg/zeroex"
)

// DecodeError reports a stored entity that cannot be turned back into a
// signed order. Fatal to that single order only.
type DecodeError struct {
	Hash  string
	Field string
	Value string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode order %s: field %s has malformed value %q", e.Hash, e.Field, e.Value)
}

// ToEntity flattens a signed order into its persisted form. Pure mapping;
// hash and remaining fillable amount are injected metadata from the oracle.
func ToEntity(o *zeroex.SignedLimitOrder, hash common.Hash, remainingFillableTakerAmount *big.Int) *store.OrderEntity {
	return &store.OrderEntity{
		Hash:                hash.Hex(),
		MakerToken:          o.MakerToken.Hex(),
		TakerToken:          o.TakerToken.Hex(),
		MakerAmount:         o.MakerAmount.String(),
		TakerAmount:         o.TakerAmount.String(),
		TakerTokenFeeAmount: o.TakerTokenFeeAmount.String(),
		Maker:               o.Maker.Hex(),
		Taker:               o.Taker.Hex(),
		Sender:              o.Sender.Hex(),
		FeeRecipient:        o.FeeRecipient.Hex(),
		Pool:                o.Pool.Hex(),
		Expiry:              fmt.Sprintf("%d", o.Expiry),
		Salt:                o.Salt.String(),
		ChainID:             o.ChainID,
		VerifyingContract:   o.VerifyingContract.Hex(),
		SignatureType:       o.Signature.SignatureType,
		SignatureV:          o.Signature.V,
		SignatureR:          o.Signature.R.Hex(),
		SignatureS:          o.Signature.S.Hex(),

		RemainingFillableTakerAmount: remainingFillableTakerAmount.String(),
	}
}

// ToSignedOrder is the inverse mapping. Malformed numeric strings or
// addresses yield a *DecodeError.
func ToSignedOrder(ent *store.OrderEntity) (*zeroex.SignedLimitOrder, error) {
	makerAmount, err := decodeAmount(ent, "maker_amount", ent.MakerAmount)
	if err != nil {
		return nil, err
	}
	takerAmount, err := decodeAmount(ent, "taker_amount", ent.TakerAmount)
	if err != nil {
		return nil, err
	}
	feeAmount, err := decodeAmount(ent, "taker_token_fee_amount", ent.TakerTokenFeeAmount)
	if err != nil {
		return nil, err
	}
	salt, err := decodeAmount(ent, "salt", ent.Salt)
	if err != nil {
		return nil, err
	}
	expiry, err := decodeAmount(ent, "expiry", ent.Expiry)
	if err != nil {
		return nil, err
	}
	if !expiry.IsUint64() {
		return nil, &DecodeError{Hash: ent.Hash, Field: "expiry", Value: ent.Expiry}
	}
	for field, addr := range map[string]string{
		"maker_token":        ent.MakerToken,
		"taker_token":        ent.TakerToken,
		"maker":              ent.Maker,
		"taker":              ent.Taker,
		"sender":             ent.Sender,
		"fee_recipient":      ent.FeeRecipient,
		"verifying_contract": ent.VerifyingContract,
	} {
		if !common.IsHexAddress(addr) {
			return nil, &DecodeError{Hash: ent.Hash, Field: field, Value: addr}
		}
	}

	return &zeroex.SignedLimitOrder{
		LimitOrder: zeroex.LimitOrder{
			MakerToken:          common.HexToAddress(ent.MakerToken),
			TakerToken:          common.HexToAddress(ent.TakerToken),
			MakerAmount:         makerAmount,
			TakerAmount:         takerAmount,
			TakerTokenFeeAmount: feeAmount,
			Maker:               common.HexToAddress(ent.Maker),
			Taker:               common.HexToAddress(ent.Taker),
			Sender:              common.HexToAddress(ent.Sender),
			FeeRecipient:        common.HexToAddress(ent.FeeRecipient),
			Pool:                common.HexToHash(ent.Pool),
			Expiry:              expiry.Uint64(),
			Salt:                salt,
			ChainID:             ent.ChainID,
			VerifyingContract:   common.HexToAddress(ent.VerifyingContract),
		},
		Signature: zeroex.Signature{
			SignatureType: ent.SignatureType,
			V:             ent.SignatureV,
			R:             common.HexToHash(ent.SignatureR),
			S:             common.HexToHash(ent.SignatureS),
		},
	}, nil
}

func decodeAmount(ent *store.OrderEntity, field, value string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok || v.Sign() < 0 {
		return nil, &DecodeError{Hash: ent.Hash, Field: field, Value: value}
	}
	return v, nil
}
