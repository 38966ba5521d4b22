package zeroex

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// EIP-712 domain parameters of the 0x v4 exchange proxy. The chain id and
// verifying contract come from the order itself.
const (
	eip712DomainName    = "ZeroEx"
	eip712DomainVersion = "1.0.0"
)

// OrderHash computes the EIP-712 hash of a limit order. This hash is the
// order's identity everywhere: store primary key, oracle responses, fill and
// cancel events.
func OrderHash(o *LimitOrder) (common.Hash, error) {
	typedData := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"LimitOrder": []apitypes.Type{
				{Name: "makerToken", Type: "address"},
				{Name: "takerToken", Type: "address"},
				{Name: "makerAmount", Type: "uint128"},
				{Name: "takerAmount", Type: "uint128"},
				{Name: "takerTokenFeeAmount", Type: "uint128"},
				{Name: "maker", Type: "address"},
				{Name: "taker", Type: "address"},
				{Name: "sender", Type: "address"},
				{Name: "feeRecipient", Type: "address"},
				{Name: "pool", Type: "bytes32"},
				{Name: "expiry", Type: "uint64"},
				{Name: "salt", Type: "uint256"},
			},
		},
		PrimaryType: "LimitOrder",
		Domain: apitypes.TypedDataDomain{
			Name:              eip712DomainName,
			Version:           eip712DomainVersion,
			ChainId:           (*math.HexOrDecimal256)(big.NewInt(o.ChainID)),
			VerifyingContract: o.VerifyingContract.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"makerToken":          o.MakerToken.Hex(),
			"takerToken":          o.TakerToken.Hex(),
			"makerAmount":         bigStr(o.MakerAmount),
			"takerAmount":         bigStr(o.TakerAmount),
			"takerTokenFeeAmount": bigStr(o.TakerTokenFeeAmount),
			"maker":               o.Maker.Hex(),
			"taker":               o.Taker.Hex(),
			"sender":              o.Sender.Hex(),
			"feeRecipient":        o.FeeRecipient.Hex(),
			"pool":                o.Pool.Hex(),
			"expiry":              fmt.Sprintf("%d", o.Expiry),
			"salt":                bigStr(o.Salt),
		},
	}

	domainSeparator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to hash domain: %w", err)
	}

	typedDataHash, err := typedData.HashStruct(typedData.PrimaryType, typedData.Message)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to hash message: %w", err)
	}

	// Final digest: keccak256("\x19\x01" || domainSeparator || typedDataHash)
	rawData := []byte(fmt.Sprintf("\x19\x01%s%s", string(domainSeparator), string(typedDataHash)))
	return crypto.Keccak256Hash(rawData), nil
}
