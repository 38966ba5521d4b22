package zeroex

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer wraps a secp256k1 key pair for signing limit orders. Used by the
// sign-order CLI and tests; the watcher itself never signs anything.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// GenerateKey creates a new random secp256k1 key pair.
func GenerateKey() (*Signer, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return newSigner(privateKey), nil
}

// FromPrivateKeyHex creates a Signer from a hex-encoded private key
// (64 hex chars, no 0x prefix).
func FromPrivateKeyHex(hexKey string) (*Signer, error) {
	privateKey, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return newSigner(privateKey), nil
}

func newSigner(key *ecdsa.PrivateKey) *Signer {
	return &Signer{
		privateKey: key,
		address:    crypto.PubkeyToAddress(key.PublicKey),
	}
}

// Address returns the Ethereum address derived from the public key.
func (s *Signer) Address() common.Address {
	return s.address
}

// PrivateKeyHex returns the private key as hex string (WITHOUT 0x prefix)
// WARNING: Keep this secret! Never expose to users or logs
func (s *Signer) PrivateKeyHex() string {
	return fmt.Sprintf("%x", crypto.FromECDSA(s.privateKey))
}

// SignOrder hashes the order EIP-712 style, signs the digest and returns the
// decomposed signature with V in Ethereum's 27/28 convention.
func (s *Signer) SignOrder(o *LimitOrder) (Signature, error) {
	hash, err := OrderHash(o)
	if err != nil {
		return Signature{}, err
	}

	raw, err := crypto.Sign(hash.Bytes(), s.privateKey)
	if err != nil {
		return Signature{}, fmt.Errorf("failed to sign order: %w", err)
	}

	return Signature{
		SignatureType: SignatureTypeEIP712,
		V:             raw[64] + 27,
		R:             common.BytesToHash(raw[:32]),
		S:             common.BytesToHash(raw[32:64]),
	}, nil
}

// RecoverOrderSigner recovers the address that produced sig over the order's
// EIP-712 digest.
func RecoverOrderSigner(o *LimitOrder, sig Signature) (common.Address, error) {
	hash, err := OrderHash(o)
	if err != nil {
		return common.Address{}, err
	}

	raw := make([]byte, 65)
	copy(raw[:32], sig.R.Bytes())
	copy(raw[32:64], sig.S.Bytes())
	if sig.V >= 27 {
		raw[64] = sig.V - 27
	} else {
		raw[64] = sig.V
	}

	pubKeyBytes, err := crypto.Ecrecover(hash.Bytes(), raw)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key: %w", err)
	}
	pubKey, err := crypto.UnmarshalPubkey(pubKeyBytes)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to unmarshal public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pubKey), nil
}
