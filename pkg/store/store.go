// Package store defines the persisted order entity and the storage contract
// the reconciliation engine drives. Implementations live in the gormstore
// (sqlite) and pebblestore (embedded KV) subpackages.
package store

import "context"

// OrderEntity is the durable form of a signed limit order: every order field
// flattened, uint128/uint256 values as canonical decimal strings, the
// signature decomposed, plus the mutable remaining fillable taker amount.
// The hash is the primary key and never changes after admission.
type OrderEntity struct {
	Hash                string `gorm:"column:hash;primaryKey" json:"hash"`
	MakerToken          string `gorm:"column:maker_token" json:"makerToken"`
	TakerToken          string `gorm:"column:taker_token" json:"takerToken"`
	MakerAmount         string `gorm:"column:maker_amount" json:"makerAmount"`
	TakerAmount         string `gorm:"column:taker_amount" json:"takerAmount"`
	TakerTokenFeeAmount string `gorm:"column:taker_token_fee_amount" json:"takerTokenFeeAmount"`
	Maker               string `gorm:"column:maker;index" json:"maker"`
	Taker               string `gorm:"column:taker" json:"taker"`
	Sender              string `gorm:"column:sender" json:"sender"`
	FeeRecipient        string `gorm:"column:fee_recipient" json:"feeRecipient"`
	Pool                string `gorm:"column:pool" json:"pool"`
	Expiry              string `gorm:"column:expiry" json:"expiry"`
	Salt                string `gorm:"column:salt" json:"salt"`
	ChainID             int64  `gorm:"column:chain_id" json:"chainId"`
	VerifyingContract   string `gorm:"column:verifying_contract" json:"verifyingContract"`
	SignatureType       uint8  `gorm:"column:signature_type" json:"signatureType"`
	SignatureV          uint8  `gorm:"column:signature_v" json:"signatureV"`
	SignatureR          string `gorm:"column:signature_r" json:"signatureR"`
	SignatureS          string `gorm:"column:signature_s" json:"signatureS"`

	RemainingFillableTakerAmount string `gorm:"column:remaining_fillable_taker_amount" json:"remainingFillableTakerAmount"`
}

func (OrderEntity) TableName() string { return "signed_orders_v4" }

// OrderStore is the persistence contract. Save is an upsert keyed by hash
// and DeleteByHashes ignores absent hashes; both are idempotent. Calls may
// arrive concurrently from the admission, event and sync paths, so
// implementations must keep row-level save/delete safe.
type OrderStore interface {
	FindByHashes(ctx context.Context, hashes []string) ([]*OrderEntity, error)
	FindAll(ctx context.Context) ([]*OrderEntity, error)
	Save(ctx context.Context, entities []*OrderEntity) error
	DeleteByHashes(ctx context.Context, hashes []string) error
	Close() error
}
