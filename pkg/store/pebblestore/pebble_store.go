// Package pebblestore persists orders in an embedded pebble KV, keyed by
// order hash. Values are JSON-encoded entities.
package pebblestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/uhyunpark/orderwatch/pkg/store"
)

type Store struct {
	db *pebble.DB
}

func New(path string) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("pebble store: open %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// keys: o:<hash-hex>
func kOrder(hash string) []byte { return append([]byte("o:"), hash...) }

func (s *Store) FindByHashes(ctx context.Context, hashes []string) ([]*store.OrderEntity, error) {
	var entities []*store.OrderEntity
	for _, h := range hashes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		val, closer, err := s.db.Get(kOrder(h))
		if err != nil {
			if errors.Is(err, pebble.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("pebble store: get %s: %w", h, err)
		}
		var ent store.OrderEntity
		decodeErr := json.Unmarshal(val, &ent)
		closer.Close()
		if decodeErr != nil {
			return nil, fmt.Errorf("pebble store: decode %s: %w", h, decodeErr)
		}
		entities = append(entities, &ent)
	}
	return entities, nil
}

func (s *Store) FindAll(ctx context.Context) ([]*store.OrderEntity, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte("o:"),
		UpperBound: []byte("o;"), // ';' is ':'+1
	})
	if err != nil {
		return nil, fmt.Errorf("pebble store: iter: %w", err)
	}
	defer iter.Close()

	var entities []*store.OrderEntity
	for iter.First(); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var ent store.OrderEntity
		if err := json.Unmarshal(iter.Value(), &ent); err != nil {
			return nil, fmt.Errorf("pebble store: decode %s: %w", iter.Key(), err)
		}
		entities = append(entities, &ent)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("pebble store: iter: %w", err)
	}
	return entities, nil
}

func (s *Store) Save(ctx context.Context, entities []*store.OrderEntity) error {
	if len(entities) == 0 {
		return nil
	}
	batch := s.db.NewBatch()
	defer batch.Close()
	for _, ent := range entities {
		val, err := json.Marshal(ent)
		if err != nil {
			return fmt.Errorf("pebble store: encode %s: %w", ent.Hash, err)
		}
		if err := batch.Set(kOrder(ent.Hash), val, nil); err != nil {
			return fmt.Errorf("pebble store: set %s: %w", ent.Hash, err)
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("pebble store: save: %w", err)
	}
	return nil
}

func (s *Store) DeleteByHashes(ctx context.Context, hashes []string) error {
	if len(hashes) == 0 {
		return nil
	}
	batch := s.db.NewBatch()
	defer batch.Close()
	for _, h := range hashes {
		if err := batch.Delete(kOrder(h), nil); err != nil {
			return fmt.Errorf("pebble store: delete %s: %w", h, err)
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("pebble store: delete: %w", err)
	}
	return nil
}

var _ store.OrderStore = (*Store)(nil)
