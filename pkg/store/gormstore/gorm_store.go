// Package gormstore persists orders in sqlite via gorm, keyed by order hash.
package gormstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/uhyunpark/orderwatch/pkg/store"
)

type Store struct {
	db *gorm.DB
}

// New opens (creating if needed) the sqlite database at path and migrates
// the order table.
func New(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: empty database path")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("gorm store: open %s: %w", path, err)
	}
	if err := db.AutoMigrate(&store.OrderEntity{}); err != nil {
		return nil, fmt.Errorf("gorm store: migrate: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: the admission, event and sync paths all write; keep the
	// pool small to limit lock contention.
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &Store{db: db}, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0755)
}

func (s *Store) FindByHashes(ctx context.Context, hashes []string) ([]*store.OrderEntity, error) {
	if len(hashes) == 0 {
		return nil, nil
	}
	var entities []*store.OrderEntity
	if err := s.db.WithContext(ctx).Where("hash IN ?", hashes).Find(&entities).Error; err != nil {
		return nil, fmt.Errorf("gorm store: find by hashes: %w", err)
	}
	return entities, nil
}

func (s *Store) FindAll(ctx context.Context) ([]*store.OrderEntity, error) {
	var entities []*store.OrderEntity
	if err := s.db.WithContext(ctx).Find(&entities).Error; err != nil {
		return nil, fmt.Errorf("gorm store: find all: %w", err)
	}
	return entities, nil
}

// Save upserts by hash: existing rows get all columns refreshed, which is
// how remaining fillable amounts are updated during reconciliation.
func (s *Store) Save(ctx context.Context, entities []*store.OrderEntity) error {
	if len(entities) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "hash"}},
			UpdateAll: true,
		}).
		Create(entities).Error
	if err != nil {
		return fmt.Errorf("gorm store: save: %w", err)
	}
	return nil
}

func (s *Store) DeleteByHashes(ctx context.Context, hashes []string) error {
	if len(hashes) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Where("hash IN ?", hashes).Delete(&store.OrderEntity{}).Error; err != nil {
		return fmt.Errorf("gorm store: delete by hashes: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ store.OrderStore = (*Store)(nil)
