package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/you/trisonapp/domain"
)

type credentialRow struct {
	Key   string `gorm:"primaryKey;column:key"`
	Value string `gorm:"column:value"`
}

func (credentialRow) TableName() string { return "credentials" }

// SQLiteStore implements domain.TokenStore on a local SQLite database,
// the persistence option for desktop and kiosk installs.
type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLiteStore opens (and migrates) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, &domain.StorageError{Op: "init", Err: err}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, &domain.StorageError{Op: "init", Err: err}
	}
	if err := db.AutoMigrate(&credentialRow{}); err != nil {
		return nil, &domain.StorageError{Op: "init", Err: err}
	}
	return &SQLiteStore{db: db}, nil
}

// Get implements domain.TokenStore
func (s *SQLiteStore) Get(ctx context.Context, key string) (string, error) {
	var row credentialRow
	err := s.db.WithContext(ctx).First(&row, "key = ?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", domain.ErrKeyNotFound
		}
		return "", &domain.StorageError{Op: "read", Err: err}
	}
	return row.Value, nil
}

// Set implements domain.TokenStore
func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	return s.SetMulti(ctx, map[string]string{key: value})
}

// SetMulti implements domain.TokenStore
func (s *SQLiteStore) SetMulti(ctx context.Context, pairs map[string]string) error {
	rows := make([]credentialRow, 0, len(pairs))
	for k, v := range pairs {
		rows = append(rows, credentialRow{Key: k, Value: v})
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&rows).Error
	if err != nil {
		return &domain.StorageError{Op: "write", Err: err}
	}
	return nil
}

// Delete implements domain.TokenStore
func (s *SQLiteStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Delete(&credentialRow{}, "key IN ?", keys).Error; err != nil {
		return &domain.StorageError{Op: "delete", Err: err}
	}
	return nil
}

// Close implements domain.TokenStore
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ domain.TokenStore = (*SQLiteStore)(nil)
