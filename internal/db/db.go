package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Keys of the values the CLI persists between runs.
const (
	KeyAccessToken = "access_token"
	KeyUser        = "user"
)

// StoredValue is one sealed key/value row.
type StoredValue struct {
	Key       string `gorm:"primaryKey"`
	Value     []byte `gorm:"not null"`
	UpdatedAt time.Time
}

// Store is the durable key/value storage behind the session.
type Store struct {
	db     *gorm.DB
	sealer *sealer
}

// Open connects to the sqlite database at path, creating it and its directory when missing,
// and loads (or generates) the sealing key at keyPath.
func Open(path, keyPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s, err := loadSealer(keyPath)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // Quiet by default
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&StoredValue{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db, sealer: s}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Get returns the value under key. ok is false when nothing is stored.
func (s *Store) Get(key string) (value string, ok bool, err error) {
	var row StoredValue
	err = s.db.Where(&StoredValue{Key: key}).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}

	plain, err := s.sealer.open(row.Value, []byte(key))
	if err != nil {
		return "", false, fmt.Errorf("failed to unseal %s: %w", key, err)
	}
	return string(plain), true, nil
}

// Set stores value under key, replacing what was there.
func (s *Store) Set(key, value string) error {
	sealed, err := s.sealer.seal([]byte(value), []byte(key))
	if err != nil {
		return fmt.Errorf("failed to seal %s: %w", key, err)
	}

	row := StoredValue{Key: key, Value: sealed, UpdatedAt: time.Now()}
	if err := s.db.Save(&row).Error; err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(key string) error {
	if err := s.db.Delete(&StoredValue{Key: key}).Error; err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Token returns the stored access token, or "" when logged out.
func (s *Store) Token() (string, error) {
	token, _, err := s.Get(KeyAccessToken)
	return token, err
}
