package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/salessavvy-storefront/internal/repo"
	"github.com/angelmondragon/salessavvy-storefront/pkg/db"
	"github.com/angelmondragon/salessavvy-storefront/pkg/logger"
	"github.com/angelmondragon/salessavvy-storefront/pkg/migrate"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// sessionEntry is one persisted key within a namespace.
type sessionEntry struct {
	Namespace string `gorm:"primaryKey;size:128"`
	Key       string `gorm:"column:entry_key;primaryKey;size:64"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

func (sessionEntry) TableName() string {
	return "storefront_session_entries"
}

// SQLStore keeps session keys in a small table on sqlite or postgres.
type SQLStore struct {
	repo.Base
	client *db.Client
}

// NewSQLStore applies the embedded schema migrations and returns the store.
func NewSQLStore(ctx context.Context, client *db.Client, driver, namespace string, logg *logger.Logger) (*SQLStore, error) {
	if client == nil || client.DB() == nil {
		return nil, errors.New("database client is required")
	}
	if err := migrate.Ensure(ctx, client, driver, logg); err != nil {
		return nil, fmt.Errorf("migrate session entries: %w", err)
	}
	return &SQLStore{Base: repo.NewBase(client.DB(), namespace), client: client}, nil
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, bool, error) {
	var entry sessionEntry
	err := s.Scoped(ctx).Where("entry_key = ?", key).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load %s: %w", key, err)
	}
	return entry.Value, true, nil
}

func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	entry := sessionEntry{Namespace: s.Namespace(), Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := s.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "namespace"}, {Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}
	return nil
}

// Delete removes all keys in one transaction.
func (s *SQLStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Where("namespace = ? AND entry_key IN ?", s.Namespace(), keys).Delete(&sessionEntry{}).Error
	})
}

func (s *SQLStore) Close() error {
	return s.client.Close()
}
