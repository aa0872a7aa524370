package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/salessavvy-storefront/pkg/config"
	"github.com/angelmondragon/salessavvy-storefront/pkg/db"
	"github.com/angelmondragon/salessavvy-storefront/pkg/logger"
	"github.com/angelmondragon/salessavvy-storefront/pkg/redis"
)

// Fixed names under which the session survives restarts.
const (
	KeyToken = "authToken"
	KeyUser  = "user"
)

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("store closed")

// Store is durable local key/value storage for the credential token and the
// cached identity. Get reports ok=false for missing keys.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// Open builds the store selected by cfg.Storage.Driver.
func Open(ctx context.Context, cfg config.Config, logg *logger.Logger) (Store, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverFile, "":
		return NewFileStore(cfg.Storage.FilePath)
	case config.StorageDriverRedis:
		client, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return nil, err
		}
		return NewRedisStore(client, cfg.Storage.Namespace, cfg.Redis.SessionTTL), nil
	case config.StorageDriverSQLite, config.StorageDriverPostgres:
		client, err := db.New(ctx, cfg.Storage.Driver, cfg.DB, logg)
		if err != nil {
			return nil, err
		}
		store, err := NewSQLStore(ctx, client, cfg.Storage.Driver, cfg.Storage.Namespace, logg)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
}
