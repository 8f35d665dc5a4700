// Package storage holds the backends that persist the review collection as
// a single document. Backends move opaque bytes; encoding belongs to the
// caller.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"resenas/pkg/database"
	"resenas/pkg/utils"
)

// ErrNotExist is returned by Read when the document has never been written.
var ErrNotExist = errors.New("document does not exist")

type Backend interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Name() string
	Close() error
}

// Open builds the backend selected by cfg.Storage.Driver.
func Open(cfg utils.Config) (Backend, error) {
	switch cfg.Storage.Driver {
	case utils.DriverFile, "":
		return NewFile(cfg.StoragePath), nil

	case utils.DriverRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.Storage.RedisAddr})
		return NewRedis(client, cfg.Storage.Key), nil

	case utils.DriverSQLite, utils.DriverPostgres:
		db, err := database.Open(database.Config{Driver: cfg.Storage.Driver, DSN: cfg.Storage.DSN})
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return NewSQL(db, cfg.Storage.Driver, cfg.Storage.Key), nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
