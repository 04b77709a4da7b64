package jobs

import (
	"context"
	"errors"
	"fmt"

	"captionjob/internal/config"
)

// ErrExists is returned by Create when a record with the same id is stored.
var ErrExists = errors.New("job already exists")

// ErrInvalidID is returned for ids that fail ValidID.
var ErrInvalidID = errors.New("invalid job id")

// Store persists job records. Load returns (nil, nil) for unknown ids and
// ErrInvalidID for ids that fail ValidID.
type Store interface {
	Create(ctx context.Context, job *Job) error
	Load(ctx context.Context, id string) (*Job, error)
	Save(ctx context.Context, job *Job) error
	List(ctx context.Context, limit int) ([]*Job, error)
	Close() error
}

// Open returns the store selected by store.backend.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Store.Backend {
	case config.StoreBackendFile, "":
		return OpenFileStore(cfg.Store.Dir)
	case config.StoreBackendSQLite:
		return OpenSQLiteStore(ctx, cfg.Store.SQLitePath)
	case config.StoreBackendRedis:
		return OpenRedisStore(ctx, cfg.Store.RedisURL, cfg.Store.RedisKey)
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
	}
}

func checkID(id string) error {
	if !ValidID(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}
