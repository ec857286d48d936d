// Package storage mirrors tasks and agent cards to durable backends so a
// restarted agent can pick up where it left off.
package storage

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"a2a-support-desk/internal/a2a"
	"a2a-support-desk/internal/config"
	"a2a-support-desk/internal/task"
)

// Backend persists tasks and agent cards.
type Backend interface {
	task.Persister
	a2a.CardStore
	io.Closer
}

// Open returns the backend selected by cfg. The memory driver returns a
// nil Backend: nothing is mirrored.
func Open(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Driver {
	case "", config.DriverMemory:
		return nil, nil
	case config.DriverSQLite:
		s, err := NewSQLite(cfg.Path)
		if err != nil {
			return nil, err
		}
		logger.Info("storage opened", zap.String("driver", cfg.Driver), zap.String("path", cfg.Path))
		return s, nil
	case config.DriverRedis:
		s, err := NewRedis(ctx, cfg.RedisURL, cfg.KeyPrefix)
		if err != nil {
			return nil, err
		}
		logger.Info("storage opened", zap.String("driver", cfg.Driver), zap.String("key_prefix", cfg.KeyPrefix))
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %q", cfg.Driver)
	}
}
