// Package store persists model snapshots and evaluation results as opaque
// byte blobs addressed by slash-separated keys.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"path"
	"strings"

	"github.com/YuminosukeSato/catnb/internal/config"
	"github.com/YuminosukeSato/catnb/pkg/errors"
)

// Store is a minimal key/value persistence layer.
// Implementations are safe for concurrent use.
type Store interface {
	// Put stores value under key, replacing any previous value.
	Put(ctx context.Context, key string, value []byte) error
	// Get returns the value under key; found is false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

const (
	modelPrefix  = "models/"
	resultPrefix = "results/"

	// LatestModelKey points at the most recently trained snapshot.
	LatestModelKey = modelPrefix + "latest"
)

// ModelKey returns the key of the snapshot with the given id.
func ModelKey(id string) string {
	return modelPrefix + id
}

// ResultKey returns the key of a cached evaluation result. The parts are
// hashed in order with a separator so that ("ab","c") and ("a","bc") differ.
func ResultKey(parts ...[]byte) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
		h.Write([]byte{0})
	}
	return resultPrefix + hex.EncodeToString(h.Sum(nil))
}

// Open returns the backend selected by cfg.Backend.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return NewMemory(), nil
	case config.BackendFile:
		return NewFile(cfg.Path)
	case config.BackendRedis:
		return NewRedis(ctx, cfg.RedisURL, cfg.KeyPrefix, cfg.TTL)
	case config.BackendSQLite:
		return NewSQLite(ctx, cfg.Path)
	default:
		return nil, errors.NewValidationError("store.backend", "unknown backend", cfg.Backend)
	}
}

func checkKey(op, key string) error {
	if key == "" {
		return errors.NewInvalidInputError(op, "key cannot be empty")
	}
	if strings.HasPrefix(key, "/") || path.Clean(key) != key || strings.Contains(key, "..") {
		return errors.NewInvalidInputErrorf(op, "invalid key %q", key)
	}
	return nil
}
