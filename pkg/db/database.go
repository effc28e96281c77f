package db

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("key not found")

// Database is the key-value store holding identity records, content indexes
// and content bodies. The edge server only reads from it; writes come from the
// publishing pipeline and the kv command.
type Database interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
}
