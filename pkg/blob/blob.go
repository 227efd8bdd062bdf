// Package blob stores booking document payloads either in an S3-compatible
// bucket or, when no bucket is configured, in Postgres.
package blob

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("blob: not found")

type Store interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}
