// Package metadata is the durable local key-value store backing the
// persisted session: access token, refresh token, and the serialized user
// record survive process restarts here.
package metadata

import "context"

type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
