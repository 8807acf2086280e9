// Package metadata is a small key–value store for engine state that is
// neither ledger nor log: the last sync timestamp and the locally cached
// target album.
package metadata

import "context"

// Repository is a persistent key–value store. Get returns (nil, nil) for a
// missing key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
