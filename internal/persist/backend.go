// Package persist stores small named JSON documents (token state, settings) behind one interface so the
// owning stores do not care whether they live in a local file, Redis, Postgres or S3.
package persist

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Load when nothing has been saved under the key yet.
var ErrNotFound = errors.New("persist: not found")

// Backend loads and saves whole documents by key. Save replaces the previous document.
type Backend interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}
