package persist

import (
	"context"
	"errors"

	"github.com/aura-webinar/gtw-tools/pkg/storage"
)

// S3 stores documents as JSON objects, useful where the local disk does not survive redeploys.
type S3 struct {
	store *storage.S3
}

// NewS3 wraps an S3 state store.
func NewS3(store *storage.S3) *S3 {
	return &S3{store: store}
}

func (s *S3) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := s.store.Get(ctx, key)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, ErrNotFound
	}
	return data, err
}

func (s *S3) Save(ctx context.Context, key string, data []byte) error {
	return s.store.Put(ctx, key, "application/json", data)
}
