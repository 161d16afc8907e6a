package persist_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/aura-webinar/gtw-tools/internal/persist"
)

func TestFileRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b := persist.NewFile(dir)

	_, err := b.Load(ctx, ".tokens.json")
	gt.True(t, errors.Is(err, persist.ErrNotFound))

	gt.NoError(t, b.Save(ctx, ".tokens.json", []byte(`{"a":1}`))).Required()
	gt.NoError(t, b.Save(ctx, ".tokens.json", []byte(`{"a":2}`))).Required()

	data, err := b.Load(ctx, ".tokens.json")
	gt.NoError(t, err).Required()
	gt.Equal(t, `{"a":2}`, string(data))

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	gt.NoError(t, err).Required()
	gt.A(t, entries).Length(1)

	info, err := os.Stat(filepath.Join(dir, ".tokens.json"))
	gt.NoError(t, err).Required()
	gt.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileCreatesDir(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "nested", "state")
	b := persist.NewFile(dir)
	gt.NoError(t, b.Save(ctx, "x.json", []byte(`{}`))).Required()

	data, err := b.Load(ctx, "x.json")
	gt.NoError(t, err).Required()
	gt.Equal(t, `{}`, string(data))
}

func TestMemoryIsolatesCallerBuffers(t *testing.T) {
	ctx := context.Background()
	m := persist.NewMemory()

	_, err := m.Load(ctx, "k")
	gt.True(t, errors.Is(err, persist.ErrNotFound))

	buf := []byte("hello")
	gt.NoError(t, m.Save(ctx, "k", buf)).Required()
	buf[0] = 'j'

	got, err := m.Load(ctx, "k")
	gt.NoError(t, err).Required()
	gt.Equal(t, "hello", string(got))
	gt.Equal(t, 1, m.SaveCount("k"))
}
