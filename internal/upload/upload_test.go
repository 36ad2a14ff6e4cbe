package upload

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func TestSave_StoresImages(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, 1024, zap.NewNop())
	require.NoError(t, err)

	url, err := store.Save(bytes.NewReader(pngHeader))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(url, PublicPrefix+"image-"))
	assert.True(t, strings.HasSuffix(url, ".png"))

	stored, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(url, PublicPrefix)))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, stored)
}

func TestSave_RejectsNonImages(t *testing.T) {
	store, err := NewStore(t.TempDir(), 1024, zap.NewNop())
	require.NoError(t, err)

	_, err = store.Save(strings.NewReader("just some text pretending to be a picture"))
	assert.ErrorIs(t, err, ErrNotAnImage)

	_, err = store.Save(strings.NewReader(`<svg xmlns="http://www.w3.org/2000/svg"></svg>`))
	assert.ErrorIs(t, err, ErrNotAnImage)
}

func TestSave_RejectsOversizedFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, 16, zap.NewNop())
	require.NoError(t, err)

	_, err = store.Save(bytes.NewReader(pngHeader))
	assert.ErrorIs(t, err, ErrTooLarge)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNewStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "public", "uploads")

	store, err := NewStore(dir, 1024, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, dir, store.Dir())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
