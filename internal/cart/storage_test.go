package cart

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoltStorage_RoundTripAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shopper.db")

	store, err := OpenBoltStorage(path)
	require.NoError(t, err)

	missing, err := store.Get("nothing")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, store.Put(GuestCartKey, []byte(`[]`)))
	require.NoError(t, store.Put("identity", []byte(`{"name":"Ada"}`)))
	require.NoError(t, store.Delete("identity"))
	require.NoError(t, store.Close())

	reopened, err := OpenBoltStorage(path)
	require.NoError(t, err)
	defer reopened.Close()

	value, err := reopened.Get(GuestCartKey)
	require.NoError(t, err)
	assert.Equal(t, []byte(`[]`), value)

	gone, err := reopened.Get("identity")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestMemoryStorage_ReturnsCopies(t *testing.T) {
	store := NewMemoryStorage()
	value := []byte("abc")
	require.NoError(t, store.Put("k", value))
	value[0] = 'x'

	got, err := store.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)

	got[0] = 'y'
	again, _ := store.Get("k")
	assert.Equal(t, []byte("abc"), again)
}
