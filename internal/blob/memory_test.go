package blob

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	info, err := store.Put(ctx, "rocniky/reseni/a.pdf", strings.NewReader("first"), PutOptions{ContentType: "application/pdf"})
	require.NoError(t, err)
	require.Equal(t, int64(5), info.Size)

	_, err = store.Put(ctx, "rocniky/reseni/a.pdf", strings.NewReader("second"), PutOptions{})
	require.NoError(t, err, "put overwrites")

	_, reader, err := store.Get(ctx, "rocniky/reseni/a.pdf")
	require.NoError(t, err)
	body, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.Equal(t, "second", string(body))

	existed, err := store.Delete(ctx, "rocniky/reseni/a.pdf")
	require.NoError(t, err)
	require.True(t, existed)

	_, _, err = store.Get(ctx, "rocniky/reseni/a.pdf")
	require.ErrorIs(t, err, ErrNotFound)

	existed, err = store.Delete(ctx, "rocniky/reseni/a.pdf")
	require.NoError(t, err)
	require.False(t, existed)
}

func TestMemoryStoreRejectsEmptyKey(t *testing.T) {
	_, err := NewMemoryStore().Put(context.Background(), "", strings.NewReader("x"), PutOptions{})
	require.Error(t, err)
}
