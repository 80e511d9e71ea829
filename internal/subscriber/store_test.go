package subscriber

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() }) // nolint:errcheck
	return store
}

func TestStore_AddTwice(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	added, err := store.Add(ctx, "budi@example.com")
	require.NoError(t, err)
	require.True(t, added)

	added, err = store.Add(ctx, "budi@example.com")
	require.NoError(t, err)
	require.False(t, added, "second subscribe should report already exists")

	emails, err := store.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"budi@example.com"}, emails)
}

func TestStore_AddNormalizes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	added, err := store.Add(ctx, "  Budi@Example.COM ")
	require.NoError(t, err)
	require.True(t, added)

	added, err = store.Add(ctx, "budi@example.com")
	require.NoError(t, err)
	require.False(t, added)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestStore_AddInvalid(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, email := range []string{"", "   ", "not-an-email", "Budi <budi@example.com>", "a@b@c"} {
		t.Run(email, func(t *testing.T) {
			added, err := store.Add(ctx, email)
			require.ErrorIs(t, err, ErrInvalidEmail)
			require.False(t, added)
		})
	}

	n, err := store.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestStore_Remove(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, email := range []string{"a@example.com", "b@example.com"} {
		_, err := store.Add(ctx, email)
		require.NoError(t, err)
	}

	require.NoError(t, store.Remove(ctx, "A@example.com"))
	// removing again is a no-op
	require.NoError(t, store.Remove(ctx, "a@example.com"))
	require.NoError(t, store.Remove(ctx, "nobody@example.com"))

	emails, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b@example.com"}, emails)
}

func TestStore_ListEmpty(t *testing.T) {
	store := newTestStore(t)

	emails, err := store.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, emails)
	assert.Empty(t, emails)
}

func TestStore_ListSorted(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, email := range []string{"c@example.com", "a@example.com", "b@example.com"} {
		_, err := store.Add(ctx, email)
		require.NoError(t, err)
	}

	emails, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a@example.com", "b@example.com", "c@example.com"}, emails)
}

func TestStore_PersistsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", DatabaseFile)
	ctx := context.Background()

	store, err := Open(path)
	require.NoError(t, err)
	_, err = store.Add(ctx, "budi@example.com")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close() // nolint:errcheck

	emails, err := reopened.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"budi@example.com"}, emails)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "budi@example.com", want: "budi@example.com"},
		{in: " Siti@UNS.ac.id\n", want: "siti@uns.ac.id"},
		{in: "", wantErr: true},
		{in: "budi", wantErr: true},
		{in: "<budi@example.com>", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Normalize(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidEmail)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
