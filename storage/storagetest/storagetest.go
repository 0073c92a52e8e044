// Package storagetest holds the behaviour every storage.Store must share.
package storagetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-jobboard/storage"
)

// Run exercises a store returned fresh by factory for every subtest.
func Run(t *testing.T, factory func(t *testing.T) storage.Store) {
	t.Run("missing key", func(t *testing.T) {
		s := factory(t)
		v, ok, err := s.Get(context.Background(), "access_token")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, v)
	})

	t.Run("set overwrites", func(t *testing.T) {
		ctx := context.Background()
		s := factory(t)
		require.NoError(t, s.Set(ctx, "access_token", "first"))
		require.NoError(t, s.Set(ctx, "access_token", "second"))

		v, ok, err := s.Get(ctx, "access_token")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "second", v)
	})

	t.Run("empty value is stored", func(t *testing.T) {
		ctx := context.Background()
		s := factory(t)
		require.NoError(t, s.Set(ctx, "selected_entreprise_id", ""))

		_, ok, err := s.Get(ctx, "selected_entreprise_id")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("delete", func(t *testing.T) {
		ctx := context.Background()
		s := factory(t)
		require.NoError(t, s.Set(ctx, "access_token", "t"))
		require.NoError(t, s.Set(ctx, "roles_name", `["candidat"]`))
		require.NoError(t, s.Set(ctx, "remembered_email", "a@b.fr"))

		require.NoError(t, s.Delete(ctx, "access_token", "roles_name", "unknown"))
		require.NoError(t, s.Delete(ctx))

		_, ok, err := s.Get(ctx, "access_token")
		require.NoError(t, err)
		assert.False(t, ok)

		v, ok, err := s.Get(ctx, "remembered_email")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "a@b.fr", v)
	})

	t.Run("clear", func(t *testing.T) {
		ctx := context.Background()
		s := factory(t)
		require.NoError(t, s.Set(ctx, "access_token", "t"))
		require.NoError(t, s.Set(ctx, "utilisateur", `{"id":1}`))

		require.NoError(t, s.Clear(ctx))

		for _, k := range []string{"access_token", "utilisateur"} {
			_, ok, err := s.Get(ctx, k)
			require.NoError(t, err)
			assert.False(t, ok, k)
		}
	})

	t.Run("keys", func(t *testing.T) {
		ctx := context.Background()
		s := factory(t)
		lister, ok := s.(storage.Lister)
		if !ok {
			t.Skip("store does not list keys")
		}
		require.NoError(t, s.Set(ctx, "utilisateur", "{}"))
		require.NoError(t, s.Set(ctx, "access_token", "t"))

		keys, err := lister.Keys(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"access_token", "utilisateur"}, keys)
	})
}
