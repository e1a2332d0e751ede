package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errUtils "github.com/cloudposse/weave/errors"
)

func TestInMemoryStore_SetGet(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "plain value", key: "test-key", value: "test-value"},
		{name: "empty value", key: "empty", value: ""},
		{name: "multiline value", key: "lore", value: "The sword\n\nrests in the lake."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, store.Set(ctx, tt.key, tt.value, 0))

			got, err := store.Get(ctx, tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.value, got)
		})
	}
}

func TestInMemoryStore_Miss(t *testing.T) {
	_, err := NewInMemoryStore().Get(context.Background(), "nonexistent")

	assert.ErrorIs(t, err, errUtils.ErrCacheMiss)
}

func TestInMemoryStore_Expiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewInMemoryStore()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "v", time.Minute))

	now = now.Add(59 * time.Second)
	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	now = now.Add(time.Second)
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, errUtils.ErrCacheMiss)
	assert.Equal(t, 0, store.Len())
}

func TestKey(t *testing.T) {
	assert.Len(t, Key("a", "b"), 64)
	assert.Equal(t, Key("a", "b"), Key("a", "b"))
	assert.NotEqual(t, Key("ab", ""), Key("a", "b"))
}
