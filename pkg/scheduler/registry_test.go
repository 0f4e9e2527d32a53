package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRegistryRegisterReplacesExisting(t *testing.T) {
	r := NewRegistry(time.UTC, zap.NewNop())

	first, err := r.Register(1, "0 8 * * *", func() {})
	require.NoError(t, err)
	second, err := r.Register(1, "0 8 * * 1", func() {})
	require.NoError(t, err)

	require.Equal(t, 1, r.Len())
	current, ok := r.Lookup(1)
	require.True(t, ok)
	require.Equal(t, second, current)

	require.False(t, r.Deregister(first), "stale handle must not remove the live trigger")
	require.Equal(t, 1, r.Len())
	require.True(t, r.Deregister(second))
	require.Equal(t, 0, r.Len())
}

func TestRegistryRejectsInvalidSpec(t *testing.T) {
	r := NewRegistry(time.UTC, zap.NewNop())
	_, err := r.Register(7, "not a cron", func() {})
	require.Error(t, err)
	require.Equal(t, 0, r.Len())
}

func TestRegistryNextUsesLocation(t *testing.T) {
	loc := time.FixedZone("WIB", 7*60*60)
	r := NewRegistry(loc, zap.NewNop())

	h, err := r.Register(3, "0 8 * * *", func() {})
	require.NoError(t, err)
	require.Equal(t, int64(3), h.Key())

	from := time.Date(2024, 3, 15, 2, 0, 0, 0, time.UTC) // 09:00 WIB
	next := r.Next(h, from)
	require.True(t, next.Equal(time.Date(2024, 3, 16, 8, 0, 0, 0, loc)), next.String())

	require.True(t, r.Next(Handle{}, from).IsZero())
}
