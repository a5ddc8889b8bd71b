package controller

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHubFanOutAndDrops(t *testing.T) {
	h := NewHub[int]()
	_, ok := h.Latest()
	require.False(t, ok)

	fast, stopFast := h.Subscribe(8)
	slow, stopSlow := h.Subscribe(1)

	h.Publish(1)
	h.Publish(2)

	require.Equal(t, 1, <-fast)
	require.Equal(t, 2, <-fast)
	require.Equal(t, 1, <-slow)
	published, dropped := h.Stats()
	require.Equal(t, uint64(2), published)
	require.Equal(t, uint64(1), dropped)

	latest, ok := h.Latest()
	require.True(t, ok)
	require.Equal(t, 2, latest)

	stopSlow()
	stopSlow()
	_, open := <-slow
	require.False(t, open)
	require.Equal(t, 1, h.Subscribers())
	stopFast()
}
