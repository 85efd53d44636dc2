package calendar

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"innkeep/internal/app/window"
	"innkeep/internal/infra/storage/memory"
)

func TestInvalidateWindowsDropsCachedWindowsOnce(t *testing.T) {
	f := newFixture(t)
	key := window.KeyFor(room, day(7, 1))
	_, err := f.cache.Get(context.Background(), key)
	require.NoError(t, err)

	h := &InvalidateWindowsHandler{Cache: f.cache, Inbox: memory.NewInbox()}
	cmd := InvalidateWindowsCommand{EventID: "evt-1", Mode: room.Mode, PropertyID: room.ID}

	res, err := h.Handle(context.Background(), cmd)
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	_, ok := f.cache.Peek(key)
	assert.False(t, ok)

	_, err = f.cache.Get(context.Background(), key)
	require.NoError(t, err)
	res, err = h.Handle(context.Background(), cmd)
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	_, ok = f.cache.Peek(key)
	assert.True(t, ok, "a redelivered event leaves the cache alone")
}

func TestInvalidateWindowsValidatesProperty(t *testing.T) {
	h := &InvalidateWindowsHandler{}
	_, err := h.Handle(context.Background(), InvalidateWindowsCommand{EventID: "e", Mode: "boat", PropertyID: "1"})
	assert.Error(t, err)
}
