package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/teamloop/teamloop/pkg/types"
)

func TestPresenceRegistry_ReconnectOverwrites(t *testing.T) {
	registry := NewPresenceRegistry()

	registry.Connect("u1", "conn-a")
	registry.Connect("u1", "conn-b")

	record, ok := registry.Get("u1")
	assert.True(t, ok)
	assert.Equal(t, "conn-b", record.ConnectionID)
	assert.Equal(t, types.PRESENCE_ONLINE, record.Status)
}

func TestPresenceRegistry_Disconnect(t *testing.T) {
	registry := NewPresenceRegistry()

	registry.Connect("u1", "conn-a")
	registry.Disconnect("u1")

	assert.False(t, registry.IsOnline("u1"))
	// 重复断开无副作用
	registry.Disconnect("u1")
	assert.False(t, registry.IsOnline("u1"))
}

func TestPresenceRegistry_SetStatus(t *testing.T) {
	registry := NewPresenceRegistry()

	assert.False(t, registry.SetStatus("u1", types.PRESENCE_AWAY))

	registry.Connect("u1", "conn-a")
	assert.True(t, registry.SetStatus("u1", types.PRESENCE_BUSY))

	record, _ := registry.Get("u1")
	assert.Equal(t, types.PRESENCE_BUSY, record.Status)
	assert.Equal(t, "conn-a", record.ConnectionID)
}

func TestPresenceRegistry_OnlineUsers(t *testing.T) {
	registry := NewPresenceRegistry()
	registry.Connect("u1", "conn-a")
	registry.Connect("u2", "conn-b")

	assert.ElementsMatch(t, []string{"u1", "u2"}, registry.OnlineUsers(nil))
	assert.Equal(t, []string{"u2"}, registry.OnlineUsers([]string{"u2", "u3"}))
	assert.Empty(t, registry.OnlineUsers([]string{"u4"}))
}
