package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoomManager_JoinIdempotent(t *testing.T) {
	rooms := NewRoomManager()

	assert.True(t, rooms.Join("conn-a", "conversation:c1"))
	assert.False(t, rooms.Join("conn-a", "conversation:c1"))

	assert.Equal(t, []string{"conn-a"}, rooms.Members("conversation:c1"))
	assert.Equal(t, []string{"conversation:c1"}, rooms.Rooms("conn-a"))
}

func TestRoomManager_Leave(t *testing.T) {
	rooms := NewRoomManager()
	rooms.Join("conn-a", "project:p1")
	rooms.Join("conn-b", "project:p1")

	assert.True(t, rooms.Leave("conn-a", "project:p1"))
	assert.False(t, rooms.Leave("conn-a", "project:p1"))
	assert.Equal(t, []string{"conn-b"}, rooms.Members("project:p1"))
	assert.Empty(t, rooms.Rooms("conn-a"))
}

func TestRoomManager_NamespacesDoNotCrossJoin(t *testing.T) {
	rooms := NewRoomManager()
	rooms.Join("conn-a", "project:42")
	rooms.Join("conn-b", "conversation:42")

	assert.Equal(t, []string{"conn-a"}, rooms.Members("project:42"))
	assert.Equal(t, []string{"conn-b"}, rooms.Members("conversation:42"))
}

func TestRoomManager_DropConnection(t *testing.T) {
	rooms := NewRoomManager()
	rooms.Join("conn-a", "project:p1")
	rooms.Join("conn-a", "conversation:c1")
	rooms.Join("conn-b", "conversation:c1")

	left := rooms.DropConnection("conn-a")
	assert.ElementsMatch(t, []string{"project:p1", "conversation:c1"}, left)

	assert.Empty(t, rooms.Rooms("conn-a"))
	assert.Empty(t, rooms.Members("project:p1"))
	assert.Equal(t, []string{"conn-b"}, rooms.Members("conversation:c1"))

	assert.Empty(t, rooms.DropConnection("conn-a"))
}
