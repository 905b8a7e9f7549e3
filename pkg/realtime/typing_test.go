package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypingTracker_StartAndRemove(t *testing.T) {
	tracker := NewTypingTracker()

	tracker.Start("c1", "u1")
	tracker.Start("c1", "u1") // 重复 start 不改变集合
	tracker.Start("c1", "u2")

	assert.ElementsMatch(t, []string{"u1", "u2"}, tracker.Typists("c1"))

	assert.True(t, tracker.Remove("c1", "u1"))
	assert.False(t, tracker.Remove("c1", "u1"))
	assert.Equal(t, []string{"u2"}, tracker.Typists("c1"))
}

func TestTypingTracker_EmptySetIsDeleted(t *testing.T) {
	tracker := NewTypingTracker()

	tracker.Start("c1", "u1")
	tracker.Remove("c1", "u1")

	tracker.mu.Lock()
	_, exists := tracker.typists["c1"]
	tracker.mu.Unlock()
	assert.False(t, exists)
}

func TestTypingTracker_RemoveUnknownConversation(t *testing.T) {
	tracker := NewTypingTracker()
	assert.False(t, tracker.Remove("nope", "u1"))
}

func TestTypingTracker_Sweep(t *testing.T) {
	tracker := NewTypingTracker()
	tracker.Start("c1", "u1")
	tracker.Start("c2", "u1")
	tracker.Start("c2", "u2")
	tracker.Start("c3", "u2")

	changed := tracker.Sweep("u1")
	assert.ElementsMatch(t, []string{"c1", "c2"}, changed)

	assert.Empty(t, tracker.Typists("c1"))
	assert.Equal(t, []string{"u2"}, tracker.Typists("c2"))
	assert.Equal(t, []string{"u2"}, tracker.Typists("c3"))

	assert.Empty(t, tracker.Sweep("u1"))
}
