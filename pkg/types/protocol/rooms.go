package protocol

import (
	"fmt"
)

// Rooms are namespaced broadcast scopes. Project rooms and conversation
// rooms never cross-join; the prefix is part of the room id.
const (
	ProjectRoomPrefix      = "project:"
	ConversationRoomPrefix = "conversation:"
)

func ProjectRoom(projectID string) string {
	return fmt.Sprintf("%s%s", ProjectRoomPrefix, projectID)
}

func ConversationRoom(conversationID string) string {
	return fmt.Sprintf("%s%s", ConversationRoomPrefix, conversationID)
}
