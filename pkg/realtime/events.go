package realtime

import (
	"encoding/json"
	"log/slog"

	"github.com/teamloop/teamloop/pkg/types"
)

// 客户端上行事件
const (
	EventJoinProject       = "join_project"
	EventLeaveProject      = "leave_project"
	EventTaskUpdated       = "task_updated"
	EventJoinConversation  = "join_conversation"
	EventLeaveConversation = "leave_conversation"
	EventSendMessage       = "send_message"
	EventTypingStart       = "typing_start"
	EventTypingStop        = "typing_stop"
	EventMarkAsRead        = "mark_as_read"
	EventUserStatusUpdate  = "user_status_update"
	EventGetOnlineUsers    = "get_online_users"
	EventPing              = "ping"
)

// 服务端下行事件
const (
	EventAuthenticated      = "authenticated"
	EventProjectJoined      = "project_joined"
	EventProjectLeft        = "project_left"
	EventConversationJoined = "conversation_joined"
	EventConversationLeft   = "conversation_left"
	EventNewMessage         = "new_message"
	EventMessageSent        = "message_sent"
	EventMessageError       = "message_error"
	EventMessagesRead       = "messages_read"
	EventUserOnline         = "user_online"
	EventUserOffline        = "user_offline"
	EventUserStatusChanged  = "user_status_changed"
	EventOnlineUsers        = "online_users"
	EventPong               = "pong"
)

// Envelope 是连接上双向传输的统一帧结构
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type JoinProjectArgs struct {
	ProjectID string `json:"projectId"`
}

type TaskUpdatedArgs struct {
	TaskID    string          `json:"taskId"`
	ProjectID string          `json:"projectId"`
	Updates   json.RawMessage `json:"updates"`
}

type JoinConversationArgs struct {
	ConversationID string `json:"conversationId"`
}

type SendMessageArgs struct {
	ConversationID string            `json:"conversationId"`
	Content        string            `json:"content"`
	MessageType    types.MessageType `json:"messageType,omitempty"`
	ReplyToID      string            `json:"replyToId,omitempty"`
}

type TypingArgs struct {
	ConversationID string `json:"conversationId"`
}

type MarkAsReadArgs struct {
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
}

type UserStatusUpdateArgs struct {
	Status types.PresenceStatus `json:"status"`
}

type GetOnlineUsersArgs struct {
	UserIDs []string `json:"userIds,omitempty"`
}

type AuthenticatedPayload struct {
	User types.ConnectedUser `json:"user"`
}

type RoomAckPayload struct {
	ProjectID      string `json:"projectId,omitempty"`
	ConversationID string `json:"conversationId,omitempty"`
}

type MessageSentPayload struct {
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
}

type MessageErrorPayload struct {
	Error          string `json:"error"`
	ConversationID string `json:"conversationId"`
}

type TypingPayload struct {
	UserID         string `json:"userId"`
	ConversationID string `json:"conversationId"`
}

type MessagesReadPayload struct {
	UserID         string `json:"userId"`
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
}

type PresencePayload struct {
	UserID string `json:"userId"`
}

type StatusChangedPayload struct {
	UserID string               `json:"userId"`
	Status types.PresenceStatus `json:"status"`
}

type OnlineUsersPayload struct {
	OnlineUsers []string `json:"onlineUsers"`
}

// MustEncodeEvent 序列化一个下行事件帧，事件结构均为可序列化类型，失败视为编码缺陷
func MustEncodeEvent(event string, data any) []byte {
	var (
		raw []byte
		err error
	)

	if data != nil {
		if raw, err = json.Marshal(data); err != nil {
			slog.Error("Failed to marshal event payload", slog.String("event", event), slog.String("error", err.Error()))
		}
	}

	frame, err := json.Marshal(Envelope{
		Event: event,
		Data:  raw,
	})
	if err != nil {
		slog.Error("Failed to marshal event frame", slog.String("event", event), slog.String("error", err.Error()))
	}
	return frame
}
