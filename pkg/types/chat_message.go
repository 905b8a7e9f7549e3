package types

type MessageType string

const (
	MESSAGE_TYPE_TEXT  MessageType = "text"
	MESSAGE_TYPE_IMAGE MessageType = "image"
	MESSAGE_TYPE_FILE  MessageType = "file"
)

type ChatMessage struct {
	ID             string      `json:"id" db:"id"`
	ConversationID string      `json:"conversationId" db:"conversation_id"`
	UserID         string      `json:"senderId" db:"user_id"`
	Content        string      `json:"content" db:"content"`
	MsgType        MessageType `json:"type" db:"msg_type"`
	ReplyToID      string      `json:"replyToId,omitempty" db:"reply_to_id"`
	CreatedAt      int64       `json:"createdAt" db:"created_at"`
}

// CreateChatMessageArgs is what the relay hands to the message store;
// id and created_at are assigned by the store.
type CreateChatMessageArgs struct {
	Content   string
	MsgType   MessageType
	ReplyToID string
}

type ListChatMessageOptions struct {
	ConversationID string
	AfterID        string
}
