package types

const (
	CONVERSATION_ROLE_OWNER  = "owner"
	CONVERSATION_ROLE_MEMBER = "member"
)

type Conversation struct {
	ID            string `json:"id" db:"id"`
	Title         string `json:"title" db:"title"`
	LastMessageID string `json:"last_message_id" db:"last_message_id"`
	LastMessageAt int64  `json:"last_message_at" db:"last_message_at"`
	CreatedAt     int64  `json:"created_at" db:"created_at"`
}

// ConversationUser is one participant's membership row, carrying the
// unread counter and read cursor the realtime layer maintains.
type ConversationUser struct {
	ConversationID    string `json:"conversation_id" db:"conversation_id"`
	UserID            string `json:"user_id" db:"user_id"`
	Role              string `json:"role" db:"role"`
	UnreadCount       int64  `json:"unread_count" db:"unread_count"`
	LastReadMessageID string `json:"last_read_message_id" db:"last_read_message_id"`
	JoinedAt          int64  `json:"joined_at" db:"joined_at"`
}
