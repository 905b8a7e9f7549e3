package types

import "fmt"

type TableName string

func (s TableName) Name() string {
	return fmt.Sprintf("%s%s", TABLE_PREFIX, s)
}

const TABLE_PREFIX = "teamloop_"

const (
	TABLE_USER              = TableName("user")
	TABLE_ACCESS_TOKEN      = TableName("access_token")
	TABLE_CONVERSATION      = TableName("conversation")
	TABLE_CONVERSATION_USER = TableName("conversation_user")
	TABLE_CHAT_MESSAGE      = TableName("chat_message")
)
