package store

import (
	"context"

	"github.com/teamloop/teamloop/pkg/sqlstore"
	"github.com/teamloop/teamloop/pkg/types"
)

type UserStore interface {
	sqlstore.SqlCommons
	Create(ctx context.Context, data types.User) error
	GetUser(ctx context.Context, appid, id string) (*types.User, error)
	GetByEmail(ctx context.Context, appid, email string) (*types.User, error)
	ListUsers(ctx context.Context, opts types.ListUserOptions, page, pageSize uint64) ([]types.User, error)
	UpdateUserProfile(ctx context.Context, id, name, email string) error
	Total(ctx context.Context, opts types.ListUserOptions) (int64, error)
}

type AccessTokenStore interface {
	sqlstore.SqlCommons
	Create(ctx context.Context, data types.AccessToken) error
	GetAccessToken(ctx context.Context, appid, token string) (*types.AccessToken, error)
	ListAccessTokens(ctx context.Context, appid, userID string, page, pageSize uint64) ([]types.AccessToken, error)
	Delete(ctx context.Context, appid, userID, token string) error
	ClearUserTokens(ctx context.Context, appid, userID string) error
}

type ConversationStore interface {
	sqlstore.SqlCommons
	Create(ctx context.Context, data types.Conversation) error
	Get(ctx context.Context, id string) (*types.Conversation, error)
	UpdateLastMessage(ctx context.Context, id, messageID string, messageAt int64) error
	ListByUser(ctx context.Context, userID string, page, pageSize uint64) ([]types.Conversation, error)
	Delete(ctx context.Context, id string) error
}

type ConversationUserStore interface {
	sqlstore.SqlCommons
	Create(ctx context.Context, data types.ConversationUser) error
	// GetParticipant 返回 sql.ErrNoRows 时表示用户不是会话成员或会话不存在
	GetParticipant(ctx context.Context, conversationID, userID string) (*types.ConversationUser, error)
	ListParticipants(ctx context.Context, conversationID string) ([]types.ConversationUser, error)
	// IncrUnreadExcept 为除 exceptUserID 外的全部参与者未读数 +1
	IncrUnreadExcept(ctx context.Context, conversationID, exceptUserID string) error
	// ResetUnread 清零指定参与者的未读数并记录已读游标
	ResetUnread(ctx context.Context, conversationID, userID, lastReadMessageID string) error
	Delete(ctx context.Context, conversationID, userID string) error
}

type ChatMessageStore interface {
	sqlstore.SqlCommons
	Create(ctx context.Context, data *types.ChatMessage) error
	GetOne(ctx context.Context, id string) (*types.ChatMessage, error)
	ListMessages(ctx context.Context, opts types.ListChatMessageOptions, page, pageSize uint64) ([]types.ChatMessage, error)
	Total(ctx context.Context, opts types.ListChatMessageOptions) (int64, error)
	DeleteAll(ctx context.Context, conversationID string) error
}
