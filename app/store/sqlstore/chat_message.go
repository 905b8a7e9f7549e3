package sqlstore

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/teamloop/teamloop/pkg/register"
	"github.com/teamloop/teamloop/pkg/types"
)

func init() {
	register.RegisterFunc[*Provider](RegisterKey{}, func(provider *Provider) {
		provider.stores.ChatMessageStore = NewChatMessageStore(provider)
	})
}

type ChatMessageStore struct {
	CommonFields
}

func NewChatMessageStore(provider SqlProviderAchieve) *ChatMessageStore {
	repo := &ChatMessageStore{}
	repo.SetProvider(provider)
	repo.SetTable(types.TABLE_CHAT_MESSAGE)
	repo.SetAllColumns("id", "conversation_id", "user_id", "content", "msg_type", "reply_to_id", "created_at")
	return repo
}

func (s *ChatMessageStore) Create(ctx context.Context, data *types.ChatMessage) error {
	if data.CreatedAt == 0 {
		data.CreatedAt = time.Now().Unix()
	}
	if data.MsgType == "" {
		data.MsgType = types.MESSAGE_TYPE_TEXT
	}

	query := sq.Insert(s.GetTable()).
		Columns("id", "conversation_id", "user_id", "content", "msg_type", "reply_to_id", "created_at").
		Values(data.ID, data.ConversationID, data.UserID, data.Content, data.MsgType, data.ReplyToID, data.CreatedAt)

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

func (s *ChatMessageStore) GetOne(ctx context.Context, id string) (*types.ChatMessage, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).Where(sq.Eq{"id": id})
	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var msg types.ChatMessage
	if err = s.GetReplica(ctx).Get(&msg, queryString, args...); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (s *ChatMessageStore) ListMessages(ctx context.Context, opts types.ListChatMessageOptions, page, pageSize uint64) ([]types.ChatMessage, error) {
	query := applyChatMessageOptions(sq.Select(s.GetAllColumns()...).From(s.GetTable()), opts).
		OrderBy("created_at DESC", "id DESC")
	if page != types.NO_PAGINATION || pageSize != types.NO_PAGINATION {
		query = query.Limit(pageSize).Offset((page - 1) * pageSize)
	}

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var msgs []types.ChatMessage
	if err = s.GetReplica(ctx).Select(&msgs, queryString, args...); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (s *ChatMessageStore) Total(ctx context.Context, opts types.ListChatMessageOptions) (int64, error) {
	query := applyChatMessageOptions(sq.Select("COUNT(*)").From(s.GetTable()), opts)
	queryString, args, err := query.ToSql()
	if err != nil {
		return 0, ErrorSqlBuild(err)
	}

	var total int64
	if err = s.GetReplica(ctx).Get(&total, queryString, args...); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *ChatMessageStore) DeleteAll(ctx context.Context, conversationID string) error {
	query := sq.Delete(s.GetTable()).Where(sq.Eq{"conversation_id": conversationID})
	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

func applyChatMessageOptions(query sq.SelectBuilder, opts types.ListChatMessageOptions) sq.SelectBuilder {
	if opts.ConversationID != "" {
		query = query.Where(sq.Eq{"conversation_id": opts.ConversationID})
	}
	if opts.AfterID != "" {
		query = query.Where(sq.Gt{"id": opts.AfterID})
	}
	return query
}
