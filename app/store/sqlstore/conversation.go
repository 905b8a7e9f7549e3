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
		provider.stores.ConversationStore = NewConversationStore(provider)
	})
}

type ConversationStore struct {
	CommonFields
}

func NewConversationStore(provider SqlProviderAchieve) *ConversationStore {
	repo := &ConversationStore{}
	repo.SetProvider(provider)
	repo.SetTable(types.TABLE_CONVERSATION)
	repo.SetAllColumns("id", "title", "last_message_id", "last_message_at", "created_at")
	return repo
}

func (s *ConversationStore) Create(ctx context.Context, data types.Conversation) error {
	if data.CreatedAt == 0 {
		data.CreatedAt = time.Now().Unix()
	}

	query := sq.Insert(s.GetTable()).
		Columns("id", "title", "last_message_id", "last_message_at", "created_at").
		Values(data.ID, data.Title, data.LastMessageID, data.LastMessageAt, data.CreatedAt)

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

func (s *ConversationStore) Get(ctx context.Context, id string) (*types.Conversation, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).Where(sq.Eq{"id": id})
	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var item types.Conversation
	if err = s.GetReplica(ctx).Get(&item, queryString, args...); err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateLastMessage 维护会话的最新消息指针，供会话列表排序与预览使用
func (s *ConversationStore) UpdateLastMessage(ctx context.Context, id, messageID string, messageAt int64) error {
	query := sq.Update(s.GetTable()).
		Set("last_message_id", messageID).
		Set("last_message_at", messageAt).
		Where(sq.Eq{"id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

func (s *ConversationStore) ListByUser(ctx context.Context, userID string, page, pageSize uint64) ([]types.Conversation, error) {
	memberTable := types.TABLE_CONVERSATION_USER.Name()
	query := sq.Select("c.id", "c.title", "c.last_message_id", "c.last_message_at", "c.created_at").
		From(s.GetTable() + " c").
		Join(memberTable + " cu ON cu.conversation_id = c.id").
		Where(sq.Eq{"cu.user_id": userID}).
		OrderBy("c.last_message_at DESC")
	if page != types.NO_PAGINATION || pageSize != types.NO_PAGINATION {
		query = query.Limit(pageSize).Offset((page - 1) * pageSize)
	}

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var items []types.Conversation
	if err = s.GetReplica(ctx).Select(&items, queryString, args...); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *ConversationStore) Delete(ctx context.Context, id string) error {
	query := sq.Delete(s.GetTable()).Where(sq.Eq{"id": id})
	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}
