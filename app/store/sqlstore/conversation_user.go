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
		provider.stores.ConversationUserStore = NewConversationUserStore(provider)
	})
}

type ConversationUserStore struct {
	CommonFields
}

func NewConversationUserStore(provider SqlProviderAchieve) *ConversationUserStore {
	repo := &ConversationUserStore{}
	repo.SetProvider(provider)
	repo.SetTable(types.TABLE_CONVERSATION_USER)
	repo.SetAllColumns("conversation_id", "user_id", "role", "unread_count", "last_read_message_id", "joined_at")
	return repo
}

func (s *ConversationUserStore) Create(ctx context.Context, data types.ConversationUser) error {
	if data.JoinedAt == 0 {
		data.JoinedAt = time.Now().Unix()
	}

	query := sq.Insert(s.GetTable()).
		Columns("conversation_id", "user_id", "role", "unread_count", "last_read_message_id", "joined_at").
		Values(data.ConversationID, data.UserID, data.Role, data.UnreadCount, data.LastReadMessageID, data.JoinedAt)

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

func (s *ConversationUserStore) GetParticipant(ctx context.Context, conversationID, userID string) (*types.ConversationUser, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).
		Where(sq.Eq{"conversation_id": conversationID, "user_id": userID})
	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var item types.ConversationUser
	if err = s.GetReplica(ctx).Get(&item, queryString, args...); err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *ConversationUserStore) ListParticipants(ctx context.Context, conversationID string) ([]types.ConversationUser, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).
		Where(sq.Eq{"conversation_id": conversationID}).
		OrderBy("joined_at ASC")
	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var items []types.ConversationUser
	if err = s.GetReplica(ctx).Select(&items, queryString, args...); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *ConversationUserStore) IncrUnreadExcept(ctx context.Context, conversationID, exceptUserID string) error {
	query := sq.Update(s.GetTable()).
		Set("unread_count", sq.Expr("unread_count + 1")).
		Where(sq.Eq{"conversation_id": conversationID}).
		Where(sq.NotEq{"user_id": exceptUserID})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

func (s *ConversationUserStore) ResetUnread(ctx context.Context, conversationID, userID, lastReadMessageID string) error {
	query := sq.Update(s.GetTable()).
		Set("unread_count", 0).
		Set("last_read_message_id", lastReadMessageID).
		Where(sq.Eq{"conversation_id": conversationID, "user_id": userID})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

func (s *ConversationUserStore) Delete(ctx context.Context, conversationID, userID string) error {
	query := sq.Delete(s.GetTable()).Where(sq.Eq{"conversation_id": conversationID, "user_id": userID})
	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}
