package v1

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/samber/lo"

	"github.com/teamloop/teamloop/app/core"
	"github.com/teamloop/teamloop/app/logic/v1/process"
	"github.com/teamloop/teamloop/pkg/errors"
	"github.com/teamloop/teamloop/pkg/i18n"
	"github.com/teamloop/teamloop/pkg/types"
	"github.com/teamloop/teamloop/pkg/utils"
)

type ConversationLogic struct {
	ctx  context.Context
	core *core.Core
}

func NewConversationLogic(ctx context.Context, core *core.Core) *ConversationLogic {
	return &ConversationLogic{
		ctx:  ctx,
		core: core,
	}
}

// CreateConversation 创建会话并写入参与者，创建者为 owner，其余为 member
func (l *ConversationLogic) CreateConversation(creatorID, title string, participantIDs []string) (*types.Conversation, error) {
	const trace = "ConversationLogic.CreateConversation"

	now := time.Now().Unix()
	conversation := &types.Conversation{
		ID:        utils.GenUniqIDStr(),
		Title:     title,
		CreatedAt: now,
	}

	// 去重并排除创建者，创建者单独以 owner 身份写入
	participantIDs = lo.Filter(lo.Uniq(participantIDs), func(id string, _ int) bool {
		return id != "" && id != creatorID
	})

	err := l.core.Store().Transaction(l.ctx, func(ctx context.Context) error {
		if err := l.core.Store().ConversationStore().Create(ctx, *conversation); err != nil {
			return errors.New(trace+".ConversationStore.Create", i18n.ERROR_INTERNAL, err)
		}

		if err := l.core.Store().ConversationUserStore().Create(ctx, types.ConversationUser{
			ConversationID: conversation.ID,
			UserID:         creatorID,
			Role:           types.CONVERSATION_ROLE_OWNER,
			JoinedAt:       now,
		}); err != nil {
			return errors.New(trace+".ConversationUserStore.Create", i18n.ERROR_INTERNAL, err)
		}

		for _, userID := range participantIDs {
			if err := l.core.Store().ConversationUserStore().Create(ctx, types.ConversationUser{
				ConversationID: conversation.ID,
				UserID:         userID,
				Role:           types.CONVERSATION_ROLE_MEMBER,
				JoinedAt:       now,
			}); err != nil {
				return errors.New(trace+".ConversationUserStore.Create", i18n.ERROR_INTERNAL, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return conversation, nil
}

func (l *ConversationLogic) ListConversations(userID string, page, pageSize uint64) ([]types.Conversation, error) {
	list, err := l.core.Store().ConversationStore().ListByUser(l.ctx, userID, page, pageSize)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.New("ConversationLogic.ListConversations.ConversationStore.ListByUser", i18n.ERROR_INTERNAL, err)
	}
	return list, nil
}

func (l *ConversationLogic) GetConversation(id, userID string) (*types.Conversation, error) {
	const trace = "ConversationLogic.GetConversation"

	if _, err := l.core.Store().ConversationUserStore().GetParticipant(l.ctx, id, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New(trace+".GetParticipant", i18n.ERROR_CONVERSATION_ACCESS, err).Code(http.StatusNotFound)
		}
		return nil, errors.New(trace+".GetParticipant", i18n.ERROR_INTERNAL, err)
	}

	conversation, err := l.core.Store().ConversationStore().Get(l.ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New(trace+".ConversationStore.Get", i18n.ERROR_CONVERSATION_ACCESS, err).Code(http.StatusNotFound)
		}
		return nil, errors.New(trace+".ConversationStore.Get", i18n.ERROR_INTERNAL, err)
	}

	return conversation, nil
}

// DeleteConversation 仅 owner 可删除。会话与参与者记录同步删除，
// 历史消息体量可能很大，交给清理队列异步清除
func (l *ConversationLogic) DeleteConversation(id, userID string) error {
	const trace = "ConversationLogic.DeleteConversation"

	participant, err := l.core.Store().ConversationUserStore().GetParticipant(l.ctx, id, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return errors.New(trace+".GetParticipant", i18n.ERROR_CONVERSATION_ACCESS, err).Code(http.StatusNotFound)
		}
		return errors.New(trace+".GetParticipant", i18n.ERROR_INTERNAL, err)
	}

	if participant.Role != types.CONVERSATION_ROLE_OWNER {
		return errors.New(trace+".role", i18n.ERROR_PERMISSION_DENIED, nil).Code(http.StatusForbidden)
	}

	participants, err := l.core.Store().ConversationUserStore().ListParticipants(l.ctx, id)
	if err != nil && err != sql.ErrNoRows {
		return errors.New(trace+".ListParticipants", i18n.ERROR_INTERNAL, err)
	}

	err = l.core.Store().Transaction(l.ctx, func(ctx context.Context) error {
		for _, item := range participants {
			if err := l.core.Store().ConversationUserStore().Delete(ctx, id, item.UserID); err != nil {
				return errors.New(trace+".ConversationUserStore.Delete", i18n.ERROR_INTERNAL, err)
			}
		}

		if err := l.core.Store().ConversationStore().Delete(ctx, id); err != nil {
			return errors.New(trace+".ConversationStore.Delete", i18n.ERROR_INTERNAL, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if cleanup := process.CleanupQueue(); cleanup != nil {
		if err := cleanup.EnqueueTask(l.ctx, id); err != nil {
			slog.Error("Failed to enqueue conversation cleanup task, falling back to inline delete",
				slog.String("conversation_id", id),
				slog.String("error", err.Error()))
			if err := l.core.Store().ChatMessageStore().DeleteAll(l.ctx, id); err != nil {
				return errors.New(trace+".ChatMessageStore.DeleteAll", i18n.ERROR_INTERNAL, err)
			}
		}
	} else if err := l.core.Store().ChatMessageStore().DeleteAll(l.ctx, id); err != nil {
		return errors.New(trace+".ChatMessageStore.DeleteAll", i18n.ERROR_INTERNAL, err)
	}

	return nil
}
