package v1

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/teamloop/teamloop/app/core"
	"github.com/teamloop/teamloop/pkg/errors"
	"github.com/teamloop/teamloop/pkg/i18n"
	"github.com/teamloop/teamloop/pkg/types"
	"github.com/teamloop/teamloop/pkg/utils"
)

// MessageRelay 承担消息落库的全部职责：参与者校验、id 与时间戳分配、
// 其余参与者未读数累加、会话最新消息指针维护。
// 会话不存在与非成员统一返回同一个错误，避免向调用方暴露会话是否存在。
type MessageRelay struct {
	core *core.Core
}

func NewMessageRelay(core *core.Core) *MessageRelay {
	return &MessageRelay{core: core}
}

func (l *MessageRelay) participantOrDeny(ctx context.Context, trace, conversationID, userID string) error {
	_, err := l.core.Store().ConversationUserStore().GetParticipant(ctx, conversationID, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return errors.New(trace+".participant", i18n.ERROR_CONVERSATION_ACCESS, err).Code(http.StatusNotFound)
		}
		return errors.New(trace+".GetParticipant", i18n.ERROR_INTERNAL, err)
	}
	return nil
}

func (l *MessageRelay) SendMessage(ctx context.Context, conversationID, senderID string, args types.CreateChatMessageArgs) (*types.ChatMessage, error) {
	const trace = "MessageRelay.SendMessage"

	if err := l.participantOrDeny(ctx, trace, conversationID, senderID); err != nil {
		return nil, err
	}

	msgType := args.MsgType
	if msgType == "" {
		msgType = types.MESSAGE_TYPE_TEXT
	}

	message := &types.ChatMessage{
		ID:             utils.GenUniqIDStr(),
		ConversationID: conversationID,
		UserID:         senderID,
		Content:        args.Content,
		MsgType:        msgType,
		ReplyToID:      args.ReplyToID,
		CreatedAt:      time.Now().Unix(),
	}

	err := l.core.Store().Transaction(ctx, func(ctx context.Context) error {
		if err := l.core.Store().ChatMessageStore().Create(ctx, message); err != nil {
			return errors.New(trace+".ChatMessageStore.Create", i18n.ERROR_MESSAGE_DELIVERY, err)
		}

		if err := l.core.Store().ConversationUserStore().IncrUnreadExcept(ctx, conversationID, senderID); err != nil {
			return errors.New(trace+".ConversationUserStore.IncrUnreadExcept", i18n.ERROR_MESSAGE_DELIVERY, err)
		}

		if err := l.core.Store().ConversationStore().UpdateLastMessage(ctx, conversationID, message.ID, message.CreatedAt); err != nil {
			return errors.New(trace+".ConversationStore.UpdateLastMessage", i18n.ERROR_MESSAGE_DELIVERY, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return message, nil
}

// MarkRead 清零调用方自己的未读数并记录已读游标，不影响其他参与者
func (l *MessageRelay) MarkRead(ctx context.Context, conversationID, userID, messageID string) error {
	const trace = "MessageRelay.MarkRead"

	if err := l.participantOrDeny(ctx, trace, conversationID, userID); err != nil {
		return err
	}

	if err := l.core.Store().ConversationUserStore().ResetUnread(ctx, conversationID, userID, messageID); err != nil {
		return errors.New(trace+".ConversationUserStore.ResetUnread", i18n.ERROR_INTERNAL, err)
	}
	return nil
}

type ChatMessageLogic struct {
	ctx  context.Context
	core *core.Core
}

func NewChatMessageLogic(ctx context.Context, core *core.Core) *ChatMessageLogic {
	return &ChatMessageLogic{
		ctx:  ctx,
		core: core,
	}
}

func (l *ChatMessageLogic) ListMessages(conversationID, userID string, page, pageSize uint64) ([]types.ChatMessage, int64, error) {
	const trace = "ChatMessageLogic.ListMessages"

	relay := NewMessageRelay(l.core)
	if err := relay.participantOrDeny(l.ctx, trace, conversationID, userID); err != nil {
		return nil, 0, err
	}

	opts := types.ListChatMessageOptions{ConversationID: conversationID}
	list, err := l.core.Store().ChatMessageStore().ListMessages(l.ctx, opts, page, pageSize)
	if err != nil && err != sql.ErrNoRows {
		return nil, 0, errors.New(trace+".ChatMessageStore.ListMessages", i18n.ERROR_INTERNAL, err)
	}

	total, err := l.core.Store().ChatMessageStore().Total(l.ctx, opts)
	if err != nil {
		return nil, 0, errors.New(trace+".ChatMessageStore.Total", i18n.ERROR_INTERNAL, err)
	}

	return list, total, nil
}
