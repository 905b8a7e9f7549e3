package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/teamloop/teamloop/pkg/types"
	"github.com/teamloop/teamloop/pkg/types/protocol"
	"github.com/teamloop/teamloop/pkg/utils"
)

// TokenVerifier 校验握手阶段提交的 bearer token
type TokenVerifier interface {
	VerifyAccessToken(ctx context.Context, token string) (types.ConnectedUser, error)
}

// MessageStore 是消息持久化的外部协作方。
// SendMessage 负责参与者校验、id 与时间戳分配、未读计数与会话最新消息指针的维护；
// 非参与者与会话不存在统一返回同一种错误，调用方无法区分。
type MessageStore interface {
	SendMessage(ctx context.Context, conversationID, senderID string, args types.CreateChatMessageArgs) (*types.ChatMessage, error)
	MarkRead(ctx context.Context, conversationID, userID, messageID string) error
}

// Observer 上报网关运行指标，由接入方决定落点
type Observer interface {
	ConnectionOpened()
	ConnectionClosed()
	EventReceived(event string)
	BroadcastDelivered(count int)
	RelayFailed()
}

type nopObserver struct{}

func (nopObserver) ConnectionOpened()      {}
func (nopObserver) ConnectionClosed()      {}
func (nopObserver) EventReceived(string)   {}
func (nopObserver) BroadcastDelivered(int) {}
func (nopObserver) RelayFailed()           {}

const defaultStoreTimeout = time.Second * 10

type GatewayOption func(*Gateway)

func WithObserver(o Observer) GatewayOption {
	return func(g *Gateway) {
		g.observer = o
	}
}

func WithStoreTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		g.storeTimeout = d
	}
}

// WithTaskRelayGuard 限定哪些角色可以透传 task_updated。
// 未设置时不做角色校验。
func WithTaskRelayGuard(guard func(role string) bool) GatewayOption {
	return func(g *Gateway) {
		g.taskRelayGuard = guard
	}
}

// Gateway 组合连接注册表、在线状态、输入状态与房间归属，
// 负责握手鉴权、事件分发与断连清理
type Gateway struct {
	hub      *Hub
	presence *PresenceRegistry
	typing   *TypingTracker
	rooms    *RoomManager

	verifier TokenVerifier
	store    MessageStore
	observer Observer

	storeTimeout   time.Duration
	taskRelayGuard func(role string) bool
	logger         *slog.Logger
}

func NewGateway(verifier TokenVerifier, store MessageStore, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		hub:          NewHub(),
		presence:     NewPresenceRegistry(),
		typing:       NewTypingTracker(),
		rooms:        NewRoomManager(),
		verifier:     verifier,
		store:        store,
		observer:     nopObserver{},
		storeTimeout: defaultStoreTimeout,
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) Presence() *PresenceRegistry {
	return g.presence
}

func (g *Gateway) Hub() *Hub {
	return g.hub
}

// Authenticate 执行握手鉴权。失败时连接尚未注册任何状态，调用方直接关闭传输即可。
func (g *Gateway) Authenticate(ctx context.Context, token string) (types.ConnectedUser, error) {
	return g.verifier.VerifyAccessToken(ctx, token)
}

// Attach 注册一条已通过鉴权的连接：登记会话、覆盖在线记录、
// 向其他连接广播上线事件，并向连接本身下发 authenticated 确认。
func (g *Gateway) Attach(user types.ConnectedUser) *Session {
	session := NewSession(utils.GenRandomID(), user)

	g.hub.Register(session)
	g.presence.Connect(user.ID, session.ID)
	g.observer.ConnectionOpened()

	delivered := g.hub.Broadcast(MustEncodeEvent(EventUserOnline, PresencePayload{UserID: user.ID}), session.ID)
	g.observer.BroadcastDelivered(delivered)

	session.TrySend(MustEncodeEvent(EventAuthenticated, AuthenticatedPayload{User: user}))

	g.logger.Info("Realtime connection attached",
		slog.String("connection_id", session.ID),
		slog.String("user_id", user.ID),
		slog.Int("total", g.hub.Len()))
	return session
}

// Detach 执行断连清理，顺序固定：
// 移除在线记录 → 清扫输入状态并补发 typing_stop → 枚举退出全部房间 → 广播离线事件 → 注销会话
func (g *Gateway) Detach(session *Session) {
	g.presence.Disconnect(session.User.ID)

	for _, conversationID := range g.typing.Sweep(session.User.ID) {
		g.broadcastRoom(protocol.ConversationRoom(conversationID), MustEncodeEvent(EventTypingStop, TypingPayload{
			UserID:         session.User.ID,
			ConversationID: conversationID,
		}), session.ID)
	}

	g.rooms.DropConnection(session.ID)

	delivered := g.hub.Broadcast(MustEncodeEvent(EventUserOffline, PresencePayload{UserID: session.User.ID}), session.ID)
	g.observer.BroadcastDelivered(delivered)

	g.hub.Unregister(session.ID)
	g.observer.ConnectionClosed()

	g.logger.Info("Realtime connection detached",
		slog.String("connection_id", session.ID),
		slog.String("user_id", session.User.ID),
		slog.Int("total", g.hub.Len()))
}

// Dispatch 处理一条上行事件帧。同一连接的帧由读端串行送入，天然保持到达顺序。
func (g *Gateway) Dispatch(ctx context.Context, session *Session, env Envelope) {
	g.observer.EventReceived(env.Event)

	switch env.Event {
	case EventJoinProject:
		var args JoinProjectArgs
		decodePayload(env.Data, &args)
		g.handleJoinProject(session, args)
	case EventLeaveProject:
		var args JoinProjectArgs
		decodePayload(env.Data, &args)
		g.handleLeaveProject(session, args)
	case EventTaskUpdated:
		var args TaskUpdatedArgs
		decodePayload(env.Data, &args)
		g.handleTaskUpdated(session, args)
	case EventJoinConversation:
		var args JoinConversationArgs
		decodePayload(env.Data, &args)
		g.handleJoinConversation(session, args)
	case EventLeaveConversation:
		var args JoinConversationArgs
		decodePayload(env.Data, &args)
		g.handleLeaveConversation(session, args)
	case EventSendMessage:
		var args SendMessageArgs
		decodePayload(env.Data, &args)
		g.handleSendMessage(ctx, session, args)
	case EventTypingStart:
		var args TypingArgs
		decodePayload(env.Data, &args)
		g.handleTypingStart(session, args)
	case EventTypingStop:
		var args TypingArgs
		decodePayload(env.Data, &args)
		g.handleTypingStop(session, args)
	case EventMarkAsRead:
		var args MarkAsReadArgs
		decodePayload(env.Data, &args)
		g.handleMarkAsRead(ctx, session, args)
	case EventUserStatusUpdate:
		var args UserStatusUpdateArgs
		decodePayload(env.Data, &args)
		g.handleUserStatusUpdate(session, args)
	case EventGetOnlineUsers:
		var args GetOnlineUsersArgs
		decodePayload(env.Data, &args)
		g.handleGetOnlineUsers(session, args)
	case EventPing:
		session.TrySend(MustEncodeEvent(EventPong, nil))
	default:
		g.logger.Warn("Unknown realtime event",
			slog.String("event", env.Event),
			slog.String("connection_id", session.ID))
	}
}

func (g *Gateway) handleJoinProject(session *Session, args JoinProjectArgs) {
	g.rooms.Join(session.ID, protocol.ProjectRoom(args.ProjectID))
	session.TrySend(MustEncodeEvent(EventProjectJoined, RoomAckPayload{ProjectID: args.ProjectID}))
}

func (g *Gateway) handleLeaveProject(session *Session, args JoinProjectArgs) {
	g.rooms.Leave(session.ID, protocol.ProjectRoom(args.ProjectID))
	session.TrySend(MustEncodeEvent(EventProjectLeft, RoomAckPayload{ProjectID: args.ProjectID}))
}

// handleTaskUpdated 纯透传广播，任务数据的持久化由 REST 侧完成
func (g *Gateway) handleTaskUpdated(session *Session, args TaskUpdatedArgs) {
	if g.taskRelayGuard != nil && !g.taskRelayGuard(session.User.Role) {
		g.logger.Warn("Task update relay rejected",
			slog.String("connection_id", session.ID),
			slog.String("role", session.User.Role))
		return
	}

	g.broadcastRoom(protocol.ProjectRoom(args.ProjectID), MustEncodeEvent(EventTaskUpdated, args), session.ID)
}

func (g *Gateway) handleJoinConversation(session *Session, args JoinConversationArgs) {
	g.rooms.Join(session.ID, protocol.ConversationRoom(args.ConversationID))
	session.TrySend(MustEncodeEvent(EventConversationJoined, RoomAckPayload{ConversationID: args.ConversationID}))
}

// handleLeaveConversation 退出会话房间的连接同时清理该会话内的输入状态，
// typing 指示不会在成员离开后残留
func (g *Gateway) handleLeaveConversation(session *Session, args JoinConversationArgs) {
	roomID := protocol.ConversationRoom(args.ConversationID)
	g.rooms.Leave(session.ID, roomID)

	if g.typing.Remove(args.ConversationID, session.User.ID) {
		g.broadcastRoom(roomID, MustEncodeEvent(EventTypingStop, TypingPayload{
			UserID:         session.User.ID,
			ConversationID: args.ConversationID,
		}), session.ID)
	}

	session.TrySend(MustEncodeEvent(EventConversationLeft, RoomAckPayload{ConversationID: args.ConversationID}))
}

func (g *Gateway) handleSendMessage(ctx context.Context, session *Session, args SendMessageArgs) {
	ctx, cancel := context.WithTimeout(ctx, g.storeTimeout)
	defer cancel()

	message, err := g.store.SendMessage(ctx, args.ConversationID, session.User.ID, types.CreateChatMessageArgs{
		Content:   args.Content,
		MsgType:   args.MessageType,
		ReplyToID: args.ReplyToID,
	})
	if err != nil {
		g.observer.RelayFailed()
		g.logger.Error("Message relay failed",
			slog.String("conversation_id", args.ConversationID),
			slog.String("user_id", session.User.ID),
			slog.String("error", err.Error()))
		session.TrySend(MustEncodeEvent(EventMessageError, MessageErrorPayload{
			Error:          "message delivery failed",
			ConversationID: args.ConversationID,
		}))
		return
	}

	g.broadcastRoom(protocol.ConversationRoom(args.ConversationID), MustEncodeEvent(EventNewMessage, message), session.ID)
	session.TrySend(MustEncodeEvent(EventMessageSent, MessageSentPayload{
		MessageID:      message.ID,
		ConversationID: args.ConversationID,
	}))
}

// handleTypingStart 每次调用都重新广播，客户端依赖重复事件刷新输入指示的空闲计时
func (g *Gateway) handleTypingStart(session *Session, args TypingArgs) {
	g.typing.Start(args.ConversationID, session.User.ID)
	g.broadcastRoom(protocol.ConversationRoom(args.ConversationID), MustEncodeEvent(EventTypingStart, TypingPayload{
		UserID:         session.User.ID,
		ConversationID: args.ConversationID,
	}), session.ID)
}

func (g *Gateway) handleTypingStop(session *Session, args TypingArgs) {
	g.typing.Remove(args.ConversationID, session.User.ID)
	g.broadcastRoom(protocol.ConversationRoom(args.ConversationID), MustEncodeEvent(EventTypingStop, TypingPayload{
		UserID:         session.User.ID,
		ConversationID: args.ConversationID,
	}), session.ID)
}

// handleMarkAsRead 已读回执失败只记日志，不向客户端回报
func (g *Gateway) handleMarkAsRead(ctx context.Context, session *Session, args MarkAsReadArgs) {
	ctx, cancel := context.WithTimeout(ctx, g.storeTimeout)
	defer cancel()

	if err := g.store.MarkRead(ctx, args.ConversationID, session.User.ID, args.MessageID); err != nil {
		g.logger.Error("Failed to mark conversation read",
			slog.String("conversation_id", args.ConversationID),
			slog.String("user_id", session.User.ID),
			slog.String("error", err.Error()))
		return
	}

	g.broadcastRoom(protocol.ConversationRoom(args.ConversationID), MustEncodeEvent(EventMessagesRead, MessagesReadPayload{
		UserID:         session.User.ID,
		ConversationID: args.ConversationID,
		MessageID:      args.MessageID,
	}), session.ID)
}

// handleUserStatusUpdate 状态变更广播到全部其他连接，不按房间收敛
func (g *Gateway) handleUserStatusUpdate(session *Session, args UserStatusUpdateArgs) {
	if !g.presence.SetStatus(session.User.ID, args.Status) {
		return
	}

	delivered := g.hub.Broadcast(MustEncodeEvent(EventUserStatusChanged, StatusChangedPayload{
		UserID: session.User.ID,
		Status: args.Status,
	}), session.ID)
	g.observer.BroadcastDelivered(delivered)
}

func (g *Gateway) handleGetOnlineUsers(session *Session, args GetOnlineUsersArgs) {
	session.TrySend(MustEncodeEvent(EventOnlineUsers, OnlineUsersPayload{
		OnlineUsers: g.presence.OnlineUsers(args.UserIDs),
	}))
}

// SweepStaleTyping 巡检输入状态，清除已不在线用户的残留记录并补发 typing_stop。
// 正常断连路径由 Detach 清扫，此方法兜底异常情况，返回清除条数。
func (g *Gateway) SweepStaleTyping() int {
	var cleared int
	for conversationID, userIDs := range g.typing.Entries() {
		for _, userID := range userIDs {
			if g.presence.IsOnline(userID) {
				continue
			}
			if !g.typing.Remove(conversationID, userID) {
				continue
			}

			cleared++
			g.broadcastRoom(protocol.ConversationRoom(conversationID), MustEncodeEvent(EventTypingStop, TypingPayload{
				UserID:         userID,
				ConversationID: conversationID,
			}))
			g.logger.Warn("Stale typing state cleared",
				slog.String("conversation_id", conversationID),
				slog.String("user_id", userID))
		}
	}
	return cleared
}

func (g *Gateway) broadcastRoom(roomID string, frame []byte, except ...string) {
	skip := make(map[string]struct{}, len(except))
	for _, id := range except {
		skip[id] = struct{}{}
	}

	var delivered int
	for _, connectionID := range g.rooms.Members(roomID) {
		if _, ok := skip[connectionID]; ok {
			continue
		}
		if g.hub.SendTo(connectionID, frame) {
			delivered++
		}
	}
	g.observer.BroadcastDelivered(delivered)
}

// decodePayload 宽松解析上行负载，缺字段或非法 JSON 按零值处理
func decodePayload(raw []byte, out any) {
	if len(raw) == 0 {
		return
	}
	if err := json.Unmarshal(raw, out); err != nil {
		slog.Debug("Malformed event payload ignored", slog.String("error", err.Error()))
	}
}
