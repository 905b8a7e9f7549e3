package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamloop/teamloop/pkg/types"
)

type fakeVerifier struct {
	users map[string]types.ConnectedUser
}

func (f *fakeVerifier) VerifyAccessToken(_ context.Context, token string) (types.ConnectedUser, error) {
	user, ok := f.users[token]
	if !ok {
		return types.ConnectedUser{}, fmt.Errorf("invalid token")
	}
	return user, nil
}

type sendCall struct {
	ConversationID string
	SenderID       string
	Args           types.CreateChatMessageArgs
}

type markCall struct {
	ConversationID string
	UserID         string
	MessageID      string
}

type fakeStore struct {
	mu      sync.Mutex
	seq     int
	sendErr error
	markErr error
	sent    []sendCall
	marked  []markCall
}

func (f *fakeStore) SendMessage(_ context.Context, conversationID, senderID string, args types.CreateChatMessageArgs) (*types.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sendErr != nil {
		return nil, f.sendErr
	}

	f.seq++
	f.sent = append(f.sent, sendCall{ConversationID: conversationID, SenderID: senderID, Args: args})
	return &types.ChatMessage{
		ID:             fmt.Sprintf("m%d", f.seq),
		ConversationID: conversationID,
		UserID:         senderID,
		Content:        args.Content,
		MsgType:        args.MsgType,
		ReplyToID:      args.ReplyToID,
		CreatedAt:      int64(f.seq),
	}, nil
}

func (f *fakeStore) MarkRead(_ context.Context, conversationID, userID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.markErr != nil {
		return f.markErr
	}
	f.marked = append(f.marked, markCall{ConversationID: conversationID, UserID: userID, MessageID: messageID})
	return nil
}

func newTestGateway() (*Gateway, *fakeStore) {
	store := &fakeStore{}
	verifier := &fakeVerifier{users: map[string]types.ConnectedUser{
		"token-a": {ID: "ua", Email: "a@example.com", Role: "member"},
	}}
	return NewGateway(verifier, store), store
}

// drain 取空会话出站缓冲中的全部帧
func drain(t *testing.T, session *Session) []Envelope {
	t.Helper()

	var frames []Envelope
	for {
		select {
		case raw, ok := <-session.Outbox():
			if !ok {
				return frames
			}
			var env Envelope
			require.NoError(t, json.Unmarshal(raw, &env))
			frames = append(frames, env)
		default:
			return frames
		}
	}
}

func decodeData(t *testing.T, env Envelope, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, out))
}

func eventNames(frames []Envelope) []string {
	names := make([]string, 0, len(frames))
	for _, f := range frames {
		names = append(names, f.Event)
	}
	return names
}

func dispatch(g *Gateway, session *Session, event string, data any) {
	raw, _ := json.Marshal(data)
	g.Dispatch(context.Background(), session, Envelope{Event: event, Data: raw})
}

func TestGateway_AttachAnnouncesPresence(t *testing.T) {
	g, _ := newTestGateway()

	a := g.Attach(types.ConnectedUser{ID: "ua"})
	frames := drain(t, a)
	require.Equal(t, []string{EventAuthenticated}, eventNames(frames))

	var auth AuthenticatedPayload
	decodeData(t, frames[0], &auth)
	assert.Equal(t, "ua", auth.User.ID)

	b := g.Attach(types.ConnectedUser{ID: "ub"})
	frames = drain(t, a)
	require.Equal(t, []string{EventUserOnline}, eventNames(frames))

	var presence PresencePayload
	decodeData(t, frames[0], &presence)
	assert.Equal(t, "ub", presence.UserID)

	// 新连接自身只收到 authenticated，不回放自己的上线广播
	assert.Equal(t, []string{EventAuthenticated}, eventNames(drain(t, b)))
	assert.True(t, g.Presence().IsOnline("ua"))
	assert.True(t, g.Presence().IsOnline("ub"))
}

func TestGateway_AuthenticateFailure(t *testing.T) {
	g, _ := newTestGateway()

	_, err := g.Authenticate(context.Background(), "bad-token")
	assert.Error(t, err)
	assert.Zero(t, g.Hub().Len())
}

func TestGateway_AuthenticateSuccess(t *testing.T) {
	g, _ := newTestGateway()

	user, err := g.Authenticate(context.Background(), "token-a")
	require.NoError(t, err)
	assert.Equal(t, "ua", user.ID)
	assert.Equal(t, "member", user.Role)
}

func TestGateway_SendMessageFanout(t *testing.T) {
	g, store := newTestGateway()

	a := g.Attach(types.ConnectedUser{ID: "ua"})
	b := g.Attach(types.ConnectedUser{ID: "ub"})
	dispatch(g, a, EventJoinConversation, JoinConversationArgs{ConversationID: "c1"})
	dispatch(g, b, EventJoinConversation, JoinConversationArgs{ConversationID: "c1"})
	drain(t, a)
	drain(t, b)

	dispatch(g, a, EventSendMessage, SendMessageArgs{ConversationID: "c1", Content: "hello"})

	bFrames := drain(t, b)
	require.Equal(t, []string{EventNewMessage}, eventNames(bFrames))

	var message types.ChatMessage
	decodeData(t, bFrames[0], &message)
	assert.Equal(t, "hello", message.Content)
	assert.Equal(t, "ua", message.UserID)
	assert.NotEmpty(t, message.ID)

	aFrames := drain(t, a)
	require.Equal(t, []string{EventMessageSent}, eventNames(aFrames))

	var ack MessageSentPayload
	decodeData(t, aFrames[0], &ack)
	assert.Equal(t, message.ID, ack.MessageID)
	assert.Equal(t, "c1", ack.ConversationID)

	require.Len(t, store.sent, 1)
	assert.Equal(t, "ua", store.sent[0].SenderID)
	assert.Equal(t, "hello", store.sent[0].Args.Content)
}

func TestGateway_SendMessageOrdering(t *testing.T) {
	g, _ := newTestGateway()

	a := g.Attach(types.ConnectedUser{ID: "ua"})
	b := g.Attach(types.ConnectedUser{ID: "ub"})
	dispatch(g, a, EventJoinConversation, JoinConversationArgs{ConversationID: "c1"})
	dispatch(g, b, EventJoinConversation, JoinConversationArgs{ConversationID: "c1"})
	drain(t, a)
	drain(t, b)

	dispatch(g, a, EventSendMessage, SendMessageArgs{ConversationID: "c1", Content: "first"})
	dispatch(g, a, EventSendMessage, SendMessageArgs{ConversationID: "c1", Content: "second"})

	frames := drain(t, b)
	require.Equal(t, []string{EventNewMessage, EventNewMessage}, eventNames(frames))

	var m1, m2 types.ChatMessage
	decodeData(t, frames[0], &m1)
	decodeData(t, frames[1], &m2)
	assert.Equal(t, "first", m1.Content)
	assert.Equal(t, "second", m2.Content)
}

func TestGateway_SendMessageFailure(t *testing.T) {
	g, store := newTestGateway()
	store.sendErr = fmt.Errorf("conversation not found")

	a := g.Attach(types.ConnectedUser{ID: "ua"})
	b := g.Attach(types.ConnectedUser{ID: "ub"})
	dispatch(g, a, EventJoinConversation, JoinConversationArgs{ConversationID: "c1"})
	dispatch(g, b, EventJoinConversation, JoinConversationArgs{ConversationID: "c1"})
	drain(t, a)
	drain(t, b)

	dispatch(g, a, EventSendMessage, SendMessageArgs{ConversationID: "c1", Content: "hello"})

	aFrames := drain(t, a)
	require.Equal(t, []string{EventMessageError}, eventNames(aFrames))

	var fail MessageErrorPayload
	decodeData(t, aFrames[0], &fail)
	assert.Equal(t, "c1", fail.ConversationID)
	// 具体失败原因不回传给客户端
	assert.NotContains(t, fail.Error, "not found")

	assert.Empty(t, drain(t, b))
}

func TestGateway_TypingStartAlwaysBroadcasts(t *testing.T) {
	g, _ := newTestGateway()

	a := g.Attach(types.ConnectedUser{ID: "ua"})
	b := g.Attach(types.ConnectedUser{ID: "ub"})
	dispatch(g, a, EventJoinConversation, JoinConversationArgs{ConversationID: "c1"})
	dispatch(g, b, EventJoinConversation, JoinConversationArgs{ConversationID: "c1"})
	drain(t, a)
	drain(t, b)

	dispatch(g, a, EventTypingStart, TypingArgs{ConversationID: "c1"})
	dispatch(g, a, EventTypingStart, TypingArgs{ConversationID: "c1"})

	// 重复 start 同样触发广播，客户端以此刷新 typing 指示的计时
	frames := drain(t, b)
	require.Equal(t, []string{EventTypingStart, EventTypingStart}, eventNames(frames))

	var typing TypingPayload
	decodeData(t, frames[0], &typing)
	assert.Equal(t, "ua", typing.UserID)
	assert.Equal(t, "c1", typing.ConversationID)
}

func TestGateway_TypingStopTolerant(t *testing.T) {
	g, _ := newTestGateway()

	a := g.Attach(types.ConnectedUser{ID: "ua"})
	b := g.Attach(types.ConnectedUser{ID: "ub"})
	dispatch(g, a, EventJoinConversation, JoinConversationArgs{ConversationID: "c1"})
	dispatch(g, b, EventJoinConversation, JoinConversationArgs{ConversationID: "c1"})
	drain(t, a)
	drain(t, b)

	// 未 start 直接 stop 不报错，照常广播
	dispatch(g, a, EventTypingStop, TypingArgs{ConversationID: "c1"})
	assert.Equal(t, []string{EventTypingStop}, eventNames(drain(t, b)))
}

func TestGateway_DisconnectSweepsTyping(t *testing.T) {
	g, _ := newTestGateway()

	a := g.Attach(types.ConnectedUser{ID: "ua"})
	b := g.Attach(types.ConnectedUser{ID: "ub"})
	dispatch(g, a, EventJoinConversation, JoinConversationArgs{ConversationID: "c1"})
	dispatch(g, b, EventJoinConversation, JoinConversationArgs{ConversationID: "c1"})
	dispatch(g, a, EventTypingStart, TypingArgs{ConversationID: "c1"})
	drain(t, a)
	drain(t, b)

	g.Detach(a)

	frames := drain(t, b)
	require.Equal(t, []string{EventTypingStop, EventUserOffline}, eventNames(frames))

	var typing TypingPayload
	decodeData(t, frames[0], &typing)
	assert.Equal(t, "ua", typing.UserID)
	assert.Equal(t, "c1", typing.ConversationID)

	var offline PresencePayload
	decodeData(t, frames[1], &offline)
	assert.Equal(t, "ua", offline.UserID)

	assert.False(t, g.Presence().IsOnline("ua"))
	assert.Empty(t, g.typing.Typists("c1"))
	assert.Empty(t, g.rooms.Rooms(a.ID))
	assert.Equal(t, 1, g.Hub().Len())
}

func TestGateway_LeaveConversationClearsTyping(t *testing.T) {
	g, _ := newTestGateway()

	a := g.Attach(types.ConnectedUser{ID: "ua"})
	b := g.Attach(types.ConnectedUser{ID: "ub"})
	dispatch(g, a, EventJoinConversation, JoinConversationArgs{ConversationID: "c1"})
	dispatch(g, b, EventJoinConversation, JoinConversationArgs{ConversationID: "c1"})
	dispatch(g, a, EventTypingStart, TypingArgs{ConversationID: "c1"})
	drain(t, a)
	drain(t, b)

	dispatch(g, a, EventLeaveConversation, JoinConversationArgs{ConversationID: "c1"})

	assert.Equal(t, []string{EventConversationLeft}, eventNames(drain(t, a)))
	assert.Equal(t, []string{EventTypingStop}, eventNames(drain(t, b)))
	assert.Empty(t, g.typing.Typists("c1"))
}

func TestGateway_MarkAsRead(t *testing.T) {
	g, store := newTestGateway()

	a := g.Attach(types.ConnectedUser{ID: "ua"})
	b := g.Attach(types.ConnectedUser{ID: "ub"})
	dispatch(g, a, EventJoinConversation, JoinConversationArgs{ConversationID: "c1"})
	dispatch(g, b, EventJoinConversation, JoinConversationArgs{ConversationID: "c1"})
	drain(t, a)
	drain(t, b)

	dispatch(g, a, EventMarkAsRead, MarkAsReadArgs{ConversationID: "c1", MessageID: "m9"})

	require.Len(t, store.marked, 1)
	assert.Equal(t, markCall{ConversationID: "c1", UserID: "ua", MessageID: "m9"}, store.marked[0])

	// 回执广播给房间内其他连接，读者自身不收
	frames := drain(t, b)
	require.Equal(t, []string{EventMessagesRead}, eventNames(frames))

	var read MessagesReadPayload
	decodeData(t, frames[0], &read)
	assert.Equal(t, "ua", read.UserID)
	assert.Equal(t, "m9", read.MessageID)

	assert.Empty(t, drain(t, a))
}

func TestGateway_MarkAsReadFailureIsSwallowed(t *testing.T) {
	g, store := newTestGateway()
	store.markErr = fmt.Errorf("conversation not found")

	a := g.Attach(types.ConnectedUser{ID: "ua"})
	b := g.Attach(types.ConnectedUser{ID: "ub"})
	dispatch(g, a, EventJoinConversation, JoinConversationArgs{ConversationID: "c1"})
	dispatch(g, b, EventJoinConversation, JoinConversationArgs{ConversationID: "c1"})
	drain(t, a)
	drain(t, b)

	dispatch(g, a, EventMarkAsRead, MarkAsReadArgs{ConversationID: "c1", MessageID: "m9"})

	assert.Empty(t, drain(t, a))
	assert.Empty(t, drain(t, b))
}

func TestGateway_StatusUpdateGlobalBroadcast(t *testing.T) {
	g, _ := newTestGateway()

	a := g.Attach(types.ConnectedUser{ID: "ua"})
	b := g.Attach(types.ConnectedUser{ID: "ub"})
	c := g.Attach(types.ConnectedUser{ID: "uc"})
	drain(t, a)
	drain(t, b)
	drain(t, c)

	dispatch(g, b, EventUserStatusUpdate, UserStatusUpdateArgs{Status: types.PRESENCE_BUSY})

	for _, session := range []*Session{a, c} {
		frames := drain(t, session)
		require.Equal(t, []string{EventUserStatusChanged}, eventNames(frames))

		var changed StatusChangedPayload
		decodeData(t, frames[0], &changed)
		assert.Equal(t, "ub", changed.UserID)
		assert.Equal(t, types.PRESENCE_BUSY, changed.Status)
	}
	assert.Empty(t, drain(t, b))

	record, _ := g.Presence().Get("ub")
	assert.Equal(t, types.PRESENCE_BUSY, record.Status)
}

func TestGateway_GetOnlineUsers(t *testing.T) {
	g, _ := newTestGateway()

	a := g.Attach(types.ConnectedUser{ID: "ua"})
	g.Attach(types.ConnectedUser{ID: "ub"})
	drain(t, a)

	dispatch(g, a, EventGetOnlineUsers, GetOnlineUsersArgs{UserIDs: []string{"ub", "uz"}})

	frames := drain(t, a)
	require.Equal(t, []string{EventOnlineUsers}, eventNames(frames))

	var online OnlineUsersPayload
	decodeData(t, frames[0], &online)
	assert.Equal(t, []string{"ub"}, online.OnlineUsers)
}

func TestGateway_Ping(t *testing.T) {
	g, _ := newTestGateway()

	a := g.Attach(types.ConnectedUser{ID: "ua"})
	drain(t, a)

	g.Dispatch(context.Background(), a, Envelope{Event: EventPing})
	assert.Equal(t, []string{EventPong}, eventNames(drain(t, a)))
}

func TestGateway_TaskUpdatedPassThrough(t *testing.T) {
	g, store := newTestGateway()

	a := g.Attach(types.ConnectedUser{ID: "ua"})
	b := g.Attach(types.ConnectedUser{ID: "ub"})
	c := g.Attach(types.ConnectedUser{ID: "uc"})
	dispatch(g, a, EventJoinProject, JoinProjectArgs{ProjectID: "p1"})
	dispatch(g, b, EventJoinProject, JoinProjectArgs{ProjectID: "p1"})
	drain(t, a)
	drain(t, b)
	drain(t, c)

	dispatch(g, a, EventTaskUpdated, TaskUpdatedArgs{TaskID: "t1", ProjectID: "p1", Updates: json.RawMessage(`{"status":"done"}`)})

	frames := drain(t, b)
	require.Equal(t, []string{EventTaskUpdated}, eventNames(frames))

	var task TaskUpdatedArgs
	decodeData(t, frames[0], &task)
	assert.Equal(t, "t1", task.TaskID)
	assert.JSONEq(t, `{"status":"done"}`, string(task.Updates))

	assert.Empty(t, drain(t, a))
	assert.Empty(t, drain(t, c))
	assert.Empty(t, store.sent)
}

func TestGateway_JoinIsIdempotentAcrossDispatch(t *testing.T) {
	g, _ := newTestGateway()

	a := g.Attach(types.ConnectedUser{ID: "ua"})
	dispatch(g, a, EventJoinConversation, JoinConversationArgs{ConversationID: "c1"})
	dispatch(g, a, EventJoinConversation, JoinConversationArgs{ConversationID: "c1"})

	assert.Equal(t, []string{"conversation:c1"}, g.rooms.Rooms(a.ID))
	// 每次 join 都会收到确认，即便成员关系未变化
	assert.Equal(t, []string{EventAuthenticated, EventConversationJoined, EventConversationJoined}, eventNames(drain(t, a)))
}

func TestGateway_SweepStaleTyping(t *testing.T) {
	g, _ := newTestGateway()

	a := g.Attach(types.ConnectedUser{ID: "ua"})
	b := g.Attach(types.ConnectedUser{ID: "ub"})
	dispatch(g, a, EventJoinConversation, JoinConversationArgs{ConversationID: "c1"})
	dispatch(g, b, EventJoinConversation, JoinConversationArgs{ConversationID: "c1"})
	dispatch(g, a, EventTypingStart, TypingArgs{ConversationID: "c1"})
	dispatch(g, b, EventTypingStart, TypingArgs{ConversationID: "c1"})
	drain(t, a)
	drain(t, b)

	// 在线用户的输入状态不受巡检影响
	assert.Zero(t, g.SweepStaleTyping())

	// 模拟清扫被跳过的异常断连：在线记录已消失但 typing 残留
	g.presence.Disconnect("ua")
	assert.Equal(t, 1, g.SweepStaleTyping())

	frames := drain(t, b)
	require.Equal(t, []string{EventTypingStop}, eventNames(frames))

	var typing TypingPayload
	decodeData(t, frames[0], &typing)
	assert.Equal(t, "ua", typing.UserID)
	assert.Equal(t, "c1", typing.ConversationID)

	assert.Equal(t, []string{"ub"}, g.typing.Typists("c1"))
	assert.Zero(t, g.SweepStaleTyping())
}

func TestGateway_TaskRelayGuardRejectsReadOnlyRole(t *testing.T) {
	store := &fakeStore{}
	verifier := &fakeVerifier{users: map[string]types.ConnectedUser{}}
	g := NewGateway(verifier, store, WithTaskRelayGuard(func(role string) bool {
		return role != "viewer"
	}))

	viewer := g.Attach(types.ConnectedUser{ID: "uv", Role: "viewer"})
	member := g.Attach(types.ConnectedUser{ID: "um", Role: "member"})
	dispatch(g, viewer, EventJoinProject, JoinProjectArgs{ProjectID: "p1"})
	dispatch(g, member, EventJoinProject, JoinProjectArgs{ProjectID: "p1"})
	drain(t, viewer)
	drain(t, member)

	dispatch(g, viewer, EventTaskUpdated, TaskUpdatedArgs{TaskID: "t1", ProjectID: "p1"})
	assert.Empty(t, drain(t, member))

	dispatch(g, member, EventTaskUpdated, TaskUpdatedArgs{TaskID: "t2", ProjectID: "p1"})
	require.Equal(t, []string{EventTaskUpdated}, eventNames(drain(t, viewer)))
}
