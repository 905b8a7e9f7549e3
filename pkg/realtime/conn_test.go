package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamloop/teamloop/pkg/types"
)

// newTransportServer 起一个最小握手端点，与线上处理器同构：
// 先升级再鉴权，失败直接关闭传输，成功则 Attach 后进入读写循环
func newTransportServer(t *testing.T, g *Gateway) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		user, err := g.Authenticate(r.Context(), r.URL.Query().Get("token"))
		if err != nil {
			CloseUnauthenticated(ws, "authentication failed")
			return
		}

		session := g.Attach(user)
		g.ServeConn(r.Context(), ws, session)
	}))
	t.Cleanup(server.Close)
	return server
}

func dialTransport(t *testing.T, server *httptest.Server, token string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
		_ = resp.Body.Close()
	})
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second*2)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	return env
}

func writeFrame(t *testing.T, conn *websocket.Conn, event string, payload any) {
	t.Helper()

	data, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(Envelope{Event: event, Data: data}))
}

func TestTransport_InvalidTokenClosesConnection(t *testing.T) {
	g, _ := newTestGateway()
	server := newTransportServer(t, g)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "?token=bad-token"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	defer func() { _ = resp.Body.Close() }()

	// 升级完成后第一个到达的必须是 policy violation 关闭帧，没有任何数据帧
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second*2)))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), "unexpected read result: %v", err)

	// 鉴权失败的连接不登记任何状态
	assert.Zero(t, g.Hub().Len())
	assert.Empty(t, g.Presence().OnlineUsers(nil))
}

func TestTransport_MissingTokenClosesConnection(t *testing.T) {
	g, _ := newTestGateway()
	server := newTransportServer(t, g)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	defer func() { _ = resp.Body.Close() }()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second*2)))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), "unexpected read result: %v", err)
	assert.Zero(t, g.Hub().Len())
}

func TestTransport_AbruptDisconnectReconciliation(t *testing.T) {
	store := &fakeStore{}
	verifier := &fakeVerifier{users: map[string]types.ConnectedUser{
		"token-a": {ID: "ua", Role: "member"},
		"token-b": {ID: "ub", Role: "member"},
	}}
	g := NewGateway(verifier, store)
	server := newTransportServer(t, g)

	a := dialTransport(t, server, "token-a")
	require.Equal(t, EventAuthenticated, readFrame(t, a).Event)

	b := dialTransport(t, server, "token-b")
	require.Equal(t, EventAuthenticated, readFrame(t, b).Event)
	require.Equal(t, EventUserOnline, readFrame(t, a).Event)

	writeFrame(t, a, EventJoinConversation, JoinConversationArgs{ConversationID: "c1"})
	require.Equal(t, EventConversationJoined, readFrame(t, a).Event)
	writeFrame(t, b, EventJoinConversation, JoinConversationArgs{ConversationID: "c1"})
	require.Equal(t, EventConversationJoined, readFrame(t, b).Event)

	writeFrame(t, a, EventTypingStart, TypingArgs{ConversationID: "c1"})
	require.Equal(t, EventTypingStart, readFrame(t, b).Event)

	// 不走 close 握手，直接断开底层连接
	require.NoError(t, a.Close())

	// 对端观察到完整的断连清理：恰好一次 typing_stop，随后 user_offline
	var frames []Envelope
	for {
		env := readFrame(t, b)
		frames = append(frames, env)
		if env.Event == EventUserOffline {
			break
		}
	}
	require.Equal(t, []string{EventTypingStop, EventUserOffline}, eventNames(frames))

	var stop TypingPayload
	decodeData(t, frames[0], &stop)
	assert.Equal(t, "ua", stop.UserID)
	assert.Equal(t, "c1", stop.ConversationID)

	var offline PresencePayload
	decodeData(t, frames[1], &offline)
	assert.Equal(t, "ua", offline.UserID)

	assert.False(t, g.Presence().IsOnline("ua"))
	assert.True(t, g.Presence().IsOnline("ub"))
	assert.Eventually(t, func() bool { return g.Hub().Len() == 1 }, time.Second, time.Millisecond*10)
}
