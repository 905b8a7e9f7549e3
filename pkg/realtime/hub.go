package realtime

import (
	"log/slog"
	"sync"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/teamloop/teamloop/pkg/types"
)

const sendBufferSize = 256

// Session 表示一条已通过鉴权的连接，出站帧经 send channel 交由写端异步发送
type Session struct {
	ID   string
	User types.ConnectedUser

	send      chan []byte
	closeOnce sync.Once
}

func NewSession(id string, user types.ConnectedUser) *Session {
	return &Session{
		ID:   id,
		User: user,
		send: make(chan []byte, sendBufferSize),
	}
}

// Outbox 供写端消费出站帧，channel 关闭即会话结束
func (s *Session) Outbox() <-chan []byte {
	return s.send
}

// TrySend 非阻塞投递。慢连接的缓冲写满后帧被丢弃，
// 广播是尽力而为的，不为单个慢消费者阻塞整个扇出。
func (s *Session) TrySend(frame []byte) bool {
	defer func() {
		// send 已关闭的会话直接丢弃
		recover()
	}()

	select {
	case s.send <- frame:
		return true
	default:
		return false
	}
}

func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.send)
	})
}

// Hub 以 connectionID 为键维护全部活跃会话
type Hub struct {
	sessions cmap.ConcurrentMap[string, *Session]
}

func NewHub() *Hub {
	return &Hub{
		sessions: cmap.New[*Session](),
	}
}

func (h *Hub) Register(session *Session) {
	h.sessions.Set(session.ID, session)
}

func (h *Hub) Unregister(connectionID string) {
	if session, ok := h.sessions.Get(connectionID); ok {
		h.sessions.Remove(connectionID)
		session.Close()
	}
}

func (h *Hub) Len() int {
	return h.sessions.Count()
}

// SendTo 向指定连接投递一帧，连接不存在或缓冲已满时返回 false
func (h *Hub) SendTo(connectionID string, frame []byte) bool {
	session, ok := h.sessions.Get(connectionID)
	if !ok {
		return false
	}
	if !session.TrySend(frame) {
		slog.Warn("Session send buffer full, frame dropped",
			slog.String("connection_id", connectionID),
			slog.String("user_id", session.User.ID))
		return false
	}
	return true
}

// Broadcast 向除 except 以外的所有会话投递一帧，返回成功投递数
func (h *Hub) Broadcast(frame []byte, except ...string) int {
	skip := make(map[string]struct{}, len(except))
	for _, id := range except {
		skip[id] = struct{}{}
	}

	var delivered int
	for _, session := range h.sessions.Items() {
		if _, ok := skip[session.ID]; ok {
			continue
		}
		if session.TrySend(frame) {
			delivered++
		}
	}
	return delivered
}
