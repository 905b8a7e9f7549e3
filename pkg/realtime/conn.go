package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teamloop/teamloop/pkg/safe"
)

const (
	writeWait      = time.Second * 10
	pongWait       = time.Second * 60
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 16
)

// CloseUnauthenticated 在鉴权失败时直接关闭传输。
// 此时连接未注册任何状态，不会产生需要清理的半建立会话。
func CloseUnauthenticated(ws *websocket.Conn, reason string) {
	deadline := time.Now().Add(writeWait)
	_ = ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), deadline)
	_ = ws.Close()
}

// ServeConn 驱动一条已鉴权连接的读写循环，读端退出时执行断连清理。
// 调用方阻塞直到连接结束。
func (g *Gateway) ServeConn(ctx context.Context, ws *websocket.Conn, session *Session) {
	go safe.Run(func() {
		g.writePump(ws, session)
	})

	g.readPump(ctx, ws, session)
}

func (g *Gateway) readPump(ctx context.Context, ws *websocket.Conn, session *Session) {
	defer func() {
		g.Detach(session)
		_ = ws.Close()
	}()

	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				g.logger.Warn("Unexpected websocket close",
					slog.String("connection_id", session.ID),
					slog.String("error", err.Error()))
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			g.logger.Debug("Malformed event frame ignored",
				slog.String("connection_id", session.ID),
				slog.String("error", err.Error()))
			continue
		}

		// 同一连接的事件在此串行处理，保证到达顺序即处理顺序
		g.Dispatch(ctx, session, env)
	}
}

func (g *Gateway) writePump(ws *websocket.Conn, session *Session) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = ws.Close()
	}()

	for {
		select {
		case frame, ok := <-session.Outbox():
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
