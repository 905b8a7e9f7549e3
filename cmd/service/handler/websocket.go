package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"

	"github.com/teamloop/teamloop/app/core"
	"github.com/teamloop/teamloop/app/response"
	"github.com/teamloop/teamloop/pkg/errors"
	"github.com/teamloop/teamloop/pkg/i18n"
	"github.com/teamloop/teamloop/pkg/realtime"
)

func newUpgrader(allowedOrigins []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			return lo.Contains(allowedOrigins, r.Header.Get("Origin"))
		},
	}
}

// Websocket 将 HTTP 请求升级为实时连接。
// 鉴权放在升级之后执行，失败时以策略违规关闭帧结束连接，
// 任何事件处理都不会在鉴权通过前注册。
func Websocket(core *core.Core) func(c *gin.Context) {
	gateway := core.Srv().Realtime()
	if gateway == nil {
		return func(c *gin.Context) {
			response.APIError(c, errors.New("api.Websocket", i18n.ERROR_WEBSOCKET_UPGRADE, nil).Code(http.StatusServiceUnavailable))
		}
	}

	upgrader := newUpgrader(core.Cfg().Realtime.AllowedOrigins)

	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			token = c.GetHeader("Sec-WebSocket-Protocol")
		}

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("Websocket upgrade err", slog.String("error", err.Error()))
			response.APIError(c, errors.New("api.Websocket", i18n.ERROR_WEBSOCKET_UPGRADE, err))
			return
		}

		user, err := gateway.Authenticate(c.Request.Context(), token)
		if err != nil {
			slog.Warn("Websocket authentication rejected",
				slog.String("remote", c.ClientIP()),
				slog.String("error", err.Error()))
			realtime.CloseUnauthenticated(ws, "authentication failed")
			return
		}

		session := gateway.Attach(user)
		gateway.ServeConn(c.Request.Context(), ws, session)
	}
}
