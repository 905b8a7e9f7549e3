package service

import (
	"github.com/gin-gonic/gin"

	"github.com/teamloop/teamloop/app/core"
	v1 "github.com/teamloop/teamloop/app/logic/v1"
	"github.com/teamloop/teamloop/app/response"
	"github.com/teamloop/teamloop/cmd/service/handler"
	"github.com/teamloop/teamloop/cmd/service/middleware"
	"github.com/teamloop/teamloop/pkg/metrics"
)

func serve(core *core.Core) {
	httpSrv := &handler.HttpSrv{
		Core:   core,
		Engine: core.HttpEngine(),
	}
	setupHttpRouter(httpSrv)

	core.HttpEngine().Run(core.Cfg().Addr)
}

func GetIPLimitBuilder(appCore *core.Core) middleware.LimiterFunc {
	return func(key string, opts ...core.LimitOption) gin.HandlerFunc {
		return middleware.UseLimit(appCore, key, func(c *gin.Context) string {
			return key + ":" + c.ClientIP()
		}, opts...)
	}
}

func GetUserLimitBuilder(appCore *core.Core) middleware.LimiterFunc {
	return func(key string, opts ...core.LimitOption) gin.HandlerFunc {
		return middleware.UseLimit(appCore, key, func(c *gin.Context) string {
			token, _ := v1.InjectTokenClaim(c)
			return key + ":" + token.User
		}, opts...)
	}
}

func setupHttpRouter(s *handler.HttpSrv) {
	ipLimit := GetIPLimitBuilder(s.Core)
	userLimit := GetUserLimitBuilder(s.Core)

	s.Engine.GET("/metrics", metrics.DefaultExportHandler())

	s.Engine.Use(middleware.I18n(), response.NewResponse())
	s.Engine.Use(middleware.Cors)
	s.Engine.Use(middleware.Metrics(s.Core))
	s.Engine.Use(middleware.SetAppid(s.Core))
	apiV1 := s.Engine.Group("/api/v1")
	{
		// 实时连接的鉴权在升级之后由网关完成，不走 REST 鉴权中间件
		apiV1.GET("/connect", handler.Websocket(s.Core))

		login := apiV1.Group("/login")
		{
			login.Use(ipLimit("login", core.WithLimit(10)))
			login.POST("/register", s.Register)
			login.POST("/token", s.Login)
		}

		authed := apiV1.Group("")
		authed.Use(middleware.Authorization(s.Core))

		authed.GET("/presence/online", s.GetOnlineUsers)

		user := authed.Group("/user")
		{
			user.GET("/info", s.GetUser)
			user.PUT("/profile", userLimit("profile"), s.UpdateUserProfile)
			user.POST("/secret/token", s.CreateAccessToken)
			user.GET("/secret/tokens", s.GetUserAccessTokens)
			user.DELETE("/secret/tokens", s.DeleteAccessToken)
		}

		conversation := authed.Group("/conversation")
		{
			conversation.POST("", userLimit("modify_conversation"), s.CreateConversation)
			conversation.GET("/list", s.ListConversations)
			conversation.GET("/:conversation", s.GetConversation)
			conversation.DELETE("/:conversation", userLimit("modify_conversation"), s.DeleteConversation)
			conversation.GET("/:conversation/message/list", s.ListConversationMessages)
		}
	}
}
