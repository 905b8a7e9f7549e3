package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/teamloop/teamloop/app/response"
)

type GetOnlineUsersRequest struct {
	UserIDs []string `json:"user_ids" form:"user_ids"`
}

type GetOnlineUsersResponse struct {
	OnlineUsers []string `json:"online_users"`
}

// GetOnlineUsers 返回当前在线的用户列表，带 user_ids 时仅筛选其中在线的部分
func (s *HttpSrv) GetOnlineUsers(c *gin.Context) {
	var req GetOnlineUsersRequest
	// 查询参数可选，绑定失败按空过滤处理
	_ = c.ShouldBindQuery(&req)

	gateway := s.Core.Srv().Realtime()
	if gateway == nil {
		response.APISuccess(c, GetOnlineUsersResponse{OnlineUsers: []string{}})
		return
	}

	online := gateway.Presence().OnlineUsers(req.UserIDs)
	if online == nil {
		online = []string{}
	}

	response.APISuccess(c, GetOnlineUsersResponse{OnlineUsers: online})
}
