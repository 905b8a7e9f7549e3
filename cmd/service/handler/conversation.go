package handler

import (
	"github.com/gin-gonic/gin"

	v1 "github.com/teamloop/teamloop/app/logic/v1"
	"github.com/teamloop/teamloop/app/response"
	"github.com/teamloop/teamloop/pkg/types"
	"github.com/teamloop/teamloop/pkg/utils"
)

type CreateConversationRequest struct {
	Title        string   `json:"title" binding:"required,max=128"`
	Participants []string `json:"participants"`
}

func (s *HttpSrv) CreateConversation(c *gin.Context) {
	var (
		err error
		req CreateConversationRequest
	)
	if err = utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	claims, _ := v1.InjectTokenClaim(c)
	conversation, err := v1.NewConversationLogic(c, s.Core).CreateConversation(claims.User, req.Title, req.Participants)
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, conversation)
}

type ListConversationsRequest struct {
	Page     uint64 `json:"page" form:"page" binding:"required"`
	Pagesize uint64 `json:"pagesize" form:"pagesize" binding:"required,lte=50"`
}

type ListConversationsResponse struct {
	List []types.Conversation `json:"list"`
}

func (s *HttpSrv) ListConversations(c *gin.Context) {
	var (
		err error
		req ListConversationsRequest
	)
	if err = utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	claims, _ := v1.InjectTokenClaim(c)
	list, err := v1.NewConversationLogic(c, s.Core).ListConversations(claims.User, req.Page, req.Pagesize)
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, ListConversationsResponse{List: list})
}

func (s *HttpSrv) GetConversation(c *gin.Context) {
	conversationID, _ := c.Params.Get("conversation")

	claims, _ := v1.InjectTokenClaim(c)
	conversation, err := v1.NewConversationLogic(c, s.Core).GetConversation(conversationID, claims.User)
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, conversation)
}

func (s *HttpSrv) DeleteConversation(c *gin.Context) {
	conversationID, _ := c.Params.Get("conversation")

	claims, _ := v1.InjectTokenClaim(c)
	if err := v1.NewConversationLogic(c, s.Core).DeleteConversation(conversationID, claims.User); err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, nil)
}

type ListConversationMessagesRequest struct {
	Page     uint64 `json:"page" form:"page" binding:"required"`
	Pagesize uint64 `json:"pagesize" form:"pagesize" binding:"required,lte=100"`
}

type ListConversationMessagesResponse struct {
	List  []types.ChatMessage `json:"list"`
	Total int64               `json:"total"`
}

func (s *HttpSrv) ListConversationMessages(c *gin.Context) {
	var (
		err error
		req ListConversationMessagesRequest
	)
	if err = utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	conversationID, _ := c.Params.Get("conversation")

	claims, _ := v1.InjectTokenClaim(c)
	list, total, err := v1.NewChatMessageLogic(c, s.Core).ListMessages(conversationID, claims.User, req.Page, req.Pagesize)
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, ListConversationMessagesResponse{
		List:  list,
		Total: total,
	})
}
