package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	v1 "github.com/teamloop/teamloop/app/logic/v1"
	"github.com/teamloop/teamloop/app/response"
	"github.com/teamloop/teamloop/pkg/types"
	"github.com/teamloop/teamloop/pkg/utils"
)

type RegisterRequest struct {
	UserName string `json:"user_name" form:"user_name" binding:"required,max=32"`
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required,min=8,max=64"`
}

type RegisterResponse struct {
	UserID string `json:"user_id"`
}

func (s *HttpSrv) Register(c *gin.Context) {
	var (
		err error
		req RegisterRequest
	)
	if err = utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	appid, _ := v1.InjectAppid(c)
	userID, err := v1.NewUserLogic(c, s.Core).Register(appid, req.UserName, req.Email, req.Password)
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, RegisterResponse{UserID: userID})
}

type LoginRequest struct {
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
}

func (s *HttpSrv) Login(c *gin.Context) {
	var (
		err error
		req LoginRequest
	)
	if err = utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	appid, _ := v1.InjectAppid(c)
	token, err := v1.NewUserLogic(c, s.Core).Login(appid, req.Email, req.Password)
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, LoginResponse{AccessToken: token})
}

type GetUserResponse struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar"`
	Role     string `json:"role"`
	Appid    string `json:"appid"`
}

func (s *HttpSrv) GetUser(c *gin.Context) {
	claims, _ := v1.InjectTokenClaim(c)

	user, err := v1.NewAuthedUserLogic(c, s.Core).GetUser(claims.Appid, claims.User)
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, GetUserResponse{
		UserID:   user.ID,
		UserName: user.Name,
		Email:    user.Email,
		Avatar:   user.Avatar,
		Role:     user.Role,
		Appid:    user.Appid,
	})
}

type UpdateUserProfileRequest struct {
	UserName string `json:"user_name" form:"user_name" binding:"required,max=32"`
	Email    string `json:"email" form:"email" binding:"required,email"`
}

func (s *HttpSrv) UpdateUserProfile(c *gin.Context) {
	var (
		err error
		req UpdateUserProfileRequest
	)
	if err = utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	claims, _ := v1.InjectTokenClaim(c)
	err = v1.NewAuthedUserLogic(c, s.Core).UpdateUserProfile(claims.Appid, claims.User, req.UserName, req.Email)
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, nil)
}

type CreateAccessTokenRequest struct {
	Desc string `json:"desc" binding:"required"`
}

type CreateAccessTokenResponse struct {
	Token string `json:"token"`
}

func (s *HttpSrv) CreateAccessToken(c *gin.Context) {
	var (
		err error
		req CreateAccessTokenRequest
	)
	if err = utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	claims, _ := v1.InjectTokenClaim(c)
	token, err := v1.NewAuthedUserLogic(c, s.Core).CreateAccessToken(claims.Appid, claims.User, req.Desc)
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, CreateAccessTokenResponse{Token: token})
}

type GetUserAccessTokensRequest struct {
	Page     uint64 `json:"page" form:"page" binding:"required"`
	Pagesize uint64 `json:"pagesize" form:"pagesize" binding:"required,lte=50"`
}

type GetUserAccessTokensResponse struct {
	List []types.AccessToken `json:"list"`
}

func (s *HttpSrv) GetUserAccessTokens(c *gin.Context) {
	var (
		err error
		req GetUserAccessTokensRequest
	)
	if err = utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	claims, _ := v1.InjectTokenClaim(c)
	list, err := v1.NewAuthedUserLogic(c, s.Core).GetAccessTokens(claims.Appid, claims.User, req.Page, req.Pagesize)
	if err != nil {
		response.APIError(c, err)
		return
	}

	masked := lo.Map(list, func(item types.AccessToken, _ int) types.AccessToken {
		item.Token = utils.MaskString(item.Token, 6, 4)
		return item
	})

	response.APISuccess(c, GetUserAccessTokensResponse{List: masked})
}

type DeleteAccessTokenRequest struct {
	Token string `json:"token" form:"token" binding:"required"`
}

func (s *HttpSrv) DeleteAccessToken(c *gin.Context) {
	var (
		err error
		req DeleteAccessTokenRequest
	)
	if err = utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	claims, _ := v1.InjectTokenClaim(c)
	if err = v1.NewAuthedUserLogic(c, s.Core).DeleteAccessToken(claims.Appid, claims.User, req.Token); err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, nil)
}
