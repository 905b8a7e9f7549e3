package v1

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/teamloop/teamloop/app/core"
	"github.com/teamloop/teamloop/pkg/errors"
	"github.com/teamloop/teamloop/pkg/i18n"
	"github.com/teamloop/teamloop/pkg/types"
	"github.com/teamloop/teamloop/pkg/utils"
)

// 用户访问令牌数量上限，超出后创建新令牌前需要清理旧令牌
const userAccessTokenLimit = 10

// logic for unlogin
type UserLogic struct {
	ctx  context.Context
	core *core.Core
}

func NewUserLogic(ctx context.Context, core *core.Core) *UserLogic {
	l := &UserLogic{
		ctx:  ctx,
		core: core,
	}

	return l
}

func (l *UserLogic) Register(appid, name, email, password string) (string, error) {
	exist, err := l.core.Store().UserStore().GetByEmail(l.ctx, appid, email)
	if err != nil && err != sql.ErrNoRows {
		return "", errors.New("UserLogic.Register.UserStore.GetByEmail", i18n.ERROR_INTERNAL, err)
	}
	if exist != nil {
		return "", errors.New("UserLogic.Register.UserStore.GetByEmail.exist", i18n.ERROR_EXIST, nil).Code(http.StatusConflict)
	}

	salt := utils.RandomStr(10)
	userID := utils.GenUniqIDStr()

	err = l.core.Store().UserStore().Create(l.ctx, types.User{
		ID:        userID,
		Appid:     appid,
		Name:      name,
		Email:     email,
		Role:      "role-member",
		Salt:      salt,
		Password:  utils.GenUserPassword(salt, password),
		UpdatedAt: time.Now().Unix(),
		CreatedAt: time.Now().Unix(),
	})
	if err != nil {
		return "", errors.New("UserLogic.Register.UserStore.Create", i18n.ERROR_INTERNAL, err)
	}

	return userID, nil
}

func (l *UserLogic) Login(appid, email, password string) (string, error) {
	user, err := l.core.Store().UserStore().GetByEmail(l.ctx, appid, email)
	if err != nil && err != sql.ErrNoRows {
		return "", errors.New("UserLogic.Login.UserStore.GetByEmail", i18n.ERROR_INTERNAL, err)
	}

	if user == nil || user.Password != utils.GenUserPassword(user.Salt, password) {
		return "", errors.New("UserLogic.Login.Password.check", i18n.ERROR_INVALID_ACCOUNT, err).Code(http.StatusBadRequest)
	}

	accessToken := utils.MD5(user.ID + utils.GenRandomID())
	err = l.core.Store().AccessTokenStore().Create(l.ctx, types.AccessToken{
		Appid:     appid,
		UserID:    user.ID,
		Token:     accessToken,
		Version:   types.DEFAULT_ACCESS_TOKEN_VERSION,
		Info:      "login",
		ExpiresAt: time.Now().AddDate(0, 1, 0).Unix(),
		CreatedAt: time.Now().Unix(),
	})
	if err != nil {
		return "", errors.New("UserLogic.Login.AccessTokenStore.Create", i18n.ERROR_INTERNAL, err)
	}

	return accessToken, nil
}

type AuthedUserLogic struct {
	ctx  context.Context
	core *core.Core
}

func NewAuthedUserLogic(ctx context.Context, core *core.Core) *AuthedUserLogic {
	return &AuthedUserLogic{
		ctx:  ctx,
		core: core,
	}
}

func (l *AuthedUserLogic) GetUser(appid, id string) (*types.User, error) {
	user, err := l.core.Store().UserStore().GetUser(l.ctx, appid, id)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.New("AuthedUserLogic.GetUser.UserStore.GetUser", i18n.ERROR_INTERNAL, err)
	}

	if user == nil {
		return nil, errors.New("AuthedUserLogic.GetUser.UserStore.GetUser.nil", i18n.ERROR_NOT_FOUND, nil).Code(http.StatusNotFound)
	}

	return user, nil
}

func (l *AuthedUserLogic) UpdateUserProfile(appid, id, name, email string) error {
	if err := l.core.Store().UserStore().UpdateUserProfile(l.ctx, id, name, email); err != nil {
		return errors.New("AuthedUserLogic.UpdateUserProfile.UserStore.UpdateUserProfile", i18n.ERROR_INTERNAL, err)
	}
	return nil
}

// CreateAccessToken 为调用方签发新的 DB 访问令牌，超出上限时先清空旧令牌
func (l *AuthedUserLogic) CreateAccessToken(appid, userID, info string) (string, error) {
	const trace = "AuthedUserLogic.CreateAccessToken"

	tokens, err := l.core.Store().AccessTokenStore().ListAccessTokens(l.ctx, appid, userID, 1, userAccessTokenLimit+1)
	if err != nil && err != sql.ErrNoRows {
		return "", errors.New(trace+".AccessTokenStore.ListAccessTokens", i18n.ERROR_INTERNAL, err)
	}

	if len(tokens) >= userAccessTokenLimit {
		if err := l.core.Store().AccessTokenStore().ClearUserTokens(l.ctx, appid, userID); err != nil {
			return "", errors.New(trace+".AccessTokenStore.ClearUserTokens", i18n.ERROR_INTERNAL, err)
		}
	}

	token := utils.RandomStr(64)
	err = l.core.Store().AccessTokenStore().Create(l.ctx, types.AccessToken{
		Appid:     appid,
		UserID:    userID,
		Token:     token,
		Version:   types.DEFAULT_ACCESS_TOKEN_VERSION,
		Info:      info,
		ExpiresAt: time.Now().AddDate(1, 0, 0).Unix(),
		CreatedAt: time.Now().Unix(),
	})
	if err != nil {
		return "", errors.New(trace+".AccessTokenStore.Create", i18n.ERROR_INTERNAL, err)
	}

	return token, nil
}

func (l *AuthedUserLogic) GetAccessTokens(appid, userID string, page, pageSize uint64) ([]types.AccessToken, error) {
	list, err := l.core.Store().AccessTokenStore().ListAccessTokens(l.ctx, appid, userID, page, pageSize)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.New("AuthedUserLogic.GetAccessTokens.AccessTokenStore.ListAccessTokens", i18n.ERROR_INTERNAL, err)
	}
	return list, nil
}

func (l *AuthedUserLogic) DeleteAccessToken(appid, userID, token string) error {
	if err := l.core.Store().AccessTokenStore().Delete(l.ctx, appid, userID, token); err != nil {
		return errors.New("AuthedUserLogic.DeleteAccessToken.AccessTokenStore.Delete", i18n.ERROR_INTERNAL, err)
	}
	return nil
}
