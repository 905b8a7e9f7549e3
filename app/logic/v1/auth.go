package v1

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/teamloop/teamloop/app/core"
	"github.com/teamloop/teamloop/pkg/auth"
	"github.com/teamloop/teamloop/pkg/errors"
	"github.com/teamloop/teamloop/pkg/i18n"
	"github.com/teamloop/teamloop/pkg/security"
	"github.com/teamloop/teamloop/pkg/types"
	"github.com/teamloop/teamloop/pkg/utils"
)

type AuthLogic struct {
	ctx  context.Context
	core *core.Core
}

func NewAuthLogic(ctx context.Context, core *core.Core) *AuthLogic {
	return &AuthLogic{
		ctx:  ctx,
		core: core,
	}
}

// InitAdminUser 初始化管理员账号并签发永不过期的 access token
func (l *AuthLogic) InitAdminUser(appid string) (string, error) {
	userID := utils.GenRandomID()
	var accessToken string
	err := l.core.Store().Transaction(l.ctx, func(ctx context.Context) error {
		err := l.core.Store().UserStore().Create(ctx, types.User{
			ID:     userID,
			Appid:  appid,
			Name:   "Admin",
			Avatar: "/avatar/default.png",
			Role:   "role-admin",
		})
		if err != nil {
			return errors.New("AuthLogic.InitAdminUser.CreateUser", i18n.ERROR_INTERNAL, err)
		}

		tokenStore := l.core.Store().AccessTokenStore()
	REGEN:
		accessToken = utils.RandomStr(100)
		exist, err := tokenStore.GetAccessToken(ctx, appid, accessToken)
		if err != nil && err != sql.ErrNoRows {
			return errors.New("AuthLogic.InitAdminUser.GetAccessToken", i18n.ERROR_INTERNAL, err)
		}

		if exist != nil {
			goto REGEN
		}

		err = tokenStore.Create(ctx, types.AccessToken{
			Appid:     appid,
			UserID:    userID,
			Version:   types.DEFAULT_ACCESS_TOKEN_VERSION,
			Token:     accessToken,
			ExpiresAt: time.Now().AddDate(999, 0, 0).Unix(),
			Info:      "Admin user token",
		})
		if err != nil {
			return errors.New("AuthLogic.InitAdminUser.CreateToken", i18n.ERROR_INTERNAL, err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	return accessToken, nil
}

const defaultTokenCacheTTL = time.Hour * 24

// RealtimeAuth 是实时网关的握手鉴权实现。
// 校验顺序：缓存中的已验证 token → 登录签发的 JWT → 数据库中的长期 access token。
type RealtimeAuth struct {
	core *core.Core
}

func NewRealtimeAuth(core *core.Core) *RealtimeAuth {
	return &RealtimeAuth{core: core}
}

func (l *RealtimeAuth) VerifyAccessToken(ctx context.Context, token string) (types.ConnectedUser, error) {
	if token == "" {
		return types.ConnectedUser{}, errors.New("RealtimeAuth.VerifyAccessToken.empty", i18n.ERROR_INVALID_TOKEN, nil).Code(http.StatusUnauthorized)
	}

	if meta, err := auth.ValidateTokenFromCache(ctx, token, l.core.Cache()); err == nil {
		return l.connectedUser(ctx, meta.Appid, meta.UserID)
	}

	if len(l.core.PublicKey()) > 0 {
		if claims, err := security.VerifyToken(token, l.core.PublicKey()); err == nil {
			return types.ConnectedUser{
				ID:    claims.User,
				Email: claims.Email,
				Role:  claims.Role,
			}, nil
		}
	}

	return l.verifyDatabaseToken(ctx, token)
}

func (l *RealtimeAuth) verifyDatabaseToken(ctx context.Context, token string) (types.ConnectedUser, error) {
	record, err := l.core.Store().AccessTokenStore().GetAccessToken(ctx, l.core.DefaultAppid(), token)
	if err != nil {
		if err == sql.ErrNoRows {
			return types.ConnectedUser{}, errors.New("RealtimeAuth.verifyDatabaseToken.notfound", i18n.ERROR_INVALID_TOKEN, err).Code(http.StatusUnauthorized)
		}
		return types.ConnectedUser{}, errors.New("RealtimeAuth.verifyDatabaseToken.GetAccessToken", i18n.ERROR_INTERNAL, err)
	}

	if record.ExpiresAt < time.Now().Unix() {
		return types.ConnectedUser{}, errors.New("RealtimeAuth.verifyDatabaseToken.expired", i18n.ERROR_INVALID_TOKEN, nil).Code(http.StatusUnauthorized)
	}

	user, err := l.connectedUser(ctx, record.Appid, record.UserID)
	if err != nil {
		return types.ConnectedUser{}, err
	}

	ttl := defaultTokenCacheTTL
	if cfg := l.core.Cfg().Security.TokenCacheTTL; cfg > 0 {
		ttl = time.Second * time.Duration(cfg)
	}
	// 缓存条目不得比 token 本身活得久
	if remain := time.Until(time.Unix(record.ExpiresAt, 0)); remain < ttl {
		ttl = remain
	}
	// 缓存写失败不影响本次握手
	if err = auth.CacheTokenMeta(ctx, token, &types.UserTokenMeta{
		Appid:    record.Appid,
		UserID:   record.UserID,
		ExpireAt: record.ExpiresAt,
	}, ttl, l.core.Cache()); err != nil {
		slog.Warn("Failed to cache verified token", slog.String("error", err.Error()))
	}

	return user, nil
}

func (l *RealtimeAuth) connectedUser(ctx context.Context, appid, userID string) (types.ConnectedUser, error) {
	user, err := l.core.Store().UserStore().GetUser(ctx, appid, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return types.ConnectedUser{}, errors.New("RealtimeAuth.connectedUser.notfound", i18n.ERROR_INVALID_TOKEN, err).Code(http.StatusUnauthorized)
		}
		return types.ConnectedUser{}, errors.New("RealtimeAuth.connectedUser.GetUser", i18n.ERROR_INTERNAL, err)
	}

	return types.ConnectedUser{
		ID:    user.ID,
		Email: user.Email,
		Role:  user.Role,
	}, nil
}
