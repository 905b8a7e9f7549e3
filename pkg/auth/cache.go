package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/teamloop/teamloop/pkg/errors"
	"github.com/teamloop/teamloop/pkg/i18n"
	"github.com/teamloop/teamloop/pkg/types"
	"github.com/teamloop/teamloop/pkg/utils"
)

func tokenCacheKey(tokenValue string) string {
	return fmt.Sprintf("user:token:%s", utils.MD5(tokenValue))
}

// ValidateTokenFromCache 从缓存中验证 auth token
func ValidateTokenFromCache(ctx context.Context, tokenValue string, cache types.Cache) (*types.UserTokenMeta, error) {
	if tokenValue == "" {
		return nil, errors.New("auth.ValidateTokenFromCache.empty_token", i18n.ERROR_UNAUTHORIZED, nil).Code(http.StatusUnauthorized)
	}

	tokenMetaStr, err := cache.Get(ctx, tokenCacheKey(tokenValue))
	if err != nil && err != redis.Nil {
		return nil, errors.New("auth.ValidateTokenFromCache.cache_get", i18n.ERROR_INTERNAL, err)
	}

	if tokenMetaStr == "" {
		return nil, errors.New("auth.ValidateTokenFromCache.token_not_found", i18n.ERROR_UNAUTHORIZED, fmt.Errorf("nil token")).Code(http.StatusUnauthorized)
	}

	var meta types.UserTokenMeta
	if err := json.Unmarshal([]byte(tokenMetaStr), &meta); err != nil {
		return nil, errors.New("auth.ValidateTokenFromCache.unmarshal", i18n.ERROR_INTERNAL, err).Code(http.StatusUnauthorized)
	}

	// 缓存条目的 TTL 与 token 本身的有效期是两回事，过期时间要单独校验
	if meta.ExpireAt > 0 && meta.ExpireAt < time.Now().Unix() {
		return nil, errors.New("auth.ValidateTokenFromCache.expired", i18n.ERROR_INVALID_TOKEN, nil).Code(http.StatusUnauthorized)
	}

	return &meta, nil
}

// CacheTokenMeta 将通过数据库校验的 token 写入缓存，降低热点 token 的查询压力
func CacheTokenMeta(ctx context.Context, tokenValue string, meta *types.UserTokenMeta, ttl time.Duration, cache types.Cache) error {
	raw, err := json.Marshal(meta)
	if err != nil {
		return errors.New("auth.CacheTokenMeta.marshal", i18n.ERROR_INTERNAL, err)
	}

	if err = cache.SetEx(ctx, tokenCacheKey(tokenValue), string(raw), ttl); err != nil {
		return errors.New("auth.CacheTokenMeta.cache_set", i18n.ERROR_INTERNAL, err)
	}
	return nil
}
