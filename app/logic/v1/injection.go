package v1

import (
	"context"

	"github.com/teamloop/teamloop/pkg/security"
)

const (
	TOKEN_CONTEXT_KEY = "__teamloop.access_token"
	APPID_KEY         = "__teamloop.appid"
)

func InjectAppid(ctx context.Context) (string, bool) {
	val, ok := ctx.Value(APPID_KEY).(string)
	return val, ok
}

// InjectTokenClaim get user/platform token claims from context
func InjectTokenClaim(ctx context.Context) (security.TokenClaims, bool) {
	val, ok := ctx.Value(TOKEN_CONTEXT_KEY).(security.TokenClaims)
	return val, ok
}
