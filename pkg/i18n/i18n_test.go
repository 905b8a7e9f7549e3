package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocalizerGet(t *testing.T) {
	l := NewLocalizer("zh-CN", "en")

	assert.Equal(t, "Unauthorized", l.Get("en", ERROR_UNAUTHORIZED))
	assert.Equal(t, "权限不足", l.Get("zh-CN", ERROR_PERMISSION_DENIED))
	// unknown languages fall back to the message id
	assert.Equal(t, ERROR_INTERNAL, l.Get("fr", ERROR_INTERNAL))
}
