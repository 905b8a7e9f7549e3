package i18n

var ALLOW_LANG = map[string]bool{
	"en":    true,
	"zh-CN": true,
}

const DEFAULT_LANG = "en"

const (
	ERROR_INTERNAL          = "error.internal"
	ERROR_NOT_FOUND         = "error.notfound"
	ERROR_INVALIDARGUMENT   = "error.invalidargument"
	ERROR_PERMISSION_DENIED = "error.permission.denied"
	ERROR_UNAUTHORIZED      = "error.unauthorized"
	ERROR_FORBIDDEN         = "error.forbidden"
	ERROR_TOO_MANY_REQUESTS = "error.tooManyRequests"
	ERROR_INVALID_TOKEN     = "error.invalid.token"
	ERROR_INVALID_ACCOUNT   = "error.invalid.account"
	ERROR_EXIST             = "error.exist"

	ERROR_CONVERSATION_ACCESS = "error.conversation.access"
	ERROR_MESSAGE_DELIVERY    = "error.message.delivery"
	ERROR_WEBSOCKET_UPGRADE   = "error.websocket.upgrade"
)
